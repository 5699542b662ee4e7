// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleaner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/cleango/internal/domain"
	"github.com/autobrr/cleango/internal/models"
	"github.com/autobrr/cleango/internal/testdb"
)

func TestRunPass_EmptyTorrentList(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	recorder := &fakeRecorder{}
	e := NewExecutor(client, recorder, nil, true)

	res, err := e.RunPass(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Removed)
	assert.True(t, res.Recorded)
	assert.Zero(t, recorder.batchCount())
}

func TestRunPass_NothingUnwanted(t *testing.T) {
	t.Parallel()

	client := newFakeClient(healthy("a"), healthy("b"))
	e := NewExecutor(client, &fakeRecorder{}, nil, true)

	res, err := e.RunPass(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Removed)
	assert.Empty(t, client.deletedHashes())
}

func TestRunPass_DeletesMatchesWithFiles(t *testing.T) {
	t.Parallel()

	client := newFakeClient(unwanted("a", 100), healthy("b"), unwanted("c", 300))
	recorder := &fakeRecorder{}
	e := NewExecutor(client, recorder, nil, true)

	res, err := e.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "c"}, client.deletedHashes())
	assert.Equal(t, []bool{true, true}, client.deleteFiles)
	require.Len(t, res.Removed, 2)
	assert.Equal(t, int64(400), res.BytesFreed)
	assert.True(t, res.Recorded)
	assert.Len(t, res.Records, 2)
	require.Equal(t, 1, recorder.batchCount())
	assert.Len(t, recorder.batches[0], 2)
}

func TestRunPass_SkipsMatchesThatCannotBeRecorded(t *testing.T) {
	t.Parallel()

	nameless := unwanted("b", 200)
	nameless.Name = ""
	unknownSize := unwanted("c", -1)

	client := newFakeClient(unwanted("a", 100), nameless, unknownSize)
	recorder := &fakeRecorder{}
	e := NewExecutor(client, recorder, nil, true)

	res, err := e.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a"}, client.deletedHashes())
	require.Len(t, res.Removed, 1)
	assert.Empty(t, res.Failed)
	assert.True(t, res.Recorded)
	require.Equal(t, 1, recorder.batchCount())
	assert.Len(t, res.Records, 1)
}

func TestRunPass_KeepFilesWhenConfigured(t *testing.T) {
	t.Parallel()

	client := newFakeClient(unwanted("a", 1))
	e := NewExecutor(client, &fakeRecorder{}, nil, false)

	_, err := e.RunPass(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, client.deleteFiles)
}

func TestRunPass_PreflightUnreachable(t *testing.T) {
	t.Parallel()

	client := newFakeClient(unwanted("a", 1))
	client.reachable = false
	recorder := &fakeRecorder{}
	e := NewExecutor(client, recorder, nil, true)

	res, err := e.RunPass(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, domain.IsKind(err, domain.KindConnection))
	assert.Empty(t, client.deletedHashes())
	assert.Zero(t, recorder.batchCount())
}

func TestRunPass_ListFailureAbortsPass(t *testing.T) {
	t.Parallel()

	client := newFakeClient(unwanted("a", 1))
	client.listErr = errors.New("connection reset by peer")
	recorder := &fakeRecorder{}
	e := NewExecutor(client, recorder, nil, true)

	res, err := e.RunPass(context.Background())
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, domain.IsKind(err, domain.KindConnection))
	assert.False(t, client.IsReachable())
	assert.Empty(t, client.deletedHashes())
	assert.Zero(t, recorder.batchCount())
}

func TestRunPass_PerTorrentFailureDoesNotAbort(t *testing.T) {
	t.Parallel()

	client := newFakeClient(
		unwanted("a", 1), unwanted("b", 2), unwanted("c", 3), unwanted("d", 4), unwanted("e", 5),
	)
	client.deleteErrs["c"] = errBoom
	recorder := &fakeRecorder{}
	e := NewExecutor(client, recorder, nil, true)

	res, err := e.RunPass(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "d", "e"}, client.deletedHashes())
	assert.Len(t, res.Removed, 4)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "c", res.Failed[0].Hash)
	require.Equal(t, 1, recorder.batchCount())
	assert.Len(t, recorder.batches[0], 4)
}

func TestRunPass_PersistenceFailureKeepsDeletions(t *testing.T) {
	t.Parallel()

	client := newFakeClient(unwanted("a", 10), unwanted("b", 20))
	recorder := &fakeRecorder{err: errBoom}
	e := NewExecutor(client, recorder, nil, true)

	res, err := e.RunPass(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindPersistence))

	require.NotNil(t, res)
	assert.Len(t, res.Removed, 2)
	assert.False(t, res.Recorded)
	assert.Empty(t, res.Records)
	assert.Equal(t, []string{"a", "b"}, client.deletedHashes())
}

func TestRunPass_RejectsConcurrentPass(t *testing.T) {
	t.Parallel()

	client := newFakeClient(unwanted("a", 1))
	client.block = make(chan struct{})
	client.listed = make(chan struct{})
	e := NewExecutor(client, &fakeRecorder{}, nil, true)

	done := make(chan error, 1)
	go func() {
		_, err := e.RunPass(context.Background())
		done <- err
	}()

	<-client.listed
	assert.True(t, e.Running())

	_, err := e.RunPass(context.Background())
	require.ErrorIs(t, err, domain.ErrPassInProgress)

	close(client.block)
	require.NoError(t, <-done)
	assert.False(t, e.Running())
	assert.Equal(t, []string{"a"}, client.deletedHashes())
}

func TestRunPass_RecordsIntoStore(t *testing.T) {
	t.Parallel()

	db := testdb.Open(t, "cleaner-executor")
	store := models.NewDeletedTorrentStore(db, time.UTC)
	ctx := context.Background()

	before, err := store.AggregateStats(ctx)
	require.NoError(t, err)

	client := newFakeClient(unwanted("a", 100), unwanted("b", 200), healthy("c"), unwanted("d", 300))
	e := NewExecutor(client, store, nil, true)

	res, err := e.RunPass(ctx)
	require.NoError(t, err)
	require.Len(t, res.Records, 3)

	after, err := store.AggregateStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.TotalDeleted+3, after.TotalDeleted)
	assert.Equal(t, before.TotalSizeFreed+600, after.TotalSizeFreed)

	page, err := store.ListPage(ctx, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	for _, r := range page.Torrents {
		assert.Equal(t, "Unregistered torrent", r.TrackerMessage)
	}
}
