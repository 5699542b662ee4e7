// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleaner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/cleango/internal/models"
)

type panicClient struct{ *fakeClient }

func (p panicClient) ListTorrents(context.Context) ([]models.Torrent, error) {
	panic("list exploded")
}

func TestValidateSchedule(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"@every 1h", "@hourly", "0 * * * *", "30 0 * * * *"} {
		assert.NoError(t, ValidateSchedule(expr), expr)
	}
	for _, expr := range []string{"", "every hour", "61 * * * *"} {
		assert.Error(t, ValidateSchedule(expr), expr)
	}
}

func TestNewScheduler_InvalidSchedule(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Schedule = "not a schedule"
	_, err := NewScheduler(NewService(cfg, nil, nil))
	require.Error(t, err)
}

func TestScheduler_TickUninitialized(t *testing.T) {
	t.Parallel()

	svc := NewService(DefaultConfig(), nil, nil)
	s, err := NewScheduler(svc)
	require.NoError(t, err)

	s.tick(context.Background())

	st := svc.Status()
	assert.Equal(t, TriggerScheduled, st.Type)
	assert.Equal(t, "error: not initialized", st.Result)
}

func TestScheduler_TickRecordsScheduledPass(t *testing.T) {
	t.Parallel()

	client := newFakeClient(unwanted("a", 1))
	svc := NewService(DefaultConfig(), client, &fakeRecorder{})
	s, err := NewScheduler(svc)
	require.NoError(t, err)

	s.tick(context.Background())

	st := svc.Status()
	assert.Equal(t, TriggerScheduled, st.Type)
	assert.Equal(t, ResultSuccess, st.Result)
	assert.Equal(t, 1, st.TorrentsRemoved)
}

func TestScheduler_TickSurvivesFailures(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.reachable = false
	svc := NewService(DefaultConfig(), client, &fakeRecorder{})
	s, err := NewScheduler(svc)
	require.NoError(t, err)

	s.tick(context.Background())
	assert.Contains(t, svc.Status().Result, "error: ")

	client.mu.Lock()
	client.reachable = true
	client.torrents = []models.Torrent{unwanted("b", 2)}
	client.mu.Unlock()

	s.tick(context.Background())
	assert.Equal(t, ResultSuccess, svc.Status().Result)
	assert.Equal(t, 1, svc.Status().TorrentsRemoved)
}

func TestScheduler_TickRecoversPanic(t *testing.T) {
	t.Parallel()

	svc := NewService(DefaultConfig(), panicClient{newFakeClient()}, &fakeRecorder{})
	s, err := NewScheduler(svc)
	require.NoError(t, err)

	require.NotPanics(t, func() { s.tick(context.Background()) })
	assert.Equal(t, "error: panic: list exploded", svc.Status().Result)
	assert.False(t, svc.Running())
}

func TestScheduler_RunOnStartup(t *testing.T) {
	t.Parallel()

	client := newFakeClient(unwanted("a", 1))
	svc := NewService(DefaultConfig(), client, &fakeRecorder{})
	s, err := NewScheduler(svc)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	require.Error(t, s.Start(ctx))

	require.Eventually(t, func() bool {
		return svc.Status().Type == TriggerScheduled
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, []string{"a"}, client.deletedHashes())
	assert.True(t, s.Next().After(time.Now()))

	s.Stop()
	s.Stop()
}

func TestScheduler_NoStartupRunWhenDisabled(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.RunOnStartup = false
	client := newFakeClient(unwanted("a", 1))
	svc := NewService(cfg, client, &fakeRecorder{})
	s, err := NewScheduler(svc)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()
	s.Stop()

	assert.Equal(t, CleanStatus{}, svc.Status())
	assert.Empty(t, client.deletedHashes())
}
