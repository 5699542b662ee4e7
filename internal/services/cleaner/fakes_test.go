// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleaner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/autobrr/cleango/internal/domain"
	"github.com/autobrr/cleango/internal/models"
)

type fakeClient struct {
	mu sync.Mutex

	reachable  bool
	torrents   []models.Torrent
	listErr    error
	deleteErrs map[string]error
	block      chan struct{}
	listed     chan struct{}

	probes      atomic.Int32
	deleted     []string
	deleteFiles []bool
}

func newFakeClient(torrents ...models.Torrent) *fakeClient {
	return &fakeClient{reachable: true, torrents: torrents, deleteErrs: map[string]error{}}
}

func (f *fakeClient) Probe(context.Context) bool {
	f.probes.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reachable
}

func (f *fakeClient) IsReachable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reachable
}

func (f *fakeClient) ListTorrents(ctx context.Context) ([]models.Torrent, error) {
	if f.listed != nil {
		close(f.listed)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		f.reachable = false
		return nil, domain.ConnectionError(f.listErr, "list torrents")
	}
	return f.torrents, nil
}

func (f *fakeClient) DeleteTorrents(_ context.Context, hashes []string, deleteFiles bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range hashes {
		if err := f.deleteErrs[h]; err != nil {
			return err
		}
	}
	f.deleted = append(f.deleted, hashes...)
	f.deleteFiles = append(f.deleteFiles, deleteFiles)
	return nil
}

func (f *fakeClient) deletedHashes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

type fakeRecorder struct {
	mu      sync.Mutex
	err     error
	batches [][]models.DeletionDecision
}

func (f *fakeRecorder) AppendBatch(_ context.Context, decisions []models.DeletionDecision) ([]models.DeletedTorrentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, decisions)

	records := make([]models.DeletedTorrentRecord, len(decisions))
	for i, d := range decisions {
		records[i] = models.DeletedTorrentRecord{
			ID:             int64(i + 1),
			Name:           d.Name,
			SizeBytes:      d.Size,
			TrackerMessage: d.TrackerMessage,
		}
	}
	return records, nil
}

func (f *fakeRecorder) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

var errBoom = errors.New("boom")

func unwanted(hash string, size int64) models.Torrent {
	return models.Torrent{
		Hash: hash,
		Name: "Release." + hash,
		Size: size,
		Trackers: []models.TrackerMessage{
			{URL: "https://tracker/announce", Message: "Unregistered torrent"},
		},
	}
}

func healthy(hash string) models.Torrent {
	return models.Torrent{
		Hash:     hash,
		Name:     "Keep." + hash,
		Size:     1,
		Trackers: []models.TrackerMessage{{URL: "https://tracker/announce", Message: ""}},
	}
}
