// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleaner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleango/internal/domain"
	"github.com/autobrr/cleango/internal/models"
)

// auditWriteTimeout bounds the batch write, which runs detached from the
// pass context so torrents deleted before shutdown still get recorded.
const auditWriteTimeout = 30 * time.Second

var errUnreachable = errors.New("qbittorrent is unreachable")

// TorrentClient is the part of qbittorrent.Client a pass needs.
type TorrentClient interface {
	Probe(ctx context.Context) bool
	IsReachable() bool
	ListTorrents(ctx context.Context) ([]models.Torrent, error)
	DeleteTorrents(ctx context.Context, hashes []string, deleteFiles bool) error
}

// DeletionRecorder persists one pass worth of deletions atomically.
type DeletionRecorder interface {
	AppendBatch(ctx context.Context, decisions []models.DeletionDecision) ([]models.DeletedTorrentRecord, error)
}

// PassResult describes what one pass did. Removed holds every torrent
// qBittorrent deleted, whether or not the audit write succeeded.
type PassResult struct {
	Removed    []models.DeletionDecision
	Failed     []models.DeletionDecision
	Records    []models.DeletedTorrentRecord
	Recorded   bool
	BytesFreed int64
	Duration   time.Duration
}

// Executor runs cleaning passes. At most one pass runs at a time.
type Executor struct {
	client      TorrentClient
	recorder    DeletionRecorder
	policy      *Policy
	deleteFiles bool

	running atomic.Bool
}

func NewExecutor(client TorrentClient, recorder DeletionRecorder, policy *Policy, deleteFiles bool) *Executor {
	if policy == nil {
		policy = NewPolicy(nil)
	}
	return &Executor{
		client:      client,
		recorder:    recorder,
		policy:      policy,
		deleteFiles: deleteFiles,
	}
}

// Running reports whether a pass is in progress.
func (e *Executor) Running() bool {
	return e.running.Load()
}

// RunPass lists torrents, deletes those matching the policy one by one and
// records the successful deletions in a single batch.
//
// A connection failure aborts the pass before anything is deleted. A failed
// delete only skips that torrent, as does a match that could not be recorded. A failed audit write returns the result
// together with a domain.KindPersistence error.
func (e *Executor) RunPass(ctx context.Context) (*PassResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, domain.ErrPassInProgress
	}
	defer e.running.Store(false)

	start := time.Now()

	if !e.client.Probe(ctx) {
		return nil, domain.ConnectionError(errUnreachable, "pre-flight check")
	}

	torrents, err := e.client.ListTorrents(ctx)
	if err != nil {
		if domain.KindOf(err) != domain.KindConnection {
			err = domain.ConnectionError(err, "list torrents")
		}
		return nil, err
	}

	log.Debug().Int("torrents", len(torrents)).Msg("cleaner: evaluating torrents")

	result := &PassResult{}
	var interrupted error
	for _, t := range torrents {
		if err := ctx.Err(); err != nil {
			interrupted = errors.Wrap(err, "pass interrupted")
			break
		}

		decision, ok := e.policy.Decide(t)
		if !ok {
			continue
		}

		// a torrent that cannot be audited is left in qBittorrent
		if err := decision.Validate(); err != nil {
			log.Warn().Err(err).Str("hash", t.Hash).Msg("cleaner: unwanted torrent cannot be recorded, skipping")
			continue
		}

		if err := e.client.DeleteTorrents(ctx, []string{t.Hash}, e.deleteFiles); err != nil {
			log.Warn().
				Err(domain.PerTorrentError(err, t.Hash)).
				Str("name", t.Name).
				Str("trackerMessage", decision.TrackerMessage).
				Msg("cleaner: failed to delete torrent, skipping")
			result.Failed = append(result.Failed, decision)
			continue
		}

		log.Info().
			Str("name", t.Name).
			Str("hash", t.Hash).
			Str("size", humanize.IBytes(uint64(max(t.Size, 0)))).
			Str("trackerMessage", decision.TrackerMessage).
			Msg("cleaner: deleted torrent")

		result.Removed = append(result.Removed, decision)
		result.BytesFreed += t.Size
	}

	persistErr := e.record(ctx, result)
	result.Duration = time.Since(start)

	log.Info().
		Int("deleted", len(result.Removed)).
		Int("failed", len(result.Failed)).
		Str("freed", humanize.IBytes(uint64(max(result.BytesFreed, 0)))).
		Dur("duration", result.Duration).
		Msgf("cleaner: batch operation complete: %d torrents were deleted", len(result.Removed))

	if persistErr != nil {
		return result, persistErr
	}
	return result, interrupted
}

func (e *Executor) record(ctx context.Context, result *PassResult) error {
	if len(result.Removed) == 0 {
		result.Recorded = true
		return nil
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()

	records, err := e.recorder.AppendBatch(writeCtx, result.Removed)
	if err != nil {
		perr := domain.PersistenceError(err, "record deleted torrents")
		log.Error().Err(perr).Int("deleted", len(result.Removed)).Msg("cleaner: deletions stand but were not recorded")
		return perr
	}

	result.Records = records
	result.Recorded = true
	return nil
}
