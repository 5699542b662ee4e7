// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package cleaner removes torrents whose trackers report them as unwanted and
// keeps the outcome of the most recent pass.
package cleaner

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleango/internal/domain"
)

type Config struct {
	Schedule      string
	RunOnStartup  bool
	DeleteFiles   bool
	UnwantedTerms []string
	Location      *time.Location
}

func DefaultConfig() Config {
	return Config{
		Schedule:      "@every 1h",
		RunOnStartup:  true,
		DeleteFiles:   true,
		UnwantedTerms: DefaultUnwantedTerms,
		Location:      time.Local,
	}
}

// ConfigFromDomain maps application settings onto a cleaner Config.
func ConfigFromDomain(cfg *domain.Config, loc *time.Location) Config {
	c := DefaultConfig()
	if cfg.CleanSchedule != "" {
		c.Schedule = cfg.CleanSchedule
	}
	c.RunOnStartup = cfg.RunOnStartup
	c.DeleteFiles = cfg.DeleteFiles
	if len(cfg.UnwantedTerms) > 0 {
		c.UnwantedTerms = cfg.UnwantedTerms
	}
	if loc != nil {
		c.Location = loc
	}
	return c
}

type passKey struct {
	trigger TriggerKind
	success bool
}

// Stats are cumulative counters since process start.
type Stats struct {
	Passes          map[TriggerKind]map[bool]uint64
	TorrentsRemoved uint64
	BytesFreed      uint64
	DeleteFailures  uint64
	LastPass        time.Time
	LastDuration    time.Duration
}

// Service owns the cleaning engine. A Service built without a client is
// uninitialized: passes fail with domain.ErrNotInitialized and the status
// endpoint reports disconnected.
type Service struct {
	cfg      Config
	client   TorrentClient
	executor *Executor
	status   *StatusTracker

	statsMu         sync.Mutex
	passes          map[passKey]uint64
	torrentsRemoved uint64
	bytesFreed      uint64
	deleteFailures  uint64
	lastPass        time.Time
	lastDuration    time.Duration
}

// NewService wires the engine. Pass a nil client when qBittorrent could not
// be reached or credentials are missing.
func NewService(cfg Config, client TorrentClient, recorder DeletionRecorder) *Service {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultConfig().Schedule
	}

	s := &Service{
		cfg:    cfg,
		status: NewStatusTracker(cfg.Location),
		passes: make(map[passKey]uint64),
	}

	if client != nil && recorder != nil {
		s.client = client
		s.executor = NewExecutor(client, recorder, NewPolicy(cfg.UnwantedTerms), cfg.DeleteFiles)
	}

	return s
}

func (s *Service) Initialized() bool {
	return s.executor != nil
}

func (s *Service) Config() Config {
	return s.cfg
}

// Clean runs one pass and records its outcome under trigger. A pass rejected
// because another one is running leaves the status untouched.
func (s *Service) Clean(ctx context.Context, trigger TriggerKind) (*PassResult, error) {
	if !s.Initialized() {
		return nil, domain.ErrNotInitialized
	}

	res, err := s.executor.RunPass(ctx)
	if errors.Is(err, domain.ErrPassInProgress) {
		return nil, err
	}

	s.status.RecordOutcome(trigger, res, err)
	s.observe(trigger, res, err)

	if err != nil {
		log.Error().Err(err).Str("trigger", string(trigger)).Str("kind", domain.KindOf(err).String()).Msg("cleaner: pass failed")
	}

	return res, err
}

// RecordNotInitialized marks a pass that could not run because the engine
// never initialized.
func (s *Service) RecordNotInitialized(trigger TriggerKind) CleanStatus {
	s.observe(trigger, nil, domain.ErrNotInitialized)
	return s.status.Record(trigger, ErrorResult(domain.ErrNotInitialized), 0)
}

// RecordFailure records a pass that ended without a result, such as a
// recovered panic.
func (s *Service) RecordFailure(trigger TriggerKind, err error) CleanStatus {
	s.observe(trigger, nil, err)
	return s.status.Record(trigger, ErrorResult(err), 0)
}

func (s *Service) Status() CleanStatus {
	return s.status.Current()
}

// Connected probes qBittorrent. An uninitialized engine is never connected.
func (s *Service) Connected(ctx context.Context) bool {
	if s.client == nil {
		return false
	}
	return s.client.Probe(ctx)
}

// Reachable returns the last known reachability without a round trip.
func (s *Service) Reachable() bool {
	if s.client == nil {
		return false
	}
	return s.client.IsReachable()
}

func (s *Service) Running() bool {
	return s.executor != nil && s.executor.Running()
}

func (s *Service) observe(trigger TriggerKind, res *PassResult, err error) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	s.passes[passKey{trigger: trigger, success: err == nil}]++
	s.lastPass = time.Now()
	if res == nil {
		return
	}
	s.torrentsRemoved += uint64(len(res.Removed))
	s.bytesFreed += uint64(max(res.BytesFreed, 0))
	s.deleteFailures += uint64(len(res.Failed))
	s.lastDuration = res.Duration
}

// Stats returns a snapshot of the cumulative counters.
func (s *Service) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()

	passes := make(map[TriggerKind]map[bool]uint64)
	for k, v := range s.passes {
		if passes[k.trigger] == nil {
			passes[k.trigger] = make(map[bool]uint64)
		}
		passes[k.trigger][k.success] = v
	}

	return Stats{
		Passes:          passes,
		TorrentsRemoved: s.torrentsRemoved,
		BytesFreed:      s.bytesFreed,
		DeleteFailures:  s.deleteFailures,
		LastPass:        s.lastPass,
		LastDuration:    s.lastDuration,
	}
}
