// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleaner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/autobrr/cleango/internal/domain"
)

var scheduleParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule reports whether expr is a cron expression or descriptor
// such as "@every 1h".
func ValidateSchedule(expr string) error {
	if _, err := scheduleParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid clean schedule %q: %w", expr, err)
	}
	return nil
}

// Scheduler runs scheduled passes for the lifetime of the process. A failing
// or panicking tick is recorded and the next tick still fires.
type Scheduler struct {
	svc  *Service
	cron *cron.Cron

	mu      sync.Mutex
	started bool
	wg      sync.WaitGroup
}

func NewScheduler(svc *Service) (*Scheduler, error) {
	cfg := svc.Config()
	if err := ValidateSchedule(cfg.Schedule); err != nil {
		return nil, err
	}

	return &Scheduler{
		svc: svc,
		cron: cron.New(
			cron.WithParser(scheduleParser),
			cron.WithLocation(cfg.Location),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}, nil
}

// Start registers the tick and returns. The scheduler stops when ctx is
// cancelled, waiting for a running tick to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("scheduler already started")
	}

	if _, err := s.cron.AddFunc(s.svc.Config().Schedule, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("invalid clean schedule: %w", err)
	}

	s.started = true
	s.cron.Start()

	if s.svc.Config().RunOnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.tick(ctx)
		}()
	}

	log.Info().
		Str("schedule", s.svc.Config().Schedule).
		Time("next", s.Next()).
		Bool("runOnStartup", s.svc.Config().RunOnStartup).
		Msg("cleaner: scheduler started")

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop halts ticking and waits for an in-flight tick.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.wg.Wait()
	log.Info().Msg("cleaner: scheduler stopped")
}

// Next is the time of the next scheduled tick, zero when not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			log.Error().Err(err).Msg("cleaner: recovered from panic in scheduled pass")
			s.svc.RecordFailure(TriggerScheduled, err)
		}
	}()

	if ctx.Err() != nil {
		return
	}

	if !s.svc.Initialized() {
		log.Warn().Msg("cleaner: scheduled pass skipped, cleaner not initialized")
		s.svc.RecordNotInitialized(TriggerScheduled)
		return
	}

	res, err := s.svc.Clean(ctx, TriggerScheduled)
	switch {
	case errors.Is(err, domain.ErrPassInProgress):
		log.Info().Msg("cleaner: scheduled pass skipped, another pass is running")
	case err != nil:
		// already logged and recorded by Clean
	default:
		log.Debug().Int("deleted", len(res.Removed)).Msg("cleaner: scheduled pass finished")
	}
}
