// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleaner

import (
	"sync"
	"time"
)

type TriggerKind string

const (
	TriggerManual    TriggerKind = "manual"
	TriggerScheduled TriggerKind = "scheduled"
)

const ResultSuccess = "success"

// CleanStatus is the outcome of the most recent pass. The zero value means no
// pass has completed yet.
type CleanStatus struct {
	Timestamp       *time.Time  `json:"timestamp"`
	Type            TriggerKind `json:"type"`
	Result          string      `json:"result"`
	TorrentsRemoved int         `json:"torrents_removed"`
}

// ErrorResult formats a failure the way it is shown in CleanStatus.Result.
func ErrorResult(err error) string {
	return "error: " + err.Error()
}

// StatusTracker holds a single CleanStatus. Every write replaces it whole and
// readers get a copy.
type StatusTracker struct {
	mu      sync.RWMutex
	current CleanStatus

	loc *time.Location
	now func() time.Time
}

func NewStatusTracker(loc *time.Location) *StatusTracker {
	if loc == nil {
		loc = time.Local
	}
	return &StatusTracker{loc: loc, now: time.Now}
}

func (t *StatusTracker) Record(trigger TriggerKind, result string, removed int) CleanStatus {
	ts := t.now().In(t.loc)
	next := CleanStatus{
		Timestamp:       &ts,
		Type:            trigger,
		Result:          result,
		TorrentsRemoved: removed,
	}

	t.mu.Lock()
	t.current = next
	t.mu.Unlock()

	return next.clone()
}

// RecordOutcome maps a pass outcome onto the status slot. Torrents deleted
// before an error are still counted.
func (t *StatusTracker) RecordOutcome(trigger TriggerKind, res *PassResult, err error) CleanStatus {
	removed := 0
	if res != nil {
		removed = len(res.Removed)
	}
	if err != nil {
		return t.Record(trigger, ErrorResult(err), removed)
	}
	return t.Record(trigger, ResultSuccess, removed)
}

func (t *StatusTracker) Current() CleanStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current.clone()
}

func (s CleanStatus) clone() CleanStatus {
	if s.Timestamp != nil {
		ts := *s.Timestamp
		s.Timestamp = &ts
	}
	return s
}
