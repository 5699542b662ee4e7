// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cleaner

import (
	"slices"
	"strings"

	"github.com/autobrr/cleango/internal/models"
)

// DefaultUnwantedTerms is used when no terms are configured.
var DefaultUnwantedTerms = []string{"unregistered", "trump"}

// Policy decides from tracker messages alone whether a torrent is removed.
// It holds no state beyond its term list and is safe for concurrent use.
type Policy struct {
	terms []string
}

// NewPolicy lower-cases, trims and deduplicates terms. An empty result falls
// back to DefaultUnwantedTerms.
func NewPolicy(terms []string) *Policy {
	normalized := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" || slices.Contains(normalized, term) {
			continue
		}
		normalized = append(normalized, term)
	}

	if len(normalized) == 0 {
		normalized = slices.Clone(DefaultUnwantedTerms)
	}

	return &Policy{terms: normalized}
}

func (p *Policy) Terms() []string {
	return slices.Clone(p.terms)
}

func (p *Policy) ShouldDelete(message string) bool {
	if message == "" {
		return false
	}
	lower := strings.ToLower(message)
	for _, term := range p.terms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// SelectTriggeringMessage returns the first tracker message, in the order
// qBittorrent reported them, that matches an unwanted term.
func (p *Policy) SelectTriggeringMessage(t models.Torrent) (string, bool) {
	for _, tr := range t.Trackers {
		if p.ShouldDelete(tr.Message) {
			return tr.Message, true
		}
	}
	return "", false
}

func (p *Policy) Decide(t models.Torrent) (models.DeletionDecision, bool) {
	msg, ok := p.SelectTriggeringMessage(t)
	if !ok {
		return models.DeletionDecision{}, false
	}
	return models.DeletionDecision{
		Hash:           t.Hash,
		Name:           t.Name,
		Size:           t.Size,
		TrackerMessage: msg,
	}, true
}
