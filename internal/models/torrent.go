// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package models

import (
	"fmt"
	"strings"
)

// TrackerMessage is the status text one tracker reported for a torrent.
type TrackerMessage struct {
	URL     string `json:"url"`
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// Torrent is a snapshot fetched from qBittorrent for the duration of one pass.
// Trackers keep the order qBittorrent reported them in.
type Torrent struct {
	Hash     string           `json:"hash"`
	Name     string           `json:"name"`
	Size     int64            `json:"size"`
	Trackers []TrackerMessage `json:"trackers"`
}

// DeletionDecision marks a torrent for removal and carries the tracker
// message that matched.
type DeletionDecision struct {
	Hash           string `json:"hash"`
	Name           string `json:"name"`
	Size           int64  `json:"size_bytes"`
	TrackerMessage string `json:"tracker_message"`
}

// Validate reports whether d can be written to the audit log.
func (d DeletionDecision) Validate() error {
	switch {
	case strings.TrimSpace(d.Name) == "":
		return fmt.Errorf("%w: empty name for %s", ErrInvalidDeletedTorrent, d.Hash)
	case strings.TrimSpace(d.TrackerMessage) == "":
		return fmt.Errorf("%w: empty tracker message for %q", ErrInvalidDeletedTorrent, d.Name)
	case d.Size < 0:
		return fmt.Errorf("%w: negative size for %q", ErrInvalidDeletedTorrent, d.Name)
	}
	return nil
}
