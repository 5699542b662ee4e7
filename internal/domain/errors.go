// Copyright (c) 2025-2026, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind classifies cleaner failures. Callers branch on the kind, never on
// the message text.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindAuthentication: credentials rejected or host unreachable at startup.
	KindAuthentication
	// KindConnection: qBittorrent unreachable during a pass.
	KindConnection
	// KindPerTorrent: a single torrent could not be deleted.
	KindPerTorrent
	// KindPersistence: the audit write failed.
	KindPersistence
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindConnection:
		return "connection"
	case KindPerTorrent:
		return "per-torrent"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

var (
	ErrNotInitialized = errors.New("not initialized")
	ErrPassInProgress = errors.New("clean pass already in progress")
)

// Error is a classified failure.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, err error, op string) error {
	return &Error{Kind: kind, Op: op, Err: errors.WithStack(err)}
}

func AuthenticationError(err error, op string) error {
	return newError(KindAuthentication, err, op)
}

func ConnectionError(err error, op string) error {
	return newError(KindConnection, err, op)
}

func PerTorrentError(err error, hash string) error {
	return newError(KindPerTorrent, err, "delete torrent "+hash)
}

func PersistenceError(err error, op string) error {
	return newError(KindPersistence, err, op)
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
