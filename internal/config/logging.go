// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultLogMaxSize    = 50
	defaultLogMaxBackups = 3
)

// switchableWriter lets the log destination change while other goroutines
// keep logging through the same zerolog.Logger.
type switchableWriter struct {
	mu     sync.RWMutex
	w      io.Writer
	closer io.Closer
}

func (s *switchableWriter) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w.Write(p)
}

// swap installs w and returns the previous closer, if any.
func (s *switchableWriter) swap(w io.Writer, closer io.Closer) io.Closer {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.closer
	s.w = w
	s.closer = closer
	return old
}

// LogManager handles log configuration with safe runtime reconfiguration.
type LogManager struct {
	switchable  *switchableWriter
	base        io.Writer
	mu          sync.Mutex
	initialized atomic.Bool
}

func NewLogManager() *LogManager {
	base := baseLogWriter(os.Stderr)
	return &LogManager{
		switchable: &switchableWriter{w: base},
		base:       base,
	}
}

func baseLogWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
}

// Initialize points the global logger at the switchable writer. The logger
// itself stays at trace so the global level alone controls filtering.
func (lm *LogManager) Initialize() {
	if lm.initialized.Swap(true) {
		return
	}
	log.Logger = log.Logger.Output(lm.switchable).Level(zerolog.TraceLevel)
}

// Apply sets the level and, when logPath is set, tees output into a rotated
// file. Safe for concurrent use.
func (lm *LogManager) Apply(level, logPath string, maxSize, maxBackups int) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	setLogLevel(level)

	w, closer, err := lm.buildWriter(logPath, maxSize, maxBackups)
	if err != nil {
		return err
	}

	if old := lm.switchable.swap(w, closer); old != nil {
		if err := old.Close(); err != nil {
			log.Debug().Err(err).Msg("Failed to close old log rotator")
		}
	}

	return nil
}

// Close releases the current log file, if any.
func (lm *LogManager) Close() error {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if old := lm.switchable.swap(lm.base, nil); old != nil {
		return old.Close()
	}
	return nil
}

func (lm *LogManager) buildWriter(logPath string, maxSize, maxBackups int) (io.Writer, io.Closer, error) {
	if logPath == "" {
		return lm.base, nil, nil
	}

	dir := filepath.Dir(logPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
	}

	if maxSize <= 0 {
		maxSize = defaultLogMaxSize
	}
	if maxBackups < 0 {
		maxBackups = 0
	}

	rotator := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
	}
	return io.MultiWriter(lm.base, rotator), rotator, nil
}

// setLogLevel falls back to info for unknown levels.
func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
