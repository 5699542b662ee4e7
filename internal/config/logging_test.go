// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetLogLevel(t *testing.T) {
	old := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(old) })

	setLogLevel("DEBUG")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	setLogLevel("trace")
	assert.Equal(t, zerolog.TraceLevel, zerolog.GlobalLevel())

	setLogLevel("nonsense")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	setLogLevel("")
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}

func TestLogManager_ApplyWritesToFile(t *testing.T) {
	old := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(old) })

	var console bytes.Buffer
	lm := &LogManager{base: &console}
	lm.switchable = &switchableWriter{w: lm.base}

	logPath := filepath.Join(t.TempDir(), "logs", "cleango.log")
	require.NoError(t, lm.Apply("info", logPath, 1, 1))

	logger := zerolog.New(lm.switchable)
	logger.Info().Msg("hello file")

	require.NoError(t, lm.Close())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello file")
	assert.Contains(t, console.String(), "hello file")

	logger.Info().Msg("after close")
	data, err = os.ReadFile(logPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "after close")
}
