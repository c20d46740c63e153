// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
		err  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.err {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestInit_WritesToFileAndHonoursLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "jaime.log")
	t.Cleanup(func() { _ = Close() })

	log, err := Init(path, "info")
	require.NoError(t, err)
	assert.Equal(t, path, Path())

	log.Debug("hidden detail")
	log.Info("submit", "chars", 5)

	SetDebug(true)
	Logger().Debug("now visible")
	SetDebug(false)

	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "msg=submit chars=5")
	assert.Contains(t, out, "now visible")
	assert.NotContains(t, out, "hidden detail")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestInit_RejectsBadLevel(t *testing.T) {
	_, err := Init(filepath.Join(t.TempDir(), "x.log"), "shout")
	assert.Error(t, err)
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	lv := new(slog.LevelVar)
	log := New(&buf, lv)

	log.Debug("a")
	lv.Set(slog.LevelDebug)
	log.Debug("b")

	assert.NotContains(t, buf.String(), "msg=a")
	assert.Contains(t, buf.String(), "msg=b")

	assert.Error(t, SetLevel("nope"))
	assert.NoError(t, SetLevel("warn"))
	t.Cleanup(func() { SetDebug(false) })
}

func TestLoggerBeforeInitDiscards(t *testing.T) {
	require.NoError(t, Close())
	assert.NotNil(t, Logger())
	assert.Empty(t, Path())
	Logger().Info("goes nowhere")
}
