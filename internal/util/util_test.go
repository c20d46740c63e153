// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ATOMIC WRITE TESTS
// =============================================================================

func TestAtomicWriteFile_CreatesParentAndSetsPerm(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "file.toml")

	require.NoError(t, AtomicWriteFile(path, []byte("hello"), 0600, 0700))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestAtomicWriteFile_OverwritesWithoutLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file")

	require.NoError(t, AtomicWriteFile(path, []byte("first version"), 0644, 0755))
	require.NoError(t, AtomicWriteFile(path, []byte("second"), 0644, 0755))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files cleaned up")
}

// =============================================================================
// STRING TESTS
// =============================================================================

func TestTruncateWidth(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello world", 6, "hello…"},
		{"日本語テキスト", 7, "日本語…"},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TruncateWidth(tt.in, tt.width), "TruncateWidth(%q, %d)", tt.in, tt.width)
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "", Preview("  \n\n ", 20))
	assert.Equal(t, "Hi there!", Preview("Hi there!", 20))
	assert.Equal(t, "Hi there!", Preview("  Hi   there! ", 20))
	assert.Equal(t, "Title…", Preview("\nTitle\n\nBody text", 20))
	assert.Equal(t, "A long fir…", Preview("A long first line here", 11))
}
