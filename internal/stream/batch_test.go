// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBatcher_DisabledReleasesEveryChunk(t *testing.T) {
	b := newBatcher(0)
	now := time.Now()

	for _, chunk := range []string{"a", "b", "c"} {
		b.Write(chunk)
		got, ok := b.Flush(now)
		assert.True(t, ok)
		assert.Equal(t, chunk, got)
	}
	assert.Zero(t, b.Pending())
}

func TestBatcher_CoalescesWithinInterval(t *testing.T) {
	b := newBatcher(100 * time.Millisecond)
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	b.Write("Hel")
	got, ok := b.Flush(start)
	assert.True(t, ok, "first chunk is released immediately")
	assert.Equal(t, "Hel", got)

	b.Write("lo")
	b.Write(", ")
	_, ok = b.Flush(start.Add(10 * time.Millisecond))
	assert.False(t, ok)
	assert.Equal(t, 2, b.Pending())

	got, ok = b.Flush(start.Add(150 * time.Millisecond))
	assert.True(t, ok)
	assert.Equal(t, "lo, ", got)
	assert.Zero(t, b.Pending())
}

func TestBatcher_ForceFlushIgnoresLimiter(t *testing.T) {
	b := newBatcher(time.Hour)
	now := time.Now()

	b.Write("x")
	b.Flush(now)
	b.Write("y")
	b.Write("z")

	got, ok := b.ForceFlush()
	assert.True(t, ok)
	assert.Equal(t, "yz", got)

	_, ok = b.ForceFlush()
	assert.False(t, ok, "nothing left")
}

func TestBatcher_EmptyDeltaIgnored(t *testing.T) {
	b := newBatcher(0)
	b.Write("")
	assert.Zero(t, b.Pending())
	_, ok := b.Flush(time.Now())
	assert.False(t, ok)
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusIdle, "idle"},
		{StatusSubmitted, "submitted"},
		{StatusStreaming, "streaming"},
		{StatusErrored, "errored"},
		{Status(9), "status(9)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.String())
	}
}
