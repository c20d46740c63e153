// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// CHUNK BATCHER
// =============================================================================

// DefaultBatchInterval is the minimum time between transcript mutations while
// a reply streams in.
const DefaultBatchInterval = 100 * time.Millisecond

// batcher coalesces rapid chunks into fewer transcript mutations.
//
// Chunks are buffered in arrival order and released at most once per
// interval, enforced by a token bucket with burst 1. The first chunk of a
// session is released immediately. ForceFlush releases everything regardless
// of the limiter, so the concatenated output always equals the input.
//
// A batcher is owned by the controller and only touched from the event loop,
// so unlike a buffer written by a streaming goroutine it needs no lock.
type batcher struct {
	buf     strings.Builder
	chunks  int
	limiter *rate.Limiter // nil disables batching
}

func newBatcher(interval time.Duration) *batcher {
	b := &batcher{}
	if interval > 0 {
		b.limiter = rate.NewLimiter(rate.Every(interval), 1)
	}
	return b
}

// Write buffers a delta.
func (b *batcher) Write(delta string) {
	if delta == "" {
		return
	}
	b.buf.WriteString(delta)
	b.chunks++
}

// Flush releases buffered text if the limiter allows a mutation at now.
func (b *batcher) Flush(now time.Time) (string, bool) {
	if b.buf.Len() == 0 {
		return "", false
	}
	if b.limiter != nil && !b.limiter.AllowN(now, 1) {
		return "", false
	}
	return b.take()
}

// ForceFlush releases all buffered text.
func (b *batcher) ForceFlush() (string, bool) {
	if b.buf.Len() == 0 {
		return "", false
	}
	return b.take()
}

// Pending returns the number of buffered chunks.
func (b *batcher) Pending() int {
	return b.chunks
}

func (b *batcher) take() (string, bool) {
	content := b.buf.String()
	b.buf.Reset()
	b.chunks = 0
	return content, true
}
