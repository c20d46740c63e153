// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/jeranaias/jaime-tui/internal/model"
)

// =============================================================================
// VIEWPORT CACHE
// =============================================================================

// viewportCache avoids repainting the transcript on every chunk.
//
// Final turns never change, so their painted form is kept per width and only
// the streaming turn is painted again. The hash of the last content handed to
// the viewport lets the shell skip SetContent when nothing visible changed.
//
// The cache is only touched from the Bubble Tea event loop.
type viewportCache struct {
	turns    map[string]paintedTurn
	lastHash string
	dirty    bool

	updates uint64
	skips   uint64
}

type paintedTurn struct {
	width int
	text  string
}

func newViewportCache() *viewportCache {
	return &viewportCache{turns: make(map[string]paintedTurn), dirty: true}
}

// turn returns the cached paint of t at width.
func (c *viewportCache) turn(t model.Turn, width int) (string, bool) {
	if t.IsStreaming() {
		return "", false
	}
	p, ok := c.turns[t.ID]
	if !ok || p.width != width {
		return "", false
	}
	return p.text, true
}

// store remembers the paint of a final turn.
func (c *viewportCache) store(t model.Turn, width int, text string) {
	if t.IsStreaming() {
		return
	}
	c.turns[t.ID] = paintedTurn{width: width, text: text}
}

// observe is subscribed to the transcript. A cleared transcript drops every
// painted turn.
func (c *viewportCache) observe(snap model.Snapshot) {
	if snap.Len() == 0 {
		c.reset()
	}
}

// shouldUpdate reports whether content differs from what the viewport holds.
func (c *viewportCache) shouldUpdate(content string) bool {
	c.updates++
	h := hashContent(content)
	if !c.dirty && h == c.lastHash {
		c.skips++
		return false
	}
	c.lastHash = h
	c.dirty = false
	return true
}

// forceUpdate makes the next shouldUpdate succeed, e.g. after a resize.
func (c *viewportCache) forceUpdate() {
	c.dirty = true
}

// reset drops every painted turn. Counters are kept.
func (c *viewportCache) reset() {
	clear(c.turns)
	c.dirty = true
}

// stats returns the update attempts and how many were skipped.
func (c *viewportCache) stats() (total, skipped uint64) {
	return c.updates, c.skips
}

func hashContent(content string) string {
	if content == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
