// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package scroll decides, on every transcript mutation, whether the chat
// viewport follows the newest content or keeps the user's read position.
//
// The controller is pure bookkeeping over line counts. The shell reports
// scroll events and content changes and applies the returned offset to its
// bubbles viewport.
package scroll

import "time"

const (
	// DefaultThreshold pins only when the view touches the bottom edge.
	DefaultThreshold = 1
	// DefaultResizeDebounce is how long a resize must be quiet before the
	// controller re-snaps.
	DefaultResizeDebounce = 80 * time.Millisecond
)

// =============================================================================
// SCROLL CONTROLLER
// =============================================================================

// Controller tracks the viewport offset and the pinned flag.
//
// Pinned is derived: it is recomputed from the offset on every scroll event
// and held across mutations, so content growth never unpins a reader and a
// reader scrolled up is never yanked down.
type Controller struct {
	threshold int
	debounce  time.Duration

	pinned bool
	offset int
	total  int
	height int

	resizeSeq uint64
}

// New creates a pinned controller. A threshold below 1 is raised to 1.
func New(threshold int, debounce time.Duration) *Controller {
	if threshold < 1 {
		threshold = DefaultThreshold
	}
	if debounce < 0 {
		debounce = 0
	}
	return &Controller{threshold: threshold, debounce: debounce, pinned: true}
}

// Pinned reports whether the viewport follows new content.
func (c *Controller) Pinned() bool { return c.pinned }

// Offset returns the current top line of the viewport.
func (c *Controller) Offset() int { return c.offset }

// Height returns the viewport height in lines.
func (c *Controller) Height() int { return c.height }

// Threshold returns the pin distance in lines.
func (c *Controller) Threshold() int { return c.threshold }

// Debounce returns the resize settle delay.
func (c *Controller) Debounce() time.Duration { return c.debounce }

// SetThreshold changes the pin distance; the pinned flag is not recomputed
// until the next scroll event.
func (c *Controller) SetThreshold(lines int) {
	if lines < 1 {
		lines = DefaultThreshold
	}
	c.threshold = lines
}

// DistanceFromBottom returns how many lines lie below the visible window.
func (c *Controller) DistanceFromBottom() int {
	return c.maxOffset() - c.offset
}

// OnMutation records new content and returns the offset to apply.
// A pinned viewport moves to the newest-content edge; otherwise the offset
// is only clamped into range.
func (c *Controller) OnMutation(totalLines int) int {
	c.total = max(totalLines, 0)
	if c.pinned {
		c.offset = c.maxOffset()
	} else {
		c.offset = c.clamp(c.offset)
	}
	return c.offset
}

// OnScroll records a user scroll and recomputes Pinned.
func (c *Controller) OnScroll(offset, totalLines int) bool {
	c.total = max(totalLines, 0)
	c.offset = c.clamp(offset)
	c.pinned = c.DistanceFromBottom() < c.threshold
	return c.pinned
}

// ForcePin pins the viewport regardless of its prior state and returns the
// bottom offset. Called when the user submits.
func (c *Controller) ForcePin() int {
	c.pinned = true
	c.offset = c.maxOffset()
	return c.offset
}

// Resize records a new viewport height and returns a sequence number.
// The caller schedules OnResizeSettled with it after Debounce; only the
// latest sequence re-snaps.
func (c *Controller) Resize(height int) uint64 {
	c.height = max(height, 0)
	c.offset = c.clamp(c.offset)
	c.resizeSeq++
	return c.resizeSeq
}

// OnResizeSettled re-snaps a pinned viewport once resizing has stopped.
// It returns the offset and whether seq was the latest resize.
func (c *Controller) OnResizeSettled(seq uint64) (int, bool) {
	if seq != c.resizeSeq {
		return c.offset, false
	}
	if c.pinned {
		c.offset = c.maxOffset()
	}
	return c.offset, true
}

func (c *Controller) maxOffset() int {
	return max(c.total-c.height, 0)
}

func (c *Controller) clamp(offset int) int {
	return min(max(offset, 0), c.maxOffset())
}
