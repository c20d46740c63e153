// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines the Bubble Tea message types used by the chat shell and
// the commands that produce them.

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/jaime-tui/internal/config"
	"github.com/jeranaias/jaime-tui/internal/stream"
)

// =============================================================================
// STREAMING MESSAGES
// =============================================================================

// streamEventMsg carries one event read from a session channel. The channel
// rides along so the next read can be scheduled.
type streamEventMsg struct {
	events <-chan stream.Event
	event  stream.Event
}

// streamClosedMsg reports that a session channel was closed.
type streamClosedMsg struct{}

// flushTickMsg asks the controller to release batched text.
type flushTickMsg struct{}

// expireMsg fires when a session has run for the maximum exchange duration.
type expireMsg struct {
	sessionID string
}

// listen reads the next event from a session channel.
func listen(events <-chan stream.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return streamClosedMsg{}
		}
		return streamEventMsg{events: events, event: ev}
	}
}

func flushAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return flushTickMsg{}
	})
}

func expireAfter(d time.Duration, sessionID string) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return expireMsg{sessionID: sessionID}
	})
}

// =============================================================================
// VIEWPORT MESSAGES
// =============================================================================

// resizeSettledMsg fires once the terminal has stopped resizing.
type resizeSettledMsg struct {
	seq uint64
}

func settleAfter(d time.Duration, seq uint64) tea.Cmd {
	if d <= 0 {
		return func() tea.Msg { return resizeSettledMsg{seq: seq} }
	}
	return tea.Tick(d, func(time.Time) tea.Msg {
		return resizeSettledMsg{seq: seq}
	})
}

// =============================================================================
// SIDE EFFECT RESULTS
// =============================================================================

// copiedMsg reports the result of a clipboard write.
type copiedMsg struct {
	err error
}

// notifiedMsg reports the result of a desktop notification.
type notifiedMsg struct {
	err error
}

// configChangedMsg carries a hot reload result.
type configChangedMsg struct {
	change config.Change
}

// waitForConfig reads the next reload from changes. A closed channel ends
// the watch.
func waitForConfig(changes <-chan config.Change) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		change, ok := <-changes
		if !ok {
			return nil
		}
		return configChangedMsg{change: change}
	}
}
