// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat interface.
//
// Plain letters are never bound: every keystroke that is not a binding goes
// to the input.
type KeyMap struct {
	Submit   key.Binding
	Newline  key.Binding
	Stop     key.Binding
	Dismiss  key.Binding
	NewChat  key.Binding
	Layout   key.Binding
	Copy     key.Binding
	Cycle    key.Binding
	Prompts  [4]key.Binding
	LineUp   key.Binding
	LineDown key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default key bindings for the chat interface.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Newline: key.NewBinding(
			key.WithKeys("alt+enter", "ctrl+j"),
			key.WithHelp("alt+enter", "newline"),
		),
		Stop: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "stop"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "new chat"),
		),
		Layout: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "layout"),
		),
		Copy: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy reply"),
		),
		Cycle: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "prompts"),
		),
		Prompts: [4]key.Binding{
			key.NewBinding(key.WithKeys("alt+1", "ctrl+1"), key.WithHelp("alt+1", "prompt 1")),
			key.NewBinding(key.WithKeys("alt+2", "ctrl+2"), key.WithHelp("alt+2", "prompt 2")),
			key.NewBinding(key.WithKeys("alt+3", "ctrl+3"), key.WithHelp("alt+3", "prompt 3")),
			key.NewBinding(key.WithKeys("alt+4", "ctrl+4"), key.WithHelp("alt+4", "prompt 4")),
		},
		LineUp: key.NewBinding(
			key.WithKeys("ctrl+up"),
			key.WithHelp("ctrl+↑", "scroll up"),
		),
		LineDown: key.NewBinding(
			key.WithKeys("ctrl+down"),
			key.WithHelp("ctrl+↓", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
		Top: key.NewBinding(
			key.WithKeys("ctrl+home"),
			key.WithHelp("ctrl+home", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("ctrl+end"),
			key.WithHelp("ctrl+end", "bottom"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+q", "ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// =============================================================================
// KEY BINDING HELPERS
// =============================================================================

// ShortHelp returns the bindings shown in the hint line. While a reply is
// streaming the shell draws the stop hint itself, ahead of these.
func (k KeyMap) ShortHelp(busy bool) []key.Binding {
	if busy {
		return []key.Binding{k.PageUp, k.NewChat}
	}
	return []key.Binding{k.Submit, k.Newline, k.Cycle, k.Copy, k.NewChat, k.Layout}
}

// FullHelp returns every binding grouped for the side panel.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Newline, k.Stop, k.Quit},
		{k.NewChat, k.Layout, k.Copy, k.Cycle},
		{k.PageUp, k.PageDown, k.Top, k.Bottom},
	}
}

// promptIndex returns which prompt shortcut msg matches, or -1.
func (k KeyMap) promptIndex(msg tea.KeyMsg) int {
	for i, b := range k.Prompts {
		if key.Matches(msg, b) {
			return i
		}
	}
	return -1
}
