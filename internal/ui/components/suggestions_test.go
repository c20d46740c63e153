// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/jeranaias/jaime-tui/internal/ui/styles"
)

var defaultPrompts = []string{
	"Show me case studies in ...",
	"What do you do best?",
	"Summarize this page",
	"Talk to an expert",
}

func TestSuggestions_TextRemapsExpert(t *testing.T) {
	s := NewSuggestions(styles.NewTheme(), defaultPrompts)

	text, ok := s.Text(3)
	assert.True(t, ok)
	assert.Equal(t, "Tell me about your company relationships with InterSystems", text)

	text, ok = s.Text(1)
	assert.True(t, ok)
	assert.Equal(t, "What do you do best?", text)

	_, ok = s.Text(4)
	assert.False(t, ok)
	_, ok = s.Text(-1)
	assert.False(t, ok)
}

func TestSuggestions_NextCycles(t *testing.T) {
	s := NewSuggestions(styles.NewTheme(), defaultPrompts)
	assert.Equal(t, -1, s.Selected())

	_, ok := s.SelectedText()
	assert.False(t, ok, "nothing selected")

	for want := 0; want < 4; want++ {
		s.Next()
		assert.Equal(t, want, s.Selected())
	}
	s.Next()
	assert.Equal(t, 0, s.Selected(), "wraps around")

	s.ClearSelection()
	assert.Equal(t, -1, s.Selected())
}

func TestSuggestions_EmptyIsSafe(t *testing.T) {
	s := NewSuggestions(styles.NewTheme(), nil)
	s.Next()
	assert.Equal(t, -1, s.Selected())
	assert.Empty(t, s.ViewRow(80))
}

func TestSuggestions_SetPromptsClearsSelection(t *testing.T) {
	s := NewSuggestions(styles.NewTheme(), defaultPrompts)
	s.Next()
	s.SetPrompts([]string{"Only one"})
	assert.Equal(t, -1, s.Selected())
	assert.Equal(t, []string{"Only one"}, s.Prompts())
}

func TestSuggestions_ViewRowWraps(t *testing.T) {
	s := NewSuggestions(styles.NewTheme(), defaultPrompts)

	wide := s.ViewRow(200)
	narrow := s.ViewRow(40)
	assert.Less(t, lipgloss.Height(wide), lipgloss.Height(narrow))
	for _, line := range strings.Split(narrow, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 40)
	}
	assert.Contains(t, wide, "Talk to an expert", "label is shown, not the remapped text")
}

func TestSuggestions_ViewList(t *testing.T) {
	s := NewSuggestions(styles.NewTheme(), defaultPrompts)
	lines := strings.Split(s.ViewList(26), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "1 "))
	for _, line := range lines {
		assert.LessOrEqual(t, lipgloss.Width(line), 26)
	}
}
