// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jaime-tui/internal/ui/styles"
	"github.com/jeranaias/jaime-tui/internal/util"
)

// =============================================================================
// SUGGESTED PROMPTS
// =============================================================================

// Prompt labels that submit different text than they show.
var promptRemaps = map[string]string{
	"Talk to an expert": "Tell me about your company relationships with InterSystems",
}

// Suggestions is the row of suggested prompts.
type Suggestions struct {
	prompts  []string
	selected int // -1 when nothing is selected
	theme    *styles.Theme
}

// NewSuggestions creates the prompt row.
func NewSuggestions(theme *styles.Theme, prompts []string) *Suggestions {
	s := &Suggestions{theme: theme, selected: -1}
	s.SetPrompts(prompts)
	return s
}

// SetPrompts replaces the prompts and clears the selection.
func (s *Suggestions) SetPrompts(prompts []string) {
	s.prompts = append([]string(nil), prompts...)
	s.selected = -1
}

// Prompts returns the prompt labels.
func (s *Suggestions) Prompts() []string {
	return append([]string(nil), s.prompts...)
}

// Len returns the number of prompts.
func (s *Suggestions) Len() int {
	return len(s.prompts)
}

// Selected returns the selected index, or -1.
func (s *Suggestions) Selected() int {
	return s.selected
}

// Next moves the selection to the next prompt, wrapping around.
func (s *Suggestions) Next() {
	if len(s.prompts) == 0 {
		return
	}
	s.selected = (s.selected + 1) % len(s.prompts)
}

// ClearSelection deselects.
func (s *Suggestions) ClearSelection() {
	s.selected = -1
}

// Text returns the text that prompt i submits, and false if i is out of
// range.
func (s *Suggestions) Text(i int) (string, bool) {
	if i < 0 || i >= len(s.prompts) {
		return "", false
	}
	return SubmitText(s.prompts[i]), true
}

// SelectedText returns the submit text of the selected prompt.
func (s *Suggestions) SelectedText() (string, bool) {
	return s.Text(s.selected)
}

// SubmitText maps a prompt label to the text it submits.
func SubmitText(label string) string {
	if text, ok := promptRemaps[label]; ok {
		return text
	}
	return label
}

// ViewRow renders the prompts as wrapped chips for the compact layout.
func (s *Suggestions) ViewRow(width int) string {
	if len(s.prompts) == 0 {
		return ""
	}

	var lines []string
	var row []string
	rowWidth := 0
	for i := range s.prompts {
		chip := s.chip(i, width)
		w := lipgloss.Width(chip)
		if rowWidth > 0 && rowWidth+1+w > width {
			lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row, rowWidth = nil, 0
		}
		if rowWidth > 0 {
			row = append(row, " ")
			rowWidth++
		}
		row = append(row, chip)
		rowWidth += w
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	return strings.Join(lines, "\n")
}

// ViewList renders the prompts one per line for the side panel.
func (s *Suggestions) ViewList(width int) string {
	lines := make([]string, len(s.prompts))
	for i, p := range s.prompts {
		index := s.theme.PromptIndex.Render(fmt.Sprintf("%d ", i+1))
		label := util.TruncateWidth(p, width-lipgloss.Width(index))
		if i == s.selected {
			label = s.theme.PromptChipActive.UnsetBorderStyle().UnsetPadding().Render(label)
		}
		lines[i] = index + label
	}
	return strings.Join(lines, "\n")
}

func (s *Suggestions) chip(i, width int) string {
	style := s.theme.PromptChip
	if i == s.selected {
		style = s.theme.PromptChipActive
	}
	index := s.theme.PromptIndex.Render(fmt.Sprintf("%d ", i+1))
	maxLabel := width - style.GetHorizontalFrameSize() - lipgloss.Width(index)
	return style.Render(index + util.TruncateWidth(s.prompts[i], maxLabel))
}
