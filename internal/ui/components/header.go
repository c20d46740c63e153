// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jaime-tui/internal/ui/styles"
	"github.com/jeranaias/jaime-tui/internal/util"
)

// =============================================================================
// HEADER COMPONENT
// =============================================================================

// Header is the one-line title bar: brand on the left, provider and model
// on the right.
type Header struct {
	Title    string
	Subtitle string
	Provider string
	Model    string
	Layout   string
	Width    int
	theme    *styles.Theme
}

// NewHeader creates a Header with the default branding.
func NewHeader(theme *styles.Theme) *Header {
	return &Header{
		Title:    "Jaime",
		Subtitle: "AI assistant",
		Width:    80,
		theme:    theme,
	}
}

// SetWidth updates the header width.
func (h *Header) SetWidth(width int) {
	h.Width = width
}

// badge returns the right-hand text, e.g. "openai · gpt-4 · compact".
func (h *Header) badge() string {
	var parts []string
	for _, p := range []string{h.Provider, h.Model, h.Layout} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " · ")
}

// View renders the header.
func (h *Header) View() string {
	width := max(h.Width, 20)
	inner := width - h.theme.Header.GetHorizontalFrameSize()

	left := h.theme.HeaderTitle.Render(h.Title)
	if h.Subtitle != "" {
		left += " " + h.theme.HeaderSubtitle.Render(h.Subtitle)
	}

	right := ""
	if badge := h.badge(); badge != "" {
		room := inner - lipgloss.Width(left) - 1 - h.theme.HeaderBadge.GetHorizontalFrameSize()
		if room >= 5 {
			right = h.theme.HeaderBadge.Render(util.TruncateWidth(badge, room))
		}
	}

	gap := max(inner-lipgloss.Width(left)-lipgloss.Width(right), 1)
	line := left + strings.Repeat(" ", gap) + right

	return h.theme.Header.Width(width).Render(line)
}
