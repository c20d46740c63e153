// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the Jaime TUI.
// All colors use Lip Gloss AdaptiveColor for automatic light/dark detection.
package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// BRAND COLORS
// =============================================================================

// Accent - Jaime orange, buttons, prompt chips, user highlights
var Accent = lipgloss.AdaptiveColor{Light: "#D9731A", Dark: "#F68D2E"}

// AccentDeep - Darker orange for backgrounds
var AccentDeep = lipgloss.AdaptiveColor{Light: "#FDE7D2", Dark: "#5C3310"}

// Navy - Widget background
var Navy = lipgloss.AdaptiveColor{Light: "#F8FAFC", Dark: "#0F1827"}

// Panel - Expanded layout side panel
var Panel = lipgloss.AdaptiveColor{Light: "#EEF2F7", Dark: "#030B16"}

// =============================================================================
// SEMANTIC COLORS
// =============================================================================

// Rose - Transport errors
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// RoseDeep - Error banner background
var RoseDeep = lipgloss.AdaptiveColor{Light: "#FFE4E6", Dark: "#881337"}

// Amber - Configuration notices
var Amber = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}

// AmberDeep - Configuration notice background
var AmberDeep = lipgloss.AdaptiveColor{Light: "#FEF3C7", Dark: "#78350F"}

// Emerald - Success and copy confirmations
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// =============================================================================
// SURFACE COLORS
// =============================================================================

// CodeSurface - Fenced code and inline code background
var CodeSurface = lipgloss.AdaptiveColor{Light: "#E2E8F0", Dark: "#1E293B"}

// Overlay - Borders, separators, rules
var Overlay = lipgloss.AdaptiveColor{Light: "#CBD5E1", Dark: "#334155"}

// =============================================================================
// TEXT COLORS
// =============================================================================

// TextPrimary - Main body text
var TextPrimary = lipgloss.AdaptiveColor{Light: "#0F172A", Dark: "#E2E8F0"}

// TextSecondary - Labels, prompt chips
var TextSecondary = lipgloss.AdaptiveColor{Light: "#475569", Dark: "#94A3B8"}

// TextMuted - Hints, disclaimer, timestamps
var TextMuted = lipgloss.AdaptiveColor{Light: "#94A3B8", Dark: "#64748B"}

// TextInverse - Text on the accent color
var TextInverse = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#0F1827"}

// LinkColor - Hyperlinks, underlined as well for non-color distinction
var LinkColor = lipgloss.AdaptiveColor{Light: "#2563EB", Dark: "#60A5FA"}

// =============================================================================
// MESSAGE COLORS
// =============================================================================

// User turns sit on an accent-tinted surface; replies render flat on Navy.
var UserBubbleBg = AccentDeep
var UserBubbleFg = TextPrimary
var UserBubbleBorder = Accent

// =============================================================================
// HELPERS
// =============================================================================

// RenderLink renders text as an accessible link with underline.
func RenderLink(text string) string {
	return lipgloss.NewStyle().
		Foreground(LinkColor).
		Underline(true).
		Render(text)
}
