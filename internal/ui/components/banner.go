// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jaime-tui/internal/ui/styles"
	"github.com/jeranaias/jaime-tui/internal/util"
)

// =============================================================================
// BANNER TYPES
// =============================================================================

// BannerKind selects the banner style and lifetime.
type BannerKind int

const (
	// BannerNone means nothing is shown.
	BannerNone BannerKind = iota
	// BannerError is a recoverable failure; it auto-dismisses.
	BannerError
	// BannerConfig is a setup problem; it stays until dismissed.
	BannerConfig
	// BannerStatus is a short-lived confirmation ("Copied").
	BannerStatus
)

func (k BannerKind) String() string {
	switch k {
	case BannerError:
		return "error"
	case BannerConfig:
		return "config"
	case BannerStatus:
		return "status"
	default:
		return "none"
	}
}

// Default lifetimes.
const (
	DefaultBannerTimeout = 5 * time.Second
	StatusBannerTimeout  = 2 * time.Second
)

// BannerExpiredMsg fires when a banner's timeout elapses. ID ties it to the
// banner that scheduled it, so a stale timer never hides a newer banner.
type BannerExpiredMsg struct {
	ID   int
	Kind BannerKind
}

// =============================================================================
// BANNER
// =============================================================================

// Banner is the single notice line above the input.
// Showing a banner replaces whatever was shown before.
type Banner struct {
	Kind    BannerKind
	Message string
	Timeout time.Duration

	id    int
	shown time.Time
	theme *styles.Theme
}

// NewBanner creates a hidden banner.
func NewBanner(theme *styles.Theme) *Banner {
	return &Banner{theme: theme, Timeout: DefaultBannerTimeout}
}

// Show displays message and returns the command that expires it.
// Config notices have no timer.
func (b *Banner) Show(kind BannerKind, message string) tea.Cmd {
	b.id++
	b.Kind = kind
	b.Message = message
	b.shown = time.Now()

	var after time.Duration
	switch kind {
	case BannerError:
		after = b.Timeout
	case BannerStatus:
		after = StatusBannerTimeout
	default:
		return nil
	}

	id := b.id
	return tea.Tick(after, func(time.Time) tea.Msg {
		return BannerExpiredMsg{ID: id, Kind: kind}
	})
}

// Expire hides the banner if msg belongs to it. Returns true if it did.
func (b *Banner) Expire(msg BannerExpiredMsg) bool {
	if msg.ID != b.id || b.Kind == BannerNone {
		return false
	}
	b.Dismiss()
	return true
}

// Dismiss hides the banner immediately.
func (b *Banner) Dismiss() {
	b.id++
	b.Kind = BannerNone
	b.Message = ""
}

// Visible reports whether a banner is shown.
func (b *Banner) Visible() bool {
	return b.Kind != BannerNone
}

// Age returns how long the current banner has been shown.
func (b *Banner) Age() time.Duration {
	if !b.Visible() {
		return 0
	}
	return time.Since(b.shown)
}

// View renders the banner to width columns, or "" when hidden.
func (b *Banner) View(width int) string {
	if !b.Visible() {
		return ""
	}

	var style lipgloss.Style
	icon := ""
	switch b.Kind {
	case BannerError:
		style = b.theme.ErrorBanner
		icon = "✗ "
	case BannerConfig:
		style = b.theme.ConfigNotice
		icon = "⚠ "
	default:
		style = b.theme.StatusLine
		icon = "✓ "
	}

	inner := width - style.GetHorizontalFrameSize()
	text := icon + b.Message
	if b.Kind != BannerStatus {
		text += "  " + b.theme.KeyHint.Render("esc dismiss")
	}
	if inner > 0 && lipgloss.Width(text) > inner {
		text = util.TruncateWidth(icon+b.Message, inner)
	}
	return style.Render(text)
}
