// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// SidePanelMinWidth is the narrowest terminal that still shows the expanded
// layout's side panel.
const SidePanelMinWidth = 90

// SidePanelWidth is the width of the expanded layout's side panel.
const SidePanelWidth = 30

// ThinkingSpinner animates the "Jaime is thinking" line before the first chunk.
var ThinkingSpinner = spinner.Spinner{
	Frames: []string{".  ", ".. ", "...", " ..", "  .", "   "},
	FPS:    time.Second / 6,
}

// Theme holds all the styled components for the application.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// FRAME
	// ==========================================================================

	App        lipgloss.Style
	SidePanel  lipgloss.Style
	PanelTitle lipgloss.Style
	PanelHint  lipgloss.Style

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style
	HeaderBadge    lipgloss.Style

	// ==========================================================================
	// TRANSCRIPT
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	UserBubble     lipgloss.Style
	AssistantBody  lipgloss.Style
	Cursor         lipgloss.Style
	Thinking       lipgloss.Style
	EmptyState     lipgloss.Style

	// ==========================================================================
	// INPUT AND PROMPTS
	// ==========================================================================

	InputContainer   lipgloss.Style
	InputFocused     lipgloss.Style
	PromptChip       lipgloss.Style
	PromptChipActive lipgloss.Style
	PromptIndex      lipgloss.Style

	// ==========================================================================
	// NOTICES
	// ==========================================================================

	ErrorBanner  lipgloss.Style
	ConfigNotice lipgloss.Style
	StatusLine   lipgloss.Style
	KeyHint      lipgloss.Style
	StopHint     lipgloss.Style
	Disclaimer   lipgloss.Style

	// Markdown styles are consumed by the render painter.
	Markdown MarkdownStyles
}

// MarkdownStyles styles rendered reply content.
type MarkdownStyles struct {
	Text        lipgloss.Style
	Heading     lipgloss.Style
	HeadingMain lipgloss.Style
	Emphasis    lipgloss.Style
	Strong      lipgloss.Style
	Strike      lipgloss.Style
	InlineCode  lipgloss.Style
	Link        lipgloss.Style
	LinkMarker  lipgloss.Style
	QuoteBar    lipgloss.Style
	Rule        lipgloss.Style
	Bullet      lipgloss.Style
	CodeBlock   lipgloss.Style
	CodeBadge   lipgloss.Style
	TableHeader lipgloss.Style
	TableBorder lipgloss.Style
}

// NewTheme creates a new theme with all styles configured.
func NewTheme() *Theme {
	colorProfile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}
	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle().Padding(0, 1)

	t.SidePanel = lipgloss.NewStyle().
		Background(Panel).
		Foreground(TextSecondary).
		Width(SidePanelWidth).
		Padding(1, 2)

	t.PanelTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Accent).
		MarginBottom(1)

	t.PanelHint = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Header
	t.Header = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Accent)

	t.HeaderSubtitle = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.HeaderBadge = lipgloss.NewStyle().
		Foreground(TextMuted).
		Padding(0, 1)

	// Transcript
	t.UserLabel = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)

	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Bold(true)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		Background(UserBubbleBg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1)

	t.AssistantBody = lipgloss.NewStyle().
		Foreground(TextPrimary).
		PaddingLeft(1)

	t.Cursor = lipgloss.NewStyle().
		Foreground(Accent).
		Blink(true)

	t.Thinking = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.EmptyState = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true).
		Align(lipgloss.Center).
		Padding(1, 0)

	// Input and prompts
	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.InputFocused = t.InputContainer.
		BorderForeground(Accent)

	t.PromptChip = lipgloss.NewStyle().
		Foreground(TextSecondary).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.PromptChipActive = t.PromptChip.
		Foreground(Accent).
		BorderForeground(Accent)

	t.PromptIndex = lipgloss.NewStyle().
		Foreground(TextMuted)

	// Notices
	t.ErrorBanner = lipgloss.NewStyle().
		Foreground(Rose).
		Background(RoseDeep).
		Bold(true).
		Padding(0, 1)

	t.ConfigNotice = lipgloss.NewStyle().
		Foreground(Amber).
		BorderStyle(lipgloss.ThickBorder()).
		BorderLeft(true).
		BorderForeground(Amber).
		Padding(0, 1)

	t.StatusLine = lipgloss.NewStyle().
		Foreground(Emerald)

	t.KeyHint = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.StopHint = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)

	t.Disclaimer = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	t.Markdown = MarkdownStyles{
		Text:        lipgloss.NewStyle().Foreground(TextPrimary),
		Heading:     lipgloss.NewStyle().Foreground(TextPrimary).Bold(true),
		HeadingMain: lipgloss.NewStyle().Foreground(Accent).Bold(true),
		Emphasis:    lipgloss.NewStyle().Italic(true),
		Strong:      lipgloss.NewStyle().Bold(true),
		Strike:      lipgloss.NewStyle().Strikethrough(true),
		InlineCode:  lipgloss.NewStyle().Foreground(Accent).Background(CodeSurface),
		Link:        lipgloss.NewStyle().Foreground(LinkColor).Underline(true),
		LinkMarker:  lipgloss.NewStyle().Foreground(LinkColor),
		QuoteBar:    lipgloss.NewStyle().Foreground(Accent),
		Rule:        lipgloss.NewStyle().Foreground(Overlay),
		Bullet:      lipgloss.NewStyle().Foreground(Accent),
		CodeBlock:   lipgloss.NewStyle().Background(CodeSurface).Padding(0, 1),
		CodeBadge:   lipgloss.NewStyle().Foreground(TextMuted).Background(CodeSurface).Bold(true).Padding(0, 1),
		TableHeader: lipgloss.NewStyle().Bold(true).Foreground(TextPrimary),
		TableBorder: lipgloss.NewStyle().Foreground(Overlay),
	}
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// FitsSidePanel reports whether the expanded layout can show its side panel.
func (t *Theme) FitsSidePanel() bool {
	return t.Width >= SidePanelMinWidth
}
