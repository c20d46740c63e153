// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTheme(t *testing.T) {
	theme := NewTheme()

	if theme == nil {
		t.Fatal("NewTheme returned nil")
	}
	assert.Equal(t, "F68D2E", strings.TrimPrefix(Accent.Dark, "#"))
	assert.Equal(t, "#0F1827", Navy.Dark)
	assert.Equal(t, "#030B16", Panel.Dark)
	assert.Equal(t, "#1E293B", CodeSurface.Dark)
}

func TestThemeStylesRenderText(t *testing.T) {
	theme := NewTheme()

	for name, rendered := range map[string]string{
		"error banner":  theme.ErrorBanner.Render("Sorry"),
		"config notice": theme.ConfigNotice.Render("OpenAI API key is missing"),
		"prompt chip":   theme.PromptChip.Render("What do you do best?"),
		"inline code":   theme.Markdown.InlineCode.Render("x := 1"),
		"disclaimer":    theme.Disclaimer.Render("powered by"),
	} {
		if rendered == "" {
			t.Errorf("%s rendered empty", name)
		}
	}
	assert.Contains(t, theme.ConfigNotice.Render("OpenAI API key is missing"), "OpenAI API key is missing")
}

func TestThemeFitsSidePanel(t *testing.T) {
	tests := []struct {
		width int
		want  bool
	}{
		{0, false},
		{60, false},
		{SidePanelMinWidth - 1, false},
		{SidePanelMinWidth, true},
		{200, true},
	}
	theme := NewTheme()
	for _, tt := range tests {
		theme.SetSize(tt.width, 40)
		assert.Equal(t, tt.want, theme.FitsSidePanel(), "width %d", tt.width)
	}
}

func TestRenderLink(t *testing.T) {
	assert.Contains(t, RenderLink("docs"), "docs")
}
