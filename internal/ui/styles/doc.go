// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the visual styling system for the Jaime TUI.

# Color System (colors.go)

The palette follows the Jaime widget: an orange accent (#F68D2E) on a navy
background (#0F1827), a darker side panel (#030B16) for the expanded layout,
and a slate surface (#1E293B) for code. Every color is a lipgloss
AdaptiveColor so light terminals get a readable counterpart.

# Theme (theme.go)

NewTheme detects the terminal through termenv and builds the lipgloss
styles used by the chat shell and its components:

	theme := styles.NewTheme()
	header := theme.HeaderTitle.Render("Jaime")

Layout-dependent sizing is owned by the shell; the theme only carries the
current dimensions for components that need them.
*/
package styles
