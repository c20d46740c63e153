// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jaime-tui/internal/model"
	"github.com/jeranaias/jaime-tui/internal/render"
	"github.com/jeranaias/jaime-tui/internal/stream"
	"github.com/jeranaias/jaime-tui/internal/ui/styles"
	"github.com/jeranaias/jaime-tui/internal/util"
)

const emptyStateText = "Ask Jaime anything. Replies appear here as they are written."

// =============================================================================
// MAIN RENDER
// =============================================================================

// View renders the shell: header on top, then the side panel (expanded
// layout, wide terminals only) beside the main column of transcript and
// footer.
func (m Model) View() string {
	if !m.ready {
		return "\n  Starting Jaime..."
	}

	w := m.contentWidth()
	main := m.theme.App.Render(m.viewport.View() + "\n" + m.renderFooter(w))

	body := main
	if m.showSidePanel() {
		h := max(m.height-lipgloss.Height(m.header.View()), 1)
		body = lipgloss.JoinHorizontal(lipgloss.Top, m.renderSidePanel(h), main)
	}
	return m.header.View() + "\n" + body
}

// mainWidth is the width of the main column including its padding.
func (m Model) mainWidth() int {
	if m.showSidePanel() {
		return m.width - styles.SidePanelWidth
	}
	return m.width
}

// contentWidth is the usable width inside the main column.
func (m Model) contentWidth() int {
	return max(m.mainWidth()-m.theme.App.GetHorizontalFrameSize(), 10)
}

// relayout recomputes component sizes after anything that changes the
// height of the chrome around the transcript.
func (m *Model) relayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	w := m.contentWidth()
	m.header.SetWidth(m.width)
	m.input.SetWidth(max(w-m.theme.InputFocused.GetHorizontalFrameSize(), 1))
	m.help.Width = w
	m.painter.SetWidth(max(w-m.theme.AssistantBody.GetHorizontalFrameSize(), 1))

	chrome := lipgloss.Height(m.header.View()) + lipgloss.Height(m.renderFooter(w))
	h := max(m.height-chrome, 1)
	if h == m.viewport.Height && w == m.viewport.Width {
		return
	}
	m.viewport.Width = w
	m.viewport.Height = h
	m.scroll.Resize(h)
	m.cache.forceUpdate()
	m.refresh(false)
}

// refresh repaints the transcript into the viewport and applies the scroll
// controller's offset. forcePin re-pins the view, as on submit.
func (m *Model) refresh(forcePin bool) {
	content := m.renderTranscript(m.viewport.Width)
	if !m.cache.shouldUpdate(content) && !forcePin {
		return
	}
	m.viewport.SetContent(content)
	off := m.scroll.OnMutation(m.viewport.TotalLineCount())
	if forcePin {
		off = m.scroll.ForcePin()
	}
	m.viewport.SetYOffset(off)
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// renderTranscript paints every turn in transcript order.
func (m *Model) renderTranscript(width int) string {
	snap := m.store.Snapshot()
	status := m.ctrl.Status()
	if snap.Len() == 0 && status != stream.StatusSubmitted {
		return m.theme.EmptyState.Width(width).Render(emptyStateText)
	}

	blocks := make([]string, 0, snap.Len()+1)
	for _, turn := range snap.Turns() {
		if turn.Role == model.RoleAssistant && turn.IsEmpty() && !turn.IsStreaming() {
			continue
		}
		blocks = append(blocks, m.renderTurn(turn, width))
	}
	if status == stream.StatusSubmitted {
		blocks = append(blocks, m.renderThinking())
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) renderTurn(turn model.Turn, width int) string {
	if s, ok := m.cache.turn(turn, width); ok {
		return s
	}
	var s string
	if turn.Role == model.RoleUser {
		s = m.renderUserTurn(turn, width)
	} else {
		s = m.renderAssistantTurn(turn)
	}
	m.cache.store(turn, width, s)
	return s
}

// renderUserTurn right-aligns the user's text in a bubble no wider than
// three quarters of the transcript.
func (m *Model) renderUserTurn(turn model.Turn, width int) string {
	maxWidth := max(width*3/4, 10)
	bubble := m.theme.UserBubble
	frame := bubble.GetHorizontalFrameSize()
	if lipgloss.Width(turn.Content)+frame > maxWidth {
		bubble = bubble.Width(maxWidth - bubble.GetHorizontalBorderSize())
	}
	block := lipgloss.JoinVertical(lipgloss.Right,
		m.theme.UserLabel.Render(turn.Role.DisplayName()),
		bubble.Render(turn.Content),
	)
	return lipgloss.PlaceHorizontal(width, lipgloss.Right, block)
}

// renderAssistantTurn paints the reply as markdown. A streaming reply is
// re-parsed on every paint and ends with the cursor.
func (m *Model) renderAssistantTurn(turn model.Turn) string {
	body := m.painter.Paint(render.Render(turn.Content))
	if turn.IsStreaming() {
		body += m.theme.Cursor.Render("▍")
	}
	return m.theme.AssistantLabel.Render(turn.Role.DisplayName()) + "\n" +
		m.theme.AssistantBody.Render(body)
}

func (m Model) renderThinking() string {
	return m.theme.AssistantLabel.Render(model.RoleAssistant.DisplayName()) + "\n" +
		m.theme.AssistantBody.Render(m.spinner.View()+m.theme.Thinking.Render(" Jaime is thinking"))
}

// =============================================================================
// FOOTER
// =============================================================================

// renderFooter stacks the banner, prompt chips, input, key hints and
// disclaimer. Hidden parts take no lines.
func (m Model) renderFooter(width int) string {
	parts := make([]string, 0, 5)
	if m.banner.Visible() {
		parts = append(parts, m.banner.View(width))
	}
	if m.showPromptRow() {
		parts = append(parts, m.prompts.ViewRow(width))
	}
	parts = append(parts,
		m.theme.InputFocused.Width(width-m.theme.InputFocused.GetHorizontalBorderSize()).Render(m.input.View()),
		m.renderHints(width),
		m.theme.Disclaimer.Width(width).Render(Disclaimer),
	)
	return strings.Join(parts, "\n")
}

// renderHints draws the key hint line. The stop affordance leads it once
// reply text is arriving; esc still stops a submitted request before that.
func (m Model) renderHints(width int) string {
	hints := m.help.ShortHelpView(m.keys.ShortHelp(m.busy()))
	if m.ctrl.Status() == stream.StatusStreaming {
		hints = m.theme.StopHint.Render("■ esc stop") + "  " + hints
	}
	return util.TruncateWidth(hints, width)
}

// =============================================================================
// SIDE PANEL
// =============================================================================

// renderSidePanel draws the expanded layout's session panel.
func (m Model) renderSidePanel(height int) string {
	inner := styles.SidePanelWidth - m.theme.SidePanel.GetHorizontalFrameSize()

	var b strings.Builder
	b.WriteString(m.theme.PanelTitle.Render("This chat"))
	b.WriteString("\n")
	turns := m.store.Snapshot().Len()
	if turns == 0 {
		b.WriteString(m.theme.PanelHint.Render("No messages yet"))
	} else {
		b.WriteString(m.theme.PanelHint.Render(pluralize(turns, "message", "messages")))
	}
	b.WriteString("\n")
	b.WriteString(m.theme.KeyHint.Render("ctrl+n  new chat"))
	b.WriteString("\n\n")

	if m.prompts.Len() > 0 {
		b.WriteString(m.theme.PanelTitle.Render("Try asking"))
		b.WriteString("\n")
		b.WriteString(m.prompts.ViewList(inner))
		b.WriteString("\n\n")
	}
	b.WriteString(m.theme.PanelHint.Width(inner).Render("Chats are not kept after you quit."))

	return m.theme.SidePanel.
		Height(height).
		MaxHeight(height).
		Render(b.String())
}

func pluralize(n int, one, many string) string {
	word := many
	if n == 1 {
		word = one
	}
	return fmt.Sprintf("%d %s", n, word)
}
