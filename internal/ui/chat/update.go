// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/jaime-tui/internal/completion"
	"github.com/jeranaias/jaime-tui/internal/model"
	"github.com/jeranaias/jaime-tui/internal/render"
	"github.com/jeranaias/jaime-tui/internal/stream"
	"github.com/jeranaias/jaime-tui/internal/ui/components"
	"github.com/jeranaias/jaime-tui/internal/util"
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		m.scroll.OnScroll(m.viewport.YOffset, m.viewport.TotalLineCount())
		return m, cmd

	case streamEventMsg:
		out := m.ctrl.Apply(msg.event)
		cmd := m.applyOutcome(out, false)
		return m, tea.Batch(cmd, listen(msg.events))

	case streamClosedMsg:
		return m, nil

	case flushTickMsg:
		m.flushScheduled = false
		return m, m.applyOutcome(m.ctrl.Flush(), false)

	case expireMsg:
		return m, m.applyOutcome(m.ctrl.Expire(msg.sessionID), false)

	case resizeSettledMsg:
		if off, ok := m.scroll.OnResizeSettled(msg.seq); ok {
			m.viewport.SetYOffset(off)
		}
		return m, nil

	case spinner.TickMsg:
		if m.ctrl.Status() != stream.StatusSubmitted {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh(false)
		return m, cmd

	case components.BannerExpiredMsg:
		if m.banner.Expire(msg) {
			if msg.Kind == components.BannerError {
				m.ctrl.Acknowledge()
			}
			m.relayout()
		}
		return m, nil

	case copiedMsg:
		var cmd tea.Cmd
		if msg.err != nil {
			m.log.Warn("clipboard write failed", "error", msg.err)
			cmd = m.banner.Show(components.BannerStatus, "Clipboard unavailable")
		} else {
			cmd = m.banner.Show(components.BannerStatus, "Reply copied to clipboard")
		}
		m.relayout()
		return m, cmd

	case notifiedMsg:
		if msg.err != nil {
			m.log.Debug("notification failed", "error", msg.err)
		}
		return m, nil

	case configChangedMsg:
		return m.handleConfigChange(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// KEYBOARD
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case m.busy() && key.Matches(msg, m.keys.Stop):
		return m, m.applyOutcome(m.ctrl.Cancel(), true)

	case key.Matches(msg, m.keys.Quit):
		m.ctrl.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Dismiss):
		if m.banner.Visible() {
			m.dismissBanner()
		} else {
			m.prompts.ClearSelection()
		}
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		return m, m.newChat()

	case key.Matches(msg, m.keys.Layout):
		m.SetLayout(m.layout.Toggle())
		m.cache.forceUpdate()
		m.refresh(false)
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		return m, m.copyLastReply()

	case m.keys.promptIndex(msg) >= 0:
		text, ok := m.prompts.Text(m.keys.promptIndex(msg))
		if !ok {
			return m, nil
		}
		return m, m.submit(text, false)

	case key.Matches(msg, m.keys.Cycle) && m.input.Value() == "" && m.promptsVisible():
		m.prompts.Next()
		m.relayout()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if strings.TrimSpace(m.input.Value()) == "" {
			if text, ok := m.prompts.SelectedText(); ok {
				return m, m.submit(text, false)
			}
		}
		return m, m.submit(m.input.Value(), true)

	case key.Matches(msg, m.keys.LineUp):
		m.scrollBy(-1)
		return m, nil

	case key.Matches(msg, m.keys.LineDown):
		m.scrollBy(1)
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.scrollBy(-max(m.viewport.Height-1, 1))
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.scrollBy(max(m.viewport.Height-1, 1))
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.scrollTo(0)
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.scrollTo(m.viewport.TotalLineCount())
		return m, nil
	}

	before := m.input.LineCount()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != "" {
		m.prompts.ClearSelection()
	}
	if m.input.LineCount() != before {
		m.relayout()
	}
	return m, cmd
}

func (m *Model) scrollBy(lines int) {
	m.scrollTo(m.viewport.YOffset + lines)
}

func (m *Model) scrollTo(offset int) {
	m.scroll.OnScroll(offset, m.viewport.TotalLineCount())
	m.viewport.SetYOffset(m.scroll.Offset())
}

// =============================================================================
// SUBMIT
// =============================================================================

// submit sends text as a user turn. Prompt submissions leave the input draft
// untouched; typed submissions clear it on success only.
func (m *Model) submit(text string, fromInput bool) tea.Cmd {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if m.ctrl.Acknowledge() || m.banner.Kind != components.BannerStatus {
		m.banner.Dismiss()
	}

	events, err := m.ctrl.Submit(m.ctx, text)
	if err != nil {
		var failure *stream.Failure
		switch {
		case errors.Is(err, stream.ErrEmptyInput):
			return nil
		case errors.Is(err, stream.ErrBusy):
			m.log.Debug("submit ignored while busy")
			return nil
		case errors.As(err, &failure):
			cmd := m.showFailure(failure)
			m.relayout()
			return cmd
		default:
			m.log.Error("submit failed", "error", err)
			cmd := m.banner.Show(components.BannerError, completion.UserFacingFailure)
			m.relayout()
			return cmd
		}
	}

	if fromInput {
		m.input.Reset()
	}
	m.prompts.ClearSelection()
	m.events = events
	m.flushScheduled = false
	m.submittedAt = time.Now()
	m.relayout()
	m.refresh(true)

	cmds := []tea.Cmd{listen(events), m.spinner.Tick}
	if d := m.ctrl.MaxDuration(); d > 0 {
		cmds = append(cmds, expireAfter(d, m.ctrl.SessionID()))
	}
	return tea.Batch(cmds...)
}

// applyOutcome reflects a controller outcome on screen. cancelled marks a
// user stop, which never notifies.
func (m *Model) applyOutcome(out stream.Outcome, cancelled bool) tea.Cmd {
	var cmds []tea.Cmd
	if out.FlushPending && !m.flushScheduled {
		m.flushScheduled = true
		cmds = append(cmds, flushAfter(m.ctrl.BatchInterval()))
	}
	if out.Failure != nil {
		cmds = append(cmds, m.showFailure(out.Failure))
	}
	if out.Done {
		m.events = nil
		if !cancelled && out.Failure == nil {
			cmds = append(cmds, m.notifyDone())
		}
	}
	if out.Changed || out.Done || out.Failure != nil {
		m.relayout()
		m.refresh(false)
	}
	return tea.Batch(cmds...)
}

// showFailure raises the banner for a failure. Configuration failures get
// the persistent notice; everything else the timed error banner.
func (m *Model) showFailure(f *stream.Failure) tea.Cmd {
	kind := components.BannerError
	if f.Kind == stream.FailureConfiguration {
		kind = components.BannerConfig
	}
	return m.banner.Show(kind, f.UserMessage())
}

func (m *Model) dismissBanner() {
	m.banner.Dismiss()
	m.ctrl.Acknowledge()
	m.relayout()
}

func (m *Model) newChat() tea.Cmd {
	m.ctrl.Reset()
	m.events = nil
	m.flushScheduled = false
	m.banner.Dismiss()
	m.prompts.ClearSelection()
	m.scroll.ForcePin()
	m.relayout()
	m.refresh(true)
	return m.banner.Show(components.BannerStatus, "New chat")
}

// =============================================================================
// SIDE EFFECTS
// =============================================================================

// lastReply returns the newest assistant turn with content.
func (m Model) lastReply() (model.Turn, bool) {
	turn, ok := m.store.Snapshot().LastOfRole(model.RoleAssistant)
	if !ok || turn.IsEmpty() {
		return model.Turn{}, false
	}
	return turn, true
}

func (m *Model) copyLastReply() tea.Cmd {
	turn, ok := m.lastReply()
	if !ok {
		cmd := m.banner.Show(components.BannerStatus, "Nothing to copy yet")
		m.relayout()
		return cmd
	}
	text := render.PlainText(render.Render(turn.Content))
	write := m.copyText
	return func() tea.Msg {
		return copiedMsg{err: write(text)}
	}
}

// notifyDone sends a desktop notification when a reply took long enough
// that the user may have looked away.
func (m *Model) notifyDone() tea.Cmd {
	if !m.cfg.UI.NotifyOnComplete || m.notify == nil {
		return nil
	}
	if time.Since(m.submittedAt) < m.cfg.UI.NotifyAfter.Duration {
		return nil
	}
	turn, ok := m.lastReply()
	if !ok {
		return nil
	}
	preview := util.Preview(render.PlainText(render.Render(turn.Content)), 80)
	send := m.notify
	return func() tea.Msg {
		return notifiedMsg{err: send("Jaime replied", preview)}
	}
}

// =============================================================================
// RESIZE AND CONFIG
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)
	m.ready = true
	m.cache.forceUpdate()
	m.relayout()
	seq := m.scroll.Resize(m.viewport.Height)
	m.refresh(false)
	return m, settleAfter(m.scroll.Debounce(), seq)
}

func (m Model) handleConfigChange(msg configChangedMsg) (tea.Model, tea.Cmd) {
	next := waitForConfig(m.configChanges)
	if msg.change.Err != nil {
		m.log.Warn("config reload rejected", "error", msg.change.Err)
		cmd := m.banner.Show(components.BannerStatus, "Config not reloaded: "+msg.change.Err.Error())
		m.relayout()
		return m, tea.Batch(cmd, next)
	}
	m.applyConfig(msg.change.Config)
	m.log.Info("config reloaded")
	cmd := m.banner.Show(components.BannerStatus, "Config reloaded")
	m.relayout()
	return m, tea.Batch(cmd, next)
}
