// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/jaime-tui/internal/completion"
	"github.com/jeranaias/jaime-tui/internal/completion/completiontest"
	"github.com/jeranaias/jaime-tui/internal/config"
	"github.com/jeranaias/jaime-tui/internal/model"
	"github.com/jeranaias/jaime-tui/internal/stream"
	"github.com/jeranaias/jaime-tui/internal/ui/components"
	"github.com/jeranaias/jaime-tui/internal/ui/styles"
)

// =============================================================================
// HELPERS
// =============================================================================

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Stream.BatchInterval = config.Duration{}
	cfg.UI.NotifyOnComplete = false
	return cfg
}

func newTestModel(t *testing.T, svc completion.Service, cfg *config.Config) Model {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	m := New(styles.NewTheme(), svc, cfg, nil)
	m.SetClipboard(func(string) error { return errors.New("no clipboard in tests") })
	m.SetNotifier(func(string, string) error { return nil })
	t.Cleanup(m.Close)
	return update(m, tea.WindowSizeMsg{Width: 100, Height: 40})
}

func update(m Model, msg tea.Msg) Model {
	next, _ := m.Update(msg)
	return next.(Model)
}

func typeText(m Model, text string) Model {
	return update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func pressKey(m Model, k tea.KeyType) Model {
	return update(m, tea.KeyMsg{Type: k})
}

func altKey(m Model, r rune) Model {
	return update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}, Alt: true})
}

// pump feeds every event of the live session back into the model until the
// session channel closes.
func pump(t *testing.T, m Model) Model {
	t.Helper()
	events := m.events
	require.NotNil(t, events, "no session in flight")
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return m
			}
			m = update(m, streamEventMsg{events: events, event: ev})
		case <-timeout:
			t.Fatal("session did not finish")
			return m
		}
	}
}

func lastTurn(t *testing.T, m Model) model.Turn {
	t.Helper()
	turn, ok := m.Transcript().Last()
	require.True(t, ok, "transcript is empty")
	return turn
}

// =============================================================================
// SUBMIT AND STREAM
// =============================================================================

func TestShell_SubmitStreamsReply(t *testing.T) {
	svc := completiontest.New("Hi", " there", "!")
	m := newTestModel(t, svc, nil)

	m = typeText(m, "Hello")
	assert.Equal(t, "Hello", m.Input())

	m = pressKey(m, tea.KeyEnter)
	assert.Empty(t, m.Input(), "input should clear on submit")
	assert.Equal(t, stream.StatusSubmitted, m.Controller().Status())
	assert.Contains(t, m.View(), "Jaime is thinking")
	assert.NotContains(t, m.View(), "esc stop", "stop affordance waits for reply text")

	m = pump(t, m)

	snap := m.Transcript()
	require.Equal(t, 2, snap.Len())
	assert.Equal(t, "Hello", snap.At(0).Content)
	assert.Equal(t, "Hi there!", snap.At(1).Content)
	assert.False(t, snap.At(1).IsStreaming())
	assert.Equal(t, stream.StatusIdle, m.Controller().Status())

	view := m.View()
	assert.Contains(t, view, "Hi there!")
	assert.Contains(t, view, "Hello")
	assert.NotContains(t, view, "esc stop")

	reqs := svc.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, config.DefaultSystemPrompt, reqs[0].System)
}

func TestShell_WhitespaceInputIsNotSubmitted(t *testing.T) {
	for _, input := range []string{"", "   "} {
		svc := completiontest.New("never")
		m := newTestModel(t, svc, nil)
		if input != "" {
			m = typeText(m, input)
		}
		m = pressKey(m, tea.KeyEnter)

		assert.Equal(t, 0, m.Transcript().Len(), "input %q", input)
		assert.Equal(t, stream.StatusIdle, m.Controller().Status())
		assert.Empty(t, svc.Requests())
	}
}

func TestShell_SecondSubmitWhileStreamingIsIgnored(t *testing.T) {
	svc := completiontest.New("one", "two")
	svc.Gate = make(chan struct{})
	m := newTestModel(t, svc, nil)

	m = pressKey(typeText(m, "first"), tea.KeyEnter)
	m = pressKey(typeText(m, "second"), tea.KeyEnter)

	assert.Equal(t, "second", m.Input(), "rejected draft stays in the input")
	assert.Equal(t, 1, m.Transcript().Len())

	go func() {
		svc.Gate <- struct{}{}
		svc.Gate <- struct{}{}
	}()
	m = pump(t, m)
	assert.Equal(t, "onetwo", lastTurn(t, m).Content)
}

func TestShell_ConfigurationErrorKeepsInput(t *testing.T) {
	svc := completiontest.New("never")
	svc.NotReady = &completion.ConfigurationError{
		Provider: "openai",
		Reason:   "OpenAI API key is missing",
		Err:      errors.New("not configured"),
	}
	m := newTestModel(t, svc, nil)

	m = pressKey(typeText(m, "Hello"), tea.KeyEnter)

	assert.Equal(t, "Hello", m.Input())
	assert.Equal(t, 0, m.Transcript().Len())
	assert.Equal(t, stream.StatusErrored, m.Controller().Status())
	assert.Equal(t, components.BannerConfig, m.Banner().Kind)
	assert.Contains(t, m.View(), "OpenAI API key is missing")

	m = pressKey(m, tea.KeyEsc)
	assert.False(t, m.Banner().Visible())
	assert.Equal(t, stream.StatusIdle, m.Controller().Status())
}

func TestShell_TransportFailureKeepsPartialReply(t *testing.T) {
	svc := completiontest.New("Partial answer")
	svc.Err = errors.New("connection reset by peer")
	m := newTestModel(t, svc, nil)

	m = pump(t, pressKey(typeText(m, "Explain"), tea.KeyEnter))

	reply := lastTurn(t, m)
	assert.Equal(t, "Partial answer", reply.Content)
	assert.False(t, reply.IsStreaming())
	assert.Equal(t, stream.StatusErrored, m.Controller().Status())
	assert.Equal(t, components.BannerError, m.Banner().Kind)
	assert.Equal(t, completion.UserFacingFailure, m.Banner().Message)

	// A new submit acknowledges the error and goes through.
	svc.Err = nil
	m = pressKey(typeText(m, "Try again"), tea.KeyEnter)
	assert.False(t, m.Banner().Visible())
	assert.NotEqual(t, stream.StatusErrored, m.Controller().Status())
	m = pump(t, m)
	assert.Equal(t, 4, m.Transcript().Len())
}

func TestShell_StopFinalizesReceivedText(t *testing.T) {
	svc := completiontest.New("Hi", " there")
	svc.Gate = make(chan struct{})
	m := newTestModel(t, svc, nil)

	m = pressKey(typeText(m, "Hello"), tea.KeyEnter)
	events := m.events

	svc.Gate <- struct{}{}
	ev := <-events
	m = update(m, streamEventMsg{events: events, event: ev})
	require.Equal(t, stream.StatusStreaming, m.Controller().Status())
	assert.Contains(t, m.View(), "esc stop")

	m = pressKey(m, tea.KeyEsc)
	assert.NotContains(t, m.View(), "esc stop")

	reply := lastTurn(t, m)
	assert.Equal(t, "Hi", reply.Content)
	assert.False(t, reply.IsStreaming())
	assert.Equal(t, stream.StatusIdle, m.Controller().Status())

	select {
	case <-svc.Finished():
	case <-time.After(2 * time.Second):
		t.Fatal("transport was not released")
	}

	// Late events from the cancelled session change nothing.
	m = update(m, streamEventMsg{events: events, event: stream.ChunkEvent{SessionID: "stale", Delta: "x"}})
	assert.Equal(t, "Hi", lastTurn(t, m).Content)
}

func TestShell_ExpireRaisesTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.Completion.MaxDuration = config.Duration{Duration: time.Millisecond}
	svc := completiontest.New("slow")
	svc.Gate = make(chan struct{})
	m := newTestModel(t, svc, cfg)

	m = pressKey(typeText(m, "Hello"), tea.KeyEnter)
	session := m.Controller().SessionID()
	require.NotEmpty(t, session)
	time.Sleep(5 * time.Millisecond)

	m = update(m, expireMsg{sessionID: session})
	assert.Equal(t, stream.StatusErrored, m.Controller().Status())
	assert.Equal(t, components.BannerError, m.Banner().Kind)
}

// =============================================================================
// PROMPTS
// =============================================================================

func TestShell_PromptShortcutSubmitsRemappedText(t *testing.T) {
	svc := completiontest.New("ok")
	m := newTestModel(t, svc, nil)
	m = typeText(m, "draft")

	m = altKey(m, '4')

	snap := m.Transcript()
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, "Tell me about your company relationships with InterSystems", snap.At(0).Content)
	assert.Equal(t, "draft", m.Input(), "prompt submits leave the draft alone")
	m = pump(t, m)
	assert.Equal(t, "ok", lastTurn(t, m).Content)
}

func TestShell_TabCyclesPromptsAndEnterSubmitsSelection(t *testing.T) {
	svc := completiontest.New("ok")
	m := newTestModel(t, svc, nil)

	m = pressKey(m, tea.KeyTab)
	m = pressKey(m, tea.KeyTab)
	assert.Equal(t, 1, m.prompts.Selected())

	m = pressKey(m, tea.KeyEnter)
	snap := m.Transcript()
	require.Equal(t, 1, snap.Len())
	assert.Equal(t, config.DefaultSuggestedPrompts[1], snap.At(0).Content)
	assert.Equal(t, -1, m.prompts.Selected())
	pump(t, m)
}

func TestShell_PromptRowOnlyWhileEmpty(t *testing.T) {
	svc := completiontest.New("ok")
	m := newTestModel(t, svc, nil)
	assert.Contains(t, m.View(), "What do you do best?")

	m = pump(t, pressKey(typeText(m, "Hello"), tea.KeyEnter))
	assert.NotContains(t, m.View(), "What do you do best?")
}

// =============================================================================
// LAYOUT AND SCROLL
// =============================================================================

func TestShell_ToggleLayout(t *testing.T) {
	m := newTestModel(t, completiontest.New(), nil)
	m = update(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	require.Equal(t, LayoutCompact, m.Layout())
	assert.Equal(t, compactPlaceholder, m.input.Placeholder)
	assert.NotContains(t, m.View(), "Try asking")

	m = update(m, tea.KeyMsg{Type: tea.KeyCtrlE})
	assert.Equal(t, LayoutExpanded, m.Layout())
	assert.Equal(t, expandedPlaceholder, m.input.Placeholder)
	view := m.View()
	assert.Contains(t, view, "Try asking")
	assert.Contains(t, view, "expanded")

	m = update(m, tea.KeyMsg{Type: tea.KeyCtrlE})
	assert.Equal(t, LayoutCompact, m.Layout())
}

func TestShell_NarrowExpandedHidesSidePanel(t *testing.T) {
	cfg := testConfig()
	cfg.UI.Layout = config.LayoutExpanded
	m := newTestModel(t, completiontest.New(), cfg)
	m = update(m, tea.WindowSizeMsg{Width: 60, Height: 30})

	assert.Equal(t, LayoutExpanded, m.Layout())
	assert.False(t, m.showSidePanel())
	assert.NotContains(t, m.View(), "Try asking")
}

func TestShell_ViewFitsTerminal(t *testing.T) {
	m := newTestModel(t, completiontest.New("a reply"), nil)
	m = pump(t, pressKey(typeText(m, "Hello"), tea.KeyEnter))

	lines := strings.Split(m.View(), "\n")
	assert.Len(t, lines, 40)
}

func TestShell_SubmitRepinsScrolledView(t *testing.T) {
	long := strings.Repeat("A paragraph of reply text.\n\n", 60)
	svc := completiontest.New(long)
	m := newTestModel(t, svc, nil)

	m = pump(t, pressKey(typeText(m, "Long please"), tea.KeyEnter))
	require.True(t, m.Pinned())

	m = pressKey(m, tea.KeyPgUp)
	assert.False(t, m.Pinned(), "paging up unpins")

	m = pressKey(typeText(m, "Again"), tea.KeyEnter)
	assert.True(t, m.Pinned(), "submit re-pins")
	pump(t, m)
}

func TestShell_ScrolledReaderStaysPutWhileStreaming(t *testing.T) {
	chunks := make([]string, 60)
	for i := range chunks {
		chunks[i] = "Another paragraph of streamed text.\n\n"
	}
	svc := completiontest.New(chunks...)
	svc.Gate = make(chan struct{})
	m := newTestModel(t, svc, nil)

	m = pressKey(typeText(m, "Long please"), tea.KeyEnter)
	events := m.events
	step := func(m Model) Model {
		svc.Gate <- struct{}{}
		return update(m, streamEventMsg{events: events, event: <-events})
	}
	for i := 0; i < 40; i++ {
		m = step(m)
	}
	require.True(t, m.Pinned())

	m = pressKey(m, tea.KeyPgUp)
	require.False(t, m.Pinned())
	offset := m.viewport.YOffset

	for i := 0; i < 20; i++ {
		m = step(m)
	}
	assert.Equal(t, offset, m.viewport.YOffset, "an unpinned reader is not moved")
	assert.False(t, m.Pinned())
}

func TestShell_ResizeSettledKeepsBottom(t *testing.T) {
	long := strings.Repeat("line\n\n", 40)
	m := newTestModel(t, completiontest.New(long), nil)
	m = pump(t, pressKey(typeText(m, "Hello"), tea.KeyEnter))

	m = update(m, tea.WindowSizeMsg{Width: 80, Height: 30})
	seq := m.scroll.Resize(m.viewport.Height)
	m = update(m, resizeSettledMsg{seq: seq})

	assert.True(t, m.Pinned())
	assert.True(t, m.viewport.AtBottom())
}

// =============================================================================
// ACTIONS
// =============================================================================

func TestShell_NewChatClearsTranscript(t *testing.T) {
	m := newTestModel(t, completiontest.New("hello back"), nil)
	m = pump(t, pressKey(typeText(m, "Hello"), tea.KeyEnter))
	require.Equal(t, 2, m.Transcript().Len())

	m = update(m, tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.Equal(t, 0, m.Transcript().Len())
	assert.Equal(t, components.BannerStatus, m.Banner().Kind)
	assert.Contains(t, m.View(), emptyStateText)
}

func TestShell_CopyLastReplyAsPlainText(t *testing.T) {
	m := newTestModel(t, completiontest.New("**Bold** and `code`"), nil)
	var copied string
	m.SetClipboard(func(s string) error {
		copied = s
		return nil
	})
	m = pump(t, pressKey(typeText(m, "Hello"), tea.KeyEnter))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlY})
	m = next.(Model)
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, "Bold and code", copied)

	m = update(m, msg)
	assert.Equal(t, "Reply copied to clipboard", m.Banner().Message)
}

func TestShell_CopyWithoutReply(t *testing.T) {
	m := newTestModel(t, completiontest.New(), nil)
	m = update(m, tea.KeyMsg{Type: tea.KeyCtrlY})
	assert.Equal(t, "Nothing to copy yet", m.Banner().Message)
}

func TestShell_NotifyDone(t *testing.T) {
	cfg := testConfig()
	cfg.UI.NotifyOnComplete = true
	cfg.UI.NotifyAfter = config.Duration{Duration: time.Second}
	m := newTestModel(t, completiontest.New("All **done**."), cfg)

	var title, body string
	m.SetNotifier(func(t, b string) error {
		title, body = t, b
		return nil
	})
	m = pump(t, pressKey(typeText(m, "Hello"), tea.KeyEnter))

	m.submittedAt = time.Now()
	assert.Nil(t, m.notifyDone(), "fast replies do not notify")

	m.submittedAt = time.Now().Add(-time.Minute)
	cmd := m.notifyDone()
	require.NotNil(t, cmd)
	_, ok := cmd().(notifiedMsg)
	require.True(t, ok)
	assert.Equal(t, "Jaime replied", title)
	assert.Equal(t, "All done.", body)
}

func TestShell_DurationsFromConfig(t *testing.T) {
	cfg := testConfig()
	cfg.UI.BannerTimeout = config.D(7 * time.Second)
	cfg.Completion.MaxDuration = config.D(12 * time.Second)
	cfg.Stream.BatchInterval = config.D(40 * time.Millisecond)
	m := newTestModel(t, completiontest.New(), cfg)

	assert.Equal(t, 7*time.Second, m.Banner().Timeout)
	assert.Equal(t, 12*time.Second, m.Controller().MaxDuration())
	assert.Equal(t, 40*time.Millisecond, m.Controller().BatchInterval())

	next := testConfig()
	next.UI.BannerTimeout = config.D(3 * time.Second)
	m = update(m, configChangedMsg{change: config.Change{Config: next}})
	assert.Equal(t, 3*time.Second, m.Banner().Timeout)
}

func TestShell_ConfigReload(t *testing.T) {
	m := newTestModel(t, completiontest.New(), nil)

	next := testConfig()
	next.UI.SuggestedPrompts = []string{"Only one"}
	next.Scroll.PinThreshold = 4
	m = update(m, configChangedMsg{change: config.Change{Config: next}})

	assert.Equal(t, []string{"Only one"}, m.prompts.Prompts())
	assert.Equal(t, 4, m.scroll.Threshold())
	assert.Equal(t, "Config reloaded", m.Banner().Message)

	m = update(m, configChangedMsg{change: config.Change{Err: errors.New("bad toml")}})
	assert.Contains(t, m.Banner().Message, "Config not reloaded")
	assert.Equal(t, []string{"Only one"}, m.prompts.Prompts())
}

func TestShell_Quit(t *testing.T) {
	m := newTestModel(t, completiontest.New(), nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlQ})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestParseLayout(t *testing.T) {
	assert.Equal(t, LayoutExpanded, ParseLayout("expanded"))
	assert.Equal(t, LayoutCompact, ParseLayout("compact"))
	assert.Equal(t, LayoutCompact, ParseLayout("sideways"))
	assert.Equal(t, LayoutExpanded, LayoutCompact.Toggle())
	assert.Equal(t, "compact", LayoutExpanded.Toggle().String())
}
