// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gen2brain/beeep"

	"github.com/jeranaias/jaime-tui/internal/completion"
	"github.com/jeranaias/jaime-tui/internal/config"
	"github.com/jeranaias/jaime-tui/internal/model"
	"github.com/jeranaias/jaime-tui/internal/render"
	"github.com/jeranaias/jaime-tui/internal/scroll"
	"github.com/jeranaias/jaime-tui/internal/stream"
	"github.com/jeranaias/jaime-tui/internal/ui/components"
	"github.com/jeranaias/jaime-tui/internal/ui/styles"
)

// =============================================================================
// LAYOUT
// =============================================================================

// Layout selects how the shell arranges itself. It affects presentation only.
type Layout int

const (
	LayoutCompact Layout = iota
	LayoutExpanded
)

// ParseLayout maps a config value to a Layout. Unknown values are compact.
func ParseLayout(s string) Layout {
	if s == config.LayoutExpanded {
		return LayoutExpanded
	}
	return LayoutCompact
}

func (l Layout) String() string {
	if l == LayoutExpanded {
		return config.LayoutExpanded
	}
	return config.LayoutCompact
}

// Toggle returns the other layout.
func (l Layout) Toggle() Layout {
	if l == LayoutExpanded {
		return LayoutCompact
	}
	return LayoutExpanded
}

// Input placeholders per layout.
const (
	compactPlaceholder  = "Type here in any language..."
	expandedPlaceholder = "Tell me about your company relationships with InterSystems"
)

// Disclaimer is shown under the input in both layouts.
const Disclaimer = "Jaime is powered by Generative AI technology, which may produce inaccurate information. Please contact our team for any questions."

// inputLines is the visible height of the textarea.
const inputLines = 3

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat shell.
type Model struct {
	ctx   context.Context
	cfg   *config.Config
	log   *slog.Logger
	theme *styles.Theme
	keys  KeyMap

	// Conversation state
	store  *model.Store
	ctrl   *stream.Controller
	scroll *scroll.Controller
	cache  *viewportCache

	// Presentation state
	layout Layout
	width  int
	height int
	ready  bool

	// UI components
	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	help     help.Model
	painter  *render.Painter
	header   *components.Header
	banner   *components.Banner
	prompts  *components.Suggestions

	// In-flight exchange
	events         <-chan stream.Event
	flushScheduled bool
	submittedAt    time.Time

	// Side effects, replaceable in tests
	configChanges <-chan config.Change
	copyText      func(string) error
	notify        func(title, message string) error
}

// New creates a chat shell streaming replies from svc. A nil cfg uses the
// defaults and a nil logger discards.
func New(theme *styles.Theme, svc completion.Service, cfg *config.Config, logger *slog.Logger) Model {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	store := model.NewStore()

	ta := textarea.New()
	ta.Prompt = ""
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputLines)
	ta.KeyMap.InsertNewline.SetKeys("alt+enter", "ctrl+j")
	ta.FocusedStyle.CursorLine = ta.FocusedStyle.CursorLine.UnsetBackground()
	ta.Focus()

	sp := spinner.New(
		spinner.WithSpinner(styles.ThinkingSpinner),
		spinner.WithStyle(theme.Thinking),
	)

	banner := components.NewBanner(theme)
	banner.Timeout = cfg.UI.BannerTimeout.Duration

	header := components.NewHeader(theme)
	header.Provider = svc.Name()
	header.Model = cfg.ActiveModel()

	m := Model{
		ctx:   context.Background(),
		cfg:   cfg,
		log:   logger.With("component", "shell"),
		theme: theme,
		keys:  DefaultKeyMap(),
		store: store,
		ctrl: stream.New(store, svc, stream.Options{
			System:        cfg.Completion.SystemPrompt,
			MaxDuration:   cfg.Completion.MaxDuration.Duration,
			BatchInterval: cfg.Stream.BatchInterval.Duration,
			Logger:        logger,
		}),
		scroll:   scroll.New(cfg.Scroll.PinThreshold, cfg.Scroll.ResizeDebounce.Duration),
		cache:    newViewportCache(),
		viewport: viewport.New(80, 20),
		input:    ta,
		spinner:  sp,
		help:     help.New(),
		painter:  render.NewPainter(80, theme.Markdown),
		header:   header,
		banner:   banner,
		prompts:  components.NewSuggestions(theme, cfg.UI.SuggestedPrompts),
		copyText: clipboard.WriteAll,
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
	store.Subscribe(m.cache.observe)
	m.viewport.MouseWheelEnabled = true
	m.SetLayout(ParseLayout(cfg.UI.Layout))
	return m
}

// SetContext sets the parent context of every request.
func (m *Model) SetContext(ctx context.Context) {
	if ctx != nil {
		m.ctx = ctx
	}
}

// SetLayout switches between the compact and expanded layouts.
func (m *Model) SetLayout(l Layout) {
	m.layout = l
	m.header.Layout = l.String()
	if l == LayoutExpanded {
		m.input.Placeholder = expandedPlaceholder
	} else {
		m.input.Placeholder = compactPlaceholder
	}
	m.relayout()
}

// WatchConfig applies reloads arriving on changes.
func (m *Model) WatchConfig(changes <-chan config.Change) {
	m.configChanges = changes
}

// SetClipboard replaces the clipboard writer.
func (m *Model) SetClipboard(fn func(string) error) {
	m.copyText = fn
}

// SetNotifier replaces the desktop notifier.
func (m *Model) SetNotifier(fn func(title, message string) error) {
	m.notify = fn
}

// Layout returns the active layout.
func (m Model) Layout() Layout { return m.layout }

// Controller exposes the stream controller.
func (m Model) Controller() *stream.Controller { return m.ctrl }

// Transcript returns the current transcript snapshot.
func (m Model) Transcript() model.Snapshot { return m.store.Snapshot() }

// Banner returns the notice line.
func (m Model) Banner() *components.Banner { return m.banner }

// Input returns the current input text.
func (m Model) Input() string { return m.input.Value() }

// Pinned reports whether the transcript follows new content.
func (m Model) Pinned() bool { return m.scroll.Pinned() }

// Close releases any live request.
func (m Model) Close() {
	m.ctrl.Close()
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink and the config watch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, waitForConfig(m.configChanges))
}

// busy reports whether a reply is in flight.
func (m Model) busy() bool {
	switch m.ctrl.Status() {
	case stream.StatusSubmitted, stream.StatusStreaming:
		return true
	default:
		return false
	}
}

// showSidePanel reports whether the expanded side panel is drawn.
func (m Model) showSidePanel() bool {
	return m.layout == LayoutExpanded && m.theme.FitsSidePanel()
}

// showPromptRow reports whether the compact prompt chips are drawn.
func (m Model) showPromptRow() bool {
	return !m.showSidePanel() && m.store.Snapshot().Len() == 0 && m.prompts.Len() > 0
}

// promptsVisible reports whether any prompt affordance is on screen.
func (m Model) promptsVisible() bool {
	return m.showSidePanel() || m.showPromptRow()
}

// applyConfig applies the UI-level settings of a reloaded config.
// Provider, model and credentials need a restart.
func (m *Model) applyConfig(cfg *config.Config) {
	m.cfg = cfg
	m.banner.Timeout = cfg.UI.BannerTimeout.Duration
	m.scroll.SetThreshold(cfg.Scroll.PinThreshold)
	m.prompts.SetPrompts(cfg.UI.SuggestedPrompts)
	m.ctrl.SetSystem(cfg.Completion.SystemPrompt)
	m.relayout()
}
