// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jaime-tui/internal/completion"
	"github.com/jeranaias/jaime-tui/internal/config"
	"github.com/jeranaias/jaime-tui/internal/model"
	"github.com/jeranaias/jaime-tui/internal/stream"
)

var (
	labelStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	thinkingStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// newController creates a line-mode controller. Chunks are applied as they
// arrive; there is no frame rate to batch for.
func newController(svc completion.Service, cfg *config.Config, log *slog.Logger) *stream.Controller {
	return stream.New(model.NewStore(), svc, stream.Options{
		System:      cfg.Completion.SystemPrompt,
		MaxDuration: cfg.Completion.MaxDuration.Duration,
		Logger:      log,
	})
}

// exchange submits text and applies the session's events until it ends.
// onDelta sees each chunk once it is in the transcript. The returned turn
// is this exchange's reply, which may be partial or absent on failure.
// A cancelled ctx finalizes the reply with what was received and returns
// ctx.Err().
func exchange(ctx context.Context, ctrl *stream.Controller, text string, onDelta func(string)) (model.Turn, error) {
	defer ctrl.Acknowledge()

	before := ctrl.Store().Snapshot().Len()
	events, err := ctrl.Submit(ctx, text)
	if err != nil {
		return model.Turn{}, err
	}

	var failure error
	for ev := range events {
		out := ctrl.Apply(ev)
		if chunk, ok := ev.(stream.ChunkEvent); ok && out.Changed && onDelta != nil {
			onDelta(chunk.Delta)
		}
		if out.Failure != nil {
			failure = out.Failure
		}
	}
	if failure == nil && ctx.Err() != nil {
		ctrl.Cancel()
		failure = ctx.Err()
	}
	return replySince(ctrl.Store().Snapshot(), before), failure
}

// replySince returns the first assistant turn at or after index from.
func replySince(snap model.Snapshot, from int) model.Turn {
	for i := from; i < snap.Len(); i++ {
		if t := snap.At(i); t.Role == model.RoleAssistant {
			return t
		}
	}
	return model.Turn{}
}

// userMessage turns an exchange error into the line shown to the user.
func userMessage(err error) string {
	var failure *stream.Failure
	if errors.As(err, &failure) {
		return failure.UserMessage()
	}
	return completion.UserFacingFailure
}

// printer writes replies either as rendered markdown or as raw streamed
// text.
type printer struct {
	out    io.Writer
	status io.Writer
	md     *markdownRenderer
}

// newPrinter renders markdown when out is a terminal and raw is false.
func newPrinter(out, status io.Writer, raw bool) *printer {
	p := &printer{out: out, status: status}
	if !raw && isTerminal(out) {
		p.md = newMarkdownRenderer(terminalWidth(out), colorsEnabled(out))
	}
	return p
}

// run performs one exchange and prints the reply. Errors are returned for
// the caller to report.
func (p *printer) run(ctx context.Context, ctrl *stream.Controller, text string) error {
	var onDelta func(string)
	if p.md == nil {
		onDelta = func(delta string) { io.WriteString(p.out, delta) }
	} else {
		fmt.Fprintln(p.status, thinkingStyle.Render("Jaime is thinking..."))
	}

	reply, err := exchange(ctx, ctrl, text, onDelta)

	switch {
	case p.md != nil && !reply.IsEmpty():
		fmt.Fprintln(p.out, p.md.Render(reply.Content))
	case !reply.IsEmpty():
		fmt.Fprintln(p.out)
	}

	return err
}
