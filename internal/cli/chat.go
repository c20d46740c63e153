// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/jeranaias/jaime-tui/internal/config"
	"github.com/jeranaias/jaime-tui/internal/model"
	"github.com/jeranaias/jaime-tui/internal/render"
	"github.com/jeranaias/jaime-tui/internal/stream"
)

// Line-mode commands:
//
//	/help, /h         Show commands
//	/new, /n          Start a new chat
//	/copy, /y         Copy the last reply as plain text
//	/1 .. /4          Ask a suggested prompt
//	/exit, /quit, /q  Leave

func newChatCmd(a *app) *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start a conversation",
		Long: `Chat opens the full-screen chat, the same as running jaime alone.

With --plain it runs a line-mode chat instead: arrow keys recall earlier
input, and replies are printed below each question.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !plain {
				return a.runTUI(cmd.Context())
			}
			return a.plainChat(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "line-mode chat without the full-screen interface")
	return cmd
}

func (a *app) plainChat(ctx context.Context, out, status io.Writer) error {
	svc, release, err := newService(a.cfg, a.log)
	if err != nil {
		return err
	}
	defer release()

	ctrl := newController(svc, a.cfg, a.log)
	defer ctrl.Close()

	in := openHistoryInput(a.log)
	defer in.Close()

	useColorsFor(out)
	r := newREPL(in, out, status, ctrl, a.cfg.UI.SuggestedPrompts, a.log)
	r.greet(svc.Name(), a.cfg.ActiveModel())
	return r.run(ctx)
}

// =============================================================================
// INPUT WITH HISTORY
// =============================================================================

// lineReader reads one line after showing prompt. It returns io.EOF or
// liner.ErrPromptAborted when the user leaves.
type lineReader interface {
	Prompt(prompt string) (string, error)
}

// historyInput is line editing with history kept in the config directory.
type historyInput struct {
	line *liner.State
	path string
	log  *slog.Logger
}

func openHistoryInput(log *slog.Logger) *historyInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	h := &historyInput{line: line, log: log}
	if dir, err := config.ConfigDir(); err == nil {
		h.path = filepath.Join(dir, "chat_history")
		if f, err := os.Open(h.path); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}
	return h
}

// Prompt reads a line and records it in history.
func (h *historyInput) Prompt(prompt string) (string, error) {
	s, err := h.line.Prompt(prompt)
	if err == nil && strings.TrimSpace(s) != "" {
		h.line.AppendHistory(s)
	}
	return s, err
}

// Close saves history and restores the terminal.
func (h *historyInput) Close() {
	if h.path != "" {
		if err := os.MkdirAll(filepath.Dir(h.path), 0700); err == nil {
			if f, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
				if _, err := h.line.WriteHistory(f); err != nil {
					h.log.Warn("failed to save chat history", "error", err)
				}
				f.Close()
			}
		}
	}
	h.line.Close()
}

// =============================================================================
// REPL
// =============================================================================

type repl struct {
	in      lineReader
	out     io.Writer
	status  io.Writer
	ctrl    *stream.Controller
	printer *printer
	prompts []string
	log     *slog.Logger

	copyText func(string) error
}

func newREPL(in lineReader, out, status io.Writer, ctrl *stream.Controller, prompts []string, log *slog.Logger) *repl {
	return &repl{
		in:       in,
		out:      out,
		status:   status,
		ctrl:     ctrl,
		printer:  newPrinter(out, status, false),
		prompts:  prompts,
		log:      log,
		copyText: clipboard.WriteAll,
	}
}

func (r *repl) greet(provider, modelName string) {
	fmt.Fprintf(r.out, "%s %s\n", labelStyle.Render("Jaime"), hintStyle.Render("("+provider+", "+modelName+")"))
	fmt.Fprintln(r.out, hintStyle.Render("Type a message and press enter. /help lists commands."))
	if len(r.prompts) > 0 {
		fmt.Fprintln(r.out, "Try asking:")
		for i, p := range r.prompts {
			fmt.Fprintf(r.out, "  /%d  %s\n", i+1, p)
		}
	}
	fmt.Fprintln(r.out)
}

// run reads lines until the user leaves or ctx ends.
func (r *repl) run(ctx context.Context) error {
	for ctx.Err() == nil {
		line, err := r.in.Prompt("you> ")
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(r.out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
		if r.handle(ctx, line) {
			return nil
		}
	}
	return nil
}

// handle acts on one input line and reports whether the user asked to
// leave.
func (r *repl) handle(ctx context.Context, line string) bool {
	text := strings.TrimSpace(line)
	if text == "" {
		return false
	}
	if !strings.HasPrefix(text, "/") {
		r.send(ctx, line)
		return false
	}

	switch cmd := strings.ToLower(text); cmd {
	case "/exit", "/quit", "/q":
		return true
	case "/help", "/h", "/?":
		r.help()
	case "/new", "/n":
		r.ctrl.Reset()
		fmt.Fprintln(r.status, hintStyle.Render("New chat"))
	case "/copy", "/y":
		r.copyLastReply()
	default:
		if n, err := strconv.Atoi(cmd[1:]); err == nil && n >= 1 && n <= len(r.prompts) {
			fmt.Fprintln(r.out, "you> "+r.prompts[n-1])
			r.send(ctx, r.prompts[n-1])
			return false
		}
		fmt.Fprintln(r.status, errorStyle.Render("Unknown command "+text+". Type /help for commands."))
	}
	return false
}

// send runs one exchange. Ctrl+C stops the reply without leaving the chat.
func (r *repl) send(ctx context.Context, text string) {
	exCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	fmt.Fprintln(r.out, labelStyle.Render(model.RoleAssistant.DisplayName()))
	err := r.printer.run(exCtx, r.ctrl, text)
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(r.status, hintStyle.Render("(stopped)"))
	default:
		r.log.Warn("exchange failed", "error", err)
		fmt.Fprintln(r.status, errorStyle.Render(userMessage(err)))
	}
	fmt.Fprintln(r.out)
}

func (r *repl) copyLastReply() {
	turn, ok := r.ctrl.Store().Snapshot().LastOfRole(model.RoleAssistant)
	if !ok || turn.IsEmpty() {
		fmt.Fprintln(r.status, hintStyle.Render("Nothing to copy yet"))
		return
	}
	if err := r.copyText(render.PlainText(render.Render(turn.Content))); err != nil {
		r.log.Warn("clipboard write failed", "error", err)
		fmt.Fprintln(r.status, errorStyle.Render("Clipboard unavailable"))
		return
	}
	fmt.Fprintln(r.status, hintStyle.Render("Reply copied to clipboard"))
}

func (r *repl) help() {
	rows := [][2]string{
		{"/help, /h", "Show this help"},
		{"/new, /n", "Start a new chat"},
		{"/copy, /y", "Copy the last reply"},
		{"/1 .. /4", "Ask a suggested prompt"},
		{"/exit, /q", "Leave (or Ctrl+D)"},
		{"Ctrl+C", "Stop the reply in progress"},
	}
	for _, row := range rows {
		fmt.Fprintf(r.out, "  %-12s %s\n", row[0], hintStyle.Render(row[1]))
	}
}
