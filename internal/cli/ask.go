// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
)

func newAskCmd(a *app) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask one question and print the reply",
		Long: `Ask sends a single question and prints Jaime's reply.

On a terminal the reply is rendered as markdown once it is complete.
When output is piped, or with --raw, the reply text is streamed as it
arrives. Pass "-" to read the question from standard input.`,
		Example: `  jaime ask "What do you do best?"
  git diff | jaime ask -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := questionFrom(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return a.ask(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), question, raw)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "stream the reply text without markdown rendering")
	return cmd
}

// questionFrom joins the arguments, or reads stdin when the only argument
// is "-".
func questionFrom(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 && args[0] == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read question: %w", err)
		}
		return string(data), nil
	}
	return strings.Join(args, " "), nil
}

func (a *app) ask(ctx context.Context, out, status io.Writer, question string, raw bool) error {
	if strings.TrimSpace(question) == "" {
		return errors.New("question is empty")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	svc, release, err := newService(a.cfg, a.log)
	if err != nil {
		return err
	}
	defer release()

	ctrl := newController(svc, a.cfg, a.log)
	defer ctrl.Close()

	useColorsFor(out)
	err = newPrinter(out, status, raw).run(ctx, ctrl, question)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(status, hintStyle.Render("(stopped)"))
		return nil
	default:
		a.log.Error("ask failed", "error", err)
		return errors.New(userMessage(err))
	}
}
