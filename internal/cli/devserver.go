// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/jaime-tui/internal/server"
)

func newDevServerCmd(a *app) *cobra.Command {
	var (
		addr   string
		script server.Script
	)

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run the local scripted completion server",
		Long: `Devserver answers OpenAI-compatible (/v1/chat/completions) and
Ollama-compatible (/api/chat) requests with a scripted streamed reply.

Point the client at it with:
  JAIME_PROVIDER=openai JAIME_BASE_URL=http://127.0.0.1:8787/v1 OPENAI_API_KEY=any jaime`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", addr, err)
			}
			srv := server.New(script, a.log)
			fmt.Fprintf(cmd.OutOrStdout(), "Dev server listening on http://%s (Ctrl+C to stop)\n", ln.Addr())

			errc := make(chan error, 1)
			go func() { errc <- srv.Serve(ln) }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			stats := srv.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "Served %d requests (%d completed, %d aborted)\n",
				stats.Requests, stats.Completed, stats.Aborted)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	f.StringVar(&script.Reply, "reply", "", "reply text (default: a markdown sample)")
	f.DurationVar(&script.ChunkDelay, "delay", 50*time.Millisecond, "pause before each chunk")
	f.IntVar(&script.FailAfter, "fail-after", 0, "drop the connection after this many chunks")
	f.IntVar(&script.Status, "status", 0, "answer every request with this HTTP error status")
	f.StringVar(&script.APIKey, "api-key", "", "require this bearer token on /v1 routes")
	f.BoolVar(&script.Echo, "echo", false, "start each reply by quoting the question")
	return cmd
}
