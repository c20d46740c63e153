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
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/jaime-tui/internal/config"
	"github.com/jeranaias/jaime-tui/internal/logging"
	"github.com/jeranaias/jaime-tui/internal/ui/chat"
	"github.com/jeranaias/jaime-tui/internal/ui/styles"
)

// =============================================================================
// VERSION INFO
// =============================================================================

// Set via -ldflags at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// skipConfig marks commands that must work even when the config file is
// broken.
const skipConfig = "skip-config"

// =============================================================================
// APP STATE
// =============================================================================

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	provider   string
	model      string
	layout     string
	debug      bool
}

// app carries what the root command prepares for its subcommands.
type app struct {
	flags   globalFlags
	cfg     *config.Config
	cfgPath string
	log     *slog.Logger
}

// NewRootCmd builds the jaime command tree.
func NewRootCmd() *cobra.Command {
	a := &app{log: logging.Discard()}

	root := &cobra.Command{
		Use:   "jaime",
		Short: "Chat with Jaime in your terminal",
		Long: `jaime is a terminal chat client for the Jaime assistant.

Replies stream in as they are written and are rendered as markdown.
Run without arguments to open the full-screen chat.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return logging.Close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI(cmd.Context())
		},
	}
	root.SetVersionTemplate(versionLine() + "\n")

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default ~/.jaime/config.toml)")
	pf.StringVar(&a.flags.provider, "provider", "", "completion provider: openai, ollama or dev")
	pf.StringVar(&a.flags.model, "model", "", "model for the selected provider")
	pf.StringVar(&a.flags.layout, "layout", "", "chat layout: compact or expanded")
	pf.BoolVar(&a.flags.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newAskCmd(a),
		newChatCmd(a),
		newConfigCmd(a),
		newDevServerCmd(a),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command. SIGTERM cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

func versionLine() string {
	return fmt.Sprintf("jaime %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), versionLine())
			return err
		},
	}
}

// =============================================================================
// SETUP
// =============================================================================

// setup loads .env, the config file and the flags, then opens the log file.
func (a *app) setup(cmd *cobra.Command) error {
	stderr := cmd.ErrOrStderr()
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "Warning: %v\n", err)
	}

	path := a.flags.configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	a.cfgPath = path

	if cmd.Annotations[skipConfig] != "" {
		return nil
	}

	cfg, err := config.LoadFromPath(path)
	if err != nil {
		return err
	}
	if err := a.applyFlags(cfg); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = openLog(cfg, stderr)
	a.log.Debug("command starting", "command", cmd.CommandPath(), "provider", cfg.Completion.Provider)
	return nil
}

// applyFlags overrides cfg with any global flags that were set.
func (a *app) applyFlags(cfg *config.Config) error {
	if a.flags.provider != "" {
		cfg.Completion.Provider = strings.ToLower(a.flags.provider)
	}
	if a.flags.model != "" {
		cfg.SetModel(a.flags.model)
	}
	if a.flags.layout != "" {
		cfg.UI.Layout = strings.ToLower(a.flags.layout)
	}
	if a.flags.debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

// openLog starts file logging. A log file that cannot be opened only costs
// the log; the command still runs.
func openLog(cfg *config.Config, stderr io.Writer) *slog.Logger {
	path := cfg.Log.Path
	if path == "" {
		p, err := config.DefaultLogPath()
		if err != nil {
			fmt.Fprintf(stderr, "Warning: logging disabled: %v\n", err)
			return logging.Discard()
		}
		path = p
	}
	logger, err := logging.Init(path, cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: logging disabled: %v\n", err)
		return logging.Discard()
	}
	return logger
}

// =============================================================================
// FULL-SCREEN CHAT
// =============================================================================

// runTUI opens the full-screen chat and blocks until the user quits.
func (a *app) runTUI(ctx context.Context) error {
	svc, release, err := newService(a.cfg, a.log)
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := chat.New(styles.NewTheme(), svc, a.cfg, a.log)
	m.SetContext(ctx)
	defer m.Close()

	if err := os.MkdirAll(filepath.Dir(a.cfgPath), 0700); err != nil {
		a.log.Warn("config watch disabled", "error", err)
	} else if changes, err := config.Watch(ctx, a.cfgPath, config.DefaultWatchDebounce); err != nil {
		a.log.Warn("config watch disabled", "error", err)
	} else {
		m.WatchConfig(changes)
	}

	a.log.Info("chat starting", "provider", svc.Name(), "model", a.cfg.ActiveModel(), "layout", a.cfg.UI.Layout)
	p := tea.NewProgram(m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat: %w", err)
	}
	a.log.Info("chat closed")
	return nil
}
