// jaime - Chat with the Jaime assistant in your terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/jaime-tui/internal/cli"
)

// Build with:
//
//	go build -ldflags "-X github.com/jeranaias/jaime-tui/internal/cli.Version=1.0.0" -o jaime .
func main() {
	if err := cli.Execute(); err != nil {
		errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
		fmt.Fprintln(os.Stderr, errStyle.Render("Error:"), err)
		os.Exit(1)
	}
}
