// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for jaime.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Command-line flags (applied by the cli package)
//   - Environment variables (OPENAI_API_KEY, JAIME_*), including a .env file
//     in the working directory
//   - ~/.jaime/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	timeout := cfg.Completion.MaxDuration.Duration
//
// Watch reloads the file on change so a running session can pick up
// presentation settings without a restart.
package config
