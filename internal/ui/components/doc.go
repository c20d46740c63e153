// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the small stateful widgets the chat shell
// composes: the header, the notice banner and the suggested prompts.
//
// Components render with the shared styles.Theme and never own layout; the
// shell passes the width each frame.
package components
