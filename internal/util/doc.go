// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across jaime.
//
//   - AtomicWriteFile: crash-safe file writing with fsync
//   - TruncateWidth: display-width truncation with an ellipsis
//   - Preview: a one-line summary of multi-line text
package util
