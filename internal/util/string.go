// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Ellipsis marks truncated text.
const Ellipsis = "…"

// TruncateWidth truncates s to at most maxWidth terminal columns, ending in
// an ellipsis when anything was cut. Wide characters count as two columns.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	return runewidth.Truncate(s, maxWidth, Ellipsis)
}

// Preview returns the first non-blank line of s, whitespace-collapsed and
// truncated to maxWidth columns. An ellipsis marks further lines.
func Preview(s string, maxWidth int) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		more := strings.TrimSpace(strings.Join(lines[i+1:], "\n")) != ""
		if more && runewidth.StringWidth(line)+1 <= maxWidth {
			return line + Ellipsis
		}
		return TruncateWidth(line, maxWidth)
	}
	return ""
}
