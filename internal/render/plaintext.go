// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strconv"
	"strings"
)

// PlainText flattens a tree to unstyled text for the clipboard and for
// non-terminal output.
func PlainText(tree *Tree) string {
	if tree == nil {
		return ""
	}
	return plainBlocks(tree.Blocks, "\n\n")
}

func plainBlocks(blocks []Block, sep string) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, plainBlock(b))
	}
	return strings.Join(parts, sep)
}

func plainBlock(b Block) string {
	switch b := b.(type) {
	case Paragraph:
		return plainInlines(b.Inlines)
	case Heading:
		return plainInlines(b.Inlines)
	case List:
		items := make([]string, 0, len(b.Items))
		for i, item := range b.Items {
			marker := "- "
			if b.Ordered {
				marker = strconv.Itoa(b.Start+i) + ". "
			}
			if item.Task {
				if item.Checked {
					marker += "[x] "
				} else {
					marker += "[ ] "
				}
			}
			body := strings.ReplaceAll(plainBlocks(item.Blocks, "\n"), "\n", "\n"+strings.Repeat(" ", len(marker)))
			items = append(items, marker+body)
		}
		return strings.Join(items, "\n")
	case Quote:
		return "> " + strings.ReplaceAll(plainBlocks(b.Blocks, "\n\n"), "\n", "\n> ")
	case CodeBlock:
		return b.Code
	case Rule:
		return "---"
	case Table:
		var rows []string
		if len(b.Header) > 0 {
			rows = append(rows, plainRow(b.Header))
		}
		for _, row := range b.Rows {
			rows = append(rows, plainRow(row))
		}
		return strings.Join(rows, "\n")
	default:
		return ""
	}
}

func plainRow(row []Cell) string {
	cells := make([]string, len(row))
	for i, c := range row {
		cells[i] = plainInlines(c)
	}
	return strings.Join(cells, "\t")
}

func plainInlines(ins []Inline) string {
	var b strings.Builder
	for _, in := range ins {
		switch in := in.(type) {
		case Text:
			b.WriteString(in.Value)
		case Emphasis:
			b.WriteString(plainInlines(in.Children))
		case Strong:
			b.WriteString(plainInlines(in.Children))
		case Strike:
			b.WriteString(plainInlines(in.Children))
		case Code:
			b.WriteString(in.Value)
		case Link:
			b.WriteString(plainInlines(in.Children))
			b.WriteString(linkTarget(in))
		case Image:
			b.WriteString(in.Alt)
		case Break:
			if in.Hard {
				b.WriteString("\n")
			} else {
				b.WriteString(" ")
			}
		}
	}
	return b.String()
}

// linkTarget returns " (destination)" when the link text does not already
// show the destination.
func linkTarget(l Link) string {
	if l.Destination == "" {
		return ""
	}
	label := plainInlines(l.Children)
	if label == l.Destination || strings.HasSuffix(l.Destination, "://"+label) || l.Destination == "mailto:"+label {
		return ""
	}
	return " (" + l.Destination + ")"
}
