// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/jeranaias/jaime-tui/internal/ui/styles"
)

const (
	linkMarker = " ↗"
	tabSpaces  = "    "
	minWidth   = 10
)

// =============================================================================
// PAINTER
// =============================================================================

// Painter paints display trees as styled terminal text at a fixed width.
// A Painter caches token styles and is not safe for concurrent use.
type Painter struct {
	width  int
	styles styles.MarkdownStyles
	tokens *tokenStyles
}

// NewPainter creates a painter for width columns.
func NewPainter(width int, ms styles.MarkdownStyles) *Painter {
	p := &Painter{styles: ms, tokens: newTokenStyles(CodeStyle)}
	p.SetWidth(width)
	return p
}

// Width returns the paint width.
func (p *Painter) Width() int { return p.width }

// SetWidth changes the paint width.
func (p *Painter) SetWidth(width int) {
	p.width = max(width, minWidth)
}

// Paint renders tree to a string. Blocks are separated by a blank line.
func (p *Painter) Paint(tree *Tree) string {
	if tree == nil {
		return ""
	}
	return strings.Join(p.paintBlocks(tree.Blocks, p.width), "\n\n")
}

func (p *Painter) paintBlocks(blocks []Block, width int) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, p.paintBlock(b, max(width, minWidth)))
	}
	return out
}

func (p *Painter) paintBlock(b Block, width int) string {
	switch b := b.(type) {
	case Paragraph:
		return wrapText(p.paintInlines(b.Inlines, p.styles.Text), width)
	case Heading:
		st := p.styles.Heading
		if b.Level <= 2 {
			st = p.styles.HeadingMain
		}
		return wrapText(p.paintInlines(b.Inlines, st), width)
	case List:
		return p.paintList(b, width)
	case Quote:
		bar := p.styles.QuoteBar.Render("│ ")
		inner := strings.Join(p.paintBlocks(b.Blocks, width-2), "\n\n")
		lines := strings.Split(inner, "\n")
		for i := range lines {
			lines[i] = bar + lines[i]
		}
		return strings.Join(lines, "\n")
	case CodeBlock:
		return p.paintCode(b, width)
	case Rule:
		return p.styles.Rule.Render(strings.Repeat("─", width))
	case Table:
		return p.paintTable(b, width)
	default:
		return ""
	}
}

// wrapText word-wraps and then hard-wraps words longer than width.
func wrapText(s string, width int) string {
	return wrap.String(wordwrap.String(s, width), width)
}

// =============================================================================
// INLINES
// =============================================================================

func (p *Painter) paintInlines(ins []Inline, st lipgloss.Style) string {
	var b strings.Builder
	for _, in := range ins {
		switch in := in.(type) {
		case Text:
			b.WriteString(st.Render(in.Value))
		case Emphasis:
			b.WriteString(p.paintInlines(in.Children, p.styles.Emphasis.Inherit(st)))
		case Strong:
			b.WriteString(p.paintInlines(in.Children, p.styles.Strong.Inherit(st)))
		case Strike:
			b.WriteString(p.paintInlines(in.Children, p.styles.Strike.Inherit(st)))
		case Code:
			b.WriteString(p.styles.InlineCode.Render(in.Value))
		case Link:
			b.WriteString(p.paintInlines(in.Children, p.styles.Link))
			if target := linkTarget(in); target != "" {
				b.WriteString(p.styles.LinkMarker.Render(target))
			}
			if in.External {
				b.WriteString(p.styles.LinkMarker.Render(linkMarker))
			}
		case Image:
			b.WriteString(st.Render("[image: " + in.Alt + "]"))
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

// =============================================================================
// LISTS
// =============================================================================

func (p *Painter) paintList(l List, width int) string {
	items := make([]string, 0, len(l.Items))
	for i, item := range l.Items {
		marker := "• "
		if l.Ordered {
			marker = strconv.Itoa(l.Start+i) + ". "
		}
		if item.Task {
			if item.Checked {
				marker += "[x] "
			} else {
				marker += "[ ] "
			}
		}
		indent := runewidth.StringWidth(marker)

		body := strings.Join(p.paintBlocks(item.Blocks, width-indent), "\n")
		lines := strings.Split(body, "\n")
		for j := range lines {
			if j == 0 {
				lines[j] = p.styles.Bullet.Render(marker) + lines[j]
			} else {
				lines[j] = strings.Repeat(" ", indent) + lines[j]
			}
		}
		items = append(items, strings.Join(lines, "\n"))
	}
	return strings.Join(items, "\n")
}

// =============================================================================
// CODE BLOCKS
// =============================================================================

// paintCode draws a code block on the code surface. Lines are truncated,
// never wrapped, so the block keeps its shape while it streams.
func (p *Painter) paintCode(cb CodeBlock, width int) string {
	inner := max(width-p.styles.CodeBlock.GetHorizontalPadding(), 1)

	var lines []string
	if cb.Tokens != nil {
		lines = p.tokenLines(cb.Tokens, inner)
	} else {
		for _, line := range strings.Split(cb.Code, "\n") {
			line = strings.ReplaceAll(line, "\t", tabSpaces)
			lines = append(lines, runewidth.Truncate(line, inner, "…"))
		}
	}

	block := p.styles.CodeBlock.Width(width).Render(strings.Join(lines, "\n"))
	if cb.Language == "" {
		return block
	}
	return p.styles.CodeBadge.Render(LanguageName(cb.Language)) + "\n" + block
}

func (p *Painter) tokenLines(tokens []Token, limit int) []string {
	var (
		lines []string
		cur   strings.Builder
		used  int
	)
	for _, tok := range tokens {
		st := p.tokens.get(tok.Type)
		for i, part := range strings.Split(tok.Value, "\n") {
			if i > 0 {
				lines = append(lines, cur.String())
				cur.Reset()
				used = 0
			}
			part = strings.ReplaceAll(part, "\t", tabSpaces)
			room := limit - used
			if part == "" || room <= 0 {
				continue
			}
			if runewidth.StringWidth(part) > room {
				part = runewidth.Truncate(part, room, "…")
			}
			used += runewidth.StringWidth(part)
			cur.WriteString(st.Render(part))
		}
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}

// =============================================================================
// TABLES
// =============================================================================

func (p *Painter) paintTable(t Table, width int) string {
	cols := len(t.Header)
	for _, row := range t.Rows {
		cols = max(cols, len(row))
	}
	if cols == 0 {
		return ""
	}

	// Cells are painted first and measured ANSI-aware, so link suffixes
	// count toward column widths.
	header := p.paintCells(t.Header, cols, p.styles.TableHeader)
	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = p.paintCells(row, cols, p.styles.Text)
	}

	widths := make([]int, cols)
	for _, row := range append([][]string{header}, rows...) {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	sep := p.styles.TableBorder.Render(" │ ")
	joinRow := func(row []string) string {
		cells := make([]string, cols)
		for i, cell := range row {
			cells[i] = alignCell(cell, widths[i]-lipgloss.Width(cell), p.alignment(t, i))
		}
		return truncate.StringWithTail(strings.Join(cells, sep), uint(width), "…")
	}

	var lines []string
	if len(t.Header) > 0 {
		lines = append(lines, joinRow(header))
		rules := make([]string, cols)
		for i, w := range widths {
			rules[i] = strings.Repeat("─", w)
		}
		rule := p.styles.TableBorder.Render(strings.Join(rules, "─┼─"))
		lines = append(lines, truncate.String(rule, uint(width)))
	}
	for _, row := range rows {
		lines = append(lines, joinRow(row))
	}
	return strings.Join(lines, "\n")
}

// paintCells paints row padded with empty cells up to cols.
func (p *Painter) paintCells(row []Cell, cols int, st lipgloss.Style) []string {
	out := make([]string, cols)
	for i := 0; i < cols && i < len(row); i++ {
		out[i] = p.paintInlines(row[i], st)
	}
	return out
}

func (p *Painter) alignment(t Table, col int) Alignment {
	if col < len(t.Align) {
		return t.Align[col]
	}
	return AlignNone
}

func alignCell(s string, pad int, a Alignment) string {
	if pad <= 0 {
		return s
	}
	switch a {
	case AlignRight:
		return strings.Repeat(" ", pad) + s
	case AlignCenter:
		left := pad / 2
		return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
	default:
		return s + strings.Repeat(" ", pad)
	}
}
