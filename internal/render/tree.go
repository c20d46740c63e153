// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import "github.com/alecthomas/chroma/v2"

// =============================================================================
// DISPLAY TREE
// =============================================================================

// Tree is the rendered form of a reply. It is immutable once returned.
type Tree struct {
	Blocks []Block
	// Degraded is set when the parser failed and the text is shown as a
	// single plain paragraph.
	Degraded bool
}

// Block is a block-level element.
type Block interface {
	isBlock()
}

// Paragraph is a run of inline content.
type Paragraph struct {
	Inlines []Inline
}

// Heading is an ATX or setext heading, Level 1 through 6.
type Heading struct {
	Level   int
	Inlines []Inline
}

// List is an ordered or unordered list.
type List struct {
	Ordered bool
	Start   int
	Items   []ListItem
}

// ListItem is one list entry. Task is set for GFM task list items.
type ListItem struct {
	Task    bool
	Checked bool
	Blocks  []Block
}

// Quote is a block quote.
type Quote struct {
	Blocks []Block
}

// CodeBlock is a fenced or indented code block. Tokens is set only when the
// fence names a language.
type CodeBlock struct {
	Language string
	Code     string
	Tokens   []Token
}

// Rule is a thematic break.
type Rule struct{}

// Table is a GFM table.
type Table struct {
	Align  []Alignment
	Header []Cell
	Rows   [][]Cell
}

// Cell is the inline content of a table cell.
type Cell []Inline

// Alignment is a table column alignment.
type Alignment int

const (
	AlignNone Alignment = iota
	AlignLeft
	AlignCenter
	AlignRight
)

func (Paragraph) isBlock() {}
func (Heading) isBlock()   {}
func (List) isBlock()      {}
func (Quote) isBlock()     {}
func (CodeBlock) isBlock() {}
func (Rule) isBlock()      {}
func (Table) isBlock()     {}

// Inline is an inline element.
type Inline interface {
	isInline()
}

// Text is literal text.
type Text struct {
	Value string
}

// Emphasis is italic text.
type Emphasis struct {
	Children []Inline
}

// Strong is bold text.
type Strong struct {
	Children []Inline
}

// Strike is struck-through text.
type Strike struct {
	Children []Inline
}

// Code is an inline code span.
type Code struct {
	Value string
}

// Link is a hyperlink. External is set for http and https destinations.
type Link struct {
	Destination string
	Title       string
	External    bool
	Children    []Inline
}

// Image is shown as its alt text.
type Image struct {
	Destination string
	Alt         string
}

// Break is a line break; soft breaks render as a space.
type Break struct {
	Hard bool
}

func (Text) isInline()     {}
func (Emphasis) isInline() {}
func (Strong) isInline()   {}
func (Strike) isInline()   {}
func (Code) isInline()     {}
func (Link) isInline()     {}
func (Image) isInline()    {}
func (Break) isInline()    {}

// Token is one syntax-highlighted span of a code block.
type Token struct {
	Type  chroma.TokenType
	Value string
}
