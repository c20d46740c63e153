// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render turns reply text into a display tree and paints it for the
// terminal.
//
// Render is pure and safe on any prefix of a growing reply: an unterminated
// fence becomes a code block holding the partial text, and a parser failure
// degrades to one plain paragraph instead of propagating.
package render

import (
	"net/url"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// md is shared; goldmark parsers hold no per-parse state.
var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// =============================================================================
// RENDER
// =============================================================================

// Render parses Markdown into a display tree.
func Render(src string) (tree *Tree) {
	if src == "" {
		return &Tree{}
	}
	defer func() {
		if r := recover(); r != nil {
			tree = plainTree(src)
		}
	}()

	source := []byte(src)
	doc := md.Parser().Parse(text.NewReader(source))
	c := converter{src: source}
	return &Tree{Blocks: c.blocks(doc)}
}

func plainTree(src string) *Tree {
	return &Tree{
		Blocks:   []Block{Paragraph{Inlines: []Inline{Text{Value: src}}}},
		Degraded: true,
	}
}

// converter walks a goldmark AST over its source buffer.
type converter struct {
	src []byte
}

// =============================================================================
// BLOCKS
// =============================================================================

func (c converter) blocks(parent ast.Node) []Block {
	var out []Block
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		if b := c.block(n); b != nil {
			out = append(out, b)
		} else if n.HasChildren() {
			out = append(out, c.blocks(n)...)
		}
	}
	return out
}

func (c converter) block(n ast.Node) Block {
	switch n := n.(type) {
	case *ast.Paragraph:
		return Paragraph{Inlines: c.inlines(n)}
	case *ast.TextBlock:
		return Paragraph{Inlines: c.inlines(n)}
	case *ast.Heading:
		return Heading{Level: n.Level, Inlines: c.inlines(n)}
	case *ast.ThematicBreak:
		return Rule{}
	case *ast.Blockquote:
		return Quote{Blocks: c.blocks(n)}
	case *ast.List:
		return c.list(n)
	case *ast.FencedCodeBlock:
		lang := strings.TrimSpace(string(n.Language(c.src)))
		code := c.lines(n)
		block := CodeBlock{Language: lang, Code: code}
		if lang != "" {
			block.Tokens = Highlight(lang, code)
		}
		return block
	case *ast.CodeBlock:
		return CodeBlock{Code: c.lines(n)}
	case *ast.HTMLBlock:
		raw := c.lines(n)
		if n.HasClosure() {
			raw += "\n" + string(n.ClosureLine.Value(c.src))
		}
		return Paragraph{Inlines: []Inline{Text{Value: strings.TrimRight(raw, "\n")}}}
	case *east.Table:
		return c.table(n)
	default:
		return nil
	}
}

func (c converter) list(n *ast.List) List {
	l := List{Ordered: n.IsOrdered(), Start: n.Start}
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		li := ListItem{Blocks: c.blocks(item)}
		if first := item.FirstChild(); first != nil {
			if box, ok := first.FirstChild().(*east.TaskCheckBox); ok {
				li.Task = true
				li.Checked = box.IsChecked
			}
		}
		l.Items = append(l.Items, li)
	}
	return l
}

func (c converter) table(n *east.Table) Table {
	t := Table{}
	for _, a := range n.Alignments {
		t.Align = append(t.Align, alignment(a))
	}
	for row := n.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []Cell
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, Cell(c.inlines(cell)))
		}
		if _, ok := row.(*east.TableHeader); ok {
			t.Header = cells
			continue
		}
		t.Rows = append(t.Rows, cells)
	}
	return t
}

func alignment(a east.Alignment) Alignment {
	switch a {
	case east.AlignLeft:
		return AlignLeft
	case east.AlignCenter:
		return AlignCenter
	case east.AlignRight:
		return AlignRight
	default:
		return AlignNone
	}
}

// lines joins the raw source lines of a block node.
func (c converter) lines(n ast.Node) string {
	var b strings.Builder
	segs := n.Lines()
	for i := 0; i < segs.Len(); i++ {
		seg := segs.At(i)
		b.Write(seg.Value(c.src))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// =============================================================================
// INLINES
// =============================================================================

func (c converter) inlines(parent ast.Node) []Inline {
	var out []Inline
	for n := parent.FirstChild(); n != nil; n = n.NextSibling() {
		out = append(out, c.inline(n)...)
	}
	return mergeText(out)
}

func (c converter) inline(n ast.Node) []Inline {
	switch n := n.(type) {
	case *ast.Text:
		out := []Inline{Text{Value: string(n.Segment.Value(c.src))}}
		switch {
		case n.HardLineBreak():
			out = append(out, Break{Hard: true})
		case n.SoftLineBreak():
			out = append(out, Break{})
		}
		return out
	case *ast.String:
		return []Inline{Text{Value: string(n.Value)}}
	case *ast.CodeSpan:
		return []Inline{Code{Value: c.plain(n)}}
	case *ast.Emphasis:
		children := c.inlines(n)
		if n.Level >= 2 {
			return []Inline{Strong{Children: children}}
		}
		return []Inline{Emphasis{Children: children}}
	case *east.Strikethrough:
		return []Inline{Strike{Children: c.inlines(n)}}
	case *ast.Link:
		dest := string(n.Destination)
		return []Inline{Link{
			Destination: dest,
			Title:       string(n.Title),
			External:    isExternal(dest),
			Children:    c.inlines(n),
		}}
	case *ast.AutoLink:
		dest := string(n.URL(c.src))
		return []Inline{Link{
			Destination: dest,
			External:    isExternal(dest),
			Children:    []Inline{Text{Value: string(n.Label(c.src))}},
		}}
	case *ast.Image:
		return []Inline{Image{Destination: string(n.Destination), Alt: c.plain(n)}}
	case *ast.RawHTML:
		var b strings.Builder
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(c.src))
		}
		return []Inline{Text{Value: b.String()}}
	case *east.TaskCheckBox:
		// Carried on the list item.
		return nil
	default:
		return c.inlines(n)
	}
}

// plain flattens the text beneath n.
func (c converter) plain(n ast.Node) string {
	var b strings.Builder
	for ch := n.FirstChild(); ch != nil; ch = ch.NextSibling() {
		switch ch := ch.(type) {
		case *ast.Text:
			b.Write(ch.Segment.Value(c.src))
			if ch.SoftLineBreak() || ch.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(ch.Value)
		default:
			b.WriteString(c.plain(ch))
		}
	}
	return b.String()
}

// mergeText joins adjacent Text inlines.
func mergeText(in []Inline) []Inline {
	out := in[:0:0]
	for _, n := range in {
		if t, ok := n.(Text); ok {
			if t.Value == "" {
				continue
			}
			if last := len(out) - 1; last >= 0 {
				if prev, ok := out[last].(Text); ok {
					out[last] = Text{Value: prev.Value + t.Value}
					continue
				}
			}
		}
		out = append(out, n)
	}
	return out
}

// isExternal reports whether dest leaves the site: an absolute http(s) URL
// or a scheme-relative one.
func isExternal(dest string) bool {
	u, err := url.Parse(strings.TrimSpace(dest))
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u.Host != ""
	case "":
		return strings.HasPrefix(dest, "//") && u.Host != ""
	}
	return false
}
