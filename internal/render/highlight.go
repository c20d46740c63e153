// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package render

import (
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// SYNTAX HIGHLIGHTING (Chroma-based)
// =============================================================================

// CodeStyle is the chroma style used to color code tokens.
const CodeStyle = "monokai"

// Highlight tokenises code for language. Unknown languages fall back to
// content analysis and then to chroma's plain-text lexer; a tokeniser error
// returns nil and the block paints as plain monospace.
func Highlight(language, code string) []Token {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return nil
	}

	var out []Token
	for _, tok := range iterator.Tokens() {
		out = append(out, Token{Type: tok.Type, Value: tok.Value})
	}
	return out
}

// LanguageName returns chroma's display name for language, or language
// itself when chroma does not know it.
func LanguageName(language string) string {
	if lexer := lexers.Get(language); lexer != nil {
		return lexer.Config().Name
	}
	return language
}

// tokenStyles maps chroma token types to lipgloss styles.
type tokenStyles struct {
	style *chroma.Style
	cache map[chroma.TokenType]lipgloss.Style
}

func newTokenStyles(name string) *tokenStyles {
	style := chromaStyles.Get(name)
	if style == nil {
		style = chromaStyles.Fallback
	}
	return &tokenStyles{style: style, cache: make(map[chroma.TokenType]lipgloss.Style)}
}

func (ts *tokenStyles) get(tt chroma.TokenType) lipgloss.Style {
	if s, ok := ts.cache[tt]; ok {
		return s
	}
	entry := ts.style.Get(tt)
	s := lipgloss.NewStyle()
	if entry.Colour.IsSet() {
		s = s.Foreground(lipgloss.Color(entry.Colour.String()))
	}
	if entry.Bold == chroma.Yes {
		s = s.Bold(true)
	}
	if entry.Italic == chroma.Yes {
		s = s.Italic(true)
	}
	if entry.Underline == chroma.Yes {
		s = s.Underline(true)
	}
	ts.cache[tt] = s
	return s
}
