// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"strings"
	"time"
	"unicode"
)

// DefaultReply is streamed when a Script has neither Reply nor Chunks.
const DefaultReply = "Hi there! I'm **Jaime**, the local demo assistant.\n\n" +
	"Here is what I can show you:\n\n" +
	"- Markdown with *emphasis* and `inline code`\n" +
	"- Links such as [the docs](https://example.com/docs)\n\n" +
	"```go\nfmt.Println(\"hello from the dev server\")\n```\n"

// Script controls how the server answers every request.
type Script struct {
	// Chunks are sent verbatim, one per event. Takes precedence over Reply.
	Chunks []string

	// Reply is split into word-sized chunks when Chunks is empty.
	Reply string

	// ChunkDelay is the pause before each chunk.
	ChunkDelay time.Duration

	// FailAfter aborts the connection after that many chunks when > 0.
	FailAfter int

	// Status answers with this HTTP error status instead of streaming when set.
	Status int

	// APIKey, when set, is required as a Bearer token on /v1 routes.
	APIKey string

	// Echo prefixes the reply with the last user message.
	Echo bool
}

// chunksFor returns the chunk sequence for a request whose last user
// message is lastUser.
func (s Script) chunksFor(lastUser string) []string {
	if len(s.Chunks) > 0 {
		out := make([]string, len(s.Chunks))
		copy(out, s.Chunks)
		return out
	}
	reply := s.Reply
	if reply == "" {
		reply = DefaultReply
	}
	if s.Echo && lastUser != "" {
		reply = "You said: " + lastUser + "\n\n" + reply
	}
	return SplitWords(reply)
}

// SplitWords splits text into chunks that each end after a run of
// whitespace, so concatenating them restores the input exactly.
func SplitWords(text string) []string {
	var chunks []string
	start := 0
	inSpace := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if inSpace && !space {
			chunks = append(chunks, text[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(text) {
		chunks = append(chunks, text[start:])
	}
	return chunks
}

// Expected returns the text a client should assemble from a complete
// stream answering lastUser.
func (s Script) Expected(lastUser string) string {
	return strings.Join(s.chunksFor(lastUser), "")
}
