// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/jaime-tui/internal/completion"
)

// maxLineSize bounds a single NDJSON line (1MB).
const maxLineSize = 1024 * 1024

// errNoDone reports a stream that closed without a done line.
var errNoDone = errors.New("stream closed before completion")

// =============================================================================
// STREAM READER
// =============================================================================

// StreamReader handles line-by-line JSON parsing of streaming responses.
type StreamReader struct {
	scanner *bufio.Scanner
	chunks  int
	model   string
}

// NewStreamReader creates a new stream reader from an io.Reader.
func NewStreamReader(r io.Reader) *StreamReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &StreamReader{scanner: sc}
}

// Process reads the stream and forwards each content delta to onChunk.
// Blocks until a done line, the end of the body, or context cancellation.
// Malformed lines are skipped.
func (s *StreamReader) Process(ctx context.Context, onChunk completion.ChunkFunc) error {
	for s.scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var resp chatLine
		if err := json.Unmarshal(line, &resp); err != nil {
			continue
		}
		if resp.Error != "" {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: resp.Error}
		}
		if resp.Model != "" {
			s.model = resp.Model
		}
		if resp.Message.Content != "" {
			s.chunks++
			onChunk(resp.Message.Content)
		}
		if resp.Done {
			return nil
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.scanner.Err(); err != nil {
		return fmt.Errorf("stream read error after %d chunks: %w", s.chunks, err)
	}
	return errNoDone
}

// Chunks returns the number of content chunks delivered.
func (s *StreamReader) Chunks() int {
	return s.chunks
}

// Model returns the model reported by the stream.
func (s *StreamReader) Model() string {
	return s.model
}
