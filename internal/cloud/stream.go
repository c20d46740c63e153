// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

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

// MaxEventSize is the maximum size of a single SSE line (1MB).
const MaxEventSize = 1024 * 1024

// doneMarker terminates an OpenAI stream.
var doneMarker = []byte("[DONE]")

// =============================================================================
// STREAMING TYPES
// =============================================================================

// StreamChunk is a single chunk of a streaming response.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
			Role    string `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Content returns the first choice's delta content.
func (c *StreamChunk) Content() string {
	if len(c.Choices) > 0 {
		return c.Choices[0].Delta.Content
	}
	return ""
}

// IsDone returns true if the chunk carries a finish reason.
func (c *StreamChunk) IsDone() bool {
	return len(c.Choices) > 0 && c.Choices[0].FinishReason != nil && *c.Choices[0].FinishReason != ""
}

// streamErrorEvent is an error delivered in place of a chunk mid-stream.
type streamErrorEvent struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReaderSize(r, 32*1024)}
}

// ReadEvent reads the next SSE event from the stream.
// Returns the event type, the joined data lines, and any error.
// Returns io.EOF when the stream ends cleanly.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte
	size := 0

	for {
		line, err := s.reader.ReadBytes('\n')
		size += len(line)
		if size > MaxEventSize {
			return "", nil, fmt.Errorf("SSE event exceeds %d bytes", MaxEventSize)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if len(dataLines) > 0 {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				if len(bytes.TrimSpace(line)) > 0 {
					// Connection dropped mid-line.
					return "", nil, io.ErrUnexpectedEOF
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event
		if len(line) == 0 {
			if len(dataLines) > 0 {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			size = 0
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[6:]))
		case bytes.HasPrefix(line, []byte("data:")):
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
		// Ignore other fields (id:, retry:, comments starting with :)
	}
}

// =============================================================================
// STREAM PROCESSING
// =============================================================================

// errNoDone reports a stream that closed without [DONE] or a finish reason.
var errNoDone = errors.New("stream closed before completion")

// processStream reads SSE events and forwards content deltas to onChunk.
// Malformed chunks are skipped. The stream ends on [DONE] or on a chunk
// carrying a finish reason.
func (c *Client) processStream(ctx context.Context, body io.Reader, onChunk completion.ChunkFunc) error {
	reader := NewSSEReader(body)
	chunks := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, data, err := reader.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return errNoDone
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("stream read error after %d chunks: %w", chunks, err)
		}

		if bytes.Equal(data, doneMarker) {
			return nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			c.log.Debug("skipping malformed chunk", "error", err, "size", len(data))
			continue
		}

		if len(chunk.Choices) == 0 {
			var ev streamErrorEvent
			if json.Unmarshal(data, &ev) == nil && ev.Error != nil {
				return &APIError{Code: ev.Error.Type, Message: ev.Error.Message}
			}
			continue
		}

		if delta := chunk.Content(); delta != "" {
			chunks++
			onChunk(delta)
		}

		if chunk.IsDone() {
			return nil
		}
	}
}
