// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package completion defines the boundary between the chat widget and a
// streaming completion service.
//
// A Service receives the ordered conversation plus an optional system
// instruction and streams back the assistant reply as text deltas. Providers
// live in their own packages (cloud, ollama); the stream controller only sees
// this interface.
package completion

import (
	"context"
	"strings"
)

// Roles understood by every provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prior turn sent to the service.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a single completion exchange.
type Request struct {
	// System is prepended as a system message when non-empty.
	System string
	// Messages are the prior turns followed by the new user turn.
	Messages []Message
}

// WithSystem returns the messages with System prepended.
func (r Request) WithSystem() []Message {
	if strings.TrimSpace(r.System) == "" {
		out := make([]Message, len(r.Messages))
		copy(out, r.Messages)
		return out
	}
	out := make([]Message, 0, len(r.Messages)+1)
	out = append(out, Message{Role: RoleSystem, Content: r.System})
	return append(out, r.Messages...)
}

// ChunkFunc receives each text delta in arrival order.
type ChunkFunc func(delta string)

// Service is a streaming completion backend.
type Service interface {
	// Name identifies the provider in logs and error messages.
	Name() string

	// Ready reports missing setup without touching the network.
	// It returns nil or a *ConfigurationError.
	Ready() error

	// Stream performs the request and calls onChunk for every delta.
	// It blocks until the stream ends; nil means normal end of stream.
	// Cancelling ctx must release the underlying transport promptly.
	Stream(ctx context.Context, req Request, onChunk ChunkFunc) error
}
