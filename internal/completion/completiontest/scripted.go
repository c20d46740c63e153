// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package completiontest provides a scripted completion.Service for tests.
package completiontest

import (
	"context"
	"sync"

	"github.com/jeranaias/jaime-tui/internal/completion"
)

// Scripted streams a fixed list of chunks and then returns Err.
//
// When Gate is non-nil each chunk waits for a value on Gate before it is
// delivered, letting a test interleave actions with chunk arrival.
// IgnoreContext makes Stream keep blocking after cancellation, to simulate a
// transport that never honours its context.
type Scripted struct {
	Chunks        []string
	Err           error
	NotReady      error
	Gate          chan struct{}
	IgnoreContext bool

	mu       sync.Mutex
	requests []completion.Request
	finished chan struct{}
}

// New returns a Scripted service streaming chunks.
func New(chunks ...string) *Scripted {
	return &Scripted{Chunks: chunks}
}

// Name implements completion.Service.
func (s *Scripted) Name() string { return "scripted" }

// Ready implements completion.Service.
func (s *Scripted) Ready() error { return s.NotReady }

// Stream implements completion.Service.
func (s *Scripted) Stream(ctx context.Context, req completion.Request, onChunk completion.ChunkFunc) error {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	if s.finished == nil {
		s.finished = make(chan struct{})
	}
	done := s.finished
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		select {
		case <-done:
		default:
			close(done)
		}
	}()

	for _, chunk := range s.Chunks {
		if s.Gate != nil {
			if s.IgnoreContext {
				<-s.Gate
			} else {
				select {
				case <-s.Gate:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		if !s.IgnoreContext && ctx.Err() != nil {
			return ctx.Err()
		}
		onChunk(chunk)
	}
	return s.Err
}

// Requests returns every request received so far.
func (s *Scripted) Requests() []completion.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]completion.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Finished returns a channel closed when the first Stream call returns.
func (s *Scripted) Finished() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished == nil {
		s.finished = make(chan struct{})
	}
	return s.finished
}
