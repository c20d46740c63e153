// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"errors"
	"fmt"
	"time"

	"github.com/jeranaias/jaime-tui/internal/completion"
	"github.com/jeranaias/jaime-tui/internal/model"
)

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status names the phase of the stream session.
type Status int

const (
	StatusIdle Status = iota
	StatusSubmitted
	StatusStreaming
	StatusErrored
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSubmitted:
		return "submitted"
	case StatusStreaming:
		return "streaming"
	case StatusErrored:
		return "errored"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// =============================================================================
// SESSION PHASES
// =============================================================================

// Phase is the stream session as a tagged variant. Exactly one of Idle,
// Submitted, Streaming or Errored is current at any time.
type Phase interface {
	Status() Status
	isPhase()
}

// Idle means no request is outstanding.
type Idle struct{}

// Submitted means the request is issued and no chunk has arrived yet.
type Submitted struct {
	SessionID  string
	UserTurnID string
	StartedAt  time.Time
}

// Streaming means chunks are arriving for TurnID.
type Streaming struct {
	SessionID string
	TurnID    string
	StartedAt time.Time
}

// Errored holds the failure until it is acknowledged.
type Errored struct {
	SessionID string
	Failure   *Failure
}

func (Idle) Status() Status      { return StatusIdle }
func (Submitted) Status() Status { return StatusSubmitted }
func (Streaming) Status() Status { return StatusStreaming }
func (Errored) Status() Status   { return StatusErrored }

func (Idle) isPhase()      {}
func (Submitted) isPhase() {}
func (Streaming) isPhase() {}
func (Errored) isPhase()   {}

// sessionOf returns the live session ID, or "" when nothing is in flight.
func sessionOf(p Phase) string {
	switch p := p.(type) {
	case Submitted:
		return p.SessionID
	case Streaming:
		return p.SessionID
	default:
		return ""
	}
}

// =============================================================================
// FAILURES
// =============================================================================

// FailureKind classifies a failure for presentation.
type FailureKind int

const (
	// FailureConfiguration is missing or rejected setup; shown as a top-level notice.
	FailureConfiguration FailureKind = iota
	// FailureTransport is a recoverable network or stream failure.
	FailureTransport
	// FailureInvariant is a programming error; the session is forced idle.
	FailureInvariant
)

func (k FailureKind) String() string {
	switch k {
	case FailureConfiguration:
		return "configuration"
	case FailureTransport:
		return "transport"
	case FailureInvariant:
		return "invariant"
	default:
		return "unknown"
	}
}

// Failure is the typed error value handed to the presentation layer.
type Failure struct {
	Kind FailureKind
	Err  error
	At   time.Time
}

func (f *Failure) Error() string {
	return f.Kind.String() + ": " + f.Err.Error()
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// UserMessage returns the text shown in the banner.
func (f *Failure) UserMessage() string {
	var cfgErr *completion.ConfigurationError
	if errors.As(f.Err, &cfgErr) {
		return cfgErr.UserMessage()
	}
	if f.Kind == FailureInvariant {
		return "Internal error. The conversation was reset to a safe state."
	}
	return completion.UserFacingFailure
}

func newFailure(err error, at time.Time) *Failure {
	kind := FailureTransport
	var cfgErr *completion.ConfigurationError
	switch {
	case errors.As(err, &cfgErr):
		kind = FailureConfiguration
	case errors.Is(err, model.ErrInvariant), errors.Is(err, model.ErrUnknownTurn):
		kind = FailureInvariant
	}
	return &Failure{Kind: kind, Err: err, At: at}
}

// =============================================================================
// EVENTS
// =============================================================================

// Event is delivered on a session's channel by the transport goroutine.
type Event interface {
	Session() string
}

// ChunkEvent carries one text delta.
type ChunkEvent struct {
	SessionID string
	Delta     string
}

// EndEvent signals normal end of stream.
type EndEvent struct {
	SessionID string
}

// ErrorEvent carries a classified transport or configuration error.
type ErrorEvent struct {
	SessionID string
	Err       error
}

func (e ChunkEvent) Session() string { return e.SessionID }
func (e EndEvent) Session() string   { return e.SessionID }
func (e ErrorEvent) Session() string { return e.SessionID }
