// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Jaime"
	default:
		return string(r)
	}
}

// =============================================================================
// TURN STATUS
// =============================================================================

// TurnStatus tracks whether a turn may still grow.
type TurnStatus int

const (
	// StatusFinal turns are immutable.
	StatusFinal TurnStatus = iota
	// StatusStreaming turns accept content growth from the active stream.
	StatusStreaming
)

func (s TurnStatus) String() string {
	if s == StatusStreaming {
		return "streaming"
	}
	return "final"
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is one message in the transcript.
//
// Turns are values: a Store copies them in and out, so a Turn obtained from a
// Snapshot is never changed by later mutations.
type Turn struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Status    TurnStatus `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewUserTurn creates a finalized user turn.
func NewUserTurn(content string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Status:    StatusFinal,
		CreatedAt: time.Now(),
	}
}

// NewAssistantTurn creates an empty assistant turn in streaming state.
func NewAssistantTurn() Turn {
	return Turn{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Status:    StatusStreaming,
		CreatedAt: time.Now(),
	}
}

// IsStreaming reports whether the turn is still receiving content.
func (t Turn) IsStreaming() bool {
	return t.Status == StatusStreaming
}

// IsEmpty returns true if the turn has no visible content.
func (t Turn) IsEmpty() bool {
	return t.Content == ""
}
