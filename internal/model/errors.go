// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownTurn indicates a turn ID that is absent or not in the expected state.
	ErrUnknownTurn = errors.New("unknown turn")

	// ErrInvariant is matched by every InvariantViolation.
	ErrInvariant = errors.New("transcript invariant violated")
)

// InvariantViolation reports a mutation that would break a transcript invariant.
// It indicates a programming error in the caller, never a user or network fault.
type InvariantViolation struct {
	Op     string
	TurnID string
	Reason string
}

func (e *InvariantViolation) Error() string {
	if e.TurnID != "" {
		return fmt.Sprintf("%s: turn %s: %s", e.Op, e.TurnID, e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// Is lets errors.Is(err, ErrInvariant) match any violation.
func (e *InvariantViolation) Is(target error) bool {
	return target == ErrInvariant
}

// UnknownTurnError names the turn a mutation could not be applied to.
type UnknownTurnError struct {
	Op     string
	TurnID string
	Reason string
}

func (e *UnknownTurnError) Error() string {
	return fmt.Sprintf("%s: turn %s: %s", e.Op, e.TurnID, e.Reason)
}

// Unwrap returns ErrUnknownTurn.
func (e *UnknownTurnError) Unwrap() error {
	return ErrUnknownTurn
}
