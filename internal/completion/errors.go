// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// UserFacingFailure is the banner text for recoverable failures.
const UserFacingFailure = "Sorry, something went wrong. We are on it."

// ErrTimeout indicates the exchange exceeded its maximum duration.
var ErrTimeout = errors.New("exchange exceeded maximum duration")

// =============================================================================
// CONFIGURATION ERROR
// =============================================================================

// ConfigurationError reports missing or rejected credentials or setup.
// It is fatal for the attempt; retrying without fixing the setup will fail again.
type ConfigurationError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("configuration error (%s): %s", e.Provider, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// UserMessage returns the notice shown to the user.
func (e *ConfigurationError) UserMessage() string {
	return e.Reason
}

// =============================================================================
// TRANSPORT ERROR
// =============================================================================

// TransportError reports a network, HTTP, or stream failure.
// The session recovers and the user may resubmit.
type TransportError struct {
	Provider string
	// Status is the HTTP status code, or 0 for connection-level failures.
	Status int
	// Timeout is set when the exchange hit its maximum duration.
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	switch {
	case e.Timeout:
		return fmt.Sprintf("transport error (%s): %v", e.Provider, ErrTimeout)
	case e.Status != 0:
		return fmt.Sprintf("transport error (%s, HTTP %d): %v", e.Provider, e.Status, e.Err)
	default:
		return fmt.Sprintf("transport error (%s): %v", e.Provider, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	if e.Timeout && e.Err == nil {
		return ErrTimeout
	}
	return e.Err
}

// Is matches ErrTimeout for timed out exchanges.
func (e *TransportError) Is(target error) bool {
	return target == ErrTimeout && e.Timeout
}

// UserMessage returns the banner text.
func (e *TransportError) UserMessage() string {
	return UserFacingFailure
}

// NewTimeout builds the error used when an exchange runs past limit.
func NewTimeout(provider string, limit time.Duration) *TransportError {
	return &TransportError{
		Provider: provider,
		Timeout:  true,
		Err:      fmt.Errorf("no end of stream after %s: %w", limit, ErrTimeout),
	}
}

// Classify converts any service error into a *ConfigurationError or a
// *TransportError. Typed errors pass through unchanged.
func Classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr
	}
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return tErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Provider: provider, Timeout: true, Err: err}
	}
	return &TransportError{Provider: provider, Err: err}
}
