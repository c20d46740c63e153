// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream implements the stream ingestion controller: the state
// machine that owns the single outstanding request to a completion service
// and applies its chunks to the transcript.
//
// The controller is driven from one event loop. Submit starts the transport
// on a goroutine and returns the session's event channel; the caller feeds
// each event back through Apply. Every transcript write happens inside
// Submit, Apply, Flush, Cancel or Expire, never on the transport goroutine.
package stream

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/jaime-tui/internal/completion"
	"github.com/jeranaias/jaime-tui/internal/model"
)

// DefaultMaxDuration bounds a whole exchange.
const DefaultMaxDuration = 30 * time.Second

// eventBuffer sizes each session channel so a fast transport rarely waits
// on the event loop.
const eventBuffer = 64

var (
	// ErrEmptyInput is returned for empty or whitespace-only submissions.
	ErrEmptyInput = errors.New("empty message")

	// ErrBusy is returned when a submit arrives while a session is not idle.
	ErrBusy = errors.New("a reply is already in progress")
)

// Options configures a Controller.
type Options struct {
	// System is sent as the system instruction with every request.
	System string
	// MaxDuration bounds each exchange; zero disables the bound.
	MaxDuration time.Duration
	// BatchInterval coalesces chunks; zero applies every chunk immediately.
	BatchInterval time.Duration
	Logger        *slog.Logger
	// Now is the clock used for batching and failure timestamps.
	Now func() time.Time
}

// Outcome tells the caller what an operation did.
type Outcome struct {
	// Changed is set when the transcript was mutated.
	Changed bool
	// FlushPending is set when batched text waits for a Flush call.
	FlushPending bool
	// Done is set when the session left Submitted/Streaming.
	Done bool
	// Failure is set when the operation surfaced an error.
	Failure *Failure
}

// Controller is the stream ingestion controller.
type Controller struct {
	store *model.Store
	svc   completion.Service
	opts  Options
	log   *slog.Logger

	phase  Phase
	batch  *batcher
	cancel *cancelManager
}

// New creates a controller writing to store and reading from svc.
func New(store *model.Store, svc completion.Service, opts Options) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		store:  store,
		svc:    svc,
		opts:   opts,
		log:    logger.With("component", "stream"),
		phase:  Idle{},
		batch:  newBatcher(opts.BatchInterval),
		cancel: newCancelManager(),
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Phase returns the current session phase.
func (c *Controller) Phase() Phase {
	return c.phase
}

// Status returns the current session status.
func (c *Controller) Status() Status {
	return c.phase.Status()
}

// Store returns the transcript the controller writes to.
func (c *Controller) Store() *model.Store {
	return c.store
}

// SessionID returns the live session, or "" when idle or errored.
func (c *Controller) SessionID() string {
	return sessionOf(c.phase)
}

// BatchInterval returns the chunk batching interval.
func (c *Controller) BatchInterval() time.Duration {
	return c.opts.BatchInterval
}

// MaxDuration returns the exchange bound.
func (c *Controller) MaxDuration() time.Duration {
	return c.opts.MaxDuration
}

// SetSystem replaces the system instruction for later requests.
func (c *Controller) SetSystem(system string) {
	c.opts.System = system
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit appends a user turn and starts a completion request.
//
// Empty input returns ErrEmptyInput and a non-idle session returns ErrBusy;
// neither changes any state. Missing service setup moves the session to
// Errored with a configuration failure before any turn is appended.
// The returned channel yields the session's events and is closed when the
// transport goroutine exits.
func (c *Controller) Submit(ctx context.Context, text string) (<-chan Event, error) {
	text = norm.NFC.String(text)
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	if c.phase.Status() != StatusIdle {
		c.log.Debug("submit rejected", "status", c.phase.Status())
		return nil, ErrBusy
	}

	if err := c.svc.Ready(); err != nil {
		failure := newFailure(completion.Classify(c.svc.Name(), err), c.opts.Now())
		c.phase = Errored{Failure: failure}
		c.log.Warn("service not ready", "provider", c.svc.Name(), "error", err)
		return nil, failure
	}

	user := model.NewUserTurn(text)
	snap, err := c.store.Append(user)
	if err != nil {
		out := c.violation(err)
		return nil, out.Failure
	}

	sessionID := uuid.NewString()
	req := buildRequest(c.opts.System, snap)

	// sessCtx ends when the session is abandoned; reqCtx additionally
	// carries the exchange deadline. Sends select on sessCtx so a timeout
	// error is still delivered while a cancel drops everything.
	sessCtx, abandon := context.WithCancel(ctx)
	reqCtx := sessCtx
	if c.opts.MaxDuration > 0 {
		var stop context.CancelFunc
		reqCtx, stop = context.WithTimeout(sessCtx, c.opts.MaxDuration)
		inner := abandon
		abandon = func() {
			stop()
			inner()
		}
	}
	c.cancel.set(abandon)

	events := make(chan Event, eventBuffer)
	go run(sessCtx, reqCtx, c.svc, c.opts.MaxDuration, sessionID, req, events)

	now := c.opts.Now()
	c.batch = newBatcher(c.opts.BatchInterval)
	c.phase = Submitted{SessionID: sessionID, UserTurnID: user.ID, StartedAt: now}
	c.log.Info("submitted",
		"session", sessionID,
		"provider", c.svc.Name(),
		"turns", snap.Len(),
		"chars", len(text))

	return events, nil
}

// run performs the request on its own goroutine. It touches no controller
// state; everything it reports travels on out.
func run(sessCtx, reqCtx context.Context, svc completion.Service, limit time.Duration, sessionID string, req completion.Request, out chan<- Event) {
	defer close(out)

	send := func(ev Event) bool {
		select {
		case out <- ev:
			return true
		case <-sessCtx.Done():
			return false
		}
	}

	err := svc.Stream(reqCtx, req, func(delta string) {
		send(ChunkEvent{SessionID: sessionID, Delta: delta})
	})

	switch {
	case sessCtx.Err() != nil:
		// Cancelled by the user or torn down; nobody is listening.
		return
	case err == nil:
		send(EndEvent{SessionID: sessionID})
	case errors.Is(reqCtx.Err(), context.DeadlineExceeded):
		send(ErrorEvent{SessionID: sessionID, Err: completion.NewTimeout(svc.Name(), limit)})
	default:
		send(ErrorEvent{SessionID: sessionID, Err: completion.Classify(svc.Name(), err)})
	}
}

// buildRequest converts the transcript to a completion request.
// Empty assistant turns (failed or cancelled before any text) are skipped.
func buildRequest(system string, snap model.Snapshot) completion.Request {
	msgs := make([]completion.Message, 0, snap.Len())
	for i := 0; i < snap.Len(); i++ {
		turn := snap.At(i)
		if turn.Role == model.RoleAssistant && turn.IsEmpty() {
			continue
		}
		msgs = append(msgs, completion.Message{Role: turn.Role.String(), Content: turn.Content})
	}
	return completion.Request{System: system, Messages: msgs}
}

// =============================================================================
// EVENT APPLICATION
// =============================================================================

// Apply applies one event from a session channel. Events whose session is
// not the live one are dropped.
func (c *Controller) Apply(ev Event) Outcome {
	if ev == nil || ev.Session() == "" || ev.Session() != sessionOf(c.phase) {
		return Outcome{}
	}
	switch ev := ev.(type) {
	case ChunkEvent:
		return c.onChunk(ev.Delta)
	case EndEvent:
		return c.onEnd()
	case ErrorEvent:
		return c.onError(ev.Err)
	default:
		return Outcome{}
	}
}

func (c *Controller) onChunk(delta string) Outcome {
	var out Outcome

	if sub, ok := c.phase.(Submitted); ok {
		reply := model.NewAssistantTurn()
		if _, err := c.store.Append(reply); err != nil {
			return c.violation(err)
		}
		c.phase = Streaming{SessionID: sub.SessionID, TurnID: reply.ID, StartedAt: sub.StartedAt}
		c.log.Debug("first chunk",
			"session", sub.SessionID,
			"latency", c.opts.Now().Sub(sub.StartedAt))
		out.Changed = true
	}

	st, ok := c.phase.(Streaming)
	if !ok {
		return out
	}

	c.batch.Write(delta)
	if text, ok := c.batch.Flush(c.opts.Now()); ok {
		if _, err := c.store.GrowStreamingTurn(st.TurnID, text); err != nil {
			return c.violation(err)
		}
		out.Changed = true
	}
	out.FlushPending = c.batch.Pending() > 0
	return out
}

func (c *Controller) onEnd() Outcome {
	switch p := c.phase.(type) {
	case Submitted:
		c.log.Warn("stream ended without content", "session", p.SessionID)
		c.release()
		c.phase = Idle{}
		return Outcome{Done: true}
	case Streaming:
		out := c.finish(p)
		if out.Failure != nil {
			return out
		}
		c.log.Info("finalized",
			"session", p.SessionID,
			"turn", p.TurnID,
			"elapsed", c.opts.Now().Sub(p.StartedAt))
		c.phase = Idle{}
		out.Done = true
		return out
	default:
		return Outcome{}
	}
}

func (c *Controller) onError(err error) Outcome {
	var out Outcome
	sessionID := sessionOf(c.phase)

	if st, ok := c.phase.(Streaming); ok {
		out = c.finish(st)
		if out.Failure != nil {
			return out
		}
	} else {
		c.release()
	}

	failure := newFailure(err, c.opts.Now())
	c.log.Warn("stream failed", "session", sessionID, "kind", failure.Kind, "error", err)
	c.phase = Errored{SessionID: sessionID, Failure: failure}
	out.Done = true
	out.Failure = failure
	return out
}

// finish flushes pending text and finalizes the streaming turn.
func (c *Controller) finish(st Streaming) Outcome {
	var out Outcome
	c.release()
	if text, ok := c.batch.ForceFlush(); ok {
		if _, err := c.store.GrowStreamingTurn(st.TurnID, text); err != nil {
			return c.violation(err)
		}
		out.Changed = true
	}
	before := c.store.Snapshot().Version()
	snap, err := c.store.Finalize(st.TurnID)
	if err != nil {
		return c.violation(err)
	}
	if snap.Version() != before {
		out.Changed = true
	}
	return out
}

// Flush releases batched text when the batching interval allows it.
// The caller schedules it after an Outcome with FlushPending.
func (c *Controller) Flush() Outcome {
	st, ok := c.phase.(Streaming)
	if !ok {
		return Outcome{}
	}
	var out Outcome
	if text, ok := c.batch.Flush(c.opts.Now()); ok {
		if _, err := c.store.GrowStreamingTurn(st.TurnID, text); err != nil {
			return c.violation(err)
		}
		out.Changed = true
	}
	out.FlushPending = c.batch.Pending() > 0
	return out
}

// =============================================================================
// USER ACTIONS
// =============================================================================

// Cancel aborts the live request. The reply turn, if any, is finalized with
// exactly the content received so far and the session returns to Idle.
func (c *Controller) Cancel() Outcome {
	switch p := c.phase.(type) {
	case Submitted:
		c.release()
		c.phase = Idle{}
		c.log.Info("cancelled before first chunk", "session", p.SessionID)
		return Outcome{Done: true}
	case Streaming:
		out := c.finish(p)
		if out.Failure != nil {
			return out
		}
		c.phase = Idle{}
		c.log.Info("cancelled", "session", p.SessionID, "turn", p.TurnID)
		out.Done = true
		return out
	default:
		return Outcome{}
	}
}

// Expire forces the session to Errored when it has outlived MaxDuration.
// It covers transports that do not honour their context deadline; a stale
// session ID or an exchange still within bounds is ignored.
func (c *Controller) Expire(sessionID string) Outcome {
	if c.opts.MaxDuration <= 0 || sessionID == "" || sessionID != sessionOf(c.phase) {
		return Outcome{}
	}
	var started time.Time
	switch p := c.phase.(type) {
	case Submitted:
		started = p.StartedAt
	case Streaming:
		started = p.StartedAt
	}
	if c.opts.Now().Sub(started) < c.opts.MaxDuration {
		return Outcome{}
	}
	c.log.Warn("exchange exceeded maximum duration", "session", sessionID, "limit", c.opts.MaxDuration)
	return c.onError(completion.NewTimeout(c.svc.Name(), c.opts.MaxDuration))
}

// Acknowledge dismisses an error and returns the session to Idle.
func (c *Controller) Acknowledge() bool {
	if _, ok := c.phase.(Errored); !ok {
		return false
	}
	c.phase = Idle{}
	return true
}

// Reset cancels any live request and clears the transcript.
func (c *Controller) Reset() Outcome {
	c.release()
	c.batch = newBatcher(c.opts.BatchInterval)
	c.phase = Idle{}
	c.store.Reset()
	c.log.Info("transcript reset")
	return Outcome{Changed: true, Done: true}
}

// Close releases the transport of any live session. It is safe to call from
// any goroutine and more than once.
func (c *Controller) Close() {
	c.cancel.cancel()
}

// release cancels the session context, freeing the transport.
func (c *Controller) release() {
	c.cancel.cancel()
}

// violation handles a transcript invariant failure: it is logged as a
// defect, the transport is released and the session is forced to Idle.
func (c *Controller) violation(err error) Outcome {
	sessionID := sessionOf(c.phase)
	c.log.Error("transcript invariant violated", "session", sessionID, "error", err)
	c.release()
	if st, ok := c.phase.(Streaming); ok {
		if _, ferr := c.store.Finalize(st.TurnID); ferr != nil {
			c.log.Error("finalize after violation failed", "turn", st.TurnID, "error", ferr)
		}
	}
	c.batch = newBatcher(c.opts.BatchInterval)
	c.phase = Idle{}
	return Outcome{Changed: true, Done: true, Failure: newFailure(err, c.opts.Now())}
}
