// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
)

// =============================================================================
// SNAPSHOT
// =============================================================================

// Snapshot is an immutable view of the transcript at one version.
// The zero value is an empty transcript.
type Snapshot struct {
	turns     []Turn
	version   uint64
	streaming int // index of the streaming turn, or -1
}

func emptySnapshot(version uint64) Snapshot {
	return Snapshot{version: version, streaming: -1}
}

// Version increases by one with every mutation, including Reset.
func (s Snapshot) Version() uint64 {
	return s.version
}

// Len returns the number of turns.
func (s Snapshot) Len() int {
	return len(s.turns)
}

// At returns the turn at index i.
func (s Snapshot) At(i int) Turn {
	return s.turns[i]
}

// Turns returns a copy of the turns in creation order.
func (s Snapshot) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Last returns the most recent turn.
func (s Snapshot) Last() (Turn, bool) {
	if len(s.turns) == 0 {
		return Turn{}, false
	}
	return s.turns[len(s.turns)-1], true
}

// Get returns the turn with the given ID.
func (s Snapshot) Get(id string) (Turn, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.turns[i], true
	}
	return Turn{}, false
}

// Streaming returns the turn currently receiving content, if any.
func (s Snapshot) Streaming() (Turn, bool) {
	if s.streaming < 0 || s.streaming >= len(s.turns) {
		return Turn{}, false
	}
	return s.turns[s.streaming], true
}

// LastOfRole returns the most recent turn with the given role.
func (s Snapshot) LastOfRole(role Role) (Turn, bool) {
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Role == role {
			return s.turns[i], true
		}
	}
	return Turn{}, false
}

func (s Snapshot) indexOf(id string) int {
	// Lookups almost always target the newest turn.
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// STORE
// =============================================================================

// Store is the append-only transcript.
//
// Every mutation builds a new Snapshot (copy-on-write) and notifies
// subscribers synchronously, after the store lock is released. Reads are safe
// from any goroutine; writes are expected from a single owner.
type Store struct {
	mu          sync.RWMutex
	current     Snapshot
	subscribers []func(Snapshot)
}

// NewStore creates an empty transcript.
func NewStore() *Store {
	return &Store{current: emptySnapshot(0)}
}

// Snapshot returns the current immutable view.
func (st *Store) Snapshot() Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// Subscribe registers fn to be called with every new snapshot.
func (st *Store) Subscribe(fn func(Snapshot)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.subscribers = append(st.subscribers, fn)
}

// Append adds a turn at the end of the transcript.
//
// Appending a streaming turn while another turn is streaming, or reusing an
// existing ID, returns an *InvariantViolation and leaves the store unchanged.
func (st *Store) Append(turn Turn) (Snapshot, error) {
	st.mu.Lock()
	cur := st.current
	if turn.IsStreaming() && cur.streaming >= 0 {
		st.mu.Unlock()
		return cur, &InvariantViolation{
			Op:     "append",
			TurnID: turn.ID,
			Reason: "turn " + cur.turns[cur.streaming].ID + " is already streaming",
		}
	}
	if cur.indexOf(turn.ID) >= 0 {
		st.mu.Unlock()
		return cur, &InvariantViolation{Op: "append", TurnID: turn.ID, Reason: "duplicate turn id"}
	}

	turns := make([]Turn, len(cur.turns), len(cur.turns)+1)
	copy(turns, cur.turns)
	turns = append(turns, turn)

	next := Snapshot{turns: turns, version: cur.version + 1, streaming: cur.streaming}
	if turn.IsStreaming() {
		next.streaming = len(turns) - 1
	}
	return st.commitLocked(next), nil
}

// GrowStreamingTurn appends delta to the content of the active streaming turn.
// An empty delta is a no-op that still validates the target.
func (st *Store) GrowStreamingTurn(id, delta string) (Snapshot, error) {
	st.mu.Lock()
	cur := st.current
	i := cur.indexOf(id)
	if i < 0 {
		st.mu.Unlock()
		return cur, &UnknownTurnError{Op: "grow", TurnID: id, Reason: "no such turn"}
	}
	if i != cur.streaming {
		st.mu.Unlock()
		return cur, &UnknownTurnError{Op: "grow", TurnID: id, Reason: "not the streaming turn"}
	}
	if delta == "" {
		st.mu.Unlock()
		return cur, nil
	}

	turns := make([]Turn, len(cur.turns))
	copy(turns, cur.turns)
	turns[i].Content += delta

	return st.commitLocked(Snapshot{turns: turns, version: cur.version + 1, streaming: cur.streaming}), nil
}

// Finalize marks a turn immutable. Finalizing a final turn is a no-op.
func (st *Store) Finalize(id string) (Snapshot, error) {
	st.mu.Lock()
	cur := st.current
	i := cur.indexOf(id)
	if i < 0 {
		st.mu.Unlock()
		return cur, &UnknownTurnError{Op: "finalize", TurnID: id, Reason: "no such turn"}
	}
	if !cur.turns[i].IsStreaming() {
		st.mu.Unlock()
		return cur, nil
	}

	turns := make([]Turn, len(cur.turns))
	copy(turns, cur.turns)
	turns[i].Status = StatusFinal

	return st.commitLocked(Snapshot{turns: turns, version: cur.version + 1, streaming: -1}), nil
}

// Reset clears every turn. Used only for an explicit new chat.
func (st *Store) Reset() Snapshot {
	st.mu.Lock()
	return st.commitLocked(emptySnapshot(st.current.version + 1))
}

// commitLocked installs next, releases the lock, and notifies subscribers.
func (st *Store) commitLocked(next Snapshot) Snapshot {
	st.current = next
	subs := make([]func(Snapshot), len(st.subscribers))
	copy(subs, st.subscribers)
	st.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next
}
