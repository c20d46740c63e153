// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the transcript data structures for a chat session.
//
// # Key Types
//
//   - Turn: one user or assistant message with a stable ID
//   - Store: the append-only transcript, the single source of truth for rendering
//   - Snapshot: an immutable view of the transcript handed to readers
//
// # Usage
//
//	store := model.NewStore()
//	snap, _ := store.Append(model.NewUserTurn("Hello"))
//	reply := model.NewAssistantTurn()
//	snap, _ = store.Append(reply)
//	snap, _ = store.GrowStreamingTurn(reply.ID, "Hi")
//	snap, _ = store.Finalize(reply.ID)
//
// Only the stream controller writes to a Store. Renderers read Snapshots, which
// are never modified after they are handed out.
package model
