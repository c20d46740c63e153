// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the local completion provider backed by an Ollama
// server.
//
// Replies stream from POST /api/chat as newline-delimited JSON, one object
// per line, the last carrying "done": true. No credentials are involved, so
// Ready never fails; an unreachable server surfaces as a
// *completion.TransportError on the first request.
package ollama
