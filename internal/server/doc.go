// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides a scripted local completion server for development
// and tests.
//
// Endpoints:
//   - POST /v1/chat/completions - OpenAI-compatible streaming (SSE)
//   - POST /api/chat            - Ollama-compatible streaming (NDJSON)
//   - GET  /v1/models           - Model listing
//   - GET  /health              - Health check
//
// Replies come from a Script rather than a model, so streaming behaviour
// (chunk timing, mid-stream connection loss, rejected credentials) can be
// reproduced on demand.
package server
