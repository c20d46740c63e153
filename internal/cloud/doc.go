// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the OpenAI-compatible completion provider.
//
// The client speaks the streaming /chat/completions protocol: the request
// carries the conversation with stream=true and the reply arrives as
// Server-Sent Events, one JSON chunk per event, terminated by "data: [DONE]".
// Any endpoint implementing that protocol works through WithBaseURL.
//
// Usage:
//
//	client := cloud.New(os.Getenv("OPENAI_API_KEY")).WithModel("gpt-4")
//	err := client.Stream(ctx, req, func(delta string) { fmt.Print(delta) })
//
// Errors are returned as *completion.ConfigurationError for missing or
// rejected credentials and *completion.TransportError for everything else;
// the sentinels below remain reachable through errors.Is.
package cloud
