// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const helloBody = `{"model":"m","stream":true,"messages":[{"role":"user","content":"Hello"}]}`

func newTestServer(t *testing.T, script Script) (*Server, *httptest.Server) {
	t.Helper()
	s := New(script, nil)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func post(t *testing.T, url, body, key string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// sseContent collects delta content from an SSE body and reports whether
// [DONE] was seen.
func sseContent(t *testing.T, body io.Reader) (string, bool) {
	t.Helper()
	var out strings.Builder
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			return out.String(), true
		}
		var chunk sseChunk
		require.NoError(t, json.Unmarshal([]byte(data), &chunk))
		require.Len(t, chunk.Choices, 1)
		out.WriteString(chunk.Choices[0].Delta["content"])
	}
	return out.String(), false
}

// =============================================================================
// SCRIPT TESTS
// =============================================================================

func TestSplitWords_RoundTrips(t *testing.T) {
	inputs := []string{
		"",
		"Hi",
		"Hi there!",
		"  leading and trailing  ",
		"line one\n\n```go\nx := 1\n```\n",
	}
	for _, in := range inputs {
		assert.Equal(t, in, strings.Join(SplitWords(in), ""), "input %q", in)
	}
	assert.Equal(t, []string{"Hi ", "there!"}, SplitWords("Hi there!"))
}

func TestScript_Expected(t *testing.T) {
	assert.Equal(t, "Hi there!", Script{Chunks: []string{"Hi", " there", "!"}}.Expected("x"))
	assert.Equal(t, DefaultReply, Script{}.Expected("x"))
	assert.True(t, strings.HasPrefix(Script{Echo: true, Reply: "ok"}.Expected("ping"), "You said: ping"))
}

// =============================================================================
// OPENAI ENDPOINT TESTS
// =============================================================================

func TestChatCompletions_StreamsChunksThenDone(t *testing.T) {
	s, ts := newTestServer(t, Script{Chunks: []string{"Hi", " there", "!"}})

	resp := post(t, ts.URL+"/v1/chat/completions", helloBody, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	content, done := sseContent(t, resp.Body)
	assert.Equal(t, "Hi there!", content)
	assert.True(t, done)

	req, ok := s.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "m", req.Model)
	assert.Equal(t, []Message{{Role: "user", Content: "Hello"}}, req.Messages)
	assert.Eventually(t, func() bool { return s.Stats().Completed == 1 }, time.Second, 10*time.Millisecond)
}

func TestChatCompletions_RequiresKeyWhenScripted(t *testing.T) {
	_, ts := newTestServer(t, Script{APIKey: "sk-test"})

	resp := post(t, ts.URL+"/v1/chat/completions", helloBody, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, ts.URL+"/v1/chat/completions", helloBody, "wrong")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = post(t, ts.URL+"/v1/chat/completions", helloBody, "sk-test")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestChatCompletions_ScriptedStatus(t *testing.T) {
	_, ts := newTestServer(t, Script{Status: http.StatusTooManyRequests})

	resp := post(t, ts.URL+"/v1/chat/completions", helloBody, "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	var body struct {
		Error struct {
			Type string `json:"type"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "rate_limit_error", body.Error.Type)
}

func TestChatCompletions_FailAfterDropsConnection(t *testing.T) {
	s, ts := newTestServer(t, Script{Chunks: []string{"Partial", " answer", " never"}, FailAfter: 2})

	resp := post(t, ts.URL+"/v1/chat/completions", helloBody, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err := io.ReadAll(resp.Body)
	assert.Error(t, err, "truncated chunked body")
	assert.Eventually(t, func() bool { return s.Stats().Aborted == 1 }, time.Second, 10*time.Millisecond)
}

func TestChatCompletions_RejectsBadRequests(t *testing.T) {
	_, ts := newTestServer(t, Script{})

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"no messages", `{"messages":[]}`},
		{"bad role", `{"messages":[{"role":"tool","content":"x"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+"/v1/chat/completions", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

// =============================================================================
// OLLAMA ENDPOINT TESTS
// =============================================================================

func TestOllamaChat_StreamsNDJSON(t *testing.T) {
	_, ts := newTestServer(t, Script{Chunks: []string{"Hi", " there", "!"}})

	resp := post(t, ts.URL+"/api/chat", helloBody, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	dec := json.NewDecoder(resp.Body)
	var content strings.Builder
	var sawDone bool
	for {
		var chunk ndjsonChunk
		err := dec.Decode(&chunk)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		content.WriteString(chunk.Message.Content)
		if chunk.Done {
			sawDone = true
		}
	}
	assert.Equal(t, "Hi there!", content.String())
	assert.True(t, sawDone)
}

// =============================================================================
// MISC
// =============================================================================

func TestHealthAndModels(t *testing.T) {
	_, ts := newTestServer(t, Script{APIKey: "k"})

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/v1/models", nil)
	req.Header.Set("Authorization", "Bearer k")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestValidateBearerToken(t *testing.T) {
	assert.True(t, ValidateBearerToken("abc", "abc"))
	assert.False(t, ValidateBearerToken("abc", "abd"))
	assert.False(t, ValidateBearerToken("", ""))
	assert.False(t, ValidateBearerToken("abc", ""))
}
