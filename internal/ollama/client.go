// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/jaime-tui/internal/completion"
)

// ProviderName identifies this provider in config and logs.
const ProviderName = "ollama"

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Ollama client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches any ClientError of the same type, so the sentinels below work
// with errors.Is.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	return ok && t.Type == e.Type
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotRunning
	ErrTypeModelNotFound
	ErrTypeInvalidResponse
)

// Sentinel errors for errors.Is checks.
var (
	ErrNotRunning    = &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the Ollama client.
type ClientConfig struct {
	// BaseURL is the Ollama API base URL (default: http://127.0.0.1:11434)
	BaseURL string

	// Model is the model to chat with (default: "llama3.2")
	Model string

	// Timeout bounds non-streaming requests such as health checks.
	Timeout time.Duration

	// KeepAlive is how long Ollama keeps the model loaded after a request.
	KeepAlive string
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:   "http://127.0.0.1:11434",
		Model:     "llama3.2",
		Timeout:   10 * time.Second,
		KeepAlive: "5m",
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a streaming completion.Service for a local Ollama server.
//
// The Client is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a new Ollama client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client, filling zero values from DefaultConfig.
func NewClientWithConfig(config *ClientConfig) *Client {
	def := DefaultConfig()
	if config == nil {
		config = def
	}
	cfg := *config
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}

	return &Client{
		config: &cfg,
		// No client timeout: the stream is bounded by the request context.
		httpClient: &http.Client{},
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithLogger sets the logger.
func (c *Client) WithLogger(l *slog.Logger) *Client {
	if l != nil {
		c.log = l.With("provider", ProviderName)
	}
	return c
}

// WithHTTPClient replaces the HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

// Config returns a copy of the client configuration.
func (c *Client) Config() ClientConfig {
	return *c.config
}

// Name implements completion.Service.
func (c *Client) Name() string { return ProviderName }

// Ready implements completion.Service. A local server needs no credentials.
func (c *Client) Ready() error { return nil }

// =============================================================================
// HEALTH CHECK
// =============================================================================

// CheckRunning verifies the Ollama server answers.
func (c *Client) CheckRunning(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return &ClientError{Type: ErrTypeNotRunning, Message: "failed to create request", Cause: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running", Cause: err}
	}
	drainAndClose(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return &ClientError{Type: ErrTypeNotRunning, Message: "unexpected status: " + resp.Status}
	}
	return nil
}

// ListModels returns the installed models.
func (c *Client) ListModels(ctx context.Context) ([]ModelInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running", Cause: err}
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "list models failed: " + resp.Status}
	}
	var out ListModelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode models", Cause: err}
	}
	return out.Models, nil
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// Stream implements completion.Service.
func (c *Client) Stream(ctx context.Context, req completion.Request, onChunk completion.ChunkFunc) error {
	msgs := req.WithSystem()
	body := ChatRequest{
		Model:     c.config.Model,
		Messages:  make([]Message, len(msgs)),
		Stream:    true,
		KeepAlive: c.config.KeepAlive,
	}
	for i, m := range msgs {
		body.Messages[i] = Message{Role: m.Role, Content: m.Content}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return c.transport(0, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err})
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return c.transport(0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	c.log.Debug("request", "model", c.config.Model, "messages", len(body.Messages))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return c.transport(0, ctx.Err())
		}
		return c.transport(0, &ClientError{Type: ErrTypeNotRunning, Message: "Ollama is not running", Cause: err})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.transport(resp.StatusCode, c.statusError(resp))
	}

	reader := NewStreamReader(resp.Body)
	if err := reader.Process(ctx, onChunk); err != nil {
		return c.transport(0, err)
	}
	c.log.Debug("stream complete", "elapsed", time.Since(start), "chunks", reader.Chunks())
	return nil
}

func (c *Client) statusError(resp *http.Response) error {
	var ollamaErr OllamaError
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	msg := "request failed: " + resp.Status
	if json.Unmarshal(body, &ollamaErr) == nil && ollamaErr.Error != "" {
		msg = ollamaErr.Error
	}
	if resp.StatusCode == http.StatusNotFound {
		return &ClientError{Type: ErrTypeModelNotFound, Message: fmt.Sprintf("model %q not found", c.config.Model), Cause: errors.New(msg)}
	}
	return &ClientError{Type: ErrTypeInvalidResponse, Message: msg}
}

func (c *Client) transport(status int, err error) error {
	return &completion.TransportError{Provider: ProviderName, Status: status, Err: err}
}

// IsModelNotFound checks if the error indicates a missing model.
func IsModelNotFound(err error) bool {
	return errors.Is(err, ErrModelNotFound)
}

// IsNotRunning checks if the error indicates Ollama is not reachable.
func IsNotRunning(err error) bool {
	return errors.Is(err, ErrNotRunning)
}

// drainAndClose drains and closes a response body so the connection can be
// reused.
func drainAndClose(r io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64*1024))
	r.Close()
}
