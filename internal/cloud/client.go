// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
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

// Configuration constants for the OpenAI API.
const (
	// ProviderName identifies this provider in config and logs.
	ProviderName = "openai"

	// DefaultBaseURL is the base URL for the OpenAI API.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is the model used when none is configured.
	DefaultModel = "gpt-4"

	// MaxErrorBodySize bounds how much of an error response is read.
	MaxErrorBodySize = 64 * 1024

	userAgent = "jaime-tui"
)

// sharedStreamingClient is used for all requests. It has no overall timeout;
// the request context bounds each exchange.
var sharedStreamingClient = &http.Client{
	Transport: &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// Error variables for common API errors.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("API key not configured")

	// ErrAuthFailed indicates the API key was rejected.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")

	// ErrInsufficientCredits indicates the account has no quota left.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// APIError represents an error body returned by the API.
type APIError struct {
	Code    string
	Message string
	Status  int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("API error (HTTP %d): %s", e.Status, e.Message)
}

// ChatMessage represents a single message in a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the chat completions endpoint.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// apiErrorResponse represents an error response from the API.
type apiErrorResponse struct {
	Error struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is a streaming completion.Service for OpenAI-compatible endpoints.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        *slog.Logger
}

// New creates a client with the given API key. An empty key still yields a
// client; Ready reports the missing key before any request is made.
func New(apiKey string) *Client {
	return &Client{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultBaseURL,
		model:      DefaultModel,
		httpClient: sharedStreamingClient,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// WithBaseURL sets a custom base URL.
func (c *Client) WithBaseURL(url string) *Client {
	if url = strings.TrimRight(strings.TrimSpace(url), "/"); url != "" {
		c.baseURL = url
	}
	return c
}

// WithModel sets the model.
func (c *Client) WithModel(model string) *Client {
	if model = strings.TrimSpace(model); model != "" {
		c.model = model
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

// WithLogger sets the logger.
func (c *Client) WithLogger(l *slog.Logger) *Client {
	if l != nil {
		c.log = l.With("provider", ProviderName)
	}
	return c
}

// Name implements completion.Service.
func (c *Client) Name() string { return ProviderName }

// Model returns the configured model.
func (c *Client) Model() string { return c.model }

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// IsConfigured returns true if an API key is set.
func (c *Client) IsConfigured() bool {
	return c.apiKey != ""
}

// APIKeyMasked returns a log-safe description of the key.
func (c *Client) APIKeyMasked() string {
	if c.apiKey == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(c.apiKey), c.keyFingerprint())
}

func (c *Client) keyFingerprint() string {
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// Ready implements completion.Service.
func (c *Client) Ready() error {
	if !c.IsConfigured() {
		return &completion.ConfigurationError{
			Provider: ProviderName,
			Reason:   "OpenAI API key is missing",
			Err:      ErrNotConfigured,
		}
	}
	return nil
}

// =============================================================================
// STREAMING
// =============================================================================

// Stream implements completion.Service.
func (c *Client) Stream(ctx context.Context, req completion.Request, onChunk completion.ChunkFunc) error {
	if err := c.Ready(); err != nil {
		return err
	}

	msgs := req.WithSystem()
	body := ChatRequest{Model: c.model, Messages: make([]ChatMessage, len(msgs)), Stream: true}
	for i, m := range msgs {
		body.Messages[i] = ChatMessage{Role: m.Role, Content: m.Content}
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return c.transport(0, fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return c.transport(0, fmt.Errorf("failed to create request: %w", err))
	}
	c.setHeaders(httpReq)

	start := time.Now()
	c.log.Debug("request", "model", c.model, "messages", len(body.Messages), "key", c.APIKeyMasked())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return c.transport(0, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodySize))
		c.log.Warn("request rejected", "status", resp.StatusCode, "elapsed", time.Since(start))
		return c.classifyStatus(resp.StatusCode, c.handleErrorResponse(resp.StatusCode, errBody))
	}

	if err := c.processStream(ctx, resp.Body, onChunk); err != nil {
		return c.transport(0, err)
	}
	c.log.Debug("stream complete", "elapsed", time.Since(start))
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("User-Agent", userAgent)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// handleErrorResponse maps a non-200 response to a sentinel-wrapped error.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		e := &APIError{
			Code:    fmt.Sprint(apiErr.Error.Code),
			Message: apiErr.Error.Message,
			Status:  statusCode,
		}
		if apiErr.Error.Code == nil {
			e.Code = apiErr.Error.Type
		}

		switch statusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", ErrAuthFailed, e.Message)
		case http.StatusPaymentRequired:
			return fmt.Errorf("%w: %s", ErrInsufficientCredits, e.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrModelNotFound, e.Message)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %s", ErrRateLimited, e.Message)
		default:
			return e
		}
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrAuthFailed
	case http.StatusPaymentRequired:
		return ErrInsufficientCredits
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return &APIError{Message: strings.TrimSpace(string(body)), Status: statusCode}
	}
}

// classifyStatus turns a mapped status error into a completion error.
// Rejected credentials are a configuration problem; everything else is a
// recoverable transport failure.
func (c *Client) classifyStatus(status int, err error) error {
	if errors.Is(err, ErrAuthFailed) {
		return &completion.ConfigurationError{
			Provider: ProviderName,
			Reason:   "OpenAI API key was rejected",
			Err:      err,
		}
	}
	return c.transport(status, err)
}

func (c *Client) transport(status int, err error) error {
	return &completion.TransportError{Provider: ProviderName, Status: status, Err: err}
}
