// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultAddr is the listen address for the dev server.
	DefaultAddr = "127.0.0.1:8787"

	// MaxRequestBodySize is the maximum size for a request body (1MB).
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxMessageCount is the maximum number of messages in a request.
	MaxMessageCount = 200

	// ModelName is reported in every response.
	ModelName = "jaime-dev"
)

// validRoles defines the set of acceptable message roles.
var validRoles = map[string]bool{
	"user":      true,
	"assistant": true,
	"system":    true,
}

// ============================================================================
// WIRE TYPES
// ============================================================================

// Message is one conversation turn on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the body accepted by both chat endpoints.
type Request struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type sseChoice struct {
	Index        int               `json:"index"`
	Delta        map[string]string `json:"delta"`
	FinishReason *string           `json:"finish_reason"`
}

type sseChunk struct {
	ID      string      `json:"id"`
	Object  string      `json:"object"`
	Created int64       `json:"created"`
	Model   string      `json:"model"`
	Choices []sseChoice `json:"choices"`
}

type ndjsonChunk struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Message   Message   `json:"message"`
	Done      bool      `json:"done"`
}

// ============================================================================
// SERVER
// ============================================================================

// Stats counts traffic seen by the server.
type Stats struct {
	Requests  int64 `json:"requests"`
	Completed int64 `json:"completed"`
	Aborted   int64 `json:"aborted"`
	Active    int64 `json:"active"`
}

// Server answers completion requests from a Script.
type Server struct {
	router chi.Router
	server *http.Server
	log    *slog.Logger

	mu     sync.RWMutex
	script Script

	requests  atomic.Int64
	completed atomic.Int64
	aborted   atomic.Int64
	active    atomic.Int64

	lastMu  sync.Mutex
	lastReq *Request
}

// New creates a server answering with script.
func New(script Script, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Server{script: script, log: logger}
	s.setupRoutes()
	return s
}

// SetScript replaces the script for subsequent requests.
func (s *Server) SetScript(script Script) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = script
}

func (s *Server) currentScript() Script {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.script
}

// Handler returns the routed handler, for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Stats returns a snapshot of the traffic counters.
func (s *Server) Stats() Stats {
	return Stats{
		Requests:  s.requests.Load(),
		Completed: s.completed.Load(),
		Aborted:   s.aborted.Load(),
		Active:    s.active.Load(),
	}
}

// LastRequest returns the most recent decoded completion request.
func (s *Server) LastRequest() (Request, bool) {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	if s.lastReq == nil {
		return Request{}, false
	}
	req := *s.lastReq
	req.Messages = append([]Message(nil), s.lastReq.Messages...)
	return req, true
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(v1 chi.Router) {
		v1.Use(s.authMiddleware)
		v1.Get("/models", s.handleModels)
		v1.Post("/chat/completions", s.handleChatCompletions)
	})

	r.Post("/api/chat", s.handleOllamaChat)

	s.router = r
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stats":  s.Stats(),
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": ModelName, "object": "model", "owned_by": "jaime"},
		},
	})
}

func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	script := s.currentScript()
	if script.Status != 0 {
		writeError(w, script.Status, fmt.Sprintf("scripted failure (HTTP %d)", script.Status))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()
	send := func(delta map[string]string, finish *string) {
		data, _ := json.Marshal(sseChunk{
			ID:      id,
			Object:  "chat.completion.chunk",
			Created: created,
			Model:   ModelName,
			Choices: []sseChoice{{Delta: delta, FinishReason: finish}},
		})
		fmt.Fprintf(w, "data: %s\n\n", data)
	}

	s.stream(w, r, script, lastUser(req.Messages),
		func(chunk string) { send(map[string]string{"content": chunk}, nil) },
		func() {
			stop := "stop"
			send(map[string]string{}, &stop)
			fmt.Fprint(w, "data: [DONE]\n\n")
		})
}

func (s *Server) handleOllamaChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	script := s.currentScript()
	if script.Status != 0 {
		writeJSON(w, script.Status, map[string]string{"error": fmt.Sprintf("scripted failure (HTTP %d)", script.Status)})
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	s.stream(w, r, script, lastUser(req.Messages),
		func(chunk string) {
			_ = enc.Encode(ndjsonChunk{
				Model:     ModelName,
				CreatedAt: time.Now().UTC(),
				Message:   Message{Role: "assistant", Content: chunk},
			})
		},
		func() {
			_ = enc.Encode(ndjsonChunk{
				Model:     ModelName,
				CreatedAt: time.Now().UTC(),
				Message:   Message{Role: "assistant"},
				Done:      true,
			})
		})
}

// stream writes the scripted chunks through write, flushing after each one,
// then calls finish. A FailAfter script aborts the connection instead.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, script Script, user string, write func(string), finish func()) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	s.active.Add(1)
	defer s.active.Add(-1)

	ctx := r.Context()
	chunks := script.chunksFor(user)
	for i, chunk := range chunks {
		if script.FailAfter > 0 && i >= script.FailAfter {
			s.aborted.Add(1)
			s.log.Debug("aborting stream", "after_chunks", i, "request_id", middleware.GetReqID(ctx))
			panic(http.ErrAbortHandler)
		}
		if !sleepCtx(ctx, script.ChunkDelay) {
			s.aborted.Add(1)
			return
		}
		write(chunk)
		flusher.Flush()
	}
	if script.FailAfter > 0 && script.FailAfter <= len(chunks) {
		s.aborted.Add(1)
		panic(http.ErrAbortHandler)
	}
	finish()
	flusher.Flush()
	s.completed.Add(1)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*Request, bool) {
	s.requests.Add(1)
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return nil, false
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages must not be empty")
		return nil, false
	}
	if len(req.Messages) > MaxMessageCount {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("too many messages (max %d)", MaxMessageCount))
		return nil, false
	}
	for i, m := range req.Messages {
		if !validRoles[m.Role] {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid role '%s' at message %d", m.Role, i))
			return nil, false
		}
	}

	s.lastMu.Lock()
	s.lastReq = &req
	s.lastMu.Unlock()
	return &req, true
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// ListenAndServe serves on addr until Shutdown is called.
func (s *Server) ListenAndServe(addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	srv := s.server
	s.mu.Unlock()

	s.log.Info("dev server listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv := s.server
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	s.log.Info("dev server shutting down", "stats", s.Stats())
	return srv.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an OpenAI-style JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": message,
			"type":    errorType(status),
			"code":    status,
		},
	})
}

func errorType(status int) string {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return "authentication_error"
	case http.StatusTooManyRequests:
		return "rate_limit_error"
	case http.StatusBadRequest:
		return "invalid_request_error"
	default:
		return "server_error"
	}
}

func lastUser(msgs []Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}

// sleepCtx waits d or until ctx is done. It reports whether the wait
// completed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
