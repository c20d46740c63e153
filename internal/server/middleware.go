// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// ============================================================================
// Auth Middleware
// ============================================================================

// authMiddleware requires the scripted API key as a Bearer token.
// Requests pass through when the script sets no key.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		expected := s.currentScript().APIKey
		if expected == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			s.log.Warn("auth denied", "ip", r.RemoteAddr, "reason", "missing_bearer")
			writeError(w, http.StatusUnauthorized, "Incorrect API key provided")
			return
		}

		if !ValidateBearerToken(strings.TrimPrefix(authHeader, "Bearer "), expected) {
			s.log.Warn("auth denied", "ip", r.RemoteAddr, "reason", "invalid_token")
			writeError(w, http.StatusUnauthorized, "Incorrect API key provided")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ValidateBearerToken compares tokens in constant time.
// Returns false if either token is empty.
func ValidateBearerToken(token, expected string) bool {
	if token == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(expected)) == 1
}

// ============================================================================
// Request Logging
// ============================================================================

// requestLogger logs one line per request with status and timing.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.Info("request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
