// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jeranaias/jaime-tui/internal/cloud"
	"github.com/jeranaias/jaime-tui/internal/completion"
	"github.com/jeranaias/jaime-tui/internal/config"
	"github.com/jeranaias/jaime-tui/internal/ollama"
	"github.com/jeranaias/jaime-tui/internal/server"
)

// devChunkDelay paces the in-process dev server so replies visibly stream.
const devChunkDelay = 40 * time.Millisecond

// devAPIKey is the bearer token the in-process dev server is started with.
const devAPIKey = "jaime-dev"

// newService builds the completion service selected by cfg. The returned
// release func must be called once the service is no longer used.
func newService(cfg *config.Config, log *slog.Logger) (completion.Service, func(), error) {
	switch cfg.Completion.Provider {
	case config.ProviderOllama:
		client := ollama.NewClientWithConfig(&ollama.ClientConfig{
			BaseURL: cfg.Ollama.URL,
			Model:   cfg.Ollama.Model,
		}).WithLogger(log)
		return client, func() {}, nil

	case config.ProviderDev:
		return startDevService(server.Script{ChunkDelay: devChunkDelay, APIKey: devAPIKey}, log)

	case config.ProviderOpenAI:
		client := cloud.New(cfg.Completion.APIKey).
			WithBaseURL(cfg.Completion.BaseURL).
			WithModel(cfg.Completion.Model).
			WithLogger(log)
		if client.IsConfigured() {
			log.Debug("openai client ready", "key", client.APIKeyMasked(), "model", client.Model())
		}
		return client, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown provider %q", cfg.Completion.Provider)
	}
}

// devService is the OpenAI client pointed at an in-process dev server.
type devService struct {
	*cloud.Client
}

// Name implements completion.Service.
func (devService) Name() string { return config.ProviderDev }

// startDevService starts the scripted server on a loopback port and returns
// a client for it. release shuts the server down.
func startDevService(script server.Script, log *slog.Logger) (completion.Service, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, nil, fmt.Errorf("dev server: %w", err)
	}

	srv := server.New(script, log.With("component", "devserver"))
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
			log.Error("dev server stopped", "error", err)
		}
	}()

	key := script.APIKey
	if key == "" {
		key = devAPIKey
	}
	client := cloud.New(key).
		WithBaseURL("http://" + ln.Addr().String() + "/v1").
		WithModel(server.ModelName).
		WithLogger(log)

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn("dev server shutdown", "error", err)
		}
		ln.Close()
		<-done
	}
	return devService{client}, release, nil
}
