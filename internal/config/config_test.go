// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable ApplyEnvOverrides reads.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "JAIME_PROVIDER", "JAIME_MODEL", "JAIME_BASE_URL",
		"JAIME_OLLAMA_URL", "JAIME_SYSTEM_PROMPT", "JAIME_LAYOUT", "JAIME_DEBUG",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestConfig_Default(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ProviderOpenAI, cfg.Completion.Provider)
	assert.Equal(t, "gpt-4", cfg.Completion.Model)
	assert.Equal(t, DefaultSystemPrompt, cfg.Completion.SystemPrompt)
	assert.Equal(t, 30*time.Second, cfg.Completion.MaxDuration.Duration)
	assert.Equal(t, 100*time.Millisecond, cfg.Stream.BatchInterval.Duration)
	assert.Equal(t, 1, cfg.Scroll.PinThreshold)
	assert.Equal(t, 80*time.Millisecond, cfg.Scroll.ResizeDebounce.Duration)
	assert.Equal(t, LayoutCompact, cfg.UI.Layout)
	assert.Equal(t, 5*time.Second, cfg.UI.BannerTimeout.Duration)
	assert.Equal(t, DefaultSuggestedPrompts, cfg.UI.SuggestedPrompts)
	assert.NoError(t, cfg.Validate())
}

// =============================================================================
// LOADING
// =============================================================================

func TestLoadFromPath_MissingFileYieldsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadFromPath_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[completion]
provider = "ollama"
max_duration = "45s"

[stream]
batch_interval = "0s"

[ui]
layout = "expanded"
suggested_prompts = ["One", "Two"]
`)

	cfg, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, cfg.Completion.Provider)
	assert.Equal(t, 45*time.Second, cfg.Completion.MaxDuration.Duration)
	assert.Zero(t, cfg.Stream.BatchInterval.Duration, "explicit zero disables batching")
	assert.Equal(t, LayoutExpanded, cfg.UI.Layout)
	assert.Equal(t, []string{"One", "Two"}, cfg.UI.SuggestedPrompts)
	assert.Equal(t, "gpt-4", cfg.Completion.Model, "absent keys keep defaults")
	assert.Equal(t, 5*time.Second, cfg.UI.BannerTimeout.Duration)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "permissions tightened on load")
}

func TestLoadFromPath_InvalidValues(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[completion]
provider = "bard"

[ui]
layout = "sideways"
`)

	_, err := LoadFromPath(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)
	fields := make([]string, len(verrs))
	for i, e := range verrs {
		fields[i] = e.Field
	}
	assert.ElementsMatch(t, []string{"completion.provider", "ui.layout"}, fields)
}

func TestLoadFromPath_BadDuration(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[completion]\nmax_duration = \"soon\"\n")

	_, err := LoadFromPath(path)
	assert.ErrorContains(t, err, "invalid duration")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad base url", func(c *Config) { c.Completion.BaseURL = "ftp://x" }, "completion.base_url"},
		{"short max duration", func(c *Config) { c.Completion.MaxDuration = D(time.Millisecond) }, "completion.max_duration"},
		{"negative batch", func(c *Config) { c.Stream.BatchInterval = D(-time.Second) }, "stream.batch_interval"},
		{"zero threshold", func(c *Config) { c.Scroll.PinThreshold = 0 }, "scroll.pin_threshold"},
		{"too many prompts", func(c *Config) { c.UI.SuggestedPrompts = []string{"a", "b", "c", "d", "e"} }, "ui.suggested_prompts"},
		{"blank prompt", func(c *Config) { c.UI.SuggestedPrompts = []string{" "} }, "ui.suggested_prompts[0]"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var verrs ValidateErrors
			require.ErrorAs(t, err, &verrs)
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("JAIME_PROVIDER", "Ollama")
	t.Setenv("JAIME_MODEL", "qwen2.5")
	t.Setenv("JAIME_LAYOUT", "EXPANDED")
	t.Setenv("JAIME_DEBUG", "1")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, "sk-env", cfg.Completion.APIKey)
	assert.Equal(t, ProviderOllama, cfg.Completion.Provider)
	assert.Equal(t, "qwen2.5", cfg.Ollama.Model, "model applies to the selected provider")
	assert.Equal(t, "gpt-4", cfg.Completion.Model)
	assert.Equal(t, "qwen2.5", cfg.ActiveModel())
	assert.Equal(t, LayoutExpanded, cfg.UI.Layout)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "OPENAI_API_KEY=sk-dotenv\nJAIME_MODEL=gpt-4o\n")
	t.Setenv("JAIME_MODEL", "already-set")
	os.Unsetenv("OPENAI_API_KEY")
	t.Cleanup(func() { os.Unsetenv("OPENAI_API_KEY") })

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	require.NoError(t, LoadDotEnv())
	assert.Equal(t, "sk-dotenv", os.Getenv("OPENAI_API_KEY"))
	assert.Equal(t, "already-set", os.Getenv("JAIME_MODEL"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.NoError(t, LoadDotEnv())
}

// =============================================================================
// SAVE
// =============================================================================

func TestSaveTOML_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := Default()
	cfg.Completion.Provider = ProviderDev
	cfg.Stream.BatchInterval = D(0)
	cfg.UI.NotifyOnComplete = false
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConfig_StringRedactsKey(t *testing.T) {
	cfg := Default()
	cfg.Completion.APIKey = "sk-very-secret"

	out := cfg.String()
	assert.NotContains(t, out, "sk-very-secret")
	assert.Contains(t, out, "[REDACTED]")
	assert.Equal(t, "sk-very-secret", cfg.Completion.APIKey, "original untouched")
}

func TestConfig_Clone(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.UI.SuggestedPrompts[0] = "changed"
	assert.Equal(t, DefaultSuggestedPrompts[0], cfg.UI.SuggestedPrompts[0])
}

// =============================================================================
// GLOBAL
// =============================================================================

func TestConfig_GlobalConcurrentAccess(t *testing.T) {
	ResetGlobalForTesting()
	t.Cleanup(ResetGlobalForTesting)

	SetGlobal(Default())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				cfg := Default()
				cfg.UI.Layout = LayoutExpanded
				SetGlobal(cfg)
				return
			}
			assert.NotNil(t, Global())
		}(i)
	}
	wg.Wait()
	assert.Equal(t, LayoutExpanded, Global().UI.Layout)
}

// =============================================================================
// WATCH
// =============================================================================

func TestWatch_ReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[ui]\nbanner_timeout = \"5s\"\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := Watch(ctx, path, 20*time.Millisecond)
	require.NoError(t, err)

	writeFile(t, path, "[ui]\nbanner_timeout = \"9s\"\n")

	select {
	case ch := <-changes:
		require.NoError(t, ch.Err)
		assert.Equal(t, 9*time.Second, ch.Config.UI.BannerTimeout.Duration)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload delivered")
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, ok := <-changes
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatch_IgnoresSiblingFiles(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := Watch(ctx, path, 20*time.Millisecond)
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "other.txt"), "x")

	select {
	case ch := <-changes:
		t.Fatalf("unexpected reload: %+v", ch)
	case <-time.After(200 * time.Millisecond):
	}
}
