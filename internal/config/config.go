// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/jaime-tui/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// Provider names accepted in [completion] provider.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderDev    = "dev"
)

// Layout names accepted in [ui] layout.
const (
	LayoutCompact  = "compact"
	LayoutExpanded = "expanded"
)

// DefaultSystemPrompt is the persona instruction sent with every exchange.
const DefaultSystemPrompt = "You are Jaime, a helpful AI assistant."

// MaxSuggestedPrompts is the number of prompt slots the shell can show.
const MaxSuggestedPrompts = 4

// DefaultSuggestedPrompts are offered on an empty conversation.
var DefaultSuggestedPrompts = []string{
	"Show me case studies in ...",
	"What do you do best?",
	"Summarize this page",
	"Talk to an expert",
}

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete jaime configuration.
type Config struct {
	Version string `toml:"version"`

	Completion CompletionConfig `toml:"completion"`
	Ollama     OllamaConfig     `toml:"ollama"`
	Stream     StreamConfig     `toml:"stream"`
	Scroll     ScrollConfig     `toml:"scroll"`
	UI         UIConfig         `toml:"ui"`
	Log        LogConfig        `toml:"log"`
}

// CompletionConfig selects and configures the completion service.
type CompletionConfig struct {
	// Provider is one of "openai", "ollama" or "dev".
	Provider string `toml:"provider"`

	// Model for the openai provider.
	Model string `toml:"model"`

	// BaseURL of an OpenAI-compatible endpoint.
	BaseURL string `toml:"base_url"`

	// APIKey for the openai provider. Prefer OPENAI_API_KEY.
	APIKey string `toml:"api_key"`

	SystemPrompt string `toml:"system_prompt"`

	// MaxDuration bounds a single exchange.
	MaxDuration Duration `toml:"max_duration"`
}

// OllamaConfig configures the local provider.
type OllamaConfig struct {
	URL   string `toml:"url"`
	Model string `toml:"model"`
}

// StreamConfig tunes how chunks reach the transcript.
type StreamConfig struct {
	// BatchInterval is the minimum gap between transcript mutations.
	// Zero disables batching.
	BatchInterval Duration `toml:"batch_interval"`
}

// ScrollConfig tunes the transcript auto-scroll.
type ScrollConfig struct {
	// PinThreshold is the distance from the bottom, in lines, under which the
	// view follows new content.
	PinThreshold int `toml:"pin_threshold"`

	ResizeDebounce Duration `toml:"resize_debounce"`
}

// UIConfig holds presentation settings.
type UIConfig struct {
	Layout           string   `toml:"layout"`
	BannerTimeout    Duration `toml:"banner_timeout"`
	NotifyOnComplete bool     `toml:"notify_on_complete"`
	NotifyAfter      Duration `toml:"notify_after"`
	SuggestedPrompts []string `toml:"suggested_prompts"`
}

// LogConfig configures the log file.
type LogConfig struct {
	Path  string `toml:"path"`
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		Completion: CompletionConfig{
			Provider:     ProviderOpenAI,
			Model:        "gpt-4",
			BaseURL:      "https://api.openai.com/v1",
			SystemPrompt: DefaultSystemPrompt,
			MaxDuration:  D(30 * time.Second),
		},
		Ollama: OllamaConfig{
			URL:   "http://127.0.0.1:11434",
			Model: "llama3.2",
		},
		Stream: StreamConfig{
			BatchInterval: D(100 * time.Millisecond),
		},
		Scroll: ScrollConfig{
			PinThreshold:   1,
			ResizeDebounce: D(80 * time.Millisecond),
		},
		UI: UIConfig{
			Layout:           LayoutCompact,
			BannerTimeout:    D(5 * time.Second),
			NotifyOnComplete: true,
			NotifyAfter:      D(10 * time.Second),
			SuggestedPrompts: append([]string(nil), DefaultSuggestedPrompts...),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the jaime configuration directory path.
// JAIME_HOME overrides the default ~/.jaime.
func ConfigDir() (string, error) {
	if dir := os.Getenv("JAIME_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".jaime"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DefaultLogPath returns the log file used when [log] path is empty.
func DefaultLogPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "jaime.log"), nil
}

// ensureSecurePermissions tightens a config file to 0600 since it may hold
// an API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// LoadDotEnv loads .env from the working directory without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load loads the configuration from the default path.
// A missing file yields the defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML file with full
// validation. A missing file yields the defaults.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, statErr)
	}

	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// fillDefaults restores defaults for values that must never be empty.
// Zero durations that carry meaning (batch_interval = "0s") are kept.
func fillDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.Completion.Provider == "" {
		cfg.Completion.Provider = defaults.Completion.Provider
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = defaults.Completion.Model
	}
	if cfg.Completion.BaseURL == "" {
		cfg.Completion.BaseURL = defaults.Completion.BaseURL
	}
	if cfg.Completion.MaxDuration.Duration == 0 {
		cfg.Completion.MaxDuration = defaults.Completion.MaxDuration
	}
	if cfg.Ollama.URL == "" {
		cfg.Ollama.URL = defaults.Ollama.URL
	}
	if cfg.Ollama.Model == "" {
		cfg.Ollama.Model = defaults.Ollama.Model
	}
	if cfg.Scroll.PinThreshold == 0 {
		cfg.Scroll.PinThreshold = defaults.Scroll.PinThreshold
	}
	if cfg.UI.Layout == "" {
		cfg.UI.Layout = defaults.UI.Layout
	}
	if cfg.UI.BannerTimeout.Duration == 0 {
		cfg.UI.BannerTimeout = defaults.UI.BannerTimeout
	}
	if len(cfg.UI.SuggestedPrompts) == 0 {
		cfg.UI.SuggestedPrompts = defaults.UI.SuggestedPrompts
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides.
//
// Supported variables:
//   - OPENAI_API_KEY: overrides completion.api_key
//   - JAIME_PROVIDER: overrides completion.provider
//   - JAIME_MODEL: overrides the model of the selected provider
//   - JAIME_BASE_URL: overrides completion.base_url
//   - JAIME_OLLAMA_URL: overrides ollama.url
//   - JAIME_SYSTEM_PROMPT: overrides completion.system_prompt
//   - JAIME_LAYOUT: overrides ui.layout
//   - JAIME_DEBUG: sets log.level to debug when truthy
func (c *Config) ApplyEnvOverrides() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Completion.APIKey = key
	}
	if provider := os.Getenv("JAIME_PROVIDER"); provider != "" {
		c.Completion.Provider = strings.ToLower(provider)
	}
	if model := os.Getenv("JAIME_MODEL"); model != "" {
		c.SetModel(model)
	}
	if u := os.Getenv("JAIME_BASE_URL"); u != "" {
		c.Completion.BaseURL = u
	}
	if u := os.Getenv("JAIME_OLLAMA_URL"); u != "" {
		c.Ollama.URL = u
	}
	if prompt := os.Getenv("JAIME_SYSTEM_PROMPT"); prompt != "" {
		c.Completion.SystemPrompt = prompt
	}
	if layout := os.Getenv("JAIME_LAYOUT"); layout != "" {
		c.UI.Layout = strings.ToLower(layout)
	}
	if debug := os.Getenv("JAIME_DEBUG"); debug == "1" || strings.EqualFold(debug, "true") {
		c.Log.Level = "debug"
	}
}

// SetModel sets the model of the currently selected provider.
func (c *Config) SetModel(model string) {
	if c.Completion.Provider == ProviderOllama {
		c.Ollama.Model = model
		return
	}
	c.Completion.Model = model
}

// ActiveModel returns the model of the currently selected provider.
func (c *Config) ActiveModel() string {
	if c.Completion.Provider == ProviderOllama {
		return c.Ollama.Model
	}
	return c.Completion.Model
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# jaime configuration file\n")
	buf.WriteString("# API keys are better kept in OPENAI_API_KEY or a .env file.\n\n")
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns ValidateErrors if any
// field is out of range.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch c.Completion.Provider {
	case ProviderOpenAI, ProviderOllama, ProviderDev:
	default:
		add("completion.provider", "must be one of openai, ollama, dev (got %q)", c.Completion.Provider)
	}
	if err := validateHTTPURL(c.Completion.BaseURL); err != nil {
		add("completion.base_url", "%v", err)
	}
	if c.Completion.MaxDuration.Duration < time.Second {
		add("completion.max_duration", "must be at least 1s (got %s)", c.Completion.MaxDuration.Duration)
	}
	if err := validateHTTPURL(c.Ollama.URL); err != nil {
		add("ollama.url", "%v", err)
	}
	if c.Stream.BatchInterval.Duration < 0 || c.Stream.BatchInterval.Duration > time.Second {
		add("stream.batch_interval", "must be between 0s and 1s (got %s)", c.Stream.BatchInterval.Duration)
	}
	if c.Scroll.PinThreshold < 1 {
		add("scroll.pin_threshold", "must be at least 1 line (got %d)", c.Scroll.PinThreshold)
	}
	if c.Scroll.ResizeDebounce.Duration < 0 {
		add("scroll.resize_debounce", "must not be negative")
	}
	switch c.UI.Layout {
	case LayoutCompact, LayoutExpanded:
	default:
		add("ui.layout", "must be compact or expanded (got %q)", c.UI.Layout)
	}
	if c.UI.BannerTimeout.Duration <= 0 {
		add("ui.banner_timeout", "must be positive")
	}
	if c.UI.NotifyAfter.Duration < 0 {
		add("ui.notify_after", "must not be negative")
	}
	if len(c.UI.SuggestedPrompts) > MaxSuggestedPrompts {
		add("ui.suggested_prompts", "at most %d prompts (got %d)", MaxSuggestedPrompts, len(c.UI.SuggestedPrompts))
	}
	for i, p := range c.UI.SuggestedPrompts {
		if strings.TrimSpace(p) == "" {
			add(fmt.Sprintf("ui.suggested_prompts[%d]", i), "must not be empty")
		}
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("log.level", "must be one of debug, info, warn, error (got %q)", c.Log.Level)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https (got %q)", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.UI.SuggestedPrompts = append([]string(nil), c.UI.SuggestedPrompts...)
	return &clone
}

// Redacted returns a copy safe to print, with the API key masked.
func (c *Config) Redacted() *Config {
	clone := c.Clone()
	if clone.Completion.APIKey != "" {
		clone.Completion.APIKey = "[REDACTED]"
	}
	return clone
}

// String returns the redacted configuration as TOML.
func (c *Config) String() string {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.Redacted()); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return buf.String()
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
