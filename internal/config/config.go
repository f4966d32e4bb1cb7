// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chamber.
//
// Supports TOML configuration with sensible defaults, environment variable
// overrides, validation, and live reload.
//
// Configuration file locations (in order of precedence):
//   - $CHAMBER_CONFIG (explicit path)
//   - ~/.chamber/config.toml
//   - Built-in defaults
package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/chamber-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete chamber configuration.
type Config struct {
	Version string `toml:"version"`

	// Server connection
	Server ServerConfig `toml:"server"`

	// Streaming engine tuning
	Engine EngineConfig `toml:"engine"`

	// Logging configuration
	Logging LoggingConfig `toml:"logging"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// ServerConfig describes the opencode-compatible server to talk to.
type ServerConfig struct {
	// URL is the base URL of the server.
	URL string `toml:"url"`
	// Directory scopes every request to a working directory, when set.
	Directory string `toml:"directory"`
	// RequestTimeoutSecs bounds ordinary HTTP calls (not the event stream).
	RequestTimeoutSecs int `toml:"request_timeout_secs"`
	// ConnectRetries is how many times startup probes the server.
	ConnectRetries int `toml:"connect_retries"`
}

// EngineConfig tunes the reconciliation engine.
type EngineConfig struct {
	// BatchWindowMs is the part-event coalescing window.
	BatchWindowMs int `toml:"batch_window_ms"`
	// IdleTimeoutMs force-completes a silent stream.
	IdleTimeoutMs int `toml:"idle_timeout_ms"`
	// CooldownMs keeps the streaming flag up between back-to-back turns.
	CooldownMs int `toml:"cooldown_ms"`
	// ViewportWindow is the resident message target per session.
	ViewportWindow int `toml:"viewport_window"`
	// MaxResidentSessions caps in-memory sessions before LRU eviction.
	MaxResidentSessions int `toml:"max_resident_sessions"`
}

// LoggingConfig controls the log file. The TUI owns the terminal, so logs
// never go to stdout or stderr.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error, silent.
	Level string `toml:"level"`
	// Path is the log file path (empty = ~/.chamber/chamber.log).
	Path string `toml:"path"`
}

// UIConfig contains display configuration.
type UIConfig struct {
	// Theme is "dark" or "light".
	Theme string `toml:"theme"`
	// ShowReasoning renders reasoning parts inline.
	ShowReasoning bool `toml:"show_reasoning"`
	// CompactMode reduces message padding.
	CompactMode bool `toml:"compact_mode"`
	// Agent is the default agent for new conversations.
	Agent string `toml:"agent"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			URL:                "http://127.0.0.1:4096",
			RequestTimeoutSecs: 30,
			ConnectRetries:     5,
		},

		Engine: EngineConfig{
			BatchWindowMs:       50,
			IdleTimeoutMs:       8000,
			CooldownMs:          2000,
			ViewportWindow:      60,
			MaxResidentSessions: 2,
		},

		Logging: LoggingConfig{
			Level: "info",
		},

		UI: UIConfig{
			Theme:         "dark",
			ShowReasoning: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the chamber configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".chamber"), nil
}

// ConfigPath returns the path of the active config file: $CHAMBER_CONFIG if
// set, else ~/.chamber/config.toml.
func ConfigPath() (string, error) {
	if p := os.Getenv("CHAMBER_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// LogPath resolves the log file path from config, applying the default.
func (c *Config) LogPath() string {
	if c.Logging.Path != "" {
		return c.Logging.Path
	}
	dir, err := ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "chamber.log")
}

// StatePath returns the path of the persisted-state database.
func StatePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.db"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load loads configuration from the config file, falling back to defaults
// when none exists. Environment overrides are applied last either way.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, fmt.Errorf("failed to load config: %w", err)
			}
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file over cfg's current values.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// Save writes the configuration to the active config path. The write is
// atomic so the file watcher never observes a half-written config.
func Save(cfg *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// ENV OVERRIDES, DEFAULTS, VALIDATION
// =============================================================================

// ApplyEnvOverrides applies CHAMBER_* environment variables over the loaded
// configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CHAMBER_SERVER_URL"); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv("CHAMBER_DIRECTORY"); v != "" {
		c.Server.Directory = v
	}
	if v := os.Getenv("CHAMBER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CHAMBER_LOG_PATH"); v != "" {
		c.Logging.Path = v
	}
	if v := os.Getenv("CHAMBER_AGENT"); v != "" {
		c.UI.Agent = v
	}
	if v := os.Getenv("CHAMBER_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("CHAMBER_VIEWPORT_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Engine.ViewportWindow = n
		}
	}
}

// SetDefaults fills any zero values with defaults. Called after load so a
// sparse config file still produces a complete configuration.
func (c *Config) SetDefaults() {
	d := Default()
	if c.Server.URL == "" {
		c.Server.URL = d.Server.URL
	}
	if c.Server.RequestTimeoutSecs <= 0 {
		c.Server.RequestTimeoutSecs = d.Server.RequestTimeoutSecs
	}
	if c.Server.ConnectRetries <= 0 {
		c.Server.ConnectRetries = d.Server.ConnectRetries
	}
	if c.Engine.BatchWindowMs <= 0 {
		c.Engine.BatchWindowMs = d.Engine.BatchWindowMs
	}
	if c.Engine.IdleTimeoutMs <= 0 {
		c.Engine.IdleTimeoutMs = d.Engine.IdleTimeoutMs
	}
	if c.Engine.CooldownMs <= 0 {
		c.Engine.CooldownMs = d.Engine.CooldownMs
	}
	if c.Engine.ViewportWindow <= 0 {
		c.Engine.ViewportWindow = d.Engine.ViewportWindow
	}
	if c.Engine.MaxResidentSessions <= 0 {
		c.Engine.MaxResidentSessions = d.Engine.MaxResidentSessions
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
}

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config field %q: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ValidationError{Field: "server.url", Message: "must be a valid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{Field: "server.url", Message: "scheme must be http or https"}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "silent":
	default:
		return ValidationError{Field: "logging.level", Message: "unknown level " + strconv.Quote(c.Logging.Level)}
	}
	switch c.UI.Theme {
	case "dark", "light":
	default:
		return ValidationError{Field: "ui.theme", Message: "must be dark or light"}
	}
	if c.Engine.BatchWindowMs > 1000 {
		return ValidationError{Field: "engine.batch_window_ms", Message: "must be at most 1000"}
	}
	return nil
}

// =============================================================================
// DURATION ACCESSORS
// =============================================================================

// RequestTimeout returns the HTTP request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSecs) * time.Second
}

// BatchWindow returns the part batching window as a duration.
func (c *Config) BatchWindow() time.Duration {
	return time.Duration(c.Engine.BatchWindowMs) * time.Millisecond
}

// IdleTimeout returns the stream idle timeout as a duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.Engine.IdleTimeoutMs) * time.Millisecond
}

// Cooldown returns the streaming cooldown as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Engine.CooldownMs) * time.Millisecond
}

// =============================================================================
// GLOBAL CONFIG
// =============================================================================

var (
	globalMu     sync.RWMutex
	globalConfig *Config
)

// Global returns the process-wide configuration, loading it on first use.
func Global() *Config {
	globalMu.RLock()
	if globalConfig != nil {
		defer globalMu.RUnlock()
		return globalConfig
	}
	globalMu.RUnlock()

	cfg, err := Load()
	if err != nil {
		cfg = Default()
	}
	SetGlobal(cfg)
	return cfg
}

// SetGlobal replaces the process-wide configuration.
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	globalConfig = cfg
	globalMu.Unlock()
}
