// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Server.URL != "http://127.0.0.1:4096" {
		t.Errorf("server url = %q", cfg.Server.URL)
	}
	if cfg.BatchWindow() != 50*time.Millisecond {
		t.Errorf("batch window = %v", cfg.BatchWindow())
	}
	if cfg.IdleTimeout() != 8*time.Second {
		t.Errorf("idle timeout = %v", cfg.IdleTimeout())
	}
}

func TestLoadSparseFileFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[server]
url = "http://localhost:9999"

[ui]
theme = "light"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHAMBER_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.URL != "http://localhost:9999" {
		t.Errorf("url = %q", cfg.Server.URL)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q", cfg.UI.Theme)
	}
	// Untouched sections keep defaults.
	if cfg.Engine.ViewportWindow != 60 {
		t.Errorf("viewport window = %d", cfg.Engine.ViewportWindow)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
}

func TestEnvOverridesBeatFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[server]\nurl = \"http://file:1\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHAMBER_CONFIG", path)
	t.Setenv("CHAMBER_SERVER_URL", "http://env:2")
	t.Setenv("CHAMBER_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.URL != "http://env:2" {
		t.Errorf("url = %q, want env override", cfg.Server.URL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q", cfg.Logging.Level)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url", func(c *Config) { c.Server.URL = "not a url" }},
		{"bad scheme", func(c *Config) { c.Server.URL = "ftp://host" }},
		{"bad level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad theme", func(c *Config) { c.UI.Theme = "solarized" }},
		{"huge batch window", func(c *Config) { c.Engine.BatchWindowMs = 5000 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CHAMBER_CONFIG", filepath.Join(t.TempDir(), "absent.toml"))
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.URL != Default().Server.URL {
		t.Errorf("url = %q", cfg.Server.URL)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[ui]\ntheme = \"dark\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CHAMBER_CONFIG", path)

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(30*time.Millisecond, func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	if err := os.WriteFile(path, []byte("[ui]\ntheme = \"light\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.UI.Theme != "light" {
			t.Errorf("reloaded theme = %q", cfg.UI.Theme)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("reload callback never fired")
	}
}
