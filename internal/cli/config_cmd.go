// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration show/set command.
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jeranaias/chamber-tui/internal/config"
)

// HandleConfig implements "chamber config [show|set|path]".
func HandleConfig(args Args) {
	switch args.Subcommand {
	case "", "show":
		showConfig()
	case "path":
		fmt.Println(mustConfigPath())
	case "set":
		if args.ConfigKey == "" || args.ConfigVal == "" {
			fmt.Fprintln(os.Stderr, "Usage: chamber config set <key> <value>")
			os.Exit(1)
		}
		setConfig(args.ConfigKey, args.ConfigVal)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand %q\n", args.Subcommand)
		os.Exit(1)
	}
}

func showConfig() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("server.url              %s\n", cfg.Server.URL)
	fmt.Printf("server.directory        %s\n", orNone(cfg.Server.Directory))
	fmt.Printf("server.request_timeout  %ds\n", cfg.Server.RequestTimeoutSecs)
	fmt.Printf("engine.batch_window     %dms\n", cfg.Engine.BatchWindowMs)
	fmt.Printf("engine.idle_timeout     %dms\n", cfg.Engine.IdleTimeoutMs)
	fmt.Printf("engine.cooldown         %dms\n", cfg.Engine.CooldownMs)
	fmt.Printf("engine.viewport_window  %d\n", cfg.Engine.ViewportWindow)
	fmt.Printf("engine.max_sessions     %d\n", cfg.Engine.MaxResidentSessions)
	fmt.Printf("logging.level           %s\n", cfg.Logging.Level)
	fmt.Printf("logging.path            %s\n", cfg.LogPath())
	fmt.Printf("ui.theme                %s\n", cfg.UI.Theme)
	fmt.Printf("ui.agent                %s\n", orNone(cfg.UI.Agent))
}

// setConfig updates one dotted key and writes the file back.
func setConfig(key, value string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch strings.ToLower(key) {
	case "server.url":
		cfg.Server.URL = value
	case "server.directory":
		cfg.Server.Directory = value
	case "server.request_timeout":
		secs, err := strconv.Atoi(value)
		if err != nil {
			fatalValue(key, value)
		}
		cfg.Server.RequestTimeoutSecs = secs
	case "engine.viewport_window":
		n, err := strconv.Atoi(value)
		if err != nil {
			fatalValue(key, value)
		}
		cfg.Engine.ViewportWindow = n
	case "engine.max_sessions":
		n, err := strconv.Atoi(value)
		if err != nil {
			fatalValue(key, value)
		}
		cfg.Engine.MaxResidentSessions = n
	case "logging.level":
		cfg.Logging.Level = value
	case "logging.path":
		cfg.Logging.Path = value
	case "ui.theme":
		cfg.UI.Theme = value
	case "ui.agent":
		cfg.UI.Agent = value
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key %q\n", key)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Set %s = %s\n", key, value)
}

func fatalValue(key, value string) {
	fmt.Fprintf(os.Stderr, "Invalid value %q for %s\n", value, key)
	os.Exit(1)
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
