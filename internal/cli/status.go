// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Server status and agent listing commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeranaias/chamber-tui/internal/config"
	"github.com/jeranaias/chamber-tui/internal/gateway"
)

// HandleStatus checks server reachability and prints a short report.
func HandleStatus(args Args) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if args.ServerURL != "" {
		cfg.Server.URL = args.ServerURL
	}

	client := gateway.NewClientWithConfig(&gateway.ClientConfig{
		BaseURL:        cfg.Server.URL,
		Directory:      cfg.Server.Directory,
		Timeout:        cfg.RequestTimeout(),
		ConnectRetries: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	defer cancel()
	connErr := client.CheckConnection(ctx)

	if args.JSON {
		out := map[string]any{
			"server":    cfg.Server.URL,
			"connected": connErr == nil,
		}
		if connErr != nil {
			out["error"] = connErr.Error()
		}
		json.NewEncoder(os.Stdout).Encode(out)
		if connErr != nil {
			os.Exit(1)
		}
		return
	}

	fmt.Printf("Server:    %s\n", cfg.Server.URL)
	if connErr != nil {
		fmt.Printf("Status:    unreachable (%v)\n", connErr)
		os.Exit(1)
	}
	fmt.Println("Status:    connected")
	fmt.Printf("Config:    %s\n", mustConfigPath())
	fmt.Printf("Log file:  %s\n", cfg.LogPath())
}

// HandleAgents lists the agents the server exposes.
func HandleAgents(args Args) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if args.ServerURL != "" {
		cfg.Server.URL = args.ServerURL
	}

	client := gateway.NewClientWithConfig(&gateway.ClientConfig{
		BaseURL:   cfg.Server.URL,
		Directory: cfg.Server.Directory,
		Timeout:   cfg.RequestTimeout(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	defer cancel()
	agents, err := client.ListAgents(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if args.JSON {
		json.NewEncoder(os.Stdout).Encode(agents)
		return
	}

	if len(agents) == 0 {
		fmt.Println("No agents configured on the server.")
		return
	}
	for _, a := range agents {
		marker := " "
		if a.BuiltIn {
			marker = "*"
		}
		if a.Description != "" {
			fmt.Printf("%s %-16s %s\n", marker, a.Name, a.Description)
		} else {
			fmt.Printf("%s %s\n", marker, a.Name)
		}
	}
}

func mustConfigPath() string {
	path, err := config.ConfigPath()
	if err != nil {
		return "(unavailable)"
	}
	return path
}
