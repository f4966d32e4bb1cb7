// chamber TUI - A terminal chat client for opencode-compatible servers.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chamber-tui/internal/batch"
	"github.com/jeranaias/chamber-tui/internal/cli"
	"github.com/jeranaias/chamber-tui/internal/config"
	"github.com/jeranaias/chamber-tui/internal/gateway"
	"github.com/jeranaias/chamber-tui/internal/logging"
	"github.com/jeranaias/chamber-tui/internal/reconcile"
	"github.com/jeranaias/chamber-tui/internal/state"
	"github.com/jeranaias/chamber-tui/internal/ui/chat"
)

// Build-time variables (set via -ldflags).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate

	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdAsk:
		cli.HandleAsk(args)
	case cli.CmdChat:
		cli.HandleChat(args)
	case cli.CmdStatus:
		cli.HandleStatus(args)
	case cli.CmdAgents:
		cli.HandleAgents(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.Usage()
	default:
		cli.Usage()
		os.Exit(1)
	}
}

// runTUI wires the full engine and hands control to bubbletea.
func runTUI(args cli.Args) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if args.ServerURL != "" {
		cfg.Server.URL = args.ServerURL
	}
	config.SetGlobal(cfg)

	log, closeLog := logging.NewFile(cfg.LogPath(), cfg.Logging.Level)
	defer closeLog()

	client := gateway.NewClientWithConfig(&gateway.ClientConfig{
		BaseURL:        cfg.Server.URL,
		Directory:      cfg.Server.Directory,
		Timeout:        cfg.RequestTimeout(),
		ConnectRetries: cfg.Server.ConnectRetries,
	})

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	err = client.CheckConnection(connectCtx)
	cancelConnect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach server at %s: %v\n", cfg.Server.URL, err)
		fmt.Fprintln(os.Stderr, "Start an opencode server or point chamber at one with --server.")
		os.Exit(1)
	}

	store := reconcile.New(reconcile.Config{
		IdleTimeout:         cfg.IdleTimeout(),
		CooldownDuration:    cfg.Cooldown(),
		ViewportWindow:      cfg.Engine.ViewportWindow,
		MaxResidentSessions: cfg.Engine.MaxResidentSessions,
	}, client, log)
	defer store.Close()

	queue := batch.NewQueue(cfg.BatchWindow(), store.ApplyPart)
	defer queue.Stop()

	var states *state.Store
	if path, err := config.StatePath(); err == nil {
		if states, err = state.Open(path); err != nil {
			log.Warn().Err(err).Msg("state database unavailable")
			states = nil
		}
	}
	if states != nil {
		defer func() {
			if err := states.SnapshotFrom(store); err != nil {
				log.Warn().Err(err).Msg("failed to snapshot session state")
			}
			states.Close()
		}()
	}

	sessionID, provider, modelID, agent := resolveSession(args, cfg, client, states, log)
	if states != nil {
		if err := states.RestoreInto(store, sessionID); err != nil {
			log.Warn().Err(err).Str("session", sessionID).Msg("failed to restore session state")
		}
	}

	m := chat.New(chat.Options{
		Store:     store,
		Client:    client,
		Queue:     queue,
		States:    states,
		Log:       log,
		SessionID: sessionID,
		Agent:     agent,
		ModelID:   modelID,
		Provider:  provider,
		Dark:      cfg.UI.Theme != "light",
	})
	store.SetLastUsed(provider, modelID)

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	// Live config reloads update the process-wide snapshot; the engine picks
	// the new values up on the next store construction, the TUI immediately.
	watcher, err := config.NewWatcher(0, func(updated *config.Config) {
		log.Info().Msg("configuration reloaded")
	})
	if err == nil {
		if err := watcher.Watch(); err != nil {
			log.Warn().Err(err).Msg("config watcher unavailable")
		}
		defer watcher.Close()
	}

	// The store change callback and the SSE reader both live off the
	// bubbletea goroutine; Program.Send is the only safe channel back in.
	store.SetOnChange(func() {
		p.Send(chat.StoreChanged())
	})

	streamCtx, stopStream := context.WithCancel(context.Background())
	defer stopStream()
	stream := gateway.NewEventStream(client, m.Handler(p.Send), log)
	go stream.Run(streamCtx)

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// resolveSession picks the session to open plus the provider, model and
// agent defaults, preferring explicit flags, then persisted state, then a
// fresh server-side session.
func resolveSession(args cli.Args, cfg *config.Config, client *gateway.Client, states *state.Store, log *logging.Logger) (sessionID, provider, modelID, agent string) {
	sessionID = args.SessionID
	if sessionID == "" && states != nil {
		sessionID = states.ActiveSession()
	}
	if sessionID == "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
		defer cancel()
		id, err := client.CreateSession(ctx, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create session: %v\n", err)
			os.Exit(1)
		}
		sessionID = id
	}
	if states != nil {
		if err := states.SaveActiveSession(sessionID); err != nil {
			log.Warn().Err(err).Msg("failed to persist active session")
		}
	}

	if args.Model != "" {
		provider, modelID = cli.SplitModel(args.Model)
	} else if states != nil {
		provider, modelID = states.LastUsed()
	}

	agent = args.Agent
	if agent == "" {
		agent = cfg.UI.Agent
	}
	if agent == "" && states != nil {
		agent = states.LastAgent()
	}
	return sessionID, provider, modelID, agent
}
