// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// runtime.go - Shared engine wiring for the non-TUI commands.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jeranaias/chamber-tui/internal/batch"
	"github.com/jeranaias/chamber-tui/internal/config"
	"github.com/jeranaias/chamber-tui/internal/gateway"
	"github.com/jeranaias/chamber-tui/internal/logging"
	"github.com/jeranaias/chamber-tui/internal/model"
	"github.com/jeranaias/chamber-tui/internal/reconcile"
	"github.com/jeranaias/chamber-tui/internal/state"
)

// answerTimeout bounds how long a one-shot command waits for the full
// response. The engine's idle supervisor completes stalled streams well
// before this fires.
const answerTimeout = 5 * time.Minute

// runtime bundles the engine pieces the terminal commands share.
type runtime struct {
	cfg    *config.Config
	client *gateway.Client
	store  *reconcile.Store
	queue  *batch.Queue
	states *state.Store
	log    *logging.Logger

	sessionID string
	changed   chan struct{}

	closeLog   func()
	stopStream context.CancelFunc
}

// openRuntime loads config, connects to the server, and starts the event
// stream feeding a reconciliation store.
func openRuntime(args Args) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if args.ServerURL != "" {
		cfg.Server.URL = args.ServerURL
	}

	log, closeLog := logging.NewFile(cfg.LogPath(), cfg.Logging.Level)

	client := gateway.NewClientWithConfig(&gateway.ClientConfig{
		BaseURL:        cfg.Server.URL,
		Directory:      cfg.Server.Directory,
		Timeout:        cfg.RequestTimeout(),
		ConnectRetries: cfg.Server.ConnectRetries,
	})

	ctx, cancelConnect := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	err = client.CheckConnection(ctx)
	cancelConnect()
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("cannot reach server at %s: %w", cfg.Server.URL, err)
	}

	store := reconcile.New(reconcile.Config{
		IdleTimeout:         cfg.IdleTimeout(),
		CooldownDuration:    cfg.Cooldown(),
		ViewportWindow:      cfg.Engine.ViewportWindow,
		MaxResidentSessions: cfg.Engine.MaxResidentSessions,
	}, client, log)

	queue := batch.NewQueue(cfg.BatchWindow(), store.ApplyPart)

	rt := &runtime{
		cfg:      cfg,
		client:   client,
		store:    store,
		queue:    queue,
		log:      log,
		changed:  make(chan struct{}, 1),
		closeLog: closeLog,
	}
	store.SetOnChange(rt.signal)

	if statePath, err := config.StatePath(); err == nil {
		if states, err := state.Open(statePath); err == nil {
			rt.states = states
		} else {
			log.Warn().Err(err).Msg("state database unavailable")
		}
	}

	rt.sessionID, err = rt.resolveSession(args)
	if err != nil {
		rt.Close()
		return nil, err
	}
	if rt.states != nil {
		if err := rt.states.RestoreInto(store, rt.sessionID); err != nil {
			log.Warn().Err(err).Str("session", rt.sessionID).Msg("failed to restore session state")
		}
	}

	handler := gateway.Handler{
		OnPart: func(u gateway.PartUpdate) {
			queue.Enqueue(batch.PartEvent{
				SessionID:       u.SessionID,
				MessageID:       u.MessageID,
				Part:            u.Part,
				Role:            u.Role,
				ActiveSessionID: rt.sessionID,
			})
		},
		OnInfo: func(u gateway.InfoUpdate) {
			store.ApplyMetadata(u.SessionID, u.Info)
		},
	}
	stream := gateway.NewEventStream(client, handler, log)
	streamCtx, stopStream := context.WithCancel(context.Background())
	rt.stopStream = stopStream
	go stream.Run(streamCtx)

	return rt, nil
}

// resolveSession picks the target session: explicit flag, last active
// session from the state database, or a fresh server-side session.
func (r *runtime) resolveSession(args Args) (string, error) {
	if args.SessionID != "" {
		return args.SessionID, nil
	}
	if r.states != nil {
		if id := r.states.ActiveSession(); id != "" {
			return id, nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.RequestTimeout())
	defer cancel()
	id, err := r.client.CreateSession(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	if r.states != nil {
		if err := r.states.SaveActiveSession(id); err != nil {
			r.log.Warn().Err(err).Msg("failed to persist active session")
		}
	}
	return id, nil
}

func (r *runtime) signal() {
	select {
	case r.changed <- struct{}{}:
	default:
	}
}

// send posts one user message with the resolved provider, model and agent.
func (r *runtime) send(ctx context.Context, text string, args Args) error {
	provider, modelID := r.lastUsed(args)
	agent := args.Agent
	if agent == "" {
		agent = r.cfg.UI.Agent
	}

	return r.client.SendMessage(ctx, gateway.SendRequest{
		SessionID:  r.sessionID,
		ProviderID: provider,
		ModelID:    modelID,
		Text:       text,
		Agent:      agent,
	})
}

func (r *runtime) lastUsed(args Args) (provider, modelID string) {
	if args.Model != "" {
		return SplitModel(args.Model)
	}
	if p, m := r.store.LastUsed(); m != "" {
		return p, m
	}
	if r.states != nil {
		if p, m := r.states.LastUsed(); m != "" {
			return p, m
		}
	}
	return "", ""
}

// waitForAnswer blocks until the newest assistant message after afterCount
// settles (completed or aborted), then returns it.
func (r *runtime) waitForAnswer(ctx context.Context, afterCount int) (*model.Message, error) {
	deadline := time.NewTimer(answerTimeout)
	defer deadline.Stop()

	for {
		if msg := r.settledAnswer(afterCount); msg != nil {
			return msg, nil
		}
		select {
		case <-ctx.Done():
			return nil, gateway.Normalize(ctx.Err())
		case <-deadline.C:
			return nil, gateway.ErrGatewayTimeout
		case <-r.changed:
		}
	}
}

// settledAnswer returns the latest assistant message past the given message
// count once it has stopped streaming, nil while still in flight.
func (r *runtime) settledAnswer(afterCount int) *model.Message {
	msgs := r.store.Messages(r.sessionID)
	for i := len(msgs) - 1; i >= afterCount && i >= 0; i-- {
		m := msgs[i]
		if m.IsUser() {
			continue
		}
		if m.Streaming || m.Status == "" {
			return nil
		}
		return m
	}
	return nil
}

// Close tears down the stream, queue, store and state handles.
func (r *runtime) Close() {
	if r.stopStream != nil {
		r.stopStream()
	}
	r.queue.Stop()
	r.store.Close()
	if r.states != nil {
		if err := r.states.SnapshotFrom(r.store); err != nil {
			r.log.Warn().Err(err).Msg("failed to snapshot session state")
		}
		r.states.Close()
	}
	if r.closeLog != nil {
		r.closeLog()
	}
}
