// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chamber-tui/internal/gateway"
)

// =============================================================================
// COMMANDS
// =============================================================================

const sendTimeout = 30 * time.Second

// sendCmd dispatches the draft to the server. The request context is handed
// to the store so esc can cancel an in-flight send.
func (m *Model) sendCmd(draft string) tea.Cmd {
	sessionID := m.sessionID
	client := m.client
	store := m.store
	provider := m.provider
	modelID := m.modelID
	agent := m.agent

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		store.BeginRequest(cancel)
		defer store.EndRequest()

		err := client.SendMessage(ctx, gateway.SendRequest{
			SessionID:  sessionID,
			ProviderID: provider,
			ModelID:    modelID,
			Text:       draft,
			Agent:      agent,
		})
		if err != nil {
			return sendResultMsg{draft: draft, err: gateway.Normalize(err)}
		}
		return sendResultMsg{}
	}
}

// abortCmd interrupts the current response locally and notifies the server.
func (m *Model) abortCmd() tea.Cmd {
	sessionID := m.sessionID
	store := m.store
	return func() tea.Msg {
		store.AbortCurrentOperation(context.Background(), sessionID)
		return abortDoneMsg{}
	}
}

// loadHistoryCmd performs the initial full sync for the session.
func (m *Model) loadHistoryCmd() tea.Cmd {
	sessionID := m.sessionID
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := store.LoadMessages(ctx, sessionID); err != nil {
			return loadResultMsg{err: err}
		}
		mem, _ := store.MemoryState(sessionID)
		return loadResultMsg{more: mem.HasMoreAbove}
	}
}

// loadMoreCmd fetches the next chunk of older messages above the viewport.
func (m *Model) loadMoreCmd() tea.Cmd {
	sessionID := m.sessionID
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		if err := store.LoadMoreMessages(ctx, sessionID); err != nil {
			return loadResultMsg{err: err}
		}
		mem, _ := store.MemoryState(sessionID)
		return loadResultMsg{more: mem.HasMoreAbove}
	}
}

// tickCmd drives the once-a-second housekeeping pass while streaming.
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
