// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.theme.Resize(msg.Width)
		m.view.Width = msg.Width
		m.view.Height = max(msg.Height-4, 1)
		m.input.Width = max(msg.Width-4, 10)
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case storeChangedMsg:
		m.refreshTranscript()
		if m.streaming() && !m.badge.Active() {
			cmds = append(cmds, m.badge.Start(), tickCmd())
		}
		if !m.streaming() {
			m.badge.Stop()
		}
		return m, tea.Batch(cmds...)

	case tickMsg:
		// Periodic housekeeping: trim resident windows and evict cold
		// sessions. The store's own guards skip live streams.
		m.store.Maintain(m.sessionID)
		if m.streaming() || m.badge.Active() {
			return m, tickCmd()
		}
		return m, nil

	case sendResultMsg:
		m.sending = false
		if msg.err != nil {
			// Restore the draft so the user can retry without retyping.
			m.input.SetValue(msg.draft)
			m.errText = msg.err.Error()
			m.badge.Stop()
		}
		return m, nil

	case loadResultMsg:
		m.loading = false
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.status.HasMore = msg.more
		m.refreshTranscript()
		return m, nil

	case connStatusMsg:
		m.connected = msg.connected
		m.status.Connected = msg.connected
		if !msg.connected && msg.hint != "" {
			m.errText = msg.hint
		} else if msg.connected {
			m.errText = ""
		}
		return m, nil

	case abortDoneMsg:
		m.badge.Stop()
		m.refreshTranscript()
		return m, nil
	}

	if cmd := m.badge.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Abort):
		if m.streaming() {
			return m, m.abortCmd()
		}
		m.errText = ""
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		draft := strings.TrimSpace(m.input.Value())
		if draft == "" || m.sending {
			return m, nil
		}
		m.sending = true
		m.errText = ""
		m.input.Reset()
		m.store.AcknowledgeSessionAbort(m.sessionID)
		return m, tea.Batch(m.sendCmd(draft), m.badge.Start(), tickCmd())

	case key.Matches(msg, m.keys.Up):
		m.view.LineUp(1)
		m.syncAnchor()
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.view.LineDown(1)
		m.syncAnchor()
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.view.HalfViewUp()
		m.syncAnchor()
		if m.view.AtTop() && m.status.HasMore && !m.loading {
			m.loading = true
			return m, m.loadMoreCmd()
		}
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.view.HalfViewDown()
		m.syncAnchor()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.view.GotoBottom()
		m.syncAnchor()
		return m, nil

	case key.Matches(msg, m.keys.LoadMore):
		if m.loading {
			return m, nil
		}
		m.loading = true
		return m, m.loadMoreCmd()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// refreshTranscript re-renders the conversation into the viewport, keeping
// the view pinned to the bottom while the user has not scrolled away.
func (m *Model) refreshTranscript() {
	wasBottom := m.atBottom
	m.view.SetContent(m.transcript())
	if wasBottom {
		m.view.GotoBottom()
	}
	m.syncAnchor()
}

// syncAnchor mirrors the scroll position into the store's viewport anchor so
// trimming keeps the messages the user is looking at.
func (m *Model) syncAnchor() {
	m.atBottom = m.view.AtBottom()

	msgs := m.store.Messages(m.sessionID)
	if len(msgs) == 0 {
		return
	}
	anchor := len(msgs) - 1
	if !m.atBottom && m.view.TotalLineCount() > 0 {
		// Approximate: map the scroll fraction onto the message list.
		frac := float64(m.view.YOffset) / float64(max(m.view.TotalLineCount()-m.view.Height, 1))
		anchor = int(frac * float64(len(msgs)-1))
	}
	m.store.UpdateViewportAnchor(m.sessionID, anchor)
}
