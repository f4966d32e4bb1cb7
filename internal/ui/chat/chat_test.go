// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chamber-tui/internal/batch"
	"github.com/jeranaias/chamber-tui/internal/gateway"
	"github.com/jeranaias/chamber-tui/internal/model"
	"github.com/jeranaias/chamber-tui/internal/reconcile"
)

const testSession = "ses_0000000001"

type nopTransport struct{}

func (nopTransport) FetchSessionMessages(ctx context.Context, sessionID string) ([]model.MessageEnvelope, error) {
	return nil, nil
}

func (nopTransport) AbortSession(ctx context.Context, sessionID string) error {
	return nil
}

func newTestModel(t *testing.T) (*Model, *reconcile.Store, *batch.Queue) {
	t.Helper()

	store := reconcile.New(reconcile.DefaultConfig(), nopTransport{}, nil)
	t.Cleanup(store.Close)

	queue := batch.NewQueue(time.Millisecond, store.ApplyPart)
	t.Cleanup(queue.Stop)

	m := New(Options{
		Store:     store,
		Queue:     queue,
		SessionID: testSession,
		ModelID:   "claude-sonnet-4",
		Provider:  "anthropic",
		Agent:     "build",
		Dark:      true,
	})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, store, queue
}

func TestHandlerRoutesPartsThroughQueue(t *testing.T) {
	m, store, queue := newTestModel(t)

	h := m.Handler(func(tea.Msg) {})
	h.OnPart(gateway.PartUpdate{
		SessionID: testSession,
		MessageID: "msg_0000000001",
		Part: model.Part{
			ID:   "prt_0000000001",
			Type: model.PartText,
			Text: "hello",
		},
	})
	queue.Flush()

	msgs := store.Messages(testSession)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message after flush, got %d", len(msgs))
	}
	if got := msgs[0].TextContent(); got != "hello" {
		t.Errorf("text = %q, want %q", got, "hello")
	}
}

func TestHandlerAppliesMetadataDirectly(t *testing.T) {
	m, store, _ := newTestModel(t)

	h := m.Handler(func(tea.Msg) {})
	h.OnInfo(gateway.InfoUpdate{
		SessionID: testSession,
		MessageID: "msg_0000000001",
		Info: model.UserInfo{
			ID:        "msg_0000000001",
			SessionID: testSession,
			Created:   time.Now(),
		},
	})

	msgs := store.Messages(testSession)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if !msgs[0].IsUser() {
		t.Error("materialized message should be a user message")
	}
}

func TestHandlerReportsConnectionStatus(t *testing.T) {
	m, _, _ := newTestModel(t)

	var got tea.Msg
	h := m.Handler(func(msg tea.Msg) { got = msg })

	h.OnStatus(gateway.StatusConnected, "")
	status, ok := got.(connStatusMsg)
	if !ok {
		t.Fatalf("expected connStatusMsg, got %T", got)
	}
	if !status.connected {
		t.Error("connected status should map to connected=true")
	}

	h.OnStatus(gateway.StatusError, "server down")
	status = got.(connStatusMsg)
	if status.connected || status.hint != "server down" {
		t.Errorf("error status = %+v", status)
	}
}

func TestSubmitIgnoresEmptyDraft(t *testing.T) {
	m, _, _ := newTestModel(t)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Error("empty draft should not dispatch a send")
	}
	if m.sending {
		t.Error("sending should remain false")
	}
}

func TestSubmitClearsInputAndMarksSending(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.client = gateway.NewClient()

	m.input.SetValue("hello there")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("submit should return a command")
	}
	if !m.sending {
		t.Error("sending should be true after submit")
	}
	if m.input.Value() != "" {
		t.Errorf("input should be cleared, got %q", m.input.Value())
	}
}

func TestSendFailureRestoresDraft(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.sending = true

	m.Update(sendResultMsg{draft: "lost words", err: errors.New("connection refused")})

	if m.sending {
		t.Error("sending should be cleared")
	}
	if m.input.Value() != "lost words" {
		t.Errorf("draft not restored, input = %q", m.input.Value())
	}
	if m.errText == "" {
		t.Error("error text should be set")
	}
}

func TestSendSuccessKeepsInputEmpty(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.sending = true

	m.Update(sendResultMsg{})

	if m.sending {
		t.Error("sending should be cleared")
	}
	if m.input.Value() != "" {
		t.Errorf("input should stay empty, got %q", m.input.Value())
	}
}

func TestConnStatusUpdatesStatusBar(t *testing.T) {
	m, _, _ := newTestModel(t)

	m.Update(connStatusMsg{connected: true})
	if !m.status.Connected {
		t.Error("status bar should show connected")
	}

	m.Update(connStatusMsg{connected: false, hint: "stream dropped"})
	if m.status.Connected {
		t.Error("status bar should show disconnected")
	}
	if m.errText != "stream dropped" {
		t.Errorf("errText = %q", m.errText)
	}
}

func TestAbortKeyIdleClearsError(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.errText = "stale error"

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd != nil {
		t.Error("esc without a live stream should not dispatch an abort")
	}
	if m.errText != "" {
		t.Error("esc should clear the error banner")
	}
}

func TestWindowSizeResizesLayout(t *testing.T) {
	m, _, _ := newTestModel(t)

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	if m.view.Width != 120 {
		t.Errorf("viewport width = %d, want 120", m.view.Width)
	}
	if m.view.Height != 36 {
		t.Errorf("viewport height = %d, want 36", m.view.Height)
	}
}

func TestHousekeepingTickTrimsResidentWindow(t *testing.T) {
	m, store, _ := newTestModel(t)

	window := reconcile.DefaultConfig().ViewportWindow
	base := time.Now().Add(-time.Hour)
	for i := 1; i <= window+30; i++ {
		store.ApplyMetadata(testSession, model.AssistantInfo{
			ID:        fmt.Sprintf("msg_%010d", i),
			SessionID: testSession,
			Created:   base.Add(time.Duration(i) * time.Second),
			Status:    model.StatusCompleted,
		})
	}
	store.UpdateViewportAnchor(testSession, window+29)

	m.Update(tickMsg(time.Now()))

	if got := len(store.Messages(testSession)); got != window {
		t.Errorf("resident after tick = %d, want %d", got, window)
	}
}

func TestViewShowsAbortBanner(t *testing.T) {
	m, store, _ := newTestModel(t)

	// Stand up a streaming assistant turn, then interrupt it.
	store.ApplyPart(batch.PartEvent{
		SessionID: testSession,
		MessageID: "msg_0000000001",
		Part:      model.Part{ID: "prt_0000000001", Type: model.PartText, Text: "partial"},
	})
	store.AbortCurrentOperation(context.Background(), testSession)

	view := m.View()
	if view == "" {
		t.Fatal("view should render")
	}
	if flag, ok := store.AbortFlagFor(testSession); !ok || flag.Acknowledged {
		t.Fatal("abort flag should be live")
	}
}
