// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jeranaias/chamber-tui/internal/batch"
	"github.com/jeranaias/chamber-tui/internal/model"
)

// fakeTransport serves a canned snapshot and records aborts.
type fakeTransport struct {
	mu        sync.Mutex
	envelopes []model.MessageEnvelope
	fetchErr  error
	aborted   []string
}

func (f *fakeTransport) FetchSessionMessages(_ context.Context, _ string) ([]model.MessageEnvelope, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	out := make([]model.MessageEnvelope, len(f.envelopes))
	copy(out, f.envelopes)
	return out, nil
}

func (f *fakeTransport) AbortSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aborted = append(f.aborted, sessionID)
	return nil
}

func (f *fakeTransport) abortCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.aborted)
}

// testConfig keeps timers short enough to exercise in tests without
// making assertions racy.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.IdleTimeout = 40 * time.Millisecond
	cfg.DuplicateTimeout = 15 * time.Millisecond
	cfg.CooldownDuration = 40 * time.Millisecond
	cfg.SyncFlagDuration = 20 * time.Millisecond
	return cfg
}

func newTestStore(t *testing.T) (*Store, *fakeTransport) {
	t.Helper()
	gw := &fakeTransport{}
	s := New(testConfig(), gw, nil)
	t.Cleanup(s.Close)
	return s, gw
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// msgID builds a sortable message ID from a sequence number.
func msgID(n int) string {
	return fmt.Sprintf("msg_%010d", n)
}

const testSession = "ses_0000000001"

func textEvent(sessionID, messageID, text string) batch.PartEvent {
	return batch.PartEvent{
		SessionID: sessionID,
		MessageID: messageID,
		// Text deltas keep a stable part ID while the text grows.
		Part: model.Part{
			ID:   "prt_" + messageID,
			Type: model.PartText,
			Text: text,
		},
	}
}

func stopEvent(sessionID, messageID string) batch.PartEvent {
	return batch.PartEvent{
		SessionID: sessionID,
		MessageID: messageID,
		Part: model.Part{
			Type:   model.PartStepFinish,
			Reason: "stop",
		},
	}
}

func userEvent(sessionID, messageID, text string) batch.PartEvent {
	ev := textEvent(sessionID, messageID, text)
	ev.Role = model.RoleUser
	return ev
}

func assistantEnvelope(id string, created time.Time, parts ...model.Part) model.MessageEnvelope {
	return model.MessageEnvelope{
		Info: model.AssistantInfo{
			ID:         id,
			SessionID:  testSession,
			Created:    created,
			ProviderID: "anthropic",
			ModelID:    "claude-sonnet-4",
		},
		Parts: parts,
	}
}

func userEnvelope(id string, created time.Time, parts ...model.Part) model.MessageEnvelope {
	return model.MessageEnvelope{
		Info:  model.UserInfo{ID: id, SessionID: testSession, Created: created},
		Parts: parts,
	}
}

func textPart(id, text string) model.Part {
	return model.Part{ID: id, Type: model.PartText, Text: text}
}

func batchToolEvent(sessionID, messageID, callID string, state model.ToolState) batch.PartEvent {
	return batch.PartEvent{
		SessionID: sessionID,
		MessageID: messageID,
		Part: model.Part{
			Type:   model.PartTool,
			CallID: callID,
			Tool:   "read",
			State:  state,
			Time:   model.PartTime{Start: time.Now()},
		},
	}
}
