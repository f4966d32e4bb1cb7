// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"testing"
	"time"

	"github.com/jeranaias/chamber-tui/internal/model"
)

func TestApplyMetadataMaterializesUnknownMessage(t *testing.T) {
	s, _ := newTestStore(t)
	created := time.Now()

	s.ApplyMetadata(testSession, model.UserInfo{ID: msgID(1), SessionID: testSession, Created: created})

	msgs := s.Messages(testSession)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if !msgs[0].IsUser() {
		t.Error("user info did not produce a user-pinned message")
	}
}

func TestApplyMetadataInsertsChronologically(t *testing.T) {
	s, _ := newTestStore(t)
	base := time.Now()

	s.ApplyMetadata(testSession, model.UserInfo{ID: msgID(2), Created: base.Add(2 * time.Minute)})
	s.ApplyMetadata(testSession, model.AssistantInfo{ID: msgID(3), Created: base.Add(3 * time.Minute)})
	// Arrives last but belongs between the two.
	s.ApplyMetadata(testSession, model.AssistantInfo{ID: msgID(4), Created: base.Add(150 * time.Second)})

	msgs := s.Messages(testSession)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	want := []string{msgID(2), msgID(4), msgID(3)}
	for i, id := range want {
		if msgs[i].ID != id {
			t.Errorf("position %d = %s, want %s", i, msgs[i].ID, id)
		}
	}
}

func TestApplyMetadataRejectsStaleForTrimmedRegion(t *testing.T) {
	s, _ := newTestStore(t)
	base := time.Now()

	s.ApplyMetadata(testSession, model.AssistantInfo{ID: msgID(10), Created: base})

	// Watermark says everything at or below msgID(5) was trimmed.
	s.mu.Lock()
	s.memoryLocked(testSession).TrimmedHeadMaxID = msgID(5)
	s.mu.Unlock()

	s.ApplyMetadata(testSession, model.AssistantInfo{ID: msgID(3), Created: base.Add(-time.Hour)})
	if got := len(s.Messages(testSession)); got != 1 {
		t.Fatalf("trimmed message resurrected: %d messages", got)
	}

	// Newer than the watermark and the oldest resident: accepted.
	s.ApplyMetadata(testSession, model.AssistantInfo{ID: msgID(11), Created: base.Add(time.Minute)})
	if got := len(s.Messages(testSession)); got != 2 {
		t.Fatalf("fresh metadata rejected: %d messages", got)
	}
}

func TestApplyMetadataRejectsOlderThanOldestResident(t *testing.T) {
	s, _ := newTestStore(t)
	base := time.Now()

	s.ApplyMetadata(testSession, model.AssistantInfo{ID: msgID(10), Created: base})
	s.ApplyMetadata(testSession, model.AssistantInfo{ID: msgID(5), Created: base.Add(-time.Hour)})

	if got := len(s.Messages(testSession)); got != 1 {
		t.Fatalf("below-window metadata accepted: %d messages", got)
	}
}

func TestApplyMetadataNeverFlipsUserToAssistant(t *testing.T) {
	s, _ := newTestStore(t)

	s.ApplyPart(userEvent(testSession, msgID(1), "mine"))

	// Server metadata now claims the message is an assistant turn.
	s.ApplyMetadata(testSession, model.AssistantInfo{
		ID:         msgID(1),
		ProviderID: "anthropic",
		ModelID:    "claude-sonnet-4",
	})

	m := s.Message(testSession, msgID(1))
	if !m.IsUser() {
		t.Fatal("metadata flipped a pinned user message")
	}
	if m.ProviderID != "" || m.ModelID != "" {
		t.Error("assistant provenance leaked into a user message")
	}
}

func TestApplyMetadataMergesAssistantFields(t *testing.T) {
	s, _ := newTestStore(t)

	s.ApplyPart(textEvent(testSession, msgID(1), "hello"))
	completed := time.Now()
	s.ApplyMetadata(testSession, model.AssistantInfo{
		ID:         msgID(1),
		ProviderID: "anthropic",
		ModelID:    "claude-opus-4",
		Agent:      "build",
		Completed:  completed,
		Status:     model.StatusCompleted,
	})

	m := s.Message(testSession, msgID(1))
	if m.ProviderID != "anthropic" || m.ModelID != "claude-opus-4" || m.Agent != "build" {
		t.Errorf("merge lost fields: %q/%q/%q", m.ProviderID, m.ModelID, m.Agent)
	}
	if !m.Time.Completed.Equal(completed) {
		t.Error("completed time not merged")
	}
	if m.TextContent() != "hello" {
		t.Error("merge clobbered parts")
	}

	// Last-used pair now seeds future placeholders.
	if p, mdl := s.LastUsed(); p != "anthropic" || mdl != "claude-opus-4" {
		t.Errorf("last used = %q/%q", p, mdl)
	}
}

func TestApplyMetadataIgnoresSuppressedIDs(t *testing.T) {
	s, _ := newTestStore(t)

	s.ApplyPart(userEvent(testSession, msgID(1), "echo me"))
	s.ApplyPart(textEvent(testSession, msgID(2), "echo me"))

	s.ApplyMetadata(testSession, model.AssistantInfo{ID: msgID(2), Created: time.Now()})
	if got := len(s.Messages(testSession)); got != 1 {
		t.Fatalf("metadata materialized a suppressed echo: %d messages", got)
	}
}

func TestApplyMetadataPreservesAbortedStatus(t *testing.T) {
	s, _ := newTestStore(t)

	s.ApplyPart(textEvent(testSession, msgID(1), "partial"))
	s.AbortCurrentOperation(t.Context(), testSession)

	s.ApplyMetadata(testSession, model.AssistantInfo{ID: msgID(1), Status: model.StatusCompleted})

	if got := s.Message(testSession, msgID(1)).Status; got != model.StatusAborted {
		t.Errorf("status = %q, want aborted preserved", got)
	}
}
