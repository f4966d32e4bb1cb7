// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/jeranaias/chamber-tui/internal/gateway"
	"github.com/jeranaias/chamber-tui/internal/model"
)

func TestSyncMessagesReplacesResidentList(t *testing.T) {
	s, _ := newTestStore(t)
	base := time.Now()

	s.ApplyPart(textEvent(testSession, msgID(1), "live"))
	s.SyncMessages(testSession, []model.MessageEnvelope{
		userEnvelope(msgID(1), base, textPart("p1", "live")),
		assistantEnvelope(msgID(2), base.Add(time.Second), textPart("p2", "reply")),
	})

	msgs := s.Messages(testSession)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	mem, _ := s.MemoryState(testSession)
	if mem.TotalAvailableMessages != 2 {
		t.Errorf("total available = %d, want 2", mem.TotalAvailableMessages)
	}
	if !mem.IsSyncing {
		t.Error("isSyncing not raised after snapshot swap")
	}
	waitFor(t, "isSyncing reset", func() bool {
		m, _ := s.MemoryState(testSession)
		return !m.IsSyncing
	})
}

func TestSyncMessagesHonorsTrimWatermark(t *testing.T) {
	s, _ := newTestStore(t)
	base := time.Now()

	s.mu.Lock()
	s.memoryLocked(testSession).TrimmedHeadMaxID = msgID(5)
	s.mu.Unlock()

	s.SyncMessages(testSession, []model.MessageEnvelope{
		assistantEnvelope(msgID(3), base),
		assistantEnvelope(msgID(5), base.Add(time.Second)),
		assistantEnvelope(msgID(7), base.Add(2*time.Second)),
	})

	msgs := s.Messages(testSession)
	if len(msgs) != 1 {
		t.Fatalf("watermark ignored: %d resident", len(msgs))
	}
	if msgs[0].ID != msgID(7) {
		t.Fatalf("wrong survivor: %s", msgs[0].ID)
	}
}

func TestSyncMessagesKeepsLongerFinishedLocalTurn(t *testing.T) {
	s, _ := newTestStore(t)
	base := time.Now()

	s.ApplyPart(textEvent(testSession, msgID(1), "the complete long answer"))
	s.ApplyPart(stopEvent(testSession, msgID(1)))
	waitFor(t, "turn completion", func() bool { return s.StreamingMessageID() == "" })

	// Server snapshot lags behind its own stream.
	s.SyncMessages(testSession, []model.MessageEnvelope{
		assistantEnvelope(msgID(1), base,
			textPart("prt_"+msgID(1), "the comp"),
			model.Part{ID: "prt_extra", Type: model.PartFile, Text: "notes.txt"}),
	})

	m := s.Message(testSession, msgID(1))
	if m.TextContent() != "the complete long answer" {
		t.Errorf("snapshot truncated a finished turn: %q", m.TextContent())
	}
	found := false
	for _, p := range m.Parts {
		if p.ID == "prt_extra" {
			found = true
		}
	}
	if !found {
		t.Error("snapshot-only part not folded in")
	}
}

func TestSyncMessagesAcceptsLongerServerTurn(t *testing.T) {
	s, _ := newTestStore(t)
	base := time.Now()

	s.ApplyPart(textEvent(testSession, msgID(1), "short"))

	// No stop observed locally: the server snapshot wins outright.
	s.SyncMessages(testSession, []model.MessageEnvelope{
		assistantEnvelope(msgID(1), base, textPart("prt_"+msgID(1), "short but actually much longer")),
	})

	if got := s.Message(testSession, msgID(1)).TextContent(); got != "short but actually much longer" {
		t.Errorf("text = %q", got)
	}
}

func TestSyncMessagesPurgesRemovedIDs(t *testing.T) {
	s, _ := newTestStore(t)
	base := time.Now()

	s.ApplyPart(textEvent(testSession, msgID(1), "doomed"))
	s.ApplyPart(textEvent(testSession, msgID(2), "kept"))

	s.SyncMessages(testSession, []model.MessageEnvelope{
		assistantEnvelope(msgID(2), base, textPart("prt_"+msgID(2), "kept")),
	})

	if m := s.Message(testSession, msgID(1)); m != nil {
		t.Fatal("removed message survived the sync")
	}
	if id := s.StreamingMessageID(); id == msgID(1) {
		t.Error("streaming pointer survived removal")
	}
}

func TestSyncMessagesKeepsUserPinningAcrossSwap(t *testing.T) {
	s, _ := newTestStore(t)
	base := time.Now()

	s.ApplyPart(userEvent(testSession, msgID(1), "mine"))

	// Snapshot claims the message is an assistant turn.
	s.SyncMessages(testSession, []model.MessageEnvelope{
		assistantEnvelope(msgID(1), base, textPart("p1", "mine")),
	})

	if !s.Messages(testSession)[0].IsUser() {
		t.Error("snapshot swap unpinned a user message")
	}
}

func TestLoadMessagesSeedsViewport(t *testing.T) {
	s, gw := newTestStore(t)
	base := time.Now()

	total := s.cfg.ViewportWindow + 25
	for i := 1; i <= total; i++ {
		gw.envelopes = append(gw.envelopes,
			assistantEnvelope(msgID(i), base.Add(time.Duration(i)*time.Second)))
	}

	if err := s.LoadMessages(t.Context(), testSession); err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}

	msgs := s.Messages(testSession)
	if len(msgs) != s.cfg.ViewportWindow {
		t.Fatalf("resident = %d, want window %d", len(msgs), s.cfg.ViewportWindow)
	}
	if msgs[len(msgs)-1].ID != msgID(total) {
		t.Error("window not anchored at the bottom")
	}
	mem, _ := s.MemoryState(testSession)
	if !mem.HasMoreAbove {
		t.Error("hasMoreAbove not set with older history available")
	}
	if mem.ViewportAnchor != len(msgs)-1 {
		t.Errorf("anchor = %d, want %d", mem.ViewportAnchor, len(msgs)-1)
	}
	if mem.TotalAvailableMessages != total {
		t.Errorf("total = %d, want %d", mem.TotalAvailableMessages, total)
	}
}

func TestLoadMessagesFetchFailureLeavesStateIntact(t *testing.T) {
	s, gw := newTestStore(t)

	s.ApplyPart(textEvent(testSession, msgID(1), "resident"))
	gw.fetchErr = errors.New("boom")

	err := s.LoadMessages(t.Context(), testSession)
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *gateway.ClientError
	if !errors.As(err, &ce) {
		t.Errorf("error not normalized: %T", err)
	}
	if len(s.Messages(testSession)) != 1 {
		t.Error("fetch failure clobbered resident state")
	}
}

func TestLoadMoreSplicesOlderAboveWindow(t *testing.T) {
	s, gw := newTestStore(t)
	base := time.Now()

	total := s.cfg.ViewportWindow + s.cfg.LoadMoreChunk + 10
	for i := 1; i <= total; i++ {
		gw.envelopes = append(gw.envelopes,
			assistantEnvelope(msgID(i), base.Add(time.Duration(i)*time.Second)))
	}
	if err := s.LoadMessages(t.Context(), testSession); err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	before := s.Messages(testSession)
	headBefore := before[0].ID

	if err := s.LoadMoreMessages(t.Context(), testSession); err != nil {
		t.Fatalf("LoadMoreMessages: %v", err)
	}

	after := s.Messages(testSession)
	if len(after) != len(before)+s.cfg.LoadMoreChunk {
		t.Fatalf("resident = %d, want %d", len(after), len(before)+s.cfg.LoadMoreChunk)
	}
	// Splice sits directly above the old head, in order.
	if after[s.cfg.LoadMoreChunk].ID != headBefore {
		t.Error("old head displaced by splice")
	}
	for i := 1; i < len(after); i++ {
		if !after[i-1].Time.Created.Before(after[i].Time.Created) {
			t.Fatalf("order broken at %d", i)
		}
	}
	mem, _ := s.MemoryState(testSession)
	if !mem.HasMoreAbove {
		t.Error("hasMoreAbove dropped with history remaining")
	}
}

func TestLoadMoreExhaustsHistory(t *testing.T) {
	s, gw := newTestStore(t)
	base := time.Now()

	for i := 1; i <= 5; i++ {
		gw.envelopes = append(gw.envelopes,
			assistantEnvelope(msgID(i), base.Add(time.Duration(i)*time.Second)))
	}
	if err := s.LoadMessages(t.Context(), testSession); err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if err := s.LoadMoreMessages(t.Context(), testSession); err != nil {
		t.Fatalf("LoadMoreMessages: %v", err)
	}
	mem, _ := s.MemoryState(testSession)
	if mem.HasMoreAbove {
		t.Error("hasMoreAbove set with nothing left above")
	}
}
