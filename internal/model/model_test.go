// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for sessions, messages, and parts.
package model

import (
	"testing"
	"time"
)

// =============================================================================
// PART KEY TESTS
// =============================================================================

func TestPartKeyExplicitID(t *testing.T) {
	p := Part{ID: "prt_abc", Type: PartText}
	if p.Key() != "prt_abc" {
		t.Errorf("expected explicit ID as key, got %q", p.Key())
	}
}

func TestPartKeyDerived(t *testing.T) {
	a := Part{Type: PartStepFinish, Reason: "stop"}
	b := Part{Type: PartStepFinish, Reason: "stop"}
	if a.Key() != b.Key() {
		t.Error("identical step parts should share a key")
	}

	c := Part{Type: PartTool, CallID: "call_1"}
	d := Part{Type: PartTool, CallID: "call_2"}
	if c.Key() == d.Key() {
		t.Error("tool parts with different call IDs should not collide")
	}
}

// =============================================================================
// UPSERT TESTS
// =============================================================================

func TestUpsertPartReplacesInPlace(t *testing.T) {
	m := &Message{ID: "msg_0000000001"}
	m.UpsertPart(Part{ID: "p1", Type: PartText, Text: "hel"})
	m.UpsertPart(Part{ID: "p2", Type: PartReasoning, Text: "thinking"})
	m.UpsertPart(Part{ID: "p1", Type: PartText, Text: "hello"})

	if len(m.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(m.Parts))
	}
	// Replacement stays at the position of first occurrence.
	if m.Parts[0].Text != "hello" {
		t.Errorf("expected replaced text at index 0, got %q", m.Parts[0].Text)
	}
	if m.Parts[1].Type != PartReasoning {
		t.Errorf("expected reasoning part at index 1, got %s", m.Parts[1].Type)
	}
}

func TestUpsertPartAppendsDistinctKeys(t *testing.T) {
	m := &Message{ID: "msg_0000000001"}
	m.UpsertPart(Part{ID: "a", Type: PartText, Text: "1"})
	m.UpsertPart(Part{ID: "b", Type: PartText, Text: "2"})
	m.UpsertPart(Part{ID: "c", Type: PartText, Text: "3"})

	if len(m.Parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(m.Parts))
	}
	if m.TextContent() != "123" {
		t.Errorf("expected first-seen order, got %q", m.TextContent())
	}
}

// =============================================================================
// ROLE PINNING TESTS
// =============================================================================

func TestPinUserStripsAssistantFields(t *testing.T) {
	m := &Message{
		ID:         "msg_0000000001",
		Role:       RoleAssistant,
		ProviderID: "anthropic",
		ModelID:    "some-model",
		Streaming:  true,
	}
	m.PinUser()

	if !m.IsUser() {
		t.Fatal("message should be user after pinning")
	}
	if m.ProviderID != "" || m.ModelID != "" || m.Agent != "" {
		t.Error("assistant-only fields should be stripped")
	}
	if m.Streaming {
		t.Error("pinned user message should not be streaming")
	}
}

func TestIsUserByAnyMarker(t *testing.T) {
	byRole := &Message{Role: RoleUser}
	byShadow := &Message{Role: RoleAssistant, ClientRole: RoleUser}
	byMarker := &Message{Role: RoleAssistant, UserMarker: true}

	for i, m := range []*Message{byRole, byShadow, byMarker} {
		if !m.IsUser() {
			t.Errorf("case %d: expected IsUser", i)
		}
	}
}

// =============================================================================
// TOOL STATE TESTS
// =============================================================================

func TestToolStateOpen(t *testing.T) {
	open := []ToolState{ToolPending, ToolStarted, ToolRunning}
	closed := []ToolState{ToolCompleted, ToolAborted, ToolError}

	for _, s := range open {
		if !s.Open() {
			t.Errorf("%s should be open", s)
		}
	}
	for _, s := range closed {
		if s.Open() {
			t.Errorf("%s should not be open", s)
		}
	}
}

func TestPartUnfinished(t *testing.T) {
	cases := []struct {
		part Part
		want bool
	}{
		{Part{Type: PartTool, State: ToolRunning}, true},
		{Part{Type: PartTool, State: ToolCompleted}, false},
		{Part{Type: PartReasoning}, true},
		{Part{Type: PartReasoning, Time: PartTime{End: time.Now()}}, false},
		{Part{Type: PartStepStart}, true},
		{Part{Type: PartText}, false},
	}
	for i, c := range cases {
		if got := c.part.Unfinished(); got != c.want {
			t.Errorf("case %d: Unfinished() = %v, want %v", i, got, c.want)
		}
	}
}

// =============================================================================
// CLONE TESTS
// =============================================================================

func TestCloneIsDeep(t *testing.T) {
	m := &Message{ID: "msg_0000000001"}
	m.UpsertPart(Part{ID: "p1", Type: PartText, Text: "original"})

	cp := m.Clone()
	cp.Parts[0].Text = "mutated"

	if m.Parts[0].Text != "original" {
		t.Error("mutating a clone should not affect the original")
	}
}
