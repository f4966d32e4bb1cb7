// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for sessions, messages, and parts.
package model

import "time"

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// =============================================================================
// MESSAGE STATUS
// =============================================================================

// Message status values. Status is advisory display state; the lifecycle
// tracker is authoritative for "is this message still streaming" queries.
const (
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
)

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// MessageTime holds creation and completion timestamps.
// Completed is zero while the message is still streaming.
type MessageTime struct {
	Created   time.Time `json:"created"`
	Completed time.Time `json:"completed,omitzero"`
}

// Message represents a single turn in a conversation.
//
// A message is created in one of three ways: from a server metadata event,
// synthesized locally as a placeholder when a part arrives before its owning
// message's metadata, or materialized from a full snapshot fetch. It is
// destroyed only by viewport trimming, LRU eviction, or session deletion,
// and never while actively streaming in its own session.
type Message struct {
	// Identity
	ID        string `json:"id"`
	SessionID string `json:"sessionId"`
	Role      Role   `json:"role"`

	// ClientRole shadows Role and, together with UserMarker, pins a message
	// as user-origin against later metadata overwrites. Once pinned, no
	// metadata update may flip the rendered role to assistant.
	ClientRole Role `json:"clientRole,omitempty"`
	UserMarker bool `json:"userMessageMarker,omitempty"`

	// Content
	Parts []Part `json:"parts"`

	// Timing and state
	Time      MessageTime `json:"time"`
	Status    string      `json:"status,omitempty"`
	Streaming bool        `json:"streaming,omitempty"`
	AbortedAt time.Time   `json:"abortedAt,omitzero"`

	// StopObserved records that a terminal stop signal (step-finish with
	// reason "stop") was seen for this message. Snapshot merges use it to
	// refuse truncating a turn that already finished locally.
	StopObserved bool `json:"-"`

	// Provenance (assistant messages)
	ProviderID string `json:"providerID,omitempty"`
	ModelID    string `json:"modelID,omitempty"`
	Agent      string `json:"agent,omitempty"`

	// Extra carries provider-specific metadata fields verbatim.
	Extra map[string]any `json:"-"`
}

// NewUserMessage synthesizes a user message from its first part.
// The server is the source of truth for user message identity, so this is
// only used when a user part arrives for an ID we have not materialized.
func NewUserMessage(sessionID, id string, created time.Time) *Message {
	return &Message{
		ID:         id,
		SessionID:  sessionID,
		Role:       RoleUser,
		ClientRole: RoleUser,
		UserMarker: true,
		Time:       MessageTime{Created: created},
	}
}

// NewAssistantPlaceholder synthesizes an assistant message to anchor parts
// that arrived before the owning metadata event. Provider and model come from
// the last-used pair so the UI has something sensible to display.
func NewAssistantPlaceholder(sessionID, id, providerID, modelID string, created time.Time) *Message {
	return &Message{
		ID:         id,
		SessionID:  sessionID,
		Role:       RoleAssistant,
		Time:       MessageTime{Created: created},
		Streaming:  true,
		ProviderID: providerID,
		ModelID:    modelID,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// IsUser reports whether the message is pinned or marked as user-origin.
// Any of the marker, the client role shadow, or the role itself counts.
func (m *Message) IsUser() bool {
	return m.UserMarker || m.ClientRole == RoleUser || m.Role == RoleUser
}

// PinUser forcibly re-pins the message as user-origin and strips
// assistant-only fields that may have leaked in through a metadata race.
func (m *Message) PinUser() {
	m.Role = RoleUser
	m.ClientRole = RoleUser
	m.UserMarker = true
	m.ProviderID = ""
	m.ModelID = ""
	m.Agent = ""
	m.Streaming = false
}

// UpsertPart inserts the part by key: a part sharing a key with an existing
// part replaces it in place; otherwise it is appended. Within one message,
// part keys are unique and insertion order is render order.
func (m *Message) UpsertPart(p Part) {
	key := p.Key()
	for i := range m.Parts {
		if m.Parts[i].Key() == key {
			m.Parts[i] = p
			return
		}
	}
	m.Parts = append(m.Parts, p)
}

// TextContent returns the concatenated text of all text parts.
func (m *Message) TextContent() string {
	var out string
	for i := range m.Parts {
		if m.Parts[i].Type == PartText {
			out += m.Parts[i].Text
		}
	}
	return out
}

// TextLen returns the accumulated text length across text parts.
func (m *Message) TextLen() int {
	n := 0
	for i := range m.Parts {
		if m.Parts[i].Type == PartText {
			n += len(m.Parts[i].Text)
		}
	}
	return n
}

// Clone returns a deep copy of the message. The reconciler hands clones to
// readers so render passes never observe in-place mutation.
func (m *Message) Clone() *Message {
	cp := *m
	cp.Parts = make([]Part, len(m.Parts))
	copy(cp.Parts, m.Parts)
	if m.Extra != nil {
		cp.Extra = make(map[string]any, len(m.Extra))
		for k, v := range m.Extra {
			cp.Extra[k] = v
		}
	}
	return &cp
}
