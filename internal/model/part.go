// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for sessions, messages, and parts.
package model

import "time"

// =============================================================================
// PART TYPE
// =============================================================================

// PartType identifies the kind of content fragment a part carries.
type PartType string

const (
	PartText       PartType = "text"
	PartReasoning  PartType = "reasoning"
	PartTool       PartType = "tool"
	PartFile       PartType = "file"
	PartStepStart  PartType = "step-start"
	PartStepFinish PartType = "step-finish"
)

// =============================================================================
// TOOL STATE
// =============================================================================

// ToolState tracks the execution state of a tool part.
type ToolState string

const (
	ToolPending   ToolState = "pending"
	ToolStarted   ToolState = "started"
	ToolRunning   ToolState = "running"
	ToolCompleted ToolState = "completed"
	ToolAborted   ToolState = "aborted"
	ToolError     ToolState = "error"
)

// Open reports whether the state describes a tool still executing.
func (s ToolState) Open() bool {
	return s == ToolPending || s == ToolStarted || s == ToolRunning
}

// =============================================================================
// PART
// =============================================================================

// PartTime holds the start/end timestamps of a part's activity.
type PartTime struct {
	Start time.Time `json:"start,omitzero"`
	End   time.Time `json:"end,omitzero"`
}

// Part is one content fragment of a message.
//
// Identity is the explicit ID when present; step and tool parts that arrive
// without one derive a stable key from type, reason, and call ID instead.
type Part struct {
	ID        string   `json:"id,omitempty"`
	MessageID string   `json:"messageID,omitempty"`
	SessionID string   `json:"sessionID,omitempty"`
	Type      PartType `json:"type"`

	// Text and reasoning content
	Text string `json:"text,omitempty"`

	// Synthetic marks locally generated filler parts. Synthetic parts are
	// dropped entirely for user messages.
	Synthetic bool `json:"synthetic,omitempty"`

	// Tool parts
	CallID string    `json:"callID,omitempty"`
	Tool   string    `json:"tool,omitempty"`
	State  ToolState `json:"state,omitempty"`

	// Step parts
	Reason  string `json:"reason,omitempty"`
	Aborted bool   `json:"aborted,omitempty"`

	Time PartTime `json:"time,omitzero"`

	// Extra carries provider-specific fields verbatim.
	Extra map[string]any `json:"-"`
}

// Key returns the part's identity key within its message: the explicit ID
// when present, else a derived key that stabilizes step and tool parts.
func (p *Part) Key() string {
	if p.ID != "" {
		return p.ID
	}
	return string(p.Type) + "|" + p.Reason + "|" + p.CallID
}

// IsTerminal reports whether the part signals the end of a turn.
// A step-finish part closes out the assistant turn regardless of reason;
// reason "stop" additionally marks a clean server-side completion.
func (p *Part) IsTerminal() bool {
	return p.Type == PartStepFinish
}

// IsStopSignal reports whether this is the canonical "turn finished"
// terminal: a step-finish with reason "stop".
func (p *Part) IsStopSignal() bool {
	return p.Type == PartStepFinish && p.Reason == "stop"
}

// Unfinished reports whether the part represents in-flight work: an open
// tool, a reasoning part without an end stamp, or a dangling step-start.
// The abort fallback heuristic scans for these.
func (p *Part) Unfinished() bool {
	switch p.Type {
	case PartTool:
		return p.State.Open()
	case PartReasoning:
		return p.Time.End.IsZero()
	case PartStepStart:
		return true
	}
	return false
}
