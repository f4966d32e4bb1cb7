// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway provides the HTTP and SSE client for the chamber server.
package gateway

import (
	"encoding/json"
	"time"

	"github.com/jeranaias/chamber-tui/internal/model"
)

// =============================================================================
// WIRE SHAPES
// =============================================================================

// wireTime is the server's {created, completed} epoch-millisecond pair.
type wireTime struct {
	Created   int64 `json:"created,omitempty"`
	Completed int64 `json:"completed,omitempty"`
}

// wirePartTime is the per-part {start, end} epoch-millisecond pair.
type wirePartTime struct {
	Start int64 `json:"start,omitempty"`
	End   int64 `json:"end,omitempty"`
}

// wireToolState is the nested execution state of a tool part.
type wireToolState struct {
	Status string       `json:"status,omitempty"`
	Time   wirePartTime `json:"time,omitempty"`
}

// wirePart mirrors the server's part payload.
type wirePart struct {
	ID        string          `json:"id,omitempty"`
	MessageID string          `json:"messageID,omitempty"`
	SessionID string          `json:"sessionID,omitempty"`
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Synthetic bool            `json:"synthetic,omitempty"`
	CallID    string          `json:"callID,omitempty"`
	Tool      string          `json:"tool,omitempty"`
	State     *wireToolState  `json:"state,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Time      *wirePartTime   `json:"time,omitempty"`
	Extra     json.RawMessage `json:"-"`
}

// wireInfo mirrors the server's message metadata payload.
type wireInfo struct {
	ID         string         `json:"id"`
	SessionID  string         `json:"sessionID,omitempty"`
	Role       string         `json:"role,omitempty"`
	Time       wireTime       `json:"time,omitempty"`
	ProviderID string         `json:"providerID,omitempty"`
	ModelID    string         `json:"modelID,omitempty"`
	Agent      string         `json:"agent,omitempty"`
	Mode       string         `json:"mode,omitempty"`
	Status     string         `json:"status,omitempty"`
	Extra      map[string]any `json:"-"`
}

// wireEnvelope is one {info, parts} entry from the session message endpoint.
type wireEnvelope struct {
	Info  wireInfo   `json:"info"`
	Parts []wirePart `json:"parts"`
}

// =============================================================================
// DECODE HELPERS
// =============================================================================

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// decodePart converts a wire part into the domain model.
func decodePart(w wirePart) model.Part {
	p := model.Part{
		ID:        w.ID,
		MessageID: w.MessageID,
		SessionID: w.SessionID,
		Type:      model.PartType(w.Type),
		Text:      w.Text,
		Synthetic: w.Synthetic,
		CallID:    w.CallID,
		Tool:      w.Tool,
		Reason:    w.Reason,
	}
	if w.State != nil {
		p.State = model.ToolState(w.State.Status)
		p.Time = model.PartTime{
			Start: fromMillis(w.State.Time.Start),
			End:   fromMillis(w.State.Time.End),
		}
	}
	if w.Time != nil {
		p.Time = model.PartTime{
			Start: fromMillis(w.Time.Start),
			End:   fromMillis(w.Time.End),
		}
	}
	return p
}

// decodeInfo converts wire metadata into the tagged MessageInfo union.
// Anything not explicitly user-role decodes as assistant metadata; the
// reconciler's role pinning handles the rest.
func decodeInfo(w wireInfo) model.MessageInfo {
	if w.Role == string(model.RoleUser) {
		return model.UserInfo{
			ID:        w.ID,
			SessionID: w.SessionID,
			Created:   fromMillis(w.Time.Created),
			Extra:     w.Extra,
		}
	}
	return model.AssistantInfo{
		ID:         w.ID,
		SessionID:  w.SessionID,
		Created:    fromMillis(w.Time.Created),
		Completed:  fromMillis(w.Time.Completed),
		ProviderID: w.ProviderID,
		ModelID:    w.ModelID,
		Agent:      w.Agent,
		Mode:       w.Mode,
		Status:     w.Status,
		Extra:      w.Extra,
	}
}

// decodeEnvelope converts one snapshot entry.
func decodeEnvelope(w wireEnvelope) model.MessageEnvelope {
	parts := make([]model.Part, 0, len(w.Parts))
	for _, wp := range w.Parts {
		parts = append(parts, decodePart(wp))
	}
	return model.MessageEnvelope{
		Info:  decodeInfo(w.Info),
		Parts: parts,
	}
}

// =============================================================================
// REQUEST SHAPES
// =============================================================================

// SendRequest describes one outbound user message.
type SendRequest struct {
	SessionID     string
	ProviderID    string
	ModelID       string
	Text          string
	Agent         string
	Files         []FileAttachment
	AgentMentions []string
}

// FileAttachment is one file carried with a send.
type FileAttachment struct {
	Filename string `json:"filename"`
	Mime     string `json:"mime"`
	URL      string `json:"url"`
}

// Agent describes one configured agent on the server.
type Agent struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Mode        string `json:"mode,omitempty"`
	BuiltIn     bool   `json:"builtIn,omitempty"`
}
