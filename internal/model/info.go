// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for sessions, messages, and parts.
package model

import "time"

// =============================================================================
// MESSAGE INFO (TAGGED UNION)
// =============================================================================

// MessageInfo is a server-authoritative message-level update. It is a closed
// union over UserInfo and AssistantInfo; provider-specific fields ride along
// in each variant's Extra bag so unknown metadata survives round trips
// without weakening the known shape.
type MessageInfo interface {
	// InfoID returns the message ID the update targets.
	InfoID() string
	// CreatedAt returns the server-side creation time, zero when absent.
	CreatedAt() time.Time
	// InfoRole returns the role the server claims for the message.
	InfoRole() Role
}

// UserInfo is metadata for a user-authored message.
type UserInfo struct {
	ID        string
	SessionID string
	Created   time.Time
	Extra     map[string]any
}

// InfoID implements MessageInfo.
func (u UserInfo) InfoID() string { return u.ID }

// CreatedAt implements MessageInfo.
func (u UserInfo) CreatedAt() time.Time { return u.Created }

// InfoRole implements MessageInfo.
func (u UserInfo) InfoRole() Role { return RoleUser }

// AssistantInfo is metadata for an assistant-authored message.
type AssistantInfo struct {
	ID         string
	SessionID  string
	Created    time.Time
	Completed  time.Time
	ProviderID string
	ModelID    string
	Agent      string
	Mode       string
	Status     string
	Extra      map[string]any
}

// InfoID implements MessageInfo.
func (a AssistantInfo) InfoID() string { return a.ID }

// CreatedAt implements MessageInfo.
func (a AssistantInfo) CreatedAt() time.Time { return a.Created }

// InfoRole implements MessageInfo.
func (a AssistantInfo) InfoRole() Role { return RoleAssistant }

// =============================================================================
// MESSAGE ENVELOPE
// =============================================================================

// MessageEnvelope pairs message metadata with its parts, as returned by the
// server's full-session snapshot endpoint.
type MessageEnvelope struct {
	Info  MessageInfo
	Parts []Part
}
