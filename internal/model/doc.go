// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for sessions, messages, and parts.
//
// This package defines the domain types the reconciliation engine operates
// on: messages as ordered sequences of typed parts, plus the tagged metadata
// union the server sends out of band.
//
// # Key Types
//
//   - Message: one conversation turn with role pinning and part upserts
//   - Part: one content fragment (text, reasoning, tool, file, step markers)
//   - MessageInfo: closed union of UserInfo and AssistantInfo metadata
//   - MessageEnvelope: snapshot pairing of info and parts
//
// # Part Identity
//
// Within one message, part keys are unique: a later part with the same key
// replaces the earlier one in place rather than duplicating it. Parts with
// an explicit ID use it directly; step and tool parts without one derive a
// stable key from type, reason, and call ID.
//
// # Role Pinning
//
// Once a message is user-origin (marker, client role, or role), metadata
// updates may not convert it to assistant. PinUser re-asserts the pin and
// strips assistant-only fields; the reverse conversion is impossible by
// construction.
package model
