// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lifecycle tracks per-message streaming activity.
//
// The lifecycle table maps message IDs to {phase, startedAt, lastUpdateAt}
// entries. It is touched on every incoming part and cleared on completion
// or eviction, and answers "is this message still actively streaming"
// independently of any render state. Message status fields are advisory;
// this table is authoritative.
//
// All transforms are pure: given an input map they return a new map, or the
// same reference when nothing changed. Callers compare references to skip
// downstream re-render work.
package lifecycle
