// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package state persists client state across runs.
package state

const (
	// SchemaVersion tracks the database schema version for migrations
	SchemaVersion = 1
)

// SQLite schema for persisted client state.
const Schema = `
-- Metadata table for schema version
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Key/value settings: last-used provider and model, active session, etc.
CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
) WITHOUT ROWID;

-- Per-session projection of reconciler memory state, enough to restore a
-- session's viewport on restart.
CREATE TABLE IF NOT EXISTS session_state (
    session_id TEXT PRIMARY KEY,
    viewport_anchor INTEGER NOT NULL DEFAULT 0,
    trimmed_head_max_id TEXT NOT NULL DEFAULT '',
    has_more_above INTEGER NOT NULL DEFAULT 0,
    total_available INTEGER NOT NULL DEFAULT 0,
    last_accessed_at INTEGER NOT NULL DEFAULT 0  -- Unix milliseconds
) WITHOUT ROWID;

CREATE INDEX IF NOT EXISTS idx_session_state_accessed
    ON session_state(last_accessed_at);

-- Abort flags that survived shutdown, so an abort banner shown once stays
-- shown once.
CREATE TABLE IF NOT EXISTS abort_flags (
    session_id TEXT PRIMARY KEY,
    aborted_at INTEGER NOT NULL,  -- Unix milliseconds
    acknowledged INTEGER NOT NULL DEFAULT 0
) WITHOUT ROWID;
`

// InitMetadata seeds the metadata table.
const InitMetadata = `
INSERT OR IGNORE INTO metadata (key, value) VALUES ('schema_version', '1');
`
