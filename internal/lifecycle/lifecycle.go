// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lifecycle tracks per-message streaming activity.
package lifecycle

import "time"

// =============================================================================
// PHASE TYPE
// =============================================================================

// Phase describes where a message sits in its streaming lifecycle.
type Phase string

const (
	PhaseStreaming Phase = "streaming"
	PhaseCooldown  Phase = "cooldown"
	PhaseCompleted Phase = "completed"
)

// =============================================================================
// ENTRY TYPE
// =============================================================================

// Entry records the streaming activity of one message. Created on the first
// part, refreshed on each subsequent part, deleted on completion or removal.
type Entry struct {
	Phase        Phase
	StartedAt    time.Time
	LastUpdateAt time.Time
}

// Map is the keyed lifecycle table, message ID to entry. It is treated as an
// immutable value: transforms return a new map, or the same reference when
// nothing changed, so callers can use reference equality to skip re-renders.
type Map map[string]Entry

// =============================================================================
// TRANSFORMS
// =============================================================================

// Touch marks id as actively streaming at now. The original StartedAt is
// preserved for existing entries; LastUpdateAt is always bumped.
func Touch(m Map, id string, now time.Time) Map {
	return TouchAll(m, []string{id}, now)
}

// TouchAll marks every id as streaming in a single pass over the map.
func TouchAll(m Map, ids []string, now time.Time) Map {
	if len(ids) == 0 {
		return m
	}

	out := make(Map, len(m)+len(ids))
	for k, v := range m {
		out[k] = v
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		started := now
		if prev, ok := out[id]; ok && !prev.StartedAt.IsZero() {
			started = prev.StartedAt
		}
		out[id] = Entry{
			Phase:        PhaseStreaming,
			StartedAt:    started,
			LastUpdateAt: now,
		}
	}
	return out
}

// Remove deletes the entries for ids. When none of the ids are present the
// input map is returned unchanged, preserving the no-op-when-absent
// semantic that downstream reference-equality checks rely on.
func Remove(m Map, ids ...string) Map {
	any := false
	for _, id := range ids {
		if _, ok := m[id]; ok {
			any = true
			break
		}
	}
	if !any {
		return m
	}

	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, id := range ids {
		delete(out, id)
	}
	return out
}

// Active reports whether id has a streaming-phase entry.
func Active(m Map, id string) bool {
	e, ok := m[id]
	return ok && e.Phase == PhaseStreaming
}

// IDs returns every tracked message ID.
func IDs(m Map) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}
