// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"time"

	"github.com/jeranaias/chamber-tui/internal/ident"
	"github.com/jeranaias/chamber-tui/internal/lifecycle"
	"github.com/jeranaias/chamber-tui/internal/model"
)

// =============================================================================
// PER-SESSION MEMORY STATE
// =============================================================================

// MemoryState tracks one session's viewport, streaming flags, and eviction
// bookkeeping.
type MemoryState struct {
	// ViewportAnchor is the index the viewport is centered on within the
	// resident message list.
	ViewportAnchor int

	// IsStreaming is up while the session has an active or cooling-down
	// stream.
	IsStreaming bool

	// StreamStartTime is when the current stream began; zero when idle.
	StreamStartTime time.Time

	// StreamingCooldownUntil holds the cooldown deadline after a turn
	// completes; zero when no cooldown is pending.
	StreamingCooldownUntil time.Time

	// LastAccessedAt orders sessions for LRU eviction.
	LastAccessedAt time.Time

	// BackgroundMessageCount counts messages that arrived while the
	// session was not the active one.
	BackgroundMessageCount int

	// IsZombie marks a stream that exceeded the zombie ceiling.
	IsZombie bool

	// TotalAvailableMessages is the server-side message count from the
	// last snapshot.
	TotalAvailableMessages int

	// HasMoreAbove reports whether older messages exist beyond the
	// resident window.
	HasMoreAbove bool

	// TrimmedHeadMaxID is the head-trim watermark: the largest sortable
	// message ID ever trimmed from the head. Snapshot entries at or below
	// it are never re-materialized. Monotonically non-decreasing.
	TrimmedHeadMaxID string

	// IsSyncing is up briefly after a snapshot swap so scroll heuristics
	// can ignore the resulting list churn.
	IsSyncing bool
}

// =============================================================================
// VIEWPORT AND EVICTION
// =============================================================================

// UpdateViewportAnchor records where the viewport sits in the session's
// resident list, clamped to valid indices.
func (s *Store) UpdateViewportAnchor(sessionID string, index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mem := s.memoryLocked(sessionID)
	n := len(s.messages[sessionID])
	if index < 0 {
		index = 0
	}
	if n > 0 && index >= n {
		index = n - 1
	}
	mem.ViewportAnchor = index
	mem.LastAccessedAt = s.now()
}

// TrimToViewportWindow drops resident messages outside a window of
// targetSize centered on the viewport anchor. No-op when the session is
// already within bounds, when it is the active session and streaming, or
// when the window would cut through an actively streaming message. Head
// removals advance the trim watermark so later snapshots cannot resurrect
// them.
func (s *Store) TrimToViewportWindow(sessionID string, targetSize int, activeSessionID string) {
	if targetSize <= 0 {
		targetSize = s.cfg.ViewportWindow
	}

	s.mu.Lock()
	msgs := s.messages[sessionID]
	if len(msgs) <= targetSize {
		s.mu.Unlock()
		return
	}
	mem := s.memoryLocked(sessionID)
	if sessionID == activeSessionID && mem.IsStreaming {
		s.mu.Unlock()
		return
	}

	anchor := mem.ViewportAnchor
	if anchor < 0 {
		anchor = 0
	}
	if anchor >= len(msgs) {
		anchor = len(msgs) - 1
	}
	start := anchor - targetSize/2
	if start < 0 {
		start = 0
	}
	if start > len(msgs)-targetSize {
		start = len(msgs) - targetSize
	}
	end := start + targetSize

	// A message mid-stream is never trimmed away, even in a background
	// session. Bail out rather than slide the window around it.
	for i, m := range msgs {
		if (i < start || i >= end) && lifecycle.Active(s.life, m.ID) {
			s.mu.Unlock()
			return
		}
	}

	head := msgs[:start]
	tail := msgs[end:]
	if max := ident.MaxSortable(messageIDs(head)); max != "" {
		if mem.TrimmedHeadMaxID == "" || ident.IsNewer(max, mem.TrimmedHeadMaxID) {
			mem.TrimmedHeadMaxID = max
		}
	}
	for _, m := range head {
		s.purgeMessageLocked(m.ID)
	}
	for _, m := range tail {
		s.purgeMessageLocked(m.ID)
	}

	window := make([]*model.Message, end-start)
	copy(window, msgs[start:end])
	s.messages[sessionID] = window
	if len(head) > 0 {
		mem.HasMoreAbove = true
	}
	mem.ViewportAnchor = anchor - start
	s.log.Debug().
		Str("session", sessionID).
		Int("removed_head", len(head)).
		Int("removed_tail", len(tail)).
		Str("watermark", mem.TrimmedHeadMaxID).
		Msg("trimmed session window")
	s.mu.Unlock()
	s.notify()
}

// EvictLeastRecentlyUsed removes whole sessions beyond the resident cap,
// never touching the active session or one that is streaming. Abort flags
// survive eviction; everything else about the session is dropped.
func (s *Store) EvictLeastRecentlyUsed(activeSessionID string) {
	s.mu.Lock()
	evicted := 0
	for len(s.messages) > s.cfg.MaxResidentSessions {
		victim := ""
		var oldest time.Time
		for id := range s.messages {
			if id == activeSessionID {
				continue
			}
			mem := s.memoryLocked(id)
			if mem.IsStreaming {
				continue
			}
			if victim == "" || mem.LastAccessedAt.Before(oldest) {
				victim = id
				oldest = mem.LastAccessedAt
			}
		}
		if victim == "" {
			break
		}
		for _, m := range s.messages[victim] {
			s.purgeMessageLocked(m.ID)
		}
		delete(s.messages, victim)
		delete(s.memory, victim)
		s.stopTimerLocked(s.cooldownTimers, victim)
		s.stopTimerLocked(s.syncTimers, victim)
		evicted++
		s.log.Debug().Str("session", victim).Msg("evicted session")
	}
	s.mu.Unlock()
	if evicted > 0 {
		s.notify()
	}
}

// Maintain runs the periodic memory housekeeping pass: every resident
// session is trimmed to the configured viewport window and cold sessions
// beyond the resident cap are evicted. Safe to call on a timer regardless
// of streaming state; the per-session guards inside trim and evict skip
// anything live.
func (s *Store) Maintain(activeSessionID string) {
	for _, id := range s.ResidentSessions() {
		s.TrimToViewportWindow(id, s.cfg.ViewportWindow, activeSessionID)
	}
	s.EvictLeastRecentlyUsed(activeSessionID)
}

// RestoreMemoryState seeds a session's persisted projection before its
// messages load, so the head-trim watermark and viewport anchor survive a
// restart. Only the durable fields transfer; live streaming flags always
// start cold. A session that already holds resident messages keeps its
// current state.
func (s *Store) RestoreMemoryState(sessionID string, saved MemoryState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.messages[sessionID]) > 0 {
		return
	}
	mem := s.memoryLocked(sessionID)
	mem.ViewportAnchor = saved.ViewportAnchor
	mem.TrimmedHeadMaxID = saved.TrimmedHeadMaxID
	mem.HasMoreAbove = saved.HasMoreAbove
	mem.TotalAvailableMessages = saved.TotalAvailableMessages
	if !saved.LastAccessedAt.IsZero() {
		mem.LastAccessedAt = saved.LastAccessedAt
	}
}

// messageIDs collects the IDs of a message slice.
func messageIDs(msgs []*model.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}
