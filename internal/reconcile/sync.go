// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"time"

	"github.com/jeranaias/chamber-tui/internal/gateway"
	"github.com/jeranaias/chamber-tui/internal/ident"
	"github.com/jeranaias/chamber-tui/internal/model"
)

// =============================================================================
// SNAPSHOT SYNC
// =============================================================================

// SyncMessages reconciles a full server snapshot against resident state.
// Entries at or below the head-trim watermark stay gone, echo-suppressed IDs
// stay suppressed, and a locally finished turn with more text than the
// snapshot keeps its local parts. Messages the snapshot no longer contains
// are purged. The isSyncing flag goes up briefly so scroll heuristics ignore
// the swap.
func (s *Store) SyncMessages(sessionID string, envelopes []model.MessageEnvelope) {
	if sessionID == "" {
		return
	}
	s.mu.Lock()
	s.applySnapshotLocked(sessionID, envelopes)
	s.raiseSyncFlagLocked(sessionID)
	s.mu.Unlock()
	s.notify()
}

// applySnapshotLocked swaps the session's resident list for the snapshot,
// applying the watermark filter, longest-finished-text merge, and removed-ID
// purge. Returns the number of snapshot entries kept.
func (s *Store) applySnapshotLocked(sessionID string, envelopes []model.MessageEnvelope) int {
	mem := s.memoryLocked(sessionID)
	before := make(map[string]*model.Message, len(s.messages[sessionID]))
	for _, m := range s.messages[sessionID] {
		before[m.ID] = m
	}

	next := make([]*model.Message, 0, len(envelopes))
	seen := make(map[string]bool, len(envelopes))
	for _, env := range envelopes {
		if env.Info == nil {
			continue
		}
		id := env.Info.InfoID()
		if id == "" || s.skip[id] {
			continue
		}
		if mem.TrimmedHeadMaxID != "" && !ident.IsNewer(id, mem.TrimmedHeadMaxID) {
			continue
		}
		msg := s.mergeSnapshotEntryLocked(sessionID, before[id], env)
		next = append(next, msg)
		seen[id] = true
	}

	for id := range before {
		if !seen[id] {
			s.purgeMessageLocked(id)
			delete(s.skip, id)
		}
	}
	s.messages[sessionID] = next
	for _, m := range next {
		s.index[m.ID] = sessionID
	}
	mem.TotalAvailableMessages = len(envelopes)
	mem.LastAccessedAt = s.now()
	if n := len(next); n > 0 && mem.ViewportAnchor >= n {
		mem.ViewportAnchor = n - 1
	}
	return len(next)
}

// mergeSnapshotEntryLocked produces the resident message for one snapshot
// entry, preferring local state where it is provably ahead of the server.
func (s *Store) mergeSnapshotEntryLocked(sessionID string, existing *model.Message, env model.MessageEnvelope) *model.Message {
	fresh := s.materializeEnvelopeLocked(sessionID, env)

	if existing == nil {
		return fresh
	}
	fresh.StopObserved = fresh.StopObserved || existing.StopObserved

	if existing.IsUser() {
		// Role pinning survives snapshot swaps.
		fresh.PinUser()
		return fresh
	}

	// A turn that finished locally with more text than the snapshot shows
	// is a server that lagged behind its own stream. Keep the local parts
	// and fold in anything snapshot-only.
	if existing.StopObserved && existing.TextLen() > fresh.TextLen() {
		keys := make(map[string]bool, len(existing.Parts))
		for i := range existing.Parts {
			keys[existing.Parts[i].Key()] = true
		}
		for _, p := range env.Parts {
			if !keys[p.Key()] {
				existing.Parts = append(existing.Parts, p)
			}
		}
		s.mergeMetadataLocked(existing, env.Info)
		return existing
	}
	return fresh
}

// materializeEnvelopeLocked builds a message from a snapshot envelope,
// including its parts and any still-pending buffered parts.
func (s *Store) materializeEnvelopeLocked(sessionID string, env model.MessageEnvelope) *model.Message {
	msg := s.materializeLocked(sessionID, env.Info, s.now())
	for _, p := range env.Parts {
		msg.UpsertPart(p)
		if p.IsStopSignal() {
			msg.StopObserved = true
		}
	}
	return msg
}

// raiseSyncFlagLocked puts isSyncing up for the configured window.
func (s *Store) raiseSyncFlagLocked(sessionID string) {
	mem := s.memoryLocked(sessionID)
	mem.IsSyncing = true
	s.stopTimerLocked(s.syncTimers, sessionID)
	s.syncTimers[sessionID] = time.AfterFunc(s.cfg.SyncFlagDuration, func() {
		s.mu.Lock()
		if m, ok := s.memory[sessionID]; ok {
			m.IsSyncing = false
		}
		delete(s.syncTimers, sessionID)
		s.mu.Unlock()
		s.notify()
	})
}

// =============================================================================
// INITIAL LOAD AND LOAD-MORE
// =============================================================================

// LoadMessages fetches a session's full history and seeds its resident
// state: snapshot merge, window cut to the configured viewport size anchored
// at the bottom, and memory-state initialization. Resident state is left
// untouched on fetch failure.
func (s *Store) LoadMessages(ctx context.Context, sessionID string) error {
	if s.gw == nil {
		return gateway.ErrNotConnected
	}
	envelopes, err := s.gw.FetchSessionMessages(ctx, sessionID)
	if err != nil {
		return gateway.Normalize(err)
	}

	s.mu.Lock()
	s.seedSessionLocked(sessionID, envelopes)
	s.mu.Unlock()
	s.notify()
	return nil
}

// seedSessionLocked applies a snapshot and initializes viewport state: the
// window is cut to the configured size, anchored at the bottom.
func (s *Store) seedSessionLocked(sessionID string, envelopes []model.MessageEnvelope) {
	fetched := s.applySnapshotLocked(sessionID, envelopes)
	msgs := s.messages[sessionID]
	mem := s.memoryLocked(sessionID)
	if len(msgs) > s.cfg.ViewportWindow {
		cut := len(msgs) - s.cfg.ViewportWindow
		for _, m := range msgs[:cut] {
			s.purgeMessageLocked(m.ID)
		}
		kept := make([]*model.Message, s.cfg.ViewportWindow)
		copy(kept, msgs[cut:])
		s.messages[sessionID] = kept
		msgs = kept
	}
	mem.HasMoreAbove = fetched > len(msgs)
	if len(msgs) > 0 {
		mem.ViewportAnchor = len(msgs) - 1
	} else {
		mem.ViewportAnchor = 0
	}
	mem.BackgroundMessageCount = 0
	mem.LastAccessedAt = s.now()
	s.raiseSyncFlagLocked(sessionID)
}

// LoadMoreMessages splices up to the configured chunk of older messages
// above the resident window. Only upward paging exists; the bottom of the
// window is always live.
func (s *Store) LoadMoreMessages(ctx context.Context, sessionID string) error {
	if s.gw == nil {
		return gateway.ErrNotConnected
	}
	envelopes, err := s.gw.FetchSessionMessages(ctx, sessionID)
	if err != nil {
		return gateway.Normalize(err)
	}

	s.mu.Lock()
	mem := s.memoryLocked(sessionID)
	msgs := s.messages[sessionID]
	if len(msgs) == 0 {
		s.seedSessionLocked(sessionID, envelopes)
		s.mu.Unlock()
		s.notify()
		return nil
	}
	headID := msgs[0].ID

	// Candidates: snapshot entries older than the resident head, newest
	// last, excluding suppressed IDs. The watermark moves back to admit
	// them, since an explicit load-more is the user asking for exactly
	// this region.
	older := make([]*model.Message, 0, s.cfg.LoadMoreChunk)
	for _, env := range envelopes {
		if env.Info == nil {
			continue
		}
		id := env.Info.InfoID()
		if id == headID {
			break
		}
		if id == "" || s.skip[id] {
			continue
		}
		if owner, resident := s.index[id]; resident && owner == sessionID {
			// Snapshot order disagrees with residency; never duplicate.
			continue
		}
		older = append(older, s.materializeEnvelopeLocked(sessionID, env))
	}
	if len(older) > s.cfg.LoadMoreChunk {
		older = older[len(older)-s.cfg.LoadMoreChunk:]
	}
	if len(older) == 0 {
		mem.HasMoreAbove = false
		s.mu.Unlock()
		s.notify()
		return nil
	}

	// An explicit load-more is the user asking for the trimmed region
	// back. If the splice reaches at or below the watermark, drop the
	// watermark so future syncs keep these resident.
	if mem.TrimmedHeadMaxID != "" && !ident.IsNewer(older[0].ID, mem.TrimmedHeadMaxID) {
		mem.TrimmedHeadMaxID = ""
	}

	joined := make([]*model.Message, 0, len(older)+len(msgs))
	joined = append(joined, older...)
	joined = append(joined, msgs...)
	s.messages[sessionID] = joined
	for _, m := range older {
		s.index[m.ID] = sessionID
	}
	mem.ViewportAnchor += len(older)
	mem.HasMoreAbove = len(older) == s.cfg.LoadMoreChunk
	mem.LastAccessedAt = s.now()
	s.raiseSyncFlagLocked(sessionID)
	s.mu.Unlock()
	s.notify()
	return nil
}
