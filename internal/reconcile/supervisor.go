// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"time"

	"github.com/jeranaias/chamber-tui/internal/lifecycle"
	"github.com/jeranaias/chamber-tui/internal/model"
)

// =============================================================================
// STREAM COMPLETION SUPERVISOR
// =============================================================================
//
// Servers do not always deliver a terminal step-finish: streams die, proxies
// cut connections, models stall. The supervisor watches every streaming
// message with an idle timer, watches the streaming message for repeated
// content, and force-completes when either trips. Forced completion is
// idempotent, so a late genuine terminal arriving after a timeout is
// harmless.

// restartIdleLocked (re)arms the per-message idle timer. Any part for the
// message pushes the deadline out.
func (s *Store) restartIdleLocked(sessionID, messageID string) {
	s.stopTimerLocked(s.idleTimers, messageID)
	s.idleTimers[messageID] = time.AfterFunc(s.cfg.IdleTimeout, func() {
		s.log.Warn().
			Str("message", messageID).
			Dur("timeout", s.cfg.IdleTimeout).
			Msg("stream idle timeout, forcing completion")
		s.CompleteStreamingMessage(sessionID, messageID)
	})
}

// armDuplicateLocked arms the short duplicate-content timer, if not already
// pending. A fresh text frame disarms it before it fires.
func (s *Store) armDuplicateLocked(sessionID, messageID string) {
	if _, ok := s.dupTimers[messageID]; ok {
		return
	}
	s.dupTimers[messageID] = time.AfterFunc(s.cfg.DuplicateTimeout, func() {
		s.log.Debug().
			Str("message", messageID).
			Msg("duplicate content, forcing completion")
		s.CompleteStreamingMessage(sessionID, messageID)
	})
}

// ForceCompleteMessage idempotently marks a message completed: completion
// time, status, streaming flag, and every still-open part get closed out.
// Returns true when anything actually changed.
func (s *Store) ForceCompleteMessage(sessionID, messageID string) bool {
	s.mu.Lock()
	changed := s.forceCompleteLocked(sessionID, messageID)
	s.mu.Unlock()
	if changed {
		s.notify()
	}
	return changed
}

func (s *Store) forceCompleteLocked(sessionID, messageID string) bool {
	msg := s.findLocked(sessionID, messageID)
	if msg == nil {
		return false
	}
	now := s.now()
	changed := false

	if msg.Time.Completed.IsZero() {
		msg.Time.Completed = now
		changed = true
	}
	if msg.Status == "" {
		msg.Status = model.StatusCompleted
		changed = true
	}
	if msg.Streaming {
		msg.Streaming = false
		changed = true
	}
	for i := range msg.Parts {
		p := &msg.Parts[i]
		switch p.Type {
		case model.PartTool:
			if p.State.Open() {
				p.State = model.ToolCompleted
				if p.Time.End.IsZero() {
					p.Time.End = now
				}
				changed = true
			}
		case model.PartReasoning, model.PartText:
			if p.Time.End.IsZero() && !p.Time.Start.IsZero() {
				p.Time.End = now
				changed = true
			}
		}
	}
	return changed
}

// CompleteStreamingMessage ends a message's streaming lifecycle: forced
// completion, pointer and tracker cleanup, timer teardown, and the session's
// transition into streaming cooldown. Safe to call for messages that already
// completed, were evicted, or never existed.
func (s *Store) CompleteStreamingMessage(sessionID, messageID string) {
	s.mu.Lock()
	if sessionID == "" {
		sessionID = s.index[messageID]
	}
	changed := s.forceCompleteLocked(sessionID, messageID)

	if s.streamingMessageID == messageID {
		s.streamingMessageID = ""
		changed = true
	}
	if lifecycle.Active(s.life, messageID) {
		changed = true
	}
	s.life = lifecycle.Remove(s.life, messageID)
	s.stopTimerLocked(s.idleTimers, messageID)
	s.stopTimerLocked(s.dupTimers, messageID)
	delete(s.pending, messageID)
	delete(s.lastText, messageID)

	if sessionID != "" {
		if mem, ok := s.memory[sessionID]; ok && mem.IsStreaming {
			s.beginCooldownLocked(sessionID, mem)
			changed = true
		}
	}
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// beginCooldownLocked schedules the streaming flag to drop after the
// cooldown window. The deadline is re-checked when the timer fires, so a
// stream that resumed in the interim (which zeroes the deadline) keeps the
// flag up.
func (s *Store) beginCooldownLocked(sessionID string, mem *MemoryState) {
	mem.StreamingCooldownUntil = s.now().Add(s.cfg.CooldownDuration)
	mem.IsZombie = false
	s.stopTimerLocked(s.cooldownTimers, sessionID)
	s.cooldownTimers[sessionID] = time.AfterFunc(s.cfg.CooldownDuration, func() {
		s.mu.Lock()
		changed := false
		if m, ok := s.memory[sessionID]; ok {
			if !m.StreamingCooldownUntil.IsZero() && !s.now().Before(m.StreamingCooldownUntil) {
				m.IsStreaming = false
				m.StreamStartTime = time.Time{}
				m.StreamingCooldownUntil = time.Time{}
				m.IsZombie = false
				changed = true
			}
		}
		delete(s.cooldownTimers, sessionID)
		s.mu.Unlock()
		if changed {
			s.notify()
		}
	})
}
