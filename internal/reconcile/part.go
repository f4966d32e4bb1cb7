// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"strings"
	"time"

	"github.com/jeranaias/chamber-tui/internal/batch"
	"github.com/jeranaias/chamber-tui/internal/lifecycle"
	"github.com/jeranaias/chamber-tui/internal/model"
)

// =============================================================================
// PART APPLICATION
// =============================================================================

// ApplyPart reconciles one inbound part event against session state. This is
// the batch queue's apply target, and the only path by which streamed parts
// enter the store.
//
// The sequence is: role resolution, zombie guard, user-part handling, echo
// suppression, then assistant append or placeholder creation with lifecycle
// and timer upkeep. Terminal step-finish parts schedule an asynchronous
// forced completion rather than completing inline, so the remainder of the
// flushed batch still applies against a consistent list.
func (s *Store) ApplyPart(ev batch.PartEvent) {
	s.mu.Lock()
	changed := s.applyPartLocked(ev)
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

func (s *Store) applyPartLocked(ev batch.PartEvent) bool {
	sessionID := ev.SessionID
	messageID := ev.MessageID
	part := ev.Part
	if sessionID == "" {
		sessionID = s.index[messageID]
	}
	if sessionID == "" || messageID == "" {
		return false
	}
	if s.skip[messageID] {
		// Echo-suppressed message: every later part, terminals included,
		// is dropped so it never materializes.
		return false
	}
	now := s.now()

	// Role resolution: an existing message's pinned identity wins over
	// whatever the event claims.
	existing := s.findLocked(sessionID, messageID)
	role := ev.Role
	if existing != nil {
		if existing.IsUser() {
			role = model.RoleUser
		} else {
			role = model.RoleAssistant
		}
	} else if role == "" {
		role = model.RoleAssistant
	}

	// Zombie guard: a session streaming past the ceiling gets one forced
	// completion scheduled and drops parts until the stream resolves.
	mem := s.memoryLocked(sessionID)
	if mem.IsStreaming && !mem.StreamStartTime.IsZero() &&
		now.Sub(mem.StreamStartTime) > s.cfg.ZombieCeiling {
		if !mem.IsZombie {
			mem.IsZombie = true
			target := s.streamingMessageID
			if target == "" || s.index[target] != sessionID {
				target = messageID
			}
			s.log.Warn().
				Str("session", sessionID).
				Str("message", target).
				Dur("age", now.Sub(mem.StreamStartTime)).
				Msg("zombie stream detected, forcing completion")
			s.scheduleCompleteLocked(sessionID, target, 0)
		}
		return false
	}

	if sessionID != ev.ActiveSessionID && ev.ActiveSessionID != "" {
		mem.BackgroundMessageCount++
	}

	// User path: synthetic parts are dropped, real parts upsert. User
	// messages never touch the lifecycle tracker or streaming pointer.
	if role == model.RoleUser {
		if part.Synthetic {
			return false
		}
		if existing == nil {
			existing = model.NewUserMessage(sessionID, messageID, now)
			s.appendLocked(existing)
		}
		existing.UpsertPart(part)
		s.clearAbortLocked(sessionID)
		mem.LastAccessedAt = now
		return true
	}

	// Assistant append path.
	if existing != nil {
		existing.UpsertPart(part)
		if part.IsStopSignal() {
			existing.StopObserved = true
		}
		s.life = lifecycle.Touch(s.life, messageID, now)
		if s.streamingMessageID == "" {
			s.streamingMessageID = messageID
		}
		s.markStreamingLocked(sessionID, now)
		s.clearAbortLocked(sessionID)
		s.afterAssistantPartLocked(sessionID, messageID, part)
		return true
	}

	// Echo suppression: a brand-new message whose first part is text
	// identical to the latest user message is the server echoing input
	// back. Suppress the ID permanently.
	if part.Type == model.PartText {
		text := strings.TrimSpace(part.Text)
		if text != "" {
			if last := s.lastUserMessageLocked(sessionID); last != nil &&
				text == strings.TrimSpace(last.TextContent()) {
				s.skip[messageID] = true
				s.log.Debug().
					Str("message", messageID).
					Msg("suppressed echoed user text")
				return false
			}
		}
	}

	// New assistant turn: part arrived before its metadata. Buffer it for
	// the metadata drain and anchor it on a placeholder so it renders now.
	s.pending[messageID] = append(s.pending[messageID], part)
	msg := model.NewAssistantPlaceholder(sessionID, messageID, s.lastProviderID, s.lastModelID, now)
	msg.UpsertPart(part)
	if part.IsStopSignal() {
		msg.StopObserved = true
	}
	s.appendLocked(msg)
	s.life = lifecycle.Touch(s.life, messageID, now)
	s.streamingMessageID = messageID
	s.markStreamingLocked(sessionID, now)
	s.clearAbortLocked(sessionID)
	s.afterAssistantPartLocked(sessionID, messageID, part)
	return true
}

// afterAssistantPartLocked handles the timer side effects of an accepted
// assistant part: idle restart, duplicate-content detection, and terminal
// completion scheduling.
func (s *Store) afterAssistantPartLocked(sessionID, messageID string, part model.Part) {
	s.restartIdleLocked(sessionID, messageID)

	if part.Type == model.PartText {
		if messageID == s.streamingMessageID &&
			part.Text != "" && s.lastText[messageID] == part.Text {
			// Same content twice in a row: the stream has stalled on a
			// repeated frame. Give it one short grace period.
			s.armDuplicateLocked(sessionID, messageID)
		} else {
			// Fresh content supersedes a pending stall verdict.
			s.stopTimerLocked(s.dupTimers, messageID)
			s.lastText[messageID] = part.Text
		}
	}

	if part.IsTerminal() {
		s.scheduleCompleteLocked(sessionID, messageID, 0)
	}
}

// scheduleCompleteLocked queues an asynchronous CompleteStreamingMessage.
// A zero delay still goes through a timer so completion never runs inside
// the current apply pass.
func (s *Store) scheduleCompleteLocked(sessionID, messageID string, delay time.Duration) {
	time.AfterFunc(delay, func() {
		s.CompleteStreamingMessage(sessionID, messageID)
	})
}
