// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"time"

	"github.com/jeranaias/chamber-tui/internal/lifecycle"
	"github.com/jeranaias/chamber-tui/internal/model"
)

// =============================================================================
// ABORT COORDINATOR
// =============================================================================

// AbortFlag records that a session's operation was aborted. The UI consumes
// it exactly once via AcknowledgeSessionAbort; a fresh accepted part clears
// an unacknowledged flag.
type AbortFlag struct {
	Timestamp    time.Time
	Acknowledged bool
}

// AbortFlagFor returns the session's abort flag, if one is set.
func (s *Store) AbortFlagFor(sessionID string) (AbortFlag, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	flag, ok := s.aborts[sessionID]
	if !ok {
		return AbortFlag{}, false
	}
	return *flag, true
}

// AbortFlags returns a copy of every session's abort flag, including flags
// that outlived their session's eviction.
func (s *Store) AbortFlags() map[string]AbortFlag {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]AbortFlag, len(s.aborts))
	for id, flag := range s.aborts {
		out[id] = *flag
	}
	return out
}

// RestoreAbortFlag seeds a persisted abort flag, so an interruption notice
// survives a client restart. A flag set during this run wins.
func (s *Store) RestoreAbortFlag(sessionID string, flag AbortFlag) {
	s.mu.Lock()
	if _, ok := s.aborts[sessionID]; !ok {
		f := flag
		s.aborts[sessionID] = &f
	}
	s.mu.Unlock()
}

// AcknowledgeSessionAbort marks the session's abort flag as consumed by the
// UI. The flag itself stays until a new part clears it.
func (s *Store) AcknowledgeSessionAbort(sessionID string) {
	s.mu.Lock()
	if flag, ok := s.aborts[sessionID]; ok {
		flag.Acknowledged = true
	}
	s.mu.Unlock()
}

// BeginRequest registers the cancel function of an in-flight send, replacing
// (and cancelling) any previous one.
func (s *Store) BeginRequest(cancel context.CancelFunc) {
	s.mu.Lock()
	prev := s.cancelRequest
	s.cancelRequest = cancel
	s.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// EndRequest clears the in-flight cancel function once the send resolves.
func (s *Store) EndRequest() {
	s.mu.Lock()
	s.cancelRequest = nil
	s.mu.Unlock()
}

// AbortCurrentOperation cancels the in-flight request, notifies the server
// best-effort, freezes every streaming message in the session into a
// consistent non-streaming aborted shape, clears streaming state, and sets
// the session's abort flag.
//
// Target selection: the global streaming pointer plus every lifecycle entry
// resolving to this session. When none resolve, a heuristic fallback scans
// backward for the most recent assistant message with unfinished parts,
// settling for the most recent assistant message outright.
func (s *Store) AbortCurrentOperation(ctx context.Context, sessionID string) {
	s.mu.Lock()
	cancel := s.cancelRequest
	s.cancelRequest = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if s.gw != nil {
		// Server notify is best-effort; local state freezes regardless.
		go func() {
			if err := s.gw.AbortSession(ctx, sessionID); err != nil {
				s.log.Warn().Err(err).Str("session", sessionID).Msg("server abort notify failed")
			}
		}()
	}

	s.mu.Lock()
	now := s.now()
	targets := s.abortTargetsLocked(sessionID)
	for _, id := range targets {
		s.stopTimerLocked(s.idleTimers, id)
		s.stopTimerLocked(s.dupTimers, id)
		s.life = lifecycle.Remove(s.life, id)
		delete(s.pending, id)
		delete(s.lastText, id)
		if msg := s.findLocked(sessionID, id); msg != nil {
			freezeAborted(msg, now)
		}
	}
	if s.streamingMessageID != "" && s.index[s.streamingMessageID] == sessionID {
		s.streamingMessageID = ""
	}
	if mem, ok := s.memory[sessionID]; ok {
		mem.IsStreaming = false
		mem.StreamStartTime = time.Time{}
		mem.StreamingCooldownUntil = time.Time{}
		mem.IsZombie = false
	}
	s.stopTimerLocked(s.cooldownTimers, sessionID)
	s.aborts[sessionID] = &AbortFlag{Timestamp: now}
	s.log.Info().
		Str("session", sessionID).
		Int("frozen", len(targets)).
		Msg("aborted operation")
	s.mu.Unlock()
	s.notify()
}

// abortTargetsLocked resolves which message IDs the abort should freeze.
func (s *Store) abortTargetsLocked(sessionID string) []string {
	var targets []string
	seen := make(map[string]bool)
	add := func(id string) {
		if id != "" && !seen[id] && s.index[id] == sessionID {
			seen[id] = true
			targets = append(targets, id)
		}
	}
	add(s.streamingMessageID)
	for _, id := range lifecycle.IDs(s.life) {
		add(id)
	}
	if len(targets) > 0 {
		return targets
	}

	// Nothing tracked: fall back to scanning the session for the turn
	// most plausibly in flight.
	msgs := s.messages[sessionID]
	var lastAssistant string
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m.IsUser() {
			continue
		}
		if lastAssistant == "" {
			lastAssistant = m.ID
		}
		for j := range m.Parts {
			if m.Parts[j].Unfinished() {
				return []string{m.ID}
			}
		}
	}
	if lastAssistant != "" {
		return []string{lastAssistant}
	}
	return nil
}

// freezeAborted rewrites a message's in-flight parts into their terminal
// aborted forms: open tools become aborted, dangling reasoning gets an end
// stamp, and trailing step-starts are converted into aborted step-finishes.
func freezeAborted(msg *model.Message, now time.Time) {
	// Only step-starts after the last step-finish are dangling; earlier
	// ones were closed by their own finish and stay untouched.
	lastFinish := -1
	for i := range msg.Parts {
		if msg.Parts[i].Type == model.PartStepFinish {
			lastFinish = i
		}
	}
	for i := range msg.Parts {
		p := &msg.Parts[i]
		switch p.Type {
		case model.PartTool:
			if p.State.Open() {
				p.State = model.ToolAborted
				if p.Time.End.IsZero() {
					p.Time.End = now
				}
			}
		case model.PartReasoning:
			if p.Time.End.IsZero() {
				p.Time.End = now
			}
		case model.PartStepStart:
			if i > lastFinish {
				p.Type = model.PartStepFinish
				p.Reason = "aborted"
				p.Aborted = true
				if p.Time.End.IsZero() {
					p.Time.End = now
				}
			}
		}
	}
	msg.Streaming = false
	msg.Status = model.StatusAborted
	msg.AbortedAt = now
	if msg.Time.Completed.IsZero() {
		msg.Time.Completed = now
	}
}
