// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"time"

	"github.com/jeranaias/chamber-tui/internal/ident"
	"github.com/jeranaias/chamber-tui/internal/model"
)

// =============================================================================
// METADATA APPLICATION
// =============================================================================

// ApplyMetadata reconciles a message-level metadata update. Unknown messages
// are materialized (draining any pending parts buffered for them) unless the
// update is stale relative to the session's resident window; known messages
// are merged, with user pinning always winning over the server's claimed
// role.
func (s *Store) ApplyMetadata(sessionID string, info model.MessageInfo) {
	if info == nil {
		return
	}
	messageID := info.InfoID()
	if messageID == "" {
		return
	}

	s.mu.Lock()
	if s.skip[messageID] {
		s.mu.Unlock()
		return
	}
	if sessionID == "" {
		sessionID = s.index[messageID]
	}
	now := s.now()

	existing := s.findLocked(sessionID, messageID)
	if existing == nil {
		if sessionID == "" {
			s.mu.Unlock()
			return
		}
		if s.metadataStaleLocked(sessionID, info) {
			s.log.Debug().
				Str("message", messageID).
				Msg("rejected stale metadata for trimmed region")
			s.mu.Unlock()
			return
		}
		msg := s.materializeLocked(sessionID, info, now)
		s.insertChronologicalLocked(msg)
		s.mu.Unlock()
		s.notify()
		return
	}

	changed := s.mergeMetadataLocked(existing, info)
	s.mu.Unlock()
	if changed {
		s.notify()
	}
}

// metadataStaleLocked reports whether a metadata update for an unknown
// message points at the trimmed-away region: created before the oldest
// resident message, sorting below the oldest resident ID, or at-or-below
// the head-trim watermark.
func (s *Store) metadataStaleLocked(sessionID string, info model.MessageInfo) bool {
	messageID := info.InfoID()
	if mem, ok := s.memory[sessionID]; ok && mem.TrimmedHeadMaxID != "" {
		if !ident.IsNewer(messageID, mem.TrimmedHeadMaxID) {
			return true
		}
	}
	msgs := s.messages[sessionID]
	if len(msgs) == 0 {
		return false
	}
	oldest := msgs[0]
	if created := info.CreatedAt(); !created.IsZero() && !oldest.Time.Created.IsZero() &&
		created.Before(oldest.Time.Created) {
		return true
	}
	return !ident.IsNewer(messageID, oldest.ID)
}

// materializeLocked builds a message from a metadata update and drains the
// pending-parts buffer into it.
func (s *Store) materializeLocked(sessionID string, info model.MessageInfo, now time.Time) *model.Message {
	created := info.CreatedAt()
	if created.IsZero() {
		created = now
	}

	var msg *model.Message
	switch v := info.(type) {
	case model.UserInfo:
		msg = model.NewUserMessage(sessionID, v.ID, created)
		msg.Extra = v.Extra
	case model.AssistantInfo:
		msg = &model.Message{
			ID:         v.ID,
			SessionID:  sessionID,
			Role:       model.RoleAssistant,
			Time:       model.MessageTime{Created: created, Completed: v.Completed},
			Status:     v.Status,
			ProviderID: v.ProviderID,
			ModelID:    v.ModelID,
			Agent:      v.Agent,
			Extra:      v.Extra,
		}
		s.rememberProviderLocked(v.ProviderID, v.ModelID)
	default:
		msg = &model.Message{
			ID:        info.InfoID(),
			SessionID: sessionID,
			Role:      info.InfoRole(),
			Time:      model.MessageTime{Created: created},
		}
	}

	for _, p := range s.pending[msg.ID] {
		msg.UpsertPart(p)
		if p.IsStopSignal() {
			msg.StopObserved = true
		}
	}
	delete(s.pending, msg.ID)
	return msg
}

// insertChronologicalLocked places a message at its creation-time position
// within the session list, appending on ties so arrival order breaks them.
func (s *Store) insertChronologicalLocked(msg *model.Message) {
	msgs := s.messages[msg.SessionID]
	pos := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		if !msgs[i].Time.Created.After(msg.Time.Created) {
			break
		}
		pos = i
	}
	msgs = append(msgs, nil)
	copy(msgs[pos+1:], msgs[pos:])
	msgs[pos] = msg
	s.messages[msg.SessionID] = msgs
	s.index[msg.ID] = msg.SessionID
}

// mergeMetadataLocked folds a metadata update into an existing message.
// Role is never overridden: a user-pinned message stays user no matter what
// the server now claims, and an assistant message ignores a user claim.
func (s *Store) mergeMetadataLocked(msg *model.Message, info model.MessageInfo) bool {
	changed := false

	if created := info.CreatedAt(); !created.IsZero() && !created.Equal(msg.Time.Created) {
		msg.Time.Created = created
		changed = true
	}

	if msg.IsUser() {
		// Safe fields only; re-pin in case a racing update leaked
		// assistant fields in.
		if v, ok := info.(model.UserInfo); ok && len(v.Extra) > 0 {
			if msg.Extra == nil {
				msg.Extra = make(map[string]any, len(v.Extra))
			}
			for k, val := range v.Extra {
				msg.Extra[k] = val
			}
			changed = true
		}
		msg.PinUser()
		return changed
	}

	v, ok := info.(model.AssistantInfo)
	if !ok {
		return changed
	}
	if v.ProviderID != "" && v.ProviderID != msg.ProviderID {
		msg.ProviderID = v.ProviderID
		changed = true
	}
	if v.ModelID != "" && v.ModelID != msg.ModelID {
		msg.ModelID = v.ModelID
		changed = true
	}
	s.rememberProviderLocked(v.ProviderID, v.ModelID)
	if v.Agent != "" && v.Agent != msg.Agent {
		msg.Agent = v.Agent
		changed = true
	}
	if !v.Completed.IsZero() && !v.Completed.Equal(msg.Time.Completed) {
		msg.Time.Completed = v.Completed
		changed = true
	}
	if v.Status != "" && v.Status != msg.Status && msg.Status != model.StatusAborted {
		msg.Status = v.Status
		changed = true
	}
	if len(v.Extra) > 0 {
		if msg.Extra == nil {
			msg.Extra = make(map[string]any, len(v.Extra))
		}
		for k, val := range v.Extra {
			msg.Extra[k] = val
		}
		changed = true
	}

	// Late pending parts can exist if metadata raced ahead of the drain.
	for _, p := range s.pending[msg.ID] {
		msg.UpsertPart(p)
		if p.IsStopSignal() {
			msg.StopObserved = true
		}
		changed = true
	}
	delete(s.pending, msg.ID)
	return changed
}

// rememberProviderLocked records the most recent provider/model pair for
// seeding future assistant placeholders.
func (s *Store) rememberProviderLocked(providerID, modelID string) {
	if providerID != "" {
		s.lastProviderID = providerID
	}
	if modelID != "" {
		s.lastModelID = modelID
	}
}
