// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/jeranaias/chamber-tui/internal/lifecycle"
	"github.com/jeranaias/chamber-tui/internal/logging"
	"github.com/jeranaias/chamber-tui/internal/model"
)

// =============================================================================
// TRANSPORT DEPENDENCY
// =============================================================================

// Transport is the slice of the gateway the engine needs: snapshot fetches
// and server-side abort notifications.
type Transport interface {
	FetchSessionMessages(ctx context.Context, sessionID string) ([]model.MessageEnvelope, error)
	AbortSession(ctx context.Context, sessionID string) error
}

// =============================================================================
// STORE
// =============================================================================

// Store is the reconciliation engine. All session state lives behind one
// mutex; every public method takes it, so callers and timer callbacks are
// fully serialized. Methods suffixed Locked assume the caller holds mu.
type Store struct {
	mu  sync.Mutex
	cfg Config
	gw  Transport
	log *logging.Logger

	// now is the clock, swappable in tests.
	now func() time.Time

	// messages holds each resident session's ordered message list.
	messages map[string][]*model.Message

	// index maps messageID -> sessionID for every resident message.
	index map[string]string

	// pending buffers parts that arrived before their message's metadata.
	pending map[string][]model.Part

	// life tracks streaming lifecycle per message. Treated as immutable:
	// transforms return a new map (or the same reference on no-op).
	life lifecycle.Map

	// skip records message IDs suppressed as user echoes. Parts and
	// metadata for these IDs are dropped silently.
	skip map[string]bool

	// lastText remembers the previous text content per streaming message
	// for duplicate-content detection.
	lastText map[string]string

	memory map[string]*MemoryState
	aborts map[string]*AbortFlag

	// streamingMessageID is the global pointer to the message currently
	// receiving parts, or empty.
	streamingMessageID string

	// lastProviderID and lastModelID seed assistant placeholders created
	// before their metadata arrives.
	lastProviderID string
	lastModelID    string

	idleTimers     map[string]*time.Timer
	dupTimers      map[string]*time.Timer
	cooldownTimers map[string]*time.Timer
	syncTimers     map[string]*time.Timer

	// cancelRequest aborts the in-flight send, if any.
	cancelRequest context.CancelFunc

	// onChange is invoked (outside the lock) after any visible mutation.
	onChange func()
}

// New creates a Store. gw may be nil for engines that never fetch or abort
// server-side; log may be nil.
func New(cfg Config, gw Transport, log *logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{
		cfg:            cfg.withDefaults(),
		gw:             gw,
		log:            log.Sub("reconcile"),
		now:            time.Now,
		messages:       make(map[string][]*model.Message),
		index:          make(map[string]string),
		pending:        make(map[string][]model.Part),
		life:           lifecycle.Map{},
		skip:           make(map[string]bool),
		lastText:       make(map[string]string),
		memory:         make(map[string]*MemoryState),
		aborts:         make(map[string]*AbortFlag),
		idleTimers:     make(map[string]*time.Timer),
		dupTimers:      make(map[string]*time.Timer),
		cooldownTimers: make(map[string]*time.Timer),
		syncTimers:     make(map[string]*time.Timer),
	}
}

// SetOnChange registers a callback fired after visible mutations. The
// callback runs without the store lock and must not mutate the store
// synchronously from within itself.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// notify fires the change callback. Call only with the lock released.
func (s *Store) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// =============================================================================
// SNAPSHOT READS
// =============================================================================

// Messages returns a deep copy of a session's ordered messages.
func (s *Store) Messages(sessionID string) []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[sessionID]
	out := make([]*model.Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}

// Message returns a deep copy of one message, or nil.
func (s *Store) Message(sessionID, messageID string) *model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m := s.findLocked(sessionID, messageID); m != nil {
		return m.Clone()
	}
	return nil
}

// StreamingMessageID returns the global streaming pointer, or empty.
func (s *Store) StreamingMessageID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamingMessageID
}

// Lifecycle returns the current lifecycle map. The map is never mutated in
// place, so callers may hold and compare references safely.
func (s *Store) Lifecycle() lifecycle.Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.life
}

// MemoryState returns a copy of the session's memory state.
func (s *Store) MemoryState(sessionID string) (MemoryState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	mem, ok := s.memory[sessionID]
	if !ok {
		return MemoryState{}, false
	}
	return *mem, true
}

// ResidentSessions lists sessions currently holding messages in memory.
func (s *Store) ResidentSessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.messages))
	for id := range s.messages {
		out = append(out, id)
	}
	return out
}

// LastUsed returns the most recently observed provider and model IDs.
func (s *Store) LastUsed() (providerID, modelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastProviderID, s.lastModelID
}

// SetLastUsed seeds the provider/model used for assistant placeholders,
// typically restored from persisted state at startup.
func (s *Store) SetLastUsed(providerID, modelID string) {
	s.mu.Lock()
	if providerID != "" {
		s.lastProviderID = providerID
	}
	if modelID != "" {
		s.lastModelID = modelID
	}
	s.mu.Unlock()
}

// =============================================================================
// LOCKED HELPERS
// =============================================================================

// findLocked returns the live message for (sessionID, messageID), consulting
// the reverse index when sessionID is empty or wrong.
func (s *Store) findLocked(sessionID, messageID string) *model.Message {
	if sessionID == "" {
		sessionID = s.index[messageID]
	}
	for _, m := range s.messages[sessionID] {
		if m.ID == messageID {
			return m
		}
	}
	// Index may know better than the caller-supplied session.
	if owner, ok := s.index[messageID]; ok && owner != sessionID {
		for _, m := range s.messages[owner] {
			if m.ID == messageID {
				return m
			}
		}
	}
	return nil
}

// appendLocked adds a message at the end of its session's list and indexes it.
func (s *Store) appendLocked(msg *model.Message) {
	s.messages[msg.SessionID] = append(s.messages[msg.SessionID], msg)
	s.index[msg.ID] = msg.SessionID
}

// memoryLocked returns the session's memory state, creating it on first use.
func (s *Store) memoryLocked(sessionID string) *MemoryState {
	mem, ok := s.memory[sessionID]
	if !ok {
		mem = &MemoryState{LastAccessedAt: s.now()}
		s.memory[sessionID] = mem
	}
	return mem
}

// lastUserMessageLocked returns the most recent user message in a session.
func (s *Store) lastUserMessageLocked(sessionID string) *model.Message {
	msgs := s.messages[sessionID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].IsUser() {
			return msgs[i]
		}
	}
	return nil
}

// purgeMessageLocked drops every piece of engine state tied to a message:
// timers, lifecycle, pending parts, duplicate tracking, index entry, and the
// streaming pointer if it points here. The message list itself is the
// caller's to adjust.
func (s *Store) purgeMessageLocked(messageID string) {
	s.stopTimerLocked(s.idleTimers, messageID)
	s.stopTimerLocked(s.dupTimers, messageID)
	s.life = lifecycle.Remove(s.life, messageID)
	delete(s.pending, messageID)
	delete(s.lastText, messageID)
	delete(s.index, messageID)
	if s.streamingMessageID == messageID {
		s.streamingMessageID = ""
	}
}

// stopTimerLocked stops and removes a timer from one of the timer maps.
func (s *Store) stopTimerLocked(timers map[string]*time.Timer, key string) {
	if t, ok := timers[key]; ok {
		t.Stop()
		delete(timers, key)
	}
}

// clearAbortLocked removes a pending (unacknowledged) abort flag. Called
// whenever a fresh part is accepted for the session.
func (s *Store) clearAbortLocked(sessionID string) {
	if flag, ok := s.aborts[sessionID]; ok && !flag.Acknowledged {
		delete(s.aborts, sessionID)
	}
}

// markStreamingLocked flips the session into streaming and cancels any
// cooldown in flight.
func (s *Store) markStreamingLocked(sessionID string, now time.Time) {
	mem := s.memoryLocked(sessionID)
	if !mem.IsStreaming {
		mem.IsStreaming = true
		mem.StreamStartTime = now
	}
	mem.StreamingCooldownUntil = time.Time{}
	mem.LastAccessedAt = now
	s.stopTimerLocked(s.cooldownTimers, sessionID)
}

// Close stops every outstanding timer. The store is unusable afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, timers := range []map[string]*time.Timer{s.idleTimers, s.dupTimers, s.cooldownTimers, s.syncTimers} {
		for k, t := range timers {
			t.Stop()
			delete(timers, k)
		}
	}
}
