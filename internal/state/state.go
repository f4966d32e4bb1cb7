// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/chamber-tui/internal/reconcile"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound      = errors.New("state entry not found")
	ErrDatabaseError = errors.New("state database error")
)

// Settings keys.
const (
	keyLastProvider  = "last_provider_id"
	keyLastModel     = "last_model_id"
	keyActiveSession = "active_session_id"
	keyLastAgent     = "last_agent"
)

// =============================================================================
// STORE
// =============================================================================

// Store persists client state in a SQLite database: last-used provider and
// model, per-session viewport projections, and abort flags.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (creating if needed) the state database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	if _, err := db.Exec(InitMetadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrDatabaseError, err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// SETTINGS
// =============================================================================

func (s *Store) setSetting(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	return err
}

func (s *Store) getSetting(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// SaveLastUsed records the most recently used provider/model pair.
func (s *Store) SaveLastUsed(providerID, modelID string) error {
	if err := s.setSetting(keyLastProvider, providerID); err != nil {
		return err
	}
	return s.setSetting(keyLastModel, modelID)
}

// LastUsed returns the persisted provider/model pair, empty when unset.
func (s *Store) LastUsed() (providerID, modelID string) {
	providerID, _ = s.getSetting(keyLastProvider)
	modelID, _ = s.getSetting(keyLastModel)
	return providerID, modelID
}

// SaveActiveSession records the session to reopen on next start.
func (s *Store) SaveActiveSession(sessionID string) error {
	return s.setSetting(keyActiveSession, sessionID)
}

// ActiveSession returns the persisted active session ID, empty when unset.
func (s *Store) ActiveSession() string {
	id, _ := s.getSetting(keyActiveSession)
	return id
}

// SaveLastAgent records the most recently used agent.
func (s *Store) SaveLastAgent(agent string) error {
	return s.setSetting(keyLastAgent, agent)
}

// LastAgent returns the persisted agent name, empty when unset.
func (s *Store) LastAgent() string {
	agent, _ := s.getSetting(keyLastAgent)
	return agent
}

// =============================================================================
// SESSION STATE PROJECTION
// =============================================================================

// SessionState is the persisted slice of a session's memory state.
type SessionState struct {
	SessionID        string
	ViewportAnchor   int
	TrimmedHeadMaxID string
	HasMoreAbove     bool
	TotalAvailable   int
	LastAccessedAt   time.Time
}

// SaveSessionState upserts a session's projection.
func (s *Store) SaveSessionState(st SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
INSERT INTO session_state (session_id, viewport_anchor, trimmed_head_max_id, has_more_above, total_available, last_accessed_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
    viewport_anchor = excluded.viewport_anchor,
    trimmed_head_max_id = excluded.trimmed_head_max_id,
    has_more_above = excluded.has_more_above,
    total_available = excluded.total_available,
    last_accessed_at = excluded.last_accessed_at`,
		st.SessionID, st.ViewportAnchor, st.TrimmedHeadMaxID,
		boolInt(st.HasMoreAbove), st.TotalAvailable, st.LastAccessedAt.UnixMilli())
	return err
}

// SessionStateFor returns the persisted projection for a session.
func (s *Store) SessionStateFor(sessionID string) (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		st       SessionState
		hasMore  int
		accessed int64
	)
	err := s.db.QueryRow(`
SELECT session_id, viewport_anchor, trimmed_head_max_id, has_more_above, total_available, last_accessed_at
FROM session_state WHERE session_id = ?`, sessionID).
		Scan(&st.SessionID, &st.ViewportAnchor, &st.TrimmedHeadMaxID, &hasMore, &st.TotalAvailable, &accessed)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionState{}, ErrNotFound
	}
	if err != nil {
		return SessionState{}, err
	}
	st.HasMoreAbove = hasMore != 0
	st.LastAccessedAt = time.UnixMilli(accessed)
	return st, nil
}

// SnapshotFrom captures every resident session's projection out of the
// reconciler. Called on shutdown and periodically while running.
func (s *Store) SnapshotFrom(store *reconcile.Store) error {
	for _, sessionID := range store.ResidentSessions() {
		mem, ok := store.MemoryState(sessionID)
		if !ok {
			continue
		}
		err := s.SaveSessionState(SessionState{
			SessionID:        sessionID,
			ViewportAnchor:   mem.ViewportAnchor,
			TrimmedHeadMaxID: mem.TrimmedHeadMaxID,
			HasMoreAbove:     mem.HasMoreAbove,
			TotalAvailable:   mem.TotalAvailableMessages,
			LastAccessedAt:   mem.LastAccessedAt,
		})
		if err != nil {
			return err
		}
	}
	flags := store.AbortFlags()
	for sessionID, flag := range flags {
		if err := s.SaveAbortFlag(sessionID, flag.Timestamp, flag.Acknowledged); err != nil {
			return err
		}
	}
	for _, sessionID := range store.ResidentSessions() {
		if _, ok := flags[sessionID]; !ok {
			if err := s.ClearAbortFlag(sessionID); err != nil {
				return err
			}
		}
	}
	provider, model := store.LastUsed()
	if provider != "" || model != "" {
		return s.SaveLastUsed(provider, model)
	}
	return nil
}

// RestoreInto seeds a session's persisted projection and abort flag back
// into the reconciler. Called once when a session is opened, before its
// first snapshot load, so the head-trim watermark filters the incoming
// history. Sessions with no persisted rows are left untouched.
func (s *Store) RestoreInto(store *reconcile.Store, sessionID string) error {
	st, err := s.SessionStateFor(sessionID)
	switch {
	case err == nil:
		store.RestoreMemoryState(sessionID, reconcile.MemoryState{
			ViewportAnchor:         st.ViewportAnchor,
			TrimmedHeadMaxID:       st.TrimmedHeadMaxID,
			HasMoreAbove:           st.HasMoreAbove,
			TotalAvailableMessages: st.TotalAvailable,
			LastAccessedAt:         st.LastAccessedAt,
		})
	case !errors.Is(err, ErrNotFound):
		return err
	}
	at, ack, err := s.AbortFlagFor(sessionID)
	switch {
	case err == nil:
		store.RestoreAbortFlag(sessionID, reconcile.AbortFlag{Timestamp: at, Acknowledged: ack})
	case !errors.Is(err, ErrNotFound):
		return err
	}
	return nil
}

// =============================================================================
// ABORT FLAGS
// =============================================================================

// SaveAbortFlag persists a session abort flag.
func (s *Store) SaveAbortFlag(sessionID string, abortedAt time.Time, acknowledged bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`
INSERT INTO abort_flags (session_id, aborted_at, acknowledged) VALUES (?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
    aborted_at = excluded.aborted_at,
    acknowledged = excluded.acknowledged`,
		sessionID, abortedAt.UnixMilli(), boolInt(acknowledged))
	return err
}

// AbortFlagFor returns a persisted abort flag.
func (s *Store) AbortFlagFor(sessionID string) (abortedAt time.Time, acknowledged bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		at  int64
		ack int
	)
	err = s.db.QueryRow(
		"SELECT aborted_at, acknowledged FROM abort_flags WHERE session_id = ?", sessionID).
		Scan(&at, &ack)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, ErrNotFound
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(at), ack != 0, nil
}

// ClearAbortFlag removes a persisted abort flag.
func (s *Store) ClearAbortFlag(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec("DELETE FROM abort_flags WHERE session_id = ?", sessionID)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
