// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile implements the streaming message reconciliation engine.
package reconcile

import "time"

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds the engine's tunable timings and bounds.
type Config struct {
	// IdleTimeout force-completes a streaming message when the server goes
	// silent without a terminal signal (default: 8s).
	IdleTimeout time.Duration

	// DuplicateTimeout schedules a near-immediate force-complete when the
	// same text content arrives twice in a row for the streaming message
	// (default: 100ms).
	DuplicateTimeout time.Duration

	// CooldownDuration keeps a session's streaming flag up briefly after a
	// turn completes, so back-to-back turns do not flicker (default: 2s).
	CooldownDuration time.Duration

	// ZombieCeiling is the longest a session may stream without resolution
	// before the engine declares it a zombie and force-completes
	// (default: 10m).
	ZombieCeiling time.Duration

	// SyncFlagDuration is how long the isSyncing flag stays up after a
	// snapshot swap, so scroll heuristics can stand down (default: 100ms).
	SyncFlagDuration time.Duration

	// ViewportWindow is the target number of resident messages per session
	// (default: 60).
	ViewportWindow int

	// MaxResidentSessions caps how many sessions keep messages in memory
	// before LRU eviction kicks in (default: 2).
	MaxResidentSessions int

	// LoadMoreChunk bounds how many older messages one "load more" splice
	// brings in above the window (default: 30).
	LoadMoreChunk int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:         8 * time.Second,
		DuplicateTimeout:    100 * time.Millisecond,
		CooldownDuration:    2 * time.Second,
		ZombieCeiling:       10 * time.Minute,
		SyncFlagDuration:    100 * time.Millisecond,
		ViewportWindow:      60,
		MaxResidentSessions: 2,
		LoadMoreChunk:       30,
	}
}

// withDefaults fills zero values so a partially specified config works.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = d.IdleTimeout
	}
	if c.DuplicateTimeout <= 0 {
		c.DuplicateTimeout = d.DuplicateTimeout
	}
	if c.CooldownDuration <= 0 {
		c.CooldownDuration = d.CooldownDuration
	}
	if c.ZombieCeiling <= 0 {
		c.ZombieCeiling = d.ZombieCeiling
	}
	if c.SyncFlagDuration <= 0 {
		c.SyncFlagDuration = d.SyncFlagDuration
	}
	if c.ViewportWindow <= 0 {
		c.ViewportWindow = d.ViewportWindow
	}
	if c.MaxResidentSessions <= 0 {
		c.MaxResidentSessions = d.MaxResidentSessions
	}
	if c.LoadMoreChunk <= 0 {
		c.LoadMoreChunk = d.LoadMoreChunk
	}
	return c
}
