// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package state persists client state across runs in a SQLite database at
// ~/.chamber/state.db: the last-used provider/model pair, the active
// session, per-session viewport projections, and abort flags.
//
// Persistence is best-effort. The client must start and run fine with a
// missing or broken database; callers treat every error here as advisory.
package state
