// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package batch coalesces bursts of part events into fixed flush windows.
//
// High-frequency streaming produces update storms: dozens of text deltas per
// second per message. Applying each one individually would thrash the
// reconciler and the renderer, so inbound events are queued and applied in
// batches on a fixed window (50 ms by default).
//
// Two properties matter more than the batching itself:
//
//   - Ordering: a flush applies events strictly in enqueue order, each
//     against live state, and flushes never overlap.
//   - Terminal override: a step-finish part drains the queue immediately,
//     so turn completion is never delayed by the window that ordinary text
//     deltas tolerate.
package batch
