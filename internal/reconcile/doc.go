// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconcile turns an unordered, duplicated, interleaved stream of
// part and metadata events into consistent per-session conversations.
//
// The server's event stream gives no delivery guarantees: parts arrive
// before their message's metadata, metadata arrives twice, snapshots race
// live events, and terminal signals go missing entirely. The Store absorbs
// all of it and always exposes an ordered, deduplicated message list per
// session.
//
// # Key Types
//
//   - Store: the engine. One mutex serializes every mutation, whether it
//     comes from the batch queue, a snapshot fetch, or a timer callback.
//   - MemoryState: per-session viewport, streaming, and eviction state.
//   - AbortFlag: consumed-once abort notification for the UI.
//
// # Entry Points
//
//   - ApplyPart / ApplyMetadata: live event ingestion.
//   - SyncMessages / LoadMessages / LoadMoreMessages: snapshot paths.
//   - CompleteStreamingMessage / ForceCompleteMessage: stream teardown,
//     also driven internally by idle, duplicate-content, and zombie guards.
//   - TrimToViewportWindow / EvictLeastRecentlyUsed / Maintain: memory
//     bounds; Maintain is the periodic housekeeping pass.
//   - RestoreMemoryState / RestoreAbortFlag: seed persisted state on start.
//   - AbortCurrentOperation / AcknowledgeSessionAbort: abort flow.
//
// Reads return deep copies; callers never observe in-place mutation.
package reconcile
