// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ident provides message ID ordering utilities.
//
// Server-assigned message IDs are opaque strings that embed a lexically
// sortable, timestamp-derived suffix, optionally behind a short prefix such
// as "msg_". This package extracts and compares those suffixes so the
// reconciliation engine can implement its head-trim watermark: once messages
// are trimmed from the head of a session, the newest trimmed ID is recorded
// and later loads reject anything that does not sort after it.
//
// # Key Functions
//
//   - SortableSuffix: extract the sortable portion of an ID
//   - IsNewer: compare two IDs for strict ordering, failing open
//   - MaxSortable: pick the newest ID out of a trimmed batch
//
// # Fail-Open Policy
//
// Comparisons are only trusted when both suffixes parse and have equal
// length. Anything ambiguous compares as "newer" so that an unorderable ID
// can never cause silent data loss.
package ident
