// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ident provides message ID ordering utilities.
package ident

import "strings"

// MinSuffixLen is the minimum length for a suffix to be considered sortable.
// Server-issued IDs embed a timestamp-derived suffix of at least this length;
// anything shorter is treated as unparseable.
const MinSuffixLen = 10

// =============================================================================
// SORTABLE SUFFIX
// =============================================================================

// SortableSuffix extracts the lexically sortable portion of a message ID.
// IDs may carry a short prefix separated by an underscore (e.g. "msg_01ABC...");
// the prefix is stripped before the length check.
//
// Returns ("", false) when the ID has no usable suffix. Callers must treat
// that as "always allow" rather than an error: an ID we cannot order must
// never be the reason data is silently discarded.
func SortableSuffix(id string) (string, bool) {
	if id == "" {
		return "", false
	}

	suffix := id
	if idx := strings.Index(id, "_"); idx >= 0 {
		suffix = id[idx+1:]
	}

	if len(suffix) < MinSuffixLen {
		return "", false
	}
	return suffix, true
}

// =============================================================================
// FRESHNESS COMPARISON
// =============================================================================

// IsNewer reports whether id sorts strictly after reference.
//
// The comparison is only meaningful when both suffixes parse and have equal
// length; mismatched lengths or unparseable inputs return true (fail open).
// Ambiguous comparisons must never cause data loss, so the watermark filter
// built on this function admits anything it cannot order.
func IsNewer(id, reference string) bool {
	a, okA := SortableSuffix(id)
	b, okB := SortableSuffix(reference)

	if !okA || !okB {
		return true
	}
	if len(a) != len(b) {
		return true
	}

	return a > b
}

// MaxSortable returns the ID with the highest sortable suffix among ids,
// skipping unparseable entries. Returns "" when nothing parses.
//
// Used when advancing the head-trim watermark: the newest trimmed ID becomes
// the floor below which later loads are rejected.
func MaxSortable(ids []string) string {
	best := ""
	for _, id := range ids {
		if _, ok := SortableSuffix(id); !ok {
			continue
		}
		if best == "" || IsNewer(id, best) {
			best = id
		}
	}
	return best
}
