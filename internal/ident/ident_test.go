// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ident provides message ID ordering utilities.
package ident

import "testing"

// =============================================================================
// SORTABLE SUFFIX TESTS
// =============================================================================

func TestSortableSuffixStripsPrefix(t *testing.T) {
	suffix, ok := SortableSuffix("msg_0123456789abcdef")
	if !ok {
		t.Fatal("expected suffix to parse")
	}
	if suffix != "0123456789abcdef" {
		t.Errorf("expected stripped suffix, got %q", suffix)
	}
}

func TestSortableSuffixNoPrefix(t *testing.T) {
	suffix, ok := SortableSuffix("0123456789abcdef")
	if !ok {
		t.Fatal("expected suffix to parse")
	}
	if suffix != "0123456789abcdef" {
		t.Errorf("expected full id as suffix, got %q", suffix)
	}
}

func TestSortableSuffixTooShort(t *testing.T) {
	if _, ok := SortableSuffix("msg_short"); ok {
		t.Error("short suffix should not parse")
	}
	if _, ok := SortableSuffix(""); ok {
		t.Error("empty id should not parse")
	}
}

// =============================================================================
// IS NEWER TESTS
// =============================================================================

func TestIsNewerLexicalOrder(t *testing.T) {
	if !IsNewer("msg_0000000002", "msg_0000000001") {
		t.Error("higher suffix should be newer")
	}
	if IsNewer("msg_0000000001", "msg_0000000002") {
		t.Error("lower suffix should not be newer")
	}
	if IsNewer("msg_0000000001", "msg_0000000001") {
		t.Error("equal suffixes should not be newer")
	}
}

func TestIsNewerFailsOpen(t *testing.T) {
	// Unparseable inputs must compare as newer (never discard).
	if !IsNewer("bad", "msg_0000000009") {
		t.Error("unparseable id should fail open")
	}
	if !IsNewer("msg_0000000001", "bad") {
		t.Error("unparseable reference should fail open")
	}
	// Mismatched suffix lengths are ambiguous and also fail open.
	if !IsNewer("msg_0000000001", "msg_00000000001") {
		t.Error("mismatched lengths should fail open")
	}
}

// =============================================================================
// MAX SORTABLE TESTS
// =============================================================================

func TestMaxSortable(t *testing.T) {
	ids := []string{"msg_0000000003", "msg_0000000009", "msg_0000000001"}
	if got := MaxSortable(ids); got != "msg_0000000009" {
		t.Errorf("expected msg_0000000009, got %q", got)
	}
}

func TestMaxSortableSkipsUnparseable(t *testing.T) {
	ids := []string{"junk", "msg_0000000004", ""}
	if got := MaxSortable(ids); got != "msg_0000000004" {
		t.Errorf("expected msg_0000000004, got %q", got)
	}
	if got := MaxSortable([]string{"junk", ""}); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
}
