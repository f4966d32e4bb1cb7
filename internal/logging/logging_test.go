// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides subsystem-scoped structured logging.
package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSubsystemTag(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "debug").Sub("reconcile")

	l.Info().Str("session", "ses_0000000001").Msg("trimmed")

	out := buf.String()
	if !strings.Contains(out, `"subsystem":"reconcile"`) {
		t.Errorf("expected subsystem tag, got %s", out)
	}
	if !strings.Contains(out, `"session":"ses_0000000001"`) {
		t.Errorf("expected structured field, got %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")

	l.Debug().Msg("hidden")
	l.Warn().Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug line should be filtered at warn level")
	}
	if !strings.Contains(out, "visible") {
		t.Error("warn line should pass")
	}
}

func TestNopIsSilent(t *testing.T) {
	// Must not panic and must not write anywhere.
	l := Nop()
	l.Error().Msg("dropped")
}
