// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/chamber-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar renders the single-line footer: connection state, model, and
// session position.
type StatusBar struct {
	theme *styles.Theme

	Connected bool
	ModelID   string
	Agent     string
	SessionID string
	HasMore   bool
}

// NewStatusBar creates a status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme}
}

// View renders the bar at the theme's current width.
func (s *StatusBar) View() string {
	var segs []string

	conn := "offline"
	if s.Connected {
		conn = "connected"
	}
	segs = append(segs, s.theme.StatusKey.Render("srv ")+s.theme.StatusValue.Render(conn))

	if s.ModelID != "" {
		segs = append(segs, s.theme.StatusKey.Render("mdl ")+s.theme.StatusValue.Render(s.ModelID))
	}
	if s.Agent != "" {
		segs = append(segs, s.theme.StatusKey.Render("agt ")+s.theme.StatusValue.Render(s.Agent))
	}
	if s.SessionID != "" {
		segs = append(segs, s.theme.Muted.Render(shortSession(s.SessionID)))
	}
	if s.HasMore {
		segs = append(segs, s.theme.Muted.Render("more above"))
	}

	line := strings.Join(segs, s.theme.Muted.Render("  |  "))
	if w := s.theme.Width; w > 0 && runewidth.StringWidth(line) > w {
		line = runewidth.Truncate(line, w, "...")
	}
	return s.theme.StatusBar.Render(line)
}

// shortSession trims a session ID for display.
func shortSession(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12] + "..."
}
