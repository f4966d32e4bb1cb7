// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chamber-tui/internal/ui/styles"
)

// =============================================================================
// STREAMING BADGE
// =============================================================================

// StreamBadge is the animated indicator shown while a response streams.
type StreamBadge struct {
	spinner   spinner.Model
	theme     *styles.Theme
	active    bool
	startTime time.Time
}

// NewStreamBadge creates the badge with an ASCII-safe spinner.
func NewStreamBadge(theme *styles.Theme) StreamBadge {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	s.Style = theme.Spinner
	return StreamBadge{spinner: s, theme: theme}
}

// Start activates the badge and returns the tick command to animate it.
func (b *StreamBadge) Start() tea.Cmd {
	b.active = true
	b.startTime = time.Now()
	return b.spinner.Tick
}

// Stop deactivates the badge.
func (b *StreamBadge) Stop() {
	b.active = false
}

// Active reports whether the badge is animating.
func (b *StreamBadge) Active() bool {
	return b.active
}

// Update advances the animation.
func (b *StreamBadge) Update(msg tea.Msg) tea.Cmd {
	if !b.active {
		return nil
	}
	var cmd tea.Cmd
	b.spinner, cmd = b.spinner.Update(msg)
	return cmd
}

// View renders the badge with elapsed time, empty when inactive.
func (b *StreamBadge) View() string {
	if !b.active {
		return ""
	}
	elapsed := time.Since(b.startTime).Round(time.Second)
	return b.spinner.View() + b.theme.Muted.Render(fmt.Sprintf(" thinking (%s, esc to interrupt)", elapsed))
}
