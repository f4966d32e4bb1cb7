// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the chamber TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// =============================================================================
// PALETTE
// =============================================================================

var (
	Accent     = lipgloss.Color("#7C3AED")
	AccentDim  = lipgloss.Color("#5B21B6")
	UserColor  = lipgloss.Color("#2DD4BF")
	TextBright = lipgloss.Color("#F4F4F5")
	TextNormal = lipgloss.Color("#D4D4D8")
	TextMuted  = lipgloss.Color("#71717A")
	Success    = lipgloss.Color("#34D399")
	Warning    = lipgloss.Color("#FBBF24")
	Danger     = lipgloss.Color("#F87171")
	Surface    = lipgloss.Color("#27272A")

	lightText   = lipgloss.Color("#18181B")
	lightMuted  = lipgloss.Color("#52525B")
	lightBorder = lipgloss.Color("#D4D4D8")
)

// =============================================================================
// THEME
// =============================================================================

// Theme holds the styled components for the application. It detects the
// terminal's color capability and adjusts accordingly.
type Theme struct {
	IsDark       bool
	ColorProfile termenv.Profile

	Width int

	// Message rendering
	UserBubble     lipgloss.Style
	UserLabel      lipgloss.Style
	AssistantBody  lipgloss.Style
	AssistantLabel lipgloss.Style
	Reasoning      lipgloss.Style

	// Tool badges
	ToolRunning lipgloss.Style
	ToolDone    lipgloss.Style
	ToolFailed  lipgloss.Style

	// Chrome
	StatusBar    lipgloss.Style
	StatusKey    lipgloss.Style
	StatusValue  lipgloss.Style
	InputPrompt  lipgloss.Style
	Spinner      lipgloss.Style
	AbortBanner  lipgloss.Style
	ErrorBanner  lipgloss.Style
	Muted        lipgloss.Style
	LoadMoreHint lipgloss.Style
}

// NewTheme builds a theme for the given mode and width.
func NewTheme(dark bool, width int) *Theme {
	t := &Theme{
		IsDark:       dark,
		ColorProfile: termenv.ColorProfile(),
		Width:        width,
	}

	text := TextNormal
	muted := TextMuted
	border := Surface
	if !dark {
		text = lightText
		muted = lightMuted
		border = lightBorder
	}

	t.UserLabel = lipgloss.NewStyle().Foreground(UserColor).Bold(true)
	t.UserBubble = lipgloss.NewStyle().
		Foreground(text).
		PaddingLeft(2).
		BorderLeft(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(UserColor)

	t.AssistantLabel = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	t.AssistantBody = lipgloss.NewStyle().Foreground(text)
	t.Reasoning = lipgloss.NewStyle().Foreground(muted).Italic(true).PaddingLeft(2)

	t.ToolRunning = lipgloss.NewStyle().Foreground(Warning)
	t.ToolDone = lipgloss.NewStyle().Foreground(Success)
	t.ToolFailed = lipgloss.NewStyle().Foreground(Danger)

	t.StatusBar = lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(border).
		Width(width)
	t.StatusKey = lipgloss.NewStyle().Foreground(AccentDim).Bold(true)
	t.StatusValue = lipgloss.NewStyle().Foreground(text)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	t.Spinner = lipgloss.NewStyle().Foreground(Accent)
	t.AbortBanner = lipgloss.NewStyle().
		Foreground(Warning).
		Bold(true).
		PaddingLeft(1)
	t.ErrorBanner = lipgloss.NewStyle().Foreground(Danger).Bold(true).PaddingLeft(1)
	t.Muted = lipgloss.NewStyle().Foreground(muted)
	t.LoadMoreHint = lipgloss.NewStyle().Foreground(muted).Italic(true).Align(lipgloss.Center).Width(width)

	return t
}

// Resize rebuilds width-dependent styles after a terminal resize.
func (t *Theme) Resize(width int) {
	t.Width = width
	t.StatusBar = t.StatusBar.Width(width)
	t.LoadMoreHint = t.LoadMoreHint.Width(width)
}
