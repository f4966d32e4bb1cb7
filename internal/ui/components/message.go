// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/chamber-tui/internal/model"
	"github.com/jeranaias/chamber-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// MessageRenderer turns reconciled messages into terminal output. It keeps a
// glamour renderer cached per width since rebuilding one per frame is far
// too slow for streaming.
type MessageRenderer struct {
	theme         *styles.Theme
	markdown      *glamour.TermRenderer
	markdownWidth int
	showReasoning bool
}

// NewMessageRenderer creates a renderer against the given theme.
func NewMessageRenderer(theme *styles.Theme, showReasoning bool) *MessageRenderer {
	return &MessageRenderer{theme: theme, showReasoning: showReasoning}
}

// Render produces the full rendering of one message.
func (r *MessageRenderer) Render(msg *model.Message, width int) string {
	if msg.IsUser() {
		return r.renderUser(msg, width)
	}
	return r.renderAssistant(msg, width)
}

func (r *MessageRenderer) renderUser(msg *model.Message, width int) string {
	var sb strings.Builder
	sb.WriteString(r.theme.UserLabel.Render("you"))
	sb.WriteString("\n")
	text := msg.TextContent()
	sb.WriteString(r.theme.UserBubble.Width(width - 2).Render(text))
	return sb.String()
}

func (r *MessageRenderer) renderAssistant(msg *model.Message, width int) string {
	var sb strings.Builder

	label := "assistant"
	if msg.ModelID != "" {
		label = msg.ModelID
	}
	sb.WriteString(r.theme.AssistantLabel.Render(label))
	if msg.Streaming {
		sb.WriteString(r.theme.Muted.Render(" streaming"))
	}
	sb.WriteString("\n")

	for i := range msg.Parts {
		p := &msg.Parts[i]
		switch p.Type {
		case model.PartText:
			sb.WriteString(r.renderMarkdown(p.Text, width))
		case model.PartReasoning:
			if r.showReasoning && strings.TrimSpace(p.Text) != "" {
				sb.WriteString(r.theme.Reasoning.Render(truncate(p.Text, width-4, 6)))
				sb.WriteString("\n")
			}
		case model.PartTool:
			sb.WriteString(r.renderTool(p))
			sb.WriteString("\n")
		case model.PartFile:
			sb.WriteString(r.theme.Muted.Render("  file: " + p.Text))
			sb.WriteString("\n")
		}
	}

	if msg.Status == model.StatusAborted {
		sb.WriteString(r.theme.AbortBanner.Render("response interrupted"))
		sb.WriteString("\n")
	}
	return sb.String()
}

// renderTool draws a one-line badge for a tool part.
func (r *MessageRenderer) renderTool(p *model.Part) string {
	name := p.Tool
	if name == "" {
		name = "tool"
	}
	switch {
	case p.State.Open():
		return r.theme.ToolRunning.Render(fmt.Sprintf("  ~ %s running", name))
	case p.State == model.ToolError:
		return r.theme.ToolFailed.Render(fmt.Sprintf("  x %s failed", name))
	case p.State == model.ToolAborted:
		return r.theme.ToolFailed.Render(fmt.Sprintf("  x %s aborted", name))
	default:
		return r.theme.ToolDone.Render(fmt.Sprintf("  * %s", name))
	}
}

// renderMarkdown renders assistant text through glamour, falling back to
// plain styled text when rendering fails.
func (r *MessageRenderer) renderMarkdown(text string, width int) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	if r.markdown == nil || r.markdownWidth != width {
		style := "dark"
		if !r.theme.IsDark {
			style = "light"
		}
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err == nil {
			r.markdown = renderer
			r.markdownWidth = width
		}
	}
	if r.markdown != nil {
		if out, err := r.markdown.Render(text); err == nil {
			return strings.TrimRight(out, "\n") + "\n"
		}
	}
	return r.theme.AssistantBody.Render(text) + "\n"
}

// truncate bounds text to maxLines lines of at most width cells each.
func truncate(text string, width, maxLines int) string {
	if width < 8 {
		width = 8
	}
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) > maxLines {
		lines = append(lines[:maxLines], "...")
	}
	for i, line := range lines {
		if runewidth.StringWidth(line) > width {
			lines[i] = runewidth.Truncate(line, width, "...")
		}
	}
	return strings.Join(lines, "\n")
}
