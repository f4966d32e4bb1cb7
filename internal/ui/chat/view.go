// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
)

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.view.View())
	b.WriteString("\n")

	if flag, ok := m.store.AbortFlagFor(m.sessionID); ok && !flag.Acknowledged {
		b.WriteString(m.theme.AbortBanner.Render("response interrupted, send a message to continue"))
		b.WriteString("\n")
	} else if badge := m.badge.View(); badge != "" {
		b.WriteString(badge)
		b.WriteString("\n")
	} else if m.errText != "" {
		b.WriteString(m.theme.ErrorBanner.Render(m.errText))
		b.WriteString("\n")
	} else {
		b.WriteString("\n")
	}

	b.WriteString(m.theme.InputPrompt.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.status.View())

	return b.String()
}
