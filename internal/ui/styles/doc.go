// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the chamber TUI:
// the color palette and the Theme aggregating every lipgloss style the
// chat view and components draw with. Dark and light variants share one
// accent palette and differ only in text and border colors.
package styles
