// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides UI components for the chamber TUI.
//
// # Key Types
//
//   - MessageRenderer: messages to styled terminal output, with glamour
//     markdown for assistant text and badges for tool parts.
//   - CodeBlock: chroma-highlighted fenced code with line numbers.
//   - StreamBadge: the animated streaming indicator.
//   - StatusBar: the footer line.
//
// Components are pure render helpers; all conversation state lives in the
// reconciler, and the chat model passes snapshots in.
package components
