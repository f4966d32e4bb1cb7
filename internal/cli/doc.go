// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements argument parsing and the non-TUI commands.
//
// The terminal commands (ask, chat, status, agents, config) share the same
// engine wiring as the TUI: a gateway client, the event stream, the part
// batching queue and the reconciliation store. One-shot commands wait for
// the answer to settle before printing it, so timeout-forced completion and
// abort freezing apply to piped output exactly as they do on screen.
//
// # Key Types
//
//   - Command: the parsed CLI command
//   - Args: parsed flags and positional arguments
//
// # Key Functions
//
//   - Parse: read os.Args into a Command and Args
//   - HandleAsk, HandleChat, HandleStatus, HandleAgents, HandleConfig
package cli
