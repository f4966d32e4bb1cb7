// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides subsystem-scoped structured logging.
//
// The TUI owns the terminal, so logs go to a file (~/.chamber/chamber.log by
// default) rather than stderr. Each engine component takes a child logger
// via Sub so log lines carry their originating subsystem.
package logging
