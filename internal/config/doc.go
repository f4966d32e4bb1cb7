// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for chamber.
//
// # Key Types
//
//   - Config: the complete configuration tree (server, engine, logging, UI).
//   - Watcher: debounced live reload driven by fsnotify.
//
// # Key Functions
//
//   - Load: file + env override + defaults + validation.
//   - Save: write the active config back to disk.
//   - Global / SetGlobal: process-wide config access.
//
// The config file is TOML at ~/.chamber/config.toml, overridable with
// CHAMBER_CONFIG. Individual fields respond to CHAMBER_* environment
// variables, which always win over the file.
package config
