// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat view.
//
// The view is a thin bubbletea driver over the reconciliation store: stream
// events arrive on the gateway's reader goroutine, flow through the part
// batching queue into the store, and the store's change callback posts a
// refresh message back into the bubbletea loop. The model itself never owns
// conversation state, it only renders store snapshots.
//
// # Key Types
//
//   - Model: the bubbletea model wiring store, gateway client and queue
//   - Options: construction parameters for Model
//   - KeyMap: keyboard bindings for the chat view
//
// # Key Functions
//
//   - New: build a chat model
//   - Model.Handler: gateway event handler feeding this model's store
package chat
