// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway provides the HTTP and SSE client for the chamber server.
//
// The reconciliation engine treats the server as an opaque RPC boundary:
// fetch a session's full message list, send a message, abort a session, and
// consume the live event stream. This package owns that boundary.
//
// # Key Types
//
//   - Client: HTTP operations with a typed error taxonomy (aborted,
//     gateway timeout, unauthorized, server restarting, connection)
//   - EventStream: SSE reader for part and metadata events with
//     Last-Event-ID resume and doubling reconnect backoff
//
// # Error Normalization
//
// Transport failures surface as ClientError values with human-readable
// messages via Normalize. The send path never swallows errors; the abort
// path is best-effort and only logged by callers.
//
// # Retries
//
// Sends are not retried here - retry policy for the chat path belongs to
// the caller. Two idempotent configuration flows retry internally with
// linear backoff: the agent list load (3 attempts) and the connection
// check (5 attempts).
package gateway
