// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway provides the HTTP and SSE client for the chamber server.
package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jeranaias/chamber-tui/internal/logging"
	"github.com/jeranaias/chamber-tui/internal/model"
)

// =============================================================================
// STREAM EVENTS
// =============================================================================

// PartUpdate is one incremental part event from the live stream.
type PartUpdate struct {
	SessionID string
	MessageID string
	Part      model.Part
	Role      model.Role
}

// InfoUpdate is one out-of-band message metadata event.
type InfoUpdate struct {
	SessionID string
	MessageID string
	Info      model.MessageInfo
}

// Handler receives decoded stream events. Callbacks run on the stream's
// reader goroutine; implementations must hand off rather than block.
type Handler struct {
	OnPart   func(PartUpdate)
	OnInfo   func(InfoUpdate)
	OnStatus func(status, hint string)
}

// =============================================================================
// EVENT STREAM
// =============================================================================

const (
	initialReconnectDelay = 500 * time.Millisecond
	maxReconnectDelay     = 8 * time.Second
)

// Stream status values passed to Handler.OnStatus.
const (
	StatusConnected    = "connected"
	StatusReconnecting = "reconnecting"
	StatusError        = "error"
)

// EventStream maintains the server-sent event connection, decoding part and
// metadata events and reconnecting with doubling backoff when the stream
// drops. Resume uses the Last-Event-ID header so a reconnect does not replay
// or skip events.
type EventStream struct {
	client  *Client
	handler Handler
	log     *logging.Logger

	// limiter paces reconnect attempts so a flapping server cannot drive
	// a tight connect loop regardless of the backoff state.
	limiter *rate.Limiter

	// streaming uses its own HTTP client: the request never times out on
	// its own, only via context cancellation.
	httpClient *http.Client

	lastEventID string
}

// NewEventStream creates a stream for the given client and handler.
func NewEventStream(client *Client, handler Handler, log *logging.Logger) *EventStream {
	if log == nil {
		log = logging.Nop()
	}
	return &EventStream{
		client:     client,
		handler:    handler,
		log:        log.Sub("sse"),
		limiter:    rate.NewLimiter(rate.Every(initialReconnectDelay), 1),
		httpClient: &http.Client{},
	}
}

// Run connects and processes events until the context is cancelled.
func (e *EventStream) Run(ctx context.Context) {
	delay := initialReconnectDelay

	for ctx.Err() == nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return
		}

		err := e.streamOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		if err != nil {
			e.log.Warn().Err(err).Msg("stream dropped")
			e.emitStatus(StatusError, err.Error())
		} else {
			// Clean EOF from a stream that served events: reset backoff.
			delay = initialReconnectDelay
		}

		e.emitStatus(StatusReconnecting, "")
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay *= 2; delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

// streamOnce opens one SSE connection and reads it to exhaustion.
func (e *EventStream) streamOnce(ctx context.Context) error {
	endpoint := e.client.BaseURL() + "/global/event"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create stream request", Cause: err}
	}
	req.Header.Set("Accept", "text/event-stream")
	if e.lastEventID != "" {
		req.Header.Set("Last-Event-ID", e.lastEventID)
	}
	if dir := e.client.config.Directory; dir != "" {
		q := req.URL.Query()
		q.Set("directory", dir)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return Normalize(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode)
	}

	e.emitStatus(StatusConnected, "")
	e.log.Info().Msg("stream connected")

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var dataBuf strings.Builder
	var eventID string

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		switch {
		case strings.HasPrefix(line, ":"):
			// Comment / heartbeat.
			continue
		case strings.HasPrefix(line, "data:"):
			if dataBuf.Len() > 0 {
				dataBuf.WriteByte('\n')
			}
			dataBuf.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case strings.HasPrefix(line, "id:"):
			eventID = strings.TrimSpace(strings.TrimPrefix(line, "id:"))
		case line == "":
			if dataBuf.Len() > 0 {
				e.dispatch(dataBuf.String())
				dataBuf.Reset()
			}
			if eventID != "" {
				e.lastEventID = eventID
				eventID = ""
			}
		}
	}
	return scanner.Err()
}

// =============================================================================
// EVENT DECODING
// =============================================================================

// sseEnvelope is the outer {directory, payload} wrapper around each event.
type sseEnvelope struct {
	Directory string          `json:"directory"`
	Payload   json.RawMessage `json:"payload"`
}

// sseEvent is the event body after unwrapping.
type sseEvent struct {
	Type       string          `json:"type"`
	Properties json.RawMessage `json:"properties"`
}

// sseProperties covers both part-update and info-update property shapes.
type sseProperties struct {
	Part  *wirePart  `json:"part"`
	Info  *wireInfo  `json:"info"`
	Parts []wirePart `json:"parts"`
	Role  string     `json:"role"`
	ID    string     `json:"id"`
}

// dispatch decodes one event payload and routes it to the handler.
// Malformed payloads are logged and skipped; the stream must survive
// anything the server sends.
func (e *EventStream) dispatch(data string) {
	raw := json.RawMessage(data)

	var env sseEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Payload) > 0 {
		raw = env.Payload
	}

	var ev sseEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		e.log.Warn().Err(err).Msg("undecodable event")
		return
	}

	var props sseProperties
	if len(ev.Properties) > 0 {
		if err := json.Unmarshal(ev.Properties, &props); err != nil {
			e.log.Warn().Err(err).Str("type", ev.Type).Msg("undecodable event properties")
			return
		}
	}

	switch ev.Type {
	case "message.part.updated":
		if props.Part == nil {
			return
		}
		part := decodePart(*props.Part)
		if e.handler.OnPart != nil {
			e.handler.OnPart(PartUpdate{
				SessionID: part.SessionID,
				MessageID: part.MessageID,
				Part:      part,
			})
		}

	case "message.updated":
		info := props.Info
		if info == nil && props.ID != "" {
			// Flat property shape: the info fields ride on properties.
			var flat wireInfo
			if err := json.Unmarshal(ev.Properties, &flat); err == nil {
				info = &flat
			}
		}
		if info == nil {
			return
		}
		// Empty assistant bodies are placeholder churn the UI has no use
		// for; the server re-sends full metadata once parts exist.
		role := info.Role
		if role == "" {
			role = props.Role
		}
		if role == string(model.RoleAssistant) && props.Parts != nil && len(props.Parts) == 0 {
			return
		}
		if e.handler.OnInfo != nil {
			e.handler.OnInfo(InfoUpdate{
				SessionID: info.SessionID,
				MessageID: info.ID,
				Info:      decodeInfo(*info),
			})
		}
	}
}

func (e *EventStream) emitStatus(status, hint string) {
	if e.handler.OnStatus != nil {
		e.handler.OnStatus(status, hint)
	}
}
