// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gateway provides the HTTP and SSE client for the chamber server.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/chamber-tui/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the chamber server client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeAborted
	ErrTypeGatewayTimeout
	ErrTypeUnauthorized
	ErrTypeServerRestarting
	ErrTypeConnection
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrAborted          = &ClientError{Type: ErrTypeAborted, Message: "request aborted"}
	ErrGatewayTimeout   = &ClientError{Type: ErrTypeGatewayTimeout, Message: "gateway timeout - the server took too long to respond"}
	ErrUnauthorized     = &ClientError{Type: ErrTypeUnauthorized, Message: "unauthorized - check server credentials"}
	ErrServerRestarting = &ClientError{Type: ErrTypeServerRestarting, Message: "server is restarting - try again in a moment"}
	ErrNotConnected     = &ClientError{Type: ErrTypeConnection, Message: "no server connection"}
)

// Normalize maps an arbitrary transport error onto the known taxonomy with a
// human-readable message. Unknown causes pass through wrapped as generic
// connection errors; nothing is silently swallowed.
func Normalize(err error) error {
	if err == nil {
		return nil
	}

	var ce *ClientError
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.Canceled) {
		return ErrAborted
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrGatewayTimeout
	}
	return &ClientError{Type: ErrTypeConnection, Message: "request failed", Cause: err}
}

// statusError maps an HTTP status onto the taxonomy.
func statusError(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusBadGateway:
		return ErrServerRestarting
	case http.StatusGatewayTimeout:
		return ErrGatewayTimeout
	default:
		return &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "unexpected server status: " + http.StatusText(status),
		}
	}
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the chamber server client.
type ClientConfig struct {
	// BaseURL is the server base URL (default: http://127.0.0.1:4096)
	BaseURL string

	// Directory is the default working directory scope sent with requests.
	Directory string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// AgentRetries for the agent list load (default: 3, linear backoff)
	AgentRetries int

	// ConnectRetries for the connection check (default: 5, linear backoff)
	ConnectRetries int

	// RetryDelay is the backoff unit between retries (default: 1s)
	RetryDelay time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        "http://127.0.0.1:4096",
		Timeout:        30 * time.Second,
		AgentRetries:   3,
		ConnectRetries: 5,
		RetryDelay:     1 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the chamber server.
// It is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client

	// Per-session working-directory overrides, from session metadata.
	dirMu sync.RWMutex
	dirs  map[string]string
}

// NewClient creates a client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:4096"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.AgentRetries == 0 {
		config.AgentRetries = 3
	}
	if config.ConnectRetries == 0 {
		config.ConnectRetries = 5
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 1 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		dirs:       make(map[string]string),
	}
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// DIRECTORY OVERRIDES
// =============================================================================

// SetSessionDirectory records a session's working-directory override.
func (c *Client) SetSessionDirectory(sessionID, dir string) {
	c.dirMu.Lock()
	defer c.dirMu.Unlock()
	if dir == "" {
		delete(c.dirs, sessionID)
		return
	}
	c.dirs[sessionID] = dir
}

// directoryFor resolves the directory scope for a session, falling back to
// the client default.
func (c *Client) directoryFor(sessionID string) string {
	c.dirMu.RLock()
	defer c.dirMu.RUnlock()
	if d, ok := c.dirs[sessionID]; ok {
		return d
	}
	return c.config.Directory
}

// =============================================================================
// SESSION MESSAGES
// =============================================================================

// FetchSessionMessages retrieves the full ordered message list for a session.
func (c *Client) FetchSessionMessages(ctx context.Context, sessionID string) ([]model.MessageEnvelope, error) {
	endpoint := c.config.BaseURL + "/session/" + url.PathEscape(sessionID) + "/message"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	c.scope(req, sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, Normalize(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode)
	}

	var wires []wireEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&wires); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode session messages", Cause: err}
	}

	out := make([]model.MessageEnvelope, 0, len(wires))
	for _, w := range wires {
		out = append(out, decodeEnvelope(w))
	}
	return out, nil
}

// =============================================================================
// SEND
// =============================================================================

// SendMessage posts one user message to a session. The context carries the
// cooperative cancellation handle; aborting cancels it and the resulting
// error normalizes to ErrAborted.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) error {
	endpoint := c.config.BaseURL + "/session/" + url.PathEscape(req.SessionID) + "/message"

	parts := []map[string]any{
		{"type": "text", "text": req.Text},
	}
	for _, f := range req.Files {
		parts = append(parts, map[string]any{
			"type":     "file",
			"filename": f.Filename,
			"mime":     f.Mime,
			"url":      f.URL,
		})
	}

	body := map[string]any{
		"messageID":  "msg_" + uuid.NewString(),
		"providerID": req.ProviderID,
		"modelID":    req.ModelID,
		"parts":      parts,
	}
	if req.Agent != "" {
		body["agent"] = req.Agent
	}
	if len(req.AgentMentions) > 0 {
		body["agentMentions"] = req.AgentMentions
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to encode send request", Cause: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.scope(httpReq, req.SessionID)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Normalize(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode)
	}
	return nil
}

// =============================================================================
// ABORT
// =============================================================================

// AbortSession asks the server to abort in-flight work for a session.
// Best-effort: callers log failures and proceed with the local abort.
func (c *Client) AbortSession(ctx context.Context, sessionID string) error {
	endpoint := c.config.BaseURL + "/session/" + url.PathEscape(sessionID) + "/abort"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	c.scope(req, sessionID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Normalize(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode)
	}
	return nil
}

// =============================================================================
// SESSIONS
// =============================================================================

// CreateSession creates a new session on the server and returns its id.
func (c *Client) CreateSession(ctx context.Context, title string) (string, error) {
	body := map[string]any{}
	if title != "" {
		body["title"] = title
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to encode session request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/session", bytes.NewReader(payload))
	if err != nil {
		return "", &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", Normalize(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode session", Cause: err}
	}
	if out.ID == "" {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "server returned a session without an id"}
	}
	return out.ID, nil
}

// =============================================================================
// AGENTS & CONNECTION
// =============================================================================

// ListAgents retrieves the configured agents, retrying transient failures
// with linear backoff.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var lastErr error
	for attempt := 0; attempt < c.config.AgentRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, Normalize(ctx.Err())
			case <-time.After(time.Duration(attempt) * c.config.RetryDelay):
			}
		}

		agents, err := c.listAgentsOnce(ctx)
		if err == nil {
			return agents, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) listAgentsOnce(ctx context.Context) ([]Agent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/agent", nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, Normalize(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode)
	}

	var agents []Agent
	if err := json.NewDecoder(resp.Body).Decode(&agents); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode agent list", Cause: err}
	}
	return agents, nil
}

// CheckConnection verifies that the server is reachable, retrying with
// linear backoff before giving up.
func (c *Client) CheckConnection(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < c.config.ConnectRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return Normalize(ctx.Err())
			case <-time.After(time.Duration(attempt) * c.config.RetryDelay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/app", nil)
		if err != nil {
			return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = Normalize(err)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			return nil
		}
		lastErr = statusError(resp.StatusCode)
	}
	return lastErr
}

// scope attaches the session's directory override as a query parameter.
func (c *Client) scope(req *http.Request, sessionID string) {
	dir := c.directoryFor(sessionID)
	if dir == "" {
		return
	}
	q := req.URL.Query()
	q.Set("directory", dir)
	req.URL.RawQuery = q.Encode()
}
