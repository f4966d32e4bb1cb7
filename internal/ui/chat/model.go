// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chamber-tui/internal/batch"
	"github.com/jeranaias/chamber-tui/internal/gateway"
	"github.com/jeranaias/chamber-tui/internal/logging"
	"github.com/jeranaias/chamber-tui/internal/reconcile"
	"github.com/jeranaias/chamber-tui/internal/state"
	"github.com/jeranaias/chamber-tui/internal/ui/components"
	"github.com/jeranaias/chamber-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// storeChangedMsg signals that the reconciliation store mutated and the
// transcript needs to be re-rendered.
type storeChangedMsg struct{}

// StoreChanged returns the message posted into the bubbletea loop when the
// reconciliation store mutates. Exposed for the program wiring in main.
func StoreChanged() tea.Msg {
	return storeChangedMsg{}
}

// sendResultMsg carries the outcome of an outbound message. On failure the
// draft is restored into the input so the user can retry.
type sendResultMsg struct {
	draft string
	err   error
}

// loadResultMsg carries the outcome of a history fetch.
type loadResultMsg struct {
	more bool
	err  error
}

// connStatusMsg carries event stream connection state transitions.
type connStatusMsg struct {
	connected bool
	hint      string
}

// abortDoneMsg signals that an interrupt finished locally.
type abortDoneMsg struct{}

// tickMsg drives the elapsed-time readout while streaming.
type tickMsg time.Time

// =============================================================================
// MODEL
// =============================================================================

// Options configures a chat Model.
type Options struct {
	Store     *reconcile.Store
	Client    *gateway.Client
	Queue     *batch.Queue
	States    *state.Store // optional, may be nil
	Log       *logging.Logger
	SessionID string
	Agent     string
	ModelID   string
	Provider  string
	Dark      bool
}

// Model is the bubbletea model for the chat view. It is a thin driver: all
// conversation state lives in the reconciliation store, and the model only
// renders snapshots of it.
type Model struct {
	store  *reconcile.Store
	client *gateway.Client
	queue  *batch.Queue
	states *state.Store
	log    *logging.Logger

	sessionID string
	agent     string
	modelID   string
	provider  string

	theme    *styles.Theme
	keys     KeyMap
	renderer *components.MessageRenderer
	badge    components.StreamBadge
	status   *components.StatusBar
	input    textinput.Model
	view     viewport.Model

	width  int
	height int

	connected bool
	sending   bool
	loading   bool
	errText   string
	atBottom  bool

	quitting bool
}

// New builds a chat model. The caller owns the store, client and queue.
func New(opts Options) *Model {
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}

	theme := styles.NewTheme(opts.Dark, 80)

	in := textinput.New()
	in.Placeholder = "message (enter to send, esc to interrupt)"
	in.Prompt = "> "
	in.CharLimit = 0
	in.Focus()

	vp := viewport.New(80, 20)

	m := &Model{
		store:     opts.Store,
		client:    opts.Client,
		queue:     opts.Queue,
		states:    opts.States,
		log:       log.Sub("chat"),
		sessionID: opts.SessionID,
		agent:     opts.Agent,
		modelID:   opts.ModelID,
		provider:  opts.Provider,
		theme:     theme,
		keys:      DefaultKeyMap(),
		renderer:  components.NewMessageRenderer(theme, true),
		badge:     components.NewStreamBadge(theme),
		status:    components.NewStatusBar(theme),
		input:     in,
		view:      vp,
		atBottom:  true,
	}
	m.status.SessionID = opts.SessionID
	m.status.ModelID = opts.ModelID
	m.status.Agent = opts.Agent
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadHistoryCmd())
}

// Handler returns a gateway event handler that feeds this model's store.
// Part events go through the batching queue; metadata applies directly.
// The send function is how handler goroutines reach the bubbletea loop
// (usually tea.Program.Send).
func (m *Model) Handler(send func(tea.Msg)) gateway.Handler {
	return gateway.Handler{
		OnPart: func(u gateway.PartUpdate) {
			m.queue.Enqueue(batch.PartEvent{
				SessionID:       u.SessionID,
				MessageID:       u.MessageID,
				Part:            u.Part,
				Role:            u.Role,
				ActiveSessionID: m.sessionID,
			})
		},
		OnInfo: func(u gateway.InfoUpdate) {
			m.store.ApplyMetadata(u.SessionID, u.Info)
		},
		OnStatus: func(status, hint string) {
			send(connStatusMsg{connected: status == gateway.StatusConnected, hint: hint})
		},
	}
}

// streaming reports whether the active session currently has a live stream,
// including the post-stream cooldown hold.
func (m *Model) streaming() bool {
	mem, ok := m.store.MemoryState(m.sessionID)
	return ok && mem.IsStreaming
}

func (m *Model) transcript() string {
	msgs := m.store.Messages(m.sessionID)
	if len(msgs) == 0 {
		return m.theme.Muted.Render("no messages yet")
	}

	width := m.view.Width
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	if mem, ok := m.store.MemoryState(m.sessionID); ok && mem.HasMoreAbove {
		b.WriteString(m.theme.LoadMoreHint.Render("-- older messages above (ctrl+home to load) --"))
		b.WriteString("\n\n")
	}
	for i, msg := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderer.Render(msg, width))
		b.WriteString("\n")
	}
	return b.String()
}
