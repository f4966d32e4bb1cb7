// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - Single query command handler for chamber.
//
// Handles "chamber ask", which sends one message to the server and prints
// the reconciled response.
//
// Examples:
//   chamber ask "What does this stack trace mean?"
//   chamber ask --json "Summarize the session"
//   chamber ask --agent plan "Outline the migration"
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/chamber-tui/internal/model"
)

// =============================================================================
// MARKDOWN RENDERING
// =============================================================================

// markdownRenderer is the global glamour renderer for markdown output.
var markdownRenderer *glamour.TermRenderer

func init() {
	var err error
	markdownRenderer, err = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(TerminalWidth()),
	)
	if err != nil {
		// Fall back to plain text if renderer initialization fails.
		markdownRenderer = nil
	}
}

// renderMarkdown renders markdown content for terminal display.
// Returns the original content if rendering fails or renderer is unavailable.
func renderMarkdown(content string) string {
	if markdownRenderer == nil {
		return content
	}
	rendered, err := markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	return rendered
}

// displayResponse prints a response, rendering markdown only on a TTY so
// piped output stays clean.
func displayResponse(response string) {
	if IsStdoutTTY() {
		fmt.Print(renderMarkdown(response))
	} else {
		fmt.Println(response)
	}
}

// =============================================================================
// ASK COMMAND
// =============================================================================

// askResult is the JSON output shape for --json.
type askResult struct {
	SessionID string `json:"sessionId"`
	MessageID string `json:"messageId"`
	Provider  string `json:"providerId,omitempty"`
	Model     string `json:"modelId,omitempty"`
	Status    string `json:"status"`
	Text      string `json:"text"`
}

// HandleAsk sends one question and prints the settled answer.
func HandleAsk(args Args) {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		fmt.Fprintln(os.Stderr, "Error: no question provided")
		fmt.Fprintln(os.Stderr, "Usage: chamber ask \"your question\"")
		os.Exit(1)
	}

	rt, err := openRuntime(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	before := len(rt.store.Messages(rt.sessionID))

	ctx, cancel := context.WithTimeout(context.Background(), answerTimeout)
	defer cancel()
	rt.store.BeginRequest(cancel)
	defer rt.store.EndRequest()

	if err := rt.send(ctx, query, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	answer, err := rt.waitForAnswer(ctx, before)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if args.JSON {
		printAskJSON(rt.sessionID, answer)
		return
	}
	displayResponse(answer.TextContent())
	if answer.Status == model.StatusAborted {
		fmt.Fprintln(os.Stderr, "(response interrupted)")
	}
}

func printAskJSON(sessionID string, answer *model.Message) {
	out := askResult{
		SessionID: sessionID,
		MessageID: answer.ID,
		Provider:  answer.ProviderID,
		Model:     answer.ModelID,
		Status:    answer.Status,
		Text:      answer.TextContent(),
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(out)
}
