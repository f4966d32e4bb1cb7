// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive terminal chat without the full TUI.
//
// Handles "chamber chat": a line-oriented REPL with input history, useful
// over slow links and in terminals where the TUI is unwelcome.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/chamber-tui/internal/config"
	"github.com/jeranaias/chamber-tui/internal/model"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// promptLine provides input history and line editing for interactive chat.
type promptLine struct {
	line        *liner.State
	historyFile string
}

func newPromptLine() *promptLine {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	p := &promptLine{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	p.loadHistory()
	return p
}

func (p *promptLine) loadHistory() {
	if f, err := os.Open(p.historyFile); err == nil {
		p.line.ReadHistory(f)
		f.Close()
	}
}

// readInput reads one line with history navigation.
func (p *promptLine) readInput(prompt string) (string, error) {
	input, err := p.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		p.line.AppendHistory(input)
	}
	return input, nil
}

func (p *promptLine) saveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(p.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	p.line.WriteHistory(f)
}

func (p *promptLine) close() {
	p.saveHistory()
	p.line.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

// HandleChat runs the interactive REPL against the resolved session.
func HandleChat(args Args) {
	if !IsStdinTTY() {
		fmt.Fprintln(os.Stderr, "Error: chat requires an interactive terminal, use 'chamber ask' for piped input")
		os.Exit(1)
	}

	rt, err := openRuntime(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rt.Close()

	prompt := newPromptLine()
	defer prompt.close()

	if !args.Quiet {
		fmt.Printf("chamber %s connected to %s (session %s)\n", Version, rt.cfg.Server.URL, rt.sessionID)
		fmt.Println("Type your message, /history to reprint the conversation, /quit to exit.")
		fmt.Println()
	}

	for {
		input, err := prompt.readInput("> ")
		if err != nil {
			if err == liner.ErrPromptAborted {
				fmt.Println("(interrupted)")
				return
			}
			// EOF or terminal error ends the session.
			return
		}

		input = strings.TrimSpace(input)
		switch {
		case input == "":
			continue
		case input == "/quit" || input == "/exit" || input == "/q":
			return
		case input == "/history":
			printHistory(rt)
			continue
		case strings.HasPrefix(input, "/"):
			fmt.Printf("Unknown command %q\n", input)
			continue
		}

		runTurn(rt, args, input)
	}
}

// runTurn sends one message and blocks until the answer settles, letting
// ctrl+c interrupt the stream without leaving the REPL.
func runTurn(rt *runtime, args Args, text string) {
	before := len(rt.store.Messages(rt.sessionID))

	ctx, cancel := context.WithTimeout(context.Background(), answerTimeout)
	defer cancel()
	rt.store.BeginRequest(cancel)
	defer rt.store.EndRequest()

	if err := rt.send(ctx, text, args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}

	answer, err := rt.waitForAnswer(ctx, before)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}

	displayResponse(answer.TextContent())
	if answer.Status == model.StatusAborted {
		fmt.Println("(response interrupted)")
	}
	fmt.Println()
}

// printHistory reprints the resident conversation window.
func printHistory(rt *runtime) {
	msgs := rt.store.Messages(rt.sessionID)
	if len(msgs) == 0 {
		fmt.Println("(no messages)")
		return
	}
	for _, m := range msgs {
		if m.IsUser() {
			fmt.Printf("you: %s\n", m.TextContent())
			continue
		}
		label := m.ModelID
		if label == "" {
			label = "assistant"
		}
		fmt.Printf("%s:\n", label)
		displayResponse(m.TextContent())
	}
}
