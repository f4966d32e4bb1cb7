// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"testing"
)

func TestParseArgsDefaultsToTUI(t *testing.T) {
	cmd, _ := ParseArgs(nil)
	if cmd != CmdTUI {
		t.Errorf("no args should start the TUI, got %v", cmd)
	}
}

func TestParseArgsCommands(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want Command
	}{
		{"ask", []string{"ask", "hello"}, CmdAsk},
		{"chat", []string{"chat"}, CmdChat},
		{"repl alias", []string{"repl"}, CmdChat},
		{"status", []string{"status"}, CmdStatus},
		{"status short", []string{"s"}, CmdStatus},
		{"agents", []string{"agents"}, CmdAgents},
		{"config", []string{"config", "show"}, CmdConfig},
		{"version", []string{"version"}, CmdVersion},
		{"version flag", []string{"--version"}, CmdVersion},
		{"help", []string{"help"}, CmdHelp},
		{"explicit tui", []string{"tui"}, CmdTUI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _ := ParseArgs(tt.argv)
			if cmd != tt.want {
				t.Errorf("ParseArgs(%v) = %v, want %v", tt.argv, cmd, tt.want)
			}
		})
	}
}

func TestParseArgsJoinsAskQuery(t *testing.T) {
	cmd, args := ParseArgs([]string{"ask", "what", "is", "a", "goroutine"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v", cmd)
	}
	if args.Query != "what is a goroutine" {
		t.Errorf("query = %q", args.Query)
	}
}

func TestParseArgsBareTextIsAsk(t *testing.T) {
	cmd, args := ParseArgs([]string{"explain", "this", "error"})
	if cmd != CmdAsk {
		t.Fatalf("bare text should be an ask, got %v", cmd)
	}
	if args.Query != "explain this error" {
		t.Errorf("query = %q", args.Query)
	}
}

func TestParseArgsGlobalFlags(t *testing.T) {
	cmd, args := ParseArgs([]string{
		"--server", "http://10.0.0.2:4096",
		"--session=ses_abc",
		"--agent", "plan",
		"-m", "anthropic/claude-sonnet-4",
		"--json",
		"-q",
		"ask", "hello",
	})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v", cmd)
	}
	if args.ServerURL != "http://10.0.0.2:4096" {
		t.Errorf("server = %q", args.ServerURL)
	}
	if args.SessionID != "ses_abc" {
		t.Errorf("session = %q", args.SessionID)
	}
	if args.Agent != "plan" {
		t.Errorf("agent = %q", args.Agent)
	}
	if args.Model != "anthropic/claude-sonnet-4" {
		t.Errorf("model = %q", args.Model)
	}
	if !args.JSON || !args.Quiet {
		t.Errorf("flags not set: %+v", args)
	}
	if args.Query != "hello" {
		t.Errorf("query = %q", args.Query)
	}
}

func TestParseArgsConfigSet(t *testing.T) {
	_, args := ParseArgs([]string{"config", "set", "server.url", "http://localhost:4096"})
	if args.Subcommand != "set" {
		t.Errorf("subcommand = %q", args.Subcommand)
	}
	if args.ConfigKey != "server.url" {
		t.Errorf("key = %q", args.ConfigKey)
	}
	if args.ConfigVal != "http://localhost:4096" {
		t.Errorf("val = %q", args.ConfigVal)
	}
}

func TestSplitModel(t *testing.T) {
	tests := []struct {
		in       string
		provider string
		model    string
	}{
		{"anthropic/claude-sonnet-4", "anthropic", "claude-sonnet-4"},
		{"claude-sonnet-4", "", "claude-sonnet-4"},
		{"openai/gpt-4o", "openai", "gpt-4o"},
	}
	for _, tt := range tests {
		p, m := SplitModel(tt.in)
		if p != tt.provider || m != tt.model {
			t.Errorf("SplitModel(%q) = (%q, %q), want (%q, %q)", tt.in, p, m, tt.provider, tt.model)
		}
	}
}
