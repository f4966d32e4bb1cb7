// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Argument parsing and command dispatch for chamber.
package cli

import (
	"fmt"
	"os"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdStatus
	CmdAgents
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool

	ServerURL string
	SessionID string
	Agent     string
	Model     string // provider/model

	// Command-specific
	Query     string
	ConfigKey string
	ConfigVal string

	Subcommand string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `chamber - terminal chat client for opencode servers

Chamber connects to an opencode-compatible server and keeps a consistent,
ordered conversation view out of its unordered streaming events.

Usage:
  chamber                    Start TUI (default)
  chamber ask "question"     Ask a single question and print the answer
  chamber chat               Interactive chat in the terminal (no TUI)
  chamber status, s          Show server connection status
  chamber agents             List agents available on the server
  chamber config [show|set]  Configuration
  chamber version, -v        Show version
  chamber help, -h           Show this help

Global flags:
  --server URL       Server base URL (overrides config)
  --session ID       Target session (default: last active)
  --agent NAME       Agent to address
  -m, --model P/M    provider/model, e.g. anthropic/claude-sonnet-4
  --json             Machine-readable output where supported
  -q, --quiet        Minimal output
  --verbose          Verbose output

Examples:
  chamber ask "what does this stack trace mean?"
  chamber ask --agent plan "outline the migration"
  chamber chat --session ses_abc123
  chamber config set server.url http://127.0.0.1:4096
`

// Usage prints the top-level help text.
func Usage() {
	fmt.Print(usageText)
}

// Parse reads os.Args and returns the command to run with its arguments.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses an argument vector. Split out from Parse for testing.
func ParseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, args

	case "ask":
		// Everything that is not a flag joins into the query.
		var parts []string
		for _, a := range remaining {
			if !strings.HasPrefix(a, "-") {
				parts = append(parts, a)
			}
		}
		args.Query = strings.Join(parts, " ")
		return CmdAsk, args

	case "chat", "repl":
		return CmdChat, args

	case "status", "s":
		return CmdStatus, args

	case "agents", "agent":
		return CmdAgents, args

	case "config":
		if len(remaining) > 0 {
			args.Subcommand = remaining[0]
		}
		if len(remaining) > 1 {
			args.ConfigKey = remaining[1]
		}
		if len(remaining) > 2 {
			args.ConfigVal = strings.Join(remaining[2:], " ")
		}
		return CmdConfig, args

	case "version", "-v", "--version":
		return CmdVersion, args

	case "help", "-h", "--help":
		return CmdHelp, args

	default:
		// Bare text is treated as an ask, matching "chamber what is x".
		args.Query = strings.Join(append([]string{cmd}, remaining...), " ")
		return CmdAsk, args
	}
}

// parseGlobalFlags strips global flags from the argument list.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var args Args
	var remaining []string

	for i := 0; i < len(argv); i++ {
		a := argv[i]
		takeValue := func() string {
			if eq := strings.IndexByte(a, '='); eq >= 0 {
				return a[eq+1:]
			}
			if i+1 < len(argv) {
				i++
				return argv[i]
			}
			return ""
		}

		switch {
		case a == "--quiet" || a == "-q":
			args.Quiet = true
		case a == "--verbose":
			args.Verbose = true
		case a == "--json":
			args.JSON = true
		case a == "--server" || strings.HasPrefix(a, "--server="):
			args.ServerURL = takeValue()
		case a == "--session" || strings.HasPrefix(a, "--session="):
			args.SessionID = takeValue()
		case a == "--agent" || strings.HasPrefix(a, "--agent="):
			args.Agent = takeValue()
		case a == "--model" || a == "-m" || strings.HasPrefix(a, "--model="):
			args.Model = takeValue()
		default:
			remaining = append(remaining, a)
		}
	}
	return remaining, args
}

// SplitModel splits a provider/model flag value. A bare model name keeps the
// provider empty so the configured default applies.
func SplitModel(s string) (provider, model string) {
	if idx := strings.IndexByte(s, '/'); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	return "", s
}

// HandleVersion prints version information.
func HandleVersion(args Args) {
	if args.JSON {
		fmt.Printf("{\"version\":%q,\"commit\":%q,\"date\":%q}\n", Version, GitCommit, BuildDate)
		return
	}
	fmt.Printf("chamber %s (%s, built %s)\n", Version, GitCommit, BuildDate)
}
