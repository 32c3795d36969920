// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command handlers for clarity.
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
	CmdLogin
	CmdLogout
	CmdChat
	CmdSessions
	CmdStatus
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

	// Command-specific
	Role       string // --role for chat
	Resume     string // --resume SESSION_ID for chat
	Google     bool   // --google for login
	Subcommand string
	ConfigKey  string
	ConfigVal  string

	// Raw args (remaining after flag parsing)
	Raw []string
}

const usageText = `clarity - your AI companion in the terminal

Clarity is a persona-based chat client: talk to a Friend, a Mentor or a
College Buddy, and turn the conversation into task and resource plans.

Usage:
  clarity                     Start the TUI (default)
  clarity login               Sign in (email+password, OTP, or --google)
  clarity logout              Sign out and clear the cached credential
  clarity chat                Interactive chat in the terminal
  clarity sessions [subcommand] Session management
  clarity status              Show connection and sign-in status
  clarity config [show|get|set] Configuration
  clarity version, -v         Show version
  clarity help, -h            Show this help

Chat flags:
  --role NAME                 Persona: friend, mentor, college-buddy
  --resume SESSION_ID         Continue an existing session

Sessions subcommands:
  clarity sessions            List sessions (backend, cached fallback)
  clarity sessions show ID    Print a session transcript
  clarity sessions delete ID  Remove a session from the local cache
  clarity sessions clear      Empty the local cache

Config examples:
  clarity config show
  clarity config get ui.role
  clarity config set ui.role mentor

Global flags:
  -q, --quiet                 Minimal output
  --verbose                   Verbose output
  --json                      JSON output where supported

Version: %s
`

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("clarity version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses command-line arguments and returns the command and args.
func Parse() (Command, Args) {
	args := os.Args[1:]

	remaining, parsedArgs := parseGlobalFlags(args)

	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "login":
		parseLoginArgs(&parsedArgs, remaining)
		return CmdLogin, parsedArgs

	case "logout":
		return CmdLogout, parsedArgs

	case "chat":
		parseChatArgs(&parsedArgs, remaining)
		return CmdChat, parsedArgs

	case "session", "sessions":
		parseSessionsArgs(&parsedArgs, remaining)
		return CmdSessions, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		return CmdHelp, parsedArgs
	}
}

// parseGlobalFlags extracts flags valid for every command, returning the
// remaining arguments.
func parseGlobalFlags(args []string) ([]string, Args) {
	var parsed Args
	remaining := make([]string, 0, len(args))

	for _, arg := range args {
		switch arg {
		case "-q", "--quiet":
			parsed.Quiet = true
		case "--verbose":
			parsed.Verbose = true
		case "--json":
			parsed.JSON = true
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, parsed
}

func parseLoginArgs(args *Args, remaining []string) {
	parser := NewArgParser(remaining)
	args.Google = parser.BoolFlag("google")
}

func parseChatArgs(args *Args, remaining []string) {
	parser := NewArgParser(remaining)
	args.Role = parser.Flag("role")
	args.Resume = parser.Flag("resume")
}

func parseSessionsArgs(args *Args, remaining []string) {
	parser := NewArgParser(remaining)
	args.Subcommand = parser.Subcommand()
}

func parseConfigArgs(args *Args, remaining []string) {
	parser := NewArgParser(remaining)
	args.Subcommand = parser.Subcommand()
	args.ConfigKey = parser.Positional(1)
	args.ConfigVal = parser.Positional(2)
}

// HandleVersion handles the version command.
func HandleVersion() {
	PrintVersion()
}

// HandleHelp handles the help command.
func HandleHelp() {
	PrintUsage()
}
