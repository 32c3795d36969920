// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"testing"

	"github.com/clarity-hq/clarity-tui/internal/config"
)

func TestArgParser_FlagFormats(t *testing.T) {
	parser := NewArgParser([]string{"show", "--role", "mentor", "--limit=5", "--json", "-q"})

	if parser.Subcommand() != "show" {
		t.Errorf("Subcommand() = %q, want show", parser.Subcommand())
	}
	if parser.Flag("role") != "mentor" {
		t.Errorf("Flag(role) = %q, want mentor", parser.Flag("role"))
	}
	if parser.Flag("limit") != "5" {
		t.Errorf("Flag(limit) = %q, want 5", parser.Flag("limit"))
	}
	if !parser.BoolFlag("json") {
		t.Error("BoolFlag(json) = false, want true")
	}
	if !parser.BoolFlag("q") {
		t.Error("BoolFlag(q) = false, want true")
	}
}

func TestArgParser_ExplicitBool(t *testing.T) {
	parser := NewArgParser([]string{"--markdown=false", "--color=true"})
	if parser.BoolFlag("markdown") {
		t.Error("BoolFlag(markdown) = true, want false")
	}
	if !parser.BoolFlag("color") {
		t.Error("BoolFlag(color) = false, want true")
	}
}

func TestArgParser_Positionals(t *testing.T) {
	parser := NewArgParser([]string{"set", "ui.role", "mentor"})
	if parser.PositionalCount() != 3 {
		t.Fatalf("PositionalCount() = %d, want 3", parser.PositionalCount())
	}
	if parser.Positional(1) != "ui.role" || parser.Positional(2) != "mentor" {
		t.Errorf("positionals = %q %q", parser.Positional(1), parser.Positional(2))
	}
	if parser.Positional(9) != "" {
		t.Error("out-of-range positional should be empty")
	}
}

func TestArgParser_FlagInt(t *testing.T) {
	parser := NewArgParser([]string{"--limit", "12"})
	n, err := parser.FlagInt("limit")
	if err != nil || n != 12 {
		t.Errorf("FlagInt(limit) = %d, %v", n, err)
	}
	if _, err := parser.FlagInt("missing"); err == nil {
		t.Error("FlagInt(missing) should error")
	}
}

func TestParseGlobalFlags(t *testing.T) {
	remaining, args := parseGlobalFlags([]string{"--json", "chat", "--role", "mentor", "-q"})
	if !args.JSON || !args.Quiet {
		t.Errorf("global flags not picked up: %+v", args)
	}
	if len(remaining) != 3 || remaining[0] != "chat" {
		t.Errorf("remaining = %v", remaining)
	}
}

func TestParseChatArgs(t *testing.T) {
	var args Args
	parseChatArgs(&args, []string{"--role", "college-buddy", "--resume", "abc-123"})
	if args.Role != "college-buddy" {
		t.Errorf("Role = %q", args.Role)
	}
	if args.Resume != "abc-123" {
		t.Errorf("Resume = %q", args.Resume)
	}
}

func TestParseConfigArgs(t *testing.T) {
	var args Args
	parseConfigArgs(&args, []string{"set", "ui.theme", "light"})
	if args.Subcommand != "set" || args.ConfigKey != "ui.theme" || args.ConfigVal != "light" {
		t.Errorf("config args = %+v", args)
	}
}

func TestConfigKeyRoundTrip(t *testing.T) {
	cfg := config.Default()
	for _, key := range configKeys() {
		if _, ok := lookupKey(cfg, key); !ok {
			t.Errorf("lookupKey(%q) not resolvable", key)
		}
	}

	if err := assignKey(cfg, "ui.role", "mentor"); err != nil {
		t.Fatalf("assignKey: %v", err)
	}
	if v, _ := lookupKey(cfg, "ui.role"); v != "mentor" {
		t.Errorf("ui.role = %q after set", v)
	}

	if err := assignKey(cfg, "api.timeout_secs", "ninety"); err == nil {
		t.Error("assigning a non-integer to timeout_secs should error")
	}
	if err := assignKey(cfg, "no.such.key", "x"); err == nil {
		t.Error("assigning an unknown key should error")
	}
}
