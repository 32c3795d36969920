// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config_cmd.go - Configuration command handler.
//
// Command: config
// Short:   Show and edit the TOML configuration
//
// Examples:
//   clarity config show
//   clarity config get ui.role
//   clarity config set ui.role mentor
//   clarity config set api.base_url https://staging.clarity.app
package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/clarity-hq/clarity-tui/internal/config"
)

// HandleConfig handles the config command.
func HandleConfig(args Args) {
	switch args.Subcommand {
	case "", "show":
		showConfig()
	case "get":
		getConfig(args.ConfigKey)
	case "set":
		setConfig(args.ConfigKey, args.ConfigVal)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config subcommand: %s\n", args.Subcommand)
		os.Exit(1)
	}
}

// showConfig prints every known key.
func showConfig() {
	cfg := config.Global()
	path, _ := config.ConfigPath()

	fmt.Println(infoStyle.Render("Config file: " + path))
	for _, key := range configKeys() {
		value, _ := lookupKey(cfg, key)
		fmt.Printf("  %-22s %s\n", key, value)
	}
}

// getConfig prints one key.
func getConfig(key string) {
	if key == "" {
		fmt.Fprintln(os.Stderr, "Usage: clarity config get KEY")
		os.Exit(1)
	}
	value, ok := lookupKey(config.Global(), key)
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfig updates one key, validates and persists the result.
func setConfig(key, value string) {
	if key == "" || value == "" {
		fmt.Fprintln(os.Stderr, "Usage: clarity config set KEY VALUE")
		os.Exit(1)
	}

	cfg := config.Global()
	if err := assignKey(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	config.SetGlobal(cfg)
	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not save config: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(commandStyle.Render(key + " = " + value))
}

// configKeys lists the editable keys in display order.
func configKeys() []string {
	return []string{
		"api.base_url",
		"api.timeout_secs",
		"api.sends_per_minute",
		"auth.cache_path",
		"history.enabled",
		"history.path",
		"history.max_sessions",
		"ui.theme",
		"ui.markdown",
		"ui.role",
	}
}

// lookupKey resolves a dotted key to its current value.
func lookupKey(cfg *config.Config, key string) (string, bool) {
	switch key {
	case "api.base_url":
		return cfg.API.BaseURL, true
	case "api.timeout_secs":
		return strconv.Itoa(cfg.API.TimeoutSecs), true
	case "api.sends_per_minute":
		return strconv.Itoa(cfg.API.SendsPerMinute), true
	case "auth.cache_path":
		return cfg.Auth.CachePath, true
	case "history.enabled":
		return strconv.FormatBool(cfg.History.Enabled), true
	case "history.path":
		return cfg.History.Path, true
	case "history.max_sessions":
		return strconv.Itoa(cfg.History.MaxSessions), true
	case "ui.theme":
		return cfg.UI.Theme, true
	case "ui.markdown":
		return strconv.FormatBool(cfg.UI.Markdown), true
	case "ui.role":
		return cfg.UI.Role, true
	}
	return "", false
}

// assignKey writes a dotted key, converting the value to the field's type.
func assignKey(cfg *config.Config, key, value string) error {
	switch key {
	case "api.base_url":
		cfg.API.BaseURL = value
	case "api.timeout_secs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s wants an integer: %w", key, err)
		}
		cfg.API.TimeoutSecs = n
	case "api.sends_per_minute":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s wants an integer: %w", key, err)
		}
		cfg.API.SendsPerMinute = n
	case "auth.cache_path":
		cfg.Auth.CachePath = value
	case "history.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s wants true or false: %w", key, err)
		}
		cfg.History.Enabled = b
	case "history.path":
		cfg.History.Path = value
	case "history.max_sessions":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s wants an integer: %w", key, err)
		}
		cfg.History.MaxSessions = n
	case "ui.theme":
		cfg.UI.Theme = value
	case "ui.markdown":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s wants true or false: %w", key, err)
		}
		cfg.UI.Markdown = b
	case "ui.role":
		cfg.UI.Role = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
