// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for clarity.
//
// Configuration lives in TOML with sensible defaults and environment
// variable overrides:
//   - ~/.clarity/config.toml
//   - Built-in defaults
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/clarity-hq/clarity-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete clarity client configuration.
type Config struct {
	Version string `toml:"version"`

	// API is the backend connection configuration.
	API APIConfig `toml:"api"`

	// Auth is the credential cache configuration.
	Auth AuthConfig `toml:"auth"`

	// History is the local session cache configuration.
	History HistoryConfig `toml:"history"`

	// UI is the terminal UI configuration.
	UI UIConfig `toml:"ui"`
}

// APIConfig contains backend API settings.
type APIConfig struct {
	// BaseURL is the root of the Clarity backend REST API.
	BaseURL string `toml:"base_url"`
	// TimeoutSecs is the per-request timeout in seconds.
	TimeoutSecs int `toml:"timeout_secs"`
	// SendsPerMinute throttles outbound chat turns (0 = unlimited).
	SendsPerMinute int `toml:"sends_per_minute"`
}

// AuthConfig contains credential-cache settings.
type AuthConfig struct {
	// CachePath is the location of the encrypted credential record.
	// Empty means ~/.clarity/authdata.json.
	CachePath string `toml:"cache_path"`
}

// HistoryConfig contains local session-cache settings.
type HistoryConfig struct {
	// Enabled turns the local sqlite transcript cache on or off.
	Enabled bool `toml:"enabled"`
	// Path is the sqlite database location. Empty means ~/.clarity/history.db.
	Path string `toml:"path"`
	// MaxSessions bounds the cache (0 = unlimited); oldest entries are evicted.
	MaxSessions int `toml:"max_sessions"`
}

// UIConfig contains terminal UI settings.
type UIConfig struct {
	// Theme selects the color theme: "dark" or "light".
	Theme string `toml:"theme"`
	// Markdown enables glamour rendering of bot replies.
	Markdown bool `toml:"markdown"`
	// Role is the default persona for new sessions.
	Role string `toml:"role"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns the built-in default configuration.
func Default() *Config {
	return &Config{
		Version: "1",
		API: APIConfig{
			BaseURL:        "https://api.clarity.app",
			TimeoutSecs:    60,
			SendsPerMinute: 30,
		},
		History: HistoryConfig{
			Enabled:     true,
			MaxSessions: 200,
		},
		UI: UIConfig{
			Theme:    "dark",
			Markdown: true,
			Role:     "friend",
		},
	}
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns the clarity configuration directory (~/.clarity).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".clarity"), nil
}

// ConfigPath returns the path of the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// AuthCachePath resolves the credential record location.
func (c *Config) AuthCachePath() (string, error) {
	if c.Auth.CachePath != "" {
		return c.Auth.CachePath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "authdata.json"), nil
}

// HistoryPath resolves the local history database location.
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load reads the config file, applies environment overrides and validates.
// A missing file is not an error: defaults are returned.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from an explicit file path.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration as TOML.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration to an explicit file path.
func SaveToPath(cfg *Config, path string) error {
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// =============================================================================
// ENV OVERRIDES / DEFAULTS / VALIDATION
// =============================================================================

// ApplyEnvOverrides applies CLARITY_* environment variables on top of the
// loaded file. Environment always wins.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CLARITY_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("CLARITY_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.API.TimeoutSecs = n
		}
	}
	if v := os.Getenv("CLARITY_AUTH_CACHE"); v != "" {
		c.Auth.CachePath = v
	}
	if v := os.Getenv("CLARITY_HISTORY_DB"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("CLARITY_THEME"); v != "" {
		c.UI.Theme = v
	}
	if v := os.Getenv("CLARITY_ROLE"); v != "" {
		c.UI.Role = v
	}
}

// SetDefaults fills zero values with defaults after a partial file load.
func (c *Config) SetDefaults() {
	def := Default()
	if c.API.BaseURL == "" {
		c.API.BaseURL = def.API.BaseURL
	}
	if c.API.TimeoutSecs <= 0 {
		c.API.TimeoutSecs = def.API.TimeoutSecs
	}
	if c.API.SendsPerMinute < 0 {
		c.API.SendsPerMinute = def.API.SendsPerMinute
	}
	if c.History.MaxSessions < 0 {
		c.History.MaxSessions = def.History.MaxSessions
	}
	if c.UI.Theme == "" {
		c.UI.Theme = def.UI.Theme
	}
	if c.UI.Role == "" {
		c.UI.Role = def.UI.Role
	}
}

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config field %s: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ValidationError{Field: "api.base_url", Message: "must be an absolute URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ValidationError{Field: "api.base_url", Message: "scheme must be http or https"}
	}
	switch c.UI.Theme {
	case "dark", "light":
	default:
		return ValidationError{Field: "ui.theme", Message: "must be \"dark\" or \"light\""}
	}
	return nil
}

// =============================================================================
// GLOBAL CONFIG
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance, loading it on first
// access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal replaces the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets global state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
