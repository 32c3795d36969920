// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - Shared wiring for CLI command handlers.
package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/clarity-hq/clarity-tui/internal/api"
	"github.com/clarity-hq/clarity-tui/internal/authcache"
	"github.com/clarity-hq/clarity-tui/internal/config"
	"github.com/clarity-hq/clarity-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(styles.Sky).
			Bold(true)

	welcomeStyle = lipgloss.NewStyle().
			Foreground(styles.Indigo).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	commandStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	warningStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)

	errorStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)
)

// requestTimeout bounds one backend call issued from a CLI handler.
const requestTimeout = 60 * time.Second

// =============================================================================
// SHARED WIRING
// =============================================================================

// openCache opens the credential cache at the configured path, prompting to
// unlock it when the record is passphrase-protected. Failure to resolve the
// path is fatal; every auth-touching command needs it.
func openCache(cfg *config.Config) *authcache.Cache {
	path, err := cfg.AuthCachePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot resolve credential cache path: %v\n", err)
		os.Exit(1)
	}
	cache := authcache.New(path)
	if err := UnlockCache(cache); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot unlock credential record: %v\n", err)
		os.Exit(1)
	}
	return cache
}

// UnlockCache prompts for the passphrase of a protected credential record
// and unlocks it for this run. Unprotected or absent records need no prompt.
// Three wrong passphrases give up with ErrBadPassphrase.
func UnlockCache(cache *authcache.Cache) error {
	if !cache.IsProtected() {
		return nil
	}

	fmt.Println(infoStyle.Render("The cached credential is passphrase-protected."))
	for attempt := 0; attempt < 3; attempt++ {
		fmt.Print(promptStyle.Render("Passphrase: "))
		pass, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read passphrase: %w", err)
		}
		err = cache.Unlock(string(pass))
		if err == nil {
			return nil
		}
		if !errors.Is(err, authcache.ErrBadPassphrase) {
			return err
		}
		fmt.Println(warningStyle.Render("Wrong passphrase."))
	}
	return authcache.ErrBadPassphrase
}

// newClient builds the API client from config, bound to the credential cache
// as its token source.
func newClient(cfg *config.Config, cache *authcache.Cache) *api.Client {
	return api.NewClient(cfg.API.BaseURL).
		WithTokenSource(cache).
		WithTimeout(time.Duration(cfg.API.TimeoutSecs) * time.Second).
		WithSendsPerMinute(cfg.API.SendsPerMinute)
}

// printRequestError renders a backend failure, with per-field validation
// messages when the backend supplied them.
func printRequestError(err error) {
	var reqErr *api.RequestError
	if errors.As(err, &reqErr) && len(reqErr.Fields) > 0 {
		fmt.Println(errorStyle.Render("The server rejected the input:"))
		keys := make([]string, 0, len(reqErr.Fields))
		for k := range reqErr.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %s\n", k, reqErr.Fields[k])
		}
		return
	}
	fmt.Println(errorStyle.Render("Error: " + err.Error()))
}
