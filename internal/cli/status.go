// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command handler.
//
// Command: status
// Short:   Show sign-in and connection status
// Aliases: s
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/clarity-hq/clarity-tui/internal/config"
)

// statusReport is the JSON shape of `clarity status --json`.
type statusReport struct {
	SignedIn       bool   `json:"signed_in"`
	Email          string `json:"email,omitempty"`
	DisplayName    string `json:"display_name,omitempty"`
	Protected      bool   `json:"credential_protected"`
	BaseURL        string `json:"base_url"`
	HistoryEnabled bool   `json:"history_enabled"`
	CachedSessions int    `json:"cached_sessions"`
	Version        string `json:"version"`
}

// HandleStatus handles the status command.
func HandleStatus(args Args) {
	cfg := config.Global()
	cache := openCache(cfg)
	cred := cache.Load()

	report := statusReport{
		SignedIn:       cred.LoggedIn(),
		Email:          cred.Email,
		DisplayName:    cred.DisplayName,
		Protected:      cache.IsProtected(),
		BaseURL:        cfg.API.BaseURL,
		HistoryEnabled: cfg.History.Enabled,
		Version:        Version,
	}

	if store := openStore(cfg); store != nil {
		if n, err := store.Count(); err == nil {
			report.CachedSessions = n
		}
		store.Close()
	}

	if args.JSON {
		out, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(out))
		return
	}

	fmt.Println(welcomeStyle.Render("clarity " + Version))
	if report.SignedIn {
		fmt.Println("  Signed in:  " + commandStyle.Render(report.DisplayName+" <"+report.Email+">"))
	} else {
		fmt.Println("  Signed in:  " + warningStyle.Render("no (clarity login)"))
	}
	fmt.Printf("  Protected:  %v\n", report.Protected)
	fmt.Println("  Backend:    " + report.BaseURL)
	fmt.Printf("  History:    enabled=%v cached=%d\n", report.HistoryEnabled, report.CachedSessions)
}
