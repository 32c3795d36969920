// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Session management command handler.
//
// Command: sessions
// Short:   List, inspect and prune chat sessions
//
// Examples:
//   clarity sessions                List sessions (backend, cached fallback)
//   clarity sessions show ID        Print a session transcript
//   clarity sessions delete ID      Remove a session from the local cache
//   clarity sessions clear          Empty the local cache
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/clarity-hq/clarity-tui/internal/api"
	"github.com/clarity-hq/clarity-tui/internal/config"
	"github.com/clarity-hq/clarity-tui/internal/model"
	"github.com/clarity-hq/clarity-tui/internal/storage"
	"github.com/clarity-hq/clarity-tui/internal/util"
)

// HandleSessions handles the sessions command.
func HandleSessions(args Args) {
	cfg := config.Global()

	switch args.Subcommand {
	case "", "list":
		listSessions(cfg, args)
	case "show":
		showSession(cfg, args)
	case "delete":
		deleteSession(cfg, args)
	case "clear":
		clearSessions(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown sessions subcommand: %s\n", args.Subcommand)
		os.Exit(1)
	}
}

// openStore opens the local history cache, nil when disabled or unavailable.
func openStore(cfg *config.Config) *storage.HistoryStore {
	if !cfg.History.Enabled {
		return nil
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil
	}
	store, err := storage.Open(path, cfg.History.MaxSessions)
	if err != nil {
		return nil
	}
	return store
}

// listSessions prints the session listing, asking the backend first and
// falling back to the local cache when it cannot be reached.
func listSessions(cfg *config.Config, args Args) {
	cache := openCache(cfg)
	var sessions []model.SessionMeta
	source := "backend"

	if cache.Load().LoggedIn() {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		fetched, err := newClient(cfg, cache).FetchHistory(ctx)
		if err == nil {
			sessions = fetched
		}
	}

	if sessions == nil {
		store := openStore(cfg)
		if store == nil {
			fmt.Println(warningStyle.Render("The backend is unreachable and the local cache is disabled."))
			os.Exit(1)
		}
		defer store.Close()
		cached, err := store.List()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		sessions = cached
		source = "local cache"
	}

	if args.JSON {
		out, _ := json.MarshalIndent(sessions, "", "  ")
		fmt.Println(string(out))
		return
	}

	if len(sessions) == 0 {
		fmt.Println(infoStyle.Render("No sessions yet."))
		return
	}

	fmt.Println(infoStyle.Render(fmt.Sprintf("%d session(s), via %s:", len(sessions), source)))
	for _, s := range sessions {
		fmt.Printf("  %s  %-13s  %-40s  %s\n",
			s.ID,
			s.Role.DisplayName(),
			util.TruncateWidth(s.Title, 40),
			s.UpdatedAt.Format("2006-01-02 15:04"))
	}
}

// showSession prints one session's transcript, preferring the local cache.
func showSession(cfg *config.Config, args Args) {
	id := argAfterSubcommand(args)
	if id == "" {
		fmt.Fprintln(os.Stderr, "Usage: clarity sessions show SESSION_ID")
		os.Exit(1)
	}

	if store := openStore(cfg); store != nil {
		defer store.Close()
		if sess, err := store.Get(id); err == nil {
			printTranscript(sess.Role, sess.Messages)
			return
		}
	}

	cache := openCache(cfg)
	if !cache.Load().LoggedIn() {
		fmt.Println(warningStyle.Render("Session not cached locally; sign in to fetch it."))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	reply, err := newClient(cfg, cache).FetchSession(ctx, id)
	if err != nil {
		printRequestError(err)
		os.Exit(1)
	}
	if reply.Kind == api.ReplyNone || len(reply.Messages) == 0 {
		fmt.Println(infoStyle.Render("The backend has no messages for this session."))
		return
	}
	printTranscript(model.DefaultRole, reply.Messages)
}

// printTranscript renders a transcript to stdout.
func printTranscript(role model.Role, messages []model.ChatMessage) {
	for _, msg := range messages {
		if msg.IsUser() {
			fmt.Println(promptStyle.Render("you> ") + msg.Text)
		} else {
			fmt.Println(commandStyle.Render(role.DisplayName()+"> ") + msg.Text)
		}
	}
}

// deleteSession removes one session from the local cache. The backend copy
// is not touched.
func deleteSession(cfg *config.Config, args Args) {
	id := argAfterSubcommand(args)
	if id == "" {
		fmt.Fprintln(os.Stderr, "Usage: clarity sessions delete SESSION_ID")
		os.Exit(1)
	}

	store := openStore(cfg)
	if store == nil {
		fmt.Println(warningStyle.Render("The local cache is disabled; nothing to delete."))
		return
	}
	defer store.Close()

	if err := store.Delete(id); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(commandStyle.Render("Deleted " + id + " from the local cache."))
}

// clearSessions empties the local cache.
func clearSessions(cfg *config.Config) {
	store := openStore(cfg)
	if store == nil {
		fmt.Println(warningStyle.Render("The local cache is disabled; nothing to clear."))
		return
	}
	defer store.Close()

	if err := store.Clear(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(commandStyle.Render("Local session cache cleared."))
}

// argAfterSubcommand returns the positional argument following the sessions
// subcommand.
func argAfterSubcommand(args Args) string {
	parser := NewArgParser(args.Raw)
	return parser.Positional(1)
}
