// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat command handler for the clarity CLI.
//
// Handles the "clarity chat" command which provides an interactive REPL
// against the Clarity backend, sharing the TUI's session semantics.
//
// Command: chat
// Short:   Start an interactive chat session
//
// Examples:
//   clarity chat                     Chat with the default persona
//   clarity chat --role mentor       Chat with the Mentor
//   clarity chat --resume SESSION_ID Continue an earlier session
//
// Interactive Commands (during chat):
//   /help, /h           Show available commands
//   /new [role]         Start a fresh session (optionally switching persona)
//   /history            Show this session's transcript
//   /plans              Show tasks and resources from the last reply
//   /quit, /q           Exit chat
//   Ctrl+D              Exit chat
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/clarity-hq/clarity-tui/internal/config"
	"github.com/clarity-hq/clarity-tui/internal/model"
	"github.com/clarity-hq/clarity-tui/internal/session"
	"github.com/clarity-hq/clarity-tui/internal/storage"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a new ChatCLI with input history support.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	historyFile := filepath.Join(configDir, "chat_history")

	cli := &ChatCLI{
		line:        line,
		historyFile: historyFile,
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line of input with the given prompt. Arrow keys navigate
// history.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history to file with secure permissions.
func (c *ChatCLI) SaveHistory() {
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat handles the chat command.
func HandleChat(args Args) {
	cfg := config.Global()
	cache := openCache(cfg)
	cred := cache.Load()
	if !cred.LoggedIn() {
		fmt.Println(warningStyle.Render("Sign in first: clarity login"))
		os.Exit(1)
	}

	client := newClient(cfg, cache)
	ctrl := session.NewController(client, cred.UserID)

	var store *storage.HistoryStore
	if cfg.History.Enabled {
		if path, err := cfg.HistoryPath(); err == nil {
			if s, err := storage.Open(path, cfg.History.MaxSessions); err == nil {
				store = s
				defer store.Close()
				ctrl = ctrl.WithStore(store)
			}
		}
	}

	role := model.ParseRole(args.Role)
	if args.Role == "" {
		role = model.ParseRole(cfg.UI.Role)
	}

	if args.Resume != "" {
		resumeSession(ctrl, store, args.Resume, role)
	} else {
		ctrl.StartSession(role, "", true)
	}

	ctx := context.Background()
	if err := ctrl.Activate(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load the session: %v\n", err)
	}

	input := NewChatCLI()
	defer input.Close()

	if !args.Quiet {
		fmt.Println(welcomeStyle.Render("clarity chat - talking to your " + ctrl.ActiveRole().DisplayName()))
		fmt.Println(infoStyle.Render("Type /help for commands, /quit to exit."))
		fmt.Println()
	}
	printLastBotMessage(ctrl)

	for {
		line, err := input.ReadInput(promptStyle.Render("you> "))
		if err != nil {
			// liner returns an error on Ctrl+D and aborted Ctrl+C
			fmt.Println()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := handleSlashCommand(ctrl, line); done {
				return
			}
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		err = ctrl.Send(sendCtx, line)
		cancel()
		if err != nil {
			// The controller already appended the synthetic failure turn.
			fmt.Println(warningStyle.Render("(send failed)"))
		}
		printLastBotMessage(ctrl)
	}
}

// resumeSession reopens an existing session, preferring the locally cached
// transcript so already-seen turns render without a network round trip.
func resumeSession(ctrl *session.Controller, store *storage.HistoryStore, sessionID string, fallbackRole model.Role) {
	if store != nil {
		if sess, err := store.Get(sessionID); err == nil {
			ctrl.Resume(sess.ID, sess.Role, sess.Messages)
			return
		}
	}
	ctrl.Resume(sessionID, fallbackRole, nil)
}

// handleSlashCommand runs one interactive command; it reports whether the
// REPL should exit.
func handleSlashCommand(ctrl *session.Controller, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/q":
		return true

	case "/help", "/h":
		fmt.Println(commandStyle.Render("/new [role]") + "  start a fresh session")
		fmt.Println(commandStyle.Render("/history") + "     show this session's transcript")
		fmt.Println(commandStyle.Render("/plans") + "       show tasks and resources from the last reply")
		fmt.Println(commandStyle.Render("/quit") + "        exit")

	case "/new":
		role := ctrl.ActiveRole()
		if len(fields) > 1 {
			role = model.ParseRole(fields[1])
		}
		ctrl.StartSession(role, "", true)
		if err := ctrl.Activate(context.Background()); err == nil {
			printLastBotMessage(ctrl)
		}

	case "/history":
		for _, msg := range ctrl.Transcript() {
			if msg.IsUser() {
				fmt.Println(promptStyle.Render("you> ") + msg.Text)
			} else {
				fmt.Println(msg.Text)
			}
		}

	case "/plans":
		printLastPlans(ctrl)

	default:
		fmt.Println(warningStyle.Render("Unknown command. Type /help."))
	}
	return false
}

// printLastBotMessage prints the newest bot turn, if any.
func printLastBotMessage(ctrl *session.Controller) {
	transcript := ctrl.Transcript()
	for i := len(transcript) - 1; i >= 0; i-- {
		if !transcript[i].IsUser() {
			fmt.Println(transcript[i].Text)
			if transcript[i].HasPlans() {
				fmt.Println(infoStyle.Render("(this reply carries a plan; /plans to view)"))
			}
			fmt.Println()
			return
		}
	}
}

// printLastPlans prints the tasks and resources attached to the newest bot
// turn that carries any.
func printLastPlans(ctrl *session.Controller) {
	transcript := ctrl.Transcript()
	for i := len(transcript) - 1; i >= 0; i-- {
		msg := transcript[i]
		if msg.IsUser() || !msg.HasPlans() {
			continue
		}
		if len(msg.Tasks) > 0 {
			fmt.Println(commandStyle.Render("Tasks:"))
			for _, t := range msg.Tasks {
				marker := "[ ]"
				if t.Done {
					marker = "[x]"
				}
				fmt.Printf("  %s %s\n", marker, t.Title)
			}
		}
		if len(msg.Resources) > 0 {
			fmt.Println(commandStyle.Render("Resources:"))
			for _, r := range msg.Resources {
				fmt.Printf("  %s  %s\n", r.Title, r.URL)
			}
		}
		return
	}
	fmt.Println(infoStyle.Render("No plans in this session yet."))
}
