// clarity - a terminal client for the Clarity chat assistant.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/clarity-hq/clarity-tui/internal/api"
	"github.com/clarity-hq/clarity-tui/internal/authcache"
	"github.com/clarity-hq/clarity-tui/internal/cli"
	"github.com/clarity-hq/clarity-tui/internal/config"
	"github.com/clarity-hq/clarity-tui/internal/model"
	"github.com/clarity-hq/clarity-tui/internal/session"
	"github.com/clarity-hq/clarity-tui/internal/storage"
	"github.com/clarity-hq/clarity-tui/internal/ui/auth"
	"github.com/clarity-hq/clarity-tui/internal/ui/chat"
	"github.com/clarity-hq/clarity-tui/internal/ui/dashboard"
	"github.com/clarity-hq/clarity-tui/internal/ui/settings"
	"github.com/clarity-hq/clarity-tui/internal/ui/styles"
	"github.com/clarity-hq/clarity-tui/internal/ui/welcome"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdTUI:
		runTUI(args)
	case cli.CmdLogin:
		cli.HandleLogin(args)
	case cli.CmdLogout:
		cli.HandleLogout(args)
	case cli.CmdChat:
		cli.HandleChat(args)
	case cli.CmdSessions:
		cli.HandleSessions(args)
	case cli.CmdStatus:
		cli.HandleStatus(args)
	case cli.CmdConfig:
		cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.HandleVersion()
	case cli.CmdHelp:
		cli.HandleHelp()
	}
}

// =============================================================================
// TUI BOOTSTRAP
// =============================================================================

func runTUI(args cli.Args) {
	cfg := config.Global()

	cachePath, err := cfg.AuthCachePath()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot resolve credential cache path: %v\n", err)
		os.Exit(1)
	}
	cache := authcache.New(cachePath)
	if err := cli.UnlockCache(cache); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot unlock credential record: %v\n", err)
		os.Exit(1)
	}
	cred := cache.Load()

	client := api.NewClient(cfg.API.BaseURL).
		WithTokenSource(cache).
		WithTimeout(time.Duration(cfg.API.TimeoutSecs) * time.Second).
		WithSendsPerMinute(cfg.API.SendsPerMinute)

	ctrl := session.NewController(client, cred.UserID)

	var store *storage.HistoryStore
	if cfg.History.Enabled {
		if path, err := cfg.HistoryPath(); err == nil {
			if s, err := storage.Open(path, cfg.History.MaxSessions); err == nil {
				store = s
				defer store.Close()
				ctrl = ctrl.WithStore(store)
			} else {
				fmt.Fprintf(os.Stderr, "Warning: history cache unavailable: %v\n", err)
			}
		}
	}

	// Live-reload the config file while the TUI runs.
	if path, err := config.ConfigPath(); err == nil {
		if watcher, err := config.NewWatcher(path, config.SetGlobal); err == nil {
			if err := watcher.Watch(); err == nil {
				defer watcher.Close()
			}
		}
	}

	root := newRootModel(cfg, cache, client, ctrl, store)
	program := tea.NewProgram(root, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// ROOT MODEL
// =============================================================================

// page identifies the active screen.
type page int

const (
	pageWelcome page = iota
	pageChat
	pageDashboard
	pageSettings
)

// pendingNav remembers where a signed-out user was heading when the auth
// overlay interrupted; it is replayed once they sign in.
type pendingNav struct {
	start  *welcome.StartChatMsg
	resume *welcome.ResumeChatMsg
	page   page
}

// rootModel routes between the pages and owns the sign-in overlay.
type rootModel struct {
	theme *styles.Theme

	cfg    *config.Config
	cache  *authcache.Cache
	client *api.Client
	ctrl   *session.Controller
	store  *storage.HistoryStore

	page      page
	welcome   welcome.Model
	chat      chat.Model
	dashboard dashboard.Model
	settings  settings.Model

	overlay     auth.Model
	showOverlay bool
	pending     *pendingNav

	width  int
	height int
}

func newRootModel(cfg *config.Config, cache *authcache.Cache, client *api.Client, ctrl *session.Controller, store *storage.HistoryStore) rootModel {
	theme := styles.NewTheme()
	googleURL := cfg.API.BaseURL + api.EndpointGoogleSignIn

	var local welcome.LocalLister
	if store != nil {
		local = store
	}

	m := rootModel{
		theme:     theme,
		cfg:       cfg,
		cache:     cache,
		client:    client,
		ctrl:      ctrl,
		store:     store,
		welcome:   welcome.New(theme, model.ParseRole(cfg.UI.Role), client, local),
		dashboard: dashboard.New(theme, client, googleURL),
		settings:  settings.New(theme, client, cache),
		overlay:   auth.New(theme, client, cache, googleURL),
	}
	m.setUser(cache.Load().DisplayName)
	return m
}

// setUser pushes the signed-in display name into every page header.
func (m *rootModel) setUser(name string) {
	m.welcome.SetUser(name)
	m.chat.SetUser(name)
	m.dashboard.SetUser(name)
	m.settings.SetUser(name)
}

// Init implements tea.Model.
func (m rootModel) Init() tea.Cmd {
	return m.welcome.Init()
}

// Update implements tea.Model.
func (m rootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.welcome.SetSize(msg.Width, msg.Height)
		m.chat.SetSize(msg.Width, msg.Height)
		m.dashboard.SetSize(msg.Width, msg.Height)
		m.settings.SetSize(msg.Width, msg.Height)
		m.overlay.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// esc backs out of the chat page; other pages emit their own BackMsg.
		if !m.showOverlay && m.page == pageChat && msg.String() == "esc" {
			m.page = pageWelcome
			return m, nil
		}

	// Navigation messages from the pages.
	case welcome.StartChatMsg:
		return m.handleStartChat(msg)

	case welcome.ResumeChatMsg:
		return m.handleResumeChat(msg)

	case welcome.ShowDashboardMsg:
		if !m.signedIn() {
			return m.requireAuth(&pendingNav{page: pageDashboard})
		}
		m.page = pageDashboard
		return m, m.dashboard.Init()

	case welcome.ShowSettingsMsg:
		m.page = pageSettings
		return m, m.settings.Init()

	case dashboard.BackMsg, settings.BackMsg:
		m.page = pageWelcome
		return m, nil

	case settings.LoggedOutMsg:
		m.ctrl.SetUserID("")
		m.setUser("")
		m.page = pageWelcome
		return m, nil

	case settings.NameUpdatedMsg:
		m.setUser(msg.Name)
		return m, nil

	case auth.AuthenticatedMsg:
		m.showOverlay = false
		m.ctrl.SetUserID(msg.Cred.UserID)
		m.setUser(msg.Cred.DisplayName)
		return m.replayPending()

	case auth.DismissMsg:
		m.showOverlay = false
		m.pending = nil
		return m, nil
	}

	if m.showOverlay {
		var cmd tea.Cmd
		m.overlay, cmd = m.overlay.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	switch m.page {
	case pageWelcome:
		m.welcome, cmd = m.welcome.Update(msg)
	case pageChat:
		m.chat, cmd = m.chat.Update(msg)
	case pageDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case pageSettings:
		m.settings, cmd = m.settings.Update(msg)
	}
	return m, cmd
}

// signedIn reports whether a usable credential is cached.
func (m rootModel) signedIn() bool {
	return m.cache.Load().LoggedIn()
}

// requireAuth opens the sign-in overlay, keeping the interrupted navigation
// for replay.
func (m rootModel) requireAuth(nav *pendingNav) (tea.Model, tea.Cmd) {
	m.pending = nav
	m.showOverlay = true
	m.overlay = auth.New(m.theme, m.client, m.cache, m.cfg.API.BaseURL+api.EndpointGoogleSignIn)
	m.overlay.SetSize(m.width, m.height)
	return m, m.overlay.Init()
}

// replayPending resumes whatever navigation the auth overlay interrupted.
func (m rootModel) replayPending() (tea.Model, tea.Cmd) {
	nav := m.pending
	m.pending = nil
	if nav == nil {
		return m, nil
	}
	switch {
	case nav.start != nil:
		return m.openChat(*nav.start)
	case nav.resume != nil:
		return m.openResumedChat(*nav.resume)
	case nav.page == pageDashboard:
		m.page = pageDashboard
		return m, m.dashboard.Init()
	}
	return m, nil
}

// handleStartChat opens a fresh session, detouring through the auth overlay
// when signed out.
func (m rootModel) handleStartChat(msg welcome.StartChatMsg) (tea.Model, tea.Cmd) {
	if !m.signedIn() {
		return m.requireAuth(&pendingNav{start: &msg})
	}
	return m.openChat(msg)
}

// handleResumeChat reopens an earlier session, detouring through the auth
// overlay when signed out.
func (m rootModel) handleResumeChat(msg welcome.ResumeChatMsg) (tea.Model, tea.Cmd) {
	if !m.signedIn() {
		return m.requireAuth(&pendingNav{resume: &msg})
	}
	return m.openResumedChat(msg)
}

// openChat starts a new session and switches to the chat page.
func (m rootModel) openChat(msg welcome.StartChatMsg) (tea.Model, tea.Cmd) {
	m.ctrl.StartSession(msg.Role, msg.InitialMessage, msg.SkipAPI)
	return m.showChat()
}

// openResumedChat reopens a session, seeding the transcript from the local
// cache when it has one; otherwise the chat page fetches history on entry.
func (m rootModel) openResumedChat(msg welcome.ResumeChatMsg) (tea.Model, tea.Cmd) {
	if m.store != nil {
		if sess, err := m.store.Get(msg.Meta.ID); err == nil {
			m.ctrl.Resume(sess.ID, sess.Role, sess.Messages)
			return m.showChat()
		}
	}
	m.ctrl.Resume(msg.Meta.ID, msg.Meta.Role, nil)
	return m.showChat()
}

// showChat builds a fresh chat page around the controller's active session.
func (m rootModel) showChat() (tea.Model, tea.Cmd) {
	m.chat = chat.New(m.theme, m.ctrl, m.cfg.UI.Markdown)
	m.chat.SetUser(m.cache.Load().DisplayName)
	m.chat.SetSize(m.width, m.height)
	m.page = pageChat
	return m, m.chat.Init()
}

// View implements tea.Model.
func (m rootModel) View() string {
	if m.showOverlay {
		return m.overlay.View()
	}
	switch m.page {
	case pageChat:
		return m.chat.View()
	case pageDashboard:
		return m.dashboard.View()
	case pageSettings:
		return m.settings.View()
	default:
		return m.welcome.View()
	}
}
