// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package welcome provides the landing page: persona picker, opening prompt
// and recent-session list.
package welcome

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/clarity-hq/clarity-tui/internal/model"
	"github.com/clarity-hq/clarity-tui/internal/ui/components"
	"github.com/clarity-hq/clarity-tui/internal/ui/styles"
	"github.com/clarity-hq/clarity-tui/internal/util"
)

// =============================================================================
// PROMPTS
// =============================================================================

// welcomePrompts are the rotating one-liners shown above the input.
var welcomePrompts = []string{
	"Got a task in mind? Let's break it down together.",
	"Need guidance? Start with your first question.",
	"Ask anything that's on your mind right now.",
	"Ready to plan your next big step?",
	"Let's find clarity for your thoughts today.",
	"Your ideas matter. What's your first thought?",
	"Got questions? Let's explore them together.",
	"One step at a time, what's on your mind?",
	"Let's work out your plans and goals here.",
	"Start a chat to clear your confusion today.",
}

// topicPrompt is a canned conversation opener.
type topicPrompt struct {
	Label  string
	Prompt string
}

var topicPrompts = []topicPrompt{
	{"Career Guidelines", "I need help with career guidance..."},
	{"Personal Growth", "I need help with personal growth..."},
	{"Life Discussion", "I need help with life decisions..."},
	{"Stress Management", "I need help with stress management..."},
}

// =============================================================================
// MESSAGES
// =============================================================================

// StartChatMsg asks the root model to open a fresh chat session.
type StartChatMsg struct {
	Role           model.Role
	InitialMessage string
	SkipAPI        bool
}

// ResumeChatMsg asks the root model to reopen an existing session.
type ResumeChatMsg struct {
	Meta model.SessionMeta
}

// ShowDashboardMsg asks the root model to switch to the dashboard page.
type ShowDashboardMsg struct{}

// ShowSettingsMsg asks the root model to switch to the settings page.
type ShowSettingsMsg struct{}

// sessionsLoadedMsg delivers the recent-session listing.
type sessionsLoadedMsg struct {
	Sessions []model.SessionMeta
	Err      error
}

// =============================================================================
// SESSION SOURCES
// =============================================================================

// Lister fetches the backend's session listing.
type Lister interface {
	FetchHistory(ctx context.Context) ([]model.SessionMeta, error)
}

// LocalLister lists locally cached sessions, used when the backend listing
// fails.
type LocalLister interface {
	List() ([]model.SessionMeta, error)
}

const fetchTimeout = 30 * time.Second

// =============================================================================
// KEY BINDINGS
// =============================================================================

// KeyMap holds the welcome page key bindings.
type KeyMap struct {
	CyclePersona key.Binding
	Start        key.Binding
	TopicPrompt  key.Binding
	Sessions     key.Binding
	Dashboard    key.Binding
	Settings     key.Binding
	Up           key.Binding
	Down         key.Binding
	Close        key.Binding
}

// DefaultKeyMap returns the default welcome bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		CyclePersona: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "persona")),
		Start:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "start")),
		TopicPrompt:  key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "topic")),
		Sessions:     key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "sessions")),
		Dashboard:    key.NewBinding(key.WithKeys("ctrl+b"), key.WithHelp("ctrl+b", "dashboard")),
		Settings:     key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "settings")),
		Up:           key.NewBinding(key.WithKeys("up"), key.WithHelp("up", "up")),
		Down:         key.NewBinding(key.WithKeys("down"), key.WithHelp("down", "down")),
		Close:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	}
}

// =============================================================================
// WELCOME MODEL
// =============================================================================

// Model is the Bubble Tea model for the landing page.
type Model struct {
	theme  *styles.Theme
	width  int
	height int

	header components.Header
	input  textarea.Model
	keyMap KeyMap

	role       model.Role
	tagline    string
	topicIndex int

	// Recent-session overlay
	lister       Lister
	local        LocalLister
	showSessions bool
	sessions     []model.SessionMeta
	selected     int
	listErr      error
	loading      bool
}

// New creates the landing page. lister and local may be nil when the user is
// signed out or the history cache is disabled.
func New(theme *styles.Theme, defaultRole model.Role, lister Lister, local LocalLister) Model {
	input := textarea.New()
	input.Placeholder = "What's on your mind?"
	input.CharLimit = 4000
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	if !defaultRole.Valid() {
		defaultRole = model.DefaultRole
	}

	return Model{
		theme:   theme,
		header:  components.NewHeader(theme, "Welcome"),
		input:   input,
		keyMap:  DefaultKeyMap(),
		role:    defaultRole,
		tagline: welcomePrompts[rand.Intn(len(welcomePrompts))],
		lister:  lister,
		local:   local,
	}
}

// SetUser sets the signed-in display name shown in the header.
func (m *Model) SetUser(name string) {
	m.header.SetUser(name)
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

// SetSize lays the page out for the given terminal dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.header.SetWidth(width)
	m.input.SetWidth(width - 4)
}

// Update handles welcome page messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.showSessions {
			return m.updateSessionList(msg)
		}

		switch {
		case key.Matches(msg, m.keyMap.CyclePersona):
			m.role = nextRole(m.role)
			return m, nil

		case key.Matches(msg, m.keyMap.TopicPrompt):
			m.input.SetValue(topicPrompts[m.topicIndex].Prompt)
			m.topicIndex = (m.topicIndex + 1) % len(topicPrompts)
			return m, nil

		case key.Matches(msg, m.keyMap.Start):
			return m.handleStart()

		case key.Matches(msg, m.keyMap.Sessions):
			return m.openSessionList()

		case key.Matches(msg, m.keyMap.Dashboard):
			return m, func() tea.Msg { return ShowDashboardMsg{} }

		case key.Matches(msg, m.keyMap.Settings):
			return m, func() tea.Msg { return ShowSettingsMsg{} }
		}

	case sessionsLoadedMsg:
		m.loading = false
		m.sessions = msg.Sessions
		m.listErr = msg.Err
		m.selected = 0
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleStart opens a new session. An empty input is the persona-pick
// shortcut: the session starts with a static greeting and no network call.
func (m Model) handleStart() (Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	role := m.role
	m.input.Reset()

	if text == "" {
		return m, func() tea.Msg {
			return StartChatMsg{Role: role, SkipAPI: true}
		}
	}
	return m, func() tea.Msg {
		return StartChatMsg{Role: role, InitialMessage: text}
	}
}

// openSessionList shows the recent-session overlay and kicks off the fetch.
func (m Model) openSessionList() (Model, tea.Cmd) {
	m.showSessions = true
	m.loading = true
	m.listErr = nil

	lister, local := m.lister, m.local
	return m, func() tea.Msg {
		if lister != nil {
			ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
			defer cancel()
			sessions, err := lister.FetchHistory(ctx)
			if err == nil {
				return sessionsLoadedMsg{Sessions: sessions}
			}
			if local == nil {
				return sessionsLoadedMsg{Err: err}
			}
		}
		if local == nil {
			return sessionsLoadedMsg{Sessions: []model.SessionMeta{}}
		}
		sessions, err := local.List()
		return sessionsLoadedMsg{Sessions: sessions, Err: err}
	}
}

// updateSessionList handles keys while the session overlay is open.
func (m Model) updateSessionList(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Close):
		m.showSessions = false
		return m, nil

	case key.Matches(msg, m.keyMap.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Down):
		if m.selected < len(m.sessions)-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Start):
		if m.selected >= 0 && m.selected < len(m.sessions) {
			meta := m.sessions[m.selected]
			m.showSessions = false
			return m, func() tea.Msg { return ResumeChatMsg{Meta: meta} }
		}
		return m, nil
	}
	return m, nil
}

// nextRole cycles through the personas in display order.
func nextRole(r model.Role) model.Role {
	for i, candidate := range model.AllRoles {
		if candidate == r {
			return model.AllRoles[(i+1)%len(model.AllRoles)]
		}
	}
	return model.DefaultRole
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the landing page.
func (m Model) View() string {
	if m.showSessions {
		return m.sessionListView()
	}

	var b strings.Builder
	b.WriteString(m.header.View())
	b.WriteString("\n\n")

	b.WriteString(m.theme.ThinkingText.Render(m.tagline))
	b.WriteString("\n\n")

	b.WriteString(m.personaTabs())
	b.WriteString("\n\n")

	b.WriteString(m.topicChips())
	b.WriteString("\n\n")

	b.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.statusBarView())

	return b.String()
}

// personaTabs renders the persona picker with the active one highlighted.
func (m Model) personaTabs() string {
	tabs := make([]string, 0, len(model.AllRoles))
	for _, role := range model.AllRoles {
		if role == m.role {
			tabs = append(tabs, m.theme.ListItemSelected.Render(role.DisplayName()))
		} else {
			tabs = append(tabs, m.theme.ListItem.Render(role.DisplayName()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

// topicChips renders the canned conversation openers.
func (m Model) topicChips() string {
	var b strings.Builder
	b.WriteString(m.theme.ListMeta.Render("Topics (ctrl+t to cycle):"))
	for _, t := range topicPrompts {
		b.WriteString("  ")
		b.WriteString(m.theme.ListItem.Render(t.Label))
	}
	return b.String()
}

// sessionListView renders the recent-session overlay.
func (m Model) sessionListView() string {
	var b strings.Builder
	b.WriteString(m.theme.OverlayTitle.Render("Recent sessions"))
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.theme.ThinkingText.Render("Loading sessions..."))
	case m.listErr != nil:
		b.WriteString(m.theme.ErrorMessage.Render("Could not load sessions: " + m.listErr.Error()))
	case len(m.sessions) == 0:
		b.WriteString(m.theme.ListMeta.Render("No sessions yet. Start one from the welcome page."))
	default:
		for i, s := range m.sessions {
			line := s.Role.DisplayName() + "  " + util.TruncateWidth(s.Title, 48) +
				"  " + s.UpdatedAt.Format("Jan 2 15:04")
			if i == m.selected {
				b.WriteString(m.theme.ListItemSelected.Render(line))
			} else {
				b.WriteString(m.theme.ListItem.Render(line))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.theme.ShortcutKey.Render("enter") + " " + m.theme.ShortcutDesc.Render("resume") +
		"  " + m.theme.ShortcutKey.Render("esc") + " " + m.theme.ShortcutDesc.Render("close"))
	return m.theme.OverlayBox.Render(b.String())
}

// statusBarView renders the shortcut hints.
func (m Model) statusBarView() string {
	hints := []struct {
		key  string
		desc string
	}{
		{"enter", "start chat"},
		{"tab", "persona"},
		{"ctrl+t", "topic"},
		{"ctrl+l", "sessions"},
		{"ctrl+b", "dashboard"},
		{"ctrl+o", "settings"},
	}

	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, m.theme.ShortcutKey.Render(h.key)+" "+m.theme.ShortcutDesc.Render(h.desc))
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}
