// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package settings provides the settings page: profile, session defaults,
// credential protection and logout.
package settings

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clarity-hq/clarity-tui/internal/api"
	"github.com/clarity-hq/clarity-tui/internal/authcache"
	"github.com/clarity-hq/clarity-tui/internal/config"
	"github.com/clarity-hq/clarity-tui/internal/model"
	"github.com/clarity-hq/clarity-tui/internal/ui/components"
	"github.com/clarity-hq/clarity-tui/internal/ui/styles"
)

const requestTimeout = 30 * time.Second

// =============================================================================
// MESSAGES
// =============================================================================

// BackMsg asks the root model to return to the welcome page.
type BackMsg struct{}

// LoggedOutMsg tells the root model the credential is gone; it should drop
// the signed-in identity and show the welcome page.
type LoggedOutMsg struct{}

// NameUpdatedMsg carries the new display name after a profile update.
type NameUpdatedMsg struct {
	Name string
}

// profileResultMsg delivers the outcome of the profile-update call.
type profileResultMsg struct {
	Name string
	Err  error
}

// logoutResultMsg delivers the outcome of the logout call.
type logoutResultMsg struct {
	Err error
}

// =============================================================================
// BACKEND SURFACE
// =============================================================================

// Backend is the slice of the API client the settings page uses.
type Backend interface {
	UpdateProfile(ctx context.Context, name, userID string) (*api.AuthResponse, error)
	Logout(ctx context.Context) (*api.AuthResponse, error)
}

// =============================================================================
// SETTINGS ITEMS
// =============================================================================

type item int

const (
	itemDisplayName item = iota
	itemPersona
	itemTheme
	itemMarkdown
	itemPassphrase
	itemLogout
	itemCount
)

func (i item) label() string {
	switch i {
	case itemDisplayName:
		return "Display name"
	case itemPersona:
		return "Default persona"
	case itemTheme:
		return "Theme"
	case itemMarkdown:
		return "Markdown rendering"
	case itemPassphrase:
		return "Protect credentials"
	case itemLogout:
		return "Log out"
	}
	return ""
}

// =============================================================================
// KEY BINDINGS
// =============================================================================

// KeyMap holds the settings page key bindings.
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Back   key.Binding
}

// DefaultKeyMap returns the default settings bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("up/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("down/j", "down")),
		Select: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

// =============================================================================
// SETTINGS MODEL
// =============================================================================

// Model is the Bubble Tea model for the settings page.
type Model struct {
	theme  *styles.Theme
	width  int
	height int

	backend Backend
	cache   *authcache.Cache

	header components.Header
	keyMap KeyMap

	selected item

	// Inline edit state. Only one of these is active at a time.
	editingName bool
	editingPass bool
	input       textinput.Model

	busy      bool
	statusMsg string
}

// New creates the settings page.
func New(theme *styles.Theme, backend Backend, cache *authcache.Cache) Model {
	input := textinput.New()
	input.CharLimit = 120

	return Model{
		theme:   theme,
		backend: backend,
		cache:   cache,
		header:  components.NewHeader(theme, "Settings"),
		keyMap:  DefaultKeyMap(),
		input:   input,
	}
}

// SetUser sets the signed-in display name shown in the header.
func (m *Model) SetUser(name string) {
	m.header.SetUser(name)
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// SetSize lays the page out for the given terminal dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.header.SetWidth(width)
	m.input.Width = width - 20
}

// Update handles settings page messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editingName || m.editingPass {
			return m.updateEdit(msg)
		}
		return m.updateList(msg)

	case profileResultMsg:
		m.busy = false
		if msg.Err != nil {
			m.statusMsg = "Update failed: " + msg.Err.Error()
			return m, nil
		}
		m.statusMsg = "Name updated."
		m.header.SetUser(msg.Name)
		name := msg.Name
		return m, func() tea.Msg { return NameUpdatedMsg{Name: name} }

	case logoutResultMsg:
		m.busy = false
		if msg.Err != nil {
			m.statusMsg = "Logout failed: " + msg.Err.Error()
			return m, nil
		}
		return m, func() tea.Msg { return LoggedOutMsg{} }
	}

	return m, nil
}

// updateList handles keys while navigating the settings list.
func (m Model) updateList(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Back):
		return m, func() tea.Msg { return BackMsg{} }

	case key.Matches(msg, m.keyMap.Up):
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Down):
		if m.selected < itemCount-1 {
			m.selected++
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Select):
		return m.activate()
	}
	return m, nil
}

// activate runs the selected item's action.
func (m Model) activate() (Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	switch m.selected {
	case itemDisplayName:
		m.editingName = true
		m.input.EchoMode = textinput.EchoNormal
		m.input.Placeholder = "New display name"
		m.input.SetValue(m.cache.Load().DisplayName)
		m.input.Focus()
		return m, textinput.Blink

	case itemPersona:
		cfg := config.Global()
		cfg.UI.Role = string(nextRole(model.ParseRole(cfg.UI.Role)))
		m.saveConfig(cfg)
		return m, nil

	case itemTheme:
		cfg := config.Global()
		if cfg.UI.Theme == "dark" {
			cfg.UI.Theme = "light"
		} else {
			cfg.UI.Theme = "dark"
		}
		m.saveConfig(cfg)
		return m, nil

	case itemMarkdown:
		cfg := config.Global()
		cfg.UI.Markdown = !cfg.UI.Markdown
		m.saveConfig(cfg)
		return m, nil

	case itemPassphrase:
		if !m.cache.Load().LoggedIn() {
			m.statusMsg = "Sign in before protecting the credential record."
			return m, nil
		}
		m.editingPass = true
		m.input.EchoMode = textinput.EchoPassword
		m.input.Placeholder = "Passphrase"
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case itemLogout:
		m.busy = true
		m.statusMsg = "Logging out..."
		backend, cache := m.backend, m.cache
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			resp, err := backend.Logout(ctx)
			if err != nil {
				return logoutResultMsg{Err: err}
			}
			if resp.Message != api.StatusLoggedOut {
				return logoutResultMsg{Err: nil}
			}
			return logoutResultMsg{Err: cache.Clear()}
		}
	}
	return m, nil
}

// updateEdit handles keys while an inline edit is open.
func (m Model) updateEdit(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Back):
		m.editingName = false
		m.editingPass = false
		return m, nil

	case key.Matches(msg, m.keyMap.Select):
		value := strings.TrimSpace(m.input.Value())
		if m.editingName {
			m.editingName = false
			if value == "" {
				return m, nil
			}
			return m.submitName(value)
		}
		m.editingPass = false
		if value == "" {
			return m, nil
		}
		return m.protectCredential(value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitName PUTs the new display name and, on "Nameupdated", rewrites the
// cached credential so the new name survives a restart.
func (m Model) submitName(name string) (Model, tea.Cmd) {
	m.busy = true
	m.statusMsg = "Updating..."

	backend, cache := m.backend, m.cache
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		resp, err := backend.UpdateProfile(ctx, name, cache.Load().UserID)
		if err != nil {
			return profileResultMsg{Err: err}
		}
		if resp.Message != api.StatusNameUpdated {
			return profileResultMsg{Name: name}
		}

		updated := resp.DisplayName
		if updated == "" {
			updated = name
		}
		cred := cache.Load()
		cred.DisplayName = updated
		if err := cache.Store(cred); err != nil {
			return profileResultMsg{Name: updated, Err: err}
		}
		return profileResultMsg{Name: updated}
	}
}

// protectCredential rewrites the credential record under a passphrase-derived
// key. Load keeps working only through LoadProtected afterwards.
func (m Model) protectCredential(passphrase string) (Model, tea.Cmd) {
	cred := m.cache.Load()
	if err := m.cache.StoreProtected(cred, passphrase); err != nil {
		m.statusMsg = "Could not protect credentials: " + err.Error()
		return m, nil
	}
	m.statusMsg = "Credential record is now passphrase-protected."
	return m, nil
}

// saveConfig persists and republishes the config, recording failures in the
// status line.
func (m *Model) saveConfig(cfg *config.Config) {
	config.SetGlobal(cfg)
	if err := config.Save(cfg); err != nil {
		m.statusMsg = "Could not save config: " + err.Error()
		return
	}
	m.statusMsg = "Saved."
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

// View renders the settings page.
func (m Model) View() string {
	cfg := config.Global()
	cred := m.cache.Load()

	values := map[item]string{
		itemDisplayName: displayOr(cred.DisplayName, "not signed in"),
		itemPersona:     model.ParseRole(cfg.UI.Role).DisplayName(),
		itemTheme:       cfg.UI.Theme,
		itemMarkdown:    onOff(cfg.UI.Markdown),
		itemPassphrase:  onOff(m.cache.IsProtected()),
		itemLogout:      "",
	}

	var b strings.Builder
	b.WriteString(m.header.View())
	b.WriteString("\n\n")

	for i := item(0); i < itemCount; i++ {
		line := i.label()
		if v := values[i]; v != "" {
			line += "  " + m.theme.ListMeta.Render(v)
		}
		if i == m.selected {
			b.WriteString(m.theme.ListItemSelected.Render(line))
		} else {
			b.WriteString(m.theme.ListItem.Render(line))
		}
		b.WriteString("\n")
	}

	if m.editingName || m.editingPass {
		b.WriteString("\n")
		b.WriteString(m.theme.FieldLabel.Render(m.input.Placeholder + ": "))
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.statusBarView())
	return b.String()
}

func displayOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

// statusBarView renders shortcut hints plus any transient status message.
func (m Model) statusBarView() string {
	hints := []struct {
		key  string
		desc string
	}{
		{"enter", "select"},
		{"up/down", "navigate"},
		{"esc", "back"},
	}

	parts := make([]string, 0, len(hints)+1)
	for _, h := range hints {
		parts = append(parts, m.theme.ShortcutKey.Render(h.key)+" "+m.theme.ShortcutDesc.Render(h.desc))
	}
	if m.statusMsg != "" {
		parts = append(parts, m.theme.ShortcutDesc.Render(m.statusMsg))
	}
	return m.theme.StatusBar.Width(m.width).Render(strings.Join(parts, "  "))
}
