// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat page for the Clarity TUI.
package chat

import (
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/clarity-hq/clarity-tui/internal/api"
	"github.com/clarity-hq/clarity-tui/internal/session"
	"github.com/clarity-hq/clarity-tui/internal/ui/components"
	"github.com/clarity-hq/clarity-tui/internal/ui/styles"
)

// =============================================================================
// MESSAGES
// =============================================================================

// ReplyMsg carries the outcome of a dispatched chat turn back to the page.
// SessionID names the session the request was issued for so stale replies
// can be dropped after a switch.
type ReplyMsg struct {
	SessionID string
	Reply     *api.Reply
	Err       error
}

// ActivatedMsg signals that the activation work (greeting, initial send or
// history fetch) finished.
type ActivatedMsg struct {
	Err error
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// State is the chat page state.
type State int

const (
	StateReady   State = iota // Ready for input
	StateWaiting              // A turn is in flight
)

// Model is the Bubble Tea model for the chat page.
type Model struct {
	state State

	theme  *styles.Theme
	width  int
	height int

	ctrl *session.Controller

	// Components
	header   components.Header
	viewport viewport.Model
	input    textarea.Model
	typing   components.TypingIndicator

	// Markdown rendering of bot messages (config-controlled)
	markdown bool
	renderer *glamour.TermRenderer

	// Transient UI state
	statusMsg string
	keyMap    KeyMap
}

// New creates the chat page bound to a session controller.
func New(theme *styles.Theme, ctrl *session.Controller, markdown bool) Model {
	input := textarea.New()
	input.Placeholder = "Ask your assistant..."
	input.CharLimit = 4000
	input.SetHeight(3)
	input.ShowLineNumbers = false
	input.Focus()

	vp := viewport.New(80, 20)

	m := Model{
		theme:    theme,
		ctrl:     ctrl,
		header:   components.NewHeader(theme, "Chat"),
		viewport: vp,
		input:    input,
		markdown: markdown,
		keyMap:   DefaultKeyMap(),
	}
	m.syncPersona()
	return m
}

// syncPersona refreshes persona-dependent pieces after a session switch.
func (m *Model) syncPersona() {
	role := m.ctrl.ActiveRole()
	m.typing = components.NewTypingIndicator(m.theme, role)
	m.input.Placeholder = "Ask your " + role.DisplayName() + "..."
}

// SetUser sets the signed-in display name shown in the header.
func (m *Model) SetUser(name string) {
	m.header.SetUser(name)
}

// Init starts the page: the initial greeting, first send or history fetch
// runs as soon as the page is entered.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.activateCmd())
}

// SetSize lays the page out for the given terminal dimensions. A zero Model
// (no controller bound yet) ignores layout until a session opens.
func (m *Model) SetSize(width, height int) {
	if m.ctrl == nil {
		return
	}
	m.width = width
	m.height = height
	m.header.SetWidth(width)
	m.input.SetWidth(width - 4)

	// Header, typing line, input box and status line surround the viewport.
	viewportHeight := height - 3 - m.input.Height() - 4
	if viewportHeight < 3 {
		viewportHeight = 3
	}
	m.viewport.Width = width
	m.viewport.Height = viewportHeight

	if m.markdown {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(contentWidth(width)),
		)
		if err == nil {
			m.renderer = renderer
		}
	}
	m.refreshTranscript()
}

// contentWidth is the usable width inside a message bubble.
func contentWidth(width int) int {
	w := width - 8
	if w < 20 {
		w = 20
	}
	return w
}
