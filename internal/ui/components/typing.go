// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clarity-hq/clarity-tui/internal/model"
	"github.com/clarity-hq/clarity-tui/internal/ui/styles"
)

// TypingIndicator is the animated "persona is typing" line shown while a
// chat turn is in flight.
type TypingIndicator struct {
	theme   *styles.Theme
	spinner spinner.Model
	role    model.Role
	active  bool
}

// NewTypingIndicator creates an indicator for the given persona.
func NewTypingIndicator(theme *styles.Theme, role model.Role) TypingIndicator {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Spinner
	return TypingIndicator{theme: theme, spinner: sp, role: role}
}

// SetRole switches the persona named in the indicator.
func (t *TypingIndicator) SetRole(role model.Role) {
	t.role = role
}

// Start activates the indicator and returns the spinner tick command.
func (t *TypingIndicator) Start() tea.Cmd {
	t.active = true
	return t.spinner.Tick
}

// Stop deactivates the indicator.
func (t *TypingIndicator) Stop() {
	t.active = false
}

// Active reports whether the indicator is running.
func (t TypingIndicator) Active() bool {
	return t.active
}

// Update advances the spinner animation.
func (t TypingIndicator) Update(msg tea.Msg) (TypingIndicator, tea.Cmd) {
	if !t.active {
		return t, nil
	}
	var cmd tea.Cmd
	t.spinner, cmd = t.spinner.Update(msg)
	return t, cmd
}

// View renders the indicator; empty when inactive.
func (t TypingIndicator) View() string {
	if !t.active {
		return ""
	}
	return t.spinner.View() + t.theme.ThinkingText.Render("Your "+t.role.DisplayName()+" is typing...")
}
