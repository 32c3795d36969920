// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides shared UI components for the Clarity TUI.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/clarity-hq/clarity-tui/internal/ui/styles"
)

// Header is the top bar shown on every page: brand, page title and the
// signed-in user.
type Header struct {
	theme *styles.Theme

	Title    string
	UserName string
	width    int
}

// NewHeader creates a header for the given page title.
func NewHeader(theme *styles.Theme, title string) Header {
	return Header{theme: theme, Title: title}
}

// SetWidth sets the render width.
func (h *Header) SetWidth(width int) {
	h.width = width
}

// SetUser sets the signed-in display name; empty means logged out.
func (h *Header) SetUser(name string) {
	h.UserName = name
}

// View renders the header bar.
func (h Header) View() string {
	brand := h.theme.HeaderTitle.Render("Clarity")
	title := h.theme.HeaderSubtitle.Render(h.Title)
	left := brand + "  " + title

	right := h.theme.HeaderSubtitle.Render("not signed in")
	if h.UserName != "" {
		right = h.theme.HeaderSubtitle.Render(h.UserName)
	}

	gap := h.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return h.theme.Header.Width(h.width).Render(left + strings.Repeat(" ", gap) + right)
}
