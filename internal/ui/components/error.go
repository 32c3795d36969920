// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"errors"
	"sort"

	"github.com/clarity-hq/clarity-tui/internal/api"
	"github.com/clarity-hq/clarity-tui/internal/ui/styles"
)

// ErrorBanner renders a backend failure as a bordered box with a title, the
// message, and per-field validation details when present.
type ErrorBanner struct {
	theme *styles.Theme

	Title   string
	Message string
	Fields  map[string]string
	width   int
}

// NewErrorBanner builds a banner from any error, unpacking RequestError
// details when available.
func NewErrorBanner(theme *styles.Theme, err error) ErrorBanner {
	banner := ErrorBanner{theme: theme, Title: "Error"}
	if err == nil {
		return banner
	}

	var reqErr *api.RequestError
	switch {
	case errors.As(err, &reqErr):
		banner.Message = reqErr.Message
		banner.Fields = reqErr.Fields
		switch {
		case reqErr.Status == 0:
			banner.Title = "Connection failed"
		case reqErr.IsValidation():
			banner.Title = "Check your input"
		case reqErr.IsServerFault():
			banner.Title = "Server error"
		}
	case errors.Is(err, api.ErrRateLimited):
		banner.Title = "Slow down"
		banner.Message = "You are sending messages too quickly."
	default:
		banner.Message = err.Error()
	}
	return banner
}

// SetWidth sets the render width.
func (b *ErrorBanner) SetWidth(width int) {
	b.width = width
}

// View renders the banner; empty when there is nothing to show.
func (b ErrorBanner) View() string {
	if b.Message == "" && len(b.Fields) == 0 {
		return ""
	}

	content := b.theme.ErrorTitle.Render(b.Title)
	if b.Message != "" {
		content += "\n" + b.theme.ErrorMessage.Render(b.Message)
	}

	keys := make([]string, 0, len(b.Fields))
	for k := range b.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		content += "\n" + b.theme.FieldError.Render("  "+k+": "+b.Fields[k])
	}

	box := b.theme.ErrorBox
	if b.width > 0 {
		box = box.MaxWidth(b.width)
	}
	return box.Render(content)
}
