// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components shared by every page. It detects the
// terminal's color capability once at startup.
type Theme struct {
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	Width  int
	Height int

	// Application container
	App lipgloss.Style

	// Header
	Header         lipgloss.Style
	HeaderTitle    lipgloss.Style
	HeaderSubtitle lipgloss.Style

	// Message bubbles
	UserBubble  lipgloss.Style
	BotBubble   lipgloss.Style
	SenderLabel lipgloss.Style
	Timestamp   lipgloss.Style

	// Input area
	InputContainer   lipgloss.Style
	InputPrompt      lipgloss.Style
	InputPlaceholder lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style

	// Loading
	Spinner      lipgloss.Style
	ThinkingText lipgloss.Style

	// Errors
	ErrorBox     lipgloss.Style
	ErrorTitle   lipgloss.Style
	ErrorMessage lipgloss.Style

	// Lists (sessions, plans, roles)
	ListItem         lipgloss.Style
	ListItemSelected lipgloss.Style
	ListTitle        lipgloss.Style
	ListMeta         lipgloss.Style

	// Plans
	TaskDone    lipgloss.Style
	TaskPending lipgloss.Style
	Resource    lipgloss.Style

	// Overlays (auth dialog)
	OverlayBox   lipgloss.Style
	OverlayTitle lipgloss.Style
	FieldLabel   lipgloss.Style
	FieldError   lipgloss.Style
}

// NewTheme detects terminal capabilities and builds the style set.
func NewTheme() *Theme {
	profile := termenv.ColorProfile()
	t := &Theme{
		IsDark:       termenv.HasDarkBackground(),
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

// SetSize records the terminal dimensions for layout decisions.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

func (t *Theme) initStyles() {
	t.App = lipgloss.NewStyle().Foreground(TextPrimary)

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Overlay)
	t.HeaderTitle = lipgloss.NewStyle().Foreground(Sky).Bold(true)
	t.HeaderSubtitle = lipgloss.NewStyle().Foreground(TextSecondary)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1)
	t.BotBubble = lipgloss.NewStyle().
		Foreground(BotBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(BotBubbleBorder).
		Padding(0, 1)
	t.SenderLabel = lipgloss.NewStyle().Foreground(TextSecondary).Bold(true)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.InputPrompt = lipgloss.NewStyle().Foreground(Sky).Bold(true)
	t.InputPlaceholder = lipgloss.NewStyle().Foreground(TextMuted)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)
	t.ShortcutKey = lipgloss.NewStyle().Foreground(Sky).Bold(true)
	t.ShortcutDesc = lipgloss.NewStyle().Foreground(TextMuted)

	t.Spinner = lipgloss.NewStyle().Foreground(Indigo)
	t.ThinkingText = lipgloss.NewStyle().Foreground(TextSecondary).Italic(true)

	t.ErrorBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Rose).
		Padding(0, 1)
	t.ErrorTitle = lipgloss.NewStyle().Foreground(Rose).Bold(true)
	t.ErrorMessage = lipgloss.NewStyle().Foreground(TextPrimary)

	t.ListItem = lipgloss.NewStyle().Foreground(TextPrimary).Padding(0, 1)
	t.ListItemSelected = lipgloss.NewStyle().
		Foreground(TextInverse).
		Background(Indigo).
		Bold(true).
		Padding(0, 1)
	t.ListTitle = lipgloss.NewStyle().Foreground(TextPrimary).Bold(true)
	t.ListMeta = lipgloss.NewStyle().Foreground(TextMuted)

	t.TaskDone = lipgloss.NewStyle().Foreground(Emerald)
	t.TaskPending = lipgloss.NewStyle().Foreground(Amber)
	t.Resource = lipgloss.NewStyle().Foreground(LinkColor).Underline(true)

	t.OverlayBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(Indigo).
		Padding(1, 2)
	t.OverlayTitle = lipgloss.NewStyle().Foreground(Indigo).Bold(true)
	t.FieldLabel = lipgloss.NewStyle().Foreground(TextSecondary)
	t.FieldError = lipgloss.NewStyle().Foreground(Rose)
}
