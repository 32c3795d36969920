// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/clarity-hq/clarity-tui/internal/model"
	"github.com/clarity-hq/clarity-tui/internal/ui/components"
)

// =============================================================================
// TRANSCRIPT RENDERING
// =============================================================================

// refreshTranscript re-renders the conversation into the viewport and scrolls
// to the latest message.
func (m *Model) refreshTranscript() {
	transcript := m.ctrl.Transcript()
	if len(transcript) == 0 {
		m.viewport.SetContent(m.theme.ThinkingText.Render("Start the conversation below."))
		return
	}

	var b strings.Builder
	for i, msg := range transcript {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

// renderMessage renders one transcript turn as a labeled bubble. User turns
// are right-aligned, bot turns left-aligned with plans attached below.
func (m *Model) renderMessage(msg model.ChatMessage) string {
	width := contentWidth(m.width)

	if msg.IsUser() {
		bubble := m.theme.UserBubble.MaxWidth(width).Render(msg.Text)
		block := m.theme.SenderLabel.Render("You") + "\n" + bubble
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Right, block)
	}

	body := m.renderBotText(msg.Text, width)
	if msg.HasPlans() {
		var extras []string
		if tasks := components.RenderTasks(m.theme, msg.Tasks, width); tasks != "" {
			extras = append(extras, tasks)
		}
		if resources := components.RenderResources(m.theme, msg.Resources, width); resources != "" {
			extras = append(extras, resources)
		}
		if len(extras) > 0 {
			body += "\n\n" + strings.Join(extras, "\n\n")
		}
	}

	bubble := m.theme.BotBubble.MaxWidth(width).Render(body)
	label := m.theme.SenderLabel.Render(m.ctrl.ActiveRole().DisplayName())
	return label + "\n" + bubble
}

// renderBotText formats a bot message body. Markdown rendering goes through
// glamour when enabled; otherwise fenced code blocks are highlighted in place
// and the rest passes through verbatim.
func (m *Model) renderBotText(text string, width int) string {
	if m.markdown && m.renderer != nil {
		if out, err := m.renderer.Render(text); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return components.ParseCodeBlocks(text, width)
}

// =============================================================================
// PAGE VIEW
// =============================================================================

// View renders the chat page.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.header.View())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")

	if m.typing.Active() {
		b.WriteString(m.typing.View())
	}
	b.WriteString("\n")

	b.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.statusBarView())

	return b.String()
}

// statusBarView renders shortcut hints plus any transient status message.
func (m Model) statusBarView() string {
	hints := []struct {
		key  string
		desc string
	}{
		{"enter", "send"},
		{"ctrl+y", "copy"},
		{"pgup/pgdn", "scroll"},
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
