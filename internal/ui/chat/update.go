// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clarity-hq/clarity-tui/internal/model"
)

// sendTimeout bounds one chat round trip from the page's side.
const sendTimeout = 90 * time.Second

// Update handles chat page messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Send):
			return m.handleSend()

		case key.Matches(msg, m.keyMap.Yank):
			m.yankLastAnswer()
			return m, nil

		case key.Matches(msg, m.keyMap.PageUp):
			m.viewport.HalfViewUp()
			return m, nil

		case key.Matches(msg, m.keyMap.PageDown):
			m.viewport.HalfViewDown()
			return m, nil
		}

	case ActivatedMsg:
		m.typing.Stop()
		m.state = StateReady
		m.refreshTranscript()
		return m, nil

	case ReplyMsg:
		m.ctrl.CompleteSend(msg.SessionID, msg.Reply, msg.Err)
		m.typing.Stop()
		m.state = StateReady
		m.refreshTranscript()
		return m, nil
	}

	var cmd tea.Cmd
	m.typing, cmd = m.typing.Update(msg)
	cmds = append(cmds, cmd)

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleSend dispatches the typed message as one chat turn.
func (m Model) handleSend() (Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" || m.state == StateWaiting {
		return m, nil
	}

	sessionID, role, payload, ok := m.ctrl.PrepareSend(text)
	if !ok {
		return m, nil
	}

	m.input.Reset()
	m.state = StateWaiting
	m.refreshTranscript()

	sendCmd := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		reply, err := m.ctrl.Sender().SendChat(ctx, role, payload)
		return ReplyMsg{SessionID: sessionID, Reply: reply, Err: err}
	}
	return m, tea.Batch(m.typing.Start(), sendCmd)
}

// activateCmd runs the session's at-entry behavior off the UI thread.
func (m Model) activateCmd() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
		defer cancel()
		return ActivatedMsg{Err: ctrl.Activate(ctx)}
	}
}

// yankLastAnswer copies the most recent bot message to the system clipboard.
func (m *Model) yankLastAnswer() {
	transcript := m.ctrl.Transcript()
	for i := len(transcript) - 1; i >= 0; i-- {
		if transcript[i].Sender == model.SenderBot {
			if err := clipboard.WriteAll(transcript[i].Text); err != nil {
				m.statusMsg = "copy failed"
			} else {
				m.statusMsg = "answer copied"
			}
			return
		}
	}
	m.statusMsg = "nothing to copy"
}
