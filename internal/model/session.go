// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/clarity-hq/clarity-tui/internal/util"
)

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session is one conversation thread. A session is identified solely by its
// UUID and bound to one persona for its lifetime.
type Session struct {
	ID        string        `json:"session_id"`
	Role      Role          `json:"role"`
	Messages  []ChatMessage `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`

	// New marks a session created locally this run: it has an optional
	// opening message to deliver and no server-side history to fetch.
	New bool `json:"-"`

	// InitialMessage is the opening user turn for a new session. Empty for
	// persona-pick sessions.
	InitialMessage string `json:"-"`

	// SkipAPI marks the persona-pick shortcut: the session opens with a
	// synthesised greeting and no network call.
	SkipAPI bool `json:"-"`
}

// NewSession creates a new session for a persona with a fresh UUID.
func NewSession(role Role, initialMessage string, skipAPI bool) *Session {
	now := time.Now()
	return &Session{
		ID:             uuid.NewString(),
		Role:           role,
		Messages:       []ChatMessage{},
		CreatedAt:      now,
		UpdatedAt:      now,
		New:            true,
		InitialMessage: initialMessage,
		SkipAPI:        skipAPI,
	}
}

// ResumeSession builds a session handle for an existing server-side session.
// The transcript starts empty (or with a pre-supplied message list from
// navigation state) and history is fetched on first open.
func ResumeSession(id string, role Role, messages []ChatMessage) *Session {
	if messages == nil {
		messages = []ChatMessage{}
	}
	return &Session{
		ID:       id,
		Role:     role,
		Messages: messages,
	}
}

// Append adds a message to the transcript. Past messages are never edited.
func (s *Session) Append(msg ChatMessage) {
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
}

// Replace swaps in a reconciled transcript (history fetch result).
func (s *Session) Replace(messages []ChatMessage) {
	if messages == nil {
		messages = []ChatMessage{}
	}
	s.Messages = messages
	s.UpdatedAt = time.Now()
}

// MessageCount returns the number of messages in the transcript.
func (s *Session) MessageCount() int {
	return len(s.Messages)
}

// IsEmpty reports whether the transcript has no messages.
func (s *Session) IsEmpty() bool {
	return len(s.Messages) == 0
}

// LastMessage returns the most recent message, or a zero message if empty.
func (s *Session) LastMessage() (ChatMessage, bool) {
	if len(s.Messages) == 0 {
		return ChatMessage{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// LastBotMessage returns the most recent bot turn.
func (s *Session) LastBotMessage() (ChatMessage, bool) {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Sender == SenderBot {
			return s.Messages[i], true
		}
	}
	return ChatMessage{}, false
}

// Title returns a short label for session lists: the first user message,
// or the persona name for greeting-only sessions.
func (s *Session) Title() string {
	for _, msg := range s.Messages {
		if msg.Sender == SenderUser && msg.Text != "" {
			return util.Preview(msg.Text, 50)
		}
	}
	if s.InitialMessage != "" {
		return util.Preview(s.InitialMessage, 50)
	}
	return s.Role.DisplayName() + " session"
}

// =============================================================================
// SESSION METADATA
// =============================================================================

// SessionMeta is the lightweight listing shape for the sidebar and the
// `sessions` command.
type SessionMeta struct {
	ID           string    `json:"session_id"`
	Role         Role      `json:"role"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Meta returns listing metadata for the session.
func (s *Session) Meta() SessionMeta {
	return SessionMeta{
		ID:           s.ID,
		Role:         s.Role,
		Title:        s.Title(),
		MessageCount: len(s.Messages),
		UpdatedAt:    s.UpdatedAt,
	}
}
