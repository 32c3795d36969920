// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"github.com/clarity-hq/clarity-tui/internal/util"
)

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// DisplayName returns a human-readable label for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderBot:
		return "Clarity"
	default:
		return string(s)
	}
}

// =============================================================================
// TASK AND RESOURCE TYPES
// =============================================================================

// Task is a single actionable item attached to a bot reply.
type Task struct {
	Title    string `json:"title"`
	Details  string `json:"details,omitempty"`
	Duration string `json:"duration,omitempty"`
	Done     bool   `json:"done,omitempty"`
}

// Resource is a reference (link, book, course) attached to a bot reply.
type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

// =============================================================================
// CHAT MESSAGE TYPE
// =============================================================================

// ChatMessage is one turn in a conversation. Messages are immutable once
// appended: the transcript only ever grows, it is never edited in place.
// Insertion order is conversation order.
type ChatMessage struct {
	Sender    Sender     `json:"sender"`
	Text      string     `json:"text"`
	Tasks     []Task     `json:"tasks"`
	Resources []Resource `json:"resources"`
}

// NewUserMessage creates a user message. User turns never carry plans.
func NewUserMessage(text string) ChatMessage {
	return ChatMessage{Sender: SenderUser, Text: text, Tasks: []Task{}, Resources: []Resource{}}
}

// NewBotMessage creates a bot message with its attached plans.
func NewBotMessage(text string, tasks []Task, resources []Resource) ChatMessage {
	if tasks == nil {
		tasks = []Task{}
	}
	if resources == nil {
		resources = []Resource{}
	}
	return ChatMessage{Sender: SenderBot, Text: text, Tasks: tasks, Resources: resources}
}

// IsUser reports whether the message was sent by the user.
func (m ChatMessage) IsUser() bool {
	return m.Sender == SenderUser
}

// HasPlans reports whether the message carries any tasks or resources.
func (m ChatMessage) HasPlans() bool {
	return len(m.Tasks) > 0 || len(m.Resources) > 0
}

// Preview returns a single-line preview of the message text.
func (m ChatMessage) Preview(maxRunes int) string {
	return util.Preview(m.Text, maxRunes)
}

// =============================================================================
// EXCHANGE TYPE
// =============================================================================

// Exchange pairs a user turn with its bot reply, the unit the backend wants
// conversation history in. BotText is empty when the reply has not arrived.
type Exchange struct {
	UserText string `json:"user_message"`
	BotText  string `json:"bot_message"`
}

// PairExchanges walks a transcript and pairs each user turn with the bot turn
// that immediately follows it, if any. Bot turns without a preceding user
// turn (greetings, error banners) are not part of any exchange.
func PairExchanges(messages []ChatMessage) []Exchange {
	var pairs []Exchange
	for i, msg := range messages {
		if msg.Sender != SenderUser {
			continue
		}
		ex := Exchange{UserText: msg.Text}
		if i+1 < len(messages) && messages[i+1].Sender == SenderBot {
			ex.BotText = messages[i+1].Text
		}
		pairs = append(pairs, ex)
	}
	return pairs
}

// LastExchanges returns at most n of the most recent exchanges.
func LastExchanges(messages []ChatMessage, n int) []Exchange {
	pairs := PairExchanges(messages)
	if len(pairs) > n {
		pairs = pairs[len(pairs)-n:]
	}
	if pairs == nil {
		pairs = []Exchange{}
	}
	return pairs
}
