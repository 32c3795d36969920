// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"fmt"

	"github.com/clarity-hq/clarity-tui/internal/model"
)

// ===== REPLY ADAPTER =====
//
// The backend answers chat and history requests in three shapes:
//
//  1. a history list: {status, message: "HistoryList", sessionId,
//     historymessages: [...exchanges]}
//  2. a generic transcript: {messages: [...exchanges]}
//  3. a single answer: {answer, tasks, resources}
//
// Everything downstream works with one tagged union, normalized here, so the
// session controller never branches on raw JSON.

// ReplyKind discriminates the normalized reply union.
type ReplyKind int

const (
	// ReplyNone is a reply carrying no transcript data.
	ReplyNone ReplyKind = iota

	// ReplyHistory is a full transcript for a named session.
	ReplyHistory

	// ReplyMessages is a full transcript with no session attribution.
	ReplyMessages

	// ReplyAnswer is a single bot turn to append.
	ReplyAnswer
)

// String returns the kind name for logs.
func (k ReplyKind) String() string {
	switch k {
	case ReplyHistory:
		return "history"
	case ReplyMessages:
		return "messages"
	case ReplyAnswer:
		return "answer"
	default:
		return "none"
	}
}

// Reply is the normalized backend reply.
type Reply struct {
	Kind ReplyKind

	// SessionID is set only for ReplyHistory, naming the session the
	// transcript belongs to.
	SessionID string

	// Messages is the flattened transcript (ReplyHistory, ReplyMessages).
	Messages []model.ChatMessage

	// Answer is the single bot turn (ReplyAnswer).
	Answer model.ChatMessage
}

// =============================================================================
// WIRE SHAPES
// =============================================================================

// wireExchange is one stored exchange: the user's turn plus the bot's reply.
// The bot side may be absent when the backend stored an unanswered turn.
type wireExchange struct {
	UserMessage *struct {
		Content string `json:"content"`
	} `json:"userMessage"`
	AIResponse *struct {
		Content   string           `json:"content"`
		Tasks     []model.Task     `json:"tasks"`
		Resources []model.Resource `json:"resources"`
	} `json:"aiResponse"`
}

// replyEnvelope can hold any of the three backend shapes.
type replyEnvelope struct {
	Status          bool             `json:"status"`
	Message         string           `json:"message"`
	SessionID       string           `json:"sessionId"`
	HistoryMessages []wireExchange   `json:"historymessages"`
	Messages        []wireExchange   `json:"messages"`
	Answer          string           `json:"answer"`
	Tasks           []model.Task     `json:"tasks"`
	Resources       []model.Resource `json:"resources"`
}

// =============================================================================
// PARSING
// =============================================================================

// ParseReply normalizes a raw backend reply. Shape detection follows the
// same precedence the backend's own clients use: an explicit HistoryList
// header wins, then a messages array, then a bare answer. A reply matching
// none of the shapes is ReplyNone, not an error.
func ParseReply(raw []byte) (*Reply, error) {
	if len(raw) == 0 {
		return &Reply{Kind: ReplyNone}, nil
	}

	var env replyEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("unparseable reply: %w", err)
	}

	switch {
	case env.Status && env.Message == "HistoryList" && env.SessionID != "":
		return &Reply{
			Kind:      ReplyHistory,
			SessionID: env.SessionID,
			Messages:  flattenExchanges(env.HistoryMessages),
		}, nil

	case env.Messages != nil:
		return &Reply{
			Kind:     ReplyMessages,
			Messages: flattenExchanges(env.Messages),
		}, nil

	case env.Answer != "":
		return &Reply{
			Kind:   ReplyAnswer,
			Answer: model.NewBotMessage(env.Answer, env.Tasks, env.Resources),
		}, nil

	default:
		return &Reply{Kind: ReplyNone}, nil
	}
}

// flattenExchanges turns stored exchanges into an ordered transcript. Each
// exchange yields a user message followed by a bot message; exchanges with
// no bot reply yield only the user side. Absent user content flattens to an
// empty user message so ordering is preserved.
func flattenExchanges(exchanges []wireExchange) []model.ChatMessage {
	messages := make([]model.ChatMessage, 0, len(exchanges)*2)
	for _, ex := range exchanges {
		userText := ""
		if ex.UserMessage != nil {
			userText = ex.UserMessage.Content
		}
		messages = append(messages, model.NewUserMessage(userText))

		if ex.AIResponse != nil {
			messages = append(messages, model.NewBotMessage(
				ex.AIResponse.Content,
				ex.AIResponse.Tasks,
				ex.AIResponse.Resources,
			))
		}
	}
	return messages
}
