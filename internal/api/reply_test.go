// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"testing"

	"github.com/clarity-hq/clarity-tui/internal/model"
)

func TestParseReply_HistoryList(t *testing.T) {
	raw := []byte(`{
		"status": true,
		"message": "HistoryList",
		"sessionId": "s-42",
		"historymessages": [
			{"userMessage": {"content": "plan my week"},
			 "aiResponse": {"content": "Here is a plan.",
				"tasks": [{"title": "Revise notes", "duration": "1h"}],
				"resources": [{"title": "Study guide", "url": "https://example.com/g"}]}},
			{"userMessage": {"content": "thanks"}}
		]
	}`)

	reply, err := ParseReply(raw)
	if err != nil {
		t.Fatalf("ParseReply failed: %v", err)
	}
	if reply.Kind != ReplyHistory {
		t.Fatalf("Kind = %v, want history", reply.Kind)
	}
	if reply.SessionID != "s-42" {
		t.Errorf("SessionID = %q, want s-42", reply.SessionID)
	}

	// First exchange flattens to user+bot, second has no bot reply.
	if len(reply.Messages) != 3 {
		t.Fatalf("got %d messages, want 3", len(reply.Messages))
	}
	if reply.Messages[0].Sender != model.SenderUser || reply.Messages[0].Text != "plan my week" {
		t.Errorf("messages[0] = %+v", reply.Messages[0])
	}
	if reply.Messages[1].Sender != model.SenderBot || len(reply.Messages[1].Tasks) != 1 {
		t.Errorf("messages[1] = %+v", reply.Messages[1])
	}
	if reply.Messages[2].Sender != model.SenderUser || reply.Messages[2].Text != "thanks" {
		t.Errorf("messages[2] = %+v", reply.Messages[2])
	}
}

func TestParseReply_MessagesArray(t *testing.T) {
	raw := []byte(`{"messages": [
		{"userMessage": {"content": "hi"}, "aiResponse": {"content": "hello"}}
	]}`)

	reply, err := ParseReply(raw)
	if err != nil {
		t.Fatalf("ParseReply failed: %v", err)
	}
	if reply.Kind != ReplyMessages {
		t.Fatalf("Kind = %v, want messages", reply.Kind)
	}
	if len(reply.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(reply.Messages))
	}
}

func TestParseReply_SingleAnswer(t *testing.T) {
	raw := []byte(`{"answer": "Here you go.", "tasks": [{"title": "Task A"}], "resources": []}`)

	reply, err := ParseReply(raw)
	if err != nil {
		t.Fatalf("ParseReply failed: %v", err)
	}
	if reply.Kind != ReplyAnswer {
		t.Fatalf("Kind = %v, want answer", reply.Kind)
	}
	if reply.Answer.Text != "Here you go." {
		t.Errorf("Answer.Text = %q", reply.Answer.Text)
	}
	if len(reply.Answer.Tasks) != 1 || reply.Answer.Tasks[0].Title != "Task A" {
		t.Errorf("Answer.Tasks = %+v", reply.Answer.Tasks)
	}
	if reply.Answer.Resources == nil {
		t.Error("Answer.Resources = nil, want empty slice")
	}
}

func TestParseReply_HistoryListWithoutSessionFallsThrough(t *testing.T) {
	// A HistoryList header without a session id is not a history reply.
	raw := []byte(`{"status": true, "message": "HistoryList", "historymessages": []}`)

	reply, err := ParseReply(raw)
	if err != nil {
		t.Fatalf("ParseReply failed: %v", err)
	}
	if reply.Kind != ReplyNone {
		t.Errorf("Kind = %v, want none", reply.Kind)
	}
}

func TestParseReply_UnknownShape(t *testing.T) {
	reply, err := ParseReply([]byte(`{"status": true, "message": "Accepted"}`))
	if err != nil {
		t.Fatalf("ParseReply failed: %v", err)
	}
	if reply.Kind != ReplyNone {
		t.Errorf("Kind = %v, want none", reply.Kind)
	}
}

func TestParseReply_Empty(t *testing.T) {
	reply, err := ParseReply(nil)
	if err != nil {
		t.Fatalf("ParseReply failed: %v", err)
	}
	if reply.Kind != ReplyNone {
		t.Errorf("Kind = %v, want none", reply.Kind)
	}
}

func TestParseReply_Garbage(t *testing.T) {
	if _, err := ParseReply([]byte(`not json`)); err == nil {
		t.Error("expected error for unparseable reply")
	}
}

func TestParseReply_EmptyMessagesArrayIsMessagesKind(t *testing.T) {
	reply, err := ParseReply([]byte(`{"messages": []}`))
	if err != nil {
		t.Fatalf("ParseReply failed: %v", err)
	}
	if reply.Kind != ReplyMessages {
		t.Errorf("Kind = %v, want messages for present-but-empty array", reply.Kind)
	}
	if len(reply.Messages) != 0 {
		t.Errorf("got %d messages, want 0", len(reply.Messages))
	}
}
