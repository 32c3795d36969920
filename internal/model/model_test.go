// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
)

// =============================================================================
// EXCHANGE PAIRING TESTS
// =============================================================================

func TestPairExchanges(t *testing.T) {
	messages := []ChatMessage{
		NewBotMessage("welcome", nil, nil), // greeting, not part of any exchange
		NewUserMessage("first question"),
		NewBotMessage("first answer", nil, nil),
		NewUserMessage("second question"), // reply never arrived
		NewUserMessage("third question"),
		NewBotMessage("third answer", nil, nil),
	}

	pairs := PairExchanges(messages)
	if len(pairs) != 3 {
		t.Fatalf("got %d pairs, want 3", len(pairs))
	}
	if pairs[0].UserText != "first question" || pairs[0].BotText != "first answer" {
		t.Errorf("pair 0 = %+v", pairs[0])
	}
	if pairs[1].UserText != "second question" || pairs[1].BotText != "" {
		t.Errorf("pair 1 should have empty bot text, got %+v", pairs[1])
	}
	if pairs[2].UserText != "third question" || pairs[2].BotText != "third answer" {
		t.Errorf("pair 2 = %+v", pairs[2])
	}
}

func TestLastExchanges_SlidingWindow(t *testing.T) {
	var messages []ChatMessage
	for i := 0; i < 20; i++ {
		messages = append(messages, NewUserMessage("question "+string(rune('a'+i))))
		messages = append(messages, NewBotMessage("answer "+string(rune('a'+i)), nil, nil))
	}

	pairs := LastExchanges(messages, 8)
	if len(pairs) != 8 {
		t.Fatalf("got %d pairs, want 8", len(pairs))
	}
	// Window must be the most recent 8, in order.
	if pairs[0].UserText != "question m" {
		t.Errorf("window start = %q, want %q", pairs[0].UserText, "question m")
	}
	if pairs[7].UserText != "question t" {
		t.Errorf("window end = %q, want %q", pairs[7].UserText, "question t")
	}
}

func TestLastExchanges_EmptyTranscript(t *testing.T) {
	pairs := LastExchanges(nil, 8)
	if pairs == nil {
		t.Fatal("want non-nil empty slice for JSON serialization")
	}
	if len(pairs) != 0 {
		t.Errorf("got %d pairs, want 0", len(pairs))
	}
}

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want Role
	}{
		{"friend", RoleFriend},
		{"Mentor", RoleMentor},
		{"college buddy", RoleBuddy},
		{"College-Buddy", RoleBuddy},
		{"buddy", RoleBuddy},
		{"", DefaultRole},
		{"sensei", DefaultRole},
	}
	for _, tt := range tests {
		if got := ParseRole(tt.in); got != tt.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRoleIntro_EveryRoleHasOne(t *testing.T) {
	for _, r := range AllRoles {
		if r.Intro() == "" {
			t.Errorf("role %q has no intro", r)
		}
	}
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestNewSession_HasUUID(t *testing.T) {
	s := NewSession(RoleMentor, "hello", false)
	if s.ID == "" {
		t.Fatal("session has no ID")
	}
	if len(s.ID) != 36 {
		t.Errorf("ID %q is not a UUID string", s.ID)
	}
	if !s.New {
		t.Error("NewSession must be flagged new")
	}

	other := NewSession(RoleMentor, "hello", false)
	if other.ID == s.ID {
		t.Error("two sessions share an ID")
	}
}

func TestSession_AppendOrdering(t *testing.T) {
	s := ResumeSession("abc", RoleFriend, nil)
	for i := 0; i < 5; i++ {
		s.Append(NewUserMessage(string(rune('a' + i))))
	}
	for i, msg := range s.Messages {
		if msg.Text != string(rune('a'+i)) {
			t.Errorf("message %d = %q, out of order", i, msg.Text)
		}
	}
}

func TestSession_Title(t *testing.T) {
	s := ResumeSession("abc", RoleBuddy, nil)
	if s.Title() != "College Buddy session" {
		t.Errorf("empty session title = %q", s.Title())
	}

	s.Append(NewBotMessage("greeting", nil, nil))
	s.Append(NewUserMessage("how do I pass my exams"))
	if s.Title() != "how do I pass my exams" {
		t.Errorf("title = %q", s.Title())
	}
}

func TestGroupPlansBySession(t *testing.T) {
	plans := []Plan{
		{PlanID: "p1", SessionID: "s1"},
		{PlanID: "p2", SessionID: "s2"},
		{PlanID: "p3", SessionID: "s1"},
	}
	groups := GroupPlansBySession(plans)
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if groups[0].SessionID != "s1" || len(groups[0].Plans) != 2 {
		t.Errorf("group 0 = %+v", groups[0])
	}
	if groups[1].SessionID != "s2" || len(groups[1].Plans) != 1 {
		t.Errorf("group 1 = %+v", groups[1])
	}
}
