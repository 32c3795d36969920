// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/clarity-hq/clarity-tui/internal/api"
	"github.com/clarity-hq/clarity-tui/internal/model"
)

// fakeSender records calls and returns scripted replies.
type fakeSender struct {
	sendCalls    int
	fetchCalls   int
	lastPayload  api.ChatPayload
	lastRole     model.Role
	lastFetchID  string
	sendReply    *api.Reply
	sendErr      error
	fetchReply   *api.Reply
	fetchErr     error
	beforeSend   func() // runs before SendChat returns, to simulate races
}

func (f *fakeSender) SendChat(_ context.Context, role model.Role, payload api.ChatPayload) (*api.Reply, error) {
	f.sendCalls++
	f.lastRole = role
	f.lastPayload = payload
	if f.beforeSend != nil {
		f.beforeSend()
	}
	return f.sendReply, f.sendErr
}

func (f *fakeSender) FetchSession(_ context.Context, id string) (*api.Reply, error) {
	f.fetchCalls++
	f.lastFetchID = id
	return f.fetchReply, f.fetchErr
}

func answerReply(text string) *api.Reply {
	return &api.Reply{Kind: api.ReplyAnswer, Answer: model.NewBotMessage(text, nil, nil)}
}

// =============================================================================
// ACTIVATION TESTS
// =============================================================================

func TestActivate_SkipAPIShowsGreetingWithoutCall(t *testing.T) {
	sender := &fakeSender{}
	c := NewController(sender, "u1")
	c.StartSession(model.RoleMentor, "", true)

	if err := c.Activate(context.Background()); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if sender.sendCalls != 0 || sender.fetchCalls != 0 {
		t.Errorf("greeting path made network calls: send=%d fetch=%d", sender.sendCalls, sender.fetchCalls)
	}

	msgs := c.Transcript()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1 greeting", len(msgs))
	}
	if msgs[0].Sender != model.SenderBot || msgs[0].Text != model.RoleMentor.Intro() {
		t.Errorf("greeting = %+v", msgs[0])
	}
}

func TestActivate_InitialSendHappensOnce(t *testing.T) {
	sender := &fakeSender{sendReply: answerReply("welcome")}
	c := NewController(sender, "u1")
	c.StartSession(model.RoleFriend, "Hello", false)

	for i := 0; i < 3; i++ {
		if err := c.Activate(context.Background()); err != nil {
			t.Fatalf("Activate %d failed: %v", i, err)
		}
	}
	if sender.sendCalls != 1 {
		t.Errorf("sendCalls = %d, want exactly 1", sender.sendCalls)
	}

	msgs := c.Transcript()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want user+bot", len(msgs))
	}
	if msgs[0].Text != "Hello" || msgs[1].Text != "welcome" {
		t.Errorf("transcript = %+v", msgs)
	}
}

func TestActivate_NewSessionEmptyInitialMessageSendsNothing(t *testing.T) {
	sender := &fakeSender{}
	c := NewController(sender, "u1")
	c.StartSession(model.RoleFriend, "", false)

	if err := c.Activate(context.Background()); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if sender.sendCalls != 0 {
		t.Errorf("sendCalls = %d, want 0", sender.sendCalls)
	}
}

func TestActivate_ResumedSessionFetchesHistoryOnce(t *testing.T) {
	sender := &fakeSender{}
	c := NewController(sender, "u1")
	sess := c.Resume("s-1", model.RoleFriend, nil)
	sender.fetchReply = &api.Reply{
		Kind:      api.ReplyHistory,
		SessionID: sess.ID,
		Messages: []model.ChatMessage{
			model.NewUserMessage("old question"),
			model.NewBotMessage("old answer", nil, nil),
		},
	}

	for i := 0; i < 3; i++ {
		if err := c.Activate(context.Background()); err != nil {
			t.Fatalf("Activate %d failed: %v", i, err)
		}
	}
	if sender.fetchCalls != 1 {
		t.Errorf("fetchCalls = %d, want exactly 1", sender.fetchCalls)
	}
	if sender.lastFetchID != "s-1" {
		t.Errorf("fetched id = %q, want s-1", sender.lastFetchID)
	}
	if got := c.Transcript(); len(got) != 2 || got[0].Text != "old question" {
		t.Errorf("transcript = %+v", got)
	}
}

func TestActivate_ResumedWithTranscriptSkipsFetch(t *testing.T) {
	sender := &fakeSender{}
	c := NewController(sender, "u1")
	c.Resume("s-1", model.RoleFriend, []model.ChatMessage{model.NewUserMessage("hi")})

	if err := c.Activate(context.Background()); err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if sender.fetchCalls != 0 {
		t.Errorf("fetchCalls = %d, want 0 when transcript was adopted", sender.fetchCalls)
	}
}

func TestActivate_HistoryFetchFailureShowsSyntheticMessage(t *testing.T) {
	sender := &fakeSender{fetchErr: errors.New("network down")}
	c := NewController(sender, "u1")
	c.Resume("s-1", model.RoleFriend, nil)

	if err := c.Activate(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	msgs := c.Transcript()
	if len(msgs) != 1 || msgs[0].Sender != model.SenderBot {
		t.Fatalf("transcript = %+v", msgs)
	}
	if !strings.Contains(msgs[0].Text, "Failed to load chat history") {
		t.Errorf("synthetic text = %q", msgs[0].Text)
	}
	// The failed fetch is not retried on re-activation.
	if err := c.Activate(context.Background()); err != nil {
		t.Fatalf("second Activate failed: %v", err)
	}
	if sender.fetchCalls != 1 {
		t.Errorf("fetchCalls = %d, want 1", sender.fetchCalls)
	}
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSend_OptimisticAppendAndReply(t *testing.T) {
	sender := &fakeSender{sendReply: answerReply("sure")}
	c := NewController(sender, "u1")
	c.StartSession(model.RoleBuddy, "", true)

	if err := c.Send(context.Background(), "help me study"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if sender.lastRole != model.RoleBuddy {
		t.Errorf("sent role = %q, want college buddy", sender.lastRole)
	}

	msgs := c.Transcript()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Sender != model.SenderUser || msgs[0].Text != "help me study" {
		t.Errorf("user turn = %+v", msgs[0])
	}
	if msgs[1].Text != "sure" {
		t.Errorf("bot turn = %+v", msgs[1])
	}
}

func TestSend_FailureKeepsUserTurnAndAppendsError(t *testing.T) {
	sender := &fakeSender{sendErr: errors.New("connection refused")}
	c := NewController(sender, "u1")
	c.StartSession(model.RoleFriend, "", true)

	if err := c.Send(context.Background(), "are you there"); err == nil {
		t.Fatal("expected send error")
	}

	msgs := c.Transcript()
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want user turn + error", len(msgs))
	}
	if msgs[0].Text != "are you there" {
		t.Errorf("user turn lost: %+v", msgs[0])
	}
	if msgs[1].Sender != model.SenderBot || !strings.Contains(msgs[1].Text, "Unable to contact the server") {
		t.Errorf("error turn = %+v", msgs[1])
	}
}

func TestSend_PayloadShape(t *testing.T) {
	sender := &fakeSender{sendReply: answerReply("ok")}
	c := NewController(sender, "user-7")
	sess := c.StartSession(model.RoleFriend, "", true)

	// Build a long transcript: 20 exchanges.
	for i := 0; i < 20; i++ {
		sess.Append(model.NewUserMessage(fmt.Sprintf("q%d", i)))
		sess.Append(model.NewBotMessage(fmt.Sprintf("a%d", i), nil, nil))
	}

	if err := c.Send(context.Background(), "latest question"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	p := sender.lastPayload
	if p.Message != "latest question" {
		t.Errorf("Message = %q", p.Message)
	}
	if p.SessionID != sess.ID {
		t.Errorf("SessionID = %q, want %q", p.SessionID, sess.ID)
	}
	if p.UserID != "user-7" {
		t.Errorf("UserID = %q, want user-7", p.UserID)
	}
	if len(p.FullHistory) != HistoryWindow {
		t.Fatalf("FullHistory length = %d, want %d", len(p.FullHistory), HistoryWindow)
	}
	// The window holds the most recent exchanges and excludes the turn
	// being sent.
	if p.FullHistory[HistoryWindow-1].UserText != "q19" {
		t.Errorf("last exchange = %+v", p.FullHistory[HistoryWindow-1])
	}
	if p.FullHistory[0].UserText != "q12" {
		t.Errorf("first exchange = %+v", p.FullHistory[0])
	}
}

func TestSetUserID_AppliesToLaterSends(t *testing.T) {
	sender := &fakeSender{sendReply: answerReply("hi")}

	// Started signed out, the way the TUI does when no credential is cached.
	c := NewController(sender, "")
	c.StartSession(model.RoleFriend, "", true)

	// Overlay sign-in lands mid-run.
	c.SetUserID("user-3")
	if err := c.Send(context.Background(), "Hello"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if sender.lastPayload.UserID != "user-3" {
		t.Errorf("UserID = %q, want user-3", sender.lastPayload.UserID)
	}

	// Logout drops the identity again.
	c.SetUserID("")
	if err := c.Send(context.Background(), "Again"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if sender.lastPayload.UserID != "" {
		t.Errorf("UserID after logout = %q, want empty", sender.lastPayload.UserID)
	}
}

func TestSend_FirstTurnHasEmptyHistory(t *testing.T) {
	sender := &fakeSender{sendReply: answerReply("hi")}
	c := NewController(sender, "u1")
	c.StartSession(model.RoleMentor, "", false)

	if err := c.Send(context.Background(), "Hello"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	p := sender.lastPayload
	if p.FullHistory == nil {
		t.Fatal("FullHistory = nil, want empty slice")
	}
	if len(p.FullHistory) != 0 {
		t.Errorf("FullHistory = %+v, want empty for first turn", p.FullHistory)
	}
}

func TestSend_NormalizesText(t *testing.T) {
	sender := &fakeSender{sendReply: answerReply("ok")}
	c := NewController(sender, "u1")
	c.StartSession(model.RoleFriend, "", true)

	// "é" as e + combining acute accent should normalize to the composed form.
	if err := c.Send(context.Background(), "café"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if sender.lastPayload.Message != "café" {
		t.Errorf("Message = %q, want NFC-composed form", sender.lastPayload.Message)
	}
}

// =============================================================================
// SESSION-SWITCH SAFETY TESTS
// =============================================================================

func TestApply_DropsReplyForInactiveSession(t *testing.T) {
	sender := &fakeSender{}
	c := NewController(sender, "u1")
	first := c.StartSession(model.RoleFriend, "", true)

	// User switches sessions before the reply lands.
	c.StartSession(model.RoleMentor, "", true)

	applied := c.Apply(answerReply("stale"), first.ID)
	if applied {
		t.Error("Apply returned true for an inactive session's reply")
	}
	if got := c.Transcript(); len(got) != 0 {
		t.Errorf("transcript mutated by stale reply: %+v", got)
	}
}

func TestSend_ReplyAfterSwitchIsDiscarded(t *testing.T) {
	c := NewController(nil, "u1")
	sender := &fakeSender{sendReply: answerReply("late answer")}
	// Switch sessions while the request is in flight.
	sender.beforeSend = func() {
		c.StartSession(model.RoleMentor, "", true)
	}
	c.sender = sender

	c.StartSession(model.RoleFriend, "", true)
	if err := c.Send(context.Background(), "question"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// The new active session never sees the old reply.
	if got := c.Transcript(); len(got) != 0 {
		t.Errorf("new session transcript = %+v, want empty", got)
	}
}

func TestApply_HistoryReplyWithMismatchedSessionID(t *testing.T) {
	sender := &fakeSender{}
	c := NewController(sender, "u1")
	c.Resume("s-1", model.RoleFriend, nil)

	reply := &api.Reply{
		Kind:      api.ReplyHistory,
		SessionID: "s-other",
		Messages:  []model.ChatMessage{model.NewUserMessage("x")},
	}
	if c.Apply(reply, "s-1") {
		t.Error("Apply accepted history reply naming a different session")
	}
}

// =============================================================================
// STORE INTEGRATION TESTS
// =============================================================================

type recordingStore struct {
	puts int
	last *model.Session
}

func (r *recordingStore) Put(s *model.Session) error {
	r.puts++
	r.last = s
	return nil
}

func TestController_PersistsAfterApply(t *testing.T) {
	store := &recordingStore{}
	sender := &fakeSender{sendReply: answerReply("saved")}
	c := NewController(sender, "u1").WithStore(store)
	sess := c.StartSession(model.RoleFriend, "", true)

	if err := c.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if store.puts == 0 {
		t.Fatal("store never written")
	}
	if store.last.ID != sess.ID {
		t.Errorf("stored session id = %q, want %q", store.last.ID, sess.ID)
	}
	if len(store.last.Messages) != 2 {
		t.Errorf("stored %d messages, want 2", len(store.last.Messages))
	}
}
