// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clarity-hq/clarity-tui/internal/model"
)

// staticToken is a fixed-token source for tests.
type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(serverURL string) *Client {
	return NewClient(serverURL).WithSendsPerMinute(0)
}

// =============================================================================
// HEADER AND AUTH TESTS
// =============================================================================

func TestSendChat_AttachesBearerToken(t *testing.T) {
	var gotAuth, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		w.Write([]byte(`{"answer": "hi"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL).WithTokenSource(staticToken("tok-1"))
	_, err := client.SendChat(context.Background(), model.RoleFriend, ChatPayload{Message: "hello"})
	if err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok-1")
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
}

func TestSendChat_NoTokenSendsNoHeader(t *testing.T) {
	var gotAuth string
	var hadAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, hadAuth = r.Header["Authorization"]
		w.Write([]byte(`{"answer": "hi"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL).WithTokenSource(staticToken(""))
	if _, err := client.SendChat(context.Background(), model.RoleFriend, ChatPayload{Message: "hello"}); err != nil {
		t.Fatalf("SendChat failed: %v", err)
	}
	if hadAuth {
		t.Errorf("Authorization header sent without token: %q", gotAuth)
	}
}

func TestChatEndpoint_PerRole(t *testing.T) {
	tests := []struct {
		role model.Role
		want string
	}{
		{model.RoleFriend, "/api/chat/friend"},
		{model.RoleMentor, "/api/chat/mentor"},
		{model.RoleBuddy, "/api/chat/college-buddy"},
		{model.Role("nonsense"), "/api/chat/friend"},
	}
	for _, tt := range tests {
		if got := ChatEndpoint(tt.role); got != tt.want {
			t.Errorf("ChatEndpoint(%q) = %q, want %q", tt.role, got, tt.want)
		}
	}
}

// =============================================================================
// CURRENT-CALL STATE TESTS
// =============================================================================

func TestReadResponse_CapBoundary(t *testing.T) {
	// A body exactly at the cap is complete and must be accepted.
	at := &http.Response{Body: io.NopCloser(bytes.NewReader(make([]byte, MaxResponseSize)))}
	data, err := readResponse(at)
	if err != nil {
		t.Fatalf("body at the cap rejected: %v", err)
	}
	if len(data) != MaxResponseSize {
		t.Fatalf("read %d bytes, want %d", len(data), MaxResponseSize)
	}

	over := &http.Response{Body: io.NopCloser(bytes.NewReader(make([]byte, MaxResponseSize+1)))}
	if _, err := readResponse(over); err == nil {
		t.Fatal("body over the cap was accepted")
	}
}

func TestCallState_ClearedAtStart(t *testing.T) {
	fail := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"message": "boom"}`))
			return
		}
		w.Write([]byte(`{"answer": "ok"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	if _, err := client.SendChat(context.Background(), model.RoleFriend, ChatPayload{}); err == nil {
		t.Fatal("expected error from failing call")
	}
	if client.LastStatus() != http.StatusInternalServerError {
		t.Errorf("LastStatus = %d, want 500", client.LastStatus())
	}
	if client.LastError() == nil {
		t.Error("LastError = nil after failure")
	}

	fail = false
	if _, err := client.SendChat(context.Background(), model.RoleFriend, ChatPayload{}); err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if client.LastStatus() != http.StatusOK {
		t.Errorf("LastStatus = %d, want 200 after success", client.LastStatus())
	}
	if client.LastError() != nil {
		t.Errorf("LastError = %v, want nil after success", client.LastError())
	}
}

// =============================================================================
// ERROR TAXONOMY TESTS
// =============================================================================

func TestDo_NetworkErrorHasStatusZero(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	_, err := client.SendChat(context.Background(), model.RoleFriend, ChatPayload{})
	if err == nil {
		t.Fatal("expected network error")
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error type = %T, want *RequestError", err)
	}
	if reqErr.Status != 0 {
		t.Errorf("Status = %d, want 0 for network error", reqErr.Status)
	}
	if !errors.Is(err, ErrUnreachable) {
		t.Error("errors.Is(err, ErrUnreachable) = false")
	}
}

func TestDo_ValidationErrorCarriesFieldMap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"message": "invalid input", "errors": {"email": "not an email"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Login(context.Background(), LoginRequest{Email: "nope"})
	if err == nil {
		t.Fatal("expected validation error")
	}

	var reqErr *RequestError
	if !errors.As(err, &reqErr) {
		t.Fatalf("error type = %T, want *RequestError", err)
	}
	if !reqErr.IsValidation() {
		t.Error("IsValidation() = false for 422")
	}
	if reqErr.Fields["email"] != "not an email" {
		t.Errorf("Fields[email] = %q, want %q", reqErr.Fields["email"], "not an email")
	}
}

func TestDo_UnauthorizedMapsToSentinel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "token expired"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.AddToCalendar(context.Background(), "plan-1", "")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("errors.Is(err, ErrUnauthorized) = false, err = %v", err)
	}
}

func TestSendChat_Throttled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"answer": "hi"}`))
	}))
	defer server.Close()

	// Burst of 5, then the throttle refuses.
	client := NewClient(server.URL).WithSendsPerMinute(1)
	var err error
	for i := 0; i < 10; i++ {
		_, err = client.SendChat(context.Background(), model.RoleFriend, ChatPayload{Message: "x"})
		if err != nil {
			break
		}
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited after burst, got %v", err)
	}
}

// =============================================================================
// ENDPOINT TESTS
// =============================================================================

func TestFetchDashboard(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != EndpointDashboard {
			t.Errorf("path = %q, want %q", r.URL.Path, EndpointDashboard)
		}
		w.Write([]byte(`{"status": true, "task_resources": [
			{"planId": "p1", "sessionId": "s1", "title": "Study plan"},
			{"planId": "p2", "sessionId": "s1", "title": "Reading list"}
		]}`))
	}))
	defer server.Close()

	plans, err := newTestClient(server.URL).FetchDashboard(context.Background())
	if err != nil {
		t.Fatalf("FetchDashboard failed: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("got %d plans, want 2", len(plans))
	}
	if plans[0].PlanID != "p1" || plans[1].SessionID != "s1" {
		t.Errorf("unexpected plans: %+v", plans)
	}
}

func TestFetchDashboard_EmptyIsNotNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": true}`))
	}))
	defer server.Close()

	plans, err := newTestClient(server.URL).FetchDashboard(context.Background())
	if err != nil {
		t.Fatalf("FetchDashboard failed: %v", err)
	}
	if plans == nil {
		t.Error("plans = nil, want empty slice")
	}
}

func TestLogin_AuthResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": true, "message": "LoggedIn", "accessToken": "tok-9",
			"user": {"id": "u1", "email": "ada@example.com", "displayName": "Ada"}}`))
	}))
	defer server.Close()

	resp, err := newTestClient(server.URL).Login(context.Background(), LoginRequest{Email: "ada@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if resp.Message != StatusLoggedIn {
		t.Errorf("Message = %q, want %q", resp.Message, StatusLoggedIn)
	}
	if !resp.LoggedIn() {
		t.Fatalf("LoggedIn() = false for %+v", resp)
	}
	if resp.AccessToken != "tok-9" || resp.User.ID != "u1" || resp.User.DisplayName != "Ada" {
		t.Errorf("unexpected auth response: %+v", resp)
	}
}

func TestSignup_CreatedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"status": true, "message": "Created"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Signup(context.Background(), SignupRequest{Name: "Ada", Email: "ada@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Signup failed: %v", err)
	}
	if resp.Message != StatusCreated {
		t.Errorf("Message = %q, want %q", resp.Message, StatusCreated)
	}
	if client.LastStatus() != http.StatusCreated {
		t.Errorf("LastStatus = %d, want 201", client.LastStatus())
	}
}

func TestSessionEndpoint_EscapesID(t *testing.T) {
	got := SessionEndpoint("a/b c")
	want := "/api/chat/a%2Fb%20c"
	if got != want {
		t.Errorf("SessionEndpoint = %q, want %q", got, want)
	}
}
