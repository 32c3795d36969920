// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/clarity-hq/clarity-tui/internal/api"
	"github.com/clarity-hq/clarity-tui/internal/authcache"
	"github.com/clarity-hq/clarity-tui/internal/model"
	"github.com/clarity-hq/clarity-tui/internal/ui/styles"
)

// fakeBackend scripts profile and logout replies.
type fakeBackend struct {
	resp *api.AuthResponse
	err  error

	updatedName string
	loggedOut   bool
}

func (f *fakeBackend) UpdateProfile(_ context.Context, name, _ string) (*api.AuthResponse, error) {
	f.updatedName = name
	return f.resp, f.err
}

func (f *fakeBackend) Logout(context.Context) (*api.AuthResponse, error) {
	f.loggedOut = true
	return f.resp, f.err
}

func newTestPage(t *testing.T, backend Backend) (Model, *authcache.Cache) {
	t.Helper()
	cache := authcache.New(filepath.Join(t.TempDir(), "authdata.json"))
	return New(styles.NewTheme(), backend, cache), cache
}

func TestNextRole_CyclesInDisplayOrder(t *testing.T) {
	seen := map[model.Role]bool{}
	r := model.AllRoles[0]
	for range model.AllRoles {
		seen[r] = true
		r = nextRole(r)
	}
	if r != model.AllRoles[0] {
		t.Fatalf("cycle did not wrap: ended on %q", r)
	}
	if len(seen) != len(model.AllRoles) {
		t.Fatalf("cycle visited %d of %d personas", len(seen), len(model.AllRoles))
	}
}

func TestNextRole_UnknownFallsBackToDefault(t *testing.T) {
	if got := nextRole(model.Role("nobody")); got != model.DefaultRole {
		t.Fatalf("nextRole(unknown) = %q, want %q", got, model.DefaultRole)
	}
}

func TestSubmitName_NameUpdatedRewritesCredential(t *testing.T) {
	backend := &fakeBackend{resp: &api.AuthResponse{
		Message:     api.StatusNameUpdated,
		DisplayName: "Ada Lovelace",
	}}
	m, cache := newTestPage(t, backend)
	if err := cache.Store(authcache.Credential{
		Token:       "tok",
		UserID:      "u1",
		Email:       "ada@example.com",
		DisplayName: "Ada",
	}); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	m, cmd := m.submitName("Ada Lovelace")
	if cmd == nil {
		t.Fatal("submitName returned no command")
	}
	res, ok := cmd().(profileResultMsg)
	if !ok {
		t.Fatalf("command result is %T, want profileResultMsg", cmd())
	}
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Name != "Ada Lovelace" {
		t.Fatalf("result name = %q", res.Name)
	}
	if backend.updatedName != "Ada Lovelace" {
		t.Fatalf("backend saw name %q", backend.updatedName)
	}
	if got := cache.Load().DisplayName; got != "Ada Lovelace" {
		t.Fatalf("cached display name = %q, want the updated one", got)
	}
}

func TestSubmitName_EmptyReplyNameFallsBackToInput(t *testing.T) {
	backend := &fakeBackend{resp: &api.AuthResponse{Message: api.StatusNameUpdated}}
	m, cache := newTestPage(t, backend)
	if err := cache.Store(authcache.Credential{Token: "tok", UserID: "u1", DisplayName: "Old"}); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	_, cmd := m.submitName("New Name")
	res := cmd().(profileResultMsg)
	if res.Name != "New Name" {
		t.Fatalf("result name = %q, want the submitted name", res.Name)
	}
	if got := cache.Load().DisplayName; got != "New Name" {
		t.Fatalf("cached display name = %q", got)
	}
}

func TestSubmitName_BackendErrorLeavesCredentialAlone(t *testing.T) {
	backend := &fakeBackend{err: errors.New("boom")}
	m, cache := newTestPage(t, backend)
	if err := cache.Store(authcache.Credential{Token: "tok", UserID: "u1", DisplayName: "Ada"}); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	_, cmd := m.submitName("Grace")
	res := cmd().(profileResultMsg)
	if res.Err == nil {
		t.Fatal("expected an error result")
	}
	if got := cache.Load().DisplayName; got != "Ada" {
		t.Fatalf("cached display name changed to %q on failure", got)
	}
}

func TestLogout_ClearsCredentialAndEmitsResult(t *testing.T) {
	backend := &fakeBackend{resp: &api.AuthResponse{Message: api.StatusLoggedOut}}
	m, cache := newTestPage(t, backend)
	if err := cache.Store(authcache.Credential{Token: "tok", UserID: "u1"}); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	m.selected = itemLogout
	m, cmd := m.activate()
	if cmd == nil {
		t.Fatal("logout produced no command")
	}
	res, ok := cmd().(logoutResultMsg)
	if !ok {
		t.Fatalf("command result is %T, want logoutResultMsg", cmd())
	}
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if !backend.loggedOut {
		t.Fatal("backend logout never called")
	}
	if cache.Load().LoggedIn() {
		t.Fatal("credential survived logout")
	}
}

func TestActivate_PassphraseRequiresSignIn(t *testing.T) {
	m, _ := newTestPage(t, &fakeBackend{})
	m.selected = itemPassphrase
	m, _ = m.activate()
	if m.editingPass {
		t.Fatal("passphrase edit opened while signed out")
	}
	if m.statusMsg == "" {
		t.Fatal("expected a status hint while signed out")
	}
}

func TestProtectCredential_MarksRecordProtected(t *testing.T) {
	m, cache := newTestPage(t, &fakeBackend{})
	if err := cache.Store(authcache.Credential{Token: "tok", UserID: "u1"}); err != nil {
		t.Fatalf("seed credential: %v", err)
	}

	m, _ = m.protectCredential("hunter2")
	if !cache.IsProtected() {
		t.Fatal("record not protected after protectCredential")
	}
	got, err := cache.LoadProtected("hunter2")
	if err != nil {
		t.Fatalf("LoadProtected: %v", err)
	}
	if got.Token != "tok" {
		t.Fatalf("protected round-trip token = %q", got.Token)
	}
}
