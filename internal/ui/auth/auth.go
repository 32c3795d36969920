// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth provides the sign-in overlay: login and signup forms, the
// post-signup OTP step and a paste-token Google flow.
package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/clarity-hq/clarity-tui/internal/api"
	"github.com/clarity-hq/clarity-tui/internal/authcache"
	"github.com/clarity-hq/clarity-tui/internal/ui/styles"
)

const requestTimeout = 30 * time.Second

// emailPattern is the client-side shape check; the backend owns real
// validation.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// =============================================================================
// MESSAGES
// =============================================================================

// AuthenticatedMsg tells the root model a credential was issued and cached.
type AuthenticatedMsg struct {
	Cred authcache.Credential
}

// DismissMsg closes the overlay without signing in.
type DismissMsg struct{}

// authResultMsg delivers the outcome of any auth call.
type authResultMsg struct {
	Resp *api.AuthResponse
	Err  error
}

// =============================================================================
// BACKEND SURFACE
// =============================================================================

// Backend is the slice of the API client the overlay uses.
type Backend interface {
	Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResponse, error)
	Login(ctx context.Context, req api.LoginRequest) (*api.AuthResponse, error)
	VerifyOTP(ctx context.Context, req api.VerifyOTPRequest) (*api.AuthResponse, error)
	GoogleSignIn(ctx context.Context, req api.GoogleSignInRequest) (*api.AuthResponse, error)
}

// =============================================================================
// MODES AND FIELDS
// =============================================================================

// Mode is the overlay's active form.
type Mode int

const (
	ModeLogin Mode = iota
	ModeSignup
	ModeOTP
	ModeGoogle
)

func (m Mode) title() string {
	switch m {
	case ModeLogin:
		return "Log in"
	case ModeSignup:
		return "Sign up"
	case ModeOTP:
		return "Enter the code we emailed you"
	case ModeGoogle:
		return "Google sign-in"
	}
	return ""
}

// field names used for validation and server error mapping.
const (
	fieldName     = "name"
	fieldEmail    = "email"
	fieldPassword = "password"
	fieldConfirm  = "confirm"
	fieldOTP      = "otp"
	fieldToken    = "credential"
)

// =============================================================================
// KEY BINDINGS
// =============================================================================

// KeyMap holds the overlay key bindings.
type KeyMap struct {
	NextField  key.Binding
	PrevField  key.Binding
	Submit     key.Binding
	SwitchMode key.Binding
	Google     key.Binding
	Dismiss    key.Binding
}

// DefaultKeyMap returns the default overlay bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		NextField:  key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		PrevField:  key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		SwitchMode: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "login/signup")),
		Google:     key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "google")),
		Dismiss:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
	}
}

// =============================================================================
// AUTH OVERLAY MODEL
// =============================================================================

// formField is one labeled input with its validation error.
type formField struct {
	name  string
	label string
	input textinput.Model
	err   string
}

// Model is the Bubble Tea model for the auth overlay.
type Model struct {
	theme  *styles.Theme
	width  int
	height int

	backend   Backend
	cache     *authcache.Cache
	googleURL string

	mode    Mode
	fields  []formField
	focus   int
	keyMap  KeyMap
	busy    bool
	formErr string

	// signupEmail carries the address from the signup form into the OTP step.
	signupEmail string
}

// New creates the overlay in login mode. googleURL is the backend's Google
// auth page, shown in the paste-token flow.
func New(theme *styles.Theme, backend Backend, cache *authcache.Cache, googleURL string) Model {
	m := Model{
		theme:     theme,
		backend:   backend,
		cache:     cache,
		googleURL: googleURL,
		keyMap:    DefaultKeyMap(),
	}
	m.setMode(ModeLogin)
	return m
}

// SetSize lays the overlay out for the given terminal dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	for i := range m.fields {
		m.fields[i].input.Width = 40
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// setMode rebuilds the form for the given mode.
func (m *Model) setMode(mode Mode) {
	m.mode = mode
	m.focus = 0
	m.formErr = ""

	switch mode {
	case ModeLogin:
		m.fields = []formField{
			newField(fieldEmail, "Email", false),
			newField(fieldPassword, "Password", true),
		}
	case ModeSignup:
		m.fields = []formField{
			newField(fieldName, "Name", false),
			newField(fieldEmail, "Email", false),
			newField(fieldPassword, "Password", true),
			newField(fieldConfirm, "Confirm password", true),
		}
	case ModeOTP:
		otp := newField(fieldOTP, "6-digit code", false)
		otp.input.CharLimit = 6
		m.fields = []formField{otp}
	case ModeGoogle:
		m.fields = []formField{
			newField(fieldToken, "Google token", false),
		}
	}
	m.fields[0].input.Focus()
}

// newField builds one labeled input.
func newField(name, label string, secret bool) formField {
	input := textinput.New()
	input.Placeholder = label
	input.CharLimit = 200
	input.Width = 40
	if secret {
		input.EchoMode = textinput.EchoPassword
	}
	return formField{name: name, label: label, input: input}
}

// Update handles overlay messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keyMap.Dismiss):
			return m, func() tea.Msg { return DismissMsg{} }

		case key.Matches(msg, m.keyMap.SwitchMode):
			if m.mode == ModeLogin {
				m.setMode(ModeSignup)
			} else {
				m.setMode(ModeLogin)
			}
			return m, textinput.Blink

		case key.Matches(msg, m.keyMap.Google):
			m.setMode(ModeGoogle)
			return m, textinput.Blink

		case key.Matches(msg, m.keyMap.NextField):
			m.moveFocus(1)
			return m, nil

		case key.Matches(msg, m.keyMap.PrevField):
			m.moveFocus(-1)
			return m, nil

		case key.Matches(msg, m.keyMap.Submit):
			return m.submit()
		}

		var cmd tea.Cmd
		m.fields[m.focus].input, cmd = m.fields[m.focus].input.Update(msg)
		return m, cmd

	case authResultMsg:
		return m.handleResult(msg)
	}
	return m, nil
}

// moveFocus shifts field focus by delta, wrapping.
func (m *Model) moveFocus(delta int) {
	m.fields[m.focus].input.Blur()
	m.focus = (m.focus + delta + len(m.fields)) % len(m.fields)
	m.fields[m.focus].input.Focus()
}

// value returns the trimmed value of the named field.
func (m *Model) value(name string) string {
	for i := range m.fields {
		if m.fields[i].name == name {
			return strings.TrimSpace(m.fields[i].input.Value())
		}
	}
	return ""
}

// validate runs client-side checks and records per-field errors. It reports
// whether the form may be submitted.
func (m *Model) validate() bool {
	ok := true
	for i := range m.fields {
		f := &m.fields[i]
		f.err = ""
		v := strings.TrimSpace(f.input.Value())

		switch {
		case v == "":
			f.err = "required"
		case f.name == fieldEmail && !emailPattern.MatchString(v):
			f.err = "enter a valid email address"
		case f.name == fieldConfirm && v != m.value(fieldPassword):
			f.err = "passwords do not match"
		case f.name == fieldOTP && len(v) != 6:
			f.err = "the code is 6 digits"
		}
		if f.err != "" {
			ok = false
		}
	}
	return ok
}

// submit validates and dispatches the active form.
func (m Model) submit() (Model, tea.Cmd) {
	if m.busy || !m.validate() {
		return m, nil
	}
	m.busy = true
	m.formErr = ""

	backend := m.backend
	switch m.mode {
	case ModeLogin:
		req := api.LoginRequest{Email: m.value(fieldEmail), Password: m.value(fieldPassword)}
		return m, authCmd(func(ctx context.Context) (*api.AuthResponse, error) {
			return backend.Login(ctx, req)
		})

	case ModeSignup:
		m.signupEmail = m.value(fieldEmail)
		req := api.SignupRequest{
			Name:     m.value(fieldName),
			Email:    m.value(fieldEmail),
			Password: m.value(fieldPassword),
		}
		return m, authCmd(func(ctx context.Context) (*api.AuthResponse, error) {
			return backend.Signup(ctx, req)
		})

	case ModeOTP:
		req := api.VerifyOTPRequest{Email: m.signupEmail, OTP: m.value(fieldOTP)}
		return m, authCmd(func(ctx context.Context) (*api.AuthResponse, error) {
			return backend.VerifyOTP(ctx, req)
		})

	case ModeGoogle:
		req := api.GoogleSignInRequest{Credential: m.value(fieldToken)}
		return m, authCmd(func(ctx context.Context) (*api.AuthResponse, error) {
			return backend.GoogleSignIn(ctx, req)
		})
	}
	return m, nil
}

// authCmd wraps one auth call as a tea command.
func authCmd(call func(context.Context) (*api.AuthResponse, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		resp, err := call(ctx)
		return authResultMsg{Resp: resp, Err: err}
	}
}

// handleResult folds an auth reply back into the overlay: field errors map
// onto their inputs, "Created" advances to the OTP step, "LoggedIn" caches
// the credential and notifies the root model.
func (m Model) handleResult(msg authResultMsg) (Model, tea.Cmd) {
	m.busy = false

	if msg.Err != nil {
		var reqErr *api.RequestError
		if errors.As(msg.Err, &reqErr) && len(reqErr.Fields) > 0 {
			m.applyFieldErrors(reqErr.Fields)
			return m, nil
		}
		m.formErr = msg.Err.Error()
		return m, nil
	}

	switch {
	case msg.Resp.Message == api.StatusCreated:
		m.setMode(ModeOTP)
		return m, textinput.Blink

	case msg.Resp.LoggedIn():
		cred := authcache.Credential{
			Token:       msg.Resp.AccessToken,
			UserID:      msg.Resp.User.ID,
			Email:       msg.Resp.User.Email,
			DisplayName: msg.Resp.User.DisplayName,
		}
		if err := m.cache.Store(cred); err != nil {
			m.formErr = "Signed in, but caching the credential failed: " + err.Error()
		}
		return m, func() tea.Msg { return AuthenticatedMsg{Cred: cred} }
	}

	m.formErr = msg.Resp.Message
	return m, nil
}

// applyFieldErrors maps server validation messages onto matching fields;
// anything unmatched lands on the form-level error line.
func (m *Model) applyFieldErrors(fields map[string]string) {
	var leftovers []string
	for name, msg := range fields {
		matched := false
		for i := range m.fields {
			if m.fields[i].name == name {
				m.fields[i].err = msg
				matched = true
				break
			}
		}
		if !matched {
			leftovers = append(leftovers, msg)
		}
	}
	if len(leftovers) > 0 {
		m.formErr = strings.Join(leftovers, "; ")
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View renders the overlay box.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.theme.OverlayTitle.Render(m.mode.title()))
	b.WriteString("\n\n")

	if m.mode == ModeGoogle {
		b.WriteString(m.theme.FieldLabel.Render("Open " + m.googleURL + " in a browser,"))
		b.WriteString("\n")
		b.WriteString(m.theme.FieldLabel.Render("then paste the issued token below."))
		b.WriteString("\n\n")
	}

	for _, f := range m.fields {
		b.WriteString(m.theme.FieldLabel.Render(f.label))
		b.WriteString("\n")
		b.WriteString(f.input.View())
		b.WriteString("\n")
		if f.err != "" {
			b.WriteString(m.theme.FieldError.Render(f.err))
			b.WriteString("\n")
		}
	}

	if m.formErr != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.FieldError.Render(m.formErr))
		b.WriteString("\n")
	}
	if m.busy {
		b.WriteString("\n")
		b.WriteString(m.theme.ThinkingText.Render("Contacting the server..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.hints())
	return m.theme.OverlayBox.Render(b.String())
}

// hints renders the overlay's shortcut line.
func (m Model) hints() string {
	pairs := []struct{ k, d string }{
		{"enter", "submit"},
		{"tab", "next"},
		{"ctrl+s", "login/signup"},
		{"ctrl+g", "google"},
		{"esc", "close"},
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, m.theme.ShortcutKey.Render(p.k)+" "+m.theme.ShortcutDesc.Render(p.d))
	}
	return strings.Join(parts, "  ")
}
