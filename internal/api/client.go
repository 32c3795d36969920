// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the Clarity backend.
//
// Every backend interaction is a single request/response cycle. The client
// keeps exactly one "current" call worth of state: starting a call clears
// the previously recorded status, body and error before anything else
// happens, so stale results can never be observed as fresh ones.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/clarity-hq/clarity-tui/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultBaseURL is the production backend.
	DefaultBaseURL = "https://api.clarity.app"

	// DefaultTimeout bounds a single request/response cycle.
	DefaultTimeout = 60 * time.Second

	// DefaultSendsPerMinute is the outbound chat-send throttle.
	DefaultSendsPerMinute = 30

	// MaxResponseSize caps response bodies to prevent memory exhaustion.
	MaxResponseSize = 10 * 1024 * 1024
)

// sharedHTTPClient pools connections for all backend requests.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	},
	Timeout: DefaultTimeout,
}

// =============================================================================
// CLIENT
// =============================================================================

// TokenSource supplies the current bearer token. An empty token means
// logged out; requests are then sent unauthenticated.
type TokenSource interface {
	Token() string
}

// Client talks to the Clarity backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	limiter    *rate.Limiter
	userAgent  string

	// mu guards the current-call state below.
	mu         sync.Mutex
	inFlight   bool
	lastStatus int
	lastErr    error
}

// NewClient creates a client for the given backend base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: sharedHTTPClient,
		limiter:    rate.NewLimiter(rate.Limit(float64(DefaultSendsPerMinute)/60.0), 5),
		userAgent:  "clarity/1.0",
	}
}

// WithTokenSource sets the bearer token supplier.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	c.tokens = ts
	return c
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	// Copy the shared client rather than mutating it.
	hc := *c.httpClient
	hc.Timeout = timeout
	c.httpClient = &hc
	return c
}

// WithHTTPClient substitutes the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithSendsPerMinute sets the outbound chat-send throttle. Zero or negative
// disables the throttle.
func (c *Client) WithSendsPerMinute(perMinute int) *Client {
	if perMinute <= 0 {
		c.limiter = nil
		return c
	}
	c.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 5)
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// CURRENT-CALL STATE
// =============================================================================

// InFlight reports whether a call is currently running.
func (c *Client) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// LastStatus returns the HTTP status of the most recent completed call,
// zero if none or the request never got a response.
func (c *Client) LastStatus() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastStatus
}

// LastError returns the error of the most recent completed call, nil on
// success.
func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// beginCall clears the recorded state of the previous call and marks a new
// one in flight. Clearing happens before the request is built so a caller
// polling state never sees the old call's result attributed to the new one.
func (c *Client) beginCall() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = true
	c.lastStatus = 0
	c.lastErr = nil
}

// endCall records the outcome of the call that just finished.
func (c *Client) endCall(status int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	c.lastStatus = status
	c.lastErr = err
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// errorResponse is the backend's failure body.
type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
	Action  string            `json:"action"`
}

// do runs one request/response cycle. A nil body sends no payload; a nil out
// discards the response body after status handling.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	c.beginCall()

	status, err := c.roundTrip(ctx, method, path, body, out)
	c.endCall(status, err)
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, &RequestError{Message: fmt.Sprintf("failed to encode request: %v", err)}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, &RequestError{Message: fmt.Sprintf("failed to create request: %v", err)}
	}
	c.setHeaders(req)

	log.Printf("api: %s %s", method, path)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, &RequestError{Message: err.Error()}
	}
	defer resp.Body.Close()
	log.Printf("api: %d %s (%v)", resp.StatusCode, path, time.Since(start).Round(time.Millisecond))

	data, err := readResponse(resp)
	if err != nil {
		return resp.StatusCode, &RequestError{Status: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode >= 400 {
		return resp.StatusCode, decodeError(resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, &RequestError{
				Status:  resp.StatusCode,
				Message: fmt.Sprintf("failed to parse response: %v", err),
			}
		}
	}
	return resp.StatusCode, nil
}

// setHeaders attaches content type, user agent and the bearer token when one
// exists.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
}

// readResponse reads the body with a size cap. Reading one byte past the cap
// distinguishes a body exactly at the limit from one over it.
func readResponse(resp *http.Response) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return data, nil
}

// decodeError converts a failure body into a RequestError, keeping the
// per-field validation map when the backend supplies one.
func decodeError(status int, data []byte) error {
	var er errorResponse
	if err := json.Unmarshal(data, &er); err == nil && (er.Message != "" || len(er.Errors) > 0 || er.Action != "") {
		return &RequestError{Status: status, Message: er.Message, Fields: er.Errors, Action: er.Action}
	}
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &RequestError{Status: status, Message: msg}
}

// =============================================================================
// AUTH FLOW
// =============================================================================

// Signup registers an account. A 201/"Created" reply means the backend has
// emailed a one-time code and expects VerifyOTP next.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, EndpointSignup, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, EndpointLogin, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// VerifyOTP relays the emailed one-time code. The client never generates or
// checks codes itself.
func (c *Client) VerifyOTP(ctx context.Context, req VerifyOTPRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, EndpointVerifyOTP, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GoogleSignIn exchanges a Google identity token for a credential.
func (c *Client) GoogleSignIn(ctx context.Context, req GoogleSignInRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, EndpointGoogleSignIn, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout revokes the current token server-side.
func (c *Client) Logout(ctx context.Context) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPost, EndpointLogout, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateProfile changes the display name. A "Nameupdated" reply means the
// cached credential should be rewritten with the new name.
func (c *Client) UpdateProfile(ctx context.Context, name, userID string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, http.MethodPut, EndpointUpdateProfile, UpdateProfileRequest{Name: name, UserID: userID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// =============================================================================
// CHAT AND HISTORY
// =============================================================================

// SendChat posts one chat turn to the persona's endpoint. Sends are subject
// to the client-side throttle; a refused send fails fast with ErrRateLimited
// rather than queueing.
func (c *Client) SendChat(ctx context.Context, role model.Role, payload ChatPayload) (*Reply, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		return nil, ErrRateLimited
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, ChatEndpoint(role), payload, &raw); err != nil {
		return nil, err
	}
	return ParseReply(raw)
}

// FetchSession retrieves the transcript of one session.
func (c *Client) FetchSession(ctx context.Context, sessionID string) (*Reply, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, SessionEndpoint(sessionID), nil, &raw); err != nil {
		return nil, err
	}
	return ParseReply(raw)
}

// FetchHistory retrieves the session list for the sidebar.
func (c *Client) FetchHistory(ctx context.Context) ([]model.SessionMeta, error) {
	var resp struct {
		Status   bool                `json:"status"`
		Sessions []model.SessionMeta `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, EndpointHistory, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Sessions == nil {
		resp.Sessions = []model.SessionMeta{}
	}
	return resp.Sessions, nil
}

// =============================================================================
// DASHBOARD
// =============================================================================

// FetchDashboard retrieves all generated plans. Grouping by session is done
// by the caller.
func (c *Client) FetchDashboard(ctx context.Context) ([]model.Plan, error) {
	var resp DashboardResponse
	if err := c.do(ctx, http.MethodGet, EndpointDashboard, nil, &resp); err != nil {
		return nil, err
	}
	if resp.TaskResources == nil {
		resp.TaskResources = []model.Plan{}
	}
	return resp.TaskResources, nil
}

// AddToCalendar asks the backend to push a plan's tasks onto the user's
// calendar starting at the given date. An empty startDate means now. A 401
// with action "reauthenticate" means the Google grant expired; the caller
// should redo the Google flow and retry (see RequestError.NeedsReauth).
func (c *Client) AddToCalendar(ctx context.Context, planID, startDate string) error {
	if startDate == "" {
		startDate = time.Now().UTC().Format(time.RFC3339)
	}
	return c.do(ctx, http.MethodPost, CalendarEndpoint(planID), CalendarRequest{StartDate: startDate}, nil)
}
