// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"fmt"
	"net/url"

	"github.com/clarity-hq/clarity-tui/internal/model"
)

// =============================================================================
// ENDPOINT PATHS
// =============================================================================

// Backend REST paths. The backend owns the semantics; the client only knows
// the routes and the payload shapes.
const (
	EndpointSignup        = "/api/auth/signup"
	EndpointLogin         = "/api/auth/login"
	EndpointVerifyOTP     = "/api/auth/verify-otp"
	EndpointGoogleSignIn  = "/api/auth/google"
	EndpointLogout        = "/api/auth/logout"
	EndpointUpdateProfile = "/api/user/update-profile"
	EndpointHistory       = "/api/history"
	EndpointDashboard     = "/api/dashboard"
)

// chatEndpoints maps each persona to its chat-turn route. One endpoint per
// persona, selected by the active role.
var chatEndpoints = map[model.Role]string{
	model.RoleFriend: "/api/chat/friend",
	model.RoleMentor: "/api/chat/mentor",
	model.RoleBuddy:  "/api/chat/college-buddy",
}

// ChatEndpoint returns the chat-turn route for a persona. Unknown roles fall
// back to the default persona's route.
func ChatEndpoint(role model.Role) string {
	if ep, ok := chatEndpoints[role]; ok {
		return ep
	}
	return chatEndpoints[model.DefaultRole]
}

// SessionEndpoint returns the history route for one session.
func SessionEndpoint(sessionID string) string {
	return "/api/chat/" + url.PathEscape(sessionID)
}

// CalendarEndpoint returns the calendar-add route for one plan.
func CalendarEndpoint(planID string) string {
	return fmt.Sprintf("/api/plans/%s/calendar", url.PathEscape(planID))
}

// =============================================================================
// REQUEST PAYLOADS
// =============================================================================

// ChatPayload is the body of a chat-turn POST. FullHistory carries a sliding
// window of recent exchanges so the backend has conversational context
// without the whole transcript.
type ChatPayload struct {
	Message     string           `json:"message"`
	SessionID   string           `json:"session_id"`
	UserID      string           `json:"userId"`
	FullHistory []model.Exchange `json:"full_history"`
}

// SignupRequest is the body of a signup POST.
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of a login POST.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyOTPRequest relays the emailed one-time code back to the backend.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// GoogleSignInRequest carries the Google identity token.
type GoogleSignInRequest struct {
	Credential string `json:"credential"`
}

// UpdateProfileRequest is the body of a profile-update PUT.
type UpdateProfileRequest struct {
	Name   string `json:"name"`
	UserID string `json:"user_id"`
}

// CalendarRequest schedules a plan's tasks starting at StartDate (RFC 3339).
type CalendarRequest struct {
	StartDate string `json:"startDate"`
}

// =============================================================================
// RESPONSE PAYLOADS
// =============================================================================

// Backend auth status messages. The backend signals auth-flow transitions
// through these strings rather than bespoke response shapes.
const (
	StatusCreated     = "Created"     // signup accepted, OTP emailed
	StatusLoggedIn    = "LoggedIn"    // credential issued
	StatusNameUpdated = "Nameupdated" // display name changed
	StatusLoggedOut   = "LoggedOut"   // token revoked
)

// AuthUser is the account identity attached to a successful login.
type AuthUser struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// AuthResponse is the common shape of auth-flow replies. Which fields are
// populated depends on Message: "LoggedIn" carries AccessToken and User,
// "Nameupdated" carries just the new DisplayName.
type AuthResponse struct {
	Status      bool      `json:"status"`
	Message     string    `json:"message"`
	AccessToken string    `json:"accessToken"`
	User        *AuthUser `json:"user"`
	DisplayName string    `json:"displayName"`
}

// LoggedIn reports whether the reply carries a usable credential.
func (r *AuthResponse) LoggedIn() bool {
	return r.Message == StatusLoggedIn && r.AccessToken != "" && r.User != nil
}

// DashboardResponse is the dashboard listing reply: all generated plans,
// flat. Grouping by session happens client-side.
type DashboardResponse struct {
	Status        bool         `json:"status"`
	TaskResources []model.Plan `json:"task_resources"`
}
