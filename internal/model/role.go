// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "strings"

// =============================================================================
// PERSONA ROLE TYPE
// =============================================================================

// Role is one of the fixed assistant personas. The role selects both the
// backend chat endpoint and the UI copy shown for the session.
type Role string

const (
	RoleFriend Role = "friend"
	RoleMentor Role = "mentor"
	RoleBuddy  Role = "college buddy"
)

// AllRoles lists the personas in display order.
var AllRoles = []Role{RoleFriend, RoleMentor, RoleBuddy}

// DefaultRole is used when navigation state carries no role.
const DefaultRole = RoleFriend

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns the persona name as shown in the UI.
func (r Role) DisplayName() string {
	switch r {
	case RoleFriend:
		return "Friend"
	case RoleMentor:
		return "Mentor"
	case RoleBuddy:
		return "College Buddy"
	default:
		return string(r)
	}
}

// Valid reports whether the role is one of the known personas.
func (r Role) Valid() bool {
	switch r {
	case RoleFriend, RoleMentor, RoleBuddy:
		return true
	}
	return false
}

// ParseRole maps free-form input ("Mentor", "college-buddy", "buddy") onto a
// persona. Unrecognised input falls back to DefaultRole.
func ParseRole(s string) Role {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "friend":
		return RoleFriend
	case "mentor":
		return RoleMentor
	case "college buddy", "college-buddy", "buddy":
		return RoleBuddy
	}
	return DefaultRole
}

// roleIntros holds the static greeting synthesised for persona-pick sessions
// that start without an opening message (no network call is made for these).
var roleIntros = map[Role]string{
	RoleFriend: "Hi! I am your friend, your supportive companion. How can I help you today?",
	RoleMentor: "Hello! I'm your Mentor, here to guide you through challenges and help you grow.",
	RoleBuddy:  "Greetings! I'm your College Buddy. Let's dive deep into your queries.",
}

// Intro returns the persona's static greeting.
func (r Role) Intro() string {
	if intro, ok := roleIntros[r]; ok {
		return intro
	}
	return "Hi there! How can I help you today?"
}
