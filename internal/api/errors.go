// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error variables for common backend failures.
var (
	// ErrNotLoggedIn indicates a request that requires a bearer token was
	// attempted without one.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrUnauthorized indicates the backend rejected the bearer token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the client-side send throttle refused the call.
	ErrRateLimited = errors.New("too many requests, slow down")

	// ErrUnreachable indicates the request never produced an HTTP response.
	ErrUnreachable = errors.New("backend unreachable")
)

// RequestError represents a failed backend call. Status 0 means the request
// never reached the backend (network failure). 4xx responses may carry a
// per-field validation map, 5xx responses a server message.
type RequestError struct {
	Status  int
	Message string

	// Fields maps input field names to validation messages (4xx only).
	Fields map[string]string

	// Action is a backend-directed recovery hint, e.g. "reauthenticate" on a
	// 401 calendar call whose Google grant expired.
	Action string
}

// NeedsReauth reports whether the backend asked the client to redo the
// Google authorization flow before retrying.
func (e *RequestError) NeedsReauth() bool {
	return e.Status == 401 && e.Action == "reauthenticate"
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("request failed: %s", e.Message)
	}
	if len(e.Fields) > 0 {
		return fmt.Sprintf("request rejected (HTTP %d): %s [%s]", e.Status, e.Message, e.fieldSummary())
	}
	return fmt.Sprintf("request failed (HTTP %d): %s", e.Status, e.Message)
}

// Is maps status classes onto the sentinel errors so callers can use
// errors.Is without inspecting status codes.
func (e *RequestError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == 401
	case ErrUnreachable:
		return e.Status == 0
	}
	return false
}

// IsValidation reports whether the error is a client-input failure.
func (e *RequestError) IsValidation() bool {
	return e.Status >= 400 && e.Status < 500
}

// IsServerFault reports whether the backend itself failed.
func (e *RequestError) IsServerFault() bool {
	return e.Status >= 500
}

// fieldSummary renders the validation map in stable order.
func (e *RequestError) fieldSummary() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return strings.Join(parts, "; ")
}
