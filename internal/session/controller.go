// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session drives the lifecycle of one active chat session.
package session

import (
	"context"
	"log"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/clarity-hq/clarity-tui/internal/api"
	"github.com/clarity-hq/clarity-tui/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// HistoryWindow is how many recent exchanges accompany each outbound turn.
const HistoryWindow = 8

// Synthetic bot messages shown when the backend cannot be reached. The
// user's own turn is never rolled back; these are appended after it.
const (
	sendFailedText    = "Server Error: Unable to contact the server. Please try again."
	historyFailedText = "Failed to load chat history. Please try again."
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Sender is the backend surface the controller needs. *api.Client satisfies
// it; tests substitute a fake.
type Sender interface {
	SendChat(ctx context.Context, role model.Role, payload api.ChatPayload) (*api.Reply, error)
	FetchSession(ctx context.Context, sessionID string) (*api.Reply, error)
}

// Store persists sessions locally. Optional; a nil store disables caching.
type Store interface {
	Put(sess *model.Session) error
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the active session and enforces its lifecycle rules:
// the initial send happens at most once per new session, the history fetch
// at most once per resumed session, and replies for a session that is no
// longer active are discarded.
type Controller struct {
	mu     sync.Mutex
	sender Sender
	store  Store
	userID string

	active *model.Session

	// Per-active-session lifecycle flags. Reset on every switch.
	historyFetched  bool
	initialSendDone bool
}

// NewController creates a controller for the given user.
func NewController(sender Sender, userID string) *Controller {
	return &Controller{sender: sender, userID: userID}
}

// Sender returns the backend surface, for callers that dispatch requests
// themselves and fold the result back in via CompleteSend.
func (c *Controller) Sender() Sender {
	return c.sender
}

// WithStore attaches a local session store.
func (c *Controller) WithStore(store Store) *Controller {
	c.store = store
	return c
}

// SetUserID updates the user attached to outgoing sends. Called when the
// signed-in identity changes mid-run, so payloads never carry a stale or
// empty user id.
func (c *Controller) SetUserID(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.userID = userID
}

// =============================================================================
// SESSION SWITCHING
// =============================================================================

// StartSession creates a fresh session and makes it active. The initial
// message (if any) is sent later by Activate, exactly once.
func (c *Controller) StartSession(role model.Role, initialMessage string, skipAPI bool) *model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = model.NewSession(role, initialMessage, skipAPI)
	c.resetFlags()
	return c.active
}

// Resume makes an existing session active. When the caller already holds a
// transcript it is adopted verbatim and no history fetch will happen;
// otherwise the transcript starts empty and Activate fetches it.
func (c *Controller) Resume(sessionID string, role model.Role, messages []model.ChatMessage) *model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = model.ResumeSession(sessionID, role, messages)
	c.resetFlags()
	if len(messages) > 0 {
		c.historyFetched = true
	}
	return c.active
}

// resetFlags clears the per-session lifecycle flags. Callers hold mu.
func (c *Controller) resetFlags() {
	c.historyFetched = false
	c.initialSendDone = false
}

// ActiveID returns the active session's id, empty when none.
func (c *Controller) ActiveID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return ""
	}
	return c.active.ID
}

// ActiveRole returns the active session's persona, DefaultRole when none.
func (c *Controller) ActiveRole() model.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return model.DefaultRole
	}
	return c.active.Role
}

// Active returns the active session. The returned pointer is shared; treat
// the transcript as read-only and mutate only through the controller.
func (c *Controller) Active() *model.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Transcript returns a copy of the active transcript.
func (c *Controller) Transcript() []model.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil
	}
	out := make([]model.ChatMessage, len(c.active.Messages))
	copy(out, c.active.Messages)
	return out
}

// =============================================================================
// ACTIVATION
// =============================================================================

// Activate runs the at-entry behavior for the active session and is safe to
// call repeatedly: each branch fires at most once per session instance.
//
// New session with skipAPI: append the persona's static greeting, no call.
// New session with an initial message: send it as the first turn.
// Resumed session: fetch the stored transcript.
func (c *Controller) Activate(ctx context.Context) error {
	c.mu.Lock()
	if c.active == nil {
		c.mu.Unlock()
		return nil
	}
	sess := c.active

	switch {
	case sess.New && !c.initialSendDone:
		c.initialSendDone = true
		if sess.SkipAPI {
			sess.Append(model.NewBotMessage(sess.Role.Intro(), nil, nil))
			c.persistLocked()
			c.mu.Unlock()
			return nil
		}
		if sess.InitialMessage == "" {
			c.mu.Unlock()
			return nil
		}
		c.mu.Unlock()
		return c.Send(ctx, sess.InitialMessage)

	case !sess.New && !c.historyFetched:
		c.historyFetched = true
		id := sess.ID
		c.mu.Unlock()
		return c.fetchHistory(ctx, id)

	default:
		c.mu.Unlock()
		return nil
	}
}

// fetchHistory loads the stored transcript for a resumed session. Failure
// surfaces as a synthetic bot message, not an error state the UI must track.
func (c *Controller) fetchHistory(ctx context.Context, sessionID string) error {
	reply, err := c.sender.FetchSession(ctx, sessionID)
	if err != nil {
		log.Printf("session: history fetch failed for %s: %v", sessionID, err)
		c.mu.Lock()
		if c.active != nil && c.active.ID == sessionID {
			c.active.Replace([]model.ChatMessage{model.NewBotMessage(historyFailedText, nil, nil)})
		}
		c.mu.Unlock()
		return err
	}
	c.Apply(reply, sessionID)
	return nil
}

// =============================================================================
// SENDING
// =============================================================================

// Send posts one user turn. The user's message is appended to the transcript
// before the request goes out, so it is visible immediately and survives a
// failed send; transport failure appends a synthetic bot error message after
// it. The reply is applied only if the session is still active when it
// arrives.
func (c *Controller) Send(ctx context.Context, text string) error {
	sessionID, role, payload, ok := c.PrepareSend(text)
	if !ok {
		return nil
	}
	reply, err := c.sender.SendChat(ctx, role, payload)
	c.CompleteSend(sessionID, reply, err)
	return err
}

// PrepareSend runs the synchronous half of a send for callers that dispatch
// the request themselves (the TUI issues it from a tea.Cmd): the user's turn
// is appended immediately so it renders before the network round trip, and
// the payload is built against the transcript as it stood before that turn.
// ok is false when no session is active.
func (c *Controller) PrepareSend(text string) (sessionID string, role model.Role, payload api.ChatPayload, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return "", "", api.ChatPayload{}, false
	}
	c.active.Append(model.NewUserMessage(text))
	payload = c.buildPayloadLocked(text)
	c.persistLocked()
	return c.active.ID, c.active.Role, payload, true
}

// CompleteSend folds the outcome of a dispatched send back in: the reply on
// success, a synthetic bot error message on transport failure. Either way
// the effect lands only if the session is still active.
func (c *Controller) CompleteSend(sessionID string, reply *api.Reply, err error) {
	if err != nil {
		log.Printf("session: send failed for %s: %v", sessionID, err)
		c.mu.Lock()
		if c.active != nil && c.active.ID == sessionID {
			c.active.Append(model.NewBotMessage(sendFailedText, nil, nil))
			c.persistLocked()
		}
		c.mu.Unlock()
		return
	}
	c.Apply(reply, sessionID)
}

// buildPayloadLocked assembles the outbound turn body. Callers hold mu and
// have already appended the user's message, so the history window excludes
// the turn being sent. Text is NFC-normalized so visually identical input
// always hits the backend in one canonical form.
func (c *Controller) buildPayloadLocked(text string) api.ChatPayload {
	history := c.active.Messages
	if n := len(history); n > 0 && history[n-1].Sender == model.SenderUser {
		history = history[:n-1]
	}
	return api.ChatPayload{
		Message:     norm.NFC.String(text),
		SessionID:   c.active.ID,
		UserID:      c.userID,
		FullHistory: model.LastExchanges(history, HistoryWindow),
	}
}

// BuildPayload exposes payload assembly for callers that dispatch their own
// requests (the TUI sends via tea.Cmd).
func (c *Controller) BuildPayload(text string) api.ChatPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return api.ChatPayload{Message: norm.NFC.String(text), FullHistory: []model.Exchange{}}
	}
	return api.ChatPayload{
		Message:     norm.NFC.String(text),
		SessionID:   c.active.ID,
		UserID:      c.userID,
		FullHistory: model.LastExchanges(c.active.Messages, HistoryWindow),
	}
}

// =============================================================================
// REPLY APPLICATION
// =============================================================================

// Apply folds a backend reply into the transcript. forSessionID names the
// session the request was issued for; if the user has switched sessions in
// the meantime the reply is dropped without touching the transcript. Returns
// whether the reply was applied.
func (c *Controller) Apply(reply *api.Reply, forSessionID string) bool {
	if reply == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil || c.active.ID != forSessionID {
		log.Printf("session: dropping %s reply for inactive session %s", reply.Kind, forSessionID)
		return false
	}

	switch reply.Kind {
	case api.ReplyHistory:
		// The history reply names its own session too; trust it over the
		// request attribution when they disagree.
		if reply.SessionID != "" && reply.SessionID != c.active.ID {
			log.Printf("session: dropping history reply for %s (active %s)", reply.SessionID, c.active.ID)
			return false
		}
		c.active.Replace(reply.Messages)
		c.historyFetched = true

	case api.ReplyMessages:
		c.active.Replace(reply.Messages)

	case api.ReplyAnswer:
		c.active.Append(reply.Answer)

	default:
		return false
	}

	c.persistLocked()
	return true
}

// AppendSynthetic appends a locally generated bot message (error banners,
// offline notices) to the active session.
func (c *Controller) AppendSynthetic(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return
	}
	c.active.Append(model.NewBotMessage(text, nil, nil))
	c.persistLocked()
}

// persistLocked mirrors the active session into the local store. Callers
// hold mu. Store failures are logged; the in-memory transcript is the
// source of truth.
func (c *Controller) persistLocked() {
	if c.store == nil || c.active == nil {
		return
	}
	if err := c.store.Put(c.active); err != nil {
		log.Printf("session: local cache write failed: %v", err)
	}
}
