// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides the local session history cache.
//
// The backend owns session history; this cache exists so the session list
// and recent transcripts render instantly on startup and survive offline
// runs. It is a cache, not a source of truth: any entry can be dropped and
// refetched.
package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/clarity-hq/clarity-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound indicates the session is not in the cache.
var ErrNotFound = errors.New("session not found")

// =============================================================================
// SCHEMA
// =============================================================================

// DefaultMaxSessions bounds the cache before eviction kicks in.
const DefaultMaxSessions = 200

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id         TEXT PRIMARY KEY,
    role       TEXT NOT NULL,
    title      TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    messages   TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated ON sessions(updated_at DESC);
`

// =============================================================================
// HISTORY STORE
// =============================================================================

// HistoryStore is a SQLite-backed session cache.
type HistoryStore struct {
	db          *sql.DB
	maxSessions int
}

// Open opens (creating if needed) the history database at path.
// maxSessions <= 0 uses DefaultMaxSessions.
func Open(path string, maxSessions int) (*HistoryStore, error) {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &HistoryStore{db: db, maxSessions: maxSessions}, nil
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// WRITES
// =============================================================================

// Put inserts or replaces a session, then evicts the oldest entries beyond
// the cache bound.
func (s *HistoryStore) Put(sess *model.Session) error {
	if sess == nil || sess.ID == "" {
		return errors.New("session has no id")
	}

	messages, err := json.Marshal(sess.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sessions (id, role, title, created_at, updated_at, messages)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			role = excluded.role,
			title = excluded.title,
			updated_at = excluded.updated_at,
			messages = excluded.messages`,
		sess.ID, string(sess.Role), sess.Title(),
		sess.CreatedAt.UnixMilli(), sess.UpdatedAt.UnixMilli(), string(messages))
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	return s.evict()
}

// evict removes the least recently updated sessions beyond maxSessions.
func (s *HistoryStore) evict() error {
	_, err := s.db.Exec(`
		DELETE FROM sessions WHERE id IN (
			SELECT id FROM sessions
			ORDER BY updated_at DESC
			LIMIT -1 OFFSET ?
		)`, s.maxSessions)
	if err != nil {
		return fmt.Errorf("failed to evict sessions: %w", err)
	}
	return nil
}

// Delete removes one session. Deleting an absent session is not an error.
func (s *HistoryStore) Delete(sessionID string) error {
	if _, err := s.db.Exec("DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Clear empties the cache.
func (s *HistoryStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM sessions"); err != nil {
		return fmt.Errorf("failed to clear sessions: %w", err)
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

// Get retrieves one cached session.
func (s *HistoryStore) Get(sessionID string) (*model.Session, error) {
	var (
		role                 string
		messagesJSON         string
		createdMs, updatedMs int64
	)
	err := s.db.QueryRow(
		"SELECT role, created_at, updated_at, messages FROM sessions WHERE id = ?",
		sessionID,
	).Scan(&role, &createdMs, &updatedMs, &messagesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var messages []model.ChatMessage
	if err := json.Unmarshal([]byte(messagesJSON), &messages); err != nil {
		return nil, fmt.Errorf("corrupt transcript for session %s: %w", sessionID, err)
	}

	sess := model.ResumeSession(sessionID, model.ParseRole(role), messages)
	sess.CreatedAt = time.UnixMilli(createdMs)
	sess.UpdatedAt = time.UnixMilli(updatedMs)
	return sess, nil
}

// List returns cached session metadata, most recently updated first.
func (s *HistoryStore) List() ([]model.SessionMeta, error) {
	rows, err := s.db.Query(`
		SELECT id, role, title, updated_at,
		       (SELECT COUNT(*) FROM json_each(sessions.messages))
		FROM sessions
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	metas := []model.SessionMeta{}
	for rows.Next() {
		var (
			meta      model.SessionMeta
			role      string
			updatedMs int64
		)
		if err := rows.Scan(&meta.ID, &role, &meta.Title, &updatedMs, &meta.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		meta.Role = model.ParseRole(role)
		meta.UpdatedAt = time.UnixMilli(updatedMs)
		metas = append(metas, meta)
	}
	return metas, rows.Err()
}

// Count returns the number of cached sessions.
func (s *HistoryStore) Count() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}
