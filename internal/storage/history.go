// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Role values stored in chat_history.role.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrInvalidRole is returned when appending a role other than user or
// assistant.
var ErrInvalidRole = errors.New("storage: invalid role")

// Entry is one stored chat turn.
type Entry struct {
	ID        int64
	Session   string
	Role      string
	Content   string
	CreatedAt time.Time
}

// HistoryStore is a SQLite-backed chat history.
type HistoryStore struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS chat_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session    TEXT    NOT NULL DEFAULT '',
	role       TEXT    NOT NULL CHECK (role IN ('user', 'assistant')),
	content    TEXT    NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_history_session ON chat_history(session, id);
`

// Open opens (creating if needed) the database at path. ":memory:" gives a
// private in-memory database.
func Open(ctx context.Context, path string) (*HistoryStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serialises writers; a single connection avoids SQLITE_BUSY and
	// keeps ":memory:" pointing at one database.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &HistoryStore{db: db, path: path}, nil
}

// Path returns the database path.
func (s *HistoryStore) Path() string {
	return s.path
}

// Append stores one turn and returns its row ID.
func (s *HistoryStore) Append(ctx context.Context, session, role, content string) (int64, error) {
	if role != RoleUser && role != RoleAssistant {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_history (session, role, content, created_at) VALUES (?, ?, ?, ?)`,
		session, role, content, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to append history: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit of the newest turns for session, oldest first.
func (s *HistoryStore) Recent(ctx context.Context, session string, limit int) ([]Entry, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session, role, content, created_at FROM (
			SELECT id, session, role, content, created_at
			FROM chat_history
			WHERE session = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`, session, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e  Entry
			ms int64
		)
		if err := rows.Scan(&e.ID, &e.Session, &e.Role, &e.Content, &ms); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.CreatedAt = time.UnixMilli(ms)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the number of stored turns for session.
func (s *HistoryStore) Count(ctx context.Context, session string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_history WHERE session = ?`, session).Scan(&n)
	return n, err
}

// Prune deletes turns older than cutoff and returns how many were removed.
func (s *HistoryStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chat_history WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

// Ping checks the database is reachable.
func (s *HistoryStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *HistoryStore) Close() error {
	return s.db.Close()
}
