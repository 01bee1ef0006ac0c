// Package history persists CLI query history in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// answerPreviewLimit bounds what gets stored for an answer so the history
// database stays small.
const answerPreviewLimit = 2000

// Entry is one recorded CLI invocation.
type Entry struct {
	ID        int64
	Command   string
	Query     string
	Answer    string
	CreatedAt time.Time
}

// Store records and lists query history.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS queries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	command TEXT NOT NULL,
	query TEXT NOT NULL,
	answer TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_queries_created_at ON queries(created_at);
`

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	// modernc.org/sqlite is not safe for concurrent writers on one file.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record stores one invocation. Answers longer than the preview limit are
// truncated before storage.
func (s *Store) Record(ctx context.Context, command, query, answer string) error {
	if runes := []rune(answer); len(runes) > answerPreviewLimit {
		answer = string(runes[:answerPreviewLimit]) + "..."
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queries (command, query, answer) VALUES (?, ?, ?)`,
		command, query, answer)
	if err != nil {
		return fmt.Errorf("record history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, command, query, answer, created_at
		 FROM queries ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Command, &e.Query, &e.Answer, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
