// Package session provides the session-scoped key-value store that carries
// state across reruns.
//
// State persisted here is exactly what a script explicitly stores via
// st.session; nothing else crosses the boundary between passes. The harness
// always opens the store at :memory:, one database per runner, so session
// lifetime is bounded to a single test and teardown is a Close.
package session

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store holds session state in SQLite.
type Store struct {
	db  *sql.DB
	seq int64
}

// Open creates or opens a SQLite database at the given path.
// The harness passes ":memory:" so state never touches a disk.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection also keeps an
	// in-memory database alive for the store's whole lifetime.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection, discarding all state for an
// in-memory store.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Set stores value under (sessionID, key), JSON-encoding at the boundary.
// Overwrites an existing key; the write is stamped with the next sequence.
func (s *Store) Set(ctx context.Context, sessionID, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode session value for key %q: %w", key, err)
	}

	s.seq++
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO session_state (session_id, key, value, seq)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id, key) DO UPDATE SET value = excluded.value, seq = excluded.seq`,
		sessionID, key, string(encoded), s.seq)
	if err != nil {
		return fmt.Errorf("write session key %q: %w", key, err)
	}
	return nil
}

// Get returns the value stored under (sessionID, key).
// The second return is false if the key has never been set.
func (s *Store) Get(ctx context.Context, sessionID, key string) (any, bool, error) {
	var encoded string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM session_state WHERE session_id = ? AND key = ?`,
		sessionID, key).Scan(&encoded)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read session key %q: %w", key, err)
	}

	var value any
	if err := json.Unmarshal([]byte(encoded), &value); err != nil {
		return nil, false, fmt.Errorf("decode session value for key %q: %w", key, err)
	}
	return value, true, nil
}

// Has reports whether (sessionID, key) has been set.
func (s *Store) Has(ctx context.Context, sessionID, key string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM session_state WHERE session_id = ? AND key = ?`,
		sessionID, key).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("probe session key %q: %w", key, err)
	}
	return true, nil
}

// Keys returns all keys set for sessionID, in write order.
func (s *Store) Keys(ctx context.Context, sessionID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM session_state WHERE session_id = ? ORDER BY seq ASC`,
		sessionID)
	if err != nil {
		return nil, fmt.Errorf("list session keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan session key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// Clear removes every key for sessionID.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM session_state WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Query executes a query and returns the resulting rows.
// Used by harness state assertions. Callers must close the returned rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, query, args...)
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}
