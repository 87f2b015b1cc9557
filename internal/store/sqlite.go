package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    updated_at TEXT NOT NULL
);
`

// SQLiteStore implements the Store interface using SQLite with values
// encrypted at rest.
type SQLiteStore struct {
	db  *sql.DB
	key []byte
}

// NewSQLiteStore creates a SQLite-backed store at the provided path.
// The encryption key is derived from a device secret kept next to the
// database file.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("store: db path cannot be empty")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("store: create db directory: %w", err)
	}

	secret, err := loadOrCreateSecret(dir)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	key, err := deriveKey(secret)
	if err != nil {
		return nil, fmt.Errorf("store: derive key: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}

	s := &SQLiteStore{db: db, key: key}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteStore) init() error {
	if _, err := s.db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return fmt.Errorf("store: set busy timeout: %w", err)
	}
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// Get returns the decrypted value for key. A missing key yields ok=false.
// A value that fails to decrypt is treated as absent (corrupt state is
// equivalent to no state).
func (s *SQLiteStore) Get(key string) (string, bool, error) {
	var blob []byte
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: get %s: %w", key, err)
	}
	plain, err := open(s.key, blob)
	if err != nil {
		return "", false, nil
	}
	return string(plain), true, nil
}

// Set encrypts and upserts the value for key.
func (s *SQLiteStore) Set(key, value string) error {
	blob, err := seal(s.key, []byte(value))
	if err != nil {
		return fmt.Errorf("store: seal %s: %w", key, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.Exec(
		"INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
		key, blob, now,
	)
	if err != nil {
		return fmt.Errorf("store: set %s: %w", key, err)
	}
	return nil
}

// Delete removes the value for key. Deleting a missing key is not an error.
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("store: delete %s: %w", key, err)
	}
	return nil
}

// Close closes the underlying SQLite connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
