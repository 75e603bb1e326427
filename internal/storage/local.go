package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// LocalStore is the on-device fallback store, a single SQLite file.
type LocalStore struct {
	db *sql.DB
}

// Compile-time checks: *LocalStore satisfies Store and Lister.
var (
	_ Store  = (*LocalStore)(nil)
	_ Lister = (*LocalStore)(nil)
)

// OpenLocal opens (or creates) the SQLite store at dir/local.db.
func OpenLocal(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating local store dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "local.db"))
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}
	// One connection keeps writes serialized.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS kv_store (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating local store table: %w", err)
	}

	return &LocalStore{db: db}, nil
}

// Get reads a value.
func (s *LocalStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("local read %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes a value, deleting the key when value is empty.
func (s *LocalStore) Set(ctx context.Context, key, value string) error {
	var err error
	if value == "" {
		_, err = s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = ?`, key)
	} else {
		_, err = s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO kv_store (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
			key, value)
	}
	if err != nil {
		return fmt.Errorf("local write %s: %w", key, err)
	}
	return nil
}

// Keys lists stored keys with the given prefix, ordered by key.
func (s *LocalStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv_store WHERE substr(key, 1, length(?)) = ? ORDER BY key`, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("local list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("local scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the database.
func (s *LocalStore) Close() error {
	return s.db.Close()
}
