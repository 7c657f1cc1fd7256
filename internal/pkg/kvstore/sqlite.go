package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// DefaultTable is used when a SQL driver receives no table name.
const DefaultTable = "kv_store"

// SQLiteOptions configures the SQLite driver.
type SQLiteOptions struct {
	// Path is the database file. Parent directories are created.
	Path string
	// Table holds every key of this store.
	Table string
}

// SQLite persists values in a single SQLite table.
type SQLite struct {
	db      *sql.DB
	getSQL  string
	setSQL  string
	dropSQL string
}

// NewSQLite opens the database at opts.Path and ensures the table exists.
func NewSQLite(ctx context.Context, opts SQLiteOptions) (*SQLite, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, errors.New("kvstore: sqlite path is required")
	}
	table := opts.Table
	if table == "" {
		table = DefaultTable
	}
	if err := validName(table); err != nil {
		return nil, err
	}

	cleanPath := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o700); err != nil {
		return nil, fmt.Errorf("kvstore: create sqlite dir: %w", err)
	}

	db, err := sql.Open("sqlite", cleanPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("kvstore: open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kvstore: ping sqlite db: %w", err)
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, value TEXT NOT NULL)`, table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("kvstore: create sqlite table: %w", err)
	}

	return &SQLite{
		db:      db,
		getSQL:  fmt.Sprintf(`SELECT value FROM %s WHERE key = ?`, table),
		setSQL:  fmt.Sprintf(`INSERT INTO %s (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`, table),
		dropSQL: fmt.Sprintf(`DELETE FROM %s WHERE key = ?`, table),
	}, nil
}

// Get returns the value for key.
func (s *SQLite) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.getSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound(key)
	}
	if err != nil {
		return "", err
	}

	return value, nil
}

// Set stores value under key.
func (s *SQLite) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.setSQL, key, value)
	return err
}

// Remove deletes key.
func (s *SQLite) Remove(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.dropSQL, key)
	return err
}

// Close closes the database handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
