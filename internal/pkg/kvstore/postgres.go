package kvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres persists values in a single PostgreSQL table.
type Postgres struct {
	pool    *pgxpool.Pool
	owned   bool
	getSQL  string
	setSQL  string
	dropSQL string
}

// NewPostgres ensures the table exists on pool and returns a store using it.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool, table string) (*Postgres, error) {
	if table == "" {
		table = DefaultTable
	}
	if err := validName(table); err != nil {
		return nil, err
	}

	ident := pgx.Identifier{table}.Sanitize()
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TIMESTAMPTZ NOT NULL DEFAULT now())`, ident)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		return nil, fmt.Errorf("kvstore: create postgres table: %w", err)
	}

	return &Postgres{
		pool:    pool,
		getSQL:  fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, ident),
		setSQL:  fmt.Sprintf(`INSERT INTO %s (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, ident),
		dropSQL: fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, ident),
	}, nil
}

// Get returns the value for key.
func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := p.pool.QueryRow(ctx, p.getSQL, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", notFound(key)
	}
	if err != nil {
		return "", err
	}

	return value, nil
}

// Set stores value under key.
func (p *Postgres) Set(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx, p.setSQL, key, value)
	return err
}

// Remove deletes key.
func (p *Postgres) Remove(ctx context.Context, key string) error {
	_, err := p.pool.Exec(ctx, p.dropSQL, key)
	return err
}

// Close closes the pool when the store created it.
func (p *Postgres) Close() error {
	if p.owned {
		p.pool.Close()
	}
	return nil
}
