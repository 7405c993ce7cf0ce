package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/storefront/pkg/database"
)

// Schema creates the client_storage table.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS client_storage (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// DBTX is satisfied by *pgxpool.Pool and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Storage keeps client storage in a PostgreSQL table.
type Storage struct {
	db DBTX
}

// New wraps db. Call EnsureSchema before first use on a fresh database.
func New(db DBTX) *Storage {
	return &Storage{db: db}
}

// EnsureSchema creates the storage table if it does not exist.
func (s *Storage) EnsureSchema(ctx context.Context, logger *slog.Logger) error {
	if err := database.EnsureSchema(ctx, s.db, Schema, logger); err != nil {
		return fmt.Errorf("ensure client_storage schema: %w", err)
	}
	return nil
}

func (s *Storage) GetItem(ctx context.Context, key string) (value string, ok bool, err error) {
	const query = `SELECT value FROM client_storage WHERE key = $1`
	ctx, end := database.TraceQuery(ctx, "postgresql", "GetItem", query)
	defer func() { end(err) }()

	err = s.db.QueryRow(ctx, query, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("postgres get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Storage) SetItem(ctx context.Context, key, value string) (err error) {
	const query = `
		INSERT INTO client_storage (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	ctx, end := database.TraceQuery(ctx, "postgresql", "SetItem", query)
	defer func() { end(err) }()

	if _, err = s.db.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("postgres set %q: %w", key, err)
	}
	return nil
}

func (s *Storage) RemoveItem(ctx context.Context, key string) (err error) {
	const query = `DELETE FROM client_storage WHERE key = $1`
	ctx, end := database.TraceQuery(ctx, "postgresql", "RemoveItem", query)
	defer func() { end(err) }()

	if _, err = s.db.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("postgres remove %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Storage) Close() error {
	s.db.Close()
	return nil
}
