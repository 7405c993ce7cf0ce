package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/utafrali/storefront/pkg/database"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS client_storage (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`
	getSQL    = `SELECT value FROM client_storage WHERE key = ?`
	upsertSQL = `INSERT INTO client_storage (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	deleteSQL = `DELETE FROM client_storage WHERE key = ?`
)

// Storage keeps client storage in a SQLite file.
type Storage struct {
	db *sql.DB
}

// Open opens the SQLite file at path and creates the storage table.
func Open(ctx context.Context, path string) (*Storage, error) {
	db, err := database.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create client_storage table: %w", err)
	}
	return &Storage{db: db}, nil
}

func (s *Storage) GetItem(ctx context.Context, key string) (value string, ok bool, err error) {
	ctx, end := database.TraceQuery(ctx, "sqlite", "GetItem", getSQL)
	defer func() { end(err) }()

	err = s.db.QueryRowContext(ctx, getSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Storage) SetItem(ctx context.Context, key, value string) (err error) {
	ctx, end := database.TraceQuery(ctx, "sqlite", "SetItem", upsertSQL)
	defer func() { end(err) }()

	if _, err = s.db.ExecContext(ctx, upsertSQL, key, value, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("sqlite set %q: %w", key, err)
	}
	return nil
}

func (s *Storage) RemoveItem(ctx context.Context, key string) (err error) {
	ctx, end := database.TraceQuery(ctx, "sqlite", "RemoveItem", deleteSQL)
	defer func() { end(err) }()

	if _, err = s.db.ExecContext(ctx, deleteSQL, key); err != nil {
		return fmt.Errorf("sqlite remove %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Close() error {
	return s.db.Close()
}
