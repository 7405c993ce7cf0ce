package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Execer is the subset of pgxpool.Pool (and pgxmock) needed to apply DDL.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// isConnectionError reports whether err looks like a transient connection
// problem rather than an SQL error. Only connection errors are retried.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, p := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"no such host",
		"i/o timeout",
		"dial tcp",
		"EOF",
		"connection timed out",
		"server closed the connection unexpectedly",
		"could not connect",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// EnsureSchema executes idempotent DDL statements in order. Connection errors
// are retried with the pool backoff; SQL errors are returned immediately.
func EnsureSchema(ctx context.Context, db Execer, statements []string, logger *slog.Logger) error {
	var err error
	for attempt := 0; attempt < defaultRetryAttempts; attempt++ {
		if attempt > 0 {
			wait := retryBackoff(attempt - 1)
			if logger != nil {
				logger.Warn("schema setup failed due to connection error, retrying",
					slog.Int("attempt", attempt+1),
					slog.Duration("backoff", wait),
					slog.String("error", err.Error()),
				)
			}
			if serr := sleepCtx(ctx, wait); serr != nil {
				return fmt.Errorf("ensure schema: context canceled during retry: %w", serr)
			}
		}

		if err = applyStatements(ctx, db, statements); err == nil {
			return nil
		}
		if !isConnectionError(err) {
			return err
		}
	}
	return fmt.Errorf("ensure schema after %d attempts: %w", defaultRetryAttempts, err)
}

func applyStatements(ctx context.Context, db Execer, statements []string) error {
	for i, stmt := range statements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}
	return nil
}
