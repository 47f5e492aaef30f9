// Package store is the agent-local key-value persistence collaborator.
// Daily stats and the owner-profile cache live here; values are opaque
// strings scoped by an agent namespace so several agents can share one
// state file without colliding.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	clubotel "github.com/clawclub/clawclub/internal/otel"
)

var tracer = clubotel.Tracer("github.com/clawclub/clawclub/internal/store")

const schema = `
CREATE TABLE IF NOT EXISTS agent_state (
    namespace TEXT NOT NULL,
    key TEXT NOT NULL,
    value TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (namespace, key)
);
`

// Store persists agent state in SQLite.
type Store struct {
	db        *sql.DB
	namespace string
}

// New opens (or creates) the state database, scoping all keys under the
// given agent namespace.
func New(dbPath, namespace string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("creating state schema: %w", err)
	}
	return &Store{db: db, namespace: namespace}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key and whether it exists.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, span := tracer.Start(ctx, "store.get",
		trace.WithAttributes(attribute.String("state.key", key)))
	defer span.End()

	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM agent_state WHERE namespace = ? AND key = ?`,
		s.namespace, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading state key %q: %w", key, err)
	}
	return value, true, nil
}

// Set upserts the value for key. Retries on SQLite busy/locked so
// overlapping invocations against one state file degrade gracefully.
func (s *Store) Set(ctx context.Context, key, value string) error {
	ctx, span := tracer.Start(ctx, "store.set",
		trace.WithAttributes(attribute.String("state.key", key)))
	defer span.End()

	const maxRetries = 10
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepRetry(ctx, attempt); err != nil {
				return err
			}
		}
		_, lastErr = s.db.ExecContext(ctx,
			`INSERT INTO agent_state (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			s.namespace, key, value, time.Now().UTC())
		if lastErr == nil {
			return nil
		}
		if !isSQLiteLocked(lastErr) {
			return fmt.Errorf("writing state key %q: %w", key, lastErr)
		}
	}
	return fmt.Errorf("writing state key %q: %w", key, lastErr)
}

// Delete removes a key. Missing keys are not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM agent_state WHERE namespace = ? AND key = ?`, s.namespace, key)
	if err != nil {
		return fmt.Errorf("deleting state key %q: %w", key, err)
	}
	return nil
}

func sleepRetry(ctx context.Context, attempt int) error {
	backoff := time.Duration(attempt*attempt) * 20 * time.Millisecond
	if backoff > 250*time.Millisecond {
		backoff = 250 * time.Millisecond
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-time.After(backoff):
		return nil
	}
}

// isSQLiteLocked reports whether the error is SQLite busy/locked (retryable).
func isSQLiteLocked(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "locked")
}
