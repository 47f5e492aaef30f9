// Package registry is the deduplication authority: the append-only set
// of item identifiers this agent has ever claimed. An identifier in the
// registry is never offered as a candidate again — including orphaned
// claims whose execution failed after commit.
package registry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	clubotel "github.com/clawclub/clawclub/internal/otel"
)

var tracer = clubotel.Tracer("github.com/clawclub/clawclub/internal/registry")

const schema = `
CREATE TABLE IF NOT EXISTS claimed_items (
    item_id TEXT PRIMARY KEY,
    pool TEXT NOT NULL,
    claimed_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_claimed_pool ON claimed_items(pool);
CREATE INDEX IF NOT EXISTS idx_claimed_at ON claimed_items(claimed_at);
`

// Registry persists claimed item identifiers in SQLite.
type Registry struct {
	db *sql.DB
}

// Claim is one registry row.
type Claim struct {
	ItemID    string
	Pool      string
	ClaimedAt time.Time
}

// Open opens (or creates) the claims database.
func Open(dbPath string) (*Registry, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening claims database: %w", err)
	}
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("creating claims schema: %w", err)
	}
	return &Registry{db: db}, nil
}

// Close releases the database connection.
func (r *Registry) Close() error {
	return r.db.Close()
}

// Has reports whether the identifier was ever claimed.
func (r *Registry) Has(ctx context.Context, itemID string) (bool, error) {
	ctx, span := tracer.Start(ctx, "registry.has",
		trace.WithAttributes(attribute.String("item_id", itemID)))
	defer span.End()

	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claimed_items WHERE item_id = ?`, itemID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking claimed item %s: %w", itemID, err)
	}
	return n > 0, nil
}

// Add records the identifier as claimed. Idempotent; re-adding an
// existing identifier is not an error.
func (r *Registry) Add(ctx context.Context, itemID, pool string) error {
	ctx, span := tracer.Start(ctx, "registry.add",
		trace.WithAttributes(
			attribute.String("item_id", itemID),
			attribute.String("pool", pool),
		))
	defer span.End()

	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO claimed_items (item_id, pool, claimed_at) VALUES (?, ?, ?)`,
		itemID, pool, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("recording claim for %s: %w", itemID, err)
	}
	return nil
}

// Count returns the number of claimed identifiers.
func (r *Registry) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM claimed_items`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting claims: %w", err)
	}
	return n, nil
}

// List returns claims newest-first, up to limit (0 = all).
func (r *Registry) List(ctx context.Context, limit int) ([]Claim, error) {
	query := `SELECT item_id, pool, claimed_at FROM claimed_items ORDER BY claimed_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	defer rows.Close()

	var out []Claim
	for rows.Next() {
		var c Claim
		if err := rows.Scan(&c.ItemID, &c.Pool, &c.ClaimedAt); err != nil {
			continue
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Prune deletes claims older than retentionDays and returns the number
// removed. The registry grows without bound otherwise; pruning is an
// explicit operator action (clawclub claims prune), never implicit,
// because a pruned identifier becomes claimable again.
func (r *Registry) Prune(ctx context.Context, retentionDays int) (int64, error) {
	ctx, span := tracer.Start(ctx, "registry.prune",
		trace.WithAttributes(attribute.Int("retention_days", retentionDays)))
	defer span.End()

	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM claimed_items WHERE claimed_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning claims: %w", err)
	}
	affected, _ := result.RowsAffected()
	span.SetAttributes(attribute.Int64("claims.pruned", affected))
	return affected, nil
}
