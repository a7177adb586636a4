package history

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS search_history (
    id         BIGSERIAL PRIMARY KEY,
    query      TEXT NOT NULL,
    query_key  TEXT NOT NULL,
    exact      BOOLEAN NOT NULL,
    hits       INTEGER NOT NULL,
    searched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS search_history_searched_at_idx ON search_history (searched_at DESC);
`

// PostgresStore persists history in the search_history table.
type PostgresStore struct {
	db     *postgres.Client
	logger *slog.Logger
}

func NewPostgresStore(db *postgres.Client) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: slog.Default().With("component", "history-store"),
	}
}

// EnsureSchema creates the table and index on first use.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	applied, err := s.db.Migrate(ctx, "001_search_history", schema)
	if err != nil {
		return err
	}
	if applied {
		s.logger.Info("search_history schema created")
	}
	return nil
}

func (s *PostgresStore) Add(ctx context.Context, e Entry) error {
	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO search_history (query, query_key, exact, hits, searched_at) VALUES ($1, $2, $3, $4, $5)`,
		e.Query, e.Key, e.Exact, e.Hits, e.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n < 1 {
		n = 100
	}
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT query, query_key, exact, hits, searched_at FROM search_history ORDER BY searched_at DESC, id DESC LIMIT $1`,
		n,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, n)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Query, &e.Key, &e.Exact, &e.Hits, &e.At); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history rows: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	res, err := s.db.DB.ExecContext(ctx, `DELETE FROM search_history`)
	if err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Info("history cleared", "rows", n)
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
