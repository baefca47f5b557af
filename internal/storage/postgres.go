package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"backtest-service/internal/model"
)

// PostgresStore persists one row per backtest with the full results
// serialized as JSON, keyed by backtest_id and indexed by completion time
// for the history listing.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the backtests table and indexes when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS backtests (
			backtest_id  TEXT PRIMARY KEY,
			symbol       TEXT NOT NULL,
			status       TEXT NOT NULL,
			created_at   TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL,
			payload      JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS backtests_completed_at_idx ON backtests (completed_at DESC);`)
	if err != nil {
		return fmt.Errorf("failed to ensure backtests schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, results *model.BacktestResults) error {
	payload, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO backtests (backtest_id, symbol, status, created_at, completed_at, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (backtest_id) DO UPDATE SET status = $3, completed_at = $5, payload = $6`,
		results.BacktestID, results.Config.Symbol, string(results.Status),
		results.CreatedAt, results.CompletedAt, payload)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, backtestID string) (*model.BacktestResults, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM backtests WHERE backtest_id = $1`, backtestID).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var results model.BacktestResults
	if err := json.Unmarshal(payload, &results); err != nil {
		return nil, fmt.Errorf("failed to decode stored results: %w", err)
	}
	return &results, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]model.BacktestSummary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM backtests ORDER BY completed_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := make([]model.BacktestSummary, 0, limit)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var results model.BacktestResults
		if err := json.Unmarshal(payload, &results); err != nil {
			return nil, fmt.Errorf("failed to decode stored results: %w", err)
		}
		summaries = append(summaries, results.Summary())
	}
	return summaries, rows.Err()
}

func (s *PostgresStore) Delete(ctx context.Context, backtestID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM backtests WHERE backtest_id = $1`, backtestID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
