// Package storage persists backtest results. The Store abstraction lets the
// service run against an in-memory map in a single process or a durable
// Postgres table without changing its contract.
package storage

import (
	"context"
	"errors"

	"backtest-service/internal/model"
)

// ErrNotFound is returned when no result exists for a backtest ID.
var ErrNotFound = errors.New("backtest not found")

// Store is the addressable result store. Implementations must be safe for
// concurrent use; results are retained until explicitly deleted.
type Store interface {
	Save(ctx context.Context, results *model.BacktestResults) error
	Get(ctx context.Context, backtestID string) (*model.BacktestResults, error)
	List(ctx context.Context, limit int) ([]model.BacktestSummary, error)
	Delete(ctx context.Context, backtestID string) error
}
