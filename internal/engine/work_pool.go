package engine

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"backtest-service/internal/infrastructure"
	"backtest-service/internal/model"
)

// ErrSlotWait marks a run that was abandoned while queued for a slot, before
// any engine work started.
var ErrSlotWait = errors.New("no execution slot became free")

// Pool bounds the number of simulations executing at once. Each run is an
// independent unit of work with no shared mutable state, so the only
// coordination needed is the concurrency limit itself.
type Pool struct {
	slots  chan struct{}
	logger *zap.Logger
}

func NewPool(maxConcurrent int, logger *zap.Logger) *Pool {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Pool{
		slots:  make(chan struct{}, maxConcurrent),
		logger: logger,
	}
}

// Do runs fn once a slot is free. Waiting respects ctx, so a caller that
// cancels or times out while queued never starts its run.
func (p *Pool) Do(ctx context.Context, fn func(ctx context.Context) (*model.BacktestResults, error)) (*model.BacktestResults, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		p.logger.Warn("backtest gave up waiting for a run slot", zap.Error(ctx.Err()))
		return nil, fmt.Errorf("%w: %w", ErrSlotWait, ctx.Err())
	}
	infrastructure.ActiveRuns.Inc()
	defer func() {
		infrastructure.ActiveRuns.Dec()
		<-p.slots
	}()

	return fn(ctx)
}
