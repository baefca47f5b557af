// Package service orchestrates backtest runs: it validates configuration,
// selects an execution engine, computes performance metrics over the run
// output, persists results and answers history and catalog queries.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"backtest-service/internal/engine"
	"backtest-service/internal/indicator"
	"backtest-service/internal/infrastructure"
	"backtest-service/internal/model"
	"backtest-service/internal/performance"
	"backtest-service/internal/storage"
	"backtest-service/internal/strategy"
)

// ValidationError rejects a request before any run is created. The API layer
// maps it to a 400 response.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// History listing bounds.
const (
	MinHistoryLimit = 1
	MaxHistoryLimit = 500
)

// Service is the backtest orchestration facade.
type Service struct {
	engines    *engine.Registry
	store      storage.Store
	pool       *engine.Pool
	events     *infrastructure.EventPublisher
	logger     *zap.Logger
	runTimeout time.Duration
}

func New(engines *engine.Registry, store storage.Store, pool *engine.Pool, events *infrastructure.EventPublisher, logger *zap.Logger, runTimeout time.Duration) *Service {
	return &Service{
		engines:    engines,
		store:      store,
		pool:       pool,
		events:     events,
		logger:     logger,
		runTimeout: runTimeout,
	}
}

// Run executes a backtest on the default engine.
func (s *Service) Run(ctx context.Context, cfg model.BacktestConfig) (*model.BacktestResults, error) {
	return s.RunWithEngine(ctx, cfg, "")
}

// RunWithEngine executes a backtest on the named engine ("" selects the
// default). The returned results always carry a terminal status; an error is
// returned only for rejected requests.
func (s *Service) RunWithEngine(ctx context.Context, cfg model.BacktestConfig, engineName string) (*model.BacktestResults, error) {
	cfg, err := s.validate(cfg)
	if err != nil {
		return nil, err
	}

	engType, eng, err := s.resolveEngine(engineName)
	if err != nil {
		return nil, err
	}

	createdAt := time.Now().UTC()
	runCtx := ctx
	var cancel context.CancelFunc
	if s.runTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.runTimeout)
		defer cancel()
	}

	results, err := s.pool.Do(runCtx, func(ctx context.Context) (*model.BacktestResults, error) {
		return eng.Run(ctx, cfg)
	})
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrSlotWait) && errors.Is(err, context.DeadlineExceeded):
			results = &model.BacktestResults{Config: cfg, Status: model.StatusFailed,
				Error: "run timed out waiting for an execution slot"}
		case errors.Is(err, engine.ErrSlotWait):
			// The run never started: the caller walked away while queued.
			results = &model.BacktestResults{Config: cfg, Status: model.StatusCancelled}
		default:
			results = &model.BacktestResults{Config: cfg, Status: model.StatusFailed, Error: err.Error()}
		}
	}

	results.BacktestID = uuid.NewString()
	if results.Engine == "" {
		results.Engine = string(engType)
	}
	results.CreatedAt = createdAt
	results.CompletedAt = time.Now().UTC()

	switch results.Status {
	case model.StatusCompleted:
		if results.Metrics == nil {
			m := performance.Calculate(results.Trades, results.EquityCurve, cfg.InitialCapital, model.BarsPerYear(cfg.Timeframe))
			results.Metrics = &m
		}
	case model.StatusFailed:
		// A failed run keeps no partial output; a cancelled one does.
		results.Trades = nil
		results.EquityCurve = nil
		results.Metrics = nil
	case model.StatusCancelled:
		results.Metrics = nil
	}

	// Persist even when the caller's context already expired.
	saveCtx, saveCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer saveCancel()
	if err := s.store.Save(saveCtx, results); err != nil {
		s.logger.Error("failed to persist backtest results",
			zap.String("backtest_id", results.BacktestID), zap.Error(err))
		return nil, fmt.Errorf("failed to persist results: %w", err)
	}
	infrastructure.StoredResults.Inc()
	infrastructure.BacktestRuns.WithLabelValues(results.Engine, string(results.Status)).Inc()
	infrastructure.RunDuration.WithLabelValues(results.Engine).Observe(results.CompletedAt.Sub(createdAt).Seconds())
	s.events.PublishRunFinished(results)

	s.logger.Info("backtest run stored",
		zap.String("backtest_id", results.BacktestID),
		zap.String("engine", results.Engine),
		zap.String("symbol", cfg.Symbol),
		zap.String("status", string(results.Status)),
	)
	return results, nil
}

// Results returns the stored results for a backtest ID.
func (s *Service) Results(ctx context.Context, backtestID string) (*model.BacktestResults, error) {
	return s.store.Get(ctx, backtestID)
}

// History lists result summaries, most recent first. The limit must lie in
// [MinHistoryLimit, MaxHistoryLimit].
func (s *Service) History(ctx context.Context, limit int) ([]model.BacktestSummary, error) {
	if limit < MinHistoryLimit || limit > MaxHistoryLimit {
		return nil, invalid("history limit must be between %d and %d", MinHistoryLimit, MaxHistoryLimit)
	}
	return s.store.List(ctx, limit)
}

// Delete removes a stored backtest.
func (s *Service) Delete(ctx context.Context, backtestID string) error {
	if err := s.store.Delete(ctx, backtestID); err != nil {
		return err
	}
	infrastructure.StoredResults.Dec()
	return nil
}

// Indicators returns the static indicator catalog.
func (s *Service) Indicators() []model.IndicatorMetadata {
	return indicator.Catalog()
}

// ConfigOptions returns the static catalog of supported asset classes,
// timeframes, engines, strategies and indicators. Read-only, no side effects.
func (s *Service) ConfigOptions() model.ConfigOptions {
	return model.ConfigOptions{
		AssetClasses: assetClasses(),
		Timeframes:   model.Timeframes(),
		Engines:      s.engines.Options(),
		Strategies:   strategyOptions(),
		Indicators:   indicator.Catalog(),
	}
}

func (s *Service) resolveEngine(name string) (engine.Type, engine.Engine, error) {
	t := engine.TypeLocal
	if name != "" {
		var err error
		t, err = engine.ParseType(name)
		if err != nil {
			return "", nil, invalid("%v", err)
		}
	}
	eng, err := s.engines.Get(t)
	if err != nil {
		return "", nil, invalid("engine %q is not registered", t)
	}
	if name != "" && !eng.Available() {
		return "", nil, invalid("engine %q is not available", name)
	}
	return t, eng, nil
}

// validate checks a config and fills defaults. It returns the normalized
// config or a ValidationError; no partial run is ever created for a
// rejected config.
func (s *Service) validate(cfg model.BacktestConfig) (model.BacktestConfig, error) {
	if cfg.Symbol == "" {
		return cfg, invalid("symbol must not be empty")
	}
	if cfg.AssetClass == "" {
		cfg.AssetClass = "crypto"
	}
	if !knownAssetClass(cfg.AssetClass) {
		return cfg, invalid("unknown asset class: %s", cfg.AssetClass)
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = "1d"
	}
	if !model.KnownTimeframe(cfg.Timeframe) {
		return cfg, invalid("unknown timeframe: %s", cfg.Timeframe)
	}
	if cfg.StartDate.IsZero() || cfg.EndDate.IsZero() {
		return cfg, invalid("start_date and end_date are required")
	}
	if !cfg.EndDate.After(cfg.StartDate) {
		return cfg, invalid("date range is empty: end_date must be after start_date")
	}
	if !cfg.InitialCapital.IsPositive() {
		return cfg, invalid("initial_capital must be positive")
	}
	if cfg.CommissionRate.IsNegative() {
		return cfg, invalid("commission_rate must not be negative")
	}
	if cfg.SlippageRate.IsNegative() {
		return cfg, invalid("slippage_rate must not be negative")
	}
	if _, err := strategy.New(cfg.Strategy, cfg.StrategyParams); err != nil {
		return cfg, invalid("%v", err)
	}
	for _, sel := range cfg.Indicators {
		if err := indicator.ValidateSelection(sel); err != nil {
			return cfg, invalid("%v", err)
		}
	}
	return cfg, nil
}

func knownAssetClass(ac string) bool {
	switch ac {
	case "crypto", "futures", "equities":
		return true
	}
	return false
}

func assetClasses() []model.AssetClassOption {
	return []model.AssetClassOption{
		{
			Value: "crypto", Label: "Cryptocurrency",
			Symbols: []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "ADAUSDT", "XRPUSDT", "BNBUSDT"},
		},
		{
			Value: "futures", Label: "Futures",
			Symbols: []string{"ES", "NQ", "YM", "RTY", "CL", "GC"},
		},
		{
			Value: "equities", Label: "Equities",
			Symbols: []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "NVDA"},
		},
	}
}

func strategyOptions() []model.StrategyOption {
	return []model.StrategyOption{
		{
			Value:       "ma_cross",
			Description: "Moving average crossover: long on golden cross, exit on death cross",
			Params: map[string]model.IndicatorParam{
				"fast_period": {Type: "int", Default: 20, Min: 5, Max: 50, Description: "Fast MA period"},
				"slow_period": {Type: "int", Default: 50, Min: 20, Max: 200, Description: "Slow MA period"},
			},
		},
		{
			Value:       "rsi",
			Description: "RSI mean reversion: long when oversold, exit when overbought",
			Params: map[string]model.IndicatorParam{
				"rsi_period": {Type: "int", Default: 14, Min: 5, Max: 30, Description: "RSI period"},
				"oversold":   {Type: "int", Default: 30, Min: 10, Max: 40, Description: "Oversold threshold"},
				"overbought": {Type: "int", Default: 70, Min: 60, Max: 90, Description: "Overbought threshold"},
			},
		},
	}
}
