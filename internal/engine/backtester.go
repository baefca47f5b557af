package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"backtest-service/internal/indicator"
	"backtest-service/internal/model"
	"backtest-service/internal/strategy"
)

// CandleSource provides ordered historical candles. The market-data system
// behind it is an external collaborator.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol, timeframe string, start, end time.Time) ([]model.Candle, error)
}

// positionFraction is the share of available cash committed on entry,
// leaving room for commission.
var positionFraction = decimal.NewFromFloat(0.95)

// Backtester is the local simulation engine. It owns no per-run state:
// every Run builds a fresh simulation, so runs are safe to execute
// concurrently.
type Backtester struct {
	source CandleSource
	logger *zap.Logger
}

func NewBacktester(source CandleSource, logger *zap.Logger) *Backtester {
	return &Backtester{source: source, logger: logger}
}

func (b *Backtester) Name() string {
	return "Local Simulator"
}

func (b *Backtester) Available() bool {
	return b.source != nil
}

// Run loads the candle history and replays it through the configured
// strategy. Data and execution problems terminate the run with a Failed
// status and a reason instead of propagating an error.
func (b *Backtester) Run(ctx context.Context, cfg model.BacktestConfig) (*model.BacktestResults, error) {
	candles, err := b.source.GetCandles(ctx, cfg.Symbol, cfg.Timeframe, cfg.StartDate, cfg.EndDate)
	if err != nil {
		return failed(cfg, string(TypeLocal), fmt.Sprintf("failed to load candles: %v", err)), nil
	}
	results := Simulate(ctx, cfg, candles)
	results.Engine = string(TypeLocal)

	b.logger.Info("local backtest finished",
		zap.String("symbol", cfg.Symbol),
		zap.String("status", string(results.Status)),
		zap.Int("bars", len(candles)),
		zap.Int("trades", len(results.Trades)),
	)
	return results, nil
}

// Simulate replays candles bar by bar through the configured strategy and
// returns results with a terminal status. The cancellation signal is polled
// between bars: a cancelled run preserves its partial trade log and equity
// curve, while a timeout or failure discards them.
func Simulate(ctx context.Context, cfg model.BacktestConfig, candles []model.Candle) *model.BacktestResults {
	if len(candles) == 0 {
		return failed(cfg, "", "no candle data for the requested symbol and date range")
	}
	for i := 1; i < len(candles); i++ {
		if !candles[i].Timestamp.After(candles[i-1].Timestamp) {
			return failed(cfg, "", fmt.Sprintf("candle sequence not strictly increasing at index %d", i))
		}
	}

	strat, err := strategy.New(cfg.Strategy, cfg.StrategyParams)
	if err != nil {
		return failed(cfg, "", err.Error())
	}

	// Indicator values at index i only see bars <= i, so precomputing the
	// configured selections keeps the per-bar loop free of look-ahead.
	series, err := indicator.Compute(candles, cfg.Indicators)
	if err != nil {
		return failed(cfg, "", err.Error())
	}
	for name, s := range series {
		if !hasValid(s) {
			return failed(cfg, "", fmt.Sprintf("insufficient candle history for indicator %s", name))
		}
	}

	sim := &simulation{
		cfg:   cfg,
		strat: strat,
		cash:  cfg.InitialCapital,
		peak:  cfg.InitialCapital,
	}

	for i, candle := range candles {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return failed(cfg, "", "run exceeded its wall-clock budget")
			}
			return sim.finishCancelled()
		}
		sim.step(i, candle, i == len(candles)-1)
	}
	sim.closeAtEnd(len(candles)-1, candles[len(candles)-1])

	return &model.BacktestResults{
		Status:      model.StatusCompleted,
		Config:      cfg,
		Trades:      sim.trades,
		EquityCurve: sim.equity,
	}
}

func hasValid(s indicator.Series) bool {
	for _, v := range s {
		if v.Valid {
			return true
		}
	}
	return false
}

// failed builds a Failed result with no partial output.
func failed(cfg model.BacktestConfig, engineName, reason string) *model.BacktestResults {
	return &model.BacktestResults{
		Status: model.StatusFailed,
		Config: cfg,
		Engine: engineName,
		Error:  reason,
	}
}

// simulation is the bookkeeping for one run: cash, the single open position,
// the append-only trade log and the equity curve. One instance per run, used
// from a single goroutine.
type simulation struct {
	cfg   model.BacktestConfig
	strat strategy.Strategy

	cash            decimal.Decimal
	position        decimal.Decimal
	entryPrice      decimal.Decimal
	entryTime       time.Time
	entryBar        int
	entryCommission decimal.Decimal

	trades []model.Trade
	equity []model.EquityPoint
	peak   decimal.Decimal
}

// step processes one bar: evaluate the strategy signal, apply entries and
// exits at the bar close, then mark equity to the close. Exactly one equity
// point is appended per bar.
func (s *simulation) step(bar int, candle model.Candle, lastBar bool) {
	action := s.strat.OnCandle(candle)

	switch action {
	case strategy.ActionBuy:
		// One open position per symbol; a pending entry signal while a
		// position is open is ignored. The final bar is reserved for
		// liquidation, so no fresh entries there.
		if s.position.IsZero() && !lastBar {
			s.enter(bar, candle)
		}
	case strategy.ActionSell:
		if s.position.IsPositive() {
			s.exit(bar, candle, "signal")
		}
	}

	s.markEquity(candle)
}

// enter opens a long position at the close, slipped against the buyer, and
// charges commission on the notional.
func (s *simulation) enter(bar int, candle model.Candle) {
	one := decimal.NewFromInt(1)
	price := model.RoundPrice(candle.Close.Mul(one.Add(s.cfg.SlippageRate)))
	if !price.IsPositive() {
		return
	}
	qty := s.cash.Mul(positionFraction).Div(price)
	if !qty.IsPositive() {
		return
	}
	cost := qty.Mul(price)
	commission := model.RoundPrice(cost.Mul(s.cfg.CommissionRate))
	if s.cash.LessThan(cost.Add(commission)) {
		return
	}

	s.cash = s.cash.Sub(cost).Sub(commission)
	s.position = qty
	s.entryPrice = price
	s.entryTime = candle.Timestamp
	s.entryBar = bar
	s.entryCommission = commission
}

// exit closes the open position at the close, slipped against the seller,
// and seals the trade with commission deducted at both ends.
func (s *simulation) exit(bar int, candle model.Candle, reason string) {
	one := decimal.NewFromInt(1)
	price := model.RoundPrice(candle.Close.Mul(one.Sub(s.cfg.SlippageRate)))
	proceeds := s.position.Mul(price)
	commission := model.RoundPrice(proceeds.Mul(s.cfg.CommissionRate))

	costBasis := s.position.Mul(s.entryPrice)
	pnl := model.RoundPrice(proceeds.Sub(costBasis).Sub(s.entryCommission).Sub(commission))
	pnlPercent := 0.0
	if costBasis.IsPositive() {
		pnlPercent, _ = pnl.Div(costBasis).Float64()
	}

	s.cash = s.cash.Add(proceeds).Sub(commission)
	s.trades = append(s.trades, model.Trade{
		EntryTime:    s.entryTime,
		ExitTime:     candle.Timestamp,
		EntryPrice:   s.entryPrice,
		ExitPrice:    price,
		Quantity:     s.position,
		Side:         "long",
		PnL:          pnl,
		PnLPercent:   pnlPercent,
		DurationBars: bar - s.entryBar,
		ExitReason:   reason,
	})

	s.position = decimal.Zero
	s.entryPrice = decimal.Zero
	s.entryCommission = decimal.Zero
}

// markEquity appends the equity point for the current bar, marking any open
// position to the bar close.
func (s *simulation) markEquity(candle model.Candle) {
	equity := model.RoundPrice(s.cash.Add(s.position.Mul(candle.Close)))
	if equity.GreaterThan(s.peak) {
		s.peak = equity
	}
	drawdown := 0.0
	if s.peak.IsPositive() {
		drawdown, _ = s.peak.Sub(equity).Div(s.peak).Float64()
	}
	s.equity = append(s.equity, model.EquityPoint{
		Timestamp: candle.Timestamp,
		Equity:    equity,
		Drawdown:  drawdown,
	})
}

// closeAtEnd liquidates any position still open on the final bar and
// refreshes the final equity point.
func (s *simulation) closeAtEnd(bar int, candle model.Candle) {
	if !s.position.IsPositive() {
		return
	}
	s.exit(bar, candle, "end_of_data")
	if len(s.equity) > 0 {
		last := &s.equity[len(s.equity)-1]
		last.Equity = model.RoundPrice(s.cash)
		if last.Equity.GreaterThan(s.peak) {
			s.peak = last.Equity
		}
		if s.peak.IsPositive() {
			last.Drawdown, _ = s.peak.Sub(last.Equity).Div(s.peak).Float64()
		}
	}
}

// finishCancelled seals a cooperatively cancelled run, preserving the
// partial trade log and equity curve.
func (s *simulation) finishCancelled() *model.BacktestResults {
	return &model.BacktestResults{
		Status:      model.StatusCancelled,
		Config:      s.cfg,
		Trades:      s.trades,
		EquityCurve: s.equity,
	}
}
