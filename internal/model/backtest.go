package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status tracks the lifecycle of a backtest run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether a run has finished in some way.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// IndicatorSelection enables one indicator with concrete parameters for a run.
type IndicatorSelection struct {
	Name   string             `json:"name"`
	Params map[string]float64 `json:"params,omitempty"`
}

// BacktestConfig is the full input for one backtest run.
type BacktestConfig struct {
	Symbol         string               `json:"symbol"`
	AssetClass     string               `json:"asset_class"`
	Timeframe      string               `json:"timeframe"`
	StartDate      time.Time            `json:"start_date"`
	EndDate        time.Time            `json:"end_date"`
	InitialCapital decimal.Decimal      `json:"initial_capital"`
	CommissionRate decimal.Decimal      `json:"commission_rate"`
	SlippageRate   decimal.Decimal      `json:"slippage_rate"`
	Strategy       string               `json:"strategy"`
	StrategyParams map[string]any       `json:"strategy_params,omitempty"`
	Indicators     []IndicatorSelection `json:"indicators,omitempty"`
}

// Trade is one closed round trip. It is created when the engine opens a
// position and sealed when the position closes; the trade log is append-only.
type Trade struct {
	EntryTime    time.Time       `json:"entry_time"`
	ExitTime     time.Time       `json:"exit_time"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	ExitPrice    decimal.Decimal `json:"exit_price"`
	Quantity     decimal.Decimal `json:"quantity"`
	Side         string          `json:"side"`
	PnL          decimal.Decimal `json:"pnl"`
	PnLPercent   float64         `json:"pnl_percent"`
	DurationBars int             `json:"duration_bars"`
	ExitReason   string          `json:"exit_reason"`
}

// EquityPoint is the account value marked to the close of one simulated bar.
type EquityPoint struct {
	Timestamp time.Time       `json:"timestamp"`
	Equity    decimal.Decimal `json:"equity"`
	Drawdown  float64         `json:"drawdown"`
}

// BacktestMetrics aggregates risk and performance statistics over a finished
// run. It is always recomputable from {trades, equity curve, initial capital}
// and never an independent source of truth.
type BacktestMetrics struct {
	NetProfit        decimal.Decimal `json:"net_profit"`
	TotalReturn      float64         `json:"total_return"`
	AnnualizedReturn float64         `json:"annualized_return"`
	SharpeRatio      float64         `json:"sharpe_ratio"`
	SortinoRatio     float64         `json:"sortino_ratio"`
	MaxDrawdown      float64         `json:"max_drawdown"`
	ProfitFactor     float64         `json:"profit_factor"`
	WinRate          float64         `json:"win_rate"`
	TotalTrades      int             `json:"total_trades"`
	WinningTrades    int             `json:"winning_trades"`
	LosingTrades     int             `json:"losing_trades"`
	AvgWin           decimal.Decimal `json:"avg_win"`
	AvgLoss          decimal.Decimal `json:"avg_loss"`
	LargestWin       decimal.Decimal `json:"largest_win"`
	LargestLoss      decimal.Decimal `json:"largest_loss"`
	AvgDurationBars  float64         `json:"avg_duration_bars"`
}

// BacktestResults is the complete outcome of one run, immutable once the
// status is terminal. Owned exclusively by the backtest service.
type BacktestResults struct {
	BacktestID  string           `json:"backtest_id"`
	Engine      string           `json:"engine"`
	Status      Status           `json:"status"`
	Config      BacktestConfig   `json:"config"`
	Trades      []Trade          `json:"trades"`
	EquityCurve []EquityPoint    `json:"equity_curve"`
	Metrics     *BacktestMetrics `json:"metrics,omitempty"`
	Error       string           `json:"error,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt time.Time        `json:"completed_at,omitempty"`
}

// Summary returns the history listing view of the results.
func (r *BacktestResults) Summary() BacktestSummary {
	s := BacktestSummary{
		BacktestID:  r.BacktestID,
		Symbol:      r.Config.Symbol,
		AssetClass:  r.Config.AssetClass,
		Timeframe:   r.Config.Timeframe,
		Strategy:    r.Config.Strategy,
		Engine:      r.Engine,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		CompletedAt: r.CompletedAt,
	}
	if r.Metrics != nil {
		s.TotalReturn = r.Metrics.TotalReturn
		s.SharpeRatio = r.Metrics.SharpeRatio
		s.TotalTrades = r.Metrics.TotalTrades
	}
	return s
}

// BacktestSummary is the compact per-run view served by the history listing.
type BacktestSummary struct {
	BacktestID  string    `json:"backtest_id"`
	Symbol      string    `json:"symbol"`
	AssetClass  string    `json:"asset_class"`
	Timeframe   string    `json:"timeframe"`
	Strategy    string    `json:"strategy"`
	Engine      string    `json:"engine"`
	Status      Status    `json:"status"`
	TotalReturn float64   `json:"total_return"`
	SharpeRatio float64   `json:"sharpe_ratio"`
	TotalTrades int       `json:"total_trades"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at"`
}
