package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"backtest-service/internal/model"
)

func testConfig() model.BacktestConfig {
	return model.BacktestConfig{
		Symbol:         "BTCUSDT",
		AssetClass:     "crypto",
		Timeframe:      "1d",
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		InitialCapital: decimal.NewFromInt(10000),
		CommissionRate: decimal.NewFromFloat(0.001),
		SlippageRate:   decimal.NewFromFloat(0.0005),
		Strategy:       "ma_cross",
		StrategyParams: map[string]any{"fast_period": 2, "slow_period": 4},
	}
}

func candleSeries(prices []float64) []model.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Candle, len(prices))
	for i, p := range prices {
		px := decimal.NewFromFloat(p)
		out[i] = model.Candle{
			Symbol:    "BTCUSDT",
			Timestamp: start.Add(time.Duration(i) * 24 * time.Hour),
			Open:      px,
			High:      px.Mul(decimal.NewFromFloat(1.01)),
			Low:       px.Mul(decimal.NewFromFloat(0.99)),
			Close:     px,
			Volume:    decimal.NewFromInt(1000),
		}
	}
	return out
}

func TestSimulate_TrendProducesWinningTrade(t *testing.T) {
	// Flat base, a long rally, then a collapse: the crossover strategy
	// should catch the rally and exit on the way down.
	prices := []float64{100, 100, 100, 100, 100}
	for i := 1; i <= 20; i++ {
		prices = append(prices, 100+float64(i)*5)
	}
	for i := 1; i <= 10; i++ {
		prices = append(prices, 200-float64(i)*10)
	}
	candles := candleSeries(prices)

	results := Simulate(context.Background(), testConfig(), candles)

	assert.Equal(t, model.StatusCompleted, results.Status)
	assert.Equal(t, len(candles), len(results.EquityCurve), "one equity point per bar")
	if len(results.Trades) == 0 {
		t.Fatal("expected at least one trade")
	}

	var winners int
	for _, tr := range results.Trades {
		assert.True(t, tr.ExitTime.After(tr.EntryTime), "exit must come after entry")
		assert.Equal(t, "long", tr.Side)
		if tr.PnL.IsPositive() {
			winners++
		}
	}
	assert.Greater(t, winners, 0, "riding a rally should close at least one winner")

	for _, p := range results.EquityCurve {
		assert.True(t, p.Equity.IsPositive())
		assert.GreaterOrEqual(t, p.Drawdown, 0.0)
		assert.LessOrEqual(t, p.Drawdown, 1.0)
	}
}

func TestSimulate_RisingSeriesFrictionless(t *testing.T) {
	// With zero commission and slippage, a strictly rising series gives a
	// long-only crossover run a non-decreasing equity curve and a winner.
	cfg := testConfig()
	cfg.CommissionRate = decimal.Zero
	cfg.SlippageRate = decimal.Zero

	prices := make([]float64, 30)
	for i := range prices {
		prices[i] = 100 + float64(i)*2
	}
	results := Simulate(context.Background(), cfg, candleSeries(prices))

	assert.Equal(t, model.StatusCompleted, results.Status)
	if assert.NotEmpty(t, results.Trades) {
		assert.True(t, results.Trades[0].PnL.IsPositive(), "riding a rising series must win")
	}
	for i := 1; i < len(results.EquityCurve); i++ {
		prev := results.EquityCurve[i-1].Equity
		cur := results.EquityCurve[i].Equity
		assert.True(t, cur.GreaterThanOrEqual(prev), "equity fell at bar %d: %s -> %s", i, prev, cur)
	}
}

func TestSimulate_OpenPositionClosedAtEnd(t *testing.T) {
	// Flat then a rally that never reverses: the entry never sees a sell
	// signal, so the final bar must liquidate it.
	prices := []float64{100, 100, 100, 100, 100}
	for i := 1; i <= 15; i++ {
		prices = append(prices, 100+float64(i)*5)
	}
	results := Simulate(context.Background(), testConfig(), candleSeries(prices))

	assert.Equal(t, model.StatusCompleted, results.Status)
	if assert.NotEmpty(t, results.Trades) {
		last := results.Trades[len(results.Trades)-1]
		assert.Equal(t, "end_of_data", last.ExitReason)
	}
}

func TestSimulate_EmptyCandles(t *testing.T) {
	results := Simulate(context.Background(), testConfig(), nil)
	assert.Equal(t, model.StatusFailed, results.Status)
	assert.NotEmpty(t, results.Error)
	assert.Empty(t, results.Trades)
	assert.Empty(t, results.EquityCurve)
}

func TestSimulate_OutOfOrderCandles(t *testing.T) {
	candles := candleSeries([]float64{100, 101, 102, 103})
	candles[2].Timestamp = candles[1].Timestamp

	results := Simulate(context.Background(), testConfig(), candles)
	assert.Equal(t, model.StatusFailed, results.Status)
	assert.Contains(t, results.Error, "not strictly increasing")
}

func TestSimulate_InsufficientIndicatorHistory(t *testing.T) {
	cfg := testConfig()
	cfg.Indicators = []model.IndicatorSelection{{Name: "sma", Params: map[string]float64{"period": 50}}}

	results := Simulate(context.Background(), cfg, candleSeries([]float64{100, 101, 102, 103, 104}))
	assert.Equal(t, model.StatusFailed, results.Status)
	assert.Contains(t, results.Error, "insufficient candle history")
}

// ctxAfterBars reports Canceled (or another error) once its budget of Err
// polls is spent, simulating a caller that walks away mid-run.
type ctxAfterBars struct {
	context.Context
	remaining int
	err       error
}

func (c *ctxAfterBars) Err() error {
	if c.remaining > 0 {
		c.remaining--
		return nil
	}
	return c.err
}

func manyPrices(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i%10)
	}
	return out
}

func TestSimulate_CancelPreservesPartialOutput(t *testing.T) {
	ctx := &ctxAfterBars{Context: context.Background(), remaining: 3, err: context.Canceled}

	results := Simulate(ctx, testConfig(), candleSeries(manyPrices(100)))
	assert.Equal(t, model.StatusCancelled, results.Status)
	assert.Len(t, results.EquityCurve, 3, "three bars were processed before the cancel")
	assert.Nil(t, results.Metrics)
}

func TestSimulate_TimeoutDiscardsPartialOutput(t *testing.T) {
	ctx := &ctxAfterBars{Context: context.Background(), remaining: 3, err: context.DeadlineExceeded}

	results := Simulate(ctx, testConfig(), candleSeries(manyPrices(100)))
	assert.Equal(t, model.StatusFailed, results.Status)
	assert.Empty(t, results.Trades)
	assert.Empty(t, results.EquityCurve)
}

func TestSimulate_Deterministic(t *testing.T) {
	prices := []float64{100, 100, 100, 105, 110, 115, 110, 105, 100, 95}
	candles := candleSeries(prices)

	a := Simulate(context.Background(), testConfig(), candles)
	b := Simulate(context.Background(), testConfig(), candles)
	assert.Equal(t, a, b, "identical inputs must replay identically")
}
