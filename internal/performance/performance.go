// Package performance derives risk and performance statistics from a
// completed trade log and equity curve. Calculate is a pure function:
// identical inputs always yield identical metrics.
package performance

import (
	"math"

	"github.com/shopspring/decimal"

	"backtest-service/internal/model"
)

// UnboundedProfitFactor is reported when a run has winning trades and no
// losing trades, where the ratio has no finite value.
const UnboundedProfitFactor = math.MaxFloat64

// Calculate computes the full metrics aggregate for a finished run.
// barsPerYear annualizes the per-bar return statistics (252 for daily bars,
// 8760 for hourly, and so on).
func Calculate(trades []model.Trade, equity []model.EquityPoint, initialCapital decimal.Decimal, barsPerYear float64) model.BacktestMetrics {
	m := model.BacktestMetrics{
		NetProfit:   decimal.Zero,
		AvgWin:      decimal.Zero,
		AvgLoss:     decimal.Zero,
		LargestWin:  decimal.Zero,
		LargestLoss: decimal.Zero,
		TotalTrades: len(trades),
	}

	grossWin := decimal.Zero
	grossLoss := decimal.Zero
	totalBars := 0
	for _, t := range trades {
		m.NetProfit = m.NetProfit.Add(t.PnL)
		totalBars += t.DurationBars
		if t.PnL.GreaterThan(decimal.Zero) {
			m.WinningTrades++
			grossWin = grossWin.Add(t.PnL)
			if t.PnL.GreaterThan(m.LargestWin) {
				m.LargestWin = t.PnL
			}
		} else {
			m.LosingTrades++
			loss := t.PnL.Abs()
			grossLoss = grossLoss.Add(loss)
			if loss.GreaterThan(m.LargestLoss) {
				m.LargestLoss = loss
			}
		}
	}
	m.NetProfit = model.RoundPrice(m.NetProfit)

	if m.WinningTrades > 0 {
		m.AvgWin = model.RoundPrice(grossWin.Div(decimal.NewFromInt(int64(m.WinningTrades))))
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = model.RoundPrice(grossLoss.Div(decimal.NewFromInt(int64(m.LosingTrades))))
	}
	if len(trades) > 0 {
		m.WinRate = float64(m.WinningTrades) / float64(len(trades))
		m.AvgDurationBars = float64(totalBars) / float64(len(trades))
	}

	switch {
	case grossLoss.IsPositive():
		m.ProfitFactor, _ = grossWin.Div(grossLoss).Float64()
	case grossWin.IsPositive():
		m.ProfitFactor = UnboundedProfitFactor
	}

	if len(equity) > 0 && initialCapital.IsPositive() {
		final := equity[len(equity)-1].Equity
		ret, _ := final.Sub(initialCapital).Div(initialCapital).Float64()
		m.TotalReturn = ret
		if len(equity) > 1 {
			m.AnnualizedReturn = ret / float64(len(equity)) * barsPerYear
		}
	}

	for _, p := range equity {
		if p.Drawdown > m.MaxDrawdown {
			m.MaxDrawdown = p.Drawdown
		}
	}

	returns := barReturns(equity)
	m.SharpeRatio = sharpe(returns, barsPerYear)
	m.SortinoRatio = sortino(returns, barsPerYear)

	return m
}

// barReturns converts the equity curve into simple per-bar returns.
func barReturns(equity []model.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}
	out := make([]float64, 0, len(equity)-1)
	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev.IsZero() {
			out = append(out, 0)
			continue
		}
		r, _ := equity[i].Equity.Sub(prev).Div(prev).Float64()
		out = append(out, r)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stdDev(xs []float64, around float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sumSq float64
	for _, x := range xs {
		d := x - around
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

// sharpe annualizes mean/stddev of per-bar returns. A zero standard
// deviation yields 0, never infinity.
func sharpe(returns []float64, barsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	avg := mean(returns)
	sd := stdDev(returns, avg)
	if sd == 0 {
		return 0
	}
	return avg / sd * math.Sqrt(barsPerYear)
}

// sortino is sharpe with the denominator restricted to downside deviation.
// Zero downside yields 0.
func sortino(returns []float64, barsPerYear float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return 0
	}
	sd := stdDev(downside, mean(downside))
	if sd == 0 {
		return 0
	}
	return mean(returns) / sd * math.Sqrt(barsPerYear)
}
