package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents one OHLCV bar. Candles are immutable once produced and
// must be ordered by strictly increasing timestamp within a symbol+timeframe.
type Candle struct {
	Symbol    string          `json:"symbol"`
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
}

// Supported timeframes. Bar counts per year are used to annualize
// per-bar return statistics.
var timeframes = map[string]struct {
	Duration    time.Duration
	BarsPerYear float64
}{
	"1m":  {time.Minute, 365 * 24 * 60},
	"5m":  {5 * time.Minute, 365 * 24 * 12},
	"15m": {15 * time.Minute, 365 * 24 * 4},
	"1h":  {time.Hour, 365 * 24},
	"4h":  {4 * time.Hour, 365 * 6},
	"1d":  {24 * time.Hour, 252},
	"1w":  {7 * 24 * time.Hour, 52},
}

// KnownTimeframe reports whether tf is a supported timeframe code.
func KnownTimeframe(tf string) bool {
	_, ok := timeframes[tf]
	return ok
}

// TimeframeDuration returns the bar duration for a timeframe code,
// defaulting to one day for unknown codes.
func TimeframeDuration(tf string) time.Duration {
	if t, ok := timeframes[tf]; ok {
		return t.Duration
	}
	return 24 * time.Hour
}

// BarsPerYear returns the annualization factor for a timeframe code.
func BarsPerYear(tf string) float64 {
	if t, ok := timeframes[tf]; ok {
		return t.BarsPerYear
	}
	return 252
}

// Timeframes returns the supported timeframe codes.
func Timeframes() []string {
	return []string{"1m", "5m", "15m", "1h", "4h", "1d", "1w"}
}

// pricePrecision is the single, central rounding rule for all price,
// P&L and equity arithmetic.
const pricePrecision = 8

// RoundPrice rounds a monetary value to the service-wide precision.
func RoundPrice(d decimal.Decimal) decimal.Decimal {
	return d.Round(pricePrecision)
}
