package engine

import (
	"context"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"backtest-service/internal/model"
)

// SyntheticSource generates a deterministic random-walk candle series,
// seeded by symbol, for deployments without a market-data store and for
// tests. The same request always produces the same candles.
type SyntheticSource struct{}

func NewSyntheticSource() *SyntheticSource {
	return &SyntheticSource{}
}

func (s *SyntheticSource) GetCandles(_ context.Context, symbol, timeframe string, start, end time.Time) ([]model.Candle, error) {
	if !end.After(start) {
		return nil, nil
	}
	step := model.TimeframeDuration(timeframe)

	h := fnv.New64a()
	h.Write([]byte(symbol))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	price := basePrice(symbol)
	var candles []model.Candle
	for ts := start; !ts.After(end); ts = ts.Add(step) {
		drift := 0.0005 + rng.NormFloat64()*0.02
		next := price * (1 + drift)
		if next < 0.01 {
			next = 0.01
		}

		open := decimal.NewFromFloat(price)
		closePx := decimal.NewFromFloat(next)
		high := decimal.Max(open, closePx).Mul(decimal.NewFromFloat(1 + rng.Float64()*0.01))
		low := decimal.Min(open, closePx).Mul(decimal.NewFromFloat(1 - rng.Float64()*0.01))

		candles = append(candles, model.Candle{
			Symbol:    symbol,
			Timestamp: ts,
			Open:      model.RoundPrice(open),
			High:      model.RoundPrice(high),
			Low:       model.RoundPrice(low),
			Close:     model.RoundPrice(closePx),
			Volume:    decimal.NewFromFloat(1000 + rng.Float64()*9000).Round(2),
		})
		price = next
	}
	return candles, nil
}

func basePrice(symbol string) float64 {
	switch {
	case strings.HasPrefix(symbol, "BTC"):
		return 40000
	case strings.HasPrefix(symbol, "ETH"):
		return 2500
	default:
		return 100
	}
}
