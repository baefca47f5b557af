package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"backtest-service/internal/model"
)

func feed(s Strategy, prices []float64) []Action {
	now := time.Now()
	out := make([]Action, len(prices))
	for i, p := range prices {
		out[i] = s.OnCandle(model.Candle{
			Close:     decimal.NewFromFloat(p),
			Timestamp: now.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

func TestMACross_GoldenAndDeathCross(t *testing.T) {
	s := NewMACrossStrategy(2, 4)

	// Flat, then a sharp rally, then a collapse. The fast MA must cross
	// above the slow MA on the way up and back below on the way down.
	actions := feed(s, []float64{100, 100, 100, 100, 100, 110, 120, 130, 100, 80, 70})

	var sawBuy, sawSell bool
	buyIdx, sellIdx := -1, -1
	for i, a := range actions {
		switch a {
		case ActionBuy:
			if !sawBuy {
				buyIdx = i
			}
			sawBuy = true
		case ActionSell:
			if sawBuy && !sawSell {
				sellIdx = i
			}
			sawSell = true
		}
	}
	assert.True(t, sawBuy, "rally should trigger a golden cross")
	assert.True(t, sawSell, "collapse should trigger a death cross")
	assert.Greater(t, sellIdx, buyIdx)
}

func TestMACross_HoldDuringWarmup(t *testing.T) {
	s := NewMACrossStrategy(2, 4)
	// No signal until slowPeriod closes are buffered.
	actions := feed(s, []float64{100, 110, 120})
	for i, a := range actions {
		assert.Equal(t, ActionHold, a, "bar %d fired before the window filled", i)
	}
}

func TestRSIStrategy_BuysOversoldSellsOverbought(t *testing.T) {
	s := NewRSIStrategy(3, 30, 70)

	// A steady decline drives the RSI to 0.
	actions := feed(s, []float64{100, 95, 90, 85, 80, 75})
	assert.Equal(t, ActionBuy, actions[len(actions)-1])

	// Reversing into a steady climb drives it back to 100.
	actions = feed(s, []float64{80, 90, 100, 110, 120})
	assert.Equal(t, ActionSell, actions[len(actions)-1])
}

func TestRSIStrategy_HoldDuringWarmup(t *testing.T) {
	s := NewRSIStrategy(5, 30, 70)
	actions := feed(s, []float64{100, 90, 80, 70, 60})
	for i, a := range actions {
		assert.Equal(t, ActionHold, a, "bar %d fired before the seed window filled", i)
	}
}

func TestNew_DefaultsAndValidation(t *testing.T) {
	s, err := New("", nil)
	assert.NoError(t, err)
	assert.Equal(t, "ma_cross", s.Name())

	s, err = New("rsi", map[string]any{"rsi_period": float64(10)})
	assert.NoError(t, err)
	assert.Equal(t, "rsi", s.Name())

	_, err = New("ma_cross", map[string]any{"fast_period": float64(50), "slow_period": float64(20)})
	assert.Error(t, err, "fast >= slow must be rejected")

	_, err = New("rsi", map[string]any{"oversold": float64(80), "overbought": float64(70)})
	assert.Error(t, err, "oversold >= overbought must be rejected")

	_, err = New("ma_cross", map[string]any{"fast_perod": float64(5)})
	assert.ErrorContains(t, err, `unknown parameter "fast_perod"`)

	_, err = New("rsi", map[string]any{"threshold": float64(50)})
	assert.ErrorContains(t, err, `unknown parameter "threshold"`)

	_, err = New("martingale", nil)
	assert.Error(t, err)
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"ma_cross", "rsi"}, Names())
}
