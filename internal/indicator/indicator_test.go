package indicator

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"backtest-service/internal/model"
)

func decimals(vals ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func candlesFromCloses(closes []decimal.Decimal) []model.Candle {
	now := time.Now()
	out := make([]model.Candle, len(closes))
	for i, c := range closes {
		out[i] = model.Candle{
			Symbol:    "BTCUSDT",
			Timestamp: now.Add(time.Duration(i) * time.Minute),
			Open:      c,
			High:      c.Add(decimal.NewFromInt(1)),
			Low:       c.Sub(decimal.NewFromInt(1)),
			Close:     c,
			Volume:    decimal.NewFromInt(100),
		}
	}
	return out
}

func TestSMA_WarmupAndValues(t *testing.T) {
	closes := decimals(10, 10, 10, 10, 10, 10)
	s := SMA(closes, 5)

	assert.Equal(t, len(closes), len(s))
	for i := 0; i < 4; i++ {
		assert.False(t, s[i].Valid, "index %d should be undefined during warmup", i)
	}
	for i := 4; i < len(s); i++ {
		assert.True(t, s[i].Valid)
		assert.True(t, s[i].Val.Equal(decimal.NewFromInt(10)), "constant series SMA must equal the constant")
	}
}

func TestSMA_RollingWindow(t *testing.T) {
	closes := decimals(1, 2, 3, 4, 5)
	s := SMA(closes, 3)

	// (1+2+3)/3, (2+3+4)/3, (3+4+5)/3
	assert.True(t, s[2].Val.Equal(decimal.NewFromInt(2)))
	assert.True(t, s[3].Val.Equal(decimal.NewFromInt(3)))
	assert.True(t, s[4].Val.Equal(decimal.NewFromInt(4)))
}

func TestSMA_PeriodAtLeastInputLength(t *testing.T) {
	closes := decimals(1, 2, 3)
	for _, period := range []int{3, 4, 0, -1} {
		s := SMA(closes, period)
		assert.Equal(t, len(closes), len(s))
		for i := range s {
			assert.False(t, s[i].Valid, "period %d must yield an all-undefined series", period)
		}
	}
}

func TestSMA_EmptyInput(t *testing.T) {
	assert.Empty(t, SMA(nil, 5))
}

func TestEMA_SeedAndSmoothing(t *testing.T) {
	closes := decimals(2, 4, 6, 8, 10)
	s := EMA(closes, 3)

	assert.False(t, s[1].Valid)
	// Seed is SMA(3) = 4 at the first valid index.
	assert.True(t, s[2].Valid)
	assert.True(t, s[2].Val.Equal(decimal.NewFromInt(4)))
	// k = 2/4 = 0.5: next value 8*0.5 + 4*0.5 = 6
	assert.True(t, s[3].Val.Equal(decimal.NewFromInt(6)))
	assert.True(t, s[4].Val.Equal(decimal.NewFromInt(8)))
}

func TestRSI_BoundsAndAllGains(t *testing.T) {
	rising := decimals(100, 101, 102, 103, 104, 105, 106, 107, 108, 109)
	s := RSI(rising, 5)

	for i := 0; i < 5; i++ {
		assert.False(t, s[i].Valid)
	}
	hundred := decimal.NewFromInt(100)
	for i := 5; i < len(s); i++ {
		assert.True(t, s[i].Valid)
		// A gains-only series pins the RSI at 100.
		assert.True(t, s[i].Val.Equal(hundred))
	}
}

func TestRSI_StaysInRange(t *testing.T) {
	closes := decimals(50, 47, 52, 49, 55, 51, 58, 54, 60, 56, 62, 57)
	s := RSI(closes, 4)

	for i, v := range s {
		if !v.Valid {
			continue
		}
		if v.Val.IsNegative() || v.Val.GreaterThan(decimal.NewFromInt(100)) {
			t.Errorf("RSI out of [0,100] at index %d: %s", i, v.Val)
		}
	}
}

func TestMACD_Alignment(t *testing.T) {
	closes := make([]decimal.Decimal, 60)
	for i := range closes {
		closes[i] = decimal.NewFromInt(int64(100 + i%7))
	}
	macd, signal, hist := MACD(closes, 12, 26, 9)

	assert.Equal(t, len(closes), len(macd))
	assert.Equal(t, len(closes), len(signal))
	assert.Equal(t, len(closes), len(hist))

	// MACD defined once the slow EMA is, signal after 9 more bars.
	assert.False(t, macd[24].Valid)
	assert.True(t, macd[25].Valid)
	assert.False(t, signal[32].Valid)
	assert.True(t, signal[33].Valid)

	for i := range hist {
		if !hist[i].Valid {
			continue
		}
		want := macd[i].Val.Sub(signal[i].Val)
		assert.True(t, hist[i].Val.Equal(want), "histogram must equal macd-signal at %d", i)
	}
}

func TestBollinger_BandOrdering(t *testing.T) {
	closes := decimals(20, 21, 19, 22, 18, 23, 20, 24, 19, 25)
	upper, middle, lower := Bollinger(closes, 5, decimal.NewFromInt(2))

	sawValid := false
	for i := range closes {
		assert.Equal(t, upper[i].Valid, middle[i].Valid)
		assert.Equal(t, lower[i].Valid, middle[i].Valid)
		if !middle[i].Valid {
			continue
		}
		sawValid = true
		assert.True(t, upper[i].Val.GreaterThanOrEqual(middle[i].Val), "upper >= middle at %d", i)
		assert.True(t, middle[i].Val.GreaterThanOrEqual(lower[i].Val), "middle >= lower at %d", i)
	}
	assert.True(t, sawValid)
}

func TestBollinger_ConstantSeriesCollapses(t *testing.T) {
	closes := decimals(10, 10, 10, 10, 10, 10)
	upper, middle, lower := Bollinger(closes, 5, decimal.NewFromInt(2))

	// Zero deviation: all three bands coincide at the constant.
	assert.True(t, upper[4].Val.Equal(middle[4].Val))
	assert.True(t, lower[4].Val.Equal(middle[4].Val))
	assert.True(t, middle[4].Val.Equal(decimal.NewFromInt(10)))
}

func TestATR_ConstantRange(t *testing.T) {
	// Every bar spans high-low = 2 with unchanged closes, so TR is 2
	// throughout and the smoothed ATR stays at 2.
	candles := candlesFromCloses(decimals(50, 50, 50, 50, 50, 50))
	s := ATR(candles, 3)

	assert.False(t, s[1].Valid)
	for i := 2; i < len(s); i++ {
		assert.True(t, s[i].Valid)
		assert.True(t, s[i].Val.Equal(decimal.NewFromInt(2)), "ATR at %d: %s", i, s[i].Val)
	}
}

func TestStochastic_RangeAndFlatWindow(t *testing.T) {
	candles := candlesFromCloses(decimals(10, 12, 11, 14, 13, 15, 12, 16))
	k, d := Stochastic(candles, 3, 2)

	assert.Equal(t, len(candles), len(k))
	assert.Equal(t, len(candles), len(d))
	assert.False(t, k[1].Valid)
	assert.True(t, k[2].Valid)
	assert.False(t, d[2].Valid)
	assert.True(t, d[3].Valid)
	for i, v := range k {
		if !v.Valid {
			continue
		}
		if v.Val.IsNegative() || v.Val.GreaterThan(decimal.NewFromInt(100)) {
			t.Errorf("%%K out of [0,100] at index %d: %s", i, v.Val)
		}
	}

	// A window with no high/low spread pins %K to the midpoint.
	flat := make([]model.Candle, 5)
	now := time.Now()
	ten := decimal.NewFromInt(10)
	for i := range flat {
		flat[i] = model.Candle{Timestamp: now.Add(time.Duration(i) * time.Minute), Open: ten, High: ten, Low: ten, Close: ten, Volume: ten}
	}
	k, _ = Stochastic(flat, 3, 2)
	assert.True(t, k[3].Val.Equal(decimal.NewFromInt(50)))
}

func TestOBV_RunningSum(t *testing.T) {
	candles := candlesFromCloses(decimals(10, 12, 12, 9, 13))
	s := OBV(candles)

	assert.True(t, s[0].Valid)
	assert.True(t, s[0].Val.Equal(decimal.Zero))
	assert.True(t, s[1].Val.Equal(decimal.NewFromInt(100)), "up close adds volume")
	assert.True(t, s[2].Val.Equal(decimal.NewFromInt(100)), "unchanged close leaves OBV as-is")
	assert.True(t, s[3].Val.Equal(decimal.Zero), "down close subtracts volume")
	assert.True(t, s[4].Val.Equal(decimal.NewFromInt(100)))
}

func TestSeries_AtOutOfRange(t *testing.T) {
	s := SMA(decimals(1, 2, 3, 4), 2)
	assert.False(t, s.At(-1).Valid)
	assert.False(t, s.At(99).Valid)
	assert.True(t, s.At(1).Valid)
}
