// Package indicator computes technical indicators over candle sequences.
// Every function returns a series aligned to the input length, with leading
// invalid entries while the lookback window is not yet filled. All values at
// index i depend only on bars at or before i, so precomputed series stay safe
// for bar-by-bar replay.
package indicator

import (
	"math"

	"github.com/shopspring/decimal"

	"backtest-service/internal/model"
)

// Value is one indicator output. Valid is false while the lookback window
// has not produced a defined value yet.
type Value struct {
	Val   decimal.Decimal `json:"value"`
	Valid bool            `json:"valid"`
}

// Series is an indicator output aligned index-for-index with its input.
type Series []Value

// At returns the value at index i, invalid when out of range.
func (s Series) At(i int) Value {
	if i < 0 || i >= len(s) {
		return Value{}
	}
	return s[i]
}

func dec(i int) decimal.Decimal { return decimal.NewFromInt(int64(i)) }

// Closes extracts the close prices from a candle sequence.
func Closes(candles []model.Candle) []decimal.Decimal {
	out := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// SMA computes the simple moving average of the closes over period bars.
func SMA(closes []decimal.Decimal, period int) Series {
	out := make(Series, len(closes))
	if period <= 0 || period >= len(closes) {
		return out
	}
	sum := decimal.Zero
	for i, c := range closes {
		sum = sum.Add(c)
		if i >= period {
			sum = sum.Sub(closes[i-period])
		}
		if i >= period-1 {
			out[i] = Value{Val: sum.Div(dec(period)), Valid: true}
		}
	}
	return out
}

// EMA computes the exponential moving average, seeded with the SMA at the
// first valid index and smoothed with factor 2/(period+1).
func EMA(closes []decimal.Decimal, period int) Series {
	out := make(Series, len(closes))
	if period <= 0 || period >= len(closes) {
		return out
	}
	k := decimal.NewFromFloat(2.0 / float64(period+1))
	oneMinusK := decimal.NewFromInt(1).Sub(k)

	sum := decimal.Zero
	for i := 0; i < period; i++ {
		sum = sum.Add(closes[i])
	}
	prev := sum.Div(dec(period))
	out[period-1] = Value{Val: prev, Valid: true}

	for i := period; i < len(closes); i++ {
		prev = closes[i].Mul(k).Add(prev.Mul(oneMinusK))
		out[i] = Value{Val: prev, Valid: true}
	}
	return out
}

// RSI computes the relative strength index using Wilder smoothing. Output is
// bounded to [0,100]; a zero average loss pins the value at 100.
func RSI(closes []decimal.Decimal, period int) Series {
	out := make(Series, len(closes))
	if period <= 0 || period >= len(closes) {
		return out
	}

	avgGain := decimal.Zero
	avgLoss := decimal.Zero
	for i := 1; i <= period; i++ {
		change := closes[i].Sub(closes[i-1])
		if change.GreaterThan(decimal.Zero) {
			avgGain = avgGain.Add(change)
		} else {
			avgLoss = avgLoss.Add(change.Abs())
		}
	}
	avgGain = avgGain.Div(dec(period))
	avgLoss = avgLoss.Div(dec(period))
	out[period] = Value{Val: rsiValue(avgGain, avgLoss), Valid: true}

	pm1 := dec(period - 1)
	for i := period + 1; i < len(closes); i++ {
		change := closes[i].Sub(closes[i-1])
		gain := decimal.Zero
		loss := decimal.Zero
		if change.GreaterThan(decimal.Zero) {
			gain = change
		} else {
			loss = change.Abs()
		}
		avgGain = avgGain.Mul(pm1).Add(gain).Div(dec(period))
		avgLoss = avgLoss.Mul(pm1).Add(loss).Div(dec(period))
		out[i] = Value{Val: rsiValue(avgGain, avgLoss), Valid: true}
	}
	return out
}

func rsiValue(avgGain, avgLoss decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if avgLoss.IsZero() {
		return hundred
	}
	rs := avgGain.Div(avgLoss)
	return hundred.Sub(hundred.Div(decimal.NewFromInt(1).Add(rs)))
}

// MACD computes the MACD line EMA(fast)-EMA(slow), its EMA(signal) signal
// line, and the histogram macd-signal.
func MACD(closes []decimal.Decimal, fast, slow, signal int) (macd, signalLine, histogram Series) {
	n := len(closes)
	macd = make(Series, n)
	signalLine = make(Series, n)
	histogram = make(Series, n)

	fastEMA := EMA(closes, fast)
	slowEMA := EMA(closes, slow)
	firstValid := -1
	for i := 0; i < n; i++ {
		if fastEMA[i].Valid && slowEMA[i].Valid {
			macd[i] = Value{Val: fastEMA[i].Val.Sub(slowEMA[i].Val), Valid: true}
			if firstValid < 0 {
				firstValid = i
			}
		}
	}
	if firstValid < 0 {
		return macd, signalLine, histogram
	}

	vals := make([]decimal.Decimal, 0, n-firstValid)
	for i := firstValid; i < n; i++ {
		vals = append(vals, macd[i].Val)
	}
	sig := EMA(vals, signal)
	for j, v := range sig {
		if v.Valid {
			i := firstValid + j
			signalLine[i] = v
			histogram[i] = Value{Val: macd[i].Val.Sub(v.Val), Valid: true}
		}
	}
	return macd, signalLine, histogram
}

// Bollinger computes the Bollinger Bands: middle = SMA(period), upper and
// lower = middle +/- mult * rolling sample standard deviation. At every
// defined index upper >= middle >= lower.
func Bollinger(closes []decimal.Decimal, period int, mult decimal.Decimal) (upper, middle, lower Series) {
	n := len(closes)
	upper = make(Series, n)
	lower = make(Series, n)
	if period < 2 {
		return upper, make(Series, n), lower
	}
	middle = SMA(closes, period)
	for i := range middle {
		if !middle[i].Valid {
			continue
		}
		variance := decimal.Zero
		for j := i - period + 1; j <= i; j++ {
			d := closes[j].Sub(middle[i].Val)
			variance = variance.Add(d.Mul(d))
		}
		variance = variance.Div(dec(period - 1))
		vf, _ := variance.Float64()
		std := decimal.NewFromFloat(math.Sqrt(vf))
		band := std.Mul(mult)
		upper[i] = Value{Val: middle[i].Val.Add(band), Valid: true}
		lower[i] = Value{Val: middle[i].Val.Sub(band), Valid: true}
	}
	return upper, middle, lower
}

// ATR computes the Wilder-smoothed average true range, where the true range
// is max(high-low, |high-prevClose|, |low-prevClose|).
func ATR(candles []model.Candle, period int) Series {
	out := make(Series, len(candles))
	if period <= 0 || period >= len(candles) {
		return out
	}
	tr := make([]decimal.Decimal, len(candles))
	for i, c := range candles {
		hl := c.High.Sub(c.Low)
		if i == 0 {
			tr[i] = hl
			continue
		}
		prevClose := candles[i-1].Close
		hc := c.High.Sub(prevClose).Abs()
		lc := c.Low.Sub(prevClose).Abs()
		tr[i] = decimal.Max(hl, hc, lc)
	}

	sum := decimal.Zero
	for i := 0; i < period; i++ {
		sum = sum.Add(tr[i])
	}
	prev := sum.Div(dec(period))
	out[period-1] = Value{Val: prev, Valid: true}
	pm1 := dec(period - 1)
	for i := period; i < len(candles); i++ {
		prev = prev.Mul(pm1).Add(tr[i]).Div(dec(period))
		out[i] = Value{Val: prev, Valid: true}
	}
	return out
}

// Stochastic computes %K = 100*(close-lowestLow)/(highestHigh-lowestLow) over
// kPeriod bars and %D as the dPeriod simple average of %K. A flat window
// (highest == lowest) pins %K to the 50 midpoint.
func Stochastic(candles []model.Candle, kPeriod, dPeriod int) (k, d Series) {
	n := len(candles)
	k = make(Series, n)
	d = make(Series, n)
	if kPeriod <= 0 || kPeriod >= n || dPeriod <= 0 {
		return k, d
	}
	hundred := decimal.NewFromInt(100)
	for i := kPeriod - 1; i < n; i++ {
		lowest := candles[i-kPeriod+1].Low
		highest := candles[i-kPeriod+1].High
		for j := i - kPeriod + 2; j <= i; j++ {
			if candles[j].Low.LessThan(lowest) {
				lowest = candles[j].Low
			}
			if candles[j].High.GreaterThan(highest) {
				highest = candles[j].High
			}
		}
		spread := highest.Sub(lowest)
		if spread.IsZero() {
			k[i] = Value{Val: decimal.NewFromInt(50), Valid: true}
			continue
		}
		k[i] = Value{Val: hundred.Mul(candles[i].Close.Sub(lowest)).Div(spread), Valid: true}
	}

	for i := kPeriod - 1 + dPeriod - 1; i < n; i++ {
		sum := decimal.Zero
		for j := i - dPeriod + 1; j <= i; j++ {
			sum = sum.Add(k[j].Val)
		}
		d[i] = Value{Val: sum.Div(dec(dPeriod)), Valid: true}
	}
	return k, d
}

// OBV computes on-balance volume: a running sum adding volume on rising
// closes, subtracting on falling closes and unchanged on ties. Defined from
// the first bar.
func OBV(candles []model.Candle) Series {
	out := make(Series, len(candles))
	if len(candles) == 0 {
		return out
	}
	obv := decimal.Zero
	out[0] = Value{Val: obv, Valid: true}
	for i := 1; i < len(candles); i++ {
		switch {
		case candles[i].Close.GreaterThan(candles[i-1].Close):
			obv = obv.Add(candles[i].Volume)
		case candles[i].Close.LessThan(candles[i-1].Close):
			obv = obv.Sub(candles[i].Volume)
		}
		out[i] = Value{Val: obv, Valid: true}
	}
	return out
}
