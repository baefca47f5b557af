package strategy

import (
	"github.com/shopspring/decimal"

	"backtest-service/internal/model"
)

// RSIStrategy is a mean-reversion strategy: buy while the Wilder RSI is
// below the oversold threshold, sell while it is above the overbought
// threshold. The RSI is maintained incrementally, one close per bar.
type RSIStrategy struct {
	period     int
	oversold   decimal.Decimal
	overbought decimal.Decimal

	prevClose decimal.Decimal
	seen      int
	gainSum   decimal.Decimal
	lossSum   decimal.Decimal
	avgGain   decimal.Decimal
	avgLoss   decimal.Decimal
}

func NewRSIStrategy(period, oversold, overbought int) *RSIStrategy {
	return &RSIStrategy{
		period:     period,
		oversold:   decimal.NewFromInt(int64(oversold)),
		overbought: decimal.NewFromInt(int64(overbought)),
		gainSum:    decimal.Zero,
		lossSum:    decimal.Zero,
	}
}

func (s *RSIStrategy) Name() string {
	return "rsi"
}

func (s *RSIStrategy) OnCandle(candle model.Candle) Action {
	defer func() { s.prevClose = candle.Close }()

	if s.seen == 0 {
		s.seen++
		return ActionHold
	}

	change := candle.Close.Sub(s.prevClose)
	gain := decimal.Zero
	loss := decimal.Zero
	if change.GreaterThan(decimal.Zero) {
		gain = change
	} else {
		loss = change.Abs()
	}

	period := decimal.NewFromInt(int64(s.period))
	switch {
	case s.seen <= s.period:
		// Accumulate the seed averages over the first period changes.
		s.gainSum = s.gainSum.Add(gain)
		s.lossSum = s.lossSum.Add(loss)
		if s.seen == s.period {
			s.avgGain = s.gainSum.Div(period)
			s.avgLoss = s.lossSum.Div(period)
		}
	default:
		pm1 := decimal.NewFromInt(int64(s.period - 1))
		s.avgGain = s.avgGain.Mul(pm1).Add(gain).Div(period)
		s.avgLoss = s.avgLoss.Mul(pm1).Add(loss).Div(period)
	}
	s.seen++

	if s.seen <= s.period {
		return ActionHold
	}

	rsi := s.value()
	if rsi.LessThan(s.oversold) {
		return ActionBuy
	}
	if rsi.GreaterThan(s.overbought) {
		return ActionSell
	}
	return ActionHold
}

func (s *RSIStrategy) value() decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	if s.avgLoss.IsZero() {
		return hundred
	}
	rs := s.avgGain.Div(s.avgLoss)
	return hundred.Sub(hundred.Div(decimal.NewFromInt(1).Add(rs)))
}
