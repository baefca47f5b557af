package strategy

import (
	"github.com/shopspring/decimal"

	"backtest-service/internal/model"
)

// MACrossStrategy is the reference moving-average crossover strategy: signal
// long while the fast MA is above the slow MA, signal exit while it is below.
// The engine holds at most one position, so repeated buy signals collapse
// into a single entry at the golden cross (or at the first bar the window
// fills already long-biased).
type MACrossStrategy struct {
	fastPeriod int
	slowPeriod int
	closes     []decimal.Decimal
}

func NewMACrossStrategy(fastPeriod, slowPeriod int) *MACrossStrategy {
	return &MACrossStrategy{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
		closes:     make([]decimal.Decimal, 0, slowPeriod),
	}
}

func (s *MACrossStrategy) Name() string {
	return "ma_cross"
}

func (s *MACrossStrategy) OnCandle(candle model.Candle) Action {
	s.closes = append(s.closes, candle.Close)
	if len(s.closes) > s.slowPeriod {
		s.closes = s.closes[1:]
	}
	if len(s.closes) < s.slowPeriod {
		return ActionHold
	}

	fast := s.movingAverage(s.fastPeriod)
	slow := s.movingAverage(s.slowPeriod)

	if fast.GreaterThan(slow) {
		return ActionBuy
	}
	if fast.LessThan(slow) {
		return ActionSell
	}
	return ActionHold
}

// movingAverage computes the simple average of the last period closes.
func (s *MACrossStrategy) movingAverage(period int) decimal.Decimal {
	sum := decimal.Zero
	for i := len(s.closes) - period; i < len(s.closes); i++ {
		sum = sum.Add(s.closes[i])
	}
	return sum.Div(decimal.NewFromInt(int64(period)))
}
