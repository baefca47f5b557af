// Package strategy defines the per-bar signal callback contract the
// simulation engine drives. A strategy receives candles one at a time in
// timestamp order and may only use bars it has already seen; the engine owns
// all position state and ignores entry signals while a position is open.
package strategy

import (
	"backtest-service/internal/model"
)

// Action is the signal a strategy emits for one bar.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Strategy is fed candles bar by bar and emits entry/exit signals.
type Strategy interface {
	Name() string
	OnCandle(candle model.Candle) Action
}
