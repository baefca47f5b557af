package indicator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"backtest-service/internal/model"
)

// Catalog returns the static metadata for every supported indicator.
func Catalog() []model.IndicatorMetadata {
	intParam := func(def, min, max float64, desc string) model.IndicatorParam {
		return model.IndicatorParam{Type: "int", Default: def, Min: min, Max: max, Description: desc}
	}
	return []model.IndicatorMetadata{
		{
			Name: "sma", Label: "Simple Moving Average", Category: "trend",
			Description: "Average price over N periods",
			Params:      map[string]model.IndicatorParam{"period": intParam(20, 2, 200, "Number of periods")},
		},
		{
			Name: "ema", Label: "Exponential Moving Average", Category: "trend",
			Description: "Exponentially weighted moving average",
			Params:      map[string]model.IndicatorParam{"period": intParam(12, 2, 200, "Number of periods")},
		},
		{
			Name: "rsi", Label: "Relative Strength Index", Category: "momentum",
			Description: "Momentum oscillator (0-100)",
			Params:      map[string]model.IndicatorParam{"period": intParam(14, 2, 50, "RSI period")},
		},
		{
			Name: "macd", Label: "MACD", Category: "momentum",
			Description: "Moving Average Convergence Divergence",
			Params: map[string]model.IndicatorParam{
				"fast":   intParam(12, 2, 50, "Fast EMA period"),
				"slow":   intParam(26, 2, 100, "Slow EMA period"),
				"signal": intParam(9, 2, 50, "Signal line period"),
			},
		},
		{
			Name: "bollinger", Label: "Bollinger Bands", Category: "volatility",
			Description: "Volatility bands around moving average",
			Params: map[string]model.IndicatorParam{
				"period": intParam(20, 2, 100, "MA period"),
				"std":    {Type: "float", Default: 2.0, Min: 0.5, Max: 4.0, Description: "Standard deviations"},
			},
		},
		{
			Name: "atr", Label: "Average True Range", Category: "volatility",
			Description: "Volatility indicator",
			Params:      map[string]model.IndicatorParam{"period": intParam(14, 2, 50, "ATR period")},
		},
		{
			Name: "stochastic", Label: "Stochastic Oscillator", Category: "momentum",
			Description: "Momentum oscillator comparing close to range",
			Params: map[string]model.IndicatorParam{
				"k": intParam(14, 2, 50, "%K period"),
				"d": intParam(3, 2, 20, "%D smoothing period"),
			},
		},
		{
			Name: "obv", Label: "On-Balance Volume", Category: "volume",
			Description: "Cumulative volume flow",
			Params:      map[string]model.IndicatorParam{},
		},
	}
}

// Lookup returns the catalog entry for an indicator name.
func Lookup(name string) (model.IndicatorMetadata, bool) {
	for _, m := range Catalog() {
		if m.Name == name {
			return m, true
		}
	}
	return model.IndicatorMetadata{}, false
}

// Known reports whether name is a supported indicator.
func Known(name string) bool {
	_, ok := Lookup(name)
	return ok
}

// ValidateSelection checks a selection against the catalog: an unknown
// indicator name, an unknown parameter key or a value outside the documented
// range is rejected rather than silently replaced with a default.
func ValidateSelection(sel model.IndicatorSelection) error {
	meta, ok := Lookup(sel.Name)
	if !ok {
		return fmt.Errorf("unknown indicator: %s", sel.Name)
	}
	for key, val := range sel.Params {
		p, ok := meta.Params[key]
		if !ok {
			return fmt.Errorf("unknown parameter %q for indicator %s", key, sel.Name)
		}
		if val < p.Min || val > p.Max {
			return fmt.Errorf("parameter %q for indicator %s must be between %g and %g, got %g",
				key, sel.Name, p.Min, p.Max, val)
		}
	}
	return nil
}

func param(sel model.IndicatorSelection, key string, def int) int {
	if v, ok := sel.Params[key]; ok && v > 0 {
		return int(v)
	}
	return def
}

// Compute evaluates the selected indicators over the candle sequence. The
// result maps output names (e.g. "macd_signal", "bb_upper") to aligned
// series. Unknown selections return an error.
func Compute(candles []model.Candle, selections []model.IndicatorSelection) (map[string]Series, error) {
	closes := Closes(candles)
	out := make(map[string]Series, len(selections))
	for _, sel := range selections {
		switch sel.Name {
		case "sma":
			out["sma"] = SMA(closes, param(sel, "period", 20))
		case "ema":
			out["ema"] = EMA(closes, param(sel, "period", 12))
		case "rsi":
			out["rsi"] = RSI(closes, param(sel, "period", 14))
		case "macd":
			macd, signal, hist := MACD(closes, param(sel, "fast", 12), param(sel, "slow", 26), param(sel, "signal", 9))
			out["macd"] = macd
			out["macd_signal"] = signal
			out["macd_histogram"] = hist
		case "bollinger":
			mult := decimal.NewFromFloat(2.0)
			if v, ok := sel.Params["std"]; ok && v > 0 {
				mult = decimal.NewFromFloat(v)
			}
			upper, middle, lower := Bollinger(closes, param(sel, "period", 20), mult)
			out["bb_upper"] = upper
			out["bb_middle"] = middle
			out["bb_lower"] = lower
		case "atr":
			out["atr"] = ATR(candles, param(sel, "period", 14))
		case "stochastic":
			k, d := Stochastic(candles, param(sel, "k", 14), param(sel, "d", 3))
			out["stoch_k"] = k
			out["stoch_d"] = d
		case "obv":
			out["obv"] = OBV(candles)
		default:
			return nil, fmt.Errorf("unknown indicator: %s", sel.Name)
		}
	}
	return out, nil
}
