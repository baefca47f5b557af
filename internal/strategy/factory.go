package strategy

import (
	"fmt"
)

// Names returns the registered strategy identifiers.
func Names() []string {
	return []string{"ma_cross", "rsi"}
}

// New builds a strategy by type name. Missing parameters fall back to the
// documented defaults; unknown parameter keys and out-of-range values are an
// error.
func New(strategyType string, config map[string]any) (Strategy, error) {
	switch strategyType {
	case "", "ma_cross":
		if err := allowKeys("ma_cross", config, "fast_period", "slow_period"); err != nil {
			return nil, err
		}
		fast := intParam(config, "fast_period", 20)
		slow := intParam(config, "slow_period", 50)
		if fast < 1 || slow < 2 || fast >= slow {
			return nil, fmt.Errorf("invalid config for ma_cross: need 1 <= fast_period < slow_period")
		}
		return NewMACrossStrategy(fast, slow), nil
	case "rsi":
		if err := allowKeys("rsi", config, "rsi_period", "oversold", "overbought"); err != nil {
			return nil, err
		}
		period := intParam(config, "rsi_period", 14)
		oversold := intParam(config, "oversold", 30)
		overbought := intParam(config, "overbought", 70)
		if period < 2 || oversold < 1 || overbought <= oversold || overbought > 99 {
			return nil, fmt.Errorf("invalid config for rsi: need rsi_period >= 2 and 1 <= oversold < overbought <= 99")
		}
		return NewRSIStrategy(period, oversold, overbought), nil
	default:
		return nil, fmt.Errorf("unknown strategy type: %s", strategyType)
	}
}

// allowKeys rejects parameter keys the strategy does not define, so a typo
// fails the request instead of silently running on defaults.
func allowKeys(strategyType string, config map[string]any, allowed ...string) error {
	for key := range config {
		known := false
		for _, a := range allowed {
			if key == a {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown parameter %q for strategy %s", key, strategyType)
		}
	}
	return nil
}

// intParam reads a numeric parameter that may arrive as float64 (JSON) or int.
func intParam(config map[string]any, key string, def int) int {
	v, ok := config[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return def
	}
}
