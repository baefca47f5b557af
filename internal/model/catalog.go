package model

// IndicatorParam describes one configurable parameter of an indicator.
type IndicatorParam struct {
	Type        string  `json:"type"`
	Default     float64 `json:"default"`
	Min         float64 `json:"min"`
	Max         float64 `json:"max"`
	Description string  `json:"description"`
}

// IndicatorMetadata is a static catalog entry describing an indicator and its
// configurable parameters. It is consumed by callers to build valid
// indicator selections; it never computes anything.
type IndicatorMetadata struct {
	Name        string                    `json:"name"`
	Label       string                    `json:"label"`
	Description string                    `json:"description"`
	Category    string                    `json:"category"`
	Params      map[string]IndicatorParam `json:"params"`
}

// AssetClassOption lists an asset class with example symbols.
type AssetClassOption struct {
	Value   string   `json:"value"`
	Label   string   `json:"label"`
	Symbols []string `json:"symbols"`
}

// EngineOption describes a selectable execution engine.
type EngineOption struct {
	Value     string `json:"value"`
	Label     string `json:"label"`
	Available bool   `json:"available"`
}

// StrategyOption describes a pluggable strategy and its parameters.
type StrategyOption struct {
	Value       string                    `json:"value"`
	Description string                    `json:"description"`
	Params      map[string]IndicatorParam `json:"params"`
}

// ConfigOptions is the static catalog served by GET /config.
type ConfigOptions struct {
	AssetClasses []AssetClassOption  `json:"asset_classes"`
	Timeframes   []string            `json:"timeframes"`
	Engines      []EngineOption      `json:"engines"`
	Strategies   []StrategyOption    `json:"strategies"`
	Indicators   []IndicatorMetadata `json:"indicators"`
}
