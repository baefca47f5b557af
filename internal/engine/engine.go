// Package engine hosts the backtest execution engines behind a common
// contract. The local simulator replays candles bar by bar; the remote
// engine forwards the run to a hosted provider exposing the same contract.
// New engines register with the Registry without touching the service layer.
package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"backtest-service/internal/model"
)

// Type identifies an execution engine.
type Type string

const (
	TypeLocal  Type = "local"
	TypeRemote Type = "remote"
)

// ParseType resolves an engine selector sent by a caller.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "local":
		return TypeLocal, nil
	case "remote", "cloud":
		return TypeRemote, nil
	default:
		return "", fmt.Errorf("unknown engine: %s", name)
	}
}

// Engine executes one backtest run. Run returns results with a terminal
// status; it returns an error only when no meaningful results exist at all.
type Engine interface {
	Name() string
	Available() bool
	Run(ctx context.Context, cfg model.BacktestConfig) (*model.BacktestResults, error)
}

// Registry holds the registered engines keyed by type.
type Registry struct {
	engines map[Type]Engine
	def     Type
}

// NewRegistry creates a registry whose default engine is the local simulator.
func NewRegistry() *Registry {
	return &Registry{engines: make(map[Type]Engine), def: TypeLocal}
}

// Register adds or replaces an engine.
func (r *Registry) Register(t Type, e Engine) {
	r.engines[t] = e
}

// Get returns the engine for a type, or an error when it is not registered.
func (r *Registry) Get(t Type) (Engine, error) {
	e, ok := r.engines[t]
	if !ok {
		return nil, fmt.Errorf("engine not registered: %s", t)
	}
	return e, nil
}

// Default returns the default engine.
func (r *Registry) Default() (Engine, error) {
	return r.Get(r.def)
}

// Options lists the registered engines with availability, sorted by name.
func (r *Registry) Options() []model.EngineOption {
	out := make([]model.EngineOption, 0, len(r.engines))
	for t, e := range r.engines {
		out = append(out, model.EngineOption{
			Value:     string(t),
			Label:     e.Name(),
			Available: e.Available(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value < out[j].Value })
	return out
}
