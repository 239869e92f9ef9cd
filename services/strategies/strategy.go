package strategies

import (
	"errors"
	"fmt"
	"sort"

	"market-scanner/config"
	"market-scanner/models"
)

// ErrUnknownStrategy marks a strategy name the registry cannot resolve. The
// pipeline treats it as fatal before any fetch happens.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy evaluates one instrument's enriched series and emits scored
// signals. Evaluation only ever looks at the latest bar; historical bars feed
// the indicators, not the decision.
type Strategy interface {
	Name() string
	Describe() string
	// MinPeriods is the minimum series length below which the strategy
	// stays silent.
	MinPeriods() int
	DetectSignals(symbol string, bars []models.InstrumentBar) []models.Signal
}

// Registry holds the built-in strategies keyed by name.
type Registry struct {
	byName map[string]Strategy
}

// NewRegistry builds the registry from strategy configuration.
func NewRegistry(cfg *config.ScanConfig) *Registry {
	r := &Registry{byName: make(map[string]Strategy)}
	for _, s := range []Strategy{
		NewTurtle(cfg.Turtle, cfg.Scan.AccountValue),
		NewBNF(cfg.BNF),
		NewCoiledSpring(cfg.CoiledSpring),
	} {
		r.byName[s.Name()] = s
	}
	return r
}

// Names lists registered strategy names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns one strategy by name.
func (r *Registry) Get(name string) (Strategy, error) {
	s, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStrategy, name)
	}
	return s, nil
}

// Resolve maps names to strategies, failing on the first unknown name. An
// empty input selects every registered strategy.
func (r *Registry) Resolve(names []string) ([]Strategy, error) {
	if len(names) == 0 {
		names = r.Names()
	}
	out := make([]Strategy, 0, len(names))
	for _, name := range names {
		s, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// fval unwraps a nullable indicator with a fallback for missing values.
func fval(p *float64, fallback float64) float64 {
	if p == nil {
		return fallback
	}
	return *p
}
