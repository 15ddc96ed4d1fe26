// Package optim searches scheduler settings for the cheapest stable run.
package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/snowsim/internal/config"
	"github.com/san-kum/snowsim/internal/experiment"
)

var (
	ErrUnknownParam = errors.New("optim: unknown parameter")
	ErrNoTrials     = errors.New("optim: no successful trial")
)

// setters maps tunable names to scenario fields.
var setters = map[string]func(*config.Scenario, float64){
	"cfl": func(s *config.Scenario, v float64) {
		// the debug input takes precedence over the plain field
		s.CFL = v
		s.DebugInput[1] = int(math.Round(v * 100))
	},
	"strength_dt_mul": func(s *config.Scenario, v float64) { s.StrengthDtMul = v },
	"max_level":       func(s *config.Scenario, v float64) { s.DebugInput[0] = int(v) },
	"grid_block_size": func(s *config.Scenario, v float64) { s.GridBlockSize = int(v) },
}

// Tunables lists the parameter names a search can vary.
func Tunables() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type Param struct {
	Name   string
	Values []float64
}

// Trial is one evaluated combination. Err is set when the run failed, for
// example by going unstable.
type Trial struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	params []Param
	metric string
}

func NewGridSearch(metric string, params ...Param) (*GridSearch, error) {
	for _, p := range params {
		if _, ok := setters[p.Name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownParam, p.Name)
		}
		if len(p.Values) == 0 {
			return nil, fmt.Errorf("optim: no values for %q", p.Name)
		}
	}
	return &GridSearch{params: params, metric: metric}, nil
}

// Search runs every combination on a copy of base, one after another, and
// returns the trial with the lowest metric together with all trials.
func (g *GridSearch) Search(ctx context.Context, base *config.Scenario) (Trial, []Trial, error) {
	var trials []Trial
	if err := g.searchRecursive(ctx, base, 0, map[string]float64{}, &trials); err != nil {
		return Trial{}, trials, err
	}

	best := Trial{Value: math.Inf(1)}
	found := false
	for _, t := range trials {
		if t.Err == nil && t.Value < best.Value {
			best, found = t, true
		}
	}
	if !found {
		return Trial{}, trials, ErrNoTrials
	}
	return best, trials, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, base *config.Scenario, depth int, current map[string]float64, trials *[]Trial) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.params) {
		*trials = append(*trials, g.evaluate(ctx, base, current))
		return nil
	}

	p := g.params[depth]
	for _, val := range p.Values {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[p.Name] = val

		if err := g.searchRecursive(ctx, base, depth+1, next, trials); err != nil {
			return err
		}
	}
	return nil
}

func (g *GridSearch) evaluate(ctx context.Context, base *config.Scenario, params map[string]float64) Trial {
	t := Trial{Params: params, Value: math.NaN()}

	sc := base.Clone()
	for name, v := range params {
		setters[name](sc, v)
	}
	exp, err := experiment.Build(sc)
	if err != nil {
		t.Err = err
		return t
	}
	result, err := exp.Run(ctx)
	if err != nil {
		t.Err = err
		return t
	}
	v, ok := result.Metrics[g.metric]
	if !ok {
		t.Err = fmt.Errorf("optim: metric %q not recorded", g.metric)
		return t
	}
	t.Value = v
	return t
}
