package experiment

import (
	"context"
	"sync"

	"github.com/san-kum/snowsim/internal/config"
	"github.com/san-kum/snowsim/internal/mpm"
)

// Ensemble runs several scenarios concurrently, one simulator each.
type Ensemble struct {
	scenarios []*config.Scenario
}

func NewEnsemble(scenarios ...*config.Scenario) *Ensemble {
	return &Ensemble{scenarios: scenarios}
}

// SeedVariants clones base numRuns times with consecutive seeds.
func SeedVariants(base *config.Scenario, numRuns int, seedStart int64) []*config.Scenario {
	out := make([]*config.Scenario, numRuns)
	for i := range out {
		out[i] = base.Clone()
		out[i].Seed = seedStart + int64(i)
	}
	return out
}

func (e *Ensemble) Run(ctx context.Context) ([]*mpm.Result, error) {
	results := make([]*mpm.Result, len(e.scenarios))
	errs := make([]error, len(e.scenarios))

	var wg sync.WaitGroup
	for i, sc := range e.scenarios {
		wg.Add(1)
		go func(idx int, sc *config.Scenario) {
			defer wg.Done()

			exp, err := Build(sc)
			if err != nil {
				errs[idx] = err
				return
			}
			results[idx], errs[idx] = exp.Run(ctx)
		}(i, sc)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
