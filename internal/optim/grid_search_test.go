package optim

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/snowsim/internal/config"
)

func smallScenario() *config.Scenario {
	cfg, _ := config.GetPreset("snowball")
	cfg.Res = [2]int{64, 36}
	cfg.SimulationTime = 4e-3
	cfg.FrameDt = 2e-3
	cfg.BaseDeltaT = 1e-5
	return cfg
}

func TestGridSearch(t *testing.T) {
	g, err := NewGridSearch("updates_per_frame",
		Param{Name: "cfl", Values: []float64{0.3, 0.6}},
		Param{Name: "max_level", Values: []float64{2, 4}},
	)
	if err != nil {
		t.Fatal(err)
	}

	best, trials, err := g.Search(context.Background(), smallScenario())
	if err != nil {
		t.Fatal(err)
	}
	if len(trials) != 4 {
		t.Fatalf("trials = %d, want 4", len(trials))
	}
	for _, tr := range trials {
		if tr.Err != nil {
			t.Errorf("trial %v failed: %v", tr.Params, tr.Err)
			continue
		}
		if tr.Value < best.Value {
			t.Errorf("trial %v beats best %v", tr.Params, best.Params)
		}
	}
	if len(best.Params) != 2 {
		t.Errorf("best params = %v", best.Params)
	}
}

func TestGridSearchDoesNotTouchBase(t *testing.T) {
	base := smallScenario()
	g, err := NewGridSearch("updates_per_frame", Param{Name: "grid_block_size", Values: []float64{8}})
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := g.Search(context.Background(), base); err != nil {
		t.Fatal(err)
	}
	if base.GridBlockSize != 0 {
		t.Errorf("base modified: block size %d", base.GridBlockSize)
	}
}

func TestGridSearchErrors(t *testing.T) {
	if _, err := NewGridSearch("x", Param{Name: "gravity", Values: []float64{1}}); !errors.Is(err, ErrUnknownParam) {
		t.Errorf("err = %v, want ErrUnknownParam", err)
	}
	if _, err := NewGridSearch("x", Param{Name: "cfl"}); err == nil {
		t.Error("empty values should fail")
	}

	g, _ := NewGridSearch("no_such_metric", Param{Name: "cfl", Values: []float64{0.5}})
	_, trials, err := g.Search(context.Background(), smallScenario())
	if !errors.Is(err, ErrNoTrials) || len(trials) != 1 || trials[0].Err == nil {
		t.Errorf("missing metric: err=%v trials=%v", err, trials)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := g.Search(ctx, smallScenario()); !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled search err = %v", err)
	}
}

func TestTunables(t *testing.T) {
	got := Tunables()
	if len(got) != 4 || got[0] != "cfl" {
		t.Errorf("Tunables = %v", got)
	}
}
