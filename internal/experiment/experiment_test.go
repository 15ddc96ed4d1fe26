package experiment

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/snowsim/internal/config"
)

func smallScenario(async bool) *config.Scenario {
	cfg, _ := config.GetPreset("snowball")
	cfg.Res = [2]int{64, 36}
	cfg.SimulationTime = 4e-3
	cfg.FrameDt = 2e-3
	cfg.BaseDeltaT = 1e-5
	cfg.Async = async
	return cfg
}

func TestBuild_Snowball(t *testing.T) {
	exp, err := Build(smallScenario(true))
	if err != nil {
		t.Fatal(err)
	}

	s := exp.Simulator()
	if s.LevelSet() == nil {
		t.Fatal("expected level set from scenario")
	}
	if s.PendingEvents() != 1 {
		t.Fatalf("expected 1 pending event, got %d", s.PendingEvents())
	}

	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s.NumParticles() == 0 {
		t.Error("expected the snowball to be emitted")
	}
	if res.Frames != 2 {
		t.Errorf("expected 2 frames, got %d", res.Frames)
	}
	for _, name := range []string{"kinetic_energy", "momentum_drift", "mean_level", "updates_per_frame"} {
		if _, ok := res.Metrics[name]; !ok {
			t.Errorf("missing metric %s", name)
		}
	}
	for _, x := range s.ParticlePositions() {
		if x.X < 0.7-0.11 || x.X > 0.72+0.11+0.01 {
			t.Errorf("particle at %v left the emission area too early", x)
			break
		}
	}
}

func TestBuild_Invalid(t *testing.T) {
	cfg := smallScenario(true)
	cfg.Events[0].Emit.Shape = "cone"
	if _, err := Build(cfg); !errors.Is(err, config.ErrInvalidScenario) {
		t.Errorf("expected ErrInvalidScenario, got %v", err)
	}
}

func TestBuild_EventError(t *testing.T) {
	cfg := smallScenario(true)
	cfg.Events[0].Emit.Material = "lava"

	exp, err := Build(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := exp.Run(context.Background()); err == nil {
		t.Error("expected unknown material to fail the run")
	}
}

func TestEmit_Shapes(t *testing.T) {
	exp, err := Build(smallScenario(true))
	if err != nil {
		t.Fatal(err)
	}
	s := exp.Simulator()

	tests := []config.EmitConfig{
		{Shape: "box", Min: [2]float64{0.2, 0.2}, Max: [2]float64{0.4, 0.4}, Material: "sand"},
		{Shape: "polygon", Vertices: [][2]float64{{1.0, 0.2}, {1.3, 0.2}, {1.15, 0.5}}, Material: "jelly"},
		{Shape: "sphere", Center: [2]float64{1.5, 0.6}, Radius: 0.08, Material: "water"},
	}
	for _, e := range tests {
		n, err := Emit(s, e)
		if err != nil {
			t.Errorf("%s: %v", e.Shape, err)
		}
		if n == 0 {
			t.Errorf("%s: no particles", e.Shape)
		}
	}
	if _, err := Emit(s, config.EmitConfig{Shape: "cone"}); err == nil {
		t.Error("expected error for unknown shape")
	}
}

func TestEnsemble_AsyncAgainstSync(t *testing.T) {
	results, err := NewEnsemble(smallScenario(true), smallScenario(false)).Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Frames != 2 {
			t.Errorf("run %d: expected 2 frames, got %d", i, r.Frames)
		}
	}
}

func TestSeedVariants(t *testing.T) {
	vs := SeedVariants(smallScenario(true), 3, 10)
	for i, v := range vs {
		if v.Seed != int64(10+i) {
			t.Errorf("variant %d seed = %d", i, v.Seed)
		}
	}
	vs[0].Events[0].Emit.Radius = 1
	if vs[1].Events[0].Emit.Radius == 1 {
		t.Error("variants share event storage")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if got := r.ListMaterials(); len(got) != 4 || got[0] != "ep" {
		t.Errorf("unexpected materials %v", got)
	}
	for _, name := range r.ListMaterials() {
		if _, err := r.MaterialDefaults(name); err != nil {
			t.Errorf("material %s: %v", name, err)
		}
	}
	if len(r.ListSchemes()) == 0 || len(r.ListPresets()) == 0 {
		t.Error("expected schemes and presets")
	}
}
