package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/snowsim/internal/config"
	"github.com/san-kum/snowsim/internal/levelset"
	"github.com/san-kum/snowsim/internal/metrics"
	"github.com/san-kum/snowsim/internal/mpm"
)

// Experiment is a simulator wired up from a scenario: emission events,
// level set and the default metrics.
type Experiment struct {
	cfg       *config.Scenario
	simulator *mpm.Simulator
}

func Build(cfg *config.Scenario) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s, err := mpm.New(cfg.MPMConfig())
	if err != nil {
		return nil, err
	}

	if len(cfg.LevelSet.Shapes) > 0 {
		ls, err := BuildLevelSet(s, cfg.LevelSet)
		if err != nil {
			return nil, err
		}
		if err := s.SetLevelSet(ls); err != nil {
			return nil, err
		}
	}

	for _, ev := range cfg.Events {
		emit := ev.Emit
		s.AddEvent(ev.Time, func(s *mpm.Simulator) error {
			_, err := Emit(s, emit)
			return err
		})
	}

	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}

	return &Experiment{cfg: cfg, simulator: s}, nil
}

// BuildLevelSet creates the boundary described by lc on the simulator grid.
func BuildLevelSet(s *mpm.Simulator, lc config.LevelSetConfig) (*levelset.LevelSet, error) {
	ls := s.CreateLevelSet()
	ls.Friction = lc.Friction
	for i, sh := range lc.Shapes {
		var err error
		switch sh.Type {
		case "polygon":
			err = ls.AddPolygon(config.Vecs(sh.Vertices), sh.Inside)
		case "sphere":
			err = ls.AddSphere(config.Vec(sh.Center), sh.Radius, sh.Inside)
		case "plane":
			err = ls.AddPlane(config.Vec(sh.Normal), sh.Offset)
		default:
			err = fmt.Errorf("unknown shape type %q", sh.Type)
		}
		if err != nil {
			return nil, fmt.Errorf("levelset shape %d: %w", i, err)
		}
	}
	return ls, nil
}

// Emit adds the particles of one emission and returns how many were added.
func Emit(s *mpm.Simulator, e config.EmitConfig) (int, error) {
	opts := mpm.ParticleOptions{
		MaterialOptions: e.MaterialOptions,
		Velocity:        config.Vec(e.Velocity),
		PerCell:         e.PerCell,
	}
	switch e.Shape {
	case "sphere":
		return s.AddParticlesSphere(config.Vec(e.Center), e.Radius, e.Material, opts)
	case "box":
		return s.AddParticlesBox(config.Vec(e.Min), config.Vec(e.Max), e.Material, opts)
	case "polygon":
		return s.AddParticlesPolygon(config.Vecs(e.Vertices), e.Material, opts)
	}
	return 0, fmt.Errorf("unknown emit shape %q", e.Shape)
}

func (e *Experiment) Run(ctx context.Context, observers ...mpm.Observer) (*mpm.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not built")
	}
	for _, o := range observers {
		e.simulator.AddObserver(o)
	}
	return e.simulator.Run(ctx)
}

func (e *Experiment) Simulator() *mpm.Simulator { return e.simulator }

func (e *Experiment) Scenario() *config.Scenario { return e.cfg }
