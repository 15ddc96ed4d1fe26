package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/snowsim/internal/mpm"
	"github.com/san-kum/snowsim/internal/vmath"
)

const (
	DefaultWidth         = 640
	DefaultColorScheme   = "snow"
	DefaultSupersampling = 2
)

var (
	ErrInvalidScenario = errors.New("config: invalid scenario")
	ErrUnknownPreset   = errors.New("config: unknown preset")
)

type Scenario struct {
	Name           string         `yaml:"name"`
	Res            [2]int         `yaml:"res"`
	SimulationTime float64        `yaml:"simulation_time"`
	FrameDt        float64        `yaml:"frame_dt"`
	BaseDeltaT     float64        `yaml:"base_delta_t"`
	Async          bool           `yaml:"async"`
	DebugInput     [4]int         `yaml:"debug_input"`
	Gravity        [2]float64     `yaml:"gravity"`
	CFL            float64        `yaml:"cfl,omitempty"`
	StrengthDtMul  float64        `yaml:"strength_dt_mul,omitempty"`
	GridBlockSize  int            `yaml:"grid_block_size,omitempty"`
	Workers        int            `yaml:"workers,omitempty"`
	Seed           int64          `yaml:"seed"`
	Events         []EventConfig  `yaml:"events"`
	LevelSet       LevelSetConfig `yaml:"levelset"`
	Window         WindowConfig   `yaml:"window"`
}

type EventConfig struct {
	Time float64    `yaml:"time"`
	Emit EmitConfig `yaml:"emit"`
}

// EmitConfig describes one particle emission. Shape selects which of the
// geometry fields are read.
type EmitConfig struct {
	Shape    string       `yaml:"shape"`
	Center   [2]float64   `yaml:"center,omitempty"`
	Radius   float64      `yaml:"radius,omitempty"`
	Min      [2]float64   `yaml:"min,omitempty"`
	Max      [2]float64   `yaml:"max,omitempty"`
	Vertices [][2]float64 `yaml:"vertices,omitempty"`
	Material string       `yaml:"material"`
	Velocity [2]float64   `yaml:"velocity,omitempty"`
	PerCell  int          `yaml:"per_cell,omitempty"`

	mpm.MaterialOptions `yaml:",inline"`
}

type LevelSetConfig struct {
	Friction float64       `yaml:"friction"`
	Shapes   []ShapeConfig `yaml:"shapes"`
}

type ShapeConfig struct {
	Type     string       `yaml:"type"`
	Inside   bool         `yaml:"inside,omitempty"`
	Vertices [][2]float64 `yaml:"vertices,omitempty"`
	Center   [2]float64   `yaml:"center,omitempty"`
	Radius   float64      `yaml:"radius,omitempty"`
	Normal   [2]float64   `yaml:"normal,omitempty"`
	Offset   float64      `yaml:"offset,omitempty"`
}

type WindowConfig struct {
	Width                 int    `yaml:"width"`
	ColorScheme           string `yaml:"color_scheme"`
	LevelSetSupersampling int    `yaml:"levelset_supersampling"`
	ShowImages            bool   `yaml:"show_images"`
	OutputDir             string `yaml:"output_dir,omitempty"`
}

func DefaultConfig() *Scenario {
	d := mpm.DefaultConfig()
	return &Scenario{
		Name:           "custom",
		Res:            [2]int{d.Res.X, d.Res.Y},
		SimulationTime: d.SimulationTime,
		FrameDt:        d.FrameDt,
		BaseDeltaT:     d.BaseDeltaT,
		Async:          true,
		Gravity:        [2]float64{d.Gravity.X, d.Gravity.Y},
		Window: WindowConfig{
			Width:                 DefaultWidth,
			ColorScheme:           DefaultColorScheme,
			LevelSetSupersampling: DefaultSupersampling,
		},
	}
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Scenario) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Marshal renders the scenario as YAML.
func (c *Scenario) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Scenario) Validate() error {
	if err := c.MPMConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	for i, ev := range c.Events {
		if err := ev.Emit.validate(); err != nil {
			return fmt.Errorf("%w: event %d: %v", ErrInvalidScenario, i, err)
		}
	}
	for i, s := range c.LevelSet.Shapes {
		if err := s.validate(); err != nil {
			return fmt.Errorf("%w: levelset shape %d: %v", ErrInvalidScenario, i, err)
		}
	}
	if c.Window.Width < 0 || c.Window.LevelSetSupersampling < 0 {
		return fmt.Errorf("%w: negative window settings", ErrInvalidScenario)
	}
	return nil
}

func (e EmitConfig) validate() error {
	switch e.Shape {
	case "sphere":
		if e.Radius <= 0 {
			return fmt.Errorf("sphere radius must be positive")
		}
	case "box":
		if e.Max[0] <= e.Min[0] || e.Max[1] <= e.Min[1] {
			return fmt.Errorf("box max must exceed min")
		}
	case "polygon":
		if len(e.Vertices) < 3 {
			return fmt.Errorf("polygon needs at least 3 vertices")
		}
	default:
		return fmt.Errorf("unknown emit shape %q", e.Shape)
	}
	if e.Material == "" {
		return fmt.Errorf("missing material")
	}
	return nil
}

func (s ShapeConfig) validate() error {
	switch s.Type {
	case "polygon":
		if len(s.Vertices) < 3 {
			return fmt.Errorf("polygon needs at least 3 vertices")
		}
	case "sphere":
		if s.Radius <= 0 {
			return fmt.Errorf("sphere radius must be positive")
		}
	case "plane":
		if s.Normal == [2]float64{} {
			return fmt.Errorf("plane normal must be non-zero")
		}
	default:
		return fmt.Errorf("unknown shape type %q", s.Type)
	}
	return nil
}

// MPMConfig converts the scenario into engine settings.
func (c *Scenario) MPMConfig() mpm.Config {
	cfg := mpm.DefaultConfig()
	cfg.Res = vmath.Vec2i{X: c.Res[0], Y: c.Res[1]}
	cfg.SimulationTime = c.SimulationTime
	cfg.FrameDt = c.FrameDt
	cfg.BaseDeltaT = c.BaseDeltaT
	cfg.Async = c.Async
	cfg.DebugInput = c.DebugInput
	cfg.Gravity = Vec(c.Gravity)
	cfg.Seed = c.Seed
	cfg.Workers = c.Workers
	if c.CFL > 0 {
		cfg.CFL = c.CFL
	}
	if c.StrengthDtMul > 0 {
		cfg.StrengthDtMul = c.StrengthDtMul
	}
	if c.GridBlockSize > 0 {
		cfg.GridBlockSize = c.GridBlockSize
	}
	return cfg
}

// ScaleResolution multiplies the grid resolution. Geometry is given in
// domain units, so the scene is unchanged.
func (c *Scenario) ScaleResolution(f float64) {
	if f <= 0 {
		return
	}
	c.Res[0] = max(4, int(float64(c.Res[0])*f+0.5))
	c.Res[1] = max(4, int(float64(c.Res[1])*f+0.5))
}

// Clone returns a deep copy.
func (c *Scenario) Clone() *Scenario {
	out := *c
	out.Events = make([]EventConfig, len(c.Events))
	for i, ev := range c.Events {
		ev.Emit.Vertices = cloneVerts(ev.Emit.Vertices)
		out.Events[i] = ev
	}
	out.LevelSet.Shapes = make([]ShapeConfig, len(c.LevelSet.Shapes))
	for i, s := range c.LevelSet.Shapes {
		s.Vertices = cloneVerts(s.Vertices)
		out.LevelSet.Shapes[i] = s
	}
	return &out
}

func cloneVerts(v [][2]float64) [][2]float64 {
	if v == nil {
		return nil
	}
	return append([][2]float64(nil), v...)
}

func Vec(v [2]float64) vmath.Vec2 { return vmath.V(v[0], v[1]) }

func Vecs(vs [][2]float64) []vmath.Vec2 {
	out := make([]vmath.Vec2, len(vs))
	for i, v := range vs {
		out[i] = Vec(v)
	}
	return out
}
