package mpm

import (
	"fmt"
	"math"

	"github.com/san-kum/snowsim/internal/vmath"
)

const (
	DefaultMaxLevel      = 16
	DefaultGridBlockSize = 8
	DefaultCFL           = 0.5
	DefaultStrengthDtMul = 0.3
)

type Config struct {
	Res            vmath.Vec2i
	SimulationTime float64
	FrameDt        float64
	BaseDeltaT     float64
	Async          bool

	// DebugInput tunes the scheduler:
	//   [0] maximum time level (0 means DefaultMaxLevel)
	//   [1] CFL number in hundredths (0 means Config.CFL)
	//   [2] non-zero traces every scheduler iteration
	//   [3] non-zero forces every block onto the minimum level
	DebugInput [4]int

	Gravity       vmath.Vec2
	CFL           float64
	StrengthDtMul float64
	GridBlockSize int
	Workers       int
	Seed          int64
}

func DefaultConfig() Config {
	return Config{
		Res:            vmath.Vec2i{X: 320, Y: 180},
		SimulationTime: 2,
		FrameDt:        2e-2,
		BaseDeltaT:     1e-6,
		Gravity:        vmath.V(0, -10),
		CFL:            DefaultCFL,
		StrengthDtMul:  DefaultStrengthDtMul,
		GridBlockSize:  DefaultGridBlockSize,
	}
}

func (c Config) Validate() error {
	if c.Res.X < 4 || c.Res.Y < 4 {
		return fmt.Errorf("%w: resolution must be at least 4x4, got %dx%d", ErrConfig, c.Res.X, c.Res.Y)
	}
	if c.SimulationTime <= 0 {
		return fmt.Errorf("%w: simulation time must be positive, got %g", ErrConfig, c.SimulationTime)
	}
	if c.BaseDeltaT <= 0 {
		return fmt.Errorf("%w: base delta t must be positive, got %g", ErrConfig, c.BaseDeltaT)
	}
	if c.FrameDt < c.BaseDeltaT {
		return fmt.Errorf("%w: frame dt %g is shorter than base delta t %g", ErrConfig, c.FrameDt, c.BaseDeltaT)
	}
	ticks := c.FrameDt / c.BaseDeltaT
	if math.Abs(ticks-math.Round(ticks)) > 1e-6*ticks {
		return fmt.Errorf("%w: frame dt %g is not a whole number of base steps", ErrConfig, c.FrameDt)
	}
	if c.CFL < 0 || c.StrengthDtMul < 0 {
		return fmt.Errorf("%w: cfl and strength multipliers must not be negative", ErrConfig)
	}
	for i, v := range c.DebugInput {
		if v < 0 {
			return fmt.Errorf("%w: debug input [%d] is negative", ErrConfig, i)
		}
	}
	return nil
}

// Dx is the grid spacing. The domain is one unit tall.
func (c Config) Dx() float64 { return 1 / float64(c.Res.Y) }

// DomainSize is the physical extent of the simulation domain.
func (c Config) DomainSize() vmath.Vec2 {
	return vmath.V(float64(c.Res.X)*c.Dx(), 1)
}

func (c Config) TicksPerFrame() int64 {
	return int64(math.Round(c.FrameDt / c.BaseDeltaT))
}

func (c Config) TotalFrames() int {
	return int(math.Ceil(c.SimulationTime/c.FrameDt - 1e-9))
}

// MaxLevel is the largest usable time level. A step never spans more than
// one frame.
func (c Config) MaxLevel() int {
	level := c.DebugInput[0]
	if level <= 0 {
		level = DefaultMaxLevel
	}
	frameLevel := int(math.Floor(math.Log2(float64(c.TicksPerFrame()))))
	if level > frameLevel {
		level = frameLevel
	}
	if level < 0 {
		level = 0
	}
	return level
}

func (c Config) EffectiveCFL() float64 {
	if c.DebugInput[1] > 0 {
		return float64(c.DebugInput[1]) / 100
	}
	if c.CFL <= 0 {
		return DefaultCFL
	}
	return c.CFL
}

func (c Config) strengthMul() float64 {
	if c.StrengthDtMul <= 0 {
		return DefaultStrengthDtMul
	}
	return c.StrengthDtMul
}

func (c Config) blockSize() int {
	if c.GridBlockSize <= 0 {
		return DefaultGridBlockSize
	}
	return c.GridBlockSize
}

func (c Config) Trace() bool     { return c.DebugInput[2] != 0 }
func (c Config) ForceSync() bool { return c.DebugInput[3] != 0 }
