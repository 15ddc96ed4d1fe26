package mpm

import (
	"time"

	"github.com/san-kum/snowsim/internal/vmath"
)

type Metric interface {
	Name() string
	Observe(info FrameInfo)
	Value() float64
	Reset()
}

type Observer interface {
	OnFrame(info FrameInfo)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(info FrameInfo)

func (f ObserverFunc) OnFrame(info FrameInfo) { f(info) }

// FrameInfo summarizes the simulator state at a frame boundary.
type FrameInfo struct {
	Frame          int
	Time           float64
	Steps          int64
	Updates        int64
	Particles      int
	KineticEnergy  float64
	Momentum       vmath.Vec2
	LevelHistogram []int
	MeanLevel      float64

	snapshot func() FrameSnapshot
}

// Snapshot copies the particle state of the frame. It is only valid during
// the OnFrame call.
func (f FrameInfo) Snapshot() FrameSnapshot {
	if f.snapshot == nil {
		return FrameSnapshot{Frame: f.Frame, Time: f.Time}
	}
	return f.snapshot()
}

// FrameSnapshot is an immutable copy of the particles, safe to hand to
// another goroutine.
type FrameSnapshot struct {
	Frame      int
	Time       float64
	Res        vmath.Vec2i
	Dx         float64
	Positions  []vmath.Vec2
	Velocities []vmath.Vec2
	Materials  []string
	Jp         []float64
	Levels     []int
}

func (s FrameSnapshot) Len() int { return len(s.Positions) }

// DomainSize is the physical extent covered by the snapshot.
func (s FrameSnapshot) DomainSize() vmath.Vec2 {
	return vmath.V(float64(s.Res.X)*s.Dx, float64(s.Res.Y)*s.Dx)
}

type Stats struct {
	Steps          int64
	Updates        int64
	Particles      int
	ActiveBlocks   int
	LevelHistogram []int
}

// MeanLevel is the particle-weighted average time level.
func (s Stats) MeanLevel() float64 {
	n, sum := 0, 0
	for l, c := range s.LevelHistogram {
		n += c
		sum += l * c
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

type Result struct {
	Frames          int
	Steps           int64
	ParticleUpdates int64
	Metrics         map[string]float64
	Elapsed         time.Duration
}
