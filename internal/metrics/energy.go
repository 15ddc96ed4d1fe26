package metrics

import (
	"math"

	"github.com/san-kum/snowsim/internal/mpm"
)

// KineticEnergy reports the kinetic energy of the last observed frame.
type KineticEnergy struct {
	name    string
	current float64
	peak    float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(info mpm.FrameInfo) {
	e.current = info.KineticEnergy
	e.peak = math.Max(e.peak, info.KineticEnergy)
}

func (e *KineticEnergy) Value() float64 { return e.current }

// Peak is the largest kinetic energy seen since the last reset.
func (e *KineticEnergy) Peak() float64 { return e.peak }

func (e *KineticEnergy) Reset() {
	e.current = 0
	e.peak = 0
}

// Momentum tracks the largest drift of total momentum away from the first
// observed frame, relative to that frame's magnitude when it is non-zero.
type Momentum struct {
	name     string
	seen     bool
	initial  float64
	maxDrift float64
	first    [2]float64
}

func NewMomentum() *Momentum {
	return &Momentum{name: "momentum_drift"}
}

func (m *Momentum) Name() string { return m.name }

func (m *Momentum) Observe(info mpm.FrameInfo) {
	p := info.Momentum
	if !m.seen {
		m.seen = true
		m.first = [2]float64{p.X, p.Y}
		m.initial = p.Len()
	}

	drift := math.Hypot(p.X-m.first[0], p.Y-m.first[1])
	if m.initial != 0 {
		drift /= m.initial
	}
	m.maxDrift = math.Max(m.maxDrift, drift)
}

func (m *Momentum) Value() float64 { return m.maxDrift }

func (m *Momentum) Reset() {
	m.seen = false
	m.initial = 0
	m.maxDrift = 0
	m.first = [2]float64{}
}
