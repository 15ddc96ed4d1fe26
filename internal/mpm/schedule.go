package mpm

import (
	"math"

	"github.com/kamstrup/intmap"
)

type block struct {
	bx, by   int
	maxSpeed float64
	maxWave  float64
	level    int
}

// scheduler assigns every particle a time level from the block of the grid
// it sits in. Blocks are created on demand, so empty regions cost nothing.
type scheduler struct {
	cfg      Config
	invDx    float64
	size     int
	stride   int
	maxLevel int

	index   *intmap.Map[int64, int]
	blocks  []block
	blockOf []int
	hist    []int
}

func newScheduler(cfg Config) *scheduler {
	size := cfg.blockSize()
	return &scheduler{
		cfg:      cfg,
		invDx:    1 / cfg.Dx(),
		size:     size,
		stride:   cfg.Res.X/size + 1,
		maxLevel: cfg.MaxLevel(),
		index:    intmap.New[int64, int](64),
		hist:     make([]int, cfg.MaxLevel()+1),
	}
}

func (s *scheduler) key(bx, by int) int64 {
	return int64(by)*int64(s.stride) + int64(bx)
}

func (s *scheduler) lookup(bx, by int) (int, bool) {
	if bx < 0 || by < 0 || bx >= s.stride {
		return 0, false
	}
	return s.index.Get(s.key(bx, by))
}

// update rebuilds the block table from the particles and assigns block levels.
func (s *scheduler) update(particles []Particle) {
	s.index.Clear()
	s.blocks = s.blocks[:0]
	if cap(s.blockOf) < len(particles) {
		s.blockOf = make([]int, len(particles))
	}
	s.blockOf = s.blockOf[:len(particles)]

	for i := range particles {
		p := &particles[i]
		bx := int(p.X.X*s.invDx) / s.size
		by := int(p.X.Y*s.invDx) / s.size
		k := s.key(bx, by)
		idx, ok := s.index.Get(k)
		if !ok {
			idx = len(s.blocks)
			s.blocks = append(s.blocks, block{bx: bx, by: by})
			s.index.Put(k, idx)
		}
		b := &s.blocks[idx]
		b.maxSpeed = math.Max(b.maxSpeed, p.V.Len())
		b.maxWave = math.Max(b.maxWave, p.Material.WaveSpeed(p))
		s.blockOf[i] = idx
	}

	minLevel := s.maxLevel
	for i := range s.blocks {
		b := &s.blocks[i]
		b.level = s.levelFor(b.maxSpeed, b.maxWave)
		minLevel = min(minLevel, b.level)
	}

	if !s.cfg.Async || s.cfg.ForceSync() {
		for i := range s.blocks {
			s.blocks[i].level = minLevel
		}
		return
	}
	s.smooth()
}

func (s *scheduler) levelFor(speed, wave float64) int {
	dx := 1 / s.invDx
	dt := math.Inf(1)
	if speed > 0 {
		dt = s.cfg.EffectiveCFL() * dx / speed
	}
	if wave > 0 {
		dt = math.Min(dt, s.cfg.strengthMul()*dx/wave)
	}
	if math.IsInf(dt, 1) {
		return s.maxLevel
	}
	l := int(math.Floor(math.Log2(dt / s.cfg.BaseDeltaT)))
	if l < 0 {
		return 0
	}
	return min(l, s.maxLevel)
}

// smooth lowers block levels until neighbouring blocks differ by at most
// one level.
func (s *scheduler) smooth() {
	for changed := true; changed; {
		changed = false
		for i := range s.blocks {
			b := &s.blocks[i]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					if dx == 0 && dy == 0 {
						continue
					}
					n, ok := s.lookup(b.bx+dx, b.by+dy)
					if !ok {
						continue
					}
					if l := s.blocks[n].level + 1; l < b.level {
						b.level = l
						changed = true
					}
				}
			}
		}
	}
}

// reschedule hands out block levels. Particles updated at the last tick
// get a fresh next tick; pending particles are only ever pulled earlier.
func (s *scheduler) reschedule(particles []Particle, clock, frameEnd int64) {
	clear(s.hist)
	for i := range particles {
		p := &particles[i]
		level := s.blocks[s.blockOf[i]].level
		if p.NextTick <= p.LastTick {
			p.Level = level
			p.NextTick = min(nextAligned(p.LastTick, level), frameEnd)
		} else if level < p.Level {
			p.Level = level
			p.NextTick = min(p.NextTick, nextAligned(clock, level), frameEnd)
		}
		s.hist[p.Level]++
	}
}

// nextAligned is the first multiple of 2^level strictly after tick.
func nextAligned(tick int64, level int) int64 {
	return (tick>>level + 1) << level
}

func (s *scheduler) histogram() []int {
	out := make([]int, len(s.hist))
	copy(out, s.hist)
	return out
}
