package mpm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/san-kum/snowsim/internal/compute"
	"github.com/san-kum/snowsim/internal/levelset"
	"github.com/san-kum/snowsim/internal/vmath"
)

const (
	particleChunk = 1024
	nodeChunk     = 4096
)

// Simulator advances MPM particles through frames. It is not safe for
// concurrent use; hand Snapshot results to other goroutines instead.
type Simulator struct {
	cfg   Config
	dx    float64
	invDx float64

	particles []Particle
	nextID    int
	rng       *rand.Rand
	ls        *levelset.LevelSet
	logger    *log.Logger
	backend   compute.Backend

	grid     *Grid
	pool     *bufferPool
	partials []*gridBuffer
	mu       sync.Mutex
	active   []int
	sched    *scheduler

	tick       int64
	frame      int
	frameBegun bool
	steps      int64
	updates    int64
	frameSteps int64
	frameUpds  int64

	events    []event
	metrics   []Metric
	observers []Observer

	// failure is the first divergence. Particle state is partly advanced
	// past it, so every later Step returns it.
	failure error
}

func New(cfg Config) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.GridBlockSize <= 0 {
		cfg.GridBlockSize = DefaultGridBlockSize
	}

	backend := compute.GetBackend()
	if cfg.Workers > 0 {
		backend = compute.NewCPUBackend(cfg.Workers)
	}

	dx := cfg.Dx()
	grid := newGrid(cfg.Res, dx)
	return &Simulator{
		cfg:     cfg,
		dx:      dx,
		invDx:   1 / dx,
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		logger:  log.Default(),
		backend: backend,
		grid:    grid,
		pool:    newBufferPool(grid.len()),
		sched:   newScheduler(cfg),
	}, nil
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// SetLogger redirects engine logging. A nil logger discards it.
func (s *Simulator) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	s.logger = l
}

func (s *Simulator) Config() Config { return s.cfg }
func (s *Simulator) Dx() float64    { return s.dx }
func (s *Simulator) Frame() int     { return s.frame }
func (s *Simulator) Tick() int64    { return s.tick }

// Time is the simulated time in seconds.
func (s *Simulator) Time() float64 {
	return float64(s.tick) * s.cfg.BaseDeltaT
}

func (s *Simulator) Finished() bool {
	return s.frame >= s.cfg.TotalFrames()
}

func (s *Simulator) NumParticles() int { return len(s.particles) }

// Particles returns a copy of the particle state.
func (s *Simulator) Particles() []Particle {
	out := make([]Particle, len(s.particles))
	copy(out, s.particles)
	return out
}

func (s *Simulator) ParticlePositions() []vmath.Vec2 {
	out := make([]vmath.Vec2, len(s.particles))
	for i := range s.particles {
		out[i] = s.particles[i].X
	}
	return out
}

// CreateLevelSet returns an empty level set matching the simulation grid.
func (s *Simulator) CreateLevelSet() *levelset.LevelSet {
	return levelset.New(s.cfg.Res, s.dx)
}

func (s *Simulator) SetLevelSet(ls *levelset.LevelSet) error {
	if ls != nil && (ls.Res() != s.cfg.Res || ls.Dx() != s.dx) {
		return fmt.Errorf("%w: level set grid %dx%d does not match %dx%d",
			ErrConfig, ls.Res().X, ls.Res().Y, s.cfg.Res.X, s.cfg.Res.Y)
	}
	s.ls = ls
	return nil
}

func (s *Simulator) LevelSet() *levelset.LevelSet { return s.ls }

func (s *Simulator) Stats() Stats {
	return Stats{
		Steps:          s.steps,
		Updates:        s.updates,
		Particles:      len(s.particles),
		ActiveBlocks:   len(s.sched.blocks),
		LevelHistogram: s.sched.histogram(),
	}
}

func (s *Simulator) Snapshot() FrameSnapshot {
	n := len(s.particles)
	snap := FrameSnapshot{
		Frame:      s.frame,
		Time:       s.Time(),
		Res:        s.cfg.Res,
		Dx:         s.dx,
		Positions:  make([]vmath.Vec2, n),
		Velocities: make([]vmath.Vec2, n),
		Materials:  make([]string, n),
		Jp:         make([]float64, n),
		Levels:     make([]int, n),
	}
	for i := range s.particles {
		p := &s.particles[i]
		snap.Positions[i] = p.X
		snap.Velocities[i] = p.V
		snap.Materials[i] = p.Material.Name()
		snap.Jp[i] = p.Jp
		snap.Levels[i] = p.Level
	}
	return snap
}

func (s *Simulator) frameEndTick() int64 {
	return int64(s.frame+1) * s.cfg.TicksPerFrame()
}

// Step runs one scheduler iteration: the clock moves to the earliest due
// tick and the particles due then are updated.
func (s *Simulator) Step(ctx context.Context) error {
	if s.failure != nil {
		return s.failure
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Finished() {
		return ErrFinished
	}
	if !s.frameBegun {
		if err := s.fireEvents(); err != nil {
			return err
		}
		s.frameBegun = true
	}

	frameEnd := s.frameEndTick()
	if len(s.particles) == 0 {
		s.tick = frameEnd
		s.endFrame()
		return nil
	}

	s.sched.update(s.particles)
	s.sched.reschedule(s.particles, s.tick, frameEnd)

	target := frameEnd
	for i := range s.particles {
		target = min(target, s.particles[i].NextTick)
	}
	s.active = s.active[:0]
	for i := range s.particles {
		if s.particles[i].NextTick == target {
			s.active = append(s.active, i)
		}
	}

	if err := s.scatter(ctx, target); err != nil {
		return err
	}
	// Particles reached by gather already sit at target, so the clock
	// moves even when it stops early. A cancelled gather resumes at the
	// same tick with the remaining particles still due.
	err := s.gather(ctx, target)
	if err != nil {
		s.tick = target
		var simErr *SimulationError
		if errors.As(err, &simErr) {
			s.failure = err
		}
		return err
	}

	if s.cfg.Trace() {
		s.logger.Printf("step %d: tick %d -> %d (%d/%d active, %d blocks)",
			s.steps, s.tick, target, len(s.active), len(s.particles), len(s.sched.blocks))
	}

	s.tick = target
	s.steps++
	s.frameSteps++
	s.updates += int64(len(s.active))
	s.frameUpds += int64(len(s.active))

	if s.tick >= frameEnd {
		s.endFrame()
	}
	return nil
}

// AdvanceFrame steps until the next frame boundary.
func (s *Simulator) AdvanceFrame(ctx context.Context) error {
	if s.Finished() {
		return ErrFinished
	}
	frame := s.frame
	for s.frame == frame {
		if err := s.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{Metrics: make(map[string]float64)}

	for _, m := range s.metrics {
		m.Reset()
	}

	var runErr error
	for !s.Finished() {
		if err := s.AdvanceFrame(ctx); err != nil {
			runErr = err
			break
		}
	}

	result.Frames = s.frame
	result.Steps = s.steps
	result.ParticleUpdates = s.updates
	result.Elapsed = time.Since(start)
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	if runErr != nil && !errors.Is(runErr, ErrFinished) {
		return result, runErr
	}
	return result, nil
}

func (s *Simulator) endFrame() {
	s.frame++
	s.frameBegun = false

	info := FrameInfo{
		Frame:          s.frame,
		Time:           s.Time(),
		Steps:          s.frameSteps,
		Updates:        s.frameUpds,
		Particles:      len(s.particles),
		LevelHistogram: s.sched.histogram(),
		snapshot:       s.Snapshot,
	}
	for i := range s.particles {
		p := &s.particles[i]
		info.KineticEnergy += 0.5 * p.Mass * p.V.LenSq()
		info.Momentum = info.Momentum.Add(p.V.Scale(p.Mass))
	}
	info.MeanLevel = Stats{LevelHistogram: info.LevelHistogram}.MeanLevel()

	s.frameSteps = 0
	s.frameUpds = 0

	for _, m := range s.metrics {
		m.Observe(info)
	}
	for _, o := range s.observers {
		o.OnFrame(info)
	}
}

// scatter moves particle state onto the grid and solves the node
// velocities. Particles are only read.
func (s *Simulator) scatter(ctx context.Context, target int64) error {
	g := s.grid
	g.reset()

	err := s.backend.ParallelFor(ctx, len(s.particles), particleChunk, func(start, end int) error {
		buf := s.pool.Get()
		s.p2g(buf, start, end, target)
		s.mu.Lock()
		s.partials = append(s.partials, buf)
		s.mu.Unlock()
		return nil
	})
	defer s.releasePartials()
	if err != nil {
		return err
	}

	gravity := s.cfg.Gravity
	err = s.backend.ParallelFor(ctx, g.len(), nodeChunk, func(start, end int) error {
		for _, b := range s.partials {
			g.add(b, start, end)
		}
		g.updateRange(start, end, gravity, s.ls)
		return nil
	})
	return err
}

// gather updates the due particles from the grid. Pending particles that
// share nodes with them take their part of the exchanged momentum.
func (s *Simulator) gather(ctx context.Context, target int64) error {
	if len(s.active) < len(s.particles) {
		err := s.backend.ParallelFor(ctx, len(s.particles), particleChunk, func(start, end int) error {
			for i := start; i < end; i++ {
				if s.particles[i].NextTick != target {
					s.react(i)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return s.backend.ParallelFor(ctx, len(s.active), particleChunk, func(start, end int) error {
		for _, i := range s.active[start:end] {
			if err := s.g2p(i, target); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Simulator) releasePartials() {
	for _, b := range s.partials {
		s.pool.Put(b)
	}
	s.partials = s.partials[:0]
}

func (s *Simulator) p2g(buf *gridBuffer, start, end int, target int64) {
	g := s.grid
	stressScale := -4 * s.invDx * s.invDx
	for i := start; i < end; i++ {
		p := &s.particles[i]
		st := newStencil(p.X, s.invDx)

		active := p.NextTick == target
		dt := 0.0
		affine := p.C.Scale(p.Mass)
		if active {
			dt = float64(target-p.LastTick) * s.cfg.BaseDeltaT
			affine = affine.Add(p.Material.Stress(p).Scale(stressScale * dt * p.Vol0))
		}

		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				w := st.wx[a] * st.wy[b]
				wm := w * p.Mass
				k := g.index(st.baseX+a, st.baseY+b)
				dpos := st.offset(a, b, s.dx)

				mom := p.V.Scale(wm).Add(affine.MulVec(dpos).Scale(w))
				buf.mass[k] += wm
				buf.mom[k] = buf.mom[k].Add(mom)
				if active {
					buf.amass[k] += wm
					buf.dtMass[k] += wm * dt
				} else {
					buf.imom[k] = buf.imom[k].Add(mom)
				}
			}
		}
	}
}

// react hands a pending particle the velocity change of the nodes it
// shares. Summed over all particles the exchange carries no momentum.
func (s *Simulator) react(i int) {
	g := s.grid
	p := &s.particles[i]
	st := newStencil(p.X, s.invDx)

	var dv vmath.Vec2
	for a := 0; a < 3; a++ {
		for c := 0; c < 3; c++ {
			w := st.wx[a] * st.wy[c]
			dv = dv.Add(g.dv[g.index(st.baseX+a, st.baseY+c)].Scale(w))
		}
	}
	p.V = p.V.Add(dv)
}

func (s *Simulator) g2p(i int, target int64) error {
	g := s.grid
	p := &s.particles[i]
	dt := float64(target-p.LastTick) * s.cfg.BaseDeltaT
	st := newStencil(p.X, s.invDx)

	var v vmath.Vec2
	var b vmath.Mat2
	for a := 0; a < 3; a++ {
		for c := 0; c < 3; c++ {
			w := st.wx[a] * st.wy[c]
			gv := g.vel[g.index(st.baseX+a, st.baseY+c)]
			v = v.Add(gv.Scale(w))
			b = b.Add(vmath.Outer(gv, st.offset(a, c, s.dx)).Scale(w))
		}
	}

	p.V = v
	p.C = b.Scale(4 * s.invDx * s.invDx)
	p.Fe = vmath.Identity().Add(p.C.Scale(dt)).Mul(p.Fe)
	p.Material.Project(p)
	p.X = s.clampPosition(p.X.Add(v.Scale(dt)))
	p.LastTick = target

	if !p.valid() || math.IsNaN(p.Jp) {
		return &SimulationError{
			Step:     s.steps,
			Time:     float64(target) * s.cfg.BaseDeltaT,
			Particle: p.ID,
			Position: p.X,
			Wrapped:  ErrUnstable,
		}
	}
	return nil
}

// clampPosition keeps particles one cell away from the domain edge.
func (s *Simulator) clampPosition(x vmath.Vec2) vmath.Vec2 {
	size := s.cfg.DomainSize()
	return vmath.V(
		clamp(x.X, s.dx, size.X-s.dx),
		clamp(x.Y, s.dx, size.Y-s.dx),
	)
}
