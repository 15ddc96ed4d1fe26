package mpm

import (
	"bytes"
	"context"
	"errors"
	"log"
	"math"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/snowsim/internal/vmath"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Res = vmath.Vec2i{X: 32, Y: 32}
	cfg.FrameDt = 1e-3
	cfg.BaseDeltaT = 1e-5
	cfg.SimulationTime = 5e-3
	cfg.Async = true
	cfg.Workers = 2
	cfg.Seed = 7
	return cfg
}

func newTestSim(cfg Config) *Simulator {
	s, err := New(cfg)
	Expect(err).NotTo(HaveOccurred())
	s.SetLogger(nil)
	return s
}

type nanMaterial struct{ Jelly }

func (nanMaterial) Stress(*Particle) vmath.Mat2 {
	return vmath.Scalar(math.NaN())
}

var _ = Describe("Simulator", func() {
	var (
		ctx context.Context
		cfg Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = testConfig()
	})

	Describe("New", func() {
		It("rejects an invalid configuration", func() {
			cfg.BaseDeltaT = 0
			_, err := New(cfg)
			Expect(err).To(MatchError(ErrConfig))
		})

		It("rejects a frame that is not a whole number of ticks", func() {
			cfg.FrameDt = 1.5e-5
			_, err := New(cfg)
			Expect(err).To(MatchError(ErrConfig))
		})
	})

	Describe("emission", func() {
		It("fills a disc with pre-compressed particles", func() {
			s := newTestSim(cfg)
			n, err := s.AddParticlesSphere(vmath.V(0.5, 0.5), 0.1, "ep", ParticleOptions{
				MaterialOptions: MaterialOptions{Compression: 0.8},
				Velocity:        vmath.V(1, 0),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeNumerically(">", 20))
			Expect(s.NumParticles()).To(Equal(n))

			vol0 := s.Dx() * s.Dx() / DefaultPerCell / 0.64
			for _, p := range s.Particles() {
				Expect(p.X.Dist(vmath.V(0.5, 0.5))).To(BeNumerically("<=", 0.1))
				Expect(p.Fe).To(Equal(vmath.Identity()))
				Expect(p.Jp).To(BeNumerically("~", 0.64, 1e-12))
				Expect(p.Vol0).To(BeNumerically("~", vol0, 1e-15))
				Expect(p.V).To(Equal(vmath.V(1, 0)))
				Expect(p.Material.Name()).To(Equal("ep"))
			}
		})

		It("keeps a pre-compressed snowball intact in flight", func() {
			cfg.Gravity = vmath.Vec2{}
			s := newTestSim(cfg)
			center := vmath.V(0.5, 0.5)
			_, err := s.AddParticlesSphere(center, 0.1, "ep", ParticleOptions{
				MaterialOptions: MaterialOptions{Compression: 0.8, ThetaS: 0.002},
				Velocity:        vmath.V(1, 0),
			})
			Expect(err).NotTo(HaveOccurred())

			mass := 0.0
			for _, p := range s.Particles() {
				mass += p.Mass
			}
			var last FrameInfo
			s.AddObserver(ObserverFunc(func(info FrameInfo) { last = info }))

			_, err = s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(last.KineticEnergy).To(BeNumerically("~", 0.5*mass, 1e-3*mass))

			shift := vmath.V(s.Time(), 0)
			for _, x := range s.ParticlePositions() {
				Expect(x.Dist(center.Add(shift))).To(BeNumerically("<=", 0.1+0.1*s.Dx()))
			}
		})

		It("reports bad regions and materials", func() {
			s := newTestSim(cfg)
			_, err := s.AddParticlesSphere(vmath.V(0.5, 0.5), 0, "ep", ParticleOptions{})
			Expect(err).To(MatchError(ErrInvalidRegion))

			_, err = s.AddParticlesSphere(vmath.V(5, 5), 0.1, "ep", ParticleOptions{})
			Expect(err).To(MatchError(ErrInvalidRegion))

			_, err = s.AddParticlesSphere(vmath.V(0.5, 0.5), 0.1, "mud", ParticleOptions{})
			Expect(err).To(MatchError(ErrUnknownMaterial))

			_, err = s.AddParticlesPolygon([]vmath.Vec2{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.2}}, "ep", ParticleOptions{})
			Expect(err).To(MatchError(ErrInvalidRegion))
		})

		It("skips samples inside solid", func() {
			s := newTestSim(cfg)
			ls := s.CreateLevelSet()
			Expect(ls.AddPlane(vmath.V(0, 1), 0.5)).To(Succeed())
			Expect(s.SetLevelSet(ls)).To(Succeed())

			n, err := s.AddParticlesBox(vmath.V(0.3, 0.3), vmath.V(0.7, 0.7), "jelly", ParticleOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(BeNumerically(">", 0))
			for _, x := range s.ParticlePositions() {
				Expect(x.Y).To(BeNumerically(">", 0.5-s.Dx()))
			}
		})

		It("seeds deterministically for a given seed", func() {
			a, b := newTestSim(cfg), newTestSim(cfg)
			_, err := a.AddParticlesSphere(vmath.V(0.5, 0.5), 0.1, "ep", ParticleOptions{})
			Expect(err).NotTo(HaveOccurred())
			_, err = b.AddParticlesSphere(vmath.V(0.5, 0.5), 0.1, "ep", ParticleOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(a.ParticlePositions()).To(Equal(b.ParticlePositions()))
		})
	})

	Describe("events", func() {
		It("fires negative-time events before the first step", func() {
			s := newTestSim(cfg)
			s.AddEvent(-1, func(s *Simulator) error {
				_, err := s.AddParticlesSphere(vmath.V(0.5, 0.5), 0.1, "ep", ParticleOptions{})
				return err
			})
			Expect(s.PendingEvents()).To(Equal(1))
			Expect(s.Step(ctx)).To(Succeed())
			Expect(s.PendingEvents()).To(Equal(0))
			Expect(s.NumParticles()).To(BeNumerically(">", 0))
		})

		It("fires once, in order, at the first boundary past the trigger", func() {
			s := newTestSim(cfg)
			var fired []float64
			record := func(tag float64) func(*Simulator) error {
				return func(s *Simulator) error {
					fired = append(fired, tag, s.Time())
					return nil
				}
			}
			s.AddEvent(2.5e-3, record(1))
			s.AddEvent(2.5e-3, record(2))
			s.AddEvent(0, record(3))

			_, err := s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(fired).To(HaveLen(6))
			Expect(fired[0]).To(Equal(3.0))
			Expect(fired[1]).To(BeNumerically("~", 0, 1e-12))
			Expect(fired[2]).To(Equal(1.0))
			Expect(fired[3]).To(BeNumerically("~", 3e-3, 1e-9))
			Expect(fired[4]).To(Equal(2.0))
		})

		It("wraps callback failures", func() {
			s := newTestSim(cfg)
			boom := errors.New("boom")
			s.AddEvent(0, func(*Simulator) error { return boom })

			_, err := s.Run(ctx)
			var evErr *EventError
			Expect(errors.As(err, &evErr)).To(BeTrue())
			Expect(evErr.Index).To(Equal(0))
			Expect(err).To(MatchError(boom))
		})
	})

	Describe("scheduling", func() {
		addBall := func(s *Simulator, v vmath.Vec2) {
			_, err := s.AddParticlesSphere(vmath.V(0.5, 0.5), 0.12, "ep", ParticleOptions{Velocity: v})
			Expect(err).NotTo(HaveOccurred())
		}

		It("keeps the clock monotone and never lets a particle run ahead", func() {
			s := newTestSim(cfg)
			addBall(s, vmath.V(2, 0))

			last := s.Tick()
			maxDt := int64(1) << cfg.MaxLevel()
			for !s.Finished() {
				Expect(s.Step(ctx)).To(Succeed())
				Expect(s.Tick()).To(BeNumerically(">", last))
				last = s.Tick()
				for _, p := range s.Particles() {
					Expect(p.LastTick).To(BeNumerically("<=", s.Tick()))
					Expect(p.NextTick - p.LastTick).To(BeNumerically("<=", maxDt))
				}
			}
		})

		It("brings every particle up to date at frame boundaries", func() {
			s := newTestSim(cfg)
			addBall(s, vmath.V(0, -1))

			for i := 0; i < 3; i++ {
				Expect(s.AdvanceFrame(ctx)).To(Succeed())
				Expect(s.Tick()).To(Equal(int64(s.Frame()) * cfg.TicksPerFrame()))
				for _, p := range s.Particles() {
					Expect(p.LastTick).To(Equal(s.Tick()))
				}
			}
		})

		It("updates everything together in sync mode", func() {
			cfg.Async = false
			s := newTestSim(cfg)
			addBall(s, vmath.V(1, 0))

			for i := 0; i < 20 && !s.Finished(); i++ {
				Expect(s.Step(ctx)).To(Succeed())
				ps := s.Particles()
				for _, p := range ps {
					Expect(p.LastTick).To(Equal(ps[0].LastTick))
					Expect(p.Level).To(Equal(ps[0].Level))
				}
			}
		})

		It("puts every block on one level when sync is forced", func() {
			cfg.FrameDt = 1e-2
			cfg.SimulationTime = 1e-2
			cfg.DebugInput[3] = 1
			s := newTestSim(cfg)
			_, err := s.AddParticlesSphere(vmath.V(0.2, 0.5), 0.08, "jelly", ParticleOptions{Velocity: vmath.V(20, 0)})
			Expect(err).NotTo(HaveOccurred())
			_, err = s.AddParticlesSphere(vmath.V(0.8, 0.5), 0.08, "jelly", ParticleOptions{})
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 5; i++ {
				Expect(s.Step(ctx)).To(Succeed())
				ps := s.Particles()
				for _, p := range ps {
					Expect(p.Level).To(Equal(ps[0].Level))
					Expect(p.LastTick).To(Equal(s.Tick()))
				}
				Expect(s.Stats().LevelHistogram).To(ContainElement(len(ps)))
			}
		})

		It("traces scheduler iterations to the engine logger", func() {
			cfg.DebugInput[2] = 1
			s := newTestSim(cfg)
			_, err := s.AddParticlesSphere(vmath.V(0.5, 0.5), 0.1, "ep", ParticleOptions{})
			Expect(err).NotTo(HaveOccurred())

			var buf bytes.Buffer
			s.SetLogger(log.New(&buf, "", 0))
			Expect(s.Step(ctx)).To(Succeed())
			Expect(s.Step(ctx)).To(Succeed())
			Expect(buf.String()).To(HavePrefix("step 0: tick 0 -> "))
			Expect(strings.Count(buf.String(), "\n")).To(Equal(2))
			Expect(buf.String()).To(ContainSubstring("active"))
		})

		It("stays quiet without tracing", func() {
			s := newTestSim(cfg)
			_, err := s.AddParticlesSphere(vmath.V(0.5, 0.5), 0.1, "ep", ParticleOptions{})
			Expect(err).NotTo(HaveOccurred())

			var buf bytes.Buffer
			s.SetLogger(log.New(&buf, "", 0))
			Expect(s.Step(ctx)).To(Succeed())
			Expect(buf.String()).To(BeEmpty())
		})

		It("steps fast regions more often than slow ones", func() {
			cfg.FrameDt = 1e-2
			cfg.SimulationTime = 1e-2
			s := newTestSim(cfg)
			_, err := s.AddParticlesSphere(vmath.V(0.2, 0.5), 0.08, "jelly", ParticleOptions{Velocity: vmath.V(20, 0)})
			Expect(err).NotTo(HaveOccurred())
			_, err = s.AddParticlesSphere(vmath.V(0.8, 0.5), 0.08, "jelly", ParticleOptions{})
			Expect(err).NotTo(HaveOccurred())

			Expect(s.Step(ctx)).To(Succeed())
			used := 0
			for _, c := range s.Stats().LevelHistogram {
				if c > 0 {
					used++
				}
			}
			Expect(used).To(BeNumerically(">=", 2))
		})
	})

	Describe("dynamics", func() {
		It("accelerates free material with gravity", func() {
			s := newTestSim(cfg)
			_, err := s.AddParticlesSphere(vmath.V(0.5, 0.6), 0.1, "jelly", ParticleOptions{})
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Frames).To(Equal(cfg.TotalFrames()))

			mean := 0.0
			for _, p := range s.Particles() {
				mean += p.V.Y
			}
			mean /= float64(s.NumParticles())
			Expect(mean).To(BeNumerically("~", cfg.Gravity.Y*s.Time(), 0.1*math.Abs(cfg.Gravity.Y*s.Time())))
		})

		DescribeTable("conserves momentum of free pre-strained material",
			func(async bool) {
				cfg.Res = vmath.Vec2i{X: 64, Y: 32}
				cfg.FrameDt = 2e-3
				cfg.SimulationTime = 2e-3
				cfg.Async = async
				s := newTestSim(cfg)
				v0 := vmath.V(1, 0)
				_, err := s.AddParticlesBox(vmath.V(0.55, 0.4), vmath.V(0.75, 0.6), "ep", ParticleOptions{Velocity: v0})
				Expect(err).NotTo(HaveOccurred())
				_, err = s.AddParticlesBox(vmath.V(0.75, 0.4), vmath.V(1.2, 0.6), "jelly", ParticleOptions{Velocity: v0})
				Expect(err).NotTo(HaveOccurred())
				for i := range s.particles {
					s.particles[i].Fe = vmath.Scalar(0.9)
				}

				levels := map[int]bool{}
				for !s.Finished() {
					Expect(s.Step(ctx)).To(Succeed())
					for _, p := range s.particles {
						levels[p.Level] = true
					}
				}
				if async {
					Expect(len(levels)).To(BeNumerically(">=", 2))
				}

				var mom vmath.Vec2
				mass := 0.0
				for _, p := range s.Particles() {
					mom = mom.Add(p.V.Scale(p.Mass))
					mass += p.Mass
				}
				want := v0.Add(cfg.Gravity.Scale(s.Time()))
				mean := mom.Scale(1 / mass)
				Expect(mean.X).To(BeNumerically("~", want.X, 1e-9))
				Expect(mean.Y).To(BeNumerically("~", want.Y, 1e-9))
			},
			Entry("sync", false),
			Entry("async", true),
		)

		It("stops material at a level set boundary", func() {
			cfg.SimulationTime = 6e-2
			s := newTestSim(cfg)
			ls := s.CreateLevelSet()
			Expect(ls.AddPlane(vmath.V(0, 1), 0.2)).To(Succeed())
			Expect(s.SetLevelSet(ls)).To(Succeed())

			_, err := s.AddParticlesBox(vmath.V(0.35, 0.22), vmath.V(0.65, 0.4), "jelly", ParticleOptions{Velocity: vmath.V(0, -2)})
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			for _, x := range s.ParticlePositions() {
				Expect(x.Y).To(BeNumerically(">", 0.2-2*s.Dx()))
			}
		})

		It("reports diverging particles", func() {
			s := newTestSim(cfg)
			mat := &nanMaterial{}
			mat.lame = newLame(5e3, 0.3, 400)
			s.particles = append(s.particles, Particle{
				ID: 3, X: vmath.V(0.5, 0.5), Fe: vmath.Identity(), Jp: 1,
				Mass: 1e-3, Vol0: 1e-3, Material: mat,
			})

			_, err := s.Run(ctx)
			var simErr *SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Particle).To(Equal(3))
			Expect(err).To(MatchError(ErrUnstable))

			for _, p := range s.Particles() {
				Expect(p.LastTick).To(BeNumerically("<=", s.Tick()))
			}
			Expect(s.Step(ctx)).To(MatchError(ErrUnstable))
			Expect(s.AdvanceFrame(ctx)).To(MatchError(ErrUnstable))
		})
	})

	Describe("Run", func() {
		It("honors cancellation", func() {
			s := newTestSim(cfg)
			c, cancel := context.WithCancel(ctx)
			cancel()
			_, err := s.Run(c)
			Expect(err).To(MatchError(context.Canceled))
		})

		It("reports metrics and notifies observers", func() {
			s := newTestSim(cfg)
			_, err := s.AddParticlesSphere(vmath.V(0.5, 0.5), 0.1, "ep", ParticleOptions{})
			Expect(err).NotTo(HaveOccurred())

			var frames []int
			s.AddObserver(ObserverFunc(func(info FrameInfo) {
				frames = append(frames, info.Frame)
				Expect(info.Snapshot().Len()).To(Equal(info.Particles))
			}))
			s.AddMetric(&countMetric{})

			res, err := s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(frames).To(Equal([]int{1, 2, 3, 4, 5}))
			Expect(res.Metrics).To(HaveKeyWithValue("frames", 5.0))
			Expect(res.ParticleUpdates).To(BeNumerically(">=", int64(5*s.NumParticles())))
			Expect(s.AdvanceFrame(ctx)).To(MatchError(ErrFinished))
		})

		It("hands out independent snapshots", func() {
			s := newTestSim(cfg)
			_, err := s.AddParticlesSphere(vmath.V(0.5, 0.5), 0.1, "ep", ParticleOptions{})
			Expect(err).NotTo(HaveOccurred())

			snap := s.Snapshot()
			snap.Positions[0] = vmath.V(-1, -1)
			Expect(s.ParticlePositions()[0]).NotTo(Equal(vmath.V(-1, -1)))
		})
	})
})

type countMetric struct{ n int }

func (m *countMetric) Name() string      { return "frames" }
func (m *countMetric) Observe(FrameInfo) { m.n++ }
func (m *countMetric) Value() float64    { return float64(m.n) }
func (m *countMetric) Reset()            { m.n = 0 }
