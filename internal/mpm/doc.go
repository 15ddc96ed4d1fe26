// Package mpm implements a 2D material point method solver for snow and
// other elasto-plastic materials.
//
// Particles carry mass, velocity, the APIC affine matrix and the elastic
// deformation gradient. Each step scatters them to a background grid
// (P2G), applies gravity and boundary conditions on the grid, and gathers
// the new velocities back (G2P) using quadratic B-spline weights.
//
//   - [Simulator]: owns particles, grid, level set and the clock
//   - [Material]: constitutive model (ep, jelly, water, sand)
//   - [Config]: resolution, frame timing and scheduling options
//
// # Example
//
//	sim, _ := mpm.New(cfg)
//	sim.AddEvent(-1, func(s *mpm.Simulator) error {
//	    _, err := s.AddParticlesSphere(vmath.V(0.72, 0.45), 0.1, "ep", opts)
//	    return err
//	})
//	ls := sim.CreateLevelSet()
//	_ = ls.AddPolygon(box, true)
//	sim.SetLevelSet(ls)
//	result, _ := sim.Run(ctx)
//
// # Asynchronous stepping
//
// With Config.Async the grid is split into blocks that each pick their own
// timestep, a power-of-two multiple of the base timestep bounded by a CFL
// and an elastic wave speed limit. Time advances in integer ticks of the
// base timestep. Particles are only updated when their block's next tick
// comes up, and every particle is brought up to date at each frame boundary.
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. Viewers running on other
// goroutines should consume [FrameSnapshot] values.
package mpm
