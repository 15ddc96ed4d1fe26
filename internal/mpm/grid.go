package mpm

import (
	"github.com/san-kum/snowsim/internal/levelset"
	"github.com/san-kum/snowsim/internal/vmath"
)

// wallNodes is the thickness of the slip band along the domain edges.
const wallNodes = 3

// gridBuffer accumulates particle contributions. Workers fill private
// buffers that are summed into the shared grid. amass and imom split out
// the due mass and the pending momentum.
type gridBuffer struct {
	mass   []float64
	mom    []vmath.Vec2
	amass  []float64
	dtMass []float64
	imom   []vmath.Vec2
}

func newGridBuffer(n int) *gridBuffer {
	return &gridBuffer{
		mass:   make([]float64, n),
		mom:    make([]vmath.Vec2, n),
		amass:  make([]float64, n),
		dtMass: make([]float64, n),
		imom:   make([]vmath.Vec2, n),
	}
}

func (b *gridBuffer) reset() {
	clear(b.mass)
	clear(b.mom)
	clear(b.amass)
	clear(b.dtMass)
	clear(b.imom)
}

func (b *gridBuffer) len() int { return len(b.mass) }

type Grid struct {
	nx, ny int
	dx     float64
	gridBuffer
	vel []vmath.Vec2
	dv  []vmath.Vec2
}

func newGrid(res vmath.Vec2i, dx float64) *Grid {
	nx, ny := res.X+1, res.Y+1
	return &Grid{
		nx:         nx,
		ny:         ny,
		dx:         dx,
		gridBuffer: *newGridBuffer(nx * ny),
		vel:        make([]vmath.Vec2, nx*ny),
		dv:         make([]vmath.Vec2, nx*ny),
	}
}

func (g *Grid) index(i, j int) int { return j*g.nx + i }

func (g *Grid) add(b *gridBuffer, start, end int) {
	for k := start; k < end; k++ {
		if b.mass[k] == 0 {
			continue
		}
		g.mass[k] += b.mass[k]
		g.mom[k] = g.mom[k].Add(b.mom[k])
		g.amass[k] += b.amass[k]
		g.dtMass[k] += b.dtMass[k]
		g.imom[k] = g.imom[k].Add(b.imom[k])
	}
}

// updateRange turns momentum into velocity for nodes in [start, end) and
// applies gravity over each node's mass-weighted step and the boundaries.
// Pending particles only see dv, the node velocity before gravity and
// boundaries less their own mean velocity, so gravity and boundaries reach
// them at their own step.
func (g *Grid) updateRange(start, end int, gravity vmath.Vec2, ls *levelset.LevelSet) {
	for k := start; k < end; k++ {
		m := g.mass[k]
		if m <= 0 {
			g.vel[k] = vmath.Vec2{}
			g.dv[k] = vmath.Vec2{}
			continue
		}
		v := g.mom[k].Scale(1 / m)
		g.dv[k] = vmath.Vec2{}
		if im := m - g.amass[k]; im > 0 {
			g.dv[k] = v.Sub(g.imom[k].Scale(1 / im))
		}
		if g.amass[k] > 0 {
			dt := g.dtMass[k] / g.amass[k]
			v = v.Add(gravity.Scale(dt))
		}

		i, j := k%g.nx, k/g.nx
		if ls != nil && !ls.Empty() {
			v = collide(v, vmath.V(float64(i)*g.dx, float64(j)*g.dx), ls)
		}
		g.vel[k] = g.walls(v, i, j)
	}
}

func (g *Grid) walls(v vmath.Vec2, i, j int) vmath.Vec2 {
	if i < wallNodes && v.X < 0 {
		v.X = 0
	}
	if i > g.nx-1-wallNodes && v.X > 0 {
		v.X = 0
	}
	if j < wallNodes && v.Y < 0 {
		v.Y = 0
	}
	if j > g.ny-1-wallNodes && v.Y > 0 {
		v.Y = 0
	}
	return v
}

// collide projects a node velocity against the level set with Coulomb
// friction. Only approaching velocities inside solid are changed.
func collide(v, pos vmath.Vec2, ls *levelset.LevelSet) vmath.Vec2 {
	if ls.Sample(pos) >= 0 {
		return v
	}
	n := ls.Gradient(pos)
	if n.LenSq() == 0 {
		return v
	}
	vn := v.Dot(n)
	if vn >= 0 {
		return v
	}
	if ls.Friction == levelset.Sticky {
		return vmath.Vec2{}
	}

	vt := v.Sub(n.Scale(vn))
	lt := vt.Len()
	if ls.Friction <= 0 {
		return vt
	}
	if lt <= -ls.Friction*vn {
		return vmath.Vec2{}
	}
	return vt.Scale(1 + ls.Friction*vn/lt)
}
