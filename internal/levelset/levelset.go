// Package levelset implements the implicit boundary that simulated material
// collides with. The field is a signed distance where positive values are
// free space and negative values are solid.
package levelset

import (
	"errors"
	"math"

	"github.com/san-kum/snowsim/internal/vmath"
)

var (
	ErrDegeneratePolygon = errors.New("levelset: polygon needs at least 3 distinct vertices")
	ErrInvalidShape      = errors.New("levelset: invalid shape parameters")
)

// Sticky as a friction coefficient makes boundary nodes zero all velocity.
const Sticky = -1.0

// Shape is an exact signed distance primitive.
type Shape interface {
	Distance(p vmath.Vec2) float64
}

// LevelSet samples the combined shapes on the simulation grid nodes.
type LevelSet struct {
	res      vmath.Vec2i
	dx       float64
	phi      []float64
	shapes   []Shape
	Friction float64
}

// New creates an empty level set over res cells of size dx. Without shapes
// every point is free space.
func New(res vmath.Vec2i, dx float64) *LevelSet {
	n := (res.X + 1) * (res.Y + 1)
	phi := make([]float64, n)
	for i := range phi {
		phi[i] = math.Inf(1)
	}
	return &LevelSet{res: res, dx: dx, phi: phi}
}

func (l *LevelSet) Res() vmath.Vec2i { return l.res }
func (l *LevelSet) Dx() float64       { return l.dx }
func (l *LevelSet) Empty() bool       { return len(l.shapes) == 0 }

// Size is the physical extent of the domain.
func (l *LevelSet) Size() vmath.Vec2 {
	return vmath.V(float64(l.res.X)*l.dx, float64(l.res.Y)*l.dx)
}

// Add merges a shape into the field. A point stays free only while every
// shape agrees it is free.
func (l *LevelSet) Add(s Shape) {
	l.shapes = append(l.shapes, s)
	w := l.res.X + 1
	for j := 0; j <= l.res.Y; j++ {
		for i := 0; i <= l.res.X; i++ {
			p := vmath.V(float64(i)*l.dx, float64(j)*l.dx)
			idx := j*w + i
			l.phi[idx] = math.Min(l.phi[idx], s.Distance(p))
		}
	}
}

// AddPolygon adds a closed polygon. With inside set the interior is free
// space (a container), otherwise the polygon is a solid obstacle.
func (l *LevelSet) AddPolygon(vertices []vmath.Vec2, inside bool) error {
	poly, err := NewPolygon(vertices, inside)
	if err != nil {
		return err
	}
	l.Add(poly)
	return nil
}

func (l *LevelSet) AddSphere(center vmath.Vec2, radius float64, inside bool) error {
	if radius <= 0 {
		return ErrInvalidShape
	}
	l.Add(Sphere{Center: center, Radius: radius, Inside: inside})
	return nil
}

// AddPlane adds a half space. normal points into free space.
func (l *LevelSet) AddPlane(normal vmath.Vec2, offset float64) error {
	if normal.LenSq() == 0 {
		return ErrInvalidShape
	}
	l.Add(Plane{Normal: normal.Normalized(), Offset: offset})
	return nil
}

// Node returns the stored value at grid node (i, j).
func (l *LevelSet) Node(i, j int) float64 {
	i = clampInt(i, 0, l.res.X)
	j = clampInt(j, 0, l.res.Y)
	return l.phi[j*(l.res.X+1)+i]
}

// Sample bilinearly interpolates the field at p, clamped to the domain.
func (l *LevelSet) Sample(p vmath.Vec2) float64 {
	gx := clamp(p.X/l.dx, 0, float64(l.res.X))
	gy := clamp(p.Y/l.dx, 0, float64(l.res.Y))
	i := clampInt(int(gx), 0, l.res.X-1)
	j := clampInt(int(gy), 0, l.res.Y-1)
	fx, fy := gx-float64(i), gy-float64(j)

	v00, v10 := l.Node(i, j), l.Node(i+1, j)
	v01, v11 := l.Node(i, j+1), l.Node(i+1, j+1)
	if math.IsInf(v00, 1) || math.IsInf(v10, 1) || math.IsInf(v01, 1) || math.IsInf(v11, 1) {
		return math.Min(math.Min(v00, v10), math.Min(v01, v11))
	}
	return (v00*(1-fx)+v10*fx)*(1-fy) + (v01*(1-fx)+v11*fx)*fy
}

// Eval evaluates the shapes exactly instead of interpolating the grid.
func (l *LevelSet) Eval(p vmath.Vec2) float64 {
	phi := math.Inf(1)
	for _, s := range l.shapes {
		phi = math.Min(phi, s.Distance(p))
	}
	return phi
}

// Gradient is the unit outward normal of the field at p (pointing into free
// space). It is zero where the field is flat.
func (l *LevelSet) Gradient(p vmath.Vec2) vmath.Vec2 {
	h := 0.5 * l.dx
	gx := l.Sample(vmath.V(p.X+h, p.Y)) - l.Sample(vmath.V(p.X-h, p.Y))
	gy := l.Sample(vmath.V(p.X, p.Y+h)) - l.Sample(vmath.V(p.X, p.Y-h))
	g := vmath.V(gx, gy)
	if !g.IsFinite() {
		return vmath.Vec2{}
	}
	return g.Normalized()
}

// Supersample evaluates the exact field on a grid factor times finer than
// the simulation grid, indexed [j][i].
func (l *LevelSet) Supersample(factor int) [][]float64 {
	if factor < 1 {
		factor = 1
	}
	nx, ny := l.res.X*factor+1, l.res.Y*factor+1
	h := l.dx / float64(factor)
	out := make([][]float64, ny)
	for j := range out {
		out[j] = make([]float64, nx)
		for i := range out[j] {
			out[j][i] = l.Eval(vmath.V(float64(i)*h, float64(j)*h))
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
