package levelset

import (
	"math"

	"github.com/san-kum/snowsim/internal/vmath"
)

type Polygon struct {
	Vertices []vmath.Vec2
	Inside   bool
}

// NewPolygon validates and closes the vertex loop. A repeated final vertex
// is dropped.
func NewPolygon(vertices []vmath.Vec2, inside bool) (Polygon, error) {
	vs := make([]vmath.Vec2, 0, len(vertices))
	for i, v := range vertices {
		if i > 0 && v == vs[len(vs)-1] {
			continue
		}
		vs = append(vs, v)
	}
	if len(vs) > 1 && vs[0] == vs[len(vs)-1] {
		vs = vs[:len(vs)-1]
	}
	if len(vs) < 3 {
		return Polygon{}, ErrDegeneratePolygon
	}
	return Polygon{Vertices: vs, Inside: inside}, nil
}

// Contains uses the even-odd rule.
func (p Polygon) Contains(q vmath.Vec2) bool {
	in := false
	n := len(p.Vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p.Vertices[i], p.Vertices[j]
		if (a.Y > q.Y) != (b.Y > q.Y) {
			x := (b.X-a.X)*(q.Y-a.Y)/(b.Y-a.Y) + a.X
			if q.X < x {
				in = !in
			}
		}
	}
	return in
}

func (p Polygon) edgeDistance(q vmath.Vec2) float64 {
	best := math.Inf(1)
	n := len(p.Vertices)
	for i := 0; i < n; i++ {
		best = math.Min(best, segmentDistance(q, p.Vertices[i], p.Vertices[(i+1)%n]))
	}
	return best
}

func (p Polygon) Distance(q vmath.Vec2) float64 {
	d := p.edgeDistance(q)
	if d == 0 {
		return 0
	}
	if p.Contains(q) == p.Inside {
		return d
	}
	return -d
}

type Sphere struct {
	Center vmath.Vec2
	Radius float64
	Inside bool
}

func (s Sphere) Distance(q vmath.Vec2) float64 {
	d := q.Dist(s.Center) - s.Radius
	if s.Inside {
		return -d
	}
	return d
}

// Plane is the half space Normal·p >= Offset.
type Plane struct {
	Normal vmath.Vec2
	Offset float64
}

func (pl Plane) Distance(q vmath.Vec2) float64 {
	return pl.Normal.Dot(q) - pl.Offset
}

func segmentDistance(q, a, b vmath.Vec2) float64 {
	ab := b.Sub(a)
	den := ab.LenSq()
	if den == 0 {
		return q.Dist(a)
	}
	t := clamp(q.Sub(a).Dot(ab)/den, 0, 1)
	return q.Dist(a.Add(ab.Scale(t)))
}
