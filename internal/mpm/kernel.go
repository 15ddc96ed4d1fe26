package mpm

import (
	"math"

	"github.com/san-kum/snowsim/internal/vmath"
)

// stencil holds the quadratic B-spline weights of one particle over the
// 3x3 nodes starting at base.
type stencil struct {
	baseX, baseY int
	fx           vmath.Vec2
	wx, wy       [3]float64
}

func newStencil(x vmath.Vec2, invDx float64) stencil {
	gx, gy := x.X*invDx, x.Y*invDx
	bx, by := int(math.Floor(gx-0.5)), int(math.Floor(gy-0.5))
	fx := vmath.V(gx-float64(bx), gy-float64(by))

	return stencil{
		baseX: bx,
		baseY: by,
		fx:    fx,
		wx:    [3]float64{0.5 * sq(1.5-fx.X), 0.75 - sq(fx.X-1), 0.5 * sq(fx.X-0.5)},
		wy:    [3]float64{0.5 * sq(1.5-fx.Y), 0.75 - sq(fx.Y-1), 0.5 * sq(fx.Y-0.5)},
	}
}

// offset is the vector from the particle to node (i, j) of the stencil.
func (s *stencil) offset(i, j int, dx float64) vmath.Vec2 {
	return vmath.V((float64(i)-s.fx.X)*dx, (float64(j)-s.fx.Y)*dx)
}

func sq(x float64) float64 { return x * x }
