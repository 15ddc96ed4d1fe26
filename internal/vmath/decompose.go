package vmath

import "math"

// Polar splits m into a rotation R and a symmetric S with m = R·S.
func Polar(m Mat2) (r, s Mat2) {
	x := m.A00 + m.A11
	y := m.A10 - m.A01
	n := math.Sqrt(x*x + y*y)
	if n == 0 {
		r = Identity()
	} else {
		c, sn := x/n, y/n
		r = Mat2{c, -sn, sn, c}
	}
	s = r.Transpose().Mul(m)
	return r, s
}

// SVD computes m = U·diag(sigma)·Vᵀ where U and V are proper rotations.
// sigma.X >= |sigma.Y|; sigma.Y is negative when m flips orientation.
func SVD(m Mat2) (u Mat2, sigma Vec2, v Mat2) {
	r, s := Polar(m)

	// S is symmetric, a Jacobi rotation by theta diagonalises it with the
	// larger eigenvalue first.
	a, b, d := s.A00, 0.5*(s.A01+s.A10), s.A11
	theta := 0.5 * math.Atan2(2*b, a-d)
	sn, c := math.Sincos(theta)

	v = Mat2{c, -sn, sn, c}
	sigma = Vec2{
		X: c*c*a + 2*c*sn*b + sn*sn*d,
		Y: sn*sn*a - 2*c*sn*b + c*c*d,
	}
	u = r.Mul(v)
	return u, sigma, v
}
