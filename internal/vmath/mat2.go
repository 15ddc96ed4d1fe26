package vmath

import "math"

// Mat2 is a row-major 2x2 matrix.
type Mat2 struct {
	A00, A01 float64
	A10, A11 float64
}

func Identity() Mat2 { return Mat2{A00: 1, A11: 1} }

func Diag(a, b float64) Mat2 { return Mat2{A00: a, A11: b} }

// Scalar returns s·I.
func Scalar(s float64) Mat2 { return Mat2{A00: s, A11: s} }

func (m Mat2) Add(o Mat2) Mat2 {
	return Mat2{m.A00 + o.A00, m.A01 + o.A01, m.A10 + o.A10, m.A11 + o.A11}
}

func (m Mat2) Sub(o Mat2) Mat2 {
	return Mat2{m.A00 - o.A00, m.A01 - o.A01, m.A10 - o.A10, m.A11 - o.A11}
}

func (m Mat2) Scale(s float64) Mat2 {
	return Mat2{m.A00 * s, m.A01 * s, m.A10 * s, m.A11 * s}
}

func (m Mat2) Mul(o Mat2) Mat2 {
	return Mat2{
		A00: m.A00*o.A00 + m.A01*o.A10,
		A01: m.A00*o.A01 + m.A01*o.A11,
		A10: m.A10*o.A00 + m.A11*o.A10,
		A11: m.A10*o.A01 + m.A11*o.A11,
	}
}

func (m Mat2) MulVec(v Vec2) Vec2 {
	return Vec2{m.A00*v.X + m.A01*v.Y, m.A10*v.X + m.A11*v.Y}
}

func (m Mat2) Transpose() Mat2 { return Mat2{m.A00, m.A10, m.A01, m.A11} }

func (m Mat2) Det() float64 { return m.A00*m.A11 - m.A01*m.A10 }

func (m Mat2) Trace() float64 { return m.A00 + m.A11 }

func (m Mat2) FrobeniusSq() float64 {
	return m.A00*m.A00 + m.A01*m.A01 + m.A10*m.A10 + m.A11*m.A11
}

// Inverse returns m⁻¹, or the zero matrix when m is singular.
func (m Mat2) Inverse() Mat2 {
	det := m.Det()
	if det == 0 {
		return Mat2{}
	}
	inv := 1 / det
	return Mat2{m.A11 * inv, -m.A01 * inv, -m.A10 * inv, m.A00 * inv}
}

func (m Mat2) IsFinite() bool {
	return isFinite(m.A00) && isFinite(m.A01) && isFinite(m.A10) && isFinite(m.A11)
}

// Rotation returns the counter-clockwise rotation by theta radians.
func Rotation(theta float64) Mat2 {
	s, c := math.Sincos(theta)
	return Mat2{c, -s, s, c}
}
