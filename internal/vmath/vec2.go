package vmath

import "math"

type Vec2 struct {
	X, Y float64
}

type Vec2i struct {
	X, Y int
}

func V(x, y float64) Vec2 { return Vec2{X: x, Y: y} }

func (v Vec2) Add(o Vec2) Vec2        { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2        { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2   { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Dot(o Vec2) float64     { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Cross(o Vec2) float64   { return v.X*o.Y - v.Y*o.X }
func (v Vec2) LenSq() float64         { return v.X*v.X + v.Y*v.Y }
func (v Vec2) Len() float64           { return math.Sqrt(v.X*v.X + v.Y*v.Y) }
func (v Vec2) Mul(o Vec2) Vec2        { return Vec2{v.X * o.X, v.Y * o.Y} }
func (v Vec2) Min(o Vec2) Vec2        { return Vec2{math.Min(v.X, o.X), math.Min(v.Y, o.Y)} }
func (v Vec2) Max(o Vec2) Vec2        { return Vec2{math.Max(v.X, o.X), math.Max(v.Y, o.Y)} }
func (v Vec2) Dist(o Vec2) float64    { return v.Sub(o).Len() }
func (v Vec2) Perp() Vec2             { return Vec2{-v.Y, v.X} }

// Normalized returns the unit vector in the direction of v. The zero vector
// is returned unchanged.
func (v Vec2) Normalized() Vec2 {
	l := v.Len()
	if l == 0 {
		return v
	}
	return Vec2{v.X / l, v.Y / l}
}

func (v Vec2) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y)
}

// Outer returns a·bᵀ.
func Outer(a, b Vec2) Mat2 {
	return Mat2{
		A00: a.X * b.X, A01: a.X * b.Y,
		A10: a.Y * b.X, A11: a.Y * b.Y,
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
