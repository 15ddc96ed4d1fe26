package vmath

import (
	"math"
	"testing"
)

func matClose(a, b Mat2, tol float64) bool {
	return a.Sub(b).FrobeniusSq() <= tol*tol
}

func TestMat2_Inverse(t *testing.T) {
	tests := []struct {
		name string
		m    Mat2
	}{
		{"identity", Identity()},
		{"scaled", Scalar(3)},
		{"general", Mat2{2, 1, -1, 3}},
		{"rotation", Rotation(0.7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.m.Mul(tt.m.Inverse())
			if !matClose(got, Identity(), 1e-12) {
				t.Errorf("m·m⁻¹ = %v, want identity", got)
			}
		})
	}

	if inv := (Mat2{1, 2, 2, 4}).Inverse(); inv != (Mat2{}) {
		t.Errorf("singular inverse = %v, want zero matrix", inv)
	}
}

func TestPolar(t *testing.T) {
	inputs := []Mat2{
		Identity(),
		{1.2, 0.3, -0.4, 0.8},
		Rotation(2.5).Mul(Diag(1.1, 0.9)),
		{0, 0, 0, 0},
	}

	for _, m := range inputs {
		r, s := Polar(m)
		if math.Abs(r.Det()-1) > 1e-12 {
			t.Errorf("Polar(%v): det R = %v, want 1", m, r.Det())
		}
		if !matClose(r.Mul(s), m, 1e-12) {
			t.Errorf("Polar(%v): R·S = %v", m, r.Mul(s))
		}
	}
}

func TestSVD_Reconstructs(t *testing.T) {
	inputs := []Mat2{
		Identity(),
		Diag(0.5, 2),
		{1.2, 0.3, -0.4, 0.8},
		{0.9, 0.05, 0.05, 1.02},
		{-1, 0, 0, 1},
		{3, 1, 1, 3},
		Rotation(-1.3).Mul(Diag(1.5, 0.2)).Mul(Rotation(0.4)),
	}

	for _, m := range inputs {
		u, sig, v := SVD(m)

		if math.Abs(u.Det()-1) > 1e-12 || math.Abs(v.Det()-1) > 1e-12 {
			t.Errorf("SVD(%v): det U = %v, det V = %v", m, u.Det(), v.Det())
		}
		if sig.X < math.Abs(sig.Y)-1e-12 {
			t.Errorf("SVD(%v): sigma %v not ordered", m, sig)
		}

		back := u.Mul(Diag(sig.X, sig.Y)).Mul(v.Transpose())
		if !matClose(back, m, 1e-9*math.Max(1, math.Sqrt(m.FrobeniusSq()))) {
			t.Errorf("SVD(%v): reconstruction %v", m, back)
		}
	}
}

func TestSVD_Reflection(t *testing.T) {
	_, sig, _ := SVD(Mat2{-1, 0, 0, 1})
	if sig.X*sig.Y >= 0 {
		t.Errorf("reflection should give one negative singular value, got %v", sig)
	}
}

func TestVec2(t *testing.T) {
	a := V(3, 4)
	if a.Len() != 5 {
		t.Errorf("Len = %v", a.Len())
	}
	if n := a.Normalized(); math.Abs(n.Len()-1) > 1e-15 {
		t.Errorf("Normalized length = %v", n.Len())
	}
	if z := (Vec2{}).Normalized(); z != (Vec2{}) {
		t.Errorf("zero Normalized = %v", z)
	}
	if a.Cross(V(1, 0)) != -4 {
		t.Errorf("Cross = %v", a.Cross(V(1, 0)))
	}
	o := Outer(V(1, 2), V(3, 4))
	if o != (Mat2{3, 4, 6, 8}) {
		t.Errorf("Outer = %v", o)
	}
	if V(math.NaN(), 0).IsFinite() {
		t.Error("NaN vector reported finite")
	}
}
