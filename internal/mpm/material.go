package mpm

import (
	"fmt"
	"math"

	"github.com/san-kum/snowsim/internal/vmath"
)

// Material is a constitutive model shared by the particles of one emission.
type Material interface {
	Name() string
	Density() float64
	// Stress returns the Kirchhoff stress for the particle's elastic state.
	Stress(p *Particle) vmath.Mat2
	// Project applies plasticity after Fe has been advected.
	Project(p *Particle)
	// WaveSpeed bounds the stable timestep in the particle's region.
	WaveSpeed(p *Particle) float64
}

// MaterialOptions override the model defaults. Zero fields keep defaults.
type MaterialOptions struct {
	Compression   float64 `yaml:"compression,omitempty"`
	ThetaC        float64 `yaml:"theta_c,omitempty"`
	ThetaS        float64 `yaml:"theta_s,omitempty"`
	Hardening     float64 `yaml:"hardening,omitempty"`
	Youngs        float64 `yaml:"youngs,omitempty"`
	Poisson       float64 `yaml:"poisson,omitempty"`
	Density       float64 `yaml:"density,omitempty"`
	FrictionAngle float64 `yaml:"friction_angle,omitempty"`
}

// Materials lists the names accepted by NewMaterial.
var Materials = []string{"ep", "jelly", "water", "sand"}

func NewMaterial(name string, opts MaterialOptions) (Material, error) {
	if opts.Youngs < 0 || opts.Density < 0 || opts.Poisson < 0 || opts.Poisson >= 0.5 {
		return nil, fmt.Errorf("%w: youngs=%g poisson=%g density=%g", ErrParameterBounds, opts.Youngs, opts.Poisson, opts.Density)
	}

	switch name {
	case "ep", "snow":
		m := &Snow{
			ThetaC:    or(opts.ThetaC, 2.5e-2),
			ThetaS:    or(opts.ThetaS, 7.5e-3),
			Hardening: or(opts.Hardening, 10),
		}
		m.lame = newLame(or(opts.Youngs, 1.4e5), or(opts.Poisson, 0.2), or(opts.Density, 400))
		return m, nil
	case "jelly":
		m := &Jelly{}
		m.lame = newLame(or(opts.Youngs, 5e3), or(opts.Poisson, 0.3), or(opts.Density, 400))
		return m, nil
	case "water":
		return &Water{Bulk: or(opts.Youngs, 1e4), Gamma: 7, Rho: or(opts.Density, 1000)}, nil
	case "sand":
		phi := or(opts.FrictionAngle, 30) * math.Pi / 180
		sp := math.Sin(phi)
		m := &Sand{Alpha: math.Sqrt(2.0/3.0) * 2 * sp / (3 - sp)}
		m.lame = newLame(or(opts.Youngs, 3.5e4), or(opts.Poisson, 0.3), or(opts.Density, 400))
		return m, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMaterial, name)
}

type lame struct {
	Mu0, Lambda0, Rho float64
}

func newLame(e, nu, rho float64) lame {
	return lame{
		Mu0:     e / (2 * (1 + nu)),
		Lambda0: e * nu / ((1 + nu) * (1 - 2*nu)),
		Rho:     rho,
	}
}

func (l lame) Density() float64 { return l.Rho }

// corotated is the fixed-corotated Kirchhoff stress 2μ(F-R)Fᵀ + λ(J-1)J·I.
func corotated(f vmath.Mat2, mu, lambda float64) vmath.Mat2 {
	r, _ := vmath.Polar(f)
	j := f.Det()
	return f.Sub(r).Mul(f.Transpose()).Scale(2 * mu).Add(vmath.Scalar(lambda * (j - 1) * j))
}

// Snow is the Stomakhin et al. elasto-plastic snow model.
type Snow struct {
	lame
	ThetaC, ThetaS, Hardening float64
}

func (m *Snow) Name() string { return "ep" }

func (m *Snow) hardening(p *Particle) float64 {
	return math.Exp(m.Hardening * (1 - p.Jp))
}

func (m *Snow) Stress(p *Particle) vmath.Mat2 {
	e := m.hardening(p)
	return corotated(p.Fe, m.Mu0*e, m.Lambda0*e)
}

func (m *Snow) Project(p *Particle) {
	u, sig, v := vmath.SVD(p.Fe)
	oldJ := sig.X * sig.Y
	sig.X = clamp(sig.X, 1-m.ThetaC, 1+m.ThetaS)
	sig.Y = clamp(sig.Y, 1-m.ThetaC, 1+m.ThetaS)
	newJ := sig.X * sig.Y
	p.Jp = clamp(p.Jp*oldJ/newJ, 0.6, 20)
	p.Fe = u.Mul(vmath.Diag(sig.X, sig.Y)).Mul(v.Transpose())
}

func (m *Snow) WaveSpeed(p *Particle) float64 {
	e := m.hardening(p)
	return math.Sqrt((m.Lambda0 + 2*m.Mu0) * e / m.Rho)
}

// Jelly is purely elastic.
type Jelly struct {
	lame
}

func (m *Jelly) Name() string                  { return "jelly" }
func (m *Jelly) Stress(p *Particle) vmath.Mat2 { return corotated(p.Fe, m.Mu0, m.Lambda0) }
func (m *Jelly) Project(p *Particle)           {}
func (m *Jelly) WaveSpeed(p *Particle) float64 {
	return math.Sqrt((m.Lambda0 + 2*m.Mu0) / m.Rho)
}

// Water is a weakly compressible fluid. Only det(Fe) is tracked.
type Water struct {
	Bulk, Gamma, Rho float64
}

func (m *Water) Name() string     { return "water" }
func (m *Water) Density() float64 { return m.Rho }

func (m *Water) Stress(p *Particle) vmath.Mat2 {
	j := math.Max(p.Fe.Det(), 0.1)
	pressure := m.Bulk * (math.Pow(j, -m.Gamma) - 1)
	return vmath.Scalar(-pressure * j)
}

func (m *Water) Project(p *Particle) {
	j := math.Max(p.Fe.Det(), 1e-4)
	p.Fe = vmath.Scalar(math.Sqrt(j))
}

func (m *Water) WaveSpeed(p *Particle) float64 {
	j := math.Max(p.Fe.Det(), 0.1)
	return math.Sqrt(m.Bulk * m.Gamma * math.Pow(j, -m.Gamma) / m.Rho)
}

// Sand uses Drucker-Prager plasticity on the Hencky strain.
type Sand struct {
	lame
	Alpha float64
}

func (m *Sand) Name() string { return "sand" }

func (m *Sand) Stress(p *Particle) vmath.Mat2 {
	u, sig, _ := vmath.SVD(p.Fe)
	e0, e1 := logStrain(sig.X), logStrain(sig.Y)
	tr := e0 + e1
	t0 := 2*m.Mu0*e0 + m.Lambda0*tr
	t1 := 2*m.Mu0*e1 + m.Lambda0*tr
	return u.Mul(vmath.Diag(t0, t1)).Mul(u.Transpose())
}

func (m *Sand) Project(p *Particle) {
	u, sig, v := vmath.SVD(p.Fe)
	e0, e1 := logStrain(sig.X), logStrain(sig.Y)
	tr := e0 + e1

	if tr >= 0 {
		p.Fe = u.Mul(v.Transpose())
		p.Jp = 1
		return
	}

	d0, d1 := e0-tr/2, e1-tr/2
	norm := math.Hypot(d0, d1)
	dgamma := norm + (2*m.Lambda0+2*m.Mu0)/(2*m.Mu0)*tr*m.Alpha
	if dgamma <= 0 || norm == 0 {
		return
	}
	e0 -= dgamma * d0 / norm
	e1 -= dgamma * d1 / norm
	p.Jp = math.Exp(e0 + e1)
	p.Fe = u.Mul(vmath.Diag(math.Exp(e0), math.Exp(e1))).Mul(v.Transpose())
}

func (m *Sand) WaveSpeed(p *Particle) float64 {
	return math.Sqrt((m.Lambda0 + 2*m.Mu0) / m.Rho)
}

func logStrain(s float64) float64 {
	return math.Log(math.Max(s, 1e-4))
}

func or(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
