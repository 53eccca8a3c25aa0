// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import "math"

// Xform is a 2D affine transformation in row-major order:
//
//	| a  b  c |
//	| d  e  f |
//
// which maps
//
//	x' = a*x + b*y + c
//	y' = d*x + e*y + f
type Xform struct {
	A, B, C float32
	D, E, F float32
}

// Identity returns the identity transformation.
func Identity() Xform {
	return Xform{
		A: 1, B: 0, C: 0,
		D: 0, E: 1, F: 0,
	}
}

// Translate returns a translation.
func Translate(x, y float32) Xform {
	return Xform{
		A: 1, B: 0, C: x,
		D: 0, E: 1, F: y,
	}
}

// Scale returns a scaling.
func Scale(x, y float32) Xform {
	return Xform{
		A: x, B: 0, C: 0,
		D: 0, E: y, F: 0,
	}
}

// Rotate returns a rotation by angle radians.
func Rotate(angle float32) Xform {
	sin, cos := math.Sincos(float64(angle))
	return Xform{
		A: float32(cos), B: float32(-sin), C: 0,
		D: float32(sin), E: float32(cos), F: 0,
	}
}

// Multiply returns m * other, which applies other first.
func (m Xform) Multiply(other Xform) Xform {
	return Xform{
		A: m.A*other.A + m.B*other.D,
		B: m.A*other.B + m.B*other.E,
		C: m.A*other.C + m.B*other.F + m.C,
		D: m.D*other.A + m.E*other.D,
		E: m.D*other.B + m.E*other.E,
		F: m.D*other.C + m.E*other.F + m.F,
	}
}

// Apply transforms the point (x, y).
func (m Xform) Apply(x, y float32) (float32, float32) {
	return m.A*x + m.B*y + m.C, m.D*x + m.E*y + m.F
}

// Invert returns the inverse transformation, or the identity when m is
// singular.
func (m Xform) Invert() Xform {
	det := float64(m.A)*float64(m.E) - float64(m.B)*float64(m.D)
	if math.Abs(det) < 1e-6 {
		return Identity()
	}
	inv := 1 / det
	a, b, c := float64(m.A), float64(m.B), float64(m.C)
	d, e, f := float64(m.D), float64(m.E), float64(m.F)
	return Xform{
		A: float32(e * inv),
		B: float32(-b * inv),
		C: float32((b*f - c*e) * inv),
		D: float32(-d * inv),
		E: float32(a * inv),
		F: float32((c*d - a*f) * inv),
	}
}

// IsIdentity reports whether m is the identity.
func (m Xform) IsIdentity() bool {
	return m.A == 1 && m.B == 0 && m.C == 0 &&
		m.D == 0 && m.E == 1 && m.F == 0
}

// mat3x4 lays m out as three vec4 columns, the form shaders read.
func (m Xform) mat3x4() [12]float32 {
	return [12]float32{
		m.A, m.D, 0, 0,
		m.B, m.E, 0, 0,
		m.C, m.F, 1, 0,
	}
}
