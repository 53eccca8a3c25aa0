// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestXformApply(t *testing.T) {
	tests := []struct {
		name   string
		m      Xform
		x, y   float32
		wx, wy float32
	}{
		{"identity", Identity(), 3, 4, 3, 4},
		{"translate", Translate(10, -2), 3, 4, 13, 2},
		{"scale", Scale(2, 3), 3, 4, 6, 12},
		{"rotate quarter", Rotate(math.Pi / 2), 1, 0, 0, 1},
		{"translate after scale", Translate(1, 1).Multiply(Scale(2, 2)), 1, 1, 3, 3},
		{"scale after translate", Scale(2, 2).Multiply(Translate(1, 1)), 1, 1, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := tt.m.Apply(tt.x, tt.y)
			if !near(x, tt.wx) || !near(y, tt.wy) {
				t.Errorf("Apply(%v, %v) = (%v, %v), want (%v, %v)", tt.x, tt.y, x, y, tt.wx, tt.wy)
			}
		})
	}
}

func TestXformInvert(t *testing.T) {
	m := Translate(5, 7).Multiply(Rotate(0.3)).Multiply(Scale(2, 0.5))
	p := m.Multiply(m.Invert())
	if !near(p.A, 1) || !near(p.B, 0) || !near(p.C, 0) || !near(p.D, 0) || !near(p.E, 1) || !near(p.F, 0) {
		t.Errorf("m * m^-1 = %+v, want identity", p)
	}
	if !Scale(0, 1).Invert().IsIdentity() {
		t.Error("singular Invert() is not the identity")
	}
}

func TestXformMat3x4(t *testing.T) {
	m := Xform{A: 1, B: 2, C: 3, D: 4, E: 5, F: 6}
	want := [12]float32{1, 4, 0, 0, 2, 5, 0, 0, 3, 6, 1, 0}
	if got := m.mat3x4(); got != want {
		t.Errorf("mat3x4() = %v, want %v", got, want)
	}
}
