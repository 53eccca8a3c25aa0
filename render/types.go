// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image/color"
	"math"
)

// Color is a straight-alpha color with components in [0, 1].
type Color struct {
	R, G, B, A float32
}

// RGB returns an opaque color.
func RGB(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

// RGBA returns a color from its components.
func RGBA(r, g, b, a float32) Color {
	return Color{R: r, G: g, B: b, A: a}
}

// FromColor converts a standard color.Color.
func FromColor(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{
		R: float32(n.R) / 255,
		G: float32(n.G) / 255,
		B: float32(n.B) / 255,
		A: float32(n.A) / 255,
	}
}

// Premultiply returns the color with RGB scaled by alpha.
func (c Color) Premultiply() Color {
	return Color{R: c.R * c.A, G: c.G * c.A, B: c.B * c.A, A: c.A}
}

// Paint describes how covered pixels are colored. Gradients interpolate
// from InnerColor to OuterColor across Feather; image paints sample Image
// through Xform over Extent.
type Paint struct {
	Xform      Xform
	Extent     [2]float32
	Radius     float32
	Feather    float32
	InnerColor Color
	OuterColor Color

	// Image is a texture id, or 0 for color and gradient paints.
	Image int
}

// ColorPaint returns a solid color paint.
func ColorPaint(c Color) Paint {
	return Paint{
		Xform:      Identity(),
		Feather:    1,
		InnerColor: c,
		OuterColor: c,
	}
}

// LinearGradient returns a paint that blends from inner at (sx, sy) to
// outer at (ex, ey).
func LinearGradient(sx, sy, ex, ey float32, inner, outer Color) Paint {
	const large = 1e5
	dx, dy := ex-sx, ey-sy
	d := float32(math.Hypot(float64(dx), float64(dy)))
	if d > 0.0001 {
		dx /= d
		dy /= d
	} else {
		dx, dy = 0, 1
	}
	return Paint{
		Xform: Xform{
			A: dy, B: dx, C: sx - dx*large,
			D: -dx, E: dy, F: sy - dy*large,
		},
		Extent:     [2]float32{large, large + d*0.5},
		Feather:    max(1, d),
		InnerColor: inner,
		OuterColor: outer,
	}
}

// RadialGradient returns a paint centered at (cx, cy) that blends from
// inner at radius in to outer at radius out.
func RadialGradient(cx, cy, in, out float32, inner, outer Color) Paint {
	r := (in + out) * 0.5
	return Paint{
		Xform:      Translate(cx, cy),
		Extent:     [2]float32{r, r},
		Radius:     r,
		Feather:    max(1, out-in),
		InnerColor: inner,
		OuterColor: outer,
	}
}

// ImagePattern returns a paint that maps texture image onto the rectangle
// at (ox, oy) of size w x h, rotated by angle, with the given alpha.
func ImagePattern(ox, oy, w, h, angle float32, image int, alpha float32) Paint {
	c := Color{R: 1, G: 1, B: 1, A: alpha}
	return Paint{
		Xform:      Translate(ox, oy).Multiply(Rotate(angle)),
		Extent:     [2]float32{w, h},
		InnerColor: c,
		OuterColor: c,
		Image:      image,
	}
}

// Scissor clips drawing to a transformed rectangle centered on the origin
// of Xform with half-size Extent. A negative extent disables clipping.
type Scissor struct {
	Xform  Xform
	Extent [2]float32
}

// NoScissor returns a scissor that clips nothing.
func NoScissor() Scissor {
	return Scissor{Xform: Identity(), Extent: [2]float32{-1, -1}}
}

// RectScissor returns a scissor for the axis-aligned rectangle x, y, w, h.
func RectScissor(x, y, w, h float32) Scissor {
	return Scissor{
		Xform:  Translate(x+w*0.5, y+h*0.5),
		Extent: [2]float32{w * 0.5, h * 0.5},
	}
}

func (s *Scissor) disabled() bool {
	return s.Extent[0] < -0.5 || s.Extent[1] < -0.5
}

// Vertex is a tessellated vertex: a position and a texture coordinate.
// For fringes the coordinate carries the anti-aliasing ramp.
type Vertex struct {
	X, Y float32
	U, V float32
}

// Path is one tessellated sub-path.
type Path struct {
	// Fill is a triangle fan covering the path interior.
	Fill []Vertex

	// Stroke is a triangle strip with the outline or anti-aliasing fringe.
	Stroke []Vertex

	// Convex marks paths whose fan covers each pixel at most once.
	Convex bool
}
