// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"

	"github.com/gogpu/gpuframe/gpucore"
)

type callKind uint8

const (
	callFill callKind = iota
	callConvexFill
	callStroke
	callTriangles
)

func (k callKind) String() string {
	switch k {
	case callFill:
		return "fill"
	case callConvexFill:
		return "convex_fill"
	case callStroke:
		return "stroke"
	case callTriangles:
		return "triangles"
	default:
		return fmt.Sprintf("callKind(%d)", uint8(k))
	}
}

// call is one queued submission. Offsets index the renderer's path,
// vertex and uniform arrays.
type call struct {
	kind      callKind
	pathStart int
	pathCount int

	// Bounding quad of stencil fills, or the vertices of triangle calls.
	vertStart int
	vertCount int

	// uniform is the byte offset of the call's first uniform block.
	uniform uint64

	texture gpucore.GPUHandle
	sampler gpucore.GPUHandle
}

// pathRange locates the expanded triangle lists of one path.
type pathRange struct {
	fillStart, fillCount     int
	strokeStart, strokeCount int
}

// appendFan expands a triangle fan into a triangle list.
func appendFan(dst, fan []Vertex) []Vertex {
	for i := 2; i < len(fan); i++ {
		dst = append(dst, fan[0], fan[i-1], fan[i])
	}
	return dst
}

// appendStrip expands a triangle strip into a triangle list, keeping the
// winding of every triangle.
func appendStrip(dst, strip []Vertex) []Vertex {
	for i := 2; i < len(strip); i++ {
		if i%2 == 0 {
			dst = append(dst, strip[i-2], strip[i-1], strip[i])
		} else {
			dst = append(dst, strip[i-1], strip[i-2], strip[i])
		}
	}
	return dst
}

// allocUniforms reserves n blocks and returns the offset of the first.
func (r *Renderer) allocUniforms(n int) uint64 {
	off := uint64(len(r.uniforms))
	r.uniforms = append(r.uniforms, make([]byte, uint64(n)*r.stride)...)
	return off
}

func (r *Renderer) block(off uint64, i int) []byte {
	start := off + uint64(i)*r.stride
	return r.uniforms[start : start+uniformSize]
}

// bindPaint resolves the texture and sampler handles of an image paint.
func (r *Renderer) bindPaint(c *call, p *Paint) {
	if p.Image == 0 {
		return
	}
	tex := r.textures[p.Image]
	c.texture = tex.res.SRV()
	c.sampler = r.samplers.handle(samplerFor(tex.flags, tex.mipmapped()))
}

func (r *Renderer) appendPaths(paths []Path, fills bool) (start int) {
	start = len(r.paths)
	for i := range paths {
		var pr pathRange
		if fills && len(paths[i].Fill) > 2 {
			pr.fillStart = len(r.verts)
			r.verts = appendFan(r.verts, paths[i].Fill)
			pr.fillCount = len(r.verts) - pr.fillStart
		}
		if len(paths[i].Stroke) > 2 {
			pr.strokeStart = len(r.verts)
			r.verts = appendStrip(r.verts, paths[i].Stroke)
			pr.strokeCount = len(r.verts) - pr.strokeStart
		}
		r.paths = append(r.paths, pr)
	}
	return start
}

func (r *Renderer) checkPaint(p *Paint) error {
	if p.Image == 0 {
		return nil
	}
	if _, ok := r.textures[p.Image]; !ok {
		r.log.Debug("render: paint references unknown texture", "id", p.Image)
		return fmt.Errorf("%w: %d", ErrInvalidTexture, p.Image)
	}
	return nil
}

// SubmitFill queues a fill of paths. bounds is the fill's bounding box as
// minX, minY, maxX, maxY. A single convex path is drawn directly; anything
// else goes through the stencil.
func (r *Renderer) SubmitFill(paint *Paint, scissor *Scissor, fringe float32, bounds [4]float32, paths []Path) error {
	if err := r.checkPaint(paint); err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}
	c := call{kind: callFill, pathCount: len(paths)}
	if len(paths) == 1 && paths[0].Convex {
		c.kind = callConvexFill
	}
	c.pathStart = r.appendPaths(paths, true)

	if c.kind == callFill {
		c.vertStart = len(r.verts)
		r.verts = appendStrip(r.verts, []Vertex{
			{X: bounds[2], Y: bounds[3], U: 0.5, V: 1},
			{X: bounds[2], Y: bounds[1], U: 0.5, V: 1},
			{X: bounds[0], Y: bounds[3], U: 0.5, V: 1},
			{X: bounds[0], Y: bounds[1], U: 0.5, V: 1},
		})
		c.vertCount = len(r.verts) - c.vertStart

		// The stencil pass only needs the view size and the simple
		// shader type.
		c.uniform = r.allocUniforms(2)
		simple := fragUniforms{strokeThr: -1, kind: shaderSimple}
		simple.encode(r.block(c.uniform, 0))
		var u fragUniforms
		r.convertPaint(&u, paint, scissor, fringe, fringe, -1)
		u.encode(r.block(c.uniform, 1))
	} else {
		c.uniform = r.allocUniforms(1)
		var u fragUniforms
		r.convertPaint(&u, paint, scissor, fringe, fringe, -1)
		u.encode(r.block(c.uniform, 0))
	}
	r.bindPaint(&c, paint)
	r.calls = append(r.calls, c)
	r.stats.Calls++
	return nil
}

// SubmitStroke queues a stroke of paths with the given stroke width.
func (r *Renderer) SubmitStroke(paint *Paint, scissor *Scissor, fringe, strokeWidth float32, paths []Path) error {
	if err := r.checkPaint(paint); err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}
	c := call{kind: callStroke, pathCount: len(paths)}
	c.pathStart = r.appendPaths(paths, false)

	var u fragUniforms
	if r.flags&StencilStrokes != 0 {
		c.uniform = r.allocUniforms(2)
		r.convertPaint(&u, paint, scissor, strokeWidth, fringe, -1)
		u.encode(r.block(c.uniform, 0))
		r.convertPaint(&u, paint, scissor, strokeWidth, fringe, 1-0.5/255)
		u.encode(r.block(c.uniform, 1))
	} else {
		c.uniform = r.allocUniforms(1)
		r.convertPaint(&u, paint, scissor, strokeWidth, fringe, -1)
		u.encode(r.block(c.uniform, 0))
	}
	r.bindPaint(&c, paint)
	r.calls = append(r.calls, c)
	r.stats.Calls++
	return nil
}

// SubmitTriangles queues a triangle list, typically glyph quads sampled
// from an alpha texture.
func (r *Renderer) SubmitTriangles(paint *Paint, scissor *Scissor, verts []Vertex) error {
	if err := r.checkPaint(paint); err != nil {
		return err
	}
	if len(verts) < 3 {
		return nil
	}
	c := call{kind: callTriangles, vertStart: len(r.verts)}
	r.verts = append(r.verts, verts[:len(verts)/3*3]...)
	c.vertCount = len(r.verts) - c.vertStart

	c.uniform = r.allocUniforms(1)
	var u fragUniforms
	r.convertPaint(&u, paint, scissor, 1, 1, -1)
	u.kind = shaderTriangles
	u.encode(r.block(c.uniform, 0))

	r.bindPaint(&c, paint)
	r.calls = append(r.calls, c)
	r.stats.Calls++
	return nil
}
