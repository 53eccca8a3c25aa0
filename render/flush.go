// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gpuframe/gpucore"
)

// replay tracks the bound state while calls are recorded so unchanged
// state is not set twice.
type replay struct {
	r        *Renderer
	cl       gpucore.CommandList
	uniforms gpucore.Resource
	base     uint64
	pipeline gpucore.PipelineKind
	bound    bool
	bindings gpucore.Bindings
	hasBind  bool
}

func (p *replay) use(kind gpucore.PipelineKind, c *call, block int) {
	if !p.bound || p.pipeline != kind {
		p.cl.SetPipeline(p.r.pipelines[kind])
		p.pipeline = kind
		p.bound = true
		p.r.stats.PipelineSwitches++
	}
	b := gpucore.Bindings{
		Uniform:       p.uniforms,
		UniformOffset: p.base + c.uniform + uint64(block)*p.r.stride,
		UniformSize:   uniformSize,
		Texture:       c.texture,
		Sampler:       c.sampler,
	}
	if !p.hasBind || b != p.bindings {
		p.cl.SetBindings(b)
		p.bindings = b
		p.hasBind = true
		p.r.stats.BindingChanges++
	}
}

func (p *replay) draw(start, count int) {
	if count == 0 {
		return
	}
	p.cl.Draw(uint32(count), uint32(start))
	p.r.stats.Draws++
}

func (p *replay) fills(c *call) {
	for _, pr := range p.r.paths[c.pathStart : c.pathStart+c.pathCount] {
		p.draw(pr.fillStart, pr.fillCount)
	}
}

func (p *replay) strokes(c *call) {
	for _, pr := range p.r.paths[c.pathStart : c.pathStart+c.pathCount] {
		p.draw(pr.strokeStart, pr.strokeCount)
	}
}

// RenderFlush uploads the queued vertices and uniforms once and records
// every queued call into the frame's command list. The queue is empty
// afterwards; outside a frame the calls are cancelled and ErrNoFrame is
// returned.
func (r *Renderer) RenderFlush() error {
	if !r.ctx.InFrame() {
		r.RenderCancel()
		return ErrNoFrame
	}
	defer r.reset()
	if len(r.calls) == 0 {
		return nil
	}

	for off := uint64(0); off < uint64(len(r.uniforms)); off += r.stride {
		for i, v := range r.view {
			binary.LittleEndian.PutUint32(r.uniforms[off+viewSizeOffset+uint64(i)*4:], math.Float32bits(v))
		}
	}

	ring := r.ctx.Resources().Ring()
	vbytes := uint64(len(r.verts)) * gpucore.VertexStride
	ub := ring.Alloc(uint64(len(r.uniforms)), r.stride)
	copy(ub.Bytes, r.uniforms)

	cl := r.ctx.CommandList()
	if vbytes > 0 {
		vb := ring.Alloc(vbytes, gpucore.VertexStride)
		for i, v := range r.verts {
			o := i * gpucore.VertexStride
			binary.LittleEndian.PutUint32(vb.Bytes[o:], math.Float32bits(v.X))
			binary.LittleEndian.PutUint32(vb.Bytes[o+4:], math.Float32bits(v.Y))
			binary.LittleEndian.PutUint32(vb.Bytes[o+8:], math.Float32bits(v.U))
			binary.LittleEndian.PutUint32(vb.Bytes[o+12:], math.Float32bits(v.V))
		}
		cl.SetVertexBuffer(vb.Buffer, vb.Offset, vbytes, gpucore.VertexStride)
	}
	p := replay{r: r, cl: cl, uniforms: ub.Buffer, base: ub.Offset}

	for i := range r.calls {
		c := &r.calls[i]
		switch c.kind {
		case callFill:
			p.use(gpucore.PipelineFillStencil, c, 0)
			p.fills(c)
			if r.flags&AntiAlias != 0 {
				p.use(gpucore.PipelineFillAA, c, 1)
				p.strokes(c)
			}
			p.use(gpucore.PipelineFillCover, c, 1)
			p.draw(c.vertStart, c.vertCount)
		case callConvexFill:
			p.use(gpucore.PipelineDraw, c, 0)
			p.fills(c)
			p.strokes(c)
		case callStroke:
			if r.flags&StencilStrokes != 0 {
				p.use(gpucore.PipelineStrokeStencil, c, 1)
				p.strokes(c)
				p.use(gpucore.PipelineStrokeAA, c, 0)
				p.strokes(c)
				p.use(gpucore.PipelineStrokeClear, c, 0)
				p.strokes(c)
			} else {
				p.use(gpucore.PipelineDraw, c, 0)
				p.strokes(c)
			}
		case callTriangles:
			p.use(gpucore.PipelineDraw, c, 0)
			p.draw(c.vertStart, c.vertCount)
		}
	}

	r.stats.Flushes++
	r.stats.Vertices += len(r.verts)
	r.stats.UniformBytes += uint64(len(r.uniforms))
	r.log.Debug("render: flush", "calls", len(r.calls), "vertices", len(r.verts), "switches", r.stats.PipelineSwitches)
	return nil
}

// RenderCancel drops every queued call.
func (r *Renderer) RenderCancel() {
	r.stats.Cancelled += len(r.calls)
	r.reset()
}

func (r *Renderer) reset() {
	r.calls = r.calls[:0]
	r.paths = r.paths[:0]
	r.verts = r.verts[:0]
	r.uniforms = r.uniforms[:0]
}

// Pending returns the number of queued calls.
func (r *Renderer) Pending() int { return len(r.calls) }
