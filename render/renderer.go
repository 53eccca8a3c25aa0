// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gpuframe"
	"github.com/gogpu/gpuframe/gpucore"
)

// Flags configure a Renderer.
type Flags uint8

// Renderer flags.
const (
	// AntiAlias draws anti-aliasing fringes and selects the pipeline
	// variants that apply the stroke coverage mask.
	AntiAlias Flags = 1 << iota

	// StencilStrokes draws strokes through the stencil buffer so
	// overlapping segments do not blend twice.
	StencilStrokes
)

// Errors returned by the renderer.
var (
	// ErrNoFrame is returned by RenderFlush outside Start/End.
	ErrNoFrame = errors.New("render: no frame in progress")

	// ErrInvalidTexture is returned when a paint references a texture id
	// that does not exist.
	ErrInvalidTexture = errors.New("render: invalid texture")
)

// Stats counts renderer activity since creation.
type Stats struct {
	Textures         int
	Calls            int
	Flushes          int
	Draws            int
	PipelineSwitches int
	BindingChanges   int
	Vertices         int
	UniformBytes     uint64
	Cancelled        int
}

// Renderer queues NanoVG-style draw calls and replays them into the frame
// of a gpuframe.Context.
type Renderer struct {
	ctx   *gpuframe.Context
	flags Flags
	log   *slog.Logger

	pipelines [gpucore.PipelineKindCount]gpucore.Pipeline

	textures map[int]*texture
	nextID   int
	samplers samplerCache

	view     [2]float32
	ratio    float32
	calls    []call
	paths    []pathRange
	verts    []Vertex
	uniforms []byte
	stride   uint64

	stats  Stats
	closed bool
}

// New creates a renderer for ctx and builds its pipelines.
func New(ctx *gpuframe.Context, flags Flags) (*Renderer, error) {
	if !ctx.Running() {
		return nil, gpuframe.ErrNotRunning
	}
	align := ctx.Caps().UniformAlignment
	if align == 0 {
		align = 256
	}
	r := &Renderer{
		ctx:      ctx,
		flags:    flags,
		log:      ctx.Logger(),
		textures: make(map[int]*texture),
		nextID:   1,
		samplers: newSamplerCache(ctx.Device(), ctx.Samplers()),
		ratio:    1,
		stride:   (uniformSize + align - 1) / align * align,
	}
	w, h := ctx.Size()
	r.view = [2]float32{float32(w), float32(h)}

	for kind := range r.pipelines {
		p, err := ctx.Device().CreatePipeline(ctx.RootSignature(), &gpucore.PipelineDesc{
			Kind:        gpucore.PipelineKind(kind),
			AntiAlias:   flags&AntiAlias != 0,
			Format:      ctx.Format(),
			DepthFormat: ctx.DepthFormat(),
		})
		if err != nil {
			r.releasePipelines()
			return nil, fmt.Errorf("render: create %s pipeline: %w", gpucore.PipelineKind(kind), err)
		}
		r.pipelines[kind] = p
	}
	r.log.Debug("render: created", "antialias", flags&AntiAlias != 0, "stencil_strokes", flags&StencilStrokes != 0)
	return r, nil
}

// Flags returns the flags the renderer was created with.
func (r *Renderer) Flags() Flags { return r.flags }

// Stats returns renderer counters.
func (r *Renderer) Stats() Stats {
	s := r.stats
	s.Textures = len(r.textures)
	return s
}

// Close releases every texture, sampler and pipeline. The Context must
// still be open and outside a frame; Close waits for submitted work first.
func (r *Renderer) Close() error {
	if r.closed {
		return nil
	}
	if err := r.ctx.WaitIdle(); err != nil && !errors.Is(err, gpuframe.ErrClosed) {
		return err
	}
	r.closed = true
	r.RenderCancel()
	for id, tex := range r.textures {
		tex.res.ModifyRefCount(-1)
		delete(r.textures, id)
	}
	r.samplers.release()
	r.releasePipelines()
	return nil
}

func (r *Renderer) releasePipelines() {
	for i, p := range r.pipelines {
		if p != nil {
			p.Release()
			r.pipelines[i] = nil
		}
	}
}

// SetViewport sets the size of the drawing area in logical pixels and the
// device pixel ratio.
func (r *Renderer) SetViewport(width, height, ratio float32) {
	r.view = [2]float32{width, height}
	r.ratio = ratio
}

// Viewport returns the values of the last SetViewport.
func (r *Renderer) Viewport() (width, height, ratio float32) {
	return r.view[0], r.view[1], r.ratio
}
