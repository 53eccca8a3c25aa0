package gpucore

import "github.com/gogpu/gputypes"

// PipelineKind selects one of the fixed draw configurations used to render
// anti-aliased 2D paths with the stencil-then-cover technique.
type PipelineKind uint8

// Pipeline kinds.
const (
	// PipelineDraw draws triangles with color writes and no stencil test.
	PipelineDraw PipelineKind = iota

	// PipelineFillStencil accumulates winding into the stencil buffer:
	// front faces increment, back faces decrement, color writes off.
	PipelineFillStencil

	// PipelineFillAA draws fringes where stencil is zero.
	PipelineFillAA

	// PipelineFillCover covers the bounds where stencil is non-zero and
	// zeroes the stencil on the way.
	PipelineFillCover

	// PipelineStrokeStencil draws a stroke where stencil equals zero and
	// increments it, so overlapping segments touch each pixel once.
	PipelineStrokeStencil

	// PipelineStrokeAA draws the anti-aliased stroke where stencil equals
	// zero without changing it.
	PipelineStrokeAA

	// PipelineStrokeClear zeroes the stencil under a stroke.
	PipelineStrokeClear

	pipelineKindCount
)

// PipelineKindCount is the number of pipeline kinds.
const PipelineKindCount = int(pipelineKindCount)

var pipelineNames = [...]string{
	PipelineDraw:          "draw",
	PipelineFillStencil:   "fill_stencil",
	PipelineFillAA:        "fill_aa",
	PipelineFillCover:     "fill_cover",
	PipelineStrokeStencil: "stroke_stencil",
	PipelineStrokeAA:      "stroke_aa",
	PipelineStrokeClear:   "stroke_clear",
}

// String returns the pipeline kind name.
func (k PipelineKind) String() string {
	if int(k) < len(pipelineNames) {
		return pipelineNames[k]
	}
	return "unknown"
}

// WritesColor reports whether the kind writes the color target.
func (k PipelineKind) WritesColor() bool {
	return k != PipelineFillStencil && k != PipelineStrokeClear
}

// PipelineDesc describes a pipeline.
type PipelineDesc struct {
	Kind PipelineKind

	// AntiAlias selects the fragment variant that applies the stroke
	// anti-aliasing mask and discards below the stroke threshold.
	AntiAlias bool

	Format      gputypes.TextureFormat
	DepthFormat gputypes.TextureFormat
}

// Vertex layout shared by every pipeline: position then texture coordinate,
// both float32x2.
const (
	VertexStride   = 16
	VertexUVOffset = 8
)
