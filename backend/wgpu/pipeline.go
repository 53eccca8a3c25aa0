// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuframe/gpucore"
)

//go:embed shaders/paths.wgsl
var shaderSource string

// uniformBlockSize is the byte size of the shader's uniform struct.
const uniformBlockSize = 192

// compileSPIRV compiles WGSL to little-endian SPIR-V words.
func compileSPIRV(src string) ([]uint32, error) {
	b, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile shader: %w", err)
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) | uint32(b[i*4+1])<<8 | uint32(b[i*4+2])<<16 | uint32(b[i*4+3])<<24
	}
	return words, nil
}

func compileShader(dev hal.Device) (hal.ShaderModule, error) {
	code, err := compileSPIRV(shaderSource)
	if err != nil {
		return nil, err
	}
	m, err := dev.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "gpuframe-paths",
		Source: hal.ShaderSource{SPIRV: code},
	})
	if err != nil {
		return nil, deviceError("create shader module", err)
	}
	return m, nil
}

// RootSignature is one bind group layout: the dynamic uniform block, the
// paint texture and its sampler.
type RootSignature struct {
	dev      *Device
	layout   hal.BindGroupLayout
	pipeline hal.PipelineLayout
	released bool
}

// CreateRootSignature creates the binding layout shared by every pipeline.
func (d *Device) CreateRootSignature() (gpucore.RootSignature, error) {
	bgl, err := d.hal.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "gpuframe-bindings",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStagesVertexFragment,
				Buffer: &gputypes.BufferBindingLayout{
					Type:             gputypes.BufferBindingTypeUniform,
					HasDynamicOffset: true,
					MinBindingSize:   uniformBlockSize,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return nil, deviceError("create bind group layout", err)
	}
	pl, err := d.hal.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "gpuframe-layout",
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		d.hal.DestroyBindGroupLayout(bgl)
		return nil, deviceError("create pipeline layout", err)
	}
	return &RootSignature{dev: d, layout: bgl, pipeline: pl}, nil
}

// Release destroys the layouts and the bind groups built from them.
func (r *RootSignature) Release() {
	if r.released {
		return
	}
	r.released = true
	r.dev.dropGroups(func(k groupKey) bool { return k.root == r })
	r.dev.hal.DestroyPipelineLayout(r.pipeline)
	r.dev.hal.DestroyBindGroupLayout(r.layout)
}

// Pipeline is a compiled render pipeline for one draw configuration.
type Pipeline struct {
	dev      *Device
	desc     gpucore.PipelineDesc
	root     *RootSignature
	hal      hal.RenderPipeline
	released bool
}

// CreatePipeline compiles the pipeline of desc.Kind.
func (d *Device) CreatePipeline(root gpucore.RootSignature, desc *gpucore.PipelineDesc) (gpucore.Pipeline, error) {
	rs, ok := root.(*RootSignature)
	if !ok || rs == nil {
		return nil, fmt.Errorf("wgpu: create pipeline %s: foreign root signature %T", desc.Kind, root)
	}
	if desc.Kind != gpucore.PipelineDraw && desc.DepthFormat == gputypes.TextureFormatUndefined {
		return nil, fmt.Errorf("wgpu: create pipeline %s: stencil kinds need a depth format", desc.Kind)
	}
	if err := d.ensureDefaults(); err != nil {
		return nil, err
	}
	p, err := d.hal.CreateRenderPipeline(pipelineDescriptor(rs, d.shader, desc))
	if err != nil {
		return nil, deviceError("create pipeline "+desc.Kind.String(), err)
	}
	return &Pipeline{dev: d, desc: *desc, root: rs, hal: p}, nil
}

func pipelineDescriptor(rs *RootSignature, module hal.ShaderModule, desc *gpucore.PipelineDesc) *hal.RenderPipelineDescriptor {
	blend := gputypes.BlendStatePremultiplied()
	mask := gputypes.ColorWriteMaskAll
	if !desc.Kind.WritesColor() {
		mask = gputypes.ColorWriteMaskNone
	}
	entry := "fs_main"
	if desc.AntiAlias {
		entry = "fs_aa"
	}
	return &hal.RenderPipelineDescriptor{
		Label:  "gpuframe-" + desc.Kind.String(),
		Layout: rs.pipeline,
		Vertex: hal.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []gputypes.VertexBufferLayout{{
				ArrayStride: gpucore.VertexStride,
				StepMode:    gputypes.VertexStepModeVertex,
				Attributes: []gputypes.VertexAttribute{
					{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
					{Format: gputypes.VertexFormatFloat32x2, Offset: gpucore.VertexUVOffset, ShaderLocation: 1},
				},
			}},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		DepthStencil: depthStencilState(desc),
		Multisample:  gputypes.DefaultMultisampleState(),
		Fragment: &hal.FragmentState{
			Module:     module,
			EntryPoint: entry,
			Targets: []gputypes.ColorTargetState{{
				Format:    desc.Format,
				Blend:     &blend,
				WriteMask: mask,
			}},
		},
	}
}

func stencilFace(cmp gputypes.CompareFunction, fail, pass hal.StencilOperation) hal.StencilFaceState {
	return hal.StencilFaceState{Compare: cmp, FailOp: fail, DepthFailOp: fail, PassOp: pass}
}

// depthStencilState returns the stencil-then-cover state of a kind. Depth
// is never tested or written.
func depthStencilState(desc *gpucore.PipelineDesc) *hal.DepthStencilState {
	if desc.DepthFormat == gputypes.TextureFormatUndefined {
		return nil
	}
	const (
		keep = hal.StencilOperationKeep
		zero = hal.StencilOperationZero
	)
	ds := &hal.DepthStencilState{
		Format:           desc.DepthFormat,
		DepthCompare:     gputypes.CompareFunctionAlways,
		StencilReadMask:  0xff,
		StencilWriteMask: 0xff,
	}
	front := stencilFace(gputypes.CompareFunctionAlways, keep, keep)
	back := front
	switch desc.Kind {
	case gpucore.PipelineFillStencil:
		front = stencilFace(gputypes.CompareFunctionAlways, keep, hal.StencilOperationIncrementWrap)
		back = stencilFace(gputypes.CompareFunctionAlways, keep, hal.StencilOperationDecrementWrap)
	case gpucore.PipelineFillAA, gpucore.PipelineStrokeAA:
		front = stencilFace(gputypes.CompareFunctionEqual, keep, keep)
		back = front
	case gpucore.PipelineFillCover:
		front = stencilFace(gputypes.CompareFunctionNotEqual, zero, zero)
		back = front
	case gpucore.PipelineStrokeStencil:
		front = stencilFace(gputypes.CompareFunctionEqual, keep, hal.StencilOperationIncrementClamp)
		back = front
	case gpucore.PipelineStrokeClear:
		front = stencilFace(gputypes.CompareFunctionAlways, zero, zero)
		back = front
	}
	ds.StencilFront, ds.StencilBack = front, back
	return ds
}

// Desc returns the pipeline description.
func (p *Pipeline) Desc() gpucore.PipelineDesc { return p.desc }

// Release destroys the pipeline.
func (p *Pipeline) Release() {
	if p.released {
		return
	}
	p.released = true
	p.dev.hal.DestroyRenderPipeline(p.hal)
}
