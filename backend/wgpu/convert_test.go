// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuframe/gpucore"
)

func TestTextureUsage(t *testing.T) {
	tests := []struct {
		state gpucore.ResourceState
		want  gputypes.TextureUsage
	}{
		{gpucore.StateRenderTarget, gputypes.TextureUsageRenderAttachment},
		{gpucore.StateDepthWrite, gputypes.TextureUsageRenderAttachment},
		{gpucore.StateShaderResource, gputypes.TextureUsageTextureBinding},
		{gpucore.StateDepthRead, gputypes.TextureUsageTextureBinding},
		{gpucore.StateCopyDest, gputypes.TextureUsageCopyDst},
		{gpucore.StateCopySource, gputypes.TextureUsageCopySrc},
		{gpucore.StatePresent, 0},
		{gpucore.StateCommon, 0},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := textureUsage(tt.state); got != tt.want {
				t.Errorf("textureUsage(%s) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

func TestBufferUsage(t *testing.T) {
	if got := bufferUsage(gpucore.StateCommon); got != 0 {
		t.Errorf("bufferUsage(Common) = %v, want 0", got)
	}
	if got := bufferUsage(gpucore.StateGenericRead); got&gputypes.BufferUsageVertex == 0 || got&gputypes.BufferUsageCopySrc == 0 {
		t.Errorf("bufferUsage(GenericRead) = %v, want vertex and copy source", got)
	}
	if got := bufferUsageFor(gpucore.MemoryReadback); got != gputypes.BufferUsageMapRead|gputypes.BufferUsageCopyDst {
		t.Errorf("bufferUsageFor(readback) = %v", got)
	}
}

func TestTextureUsageFor(t *testing.T) {
	tests := []struct {
		name    string
		flags   gpucore.ResourceFlags
		want    gputypes.TextureUsage
		notWant gputypes.TextureUsage
	}{
		{"sampled", 0, gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst, gputypes.TextureUsageRenderAttachment},
		{"render target", gpucore.AllowRenderTarget, gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc, 0},
		{"depth", gpucore.AllowDepthStencil, gputypes.TextureUsageRenderAttachment, gputypes.TextureUsageTextureBinding},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := textureUsageFor(&gpucore.ResourceDesc{Flags: tt.flags})
			if got&tt.want != tt.want {
				t.Errorf("textureUsageFor() = %v, missing %v", got, tt.want)
			}
			if got&tt.notWant != 0 {
				t.Errorf("textureUsageFor() = %v, must not include %v", got, tt.notWant)
			}
		})
	}
}

func TestCapsFromLimits(t *testing.T) {
	caps := capsFromLimits(gputypes.Limits{MaxTextureDimension2D: 4096})
	if caps.UniformAlignment != defaultUniformAlignment {
		t.Errorf("UniformAlignment = %d, want %d", caps.UniformAlignment, defaultUniformAlignment)
	}
	if caps.MaxTextureSize != 4096 {
		t.Errorf("MaxTextureSize = %d, want 4096", caps.MaxTextureSize)
	}
	caps = capsFromLimits(gputypes.Limits{MinUniformBufferOffsetAlignment: 64})
	if caps.UniformAlignment != 64 {
		t.Errorf("UniformAlignment = %d, want 64", caps.UniformAlignment)
	}
}

func TestSamplerDescriptor(t *testing.T) {
	d := samplerDescriptor(gpucore.SamplerDesc{})
	if d.AddressModeU != gputypes.AddressModeClampToEdge || d.MagFilter != gputypes.FilterModeLinear {
		t.Errorf("default sampler = %+v", d)
	}
	if d.LodMaxClamp != 0 {
		t.Errorf("LodMaxClamp = %v without mipmaps, want 0", d.LodMaxClamp)
	}

	d = samplerDescriptor(gpucore.SamplerDesc{RepeatX: true, Nearest: true, Mipmaps: true})
	if d.AddressModeU != gputypes.AddressModeRepeat || d.AddressModeV != gputypes.AddressModeClampToEdge {
		t.Errorf("address modes = %v, %v", d.AddressModeU, d.AddressModeV)
	}
	if d.MinFilter != gputypes.FilterModeNearest || d.MipmapFilter != gputypes.FilterModeLinear {
		t.Errorf("filters = %v, mip %v", d.MinFilter, d.MipmapFilter)
	}
	if d.LodMaxClamp == 0 {
		t.Error("LodMaxClamp = 0 with mipmaps")
	}
}

func TestDeviceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"lost", hal.ErrDeviceLost, gpucore.ErrDeviceLost},
		{"oom", fmt.Errorf("alloc: %w", hal.ErrDeviceOutOfMemory), gpucore.ErrOutOfMemory},
		{"surface lost", hal.ErrSurfaceLost, gpucore.ErrSwapchain},
		{"outdated", hal.ErrSurfaceOutdated, gpucore.ErrSwapchain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := deviceError("op", tt.err)
			if !errors.Is(err, tt.want) {
				t.Errorf("deviceError() = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("deviceError() = %v lost the cause", err)
			}
		})
	}
	if deviceError("op", nil) != nil {
		t.Error("deviceError(nil) != nil")
	}
}

func TestDepthStencilState(t *testing.T) {
	tests := []struct {
		kind      gpucore.PipelineKind
		compare   gputypes.CompareFunction
		frontPass hal.StencilOperation
		backPass  hal.StencilOperation
	}{
		{gpucore.PipelineDraw, gputypes.CompareFunctionAlways, hal.StencilOperationKeep, hal.StencilOperationKeep},
		{gpucore.PipelineFillStencil, gputypes.CompareFunctionAlways, hal.StencilOperationIncrementWrap, hal.StencilOperationDecrementWrap},
		{gpucore.PipelineFillAA, gputypes.CompareFunctionEqual, hal.StencilOperationKeep, hal.StencilOperationKeep},
		{gpucore.PipelineFillCover, gputypes.CompareFunctionNotEqual, hal.StencilOperationZero, hal.StencilOperationZero},
		{gpucore.PipelineStrokeStencil, gputypes.CompareFunctionEqual, hal.StencilOperationIncrementClamp, hal.StencilOperationIncrementClamp},
		{gpucore.PipelineStrokeAA, gputypes.CompareFunctionEqual, hal.StencilOperationKeep, hal.StencilOperationKeep},
		{gpucore.PipelineStrokeClear, gputypes.CompareFunctionAlways, hal.StencilOperationZero, hal.StencilOperationZero},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			ds := depthStencilState(&gpucore.PipelineDesc{
				Kind:        tt.kind,
				DepthFormat: gputypes.TextureFormatDepth24PlusStencil8,
			})
			if ds == nil {
				t.Fatal("depthStencilState() = nil")
			}
			if ds.DepthWriteEnabled || ds.DepthCompare != gputypes.CompareFunctionAlways {
				t.Errorf("depth state = write %v, compare %v", ds.DepthWriteEnabled, ds.DepthCompare)
			}
			if ds.StencilFront.Compare != tt.compare {
				t.Errorf("front compare = %v, want %v", ds.StencilFront.Compare, tt.compare)
			}
			if ds.StencilFront.PassOp != tt.frontPass || ds.StencilBack.PassOp != tt.backPass {
				t.Errorf("pass ops = %v/%v, want %v/%v",
					ds.StencilFront.PassOp, ds.StencilBack.PassOp, tt.frontPass, tt.backPass)
			}
		})
	}
	if ds := depthStencilState(&gpucore.PipelineDesc{Kind: gpucore.PipelineDraw}); ds != nil {
		t.Error("depthStencilState() without depth format != nil")
	}
}

func TestPipelineDescriptorColorWrites(t *testing.T) {
	for k := gpucore.PipelineKind(0); int(k) < gpucore.PipelineKindCount; k++ {
		desc := &gpucore.PipelineDesc{
			Kind:        k,
			AntiAlias:   k == gpucore.PipelineStrokeAA,
			Format:      gputypes.TextureFormatBGRA8Unorm,
			DepthFormat: gputypes.TextureFormatDepth24PlusStencil8,
		}
		pd := pipelineDescriptor(&RootSignature{}, nil, desc)
		mask := pd.Fragment.Targets[0].WriteMask
		if k.WritesColor() != (mask == gputypes.ColorWriteMaskAll) {
			t.Errorf("%s: write mask = %v", k, mask)
		}
		wantEntry := "fs_main"
		if desc.AntiAlias {
			wantEntry = "fs_aa"
		}
		if pd.Fragment.EntryPoint != wantEntry {
			t.Errorf("%s: fragment entry = %q, want %q", k, pd.Fragment.EntryPoint, wantEntry)
		}
		if pd.Vertex.Buffers[0].ArrayStride != gpucore.VertexStride {
			t.Errorf("%s: stride = %d", k, pd.Vertex.Buffers[0].ArrayStride)
		}
	}
}

func TestCompileShader(t *testing.T) {
	words, err := compileSPIRV(shaderSource)
	if err != nil {
		t.Fatalf("compileSPIRV() error = %v", err)
	}
	if len(words) < 5 {
		t.Fatalf("compileSPIRV() = %d words", len(words))
	}
	if words[0] != 0x07230203 {
		t.Errorf("SPIR-V magic = %#x", words[0])
	}
}
