// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuframe/gpucore"
)

// defaultUniformAlignment applies when the adapter reports no limit.
const defaultUniformAlignment = 256

func adapterInfo(a *hal.ExposedAdapter) gpucore.AdapterInfo {
	return gpucore.AdapterInfo{
		Name:       a.Info.Name,
		DeviceType: a.Info.DeviceType,
		// The HAL reports no memory size; the buffer limit is the closest
		// proxy for ranking adapters of the same type.
		VideoMemory: a.Capabilities.Limits.MaxBufferSize,
		Software:    a.Info.DeviceType == gputypes.DeviceTypeCPU,
	}
}

func capsFromLimits(l gputypes.Limits) gpucore.Caps {
	align := uint64(l.MinUniformBufferOffsetAlignment)
	if align == 0 {
		align = defaultUniformAlignment
	}
	return gpucore.Caps{
		MaxTextureSize:   l.MaxTextureDimension2D,
		UniformAlignment: align,
	}
}

// textureUsage is the usage a texture in state is transitioned to.
// StatePresent maps to zero; the HAL moves swapchain images into the
// present layout itself.
func textureUsage(s gpucore.ResourceState) gputypes.TextureUsage {
	switch s {
	case gpucore.StateRenderTarget, gpucore.StateDepthWrite:
		return gputypes.TextureUsageRenderAttachment
	case gpucore.StateShaderResource, gpucore.StateDepthRead:
		return gputypes.TextureUsageTextureBinding
	case gpucore.StateCopyDest:
		return gputypes.TextureUsageCopyDst
	case gpucore.StateCopySource:
		return gputypes.TextureUsageCopySrc
	default:
		return 0
	}
}

// bufferUsage is the usage a buffer in state is transitioned to.
func bufferUsage(s gpucore.ResourceState) gputypes.BufferUsage {
	switch s {
	case gpucore.StateVertexAndConstant:
		return gputypes.BufferUsageVertex | gputypes.BufferUsageUniform
	case gpucore.StateIndex:
		return gputypes.BufferUsageIndex
	case gpucore.StateCopyDest:
		return gputypes.BufferUsageCopyDst
	case gpucore.StateCopySource:
		return gputypes.BufferUsageCopySrc
	case gpucore.StateGenericRead:
		return gputypes.BufferUsageVertex | gputypes.BufferUsageUniform | gputypes.BufferUsageCopySrc
	default:
		return 0
	}
}

// textureUsageFor returns every usage a texture created from desc needs
// over its lifetime.
func textureUsageFor(desc *gpucore.ResourceDesc) gputypes.TextureUsage {
	switch {
	case desc.Flags&gpucore.AllowDepthStencil != 0:
		return gputypes.TextureUsageRenderAttachment
	case desc.Flags&gpucore.AllowRenderTarget != 0:
		return gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc |
			gputypes.TextureUsageCopyDst | gputypes.TextureUsageTextureBinding
	default:
		return gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst | gputypes.TextureUsageCopySrc
	}
}

// bufferUsageFor returns the usage flags of a buffer in heap.
func bufferUsageFor(heap gpucore.MemoryHeap) gputypes.BufferUsage {
	switch heap {
	case gpucore.MemoryUpload:
		return gputypes.BufferUsageVertex | gputypes.BufferUsageUniform |
			gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst
	case gpucore.MemoryReadback:
		return gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst
	default:
		return gputypes.BufferUsageVertex | gputypes.BufferUsageUniform |
			gputypes.BufferUsageCopyDst | gputypes.BufferUsageCopySrc
	}
}

func isDepthFormat(f gputypes.TextureFormat) bool {
	switch f {
	case gputypes.TextureFormatDepth24PlusStencil8, gputypes.TextureFormatDepth24Plus,
		gputypes.TextureFormatDepth32Float, gputypes.TextureFormatDepth16Unorm,
		gputypes.TextureFormatDepth32FloatStencil8, gputypes.TextureFormatStencil8:
		return true
	}
	return false
}

func samplerDescriptor(s gpucore.SamplerDesc) *hal.SamplerDescriptor {
	d := &hal.SamplerDescriptor{
		Label:        "gpuframe-sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
	}
	if s.RepeatX {
		d.AddressModeU = gputypes.AddressModeRepeat
	}
	if s.RepeatY {
		d.AddressModeV = gputypes.AddressModeRepeat
	}
	if s.Nearest {
		d.MagFilter = gputypes.FilterModeNearest
		d.MinFilter = gputypes.FilterModeNearest
	}
	if s.Mipmaps {
		d.MipmapFilter = gputypes.FilterModeLinear
	} else {
		d.LodMaxClamp = 0
	}
	return d
}

// deviceError maps HAL failures onto the gpucore sentinels.
func deviceError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, hal.ErrDeviceLost):
		return fmt.Errorf("wgpu: %s: %w: %w", op, gpucore.ErrDeviceLost, err)
	case errors.Is(err, hal.ErrDeviceOutOfMemory):
		return fmt.Errorf("wgpu: %s: %w: %w", op, gpucore.ErrOutOfMemory, err)
	case errors.Is(err, hal.ErrSurfaceLost), errors.Is(err, hal.ErrSurfaceOutdated):
		return fmt.Errorf("wgpu: %s: %w: %w", op, gpucore.ErrSwapchain, err)
	default:
		return fmt.Errorf("wgpu: %s: %w", op, err)
	}
}
