// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuframe/gpucore"
)

// Resource is a HAL buffer or texture, or a proxy for a swapchain image.
type Resource struct {
	dev  *Device
	desc gpucore.ResourceDesc

	buf hal.Buffer
	tex hal.Texture

	// shadow is the host copy of an upload buffer.
	shadow []byte

	// mapped is the live mapping of a readback buffer.
	mapped []byte

	// usage is the last usage a texture was transitioned to; zero until
	// its contents are defined.
	usage gputypes.TextureUsage

	// chain is set on back buffers, whose texture is acquired per frame.
	chain *Swapchain

	released bool
}

func asResource(res gpucore.Resource) *Resource {
	if res == nil {
		return nil
	}
	r, _ := res.(*Resource)
	return r
}

func (d *Device) newBuffer(desc *gpucore.ResourceDesc) (*Resource, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("wgpu: buffer %q has zero size", desc.Label)
	}
	size := (desc.Size + 3) &^ 3
	buf, err := d.hal.CreateBuffer(&hal.BufferDescriptor{
		Label: desc.Label,
		Size:  size,
		Usage: bufferUsageFor(desc.Heap),
	})
	if err != nil {
		return nil, deviceError("create buffer "+desc.Label, err)
	}
	r := &Resource{dev: d, desc: *desc, buf: buf}
	if desc.Heap == gpucore.MemoryUpload {
		r.shadow = make([]byte, size)
	}
	return r, nil
}

func (d *Device) newTexture(desc *gpucore.ResourceDesc) (*Resource, error) {
	if gpucore.BytesPerPixel(desc.Format) == 0 {
		return nil, fmt.Errorf("wgpu: texture %q format %v: %w", desc.Label, desc.Format, gpucore.ErrUnsupported)
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("wgpu: texture %q has zero extent", desc.Label)
	}
	if limit := d.caps.MaxTextureSize; limit > 0 && (desc.Width > limit || desc.Height > limit) {
		return nil, fmt.Errorf("wgpu: texture %q %dx%d exceeds %d: %w",
			desc.Label, desc.Width, desc.Height, limit, gpucore.ErrOutOfMemory)
	}
	dd := *desc
	dd.MipLevels = max(dd.MipLevels, 1)
	dd.ArraySize = max(dd.ArraySize, 1)
	tex, err := d.hal.CreateTexture(&hal.TextureDescriptor{
		Label:         dd.Label,
		Size:          hal.Extent3D{Width: dd.Width, Height: dd.Height, DepthOrArrayLayers: dd.ArraySize},
		MipLevelCount: dd.MipLevels,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        dd.Format,
		Usage:         textureUsageFor(&dd),
	})
	if err != nil {
		return nil, deviceError("create texture "+dd.Label, err)
	}
	return &Resource{dev: d, desc: dd, tex: tex}, nil
}

// Desc returns the creation description.
func (r *Resource) Desc() gpucore.ResourceDesc { return r.desc }

// Map returns the host copy of an upload buffer or the mapping of a
// readback buffer.
func (r *Resource) Map() ([]byte, error) {
	switch {
	case r.buf == nil:
		return nil, fmt.Errorf("wgpu: map %q: not a buffer: %w", r.desc.Label, gpucore.ErrUnsupported)
	case r.desc.Heap == gpucore.MemoryUpload:
		return r.shadow[:r.desc.Size], nil
	case r.desc.Heap == gpucore.MemoryReadback:
		if r.mapped == nil {
			m, err := r.dev.hal.MapBuffer(r.buf, 0, r.desc.Size)
			if err != nil {
				return nil, deviceError("map "+r.desc.Label, err)
			}
			r.mapped = unsafe.Slice((*byte)(m.Ptr), r.desc.Size)
		}
		return r.mapped, nil
	default:
		return nil, fmt.Errorf("wgpu: map %q: default heap: %w", r.desc.Label, gpucore.ErrUnsupported)
	}
}

// Flush writes [offset, offset+size) of the host copy to the buffer.
func (r *Resource) Flush(offset, size uint64) {
	if r.shadow == nil || size == 0 {
		return
	}
	if offset+size > uint64(len(r.shadow)) {
		r.dev.log.Error("wgpu: flush outside buffer", "label", r.desc.Label, "offset", offset, "size", size)
		return
	}
	// Copies must be a multiple of four bytes.
	end := min((offset+size+3)&^3, uint64(len(r.shadow)))
	start := offset &^ 3
	if err := r.dev.queue.hal.WriteBuffer(r.buf, start, r.shadow[start:end]); err != nil {
		r.dev.log.Error("wgpu: write buffer", "label", r.desc.Label, "err", err)
	}
}

// texture returns the HAL texture, acquiring the swapchain image for back
// buffers. It is nil when acquisition failed.
func (r *Resource) texture() hal.Texture {
	if r.chain != nil {
		return r.chain.acquire()
	}
	return r.tex
}

// Release destroys the HAL object with its views and bind groups.
func (r *Resource) Release() {
	if r.released {
		r.dev.log.Warn("wgpu: double release", "label", r.desc.Label)
		return
	}
	r.released = true
	if r.chain != nil {
		return
	}
	r.dev.dropViews(r)
	switch {
	case r.buf != nil:
		buf := r.buf
		r.dev.dropGroups(func(k groupKey) bool { return k.buf == buf })
		if r.mapped != nil {
			_ = r.dev.hal.UnmapBuffer(buf)
			r.mapped = nil
		}
		r.dev.hal.DestroyBuffer(buf)
	case r.tex != nil:
		r.dev.hal.DestroyTexture(r.tex)
	}
	r.shadow = nil
}
