// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/fatal"
)

// groupKey identifies a cached bind group by the objects it binds.
type groupKey struct {
	root    *RootSignature
	buf     hal.Buffer
	size    uint64
	view    hal.TextureView
	sampler hal.Sampler
}

// Device implements gpucore.Device on a HAL device.
type Device struct {
	mu       sync.Mutex
	hal      hal.Device
	queue    *Queue
	instance hal.Instance
	caps     gpucore.Caps
	log      *slog.Logger

	heaps  []*Heap
	groups map[groupKey]hal.BindGroup

	shader     hal.ShaderModule
	dummy      hal.Texture
	dummyView  hal.TextureView
	defSampler hal.Sampler

	// owned is set when the device was opened by this package and is
	// destroyed on Close.
	owned  bool
	closed bool
}

func newDevice(dev hal.Device, q hal.Queue, caps gpucore.Caps, log *slog.Logger) *Device {
	if caps.UniformAlignment == 0 {
		caps.UniformAlignment = defaultUniformAlignment
	}
	d := &Device{
		hal:    dev,
		caps:   caps,
		log:    fatal.Logger(log),
		groups: make(map[groupKey]hal.BindGroup),
	}
	d.queue = &Queue{dev: d, hal: q}
	return d
}

// Caps returns the device capabilities.
func (d *Device) Caps() gpucore.Caps { return d.caps }

// HAL returns the underlying HAL device.
func (d *Device) HAL() hal.Device { return d.hal }

// CreateCommittedResource creates a buffer or texture. Sampled textures are
// zero-filled so they never expose undefined contents.
func (d *Device) CreateCommittedResource(desc *gpucore.ResourceDesc) (gpucore.Resource, error) {
	if desc.Dimension == gpucore.DimensionBuffer {
		return d.newBuffer(desc)
	}
	r, err := d.newTexture(desc)
	if err != nil {
		return nil, err
	}
	if r.desc.Flags&(gpucore.AllowRenderTarget|gpucore.AllowDepthStencil) == 0 {
		if err := d.zeroFill(r); err != nil {
			r.Release()
			return nil, err
		}
	}
	return r, nil
}

// zeroFill clears mip 0 of every layer; the HAL leaves the texture
// sampleable.
func (d *Device) zeroFill(r *Resource) error {
	bpp := gpucore.BytesPerPixel(r.desc.Format)
	zero := make([]byte, int(r.desc.Width*bpp*r.desc.Height*r.desc.ArraySize))
	err := d.queue.hal.WriteTexture(
		&hal.ImageCopyTexture{Texture: r.tex, Aspect: gputypes.TextureAspectAll},
		zero,
		&hal.ImageDataLayout{BytesPerRow: r.desc.Width * bpp, RowsPerImage: r.desc.Height},
		&hal.Extent3D{Width: r.desc.Width, Height: r.desc.Height, DepthOrArrayLayers: r.desc.ArraySize},
	)
	if err != nil {
		return deviceError("clear texture "+r.desc.Label, err)
	}
	r.usage = gputypes.TextureUsageTextureBinding
	return nil
}

// CreateDescriptorHeap creates an emulated view table.
func (d *Device) CreateDescriptorHeap(kind gpucore.HeapKind, capacity int) (gpucore.DescriptorHeap, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("wgpu: %s heap capacity %d", kind, capacity)
	}
	if uint64(capacity)*descriptorStride > slotMask {
		return nil, fmt.Errorf("wgpu: %s heap capacity %d: %w", kind, capacity, gpucore.ErrOutOfMemory)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := &Heap{dev: d, id: uint64(len(d.heaps) + 1), kind: kind, slots: make([]slot, capacity)}
	d.heaps = append(d.heaps, h)
	return h, nil
}

// CreateRenderTargetView writes a color attachment view.
func (d *Device) CreateRenderTargetView(res gpucore.Resource, at gpucore.CPUHandle) {
	d.writeTextureView(gpucore.HeapRTV, res, at)
}

// CreateDepthStencilView writes a depth-stencil attachment view.
func (d *Device) CreateDepthStencilView(res gpucore.Resource, at gpucore.CPUHandle) {
	d.writeTextureView(gpucore.HeapDSV, res, at)
}

// CreateShaderResourceView writes a sampled view over every mip level.
func (d *Device) CreateShaderResourceView(res gpucore.Resource, at gpucore.CPUHandle) {
	d.writeTextureView(gpucore.HeapSRV, res, at)
}

func (d *Device) writeTextureView(kind gpucore.HeapKind, res gpucore.Resource, at gpucore.CPUHandle) {
	s := d.slotFor(kind, uint64(at))
	if s == nil {
		fatal.Abortf(d.log, "create "+kind.String()+" view", fmt.Sprintf("unknown handle %#x", uint64(at)))
	}
	r := asResource(res)
	if r == nil || r.buf != nil {
		fatal.Abortf(d.log, "create "+kind.String()+" view", "resource is not a texture")
	}
	d.clearSlot(s)
	s.owner = r
	if r.chain != nil {
		// Swapchain images change every frame; the view is made on use.
		return
	}
	view, err := d.createView(kind, r, r.tex)
	if err != nil {
		fatal.Abort(d.log, "create "+kind.String()+" view", err)
	}
	s.view = view
}

func (d *Device) createView(kind gpucore.HeapKind, r *Resource, tex hal.Texture) (hal.TextureView, error) {
	desc := &hal.TextureViewDescriptor{
		Label:           r.desc.Label + "-" + kind.String(),
		Format:          r.desc.Format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	}
	if kind == gpucore.HeapSRV {
		desc.MipLevelCount = max(r.desc.MipLevels, 1)
	}
	view, err := d.hal.CreateTextureView(tex, desc)
	if err != nil {
		return nil, deviceError("create view "+desc.Label, err)
	}
	return view, nil
}

// viewOf returns the attachment view a slot holds, resolving swapchain
// images to the one acquired this frame.
func (d *Device) viewOf(kind gpucore.HeapKind, s *slot) hal.TextureView {
	if s.owner != nil && s.owner.chain != nil {
		return s.owner.chain.currentView(kind)
	}
	return s.view
}

// CreateSampler writes a sampler.
func (d *Device) CreateSampler(desc gpucore.SamplerDesc, at gpucore.CPUHandle) {
	s := d.slotFor(gpucore.HeapSampler, uint64(at))
	if s == nil {
		fatal.Abortf(d.log, "create sampler", fmt.Sprintf("unknown handle %#x", uint64(at)))
	}
	smp, err := d.hal.CreateSampler(samplerDescriptor(desc))
	if err != nil {
		fatal.Abort(d.log, "create sampler", deviceError("create sampler", err))
	}
	d.clearSlot(s)
	s.sampler = smp
}

// CreateCommandAllocator creates an allocator backed by one HAL encoder.
func (d *Device) CreateCommandAllocator() (gpucore.CommandAllocator, error) {
	enc, err := d.hal.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "gpuframe-commands"})
	if err != nil {
		return nil, deviceError("create command encoder", err)
	}
	return &Allocator{dev: d, enc: enc}, nil
}

// CreateCommandList opens a list for recording on alloc.
func (d *Device) CreateCommandList(alloc gpucore.CommandAllocator) (gpucore.CommandList, error) {
	a, ok := alloc.(*Allocator)
	if !ok {
		return nil, fmt.Errorf("wgpu: foreign allocator %T", alloc)
	}
	l := &CommandList{dev: d}
	if err := l.Reset(a); err != nil {
		return nil, err
	}
	return l, nil
}

// CreateFence creates a fence at initial.
func (d *Device) CreateFence(initial uint64) (gpucore.Fence, error) {
	return &Fence{dev: d, completed: initial, signaled: initial}, nil
}

// CreateSwapchain creates a surface for window and configures it.
func (d *Device) CreateSwapchain(window gpucore.Window, desc *gpucore.SwapchainDesc) (gpucore.Swapchain, error) {
	if desc.Legacy {
		return nil, fmt.Errorf("wgpu: legacy presenter: %w", gpucore.ErrUnsupported)
	}
	sw, ok := window.(SurfaceWindow)
	if !ok {
		return nil, fmt.Errorf("wgpu: window %T has no native handles: %w", window, gpucore.ErrSwapchain)
	}
	if d.instance == nil {
		return nil, fmt.Errorf("wgpu: device has no HAL instance: %w", gpucore.ErrUnsupported)
	}
	display, handle := sw.NativeHandles()
	surface, err := d.instance.CreateSurface(display, handle)
	if err != nil {
		return nil, fmt.Errorf("wgpu: create surface: %w: %w", gpucore.ErrSwapchain, err)
	}
	return newSwapchain(d, surface, desc)
}

// ensureDefaults creates the shader module and the objects unbound
// texture and sampler slots fall back to.
func (d *Device) ensureDefaults() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.shader != nil {
		return nil
	}
	module, err := compileShader(d.hal)
	if err != nil {
		return err
	}
	tex, err := d.hal.CreateTexture(&hal.TextureDescriptor{
		Label:         "gpuframe-dummy",
		Size:          hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		d.hal.DestroyShaderModule(module)
		return deviceError("create dummy texture", err)
	}
	white := []byte{0xff, 0xff, 0xff, 0xff}
	err = d.queue.hal.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex, Aspect: gputypes.TextureAspectAll},
		white,
		&hal.ImageDataLayout{BytesPerRow: 4, RowsPerImage: 1},
		&hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)
	if err == nil {
		d.dummyView, err = d.hal.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Label:           "gpuframe-dummy-view",
			Format:          gputypes.TextureFormatRGBA8Unorm,
			Dimension:       gputypes.TextureViewDimension2D,
			Aspect:          gputypes.TextureAspectAll,
			MipLevelCount:   1,
			ArrayLayerCount: 1,
		})
	}
	if err == nil {
		d.defSampler, err = d.hal.CreateSampler(samplerDescriptor(gpucore.SamplerDesc{}))
	}
	if err != nil {
		if d.dummyView != nil {
			d.hal.DestroyTextureView(d.dummyView)
			d.dummyView = nil
		}
		d.hal.DestroyTexture(tex)
		d.hal.DestroyShaderModule(module)
		return deviceError("create defaults", err)
	}
	d.shader, d.dummy = module, tex
	return nil
}

// bindGroup returns the cached group for key, creating it on first use.
func (d *Device) bindGroup(key groupKey) (hal.BindGroup, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if g, ok := d.groups[key]; ok {
		return g, nil
	}
	g, err := d.hal.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "gpuframe-bindings",
		Layout: key.root.layout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: key.buf.NativeHandle(), Size: key.size}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: key.view.NativeHandle()}},
			{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: key.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return nil, deviceError("create bind group", err)
	}
	d.groups[key] = g
	return g, nil
}

// dropGroups destroys the cached groups match selects.
func (d *Device) dropGroups(match func(groupKey) bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, g := range d.groups {
		if match(k) {
			d.hal.DestroyBindGroup(g)
			delete(d.groups, k)
		}
	}
}

// Close waits for the device and destroys what it still owns.
func (d *Device) Close() {
	if d.closed {
		return
	}
	d.closed = true
	if err := d.hal.WaitIdle(); err != nil && !errors.Is(err, hal.ErrDeviceLost) {
		d.log.Warn("wgpu: wait idle on close", "err", err)
	}
	d.dropGroups(func(groupKey) bool { return true })
	d.mu.Lock()
	heaps := d.heaps
	d.heaps = nil
	d.mu.Unlock()
	for _, h := range heaps {
		if !h.released {
			h.released = true
			for i := range h.slots {
				d.clearSlot(&h.slots[i])
			}
		}
	}
	if d.defSampler != nil {
		d.hal.DestroySampler(d.defSampler)
	}
	if d.dummyView != nil {
		d.hal.DestroyTextureView(d.dummyView)
	}
	if d.dummy != nil {
		d.hal.DestroyTexture(d.dummy)
	}
	if d.shader != nil {
		d.hal.DestroyShaderModule(d.shader)
	}
	if d.owned {
		d.hal.Destroy()
	}
}
