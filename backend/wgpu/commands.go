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

var errListClosed = errors.New("wgpu: command list is closed")

// Allocator owns one HAL encoder and the command buffers it produced.
type Allocator struct {
	dev      *Device
	enc      hal.CommandEncoder
	bufs     []hal.CommandBuffer
	released bool
}

// Reset returns every command buffer recorded from the allocator to the
// encoder.
func (a *Allocator) Reset() error {
	if len(a.bufs) > 0 {
		a.enc.ResetAll(a.bufs)
		a.bufs = a.bufs[:0]
	}
	return nil
}

// Release destroys the encoder.
func (a *Allocator) Release() {
	if a.released {
		return
	}
	a.released = true
	a.Reset()
	a.enc.Destroy()
}

type depthClear struct {
	depth   float32
	stencil uint8
}

// CommandList records into a HAL encoder. Render passes are opened lazily:
// state is remembered and applied when the first draw needs the pass.
type CommandList struct {
	dev   *Device
	alloc *Allocator
	open  bool
	buf   hal.CommandBuffer

	pass  hal.RenderPassEncoder
	dirty bool

	rtv, dsv   gpucore.CPUHandle
	viewport   gpucore.Viewport
	scissor    gpucore.Rect
	hasScissor bool
	root       *RootSignature
	pipeline   *Pipeline
	bindings   gpucore.Bindings
	vbuf       *Resource
	voff       uint64
	stencilRef uint32

	clearColor map[gpucore.CPUHandle]gputypes.Color
	clearDepth map[gpucore.CPUHandle]depthClear
}

// Reset starts a new recording on alloc.
func (l *CommandList) Reset(alloc gpucore.CommandAllocator) error {
	a, ok := alloc.(*Allocator)
	if !ok {
		return fmt.Errorf("wgpu: foreign allocator %T", alloc)
	}
	if l.open {
		return errors.New("wgpu: reset of a list that is still recording")
	}
	if err := a.enc.BeginEncoding("gpuframe-frame"); err != nil {
		return deviceError("begin encoding", err)
	}
	*l = CommandList{
		dev:        l.dev,
		alloc:      a,
		open:       true,
		clearColor: make(map[gpucore.CPUHandle]gputypes.Color),
		clearDepth: make(map[gpucore.CPUHandle]depthClear),
	}
	return nil
}

// Close ends the recording. Clears that no draw consumed are executed as
// empty passes.
func (l *CommandList) Close() error {
	if !l.open {
		return errListClosed
	}
	l.endPass()
	l.flushClears()
	buf, err := l.alloc.enc.EndEncoding()
	l.open = false
	if err != nil {
		return deviceError("end encoding", err)
	}
	l.buf = buf
	l.alloc.bufs = append(l.alloc.bufs, buf)
	return nil
}

func (l *CommandList) recording(op string) bool {
	if !l.open {
		l.dev.log.Error("wgpu: command on closed list", "op", op)
	}
	return l.open
}

// ResourceBarrier transitions textures and buffers. Transitions to
// StatePresent are left to the HAL, which prepares swapchain images itself.
func (l *CommandList) ResourceBarrier(barriers []gpucore.Barrier) {
	if !l.recording("barrier") {
		return
	}
	l.endPass()
	l.flushClears()
	var texs []hal.TextureBarrier
	var bufs []hal.BufferBarrier
	for _, b := range barriers {
		r := asResource(b.Resource)
		if r == nil {
			continue
		}
		if r.buf != nil {
			from, to := bufferUsage(b.Before), bufferUsage(b.After)
			if to == 0 || from == to {
				continue
			}
			bufs = append(bufs, hal.BufferBarrier{
				Buffer: r.buf,
				Usage:  hal.BufferUsageTransition{OldUsage: from, NewUsage: to},
			})
			continue
		}
		if tb, ok := l.textureBarrier(r, textureUsage(b.After), b.Subresource); ok {
			texs = append(texs, tb)
		}
	}
	if len(bufs) > 0 {
		l.alloc.enc.TransitionBuffers(bufs)
	}
	if len(texs) > 0 {
		l.alloc.enc.TransitionTextures(texs)
	}
}

// textureBarrier builds the transition of r to usage and records it as the
// current usage. Depth attachments are laid out by the render pass.
func (l *CommandList) textureBarrier(r *Resource, usage gputypes.TextureUsage, sub uint32) (hal.TextureBarrier, bool) {
	if usage == 0 || usage == r.usage || isDepthFormat(r.desc.Format) {
		return hal.TextureBarrier{}, false
	}
	tex := r.texture()
	if tex == nil {
		return hal.TextureBarrier{}, false
	}
	rng := hal.TextureRange{Aspect: gputypes.TextureAspectAll}
	if sub != gpucore.AllSubresources {
		levels := max(r.desc.MipLevels, 1)
		rng.BaseMipLevel = sub % levels
		rng.MipLevelCount = 1
		rng.BaseArrayLayer = sub / levels
		rng.ArrayLayerCount = 1
	}
	tb := hal.TextureBarrier{
		Texture: tex,
		Range:   rng,
		Usage:   hal.TextureUsageTransition{OldUsage: r.usage, NewUsage: usage},
	}
	r.usage = usage
	return tb, true
}

// ensureUsage transitions r to usage outside any pass.
func (l *CommandList) ensureUsage(r *Resource, usage gputypes.TextureUsage) {
	if tb, ok := l.textureBarrier(r, usage, gpucore.AllSubresources); ok {
		l.alloc.enc.TransitionTextures([]hal.TextureBarrier{tb})
	}
}

// CopyBufferRegion copies size bytes between buffers.
func (l *CommandList) CopyBufferRegion(dst gpucore.Resource, dstOffset uint64, src gpucore.Resource, srcOffset, size uint64) {
	if !l.recording("copy buffer") {
		return
	}
	d, s := asResource(dst), asResource(src)
	if d == nil || s == nil || d.buf == nil || s.buf == nil {
		l.dev.log.Error("wgpu: copy buffer between non-buffers")
		return
	}
	l.endPass()
	l.flushClears()
	l.alloc.enc.CopyBufferToBuffer(s.buf, d.buf, []hal.BufferCopy{{SrcOffset: srcOffset, DstOffset: dstOffset, Size: size}})
}

// CopyTextureRegion copies rows of src starting at srcOffset into region of
// mip level mip.
func (l *CommandList) CopyTextureRegion(dst gpucore.Resource, mip uint32, region gpucore.Rect, src gpucore.Resource, srcOffset uint64, rowPitch uint32) {
	if !l.recording("copy texture") {
		return
	}
	d, s := asResource(dst), asResource(src)
	if d == nil || s == nil || s.buf == nil || d.buf != nil {
		l.dev.log.Error("wgpu: copy texture with wrong resource kinds")
		return
	}
	if region.Width <= 0 || region.Height <= 0 {
		return
	}
	l.endPass()
	l.flushClears()
	l.ensureUsage(d, gputypes.TextureUsageCopyDst)
	tex := d.texture()
	if tex == nil {
		return
	}
	l.alloc.enc.CopyBufferToTexture(s.buf, tex, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       srcOffset,
			BytesPerRow:  rowPitch,
			RowsPerImage: uint32(region.Height),
		},
		TextureBase: hal.ImageCopyTexture{
			Texture:  tex,
			MipLevel: mip,
			Origin:   hal.Origin3D{X: uint32(region.X), Y: uint32(region.Y)},
			Aspect:   gputypes.TextureAspectAll,
		},
		Size: hal.Extent3D{Width: uint32(region.Width), Height: uint32(region.Height), DepthOrArrayLayers: 1},
	}})
}

// CopyResource copies a whole buffer or mip 0 of a texture.
func (l *CommandList) CopyResource(dst, src gpucore.Resource) {
	if !l.recording("copy resource") {
		return
	}
	d, s := asResource(dst), asResource(src)
	if d == nil || s == nil {
		return
	}
	l.endPass()
	l.flushClears()
	if d.buf != nil && s.buf != nil {
		size := min(d.desc.Size, s.desc.Size)
		l.alloc.enc.CopyBufferToBuffer(s.buf, d.buf, []hal.BufferCopy{{Size: (size + 3) &^ 3}})
		return
	}
	if d.buf != nil || s.buf != nil {
		l.dev.log.Error("wgpu: copy resource between a buffer and a texture")
		return
	}
	l.ensureUsage(s, gputypes.TextureUsageCopySrc)
	l.ensureUsage(d, gputypes.TextureUsageCopyDst)
	st, dt := s.texture(), d.texture()
	if st == nil || dt == nil {
		return
	}
	l.alloc.enc.CopyTextureToTexture(st, dt, []hal.TextureCopy{{
		SrcBase: hal.ImageCopyTexture{Texture: st, Aspect: gputypes.TextureAspectAll},
		DstBase: hal.ImageCopyTexture{Texture: dt, Aspect: gputypes.TextureAspectAll},
		Size: hal.Extent3D{
			Width:              min(d.desc.Width, s.desc.Width),
			Height:             min(d.desc.Height, s.desc.Height),
			DepthOrArrayLayers: 1,
		},
	}})
}

// SetViewport sets the viewport of subsequent draws.
func (l *CommandList) SetViewport(vp gpucore.Viewport) {
	l.viewport = vp
	l.dirty = true
}

// SetScissor sets the scissor of subsequent draws.
func (l *CommandList) SetScissor(r gpucore.Rect) {
	l.scissor = r
	l.hasScissor = true
	l.dirty = true
}

// SetRenderTargets binds the attachments of the next pass.
func (l *CommandList) SetRenderTargets(rtv, dsv gpucore.CPUHandle) {
	if rtv == l.rtv && dsv == l.dsv {
		return
	}
	l.endPass()
	l.rtv, l.dsv = rtv, dsv
}

// ClearRenderTarget clears the target addressed by rtv when the next pass
// on it begins.
func (l *CommandList) ClearRenderTarget(rtv gpucore.CPUHandle, color gputypes.Color) {
	if !l.recording("clear render target") {
		return
	}
	if rtv == l.rtv {
		l.endPass()
	}
	l.clearColor[rtv] = color
}

// ClearDepthStencil clears the attachment addressed by dsv when the next
// pass on it begins.
func (l *CommandList) ClearDepthStencil(dsv gpucore.CPUHandle, depth float32, stencil uint8) {
	if !l.recording("clear depth stencil") {
		return
	}
	if dsv == l.dsv {
		l.endPass()
	}
	l.clearDepth[dsv] = depthClear{depth: depth, stencil: stencil}
}

// SetRootSignature selects the binding layout.
func (l *CommandList) SetRootSignature(root gpucore.RootSignature) {
	rs, _ := root.(*RootSignature)
	l.root = rs
	l.dirty = true
}

// SetDescriptorHeaps is a no-op: bindings resolve handles directly.
func (l *CommandList) SetDescriptorHeaps(...gpucore.DescriptorHeap) {}

// SetPipeline selects the pipeline of subsequent draws.
func (l *CommandList) SetPipeline(p gpucore.Pipeline) {
	l.pipeline, _ = p.(*Pipeline)
	l.dirty = true
}

// SetBindings sets the per-draw uniform range, texture and sampler.
func (l *CommandList) SetBindings(b gpucore.Bindings) {
	l.bindings = b
	l.dirty = true
}

// SetVertexBuffer binds the vertex stream.
func (l *CommandList) SetVertexBuffer(buf gpucore.Resource, offset, _ uint64, _ uint32) {
	l.vbuf = asResource(buf)
	l.voff = offset
	l.dirty = true
}

// SetStencilReference sets the stencil reference value.
func (l *CommandList) SetStencilReference(ref uint32) {
	l.stencilRef = ref
	l.dirty = true
}

// Draw draws vertexCount vertices, opening the pass if needed.
func (l *CommandList) Draw(vertexCount, firstVertex uint32) {
	if !l.recording("draw") || vertexCount == 0 {
		return
	}
	if l.pipeline == nil || l.vbuf == nil || l.vbuf.buf == nil {
		l.dev.log.Error("wgpu: draw without pipeline or vertex buffer")
		return
	}
	if l.pass == nil && !l.beginPass() {
		return
	}
	if l.dirty && !l.applyState() {
		return
	}
	l.pass.Draw(vertexCount, 1, firstVertex, 0)
}

// beginPass opens a pass on the bound targets, consuming their pending
// clears as load operations.
func (l *CommandList) beginPass() bool {
	desc, ok := l.passDescriptor(l.rtv, l.dsv, true)
	if !ok {
		l.dev.log.Error("wgpu: draw without a valid render target", "rtv", uint64(l.rtv))
		return false
	}
	l.pass = l.alloc.enc.BeginRenderPass(desc)
	l.dirty = true
	return true
}

func (l *CommandList) passDescriptor(rtv, dsv gpucore.CPUHandle, needColor bool) (*hal.RenderPassDescriptor, bool) {
	desc := &hal.RenderPassDescriptor{Label: "gpuframe-pass"}
	if rtv != 0 {
		s := l.dev.slotFor(gpucore.HeapRTV, uint64(rtv))
		if s == nil || s.owner == nil {
			return nil, false
		}
		l.ensureUsage(s.owner, gputypes.TextureUsageRenderAttachment)
		view := l.dev.viewOf(gpucore.HeapRTV, s)
		if view == nil {
			return nil, false
		}
		att := hal.RenderPassColorAttachment{View: view, LoadOp: gputypes.LoadOpLoad, StoreOp: gputypes.StoreOpStore}
		if c, ok := l.clearColor[rtv]; ok {
			att.LoadOp, att.ClearValue = gputypes.LoadOpClear, c
			delete(l.clearColor, rtv)
		}
		desc.ColorAttachments = []hal.RenderPassColorAttachment{att}
	} else if needColor {
		return nil, false
	}
	if dsv != 0 {
		s := l.dev.slotFor(gpucore.HeapDSV, uint64(dsv))
		if s == nil || s.view == nil {
			return nil, false
		}
		att := &hal.RenderPassDepthStencilAttachment{
			View:           s.view,
			DepthLoadOp:    gputypes.LoadOpLoad,
			DepthStoreOp:   gputypes.StoreOpStore,
			StencilLoadOp:  gputypes.LoadOpLoad,
			StencilStoreOp: gputypes.StoreOpStore,
		}
		if c, ok := l.clearDepth[dsv]; ok {
			att.DepthLoadOp, att.DepthClearValue = gputypes.LoadOpClear, c.depth
			att.StencilLoadOp, att.StencilClearValue = gputypes.LoadOpClear, uint32(c.stencil)
			delete(l.clearDepth, dsv)
		}
		desc.DepthStencilAttachment = att
	}
	return desc, true
}

// applyState replays the remembered state into the open pass.
func (l *CommandList) applyState() bool {
	p := l.pass
	vp := l.viewport
	p.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, vp.MinDepth, vp.MaxDepth)
	if l.hasScissor {
		sc := l.scissor
		p.SetScissorRect(uint32(max(sc.X, 0)), uint32(max(sc.Y, 0)), uint32(max(sc.Width, 0)), uint32(max(sc.Height, 0)))
	}
	p.SetStencilReference(l.stencilRef)
	p.SetPipeline(l.pipeline.hal)
	root := l.root
	if root == nil {
		root = l.pipeline.root
	}
	group, err := l.group(root)
	if err != nil {
		l.dev.log.Error("wgpu: bind group", "err", err)
		return false
	}
	p.SetBindGroup(0, group, []uint32{uint32(l.bindings.UniformOffset)})
	p.SetVertexBuffer(0, l.vbuf.buf, l.voff)
	l.dirty = false
	return true
}

// group resolves the current bindings to a bind group. Unbound texture
// and sampler slots use the device defaults.
func (l *CommandList) group(root *RootSignature) (hal.BindGroup, error) {
	b := l.bindings
	u := asResource(b.Uniform)
	if u == nil || u.buf == nil {
		return nil, errors.New("no uniform buffer bound")
	}
	if err := l.dev.ensureDefaults(); err != nil {
		return nil, err
	}
	key := groupKey{
		root:    root,
		buf:     u.buf,
		size:    b.UniformSize,
		view:    l.dev.dummyView,
		sampler: l.dev.defSampler,
	}
	if b.Texture != 0 {
		if s := l.dev.slotFor(gpucore.HeapSRV, uint64(b.Texture)); s != nil && s.view != nil {
			key.view = s.view
		}
	}
	if b.Sampler != 0 {
		if s := l.dev.slotFor(gpucore.HeapSampler, uint64(b.Sampler)); s != nil && s.sampler != nil {
			key.sampler = s.sampler
		}
	}
	return l.dev.bindGroup(key)
}

func (l *CommandList) endPass() {
	if l.pass != nil {
		l.pass.End()
		l.pass = nil
	}
}

// flushClears executes pending clears as passes without draws.
func (l *CommandList) flushClears() {
	for rtv := range l.clearColor {
		if desc, ok := l.passDescriptor(rtv, 0, true); ok {
			l.alloc.enc.BeginRenderPass(desc).End()
		}
		delete(l.clearColor, rtv)
	}
	for dsv := range l.clearDepth {
		if desc, ok := l.passDescriptor(0, dsv, false); ok {
			l.alloc.enc.BeginRenderPass(desc).End()
		}
		delete(l.clearDepth, dsv)
	}
}

// Release discards an open recording.
func (l *CommandList) Release() {
	if l.open {
		l.endPass()
		l.alloc.enc.DiscardEncoding()
		l.open = false
	}
}
