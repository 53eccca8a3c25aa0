package resource

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/descheap"
	"github.com/gogpu/gpuframe/internal/fatal"
)

// Kind is what a resource was created as.
type Kind uint8

// Resource kinds.
const (
	KindNone Kind = iota
	KindBuffer
	KindRenderTarget
	KindDepth
	KindTexture
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindBuffer:
		return "buffer"
	case KindRenderTarget:
		return "render-target"
	case KindDepth:
		return "depth"
	case KindTexture:
		return "texture"
	case KindExternal:
		return "external"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Row pitch and placement alignment of texture uploads.
const (
	TexturePitchAlignment     = 256
	TexturePlacementAlignment = 512
	bufferCopyAlignment       = 4
)

// Resource owns one device object.
//
// The cached state always equals the state the object is in at the point
// of the command list being recorded. Every state change must therefore go
// through TransitionTo.
type Resource struct {
	m        *Manager
	kind     Kind
	obj      gpucore.Resource
	desc     gpucore.ResourceDesc
	state    gpucore.ResourceState
	steady   gpucore.ResourceState
	rtv      int
	dsv      int
	srv      int
	refs     int
	external bool
}

// ModifyRefCount adds delta to the reference count and returns the new
// count. At zero the device object and its view slots are queued for
// deferred release. Dropping below zero is fatal.
func (r *Resource) ModifyRefCount(delta int) int {
	r.refs += delta
	if r.refs < 0 {
		fatal.Abortf(r.m.log, "modify ref count", fmt.Sprintf("%s %q dropped to %d", r.kind, r.desc.Label, r.refs))
	}
	if r.refs == 0 {
		r.drop()
	}
	return r.refs
}

// RefCount returns the reference count.
func (r *Resource) RefCount() int { return r.refs }

// drop queues the current object and its slots for release.
func (r *Resource) drop() {
	if r.obj != nil && !r.external {
		r.m.deferOwned(r.obj)
	}
	r.releaseSlot(r.m.heaps.RTV, &r.rtv)
	r.releaseSlot(r.m.heaps.DSV, &r.dsv)
	r.releaseSlot(r.m.heaps.SRV, &r.srv)
	r.obj = nil
	r.kind = KindNone
}

func (r *Resource) releaseSlot(h *descheap.Allocator, slot *int) {
	if *slot >= 0 {
		r.m.deferSlot(h, *slot)
		*slot = -1
	}
}

func (r *Resource) createAs(kind Kind, desc *gpucore.ResourceDesc, steady gpucore.ResourceState) {
	if r.external {
		fatal.Abortf(r.m.log, "create "+desc.Label, "resource wraps an external object")
	}
	r.drop()
	r.obj = r.m.create(desc)
	r.kind = kind
	r.desc = r.obj.Desc()
	r.state = desc.InitialState
	r.steady = steady
}

// CreateAsBuffer allocates a buffer of size bytes in heap. Default heap
// buffers hold vertex and constant data; upload buffers stay mapped.
func (r *Resource) CreateAsBuffer(size uint64, heap gpucore.MemoryHeap) {
	initial, steady := gpucore.StateCommon, gpucore.StateVertexAndConstant
	switch heap {
	case gpucore.MemoryUpload:
		initial, steady = gpucore.StateGenericRead, gpucore.StateGenericRead
	case gpucore.MemoryReadback:
		initial, steady = gpucore.StateCopyDest, gpucore.StateCopyDest
	}
	r.createAs(KindBuffer, &gpucore.ResourceDesc{
		Label:        fmt.Sprintf("buffer(%d)", size),
		Dimension:    gpucore.DimensionBuffer,
		Heap:         heap,
		Size:         size,
		InitialState: initial,
	}, steady)
}

// CreateAsRenderTarget allocates a w x h color target with its render
// target view.
func (r *Resource) CreateAsRenderTarget(format gputypes.TextureFormat, clear gputypes.Color, w, h uint32) {
	r.createAs(KindRenderTarget, &gpucore.ResourceDesc{
		Label:        fmt.Sprintf("render-target(%dx%d)", w, h),
		Dimension:    gpucore.DimensionTexture2D,
		Width:        w,
		Height:       h,
		Format:       format,
		MipLevels:    1,
		ArraySize:    1,
		Flags:        gpucore.AllowRenderTarget,
		InitialState: gpucore.StateCommon,
		ClearColor:   clear,
	}, gpucore.StateRenderTarget)
	r.rtv = r.m.heaps.RTV.Occupy()
	cpu, _ := r.m.heaps.RTV.HandleFor(r.rtv)
	r.m.dev.CreateRenderTargetView(r.obj, cpu)
}

// CreateAsDepthBuffer allocates a w x h depth-stencil target with its view.
func (r *Resource) CreateAsDepthBuffer(format gputypes.TextureFormat, w, h uint32) {
	r.createAs(KindDepth, &gpucore.ResourceDesc{
		Label:        fmt.Sprintf("depth(%dx%d)", w, h),
		Dimension:    gpucore.DimensionTexture2D,
		Width:        w,
		Height:       h,
		Format:       format,
		MipLevels:    1,
		ArraySize:    1,
		Flags:        gpucore.AllowDepthStencil,
		InitialState: gpucore.StateDepthWrite,
	}, gpucore.StateDepthWrite)
	r.dsv = r.m.heaps.DSV.Occupy()
	cpu, _ := r.m.heaps.DSV.HandleFor(r.dsv)
	r.m.dev.CreateDepthStencilView(r.obj, cpu)
}

// CreateAsTexture2D allocates a sampled texture with its shader resource
// view. The texture starts as a copy destination.
func (r *Resource) CreateAsTexture2D(w, h uint32, format gputypes.TextureFormat, mipLevels, arraySize uint32) {
	r.createAs(KindTexture, &gpucore.ResourceDesc{
		Label:        fmt.Sprintf("texture(%dx%d)", w, h),
		Dimension:    gpucore.DimensionTexture2D,
		Width:        w,
		Height:       h,
		Format:       format,
		MipLevels:    max(mipLevels, 1),
		ArraySize:    max(arraySize, 1),
		InitialState: gpucore.StateCopyDest,
	}, gpucore.StateShaderResource)
	r.srv = r.m.heaps.SRV.Occupy()
	cpu, _ := r.m.heaps.SRV.HandleFor(r.srv)
	r.m.dev.CreateShaderResourceView(r.obj, cpu)
}

// TransitionTo records a barrier into the active command list if state
// differs from the cached state, and reports whether it did.
func (r *Resource) TransitionTo(state gpucore.ResourceState) bool {
	if r.state == state {
		return false
	}
	if r.obj == nil {
		fatal.Abortf(r.m.log, "transition", "resource has no device object")
	}
	cl := r.m.active("transition")
	cl.ResourceBarrier([]gpucore.Barrier{{
		Resource:    r.obj,
		Subresource: gpucore.AllSubresources,
		Before:      r.state,
		After:       state,
	}})
	r.state = state
	r.m.stats.Barriers++
	return true
}

// MapForWrite stages size bytes for offset and returns the staging memory.
//
// The copy from staging into the buffer is recorded before this returns,
// bracketed by transitions to copy-destination and back to the steady
// state. The caller fills the returned slice before the list is submitted.
// Upload heap buffers are returned directly from their mapping.
func (r *Resource) MapForWrite(offset, size uint64) []byte {
	if r.kind != KindBuffer {
		fatal.Abortf(r.m.log, "map for write", fmt.Sprintf("%s is not a buffer", r.kind))
	}
	if offset+size > r.desc.Size {
		fatal.Abortf(r.m.log, "map for write",
			fmt.Sprintf("range [%d,%d) outside %d bytes", offset, offset+size, r.desc.Size))
	}
	if r.desc.Heap != gpucore.MemoryDefault {
		mem, err := r.obj.Map()
		if err != nil {
			fatal.Abort(r.m.log, "map for write", err)
		}
		return mem[offset : offset+size : offset+size]
	}

	cl := r.m.active("map for write")
	a := r.m.ring.Alloc(size, bufferCopyAlignment)
	r.TransitionTo(gpucore.StateCopyDest)
	cl.CopyBufferRegion(r.obj, offset, a.Buffer, a.Offset, size)
	r.TransitionTo(r.steady)
	r.m.stats.Uploads++
	return a.Bytes
}

// MapTextureRegion is MapForWrite for a w x h region of mip level mip.
// Rows in the returned memory are rowPitch bytes apart.
func (r *Resource) MapTextureRegion(mip, x, y, w, h uint32) ([]byte, uint32) {
	if r.kind != KindTexture {
		fatal.Abortf(r.m.log, "map texture region", fmt.Sprintf("%s is not a texture", r.kind))
	}
	mw, mh := max(r.desc.Width>>mip, 1), max(r.desc.Height>>mip, 1)
	if mip >= r.desc.MipLevels || x+w > mw || y+h > mh || w == 0 || h == 0 {
		fatal.Abortf(r.m.log, "map texture region",
			fmt.Sprintf("region %d,%d %dx%d outside mip %d (%dx%d)", x, y, w, h, mip, mw, mh))
	}

	cl := r.m.active("map texture region")
	bpp := gpucore.BytesPerPixel(r.desc.Format)
	pitch := (w*bpp + TexturePitchAlignment - 1) / TexturePitchAlignment * TexturePitchAlignment
	a := r.m.ring.Alloc(uint64(pitch)*uint64(h), TexturePlacementAlignment)
	r.TransitionTo(gpucore.StateCopyDest)
	cl.CopyTextureRegion(r.obj, mip,
		gpucore.Rect{X: int32(x), Y: int32(y), Width: int32(w), Height: int32(h)},
		a.Buffer, a.Offset, pitch)
	r.TransitionTo(r.steady)
	r.m.stats.Uploads++
	return a.Bytes, pitch
}

// BindAsRenderTargetAndDepth transitions r and depth for output and binds
// their views. depth may be nil.
func (r *Resource) BindAsRenderTargetAndDepth(depth *Resource) {
	if r.kind != KindRenderTarget {
		fatal.Abortf(r.m.log, "bind render target", fmt.Sprintf("%s is not a render target", r.kind))
	}
	r.TransitionTo(gpucore.StateRenderTarget)
	var dsv gpucore.CPUHandle
	if depth != nil {
		depth.TransitionTo(gpucore.StateDepthWrite)
		dsv = depth.DSV()
	}
	r.m.active("bind render target").SetRenderTargets(r.RTV(), dsv)
}

// RTV returns the render target view handle, or 0.
func (r *Resource) RTV() gpucore.CPUHandle {
	if r.rtv < 0 {
		return 0
	}
	cpu, _ := r.m.heaps.RTV.HandleFor(r.rtv)
	return cpu
}

// DSV returns the depth-stencil view handle, or 0.
func (r *Resource) DSV() gpucore.CPUHandle {
	if r.dsv < 0 {
		return 0
	}
	cpu, _ := r.m.heaps.DSV.HandleFor(r.dsv)
	return cpu
}

// SRV returns the shader resource view handle for binding, or 0.
func (r *Resource) SRV() gpucore.GPUHandle {
	if r.srv < 0 {
		return 0
	}
	_, gpu := r.m.heaps.SRV.HandleFor(r.srv)
	return gpu
}

// Slots returns the view slot indices, -1 where absent.
func (r *Resource) Slots() (rtv, dsv, srv int) { return r.rtv, r.dsv, r.srv }

// Object returns the device object, or nil.
func (r *Resource) Object() gpucore.Resource { return r.obj }

// Kind returns what the resource was created as.
func (r *Resource) Kind() Kind { return r.kind }

// State returns the cached pipeline state.
func (r *Resource) State() gpucore.ResourceState { return r.state }

// SteadyState returns the state the resource rests in between uses.
func (r *Resource) SteadyState() gpucore.ResourceState { return r.steady }

// Size returns the byte size of a buffer.
func (r *Resource) Size() uint64 { return r.desc.Size }

// Extent returns the width and height of a texture.
func (r *Resource) Extent() (uint32, uint32) { return r.desc.Width, r.desc.Height }

// Format returns the texture format.
func (r *Resource) Format() gputypes.TextureFormat { return r.desc.Format }

// MipLevels returns the number of mip levels.
func (r *Resource) MipLevels() uint32 { return r.desc.MipLevels }

// Valid reports whether the resource owns a device object.
func (r *Resource) Valid() bool { return r.obj != nil }
