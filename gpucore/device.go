package gpucore

import "github.com/gogpu/gputypes"

// AdapterInfo describes a physical adapter.
type AdapterInfo struct {
	Name        string
	DeviceType  gputypes.DeviceType
	VideoMemory uint64

	// Software marks emulated adapters (WARP-like rasterizers).
	Software bool
}

// Adapter is a physical device that can be opened once.
type Adapter interface {
	Info() AdapterInfo

	// Open creates the logical device and its single submission queue.
	Open() (Device, Queue, error)
}

// Resource is a committed device resource.
type Resource interface {
	Desc() ResourceDesc

	// Map returns the persistent host mapping of an upload or readback
	// buffer. It fails for default heap resources.
	Map() ([]byte, error)

	// Flush publishes host writes in [offset, offset+size) of a mapped
	// upload buffer to the device.
	Flush(offset, size uint64)

	// Release destroys the device object. The caller guarantees the GPU no
	// longer references it.
	Release()
}

// DescriptorHeap is a fixed-capacity table of views of one kind.
type DescriptorHeap interface {
	Kind() HeapKind
	Capacity() int

	// Base returns the handles of slot 0. The GPU handle is zero for heaps
	// that are not shader visible.
	Base() (CPUHandle, GPUHandle)

	// Stride is the handle increment between consecutive slots.
	Stride() uint64

	Release()
}

// SamplerDesc describes a sampler view.
type SamplerDesc struct {
	RepeatX bool
	RepeatY bool
	Nearest bool
	Mipmaps bool
}

// Device creates every object the frame layer uses.
type Device interface {
	Caps() Caps

	CreateCommittedResource(desc *ResourceDesc) (Resource, error)
	CreateDescriptorHeap(kind HeapKind, capacity int) (DescriptorHeap, error)

	// View creation writes a descriptor into the slot addressed by at,
	// replacing whatever the slot held.
	CreateRenderTargetView(res Resource, at CPUHandle)
	CreateDepthStencilView(res Resource, at CPUHandle)
	CreateShaderResourceView(res Resource, at CPUHandle)
	CreateSampler(desc SamplerDesc, at CPUHandle)

	CreateCommandAllocator() (CommandAllocator, error)

	// CreateCommandList returns a list in the recording state.
	CreateCommandList(alloc CommandAllocator) (CommandList, error)

	CreateFence(initial uint64) (Fence, error)
	CreateRootSignature() (RootSignature, error)
	CreatePipeline(root RootSignature, desc *PipelineDesc) (Pipeline, error)
	CreateSwapchain(window Window, desc *SwapchainDesc) (Swapchain, error)

	Close()
}

// Queue is the single submission queue of a device.
type Queue interface {
	Submit(lists ...CommandList) error

	// Signal sets fence to value once all previously submitted work is done.
	Signal(fence Fence, value uint64) error
}

// Fence is a monotonically increasing completion counter.
type Fence interface {
	// Completed returns the last value the device reached.
	Completed() uint64

	// Wait blocks until the device reaches value. There is no timeout.
	Wait(value uint64) error

	Release()
}

// CommandAllocator owns the memory behind recorded commands.
type CommandAllocator interface {
	// Reset reclaims command memory. The lists recorded from it must have
	// finished executing.
	Reset() error

	Release()
}

// Bindings are the per-draw root arguments.
type Bindings struct {
	Uniform       Resource
	UniformOffset uint64
	UniformSize   uint64
	Texture       GPUHandle
	Sampler       GPUHandle
}

// CommandList records work for the queue.
type CommandList interface {
	// Reset reopens a closed list for recording against alloc.
	Reset(alloc CommandAllocator) error
	Close() error

	ResourceBarrier(barriers []Barrier)

	CopyBufferRegion(dst Resource, dstOffset uint64, src Resource, srcOffset, size uint64)

	// CopyTextureRegion copies rows from a buffer into a texture region.
	CopyTextureRegion(dst Resource, mip uint32, region Rect, src Resource, srcOffset uint64, rowPitch uint32)

	// CopyResource copies a whole resource into another of the same shape.
	CopyResource(dst, src Resource)

	SetViewport(vp Viewport)
	SetScissor(r Rect)
	SetRenderTargets(rtv, dsv CPUHandle)
	ClearRenderTarget(rtv CPUHandle, color gputypes.Color)
	ClearDepthStencil(dsv CPUHandle, depth float32, stencil uint8)

	SetRootSignature(root RootSignature)
	SetDescriptorHeaps(heaps ...DescriptorHeap)
	SetPipeline(p Pipeline)
	SetBindings(b Bindings)
	SetVertexBuffer(buf Resource, offset, size uint64, stride uint32)
	SetStencilReference(ref uint32)
	Draw(vertexCount, firstVertex uint32)

	Release()
}

// RootSignature is the binding layout shared by every pipeline.
type RootSignature interface {
	Release()
}

// Pipeline is a compiled pipeline state object.
type Pipeline interface {
	Desc() PipelineDesc
	Release()
}

// Window is the output surface owner. Backends may require more methods
// through their own interfaces.
type Window interface {
	Size() (width, height int)
}

// SwapchainDesc describes a flip-model swapchain.
type SwapchainDesc struct {
	Width       uint32
	Height      uint32
	Format      gputypes.TextureFormat
	BufferCount uint32

	// Legacy creates a downlevel presenter without back buffers.
	Legacy bool
}

// Swapchain connects rendered frames to a window.
type Swapchain interface {
	BufferCount() int

	// CurrentIndex is the back buffer the next present shows.
	CurrentIndex() int

	// BackBuffer returns buffer i. Back buffers start in StatePresent.
	BackBuffer(i int) Resource

	Present(syncInterval int) error

	// PresentLegacy presents src directly through the downlevel entry point.
	PresentLegacy(src Resource, syncInterval int) error

	// ResizeBuffers recreates the back buffers. Every reference obtained
	// through BackBuffer must be dropped first.
	ResizeBuffers(width, height uint32) error

	Release()
}
