package gpucore

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// ResourceState is the pipeline state a resource is in on the device.
type ResourceState uint32

// Resource states.
const (
	// StateCommon is the default state for resources not bound anywhere.
	StateCommon ResourceState = iota

	// StateVertexAndConstant is used for vertex and uniform buffers.
	StateVertexAndConstant

	// StateIndex is used for index buffers.
	StateIndex

	// StateRenderTarget is used while a texture is a color attachment.
	StateRenderTarget

	// StateDepthWrite is used while a texture is a writable depth attachment.
	StateDepthWrite

	// StateDepthRead is used for read-only depth.
	StateDepthRead

	// StateShaderResource is used for textures sampled by shaders.
	StateShaderResource

	// StateCopyDest is used for copy destinations.
	StateCopyDest

	// StateCopySource is used for copy sources.
	StateCopySource

	// StatePresent is used for swapchain buffers handed to the compositor.
	StatePresent

	// StateGenericRead is the required state of upload heap resources.
	StateGenericRead
)

var stateNames = [...]string{
	StateCommon:            "Common",
	StateVertexAndConstant: "VertexAndConstant",
	StateIndex:             "Index",
	StateRenderTarget:      "RenderTarget",
	StateDepthWrite:        "DepthWrite",
	StateDepthRead:         "DepthRead",
	StateShaderResource:    "ShaderResource",
	StateCopyDest:          "CopyDest",
	StateCopySource:        "CopySource",
	StatePresent:           "Present",
	StateGenericRead:       "GenericRead",
}

// String returns the state name.
func (s ResourceState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("ResourceState(%d)", uint32(s))
}

// AllSubresources selects every subresource in a barrier.
const AllSubresources uint32 = 0xFFFFFFFF

// Barrier is a state transition of one resource.
type Barrier struct {
	Resource    Resource
	Subresource uint32
	Before      ResourceState
	After       ResourceState
}

// String returns a short description of the barrier.
func (b Barrier) String() string {
	return fmt.Sprintf("%s -> %s", b.Before, b.After)
}

// HeapKind is the category of a descriptor heap.
type HeapKind uint8

// Descriptor heap kinds.
const (
	HeapRTV HeapKind = iota
	HeapDSV
	HeapSampler
	HeapSRV
)

// String returns the heap kind name.
func (k HeapKind) String() string {
	switch k {
	case HeapRTV:
		return "rtv"
	case HeapDSV:
		return "dsv"
	case HeapSampler:
		return "sampler"
	case HeapSRV:
		return "srv"
	default:
		return fmt.Sprintf("HeapKind(%d)", uint8(k))
	}
}

// ShaderVisible reports whether descriptors of this kind are addressed by
// shaders and therefore have GPU handles.
func (k HeapKind) ShaderVisible() bool {
	return k == HeapSampler || k == HeapSRV
}

// MemoryHeap is the memory pool a committed resource lives in.
type MemoryHeap uint8

// Memory heaps.
const (
	// MemoryDefault is device-local memory.
	MemoryDefault MemoryHeap = iota

	// MemoryUpload is host-visible memory the CPU writes and the GPU reads.
	MemoryUpload

	// MemoryReadback is host-visible memory the GPU writes and the CPU reads.
	MemoryReadback
)

// String returns the heap name.
func (h MemoryHeap) String() string {
	switch h {
	case MemoryDefault:
		return "default"
	case MemoryUpload:
		return "upload"
	case MemoryReadback:
		return "readback"
	default:
		return fmt.Sprintf("MemoryHeap(%d)", uint8(h))
	}
}

// CPUHandle addresses a descriptor for CPU-side operations.
type CPUHandle uint64

// GPUHandle addresses a descriptor from shaders. Zero means none.
type GPUHandle uint64

// Dimension is the shape of a resource.
type Dimension uint8

// Resource dimensions.
const (
	DimensionBuffer Dimension = iota
	DimensionTexture2D
)

// ResourceFlags select optional usages of a texture.
type ResourceFlags uint8

// Resource flags.
const (
	// AllowRenderTarget permits render target views.
	AllowRenderTarget ResourceFlags = 1 << iota

	// AllowDepthStencil permits depth-stencil views.
	AllowDepthStencil
)

// ResourceDesc describes a committed resource.
type ResourceDesc struct {
	Label     string
	Dimension Dimension
	Heap      MemoryHeap

	// Size is the byte size of a buffer.
	Size uint64

	// Texture fields.
	Width     uint32
	Height    uint32
	Format    gputypes.TextureFormat
	MipLevels uint32
	ArraySize uint32
	Flags     ResourceFlags

	// InitialState is the state the resource is created in.
	InitialState ResourceState

	// ClearColor is the optimized clear value of render targets.
	ClearColor gputypes.Color
}

// Viewport is a rasterizer viewport.
type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

// Rect is an integer rectangle used for scissors and copy regions.
type Rect struct {
	X, Y          int32
	Width, Height int32
}

// Caps lists device capabilities gpuframe cares about.
type Caps struct {
	// DownlevelPresentOnly is set when the queue can only present through
	// the legacy entry point.
	DownlevelPresentOnly bool

	// MaxTextureSize is the largest supported texture dimension.
	MaxTextureSize uint32

	// UniformAlignment is the required offset alignment of uniform bindings.
	UniformAlignment uint64
}

// BytesPerPixel returns the texel size of the color formats gpuframe uses.
// It returns 0 for formats it does not know.
func BytesPerPixel(f gputypes.TextureFormat) uint32 {
	switch f {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb,
		gputypes.TextureFormatDepth24PlusStencil8:
		return 4
	default:
		return 0
	}
}
