package software

import "github.com/gogpu/gpuframe/gpucore"

// Handle layout: heap id in the high bits, slot*stride in the low 32 bits,
// and a marker bit for GPU handles.
const (
	heapShift        = 32
	slotMask         = 1<<heapShift - 1
	gpuHandleBit     = 1 << 62
	descriptorStride = 32
)

type view struct {
	res     *Resource
	sampler *gpucore.SamplerDesc
}

// Heap is a simulated descriptor heap.
type Heap struct {
	id       uint64
	kind     gpucore.HeapKind
	views    []view
	released bool
}

// Kind returns the heap kind.
func (h *Heap) Kind() gpucore.HeapKind { return h.kind }

// Capacity returns the number of slots.
func (h *Heap) Capacity() int { return len(h.views) }

// Base returns the handles of slot 0.
func (h *Heap) Base() (gpucore.CPUHandle, gpucore.GPUHandle) {
	cpu := h.id << heapShift
	if !h.kind.ShaderVisible() {
		return gpucore.CPUHandle(cpu), 0
	}
	return gpucore.CPUHandle(cpu), gpucore.GPUHandle(cpu | gpuHandleBit)
}

// Stride returns the handle increment per slot.
func (h *Heap) Stride() uint64 { return descriptorStride }

// Release marks the heap released.
func (h *Heap) Release() { h.released = true }
