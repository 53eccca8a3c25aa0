// Package descheap hands out descriptor slots of one heap kind.
//
// Every slot is in exactly one of three sets: free, occupied, or pending.
// Release moves a slot from occupied to pending; only ReclaimUpTo, which
// runs after the previous frame's GPU work is known to be complete, moves
// slots from pending back to free.
package descheap

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/fatal"
	"github.com/gogpu/gpuframe/internal/stack"
)

// Default capacities per heap kind.
const (
	DefaultRTVCapacity     = 16
	DefaultDSVCapacity     = 16
	DefaultSamplerCapacity = 16
	DefaultSRVCapacity     = 65536
)

type slotState uint8

const (
	slotFree slotState = iota
	slotOccupied
	slotPending
)

// Allocator manages the slots of one descriptor heap.
type Allocator struct {
	heap    gpucore.DescriptorHeap
	kind    gpucore.HeapKind
	free    *stack.Stack[int]
	pending *stack.Stack[int]
	states  []slotState
	cpuBase gpucore.CPUHandle
	gpuBase gpucore.GPUHandle
	stride  uint64
	log     *slog.Logger
}

// New creates the device heap and an allocator over it. Failing to create
// the heap is fatal.
func New(dev gpucore.Device, kind gpucore.HeapKind, capacity int, log *slog.Logger) *Allocator {
	log = fatal.Logger(log)
	if capacity <= 0 {
		fatal.Abortf(log, "descriptor heap "+kind.String(), fmt.Sprintf("invalid capacity %d", capacity))
	}
	heap, err := dev.CreateDescriptorHeap(kind, capacity)
	if err != nil {
		fatal.Abort(log, "descriptor heap "+kind.String(), err)
	}
	a := &Allocator{
		heap:    heap,
		kind:    kind,
		free:    stack.New[int](capacity),
		pending: stack.New[int](capacity),
		states:  make([]slotState, capacity),
		stride:  heap.Stride(),
		log:     log,
	}
	a.cpuBase, a.gpuBase = heap.Base()
	// Push in reverse so a fresh heap hands out 0, 1, 2, ...
	for i := capacity - 1; i >= 0; i-- {
		a.free.Push(i)
	}
	return a
}

// Occupy takes a free slot. An exhausted heap is a configuration bug and
// aborts.
func (a *Allocator) Occupy() int {
	slot, ok := a.free.Pop()
	if !ok {
		fatal.Abortf(a.log, "occupy "+a.kind.String(),
			fmt.Sprintf("descriptor heap exhausted (capacity %d, pending %d)", a.Capacity(), a.pending.Len()))
	}
	a.states[slot] = slotOccupied
	return slot
}

// Release queues an occupied slot for cleanup. The slot is not reusable
// until a later ReclaimUpTo.
func (a *Allocator) Release(slot int) {
	if slot < 0 || slot >= len(a.states) || a.states[slot] != slotOccupied {
		fatal.Abortf(a.log, "release "+a.kind.String(), fmt.Sprintf("slot %d is not occupied", slot))
	}
	a.states[slot] = slotPending
	a.pending.Push(slot)
}

// ReclaimUpTo moves at most maxCount pending slots back to the free list
// and returns how many moved.
func (a *Allocator) ReclaimUpTo(maxCount int) int {
	n := 0
	for n < maxCount {
		slot, ok := a.pending.Pop()
		if !ok {
			break
		}
		a.states[slot] = slotFree
		a.free.Push(slot)
		n++
	}
	if n > 0 {
		a.log.Debug("descheap: reclaimed", "heap", a.kind.String(), "count", n, "pending", a.pending.Len())
	}
	return n
}

// HandleFor returns the handles of slot. The GPU handle is zero for heaps
// that are not shader visible.
func (a *Allocator) HandleFor(slot int) (gpucore.CPUHandle, gpucore.GPUHandle) {
	off := uint64(slot) * a.stride
	cpu := a.cpuBase + gpucore.CPUHandle(off)
	if a.gpuBase == 0 {
		return cpu, 0
	}
	return cpu, a.gpuBase + gpucore.GPUHandle(off)
}

// Counts returns the size of each slot set.
func (a *Allocator) Counts() (free, occupied, pending int) {
	free = a.free.Len()
	pending = a.pending.Len()
	occupied = len(a.states) - free - pending
	return free, occupied, pending
}

// Kind returns the heap kind.
func (a *Allocator) Kind() gpucore.HeapKind { return a.kind }

// Capacity returns the number of slots.
func (a *Allocator) Capacity() int { return len(a.states) }

// Heap returns the device heap.
func (a *Allocator) Heap() gpucore.DescriptorHeap { return a.heap }

// Destroy releases the device heap.
func (a *Allocator) Destroy() {
	if a.heap != nil {
		a.heap.Release()
		a.heap = nil
	}
}
