// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuframe/gpucore"
)

// Handle layout: heap id above bit 32, slot*stride below, and a marker
// bit on GPU handles.
const (
	heapShift        = 32
	slotMask         = 1<<heapShift - 1
	gpuHandleBit     = 1 << 62
	descriptorStride = 64
)

// slot is one descriptor: a texture view owned by a resource, or a sampler.
type slot struct {
	owner   *Resource
	view    hal.TextureView
	sampler hal.Sampler
}

func (s *slot) empty() bool { return s.view == nil && s.sampler == nil }

// Heap is a descriptor table emulated on top of HAL views and samplers.
type Heap struct {
	dev      *Device
	id       uint64
	kind     gpucore.HeapKind
	slots    []slot
	released bool
}

// Kind returns the heap kind.
func (h *Heap) Kind() gpucore.HeapKind { return h.kind }

// Capacity returns the number of slots.
func (h *Heap) Capacity() int { return len(h.slots) }

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

// Release destroys every view and sampler the heap still holds.
func (h *Heap) Release() {
	if h.released {
		return
	}
	h.released = true
	for i := range h.slots {
		h.dev.clearSlot(&h.slots[i])
	}
}

// lookup resolves a CPU or GPU handle to its slot.
func (d *Device) lookup(handle uint64) (*Heap, *slot) {
	id := (handle &^ gpuHandleBit) >> heapShift
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == 0 || id > uint64(len(d.heaps)) {
		return nil, nil
	}
	h := d.heaps[id-1]
	i := (handle & slotMask) / descriptorStride
	if h.released || i >= uint64(len(h.slots)) {
		return nil, nil
	}
	return h, &h.slots[i]
}

// slotFor resolves a handle that must address a heap of kind.
func (d *Device) slotFor(kind gpucore.HeapKind, handle uint64) *slot {
	h, s := d.lookup(handle)
	if h == nil || h.kind != kind {
		return nil
	}
	return s
}

// clearSlot destroys what s holds and every bind group built from it.
func (d *Device) clearSlot(s *slot) {
	if s.empty() {
		return
	}
	view, sampler := s.view, s.sampler
	d.dropGroups(func(k groupKey) bool {
		return (view != nil && k.view == view) || (sampler != nil && k.sampler == sampler)
	})
	if view != nil {
		d.hal.DestroyTextureView(view)
	}
	if sampler != nil {
		d.hal.DestroySampler(sampler)
	}
	*s = slot{}
}

// dropViews clears every slot holding a view of r.
func (d *Device) dropViews(r *Resource) {
	d.mu.Lock()
	heaps := append([]*Heap(nil), d.heaps...)
	d.mu.Unlock()
	for _, h := range heaps {
		if h.released {
			continue
		}
		for i := range h.slots {
			if h.slots[i].owner == r {
				d.clearSlot(&h.slots[i])
			}
		}
	}
}
