// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/descheap"
)

// samplerCache owns one sampler descriptor per distinct SamplerDesc.
type samplerCache struct {
	dev   gpucore.Device
	heap  *descheap.Allocator
	slots map[gpucore.SamplerDesc]int
}

func newSamplerCache(dev gpucore.Device, heap *descheap.Allocator) samplerCache {
	return samplerCache{dev: dev, heap: heap, slots: make(map[gpucore.SamplerDesc]int)}
}

func samplerFor(flags ImageFlags, mips bool) gpucore.SamplerDesc {
	return gpucore.SamplerDesc{
		RepeatX: flags&ImageRepeatX != 0,
		RepeatY: flags&ImageRepeatY != 0,
		Nearest: flags&ImageNearest != 0,
		Mipmaps: mips,
	}
}

// handle returns the shader handle of desc, creating the sampler on first
// use.
func (c *samplerCache) handle(desc gpucore.SamplerDesc) gpucore.GPUHandle {
	slot, ok := c.slots[desc]
	if !ok {
		slot = c.heap.Occupy()
		cpu, _ := c.heap.HandleFor(slot)
		c.dev.CreateSampler(desc, cpu)
		c.slots[desc] = slot
	}
	_, gpu := c.heap.HandleFor(slot)
	return gpu
}

func (c *samplerCache) len() int { return len(c.slots) }

func (c *samplerCache) release() {
	for desc, slot := range c.slots {
		c.heap.Release(slot)
		delete(c.slots, desc)
	}
}
