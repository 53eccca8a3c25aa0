package software

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuframe/gpucore"
)

// Op is the kind of a recorded command.
type Op uint8

// Command kinds.
const (
	OpBarrier Op = iota
	OpCopyBuffer
	OpCopyTexture
	OpCopyResource
	OpViewport
	OpScissor
	OpRenderTargets
	OpClearRenderTarget
	OpClearDepthStencil
	OpRootSignature
	OpDescriptorHeaps
	OpPipeline
	OpBindings
	OpVertexBuffer
	OpStencilReference
	OpDraw
)

var opNames = [...]string{
	OpBarrier:           "barrier",
	OpCopyBuffer:        "copy_buffer",
	OpCopyTexture:       "copy_texture",
	OpCopyResource:      "copy_resource",
	OpViewport:          "viewport",
	OpScissor:           "scissor",
	OpRenderTargets:     "render_targets",
	OpClearRenderTarget: "clear_rt",
	OpClearDepthStencil: "clear_ds",
	OpRootSignature:     "root_signature",
	OpDescriptorHeaps:   "descriptor_heaps",
	OpPipeline:          "pipeline",
	OpBindings:          "bindings",
	OpVertexBuffer:      "vertex_buffer",
	OpStencilReference:  "stencil_ref",
	OpDraw:              "draw",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}

// Command is one recorded command. Descriptor handles are resolved when the
// command is recorded, so later writes to the same slot do not affect it.
type Command struct {
	Op       Op
	Barriers []gpucore.Barrier

	Dst, Src  *Resource
	DstOffset uint64
	SrcOffset uint64
	Size      uint64
	Mip       uint32
	Region    gpucore.Rect
	RowPitch  uint32

	Viewport gpucore.Viewport
	Scissor  gpucore.Rect

	Target *Resource
	Depth  *Resource
	Color  gputypes.Color
	ZValue float32
	SValue uint8

	Pipeline   *Pipeline
	Bindings   gpucore.Bindings
	Texture    *Resource
	Sampler    gpucore.SamplerDesc
	StencilRef uint32
	Count      uint32
	First      uint32
}

// Allocator is a simulated command allocator.
type Allocator struct {
	dev      *Device
	lists    []*CommandList
	released bool
}

// Reset reclaims command memory. Resetting while a list recorded from this
// allocator is still executing is a violation.
func (a *Allocator) Reset() error {
	for _, l := range a.lists {
		if l.inFlight {
			a.dev.violate("allocator reset while a list is in flight")
			break
		}
	}
	a.dev.count(func(s *Stats) { s.AllocatorResets++ })
	return nil
}

// Release marks the allocator released.
func (a *Allocator) Release() { a.released = true }

// CommandList records commands for the simulated queue.
type CommandList struct {
	dev      *Device
	alloc    *Allocator
	cmds     []Command
	open     bool
	inFlight bool
	released bool
	rtv, dsv *Resource
}

// Recorded returns the commands recorded since the last Reset.
func (l *CommandList) Recorded() []Command {
	return append([]Command(nil), l.cmds...)
}

// InFlight reports whether the list was submitted and its completion has
// not been signaled yet.
func (l *CommandList) InFlight() bool { return l.inFlight }

// Open reports whether the list is recording.
func (l *CommandList) Open() bool { return l.open }

// Reset reopens the list against alloc.
func (l *CommandList) Reset(alloc gpucore.CommandAllocator) error {
	if l.inFlight {
		l.dev.violate("reset of an in-flight command list")
	}
	if l.open {
		return fmt.Errorf("software: reset of a recording command list")
	}
	if a, ok := alloc.(*Allocator); ok && a != l.alloc {
		l.alloc = a
		a.lists = append(a.lists, l)
	}
	l.cmds = l.cmds[:0]
	l.rtv, l.dsv = nil, nil
	l.open = true
	return nil
}

// Close ends recording.
func (l *CommandList) Close() error {
	if !l.open {
		return fmt.Errorf("software: close of a closed command list")
	}
	l.open = false
	return nil
}

// Release marks the list released.
func (l *CommandList) Release() { l.released = true }

func (l *CommandList) record(c Command) {
	if !l.open {
		l.dev.violate("%s recorded on a closed command list", c.Op)
		return
	}
	l.cmds = append(l.cmds, c)
}

// ResourceBarrier records state transitions.
func (l *CommandList) ResourceBarrier(barriers []gpucore.Barrier) {
	l.record(Command{Op: OpBarrier, Barriers: append([]gpucore.Barrier(nil), barriers...)})
}

// CopyBufferRegion records a buffer copy.
func (l *CommandList) CopyBufferRegion(dst gpucore.Resource, dstOffset uint64, src gpucore.Resource, srcOffset, size uint64) {
	l.record(Command{Op: OpCopyBuffer, Dst: asResource(dst), DstOffset: dstOffset, Src: asResource(src), SrcOffset: srcOffset, Size: size})
}

// CopyTextureRegion records a buffer to texture copy.
func (l *CommandList) CopyTextureRegion(dst gpucore.Resource, mip uint32, region gpucore.Rect, src gpucore.Resource, srcOffset uint64, rowPitch uint32) {
	l.record(Command{Op: OpCopyTexture, Dst: asResource(dst), Mip: mip, Region: region, Src: asResource(src), SrcOffset: srcOffset, RowPitch: rowPitch})
}

// CopyResource records a whole-resource copy.
func (l *CommandList) CopyResource(dst, src gpucore.Resource) {
	l.record(Command{Op: OpCopyResource, Dst: asResource(dst), Src: asResource(src)})
}

// SetViewport records the viewport.
func (l *CommandList) SetViewport(vp gpucore.Viewport) {
	l.record(Command{Op: OpViewport, Viewport: vp})
}

// SetScissor records the scissor.
func (l *CommandList) SetScissor(r gpucore.Rect) {
	l.record(Command{Op: OpScissor, Scissor: r})
}

// SetRenderTargets records the output bind, resolving both views.
func (l *CommandList) SetRenderTargets(rtv, dsv gpucore.CPUHandle) {
	l.rtv = l.dev.ViewAt(uint64(rtv))
	l.dsv = nil
	if dsv != 0 {
		l.dsv = l.dev.ViewAt(uint64(dsv))
	}
	l.record(Command{Op: OpRenderTargets, Target: l.rtv, Depth: l.dsv})
}

// ClearRenderTarget records a color clear.
func (l *CommandList) ClearRenderTarget(rtv gpucore.CPUHandle, color gputypes.Color) {
	l.record(Command{Op: OpClearRenderTarget, Target: l.dev.ViewAt(uint64(rtv)), Color: color})
}

// ClearDepthStencil records a depth-stencil clear.
func (l *CommandList) ClearDepthStencil(dsv gpucore.CPUHandle, depth float32, stencil uint8) {
	l.record(Command{Op: OpClearDepthStencil, Depth: l.dev.ViewAt(uint64(dsv)), ZValue: depth, SValue: stencil})
}

// SetRootSignature records the root signature.
func (l *CommandList) SetRootSignature(gpucore.RootSignature) {
	l.record(Command{Op: OpRootSignature})
}

// SetDescriptorHeaps records the shader-visible heaps.
func (l *CommandList) SetDescriptorHeaps(...gpucore.DescriptorHeap) {
	l.record(Command{Op: OpDescriptorHeaps})
}

// SetPipeline records the pipeline.
func (l *CommandList) SetPipeline(p gpucore.Pipeline) {
	pp, _ := p.(*Pipeline)
	l.record(Command{Op: OpPipeline, Pipeline: pp})
}

// SetBindings records the draw bindings, resolving texture and sampler
// descriptors now.
func (l *CommandList) SetBindings(b gpucore.Bindings) {
	c := Command{Op: OpBindings, Bindings: b}
	if b.Texture != 0 {
		c.Texture = l.dev.ViewAt(uint64(b.Texture))
		if c.Texture == nil {
			l.dev.violate("bindings reference an empty texture descriptor")
		}
	}
	if b.Sampler != 0 {
		c.Sampler, _ = l.dev.SamplerAt(uint64(b.Sampler))
	}
	l.record(c)
}

// SetVertexBuffer records the vertex buffer.
func (l *CommandList) SetVertexBuffer(buf gpucore.Resource, offset, size uint64, stride uint32) {
	l.record(Command{Op: OpVertexBuffer, Src: asResource(buf), SrcOffset: offset, Size: size, RowPitch: stride})
}

// SetStencilReference records the stencil reference.
func (l *CommandList) SetStencilReference(ref uint32) {
	l.record(Command{Op: OpStencilReference, StencilRef: ref})
}

// Draw records a non-indexed draw.
func (l *CommandList) Draw(vertexCount, firstVertex uint32) {
	l.record(Command{Op: OpDraw, Count: vertexCount, First: firstVertex})
}

// execute runs the commands of a submitted list.
func (d *Device) execute(cmds []Command) {
	var sampled *Resource
	for i := range cmds {
		c := &cmds[i]
		switch c.Op {
		case OpBarrier:
			for _, b := range c.Barriers {
				r := asResource(b.Resource)
				if r == nil {
					d.violate("barrier on a foreign resource")
					continue
				}
				if r.released {
					d.violate("barrier on released resource %q", r.desc.Label)
				}
				if r.state != b.Before {
					d.violate("barrier on %q: before %s, resource is in %s", r.desc.Label, b.Before, r.state)
				}
				r.state = b.After
				d.count(func(s *Stats) { s.Barriers++ })
			}
		case OpCopyBuffer:
			d.copyBuffer(c)
		case OpCopyTexture:
			d.copyTexture(c)
		case OpCopyResource:
			d.copyResource(c)
		case OpClearRenderTarget:
			if c.Target == nil {
				d.violate("clear of an empty render target view")
				continue
			}
			d.expectState(c.Target, gpucore.StateRenderTarget, "clear")
			c.Target.fill(c.Color)
			d.count(func(s *Stats) { s.Clears++ })
		case OpClearDepthStencil:
			if c.Depth == nil {
				d.violate("clear of an empty depth view")
				continue
			}
			d.expectState(c.Depth, gpucore.StateDepthWrite, "clear")
			d.count(func(s *Stats) { s.Clears++ })
		case OpRenderTargets:
			if c.Target != nil {
				d.expectState(c.Target, gpucore.StateRenderTarget, "bind")
			}
			if c.Depth != nil {
				d.expectState(c.Depth, gpucore.StateDepthWrite, "bind")
			}
		case OpBindings:
			sampled = c.Texture
		case OpDraw:
			if sampled != nil {
				if sampled.released {
					d.violate("draw samples released texture %q", sampled.desc.Label)
				} else {
					d.expectState(sampled, gpucore.StateShaderResource, "draw sampling")
				}
			}
			d.count(func(s *Stats) {
				s.Draws++
				s.Vertices += int(c.Count)
			})
		}
	}
	d.mu.Lock()
	d.executed = append(d.executed, cmds...)
	d.mu.Unlock()
}

func (d *Device) expectState(r *Resource, want gpucore.ResourceState, what string) {
	if r.state != want {
		d.violate("%s of %q in %s, want %s", what, r.desc.Label, r.state, want)
	}
}

func (d *Device) copyBuffer(c *Command) {
	if c.Dst == nil || c.Src == nil || c.Dst.released || c.Src.released {
		d.violate("buffer copy with a missing or released resource")
		return
	}
	if c.Dst.desc.Heap == gpucore.MemoryDefault {
		d.expectState(c.Dst, gpucore.StateCopyDest, "copy into")
	}
	if c.SrcOffset+c.Size > uint64(len(c.Src.mem)) || c.DstOffset+c.Size > uint64(len(c.Dst.mem)) {
		d.violate("buffer copy out of range: %d bytes from %d into %d", c.Size, c.SrcOffset, c.DstOffset)
		return
	}
	copy(c.Dst.mem[c.DstOffset:c.DstOffset+c.Size], c.Src.mem[c.SrcOffset:c.SrcOffset+c.Size])
	d.count(func(s *Stats) { s.Copies++ })
}

func (d *Device) copyTexture(c *Command) {
	if c.Dst == nil || c.Src == nil || c.Dst.released || c.Src.released {
		d.violate("texture copy with a missing or released resource")
		return
	}
	d.expectState(c.Dst, gpucore.StateCopyDest, "copy into")
	if int(c.Mip) >= len(c.Dst.mipOffsets) {
		d.violate("texture copy into missing mip %d", c.Mip)
		return
	}
	bpp := uint64(gpucore.BytesPerPixel(c.Dst.desc.Format))
	mw, mh := c.Dst.MipSize(c.Mip)
	rg := c.Region
	if rg.X < 0 || rg.Y < 0 || uint32(rg.X+rg.Width) > mw || uint32(rg.Y+rg.Height) > mh {
		d.violate("texture copy region %+v outside %dx%d", rg, mw, mh)
		return
	}
	base := c.Dst.mipOffsets[c.Mip]
	rowBytes := uint64(rg.Width) * bpp
	for row := uint64(0); row < uint64(rg.Height); row++ {
		src := c.SrcOffset + row*uint64(c.RowPitch)
		dst := base + ((uint64(rg.Y)+row)*uint64(mw)+uint64(rg.X))*bpp
		if src+rowBytes > uint64(len(c.Src.mem)) {
			d.violate("texture copy reads past the staging buffer")
			return
		}
		copy(c.Dst.mem[dst:dst+rowBytes], c.Src.mem[src:src+rowBytes])
	}
	d.count(func(s *Stats) { s.Copies++ })
}

func (d *Device) copyResource(c *Command) {
	if c.Dst == nil || c.Src == nil || c.Dst.released || c.Src.released {
		d.violate("resource copy with a missing or released resource")
		return
	}
	d.expectState(c.Dst, gpucore.StateCopyDest, "copy into")
	d.expectState(c.Src, gpucore.StateCopySource, "copy from")
	if len(c.Dst.mem) != len(c.Src.mem) {
		d.violate("resource copy between mismatched sizes %d and %d", len(c.Src.mem), len(c.Dst.mem))
		return
	}
	copy(c.Dst.mem, c.Src.mem)
	d.count(func(s *Stats) { s.Copies++ })
}
