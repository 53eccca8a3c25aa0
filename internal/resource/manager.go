// Package resource wraps device resources with cached pipeline state,
// descriptor slots and reference counting.
//
// A barrier is recorded only when the requested state differs from the
// cached one. Resources whose count drops to zero are not destroyed at
// once: the device object and its descriptor slots are queued with the
// frame index and released by Collect once the frame driver has waited for
// every frame that could still use them. That is the end of the next
// frame, or right away when the driver idles the device outside a frame.
package resource

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/descheap"
	"github.com/gogpu/gpuframe/internal/fatal"
	"github.com/gogpu/gpuframe/internal/upload"
)

// Heaps are the allocators resources take view slots from.
type Heaps struct {
	RTV *descheap.Allocator
	DSV *descheap.Allocator
	SRV *descheap.Allocator
}

type deferred struct {
	frame uint64
	obj   gpucore.Resource
	owned bool
	bytes uint64
	heap  *descheap.Allocator
	slot  int
}

// Stats contains resource usage statistics.
type Stats struct {
	// Live is the number of device objects owned by resources.
	Live int

	// LiveBytes is the estimated memory of live objects.
	LiveBytes uint64

	// Created is the total number of device objects created.
	Created uint64

	// Destroyed is the total number of device objects released.
	Destroyed uint64

	// Pending is the number of objects and slots awaiting release.
	Pending int

	// Barriers is the total number of barriers recorded.
	Barriers uint64

	// Uploads is the total number of staged copies recorded.
	Uploads uint64
}

// String returns a human-readable string of resource stats.
func (s Stats) String() string {
	return fmt.Sprintf("Resources[%d live, %.1f MB, %d pending, %d barriers, %d uploads]",
		s.Live,
		float64(s.LiveBytes)/(1024*1024),
		s.Pending,
		s.Barriers,
		s.Uploads)
}

// Manager creates resources and owns their deferred release.
type Manager struct {
	dev      gpucore.Device
	heaps    Heaps
	ring     *upload.Ring
	list     gpucore.CommandList
	frame    uint64
	deferred []deferred
	stats    Stats
	log      *slog.Logger
}

// NewManager returns a manager with an upload ring of uploadSize bytes per
// buffer. Buffers the ring outgrows are released through the manager.
func NewManager(dev gpucore.Device, heaps Heaps, uploadSize uint64, log *slog.Logger) *Manager {
	m := &Manager{dev: dev, heaps: heaps, log: fatal.Logger(log)}
	m.ring = upload.New(dev, uploadSize, m.Defer, m.log)
	return m
}

// Ring returns the upload ring.
func (m *Manager) Ring() *upload.Ring { return m.ring }

// Heaps returns the descriptor allocators.
func (m *Manager) Heaps() Heaps { return m.heaps }

// SetCommandList sets the list transitions and copies are recorded into.
func (m *Manager) SetCommandList(cl gpucore.CommandList) { m.list = cl }

// CommandList returns the active list, or nil outside recording.
func (m *Manager) CommandList() gpucore.CommandList { return m.list }

func (m *Manager) active(op string) gpucore.CommandList {
	if m.list == nil {
		fatal.Abortf(m.log, op, "no active command list")
	}
	return m.list
}

// Frame returns the current frame index.
func (m *Manager) Frame() uint64 { return m.frame }

// AdvanceFrame moves to the next frame index.
func (m *Manager) AdvanceFrame() { m.frame++ }

// Defer queues an object created outside the manager for release once the
// current frame has completed.
func (m *Manager) Defer(obj gpucore.Resource) {
	m.deferred = append(m.deferred, deferred{frame: m.frame, obj: obj})
}

func (m *Manager) deferOwned(obj gpucore.Resource) {
	m.deferred = append(m.deferred, deferred{frame: m.frame, obj: obj, owned: true, bytes: estimateBytes(obj.Desc())})
}

func (m *Manager) deferSlot(h *descheap.Allocator, slot int) {
	m.deferred = append(m.deferred, deferred{frame: m.frame, heap: h, slot: slot})
}

// Collect releases everything queued before the current frame and returns
// how many entries it released. Call it only after waiting for the
// previous frame.
func (m *Manager) Collect() int {
	n := 0
	kept := m.deferred[:0]
	for _, d := range m.deferred {
		if d.frame >= m.frame {
			kept = append(kept, d)
			continue
		}
		m.release(d)
		n++
	}
	clear(m.deferred[len(kept):])
	m.deferred = kept
	if n > 0 {
		m.log.Debug("resource: collected", "frame", m.frame, "count", n, "pending", len(m.deferred))
	}
	return n
}

func (m *Manager) release(d deferred) {
	if d.obj != nil {
		d.obj.Release()
		if d.owned {
			m.stats.Destroyed++
			m.stats.Live--
			m.stats.LiveBytes -= d.bytes
		}
		return
	}
	d.heap.Release(d.slot)
}

// ReclaimDescriptors moves up to maxCount pending slots of each heap back
// to its free list.
func (m *Manager) ReclaimDescriptors(maxCount int) int {
	n := 0
	for _, h := range []*descheap.Allocator{m.heaps.RTV, m.heaps.DSV, m.heaps.SRV} {
		if h != nil {
			n += h.ReclaimUpTo(maxCount)
		}
	}
	return n
}

// Stats returns a snapshot of the counters.
func (m *Manager) Stats() Stats {
	s := m.stats
	s.Pending = len(m.deferred)
	return s
}

// Release destroys everything still queued. The device must be idle.
func (m *Manager) Release() {
	for _, d := range m.deferred {
		m.release(d)
	}
	m.deferred = nil
	if m.ring != nil {
		m.ring.Release()
		m.ring = nil
	}
}

// New returns an empty resource holding one reference.
func (m *Manager) New() *Resource {
	return &Resource{m: m, refs: 1, rtv: -1, dsv: -1, srv: -1}
}

// Wrap adopts an object owned elsewhere, such as a swapchain back buffer.
// Wrapped objects are never released by the manager.
func (m *Manager) Wrap(obj gpucore.Resource, state gpucore.ResourceState) *Resource {
	r := m.New()
	r.kind = KindExternal
	r.obj = obj
	r.desc = obj.Desc()
	r.state = state
	r.steady = state
	r.external = true
	return r
}

func (m *Manager) create(desc *gpucore.ResourceDesc) gpucore.Resource {
	obj, err := m.dev.CreateCommittedResource(desc)
	if err != nil {
		fatal.Abort(m.log, "create "+desc.Label, err)
	}
	m.stats.Created++
	m.stats.Live++
	m.stats.LiveBytes += estimateBytes(obj.Desc())
	return obj
}

func estimateBytes(d gpucore.ResourceDesc) uint64 {
	if d.Dimension == gpucore.DimensionBuffer {
		return d.Size
	}
	bpp := uint64(gpucore.BytesPerPixel(d.Format))
	layers := uint64(max(d.ArraySize, 1))
	var total uint64
	for mip := uint32(0); mip < max(d.MipLevels, 1); mip++ {
		w, h := max(d.Width>>mip, 1), max(d.Height>>mip, 1)
		total += uint64(w) * uint64(h) * bpp
	}
	return total * layers
}
