package software

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpuframe/gpucore"
)

// Object names a kind of device object for failure injection.
type Object uint8

// Injectable objects.
const (
	ObjectResource Object = iota
	ObjectHeap
	ObjectAllocator
	ObjectCommandList
	ObjectFence
	ObjectRootSignature
	ObjectPipeline
	ObjectSwapchain
	ObjectResize
	objectCount
)

// Stats counts what the device has done.
type Stats struct {
	ResourcesCreated   int
	ResourcesReleased  int
	HeapsCreated       int
	Barriers           int
	Copies             int
	Clears             int
	Draws              int
	Vertices           int
	Submits            int
	Signals            int
	SwapchainsCreated  int
	SwapchainsReleased int
	Presents           int
	LegacyPresents     int
	Resizes            int
	AllocatorResets    int
}

// Device is a simulated device.
type Device struct {
	mu         sync.Mutex
	caps       gpucore.Caps
	queue      *Queue
	heaps      []*Heap
	fail       [objectCount]int
	failPres   int
	failErr    error
	stats      Stats
	executed   []Command
	violations []string
	swapchain  *Swapchain
	closed     bool
}

// NewDevice returns a device with caps and its queue.
func NewDevice(caps gpucore.Caps) *Device {
	if caps.UniformAlignment == 0 {
		caps.UniformAlignment = 256
	}
	if caps.MaxTextureSize == 0 {
		caps.MaxTextureSize = 16384
	}
	d := &Device{caps: caps}
	d.queue = &Queue{dev: d}
	return d
}

// Queue returns the device queue.
func (d *Device) Queue() *Queue { return d.queue }

// Caps returns the device capabilities.
func (d *Device) Caps() gpucore.Caps { return d.caps }

// SetDownlevelPresentOnly toggles legacy-only presentation.
func (d *Device) SetDownlevelPresentOnly(v bool) { d.caps.DownlevelPresentOnly = v }

// FailNext makes the next n creations of obj fail.
func (d *Device) FailNext(obj Object, n int) {
	d.mu.Lock()
	d.fail[obj] = n
	d.mu.Unlock()
}

// FailPresent makes the next n presents return err, or
// gpucore.ErrSwapchain when err is nil.
func (d *Device) FailPresent(n int, err error) {
	if err == nil {
		err = gpucore.ErrSwapchain
	}
	d.mu.Lock()
	d.failPres = n
	d.failErr = err
	d.mu.Unlock()
}

func (d *Device) shouldFail(obj Object) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail[obj] > 0 {
		d.fail[obj]--
		return true
	}
	return false
}

func (d *Device) presentFailure() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failPres > 0 {
		d.failPres--
		return d.failErr
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Executed returns every command the queue has executed, in order.
func (d *Device) Executed() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Command(nil), d.executed...)
}

// ResetExecuted forgets the executed command log.
func (d *Device) ResetExecuted() {
	d.mu.Lock()
	d.executed = nil
	d.mu.Unlock()
}

// Violations returns the contract violations observed so far.
func (d *Device) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.violations...)
}

func (d *Device) violate(format string, args ...any) {
	d.mu.Lock()
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
	d.mu.Unlock()
}

func (d *Device) count(fn func(*Stats)) {
	d.mu.Lock()
	fn(&d.stats)
	d.mu.Unlock()
}

// CreateCommittedResource allocates host memory for desc.
func (d *Device) CreateCommittedResource(desc *gpucore.ResourceDesc) (gpucore.Resource, error) {
	if d.shouldFail(ObjectResource) {
		return nil, fmt.Errorf("software: create %q: %w", desc.Label, gpucore.ErrOutOfMemory)
	}
	r, err := newResource(d, *desc)
	if err != nil {
		return nil, err
	}
	d.count(func(s *Stats) { s.ResourcesCreated++ })
	return r, nil
}

// CreateDescriptorHeap creates a view table.
func (d *Device) CreateDescriptorHeap(kind gpucore.HeapKind, capacity int) (gpucore.DescriptorHeap, error) {
	if d.shouldFail(ObjectHeap) {
		return nil, fmt.Errorf("software: create %s heap: %w", kind, gpucore.ErrOutOfMemory)
	}
	d.mu.Lock()
	h := &Heap{id: uint64(len(d.heaps) + 1), kind: kind, views: make([]view, capacity)}
	d.heaps = append(d.heaps, h)
	d.stats.HeapsCreated++
	d.mu.Unlock()
	return h, nil
}

// CreateRenderTargetView writes a render target view.
func (d *Device) CreateRenderTargetView(res gpucore.Resource, at gpucore.CPUHandle) {
	d.writeView(gpucore.HeapRTV, uint64(at), view{res: asResource(res)})
}

// CreateDepthStencilView writes a depth-stencil view.
func (d *Device) CreateDepthStencilView(res gpucore.Resource, at gpucore.CPUHandle) {
	d.writeView(gpucore.HeapDSV, uint64(at), view{res: asResource(res)})
}

// CreateShaderResourceView writes a shader resource view.
func (d *Device) CreateShaderResourceView(res gpucore.Resource, at gpucore.CPUHandle) {
	d.writeView(gpucore.HeapSRV, uint64(at), view{res: asResource(res)})
}

// CreateSampler writes a sampler.
func (d *Device) CreateSampler(desc gpucore.SamplerDesc, at gpucore.CPUHandle) {
	s := desc
	d.writeView(gpucore.HeapSampler, uint64(at), view{sampler: &s})
}

func (d *Device) writeView(kind gpucore.HeapKind, handle uint64, v view) {
	h, slot, ok := d.lookup(handle)
	if !ok || h.kind != kind {
		d.violate("create %s view at unknown handle %#x", kind, handle)
		return
	}
	h.views[slot] = v
}

// lookup resolves a CPU or GPU handle to its heap and slot.
func (d *Device) lookup(handle uint64) (*Heap, int, bool) {
	id := (handle &^ gpuHandleBit) >> heapShift
	d.mu.Lock()
	defer d.mu.Unlock()
	if id == 0 || id > uint64(len(d.heaps)) {
		return nil, 0, false
	}
	h := d.heaps[id-1]
	slot := int((handle & slotMask) / descriptorStride)
	if slot >= len(h.views) {
		return nil, 0, false
	}
	return h, slot, true
}

// ViewAt returns the resource a view handle refers to.
func (d *Device) ViewAt(handle uint64) *Resource {
	h, slot, ok := d.lookup(handle)
	if !ok {
		return nil
	}
	return h.views[slot].res
}

// SamplerAt returns the sampler a handle refers to.
func (d *Device) SamplerAt(handle uint64) (gpucore.SamplerDesc, bool) {
	h, slot, ok := d.lookup(handle)
	if !ok || h.views[slot].sampler == nil {
		return gpucore.SamplerDesc{}, false
	}
	return *h.views[slot].sampler, true
}

// CreateCommandAllocator creates an allocator.
func (d *Device) CreateCommandAllocator() (gpucore.CommandAllocator, error) {
	if d.shouldFail(ObjectAllocator) {
		return nil, fmt.Errorf("software: create command allocator: %w", gpucore.ErrOutOfMemory)
	}
	return &Allocator{dev: d}, nil
}

// CreateCommandList creates a list open for recording against alloc.
func (d *Device) CreateCommandList(alloc gpucore.CommandAllocator) (gpucore.CommandList, error) {
	if d.shouldFail(ObjectCommandList) {
		return nil, fmt.Errorf("software: create command list: %w", gpucore.ErrOutOfMemory)
	}
	a, ok := alloc.(*Allocator)
	if !ok {
		return nil, fmt.Errorf("software: foreign allocator %T", alloc)
	}
	l := &CommandList{dev: d, alloc: a, open: true}
	a.lists = append(a.lists, l)
	return l, nil
}

// CreateFence creates a fence at initial.
func (d *Device) CreateFence(initial uint64) (gpucore.Fence, error) {
	if d.shouldFail(ObjectFence) {
		return nil, fmt.Errorf("software: create fence: %w", gpucore.ErrOutOfMemory)
	}
	return newFence(initial), nil
}

// CreateRootSignature creates the shared binding layout.
func (d *Device) CreateRootSignature() (gpucore.RootSignature, error) {
	if d.shouldFail(ObjectRootSignature) {
		return nil, fmt.Errorf("software: create root signature: %w", gpucore.ErrUnsupported)
	}
	return &RootSignature{}, nil
}

// CreatePipeline creates a pipeline object.
func (d *Device) CreatePipeline(root gpucore.RootSignature, desc *gpucore.PipelineDesc) (gpucore.Pipeline, error) {
	if d.shouldFail(ObjectPipeline) {
		return nil, fmt.Errorf("software: create pipeline %s: %w", desc.Kind, gpucore.ErrUnsupported)
	}
	if root == nil {
		return nil, fmt.Errorf("software: create pipeline %s: nil root signature", desc.Kind)
	}
	return &Pipeline{desc: *desc}, nil
}

// CreateSwapchain creates a swapchain for window.
func (d *Device) CreateSwapchain(window gpucore.Window, desc *gpucore.SwapchainDesc) (gpucore.Swapchain, error) {
	if window == nil {
		return nil, fmt.Errorf("software: create swapchain: nil window: %w", gpucore.ErrSwapchain)
	}
	if d.shouldFail(ObjectSwapchain) {
		return nil, fmt.Errorf("software: create swapchain: %w", gpucore.ErrSwapchain)
	}
	sc := &Swapchain{dev: d, desc: *desc}
	if !desc.Legacy {
		if err := sc.allocate(desc.Width, desc.Height); err != nil {
			return nil, err
		}
	}
	d.mu.Lock()
	d.swapchain = sc
	d.stats.SwapchainsCreated++
	d.mu.Unlock()
	return sc, nil
}

// LastSwapchain returns the most recently created swapchain.
func (d *Device) LastSwapchain() *Swapchain {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.swapchain
}

// Close marks the device closed.
func (d *Device) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

// Closed reports whether Close was called.
func (d *Device) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// RootSignature is the simulated binding layout.
type RootSignature struct{}

// Release is a no-op.
func (*RootSignature) Release() {}

// Pipeline is a simulated pipeline.
type Pipeline struct {
	desc gpucore.PipelineDesc
}

// Desc returns the pipeline description.
func (p *Pipeline) Desc() gpucore.PipelineDesc { return p.desc }

// Release is a no-op.
func (*Pipeline) Release() {}
