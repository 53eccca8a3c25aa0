package gpuframe

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/cmdpool"
	"github.com/gogpu/gpuframe/internal/descheap"
	"github.com/gogpu/gpuframe/internal/fatal"
	"github.com/gogpu/gpuframe/internal/present"
	"github.com/gogpu/gpuframe/internal/resource"
)

// Default frame size of a headless Context.
const (
	DefaultHeadlessWidth  = 800
	DefaultHeadlessHeight = 600
)

// PresentState is the state of the presentation state machine.
type PresentState = present.State

// Presentation states.
const (
	PresentSetup  = present.Setup
	PresentActive = present.Present
	PresentError  = present.Error
	PresentResize = present.Resize
	PresentLegacy = present.PresentLegacy
)

// Context is the device context: one device, its queue, and every object
// the frame driver needs. A Context is not safe for concurrent use; all
// recording happens on one goroutine.
type Context struct {
	cfg        config
	log        *slog.Logger
	window     gpucore.Window
	adapter    gpucore.AdapterInfo
	backend    string
	dev        gpucore.Device
	queue      gpucore.Queue
	ownsDevice bool

	rtvHeap     *descheap.Allocator
	dsvHeap     *descheap.Allocator
	samplerHeap *descheap.Allocator
	srvHeap     *descheap.Allocator

	resources *resource.Manager
	sync      *cmdpool.FrameSync
	pool      *cmdpool.Pool
	root      gpucore.RootSignature

	target *resource.Resource
	depth  *resource.Resource
	width  int
	height int

	swapchain   gpucore.Swapchain
	backBuffers []*resource.Resource
	machine     *present.Machine
	windowW     int
	windowH     int

	list    *cmdpool.List
	running bool
	closed  bool

	headlessResize bool
	pendingW       int
	pendingH       int

	counters counters
}

// New creates a Context presenting to window, or a headless one when
// window is nil.
//
// Errors enumerating adapters or opening the device are returned. Once the
// device is open, failing to create a core object (descriptor heaps, upload
// buffers, command lists, the fence, the root signature, the frame
// targets) is fatal.
func New(window gpucore.Window, opts ...Option) (*Context, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.logger
	if log == nil {
		log = Logger()
	}

	c := &Context{cfg: cfg, log: log, window: window}
	w, h := cfg.width, cfg.height
	if window != nil {
		w, h = window.Size()
		c.windowW, c.windowH = w, h
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("gpuframe: invalid frame size %dx%d", w, h)
	}

	if err := c.open(); err != nil {
		return nil, err
	}
	if limit := c.dev.Caps().MaxTextureSize; limit > 0 && (uint32(w) > limit || uint32(h) > limit) {
		c.closeDevice()
		return nil, fmt.Errorf("gpuframe: frame size %dx%d exceeds %d: %w", w, h, limit, gpucore.ErrUnsupported)
	}
	c.init(w, h)
	return c, nil
}

// open selects an adapter and opens its device, or adopts the configured
// device.
func (c *Context) open() error {
	if c.cfg.device != nil {
		if c.cfg.queue == nil {
			return errors.New("gpuframe: adopted device has no queue")
		}
		c.dev, c.queue = c.cfg.device, c.cfg.queue
		c.backend = "external"
		c.log.Info("gpuframe: adopted device")
		return nil
	}

	drv, err := resolveDriver(&c.cfg)
	if err != nil {
		return fmt.Errorf("gpuframe: backend: %w", err)
	}
	adapters, err := drv.Adapters()
	if err != nil {
		return fmt.Errorf("gpuframe: enumerate %s adapters: %w", drv.Name(), err)
	}
	adapter, err := selectAdapter(adapters, c.cfg.preference, c.cfg.allowSoftware, c.log)
	if err != nil {
		return err
	}
	dev, queue, err := adapter.Open()
	if err != nil {
		return fmt.Errorf("gpuframe: open %s: %w", adapter.Info().Name, err)
	}
	c.dev, c.queue = dev, queue
	c.adapter = adapter.Info()
	c.backend = drv.Name()
	c.ownsDevice = true
	c.log.Info("gpuframe: device created", "backend", c.backend, "adapter", c.adapter.Name)
	return nil
}

func (c *Context) init(w, h int) {
	cfg := &c.cfg
	c.rtvHeap = descheap.New(c.dev, gpucore.HeapRTV, cfg.heapRTV, c.log)
	c.dsvHeap = descheap.New(c.dev, gpucore.HeapDSV, cfg.heapDSV, c.log)
	c.samplerHeap = descheap.New(c.dev, gpucore.HeapSampler, cfg.heapSampler, c.log)
	c.srvHeap = descheap.New(c.dev, gpucore.HeapSRV, cfg.heapSRV, c.log)

	c.resources = resource.NewManager(c.dev, resource.Heaps{
		RTV: c.rtvHeap,
		DSV: c.dsvHeap,
		SRV: c.srvHeap,
	}, cfg.uploadSize, c.log)
	c.sync = cmdpool.NewFrameSync(c.dev, c.queue, c.log)
	c.pool = cmdpool.New(c.dev, c.queue, c.sync, cfg.commandLists, c.log)

	root, err := c.dev.CreateRootSignature()
	if err != nil {
		fatal.Abort(c.log, "create root signature", err)
	}
	c.root = root

	c.target = c.resources.New()
	c.depth = c.resources.New()
	if err := c.rebuildTargets(w, h); err != nil {
		fatal.Abort(c.log, "create frame targets", err)
	}

	c.running = true
	if c.window == nil {
		c.log.Info("gpuframe: headless context", "size", sizeAttr(w, h))
		return
	}
	c.machine = present.New(presenter{c}, c.log)
	c.machine.OnTransition = c.onTransition
	// Create the swapchain now so the first frame is presented.
	c.machine.Step()
}

// rebuildTargets recreates the frame render target and depth buffer. The
// old objects go through deferred release.
func (c *Context) rebuildTargets(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("gpuframe: invalid frame size %dx%d", w, h)
	}
	if limit := c.dev.Caps().MaxTextureSize; limit > 0 && (uint32(w) > limit || uint32(h) > limit) {
		return fmt.Errorf("gpuframe: frame size %dx%d exceeds %d: %w", w, h, limit, gpucore.ErrUnsupported)
	}
	c.target.CreateAsRenderTarget(c.cfg.format, c.cfg.clearColor, uint32(w), uint32(h))
	c.depth.CreateAsDepthBuffer(c.cfg.depthFormat, uint32(w), uint32(h))
	c.width, c.height = w, h
	c.log.Debug("gpuframe: frame targets", "size", sizeAttr(w, h))
	return nil
}

// Close waits for the device, releases every object the Context created,
// and closes the device unless it was adopted with WithDevice.
func (c *Context) Close() error {
	if c.closed {
		return ErrClosed
	}
	if c.list != nil {
		return ErrInFrame
	}
	c.pool.WaitForCompletion()
	if c.swapchain != nil {
		presenter{c}.ReleaseSwapchain()
	}
	c.target.ModifyRefCount(-1)
	c.depth.ModifyRefCount(-1)
	c.resources.Release()
	c.pool.Release()
	c.sync.Release()
	c.root.Release()
	for _, h := range []*descheap.Allocator{c.rtvHeap, c.dsvHeap, c.samplerHeap, c.srvHeap} {
		h.Destroy()
	}
	c.closeDevice()
	c.running = false
	c.closed = true
	c.log.Info("gpuframe: closed", "frames", c.counters.frames)
	return nil
}

func (c *Context) closeDevice() {
	if c.ownsDevice {
		c.dev.Close()
	}
}

// Running reports whether frames can be recorded.
func (c *Context) Running() bool { return c.running && !c.closed }

// InFrame reports whether a frame is being recorded.
func (c *Context) InFrame() bool { return c.list != nil }

// Size returns the size of the frame render target.
func (c *Context) Size() (width, height int) { return c.width, c.height }

// Headless reports whether the Context has no window.
func (c *Context) Headless() bool { return c.window == nil }

// Device returns the device.
func (c *Context) Device() gpucore.Device { return c.dev }

// Queue returns the queue.
func (c *Context) Queue() gpucore.Queue { return c.queue }

// Caps returns the device capabilities.
func (c *Context) Caps() gpucore.Caps { return c.dev.Caps() }

// Adapter returns the selected adapter. It is zero for adopted devices.
func (c *Context) Adapter() gpucore.AdapterInfo { return c.adapter }

// Backend returns the name of the backend the device came from.
func (c *Context) Backend() string { return c.backend }

// Format returns the color format of the frame target.
func (c *Context) Format() gputypes.TextureFormat { return c.cfg.format }

// DepthFormat returns the depth-stencil format.
func (c *Context) DepthFormat() gputypes.TextureFormat { return c.cfg.depthFormat }

// Resources returns the resource manager.
func (c *Context) Resources() *resource.Manager { return c.resources }

// Samplers returns the sampler descriptor allocator.
func (c *Context) Samplers() *descheap.Allocator { return c.samplerHeap }

// RootSignature returns the root signature bound at the start of each frame.
func (c *Context) RootSignature() gpucore.RootSignature { return c.root }

// RenderTarget returns the offscreen frame target.
func (c *Context) RenderTarget() *resource.Resource { return c.target }

// DepthBuffer returns the frame depth-stencil buffer.
func (c *Context) DepthBuffer() *resource.Resource { return c.depth }

// CommandList returns the list of the frame being recorded, or nil.
func (c *Context) CommandList() gpucore.CommandList {
	if c.list == nil {
		return nil
	}
	return c.list.Commands
}

// Swapchain returns the current swapchain, or nil.
func (c *Context) Swapchain() gpucore.Swapchain { return c.swapchain }

// PresentState returns the state of the presentation state machine. A
// headless Context is always in PresentSetup.
func (c *Context) PresentState() PresentState {
	if c.machine == nil {
		return PresentSetup
	}
	return c.machine.State()
}

// FrameIndex returns the index of the frame being or about to be recorded.
func (c *Context) FrameIndex() uint64 { return c.resources.Frame() }

// Logger returns the Context logger.
func (c *Context) Logger() *slog.Logger { return c.log }

func (c *Context) onTransition(from, to present.State, err error) {
	if to == present.Error {
		c.counters.recoveries++
	}
	c.log.Debug("gpuframe: present transition", "from", from.String(), "state", to.String(), "err", err)
}

// noteDeviceLost counts device loss. The device itself is not rebuilt;
// only the swapchain is recreated through the Error state.
func (c *Context) noteDeviceLost(err error) error {
	if errors.Is(err, gpucore.ErrDeviceLost) {
		c.counters.deviceLost++
		c.log.Error("gpuframe: device lost", "err", err)
	}
	return err
}

func sizeAttr(w, h int) string { return fmt.Sprintf("%dx%d", w, h) }
