package gpuframe

import (
	"log/slog"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuframe/backend"
	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/cmdpool"
	"github.com/gogpu/gpuframe/internal/descheap"
	"github.com/gogpu/gpuframe/internal/upload"
)

// AdapterPreference orders adapters during selection.
type AdapterPreference uint8

// Adapter preferences.
const (
	// PreferDiscrete picks discrete GPUs first, then integrated ones.
	PreferDiscrete AdapterPreference = iota

	// PreferIntegrated picks integrated GPUs first, then discrete ones.
	PreferIntegrated

	// PreferSoftware picks software adapters first and allows them.
	PreferSoftware
)

func (p AdapterPreference) String() string {
	switch p {
	case PreferDiscrete:
		return "discrete"
	case PreferIntegrated:
		return "integrated"
	case PreferSoftware:
		return "software"
	default:
		return "unknown"
	}
}

// DefaultReclaimBudget is the number of descriptor slots per heap returned
// to the free list at the end of each frame.
const DefaultReclaimBudget = 64

// Option configures a Context during creation.
//
// Example:
//
//	ctx, err := gpuframe.New(window,
//	    gpuframe.WithBackend("wgpu"),
//	    gpuframe.WithVSync(false),
//	)
type Option func(*config)

type config struct {
	backend       string
	driver        backend.Driver
	preference    AdapterPreference
	allowSoftware bool

	heapRTV     int
	heapDSV     int
	heapSampler int
	heapSRV     int

	commandLists  int
	uploadSize    uint64
	backBuffers   int
	vsync         bool
	clearColor    gputypes.Color
	format        gputypes.TextureFormat
	depthFormat   gputypes.TextureFormat
	reclaimBudget int

	width  int
	height int

	logger *slog.Logger

	device gpucore.Device
	queue  gpucore.Queue
}

func defaultConfig() config {
	return config{
		preference:    PreferDiscrete,
		heapRTV:       descheap.DefaultRTVCapacity,
		heapDSV:       descheap.DefaultDSVCapacity,
		heapSampler:   descheap.DefaultSamplerCapacity,
		heapSRV:       descheap.DefaultSRVCapacity,
		commandLists:  cmdpool.DefaultSize,
		uploadSize:    upload.DefaultSize,
		backBuffers:   2,
		vsync:         true,
		format:        gputypes.TextureFormatBGRA8Unorm,
		depthFormat:   gputypes.TextureFormatDepth24PlusStencil8,
		reclaimBudget: DefaultReclaimBudget,
		width:         DefaultHeadlessWidth,
		height:        DefaultHeadlessHeight,
	}
}

// WithBackend selects a registered backend by name. By default the
// highest-priority registered backend is used.
func WithBackend(name string) Option {
	return func(c *config) {
		c.backend = name
	}
}

// WithDriver uses drv directly instead of looking a backend up in the
// registry.
func WithDriver(drv backend.Driver) Option {
	return func(c *config) {
		c.driver = drv
	}
}

// WithAdapterPreference sets the adapter ordering.
func WithAdapterPreference(p AdapterPreference) Option {
	return func(c *config) {
		c.preference = p
	}
}

// WithSoftwareAdapters allows software adapters during selection.
func WithSoftwareAdapters(allow bool) Option {
	return func(c *config) {
		c.allowSoftware = allow
	}
}

// WithHeapCapacities sets the descriptor heap capacities. Zero keeps the
// default for that heap.
func WithHeapCapacities(rtv, dsv, sampler, srv int) Option {
	return func(c *config) {
		if rtv > 0 {
			c.heapRTV = rtv
		}
		if dsv > 0 {
			c.heapDSV = dsv
		}
		if sampler > 0 {
			c.heapSampler = sampler
		}
		if srv > 0 {
			c.heapSRV = srv
		}
	}
}

// WithCommandLists sets the size of the command list pool.
func WithCommandLists(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.commandLists = n
		}
	}
}

// WithUploadSize sets the initial size of each upload ring buffer.
func WithUploadSize(bytes uint64) Option {
	return func(c *config) {
		if bytes > 0 {
			c.uploadSize = bytes
		}
	}
}

// WithBackBuffers sets the swapchain buffer count.
func WithBackBuffers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.backBuffers = n
		}
	}
}

// WithVSync selects a present sync interval of 1 (on) or 0 (off).
func WithVSync(on bool) Option {
	return func(c *config) {
		c.vsync = on
	}
}

// WithClearColor sets the color the frame target is cleared to.
func WithClearColor(color gputypes.Color) Option {
	return func(c *config) {
		c.clearColor = color
	}
}

// WithFormat sets the format of the frame target and back buffers.
func WithFormat(f gputypes.TextureFormat) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithDepthFormat sets the format of the depth-stencil buffer.
func WithDepthFormat(f gputypes.TextureFormat) Option {
	return func(c *config) {
		c.depthFormat = f
	}
}

// WithReclaimBudget sets how many descriptor slots per heap are reclaimed
// at the end of each frame.
func WithReclaimBudget(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.reclaimBudget = n
		}
	}
}

// WithSize sets the frame size of a headless Context. With a window the
// window size is used.
func WithSize(width, height int) Option {
	return func(c *config) {
		c.width, c.height = width, height
	}
}

// WithLogger gives the Context its own logger instead of the package one.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithDevice adopts a device and queue created elsewhere. Adapter selection
// is skipped and Close leaves the device open.
func WithDevice(dev gpucore.Device, queue gpucore.Queue) Option {
	return func(c *config) {
		c.device = dev
		c.queue = queue
	}
}

func (c *config) syncInterval() int {
	if c.vsync {
		return 1
	}
	return 0
}
