// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/vulkan" // registers the Vulkan HAL backend

	"github.com/gogpu/gpuframe/backend"
	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/fatal"
)

func init() {
	backend.Register(backend.NameWGPU, func() backend.Driver { return New() })
}

// ErrNoHALBackend is returned when the selected HAL backend is not
// registered with the HAL.
var ErrNoHALBackend = errors.New("wgpu: HAL backend not registered")

// Option configures a Driver.
type Option func(*Driver)

// WithHALBackend selects the HAL backend adapters are enumerated from.
// The backend package must be imported for its registration to run.
func WithHALBackend(b gputypes.Backend) Option {
	return func(d *Driver) { d.variant = b }
}

// WithLogger sets the logger of the driver and of the devices it opens.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.log = l }
}

// Driver enumerates the adapters of one HAL backend.
type Driver struct {
	variant gputypes.Backend
	log     *slog.Logger

	mu       sync.Mutex
	instance hal.Instance
}

// New returns a driver over the Vulkan HAL backend unless an option picks
// another one.
func New(opts ...Option) *Driver {
	d := &Driver{variant: gputypes.BackendVulkan}
	for _, opt := range opts {
		opt(d)
	}
	d.log = fatal.Logger(d.log)
	return d
}

// Name returns "wgpu".
func (d *Driver) Name() string { return backend.NameWGPU }

// Adapters creates the HAL instance on first use and lists its adapters.
func (d *Driver) Adapters() ([]gpucore.Adapter, error) {
	inst, err := d.ensureInstance()
	if err != nil {
		return nil, err
	}
	exposed := inst.EnumerateAdapters(nil)
	out := make([]gpucore.Adapter, 0, len(exposed))
	for i := range exposed {
		out = append(out, &Adapter{drv: d, exposed: exposed[i]})
	}
	d.log.Debug("wgpu: adapters", "backend", d.variant.String(), "count", len(out))
	return out, nil
}

func (d *Driver) ensureInstance() (hal.Instance, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.instance != nil {
		return d.instance, nil
	}
	b, ok := hal.GetBackend(d.variant)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHALBackend, d.variant)
	}
	inst, err := b.CreateInstance(&hal.InstanceDescriptor{
		Backends: gputypes.Backends(1) << d.variant,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create %s instance: %w", d.variant, err)
	}
	d.instance = inst
	return inst, nil
}

// Adapter is one physical device exposed by the HAL.
type Adapter struct {
	drv     *Driver
	exposed hal.ExposedAdapter
}

// Info describes the adapter.
func (a *Adapter) Info() gpucore.AdapterInfo {
	return adapterInfo(&a.exposed)
}

// Open opens the logical device and its queue with the adapter's limits.
func (a *Adapter) Open() (gpucore.Device, gpucore.Queue, error) {
	od, err := a.exposed.Adapter.Open(0, a.exposed.Capabilities.Limits)
	if err != nil {
		return nil, nil, fmt.Errorf("wgpu: open %s: %w", a.exposed.Info.Name, err)
	}
	dev := newDevice(od.Device, od.Queue, capsFromLimits(a.exposed.Capabilities.Limits), a.drv.log)
	dev.instance = a.drv.instance
	dev.owned = true
	return dev, dev.queue, nil
}
