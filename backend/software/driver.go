package software

import (
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuframe/backend"
	"github.com/gogpu/gpuframe/gpucore"
)

func init() {
	backend.Register(backend.NameSoftware, func() backend.Driver { return New() })
}

// AdapterSpec describes one simulated adapter.
type AdapterSpec struct {
	Info gpucore.AdapterInfo
	Caps gpucore.Caps
}

// DefaultAdapterSpec is the adapter New exposes when given none.
func DefaultAdapterSpec() AdapterSpec {
	return AdapterSpec{
		Info: gpucore.AdapterInfo{
			Name:        "gpuframe reference device",
			DeviceType:  gputypes.DeviceTypeDiscreteGPU,
			VideoMemory: 256 << 20,
		},
		Caps: gpucore.Caps{
			MaxTextureSize:   16384,
			UniformAlignment: 256,
		},
	}
}

// Driver exposes a fixed list of simulated adapters.
type Driver struct {
	specs []AdapterSpec
}

// New returns a driver over the given adapters, or over
// DefaultAdapterSpec when none are given.
func New(specs ...AdapterSpec) *Driver {
	if len(specs) == 0 {
		specs = []AdapterSpec{DefaultAdapterSpec()}
	}
	return &Driver{specs: specs}
}

// Name returns "software".
func (d *Driver) Name() string { return backend.NameSoftware }

// Adapters returns one adapter per spec.
func (d *Driver) Adapters() ([]gpucore.Adapter, error) {
	out := make([]gpucore.Adapter, len(d.specs))
	for i := range d.specs {
		out[i] = &Adapter{spec: d.specs[i]}
	}
	return out, nil
}

// Adapter opens simulated devices.
type Adapter struct {
	spec   AdapterSpec
	opened *Device
}

// Info returns the adapter description.
func (a *Adapter) Info() gpucore.AdapterInfo { return a.spec.Info }

// Open creates a device and its queue.
func (a *Adapter) Open() (gpucore.Device, gpucore.Queue, error) {
	dev := NewDevice(a.spec.Caps)
	a.opened = dev
	return dev, dev.queue, nil
}

// Device returns the last device opened from this adapter.
func (a *Adapter) Device() *Device { return a.opened }
