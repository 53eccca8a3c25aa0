package backend

import (
	"errors"

	"github.com/gogpu/gpuframe/gpucore"
)

// Driver names.
const (
	// NameWGPU is the driver backed by the pure Go WebGPU HAL.
	NameWGPU = "wgpu"

	// NameSoftware is the host-memory reference driver.
	NameSoftware = "software"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when no driver is registered.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrUnknownBackend is returned when a requested driver name is not registered.
	ErrUnknownBackend = errors.New("backend: unknown backend")
)

// Driver enumerates the adapters of one device implementation.
//
// Drivers must be registered via Register and are selected via Get or
// Default.
type Driver interface {
	// Name returns the driver identifier (e.g., "software", "wgpu").
	Name() string

	// Adapters lists the physical adapters the driver can open.
	Adapters() ([]gpucore.Adapter, error)
}
