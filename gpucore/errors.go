package gpucore

import (
	"errors"
	"fmt"
)

// Device errors.
var (
	// ErrDeviceLost is returned when the device was removed or reset.
	ErrDeviceLost = errors.New("gpucore: device lost")

	// ErrSwapchain is returned when a swapchain operation failed in a way
	// that requires recreating the swapchain.
	ErrSwapchain = errors.New("gpucore: swapchain failure")

	// ErrUnsupported is returned for operations the backend cannot perform.
	ErrUnsupported = errors.New("gpucore: unsupported")

	// ErrOutOfMemory is returned when an allocation failed.
	ErrOutOfMemory = errors.New("gpucore: out of memory")
)

// FatalError is the panic value of unrecoverable failures: device object
// creation, descriptor exhaustion, command list creation.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	if e.Err == nil {
		return "gpucore: fatal: " + e.Op
	}
	return fmt.Sprintf("gpucore: fatal: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
