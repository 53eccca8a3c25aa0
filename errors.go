package gpuframe

import "errors"

// Context errors.
var (
	// ErrNoAdapter is returned by New when no adapter passes selection.
	ErrNoAdapter = errors.New("gpuframe: no suitable adapter")

	// ErrNotRunning is returned by Start and End when there is nothing to do:
	// End without Start, or a frame on a closed device.
	ErrNotRunning = errors.New("gpuframe: not running")

	// ErrClosed is returned by operations on a closed Context.
	ErrClosed = errors.New("gpuframe: context closed")

	// ErrInFrame is returned by operations that are not allowed between
	// Start and End.
	ErrInFrame = errors.New("gpuframe: frame in progress")
)
