// Package gpucore defines the device contract that gpuframe drives.
//
// The contract follows explicit-API semantics: resources carry a pipeline
// state and move between states through barriers, views live in descriptor
// heaps addressed by handle arithmetic, work is recorded into command lists
// that are submitted to a single queue, and completion is observed through
// a monotonically increasing fence.
//
// Backends implement the contract:
//   - backend/wgpu runs on the pure Go WebGPU HAL (gogpu/wgpu)
//   - backend/software runs in host memory and records every command
//
// # Architecture
//
//	+-----------------------+
//	|  gpuframe.Context     |  frame driver, present state machine
//	+-----------+-----------+
//	            |
//	+-----------v-----------+
//	|  internal/resource    |  state caching, deferred release
//	|  internal/descheap    |  descriptor slots
//	|  internal/cmdpool     |  command lists, fence sync
//	|  internal/upload      |  staging ring
//	+-----------+-----------+
//	            |  gpucore.Device / Queue / CommandList
//	+-----------v-----------+
//	|  backend/wgpu         |
//	|  backend/software     |
//	+-----------------------+
//
// # Handles
//
// [CPUHandle] and [GPUHandle] are opaque integers. A descriptor heap exposes
// a base handle and a stride; the handle of slot i is base + i*stride. Only
// shader-visible heaps (samplers and shader resources) have GPU handles.
//
// # Thread safety
//
// Recording is single threaded. Implementations only need to make
// [Fence.Wait] and [Fence.Completed] safe to call while the device
// completes work on another goroutine.
package gpucore
