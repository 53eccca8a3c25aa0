// Package backend selects the device implementation gpuframe runs on.
//
// Drivers register themselves from init functions and are selected at
// runtime, by name or by priority:
//
//	import _ "github.com/gogpu/gpuframe/backend/wgpu"     // Vulkan through gogpu/wgpu
//	import _ "github.com/gogpu/gpuframe/backend/software" // host-memory reference device
//
//	d := backend.Default()           // best registered driver
//	d = backend.Get("software")      // a specific driver
//	adapters, err := d.Adapters()
//
// The priority order is wgpu, then software.
package backend
