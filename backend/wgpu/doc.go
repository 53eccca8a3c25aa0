// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package wgpu implements the gpucore device contract on the gogpu/wgpu
// hardware abstraction layer, which drives Vulkan from pure Go.
//
// The HAL exposes WebGPU-shaped objects, so the pieces of the contract it
// lacks are emulated here:
//
//   - Descriptor heaps are tables of texture views and samplers. Handles
//     encode the heap and slot, and bind groups are built from the views
//     the handles resolve to and cached until a slot is rewritten.
//   - Upload buffers keep a host copy; Flush publishes written ranges with
//     Queue.WriteBuffer.
//   - Render passes open lazily at the first draw after a target change.
//     Clears recorded before that draw become the pass load operations.
//   - Fences track the HAL submission index and complete through
//     PollCompleted, falling back to a device idle wait when blocking.
//
// Shaders are written in WGSL and compiled to SPIR-V with naga when the
// first pipeline is created.
//
// The driver registers itself as "wgpu" on import. It opens Vulkan
// adapters by default; [WithHALBackend] selects another registered HAL
// backend, which tests use with the noop backend.
package wgpu
