// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package hostcanvas runs gpuframe frames on the device of a host
// application, such as a gogpu window.
//
// The data flow is:
//
//	render.Renderer (draw) -> gpuframe.Context (frame) -> host device
//
// # Architecture
//
// Canvas adopts the host's HAL device through wgpu.FromProvider and builds
// a headless gpuframe.Context on it:
//
//   - Draw brackets a frame: Start, the draw callback, RenderFlush, End
//   - Resize recreates the frame targets
//   - Close releases what the canvas created and leaves the device open
//
// The host owns the surface and presents; the canvas never creates a
// swapchain.
//
// # Usage
//
//	canvas, err := hostcanvas.New(app.GPUContextProvider(), 800, 600, render.AntiAlias)
//	if err != nil {
//		return err
//	}
//	defer canvas.Close()
//
//	err = canvas.Draw(func(r *render.Renderer) error {
//		p := render.ColorPaint(render.RGB(1, 0, 0))
//		s := render.NoScissor()
//		return r.SubmitFill(&p, &s, 1, bounds, paths)
//	})
//
// # Thread Safety
//
// Canvas is NOT safe for concurrent use.
package hostcanvas
