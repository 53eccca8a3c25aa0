// Package gpuframe is the frame submission and resource management layer of
// a NanoVG-style vector renderer running on an explicit GPU API.
//
// # Overview
//
// A [Context] owns one device and its single queue, the four descriptor
// heaps, the upload ring, the command list pool with its fence, and the
// presentation state machine. Each frame is bracketed by [Context.Start]
// and [Context.End]:
//
//	ctx, err := gpuframe.New(window)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ctx.Close()
//
//	r, err := render.New(ctx, render.AntiAlias|render.StencilStrokes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for running {
//	    if err := ctx.Start(); err != nil {
//	        continue
//	    }
//	    r.SetViewport(w, h, 1)
//	    _ = r.SubmitFill(&paint, &scissor, 1, bounds, paths)
//	    _ = r.RenderFlush()
//	    _ = ctx.End()
//	}
//
// Frames render into an offscreen target that End copies into the current
// swapchain back buffer. End waits for the previous frame before submitting
// the current one, so at most one frame executes while the next records.
//
// # Backends
//
// The device is reached through the [gpucore] contract. Importing a backend
// package registers it:
//
//	import _ "github.com/gogpu/gpuframe/backend/wgpu"     // Vulkan through gogpu/wgpu
//	import _ "github.com/gogpu/gpuframe/backend/software" // in-memory reference device
//
// # Errors
//
// Presentation failures never leave End; the swapchain is torn down and
// rebuilt over the next frames and the recoveries are counted in [Stats].
// Failures the frame layer cannot work around (device object creation,
// descriptor exhaustion, command list creation) panic with a
// *gpucore.FatalError after logging at error level.
//
// # Logging
//
// gpuframe is silent by default. [SetLogger] enables log/slog output for
// Contexts created afterwards; [WithLogger] sets it per Context.
package gpuframe
