// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render is a NanoVG-style renderer on top of a gpuframe.Context.
//
// A vector front end tessellates paths into triangle fans (fills) and
// triangle strips (strokes and anti-aliasing fringes) and hands them to the
// renderer together with a paint and a scissor. The renderer queues one call
// per submission, converts the paint into a uniform block, and replays all
// calls when RenderFlush is called inside a frame.
//
// # Usage
//
//	ctx, _ := gpuframe.New(window)
//	r, _ := render.New(ctx, render.AntiAlias|render.StencilStrokes)
//	defer r.Close()
//
//	img := r.CreateTexture(render.TextureRGBA, 64, 64, render.ImageGenerateMipmaps, pixels)
//
//	ctx.Start()
//	r.SetViewport(800, 600, 1)
//	r.SubmitFill(&paint, &scissor, 1, bounds, paths)
//	r.RenderFlush()
//	ctx.End()
//
// # Fills
//
// Convex single-path fills are drawn directly. Other fills use the
// stencil-then-cover technique: the fan triangles accumulate winding in the
// stencil buffer, the fringes are drawn where the stencil is zero, and a
// bounding quad covers the non-zero area while clearing the stencil.
//
// # Strokes
//
// With StencilStrokes, each stroke is drawn in three passes so overlapping
// segments touch every pixel once. Without it strokes are drawn directly.
//
// # Textures
//
// Textures are identified by positive integers. Calls that take a texture id
// return false (or 0) for unknown ids rather than failing, and log at Debug
// level. Uploads are recorded into the frame's command list inside a frame
// and into an immediate list otherwise.
//
// # Thread safety
//
// A Renderer is not safe for concurrent use. It must be used from the
// goroutine that drives its Context.
package render
