// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package hostcanvas

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuframe"
	"github.com/gogpu/gpuframe/backend/wgpu"
	"github.com/gogpu/gpuframe/render"
)

// Common errors returned by Canvas operations.
var (
	// ErrCanvasClosed is returned when operations are attempted on a closed canvas.
	ErrCanvasClosed = errors.New("hostcanvas: canvas is closed")

	// ErrInvalidDimensions is returned when width or height is invalid.
	ErrInvalidDimensions = errors.New("hostcanvas: invalid dimensions")

	// ErrNilProvider is returned when a nil DeviceProvider is passed.
	ErrNilProvider = errors.New("hostcanvas: nil DeviceProvider")
)

// Canvas is a gpuframe Context and renderer on a host-provided device.
type Canvas struct {
	provider gpucontext.DeviceProvider
	dev      *wgpu.Device
	ctx      *gpuframe.Context
	renderer *render.Renderer
	width    int
	height   int
	closed   bool
}

// New creates a Canvas of the given size on provider's device. The frame
// format follows the host surface. opts are applied after the canvas
// defaults.
func New(provider gpucontext.DeviceProvider, width, height int, flags render.Flags, opts ...gpuframe.Option) (*Canvas, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}

	dev, queue, err := wgpu.FromProvider(provider, gpuframe.Logger())
	if err != nil {
		return nil, fmt.Errorf("hostcanvas: %w", err)
	}
	base := []gpuframe.Option{
		gpuframe.WithDevice(dev, queue),
		gpuframe.WithSize(width, height),
	}
	if f := provider.SurfaceFormat(); f != gputypes.TextureFormatUndefined {
		base = append(base, gpuframe.WithFormat(f))
	}
	ctx, err := gpuframe.New(nil, append(base, opts...)...)
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("hostcanvas: %w", err)
	}
	r, err := render.New(ctx, flags)
	if err != nil {
		ctx.Close()
		dev.Close()
		return nil, fmt.Errorf("hostcanvas: %w", err)
	}
	return &Canvas{
		provider: provider,
		dev:      dev,
		ctx:      ctx,
		renderer: r,
		width:    width,
		height:   height,
	}, nil
}

// MustNew is like New but panics on error.
// Use only when errors are programming mistakes (e.g., hardcoded dimensions).
func MustNew(provider gpucontext.DeviceProvider, width, height int, flags render.Flags) *Canvas {
	c, err := New(provider, width, height, flags)
	if err != nil {
		panic(err)
	}
	return c
}

// Context returns the frame context, or nil once the canvas is closed.
func (c *Canvas) Context() *gpuframe.Context {
	if c.closed {
		return nil
	}
	return c.ctx
}

// Renderer returns the renderer, or nil once the canvas is closed.
func (c *Canvas) Renderer() *render.Renderer {
	if c.closed {
		return nil
	}
	return c.renderer
}

// Device returns the adopted device.
func (c *Canvas) Device() *wgpu.Device { return c.dev }

// Size returns width and height.
func (c *Canvas) Size() (width, height int) {
	return c.width, c.height
}

// Draw records one frame: fn queues draw calls which are flushed and
// submitted when it returns. An error from fn cancels its calls; the frame
// still ends so the canvas stays usable.
func (c *Canvas) Draw(fn func(r *render.Renderer) error) error {
	if c.closed {
		return ErrCanvasClosed
	}
	if err := c.ctx.Start(); err != nil {
		return fmt.Errorf("hostcanvas: start frame: %w", err)
	}
	c.renderer.SetViewport(float32(c.width), float32(c.height), 1)
	drawErr := fn(c.renderer)
	if drawErr != nil {
		c.renderer.RenderCancel()
	} else {
		drawErr = c.renderer.RenderFlush()
	}
	if err := c.ctx.End(); err != nil {
		return errors.Join(drawErr, fmt.Errorf("hostcanvas: end frame: %w", err))
	}
	return drawErr
}

// Resize changes the canvas dimensions.
//
// Returns error if dimensions are invalid or canvas is closed.
func (c *Canvas) Resize(width, height int) error {
	if c.closed {
		return ErrCanvasClosed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	if c.width == width && c.height == height {
		return nil
	}
	if err := c.ctx.Resize(width, height); err != nil {
		return fmt.Errorf("hostcanvas: resize: %w", err)
	}
	c.width, c.height = width, height
	return nil
}

// Close releases the renderer, the Context and everything the canvas made
// on the device. The device itself stays with the host.
// Close is idempotent.
func (c *Canvas) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	rerr := c.renderer.Close()
	cerr := c.ctx.Close()
	c.dev.Close()
	return errors.Join(rerr, cerr)
}
