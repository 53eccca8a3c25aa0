// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/gpuframe/gpucore"
)

// SurfaceWindow is a window the HAL can create a surface for.
type SurfaceWindow interface {
	gpucore.Window

	// NativeHandles returns the platform display and window handles.
	NativeHandles() (display, window uintptr)
}

// Swapchain presents through a configured HAL surface. Its back buffers
// are proxies for the image acquired in the current frame.
type Swapchain struct {
	dev     *Device
	surface hal.Surface
	config  hal.SurfaceConfiguration
	buffers []*Resource
	current int

	acquired   hal.SurfaceTexture
	views      map[gpucore.HeapKind]hal.TextureView
	acquireErr error
	released   bool
}

func newSwapchain(d *Device, surface hal.Surface, desc *gpucore.SwapchainDesc) (*Swapchain, error) {
	format := desc.Format
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatBGRA8Unorm
	}
	s := &Swapchain{
		dev:     d,
		surface: surface,
		config: hal.SurfaceConfiguration{
			Width:       desc.Width,
			Height:      desc.Height,
			Format:      format,
			Usage:       gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopyDst,
			PresentMode: gputypes.PresentModeFifo,
			AlphaMode:   gputypes.CompositeAlphaModeOpaque,
		},
		views: make(map[gpucore.HeapKind]hal.TextureView),
	}
	if err := surface.Configure(d.hal, &s.config); err != nil {
		surface.Destroy()
		return nil, surfaceError("configure surface", err)
	}
	n := int(desc.BufferCount)
	if n == 0 {
		n = 2
	}
	s.buffers = make([]*Resource, n)
	s.makeBuffers()
	d.log.Debug("wgpu: swapchain configured", "width", desc.Width, "height", desc.Height, "format", format)
	return s, nil
}

func (s *Swapchain) makeBuffers() {
	for i := range s.buffers {
		s.buffers[i] = &Resource{
			dev:   s.dev,
			chain: s,
			desc: gpucore.ResourceDesc{
				Label:        fmt.Sprintf("backbuffer%d", i),
				Dimension:    gpucore.DimensionTexture2D,
				Width:        s.config.Width,
				Height:       s.config.Height,
				Format:       s.config.Format,
				MipLevels:    1,
				ArraySize:    1,
				Flags:        gpucore.AllowRenderTarget,
				InitialState: gpucore.StatePresent,
			},
		}
	}
	s.current = 0
}

// swapchainError marks surface failures as gpucore.ErrSwapchain.
func swapchainError(err error) error {
	if err == nil {
		return gpucore.ErrSwapchain
	}
	return fmt.Errorf("%w: %w", gpucore.ErrSwapchain, err)
}

// surfaceError reports a lost device as such and every other surface
// failure as gpucore.ErrSwapchain.
func surfaceError(op string, err error) error {
	if errors.Is(err, hal.ErrDeviceLost) {
		return deviceError(op, err)
	}
	return fmt.Errorf("wgpu: %s: %w", op, swapchainError(err))
}

// acquire returns this frame's image, acquiring it on first use.
func (s *Swapchain) acquire() hal.Texture {
	if s.acquired != nil {
		return s.acquired
	}
	if s.acquireErr != nil || s.released {
		return nil
	}
	at, err := s.surface.AcquireTexture(nil)
	if err != nil {
		s.acquireErr = err
		s.dev.log.Warn("wgpu: acquire surface texture", "err", err)
		return nil
	}
	if at.Suboptimal {
		s.dev.log.Debug("wgpu: surface is suboptimal")
	}
	s.acquired = at.Texture
	s.buffers[s.current].usage = 0
	return s.acquired
}

// currentView returns a view of the acquired image for an attachment slot.
func (s *Swapchain) currentView(kind gpucore.HeapKind) hal.TextureView {
	if v, ok := s.views[kind]; ok {
		return v
	}
	tex := s.acquire()
	if tex == nil {
		return nil
	}
	v, err := s.dev.createView(kind, s.buffers[s.current], tex)
	if err != nil {
		s.dev.log.Error("wgpu: back buffer view", "err", err)
		return nil
	}
	s.views[kind] = v
	return v
}

func (s *Swapchain) dropFrame(discard bool) {
	for k, v := range s.views {
		s.dev.hal.DestroyTextureView(v)
		delete(s.views, k)
	}
	if discard && s.acquired != nil {
		s.surface.DiscardTexture(s.acquired)
	}
	s.acquired = nil
	s.acquireErr = nil
}

// BufferCount returns the number of back buffers.
func (s *Swapchain) BufferCount() int { return len(s.buffers) }

// CurrentIndex returns the back buffer the next present shows.
func (s *Swapchain) CurrentIndex() int { return s.current }

// BackBuffer returns back buffer i.
func (s *Swapchain) BackBuffer(i int) gpucore.Resource {
	if i < 0 || i >= len(s.buffers) {
		return nil
	}
	return s.buffers[i]
}

// Present shows the acquired image. A sync interval of zero selects the
// immediate mode from the next frame on.
func (s *Swapchain) Present(syncInterval int) error {
	if s.released {
		return fmt.Errorf("wgpu: present on released swapchain: %w", gpucore.ErrSwapchain)
	}
	tex := s.acquire()
	if tex == nil {
		err := s.acquireErr
		s.dropFrame(false)
		return surfaceError("acquire", err)
	}
	err := s.dev.queue.hal.Present(s.surface, s.acquired, nil)
	s.dropFrame(false)
	s.current = (s.current + 1) % len(s.buffers)
	if err != nil {
		return surfaceError("present", err)
	}
	mode := gputypes.PresentModeFifo
	if syncInterval == 0 {
		mode = gputypes.PresentModeImmediate
	}
	if mode != s.config.PresentMode {
		s.config.PresentMode = mode
		if err := s.surface.Configure(s.dev.hal, &s.config); err != nil {
			return surfaceError("present mode", err)
		}
	}
	return nil
}

// PresentLegacy is not available on HAL surfaces.
func (s *Swapchain) PresentLegacy(gpucore.Resource, int) error {
	return fmt.Errorf("wgpu: legacy present: %w", gpucore.ErrUnsupported)
}

// ResizeBuffers reconfigures the surface at the new size.
func (s *Swapchain) ResizeBuffers(width, height uint32) error {
	if s.released {
		return fmt.Errorf("wgpu: resize of released swapchain: %w", gpucore.ErrSwapchain)
	}
	s.dropFrame(true)
	s.surface.Unconfigure(s.dev.hal)
	s.config.Width, s.config.Height = width, height
	if err := s.surface.Configure(s.dev.hal, &s.config); err != nil {
		return surfaceError("resize", err)
	}
	s.makeBuffers()
	return nil
}

// Release unconfigures and destroys the surface.
func (s *Swapchain) Release() {
	if s.released {
		s.dev.log.Warn("wgpu: double release of swapchain")
		return
	}
	s.dropFrame(true)
	s.released = true
	s.surface.Unconfigure(s.dev.hal)
	s.surface.Destroy()
	s.buffers = nil
}
