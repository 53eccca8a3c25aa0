package gpuframe

import (
	"fmt"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/resource"
)

// presenter carries out the actions of the presentation state machine.
type presenter struct{ c *Context }

func (p presenter) CreateSwapchain() error {
	c := p.c
	w, h := c.window.Size()
	c.windowW, c.windowH = w, h
	if w != c.width || h != c.height {
		if err := c.rebuildTargets(w, h); err != nil {
			return err
		}
	}
	legacy := p.LegacyOnly()
	sc, err := c.dev.CreateSwapchain(c.window, &gpucore.SwapchainDesc{
		Width:       uint32(w),
		Height:      uint32(h),
		Format:      c.cfg.format,
		BufferCount: uint32(c.cfg.backBuffers),
		Legacy:      legacy,
	})
	if err != nil {
		return fmt.Errorf("gpuframe: create swapchain: %w", c.noteDeviceLost(err))
	}
	c.swapchain = sc
	c.wrapBackBuffers()
	c.log.Info("gpuframe: swapchain created",
		"size", sizeAttr(w, h),
		"buffers", sc.BufferCount(),
		"legacy", legacy)
	return nil
}

// ReleaseSwapchain waits for the device, since the last submitted frame
// may still copy into a back buffer, then releases the swapchain.
func (p presenter) ReleaseSwapchain() {
	c := p.c
	c.pool.WaitForCompletion()
	c.backBuffers = nil
	if c.swapchain != nil {
		c.swapchain.Release()
		c.swapchain = nil
		c.log.Info("gpuframe: swapchain released")
	}
}

func (p presenter) RebuildTargets(w, h int) error {
	return p.c.rebuildTargets(w, h)
}

func (p presenter) ResizeSwapchain(w, h int) error {
	c := p.c
	if c.swapchain == nil {
		return fmt.Errorf("gpuframe: resize without swapchain: %w", gpucore.ErrSwapchain)
	}
	c.pool.WaitForCompletion()
	c.backBuffers = nil
	if err := c.swapchain.ResizeBuffers(uint32(w), uint32(h)); err != nil {
		return fmt.Errorf("gpuframe: resize swapchain to %s: %w", sizeAttr(w, h), c.noteDeviceLost(err))
	}
	c.wrapBackBuffers()
	c.counters.resizes++
	c.log.Info("gpuframe: swapchain resized", "size", sizeAttr(w, h))
	return nil
}

func (p presenter) Present() error {
	c := p.c
	if c.swapchain == nil {
		return fmt.Errorf("gpuframe: present without swapchain: %w", gpucore.ErrSwapchain)
	}
	if err := c.swapchain.Present(c.cfg.syncInterval()); err != nil {
		return fmt.Errorf("gpuframe: present: %w", c.noteDeviceLost(err))
	}
	return nil
}

func (p presenter) PresentLegacy() error {
	c := p.c
	if c.swapchain == nil {
		return fmt.Errorf("gpuframe: present without swapchain: %w", gpucore.ErrSwapchain)
	}
	if err := c.swapchain.PresentLegacy(c.target.Object(), c.cfg.syncInterval()); err != nil {
		return fmt.Errorf("gpuframe: legacy present: %w", c.noteDeviceLost(err))
	}
	return nil
}

func (p presenter) LegacyOnly() bool {
	return p.c.dev.Caps().DownlevelPresentOnly
}

// wrapBackBuffers adopts the swapchain buffers. They are owned by the
// swapchain and start in the present state.
func (c *Context) wrapBackBuffers() {
	n := c.swapchain.BufferCount()
	c.backBuffers = make([]*resource.Resource, 0, n)
	for i := 0; i < n; i++ {
		c.backBuffers = append(c.backBuffers, c.resources.Wrap(c.swapchain.BackBuffer(i), gpucore.StatePresent))
	}
}

// copyToBackBuffer records the copy of the frame target into the back
// buffer the next present shows, leaving the back buffer ready to present.
func (c *Context) copyToBackBuffer(cl gpucore.CommandList) bool {
	i := c.swapchain.CurrentIndex()
	if i < 0 || i >= len(c.backBuffers) {
		return false
	}
	bb := c.backBuffers[i]
	c.target.TransitionTo(gpucore.StateCopySource)
	bb.TransitionTo(gpucore.StateCopyDest)
	cl.CopyResource(bb.Object(), c.target.Object())
	bb.TransitionTo(gpucore.StatePresent)
	return true
}
