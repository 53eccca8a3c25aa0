package gpuframe

import (
	"fmt"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/present"
)

// Start begins a frame: it acquires a command list, sets the viewport and
// scissor to the full frame, binds and clears the frame render target and
// depth buffer, and installs the root signature and shader-visible heaps.
//
// Start returns ErrNotRunning without doing anything when the Context
// cannot render, including while the window is minimized.
func (c *Context) Start() error {
	switch {
	case c.closed:
		return ErrClosed
	case !c.running:
		return ErrNotRunning
	case c.list != nil:
		return ErrInFrame
	}
	if c.window != nil {
		if w, h := c.window.Size(); w <= 0 || h <= 0 {
			return ErrNotRunning
		}
	}

	l := c.pool.Acquire()
	c.list = l
	cl := l.Commands
	c.resources.SetCommandList(cl)

	cl.SetViewport(gpucore.Viewport{
		Width:    float32(c.width),
		Height:   float32(c.height),
		MaxDepth: 1,
	})
	cl.SetScissor(gpucore.Rect{Width: int32(c.width), Height: int32(c.height)})
	c.target.BindAsRenderTargetAndDepth(c.depth)
	cl.ClearRenderTarget(c.target.RTV(), c.cfg.clearColor)
	cl.ClearDepthStencil(c.depth.DSV(), 1, 0)
	cl.SetRootSignature(c.root)
	cl.SetDescriptorHeaps(c.srvHeap.Heap(), c.samplerHeap.Heap())

	c.log.Debug("gpuframe: frame start", "frame", c.resources.Frame(), "list", l.ID())
	return nil
}

// End finishes the frame: it copies the frame target into the current back
// buffer, swaps the upload ring, waits for the previous frame, releases
// what earlier frames dropped, submits, and advances the presentation
// state machine.
//
// Presentation failures are not returned; they are handled by tearing the
// swapchain down and setting it up again on later frames.
func (c *Context) End() error {
	if c.closed {
		return ErrClosed
	}
	if c.list == nil {
		return ErrNotRunning
	}
	cl := c.list.Commands

	if c.machine != nil && c.swapchain != nil {
		switch c.machine.State() {
		case present.Present:
			c.copyToBackBuffer(cl)
		case present.PresentLegacy:
			// The legacy present reads the frame target once the list has run.
			c.target.TransitionTo(gpucore.StateCopySource)
		}
	}

	c.resources.Ring().Swap()
	c.pool.WaitForCompletion()
	collected := c.resources.Collect()
	reclaimed := c.resources.ReclaimDescriptors(c.cfg.reclaimBudget)

	c.pool.Submit(c.list)
	c.list = nil
	c.resources.SetCommandList(nil)

	c.advancePresent()
	c.log.Debug("gpuframe: frame end",
		"frame", c.resources.Frame(),
		"collected", collected,
		"reclaimed", reclaimed,
		"state", c.PresentState().String())

	c.resources.AdvanceFrame()
	c.counters.frames++
	return nil
}

// advancePresent steps the presentation state machine, or applies a
// pending resize of a headless Context.
func (c *Context) advancePresent() {
	if c.machine == nil {
		if c.headlessResize {
			c.applyHeadlessResize()
		}
		return
	}
	if w, h := c.window.Size(); (w != c.windowW || h != c.windowH) && w > 0 && h > 0 {
		c.windowW, c.windowH = w, h
		c.machine.RequestResize(w, h)
	}
	c.machine.Step()
}

func (c *Context) applyHeadlessResize() {
	c.headlessResize = false
	if err := c.rebuildTargets(c.pendingW, c.pendingH); err != nil {
		c.log.Warn("gpuframe: resize failed", "size", sizeAttr(c.pendingW, c.pendingH), "err", err)
		return
	}
	c.counters.resizes++
}

// Resize asks for new frame target and swapchain sizes. With a window the
// resize is carried out by the presentation state machine after the next
// present. A headless Context resizes at the end of the current frame, or
// outside a frame at once after waiting for the device.
func (c *Context) Resize(width, height int) error {
	if c.closed {
		return ErrClosed
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("gpuframe: invalid frame size %dx%d", width, height)
	}
	if c.machine != nil {
		c.machine.RequestResize(width, height)
		return nil
	}
	c.headlessResize = true
	c.pendingW, c.pendingH = width, height
	if c.list == nil {
		c.settle()
		c.applyHeadlessResize()
	}
	return nil
}

// Immediate records fn into a command list of its own, submits it, and
// waits for it to complete. Resource operations inside fn (texture
// uploads, transitions) are recorded into that list.
//
// Immediate cannot be used between Start and End, since the cached resource
// states would then disagree with the execution order of the two lists;
// record into CommandList instead.
func (c *Context) Immediate(fn func(cl gpucore.CommandList)) error {
	switch {
	case c.closed:
		return ErrClosed
	case c.list != nil:
		return ErrInFrame
	}
	l := c.pool.Acquire()
	c.resources.SetCommandList(l.Commands)
	fn(l.Commands)
	c.resources.SetCommandList(nil)

	c.resources.Ring().Flush()
	c.pool.Submit(l)
	c.settle()
	c.counters.immediates++
	return nil
}

// WaitIdle blocks until every submitted command list has executed, then
// releases the objects and descriptor slots dropped before the call.
func (c *Context) WaitIdle() error {
	switch {
	case c.closed:
		return ErrClosed
	case c.list != nil:
		return ErrInFrame
	}
	c.settle()
	return nil
}

// settle waits for the device outside a frame and releases everything
// dropped so far. Nothing recorded can still reference those objects, so
// their descriptor slots are reclaimed too.
func (c *Context) settle() {
	c.pool.WaitForCompletion()
	c.resources.Ring().Retire()
	c.resources.AdvanceFrame()
	collected := c.resources.Collect()
	reclaimed := c.resources.ReclaimDescriptors(c.cfg.reclaimBudget)
	if collected > 0 || reclaimed > 0 {
		c.log.Debug("gpuframe: settled", "frame", c.resources.Frame(), "collected", collected, "reclaimed", reclaimed)
	}
}
