package software

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuframe/gpucore"
)

// Window is a sizable stand-in for an OS window.
type Window struct {
	mu   sync.Mutex
	w, h int
}

// NewWindow returns a window of the given size.
func NewWindow(w, h int) *Window { return &Window{w: w, h: h} }

// Size returns the client size.
func (w *Window) Size() (int, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w, w.h
}

// SetSize changes the client size.
func (w *Window) SetSize(width, height int) {
	w.mu.Lock()
	w.w, w.h = width, height
	w.mu.Unlock()
}

// Swapchain is a flip-model swapchain over host buffers.
type Swapchain struct {
	dev      *Device
	desc     gpucore.SwapchainDesc
	buffers  []*Resource
	current  int
	released bool
	last     []byte
	lastW    uint32
	lastH    uint32
}

func (s *Swapchain) allocate(w, h uint32) error {
	n := int(s.desc.BufferCount)
	if n == 0 {
		n = 2
	}
	s.buffers = make([]*Resource, 0, n)
	for i := 0; i < n; i++ {
		r, err := newResource(s.dev, gpucore.ResourceDesc{
			Label:        fmt.Sprintf("backbuffer%d", i),
			Dimension:    gpucore.DimensionTexture2D,
			Width:        w,
			Height:       h,
			Format:       s.desc.Format,
			MipLevels:    1,
			ArraySize:    1,
			Flags:        gpucore.AllowRenderTarget,
			InitialState: gpucore.StatePresent,
		})
		if err != nil {
			return fmt.Errorf("software: back buffer %d: %w: %w", i, gpucore.ErrSwapchain, err)
		}
		s.buffers = append(s.buffers, r)
	}
	s.desc.Width, s.desc.Height = w, h
	s.current = 0
	return nil
}

// BufferCount returns the number of back buffers.
func (s *Swapchain) BufferCount() int { return len(s.buffers) }

// CurrentIndex returns the buffer the next present shows.
func (s *Swapchain) CurrentIndex() int { return s.current }

// BackBuffer returns buffer i.
func (s *Swapchain) BackBuffer(i int) gpucore.Resource {
	if i < 0 || i >= len(s.buffers) {
		return nil
	}
	return s.buffers[i]
}

// Present shows the current back buffer and flips.
func (s *Swapchain) Present(int) error {
	if s.released {
		return fmt.Errorf("software: present on released swapchain: %w", gpucore.ErrSwapchain)
	}
	if err := s.dev.presentFailure(); err != nil {
		return err
	}
	if s.desc.Legacy {
		return fmt.Errorf("software: flip present on a legacy presenter: %w", gpucore.ErrUnsupported)
	}
	bb := s.buffers[s.current]
	if bb.state != gpucore.StatePresent {
		s.dev.violate("present of back buffer %d in %s", s.current, bb.state)
	}
	s.capture(bb)
	s.current = (s.current + 1) % len(s.buffers)
	s.dev.count(func(st *Stats) { st.Presents++ })
	return nil
}

// PresentLegacy shows src through the downlevel path.
func (s *Swapchain) PresentLegacy(src gpucore.Resource, _ int) error {
	if s.released {
		return fmt.Errorf("software: present on released swapchain: %w", gpucore.ErrSwapchain)
	}
	if err := s.dev.presentFailure(); err != nil {
		return err
	}
	if !s.desc.Legacy {
		return fmt.Errorf("software: legacy present on a flip swapchain: %w", gpucore.ErrUnsupported)
	}
	r := asResource(src)
	if r == nil || r.released {
		return fmt.Errorf("software: legacy present of a missing resource: %w", gpucore.ErrSwapchain)
	}
	s.dev.expectState(r, gpucore.StateCopySource, "legacy present")
	s.capture(r)
	s.dev.count(func(st *Stats) { st.LegacyPresents++ })
	return nil
}

func (s *Swapchain) capture(r *Resource) {
	s.last = append(s.last[:0], r.Pixels(0)...)
	s.lastW, s.lastH = r.desc.Width, r.desc.Height
}

// LastPresented returns the pixels and size of the last presented image.
func (s *Swapchain) LastPresented() ([]byte, uint32, uint32) {
	return s.last, s.lastW, s.lastH
}

// Format returns the back buffer format.
func (s *Swapchain) Format() gputypes.TextureFormat { return s.desc.Format }

// ResizeBuffers recreates the back buffers at the new size.
func (s *Swapchain) ResizeBuffers(w, h uint32) error {
	if s.dev.shouldFail(ObjectResize) {
		return fmt.Errorf("software: resize buffers: %w", gpucore.ErrSwapchain)
	}
	s.dev.count(func(st *Stats) { st.Resizes++ })
	if s.desc.Legacy {
		s.desc.Width, s.desc.Height = w, h
		return nil
	}
	for _, b := range s.buffers {
		b.released = true
	}
	return s.allocate(w, h)
}

// Release destroys the swapchain. A second release is a violation.
func (s *Swapchain) Release() {
	if s.released {
		s.dev.violate("double release of swapchain")
		return
	}
	s.released = true
	for _, b := range s.buffers {
		b.released = true
	}
	s.buffers = nil
	s.dev.count(func(st *Stats) { st.SwapchainsReleased++ })
}

// Released reports whether the swapchain was released.
func (s *Swapchain) Released() bool { return s.released }
