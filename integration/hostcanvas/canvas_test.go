// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hostcanvas

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	_ "github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/gpuframe/backend/wgpu"
	"github.com/gogpu/gpuframe/render"
)

// halDevice stands in for a host device that exposes its HAL objects.
type halDevice struct {
	dev hal.Device
	q   hal.Queue
}

func (h *halDevice) HalDevice() hal.Device { return h.dev }
func (h *halDevice) HalQueue() hal.Queue   { return h.q }

// mockProvider implements gpucontext.DeviceProvider for testing.
type mockProvider struct {
	device gpucontext.Device
	format gputypes.TextureFormat
}

func (m *mockProvider) Device() gpucontext.Device             { return m.device }
func (m *mockProvider) Queue() gpucontext.Queue               { return nil }
func (m *mockProvider) Adapter() gpucontext.Adapter           { return nil }
func (m *mockProvider) SurfaceFormat() gputypes.TextureFormat { return m.format }
func (m *mockProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "mock"}
}

func newMockProvider(t *testing.T) *mockProvider {
	t.Helper()
	b, ok := hal.GetBackend(gputypes.BackendEmpty)
	if !ok {
		t.Fatal("noop HAL backend not registered")
	}
	inst, err := b.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		t.Fatalf("CreateInstance() error = %v", err)
	}
	od, err := inst.EnumerateAdapters(nil)[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return &mockProvider{
		device: &halDevice{dev: od.Device, q: od.Queue},
		format: gputypes.TextureFormatRGBA8Unorm,
	}
}

func newCanvas(t *testing.T, w, h int) *Canvas {
	t.Helper()
	c, err := New(newMockProvider(t), w, h, render.AntiAlias)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		w, h    int
		wantErr error
	}{
		{"valid", 64, 32, nil},
		{"zero width", 0, 32, ErrInvalidDimensions},
		{"negative height", 64, -1, ErrInvalidDimensions},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(newMockProvider(t), tt.w, tt.h, 0)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New() error = %v, want %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer c.Close()
			if c.Context().Format() != gputypes.TextureFormatRGBA8Unorm {
				t.Errorf("Format() = %v, want the surface format", c.Context().Format())
			}
			if w, h := c.Size(); w != tt.w || h != tt.h {
				t.Errorf("Size() = %dx%d", w, h)
			}
		})
	}
}

func TestNewProviderErrors(t *testing.T) {
	if _, err := New(nil, 8, 8, 0); !errors.Is(err, ErrNilProvider) {
		t.Errorf("New(nil) error = %v, want ErrNilProvider", err)
	}
	opaque := &mockProvider{device: struct{}{}}
	if _, err := New(opaque, 8, 8, 0); !errors.Is(err, wgpu.ErrNoHALAccess) {
		t.Errorf("New(opaque) error = %v, want ErrNoHALAccess", err)
	}
}

func TestMustNewPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustNew() did not panic")
		}
	}()
	MustNew(nil, 8, 8, 0)
}

func TestDraw(t *testing.T) {
	c := newCanvas(t, 64, 64)
	scissor := render.NoScissor()
	path := render.Path{
		Fill: []render.Vertex{
			{X: 8, Y: 8, U: 0.5, V: 1}, {X: 40, Y: 8, U: 0.5, V: 1},
			{X: 40, Y: 40, U: 0.5, V: 1}, {X: 8, Y: 40, U: 0.5, V: 1},
		},
		Convex: true,
	}
	for i := range 3 {
		err := c.Draw(func(r *render.Renderer) error {
			p := render.ColorPaint(render.RGB(1, 0, 0))
			return r.SubmitFill(&p, &scissor, 1, [4]float32{8, 8, 40, 40}, []render.Path{path})
		})
		if err != nil {
			t.Fatalf("frame %d: Draw() error = %v", i, err)
		}
	}
	if got := c.Context().Stats().Frames; got != 3 {
		t.Errorf("Frames = %d, want 3", got)
	}
	if st := c.Renderer().Stats(); st.Flushes != 3 {
		t.Errorf("Flushes = %d, want 3", st.Flushes)
	}
}

func TestDrawErrorCancels(t *testing.T) {
	c := newCanvas(t, 32, 32)
	boom := errors.New("boom")
	err := c.Draw(func(r *render.Renderer) error {
		p := render.ColorPaint(render.RGB(0, 1, 0))
		s := render.NoScissor()
		_ = r.SubmitTriangles(&p, &s, []render.Vertex{{X: 0, Y: 0}, {X: 8, Y: 0}, {X: 0, Y: 8}})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Draw() error = %v, want boom", err)
	}
	if c.Renderer().Pending() != 0 {
		t.Errorf("Pending() = %d after a failed draw", c.Renderer().Pending())
	}
	if c.Context().InFrame() {
		t.Error("frame left open after a failed draw")
	}
	if err := c.Draw(func(*render.Renderer) error { return nil }); err != nil {
		t.Errorf("Draw() after failure error = %v", err)
	}
}

func TestResize(t *testing.T) {
	c := newCanvas(t, 32, 32)
	if err := c.Resize(0, 10); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Resize(0, 10) error = %v", err)
	}
	if err := c.Resize(48, 24); err != nil {
		t.Fatalf("Resize() error = %v", err)
	}
	if err := c.Draw(func(*render.Renderer) error { return nil }); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if w, h := c.Context().Size(); w != 48 || h != 24 {
		t.Errorf("Context().Size() = %dx%d, want 48x24", w, h)
	}
}

func TestClosed(t *testing.T) {
	c := newCanvas(t, 16, 16)
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if c.Context() != nil || c.Renderer() != nil {
		t.Error("accessors return objects after Close")
	}
	if err := c.Draw(func(*render.Renderer) error { return nil }); !errors.Is(err, ErrCanvasClosed) {
		t.Errorf("Draw() error = %v, want ErrCanvasClosed", err)
	}
	if err := c.Resize(8, 8); !errors.Is(err, ErrCanvasClosed) {
		t.Errorf("Resize() error = %v, want ErrCanvasClosed", err)
	}
}
