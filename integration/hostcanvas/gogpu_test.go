//go:build gogpu

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package hostcanvas

import (
	"testing"

	"github.com/gogpu/gogpu"

	"github.com/gogpu/gpuframe/render"
)

// TestCanvasInGogpuWindow runs frames on the device of a live gogpu window.
// It needs a display and a Vulkan driver: go test -tags gogpu.
func TestCanvasInGogpuWindow(t *testing.T) {
	app := gogpu.NewApp(gogpu.DefaultConfig().
		WithTitle("hostcanvas").
		WithSize(200, 200))

	var canvas *Canvas
	frames := 0
	app.OnDraw(func(dc *gogpu.Context) {
		if frames >= 3 {
			app.Quit()
			return
		}
		if canvas == nil {
			provider := app.GPUContextProvider()
			if provider == nil {
				return
			}
			var err error
			canvas, err = New(provider, dc.Width(), dc.Height(), render.AntiAlias)
			if err != nil {
				t.Errorf("New() error = %v", err)
				app.Quit()
				return
			}
		}
		err := canvas.Draw(func(r *render.Renderer) error {
			p := render.ColorPaint(render.RGB(1, 0.2, 0.2))
			s := render.NoScissor()
			return r.SubmitTriangles(&p, &s, []render.Vertex{
				{X: 10, Y: 10, U: 0.5, V: 1},
				{X: 190, Y: 10, U: 0.5, V: 1},
				{X: 100, Y: 190, U: 0.5, V: 1},
			})
		})
		if err != nil {
			t.Errorf("frame %d: Draw() error = %v", frames, err)
			app.Quit()
			return
		}
		frames++
	})

	if err := app.Run(); err != nil {
		t.Fatalf("App.Run: %v", err)
	}
	if canvas != nil {
		if err := canvas.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	}
	if frames < 3 {
		t.Fatalf("frames = %d, want 3", frames)
	}
}
