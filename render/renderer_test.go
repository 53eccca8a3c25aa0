// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"encoding/binary"
	"errors"
	"image/color"
	"math"
	"testing"

	"github.com/gogpu/gpuframe"
	"github.com/gogpu/gpuframe/backend/software"
	"github.com/gogpu/gpuframe/gpucore"
)

func newRenderer(t *testing.T, flags Flags) (*Renderer, *gpuframe.Context, *software.Device) {
	t.Helper()
	ctx, err := gpuframe.New(nil, gpuframe.WithDriver(software.New()), gpuframe.WithSize(64, 64))
	if err != nil {
		t.Fatalf("gpuframe.New() error = %v", err)
	}
	r, err := New(ctx, flags)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() {
		r.Close()
		ctx.Close()
	})
	return r, ctx, ctx.Device().(*software.Device)
}

// frame runs fn between Start and End and flushes the renderer.
func frame(t *testing.T, ctx *gpuframe.Context, r *Renderer, fn func()) {
	t.Helper()
	if err := ctx.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	fn()
	if err := r.RenderFlush(); err != nil {
		t.Fatalf("RenderFlush() error = %v", err)
	}
	if err := ctx.End(); err != nil {
		t.Fatalf("End() error = %v", err)
	}
}

func noViolations(t *testing.T, dev *software.Device) {
	t.Helper()
	if v := dev.Violations(); len(v) != 0 {
		t.Errorf("device violations:\n%q", v)
	}
}

// pipelineKinds returns the pipelines set by the executed commands.
func pipelineKinds(dev *software.Device) []gpucore.PipelineKind {
	var kinds []gpucore.PipelineKind
	for _, c := range dev.Executed() {
		if c.Op == software.OpPipeline && c.Pipeline != nil {
			kinds = append(kinds, c.Pipeline.Desc().Kind)
		}
	}
	return kinds
}

func draws(dev *software.Device) []uint32 {
	var counts []uint32
	for _, c := range dev.Executed() {
		if c.Op == software.OpDraw {
			counts = append(counts, c.Count)
		}
	}
	return counts
}

func equalKinds(a, b []gpucore.PipelineKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func square(x, y, s float32) Path {
	return Path{
		Fill: []Vertex{
			{X: x, Y: y}, {X: x + s, Y: y}, {X: x + s, Y: y + s}, {X: x, Y: y + s},
		},
		Stroke: []Vertex{
			{X: x, Y: y, U: 0}, {X: x, Y: y, U: 1},
			{X: x + s, Y: y, U: 0}, {X: x + s, Y: y, U: 1},
			{X: x + s, Y: y + s, U: 0}, {X: x + s, Y: y + s, U: 1},
		},
		Convex: true,
	}
}

func TestNewRequiresRunningContext(t *testing.T) {
	ctx, err := gpuframe.New(nil, gpuframe.WithDriver(software.New()))
	if err != nil {
		t.Fatal(err)
	}
	ctx.Close()
	if _, err := New(ctx, 0); !errors.Is(err, gpuframe.ErrNotRunning) {
		t.Errorf("New() on a closed context error = %v, want ErrNotRunning", err)
	}
}

func TestNewPipelineFailure(t *testing.T) {
	ctx, err := gpuframe.New(nil, gpuframe.WithDriver(software.New()))
	if err != nil {
		t.Fatal(err)
	}
	defer ctx.Close()
	ctx.Device().(*software.Device).FailNext(software.ObjectPipeline, 1)
	if _, err := New(ctx, AntiAlias); err == nil {
		t.Error("New() with a failing pipeline succeeded")
	}
}

func TestExpandFanAndStrip(t *testing.T) {
	poly := []Vertex{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: -1, Y: 0.5}}
	area := func(v []Vertex) float32 {
		return (v[1].X-v[0].X)*(v[2].Y-v[0].Y) - (v[2].X-v[0].X)*(v[1].Y-v[0].Y)
	}

	fan := appendFan(nil, poly)
	if len(fan) != 9 {
		t.Fatalf("fan of 5 expanded to %d vertices, want 9", len(fan))
	}
	if fan[3] != poly[0] || fan[4] != poly[2] || fan[5] != poly[3] {
		t.Errorf("second fan triangle = %v", fan[3:6])
	}

	zigzag := []Vertex{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 0}}
	strip := appendStrip(nil, zigzag)
	if len(strip) != 9 {
		t.Fatalf("strip of 5 expanded to %d vertices, want 9", len(strip))
	}
	if strip[3] != zigzag[2] || strip[4] != zigzag[1] || strip[5] != zigzag[3] {
		t.Errorf("second strip triangle = %v", strip[3:6])
	}
	sign := area(strip[0:3]) > 0
	for i := 3; i < len(strip); i += 3 {
		if a := area(strip[i : i+3]); a == 0 || (a > 0) != sign {
			t.Errorf("strip triangle %d flips winding", i/3)
		}
	}

	if got := appendFan(nil, poly[:2]); len(got) != 0 {
		t.Errorf("degenerate fan produced %d vertices", len(got))
	}
}

func TestStencilFill(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		want  []gpucore.PipelineKind
		draws []uint32
	}{
		{
			"antialiased", AntiAlias,
			[]gpucore.PipelineKind{gpucore.PipelineFillStencil, gpucore.PipelineFillAA, gpucore.PipelineFillCover},
			[]uint32{6, 6, 12, 12, 6},
		},
		{
			"aliased", 0,
			[]gpucore.PipelineKind{gpucore.PipelineFillStencil, gpucore.PipelineFillCover},
			[]uint32{6, 6, 6},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ctx, dev := newRenderer(t, tt.flags)
			paint := ColorPaint(RGB(1, 0, 0))
			scissor := NoScissor()
			frame(t, ctx, r, func() {
				paths := []Path{square(0, 0, 10), square(20, 20, 10)}
				if err := r.SubmitFill(&paint, &scissor, 1, [4]float32{0, 0, 30, 30}, paths); err != nil {
					t.Fatal(err)
				}
			})
			if got := pipelineKinds(dev); !equalKinds(got, tt.want) {
				t.Errorf("pipelines = %v, want %v", got, tt.want)
			}
			got := draws(dev)
			if len(got) != len(tt.draws) {
				t.Fatalf("draws = %v, want %v", got, tt.draws)
			}
			for i := range got {
				if got[i] != tt.draws[i] {
					t.Errorf("draws = %v, want %v", got, tt.draws)
					break
				}
			}
			noViolations(t, dev)
		})
	}
}

func TestConvexFill(t *testing.T) {
	r, ctx, dev := newRenderer(t, AntiAlias)
	paint := ColorPaint(RGB(0, 1, 0))
	scissor := NoScissor()
	frame(t, ctx, r, func() {
		r.SubmitFill(&paint, &scissor, 1, [4]float32{0, 0, 10, 10}, []Path{square(0, 0, 10)})
	})
	want := []gpucore.PipelineKind{gpucore.PipelineDraw}
	if got := pipelineKinds(dev); !equalKinds(got, want) {
		t.Errorf("pipelines = %v, want %v", got, want)
	}
	if got := draws(dev); len(got) != 2 || got[0] != 6 || got[1] != 12 {
		t.Errorf("draws = %v, want [6 12]", got)
	}
	if st := r.Stats(); st.Calls != 1 || st.Flushes != 1 || st.Vertices != 18 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestStroke(t *testing.T) {
	tests := []struct {
		name  string
		flags Flags
		want  []gpucore.PipelineKind
	}{
		{"stencil", AntiAlias | StencilStrokes, []gpucore.PipelineKind{
			gpucore.PipelineStrokeStencil, gpucore.PipelineStrokeAA, gpucore.PipelineStrokeClear,
		}},
		{"direct", AntiAlias, []gpucore.PipelineKind{gpucore.PipelineDraw}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ctx, dev := newRenderer(t, tt.flags)
			paint := ColorPaint(RGB(0, 0, 1))
			scissor := NoScissor()
			frame(t, ctx, r, func() {
				r.SubmitStroke(&paint, &scissor, 1, 2, []Path{square(0, 0, 10)})
			})
			if got := pipelineKinds(dev); !equalKinds(got, tt.want) {
				t.Errorf("pipelines = %v, want %v", got, tt.want)
			}
			if got := draws(dev); len(got) != len(tt.want) {
				t.Errorf("draws = %v, want one per pass", got)
			}
		})
	}
}

func TestStencilStrokeUniforms(t *testing.T) {
	r, _, _ := newRenderer(t, StencilStrokes)
	paint := ColorPaint(RGB(1, 1, 1))
	scissor := NoScissor()
	r.SubmitStroke(&paint, &scissor, 1, 3, []Path{square(0, 0, 4)})

	thr := func(block int) float32 {
		b := r.block(r.calls[0].uniform, block)
		return math.Float32frombits(binary.LittleEndian.Uint32(b[164:]))
	}
	if thr(0) != -1 || !near(thr(1), 1-0.5/255) {
		t.Errorf("stroke thresholds = %v, %v", thr(0), thr(1))
	}
	if r.stride != 256 {
		t.Errorf("uniform stride = %d, want 256", r.stride)
	}
	r.RenderCancel()
}

func TestPipelineSwitchesAreMinimal(t *testing.T) {
	r, ctx, dev := newRenderer(t, AntiAlias)
	paint := ColorPaint(RGB(1, 0, 1))
	scissor := NoScissor()
	tri := []Vertex{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	frame(t, ctx, r, func() {
		for i := 0; i < 3; i++ {
			r.SubmitTriangles(&paint, &scissor, tri)
		}
		r.SubmitFill(&paint, &scissor, 1, [4]float32{0, 0, 10, 10}, []Path{square(0, 0, 10)})
	})
	if got := pipelineKinds(dev); len(got) != 1 {
		t.Errorf("pipelines = %v, want one switch for draw-only calls", got)
	}
	st := r.Stats()
	if st.PipelineSwitches != 1 || st.Draws != 5 {
		t.Errorf("Stats() = %+v", st)
	}
	if st.BindingChanges != 4 {
		t.Errorf("BindingChanges = %d, want one per call", st.BindingChanges)
	}
}

func TestRenderFlushOutsideFrame(t *testing.T) {
	r, _, _ := newRenderer(t, AntiAlias)
	paint := ColorPaint(RGB(1, 0, 0))
	scissor := NoScissor()
	r.SubmitFill(&paint, &scissor, 1, [4]float32{0, 0, 10, 10}, []Path{square(0, 0, 10)})
	if err := r.RenderFlush(); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("RenderFlush() error = %v, want ErrNoFrame", err)
	}
	if r.Pending() != 0 || r.Stats().Cancelled != 1 {
		t.Errorf("Pending()=%d Cancelled=%d", r.Pending(), r.Stats().Cancelled)
	}
}

func TestRenderCancel(t *testing.T) {
	r, ctx, dev := newRenderer(t, AntiAlias)
	paint := ColorPaint(RGB(1, 0, 0))
	scissor := NoScissor()
	frame(t, ctx, r, func() {
		r.SubmitFill(&paint, &scissor, 1, [4]float32{0, 0, 10, 10}, []Path{square(0, 0, 10)})
		r.RenderCancel()
	})
	if got := draws(dev); len(got) != 0 {
		t.Errorf("cancelled calls drew %v", got)
	}
}

func TestEmptySubmissionsAreIgnored(t *testing.T) {
	r, _, _ := newRenderer(t, AntiAlias)
	paint := ColorPaint(RGB(1, 0, 0))
	scissor := NoScissor()
	r.SubmitFill(&paint, &scissor, 1, [4]float32{}, nil)
	r.SubmitStroke(&paint, &scissor, 1, 1, nil)
	r.SubmitTriangles(&paint, &scissor, []Vertex{{}, {}})
	if r.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", r.Pending())
	}
}

func TestUnknownTexturePaint(t *testing.T) {
	r, _, _ := newRenderer(t, AntiAlias)
	paint := ImagePattern(0, 0, 10, 10, 0, 42, 1)
	scissor := NoScissor()
	err := r.SubmitFill(&paint, &scissor, 1, [4]float32{0, 0, 10, 10}, []Path{square(0, 0, 10)})
	if !errors.Is(err, ErrInvalidTexture) {
		t.Errorf("SubmitFill() error = %v, want ErrInvalidTexture", err)
	}
	if r.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", r.Pending())
	}
}

func TestViewSizeIsWrittenAtFlush(t *testing.T) {
	r, ctx, dev := newRenderer(t, 0)
	paint := ColorPaint(RGB(1, 0, 0))
	scissor := NoScissor()
	frame(t, ctx, r, func() {
		r.SubmitTriangles(&paint, &scissor, []Vertex{{}, {X: 1}, {Y: 1}})
		r.SetViewport(320, 200, 2)
	})

	var b gpucore.Bindings
	for _, c := range dev.Executed() {
		if c.Op == software.OpBindings {
			b = c.Bindings
		}
	}
	mem := b.Uniform.(*software.Resource).Bytes()[b.UniformOffset:]
	w := math.Float32frombits(binary.LittleEndian.Uint32(mem[viewSizeOffset:]))
	h := math.Float32frombits(binary.LittleEndian.Uint32(mem[viewSizeOffset+4:]))
	if w != 320 || h != 200 {
		t.Errorf("viewSize = %vx%v, want 320x200", w, h)
	}
	if _, _, ratio := r.Viewport(); ratio != 2 {
		t.Errorf("ratio = %v", ratio)
	}
}

func TestConvertPaint(t *testing.T) {
	r, _, _ := newRenderer(t, AntiAlias)
	alpha := r.CreateTexture(TextureAlpha, 4, 4, 0, nil)
	straight := r.CreateTexture(TextureRGBA, 4, 4, 0, nil)
	premul := r.CreateTexture(TextureRGBA, 4, 4, ImagePremultiplied|ImageFlipY, nil)

	tests := []struct {
		name    string
		paint   Paint
		kind    float32
		texType float32
	}{
		{"color", ColorPaint(RGBA(1, 0.5, 0, 0.5)), shaderGradient, 0},
		{"alpha image", ImagePattern(0, 0, 4, 4, 0, alpha, 1), shaderImage, texAlpha},
		{"straight image", ImagePattern(0, 0, 4, 4, 0, straight, 1), shaderImage, texStraight},
		{"premultiplied image", ImagePattern(0, 0, 4, 4, 0, premul, 1), shaderImage, texPremultiplied},
	}
	scissor := RectScissor(0, 0, 20, 10)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var u fragUniforms
			if !r.convertPaint(&u, &tt.paint, &scissor, 2, 1, -1) {
				t.Fatal("convertPaint() = false")
			}
			if u.kind != tt.kind || u.texType != tt.texType {
				t.Errorf("kind=%v texType=%v, want %v %v", u.kind, u.texType, tt.kind, tt.texType)
			}
			if u.strokeMult != 1.5 {
				t.Errorf("strokeMult = %v, want 1.5", u.strokeMult)
			}
			if u.scissorExt != [2]float32{10, 5} || u.scissorScale != [2]float32{1, 1} {
				t.Errorf("scissor ext=%v scale=%v", u.scissorExt, u.scissorScale)
			}
		})
	}

	var u fragUniforms
	color := ColorPaint(RGBA(1, 0.5, 0, 0.5))
	none := NoScissor()
	r.convertPaint(&u, &color, &none, 1, 1, -1)
	if u.innerCol != (Color{R: 0.5, G: 0.25, B: 0, A: 0.5}) {
		t.Errorf("innerCol = %+v, want premultiplied", u.innerCol)
	}
	if u.scissorExt != [2]float32{1, 1} || u.scissorMat != [12]float32{} {
		t.Errorf("disabled scissor = %v %v", u.scissorExt, u.scissorMat)
	}

	// The flipped paint maps the top edge of the image to its bottom.
	flipped := ImagePattern(0, 0, 4, 4, 0, premul, 1)
	r.convertPaint(&u, &flipped, &none, 1, 1, -1)
	m := Xform{A: u.paintMat[0], D: u.paintMat[1], B: u.paintMat[4], E: u.paintMat[5], C: u.paintMat[8], F: u.paintMat[9]}
	if _, y := m.Apply(0, 0); !near(y, 4) {
		t.Errorf("flipped paint maps y=0 to %v, want 4", y)
	}
}

func TestUniformEncoding(t *testing.T) {
	u := fragUniforms{
		innerCol:   Color{R: 1, G: 2, B: 3, A: 4},
		strokeThr:  0.25,
		kind:       shaderTriangles,
		viewSize:   [2]float32{7, 8},
		scissorExt: [2]float32{5, 6},
	}
	buf := make([]byte, uniformSize)
	u.encode(buf)
	at := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	checks := []struct {
		off  int
		want float32
	}{
		{96, 1}, {108, 4}, {128, 5}, {132, 6}, {164, 0.25}, {172, shaderTriangles}, {176, 7}, {180, 8},
	}
	for _, c := range checks {
		if got := at(c.off); got != c.want {
			t.Errorf("offset %d = %v, want %v", c.off, got, c.want)
		}
	}
}

func TestFromColor(t *testing.T) {
	c := FromColor(color.NRGBA{R: 255, G: 0, B: 51, A: 255})
	if c != (Color{R: 1, G: 0, B: 0.2, A: 1}) {
		t.Errorf("FromColor() = %+v", c)
	}
}
