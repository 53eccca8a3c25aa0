// Command framedemo drives gpuframe through a number of frames and writes
// the last presented image as PNG.
package main

import (
	"flag"
	"image"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuframe"
	"github.com/gogpu/gpuframe/backend"
	"github.com/gogpu/gpuframe/backend/software"
	_ "github.com/gogpu/gpuframe/backend/wgpu"
	"github.com/gogpu/gpuframe/render"
)

func main() {
	var (
		name    = flag.String("backend", backend.NameSoftware, "backend name")
		frames  = flag.Int("frames", 60, "number of frames")
		width   = flag.Int("width", 320, "window width")
		height  = flag.Int("height", 240, "window height")
		output  = flag.String("out", "frame.png", "output file")
		verbose = flag.Bool("v", false, "log frame events")
	)
	flag.Parse()

	if *verbose {
		gpuframe.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	// Only the software backend has a window stand-in; others run headless.
	var window *software.Window
	opts := []gpuframe.Option{
		gpuframe.WithBackend(*name),
		gpuframe.WithSize(*width, *height),
		gpuframe.WithClearColor(gputypes.Color{R: 0.1, G: 0.15, B: 0.3, A: 1}),
	}
	var ctx *gpuframe.Context
	var err error
	if *name == backend.NameSoftware {
		window = software.NewWindow(*width, *height)
		ctx, err = gpuframe.New(window, opts...)
	} else {
		ctx, err = gpuframe.New(nil, opts...)
	}
	if err != nil {
		log.Fatalf("Failed to open context: %v", err)
	}
	defer ctx.Close()

	r, err := render.New(ctx, render.AntiAlias|render.StencilStrokes)
	if err != nil {
		log.Fatalf("Failed to create renderer: %v", err)
	}
	defer r.Close()

	checker := r.CreateTextureFromImage(checkerboard(16, 4), render.ImageRepeatX|render.ImageRepeatY|render.ImageNearest)
	if checker == 0 {
		log.Fatal("Failed to create texture")
	}

	for i := 0; i < *frames; i++ {
		if err := ctx.Start(); err != nil {
			log.Fatalf("Frame %d: %v", i, err)
		}
		drawScene(r, float32(*width), float32(*height), checker, float64(i)/float64(max(*frames, 1)))
		if err := r.RenderFlush(); err != nil {
			log.Fatalf("Frame %d: flush: %v", i, err)
		}
		if err := ctx.End(); err != nil {
			log.Fatalf("Frame %d: %v", i, err)
		}
	}
	log.Printf("%d frames on %s (%s): %s", *frames, ctx.Backend(), ctx.Adapter().Name, ctx.Stats())

	sc, ok := ctx.Swapchain().(*software.Swapchain)
	if !ok {
		log.Printf("Backend %s has no readback; %s not written", ctx.Backend(), *output)
		return
	}
	if err := savePNG(*output, sc); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}
	log.Printf("Frame saved to %s (%dx%d)", *output, *width, *height)
}

func drawScene(r *render.Renderer, w, h float32, checker int, t float64) {
	r.SetViewport(w, h, 1)
	scissor := render.NoScissor()

	bg := render.LinearGradient(0, 0, 0, h, render.RGB(0.1, 0.2, 0.4), render.RGB(0.5, 0.5, 0.6))
	_ = r.SubmitFill(&bg, &scissor, 1, [4]float32{0, 0, w, h}, []render.Path{rect(0, 0, w, h)})

	pattern := render.ImagePattern(0, 0, 32, 32, 0, checker, 0.8)
	_ = r.SubmitFill(&pattern, &scissor, 1, [4]float32{20, 20, 120, 120}, []render.Path{rect(20, 20, 100, 100)})

	// A square rotating about the center.
	angle := float32(2 * math.Pi * t)
	m := render.Translate(w/2, h/2).Multiply(render.Rotate(angle))
	var quad []render.Vertex
	for _, p := range [][2]float32{{-40, -40}, {40, -40}, {40, 40}, {-40, 40}} {
		x, y := m.Apply(p[0], p[1])
		quad = append(quad, render.Vertex{X: x, Y: y, U: 0.5, V: 1})
	}
	spin := render.ColorPaint(render.RGBA(1, 0.6, 0.1, 0.9))
	_ = r.SubmitFill(&spin, &scissor, 1, [4]float32{w/2 - 57, h/2 - 57, w/2 + 57, h/2 + 57}, []render.Path{{Fill: quad, Convex: true}})

	outline := render.ColorPaint(render.RGB(1, 1, 1))
	clip := render.RectScissor(0, 0, w, h/2)
	_ = r.SubmitStroke(&outline, &clip, 1, 3, []render.Path{{Stroke: outlineStrip(quad, 1.5)}})
}

func rect(x, y, w, h float32) render.Path {
	return render.Path{
		Fill: []render.Vertex{
			{X: x, Y: y, U: 0.5, V: 1},
			{X: x + w, Y: y, U: 0.5, V: 1},
			{X: x + w, Y: y + h, U: 0.5, V: 1},
			{X: x, Y: y + h, U: 0.5, V: 1},
		},
		Convex: true,
	}
}

// outlineStrip builds a closed triangle strip of half-width hw around a
// convex polygon by pushing each corner away from the centroid.
func outlineStrip(poly []render.Vertex, hw float32) []render.Vertex {
	var cx, cy float32
	for _, v := range poly {
		cx += v.X
		cy += v.Y
	}
	cx /= float32(len(poly))
	cy /= float32(len(poly))
	strip := make([]render.Vertex, 0, 2*len(poly)+2)
	for i := 0; i <= len(poly); i++ {
		v := poly[i%len(poly)]
		dx, dy := v.X-cx, v.Y-cy
		l := float32(math.Hypot(float64(dx), float64(dy)))
		if l == 0 {
			l = 1
		}
		dx, dy = dx/l*hw, dy/l*hw
		strip = append(strip,
			render.Vertex{X: v.X + dx, Y: v.Y + dy, U: 0, V: 1},
			render.Vertex{X: v.X - dx, Y: v.Y - dy, U: 1, V: 1},
		)
	}
	return strip
}

func checkerboard(size, cells int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	cell := size / cells
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8(60)
			if (x/cell+y/cell)%2 == 0 {
				v = 230
			}
			i := img.PixOffset(x, y)
			img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = v, v, v, 255
		}
	}
	return img
}

// savePNG writes the last image sc presented. Back buffers are BGRA.
func savePNG(path string, sc *software.Swapchain) error {
	pix, w, h := sc.LastPresented()
	img := image.NewRGBA(image.Rect(0, 0, int(w), int(h)))
	bgra := sc.Format() == gputypes.TextureFormatBGRA8Unorm || sc.Format() == gputypes.TextureFormatBGRA8UnormSrgb
	for i := 0; i+3 < len(pix) && i+3 < len(img.Pix); i += 4 {
		r, g, b, a := pix[i], pix[i+1], pix[i+2], pix[i+3]
		if bgra {
			r, b = b, r
		}
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = r, g, b, a
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
