package software

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/gpuframe/gpucore"
)

// Resource is a buffer or texture in host memory.
type Resource struct {
	dev        *Device
	desc       gpucore.ResourceDesc
	mem        []byte
	mipOffsets []uint64
	layerSize  uint64
	state      gpucore.ResourceState
	released   bool
	flushed    uint64
}

func newResource(d *Device, desc gpucore.ResourceDesc) (*Resource, error) {
	r := &Resource{dev: d, desc: desc, state: desc.InitialState}
	switch desc.Dimension {
	case gpucore.DimensionBuffer:
		if desc.Size == 0 {
			return nil, fmt.Errorf("software: buffer %q has zero size", desc.Label)
		}
		r.mem = make([]byte, desc.Size)
	case gpucore.DimensionTexture2D:
		bpp := gpucore.BytesPerPixel(desc.Format)
		if bpp == 0 {
			return nil, fmt.Errorf("software: texture %q format %v: %w", desc.Label, desc.Format, gpucore.ErrUnsupported)
		}
		if desc.Width == 0 || desc.Height == 0 {
			return nil, fmt.Errorf("software: texture %q has zero extent", desc.Label)
		}
		if desc.Width > d.caps.MaxTextureSize || desc.Height > d.caps.MaxTextureSize {
			return nil, fmt.Errorf("software: texture %q %dx%d exceeds %d: %w",
				desc.Label, desc.Width, desc.Height, d.caps.MaxTextureSize, gpucore.ErrOutOfMemory)
		}
		if r.desc.MipLevels == 0 {
			r.desc.MipLevels = 1
		}
		if r.desc.ArraySize == 0 {
			r.desc.ArraySize = 1
		}
		var off uint64
		for m := uint32(0); m < r.desc.MipLevels; m++ {
			w, h := r.MipSize(m)
			r.mipOffsets = append(r.mipOffsets, off)
			off += uint64(w) * uint64(h) * uint64(bpp)
		}
		r.layerSize = off
		r.mem = make([]byte, off*uint64(r.desc.ArraySize))
	default:
		return nil, fmt.Errorf("software: unknown dimension %d", desc.Dimension)
	}
	return r, nil
}

func asResource(res gpucore.Resource) *Resource {
	if res == nil {
		return nil
	}
	r, _ := res.(*Resource)
	return r
}

// Desc returns the creation description.
func (r *Resource) Desc() gpucore.ResourceDesc { return r.desc }

// Map returns the backing memory of upload and readback buffers.
func (r *Resource) Map() ([]byte, error) {
	if r.desc.Heap == gpucore.MemoryDefault {
		return nil, fmt.Errorf("software: map %q: default heap: %w", r.desc.Label, gpucore.ErrUnsupported)
	}
	return r.mem, nil
}

// Flush records the published range. Host memory needs no copy.
func (r *Resource) Flush(offset, size uint64) {
	if end := offset + size; end > r.flushed {
		r.flushed = end
	}
}

// Flushed returns the end of the furthest flushed range.
func (r *Resource) Flushed() uint64 { return r.flushed }

// Release frees the resource. A second release is a violation.
func (r *Resource) Release() {
	if r.released {
		r.dev.violate("double release of %q", r.desc.Label)
		return
	}
	r.released = true
	r.dev.count(func(s *Stats) { s.ResourcesReleased++ })
}

// Released reports whether Release was called.
func (r *Resource) Released() bool { return r.released }

// State returns the state the resource is really in.
func (r *Resource) State() gpucore.ResourceState { return r.state }

// Bytes returns the backing memory.
func (r *Resource) Bytes() []byte { return r.mem }

// MipSize returns the extent of mip level m.
func (r *Resource) MipSize(m uint32) (uint32, uint32) {
	return max(1, r.desc.Width>>m), max(1, r.desc.Height>>m)
}

// Pixels returns the bytes of mip level m of the first array layer.
func (r *Resource) Pixels(m uint32) []byte {
	if r.desc.Dimension != gpucore.DimensionTexture2D || int(m) >= len(r.mipOffsets) {
		return nil
	}
	w, h := r.MipSize(m)
	n := uint64(w) * uint64(h) * uint64(gpucore.BytesPerPixel(r.desc.Format))
	return r.mem[r.mipOffsets[m] : r.mipOffsets[m]+n]
}

func (r *Resource) fill(c gputypes.Color) {
	px := encodeColor(r.desc.Format, c)
	if len(px) == 0 {
		return
	}
	for i := 0; i+len(px) <= len(r.mem); i += len(px) {
		copy(r.mem[i:], px)
	}
}

func encodeColor(f gputypes.TextureFormat, c gputypes.Color) []byte {
	r, g, b, a := unorm8(float64(c.R)), unorm8(float64(c.G)), unorm8(float64(c.B)), unorm8(float64(c.A))
	switch f {
	case gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb:
		return []byte{b, g, r, a}
	case gputypes.TextureFormatRGBA8Unorm, gputypes.TextureFormatRGBA8UnormSrgb:
		return []byte{r, g, b, a}
	case gputypes.TextureFormatR8Unorm:
		return []byte{r}
	default:
		return nil
	}
}

func unorm8(v float64) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return byte(v*255 + 0.5)
	}
}
