// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"image"
	"math/bits"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"

	"github.com/gogpu/gpuframe/gpucore"
	"github.com/gogpu/gpuframe/internal/resource"
)

// TextureType is the texel layout of a texture.
type TextureType uint8

// Texture types.
const (
	// TextureAlpha has one 8-bit coverage channel.
	TextureAlpha TextureType = iota + 1

	// TextureRGBA has four 8-bit channels.
	TextureRGBA
)

func (t TextureType) format() gputypes.TextureFormat {
	if t == TextureAlpha {
		return gputypes.TextureFormatR8Unorm
	}
	return gputypes.TextureFormatRGBA8Unorm
}

func (t TextureType) bpp() int {
	if t == TextureAlpha {
		return 1
	}
	return 4
}

// ImageFlags select sampling and interpretation of a texture.
type ImageFlags uint16

// Image flags.
const (
	// ImageGenerateMipmaps builds the full mip chain on the CPU.
	ImageGenerateMipmaps ImageFlags = 1 << iota

	// ImageRepeatX repeats the image horizontally.
	ImageRepeatX

	// ImageRepeatY repeats the image vertically.
	ImageRepeatY

	// ImageFlipY flips the image vertically when painted.
	ImageFlipY

	// ImagePremultiplied marks RGBA data that is already premultiplied.
	ImagePremultiplied

	// ImageNearest samples with nearest filtering.
	ImageNearest
)

type texture struct {
	id    int
	typ   TextureType
	flags ImageFlags
	w, h  int
	res   *resource.Resource

	// base keeps mip 0 of mipmapped textures so partial updates can
	// rebuild the chain.
	base []byte
}

func (t *texture) mipmapped() bool { return t.flags&ImageGenerateMipmaps != 0 }

// mipLevels returns the length of the full mip chain for w x h.
func mipLevels(w, h int) uint32 {
	return uint32(bits.Len(uint(max(w, h))))
}

// CreateTexture creates a texture and returns its id, or 0 when the type,
// size or data is invalid. data holds w*h texels, tightly packed; nil data
// leaves the texture cleared to zero.
func (r *Renderer) CreateTexture(typ TextureType, w, h int, flags ImageFlags, data []byte) int {
	if r.closed {
		return 0
	}
	if typ != TextureAlpha && typ != TextureRGBA {
		r.log.Debug("render: create texture: unknown type", "type", typ)
		return 0
	}
	limit := int(r.ctx.Caps().MaxTextureSize)
	if w <= 0 || h <= 0 || (limit > 0 && (w > limit || h > limit)) {
		r.log.Debug("render: create texture: bad size", "size", [2]int{w, h})
		return 0
	}
	size := w * h * typ.bpp()
	if data == nil {
		data = make([]byte, size)
	} else if len(data) < size {
		r.log.Debug("render: create texture: short data", "size", [2]int{w, h}, "bytes", len(data))
		return 0
	}

	tex := &texture{id: r.nextID, typ: typ, flags: flags, w: w, h: h}
	levels := uint32(1)
	if tex.mipmapped() {
		levels = mipLevels(w, h)
		tex.base = append([]byte(nil), data[:size]...)
	}
	tex.res = r.ctx.Resources().New()
	tex.res.CreateAsTexture2D(uint32(w), uint32(h), typ.format(), levels, 1)

	if !r.record(func() { r.upload(tex, 0, 0, w, h, data[:size]) }) {
		tex.res.ModifyRefCount(-1)
		return 0
	}
	r.textures[tex.id] = tex
	r.nextID++
	r.log.Debug("render: texture created", "id", tex.id, "size", [2]int{w, h}, "mips", levels)
	return tex.id
}

// CreateTextureFromImage creates a texture from img. Alpha and Gray images
// become alpha textures; everything else is converted to RGBA, premultiplied
// when flags include ImagePremultiplied.
func (r *Renderer) CreateTextureFromImage(img image.Image, flags ImageFlags) int {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return 0
	}
	switch src := img.(type) {
	case *image.Alpha:
		dst := image.NewAlpha(image.Rect(0, 0, w, h))
		draw.Copy(dst, image.Point{}, src, b, draw.Src, nil)
		return r.CreateTexture(TextureAlpha, w, h, flags, dst.Pix)
	case *image.Gray:
		dst := image.NewGray(image.Rect(0, 0, w, h))
		draw.Copy(dst, image.Point{}, src, b, draw.Src, nil)
		return r.CreateTexture(TextureAlpha, w, h, flags, dst.Pix)
	}
	if flags&ImagePremultiplied != 0 {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Copy(dst, image.Point{}, img, b, draw.Src, nil)
		return r.CreateTexture(TextureRGBA, w, h, flags, dst.Pix)
	}
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Copy(dst, image.Point{}, img, b, draw.Src, nil)
	return r.CreateTexture(TextureRGBA, w, h, flags, dst.Pix)
}

// DeleteTexture releases a texture. Calls already queued that use it still
// draw it. It returns false for unknown ids.
func (r *Renderer) DeleteTexture(id int) bool {
	tex, ok := r.textures[id]
	if !ok {
		r.log.Debug("render: delete texture: unknown id", "id", id)
		return false
	}
	delete(r.textures, id)
	tex.res.ModifyRefCount(-1)
	return true
}

// UpdateTextureRegion replaces the w x h region at x, y. data holds the
// region's texels, tightly packed. It returns false for unknown ids or a
// region outside the texture.
func (r *Renderer) UpdateTextureRegion(id, x, y, w, h int, data []byte) bool {
	tex, ok := r.textures[id]
	if !ok {
		r.log.Debug("render: update texture: unknown id", "id", id)
		return false
	}
	if x < 0 || y < 0 || w <= 0 || h <= 0 || x+w > tex.w || y+h > tex.h || len(data) < w*h*tex.typ.bpp() {
		r.log.Debug("render: update texture: bad region", "id", id, "region", [4]int{x, y, w, h})
		return false
	}
	return r.record(func() { r.upload(tex, x, y, w, h, data) })
}

// GetTextureSize returns the size of a texture.
func (r *Renderer) GetTextureSize(id int) (w, h int, ok bool) {
	tex, ok := r.textures[id]
	if !ok {
		return 0, 0, false
	}
	return tex.w, tex.h, true
}

// record runs fn with a command list bound to the resource manager: the
// frame's list inside a frame, an immediate one otherwise.
func (r *Renderer) record(fn func()) bool {
	if r.ctx.InFrame() {
		fn()
		return true
	}
	if err := r.ctx.Immediate(func(gpucore.CommandList) { fn() }); err != nil {
		r.log.Debug("render: upload failed", "err", err)
		return false
	}
	return true
}

// upload stages a region of mip 0 and, for mipmapped textures, rebuilds
// every smaller level.
func (r *Renderer) upload(tex *texture, x, y, w, h int, data []byte) {
	bpp := tex.typ.bpp()
	writeRegion(tex.res, 0, x, y, w, h, bpp, data)
	if !tex.mipmapped() {
		return
	}
	for row := 0; row < h; row++ {
		dst := ((y+row)*tex.w + x) * bpp
		copy(tex.base[dst:dst+w*bpp], data[row*w*bpp:(row+1)*w*bpp])
	}
	src := tex.image(tex.base, tex.w, tex.h)
	for mip := uint32(1); mip < tex.res.MipLevels(); mip++ {
		mw, mh := max(tex.w>>mip, 1), max(tex.h>>mip, 1)
		dst := tex.image(nil, mw, mh)
		draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
		writeRegion(tex.res, mip, 0, 0, mw, mh, bpp, pixels(dst))
		src = dst
	}
}

// image wraps pix as an image of the texture's layout, allocating it when
// pix is nil.
func (t *texture) image(pix []byte, w, h int) draw.Image {
	rect := image.Rect(0, 0, w, h)
	switch {
	case t.typ == TextureAlpha:
		img := image.NewAlpha(rect)
		if pix != nil {
			img.Pix = pix
		}
		return img
	case t.flags&ImagePremultiplied != 0:
		img := image.NewRGBA(rect)
		if pix != nil {
			img.Pix = pix
		}
		return img
	default:
		img := image.NewNRGBA(rect)
		if pix != nil {
			img.Pix = pix
		}
		return img
	}
}

func pixels(img draw.Image) []byte {
	switch img := img.(type) {
	case *image.Alpha:
		return img.Pix
	case *image.RGBA:
		return img.Pix
	case *image.NRGBA:
		return img.Pix
	}
	return nil
}

// writeRegion copies tightly packed rows into pitched staging memory.
func writeRegion(res *resource.Resource, mip uint32, x, y, w, h, bpp int, data []byte) {
	mem, pitch := res.MapTextureRegion(mip, uint32(x), uint32(y), uint32(w), uint32(h))
	row := w * bpp
	for i := 0; i < h; i++ {
		copy(mem[i*int(pitch):i*int(pitch)+row], data[i*row:(i+1)*row])
	}
}
