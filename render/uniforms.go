// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"encoding/binary"
	"math"
)

// Shader paint types.
const (
	shaderGradient float32 = iota
	shaderImage
	shaderSimple
	shaderTriangles
)

// Texture interpretation in the shader.
const (
	texPremultiplied float32 = iota
	texStraight
	texAlpha
)

// uniformSize is the byte size of fragUniforms as the shader declares it.
const uniformSize = 192

// Byte offset of viewSize, written at flush time.
const viewSizeOffset = 176

// fragUniforms is the per-call uniform block. The field order and padding
// match the shader's struct layout.
type fragUniforms struct {
	scissorMat   [12]float32
	paintMat     [12]float32
	innerCol     Color
	outerCol     Color
	scissorExt   [2]float32
	scissorScale [2]float32
	extent       [2]float32
	radius       float32
	feather      float32
	strokeMult   float32
	strokeThr    float32
	texType      float32
	kind         float32
	viewSize     [2]float32
}

func (u *fragUniforms) encode(dst []byte) {
	var fs [uniformSize / 4]float32
	copy(fs[0:12], u.scissorMat[:])
	copy(fs[12:24], u.paintMat[:])
	fs[24], fs[25], fs[26], fs[27] = u.innerCol.R, u.innerCol.G, u.innerCol.B, u.innerCol.A
	fs[28], fs[29], fs[30], fs[31] = u.outerCol.R, u.outerCol.G, u.outerCol.B, u.outerCol.A
	fs[32], fs[33] = u.scissorExt[0], u.scissorExt[1]
	fs[34], fs[35] = u.scissorScale[0], u.scissorScale[1]
	fs[36], fs[37] = u.extent[0], u.extent[1]
	fs[38], fs[39] = u.radius, u.feather
	fs[40], fs[41] = u.strokeMult, u.strokeThr
	fs[42], fs[43] = u.texType, u.kind
	fs[44], fs[45] = u.viewSize[0], u.viewSize[1]
	for i, f := range fs {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(f))
	}
}

// convertPaint fills the uniform block for a paint. It returns false when
// the paint references an unknown texture.
func (r *Renderer) convertPaint(u *fragUniforms, p *Paint, s *Scissor, width, fringe, strokeThr float32) bool {
	*u = fragUniforms{
		innerCol: p.InnerColor.Premultiply(),
		outerCol: p.OuterColor.Premultiply(),
	}
	if s.disabled() {
		u.scissorExt = [2]float32{1, 1}
		u.scissorScale = [2]float32{1, 1}
	} else {
		x := s.Xform
		u.scissorMat = x.Invert().mat3x4()
		u.scissorExt = s.Extent
		u.scissorScale = [2]float32{
			float32(math.Hypot(float64(x.A), float64(x.B))) / fringe,
			float32(math.Hypot(float64(x.D), float64(x.E))) / fringe,
		}
	}
	u.extent = p.Extent
	u.strokeMult = (width*0.5 + fringe*0.5) / fringe
	u.strokeThr = strokeThr

	var inv Xform
	if p.Image != 0 {
		tex, ok := r.textures[p.Image]
		if !ok {
			return false
		}
		if tex.flags&ImageFlipY != 0 {
			half := u.extent[1] * 0.5
			m := Translate(0, half).Multiply(Scale(1, -1)).Multiply(Translate(0, -half))
			inv = p.Xform.Multiply(m).Invert()
		} else {
			inv = p.Xform.Invert()
		}
		u.kind = shaderImage
		switch {
		case tex.typ == TextureAlpha:
			u.texType = texAlpha
		case tex.flags&ImagePremultiplied != 0:
			u.texType = texPremultiplied
		default:
			u.texType = texStraight
		}
	} else {
		u.kind = shaderGradient
		u.radius = p.Radius
		u.feather = p.Feather
		inv = p.Xform.Invert()
	}
	u.paintMat = inv.mat3x4()
	return true
}
