package gpu

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Byte offsets of the Uniforms struct in points.wgsl.
const (
	UniformProjectionOffset = 0
	UniformViewOffset       = 64
	UniformEyeOffset        = 128
	UniformScaleOffset      = 144
	UniformSize             = 160
)

// Uniforms mirrors the WGSL uniform block. The trailing padding rounds the
// struct up to the 16-byte alignment WGSL gives it.
type Uniforms struct {
	Projection     mgl32.Mat4
	View           mgl32.Mat4
	Eye            [4]float32
	PositionsScale float32
	_              [3]float32
}

func NewUniforms(proj, view mgl32.Mat4, eye mgl32.Vec3, positionsScale float32) Uniforms {
	return Uniforms{
		Projection:     proj,
		View:           view,
		Eye:            [4]float32{eye[0], eye[1], eye[2], 1},
		PositionsScale: positionsScale,
	}
}

// Bytes packs the uniforms little-endian at the offsets above.
func (u Uniforms) Bytes() []byte {
	buf := make([]byte, UniformSize)
	putFloats(buf[UniformProjectionOffset:], u.Projection[:])
	putFloats(buf[UniformViewOffset:], u.View[:])
	putFloats(buf[UniformEyeOffset:], u.Eye[:])
	binary.LittleEndian.PutUint32(buf[UniformScaleOffset:], math.Float32bits(u.PositionsScale))
	// 148..160 padding
	return buf
}

func putFloats(dst []byte, vals []float32) {
	for i, v := range vals {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}

// float32Bytes converts a float slice to the little-endian layout the
// storage buffers expect.
func float32Bytes(vals []float32) []byte {
	buf := make([]byte, len(vals)*4)
	putFloats(buf, vals)
	return buf
}
