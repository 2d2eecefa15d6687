package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Lens holds the perspective parameters shared by the renderer and the picker.
type Lens struct {
	FieldOfView float32 // vertical, radians
	Near        float32
	Far         float32
}

func DefaultLens() Lens {
	return Lens{
		FieldOfView: math.Pi / 4,
		Near:        0.1,
		Far:         10,
	}
}

func (l Lens) Projection(width, height float32) mgl32.Mat4 {
	aspect := float32(1)
	if width > 0 && height > 0 {
		aspect = width / height
	}
	return PerspectiveZO(l.FieldOfView, aspect, l.Near, l.Far)
}

// PerspectiveZO builds a right-handed perspective matrix mapping depth to
// [0, 1], as WebGPU expects. mgl32.Perspective targets [-1, 1].
func PerspectiveZO(fovy, aspect, near, far float32) mgl32.Mat4 {
	f := float32(1 / math.Tan(float64(fovy)/2))
	var m mgl32.Mat4
	m[0] = f / aspect
	m[5] = f
	m[11] = -1
	if far > 0 && !math.IsInf(float64(far), 1) {
		nf := 1 / (near - far)
		m[10] = far * nf
		m[14] = far * near * nf
	} else {
		m[10] = -1
		m[14] = -near
	}
	return m
}

func LookAt(eye, target mgl32.Vec3) mgl32.Mat4 {
	return mgl32.LookAtV(eye, target, WorldUp)
}

// ProjectToScreen applies the same transform as the vertex shader and maps
// the result to window pixels with the origin at the top-left corner.
// ok is false for points at or behind the camera plane.
func ProjectToScreen(p mgl32.Vec3, proj, view mgl32.Mat4, width, height, scale float32) (screen mgl32.Vec2, ok bool) {
	return project(proj.Mul4(view), p, width, height, scale)
}

func project(viewProj mgl32.Mat4, p mgl32.Vec3, width, height, scale float32) (mgl32.Vec2, bool) {
	clip := viewProj.Mul4x1(p.Mul(scale).Vec4(1))
	w := clip[3]
	if w <= 0 {
		return mgl32.Vec2{}, false
	}
	ndcX := clip[0] / w
	ndcY := clip[1] / w
	sx := (ndcX + 1) * 0.5 * width
	sy := (1 - ndcY) * 0.5 * height
	if !finite(sx) || !finite(sy) {
		return mgl32.Vec2{}, false
	}
	return mgl32.Vec2{sx, sy}, true
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
