package app

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/scattered3d/scattered/pointrt/rt/core"
	"github.com/scattered3d/scattered/pointrt/rt/gpu"
)

// Session is the per-viewer state a frame is computed from. The auto-orbit
// drives the eye until the first interaction freezes it into Camera.
type Session struct {
	Camera     core.OrbitCamera
	AutoOrbit  core.AutoOrbit
	Interacted bool

	// Framebuffer size in pixels.
	Width  uint32
	Height uint32
}

// Frame holds the matrices for one draw.
type Frame struct {
	Eye        mgl32.Vec3
	Projection mgl32.Mat4
	View       mgl32.Mat4
	Uniforms   gpu.Uniforms
}

func NewSession(width, height uint32, orbit core.AutoOrbit) Session {
	return Session{
		Camera:    orbit.Freeze(),
		AutoOrbit: orbit,
		Width:     width,
		Height:    height,
	}
}

func (s Session) Eye() mgl32.Vec3 {
	if s.Interacted {
		return s.Camera.Position()
	}
	return s.AutoOrbit.Position()
}

func (s Session) Target() mgl32.Vec3 {
	if s.Interacted {
		return s.Camera.Target
	}
	return mgl32.Vec3{}
}

// Matrices returns projection and view for a canvas of the given size.
func (s Session) Matrices(lens core.Lens, width, height float32) (proj, view mgl32.Mat4) {
	return lens.Projection(width, height), core.LookAt(s.Eye(), s.Target())
}

// Pose computes the frame for the current state without advancing it.
// ok is false while the framebuffer has no area.
func (s Session) Pose(lens core.Lens, positionsScale float32) (Frame, bool) {
	if s.Width == 0 || s.Height == 0 {
		return Frame{}, false
	}
	eye := s.Eye()
	proj, view := s.Matrices(lens, float32(s.Width), float32(s.Height))
	return Frame{
		Eye:        eye,
		Projection: proj,
		View:       view,
		Uniforms:   gpu.NewUniforms(proj, view, eye, positionsScale),
	}, true
}

// Interact hands control to the manual camera. Only the first call has an
// effect.
func (s Session) Interact() Session {
	if s.Interacted {
		return s
	}
	s.Camera = s.AutoOrbit.Freeze()
	s.Interacted = true
	return s
}

// Step produces the frame for s and the session for the next tick.
func Step(s Session, lens core.Lens, positionsScale float32) (Frame, Session, bool) {
	frame, ok := s.Pose(lens, positionsScale)
	if !ok {
		return Frame{}, s, false
	}
	if !s.Interacted {
		s.AutoOrbit = s.AutoOrbit.Advance()
	}
	return frame, s, true
}
