package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	PhiMin    = 0.01
	PhiMax    = math.Pi - 0.01
	RadiusMin = 0.1

	// RotateSpeed is radians per pixel of pointer travel while orbiting.
	RotateSpeed = 0.01 * math.Pi / 12
	// PanSpeed is world units per pixel per unit of radius.
	PanSpeed = 0.0015
	// ZoomSpeed is radius change per normalized wheel pixel.
	ZoomSpeed = 0.01

	AutoOrbitSpeed  = 0.01
	AutoOrbitRadius = 2.0
)

var WorldUp = mgl32.Vec3{0, 1, 0}

type CameraMode int

const (
	CameraIdle CameraMode = iota
	CameraOrbiting
	CameraPanning
)

func (m CameraMode) String() string {
	switch m {
	case CameraOrbiting:
		return "orbiting"
	case CameraPanning:
		return "panning"
	default:
		return "idle"
	}
}

type PointerButton int

const (
	PointerPrimary PointerButton = iota
	PointerSecondary
	PointerAuxiliary
)

// PointerEvent is a pointer position in window coordinates (origin top-left).
type PointerEvent struct {
	X, Y   float32
	Button PointerButton
	// Pan requests panning even for the primary button.
	Pan bool
}

type WheelDeltaMode int

const (
	WheelDeltaPixel WheelDeltaMode = iota
	WheelDeltaLine
	WheelDeltaPage
)

type WheelEvent struct {
	DeltaY float32
	Mode   WheelDeltaMode
}

// Pixels converts the wheel delta to a pixel-equivalent amount.
func (e WheelEvent) Pixels() float32 {
	switch e.Mode {
	case WheelDeltaLine:
		return e.DeltaY * 16
	case WheelDeltaPage:
		return e.DeltaY * 800
	default:
		return e.DeltaY
	}
}

// OrbitCamera orbits Target on a sphere of Radius. Theta is the azimuth,
// Phi the polar angle measured from +Y.
//
// It is a value type: every event method returns the updated camera and
// leaves the receiver untouched.
type OrbitCamera struct {
	Theta  float32
	Phi    float32
	Radius float32
	Target mgl32.Vec3
	Mode   CameraMode

	last mgl32.Vec2
}

func NewOrbitCamera(theta, radius float32) OrbitCamera {
	return OrbitCamera{
		Theta:  theta,
		Phi:    math.Pi / 2,
		Radius: clampRadius(radius),
	}
}

func (c OrbitCamera) Position() mgl32.Vec3 {
	st, ct := math.Sincos(float64(c.Theta))
	sp, cp := math.Sincos(float64(c.Phi))
	r := float64(c.Radius)
	return mgl32.Vec3{
		float32(r * ct * sp),
		float32(r * cp),
		float32(r * st * sp),
	}.Add(c.Target)
}

func (c OrbitCamera) PointerDown(e PointerEvent) OrbitCamera {
	c.last = mgl32.Vec2{e.X, e.Y}
	if e.Button != PointerPrimary || e.Pan {
		c.Mode = CameraPanning
	} else {
		c.Mode = CameraOrbiting
	}
	return c
}

func (c OrbitCamera) PointerUp(PointerEvent) OrbitCamera {
	c.Mode = CameraIdle
	return c
}

func (c OrbitCamera) PointerMove(e PointerEvent) OrbitCamera {
	pos := mgl32.Vec2{e.X, e.Y}
	delta := pos.Sub(c.last)
	c.last = pos

	switch c.Mode {
	case CameraOrbiting:
		c.Theta += delta[0] * RotateSpeed
		c.Phi = clampPhi(c.Phi - delta[1]*RotateSpeed)
	case CameraPanning:
		c = c.pan(delta)
	}
	return c
}

func (c OrbitCamera) pan(delta mgl32.Vec2) OrbitCamera {
	forward := c.Target.Sub(c.Position())
	if forward.Len() < 1e-6 {
		return c
	}
	forward = forward.Normalize()
	right := forward.Cross(WorldUp)
	if right.Len() < 1e-6 {
		return c
	}
	right = right.Normalize()
	up := right.Cross(forward).Normalize()

	k := PanSpeed * c.Radius
	// Dragging right moves the scene right, so the target moves left.
	c.Target = c.Target.Sub(right.Mul(delta[0] * k)).Add(up.Mul(delta[1] * k))
	return c
}

func (c OrbitCamera) Wheel(e WheelEvent) OrbitCamera {
	c.Radius = clampRadius(c.Radius + e.Pixels()*ZoomSpeed)
	return c
}

func clampPhi(phi float32) float32 {
	return float32(math.Max(PhiMin, math.Min(PhiMax, float64(phi))))
}

func clampRadius(r float32) float32 {
	if r < RadiusMin || r != r {
		return RadiusMin
	}
	return r
}

// AutoOrbit drives the camera around the Y axis until the user takes over.
type AutoOrbit struct {
	Angle  float32
	Speed  float32
	Radius float32
}

func NewAutoOrbit() AutoOrbit {
	return AutoOrbit{Speed: AutoOrbitSpeed, Radius: AutoOrbitRadius}
}

func (a AutoOrbit) Position() mgl32.Vec3 {
	s, c := math.Sincos(float64(a.Angle))
	return mgl32.Vec3{float32(c) * a.Radius, 0, float32(s) * a.Radius}
}

func (a AutoOrbit) Advance() AutoOrbit {
	a.Angle += a.Speed * math.Pi / 12
	return a
}

// Freeze hands the current orbit angle over to a manual camera.
func (a AutoOrbit) Freeze() OrbitCamera {
	return NewOrbitCamera(a.Angle, a.Radius)
}
