package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeCamera looks at the origin from +Z.
func makeCamera(distance, width, height float32) (proj, view mgl32.Mat4) {
	proj = DefaultLens().Projection(width, height)
	view = LookAt(mgl32.Vec3{0, 0, distance}, mgl32.Vec3{})
	return proj, view
}

func TestOriginProjectsToCanvasCenter(t *testing.T) {
	sizes := [][2]float32{{800, 600}, {1, 1}, {1920, 1080}, {333, 777}, {4096, 17}}
	for _, d := range []float32{0.5, 2, 7} {
		for _, sz := range sizes {
			proj, view := makeCamera(d, sz[0], sz[1])
			s, ok := ProjectToScreen(mgl32.Vec3{}, proj, view, sz[0], sz[1], 1)
			require.True(t, ok)
			assert.InDelta(t, sz[0]/2, s[0], 0.5, "x for %v at distance %v", sz, d)
			assert.InDelta(t, sz[1]/2, s[1], 0.5, "y for %v at distance %v", sz, d)
		}
	}
}

func TestProjectionScenario800x600(t *testing.T) {
	lens := Lens{FieldOfView: math.Pi / 4, Near: 0.1, Far: 10}
	proj := lens.Projection(800, 600)
	view := LookAt(mgl32.Vec3{0, 0, 2}, mgl32.Vec3{})

	s, ok := ProjectToScreen(mgl32.Vec3{}, proj, view, 800, 600, 1)
	require.True(t, ok)
	assert.InDelta(t, 400, s[0], 1)
	assert.InDelta(t, 300, s[1], 1)
}

func TestPositiveXProjectsRightOfTarget(t *testing.T) {
	proj, view := makeCamera(2, 800, 600)
	center, _ := ProjectToScreen(mgl32.Vec3{}, proj, view, 800, 600, 1)
	right, _ := ProjectToScreen(mgl32.Vec3{0.5, 0, 0}, proj, view, 800, 600, 1)
	up, _ := ProjectToScreen(mgl32.Vec3{0, 0.5, 0}, proj, view, 800, 600, 1)

	assert.Greater(t, right[0], center[0])
	// Screen y grows downwards.
	assert.Less(t, up[1], center[1])
}

func TestProjectionIsScaleInvariant(t *testing.T) {
	proj, view := makeCamera(3, 800, 600)
	points := []mgl32.Vec3{{1, 0, 0}, {-0.7, 0.4, 0.2}, {0.3, -0.9, -1.1}}
	scales := [][2]float32{{0.5, 1}, {0.1, 0.25}, {2, 0.3}}
	for _, p := range points {
		for _, sc := range scales {
			s, s2 := sc[0], sc[1]
			a, okA := ProjectToScreen(p, proj, view, 800, 600, s)
			b, okB := ProjectToScreen(p.Mul(s/s2), proj, view, 800, 600, s2)
			require.Equal(t, okA, okB)
			assert.InDelta(t, a[0], b[0], 1e-2)
			assert.InDelta(t, a[1], b[1], 1e-2)
		}
	}
}

func TestPointsBehindCameraAreRejected(t *testing.T) {
	proj, view := makeCamera(2, 800, 600)
	_, ok := ProjectToScreen(mgl32.Vec3{0, 0, 5}, proj, view, 800, 600, 1)
	assert.False(t, ok)

	// Exactly in the eye plane: w == 0.
	_, ok = ProjectToScreen(mgl32.Vec3{1, 0, 2}, proj, view, 800, 600, 1)
	assert.False(t, ok)
}

func TestPerspectiveZODepthRange(t *testing.T) {
	m := PerspectiveZO(math.Pi/4, 1, 0.1, 10)

	near := m.Mul4x1(mgl32.Vec4{0, 0, -0.1, 1})
	far := m.Mul4x1(mgl32.Vec4{0, 0, -10, 1})
	assert.InDelta(t, 0, near[2]/near[3], 1e-5)
	assert.InDelta(t, 1, far[2]/far[3], 1e-5)

	inf := PerspectiveZO(math.Pi/4, 1, 0.1, float32(math.Inf(1)))
	assert.Equal(t, float32(-1), inf[10])
}

func TestLensProjectionGuardsZeroHeight(t *testing.T) {
	m := DefaultLens().Projection(800, 0)
	assert.Equal(t, m[0], m[5])
}
