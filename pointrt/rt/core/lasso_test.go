package core

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func rect(x0, y0, x1, y1 float32) []mgl32.Vec2 {
	return []mgl32.Vec2{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

func TestLassoWithFewerThanThreeVerticesSelectsNothing(t *testing.T) {
	proj, view := makeCamera(2, 800, 600)
	xs, ys, zs := []float32{0}, []float32{0}, []float32{0}

	for _, poly := range [][]mgl32.Vec2{nil, {}, {{0, 0}}, {{0, 0}, {800, 600}}} {
		got := FindPointsInLasso(xs, ys, zs, proj, view, 800, 600, 1, poly)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	}
}

func TestLassoAroundCenterSelectsOrigin(t *testing.T) {
	proj, view := makeCamera(2, 800, 600)
	got := FindPointsInLasso([]float32{0}, []float32{0}, []float32{0}, proj, view, 800, 600, 1, rect(350, 250, 450, 350))
	assert.Equal(t, []int{0}, got)
}

func TestLassoInCornerMissesOrigin(t *testing.T) {
	proj, view := makeCamera(2, 800, 600)
	got := FindPointsInLasso([]float32{0}, []float32{0}, []float32{0}, proj, view, 800, 600, 1, rect(0, 0, 50, 50))
	assert.Equal(t, []int{}, got)
}

func TestLassoLeftHalfSelectsNegativeX(t *testing.T) {
	const w, h = 800, 600
	proj, view := makeCamera(3, w, h)
	xs := []float32{-0.4, -0.2, 0, 0.2, 0.4}
	zeros := make([]float32, len(xs))

	for i, x := range xs[:2] {
		s, _ := ProjectToScreen(mgl32.Vec3{x, 0, 0}, proj, view, w, h, 1)
		assert.Less(t, s[0], float32(w/2), "point %d", i)
	}

	got := FindPointsInLasso(xs, zeros, zeros, proj, view, w, h, 1, rect(0, 0, w/2-1, h))
	assert.Equal(t, []int{0, 1}, got)
}

func TestLassoCoveringCanvasSelectsEverythingInOrder(t *testing.T) {
	const w, h = 800, 600
	proj, view := makeCamera(2, w, h)
	xs := []float32{0.3, 0, -0.1, 0.2, -0.3}
	ys := []float32{0.1, 0, -0.1, -0.2, 0.25}
	zs := []float32{0, 0.1, 0, -0.3, 0.2}

	got := FindPointsInLasso(xs, ys, zs, proj, view, w, h, 1, rect(-1, -1, w+1, h+1))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLassoSkipsPointsBehindCamera(t *testing.T) {
	const w, h = 800, 600
	proj, view := makeCamera(2, w, h)
	// Index 1 sits behind the eye; its projection would mirror into the lasso.
	xs := []float32{0, 0}
	ys := []float32{0, 0}
	zs := []float32{0, 4}

	got := FindPointsInLasso(xs, ys, zs, proj, view, w, h, 1, rect(-1, -1, w+1, h+1))
	assert.Equal(t, []int{0}, got)
}

func TestLassoEmptyInputAndMismatchedLengths(t *testing.T) {
	proj, view := makeCamera(2, 800, 600)
	assert.Equal(t, []int{}, FindPointsInLasso(nil, nil, nil, proj, view, 800, 600, 1, rect(0, 0, 800, 600)))

	got := FindPointsInLasso([]float32{0, 0.1, 0.2}, []float32{0, 0}, []float32{0, 0, 0}, proj, view, 800, 600, 1, rect(0, 0, 800, 600))
	assert.Equal(t, []int{0, 1}, got)
}

func TestPointInPolygonConcave(t *testing.T) {
	// A "U" shape opening upwards.
	u := []mgl32.Vec2{{0, 0}, {10, 0}, {10, 10}, {7, 10}, {7, 3}, {3, 3}, {3, 10}, {0, 10}}

	assert.True(t, PointInPolygon(mgl32.Vec2{1, 5}, u))
	assert.True(t, PointInPolygon(mgl32.Vec2{5, 1}, u))
	assert.False(t, PointInPolygon(mgl32.Vec2{5, 6}, u))
	assert.False(t, PointInPolygon(mgl32.Vec2{11, 5}, u))
}

func TestLassoPathAppend(t *testing.T) {
	var p LassoPath
	p = p.Append(1, 2).Append(3, 4)
	assert.False(t, p.Closed())
	p = p.Append(5, 6)
	assert.True(t, p.Closed())
	assert.Equal(t, mgl32.Vec2{3, 4}, p[1])
}
