package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// LassoPath is the screen-space outline recorded during a lasso gesture.
type LassoPath []mgl32.Vec2

func (p LassoPath) Append(x, y float32) LassoPath {
	return append(p, mgl32.Vec2{x, y})
}

// Closed reports whether the path has enough vertices to enclose anything.
func (p LassoPath) Closed() bool {
	return len(p) >= 3
}

func (p LassoPath) bounds() (lo, hi mgl32.Vec2) {
	lo = mgl32.Vec2{math.MaxFloat32, math.MaxFloat32}
	hi = mgl32.Vec2{-math.MaxFloat32, -math.MaxFloat32}
	for _, v := range p {
		lo[0] = min(lo[0], v[0])
		lo[1] = min(lo[1], v[1])
		hi[0] = max(hi[0], v[0])
		hi[1] = max(hi[1], v[1])
	}
	return lo, hi
}

// PointInPolygon is an even-odd ray cast towards +X. An edge counts when
// exactly one of its endpoints has y >= pt.y, so shared vertices are
// counted once.
func PointInPolygon(pt mgl32.Vec2, polygon []mgl32.Vec2) bool {
	inside := false
	px, py := pt[0], pt[1]
	for i, j := 0, len(polygon)-1; i < len(polygon); j, i = i, i+1 {
		xi, yi := polygon[i][0], polygon[i][1]
		xj, yj := polygon[j][0], polygon[j][1]
		if (yi >= py) == (yj >= py) {
			continue
		}
		if px < (xj-xi)*(py-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// FindPointsInLasso returns, in ascending order, the indices of the points
// whose projection falls inside the lasso polygon. The result is never nil.
func FindPointsInLasso(xs, ys, zs []float32, proj, view mgl32.Mat4, width, height, scale float32, lasso []mgl32.Vec2) []int {
	selected := []int{}
	if !LassoPath(lasso).Closed() {
		return selected
	}

	n := min(len(xs), len(ys), len(zs))
	viewProj := proj.Mul4(view)
	lo, hi := LassoPath(lasso).bounds()

	for i := 0; i < n; i++ {
		s, ok := project(viewProj, mgl32.Vec3{xs[i], ys[i], zs[i]}, width, height, scale)
		if !ok {
			continue
		}
		if s[0] < lo[0] || s[0] > hi[0] || s[1] < lo[1] || s[1] > hi[1] {
			continue
		}
		if PointInPolygon(s, lasso) {
			selected = append(selected, i)
		}
	}
	return selected
}
