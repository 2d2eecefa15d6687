package core

import (
	"fmt"
)

// PointCloud stores positions as parallel arrays and colors as packed RGBA.
type PointCloud struct {
	X, Y, Z []float32
	Colors  []float32
}

func (pc PointCloud) Len() int {
	return len(pc.X)
}

func (pc PointCloud) Validate() error {
	n := len(pc.X)
	if len(pc.Y) != n || len(pc.Z) != n {
		return fmt.Errorf("position arrays differ in length: x=%d y=%d z=%d", len(pc.X), len(pc.Y), len(pc.Z))
	}
	if pc.Colors != nil && len(pc.Colors) != 4*n {
		return fmt.Errorf("color array has %d values, want %d (4 per point)", len(pc.Colors), 4*n)
	}
	return nil
}

// WithDefaultColors fills in a uniform color when the cloud carries none.
func (pc PointCloud) WithDefaultColors(rgba [4]float32) PointCloud {
	if pc.Colors != nil {
		return pc
	}
	pc.Colors = make([]float32, 4*pc.Len())
	for i := 0; i < pc.Len(); i++ {
		copy(pc.Colors[i*4:i*4+4], rgba[:])
	}
	return pc
}

// Subset copies the points at the given indices. Out-of-range indices are skipped.
func (pc PointCloud) Subset(indices []int) PointCloud {
	out := PointCloud{
		X: make([]float32, 0, len(indices)),
		Y: make([]float32, 0, len(indices)),
		Z: make([]float32, 0, len(indices)),
	}
	withColors := len(pc.Colors) == 4*pc.Len()
	if withColors {
		out.Colors = make([]float32, 0, 4*len(indices))
	}
	for _, i := range indices {
		if i < 0 || i >= pc.Len() {
			continue
		}
		out.X = append(out.X, pc.X[i])
		out.Y = append(out.Y, pc.Y[i])
		out.Z = append(out.Z, pc.Z[i])
		if withColors {
			out.Colors = append(out.Colors, pc.Colors[i*4:i*4+4]...)
		}
	}
	return out
}
