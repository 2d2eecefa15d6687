package scattered

import "math/rand"

// RandomColumns returns n points spread uniformly in a cube of side scale
// centered on the origin.
func RandomColumns(n int, scale float32, rng *rand.Rand) Columns {
	cols := Columns{
		"x": make([]float32, n),
		"y": make([]float32, n),
		"z": make([]float32, n),
	}
	for i := 0; i < n; i++ {
		cols["x"][i] = rng.Float32()*scale - scale/2
		cols["y"][i] = rng.Float32()*scale - scale/2
		cols["z"][i] = rng.Float32()*scale - scale/2
	}
	return cols
}

// LinearColumns returns n points evenly spaced from (0,0,0) to (1,1,1).
func LinearColumns(n int) Columns {
	cols := Columns{
		"x": make([]float32, n),
		"y": make([]float32, n),
		"z": make([]float32, n),
	}
	if n == 1 {
		return cols
	}
	step := 1 / float32(n-1)
	for i := 0; i < n; i++ {
		v := float32(i) * step
		cols["x"][i], cols["y"][i], cols["z"][i] = v, v, v
	}
	return cols
}
