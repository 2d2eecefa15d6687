package core

// SelectionColors keeps the original per-point colors so a lasso highlight
// can be undone.
type SelectionColors struct {
	Highlight [4]float32

	original []float32
	current  []float32
	selected int
}

func NewSelectionColors(colors []float32, highlight [4]float32) *SelectionColors {
	orig := make([]float32, len(colors))
	copy(orig, colors)
	cur := make([]float32, len(colors))
	copy(cur, colors)
	return &SelectionColors{
		Highlight: highlight,
		original:  orig,
		current:   cur,
	}
}

// Apply returns the color array for the given selection. A new selection
// replaces the previous one; an empty selection restores the originals.
func (s *SelectionColors) Apply(indices []int) []float32 {
	copy(s.current, s.original)
	s.selected = 0
	n := len(s.current) / 4
	for _, i := range indices {
		if i < 0 || i >= n {
			continue
		}
		copy(s.current[i*4:i*4+4], s.Highlight[:])
		s.selected++
	}
	return s.current
}

func (s *SelectionColors) Colors() []float32 {
	return s.current
}

func (s *SelectionColors) Original() []float32 {
	return s.original
}

func (s *SelectionColors) Selected() int {
	return s.selected
}
