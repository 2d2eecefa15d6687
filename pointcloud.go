package scattered

import (
	"fmt"
	"sort"
	"strings"

	"github.com/scattered3d/scattered/pointrt/rt/core"
)

type PointCloud = core.PointCloud

// Columns is a table of named numeric fields, one value per point.
type Columns map[string][]float32

func (c Columns) Fields() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Encoding names the columns used for each channel. Color is optional.
type Encoding struct {
	X     string `yaml:"x"`
	Y     string `yaml:"y"`
	Z     string `yaml:"z"`
	Color string `yaml:"color"`
}

func DefaultEncoding() Encoding {
	return Encoding{X: "x", Y: "y", Z: "z"}
}

func (e Encoding) withDefaults() Encoding {
	d := DefaultEncoding()
	if e.X == "" {
		e.X = d.X
	}
	if e.Y == "" {
		e.Y = d.Y
	}
	if e.Z == "" {
		e.Z = d.Z
	}
	return e
}

type MissingFieldError struct {
	Field     string
	Available []string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("field %q not found in data. Available fields: %s", e.Field, strings.Join(e.Available, ", "))
}

// ColorMapper turns the values of the color column into packed RGBA, four
// floats per value.
type ColorMapper interface {
	MapColors(values []float32) ([]float32, error)
}

type ColorMapperFunc func(values []float32) ([]float32, error)

func (f ColorMapperFunc) MapColors(values []float32) ([]float32, error) {
	return f(values)
}

// PointCloudFromColumns selects the encoded columns into a PointCloud. The
// returned cloud has no colors when enc.Color is empty.
func PointCloudFromColumns(cols Columns, enc Encoding, mapper ColorMapper) (PointCloud, error) {
	enc = enc.withDefaults()

	lookup := func(field string) ([]float32, error) {
		v, ok := cols[field]
		if !ok {
			return nil, &MissingFieldError{Field: field, Available: cols.Fields()}
		}
		return v, nil
	}

	var pc PointCloud
	var err error
	if pc.X, err = lookup(enc.X); err != nil {
		return PointCloud{}, err
	}
	if pc.Y, err = lookup(enc.Y); err != nil {
		return PointCloud{}, err
	}
	if pc.Z, err = lookup(enc.Z); err != nil {
		return PointCloud{}, err
	}
	if err := pc.Validate(); err != nil {
		return PointCloud{}, err
	}

	if enc.Color == "" {
		return pc, nil
	}
	values, err := lookup(enc.Color)
	if err != nil {
		return PointCloud{}, err
	}
	if len(values) != pc.Len() {
		return PointCloud{}, fmt.Errorf("color field %q has %d values, want %d", enc.Color, len(values), pc.Len())
	}
	if mapper == nil {
		return PointCloud{}, fmt.Errorf("color field %q needs a ColorMapper", enc.Color)
	}
	if pc.Colors, err = mapper.MapColors(values); err != nil {
		return PointCloud{}, fmt.Errorf("map colors for %q: %w", enc.Color, err)
	}
	if err := pc.Validate(); err != nil {
		return PointCloud{}, err
	}
	return pc, nil
}
