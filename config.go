package scattered

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/scattered3d/scattered/pointrt/rt/app"
	"github.com/scattered3d/scattered/pointrt/rt/core"
	"gopkg.in/yaml.v3"
)

// Config holds the viewer settings a YAML file may override.
type Config struct {
	// Background is a hex color or one of the palettes "light", "dark" or
	// "random".
	Background string `yaml:"background"`

	FieldOfView    float32 `yaml:"field_of_view"` // vertical, degrees
	Near           float32 `yaml:"near"`
	Far            float32 `yaml:"far"`
	PositionsScale float32 `yaml:"positions_scale"`

	AutoOrbitSpeed  float32 `yaml:"auto_orbit_speed"`
	AutoOrbitRadius float32 `yaml:"auto_orbit_radius"`

	HighlightColor string `yaml:"highlight_color"`
	PointColor     string `yaml:"point_color"`

	ScreenshotLongEdge uint32 `yaml:"screenshot_long_edge"`
	ShowStatus         bool   `yaml:"show_status"`

	Debug     bool   `yaml:"debug"`
	LogPrefix string `yaml:"log_prefix"`
}

func DefaultConfig() Config {
	return Config{
		Background:         "#000000",
		FieldOfView:        45,
		Near:               0.1,
		Far:                10,
		PositionsScale:     0.1,
		AutoOrbitSpeed:     core.AutoOrbitSpeed,
		AutoOrbitRadius:    core.AutoOrbitRadius,
		HighlightColor:     "#ffd91a",
		PointColor:         "#4682b4",
		ScreenshotLongEdge: 4096,
		ShowStatus:         true,
		LogPrefix:          "scattered",
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.FieldOfView <= 0 || c.FieldOfView >= 180 {
		errs = append(errs, fmt.Errorf("field_of_view %v must be in (0, 180)", c.FieldOfView))
	}
	if c.Near <= 0 {
		errs = append(errs, fmt.Errorf("near %v must be positive", c.Near))
	}
	if c.Far <= c.Near {
		errs = append(errs, fmt.Errorf("far %v must exceed near %v", c.Far, c.Near))
	}
	if c.PositionsScale <= 0 {
		errs = append(errs, fmt.Errorf("positions_scale %v must be positive", c.PositionsScale))
	}
	if c.AutoOrbitRadius < core.RadiusMin {
		errs = append(errs, fmt.Errorf("auto_orbit_radius %v below %v", c.AutoOrbitRadius, core.RadiusMin))
	}
	if !isPalette(c.Background) {
		if _, err := ParseHexColor(c.Background); err != nil {
			errs = append(errs, fmt.Errorf("background: %w", err))
		}
	}
	if _, err := ParseHexColor(c.HighlightColor); err != nil {
		errs = append(errs, fmt.Errorf("highlight_color: %w", err))
	}
	if _, err := ParseHexColor(c.PointColor); err != nil {
		errs = append(errs, fmt.Errorf("point_color: %w", err))
	}
	return errors.Join(errs...)
}

func (c Config) Lens() core.Lens {
	return core.Lens{
		FieldOfView: mgl32.DegToRad(c.FieldOfView),
		Near:        c.Near,
		Far:         c.Far,
	}
}

// ParseHexColor accepts #rgb, #rrggbb and #rrggbbaa, with or without the #.
func ParseHexColor(s string) ([4]float32, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return [4]float32{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return [4]float32{}, fmt.Errorf("invalid color %q", s)
	}
	return [4]float32{
		float32(v>>24&0xff) / 255,
		float32(v>>16&0xff) / 255,
		float32(v>>8&0xff) / 255,
		float32(v&0xff) / 255,
	}, nil
}

var (
	lightBackgrounds = []string{"#f0ffff", "#f0f8ff", "#fff8dc", "#f8f8ff", "#f0fff0", "#fff0f5"}
	darkBackgrounds  = []string{"#6a5acd", "#000080", "#2f4f4f", "#006400"}
)

func isPalette(name string) bool {
	switch name {
	case "light", "dark", "random":
		return true
	}
	return false
}

// BackgroundColor resolves a background setting. Palette names pick a color
// with rng.
func BackgroundColor(setting string, rng *rand.Rand) ([4]float32, error) {
	var choices []string
	switch setting {
	case "light":
		choices = lightBackgrounds
	case "dark":
		choices = darkBackgrounds
	case "random":
		choices = append(append([]string{}, lightBackgrounds...), darkBackgrounds...)
	default:
		return ParseHexColor(setting)
	}
	return ParseHexColor(choices[rng.Intn(len(choices))])
}

// AppOptions converts the config for the renderer. rng resolves palette
// backgrounds.
func (c Config) AppOptions(rng *rand.Rand) (app.Options, error) {
	if err := c.Validate(); err != nil {
		return app.Options{}, err
	}
	bg, err := BackgroundColor(c.Background, rng)
	if err != nil {
		return app.Options{}, err
	}
	hl, _ := ParseHexColor(c.HighlightColor)

	opts := app.DefaultOptions()
	opts.Lens = c.Lens()
	opts.PositionsScale = c.PositionsScale
	opts.Background = wgpu.Color{R: float64(bg[0]), G: float64(bg[1]), B: float64(bg[2]), A: float64(bg[3])}
	opts.Highlight = hl
	opts.AutoOrbit = core.AutoOrbit{Speed: c.AutoOrbitSpeed, Radius: c.AutoOrbitRadius}
	opts.ShowStatus = c.ShowStatus
	opts.ScreenshotLongEdge = c.ScreenshotLongEdge
	if c.LogPrefix != "" {
		opts.TitlePrefix = c.LogPrefix
	}
	return opts, nil
}

func (c Config) pointColor() [4]float32 {
	rgba, err := ParseHexColor(c.PointColor)
	if err != nil {
		return [4]float32{0.27, 0.51, 0.71, 1}
	}
	return rgba
}
