package app

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/scattered3d/scattered/pointrt/rt/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCloud() core.PointCloud {
	return core.PointCloud{
		X: []float32{0, 0},
		Y: []float32{0, 0},
		Z: []float32{0, 1},
	}.WithDefaultColors([4]float32{0.5, 0.5, 0.5, 1})
}

// runningApp is an App past Init without any GPU objects.
func runningApp(t *testing.T) *App {
	t.Helper()
	opts := DefaultOptions()
	opts.PositionsScale = 1
	a := NewApp(nil, testCloud(), opts, nil)
	a.Session.Width, a.Session.Height = 800, 600
	a.Selection = core.NewSelectionColors(a.Cloud.Colors, opts.Highlight)
	a.state = StateRunning
	return a
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "initializing", StateInitializing.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "disposed", StateDisposed.String())
	assert.Equal(t, "State(9)", State(9).String())
}

func TestInitWithoutWindowFails(t *testing.T) {
	a := NewApp(nil, testCloud(), DefaultOptions(), nil)
	err := a.Init()
	require.Error(t, err)
	assert.Equal(t, StateFailed, a.State())
	assert.Equal(t, "no window", a.Message())

	// Failed is terminal.
	assert.Error(t, a.Init())
	assert.NotPanics(t, a.Destroy)
	assert.Equal(t, StateDisposed, a.State())
}

func TestDestroyIsIdempotent(t *testing.T) {
	var zero App
	assert.NotPanics(t, func() {
		zero.Destroy()
		zero.Destroy()
	})

	a := runningApp(t)
	a.Destroy()
	a.Destroy()
	assert.Equal(t, StateDisposed, a.State())

	// Stale ticks and events after teardown are ignored.
	assert.NotPanics(t, func() {
		a.Frame()
		a.Resize(1024, 768)
		a.HandleWheel(core.WheelEvent{DeltaY: 10})
		a.HandlePointerDown(core.PointerEvent{}, false)
	})
	assert.False(t, a.Session.Interacted)
}

func TestRunReturnsWithoutWindow(t *testing.T) {
	a := runningApp(t)
	assert.NoError(t, a.Run(context.Background()))
}

func TestScreenshotAfterDestroy(t *testing.T) {
	a := runningApp(t)
	a.Destroy()
	assert.ErrorIs(t, <-a.RequestScreenshot(ScreenshotOptions{}), ErrDisposed)
}

func TestDestroyFailsPendingScreenshots(t *testing.T) {
	a := runningApp(t)
	first := a.RequestScreenshot(ScreenshotOptions{Filename: "a.png"})
	second := a.RequestScreenshot(ScreenshotOptions{Filename: "b.png"})
	a.Destroy()

	assert.ErrorIs(t, <-first, ErrDisposed)
	assert.ErrorIs(t, <-second, ErrDisposed)
	_, open := <-first
	assert.False(t, open)
}

func TestCancelledScreenshotLeavesQueue(t *testing.T) {
	a := runningApp(t)
	first := a.RequestScreenshot(ScreenshotOptions{Filename: "a.png"})
	second := a.RequestScreenshot(ScreenshotOptions{Filename: "b.png"})
	require.Len(t, a.captures, 2)

	assert.True(t, a.CancelScreenshot(first, context.Canceled))
	assert.ErrorIs(t, <-first, context.Canceled)
	require.Len(t, a.captures, 1)
	assert.Equal(t, "b.png", a.captures[0].opts.Filename)

	assert.False(t, a.CancelScreenshot(first, context.Canceled), "already withdrawn")

	a.Destroy()
	assert.ErrorIs(t, <-second, ErrDisposed)
}

func TestScreenshotBeforeInitIsRejected(t *testing.T) {
	a := NewApp(nil, testCloud(), DefaultOptions(), nil)
	err := <-a.RequestScreenshot(ScreenshotOptions{})
	assert.ErrorContains(t, err, "initializing")
}

func TestLassoSelectsAndRecolors(t *testing.T) {
	a := runningApp(t)
	var got []int
	calls := 0
	a.OnSelect = func(indices []int) {
		got = indices
		calls++
	}

	a.HandlePointerDown(core.PointerEvent{X: 350, Y: 250}, true)
	assert.True(t, a.Session.Interacted)
	assert.Equal(t, core.CameraIdle, a.Session.Camera.Mode)
	a.HandlePointerMove(core.PointerEvent{X: 450, Y: 250})
	a.HandlePointerMove(core.PointerEvent{X: 450, Y: 350})
	a.HandlePointerMove(core.PointerEvent{X: 350, Y: 350})
	a.HandlePointerUp(core.PointerEvent{X: 350, Y: 350})

	require.Equal(t, 1, calls)
	assert.Equal(t, []int{0}, got)
	assert.Equal(t, 1, a.Selected())
	assert.Equal(t, a.Options.Highlight[:], a.Selection.Colors()[0:4])
	assert.Equal(t, []float32{0.5, 0.5, 0.5, 1}, a.Selection.Colors()[4:8])
	assert.Nil(t, a.lasso)

	// An empty lasso deselects and still reports.
	a.HandlePointerDown(core.PointerEvent{X: 0, Y: 0}, true)
	a.HandlePointerMove(core.PointerEvent{X: 10, Y: 0})
	a.HandlePointerMove(core.PointerEvent{X: 10, Y: 10})
	a.HandlePointerUp(core.PointerEvent{X: 10, Y: 10})

	assert.Equal(t, 2, calls)
	assert.Equal(t, []int{}, got)
	assert.Equal(t, 0, a.Selected())
	assert.Equal(t, a.Selection.Original(), a.Selection.Colors())
}

func TestShortLassoSelectsNothing(t *testing.T) {
	a := runningApp(t)
	var got []int
	a.OnSelect = func(indices []int) { got = indices }

	a.HandlePointerDown(core.PointerEvent{X: 0, Y: 0}, true)
	a.HandlePointerMove(core.PointerEvent{X: 800, Y: 600})
	a.HandlePointerUp(core.PointerEvent{X: 800, Y: 600})

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestOtherButtonDoesNotCloseLasso(t *testing.T) {
	a := runningApp(t)
	calls := 0
	a.OnSelect = func([]int) { calls++ }

	a.HandlePointerDown(core.PointerEvent{X: 350, Y: 250, Button: core.PointerPrimary}, true)
	a.HandlePointerDown(core.PointerEvent{X: 350, Y: 250, Button: core.PointerSecondary}, false)
	assert.Equal(t, core.CameraPanning, a.Session.Camera.Mode)

	a.HandlePointerUp(core.PointerEvent{X: 350, Y: 250, Button: core.PointerSecondary})
	assert.True(t, a.lassoActive)
	assert.Equal(t, 0, calls)
	assert.Equal(t, core.CameraIdle, a.Session.Camera.Mode)

	// Moves keep drawing the lasso and leave the camera alone.
	target := a.Session.Camera.Target
	a.HandlePointerMove(core.PointerEvent{X: 450, Y: 250})
	a.HandlePointerMove(core.PointerEvent{X: 450, Y: 350})
	a.HandlePointerMove(core.PointerEvent{X: 350, Y: 350})
	assert.Equal(t, target, a.Session.Camera.Target)
	assert.Len(t, a.lasso, 4)

	a.HandlePointerUp(core.PointerEvent{X: 350, Y: 350, Button: core.PointerPrimary})
	assert.False(t, a.lassoActive)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, a.Selected())
	assert.Equal(t, core.CameraIdle, a.Session.Camera.Mode)
}

func TestPointerAndWheelDriveCamera(t *testing.T) {
	a := runningApp(t)
	a.HandlePointerDown(core.PointerEvent{X: 10, Y: 10}, false)
	assert.Equal(t, core.CameraOrbiting, a.Session.Camera.Mode)
	a.HandlePointerMove(core.PointerEvent{X: 110, Y: 10})
	assert.InDelta(t, 100*core.RotateSpeed, a.Session.Camera.Theta, 1e-5)
	a.HandlePointerUp(core.PointerEvent{X: 110, Y: 10})
	assert.Equal(t, core.CameraIdle, a.Session.Camera.Mode)

	a.HandleWheel(core.WheelEvent{DeltaY: -1, Mode: core.WheelDeltaLine})
	assert.InDelta(t, 2-0.16, a.Session.Camera.Radius, 1e-5)
}

func TestWheelFreezesAutoOrbit(t *testing.T) {
	a := runningApp(t)
	for i := 0; i < 10; i++ {
		_, a.Session, _ = Step(a.Session, a.Options.Lens, a.Options.PositionsScale)
	}
	angle := a.Session.AutoOrbit.Angle
	a.HandleWheel(core.WheelEvent{DeltaY: 1})
	assert.True(t, a.Session.Interacted)
	assert.Equal(t, angle, a.Session.Camera.Theta)
}

func TestClampSize(t *testing.T) {
	w, h := clampSize(800, 600, 8192)
	assert.Equal(t, [2]uint32{800, 600}, [2]uint32{w, h})
	w, h = clampSize(10000, 600, 8192)
	assert.Equal(t, [2]uint32{8192, 600}, [2]uint32{w, h})
	w, h = clampSize(-1, 0, 8192)
	assert.Equal(t, [2]uint32{0, 0}, [2]uint32{w, h})
	w, h = clampSize(10000, 10000, 0)
	assert.Equal(t, [2]uint32{10000, 10000}, [2]uint32{w, h})
}

func TestScreenshotSize(t *testing.T) {
	cases := []struct {
		name         string
		opts         ScreenshotOptions
		cw, ch       uint32
		long, lim    uint32
		wantW, wantH uint32
	}{
		{"auto landscape", ScreenshotOptions{}, 800, 600, 4096, 8192, 4096, 3072},
		{"auto portrait", ScreenshotOptions{}, 600, 800, 4096, 8192, 3072, 4096},
		{"auto clamped", ScreenshotOptions{}, 800, 600, 4096, 2048, 2048, 1536},
		{"explicit", ScreenshotOptions{Width: 100, Height: 50}, 800, 600, 4096, 8192, 100, 50},
		{"explicit on empty canvas", ScreenshotOptions{Width: 100, Height: 50}, 0, 0, 4096, 8192, 100, 50},
		{"width only", ScreenshotOptions{Width: 400}, 800, 600, 4096, 8192, 400, 300},
		{"height only", ScreenshotOptions{Height: 300}, 800, 600, 4096, 8192, 400, 300},
		{"explicit clamped", ScreenshotOptions{Width: 10000, Height: 5000}, 800, 600, 4096, 8192, 8192, 4096},
		{"no long edge", ScreenshotOptions{}, 800, 600, 0, 0, 800, 600},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, h, err := ScreenshotSize(tc.opts, tc.cw, tc.ch, tc.long, tc.lim)
			require.NoError(t, err)
			assert.Equal(t, tc.wantW, w)
			assert.Equal(t, tc.wantH, h)
		})
	}

	_, _, err := ScreenshotSize(ScreenshotOptions{}, 0, 600, 4096, 0)
	assert.ErrorIs(t, err, ErrEmptyCanvas)
	_, _, err = ScreenshotSize(ScreenshotOptions{Width: 10}, 800, 0, 4096, 0)
	assert.ErrorIs(t, err, ErrEmptyCanvas)
}

func TestWritePNG(t *testing.T) {
	o := NewLassoOverlay(32, 16, 32, 16)
	img := o.Draw(nil, "")
	name := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, writePNG(name, img))

	f, err := os.Open(name)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 32, decoded.Bounds().Dx())
	assert.Equal(t, 16, decoded.Bounds().Dy())

	assert.Error(t, writePNG(filepath.Join(t.TempDir(), "missing", "shot.png"), img))
}
