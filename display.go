package scattered

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/gogpu/gg"
	"github.com/google/uuid"
	"github.com/scattered3d/scattered/pointrt/rt/app"
)

type (
	State             = app.State
	ScreenshotOptions = app.ScreenshotOptions
)

const (
	StateInitializing = app.StateInitializing
	StateRunning      = app.StateRunning
	StateFailed       = app.StateFailed
	StateDisposed     = app.StateDisposed
)

var ErrDisposed = app.ErrDisposed

type DisplayOptions struct {
	Width  int
	Height int
	Title  string
	// Config defaults to DefaultConfig when nil.
	Config *Config

	OnSelect func(indices []int)
	OnKey    func(key glfw.Key, action glfw.Action, mods glfw.ModifierKey)

	// Logger defaults to a DefaultLogger tagged with the viewer id.
	Logger Logger
	// Rand picks palette backgrounds; seeded from the clock when nil.
	Rand *rand.Rand
}

// Viewer is one window showing one point cloud.
type Viewer struct {
	ID     uuid.UUID
	Window *glfw.Window
	Logger Logger

	app      *app.App
	cloud    PointCloud
	selected []int
}

// Display opens a window and starts rendering cloud. Invalid data or options
// are returned as errors. A missing GPU or window is not: the viewer is
// returned in StateFailed with Message describing the cause.
func Display(cloud PointCloud, opts DisplayOptions) (*Viewer, error) {
	if err := cloud.Validate(); err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	appOpts, err := cfg.AppOptions(rng)
	if err != nil {
		return nil, err
	}
	if opts.Width == 0 && opts.Height == 0 {
		opts.Width, opts.Height = 800, 600
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("window size %dx%d must be positive", opts.Width, opts.Height)
	}
	if opts.Title == "" {
		opts.Title = appOpts.TitlePrefix
	}

	v := &Viewer{ID: uuid.New(), Logger: opts.Logger}
	if v.Logger == nil {
		v.Logger = NewDefaultLogger(sessionPrefix(cfg.LogPrefix, v.ID), cfg.Debug)
	}
	if cfg.Debug {
		v.Logger.SetDebug(true)
		if dl, ok := v.Logger.(*DefaultLogger); ok {
			gg.SetLogger(dl.Slog())
		} else {
			gg.SetLogger(slog.Default())
		}
	}
	v.cloud = cloud.WithDefaultColors(cfg.pointColor())

	win, werr := NewWindow(opts.Width, opts.Height, opts.Title)
	v.Window = win
	v.app = app.NewApp(win, v.cloud, appOpts, v.Logger)
	v.app.OnKey = opts.OnKey
	v.app.OnSelect = func(indices []int) {
		v.selected = indices
		if opts.OnSelect != nil {
			opts.OnSelect(indices)
		}
	}

	if werr != nil {
		v.app.Abort(werr)
		return v, nil
	}
	// Init records its own failure in the viewer state.
	_ = v.app.Init()
	v.Logger.Debugf("viewer %s: %d points, state %s", v.ID, v.cloud.Len(), v.app.State())
	return v, nil
}

// Surface is the window the viewer draws into, nil if it could not be opened.
func (v *Viewer) Surface() *glfw.Window { return v.Window }

func (v *Viewer) State() State { return v.app.State() }

func (v *Viewer) Message() string { return v.app.Message() }

// Run renders until the window closes, ctx is done or the viewer is
// destroyed.
func (v *Viewer) Run(ctx context.Context) error {
	return v.app.Run(ctx)
}

// Frame renders a single frame after polling input.
func (v *Viewer) Frame() {
	if v.Window != nil {
		glfw.PollEvents()
	}
	v.app.Frame()
}

// Screenshot renders an offscreen capture and writes it as PNG, pumping
// frames on the calling thread until the file is written. Cancelling ctx
// withdraws a capture that has not been rendered yet; once rendering is done
// Screenshot waits for the file write and returns its result.
func (v *Viewer) Screenshot(ctx context.Context, opts ScreenshotOptions) error {
	done := v.app.RequestScreenshot(opts)
	for {
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			if v.app.CancelScreenshot(done, ctx.Err()) {
				return ctx.Err()
			}
			return <-done
		default:
		}
		if v.app.State() != StateRunning {
			// Destroy fails pending requests; anything else is stuck.
			select {
			case err := <-done:
				return err
			default:
				return fmt.Errorf("screenshot: viewer is %s", v.app.State())
			}
		}
		v.Frame()
	}
}

// Selected returns the indices of the last lasso selection.
func (v *Viewer) Selected() []int {
	return append([]int(nil), v.selected...)
}

// SelectedPoints copies the selected points out of the displayed cloud.
func (v *Viewer) SelectedPoints() PointCloud {
	return v.cloud.Subset(v.selected)
}

// Destroy releases the GPU and closes the window. Later calls do nothing.
func (v *Viewer) Destroy() {
	if v == nil || v.app == nil {
		return
	}
	if v.app.State() == StateDisposed {
		return
	}
	v.app.Destroy()
	CloseWindow(v.Window)
	v.Window = nil
}

// RequestScreenshot queues a capture without waiting for it. It is safe to
// call from input callbacks.
func (v *Viewer) RequestScreenshot(opts ScreenshotOptions) <-chan error {
	return v.app.RequestScreenshot(opts)
}
