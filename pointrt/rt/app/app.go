package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/scattered3d/scattered/pointrt/rt/core"
	"github.com/scattered3d/scattered/pointrt/rt/gpu"
)

var ErrDisposed = errors.New("viewer disposed")

type State int

const (
	StateInitializing State = iota
	StateRunning
	StateFailed
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Logger is the subset of the viewer logger the renderer writes to.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Infof(string, ...any)  {}
func (nopLogger) Warnf(string, ...any)  {}
func (nopLogger) Errorf(string, ...any) {}

type Options struct {
	Lens           core.Lens
	PositionsScale float32
	Background     wgpu.Color
	Highlight      [4]float32
	AutoOrbit      core.AutoOrbit
	ShowStatus     bool
	// ScreenshotLongEdge is the long edge used when a screenshot asks for
	// no explicit size.
	ScreenshotLongEdge uint32
	TitlePrefix        string
}

func DefaultOptions() Options {
	return Options{
		Lens:               core.DefaultLens(),
		PositionsScale:     0.1,
		Background:         wgpu.Color{R: 0, G: 0, B: 0, A: 1},
		Highlight:          [4]float32{1, 0.85, 0.1, 1},
		AutoOrbit:          core.NewAutoOrbit(),
		ShowStatus:         true,
		ScreenshotLongEdge: 4096,
		TitlePrefix:        "scattered",
	}
}

// App renders one point cloud into one GLFW window. All methods must run on
// the thread that owns the window.
type App struct {
	Window  *glfw.Window
	Logger  Logger
	Options Options
	Cloud   core.PointCloud

	// OnSelect receives every lasso result, including empty ones.
	OnSelect func(indices []int)
	// OnKey receives key events after the built-in handling.
	OnKey func(key glfw.Key, action glfw.Action, mods glfw.ModifierKey)

	Instance *wgpu.Instance
	Surface  *wgpu.Surface
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Config   *wgpu.SurfaceConfiguration

	Resources *gpu.PointBufferManager
	Depth     gpu.DepthTarget
	Overlay   *gpu.OverlayPass
	Canvas    *LassoOverlay
	Selection *core.SelectionColors

	Session Session

	lasso        core.LassoPath
	lassoActive  bool
	lassoButton  core.PointerButton
	overlayDirty bool
	captures     []*captureRequest
	maxTexture   uint32

	state       State
	message     string
	destroyOnce sync.Once
}

func NewApp(window *glfw.Window, cloud core.PointCloud, opts Options, logger Logger) *App {
	if logger == nil {
		logger = nopLogger{}
	}
	return &App{
		Window:  window,
		Logger:  logger,
		Options: opts,
		Cloud:   cloud,
		Session: NewSession(0, 0, opts.AutoOrbit),
		state:   StateInitializing,
	}
}

func (a *App) State() State { return a.state }

// Message is the failure text shown to the user, empty unless Failed.
func (a *App) Message() string { return a.message }

// Init acquires the GPU and builds every resource. On failure the app moves
// to StateFailed, shows the message in the window title and returns the
// error; it never panics.
func (a *App) Init() error {
	if a.state != StateInitializing {
		return fmt.Errorf("init: app is %s", a.state)
	}
	if err := a.initGPU(); err != nil {
		a.fail(err)
		return err
	}
	a.state = StateRunning
	a.attachCallbacks()
	a.Logger.Infof("renderer ready: %d points, %dx%d", a.Cloud.Len(), a.Session.Width, a.Session.Height)
	return nil
}

func (a *App) initGPU() error {
	if a.Window == nil {
		return errors.New("no window")
	}

	a.Instance = wgpu.CreateInstance(nil)
	if a.Instance == nil {
		return errors.New("WebGPU is not available")
	}
	a.Surface = a.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(a.Window))
	if a.Surface == nil {
		return errors.New("could not create a WebGPU surface")
	}

	var err error
	a.Adapter, err = a.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: a.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return fmt.Errorf("no suitable GPU adapter: %w", err)
	}
	a.Device, err = a.Adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "Points Device"})
	if err != nil {
		return fmt.Errorf("could not acquire GPU device: %w", err)
	}
	a.Queue = a.Device.GetQueue()
	a.maxTexture = a.Device.GetLimits().Limits.MaxTextureDimension2D

	caps := a.Surface.GetCapabilities(a.Adapter)
	if len(caps.Formats) == 0 || len(caps.AlphaModes) == 0 {
		return errors.New("surface reports no usable formats")
	}

	fbw, fbh := a.Window.GetFramebufferSize()
	width, height := clampSize(fbw, fbh, a.maxTexture)
	a.Session.Width, a.Session.Height = width, height

	a.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       width,
		Height:      height,
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	if width > 0 && height > 0 {
		a.Surface.Configure(a.Adapter, a.Device, a.Config)
	}

	a.Resources = gpu.NewPointBufferManager(a.Device)
	if err := a.Resources.UploadPoints(a.Cloud); err != nil {
		return fmt.Errorf("upload points: %w", err)
	}
	if err := a.Resources.CreatePipeline(a.Config.Format); err != nil {
		return err
	}
	if err := a.Resources.CreateBindGroups(); err != nil {
		return err
	}
	a.Selection = core.NewSelectionColors(a.Cloud.Colors, a.Options.Highlight)

	a.Overlay, err = gpu.NewOverlayPass(a.Device, a.Config.Format)
	if err != nil {
		return err
	}
	ww, wh := a.Window.GetSize()
	a.Canvas = NewLassoOverlay(int(max(width, 1)), int(max(height, 1)), ww, wh)
	a.Canvas.ShowStatus = a.Options.ShowStatus
	a.overlayDirty = true

	return a.resizeTargets(width, height)
}

func (a *App) resizeTargets(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	if err := a.Depth.Ensure(a.Device, width, height); err != nil {
		return err
	}
	if err := a.Overlay.Resize(width, height); err != nil {
		return err
	}
	ww, wh := a.Window.GetSize()
	if err := a.Canvas.Resize(int(width), int(height), ww, wh); err != nil {
		return err
	}
	a.overlayDirty = true
	return nil
}

// Abort moves an app that has not started yet to StateFailed with err as the
// user-visible message.
func (a *App) Abort(err error) {
	if a.state != StateInitializing {
		return
	}
	a.fail(err)
}

func (a *App) fail(err error) {
	a.state = StateFailed
	a.message = err.Error()
	a.Logger.Errorf("renderer failed: %v", err)
	if a.Window != nil {
		a.Window.SetTitle(fmt.Sprintf("%s: %s", a.Options.TitlePrefix, a.message))
	}
}

// Run drives frames until the window closes, ctx is done or the app is
// destroyed. A failed app keeps the window alive so the message stays
// visible.
func (a *App) Run(ctx context.Context) error {
	for a.Window != nil && !a.Window.ShouldClose() {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch a.state {
		case StateDisposed:
			return ErrDisposed
		case StateRunning:
			glfw.PollEvents()
			a.Frame()
		default:
			glfw.WaitEventsTimeout(0.1)
		}
	}
	return nil
}

// Frame renders one tick. Pending screenshots are serviced first so they see
// the same state as the frame that follows them.
func (a *App) Frame() {
	if a.state != StateRunning {
		return
	}
	a.serviceCaptures()

	frame, next, ok := Step(a.Session, a.Options.Lens, a.Options.PositionsScale)
	if !ok {
		return
	}
	a.Session = next
	a.render(frame)
}

func (a *App) render(frame Frame) {
	if err := a.Resources.WriteUniforms(frame.Uniforms); err != nil {
		a.Logger.Errorf("write uniforms: %v", err)
		return
	}
	a.refreshOverlay()

	nextTexture, err := a.Surface.GetCurrentTexture()
	if err != nil {
		a.Logger.Errorf("GetCurrentTexture failed: %v", err)
		return
	}
	view, err := nextTexture.CreateView(nil)
	if err != nil {
		a.Logger.Errorf("CreateView failed: %v", err)
		return
	}
	defer view.Release()

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		a.Logger.Errorf("CreateCommandEncoder failed: %v", err)
		return
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: a.Options.Background,
		}},
		DepthStencilAttachment: a.Depth.Attachment(),
	})
	if err := a.Resources.Encode(pass, a.Config.Format, false); err != nil {
		a.Logger.Errorf("encode points: %v", err)
	}
	a.Overlay.Draw(pass)
	if err := pass.End(); err != nil {
		a.Logger.Errorf("render pass End failed: %v", err)
		return
	}

	cmd, err := encoder.Finish(nil)
	if err != nil {
		a.Logger.Errorf("encoder Finish failed: %v", err)
		return
	}
	defer cmd.Release()
	a.Queue.Submit(cmd)
	a.Surface.Present()
}

// Resize reconfigures the surface for a new framebuffer size and redraws
// immediately with the current pose.
func (a *App) Resize(width, height int) {
	if a.state != StateRunning {
		return
	}
	w, h := clampSize(width, height, a.maxTexture)
	a.Session.Width, a.Session.Height = w, h
	if w == 0 || h == 0 {
		return
	}

	a.Config.Width, a.Config.Height = w, h
	a.Surface.Configure(a.Adapter, a.Device, a.Config)
	if err := a.resizeTargets(w, h); err != nil {
		a.Logger.Errorf("resize to %dx%d: %v", w, h, err)
		return
	}
	if frame, ok := a.Session.Pose(a.Options.Lens, a.Options.PositionsScale); ok {
		a.render(frame)
	}
}

// clampSize converts a framebuffer size to texture dimensions no larger than
// limit. A zero limit disables clamping.
func clampSize(width, height int, limit uint32) (uint32, uint32) {
	clamp := func(v int) uint32 {
		if v <= 0 {
			return 0
		}
		u := uint32(v)
		if limit > 0 && u > limit {
			return limit
		}
		return u
	}
	return clamp(width), clamp(height)
}

// Destroy releases everything in reverse order of creation. Only the first
// call has an effect; it is safe after a failed Init and on a zero App.
func (a *App) Destroy() {
	a.destroyOnce.Do(func() {
		a.state = StateDisposed
		a.detachCallbacks()

		for _, req := range a.captures {
			req.finish(ErrDisposed)
		}
		a.captures = nil
		a.lasso, a.lassoActive = nil, false

		if a.Overlay != nil {
			a.Overlay.Release()
			a.Overlay = nil
		}
		a.Depth.Release()
		if a.Resources != nil {
			a.Resources.Release()
			a.Resources = nil
		}
		if a.Surface != nil {
			a.Surface.Release()
			a.Surface = nil
		}
		if a.Queue != nil {
			a.Queue.Release()
			a.Queue = nil
		}
		if a.Device != nil {
			a.Device.Release()
			a.Device = nil
		}
		if a.Adapter != nil {
			a.Adapter.Release()
			a.Adapter = nil
		}
		if a.Instance != nil {
			a.Instance.Release()
			a.Instance = nil
		}
		if a.Logger != nil {
			a.Logger.Debugf("renderer destroyed")
		}
	})
}
