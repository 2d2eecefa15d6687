package app

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/scattered3d/scattered/pointrt/rt/gpu"
)

const DefaultScreenshotFilename = "scattered.png"

// ScreenshotOptions selects the output file and size. With neither Width nor
// Height set the long edge of the canvas is scaled to the configured
// screenshot size; with one of them set the other follows the canvas aspect.
type ScreenshotOptions struct {
	Filename string
	Width    uint32
	Height   uint32
}

type captureRequest struct {
	opts ScreenshotOptions
	done chan error
}

func newCaptureRequest(opts ScreenshotOptions) *captureRequest {
	return &captureRequest{opts: opts, done: make(chan error, 1)}
}

func (r *captureRequest) finish(err error) {
	r.done <- err
	close(r.done)
}

// RequestScreenshot queues a capture for the next frame boundary. The
// returned channel yields exactly one value once the file is written.
func (a *App) RequestScreenshot(opts ScreenshotOptions) <-chan error {
	req := newCaptureRequest(opts)
	switch a.state {
	case StateRunning:
		a.captures = append(a.captures, req)
	case StateDisposed:
		req.finish(ErrDisposed)
	default:
		req.finish(fmt.Errorf("screenshot: renderer is %s", a.state))
	}
	return req.done
}

// CancelScreenshot withdraws a queued request, finishing its channel with
// err. It reports false once the request has left the queue, when its result
// is already on the way.
func (a *App) CancelScreenshot(done <-chan error, err error) bool {
	for i, req := range a.captures {
		if req.done != done {
			continue
		}
		a.captures = append(a.captures[:i], a.captures[i+1:]...)
		req.finish(err)
		return true
	}
	return false
}

func (a *App) serviceCaptures() {
	reqs := a.captures
	a.captures = nil
	for _, req := range reqs {
		img, err := a.renderOffscreen(req.opts)
		if err != nil {
			req.finish(err)
			continue
		}
		name := req.opts.Filename
		if name == "" {
			name = DefaultScreenshotFilename
		}
		go func(req *captureRequest) {
			req.finish(writePNG(name, img))
		}(req)
	}
}

// renderOffscreen draws the current pose into an offscreen target with its
// own uniform snapshot and reads the pixels back.
func (a *App) renderOffscreen(opts ScreenshotOptions) (*image.RGBA, error) {
	w, h, err := ScreenshotSize(opts, a.Session.Width, a.Session.Height, a.Options.ScreenshotLongEdge, a.maxTexture)
	if err != nil {
		return nil, err
	}
	snapshot := a.Session
	snapshot.Width, snapshot.Height = w, h
	frame, _ := snapshot.Pose(a.Options.Lens, a.Options.PositionsScale)

	if err := a.Resources.WriteCaptureUniforms(frame.Uniforms); err != nil {
		return nil, err
	}
	format := gpu.CaptureFormat(a.Config.Format)
	if err := a.Resources.CreatePipeline(format); err != nil {
		return nil, err
	}
	target, err := gpu.NewCaptureTarget(a.Device, format, w, h)
	if err != nil {
		return nil, err
	}
	defer target.Release()

	encoder, err := a.Device.CreateCommandEncoder(nil)
	if err != nil {
		return nil, fmt.Errorf("capture encoder: %w", err)
	}
	defer encoder.Release()

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       target.View,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: a.Options.Background,
		}},
		DepthStencilAttachment: target.Depth.Attachment(),
	})
	encodeErr := a.Resources.Encode(pass, format, true)
	if err := pass.End(); err != nil {
		return nil, fmt.Errorf("capture pass: %w", err)
	}
	if encodeErr != nil {
		return nil, encodeErr
	}
	target.CopyToReadback(encoder)

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return nil, fmt.Errorf("capture finish: %w", err)
	}
	defer cmd.Release()
	a.Queue.Submit(cmd)

	return target.Read(a.Device)
}

var ErrEmptyCanvas = errors.New("screenshot: canvas has no area")

// ScreenshotSize resolves the output size for opts on a canvas of the given
// size. Both edges are scaled down together so neither exceeds limit.
func ScreenshotSize(opts ScreenshotOptions, canvasW, canvasH, longEdge, limit uint32) (uint32, uint32, error) {
	w, h := float64(opts.Width), float64(opts.Height)
	cw, ch := float64(canvasW), float64(canvasH)

	switch {
	case w > 0 && h > 0:
	case w > 0 || h > 0:
		if cw == 0 || ch == 0 {
			return 0, 0, ErrEmptyCanvas
		}
		if w > 0 {
			h = w * ch / cw
		} else {
			w = h * cw / ch
		}
	default:
		if cw == 0 || ch == 0 {
			return 0, 0, ErrEmptyCanvas
		}
		edge := float64(longEdge)
		if edge == 0 {
			edge = math.Max(cw, ch)
		}
		if cw >= ch {
			w, h = edge, edge*ch/cw
		} else {
			w, h = edge*cw/ch, edge
		}
	}

	if limit > 0 {
		if long := math.Max(w, h); long > float64(limit) {
			k := float64(limit) / long
			w, h = w*k, h*k
		}
	}
	return uint32(math.Max(1, math.Round(w))), uint32(math.Max(1, math.Round(h))), nil
}

func writePNG(name string, img image.Image) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("screenshot: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("screenshot: encode %s: %w", name, err)
	}
	return f.Close()
}
