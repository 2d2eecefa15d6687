package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/gogpu/gg"
	"github.com/scattered3d/scattered/pointrt/rt/core"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// LassoOverlay rasterizes the 2D layer drawn above the points: the lasso
// outline while a gesture is active and an optional status line. It draws
// in framebuffer pixels; lasso vertices arrive in window coordinates.
type LassoOverlay struct {
	ShowStatus bool

	ctx    *gg.Context
	face   font.Face
	scaleX float64
	scaleY float64
}

func NewLassoOverlay(fbWidth, fbHeight, winWidth, winHeight int) *LassoOverlay {
	o := &LassoOverlay{
		ctx:  gg.NewContext(fbWidth, fbHeight),
		face: basicfont.Face7x13,
	}
	o.setScale(fbWidth, fbHeight, winWidth, winHeight)
	return o
}

func (o *LassoOverlay) setScale(fbWidth, fbHeight, winWidth, winHeight int) {
	o.scaleX, o.scaleY = 1, 1
	if winWidth > 0 && winHeight > 0 {
		o.scaleX = float64(fbWidth) / float64(winWidth)
		o.scaleY = float64(fbHeight) / float64(winHeight)
	}
}

func (o *LassoOverlay) Resize(fbWidth, fbHeight, winWidth, winHeight int) error {
	if err := o.ctx.Resize(fbWidth, fbHeight); err != nil {
		return fmt.Errorf("overlay canvas: %w", err)
	}
	o.setScale(fbWidth, fbHeight, winWidth, winHeight)
	return nil
}

// Draw renders the overlay from scratch. path may be empty.
func (o *LassoOverlay) Draw(path core.LassoPath, status string) *image.RGBA {
	dc := o.ctx
	dc.Clear()
	dc.ClearPath()

	if len(path) >= 2 {
		dc.MoveTo(float64(path[0][0])*o.scaleX, float64(path[0][1])*o.scaleY)
		for _, v := range path[1:] {
			dc.LineTo(float64(v[0])*o.scaleX, float64(v[1])*o.scaleY)
		}
		dc.ClosePath()

		dc.SetDash()
		dc.SetRGBA(1, 1, 1, 0.12)
		_ = dc.FillPreserve()

		dc.SetLineWidth(1.5 * o.scaleX)
		dc.SetDash(6*o.scaleX, 4*o.scaleX)
		dc.SetRGBA(1, 1, 1, 0.9)
		_ = dc.Stroke()
		dc.SetDash()
	}

	img := toRGBA(dc.Image())
	if o.ShowStatus && status != "" {
		o.drawStatus(img, status)
	}
	return img
}

func (o *LassoOverlay) drawStatus(img *image.RGBA, status string) {
	m := o.face.Metrics()
	pad := 6
	width := font.MeasureString(o.face, status).Ceil()
	height := (m.Ascent + m.Descent).Ceil()

	bg := image.Rect(pad, pad, pad*3+width, pad*3+height)
	draw.Draw(img, bg, image.NewUniform(color.RGBA{0, 0, 0, 140}), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{235, 235, 235, 255}),
		Face: o.face,
		Dot:  fixed.P(pad*2, pad*2+m.Ascent.Ceil()),
	}
	d.DrawString(status)
}

func toRGBA(src image.Image) *image.RGBA {
	if rgba, ok := src.(*image.RGBA); ok {
		return rgba
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// StatusLine is the text shown in the overlay corner.
func StatusLine(points, selected int) string {
	return fmt.Sprintf("%d points, %d selected", points, selected)
}

// refreshOverlay re-rasterizes and uploads the overlay when the lasso or the
// selection changed since the last frame.
func (a *App) refreshOverlay() {
	if !a.overlayDirty || a.Canvas == nil || a.Overlay == nil {
		return
	}
	img := a.Canvas.Draw(a.lasso, StatusLine(a.Cloud.Len(), a.Selected()))
	if err := a.Overlay.Upload(a.Queue, img); err != nil {
		a.Logger.Warnf("overlay upload: %v", err)
		return
	}
	a.overlayDirty = false
}
