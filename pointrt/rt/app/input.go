package app

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/scattered3d/scattered/pointrt/rt/core"
)

// HandlePointerDown starts a lasso when lasso is set and the primary button
// is pressed; otherwise it forwards to the camera. Any press ends the
// auto-orbit.
func (a *App) HandlePointerDown(e core.PointerEvent, lasso bool) {
	if a.state != StateRunning {
		return
	}
	a.Session = a.Session.Interact()
	if lasso && e.Button == core.PointerPrimary && !a.lassoActive {
		a.lassoActive = true
		a.lassoButton = e.Button
		a.lasso = core.LassoPath{}.Append(e.X, e.Y)
		a.overlayDirty = true
		return
	}
	a.Session.Camera = a.Session.Camera.PointerDown(e)
}

func (a *App) HandlePointerMove(e core.PointerEvent) {
	if a.state != StateRunning {
		return
	}
	if a.lassoActive {
		a.lasso = a.lasso.Append(e.X, e.Y)
		a.overlayDirty = true
		return
	}
	a.Session.Camera = a.Session.Camera.PointerMove(e)
}

func (a *App) HandlePointerUp(e core.PointerEvent) {
	if a.state != StateRunning {
		return
	}
	// Only the button that started the lasso closes it.
	if a.lassoActive && e.Button == a.lassoButton {
		a.lassoActive = false
		a.finishLasso()
		return
	}
	a.Session.Camera = a.Session.Camera.PointerUp(e)
}

func (a *App) HandleWheel(e core.WheelEvent) {
	if a.state != StateRunning {
		return
	}
	a.Session = a.Session.Interact()
	a.Session.Camera = a.Session.Camera.Wheel(e)
}

// finishLasso picks with the matrices of the current pose, at window
// coordinates, then recolors and reports the selection.
func (a *App) finishLasso() {
	path := a.lasso
	a.lasso = nil
	a.overlayDirty = true

	w, h := a.windowSize()
	proj, view := a.Session.Matrices(a.Options.Lens, w, h)
	indices := core.FindPointsInLasso(a.Cloud.X, a.Cloud.Y, a.Cloud.Z, proj, view, w, h, a.Options.PositionsScale, path)
	a.Logger.Debugf("lasso with %d vertices selected %d points", len(path), len(indices))

	if a.Selection != nil {
		colors := a.Selection.Apply(indices)
		if a.Resources != nil {
			if err := a.Resources.WriteColors(colors); err != nil {
				a.Logger.Errorf("write selection colors: %v", err)
			}
		}
	}
	if a.OnSelect != nil {
		a.OnSelect(indices)
	}
}

// windowSize is the size pointer coordinates are measured in.
func (a *App) windowSize() (float32, float32) {
	if a.Window != nil {
		w, h := a.Window.GetSize()
		return float32(w), float32(h)
	}
	return float32(a.Session.Width), float32(a.Session.Height)
}

// Selected reports the size of the current selection.
func (a *App) Selected() int {
	if a.Selection == nil {
		return 0
	}
	return a.Selection.Selected()
}

func pointerButton(b glfw.MouseButton) core.PointerButton {
	switch b {
	case glfw.MouseButtonRight:
		return core.PointerSecondary
	case glfw.MouseButtonMiddle:
		return core.PointerAuxiliary
	default:
		return core.PointerPrimary
	}
}

// attachCallbacks routes GLFW input to the handlers. Shift+drag draws a
// lasso, Ctrl+drag pans.
func (a *App) attachCallbacks() {
	if a.Window == nil {
		return
	}
	a.Window.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		a.Resize(width, height)
	})
	a.Window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		x, y := w.GetCursorPos()
		e := core.PointerEvent{
			X:      float32(x),
			Y:      float32(y),
			Button: pointerButton(button),
			Pan:    mods&glfw.ModControl != 0,
		}
		switch action {
		case glfw.Press:
			a.HandlePointerDown(e, mods&glfw.ModShift != 0)
		case glfw.Release:
			a.HandlePointerUp(e)
		}
	})
	a.Window.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		a.HandlePointerMove(core.PointerEvent{X: float32(x), Y: float32(y)})
	})
	a.Window.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		// Scrolling up moves the camera closer.
		a.HandleWheel(core.WheelEvent{DeltaY: float32(-yoff), Mode: core.WheelDeltaLine})
	})
	a.Window.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, mods glfw.ModifierKey) {
		if a.state != StateRunning {
			return
		}
		if key == glfw.KeyEscape && action == glfw.Press && a.lassoActive {
			a.lassoActive = false
			a.lasso = nil
			a.overlayDirty = true
			return
		}
		if a.OnKey != nil {
			a.OnKey(key, action, mods)
		}
	})
}

// detachCallbacks removes the resize callback first so no resize can run
// against resources being released.
func (a *App) detachCallbacks() {
	if a.Window == nil {
		return
	}
	a.Window.SetFramebufferSizeCallback(nil)
	a.Window.SetMouseButtonCallback(nil)
	a.Window.SetCursorPosCallback(nil)
	a.Window.SetScrollCallback(nil)
	a.Window.SetKeyCallback(nil)
}
