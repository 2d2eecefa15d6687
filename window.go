package scattered

import (
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// openWindows counts windows created by NewWindow and not yet closed. GLFW
// stays initialized while it is non-zero. Main thread only.
var openWindows int

func retainGLFW() {
	openWindows++
}

// releaseGLFW reports whether the last window went away.
func releaseGLFW() bool {
	if openWindows == 0 {
		return false
	}
	openWindows--
	return openWindows == 0
}

// NewWindow initializes GLFW if needed and opens a resizable window without
// a client API, ready for a WebGPU surface. It must be called on the main
// thread. Close it with CloseWindow.
func NewWindow(width, height int, title string) (*glfw.Window, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("window size %dx%d must be positive", width, height)
	}
	if openWindows == 0 {
		if err := glfw.Init(); err != nil {
			return nil, fmt.Errorf("glfw init: %w", err)
		}
	}

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	win, err := glfw.CreateWindow(width, height, title, nil, nil)
	if err != nil {
		if openWindows == 0 {
			glfw.Terminate()
		}
		return nil, fmt.Errorf("create window: %w", err)
	}
	retainGLFW()
	return win, nil
}

// CloseWindow destroys win and terminates GLFW once no other window is open.
func CloseWindow(win *glfw.Window) {
	if win == nil {
		return
	}
	win.Destroy()
	if releaseGLFW() {
		glfw.Terminate()
	}
}
