package window

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

var errClosed = errors.New("window: already closed")

// MouseButton identifies the button of a press or release.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
)

// Events holds the callbacks a Window dispatches from its message loop. Nil entries are skipped.
// Assign them before Run; every callback fires on the thread that created the window.
type Events struct {
	// Update runs once per loop iteration after pending events are handled.
	Update func()

	// Resize reports the new framebuffer size in pixels.
	Resize func(width, height int)

	// Scroll reports vertical wheel movement, positive away from the user.
	Scroll func(delta float32)

	KeyDown func(key uint32)
	KeyUp   func(key uint32)

	MouseDown func(button MouseButton, x, y int32)
	MouseUp   func(button MouseButton, x, y int32)
	MouseMove func(x, y int32)
}

// Window is a native window with a WebGPU-capable surface.
type Window interface {
	// Events returns the callback table. The returned pointer stays valid for the window's life.
	Events() *Events

	// SurfaceDescriptor describes the native surface for wgpu.Instance.CreateSurface.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// Size returns the framebuffer size in pixels, which differs from the window size on
	// high-DPI displays. Size and PixelRatio are safe to call from any goroutine.
	Size() (width, height int)

	// PixelRatio returns framebuffer pixels per screen coordinate.
	PixelRatio() float32

	// Running reports whether the window is open and no close was requested.
	Running() bool

	// Run polls events and calls Events.Update until the window closes. It must be called from
	// the goroutine that created the window.
	Run()

	Close() error
}

// surfaceSize is the framebuffer size and pixel ratio, written by the message loop and read by
// any goroutine.
type surfaceSize struct {
	mu            sync.RWMutex
	width, height int
	pixelRatio    float32
}

// set stores a framebuffer size measured against a window width in screen coordinates.
func (s *surfaceSize) set(width, height, windowWidth int) {
	ratio := float32(1)
	if width > 0 && windowWidth > 0 {
		ratio = float32(width) / float32(windowWidth)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height, s.pixelRatio = width, height, ratio
}

func (s *surfaceSize) get() (width, height int, pixelRatio float32) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.width, s.height, s.pixelRatio
}

type glfwWindow struct {
	win    *glfw.Window
	events Events
	size   surfaceSize
	closed bool
}

var _ Window = &glfwWindow{}

// NewWindow opens a GLFW window without a client API; the renderer attaches its own surface.
// The calling goroutine is locked to its OS thread, which GLFW requires for all later calls.
func NewWindow(options ...Option) (Window, error) {
	cfg := defaultConfig()
	for _, opt := range options {
		opt(&cfg)
	}

	runtime.LockOSThread()
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("init glfw: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(cfg.width, cfg.height, cfg.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	win.SetSizeLimits(cfg.minWidth, cfg.minHeight, cfg.maxWidth, cfg.maxHeight)

	w := &glfwWindow{win: win}
	w.syncSize()
	w.bind()
	return w, nil
}

func (w *glfwWindow) bind() {
	w.win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyUnknown {
			return
		}
		switch action {
		case glfw.Press, glfw.Repeat:
			if w.events.KeyDown != nil {
				w.events.KeyDown(uint32(key))
			}
		case glfw.Release:
			if w.events.KeyUp != nil {
				w.events.KeyUp(uint32(key))
			}
		}
	})

	w.win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		var b MouseButton
		switch button {
		case glfw.MouseButtonLeft:
			b = MouseLeft
		case glfw.MouseButtonRight:
			b = MouseRight
		case glfw.MouseButtonMiddle:
			b = MouseMiddle
		default:
			return
		}
		fn := w.events.MouseDown
		if action == glfw.Release {
			fn = w.events.MouseUp
		}
		if fn != nil {
			x, y := w.win.GetCursorPos()
			fn(b, int32(x), int32(y))
		}
	})

	w.win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if w.events.MouseMove != nil {
			w.events.MouseMove(int32(x), int32(y))
		}
	})

	w.win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		if w.events.Scroll != nil {
			w.events.Scroll(float32(yoff))
		}
	})

	// Framebuffer rather than window size: the surface is configured in pixels.
	w.win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.syncSize()
		if w.events.Resize != nil {
			w.events.Resize(width, height)
		}
	})
}

func (w *glfwWindow) syncSize() {
	width, height := w.win.GetFramebufferSize()
	windowWidth, _ := w.win.GetSize()
	w.size.set(width, height, windowWidth)
}

func (w *glfwWindow) Events() *Events {
	return &w.events
}

func (w *glfwWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.closed {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(w.win)
}

func (w *glfwWindow) Size() (int, int) {
	width, height, _ := w.size.get()
	return width, height
}

func (w *glfwWindow) PixelRatio() float32 {
	_, _, ratio := w.size.get()
	return ratio
}

func (w *glfwWindow) Running() bool {
	return !w.closed && !w.win.ShouldClose()
}

func (w *glfwWindow) Run() {
	for w.Running() {
		glfw.PollEvents()
		if !w.Running() {
			return
		}
		if w.events.Update != nil {
			w.events.Update()
		}
		runtime.Gosched()
	}
}

func (w *glfwWindow) Close() error {
	if w.closed {
		return errClosed
	}
	w.closed = true
	w.win.Destroy()
	glfw.Terminate()
	return nil
}
