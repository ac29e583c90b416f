package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/oxy-particles/engine/profiler"
	"github.com/Carmen-Shannon/oxy-particles/engine/window"
	"golang.org/x/sync/errgroup"
)

// idleFrameInterval paces the render loop while nothing can be drawn.
const idleFrameInterval = time.Second / 60

// Engine owns the three threads of the application: the window message loop on the calling
// goroutine, a render loop that runs one Context frame per iteration, and a fixed-rate tick loop
// for input handling.
type Engine interface {
	Window() window.Window
	Profiler() *profiler.Profiler

	// SetProfiling turns the periodic profiler report on or off.
	SetProfiling(enabled bool)
	Profiling() bool

	// SetFrameLimit caps the render loop at fps frames per second; 0 removes the cap. A vsync
	// present mode already paces the loop to the display.
	SetFrameLimit(fps float64)

	// SetTickCallback registers the function the tick loop calls with the elapsed seconds.
	// Register it before Run.
	SetTickCallback(callback func(deltaTime float32))

	// SetContext attaches the particle cloud the render loop drives, releasing any previous one
	// once its frame in progress, if any, has finished. Until a context is attached the loop only
	// clears the surface.
	SetContext(ctx *Context)
	Context() *Context

	// Run blocks until the window closes or Quit is called, then releases the attached context
	// and closes the window. Call it from the goroutine that created the window.
	Run()

	// Quit stops every loop. It may be called from any goroutine, more than once.
	Quit()
}

type engine struct {
	window   window.Window
	renderer FrameRenderer
	profiler *profiler.Profiler

	ctx    context.Context
	cancel context.CancelFunc

	tickInterval time.Duration
	frameLimit   atomic.Int64 // time.Duration
	profiling    atomic.Bool
	onTick       func(deltaTime float32)

	current atomic.Pointer[Context]
	errs    frameErrors

	windowClosed bool
}

var _ Engine = &engine{}

// NewEngine builds an engine. Nothing runs until Run.
func NewEngine(options ...Option) Engine {
	ctx, cancel := context.WithCancel(context.Background())
	e := &engine{
		profiler:     profiler.NewProfiler(),
		ctx:          ctx,
		cancel:       cancel,
		tickInterval: time.Second / 60,
	}
	for _, opt := range options {
		opt(e)
	}

	if e.window != nil {
		ev := e.window.Events()
		ev.Resize = func(width, height int) {
			e.resize(width, height, e.window.PixelRatio())
		}
		// GLFW windows may only be destroyed from the thread running their message loop.
		ev.Update = func() {
			if e.ctx.Err() != nil {
				e.closeWindow()
			}
		}
	}
	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Profiler() *profiler.Profiler {
	return e.profiler
}

func (e *engine) SetProfiling(enabled bool) {
	e.profiling.Store(enabled)
}

func (e *engine) Profiling() bool {
	return e.profiling.Load()
}

func (e *engine) SetFrameLimit(fps float64) {
	e.frameLimit.Store(int64(interval(fps, 0)))
}

func (e *engine) SetTickCallback(callback func(deltaTime float32)) {
	e.onTick = callback
}

func (e *engine) SetContext(ctx *Context) {
	if ctx != nil && e.window != nil {
		w, h := e.window.Size()
		ctx.Resize(w, h, e.window.PixelRatio())
	}
	if old := e.current.Swap(ctx); old != nil && old != ctx {
		old.Release()
	}
}

func (e *engine) Context() *Context {
	return e.current.Load()
}

func (e *engine) resize(width, height int, pixelRatio float32) {
	if ctx := e.current.Load(); ctx != nil {
		ctx.Resize(width, height, pixelRatio)
		return
	}
	if e.renderer != nil {
		e.renderer.Resize(width, height)
	}
}

func (e *engine) Run() {
	g, ctx := errgroup.WithContext(e.ctx)
	g.Go(func() error { return e.tickLoop(ctx) })
	g.Go(func() error { return e.renderLoop(ctx) })

	if e.window != nil {
		e.window.Run()
		e.Quit()
	}
	_ = g.Wait()

	if ctx := e.current.Swap(nil); ctx != nil {
		ctx.Release()
	}
	e.closeWindow()
}

func (e *engine) Quit() {
	e.cancel()
}

// closeWindow runs on the window thread only.
func (e *engine) closeWindow() {
	if e.window == nil || e.windowClosed {
		return
	}
	e.windowClosed = true
	if err := e.window.Close(); err != nil {
		log.Printf("[Engine] close window: %v", err)
	}
}

func (e *engine) tickLoop(ctx context.Context) error {
	ticker := time.NewTicker(e.tickInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			if e.onTick != nil {
				e.onTick(dt)
			}
		}
	}
}

// renderLoop runs frames until ctx is done. A failed or panicking frame is logged and the loop
// moves on to the next one.
func (e *engine) renderLoop(ctx context.Context) error {
	for ctx.Err() == nil {
		start := time.Now()
		e.errs.report(e.frame())

		if e.profiling.Load() {
			e.profiler.Tick()
		}
		if limit := time.Duration(e.frameLimit.Load()); limit > 0 {
			if remaining := limit - time.Since(start); remaining > 0 {
				time.Sleep(remaining)
			}
		}
	}
	return nil
}

// frame runs one iteration, converting a panic into an error.
func (e *engine) frame() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("frame panicked: %v", r)
		}
	}()

	if ctx := e.current.Load(); ctx != nil {
		// A context swapped out by SetContext since the load has nothing left to draw.
		if err := ctx.Frame(); !errors.Is(err, ErrContextReleased) {
			return err
		}
		return nil
	}
	if e.renderer == nil {
		time.Sleep(idleFrameInterval)
		return nil
	}
	if err := e.renderer.BeginFrame(); err != nil {
		return err
	}
	e.renderer.EndFrame()
	e.renderer.Present()
	return nil
}

// frameErrors logs frame failures, folding a run of identical errors into one line with a count.
// Render loop only.
type frameErrors struct {
	last    string
	repeats int
}

func (f *frameErrors) report(err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if msg != "" && msg == f.last {
		f.repeats++
		return
	}
	if f.repeats > 0 {
		log.Printf("[Engine] frame error repeated %d times: %s", f.repeats, f.last)
	}
	if err != nil {
		log.Printf("[Engine] frame error: %v", err)
	}
	f.last, f.repeats = msg, 0
}

// interval converts a rate in Hz to a period, using fallback for rates <= 0.
func interval(fps float64, fallback time.Duration) time.Duration {
	if fps <= 0 {
		return fallback
	}
	return time.Duration(float64(time.Second) / fps)
}
