package engine

import (
	"time"

	"github.com/Carmen-Shannon/oxy-particles/engine/profiler"
	"github.com/Carmen-Shannon/oxy-particles/engine/window"
)

// Option configures NewEngine.
type Option func(*engine)

// WithWindow sets the window whose message loop Run drives. Its resize events reach the context.
func WithWindow(w window.Window) Option {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer that clears the surface while no context is attached.
func WithRenderer(r FrameRenderer) Option {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithContext attaches an initialized context.
func WithContext(ctx *Context) Option {
	return func(e *engine) {
		e.current.Store(ctx)
	}
}

// WithTickRate sets the tick loop frequency in Hz. Rates <= 0 keep the 60 Hz default.
func WithTickRate(fps float64) Option {
	return func(e *engine) {
		e.tickInterval = interval(fps, time.Second/60)
	}
}

// WithFrameLimit caps the render loop; 0 leaves it uncapped.
func WithFrameLimit(fps float64) Option {
	return func(e *engine) {
		e.frameLimit.Store(int64(interval(fps, 0)))
	}
}

// WithProfiler replaces the default profiler and sets whether it reports from the start.
func WithProfiler(p *profiler.Profiler, enabled bool) Option {
	return func(e *engine) {
		if p != nil {
			e.profiler = p
		}
		e.profiling.Store(enabled)
	}
}
