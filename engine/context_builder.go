package engine

import (
	"github.com/Carmen-Shannon/oxy-particles/engine/clock"
	"github.com/Carmen-Shannon/oxy-particles/engine/settings"
	"github.com/Carmen-Shannon/oxy-particles/engine/simulation"
)

// contextConfig collects the options of NewContext.
type contextConfig struct {
	settings          settings.Settings
	seed              int64
	backend           simulation.BackendType
	simulationOptions []simulation.SimulationBuilderOption
	width, height     int
	pixelRatio        float32
	clock             *clock.Clock
}

func defaultContextConfig() *contextConfig {
	return &contextConfig{
		settings:   settings.Default(),
		seed:       1,
		backend:    simulation.BackendTypeWGPU,
		width:      1280,
		height:     720,
		pixelRatio: 1,
		clock:      clock.NewClock(),
	}
}

// ContextBuilderOption is a functional option for configuring NewContext.
type ContextBuilderOption func(*contextConfig)

// WithSettings sets the initial settings. Out-of-range values are clamped.
//
// Parameters:
//   - s: the initial settings
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithSettings(s settings.Settings) ContextBuilderOption {
	return func(c *contextConfig) {
		c.settings = s
	}
}

// WithSeed seeds the random per-particle phases, sizes and the CPU noise field.
//
// Parameters:
//   - seed: the random seed
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithSeed(seed int64) ContextBuilderOption {
	return func(c *contextConfig) {
		c.seed = seed
	}
}

// WithSimulationBackend selects the backend executing the integrator.
//
// Parameters:
//   - backend: simulation.BackendTypeWGPU (default) or simulation.BackendTypeCPU
//   - options: additional simulation options (time scale, decay rate, excursion cap, workers)
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithSimulationBackend(backend simulation.BackendType, options ...simulation.SimulationBuilderOption) ContextBuilderOption {
	return func(c *contextConfig) {
		c.backend = backend
		c.simulationOptions = append(c.simulationOptions, options...)
	}
}

// WithResolution sets the initial framebuffer size.
//
// Parameters:
//   - width, height: the framebuffer size in physical pixels
//   - pixelRatio: physical pixels per logical pixel
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithResolution(width, height int, pixelRatio float32) ContextBuilderOption {
	return func(c *contextConfig) {
		c.width = width
		c.height = height
		c.pixelRatio = pixelRatio
	}
}

// WithClock replaces the frame clock.
//
// Parameters:
//   - clk: the clock to tick once per frame
//
// Returns:
//   - ContextBuilderOption: option function to apply
func WithClock(clk *clock.Clock) ContextBuilderOption {
	return func(c *contextConfig) {
		if clk != nil {
			c.clock = clk
		}
	}
}
