package simulation

import (
	"runtime"

	"github.com/Carmen-Shannon/oxy-particles/engine/renderer"
)

const (
	// DefaultTimeScale scales elapsed time before it enters the noise field.
	DefaultTimeScale float32 = 0.2
	// DefaultDecayRate is the life gained per second; a particle respawns at its rest position at life 1.
	DefaultDecayRate float32 = 0.3
)

type config struct {
	timeScale    float32
	decayRate    float32
	excursionCap float32
	workers      int
	seed         int64
	renderer     renderer.Renderer
}

func defaultConfig() *config {
	return &config{
		timeScale: DefaultTimeScale,
		decayRate: DefaultDecayRate,
		workers:   runtime.NumCPU(),
		seed:      1,
	}
}

// SimulationBuilderOption is a functional option applied to the Simulation during construction via NewSimulation.
type SimulationBuilderOption func(*config)

// WithTimeScale sets the factor applied to elapsed time before it drives the noise field.
//
// Parameters:
//   - scale: the time scale, negative and NaN values are treated as 0
//
// Returns:
//   - SimulationBuilderOption: a function that applies the time scale
func WithTimeScale(scale float32) SimulationBuilderOption {
	return func(c *config) {
		c.timeScale = nonNegative(scale)
	}
}

// WithDecayRate sets the life gained per second of simulated time.
// A rate of 0 disables respawning.
//
// Parameters:
//   - rate: the decay rate, negative and NaN values are treated as 0
//
// Returns:
//   - SimulationBuilderOption: a function that applies the decay rate
func WithDecayRate(rate float32) SimulationBuilderOption {
	return func(c *config) {
		c.decayRate = nonNegative(rate)
	}
}

// WithExcursionCap snaps a particle back to its rest position once it drifts farther than limit.
// A limit of 0 (the default) disables the check.
//
// Parameters:
//   - limit: the maximum distance from the rest position, negative and NaN values disable the cap
//
// Returns:
//   - SimulationBuilderOption: a function that applies the cap
func WithExcursionCap(limit float32) SimulationBuilderOption {
	return func(c *config) {
		c.excursionCap = nonNegative(limit)
	}
}

// WithWorkers sets the number of pool workers used by the CPU backend. Ignored by the WGPU backend.
//
// Parameters:
//   - n: the worker count, values below 1 mean serial integration
//
// Returns:
//   - SimulationBuilderOption: a function that applies the worker count
func WithWorkers(n int) SimulationBuilderOption {
	return func(c *config) {
		c.workers = max(n, 1)
	}
}

// WithSeed seeds the CPU backend's noise field.
//
// Parameters:
//   - seed: the noise seed
//
// Returns:
//   - SimulationBuilderOption: a function that applies the seed
func WithSeed(seed int64) SimulationBuilderOption {
	return func(c *config) {
		c.seed = seed
	}
}

// WithRenderer sets the renderer whose device the WGPU backend allocates on. Required for BackendTypeWGPU.
//
// Parameters:
//   - r: the renderer
//
// Returns:
//   - SimulationBuilderOption: a function that applies the renderer
func WithRenderer(r renderer.Renderer) SimulationBuilderOption {
	return func(c *config) {
		c.renderer = r
	}
}
