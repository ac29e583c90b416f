package engine

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/Carmen-Shannon/oxy-particles/engine/camera"
	"github.com/Carmen-Shannon/oxy-particles/engine/clock"
	"github.com/Carmen-Shannon/oxy-particles/engine/encoder"
	"github.com/Carmen-Shannon/oxy-particles/engine/geometry"
	"github.com/Carmen-Shannon/oxy-particles/engine/particles"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-particles/engine/settings"
	"github.com/Carmen-Shannon/oxy-particles/engine/simulation"
)

// ErrContextReleased is returned by Frame once Release has run.
var ErrContextReleased = errors.New("engine: context released")

// FrameRenderer is the part of the renderer a frame drives.
type FrameRenderer interface {
	SetClearColor(r, g, b float64)
	Resize(width, height int)
	BeginFrame() error
	EndFrame()
	Present()
}

// Simulation is the part of the simulation engine a frame drives.
type Simulation interface {
	Step(p simulation.Params) error
	CurrentTexture() (simulation.Texture, error)
	ReadState() ([]float32, error)
	Release()
}

// ParticleRenderer is the part of the particle renderer a frame drives.
type ParticleRenderer interface {
	SetTexture(tex simulation.Texture) error
	Upload(texels []float32) error
	Resize(width, height int, pixelRatio float32)
	Draw(cam camera.Camera, s settings.Settings) error
	Count() int
	Release()
}

var (
	_ FrameRenderer    = renderer.Renderer(nil)
	_ Simulation       = simulation.Engine(nil)
	_ ParticleRenderer = particles.Particles(nil)
)

// Context owns every component of one particle cloud: the merged geometry, the initial state
// image, the simulation, the particle renderer, the frame clock and the camera. It is built once
// by NewContext and handed to the engine by reference.
type Context struct {
	mu *sync.Mutex
	// frameMu is held for a whole Frame so Release never frees components mid-frame.
	frameMu sync.Mutex

	geometry *geometry.Geometry
	state    *encoder.StateImage

	renderer   FrameRenderer
	simulation Simulation
	particles  ParticleRenderer
	clock      *clock.Clock
	camera     camera.Camera

	settings settings.Settings
	onUpdate func(deltaTime float32)
	frames   uint64
	released bool
}

// NewContext runs the initialization stage on decoded geometry: encode the state image, initialize
// the simulation with it, then set up the particle renderer. On failure every component built so
// far is released and nothing is left running.
//
// Parameters:
//   - r: the renderer owning the device and surface
//   - cam: the camera the cloud is viewed through
//   - geo: the merged geometry; an empty geometry fails with geometry.ErrNoVertices
//   - options: functional options (settings, seed, simulation backend, resolution, clock)
//
// Returns:
//   - *Context: the initialized context
//   - error: a fatal configuration error
func NewContext(r renderer.Renderer, cam camera.Camera, geo *geometry.Geometry, options ...ContextBuilderOption) (*Context, error) {
	cfg := defaultContextConfig()
	for _, option := range options {
		option(cfg)
	}

	if geo == nil || geo.Count == 0 {
		return nil, geometry.ErrNoVertices
	}
	rng := rand.New(rand.NewSource(cfg.seed))
	state, err := encoder.Encode(geo, rng)
	if err != nil {
		return nil, err
	}
	attrs := encoder.Attributes(geo, state.Size, rng)

	simOptions := append([]simulation.SimulationBuilderOption{
		simulation.WithRenderer(r),
		simulation.WithSeed(cfg.seed),
	}, cfg.simulationOptions...)
	sim, err := simulation.NewSimulation(cfg.backend, simOptions...)
	if err != nil {
		return nil, err
	}
	if err := sim.Initialize(state); err != nil {
		sim.Release()
		return nil, fmt.Errorf("initialize simulation: %w", err)
	}

	lw, lh := logicalSize(cfg.width, cfg.height, cfg.pixelRatio)
	parts, err := particles.NewParticles(r, attrs, state.Size, particles.WithResolution(lw, lh, cfg.pixelRatio))
	if err != nil {
		sim.Release()
		return nil, fmt.Errorf("initialize particles: %w", err)
	}

	c := &Context{
		mu:         &sync.Mutex{},
		geometry:   geo,
		state:      state,
		renderer:   r,
		simulation: sim,
		particles:  parts,
		clock:      cfg.clock,
		camera:     cam,
		settings:   cfg.settings.Clamped(),
	}
	if cam != nil && cfg.height > 0 {
		cam.Resize(cfg.width, cfg.height)
	}
	return c, nil
}

// Frame runs one orchestrator iteration: tick the clock, update interaction state, step the
// simulation once, bind its current texture, then render and present one frame.
// A returned error concerns this frame only; the next call starts fresh. After Release every call
// returns ErrContextReleased.
//
// Returns:
//   - error: the first error of the frame
func (c *Context) Frame() error {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()

	c.mu.Lock()
	if c.released {
		c.mu.Unlock()
		return ErrContextReleased
	}
	s := c.settings
	onUpdate := c.onUpdate
	c.frames++
	c.mu.Unlock()

	elapsed, delta := c.clock.Tick()
	if onUpdate != nil {
		onUpdate(delta)
	}
	if c.camera != nil {
		c.camera.Update()
	}

	if err := c.simulation.Step(s.StepParams(elapsed, delta)); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	tex, err := c.simulation.CurrentTexture()
	if err != nil {
		return fmt.Errorf("current texture: %w", err)
	}
	if err := c.bindTexture(tex); err != nil {
		return err
	}

	c.renderer.SetClearColor(s.ClearColor[0], s.ClearColor[1], s.ClearColor[2])
	if err := c.renderer.BeginFrame(); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	drawErr := c.particles.Draw(c.camera, s)
	c.renderer.EndFrame()
	c.renderer.Present()
	if drawErr != nil {
		return fmt.Errorf("draw: %w", drawErr)
	}
	return nil
}

// bindTexture hands the current target to the particle renderer. State integrated on the CPU
// has no GPU view and is uploaded instead.
func (c *Context) bindTexture(tex simulation.Texture) error {
	if tex.View != nil {
		if err := c.particles.SetTexture(tex); err != nil {
			return fmt.Errorf("bind texture: %w", err)
		}
		return nil
	}
	texels, err := c.simulation.ReadState()
	if err != nil {
		return fmt.Errorf("read state: %w", err)
	}
	if err := c.particles.Upload(texels); err != nil {
		return fmt.Errorf("upload state: %w", err)
	}
	return nil
}

// Settings returns a copy of the current settings.
func (c *Context) Settings() settings.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

// SetSettings replaces the settings from the next frame on. Out-of-range values are clamped.
// Safe to call from any goroutine.
//
// Parameters:
//   - s: the new settings
func (c *Context) SetSettings(s settings.Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = s.Clamped()
}

// UpdateSettings applies fn to a copy of the current settings and stores the clamped result.
//
// Parameters:
//   - fn: function modifying the settings in place
func (c *Context) UpdateSettings(fn func(s *settings.Settings)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.settings
	fn(&s)
	c.settings = s.Clamped()
}

// SetUpdateCallback registers the function called each frame after the clock ticks and before the
// simulation steps. Use it for camera and interaction updates.
//
// Parameters:
//   - callback: function receiving the frame delta in seconds
func (c *Context) SetUpdateCallback(callback func(deltaTime float32)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUpdate = callback
}

// Resize propagates a framebuffer size change to the surface, the camera aspect and the particle
// resolution uniform. Particle count, rest attributes and simulation state are untouched.
//
// Parameters:
//   - width, height: the framebuffer size in physical pixels
//   - pixelRatio: physical pixels per logical pixel
func (c *Context) Resize(width, height int, pixelRatio float32) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	parts := c.particles
	c.mu.Unlock()
	if parts == nil {
		return
	}
	c.renderer.Resize(width, height)
	if c.camera != nil {
		c.camera.Resize(width, height)
	}
	lw, lh := logicalSize(width, height, pixelRatio)
	parts.Resize(lw, lh, pixelRatio)
}

// logicalSize converts a framebuffer size to window units.
func logicalSize(width, height int, pixelRatio float32) (int, int) {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	return int(float32(width) / pixelRatio), int(float32(height) / pixelRatio)
}

// Count returns N, the number of particles.
func (c *Context) Count() int {
	return c.state.Count
}

// GridSize returns S, the edge of the state texture.
func (c *Context) GridSize() int {
	return c.state.Size
}

// Geometry returns the merged geometry the particles were sampled from.
func (c *Context) Geometry() *geometry.Geometry {
	return c.geometry
}

// Camera returns the context's camera.
func (c *Context) Camera() camera.Camera {
	return c.camera
}

// Frames returns how many frames were started.
func (c *Context) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Release frees the particle renderer, both simulation targets and the compiled programs. It
// waits for a frame in progress to finish.
func (c *Context) Release() {
	c.frameMu.Lock()
	defer c.frameMu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.released = true
	if c.particles != nil {
		c.particles.Release()
		c.particles = nil
	}
	if c.simulation != nil {
		c.simulation.Release()
		c.simulation = nil
	}
	if c.camera != nil {
		if p := c.camera.BindGroupProvider(); p != nil {
			p.Release()
		}
	}
}
