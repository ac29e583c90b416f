// Package simulation advances the particle state grid one tick at a time. The state lives in a
// double-buffered pair of RGBA32Float targets: each Step reads the current target, writes the
// other, then flips which one is current. Texel (x, y, z, w) is a live position and a life value.
package simulation

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-particles/common"
	"github.com/Carmen-Shannon/oxy-particles/engine/encoder"
	"github.com/Carmen-Shannon/oxy-particles/engine/geometry"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrUnsupportedFormat is returned by Initialize when the backend cannot allocate floating-point
	// targets of the requested size.
	ErrUnsupportedFormat = errors.New("simulation: floating-point render targets unsupported")

	// ErrNotInitialized is returned by Step and CurrentTexture before Initialize succeeded.
	ErrNotInitialized = errors.New("simulation: not initialized")

	// ErrAlreadyInitialized is returned by a second Initialize call.
	ErrAlreadyInitialized = errors.New("simulation: already initialized")

	// ErrStaleTexture is returned by Validate for a handle fetched before the most recent Step.
	// Reusing a handle across a Step is unsupported: the target it names may be rewritten.
	ErrStaleTexture = errors.New("simulation: texture handle is stale, re-fetch CurrentTexture after Step")

	// ErrReadbackUnsupported is returned by ReadState on backends that cannot copy targets to the CPU.
	ErrReadbackUnsupported = errors.New("simulation: state readback unsupported by backend")
)

// BackendType identifies the implementation that executes the integrator.
type BackendType int

const (
	// BackendTypeWGPU runs the integrator as a WebGPU compute pass.
	BackendTypeWGPU BackendType = iota

	// BackendTypeCPU runs the integrator on the worker pool over host memory.
	BackendTypeCPU
)

// State is the lifecycle state of an Engine.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateTicking
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateTicking:
		return "ticking"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Params are the per-step scalars uploaded to the integrator.
type Params struct {
	Time               float32
	DeltaTime          float32
	FlowFieldInfluence float32
	FlowFieldStrength  float32
	FlowFieldFrequency float32
}

// Clamped returns p with every field limited to its valid range: influence [0,1], strength [0,10],
// frequency [0,1], and non-negative time and delta time. NaN fields become 0.
func (p Params) Clamped() Params {
	return Params{
		Time:               nonNegative(p.Time),
		DeltaTime:          nonNegative(p.DeltaTime),
		FlowFieldInfluence: common.Clamp(p.FlowFieldInfluence, 0, 1),
		FlowFieldStrength:  common.Clamp(p.FlowFieldStrength, 0, 10),
		FlowFieldFrequency: common.Clamp(p.FlowFieldFrequency, 0, 1),
	}
}

func nonNegative(v float32) float32 {
	return common.Clamp(v, 0, math.MaxFloat32)
}

// Texture is a read-only handle to the most recently written target.
// It is valid until the next Step; Validate reports whether it still is.
type Texture struct {
	// Variable is the name of the simulation variable the target belongs to.
	Variable string
	// Index is the target index (0 or 1) within the variable's pair.
	Index int
	// Tick is the step count at which the handle was fetched.
	Tick uint64
	// View is the GPU view of the target. Nil on the CPU backend.
	View *wgpu.TextureView
}

// Engine owns the double-buffered state targets and the integrator program.
type Engine interface {
	// Initialize allocates the target pair seeded with the encoded initial state, compiles the
	// integrator and transitions to StateInitialized.
	//
	// Parameters:
	//   - initial: the encoded state image; it also becomes the immutable base (rest) state
	//
	// Returns:
	//   - error: ErrAlreadyInitialized, geometry.ErrNoVertices for an empty image, or an
	//     ErrUnsupportedFormat-wrapped allocation failure
	Initialize(initial *encoder.StateImage) error

	// Step uploads the clamped params and runs one integrator pass over the S x S grid, reading
	// the current target and writing the other one, which then becomes current.
	// Call at most once per rendered frame.
	//
	// Parameters:
	//   - p: the per-step parameters
	//
	// Returns:
	//   - error: ErrNotInitialized, or a backend submission error (the current target is unchanged)
	Step(p Params) error

	// CurrentTexture returns a handle to the most recently written target.
	// Do not keep it across the next Step.
	//
	// Returns:
	//   - Texture: the handle
	//   - error: ErrNotInitialized before Initialize
	CurrentTexture() (Texture, error)

	// Validate reports whether tex still names the current target.
	//
	// Parameters:
	//   - tex: a handle previously returned by CurrentTexture
	//
	// Returns:
	//   - error: ErrStaleTexture if a Step happened since tex was fetched
	Validate(tex Texture) error

	// ReadState copies the current target to host memory, 4 floats per texel in row-major order.
	//
	// Returns:
	//   - []float32: the texels
	//   - error: ErrReadbackUnsupported on backends without readback
	ReadState() ([]float32, error)

	// State returns the lifecycle state.
	State() State

	// Tick returns the number of completed steps.
	Tick() uint64

	// Variable returns the simulated variable, or nil before Initialize.
	Variable() *Variable

	// Release frees both targets, the base state and the integrator program.
	// The engine returns to StateUninitialized.
	Release()
}

// simulation is the implementation of the Engine interface.
type simulation struct {
	mu *sync.Mutex

	backendType BackendType
	backend     SimulationBackend

	state    State
	tick     uint64
	variable *Variable

	cfg *config
}

var _ Engine = &simulation{}

// NewSimulation creates an uninitialized Engine on the given backend.
//
// Parameters:
//   - backendType: the backend executing the integrator
//   - options: variadic list of SimulationBuilderOption functions
//
// Returns:
//   - Engine: the engine, ready for Initialize
//   - error: an error if the backend's requirements are not met (e.g. no renderer for WGPU)
func NewSimulation(backendType BackendType, options ...SimulationBuilderOption) (Engine, error) {
	cfg := defaultConfig()
	for _, opt := range options {
		opt(cfg)
	}

	s := &simulation{
		mu:          &sync.Mutex{},
		backendType: backendType,
		cfg:         cfg,
	}

	switch backendType {
	case BackendTypeCPU:
		s.backend = newCPUSimulationBackend(cfg.seed, cfg.workers)
	case BackendTypeWGPU:
		if cfg.renderer == nil {
			return nil, errors.New("simulation: the wgpu backend requires WithRenderer")
		}
		s.backend = newWGPUSimulationBackend(cfg.renderer)
	default:
		return nil, fmt.Errorf("simulation: unknown backend type %d", backendType)
	}
	return s, nil
}

func (s *simulation) Initialize(initial *encoder.StateImage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUninitialized {
		return ErrAlreadyInitialized
	}
	if initial == nil || initial.Size == 0 || initial.Count == 0 {
		return geometry.ErrNoVertices
	}

	if err := s.backend.Allocate(initial); err != nil {
		return err
	}

	s.variable = newVariable(positionVariable, integrateProgramKey)
	s.tick = 0
	s.state = StateInitialized
	return nil
}

func (s *simulation) Step(p Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateUninitialized {
		return ErrNotInitialized
	}

	p = p.Clamped()
	u := GPUSimulationUniform{
		Time:         p.Time,
		DeltaTime:    p.DeltaTime,
		Influence:    p.FlowFieldInfluence,
		Strength:     p.FlowFieldStrength,
		Frequency:    p.FlowFieldFrequency,
		TimeScale:    s.cfg.timeScale,
		DecayRate:    s.cfg.decayRate,
		ExcursionCap: s.cfg.excursionCap,
	}

	read, write := s.variable.Current(), s.variable.Next()
	if err := s.backend.Integrate(u, read, write); err != nil {
		return fmt.Errorf("step %d: %w", s.tick+1, err)
	}

	s.variable.Swap()
	s.tick++
	s.state = StateTicking
	return nil
}

func (s *simulation) CurrentTexture() (Texture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateUninitialized {
		return Texture{}, ErrNotInitialized
	}
	idx := s.variable.Current()
	return Texture{
		Variable: s.variable.Name(),
		Index:    idx,
		Tick:     s.tick,
		View:     s.backend.View(idx),
	}, nil
}

func (s *simulation) Validate(tex Texture) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateUninitialized {
		return ErrNotInitialized
	}
	if tex.Variable != s.variable.Name() || tex.Tick != s.tick || tex.Index != s.variable.Current() {
		return ErrStaleTexture
	}
	return nil
}

func (s *simulation) ReadState() ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateUninitialized {
		return nil, ErrNotInitialized
	}
	return s.backend.Read(s.variable.Current())
}

func (s *simulation) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *simulation) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

func (s *simulation) Variable() *Variable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variable
}

func (s *simulation) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.backend.Release()
	s.variable = nil
	s.tick = 0
	s.state = StateUninitialized
}
