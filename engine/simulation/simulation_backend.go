package simulation

import (
	"github.com/Carmen-Shannon/oxy-particles/engine/encoder"
	"github.com/cogentcore/webgpu/wgpu"
)

// SimulationBackend executes the integrator for an Engine. Target indices are 0 and 1.
type SimulationBackend interface {
	// Allocate creates the base state and both targets, each seeded with initial.
	Allocate(initial *encoder.StateImage) error

	// Integrate runs one integrator pass reading target read and writing target write.
	// GridSize in u is filled in by the backend.
	Integrate(u GPUSimulationUniform, read, write int) error

	// View returns the GPU view of a target, or nil if the backend has none.
	View(index int) *wgpu.TextureView

	// Read copies a target to host memory.
	Read(index int) ([]float32, error)

	// Release frees everything Allocate created. Allocate may be called again afterwards.
	Release()
}
