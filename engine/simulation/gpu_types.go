package simulation

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/shader"
)

// GPUSimulationUniformSource is the canonical WGSL definition of the SimulationUniform struct.
// Matches GPUSimulationUniform layout exactly (48 bytes).
//
//go:embed assets/simulation_uniform.wgsl
var GPUSimulationUniformSource string

// integrateSource is the compute integrator advancing every texel of the state grid by one tick.
//
//go:embed assets/integrate.wgsl
var integrateSource string

func init() {
	shader.Register(shader.KeySimulationParams, GPUSimulationUniformSource, "SimulationUniform")
}

// GPUSimulationUniform is the GPU-aligned representation of the integrator uniform buffer.
// Matches the WGSL SimulationUniform struct layout exactly (see GPUSimulationUniformSource).
// Size: 48 bytes.
type GPUSimulationUniform struct {
	Time         float32 // offset  0
	DeltaTime    float32 // offset  4
	Influence    float32 // offset  8
	Strength     float32 // offset 12
	Frequency    float32 // offset 16
	TimeScale    float32 // offset 20
	DecayRate    float32 // offset 24
	ExcursionCap float32 // offset 28: 0 disables the cap
	GridSize     float32 // offset 32: S, the state texture edge
	_pad         [3]float32
}

// Size returns the size of the GPUSimulationUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (48)
func (g *GPUSimulationUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUSimulationUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUSimulationUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	fields := [...]float32{
		g.Time, g.DeltaTime, g.Influence, g.Strength,
		g.Frequency, g.TimeScale, g.DecayRate, g.ExcursionCap,
		g.GridSize,
	}
	for i, f := range fields {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
