package particles

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-particles/engine/encoder"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/shader"
)

// GPUParticlesUniformSource is the canonical WGSL definition of the ParticlesUniform struct.
// Matches GPUParticlesUniform layout exactly (16 bytes).
//
//go:embed assets/particles_uniform.wgsl
var GPUParticlesUniformSource string

// GPUParticleInstanceSource is the WGSL per-instance vertex input. Its name ends in "Instance",
// so the parsed vertex layout steps once per particle.
//
//go:embed assets/particle_instance.wgsl
var GPUParticleInstanceSource string

//go:embed assets/particles_vertex.wgsl
var vertexSource string

//go:embed assets/particles_fragment.wgsl
var fragmentSource string

func init() {
	shader.Register(shader.KeyParticlesParams, GPUParticlesUniformSource, "ParticlesUniform")
	shader.Register(shader.KeyParticleInstance, GPUParticleInstanceSource, "")
}

// GPUParticlesUniform is the GPU-aligned representation of the particle renderer uniform buffer.
// Size: 16 bytes.
type GPUParticlesUniform struct {
	Resolution [2]float32 // offset  0: drawable size in physical pixels
	PointSize  float32    // offset  8: global sprite size
	GridSize   float32    // offset 12: S, the state texture edge
}

// Size returns the size of the GPUParticlesUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (16)
func (g *GPUParticlesUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUParticlesUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUParticlesUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(g.Resolution[0]))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(g.Resolution[1]))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(g.PointSize))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(g.GridSize))
	return buf
}

// instanceStride is the byte size of one ParticleInstance: uv (8), size (4), color (16).
const instanceStride = 28

// packInstances lays the per-particle attributes out as ParticleInstance vertex data.
func packInstances(attrs *encoder.ParticleAttributes) []byte {
	n := attrs.Count()
	buf := make([]byte, n*instanceStride)
	put := func(off int, v float32) {
		binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
	}
	for i := 0; i < n; i++ {
		off := i * instanceStride
		put(off, attrs.UVs[i][0])
		put(off+4, attrs.UVs[i][1])
		put(off+8, attrs.Sizes[i])
		for c := 0; c < 4; c++ {
			put(off+12+c*4, attrs.Colors[i][c])
		}
	}
	return buf
}
