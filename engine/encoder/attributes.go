package encoder

import (
	"math/rand"

	"github.com/Carmen-Shannon/oxy-particles/engine/geometry"
)

// ParticleAttributes are the immutable per-particle inputs of the renderer. Every slice holds
// exactly N entries, one per particle, in particle index order.
type ParticleAttributes struct {
	UVs    [][2]float32
	Sizes  []float32
	Colors [][4]float32
}

// Count returns the number of particles described.
func (a *ParticleAttributes) Count() int {
	return len(a.UVs)
}

// Attributes builds the renderer's per-particle attributes for a grid of side s.
// Sizes are random scale factors in [0, 1). Colors come from the geometry, or opaque white when it
// carries none.
func Attributes(geo *geometry.Geometry, s int, rng *rand.Rand) *ParticleAttributes {
	n := geo.Count
	attrs := &ParticleAttributes{
		UVs:    make([][2]float32, n),
		Sizes:  make([]float32, n),
		Colors: make([][4]float32, n),
	}
	for i := 0; i < n; i++ {
		attrs.UVs[i] = UV(i, s)
		attrs.Sizes[i] = rng.Float32()
		if geo.HasColor && i < len(geo.Colors) {
			attrs.Colors[i] = geo.Colors[i]
		} else {
			attrs.Colors[i] = [4]float32{1, 1, 1, 1}
		}
	}
	return attrs
}
