// Package encoder lays particle rest state out on the square simulation grid.
//
// Particle i lives at texel (col = i % S, row = i / S) of an S x S RGBA32Float image, where S is the
// smallest integer with S*S >= N. The same mapping produces the UV each particle is drawn from, so
// encoder and renderer agree by construction.
package encoder

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/Carmen-Shannon/oxy-particles/common"
	"github.com/Carmen-Shannon/oxy-particles/engine/geometry"
)

// Channels is the number of float32 channels per texel (xyz position + scalar).
const Channels = 4

// GridSize returns the side S of the smallest square grid holding n particles.
// Non-positive n yields 0.
func GridSize(n int) int {
	if n <= 0 {
		return 0
	}
	s := int(math.Ceil(math.Sqrt(float64(n))))
	// Correct for float rounding at perfect squares.
	for s > 1 && (s-1)*(s-1) >= n {
		s--
	}
	for s*s < n {
		s++
	}
	return s
}

// UV returns the texel-center coordinate of particle i on a grid of side s.
func UV(i, s int) [2]float32 {
	col := i % s
	row := i / s
	return [2]float32{
		(float32(col) + 0.5) / float32(s),
		(float32(row) + 0.5) / float32(s),
	}
}

// Index is the inverse of the grid layout: the linear particle index stored at (col, row).
func Index(col, row, s int) int {
	return row*s + col
}

// StateImage is the initial simulation state: Size x Size texels of 4 float32 each.
// Texels at index >= Count are zero padding.
type StateImage struct {
	Size   int
	Count  int
	Texels []float32
}

// Texel returns the four channels stored for particle i.
func (img *StateImage) Texel(i int) [4]float32 {
	o := i * Channels
	return [4]float32{img.Texels[o], img.Texels[o+1], img.Texels[o+2], img.Texels[o+3]}
}

// Bytes returns the image as little-endian float32 bytes ready for a texture upload.
func (img *StateImage) Bytes() []byte {
	return common.Float32sToBytes(img.Texels)
}

// Staging wraps the image for the renderer's float texture upload path.
func (img *StateImage) Staging() common.FloatTextureStagingData {
	return common.FloatTextureStagingData{
		Texels: img.Texels,
		Width:  uint32(img.Size),
		Height: uint32(img.Size),
	}
}

// Clone returns a deep copy of the image.
func (img *StateImage) Clone() *StateImage {
	out := *img
	out.Texels = append([]float32(nil), img.Texels...)
	return &out
}

// Encode writes (x, y, z, r) for every particle, where r is drawn uniformly from [0, 1) and seeds
// the particle's life phase in the simulation.
//
// Parameters:
//   - geo: the merged geometry
//   - rng: source of the per-particle random scalar
//
// Returns:
//   - *StateImage: the encoded initial state
//   - error: geometry.ErrNoVertices if geo is empty
func Encode(geo *geometry.Geometry, rng *rand.Rand) (*StateImage, error) {
	if geo == nil || geo.Count == 0 || len(geo.Positions) == 0 {
		return nil, geometry.ErrNoVertices
	}
	if len(geo.Positions) != geo.Count {
		return nil, fmt.Errorf("%w: count %d does not match %d positions", geometry.ErrLayoutMismatch, geo.Count, len(geo.Positions))
	}

	s := GridSize(geo.Count)
	img := &StateImage{
		Size:   s,
		Count:  geo.Count,
		Texels: make([]float32, s*s*Channels),
	}
	for i, p := range geo.Positions {
		o := i * Channels
		img.Texels[o] = p.X()
		img.Texels[o+1] = p.Y()
		img.Texels[o+2] = p.Z()
		img.Texels[o+3] = rng.Float32()
	}
	return img, nil
}
