// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FloatTextureStagingData holds RGBA32Float texel data for a texture pending GPU upload.
// The simulation state textures are staged through this type before the renderer creates them.
type FloatTextureStagingData struct {
	// Texels holds 4 float32 channels per texel in row-major order. A nil slice creates a zeroed texture.
	Texels []float32
	// Width is the width of the texture in texels.
	Width uint32
	// Height is the height of the texture in texels.
	Height uint32
}

// BytesPerRow returns the row pitch of the staged texture in bytes (16 bytes per RGBA32Float texel).
func (d FloatTextureStagingData) BytesPerRow() uint32 {
	return d.Width * 16
}

// Validate reports whether the staged texel slice matches the declared dimensions.
//
// Returns:
//   - error: nil if the data is uploadable, otherwise a description of the mismatch
func (d FloatTextureStagingData) Validate() error {
	if d.Width == 0 || d.Height == 0 {
		return fmt.Errorf("texture dimensions must be non-zero, got %dx%d", d.Width, d.Height)
	}
	if d.Texels != nil && len(d.Texels) != int(d.Width*d.Height*4) {
		return fmt.Errorf("texel data has %d floats, want %d for %dx%d", len(d.Texels), d.Width*d.Height*4, d.Width, d.Height)
	}
	return nil
}

// Float32sToBytes encodes a float32 slice as a little-endian byte slice suitable for GPU upload.
func Float32sToBytes(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
