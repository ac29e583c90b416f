package geometry

import "github.com/go-gl/mathgl/mgl32"

// MergeOption configures a Merge call.
type MergeOption func(*mergeConfig)

// WithWorkers sets the number of worker goroutines used to copy large meshes.
// Defaults to 1 (serial copy).
//
// Parameters:
//   - n: the number of workers (minimum 1)
//
// Returns:
//   - MergeOption: option function to apply
func WithWorkers(n int) MergeOption {
	return func(c *mergeConfig) {
		if n < 1 {
			n = 1
		}
		c.workers = n
	}
}

// WithFillColor sets the color assigned to vertices of meshes that carry no color attribute when
// another mesh in the same model does. Defaults to opaque white.
//
// Parameters:
//   - color: RGBA fill color
//
// Returns:
//   - MergeOption: option function to apply
func WithFillColor(color mgl32.Vec4) MergeOption {
	return func(c *mergeConfig) {
		c.fillColor = color
	}
}
