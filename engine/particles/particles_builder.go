package particles

// ParticlesBuilderOption is a functional option for configuring the particle renderer.
type ParticlesBuilderOption func(*particles)

// WithResolution sets the initial resolution uniform, as Resize would.
//
// Parameters:
//   - width, height: the framebuffer size in logical pixels
//   - pixelRatio: physical pixels per logical pixel, clamped to [1, 2]
//
// Returns:
//   - ParticlesBuilderOption: the option function
func WithResolution(width, height int, pixelRatio float32) ParticlesBuilderOption {
	return func(p *particles) {
		p.Resize(width, height, pixelRatio)
	}
}
