package window

import "github.com/go-gl/glfw/v3.3/glfw"

type config struct {
	title               string
	width, height       int
	minWidth, minHeight int
	maxWidth, maxHeight int
}

func defaultConfig() config {
	return config{
		title:     "oxy-particles",
		width:     1280,
		height:    720,
		minWidth:  600,
		minHeight: 200,
		maxWidth:  glfw.DontCare,
		maxHeight: glfw.DontCare,
	}
}

// Option configures NewWindow.
type Option func(*config)

func WithTitle(title string) Option {
	return func(c *config) { c.title = title }
}

// WithSize sets the initial window size in screen coordinates.
func WithSize(width, height int) Option {
	return func(c *config) { c.width, c.height = width, height }
}

// WithSizeLimits bounds interactive resizing. Pass 0 for a maximum to leave it unbounded.
func WithSizeLimits(minWidth, minHeight, maxWidth, maxHeight int) Option {
	return func(c *config) {
		c.minWidth, c.minHeight = minWidth, minHeight
		c.maxWidth, c.maxHeight = maxWidth, maxHeight
		if maxWidth <= 0 {
			c.maxWidth = glfw.DontCare
		}
		if maxHeight <= 0 {
			c.maxHeight = glfw.DontCare
		}
	}
}
