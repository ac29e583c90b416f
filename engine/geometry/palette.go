package geometry

import (
	"math"

	"github.com/crazy3lf/colorconv"
	"github.com/go-gl/mathgl/mgl32"
)

// Palette assigns colors to geometry that has none by ramping hue along the vertical extent of the
// bounds. Geometry that already carries vertex colors is left untouched.
//
// Parameters:
//   - geo: the merged geometry to color in place
//   - hueMin: hue in degrees at the lowest vertex
//   - hueMax: hue in degrees at the highest vertex
func Palette(geo *Geometry, hueMin, hueMax float64) {
	if geo == nil || geo.HasColor || geo.Count == 0 {
		return
	}
	height := geo.Bounds.Max.Y() - geo.Bounds.Min.Y()
	geo.Colors = make([]mgl32.Vec4, geo.Count)
	for i, p := range geo.Positions {
		t := 0.0
		if height > 0 {
			t = float64((p.Y() - geo.Bounds.Min.Y()) / height)
		}
		hue := math.Mod(hueMin+(hueMax-hueMin)*t, 360)
		if hue < 0 {
			hue += 360
		}
		r, g, b, err := colorconv.HSVToRGB(hue, 0.65, 1)
		if err != nil {
			geo.Colors[i] = mgl32.Vec4{1, 1, 1, 1}
			continue
		}
		geo.Colors[i] = mgl32.Vec4{float32(r) / 255, float32(g) / 255, float32(b) / 255, 1}
	}
	geo.HasColor = true
}
