package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-particles/common"
	"github.com/go-gl/mathgl/mgl32"
)

// OrbitController keeps the camera on a sphere around a target point. Orbiting changes azimuth and
// elevation, zooming changes the radius, and panning slides the target (and with it the camera)
// along the camera's own axes. All methods are safe for concurrent use: window callbacks drive
// them on the main thread while the tick loop reads them.
//
// With damping the camera eases toward each requested orbit over several Updates. Radius, Azimuth
// and Elevation report the requested orbit; Position and Target report where the camera is.
type OrbitController interface {
	// Position returns the world-space camera position.
	Position() mgl32.Vec3

	// Target returns the world-space point the camera looks at.
	Target() mgl32.Vec3

	// Update moves the camera a damping-sized fraction of the way to the requested orbit. Called
	// once per frame; without damping the camera is always there already.
	Update()

	// Radius returns the distance from the target.
	Radius() float32

	// Azimuth returns the angle around the world Y axis in radians, 0 facing +Z.
	Azimuth() float32

	// SetAzimuth sets the angle around the world Y axis.
	//
	// Parameters:
	//   - azimuth: the new angle in radians
	SetAzimuth(azimuth float32)

	// Elevation returns the angle above the horizontal plane in radians.
	Elevation() float32

	// SetElevation sets the angle above the horizontal plane, clamped to the elevation bounds.
	//
	// Parameters:
	//   - elevation: the new angle in radians
	SetElevation(elevation float32)

	// Zoom moves the camera toward the target by delta * zoom speed, clamped to the radius bounds.
	// Negative deltas move away.
	//
	// Parameters:
	//   - delta: the zoom input, typically a scroll offset
	Zoom(delta float32)

	// PanRight slides the camera and target along the camera's horizontal right axis by delta * pan speed.
	PanRight(delta float32)

	// PanUp slides the camera and target along the camera's up axis by delta * pan speed.
	PanUp(delta float32)

	// PanForward slides the camera and target along the view direction by delta * pan speed.
	PanForward(delta float32)

	// MouseSensitivity returns the radians (or pan units) per pixel of mouse drag.
	MouseSensitivity() float32
}

// orbitState places a camera on its sphere.
type orbitState struct {
	target    mgl32.Vec3
	radius    float32
	azimuth   float32
	elevation float32
}

// offset returns position - target.
func (s orbitState) offset() mgl32.Vec3 {
	sinE, cosE := math.Sincos(float64(s.elevation))
	sinA, cosA := math.Sincos(float64(s.azimuth))
	return mgl32.Vec3{
		float32(cosE * sinA),
		float32(sinE),
		float32(cosE * cosA),
	}.Mul(s.radius)
}

// toward returns s moved fraction f of the way to goal.
func (s orbitState) toward(goal orbitState, f float32) orbitState {
	return orbitState{
		target:    s.target.Add(goal.target.Sub(s.target).Mul(f)),
		radius:    s.radius + (goal.radius-s.radius)*f,
		azimuth:   s.azimuth + (goal.azimuth-s.azimuth)*f,
		elevation: s.elevation + (goal.elevation-s.elevation)*f,
	}
}

type orbit struct {
	mu sync.Mutex

	// goal is the requested orbit, view the displayed one.
	goal    orbitState
	view    orbitState
	damping float32

	minRadius, maxRadius       float32
	minElevation, maxElevation float32

	zoomSpeed        float32
	panSpeed         float32
	mouseSensitivity float32

	// placed is the position requested by WithPosition, resolved against the final target.
	placed *mgl32.Vec3
}

var _ OrbitController = &orbit{}

// OrbitOption configures an OrbitController.
type OrbitOption func(*orbit)

// WithTarget sets the point the camera orbits.
func WithTarget(x, y, z float32) OrbitOption {
	return func(o *orbit) { o.goal.target = mgl32.Vec3{x, y, z} }
}

// WithPosition places the camera at a world-space position. Radius, azimuth and elevation are
// derived from its offset to the target once every option has been applied, so it may be given
// before or after WithTarget. The derived values are not clamped.
func WithPosition(x, y, z float32) OrbitOption {
	return func(o *orbit) { o.placed = &mgl32.Vec3{x, y, z} }
}

// WithRadius sets the initial distance from the target.
func WithRadius(radius float32) OrbitOption {
	return func(o *orbit) { o.goal.radius = radius }
}

// WithRadiusBounds limits how close and how far Zoom may move the camera.
func WithRadiusBounds(minRadius, maxRadius float32) OrbitOption {
	return func(o *orbit) { o.minRadius, o.maxRadius = minRadius, maxRadius }
}

// WithElevationBounds limits SetElevation. Keep both bounds inside (-π/2, π/2) so the view never
// flips over the pole.
func WithElevationBounds(minElevation, maxElevation float32) OrbitOption {
	return func(o *orbit) { o.minElevation, o.maxElevation = minElevation, maxElevation }
}

// WithZoomSpeed sets the radius change per unit of Zoom input.
func WithZoomSpeed(speed float32) OrbitOption {
	return func(o *orbit) { o.zoomSpeed = speed }
}

// WithPanSpeed sets the distance moved per unit of pan input.
func WithPanSpeed(speed float32) OrbitOption {
	return func(o *orbit) { o.panSpeed = speed }
}

// WithDamping eases the camera toward each requested orbit, covering factor of the remaining
// distance per Update. Factors outside (0, 1) disable damping.
func WithDamping(factor float32) OrbitOption {
	return func(o *orbit) {
		if !(factor > 0 && factor < 1) {
			factor = 0
		}
		o.damping = factor
	}
}

// WithMouseSensitivity sets the scale applied to mouse drag deltas.
func WithMouseSensitivity(sensitivity float32) OrbitOption {
	return func(o *orbit) { o.mouseSensitivity = sensitivity }
}

// NewOrbitController creates an OrbitController looking at the origin from 16.7 units away and 30
// degrees up, with the radius bounded to [1, 80] and no damping.
//
// Parameters:
//   - options: placement, bounds and speed options
//
// Returns:
//   - OrbitController: the controller
func NewOrbitController(options ...OrbitOption) OrbitController {
	o := &orbit{
		goal:             orbitState{radius: 16.7, elevation: math.Pi / 6},
		minRadius:        1,
		maxRadius:        80,
		minElevation:     -math.Pi/2 + 0.1,
		maxElevation:     math.Pi/2 - 0.1,
		zoomSpeed:        1,
		panSpeed:         0.05,
		mouseSensitivity: 0.005,
	}
	for _, opt := range options {
		opt(o)
	}
	if o.placed != nil {
		offset := o.placed.Sub(o.goal.target)
		if r := offset.Len(); r > 1e-8 {
			o.goal.radius = r
			o.goal.elevation = float32(math.Asin(float64(offset.Y() / r)))
			o.goal.azimuth = float32(math.Atan2(float64(offset.X()), float64(offset.Z())))
		}
		o.placed = nil
	}
	o.view = o.goal
	return o
}

// moved follows a change to the goal. Caller holds mu.
func (o *orbit) moved() {
	if o.damping == 0 {
		o.view = o.goal
	}
}

func (o *orbit) Update() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.damping == 0 {
		return
	}
	o.view = o.view.toward(o.goal, o.damping)
}

func (o *orbit) Position() mgl32.Vec3 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.view.target.Add(o.view.offset())
}

func (o *orbit) Target() mgl32.Vec3 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.view.target
}

func (o *orbit) Radius() float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.goal.radius
}

func (o *orbit) Azimuth() float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.goal.azimuth
}

func (o *orbit) SetAzimuth(azimuth float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.goal.azimuth = azimuth
	o.moved()
}

func (o *orbit) Elevation() float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.goal.elevation
}

func (o *orbit) SetElevation(elevation float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.goal.elevation = common.Clamp(elevation, o.minElevation, o.maxElevation)
	o.moved()
}

func (o *orbit) Zoom(delta float32) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.goal.radius = common.Clamp(o.goal.radius-delta*o.zoomSpeed, o.minRadius, o.maxRadius)
	o.moved()
}

func (o *orbit) MouseSensitivity() float32 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.mouseSensitivity
}

// Pan axes, matching the basis mgl32.LookAtV builds for a world-up of +Y.
const (
	axisRight = iota
	axisUp
	axisForward
)

func (o *orbit) PanRight(delta float32)   { o.pan(axisRight, delta) }
func (o *orbit) PanUp(delta float32)      { o.pan(axisUp, delta) }
func (o *orbit) PanForward(delta float32) { o.pan(axisForward, delta) }

func (o *orbit) pan(axis int, delta float32) {
	o.mu.Lock()
	defer o.mu.Unlock()

	back := o.goal.offset()
	if back.Len() < 1e-8 {
		return
	}
	back = back.Normalize()
	right := mgl32.Vec3{0, 1, 0}.Cross(back)
	if right.Len() < 1e-8 {
		return
	}
	right = right.Normalize()

	var dir mgl32.Vec3
	switch axis {
	case axisRight:
		dir = right
	case axisUp:
		dir = back.Cross(right)
	case axisForward:
		dir = back.Mul(-1)
	}
	o.goal.target = o.goal.target.Add(dir.Mul(delta * o.panSpeed))
	o.moved()
}
