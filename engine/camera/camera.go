package camera

import (
	"math"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/bind_group_provider"
	"github.com/go-gl/mathgl/mgl32"
)

var cameraCount atomic.Uint64

// clipDepth remaps OpenGL clip depth [-w, w] to the [0, w] range WebGPU rasterizes.
var clipDepth = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

// Camera is a perspective camera that follows an OrbitController. The controller owns where the
// camera is; the camera owns the lens and turns both into the view-projection matrix the particle
// shader reads from its CameraUniform.
type Camera interface {
	// Aspect returns the viewport aspect ratio (width / height).
	Aspect() float32

	// Resize sets the aspect ratio from a framebuffer size. Zero-sized (minimized) framebuffers are ignored.
	//
	// Parameters:
	//   - width, height: the framebuffer size in pixels
	Resize(width, height int)

	// ViewProjectionMatrix returns the combined view-projection matrix (column-major) as of the last Update.
	ViewProjectionMatrix() mgl32.Mat4

	// Uniform returns the GPU camera uniform for the current matrix and controller position.
	//
	// Returns:
	//   - CameraUniform: the uniform ready to Marshal and upload
	Uniform() CameraUniform

	// Controller returns the attached OrbitController, or nil.
	Controller() OrbitController

	// BindGroupProvider returns the provider holding the camera's uniform buffer and bind group.
	BindGroupProvider() bind_group_provider.BindGroupProvider

	// Update advances the controller's damping and recomputes the view-projection matrix from it.
	// Called once per frame before the particles are drawn. Does nothing without a controller.
	Update()
}

type camera struct {
	mu sync.Mutex

	fovY   float32
	aspect float32
	near   float32
	far    float32

	viewProj   mgl32.Mat4
	controller OrbitController
	provider   bind_group_provider.BindGroupProvider
}

var _ Camera = &camera{}

// Option configures a Camera.
type Option func(*camera)

// WithFov sets the vertical field of view in radians.
func WithFov(fovY float32) Option {
	return func(c *camera) { c.fovY = fovY }
}

// WithAspect sets the initial aspect ratio (width / height).
func WithAspect(aspect float32) Option {
	return func(c *camera) { c.aspect = aspect }
}

// WithNear sets the near clipping plane distance.
func WithNear(near float32) Option {
	return func(c *camera) { c.near = near }
}

// WithFar sets the far clipping plane distance.
func WithFar(far float32) Option {
	return func(c *camera) { c.far = far }
}

// WithController attaches the controller the camera follows.
func WithController(ctrl OrbitController) Option {
	return func(c *camera) { c.controller = ctrl }
}

// NewCamera creates a Camera with a 35 degree field of view and a [0.1, 100] depth range unless the
// options say otherwise. Each camera gets its own bind group provider named camera_N.
//
// Parameters:
//   - options: lens and controller options
//
// Returns:
//   - Camera: the camera, with its matrix already computed when a controller is attached
func NewCamera(options ...Option) Camera {
	c := &camera{
		fovY:     35 * math.Pi / 180,
		aspect:   1,
		near:     0.1,
		far:      100,
		viewProj: mgl32.Ident4(),
		provider: bind_group_provider.NewBindGroupProvider("camera_" + strconv.FormatUint(cameraCount.Add(1)-1, 10)),
	}
	for _, opt := range options {
		opt(c)
	}
	c.recompute()
	return c
}

func (c *camera) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *camera) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.aspect = float32(width) / float32(height)
	c.recompute()
}

func (c *camera) ViewProjectionMatrix() mgl32.Mat4 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProj
}

func (c *camera) Uniform() CameraUniform {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := CameraUniform{ViewProj: c.viewProj}
	if c.controller != nil {
		u.Position = c.controller.Position()
	}
	return u
}

func (c *camera) Controller() OrbitController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *camera) BindGroupProvider() bind_group_provider.BindGroupProvider {
	return c.provider
}

func (c *camera) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.controller != nil {
		c.controller.Update()
	}
	c.recompute()
}

// recompute rebuilds viewProj. Caller holds mu.
func (c *camera) recompute() {
	if c.controller == nil {
		return
	}
	view := mgl32.LookAtV(c.controller.Position(), c.controller.Target(), mgl32.Vec3{0, 1, 0})
	proj := mgl32.Perspective(c.fovY, c.aspect, c.near, c.far)
	c.viewProj = clipDepth.Mul4(proj).Mul4(view)
}
