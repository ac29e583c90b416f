// Package particles draws the particle cloud: one camera-facing sprite per particle, positioned
// by the live simulation state texture and colored by the particle's rest color.
package particles

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-particles/common"
	"github.com/Carmen-Shannon/oxy-particles/engine/camera"
	"github.com/Carmen-Shannon/oxy-particles/engine/encoder"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-particles/engine/settings"
	"github.com/Carmen-Shannon/oxy-particles/engine/simulation"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrNoParticles is returned when the attributes describe zero particles.
	ErrNoParticles = errors.New("particles: no particles to draw")

	// ErrNoTexture is returned by Draw before any state texture was bound.
	ErrNoTexture = errors.New("particles: no state texture bound")

	// ErrNoCamera is returned by Draw when the camera has no bind group provider for its uniform.
	ErrNoCamera = errors.New("particles: camera has no bind group provider")
)

const (
	pipelineKey = "particles"

	// quadVertices is the number of vertices emitted per sprite (two triangles).
	quadVertices = 6

	// uploadSlot is the live-state cache slot of the texture filled by Upload.
	uploadSlot = 2
)

// Particles is the particle renderer.
type Particles interface {
	// SetTexture binds the simulation's current target as the live state for the next Draw.
	// Bind groups are cached per target, so rebinding every frame allocates nothing.
	//
	// Parameters:
	//   - tex: the handle returned by the simulation's CurrentTexture in this frame
	//
	// Returns:
	//   - error: an error if the handle carries no GPU view or the bind group cannot be built
	SetTexture(tex simulation.Texture) error

	// Upload copies host-side state texels into the renderer's own state texture and binds it.
	// Used when the simulation integrates on the CPU.
	//
	// Parameters:
	//   - texels: S*S*4 floats in row-major order
	//
	// Returns:
	//   - error: an error if the texel count does not match the grid
	Upload(texels []float32) error

	// Resize updates the resolution uniform. Count, UVs and rest attributes are not touched.
	// Non-positive sizes are ignored and pixelRatio is clamped to [1, 2].
	//
	// Parameters:
	//   - width, height: the framebuffer size in logical pixels
	//   - pixelRatio: physical pixels per logical pixel
	Resize(width, height int, pixelRatio float32)

	// Draw records the sprite draw into the current render frame.
	//
	// Parameters:
	//   - cam: the camera to view the cloud through
	//   - s: the frame's settings; only ParticleSize is read
	//
	// Returns:
	//   - error: ErrNoTexture before a texture was bound, or the renderer's draw error
	Draw(cam camera.Camera, s settings.Settings) error

	// Count returns N, the number of sprites drawn.
	Count() int

	// GridSize returns S, the edge of the state texture.
	GridSize() int

	// UVs returns the per-particle state texture coordinates. The slice must not be modified.
	UVs() [][2]float32

	// Resolution returns the current resolution uniform in physical pixels.
	Resolution() [2]float32

	// Release frees the instance buffer, the cached bind groups and the pipeline.
	Release()
}

type particles struct {
	mu       *sync.Mutex
	renderer renderer.Renderer

	vertex   shader.Shader
	fragment shader.Shader

	count    int
	gridSize int
	uvs      [][2]float32

	instances bind_group_provider.BindGroupProvider
	live      [3]bind_group_provider.BindGroupProvider
	liveViews [3]*wgpu.TextureView
	active    bind_group_provider.BindGroupProvider

	uploadTex  *wgpu.Texture
	uploadView *wgpu.TextureView

	cameraBinding int
	paramsBinding int
	liveBinding   int

	resolution [2]float32
}

var _ Particles = &particles{}

// NewParticles compiles the sprite pipeline and uploads the immutable per-particle attributes.
//
// Parameters:
//   - r: the renderer owning the device
//   - attrs: the per-particle attributes, one entry per particle
//   - gridSize: S, the edge of the simulation state texture
//   - options: functional options (initial resolution)
//
// Returns:
//   - Particles: the particle renderer
//   - error: ErrNoParticles, a grid too small for the particles, or a GPU setup error
func NewParticles(r renderer.Renderer, attrs *encoder.ParticleAttributes, gridSize int, options ...ParticlesBuilderOption) (Particles, error) {
	p, err := newParticles(attrs, gridSize, options...)
	if err != nil {
		return nil, err
	}
	p.renderer = r
	if err := p.init(attrs); err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

// newParticles validates the attributes and builds the host-side state.
func newParticles(attrs *encoder.ParticleAttributes, gridSize int, options ...ParticlesBuilderOption) (*particles, error) {
	if attrs == nil || attrs.Count() == 0 {
		return nil, ErrNoParticles
	}
	n := attrs.Count()
	if len(attrs.Sizes) != n || len(attrs.Colors) != n {
		return nil, fmt.Errorf("particles: attribute lengths differ (uvs %d, sizes %d, colors %d)", n, len(attrs.Sizes), len(attrs.Colors))
	}
	if gridSize*gridSize < n {
		return nil, fmt.Errorf("particles: %dx%d grid cannot hold %d particles", gridSize, gridSize, n)
	}

	p := &particles{
		mu:         &sync.Mutex{},
		count:      n,
		gridSize:   gridSize,
		uvs:        attrs.UVs,
		resolution: [2]float32{1, 1},
	}
	for _, option := range options {
		option(p)
	}
	return p, nil
}

func (p *particles) init(attrs *encoder.ParticleAttributes) error {
	var err error
	p.vertex, err = shader.NewShaderFromSource(pipelineKey+".vertex", shader.ShaderTypeVertex, vertexSource)
	if err != nil {
		return err
	}
	p.fragment, err = shader.NewShaderFromSource(pipelineKey+".fragment", shader.ShaderTypeFragment, fragmentSource)
	if err != nil {
		return err
	}

	decls := p.vertex.Declarations()
	var ok bool
	if _, p.cameraBinding, ok = shader.BindingForType(decls, shader.KeyCamera); !ok {
		return fmt.Errorf("particle shader declares no %s binding", shader.KeyCamera)
	}
	if _, p.paramsBinding, ok = shader.BindingForType(decls, shader.KeyParticlesParams); !ok {
		return fmt.Errorf("particle shader declares no %s binding", shader.KeyParticlesParams)
	}
	if _, p.liveBinding, ok = shader.BindingForRole(decls, shader.ProviderParticles, shader.RoleLiveState); !ok {
		return fmt.Errorf("particle shader declares no %s binding", shader.RoleLiveState)
	}

	pl := pipeline.NewPipeline(pipelineKey, pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(p.vertex),
		pipeline.WithFragmentShader(p.fragment),
		// Opaque, depth-tested quads.
		pipeline.WithRenderState(pipeline.DefaultRenderState()),
	)
	if err := p.renderer.RegisterPipelines(pl); err != nil {
		return fmt.Errorf("register particle pipeline: %w", err)
	}

	p.instances = bind_group_provider.NewBindGroupProvider("particle instances")
	if err := p.renderer.InitInstanceBuffer(p.instances, packInstances(attrs), quadVertices); err != nil {
		return fmt.Errorf("upload particle instances: %w", err)
	}
	return nil
}

func (p *particles) SetTexture(tex simulation.Texture) error {
	if tex.View == nil {
		return fmt.Errorf("particles: %s target %d has no GPU view", tex.Variable, tex.Index)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.bind(tex.Index&1, tex.View)
}

func (p *particles) Upload(texels []float32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	data := common.FloatTextureStagingData{
		Texels: texels,
		Width:  uint32(p.gridSize),
		Height: uint32(p.gridSize),
	}
	if err := data.Validate(); err != nil {
		return fmt.Errorf("particles: upload: %w", err)
	}
	if p.uploadTex == nil {
		var err error
		p.uploadTex, p.uploadView, err = p.renderer.CreateStateTexture("particles uploaded state", data)
		if err != nil {
			return fmt.Errorf("particles: upload: %w", err)
		}
	} else if err := p.renderer.WriteStateTexture(p.uploadTex, data); err != nil {
		return fmt.Errorf("particles: upload: %w", err)
	}
	return p.bind(uploadSlot, p.uploadView)
}

// bind makes the cached bind group for slot active, rebuilding it when the view changed.
// Caller must hold the mutex.
func (p *particles) bind(slot int, view *wgpu.TextureView) error {
	if cached := p.live[slot]; cached != nil && p.liveViews[slot] == view {
		p.active = cached
		return nil
	}
	if old := p.live[slot]; old != nil {
		if p.active == old {
			p.active = nil
		}
		old.Release()
		p.live[slot] = nil
		p.liveViews[slot] = nil
	}

	provider := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("particles live %d", slot),
		bind_group_provider.WithSharedTextureView(p.liveBinding, view),
	)
	if err := p.renderer.InitBindGroup(provider, p.vertex.BindGroupLayoutDescriptor(1), nil, nil); err != nil {
		provider.Release()
		return fmt.Errorf("init %s: %w", provider.Label(), err)
	}
	p.live[slot] = provider
	p.liveViews[slot] = view
	p.active = provider
	return nil
}

func (p *particles) Resize(width, height int, pixelRatio float32) {
	if width <= 0 || height <= 0 {
		return
	}
	ratio := common.Clamp(pixelRatio, 1, 2)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolution = [2]float32{float32(width) * ratio, float32(height) * ratio}
}

func (p *particles) Draw(cam camera.Camera, s settings.Settings) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.active == nil {
		return ErrNoTexture
	}

	if cam == nil || cam.BindGroupProvider() == nil {
		return ErrNoCamera
	}
	camProvider := cam.BindGroupProvider()
	if camProvider.BindGroup() == nil {
		if err := p.renderer.InitBindGroup(camProvider, p.vertex.BindGroupLayoutDescriptor(0), nil, nil); err != nil {
			return fmt.Errorf("init %s: %w", camProvider.Label(), err)
		}
	}

	camUniform := cam.Uniform()
	uniform := p.uniform(s)
	p.renderer.WriteBuffers([]bind_group_provider.BufferWrite{
		{Provider: camProvider, Binding: p.cameraBinding, Data: camUniform.Marshal()},
		{Provider: p.active, Binding: p.paramsBinding, Data: uniform.Marshal()},
	})

	return p.renderer.DrawCall(pipelineKey, p.instances, uint32(p.count),
		[]bind_group_provider.BindGroupProvider{camProvider, p.active})
}

// uniform builds the per-frame renderer uniform. Caller must hold the mutex.
func (p *particles) uniform(s settings.Settings) GPUParticlesUniform {
	return GPUParticlesUniform{
		Resolution: p.resolution,
		PointSize:  common.Clamp(s.ParticleSize, 0, settings.MaxParticleSize),
		GridSize:   float32(p.gridSize),
	}
}

func (p *particles) Count() int {
	return p.count
}

func (p *particles) GridSize() int {
	return p.gridSize
}

func (p *particles) UVs() [][2]float32 {
	return p.uvs
}

func (p *particles) Resolution() [2]float32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resolution
}

func (p *particles) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.active = nil
	for i, provider := range p.live {
		if provider != nil {
			provider.Release()
			p.live[i] = nil
			p.liveViews[i] = nil
		}
	}
	if p.instances != nil {
		p.instances.Release()
		p.instances = nil
	}
	if p.uploadView != nil {
		p.uploadView.Release()
		p.uploadView = nil
	}
	if p.uploadTex != nil {
		p.uploadTex.Release()
		p.uploadTex = nil
	}
	if p.vertex != nil && p.renderer != nil {
		p.renderer.ReleasePipeline(pipelineKey)
	}
	p.vertex = nil
	p.fragment = nil
}
