package renderer

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-particles/common"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrPipelineNotFound is returned when a draw or dispatch names a pipeline key that was never registered.
var ErrPipelineNotFound = errors.New("renderer: pipeline not found")

// SurfaceSource is the part of a window the Renderer needs to create and size its surface.
type SurfaceSource interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Size() (width, height int)
}

// Renderer is the GPU front end shared by the simulation and the particle renderer. It caches
// pipelines by key and hides the device behind a small set of resource and frame calls.
//
// A frame is an optional compute submission followed by one render pass:
//
//	BeginComputeFrame, DispatchCompute..., EndComputeFrame
//	BeginFrame, DrawCall..., EndFrame, Present
//
// The compute submission is queued first, so draws in the same frame see its writes.
type Renderer interface {
	// Pipeline returns the registered pipeline for key, or nil.
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines validates and creates the GPU objects of each pipeline and caches it under
	// its key. Keys that are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: render or compute pipelines whose shaders are set
	//
	// Returns:
	//   - error: the first validation or device error
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// ReleasePipeline frees and forgets the pipeline registered under key.
	ReleasePipeline(key string)

	// Resize reconfigures the surface and its render targets. Zero sizes are ignored.
	Resize(width, height int)

	// SetPresentMode changes the present mode used from the next Resize on.
	SetPresentMode(mode PresentMode)

	// SetClearColor sets the background the render pass clears to. Components are in [0, 1].
	SetClearColor(r, g, b float64)

	// MaxTextureDimension2D returns the largest 2D texture edge the device accepts.
	MaxTextureDimension2D() uint32

	// CreateStateTexture creates an RGBA32Float texture that can be sampled, bound as a storage
	// texture and refilled from the CPU, uploading data.Texels when they are set.
	//
	// Parameters:
	//   - label: debug label
	//   - data: texture size and optional initial texels
	//
	// Returns:
	//   - *wgpu.Texture: the texture, owned by the caller
	//   - *wgpu.TextureView: a view of the whole texture, owned by the caller
	//   - error: a malformed staging buffer or a device error
	CreateStateTexture(label string, data common.FloatTextureStagingData) (*wgpu.Texture, *wgpu.TextureView, error)

	// WriteStateTexture replaces every texel of a state texture.
	//
	// Parameters:
	//   - tex: a texture from CreateStateTexture
	//   - data: texels matching the texture size
	//
	// Returns:
	//   - error: when data is malformed or empty
	WriteStateTexture(tex *wgpu.Texture, data common.FloatTextureStagingData) error

	// InitInstanceBuffer uploads per-instance vertex data and stores the buffer and the vertex
	// count per instance on provider.
	InitInstanceBuffer(provider bind_group_provider.BindGroupProvider, instanceData []byte, vertexCount int) error

	// InitBindGroup creates the bind group described by descriptor and stores it, its layout and
	// any buffers it allocates on provider. Texture views must already be attached.
	//
	// Parameters:
	//   - provider: receives the bind group and buffers
	//   - descriptor: the reflected layout of one @group
	//   - bufferUsageOverrides: extra usage flags per binding, may be nil
	//   - bufferSizeOverrides: buffer sizes per binding replacing MinBindingSize, may be nil
	//
	// Returns:
	//   - error: a missing texture view or a device error
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error

	// WriteBuffers queues each write into its provider's buffer. Writes to unallocated bindings are skipped.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginComputeFrame opens the frame's compute encoder.
	BeginComputeFrame() error

	// EndComputeFrame submits every dispatch recorded since BeginComputeFrame.
	EndComputeFrame() error

	// DispatchCompute records one compute pass with provider's bind group at group 0.
	//
	// Parameters:
	//   - pipelineKey: a registered compute pipeline
	//   - computeProvider: supplies the group 0 bind group
	//   - workGroupCount: workgroups in x, y and z
	//
	// Returns:
	//   - error: ErrPipelineNotFound, or an error when no compute frame is open
	DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error

	// BeginFrame acquires the next swapchain image and opens the render pass.
	BeginFrame() error

	// DrawCall records a non-indexed instanced draw. bindGroups are set at groups 0..n-1 and the
	// instance provider supplies vertex buffer 0 and the vertices per instance.
	//
	// Returns:
	//   - error: ErrPipelineNotFound, or an error when no frame is open
	DrawCall(pipelineKey string, instanceProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error

	// EndFrame closes the render pass and submits it. Failures are logged and drop the frame.
	EndFrame()

	// Present shows the submitted frame and releases the swapchain image.
	Present()

	// Release frees every cached pipeline and then the device.
	Release()
}

type renderer struct {
	mu        sync.Mutex
	pipelines map[string]pipeline.Pipeline
	backend   backend
}

var _ Renderer = &renderer{}

type rendererConfig struct {
	fallbackAdapter bool
	presentMode     PresentMode
	msaa            MSAASampleCount
	clear           *[3]float64
}

// RendererBuilderOption configures NewRenderer.
type RendererBuilderOption func(*rendererConfig)

// WithClearColor sets the initial clear color. Components are in [0, 1].
func WithClearColor(red, green, blue float64) RendererBuilderOption {
	return func(c *rendererConfig) { c.clear = &[3]float64{red, green, blue} }
}

// WithPresentMode sets the present mode. Defaults to PresentModeVSync.
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(c *rendererConfig) { c.presentMode = mode }
}

// WithMSAA sets the sample count of the main render pass. Defaults to MSAA4x.
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(c *rendererConfig) { c.msaa = count }
}

// WithForceSoftwareRenderer requests the fallback (CPU) adapter, which needs a software Vulkan
// driver such as lavapipe or SwiftShader.
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(c *rendererConfig) { c.fallbackAdapter = force }
}

// NewRenderer opens a device for surface and configures it at the surface's current size.
//
// Parameters:
//   - backendType: the GPU API to use
//   - surface: the window to present to
//   - options: present mode, MSAA, clear color and adapter options
//
// Returns:
//   - Renderer: the renderer
//   - error: when no adapter or device is available or the surface cannot be configured
func NewRenderer(backendType RendererBackendType, surface SurfaceSource, options ...RendererBuilderOption) (Renderer, error) {
	cfg := rendererConfig{presentMode: PresentModeVSync, msaa: MSAA4x}
	for _, opt := range options {
		opt(&cfg)
	}

	var b backend
	switch backendType {
	case BackendTypeWGPU:
		wb, err := newWGPUBackend(surface.SurfaceDescriptor(), cfg.fallbackAdapter, cfg.msaa)
		if err != nil {
			return nil, err
		}
		b = wb
	default:
		return nil, fmt.Errorf("renderer: unknown backend %d", backendType)
	}

	b.setPresentMode(cfg.presentMode)
	if cfg.clear != nil {
		b.setClearColor(cfg.clear[0], cfg.clear[1], cfg.clear[2])
	}
	if err := b.configureSurface(surface.Size()); err != nil {
		b.release()
		return nil, fmt.Errorf("configure surface: %w", err)
	}
	return &renderer{pipelines: make(map[string]pipeline.Pipeline), backend: b}, nil
}

func (r *renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	if err := r.backend.configureSurface(width, height); err != nil {
		log.Printf("[Renderer] resize to %dx%d: %v", width, height, err)
	}
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.setPresentMode(mode)
}

func (r *renderer) SetClearColor(red, green, blue float64) {
	r.backend.setClearColor(red, green, blue)
}

func (r *renderer) MaxTextureDimension2D() uint32 {
	return r.backend.maxTextureDimension2D()
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelines[key]
}

func (r *renderer) lookup(key string, want pipeline.PipelineType) (pipeline.Pipeline, error) {
	r.mu.Lock()
	p, ok := r.pipelines[key]
	r.mu.Unlock()
	if !ok || p.Type() != want {
		return nil, fmt.Errorf("%w: %q", ErrPipelineNotFound, key)
	}
	return p, nil
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, ok := r.pipelines[key]; ok {
			continue
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("pipeline %q: %w", key, err)
		}
		var err error
		if p.Type() == pipeline.PipelineTypeCompute {
			err = r.backend.createComputePipeline(p)
		} else {
			err = r.backend.createRenderPipeline(p)
		}
		if err != nil {
			return err
		}
		r.pipelines[key] = p
	}
	return nil
}

func (r *renderer) ReleasePipeline(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.pipelines[key]; ok {
		p.Release()
		delete(r.pipelines, key)
	}
}

func (r *renderer) CreateStateTexture(label string, data common.FloatTextureStagingData) (*wgpu.Texture, *wgpu.TextureView, error) {
	if err := data.Validate(); err != nil {
		return nil, nil, err
	}
	return r.backend.createStateTexture(label, data)
}

func (r *renderer) WriteStateTexture(tex *wgpu.Texture, data common.FloatTextureStagingData) error {
	if err := data.Validate(); err != nil {
		return err
	}
	if tex == nil || data.Texels == nil {
		return errors.New("write state texture: nothing to write")
	}
	r.backend.writeStateTexture(tex, data)
	return nil
}

func (r *renderer) InitInstanceBuffer(provider bind_group_provider.BindGroupProvider, instanceData []byte, vertexCount int) error {
	return r.backend.initInstanceBuffer(provider, instanceData, vertexCount)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, bufferUsageOverrides map[int]wgpu.BufferUsage, bufferSizeOverrides map[int]uint64) error {
	return r.backend.initBindGroup(provider, descriptor, bufferUsageOverrides, bufferSizeOverrides)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.backend.writeBuffers(writes)
}

func (r *renderer) BeginComputeFrame() error { return r.backend.beginComputeFrame() }
func (r *renderer) EndComputeFrame() error   { return r.backend.endComputeFrame() }

func (r *renderer) DispatchCompute(pipelineKey string, computeProvider bind_group_provider.BindGroupProvider, workGroupCount [3]uint32) error {
	p, err := r.lookup(pipelineKey, pipeline.PipelineTypeCompute)
	if err != nil {
		return err
	}
	return r.backend.dispatchCompute(p, computeProvider, workGroupCount)
}

func (r *renderer) BeginFrame() error { return r.backend.beginFrame() }

func (r *renderer) DrawCall(pipelineKey string, instanceProvider bind_group_provider.BindGroupProvider, instanceCount uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	p, err := r.lookup(pipelineKey, pipeline.PipelineTypeRender)
	if err != nil {
		return err
	}
	return r.backend.drawCall(p, instanceProvider, instanceCount, bindGroups)
}

func (r *renderer) EndFrame() {
	if err := r.backend.endFrame(); err != nil {
		log.Printf("[Renderer] %v", err)
	}
}

func (r *renderer) Present() { r.backend.present() }

func (r *renderer) Release() {
	r.mu.Lock()
	for key, p := range r.pipelines {
		p.Release()
		delete(r.pipelines, key)
	}
	r.mu.Unlock()
	r.backend.release()
}
