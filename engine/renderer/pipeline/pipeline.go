package pipeline

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// PipelineType says which GPU pipeline a Pipeline describes.
type PipelineType int

const (
	// PipelineTypeCompute needs a compute shader.
	PipelineTypeCompute PipelineType = iota

	// PipelineTypeRender needs a vertex and a fragment shader.
	PipelineTypeRender
)

// ErrMissingShader is returned by Validate when a pipeline lacks a shader its type requires.
var ErrMissingShader = errors.New("pipeline: missing required shader")

// AlphaBlend is the straight-alpha "over" blend.
var AlphaBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorSrcAlpha,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
		Operation: wgpu.BlendOperationAdd,
	},
}

// RenderState is the fixed-function state of a render pipeline. Compute pipelines ignore it.
type RenderState struct {
	DepthTest  bool
	DepthWrite bool
	// Blend is nil for opaque output.
	Blend     *wgpu.BlendState
	CullMode  wgpu.CullMode
	Topology  wgpu.PrimitiveTopology
	FrontFace wgpu.FrontFace
	WriteMask wgpu.ColorWriteMask
}

// DefaultRenderState is opaque, depth tested and written, unculled counter-clockwise triangles.
func DefaultRenderState() RenderState {
	return RenderState{
		DepthTest:  true,
		DepthWrite: true,
		CullMode:   wgpu.CullModeNone,
		Topology:   wgpu.PrimitiveTopologyTriangleList,
		FrontFace:  wgpu.FrontFaceCCW,
		WriteMask:  wgpu.ColorWriteMaskAll,
	}
}

// Pipeline pairs the shaders and render state of one GPU pipeline with the GPU object the renderer
// creates from them. The renderer caches pipelines by key.
type Pipeline interface {
	// Type returns whether this is a render or compute pipeline.
	Type() PipelineType

	// PipelineKey returns the cache key.
	PipelineKey() string

	// Shader returns the shader for a stage, or nil.
	Shader(stage shader.ShaderType) shader.Shader

	// State returns the fixed-function state.
	State() RenderState

	// Pipeline returns the *wgpu.RenderPipeline or *wgpu.ComputePipeline, typed nil before creation.
	Pipeline() any

	// SetRenderPipeline stores the created render pipeline.
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// SetComputePipeline stores the created compute pipeline.
	SetComputePipeline(p *wgpu.ComputePipeline)

	// Validate reports ErrMissingShader when a stage the type requires has no shader.
	Validate() error

	// Release frees the GPU object. The pipeline can be registered again afterwards.
	Release()
}

type pipeline struct {
	typ     PipelineType
	key     string
	shaders map[shader.ShaderType]shader.Shader
	state   RenderState

	render  *wgpu.RenderPipeline
	compute *wgpu.ComputePipeline
}

var _ Pipeline = &pipeline{}

// PipelineBuilderOption configures a Pipeline in NewPipeline.
type PipelineBuilderOption func(*pipeline)

// WithVertexShader sets the vertex stage.
func WithVertexShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) { p.shaders[shader.ShaderTypeVertex] = s }
}

// WithFragmentShader sets the fragment stage.
func WithFragmentShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) { p.shaders[shader.ShaderTypeFragment] = s }
}

// WithComputeShader sets the compute stage.
func WithComputeShader(s shader.Shader) PipelineBuilderOption {
	return func(p *pipeline) { p.shaders[shader.ShaderTypeCompute] = s }
}

// WithRenderState replaces the whole fixed-function state.
func WithRenderState(state RenderState) PipelineBuilderOption {
	return func(p *pipeline) { p.state = state }
}

// WithCullMode sets which faces are culled.
func WithCullMode(mode wgpu.CullMode) PipelineBuilderOption {
	return func(p *pipeline) { p.state.CullMode = mode }
}

// WithDepthWrite toggles depth writes. Depth testing stays as configured.
func WithDepthWrite(enabled bool) PipelineBuilderOption {
	return func(p *pipeline) { p.state.DepthWrite = enabled }
}

// WithBlend enables blending with state, or disables it when state is nil.
func WithBlend(state *wgpu.BlendState) PipelineBuilderOption {
	return func(p *pipeline) { p.state.Blend = state }
}

// NewPipeline creates an uncreated Pipeline with DefaultRenderState.
//
// Parameters:
//   - key: the cache key, unique per renderer
//   - typ: render or compute
//   - opts: shaders and render state
//
// Returns:
//   - Pipeline: ready to pass to Renderer.RegisterPipelines
func NewPipeline(key string, typ PipelineType, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		typ:     typ,
		key:     key,
		shaders: make(map[shader.ShaderType]shader.Shader, 2),
		state:   DefaultRenderState(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) Type() PipelineType {
	return p.typ
}

func (p *pipeline) PipelineKey() string {
	return p.key
}

func (p *pipeline) Shader(stage shader.ShaderType) shader.Shader {
	return p.shaders[stage]
}

func (p *pipeline) State() RenderState {
	return p.state
}

func (p *pipeline) Pipeline() any {
	if p.typ == PipelineTypeCompute {
		return p.compute
	}
	return p.render
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.render = rp
}

func (p *pipeline) SetComputePipeline(cp *wgpu.ComputePipeline) {
	p.compute = cp
}

func (p *pipeline) Validate() error {
	required := []shader.ShaderType{shader.ShaderTypeVertex, shader.ShaderTypeFragment}
	if p.typ == PipelineTypeCompute {
		required = []shader.ShaderType{shader.ShaderTypeCompute}
	}
	for _, stage := range required {
		if p.shaders[stage] == nil {
			return ErrMissingShader
		}
	}
	return nil
}

func (p *pipeline) Release() {
	if p.render != nil {
		p.render.Release()
		p.render = nil
	}
	if p.compute != nil {
		p.compute.Release()
		p.compute = nil
	}
}
