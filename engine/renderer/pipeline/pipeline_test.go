package pipeline

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// stubShader satisfies shader.Shader for presence checks only.
type stubShader struct{ shader.Shader }

func TestValidate(t *testing.T) {
	s := stubShader{}
	tests := []struct {
		name    string
		typ     PipelineType
		opts    []PipelineBuilderOption
		wantErr error
	}{
		{"compute with shader", PipelineTypeCompute, []PipelineBuilderOption{WithComputeShader(s)}, nil},
		{"compute without shader", PipelineTypeCompute, nil, ErrMissingShader},
		{"render complete", PipelineTypeRender, []PipelineBuilderOption{WithVertexShader(s), WithFragmentShader(s)}, nil},
		{"render missing fragment", PipelineTypeRender, []PipelineBuilderOption{WithVertexShader(s)}, ErrMissingShader},
		{"render missing vertex", PipelineTypeRender, []PipelineBuilderOption{WithFragmentShader(s)}, ErrMissingShader},
		{"render with compute only", PipelineTypeRender, []PipelineBuilderOption{WithComputeShader(s)}, ErrMissingShader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPipeline(tt.name, tt.typ, tt.opts...).Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("particles", PipelineTypeRender)

	if p.PipelineKey() != "particles" || p.Type() != PipelineTypeRender {
		t.Errorf("key/type = %q/%v", p.PipelineKey(), p.Type())
	}
	if got := p.State(); got != DefaultRenderState() {
		t.Errorf("State() = %+v, want defaults", got)
	}
	if p.State().Blend != nil {
		t.Errorf("default pipeline blends")
	}
	if p.Shader(shader.ShaderTypeVertex) != nil {
		t.Errorf("unset vertex shader is non-nil")
	}
}

func TestBuilderOptions(t *testing.T) {
	vs := stubShader{}
	p := NewPipeline("sprites", PipelineTypeRender,
		WithVertexShader(vs),
		WithDepthWrite(false),
		WithBlend(&AlphaBlend),
		WithCullMode(wgpu.CullModeBack),
	)

	st := p.State()
	if st.DepthWrite || !st.DepthTest {
		t.Errorf("depth test/write = %v/%v, want true/false", st.DepthTest, st.DepthWrite)
	}
	if st.Blend == nil || st.Blend.Color.DstFactor != wgpu.BlendFactorOneMinusSrcAlpha {
		t.Errorf("blend = %+v, want alpha blend", st.Blend)
	}
	if st.CullMode != wgpu.CullModeBack || st.WriteMask != wgpu.ColorWriteMaskAll {
		t.Errorf("cull/mask = %v/%v", st.CullMode, st.WriteMask)
	}
	if p.Shader(shader.ShaderTypeVertex) == nil {
		t.Errorf("vertex shader not set")
	}
	if p.Pipeline().(*wgpu.RenderPipeline) != nil {
		t.Errorf("render pipeline set before creation")
	}

	// WithRenderState replaces everything set before it.
	p = NewPipeline("flat", PipelineTypeRender, WithCullMode(wgpu.CullModeFront), WithRenderState(RenderState{Topology: wgpu.PrimitiveTopologyPointList}))
	if st := p.State(); st.Topology != wgpu.PrimitiveTopologyPointList || st.DepthTest {
		t.Errorf("State() after WithRenderState = %+v", st)
	}
	p.Release()
}
