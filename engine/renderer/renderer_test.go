package renderer

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-particles/common"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// fakeBackend records which backend calls the front end forwards.
type fakeBackend struct {
	backend
	created    []string
	dispatched int
	drawn      int
	writes     int
}

func (f *fakeBackend) createRenderPipeline(p pipeline.Pipeline) error {
	f.created = append(f.created, p.PipelineKey())
	return nil
}

func (f *fakeBackend) createComputePipeline(p pipeline.Pipeline) error {
	f.created = append(f.created, p.PipelineKey())
	return nil
}

func (f *fakeBackend) dispatchCompute(pipeline.Pipeline, bind_group_provider.BindGroupProvider, [3]uint32) error {
	f.dispatched++
	return nil
}

func (f *fakeBackend) drawCall(pipeline.Pipeline, bind_group_provider.BindGroupProvider, uint32, []bind_group_provider.BindGroupProvider) error {
	f.drawn++
	return nil
}

func (f *fakeBackend) writeStateTexture(*wgpu.Texture, common.FloatTextureStagingData) {
	f.writes++
}

type stubShader struct{ shader.Shader }

func newTestRenderer() (*renderer, *fakeBackend) {
	fb := &fakeBackend{}
	return &renderer{pipelines: make(map[string]pipeline.Pipeline), backend: fb}, fb
}

func TestRegisterPipelines(t *testing.T) {
	r, fb := newTestRenderer()
	s := stubShader{}
	sim := pipeline.NewPipeline("sim", pipeline.PipelineTypeCompute, pipeline.WithComputeShader(s))
	draw := pipeline.NewPipeline("draw", pipeline.PipelineTypeRender, pipeline.WithVertexShader(s), pipeline.WithFragmentShader(s))

	if err := r.RegisterPipelines(sim, draw, sim); err != nil {
		t.Fatalf("RegisterPipelines() = %v", err)
	}
	if len(fb.created) != 2 {
		t.Errorf("created %v, want each key once", fb.created)
	}
	if r.Pipeline("draw") != draw {
		t.Errorf("Pipeline(draw) not cached")
	}

	broken := pipeline.NewPipeline("broken", pipeline.PipelineTypeRender, pipeline.WithVertexShader(s))
	if err := r.RegisterPipelines(broken); !errors.Is(err, pipeline.ErrMissingShader) {
		t.Errorf("RegisterPipelines(broken) = %v, want ErrMissingShader", err)
	}
	if r.Pipeline("broken") != nil {
		t.Errorf("invalid pipeline was cached")
	}
}

func TestPipelineLookup(t *testing.T) {
	r, fb := newTestRenderer()
	s := stubShader{}
	if err := r.RegisterPipelines(
		pipeline.NewPipeline("sim", pipeline.PipelineTypeCompute, pipeline.WithComputeShader(s)),
		pipeline.NewPipeline("draw", pipeline.PipelineTypeRender, pipeline.WithVertexShader(s), pipeline.WithFragmentShader(s)),
	); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{"dispatch compute", func() error { return r.DispatchCompute("sim", nil, [3]uint32{1, 1, 1}) }, nil},
		{"draw render", func() error { return r.DrawCall("draw", nil, 1, nil) }, nil},
		{"dispatch unknown", func() error { return r.DispatchCompute("nope", nil, [3]uint32{1, 1, 1}) }, ErrPipelineNotFound},
		{"dispatch render pipeline", func() error { return r.DispatchCompute("draw", nil, [3]uint32{1, 1, 1}) }, ErrPipelineNotFound},
		{"draw compute pipeline", func() error { return r.DrawCall("sim", nil, 1, nil) }, ErrPipelineNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
	if fb.dispatched != 1 || fb.drawn != 1 {
		t.Errorf("forwarded %d dispatches and %d draws, want 1 and 1", fb.dispatched, fb.drawn)
	}
}

func TestWriteStateTextureValidates(t *testing.T) {
	r, fb := newTestRenderer()
	tex := &wgpu.Texture{}
	tests := []struct {
		name    string
		tex     *wgpu.Texture
		data    common.FloatTextureStagingData
		wantErr bool
	}{
		{"ok", tex, common.FloatTextureStagingData{Texels: make([]float32, 16), Width: 2, Height: 2}, false},
		{"short", tex, common.FloatTextureStagingData{Texels: make([]float32, 8), Width: 2, Height: 2}, true},
		{"no texels", tex, common.FloatTextureStagingData{Width: 2, Height: 2}, true},
		{"no texture", nil, common.FloatTextureStagingData{Texels: make([]float32, 16), Width: 2, Height: 2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.WriteStateTexture(tt.tex, tt.data); (err != nil) != tt.wantErr {
				t.Errorf("WriteStateTexture() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
	if fb.writes != 1 {
		t.Errorf("forwarded %d writes, want 1", fb.writes)
	}
}

func TestMergeBindGroupLayouts(t *testing.T) {
	vertex := map[int]wgpu.BindGroupLayoutDescriptor{
		0: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageVertex},
		}},
		1: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 1, Visibility: wgpu.ShaderStageVertex},
			{Binding: 0, Visibility: wgpu.ShaderStageVertex},
		}},
	}
	fragment := map[int]wgpu.BindGroupLayoutDescriptor{
		1: {Entries: []wgpu.BindGroupLayoutEntry{
			{Binding: 0, Visibility: wgpu.ShaderStageFragment},
			{Binding: 2, Visibility: wgpu.ShaderStageFragment},
		}},
	}

	merged := mergeBindGroupLayouts(vertex, fragment)
	if len(merged) != 2 {
		t.Fatalf("merged %d groups, want 2", len(merged))
	}
	if got := merged[0].Entries; len(got) != 1 || got[0].Visibility != wgpu.ShaderStageVertex {
		t.Errorf("group 0 = %+v, want the vertex-only entry", got)
	}

	tests := []struct {
		binding    uint32
		visibility wgpu.ShaderStage
	}{
		{0, wgpu.ShaderStageVertex | wgpu.ShaderStageFragment},
		{1, wgpu.ShaderStageVertex},
		{2, wgpu.ShaderStageFragment},
	}
	entries := merged[1].Entries
	if len(entries) != len(tests) {
		t.Fatalf("group 1 has %d entries, want %d", len(entries), len(tests))
	}
	for i, tt := range tests {
		if entries[i].Binding != tt.binding {
			t.Errorf("entries[%d].Binding = %d, want %d (sorted)", i, entries[i].Binding, tt.binding)
		}
		if entries[i].Visibility != tt.visibility {
			t.Errorf("binding %d visibility = %v, want %v", tt.binding, entries[i].Visibility, tt.visibility)
		}
	}
}
