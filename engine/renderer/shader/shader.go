package shader

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType is the pipeline stage a shader is compiled for.
type ShaderType int

const (
	ShaderTypeCompute ShaderType = iota
	ShaderTypeVertex
	ShaderTypeFragment
)

var stageVisibility = map[ShaderType]wgpu.ShaderStage{
	ShaderTypeCompute:  wgpu.ShaderStageCompute,
	ShaderTypeVertex:   wgpu.ShaderStageVertex,
	ShaderTypeFragment: wgpu.ShaderStageFragment,
}

// Shader is a preprocessed WGSL module with the layouts reflected from it. The renderer builds
// pipelines from the layouts; the owning component finds its bindings through Declarations.
type Shader interface {
	// Key labels the GPU module and keys pipeline caches.
	Key() string

	// Source is the WGSL after directive expansion.
	Source() string

	// EntryPoint is the function carrying the stage attribute of the shader's type.
	EntryPoint() string

	// BindGroupLayoutDescriptor returns the entries of one @group sorted by binding, or an empty
	// descriptor when the shader declares nothing there.
	BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// VertexLayout returns the buffer layout at a vertex buffer slot. Only vertex shaders have one.
	VertexLayout(slot int) []wgpu.VertexBufferLayout
	VertexLayouts() map[int][]wgpu.VertexBufferLayout

	// WorkgroupSize is the @workgroup_size of a compute entry point, [1 1 1] when omitted and
	// zero for render stages.
	WorkgroupSize() [3]uint32

	// Declarations lists the group and provider directives of the source.
	Declarations() []Directive
}

type shader struct {
	key        string
	stage      ShaderType
	source     string
	entryPoint string
	decls      []Directive

	groups        map[int]wgpu.BindGroupLayoutDescriptor
	vertexLayouts map[int][]wgpu.VertexBufferLayout
	workgroup     [3]uint32
}

var _ Shader = &shader{}

// NewShaderFromSource preprocesses and reflects WGSL source, usually a go:embed asset.
func NewShaderFromSource(key string, stage ShaderType, source string) (Shader, error) {
	visibility, ok := stageVisibility[stage]
	if !ok {
		return nil, fmt.Errorf("shader %s: unknown stage %d", key, stage)
	}

	expanded, decls, err := Preprocess(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	r := newReflection(expanded)

	s := &shader{
		key:        key,
		stage:      stage,
		source:     expanded,
		decls:      decls,
		entryPoint: r.entryPoint(stage),
		groups:     r.bindGroupLayouts(visibility),
	}
	if s.entryPoint == "" {
		return nil, fmt.Errorf("shader %s: no entry point for stage %d", key, stage)
	}
	switch stage {
	case ShaderTypeVertex:
		s.vertexLayouts = r.vertexLayouts()
	case ShaderTypeCompute:
		s.workgroup = r.workgroupSize()
	}
	return s, nil
}

func (s *shader) Key() string        { return s.key }
func (s *shader) Source() string     { return s.source }
func (s *shader) EntryPoint() string { return s.entryPoint }

func (s *shader) BindGroupLayoutDescriptor(group int) wgpu.BindGroupLayoutDescriptor {
	return s.groups[group]
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.groups
}

func (s *shader) VertexLayout(slot int) []wgpu.VertexBufferLayout {
	return s.vertexLayouts[slot]
}

func (s *shader) VertexLayouts() map[int][]wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) WorkgroupSize() [3]uint32  { return s.workgroup }
func (s *shader) Declarations() []Directive { return s.decls }
