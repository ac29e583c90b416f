package simulation

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-particles/common"
	"github.com/Carmen-Shannon/oxy-particles/engine/encoder"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuSimulationBackend runs the integrator as a compute pass on the renderer's device.
// passes[i] reads target i and writes target 1-i, so a step only selects a bind group.
type wgpuSimulationBackend struct {
	renderer renderer.Renderer
	shader   shader.Shader

	size     int
	baseTex  *wgpu.Texture
	baseView *wgpu.TextureView
	targets  [2]*wgpu.Texture
	views    [2]*wgpu.TextureView
	passes   [2]bind_group_provider.BindGroupProvider

	uniformBinding int
	workgroups     [3]uint32
}

var _ SimulationBackend = &wgpuSimulationBackend{}

func newWGPUSimulationBackend(r renderer.Renderer) *wgpuSimulationBackend {
	return &wgpuSimulationBackend{renderer: r}
}

func (b *wgpuSimulationBackend) Allocate(initial *encoder.StateImage) error {
	if b.baseTex != nil {
		return ErrAlreadyInitialized
	}
	if limit := b.renderer.MaxTextureDimension2D(); uint32(initial.Size) > limit {
		return fmt.Errorf("%w: %dx%d state texture exceeds the device limit of %d", ErrUnsupportedFormat, initial.Size, initial.Size, limit)
	}

	s, err := shader.NewShaderFromSource(integrateProgramKey, shader.ShaderTypeCompute, integrateSource)
	if err != nil {
		return fmt.Errorf("compile integrator: %w", err)
	}
	b.shader = s

	b.size = initial.Size
	staging := initial.Staging()
	if err := b.allocateTextures(staging); err != nil {
		b.Release()
		return err
	}

	p := pipeline.NewPipeline(integrateProgramKey, pipeline.PipelineTypeCompute, pipeline.WithComputeShader(s))
	if err := b.renderer.RegisterPipelines(p); err != nil {
		b.Release()
		return fmt.Errorf("register integrator: %w", err)
	}

	if err := b.initPasses(); err != nil {
		b.Release()
		return err
	}

	wg := s.WorkgroupSize()
	edge := uint32(b.size)
	b.workgroups = [3]uint32{(edge + wg[0] - 1) / wg[0], (edge + wg[1] - 1) / wg[1], 1}
	return nil
}

func (b *wgpuSimulationBackend) allocateTextures(staging common.FloatTextureStagingData) error {
	var err error
	b.baseTex, b.baseView, err = b.renderer.CreateStateTexture("simulation base state", staging)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	for i := range b.targets {
		b.targets[i], b.views[i], err = b.renderer.CreateStateTexture(fmt.Sprintf("simulation %s target %d", positionVariable, i), staging)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
	}
	return nil
}

// initPasses builds the two bind groups, wiring each texture by the role its binding declares.
func (b *wgpuSimulationBackend) initPasses() error {
	decls := b.shader.Declarations()
	_, uniformBinding, ok := shader.BindingForType(decls, shader.KeySimulationParams)
	if !ok {
		return fmt.Errorf("integrator declares no %s binding", shader.KeySimulationParams)
	}
	b.uniformBinding = uniformBinding

	roles := []shader.Role{shader.RoleBaseState, shader.RolePreviousState, shader.RoleNextState}
	bindings := make(map[shader.Role]int, len(roles))
	for _, role := range roles {
		_, binding, ok := shader.BindingForRole(decls, shader.ProviderSimulation, role)
		if !ok {
			return fmt.Errorf("integrator declares no %s binding", role)
		}
		bindings[role] = binding
	}

	for read := range b.passes {
		write := 1 - read
		p := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("simulation pass %d->%d", read, write),
			bind_group_provider.WithSharedTextureView(bindings[shader.RoleBaseState], b.baseView),
			bind_group_provider.WithSharedTextureView(bindings[shader.RolePreviousState], b.views[read]),
			bind_group_provider.WithSharedTextureView(bindings[shader.RoleNextState], b.views[write]),
		)
		if err := b.renderer.InitBindGroup(p, b.shader.BindGroupLayoutDescriptor(0), nil, nil); err != nil {
			p.Release()
			return fmt.Errorf("init %s: %w", p.Label(), err)
		}
		b.passes[read] = p
	}
	return nil
}

func (b *wgpuSimulationBackend) Integrate(u GPUSimulationUniform, read, write int) error {
	if b.baseTex == nil {
		return ErrNotInitialized
	}
	if read == write {
		return fmt.Errorf("integrate: read and write target are both %d", read)
	}
	u.GridSize = float32(b.size)
	pass := b.passes[read&1]

	b.renderer.WriteBuffers([]bind_group_provider.BufferWrite{{
		Provider: pass,
		Binding:  b.uniformBinding,
		Data:     u.Marshal(),
	}})

	if err := b.renderer.BeginComputeFrame(); err != nil {
		return err
	}
	if err := b.renderer.DispatchCompute(integrateProgramKey, pass, b.workgroups); err != nil {
		_ = b.renderer.EndComputeFrame()
		return err
	}
	return b.renderer.EndComputeFrame()
}

func (b *wgpuSimulationBackend) View(index int) *wgpu.TextureView {
	return b.views[index&1]
}

func (b *wgpuSimulationBackend) Read(int) ([]float32, error) {
	return nil, ErrReadbackUnsupported
}

func (b *wgpuSimulationBackend) Release() {
	for i, p := range b.passes {
		if p != nil {
			p.Release()
			b.passes[i] = nil
		}
	}
	if b.shader != nil {
		b.renderer.ReleasePipeline(integrateProgramKey)
		b.shader = nil
	}
	for i := range b.targets {
		if b.views[i] != nil {
			b.views[i].Release()
			b.views[i] = nil
		}
		if b.targets[i] != nil {
			b.targets[i].Release()
			b.targets[i] = nil
		}
	}
	if b.baseView != nil {
		b.baseView.Release()
		b.baseView = nil
	}
	if b.baseTex != nil {
		b.baseTex.Release()
		b.baseTex = nil
	}
	b.size = 0
}
