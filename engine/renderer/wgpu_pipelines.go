package renderer

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

func (b *wgpuBackend) module(s shader.Shader) (*wgpu.ShaderModule, error) {
	m, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          s.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: s.Source()},
	})
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", s.Key(), err)
	}
	return m, nil
}

func (b *wgpuBackend) createRenderPipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	vert, frag := p.Shader(shader.ShaderTypeVertex), p.Shader(shader.ShaderTypeFragment)
	vs, err := b.module(vert)
	if err != nil {
		return err
	}
	defer vs.Release()
	fs, err := b.module(frag)
	if err != nil {
		return err
	}
	defer fs.Release()

	layout, err := b.pipelineLayout(p.PipelineKey(), mergeBindGroupLayouts(vert.BindGroupLayoutDescriptors(), frag.BindGroupLayoutDescriptors()))
	if err != nil {
		return err
	}

	var buffers []wgpu.VertexBufferLayout
	for _, slot := range slices.Sorted(maps.Keys(vert.VertexLayouts())) {
		buffers = append(buffers, vert.VertexLayout(slot)...)
	}

	st := p.State()
	target := wgpu.ColorTargetState{Format: b.format, WriteMask: st.WriteMask, Blend: st.Blend}
	compare := wgpu.CompareFunctionLess
	if !st.DepthTest {
		compare = wgpu.CompareFunctionAlways
	}
	stencil := wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways}

	rp, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey(),
		Layout: layout,
		Vertex: wgpu.VertexState{Module: vs, EntryPoint: vert.EntryPoint(), Buffers: buffers},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: frag.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  st.Topology,
			FrontFace: st.FrontFace,
			CullMode:  st.CullMode,
		},
		Multisample: wgpu.MultisampleState{Count: b.samples, Mask: 0xFFFFFFFF},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: st.DepthWrite,
			DepthCompare:      compare,
			StencilFront:      stencil,
			StencilBack:       stencil,
		},
	})
	if err != nil {
		return fmt.Errorf("render pipeline %s: %w", p.PipelineKey(), err)
	}
	p.SetRenderPipeline(rp)
	return nil
}

func (b *wgpuBackend) createComputePipeline(p pipeline.Pipeline) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	comp := p.Shader(shader.ShaderTypeCompute)
	cs, err := b.module(comp)
	if err != nil {
		return err
	}
	defer cs.Release()

	layout, err := b.pipelineLayout(p.PipelineKey(), comp.BindGroupLayoutDescriptors())
	if err != nil {
		return err
	}
	cp, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:   p.PipelineKey(),
		Layout:  layout,
		Compute: wgpu.ProgrammableStageDescriptor{Module: cs, EntryPoint: comp.EntryPoint()},
	})
	if err != nil {
		return fmt.Errorf("compute pipeline %s: %w", p.PipelineKey(), err)
	}
	p.SetComputePipeline(cp)
	return nil
}

// pipelineLayout creates one bind group layout per declared group. Groups must be contiguous from 0.
func (b *wgpuBackend) pipelineLayout(label string, groups map[int]wgpu.BindGroupLayoutDescriptor) (*wgpu.PipelineLayout, error) {
	layouts := make([]*wgpu.BindGroupLayout, len(groups))
	for g := range layouts {
		desc, ok := groups[g]
		if !ok {
			return nil, fmt.Errorf("%s: bind group %d is not declared by any stage", label, g)
		}
		bgl, err := b.device.CreateBindGroupLayout(&desc)
		if err != nil {
			return nil, fmt.Errorf("%s: bind group layout %d: %w", label, g, err)
		}
		layouts[g] = bgl
	}
	return b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            label,
		BindGroupLayouts: layouts,
	})
}

// mergeBindGroupLayouts unions the groups of the vertex and fragment stages. A binding declared by
// both stages keeps the vertex declaration with the two visibilities OR-ed.
func mergeBindGroupLayouts(vertex, fragment map[int]wgpu.BindGroupLayoutDescriptor) map[int]wgpu.BindGroupLayoutDescriptor {
	merged := maps.Clone(vertex)
	if merged == nil {
		merged = make(map[int]wgpu.BindGroupLayoutDescriptor, len(fragment))
	}
	for g, fdesc := range fragment {
		vdesc, shared := merged[g]
		if !shared {
			merged[g] = fdesc
			continue
		}
		entries := slices.Clone(vdesc.Entries)
		for _, fe := range fdesc.Entries {
			i := slices.IndexFunc(entries, func(e wgpu.BindGroupLayoutEntry) bool { return e.Binding == fe.Binding })
			if i < 0 {
				entries = append(entries, fe)
				continue
			}
			entries[i].Visibility |= fe.Visibility
		}
		slices.SortFunc(entries, func(a, b wgpu.BindGroupLayoutEntry) int { return cmp.Compare(a.Binding, b.Binding) })
		merged[g] = wgpu.BindGroupLayoutDescriptor{Label: vdesc.Label, Entries: entries}
	}
	return merged
}

func (b *wgpuBackend) beginComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	enc, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("compute encoder: %w", err)
	}
	b.compute = enc
	return nil
}

func (b *wgpuBackend) dispatchCompute(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, groups [3]uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.compute == nil {
		return errNoComputeFrame
	}
	pass := b.compute.BeginComputePass(nil)
	pass.SetPipeline(p.Pipeline().(*wgpu.ComputePipeline))
	pass.SetBindGroup(0, provider.BindGroup(), nil)
	pass.DispatchWorkgroups(groups[0], groups[1], groups[2])
	pass.End()
	return nil
}

// endComputeFrame submits every dispatch of the frame in one command buffer, ahead of the render
// submission that reads their output.
func (b *wgpuBackend) endComputeFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	enc := b.compute
	if enc == nil {
		return nil
	}
	b.compute = nil
	defer enc.Release()

	cmd, err := enc.Finish(nil)
	if err != nil {
		return fmt.Errorf("finish compute encoder: %w", err)
	}
	b.queue.Submit(cmd)
	cmd.Release()
	return nil
}
