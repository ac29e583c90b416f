package bind_group_provider

import (
	"maps"
	"slices"

	"github.com/cogentcore/webgpu/wgpu"
)

// BindGroupProvider carries the GPU objects behind one bind group: the group and its layout, the
// buffers and texture views at each binding, and for instanced draws the instance vertex buffer.
//
// A component creates the provider and attaches the texture views it binds. Renderer.InitBindGroup
// then fills in the layout, any missing buffers and the group itself, and the provider is passed to
// DispatchCompute or DrawCall. Buffers are updated through Renderer.WriteBuffers.
type BindGroupProvider interface {
	Label() string

	BindGroup() *wgpu.BindGroup
	SetBindGroup(bg *wgpu.BindGroup)

	BindGroupLayout() *wgpu.BindGroupLayout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// Buffer returns the buffer at binding, or nil before InitBindGroup allocates it.
	Buffer(binding int) *wgpu.Buffer
	SetBuffer(binding int, buf *wgpu.Buffer)

	// TextureView returns the view attached at binding, or nil.
	TextureView(binding int) *wgpu.TextureView

	// Owns reports whether Release will release the view at binding. Views attached with
	// WithSharedTextureView belong to another component.
	Owns(binding int) bool

	// VertexBuffer returns the per-instance vertex buffer of an instanced draw.
	VertexBuffer() *wgpu.Buffer
	SetVertexBuffer(buf *wgpu.Buffer)

	// VertexCount is the number of vertices emitted per instance.
	VertexCount() int
	SetVertexCount(count int)

	// Release frees everything the provider owns and forgets shared views.
	Release()
}

type view struct {
	tv    *wgpu.TextureView
	owned bool
}

type bindGroupProvider struct {
	label string

	group   *wgpu.BindGroup
	layout  *wgpu.BindGroupLayout
	buffers map[int]*wgpu.Buffer
	views   map[int]view

	instances   *wgpu.Buffer
	vertexCount int
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider returns an empty provider. label names every GPU object created for it.
func NewBindGroupProvider(label string, options ...Option) BindGroupProvider {
	p := &bindGroupProvider{
		label:   label,
		buffers: make(map[int]*wgpu.Buffer),
		views:   make(map[int]view),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Option configures NewBindGroupProvider.
type Option func(*bindGroupProvider)

// WithTextureView attaches a view the provider owns.
func WithTextureView(binding int, tv *wgpu.TextureView) Option {
	return func(p *bindGroupProvider) {
		p.views[binding] = view{tv: tv, owned: true}
	}
}

// WithSharedTextureView attaches a view owned elsewhere, such as a simulation state texture bound
// by several providers.
func WithSharedTextureView(binding int, tv *wgpu.TextureView) Option {
	return func(p *bindGroupProvider) {
		p.views[binding] = view{tv: tv}
	}
}

func WithVertexCount(count int) Option {
	return func(p *bindGroupProvider) {
		p.vertexCount = count
	}
}

func (p *bindGroupProvider) Label() string                              { return p.label }
func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup                 { return p.group }
func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup)            { p.group = bg }
func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout     { return p.layout }
func (p *bindGroupProvider) SetBindGroupLayout(l *wgpu.BindGroupLayout) { p.layout = l }
func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer            { return p.buffers[binding] }
func (p *bindGroupProvider) TextureView(binding int) *wgpu.TextureView  { return p.views[binding].tv }
func (p *bindGroupProvider) Owns(binding int) bool                      { return p.views[binding].owned }
func (p *bindGroupProvider) VertexBuffer() *wgpu.Buffer                 { return p.instances }
func (p *bindGroupProvider) SetVertexBuffer(buf *wgpu.Buffer)           { p.instances = buf }
func (p *bindGroupProvider) VertexCount() int                           { return p.vertexCount }
func (p *bindGroupProvider) SetVertexCount(count int)                   { p.vertexCount = count }

func (p *bindGroupProvider) SetBuffer(binding int, buf *wgpu.Buffer) {
	p.buffers[binding] = buf
}

// bindings lists every binding with a buffer or view, ascending.
func (p *bindGroupProvider) bindings() []int {
	keys := slices.Collect(maps.Keys(p.views))
	for b := range p.buffers {
		if _, ok := p.views[b]; !ok {
			keys = append(keys, b)
		}
	}
	slices.Sort(keys)
	return keys
}

func (p *bindGroupProvider) Release() {
	// The group references the views and buffers, so it goes first.
	if p.group != nil {
		p.group.Release()
		p.group = nil
	}
	for _, b := range p.bindings() {
		if v := p.views[b]; v.owned && v.tv != nil {
			v.tv.Release()
		}
		if buf := p.buffers[b]; buf != nil {
			buf.Release()
		}
	}
	clear(p.views)
	clear(p.buffers)

	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	if p.instances != nil {
		p.instances.Release()
		p.instances = nil
	}
}
