package bind_group_provider

import (
	"slices"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestNewBindGroupProvider(t *testing.T) {
	p := NewBindGroupProvider("particles", WithVertexCount(6))
	if p.Label() != "particles" {
		t.Errorf("Label() = %q, want particles", p.Label())
	}
	if p.VertexCount() != 6 {
		t.Errorf("VertexCount() = %d, want 6", p.VertexCount())
	}
	if p.BindGroup() != nil || p.BindGroupLayout() != nil || p.VertexBuffer() != nil {
		t.Errorf("fresh provider holds GPU objects")
	}
}

func TestTextureViewOwnership(t *testing.T) {
	shared := &wgpu.TextureView{}
	p := NewBindGroupProvider("simulation",
		WithSharedTextureView(1, shared),
		WithSharedTextureView(2, nil),
	)

	tests := []struct {
		binding int
		want    *wgpu.TextureView
	}{
		{1, shared},
		{2, nil},
		{3, nil},
	}
	for _, tt := range tests {
		if got := p.TextureView(tt.binding); got != tt.want {
			t.Errorf("TextureView(%d) = %p, want %p", tt.binding, got, tt.want)
		}
		if p.Owns(tt.binding) {
			t.Errorf("Owns(%d) = true for a shared or missing view", tt.binding)
		}
	}

	// An owned nil view is never released, so this exercises the bookkeeping only.
	q := NewBindGroupProvider("owned", WithTextureView(0, nil), WithSharedTextureView(0, shared))
	if q.Owns(0) || q.TextureView(0) != shared {
		t.Errorf("a later option did not replace binding 0")
	}
}

func TestReleaseForgetsSharedViews(t *testing.T) {
	// Zero-value views never reach the GPU: Release must not call into them when shared.
	p := NewBindGroupProvider("simulation",
		WithSharedTextureView(0, &wgpu.TextureView{}),
		WithSharedTextureView(4, &wgpu.TextureView{}),
	)
	if got := p.(*bindGroupProvider).bindings(); !slices.Equal(got, []int{0, 4}) {
		t.Errorf("bindings() = %v, want [0 4]", got)
	}

	p.Release()
	if p.TextureView(0) != nil || p.TextureView(4) != nil {
		t.Errorf("Release() kept shared views")
	}
	if got := p.(*bindGroupProvider).bindings(); len(got) != 0 {
		t.Errorf("bindings() after Release() = %v", got)
	}
}
