package shader

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
)

func TestReflectionLayout(t *testing.T) {
	const src = `
struct Inner {
    a: vec3f,
    b: f32,
}
/* struct Commented { x: f32, } */
struct Outer {
    m: mat4x4<f32>,
    items: array<Inner, 3>,
    tail: vec2<f32>, // trailing comment
}
struct Runtime {
    count: u32,
    values: array<vec4<f32>>,
}
struct Loop {
    next: Loop,
}
`
	r := newReflection(src)
	tests := []struct {
		typeName  string
		wantSize  uint64
		wantAlign uint64
		wantOK    bool
	}{
		{"f32", 4, 4, true},
		{"vec3<f32>", 12, 16, true},
		{"Inner", 16, 16, true},
		{"array<Inner, 3>", 48, 16, true},
		{"Outer", 128, 16, true},
		{"Runtime", 32, 16, true},
		{"array<f32>", 4, 4, true},
		{"Commented", 0, 0, false},
		{"Loop", 0, 0, false},
		{"Unknown", 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			got, ok := r.layout(tt.typeName)
			if ok != tt.wantOK {
				t.Fatalf("layout(%s) ok = %v, want %v", tt.typeName, ok, tt.wantOK)
			}
			if ok && (got.size != tt.wantSize || got.align != tt.wantAlign) {
				t.Errorf("layout(%s) = size %d align %d, want size %d align %d",
					tt.typeName, got.size, got.align, tt.wantSize, tt.wantAlign)
			}
		})
	}
}

func TestReflectionEntryPointsAndWorkgroup(t *testing.T) {
	const src = `
// @compute fn commented_out() {}
@vertex
fn vs(@builtin(vertex_index) i: u32) -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }
@fragment fn fs() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }
@compute @workgroup_size(64)
fn cs() {}
`
	r := newReflection(src)
	tests := []struct {
		typ  ShaderType
		want string
	}{
		{ShaderTypeVertex, "vs"},
		{ShaderTypeFragment, "fs"},
		{ShaderTypeCompute, "cs"},
	}
	for _, tt := range tests {
		if got := r.entryPoint(tt.typ); got != tt.want {
			t.Errorf("entryPoint(%d) = %q, want %q", tt.typ, got, tt.want)
		}
	}
	if got := r.workgroupSize(); got != [3]uint32{64, 1, 1} {
		t.Errorf("workgroupSize() = %v, want [64 1 1]", got)
	}
	if got := newReflection("fn f() {}").workgroupSize(); got != [3]uint32{1, 1, 1} {
		t.Errorf("workgroupSize() without attribute = %v, want [1 1 1]", got)
	}
}

func TestReflectionBindGroups(t *testing.T) {
	const src = `
struct Params { a: f32, b: vec3<f32>, }
@group(0) @binding(1) var<storage, read> data: array<vec4f>;
@group(0) @binding(0) var<uniform> params: Params;
@group(1) @binding(0) var tex: texture_2d<f32>;
@group(1) @binding(1) var samp: sampler;
@group(2) @binding(0) var out_tex: texture_storage_2d<r32float, read_write>;
@group(2) @binding(1) var<storage, read_write> counters: array<u32, 4>;
`
	groups := newReflection(src).bindGroupLayouts(wgpu.ShaderStageFragment)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}

	g0 := groups[0].Entries
	if g0[0].Binding != 0 || g0[0].Buffer.Type != wgpu.BufferBindingTypeUniform || g0[0].Buffer.MinBindingSize != 32 {
		t.Errorf("group 0 binding 0 = %+v, want 32-byte uniform first", g0[0])
	}
	if g0[1].Buffer.Type != wgpu.BufferBindingTypeReadOnlyStorage || g0[1].Buffer.MinBindingSize != 16 {
		t.Errorf("group 0 binding 1 = %+v, want 16-byte read-only storage", g0[1].Buffer)
	}

	// A filtering sampler in the group keeps float textures filterable.
	g1 := groups[1].Entries
	if g1[0].Texture.SampleType != wgpu.TextureSampleTypeFloat || g1[1].Sampler.Type != wgpu.SamplerBindingTypeFiltering {
		t.Errorf("group 1 = %+v", g1)
	}

	g2 := groups[2].Entries
	if g2[0].StorageTexture.Format != wgpu.TextureFormatR32Float || g2[0].StorageTexture.Access != wgpu.StorageTextureAccessReadWrite {
		t.Errorf("group 2 binding 0 = %+v", g2[0].StorageTexture)
	}
	if g2[1].Buffer.Type != wgpu.BufferBindingTypeStorage || g2[1].Buffer.MinBindingSize != 16 {
		t.Errorf("group 2 binding 1 = %+v", g2[1].Buffer)
	}
	for _, e := range append(append(g0, g1...), g2...) {
		if e.Visibility != wgpu.ShaderStageFragment {
			t.Errorf("binding %d visibility = %v", e.Binding, e.Visibility)
		}
	}
}

func TestStripComments(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"a // b\nc", "a \nc"},
		{"a /* b /* nested */ still */ c", "a  c"},
		{"tail // no newline", "tail "},
		{"x */ y", "x */ y"},
	}
	for _, tt := range tests {
		if got := stripComments(tt.in); got != tt.want {
			t.Errorf("stripComments(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
