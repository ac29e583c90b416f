package particles

import (
	"encoding/binary"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-particles/engine/encoder"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/shader"
	"github.com/Carmen-Shannon/oxy-particles/engine/settings"
	"github.com/Carmen-Shannon/oxy-particles/engine/simulation"
	"github.com/cogentcore/webgpu/wgpu"
)

func tetraAttributes() *encoder.ParticleAttributes {
	s := encoder.GridSize(4)
	attrs := &encoder.ParticleAttributes{}
	for i := 0; i < 4; i++ {
		attrs.UVs = append(attrs.UVs, encoder.UV(i, s))
		attrs.Sizes = append(attrs.Sizes, float32(i)/4)
		attrs.Colors = append(attrs.Colors, [4]float32{float32(i), 0, 1, 1})
	}
	return attrs
}

func f32At(buf []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:]))
}

func TestNewParticlesValidation(t *testing.T) {
	mismatched := tetraAttributes()
	mismatched.Sizes = mismatched.Sizes[:3]

	tests := []struct {
		name     string
		attrs    *encoder.ParticleAttributes
		gridSize int
		wantErr  error
	}{
		{"nil attributes", nil, 2, ErrNoParticles},
		{"empty attributes", &encoder.ParticleAttributes{}, 2, ErrNoParticles},
		{"length mismatch", mismatched, 2, nil},
		{"grid too small", tetraAttributes(), 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := newParticles(tt.attrs, tt.gridSize)
			if err == nil {
				t.Fatalf("newParticles() error = nil, want failure")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("newParticles() error = %v, want %v", err, tt.wantErr)
			}
			if p != nil {
				t.Errorf("newParticles() returned particles alongside error")
			}
		})
	}
}

func TestPackInstances(t *testing.T) {
	attrs := tetraAttributes()
	buf := packInstances(attrs)
	if len(buf) != 4*instanceStride {
		t.Fatalf("packInstances() length = %d, want %d", len(buf), 4*instanceStride)
	}
	wantUVs := [][2]float32{{0.25, 0.25}, {0.75, 0.25}, {0.25, 0.75}, {0.75, 0.75}}
	for i, uv := range wantUVs {
		off := i * instanceStride
		if got := [2]float32{f32At(buf, off), f32At(buf, off+4)}; got != uv {
			t.Errorf("instance %d uv = %v, want %v", i, got, uv)
		}
		if got := f32At(buf, off+8); got != attrs.Sizes[i] {
			t.Errorf("instance %d size = %v, want %v", i, got, attrs.Sizes[i])
		}
		if got := f32At(buf, off+12); got != attrs.Colors[i][0] {
			t.Errorf("instance %d color.r = %v, want %v", i, got, attrs.Colors[i][0])
		}
		if got := f32At(buf, off+24); got != 1 {
			t.Errorf("instance %d color.a = %v, want 1", i, got)
		}
	}
}

func TestResizeLeavesParticlesUntouched(t *testing.T) {
	p, err := newParticles(tetraAttributes(), 2, WithResolution(800, 600, 1))
	if err != nil {
		t.Fatalf("newParticles() error = %v", err)
	}
	uvs := append([][2]float32(nil), p.UVs()...)

	tests := []struct {
		name          string
		width, height int
		ratio         float32
		want          [2]float32
	}{
		{"retina", 1280, 720, 2, [2]float32{2560, 1440}},
		{"ratio clamped high", 100, 50, 3, [2]float32{200, 100}},
		{"ratio clamped low", 100, 50, 0.5, [2]float32{100, 50}},
		{"minimized ignored", 0, 0, 1, [2]float32{100, 50}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p.Resize(tt.width, tt.height, tt.ratio)
			if got := p.Resolution(); got != tt.want {
				t.Errorf("Resolution() = %v, want %v", got, tt.want)
			}
			if p.Count() != 4 || p.GridSize() != 2 {
				t.Errorf("Resize changed Count/GridSize to %d/%d", p.Count(), p.GridSize())
			}
			for i, uv := range p.UVs() {
				if uv != uvs[i] {
					t.Errorf("UVs()[%d] = %v, want %v", i, uv, uvs[i])
				}
			}
		})
	}
}

func TestUniformClampsSize(t *testing.T) {
	p, err := newParticles(tetraAttributes(), 2, WithResolution(640, 480, 1))
	if err != nil {
		t.Fatalf("newParticles() error = %v", err)
	}
	tests := []struct {
		size float32
		want float32
	}{
		{0.169, 0.169},
		{-1, 0},
		{5, 1},
	}
	for _, tt := range tests {
		s := settings.Default()
		s.ParticleSize = tt.size
		u := p.uniform(s)
		if u.PointSize != tt.want {
			t.Errorf("uniform(size %v).PointSize = %v, want %v", tt.size, u.PointSize, tt.want)
		}
		if u.GridSize != 2 || u.Resolution != [2]float32{640, 480} {
			t.Errorf("uniform() = %+v, want grid 2 and resolution 640x480", u)
		}
		buf := u.Marshal()
		if len(buf) != 16 || f32At(buf, 8) != tt.want || f32At(buf, 12) != 2 {
			t.Errorf("Marshal() = %v, want 16 bytes with size %v and grid 2", buf, tt.want)
		}
	}
}

func TestDrawWithoutTexture(t *testing.T) {
	p, err := newParticles(tetraAttributes(), 2)
	if err != nil {
		t.Fatalf("newParticles() error = %v", err)
	}
	if err := p.Draw(nil, settings.Default()); !errors.Is(err, ErrNoTexture) {
		t.Errorf("Draw() error = %v, want ErrNoTexture", err)
	}
	if err := p.SetTexture(simulation.Texture{Variable: "position"}); err == nil {
		t.Errorf("SetTexture() accepted a handle without a GPU view")
	}
}

func TestParticleShaders(t *testing.T) {
	vs, err := shader.NewShaderFromSource("particles.vertex", shader.ShaderTypeVertex, vertexSource)
	if err != nil {
		t.Fatalf("vertex shader: %v", err)
	}
	if vs.EntryPoint() != "vs_main" {
		t.Errorf("vertex EntryPoint() = %q, want vs_main", vs.EntryPoint())
	}

	layouts := vs.VertexLayouts()
	if len(layouts) != 1 {
		t.Fatalf("VertexLayouts() has %d layouts, want 1", len(layouts))
	}
	layout := vs.VertexLayout(0)[0]
	if layout.StepMode != wgpu.VertexStepModeInstance || layout.ArrayStride != instanceStride {
		t.Errorf("instance layout = step %v stride %d, want instance stride %d", layout.StepMode, layout.ArrayStride, instanceStride)
	}

	decls := vs.Declarations()
	if g, b, ok := shader.BindingForType(decls, shader.KeyCamera); !ok || g != 0 || b != 0 {
		t.Errorf("camera binding = (%d, %d, %v), want (0, 0, true)", g, b, ok)
	}
	if g, b, ok := shader.BindingForType(decls, shader.KeyParticlesParams); !ok || g != 1 || b != 0 {
		t.Errorf("particles binding = (%d, %d, %v), want (1, 0, true)", g, b, ok)
	}
	if g, b, ok := shader.BindingForRole(decls, shader.ProviderParticles, shader.RoleLiveState); !ok || g != 1 || b != 1 {
		t.Errorf("live_state binding = (%d, %d, %v), want (1, 1, true)", g, b, ok)
	}

	group1 := vs.BindGroupLayoutDescriptor(1).Entries
	if len(group1) != 2 {
		t.Fatalf("group 1 has %d entries, want 2", len(group1))
	}
	var u GPUParticlesUniform
	if group1[0].Buffer.MinBindingSize != uint64(u.Size()) {
		t.Errorf("particles MinBindingSize = %d, want %d", group1[0].Buffer.MinBindingSize, u.Size())
	}
	if group1[1].Texture.SampleType != wgpu.TextureSampleTypeUnfilterableFloat {
		t.Errorf("live_state sample type = %v, want unfilterable float", group1[1].Texture.SampleType)
	}
	if !strings.Contains(vs.Source(), "var<uniform> particles: ParticlesUniform;") {
		t.Errorf("generated particles declaration missing from source")
	}

	fs, err := shader.NewShaderFromSource("particles.fragment", shader.ShaderTypeFragment, fragmentSource)
	if err != nil {
		t.Fatalf("fragment shader: %v", err)
	}
	if fs.EntryPoint() != "fs_main" {
		t.Errorf("fragment EntryPoint() = %q, want fs_main", fs.EntryPoint())
	}
	if len(fs.BindGroupLayoutDescriptors()) != 0 {
		t.Errorf("fragment shader declares bind groups, want none")
	}
}
