package simulation

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-particles/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

func TestGPUSimulationUniformLayout(t *testing.T) {
	u := GPUSimulationUniform{
		Time: 1, DeltaTime: 2, Influence: 3, Strength: 4,
		Frequency: 5, TimeScale: 6, DecayRate: 7, ExcursionCap: 8, GridSize: 9,
	}
	if u.Size() != 48 {
		t.Fatalf("Size() = %d, want 48", u.Size())
	}
	buf := u.Marshal()
	for i := range 12 {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		want := float32(0)
		if i < 9 {
			want = float32(i + 1)
		}
		if got != want {
			t.Errorf("offset %d = %v, want %v", i*4, got, want)
		}
	}
}

func TestIntegratorShader(t *testing.T) {
	s, err := shader.NewShaderFromSource(integrateProgramKey, shader.ShaderTypeCompute, integrateSource)
	if err != nil {
		t.Fatalf("NewShaderFromSource() error = %v", err)
	}
	if s.EntryPoint() != "integrate" {
		t.Errorf("EntryPoint() = %q, want integrate", s.EntryPoint())
	}
	if s.WorkgroupSize() != [3]uint32{8, 8, 1} {
		t.Errorf("WorkgroupSize() = %v, want [8 8 1]", s.WorkgroupSize())
	}

	decls := s.Declarations()
	group, binding, ok := shader.BindingForType(decls, shader.KeySimulationParams)
	if !ok || group != 0 || binding != 0 {
		t.Errorf("params binding = %d/%d (found %v), want 0/0", group, binding, ok)
	}

	entries := map[uint32]wgpu.BindGroupLayoutEntry{}
	for _, e := range s.BindGroupLayoutDescriptor(0).Entries {
		entries[e.Binding] = e
	}
	if got := entries[0].Buffer.MinBindingSize; got != 48 {
		t.Errorf("uniform MinBindingSize = %d, want 48", got)
	}

	roles := []struct {
		role    shader.Role
		binding int
	}{
		{shader.RoleBaseState, 1},
		{shader.RolePreviousState, 2},
		{shader.RoleNextState, 3},
	}
	for _, r := range roles {
		_, b, ok := shader.BindingForRole(decls, shader.ProviderSimulation, r.role)
		if !ok || b != r.binding {
			t.Errorf("%s binding = %d (found %v), want %d", r.role, b, ok, r.binding)
		}
	}
	if entries[3].StorageTexture.Format != wgpu.TextureFormatRGBA32Float {
		t.Errorf("next_state format = %v, want rgba32float", entries[3].StorageTexture.Format)
	}
}
