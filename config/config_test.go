package config

import (
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-particles/engine/settings"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}

	if cfg.Window.Width != 1280 || cfg.Window.Height != 720 {
		t.Errorf("window = %dx%d, want 1280x720", cfg.Window.Width, cfg.Window.Height)
	}
	if cfg.Camera.Fov != 35 || cfg.Camera.Near != 0.1 || cfg.Camera.Far != 100 {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if cfg.Camera.Damping != 0.05 {
		t.Errorf("camera damping = %v, want 0.05", cfg.Camera.Damping)
	}
	if cfg.Camera.Position != [3]float32{9.5, 10, 10} {
		t.Errorf("camera position = %v", cfg.Camera.Position)
	}
	if cfg.Simulation.Backend != BackendGPU {
		t.Errorf("backend = %q, want %q", cfg.Simulation.Backend, BackendGPU)
	}
	if cfg.Profiler.Interval != time.Second {
		t.Errorf("profiler interval = %v, want 1s", cfg.Profiler.Interval)
	}
	if cfg.Derived.Workers != runtime.NumCPU() {
		t.Errorf("derived workers = %d, want %d", cfg.Derived.Workers, runtime.NumCPU())
	}

	want := settings.Default()
	got := cfg.Derived.Settings
	if got.ParticleSize != want.ParticleSize ||
		got.FlowFieldInfluence != want.FlowFieldInfluence ||
		got.FlowFieldStrength != want.FlowFieldStrength ||
		got.FlowFieldFrequency != want.FlowFieldFrequency {
		t.Errorf("derived settings = %+v, want %+v", got, want)
	}
	for i := range want.ClearColor {
		if math.Abs(got.ClearColor[i]-want.ClearColor[i]) > 1e-9 {
			t.Errorf("clear color = %v, want %v", got.ClearColor, want.ClearColor)
			break
		}
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
simulation:
  backend: cpu
  flow_field_strength: 42
  workers: 3
particles:
  clear_color: "ff8000"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Simulation.Backend != BackendCPU || cfg.Derived.Workers != 3 {
		t.Errorf("simulation = %+v, derived workers %d", cfg.Simulation, cfg.Derived.Workers)
	}
	if cfg.Simulation.FlowFieldInfluence != 0.425 {
		t.Errorf("unset key lost its default: influence = %v", cfg.Simulation.FlowFieldInfluence)
	}
	if cfg.Derived.Settings.FlowFieldStrength != settings.MaxFlowFieldStrength {
		t.Errorf("strength = %v, want it clamped to %v", cfg.Derived.Settings.FlowFieldStrength, settings.MaxFlowFieldStrength)
	}
	if cfg.Derived.ClearColor != [3]float64{1, 128.0 / 255, 0} {
		t.Errorf("clear color = %v", cfg.Derived.ClearColor)
	}
	if cfg.Window.Width != 1280 {
		t.Errorf("untouched section changed: width = %d", cfg.Window.Width)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"unknown backend", "simulation:\n  backend: opencl\n", "simulation.backend"},
		{"unknown present mode", "renderer:\n  present_mode: mailbox\n", "renderer.present_mode"},
		{"bad msaa", "renderer:\n  msaa: 3\n", "renderer.msaa"},
		{"bad clear color", "particles:\n  clear_color: \"#zzzzzz\"\n", "particles.clear_color"},
		{"malformed yaml", "window: [", "parsing config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("Load() error = nil")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantMsg)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Errorf("Load() of a missing file returned no error")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Asset.Path = "models/wine.glb"

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML() error = %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load() of written file error = %v", err)
	}
	if back.Asset.Path != "models/wine.glb" || back.Profiler.Interval != time.Second {
		t.Errorf("round trip lost values: asset %q interval %v", back.Asset.Path, back.Profiler.Interval)
	}
}
