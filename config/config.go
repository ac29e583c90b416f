// Package config provides configuration loading for the particle viewer.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/Carmen-Shannon/oxy-particles/engine/settings"
	"github.com/crazy3lf/colorconv"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Simulation backend names accepted in simulation.backend.
const (
	BackendGPU = "gpu"
	BackendCPU = "cpu"
)

// Present mode names accepted in renderer.present_mode.
const (
	PresentModeVSync    = "vsync"
	PresentModeUncapped = "uncapped"
)

// Config holds all viewer configuration parameters.
type Config struct {
	Window     WindowConfig     `yaml:"window"`
	Renderer   RendererConfig   `yaml:"renderer"`
	Camera     CameraConfig     `yaml:"camera"`
	Asset      AssetConfig      `yaml:"asset"`
	Particles  ParticlesConfig  `yaml:"particles"`
	Simulation SimulationConfig `yaml:"simulation"`
	Profiler   ProfilerConfig   `yaml:"profiler"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WindowConfig holds window settings.
type WindowConfig struct {
	Title     string `yaml:"title"`
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	MinWidth  int    `yaml:"min_width"`
	MinHeight int    `yaml:"min_height"`
	MaxWidth  int    `yaml:"max_width"`
	MaxHeight int    `yaml:"max_height"`
}

// RendererConfig holds surface and loop pacing settings.
type RendererConfig struct {
	PresentMode   string  `yaml:"present_mode"`
	MSAA          int     `yaml:"msaa"`
	ForceSoftware bool    `yaml:"force_software"`
	FrameLimit    float64 `yaml:"frame_limit"` // render fps cap, 0 = uncapped
	TickRate      float64 `yaml:"tick_rate"`   // input ticks per second
}

// CameraConfig holds the perspective camera and orbit controller settings.
type CameraConfig struct {
	Fov              float32    `yaml:"fov"` // vertical, degrees
	Near             float32    `yaml:"near"`
	Far              float32    `yaml:"far"`
	Position         [3]float32 `yaml:"position"`
	Target           [3]float32 `yaml:"target"`
	MinRadius        float32    `yaml:"min_radius"`
	MaxRadius        float32    `yaml:"max_radius"`
	ZoomSpeed        float32    `yaml:"zoom_speed"`
	PanSpeed         float32    `yaml:"pan_speed"`
	MouseSensitivity float32    `yaml:"mouse_sensitivity"`
	Damping          float32    `yaml:"damping"` // fraction of the remaining orbit covered per frame, 0 = off
}

// AssetConfig names the model the particles are sampled from.
type AssetConfig struct {
	Path string `yaml:"path"`
}

// ParticlesConfig holds the particle look.
type ParticlesConfig struct {
	Size       float32 `yaml:"size"`
	ClearColor string  `yaml:"clear_color"` // hex, e.g. "#021c1c"
	HueMin     float64 `yaml:"hue_min"`     // degrees
	HueMax     float64 `yaml:"hue_max"`     // degrees
	Seed       int64   `yaml:"seed"`
}

// SimulationConfig holds the flow field and integrator settings.
type SimulationConfig struct {
	Backend            string  `yaml:"backend"`
	FlowFieldInfluence float32 `yaml:"flow_field_influence"`
	FlowFieldStrength  float32 `yaml:"flow_field_strength"`
	FlowFieldFrequency float32 `yaml:"flow_field_frequency"`
	TimeScale          float32 `yaml:"time_scale"`
	DecayRate          float32 `yaml:"decay_rate"`
	ExcursionCap       float32 `yaml:"excursion_cap"`
	Workers            int     `yaml:"workers"` // 0 = one per CPU
}

// ProfilerConfig holds frame statistics settings.
type ProfilerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	CSVPath  string        `yaml:"csv_path"`
}

// DerivedConfig holds values computed from other fields after loading.
type DerivedConfig struct {
	ClearColor [3]float64 // Particles.ClearColor as linear 0..1 RGB
	Workers    int        // Simulation.Workers with 0 resolved to the CPU count
	Settings   settings.Settings
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
//
// Parameters:
//   - path: the user configuration file, or "" for defaults only
//
// Returns:
//   - *Config: the merged configuration with derived values computed
//   - error: error if a file cannot be read or parsed, or a value is invalid
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// computeDerived validates enumerations and calculates values derived from loaded config.
func (c *Config) computeDerived() error {
	switch c.Simulation.Backend {
	case BackendGPU, BackendCPU:
	default:
		return fmt.Errorf("simulation.backend: unknown backend %q", c.Simulation.Backend)
	}
	switch c.Renderer.PresentMode {
	case PresentModeVSync, PresentModeUncapped:
	default:
		return fmt.Errorf("renderer.present_mode: unknown mode %q", c.Renderer.PresentMode)
	}
	switch c.Renderer.MSAA {
	case 1, 4, 8, 16:
	default:
		return fmt.Errorf("renderer.msaa: unsupported sample count %d", c.Renderer.MSAA)
	}

	rgb, err := ParseHexColor(c.Particles.ClearColor)
	if err != nil {
		return fmt.Errorf("particles.clear_color: %w", err)
	}
	c.Derived.ClearColor = rgb

	c.Derived.Workers = c.Simulation.Workers
	if c.Derived.Workers <= 0 {
		c.Derived.Workers = runtime.NumCPU()
	}

	c.Derived.Settings = settings.Settings{
		ClearColor:         rgb,
		ParticleSize:       c.Particles.Size,
		FlowFieldInfluence: c.Simulation.FlowFieldInfluence,
		FlowFieldStrength:  c.Simulation.FlowFieldStrength,
		FlowFieldFrequency: c.Simulation.FlowFieldFrequency,
	}.Clamped()
	return nil
}

// ParseHexColor converts a "#rrggbb" color to 0..1 RGB components.
//
// Parameters:
//   - hex: the color, with or without the leading '#'
//
// Returns:
//   - [3]float64: red, green and blue in [0, 1]
//   - error: error if hex is not a valid color
func ParseHexColor(hex string) ([3]float64, error) {
	hex = strings.TrimSpace(hex)
	if !strings.HasPrefix(hex, "#") {
		hex = "#" + hex
	}
	r, g, b, err := colorconv.HexToRGB(hex)
	if err != nil {
		return [3]float64{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return [3]float64{float64(r) / 255, float64(g) / 255, float64(b) / 255}, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
