// Command oxy-particles samples a glTF model into a GPU particle cloud and lets a flow field
// carry the particles away from, and back to, the surface.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/Carmen-Shannon/oxy-particles/config"
	"github.com/Carmen-Shannon/oxy-particles/engine"
	"github.com/Carmen-Shannon/oxy-particles/engine/camera"
	"github.com/Carmen-Shannon/oxy-particles/engine/geometry"
	"github.com/Carmen-Shannon/oxy-particles/engine/loader"
	"github.com/Carmen-Shannon/oxy-particles/engine/profiler"
	"github.com/Carmen-Shannon/oxy-particles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-particles/engine/simulation"
	"github.com/Carmen-Shannon/oxy-particles/engine/window"
)

func main() {
	configPath := flag.String("config", "", "YAML file overriding the embedded defaults")
	assetPath := flag.String("asset", "", "glTF/GLB model to sample (overrides asset.path)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[Main] %v", err)
	}
	if *assetPath != "" {
		cfg.Asset.Path = *assetPath
	}

	// ── Window ──────────────────────────────────────────────────────────
	win, err := window.NewWindow(
		window.WithTitle(cfg.Window.Title),
		window.WithSize(cfg.Window.Width, cfg.Window.Height),
		window.WithSizeLimits(cfg.Window.MinWidth, cfg.Window.MinHeight, cfg.Window.MaxWidth, cfg.Window.MaxHeight),
	)
	if err != nil {
		log.Fatalf("[Main] window: %v", err)
	}

	// ── Renderer ────────────────────────────────────────────────────────
	presentMode := renderer.PresentModeVSync
	if cfg.Renderer.PresentMode == config.PresentModeUncapped {
		presentMode = renderer.PresentModeUncapped
	}
	clear := cfg.Derived.ClearColor
	r, err := renderer.NewRenderer(
		renderer.BackendTypeWGPU,
		win,
		renderer.WithPresentMode(presentMode),
		renderer.WithMSAA(renderer.MSAASampleCount(cfg.Renderer.MSAA)),
		renderer.WithForceSoftwareRenderer(cfg.Renderer.ForceSoftware),
		renderer.WithClearColor(clear[0], clear[1], clear[2]),
	)
	if err != nil {
		log.Fatalf("[Main] renderer: %v", err)
	}
	defer r.Release()

	// ── Camera ──────────────────────────────────────────────────────────
	cc := cfg.Camera
	cam := camera.NewCamera(
		camera.WithFov(cc.Fov*math.Pi/180),
		camera.WithNear(cc.Near),
		camera.WithFar(cc.Far),
		camera.WithAspect(aspect(win)),
		camera.WithController(camera.NewOrbitController(
			camera.WithTarget(cc.Target[0], cc.Target[1], cc.Target[2]),
			camera.WithPosition(cc.Position[0], cc.Position[1], cc.Position[2]),
			camera.WithRadiusBounds(cc.MinRadius, cc.MaxRadius),
			camera.WithZoomSpeed(cc.ZoomSpeed),
			camera.WithPanSpeed(cc.PanSpeed),
			camera.WithMouseSensitivity(cc.MouseSensitivity),
			camera.WithDamping(cc.Damping),
		)),
	)

	// ── Profiler ────────────────────────────────────────────────────────
	profOpts := []profiler.ProfilerBuilderOption{profiler.WithInterval(cfg.Profiler.Interval)}
	if cfg.Profiler.CSVPath != "" {
		f, err := os.Create(cfg.Profiler.CSVPath)
		if err != nil {
			log.Fatalf("[Main] profiler csv: %v", err)
		}
		defer f.Close()
		profOpts = append(profOpts, profiler.WithCSV(f))
	}

	// ── Engine ──────────────────────────────────────────────────────────
	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithRenderer(r),
		engine.WithTickRate(cfg.Renderer.TickRate),
		engine.WithFrameLimit(cfg.Renderer.FrameLimit),
		engine.WithProfiler(profiler.NewProfiler(profOpts...), cfg.Profiler.Enabled),
	)

	setupInput(eng, cam, cfg)

	loadCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go load(loadCtx, eng, r, cam, cfg)

	fmt.Println("╔══════════════════════════════════════════════════════╗")
	fmt.Println("║  oxy-particles                                       ║")
	fmt.Println("╠══════════════════════════════════════════════════════╣")
	fmt.Println("║  Camera: Left drag=Orbit  Middle/Right drag=Pan      ║")
	fmt.Println("║          Scroll=Zoom  WASD/QE=Pan                    ║")
	fmt.Println("║  Params: 1/2 Size  3/4 Influence  5/6 Strength       ║")
	fmt.Println("║          7/8 Frequency  Shift=Fine  Backspace=Reset  ║")
	fmt.Println("║  P=Profiler  Esc=Quit                                ║")
	fmt.Println("╚══════════════════════════════════════════════════════╝")

	log.Printf("[Main] loading %s", cfg.Asset.Path)
	eng.Run()
}

// load decodes the model in the background and, once decoded, runs the initialization stage and
// hands the context to the engine. The engine clears the surface until then. A fatal load or
// initialization error stops the engine.
//
// Parameters:
//   - ctx: cancels the wait for the decoder
//   - eng: the engine receiving the context
//   - r: the renderer the simulation and particles allocate on
//   - cam: the camera the cloud is viewed through
//   - cfg: the loaded configuration
func load(ctx context.Context, eng engine.Engine, r renderer.Renderer, cam camera.Camera, cfg *config.Config) {
	res := <-loader.NewLoader(loader.BackendTypeGLTF).LoadAsync(ctx, cfg.Asset.Path)
	if res.Err != nil {
		log.Printf("[Main] load %s: %v", cfg.Asset.Path, res.Err)
		eng.Quit()
		return
	}

	geo, err := geometry.Merge(res.Meshes, geometry.WithWorkers(cfg.Derived.Workers))
	if err != nil {
		log.Printf("[Main] %s: %v", cfg.Asset.Path, err)
		eng.Quit()
		return
	}
	geometry.Palette(geo, cfg.Particles.HueMin, cfg.Particles.HueMax)

	backend := simulation.BackendTypeWGPU
	if cfg.Simulation.Backend == config.BackendCPU {
		backend = simulation.BackendTypeCPU
	}

	w, h := eng.Window().Size()
	pc, err := engine.NewContext(r, cam, geo,
		engine.WithSettings(cfg.Derived.Settings),
		engine.WithSeed(cfg.Particles.Seed),
		engine.WithResolution(w, h, eng.Window().PixelRatio()),
		engine.WithSimulationBackend(backend,
			simulation.WithTimeScale(cfg.Simulation.TimeScale),
			simulation.WithDecayRate(cfg.Simulation.DecayRate),
			simulation.WithExcursionCap(cfg.Simulation.ExcursionCap),
			simulation.WithWorkers(cfg.Derived.Workers),
		),
	)
	if err != nil {
		log.Printf("[Main] initialize: %v", err)
		eng.Quit()
		return
	}

	eng.SetContext(pc)
	log.Printf("[Main] %d particles from %d meshes on a %dx%d state texture (%s backend)",
		pc.Count(), len(res.Meshes), pc.GridSize(), pc.GridSize(), cfg.Simulation.Backend)
}

func aspect(w window.Window) float32 {
	width, height := w.Size()
	return float32(width) / float32(max(height, 1))
}
