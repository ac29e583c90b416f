package engine

import (
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-particles/engine/camera"
	"github.com/Carmen-Shannon/oxy-particles/engine/clock"
	"github.com/Carmen-Shannon/oxy-particles/engine/encoder"
	"github.com/Carmen-Shannon/oxy-particles/engine/geometry"
	"github.com/Carmen-Shannon/oxy-particles/engine/settings"
	"github.com/Carmen-Shannon/oxy-particles/engine/simulation"
	"github.com/cogentcore/webgpu/wgpu"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.calls
	r.calls = nil
	return out
}

type fakeRenderer struct {
	rec      *recorder
	beginErr error
	clear    [3]float64
	size     [2]int
}

func (f *fakeRenderer) SetClearColor(r, g, b float64) { f.clear = [3]float64{r, g, b} }
func (f *fakeRenderer) Resize(width, height int)      { f.size = [2]int{width, height} }
func (f *fakeRenderer) BeginFrame() error {
	f.rec.add("begin")
	return f.beginErr
}
func (f *fakeRenderer) EndFrame() { f.rec.add("end") }
func (f *fakeRenderer) Present()  { f.rec.add("present") }

type fakeSimulation struct {
	rec      *recorder
	gpu      bool
	tick     uint64
	params   []simulation.Params
	released bool

	// When set, Step signals entered and blocks until gate is closed.
	entered chan struct{}
	gate    chan struct{}
}

func (f *fakeSimulation) Step(p simulation.Params) error {
	if f.released {
		panic("step on released simulation")
	}
	if f.gate != nil {
		close(f.entered)
		<-f.gate
	}
	f.rec.add("step")
	f.tick++
	f.params = append(f.params, p)
	return nil
}

func (f *fakeSimulation) CurrentTexture() (simulation.Texture, error) {
	f.rec.add("current")
	tex := simulation.Texture{Variable: "position", Index: int(f.tick & 1), Tick: f.tick}
	if f.gpu {
		tex.View = &wgpu.TextureView{}
	}
	return tex, nil
}

func (f *fakeSimulation) ReadState() ([]float32, error) {
	f.rec.add("read")
	return make([]float32, 16), nil
}

func (f *fakeSimulation) Release() { f.released = true }

type fakeParticles struct {
	rec         *recorder
	bound       []simulation.Texture
	drawSizes   []float32
	resized     [3]float32
	panicOnDraw int
	draws       int
	released    bool
}

func (f *fakeParticles) SetTexture(tex simulation.Texture) error {
	f.rec.add("set_texture")
	f.bound = append(f.bound, tex)
	return nil
}

func (f *fakeParticles) Upload(texels []float32) error {
	f.rec.add("upload")
	return nil
}

func (f *fakeParticles) Resize(width, height int, pixelRatio float32) {
	f.resized = [3]float32{float32(width), float32(height), pixelRatio}
}

func (f *fakeParticles) Draw(cam camera.Camera, s settings.Settings) error {
	f.rec.add("draw")
	f.draws++
	if f.draws == f.panicOnDraw {
		panic("draw exploded")
	}
	f.drawSizes = append(f.drawSizes, s.ParticleSize)
	return nil
}

func (f *fakeParticles) Count() int { return 4 }
func (f *fakeParticles) Release()   { f.released = true }

// scriptedSource returns a time source advancing by step on every reading.
func scriptedSource(step time.Duration) func() time.Time {
	now := time.Unix(1700000000, 0)
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

type fixture struct {
	rec       *recorder
	renderer  *fakeRenderer
	sim       *fakeSimulation
	particles *fakeParticles
	ctx       *Context
}

func newFixture(gpu bool) *fixture {
	rec := &recorder{}
	f := &fixture{
		rec:       rec,
		renderer:  &fakeRenderer{rec: rec},
		sim:       &fakeSimulation{rec: rec, gpu: gpu},
		particles: &fakeParticles{rec: rec},
	}
	f.ctx = &Context{
		mu:         &sync.Mutex{},
		state:      &encoder.StateImage{Size: 2, Count: 4},
		renderer:   f.renderer,
		simulation: f.sim,
		particles:  f.particles,
		clock:      clock.NewClock(clock.WithSource(scriptedSource(16 * time.Millisecond))),
		camera:     camera.NewCamera(camera.WithController(camera.NewOrbitController())),
		settings:   settings.Default(),
	}
	return f
}

func TestFrameOrder(t *testing.T) {
	tests := []struct {
		name string
		gpu  bool
		want []string
	}{
		{"gpu texture is bound", true, []string{"step", "current", "set_texture", "begin", "draw", "end", "present"}},
		{"cpu state is uploaded", false, []string{"step", "current", "read", "upload", "begin", "draw", "end", "present"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.gpu)
			for frame := 0; frame < 3; frame++ {
				if err := f.ctx.Frame(); err != nil {
					t.Fatalf("frame %d: %v", frame, err)
				}
				if got := f.rec.take(); !reflect.DeepEqual(got, tt.want) {
					t.Fatalf("frame %d calls = %v, want %v", frame, got, tt.want)
				}
			}
			if f.sim.tick != 3 {
				t.Errorf("simulation stepped %d times in 3 frames, want 3", f.sim.tick)
			}
		})
	}
}

func TestFrameBindsFreshTexture(t *testing.T) {
	f := newFixture(true)
	for frame := 1; frame <= 4; frame++ {
		if err := f.ctx.Frame(); err != nil {
			t.Fatalf("frame %d: %v", frame, err)
		}
		bound := f.particles.bound[len(f.particles.bound)-1]
		if bound.Tick != uint64(frame) {
			t.Errorf("frame %d bound texture from tick %d", frame, bound.Tick)
		}
		if bound.Index != frame&1 {
			t.Errorf("frame %d bound target %d, want %d", frame, bound.Index, frame&1)
		}
	}
}

func TestFrameParams(t *testing.T) {
	f := newFixture(true)
	s := settings.Default()
	s.FlowFieldStrength = 2.5
	f.ctx.SetSettings(s)

	for i := 0; i < 3; i++ {
		if err := f.ctx.Frame(); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	wantTime := []float32{0, 0.016, 0.032}
	wantDelta := []float32{0, 0.016, 0.016}
	for i, p := range f.sim.params {
		if abs(p.Time-wantTime[i]) > 1e-6 || abs(p.DeltaTime-wantDelta[i]) > 1e-6 {
			t.Errorf("step %d time/delta = %v/%v, want %v/%v", i, p.Time, p.DeltaTime, wantTime[i], wantDelta[i])
		}
		if p.FlowFieldStrength != 2.5 || p.FlowFieldInfluence != s.FlowFieldInfluence || p.FlowFieldFrequency != s.FlowFieldFrequency {
			t.Errorf("step %d params = %+v, want flow field from %+v", i, p, s)
		}
	}
	if f.renderer.clear != s.ClearColor {
		t.Errorf("clear color = %v, want %v", f.renderer.clear, s.ClearColor)
	}
}

func TestFrameTransientError(t *testing.T) {
	f := newFixture(true)
	f.renderer.beginErr = errors.New("surface lost")

	if err := f.ctx.Frame(); err == nil {
		t.Fatalf("Frame() error = nil, want begin frame failure")
	}
	if got := f.rec.take(); !reflect.DeepEqual(got, []string{"step", "current", "set_texture", "begin"}) {
		t.Errorf("failed frame calls = %v", got)
	}

	f.renderer.beginErr = nil
	if err := f.ctx.Frame(); err != nil {
		t.Fatalf("Frame() after recovery: %v", err)
	}
	if f.particles.draws != 1 {
		t.Errorf("draws = %d after recovery, want 1", f.particles.draws)
	}
}

func TestSettingsUpdates(t *testing.T) {
	f := newFixture(true)

	f.ctx.SetSettings(settings.Settings{ParticleSize: 3, FlowFieldStrength: -1})
	got := f.ctx.Settings()
	if got.ParticleSize != 1 || got.FlowFieldStrength != 0 {
		t.Errorf("SetSettings() stored %+v, want clamped values", got)
	}

	f.ctx.UpdateSettings(func(s *settings.Settings) { s.ParticleSize -= 0.25 })
	if got := f.ctx.Settings().ParticleSize; got != 0.75 {
		t.Errorf("UpdateSettings() ParticleSize = %v, want 0.75", got)
	}

	if err := f.ctx.Frame(); err != nil {
		t.Fatalf("Frame(): %v", err)
	}
	if f.particles.drawSizes[0] != 0.75 {
		t.Errorf("Draw received size %v, want 0.75", f.particles.drawSizes[0])
	}
}

func TestUpdateCallbackRunsBeforeStep(t *testing.T) {
	f := newFixture(true)
	f.ctx.SetUpdateCallback(func(float32) { f.rec.add("update") })
	if err := f.ctx.Frame(); err != nil {
		t.Fatalf("Frame(): %v", err)
	}
	calls := f.rec.take()
	if len(calls) < 2 || calls[0] != "update" || calls[1] != "step" {
		t.Errorf("calls = %v, want update before step", calls)
	}
}

func TestResize(t *testing.T) {
	f := newFixture(true)
	f.ctx.Resize(2560, 1440, 2)

	if f.renderer.size != [2]int{2560, 1440} {
		t.Errorf("renderer size = %v, want 2560x1440", f.renderer.size)
	}
	if f.particles.resized != [3]float32{1280, 720, 2} {
		t.Errorf("particles resized to %v, want 1280x720 @2", f.particles.resized)
	}
	if got := f.ctx.Camera().Aspect(); abs(got-16.0/9.0) > 1e-6 {
		t.Errorf("camera aspect = %v, want 16/9", got)
	}
	if f.ctx.Count() != 4 || f.ctx.GridSize() != 2 {
		t.Errorf("resize changed Count/GridSize to %d/%d", f.ctx.Count(), f.ctx.GridSize())
	}

	f.ctx.Resize(0, 0, 1)
	if f.renderer.size != [2]int{2560, 1440} {
		t.Errorf("zero-size resize reached the renderer")
	}
}

func TestNewContextRejectsEmptyGeometry(t *testing.T) {
	tests := []struct {
		name string
		geo  *geometry.Geometry
	}{
		{"nil geometry", nil},
		{"zero vertices", &geometry.Geometry{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, err := NewContext(nil, nil, tt.geo)
			if !errors.Is(err, geometry.ErrNoVertices) {
				t.Errorf("NewContext() error = %v, want ErrNoVertices", err)
			}
			if ctx != nil {
				t.Errorf("NewContext() returned a context alongside the error")
			}
		})
	}
}

func TestRelease(t *testing.T) {
	f := newFixture(true)
	f.ctx.Release()
	if !f.sim.released || !f.particles.released {
		t.Errorf("Release() left simulation released=%v particles released=%v", f.sim.released, f.particles.released)
	}
	f.ctx.Release()
}

func TestReleaseWaitsForFrame(t *testing.T) {
	f := newFixture(true)
	f.sim.entered = make(chan struct{})
	f.sim.gate = make(chan struct{})

	frameErr := make(chan error, 1)
	go func() { frameErr <- f.ctx.Frame() }()
	<-f.sim.entered

	released := make(chan struct{})
	go func() {
		f.ctx.Release()
		close(released)
	}()
	select {
	case <-released:
		t.Fatalf("Release() returned while a frame was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(f.sim.gate)
	if err := <-frameErr; err != nil {
		t.Fatalf("Frame() during Release: %v", err)
	}
	<-released
	if !f.sim.released || !f.particles.released {
		t.Errorf("Release() left simulation released=%v particles released=%v", f.sim.released, f.particles.released)
	}

	if err := f.ctx.Frame(); !errors.Is(err, ErrContextReleased) {
		t.Errorf("Frame() after Release error = %v, want ErrContextReleased", err)
	}
	f.ctx.Resize(800, 600, 1)
	if f.ctx.Count() != 4 {
		t.Errorf("Count() after Release = %d, want 4", f.ctx.Count())
	}
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
