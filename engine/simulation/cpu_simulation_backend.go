package simulation

import (
	"fmt"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-particles/common"
	"github.com/Carmen-Shannon/oxy-particles/engine/encoder"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/ojrac/opensimplex-go"
)

// minRowsPerBand keeps small grids on the calling goroutine, where pool overhead would dominate.
const minRowsPerBand = 16

// cpuSimulationBackend integrates the state grid in host memory. Rows are split into bands and
// submitted to a worker pool; a WaitGroup is the per-step barrier.
type cpuSimulationBackend struct {
	size    int
	base    []float32
	targets [2][]float32

	noise   opensimplex.Noise
	workers int
	pool    worker.DynamicWorkerPool
}

var _ SimulationBackend = &cpuSimulationBackend{}

func newCPUSimulationBackend(seed int64, workers int) *cpuSimulationBackend {
	return &cpuSimulationBackend{
		noise:   opensimplex.New(seed),
		workers: max(workers, 1),
	}
}

func (b *cpuSimulationBackend) Allocate(initial *encoder.StateImage) error {
	if b.base != nil {
		return ErrAlreadyInitialized
	}
	want := initial.Size * initial.Size * encoder.Channels
	if len(initial.Texels) != want {
		return fmt.Errorf("%w: %d floats for a %dx%d grid", ErrUnsupportedFormat, len(initial.Texels), initial.Size, initial.Size)
	}

	b.size = initial.Size
	b.base = append([]float32(nil), initial.Texels...)
	b.targets[0] = append([]float32(nil), initial.Texels...)
	b.targets[1] = append([]float32(nil), initial.Texels...)
	if b.workers > 1 && b.size >= 2*minRowsPerBand {
		b.pool = worker.NewDynamicWorkerPool(b.workers, 256, 1*time.Second)
	}
	return nil
}

func (b *cpuSimulationBackend) Integrate(u GPUSimulationUniform, read, write int) error {
	if b.base == nil {
		return ErrNotInitialized
	}
	u.GridSize = float32(b.size)
	src, dst := b.targets[read&1], b.targets[write&1]

	if b.pool == nil {
		b.integrateRows(&u, src, dst, 0, b.size)
		return nil
	}

	bandRows := max((b.size+b.workers-1)/b.workers, minRowsPerBand)
	var wg sync.WaitGroup
	for band, row := 0, 0; row < b.size; band, row = band+1, row+bandRows {
		first, last := row, min(row+bandRows, b.size)
		wg.Add(1)
		b.pool.SubmitTask(worker.Task{
			ID: band,
			Do: func() (any, error) {
				defer wg.Done()
				b.integrateRows(&u, src, dst, first, last)
				return nil, nil
			},
		})
	}
	wg.Wait()
	return nil
}

func (b *cpuSimulationBackend) integrateRows(u *GPUSimulationUniform, src, dst []float32, first, last int) {
	for row := first; row < last; row++ {
		for col := 0; col < b.size; col++ {
			o := (row*b.size + col) * encoder.Channels
			base := [4]float32(b.base[o : o+4])
			p := [4]float32(src[o : o+4])
			next := integrateTexel(base, p, u, b.noise)
			copy(dst[o:o+4], next[:])
		}
	}
}

// integrateTexel advances one texel by one tick. It is the host twin of the integrate compute shader.
func integrateTexel(base, p [4]float32, u *GPUSimulationUniform, noise opensimplex.Noise) [4]float32 {
	rest := mgl32.Vec3{base[0], base[1], base[2]}
	if p[3] >= 1 {
		return [4]float32{rest[0], rest[1], rest[2], common.Fract(p[3])}
	}

	pos := mgl32.Vec3{p[0], p[1], p[2]}
	step := u.DeltaTime * u.Strength
	if step != 0 {
		t := float64(u.Time * u.TimeScale)

		s := float32(noise.Eval4(float64(rest[0]*0.2), float64(rest[1]*0.2), float64(rest[2]*0.2), t+1))
		s = common.SmoothStep((u.Influence-0.5)*-2, 1, s)

		q := pos.Mul(u.Frequency)
		flow := mgl32.Vec3{
			float32(noise.Eval4(float64(q[0]), float64(q[1]), float64(q[2]), t)),
			float32(noise.Eval4(float64(q[0]+1), float64(q[1]+1), float64(q[2]+1), t)),
			float32(noise.Eval4(float64(q[0]+2), float64(q[1]+2), float64(q[2]+2), t)),
		}
		if l := flow.Len(); l > 0 {
			flow = flow.Mul(1 / l)
		} else {
			flow = mgl32.Vec3{}
		}

		pos = pos.Add(flow.Mul(step * s))
	}
	if u.ExcursionCap > 0 && pos.Sub(rest).Len() > u.ExcursionCap {
		pos = rest
	}

	return [4]float32{pos[0], pos[1], pos[2], p[3] + u.DeltaTime*u.DecayRate}
}

func (b *cpuSimulationBackend) View(int) *wgpu.TextureView {
	return nil
}

func (b *cpuSimulationBackend) Read(index int) ([]float32, error) {
	if b.base == nil {
		return nil, ErrNotInitialized
	}
	return append([]float32(nil), b.targets[index&1]...), nil
}

func (b *cpuSimulationBackend) Release() {
	if b.pool != nil {
		b.pool.Stop()
		b.pool = nil
	}
	b.base = nil
	b.targets = [2][]float32{}
	b.size = 0
}
