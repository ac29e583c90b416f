// Package geometry merges the drawable sub-meshes of a loaded model into the single ordered vertex
// list the particle system is built from. Particle i is vertex i of the merged list.
package geometry

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/stat"
)

var (
	// ErrNoVertices is returned when the merged geometry would contain no particles.
	ErrNoVertices = errors.New("geometry: no vertices to sample")

	// ErrLayoutMismatch is returned when a sub-mesh carries an attribute whose length does not
	// match its position count.
	ErrLayoutMismatch = errors.New("geometry: incompatible vertex attribute layout")
)

// Mesh is one decoded sub-mesh: vertex positions and, optionally, one color per position.
type Mesh struct {
	Name      string
	Positions []mgl32.Vec3
	Colors    []mgl32.Vec4
}

// Bounds is the axis-aligned extent of the merged geometry.
type Bounds struct {
	Min      mgl32.Vec3
	Max      mgl32.Vec3
	Centroid mgl32.Vec3
}

// Size returns the per-axis extent of the bounds.
func (b Bounds) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

// Geometry is the merged, immutable vertex list. Count is the canonical particle count N.
type Geometry struct {
	Positions []mgl32.Vec3
	Colors    []mgl32.Vec4
	HasColor  bool
	Count     int
	Bounds    Bounds
}

// Spread returns the per-axis population standard deviation of the vertex positions.
func (g *Geometry) Spread() mgl32.Vec3 {
	var out mgl32.Vec3
	if g == nil || g.Count == 0 {
		return out
	}
	axis := make([]float64, g.Count)
	for a := 0; a < 3; a++ {
		for i, p := range g.Positions {
			axis[i] = float64(p[a])
		}
		out[a] = float32(stat.PopStdDev(axis, nil))
	}
	return out
}

// parallelThreshold is the vertex count above which Merge copies meshes on the worker pool.
const parallelThreshold = 1 << 16

type mergeConfig struct {
	workers   int
	fillColor mgl32.Vec4
}

// Merge concatenates the sub-meshes in order into one Geometry.
// If any mesh carries colors, meshes without colors are filled with the configured fill color so
// the merged layout stays uniform.
//
// Parameters:
//   - meshes: the decoded sub-meshes of one model, in draw order
//   - opts: merge options (worker count, fill color)
//
// Returns:
//   - *Geometry: the merged geometry
//   - error: ErrNoVertices if there is nothing to sample, ErrLayoutMismatch on a malformed mesh
func Merge(meshes []Mesh, opts ...MergeOption) (*Geometry, error) {
	cfg := &mergeConfig{
		workers:   1,
		fillColor: mgl32.Vec4{1, 1, 1, 1},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	total := 0
	hasColor := false
	offsets := make([]int, len(meshes))
	for i, m := range meshes {
		if len(m.Colors) > 0 && len(m.Colors) != len(m.Positions) {
			return nil, fmt.Errorf("%w: mesh %d (%q) has %d colors for %d positions",
				ErrLayoutMismatch, i, m.Name, len(m.Colors), len(m.Positions))
		}
		if len(m.Colors) > 0 {
			hasColor = true
		}
		offsets[i] = total
		total += len(m.Positions)
	}
	if total == 0 {
		return nil, ErrNoVertices
	}

	geo := &Geometry{
		Positions: make([]mgl32.Vec3, total),
		HasColor:  hasColor,
		Count:     total,
	}
	if hasColor {
		geo.Colors = make([]mgl32.Vec4, total)
	}

	copyMesh := func(i int) {
		m := meshes[i]
		off := offsets[i]
		copy(geo.Positions[off:], m.Positions)
		if !hasColor {
			return
		}
		if len(m.Colors) > 0 {
			copy(geo.Colors[off:], m.Colors)
			return
		}
		for j := range m.Positions {
			geo.Colors[off+j] = cfg.fillColor
		}
	}

	if cfg.workers > 1 && total >= parallelThreshold && len(meshes) > 1 {
		pool := worker.NewDynamicWorkerPool(cfg.workers, 256, 1*time.Second)
		defer pool.Stop()
		var wg sync.WaitGroup
		for i := range meshes {
			wg.Add(1)
			idx := i
			pool.SubmitTask(worker.Task{
				ID: idx,
				Do: func() (any, error) {
					defer wg.Done()
					copyMesh(idx)
					return nil, nil
				},
			})
		}
		wg.Wait()
	} else {
		for i := range meshes {
			copyMesh(i)
		}
	}

	geo.Bounds = computeBounds(geo.Positions)
	return geo, nil
}

func computeBounds(positions []mgl32.Vec3) Bounds {
	inf := float32(math.Inf(1))
	b := Bounds{
		Min: mgl32.Vec3{inf, inf, inf},
		Max: mgl32.Vec3{-inf, -inf, -inf},
	}
	var sum [3]float64
	for _, p := range positions {
		for a := 0; a < 3; a++ {
			b.Min[a] = min(b.Min[a], p[a])
			b.Max[a] = max(b.Max[a], p[a])
			sum[a] += float64(p[a])
		}
	}
	n := float64(len(positions))
	b.Centroid = mgl32.Vec3{float32(sum[0] / n), float32(sum[1] / n), float32(sum[2] / n)}
	return b
}
