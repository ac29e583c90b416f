package profiler

import (
	"fmt"
	"io"
	"log"
	"runtime"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/stat"
)

// Profiler tracks frame rate, frame time spread and memory statistics for performance monitoring.
// Outputs stats to the log at a configurable interval and optionally records one CSV row per interval.
type Profiler struct {
	mu *sync.Mutex

	now            func() time.Time
	frameCount     int
	frameTimes     []float64
	lastTime       time.Time
	lastFrame      time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	logging bool
	csv     io.Writer
	header  bool
	last    FrameStats
}

// FrameStats is one profiling interval.
type FrameStats struct {
	Timestamp   string  `csv:"timestamp"`
	Frames      int     `csv:"frames"`
	FPS         float64 `csv:"fps"`
	FrameMeanMs float64 `csv:"frame_mean_ms"`
	FrameStdMs  float64 `csv:"frame_std_ms"`
	FrameMaxMs  float64 `csv:"frame_max_ms"`
	HeapMB      float64 `csv:"heap_mb"`
	AllocRateMB float64 `csv:"alloc_rate_mb_s"`
	GCCount     uint32  `csv:"gc_count"`
	LastPauseUs uint64  `csv:"gc_last_pause_us"`
	MaxPauseUs  uint64  `csv:"gc_max_pause_us"`
	SysMB       float64 `csv:"sys_mb"`
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second and log output is enabled.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		mu:             &sync.Mutex{},
		now:            time.Now,
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
		logging:        true,
	}
	for _, option := range options {
		option(p)
	}
	p.lastTime = p.now()
	p.lastFrame = p.lastTime
	return p
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, frame time mean/stddev/max, heap usage, allocation rate, GC count/pause times, total memory.
//
// Returns:
//   - bool: true if an interval completed this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := p.now()
	p.frameTimes = append(p.frameTimes, float64(currentTime.Sub(p.lastFrame))/float64(time.Millisecond))
	p.lastFrame = currentTime
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fs := FrameStats{
		Timestamp: currentTime.Format(time.RFC3339Nano),
		Frames:    p.frameCount,
		FPS:       float64(p.frameCount) / elapsed.Seconds(),
	}
	fs.FrameMeanMs, fs.FrameStdMs = stat.MeanStdDev(p.frameTimes, nil)
	if len(p.frameTimes) < 2 {
		fs.FrameStdMs = 0
	}
	for _, ft := range p.frameTimes {
		if ft > fs.FrameMaxMs {
			fs.FrameMaxMs = ft
		}
	}

	runtime.ReadMemStats(&p.memStats)
	// Alloc: Bytes of allocated heap objects (live memory)
	// Sys: Total bytes of memory obtained from the OS (actual process footprint)
	fs.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	fs.SysMB = float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	fs.AllocRateMB = float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of last 256 GC pauses
	fs.GCCount = p.memStats.NumGC
	if fs.GCCount > 0 {
		fs.LastPauseUs = p.memStats.PauseNs[(fs.GCCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if fs.GCCount-startIdx > 256 {
			startIdx = fs.GCCount - 256
		}
		for i := startIdx; i < fs.GCCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > fs.MaxPauseUs {
				fs.MaxPauseUs = pause
			}
		}
	}

	if p.logging {
		log.Printf("[Profiler] FPS: %.2f | Frame: %.2f ± %.2f ms (max %.2f) | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
			fs.FPS, fs.FrameMeanMs, fs.FrameStdMs, fs.FrameMaxMs, fs.HeapMB, fs.AllocRateMB, fs.GCCount, fs.LastPauseUs, fs.MaxPauseUs, fs.SysMB)
	}
	if err := p.record(fs); err != nil {
		log.Printf("[Profiler] %v", err)
	}

	p.last = fs
	p.frameCount = 0
	p.frameTimes = p.frameTimes[:0]
	p.lastTime = currentTime
	p.lastGCCount = fs.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}

// record appends fs to the CSV writer, with a header row before the first record.
func (p *Profiler) record(fs FrameStats) error {
	if p.csv == nil {
		return nil
	}
	rows := []FrameStats{fs}
	if !p.header {
		if err := gocsv.Marshal(rows, p.csv); err != nil {
			return fmt.Errorf("writing frame stats: %w", err)
		}
		p.header = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(rows, p.csv); err != nil {
		return fmt.Errorf("writing frame stats: %w", err)
	}
	return nil
}

// Last returns the stats of the most recently completed interval.
//
// Returns:
//   - FrameStats: the last interval, zero before the first one completes
func (p *Profiler) Last() FrameStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
