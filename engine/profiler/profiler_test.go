package profiler

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"
)

// steppedClock returns successive readings from offsets, repeating the last one.
func steppedClock(offsets ...time.Duration) func() time.Time {
	base := time.Unix(1700000000, 0)
	i := 0
	return func() time.Time {
		t := base.Add(offsets[i])
		if i < len(offsets)-1 {
			i++
		}
		return t
	}
}

func TestTickReportsPerInterval(t *testing.T) {
	ms := time.Millisecond
	p := NewProfiler(
		WithLogging(false),
		WithInterval(100*ms),
		WithTimeSource(steppedClock(0, 20*ms, 40*ms, 70*ms, 100*ms, 120*ms)),
	)

	want := []bool{false, false, false, true, false}
	for i, w := range want {
		if got := p.Tick(); got != w {
			t.Fatalf("Tick() #%d = %v, want %v", i, got, w)
		}
	}

	fs := p.Last()
	if fs.Frames != 4 {
		t.Errorf("Frames = %d, want 4", fs.Frames)
	}
	if math.Abs(fs.FPS-40) > 1e-9 {
		t.Errorf("FPS = %v, want 40", fs.FPS)
	}
	if math.Abs(fs.FrameMeanMs-25) > 1e-9 {
		t.Errorf("FrameMeanMs = %v, want 25", fs.FrameMeanMs)
	}
	if math.Abs(fs.FrameMaxMs-30) > 1e-9 {
		t.Errorf("FrameMaxMs = %v, want 30", fs.FrameMaxMs)
	}
	// sample stddev of {20, 20, 30, 30}
	if want := math.Sqrt(100.0 / 3.0); math.Abs(fs.FrameStdMs-want) > 1e-9 {
		t.Errorf("FrameStdMs = %v, want %v", fs.FrameStdMs, want)
	}
}

func TestTickWritesCSV(t *testing.T) {
	ms := time.Millisecond
	var buf bytes.Buffer
	p := NewProfiler(
		WithLogging(false),
		WithCSV(&buf),
		WithInterval(10*ms),
		WithTimeSource(steppedClock(0, 10*ms, 20*ms, 30*ms)),
	)
	for i := 0; i < 3; i++ {
		p.Tick()
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("CSV has %d lines, want a header and 3 rows:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "timestamp,frames,fps,frame_mean_ms") {
		t.Errorf("header = %q", lines[0])
	}
	for _, row := range lines[1:] {
		if strings.HasPrefix(row, "timestamp") {
			t.Errorf("header repeated in row %q", row)
		}
	}
}

func TestWithIntervalIgnoresNonPositive(t *testing.T) {
	p := NewProfiler(WithInterval(0), WithLogging(false))
	if p.updateInterval != time.Second {
		t.Errorf("updateInterval = %v, want 1s", p.updateInterval)
	}
}
