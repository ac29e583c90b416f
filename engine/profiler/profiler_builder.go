package profiler

import (
	"io"
	"time"
)

// ProfilerBuilderOption is a functional option for configuring a Profiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often statistics are reported. Values <= 0 keep the default of one second.
//
// Parameters:
//   - interval: the reporting interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(interval time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if interval > 0 {
			p.updateInterval = interval
		}
	}
}

// WithCSV records one row of FrameStats per interval to w.
//
// Parameters:
//   - w: destination for CSV rows, typically an *os.File
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithCSV(w io.Writer) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.csv = w
	}
}

// WithLogging enables or disables the per-interval log line.
//
// Parameters:
//   - enabled: if false, statistics are only recorded
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithLogging(enabled bool) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.logging = enabled
	}
}

// WithTimeSource replaces the wall clock used to time frames.
//
// Parameters:
//   - now: function returning the current time
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithTimeSource(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		if now != nil {
			p.now = now
		}
	}
}
