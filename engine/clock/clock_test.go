package clock

import (
	"math"
	"testing"
	"time"
)

// scripted returns a source that yields base plus each offset in turn, repeating the last one.
func scripted(offsets ...time.Duration) func() time.Time {
	base := time.Unix(1700000000, 0)
	i := 0
	return func() time.Time {
		t := base.Add(offsets[min(i, len(offsets)-1)])
		i++
		return t
	}
}

func TestTick(t *testing.T) {
	ms := time.Millisecond
	tests := []struct {
		name        string
		offsets     []time.Duration
		wantElapsed []float32
		wantDelta   []float32
	}{
		{
			"steady 60hz",
			[]time.Duration{0, 16 * ms, 32 * ms, 48 * ms},
			[]float32{0, 0.016, 0.032, 0.048},
			[]float32{0, 0.016, 0.016, 0.016},
		},
		{
			"stall",
			[]time.Duration{0, 10 * ms, 510 * ms},
			[]float32{0, 0.010, 0.510},
			[]float32{0, 0.010, 0.5},
		},
		{
			"source goes backwards",
			[]time.Duration{0, 100 * ms, 50 * ms, 150 * ms},
			[]float32{0, 0.1, 0.1, 0.15},
			[]float32{0, 0.1, 0, 0.05},
		},
		{
			"source stands still",
			[]time.Duration{0, 20 * ms, 20 * ms},
			[]float32{0, 0.02, 0.02},
			[]float32{0, 0.02, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClock(WithSource(scripted(tt.offsets...)))
			var prev float32
			for i := range tt.offsets {
				elapsed, delta := c.Tick()
				if math.Abs(float64(elapsed-tt.wantElapsed[i])) > 1e-6 {
					t.Errorf("tick %d elapsed = %v, want %v", i, elapsed, tt.wantElapsed[i])
				}
				if math.Abs(float64(delta-tt.wantDelta[i])) > 1e-6 {
					t.Errorf("tick %d delta = %v, want %v", i, delta, tt.wantDelta[i])
				}
				if elapsed < prev {
					t.Errorf("tick %d elapsed %v rewound from %v", i, elapsed, prev)
				}
				prev = elapsed
			}
			if c.Ticks() != uint64(len(tt.offsets)) {
				t.Errorf("Ticks() = %d, want %d", c.Ticks(), len(tt.offsets))
			}
		})
	}
}

func TestDeltaMatchesElapsedDifference(t *testing.T) {
	c := NewClock()
	var prev float32
	for i := 0; i < 50; i++ {
		elapsed, delta := c.Tick()
		if elapsed < prev {
			t.Fatalf("tick %d elapsed %v rewound from %v", i, elapsed, prev)
		}
		if i > 0 && math.Abs(float64(delta-(elapsed-prev))) > 1e-5 {
			t.Fatalf("tick %d delta %v != elapsed difference %v", i, delta, elapsed-prev)
		}
		if c.Elapsed() != elapsed || c.Delta() != delta {
			t.Fatalf("accessors disagree with Tick()")
		}
		prev = elapsed
	}
}
