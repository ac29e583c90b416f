package common

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	tests := []struct {
		name      string
		v, lo, hi float32
		want      float32
	}{
		{"inside", 0.5, 0, 1, 0.5},
		{"below", -2, 0, 1, 0},
		{"above", 3, 0, 1, 1},
		{"at bounds", 1, 0, 1, 1},
		{"nan", nan, 0, 10, 0},
		{"positive infinity", inf, 0, 10, 10},
		{"negative infinity", -inf, -1, 1, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clamp(tt.v, tt.lo, tt.hi); got != tt.want {
				t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.v, tt.lo, tt.hi, got, tt.want)
			}
		})
	}
}

func TestSmoothStepAndFract(t *testing.T) {
	tests := []struct {
		name string
		got  float32
		want float32
	}{
		{"smoothstep midpoint", SmoothStep(0, 1, 0.5), 0.5},
		{"smoothstep below", SmoothStep(0, 1, -1), 0},
		{"smoothstep collapsed edges below", SmoothStep(1, 1, 0.5), 0},
		{"smoothstep collapsed edges above", SmoothStep(1, 1, 1), 1},
		{"fract positive", Fract(1.25), 0.25},
		{"fract negative", Fract(-0.25), 0.75},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}
