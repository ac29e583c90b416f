package settings

import (
	"math"
	"testing"
)

func TestClamped(t *testing.T) {
	nan := float32(math.NaN())
	tests := []struct {
		name string
		in   Settings
		want Settings
	}{
		{"defaults untouched", Default(), Default()},
		{
			"negative",
			Settings{ClearColor: [3]float64{-1, 0.5, 2}, ParticleSize: -0.3, FlowFieldInfluence: -1, FlowFieldStrength: -5, FlowFieldFrequency: -0.1},
			Settings{ClearColor: [3]float64{0, 0.5, 1}},
		},
		{
			"above bounds",
			Settings{ParticleSize: 4, FlowFieldInfluence: 2, FlowFieldStrength: 11, FlowFieldFrequency: 3},
			Settings{ParticleSize: 1, FlowFieldInfluence: 1, FlowFieldStrength: 10, FlowFieldFrequency: 1},
		},
		{
			"nan",
			Settings{ClearColor: [3]float64{math.NaN(), 0.5, 0.5}, ParticleSize: nan, FlowFieldInfluence: nan, FlowFieldStrength: nan, FlowFieldFrequency: nan},
			Settings{ClearColor: [3]float64{0, 0.5, 0.5}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.in.Clamped(); got != tt.want {
				t.Errorf("Clamped() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestStepParams(t *testing.T) {
	s := Default()
	p := s.StepParams(3.5, 0.016)
	if p.Time != 3.5 || p.DeltaTime != 0.016 {
		t.Errorf("StepParams() time = (%v, %v), want (3.5, 0.016)", p.Time, p.DeltaTime)
	}
	if p.FlowFieldInfluence != s.FlowFieldInfluence || p.FlowFieldStrength != s.FlowFieldStrength || p.FlowFieldFrequency != s.FlowFieldFrequency {
		t.Errorf("StepParams() flow field = %+v, want values from %+v", p, s)
	}
}
