// Package settings holds the tunable parameters of the particle cloud. A Settings value is copied
// into every frame: the simulation step reads the flow-field values and the particle draw reads
// the sprite size, so a live update between frames never tears within one frame.
package settings

import (
	"github.com/Carmen-Shannon/oxy-particles/common"
	"github.com/Carmen-Shannon/oxy-particles/engine/simulation"
)

// Parameter bounds. Values outside them are clamped, never rejected.
const (
	MaxParticleSize       = 1.0
	MaxFlowFieldInfluence = 1.0
	MaxFlowFieldStrength  = 10.0
	MaxFlowFieldFrequency = 1.0
)

// Settings enumerates every tunable of the particle cloud.
type Settings struct {
	// ClearColor is the background color in linear RGB, each channel in [0, 1].
	ClearColor [3]float64

	// ParticleSize is the global sprite size multiplier in [0, 1].
	ParticleSize float32

	// FlowFieldInfluence in [0, 1] gates how many particles the flow field moves.
	FlowFieldInfluence float32

	// FlowFieldStrength in [0, 10] scales the flow-field displacement per second.
	FlowFieldStrength float32

	// FlowFieldFrequency in [0, 1] scales the spatial frequency of the flow-field lookup.
	FlowFieldFrequency float32
}

// Default returns the settings the particle cloud starts with.
//
// Returns:
//   - Settings: the default settings
func Default() Settings {
	return Settings{
		ClearColor:         [3]float64{0x02 / 255.0, 0x1c / 255.0, 0x1c / 255.0},
		ParticleSize:       0.169,
		FlowFieldInfluence: 0.425,
		FlowFieldStrength:  1.065,
		FlowFieldFrequency: 0.238,
	}
}

// Clamped returns a copy of s with every field moved to the nearest valid bound.
//
// Returns:
//   - Settings: the clamped settings
func (s Settings) Clamped() Settings {
	for i, c := range s.ClearColor {
		s.ClearColor[i] = common.Clamp(c, 0, 1)
	}
	s.ParticleSize = common.Clamp(s.ParticleSize, 0, MaxParticleSize)
	s.FlowFieldInfluence = common.Clamp(s.FlowFieldInfluence, 0, MaxFlowFieldInfluence)
	s.FlowFieldStrength = common.Clamp(s.FlowFieldStrength, 0, MaxFlowFieldStrength)
	s.FlowFieldFrequency = common.Clamp(s.FlowFieldFrequency, 0, MaxFlowFieldFrequency)
	return s
}

// StepParams builds the simulation parameters for one tick from the flow-field settings.
//
// Parameters:
//   - elapsed: the frame clock's elapsed time in seconds
//   - delta: the frame clock's last tick delta in seconds
//
// Returns:
//   - simulation.Params: the parameters to pass to the simulation step
func (s Settings) StepParams(elapsed, delta float32) simulation.Params {
	return simulation.Params{
		Time:               elapsed,
		DeltaTime:          delta,
		FlowFieldInfluence: s.FlowFieldInfluence,
		FlowFieldStrength:  s.FlowFieldStrength,
		FlowFieldFrequency: s.FlowFieldFrequency,
	}
}
