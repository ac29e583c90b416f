package main

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-particles/config"
	"github.com/Carmen-Shannon/oxy-particles/engine"
	"github.com/Carmen-Shannon/oxy-particles/engine/camera"
	"github.com/Carmen-Shannon/oxy-particles/engine/settings"
	"github.com/Carmen-Shannon/oxy-particles/engine/window"
)

// fineAdjust divides the parameter rate while shift is held.
const fineAdjust = 4

// paramKey binds a pair of held keys to one tunable. Holding down lowers the value and holding up
// raises it by rate units per second.
type paramKey struct {
	down, up uint32
	rate     float32
	field    func(s *settings.Settings) *float32
}

var paramKeys = []paramKey{
	{window.Key1, window.Key2, settings.MaxParticleSize / 4, func(s *settings.Settings) *float32 { return &s.ParticleSize }},
	{window.Key3, window.Key4, settings.MaxFlowFieldInfluence / 4, func(s *settings.Settings) *float32 { return &s.FlowFieldInfluence }},
	{window.Key5, window.Key6, settings.MaxFlowFieldStrength / 4, func(s *settings.Settings) *float32 { return &s.FlowFieldStrength }},
	{window.Key7, window.Key8, settings.MaxFlowFieldFrequency / 4, func(s *settings.Settings) *float32 { return &s.FlowFieldFrequency }},
}

// keyState tracks held keys. Window callbacks write it on the main thread and the tick loop reads
// it on its own goroutine.
type keyState struct {
	mu   sync.Mutex
	down map[uint32]bool
}

func (k *keyState) set(code uint32, held bool) {
	k.mu.Lock()
	k.down[code] = held
	k.mu.Unlock()
}

func (k *keyState) held(code uint32) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.down[code]
}

// setupInput wires mouse orbit/pan/zoom, keyboard panning and the parameter keys.
func setupInput(eng engine.Engine, cam camera.Camera, cfg *config.Config) {
	keys := &keyState{down: make(map[uint32]bool)}
	ctrl := cam.Controller()
	ev := eng.Window().Events()

	ev.KeyDown = func(key uint32) {
		keys.set(key, true)
		switch key {
		case window.KeyEscape:
			eng.Quit()
		case window.KeyBackspace:
			if pc := eng.Context(); pc != nil {
				pc.SetSettings(cfg.Derived.Settings)
			}
		case window.KeyP:
			eng.SetProfiling(!eng.Profiling())
		}
	}
	ev.KeyUp = func(key uint32) {
		keys.set(key, false)
	}

	// Window callbacks all run on the main thread, so the drag state needs no lock.
	var orbiting, panning bool
	var lastX, lastY int32

	ev.MouseDown = func(b window.MouseButton, x, y int32) {
		switch b {
		case window.MouseLeft:
			orbiting = true
		case window.MouseMiddle, window.MouseRight:
			panning = true
		}
		lastX, lastY = x, y
	}
	ev.MouseUp = func(b window.MouseButton, _, _ int32) {
		switch b {
		case window.MouseLeft:
			orbiting = false
		case window.MouseMiddle, window.MouseRight:
			panning = false
		}
	}
	ev.MouseMove = func(x, y int32) {
		dx := float32(x - lastX)
		dy := float32(y - lastY)
		lastX, lastY = x, y
		switch {
		case orbiting:
			ctrl.SetAzimuth(ctrl.Azimuth() + dx*ctrl.MouseSensitivity())
			ctrl.SetElevation(ctrl.Elevation() - dy*ctrl.MouseSensitivity())
		case panning:
			ctrl.PanRight(-dx * ctrl.MouseSensitivity())
			ctrl.PanUp(dy * ctrl.MouseSensitivity())
		}
	}
	ev.Scroll = ctrl.Zoom

	eng.SetTickCallback(func(deltaTime float32) {
		for _, pan := range panKeys {
			if keys.held(pan.key) {
				pan.move(ctrl)
			}
		}

		pc := eng.Context()
		if pc == nil {
			return
		}
		scale := deltaTime
		if keys.held(window.KeyLeftShift) || keys.held(window.KeyRightShift) {
			scale /= fineAdjust
		}
		for _, pk := range paramKeys {
			var dir float32
			if keys.held(pk.down) {
				dir--
			}
			if keys.held(pk.up) {
				dir++
			}
			if dir == 0 {
				continue
			}
			pc.UpdateSettings(func(s *settings.Settings) {
				*pk.field(s) += dir * pk.rate * scale
			})
		}
	})
}

var panKeys = []struct {
	key  uint32
	move func(c camera.OrbitController)
}{
	{window.KeyW, func(c camera.OrbitController) { c.PanForward(1) }},
	{window.KeyS, func(c camera.OrbitController) { c.PanForward(-1) }},
	{window.KeyA, func(c camera.OrbitController) { c.PanRight(-1) }},
	{window.KeyD, func(c camera.OrbitController) { c.PanRight(1) }},
	{window.KeyQ, func(c camera.OrbitController) { c.PanUp(1) }},
	{window.KeyE, func(c camera.OrbitController) { c.PanUp(-1) }},
}
