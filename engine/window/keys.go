package window

import "github.com/go-gl/glfw/v3.3/glfw"

// Key codes reported to Events.KeyDown and Events.KeyUp.
const (
	KeyW = uint32(glfw.KeyW)
	KeyA = uint32(glfw.KeyA)
	KeyS = uint32(glfw.KeyS)
	KeyD = uint32(glfw.KeyD)
	KeyQ = uint32(glfw.KeyQ)
	KeyE = uint32(glfw.KeyE)
	KeyP = uint32(glfw.KeyP)

	Key1 = uint32(glfw.Key1)
	Key2 = uint32(glfw.Key2)
	Key3 = uint32(glfw.Key3)
	Key4 = uint32(glfw.Key4)
	Key5 = uint32(glfw.Key5)
	Key6 = uint32(glfw.Key6)
	Key7 = uint32(glfw.Key7)
	Key8 = uint32(glfw.Key8)

	KeyEscape     = uint32(glfw.KeyEscape)
	KeyBackspace  = uint32(glfw.KeyBackspace)
	KeyLeftShift  = uint32(glfw.KeyLeftShift)
	KeyRightShift = uint32(glfw.KeyRightShift)
)
