package camera

import (
	_ "embed"
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformSource is the WGSL declaration of CameraUniform that shaders pull in with
// //@oxy:include camera.
//
//go:embed assets/camera_uniform.wgsl
var UniformSource string

// UniformSize is the byte size of CameraUniform on the GPU: a mat4x4<f32> followed by a vec3<f32>
// padded to 16 bytes.
const UniformSize = 80

// CameraUniform mirrors the WGSL CameraUniform struct.
type CameraUniform struct {
	ViewProj mgl32.Mat4
	Position mgl32.Vec3
}

// Marshal encodes the uniform in its little-endian GPU layout.
//
// Returns:
//   - []byte: UniformSize bytes ready for Queue.WriteBuffer
func (u CameraUniform) Marshal() []byte {
	buf := make([]byte, 0, UniformSize)
	for _, f := range u.ViewProj {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	for _, f := range u.Position {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(f))
	}
	return binary.LittleEndian.AppendUint32(buf, 0)
}
