package loader

import (
	"io"

	"github.com/Carmen-Shannon/oxy-particles/engine/geometry"
)

// loaderBackend decodes one model format into sub-meshes.
type loaderBackend interface {
	// Load decodes the file at path. Relative resources resolve against its directory.
	Load(path string) ([]geometry.Mesh, error)

	// LoadReader decodes a self-contained stream; isGLB selects the binary container.
	LoadReader(r io.Reader, isGLB bool) ([]geometry.Mesh, error)
}
