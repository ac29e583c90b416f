package loader

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-particles/engine/geometry"
	"github.com/go-gl/mathgl/mgl32"
)

// ErrDracoCompressed is returned for assets stored with Draco mesh compression, which the loader
// cannot decode. Re-export the asset without compression.
var ErrDracoCompressed = errors.New("loader: Draco-compressed primitives are not supported")

// meshes returns one geometry.Mesh per primitive in document order, named after the glTF mesh
// (mesh_N when unnamed) with a _primK suffix from the second primitive on. Every vertex is kept;
// indices, topology and node transforms are not applied.
func (a *gltfAsset) meshes() ([]geometry.Mesh, error) {
	if slices.Contains(a.doc.ExtensionsRequired, extDraco) {
		return nil, ErrDracoCompressed
	}

	var out []geometry.Mesh
	for mi, m := range a.doc.Meshes {
		base := m.Name
		if base == "" {
			base = fmt.Sprintf("mesh_%d", mi)
		}
		for pi, prim := range m.Primitives {
			name := base
			if pi > 0 {
				name = fmt.Sprintf("%s_prim%d", base, pi)
			}
			mesh, err := a.primitive(name, prim)
			if err != nil {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", mi, pi, err)
			}
			out = append(out, mesh)
		}
	}
	return out, nil
}

func (a *gltfAsset) primitive(name string, prim gltfPrimitive) (geometry.Mesh, error) {
	if _, ok := prim.Extensions[extDraco]; ok {
		return geometry.Mesh{}, ErrDracoCompressed
	}
	posIndex, ok := prim.Attributes["POSITION"]
	if !ok {
		return geometry.Mesh{}, errors.New("primitive has no POSITION attribute")
	}

	acc, pos, err := a.floats(posIndex)
	if err != nil {
		return geometry.Mesh{}, fmt.Errorf("POSITION: %w", err)
	}
	if acc.Type != typeVec3 || acc.ComponentType != componentFloat {
		return geometry.Mesh{}, fmt.Errorf("POSITION is %s/%d, want VEC3 float", acc.Type, acc.ComponentType)
	}
	mesh := geometry.Mesh{Name: name, Positions: make([]mgl32.Vec3, acc.Count)}
	for k := range mesh.Positions {
		mesh.Positions[k] = mgl32.Vec3(pos[k*3 : k*3+3])
	}

	colorIndex, ok := prim.Attributes["COLOR_0"]
	if !ok {
		return mesh, nil
	}
	acc, col, err := a.floats(colorIndex)
	if err != nil {
		return geometry.Mesh{}, fmt.Errorf("COLOR_0: %w", err)
	}
	if acc.Type != typeVec3 && acc.Type != typeVec4 {
		return geometry.Mesh{}, fmt.Errorf("COLOR_0 is %s, want VEC3 or VEC4", acc.Type)
	}
	if acc.Count != len(mesh.Positions) {
		return geometry.Mesh{}, fmt.Errorf("%w: %d colors for %d positions", geometry.ErrLayoutMismatch, acc.Count, len(mesh.Positions))
	}
	n := elementWidth[acc.Type]
	mesh.Colors = make([]mgl32.Vec4, acc.Count)
	for k := range mesh.Colors {
		c := col[k*n:]
		mesh.Colors[k] = mgl32.Vec4{c[0], c[1], c[2], 1}
		if n == 4 {
			mesh.Colors[k][3] = c[3]
		}
	}
	return mesh, nil
}
