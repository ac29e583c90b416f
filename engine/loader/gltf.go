package loader

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-particles/engine/geometry"
)

var (
	errVersion     = errors.New("gltf: asset version is not 2.x")
	errGLBMagic    = errors.New("gltf: not a GLB container")
	errGLBVersion  = errors.New("gltf: GLB container version is not 2")
	errNoJSON      = errors.New("gltf: GLB container has no JSON chunk")
	errOutOfBounds = errors.New("gltf: read past the end of a buffer")
)

// GLB container layout.
const (
	glbMagic   = 0x46546C67 // "glTF"
	glbVersion = 2
	chunkJSON  = 0x4E4F534A // "JSON"
	chunkBIN   = 0x004E4942 // "BIN\0"
)

type glbHeader struct {
	Magic, Version, Length uint32
}

type glbChunkHeader struct {
	Length, Type uint32
}

// Accessor component types and element types.
const (
	componentByte          = 5120
	componentUnsignedByte  = 5121
	componentShort         = 5122
	componentUnsignedShort = 5123
	componentUnsignedInt   = 5125
	componentFloat         = 5126

	typeScalar = "SCALAR"
	typeVec3   = "VEC3"
	typeVec4   = "VEC4"
)

var componentSize = map[int]int{
	componentByte: 1, componentUnsignedByte: 1,
	componentShort: 2, componentUnsignedShort: 2,
	componentUnsignedInt: 4, componentFloat: 4,
}

var elementWidth = map[string]int{
	typeScalar: 1, "VEC2": 2, typeVec3: 3, typeVec4: 4,
	"MAT2": 4, "MAT3": 9, "MAT4": 16,
}

// extDraco marks Draco-compressed primitives, which have no Go decoder.
const extDraco = "KHR_draco_mesh_compression"

// gltfDocument is the part of the glTF JSON a vertex cloud needs. Materials, nodes, skins and
// animations are left to encoding/json to skip.
type gltfDocument struct {
	Asset struct {
		Version string `json:"version"`
	} `json:"asset"`
	Meshes             []gltfMesh       `json:"meshes"`
	Accessors          []gltfAccessor   `json:"accessors"`
	BufferViews        []gltfBufferView `json:"bufferViews"`
	Buffers            []gltfBuffer     `json:"buffers"`
	ExtensionsRequired []string         `json:"extensionsRequired"`
}

type gltfMesh struct {
	Name       string          `json:"name"`
	Primitives []gltfPrimitive `json:"primitives"`
}

type gltfPrimitive struct {
	Attributes map[string]int             `json:"attributes"`
	Extensions map[string]json.RawMessage `json:"extensions"`
}

type gltfAccessor struct {
	BufferView    *int            `json:"bufferView"`
	ByteOffset    int             `json:"byteOffset"`
	ComponentType int             `json:"componentType"`
	Count         int             `json:"count"`
	Type          string          `json:"type"`
	Sparse        json.RawMessage `json:"sparse"`
}

type gltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	ByteStride int `json:"byteStride"`
}

type gltfBuffer struct {
	URI        string `json:"uri"`
	ByteLength int    `json:"byteLength"`
}

// gltfAsset is a parsed document with every buffer loaded.
type gltfAsset struct {
	doc     gltfDocument
	buffers [][]byte
}

// parseGLTF decodes a .gltf or .glb payload. External buffer URIs resolve against baseDir; with an
// empty baseDir only GLB and data: buffers can be read.
func parseGLTF(data []byte, isGLB bool, baseDir string) (*gltfAsset, error) {
	js, bin := data, []byte(nil)
	if isGLB {
		var err error
		if js, bin, err = splitGLB(data); err != nil {
			return nil, err
		}
	}

	a := &gltfAsset{}
	if err := json.Unmarshal(js, &a.doc); err != nil {
		return nil, fmt.Errorf("gltf: decode JSON: %w", err)
	}
	if !strings.HasPrefix(a.doc.Asset.Version, "2.") {
		return nil, fmt.Errorf("%w (got %q)", errVersion, a.doc.Asset.Version)
	}

	a.buffers = make([][]byte, len(a.doc.Buffers))
	for i, b := range a.doc.Buffers {
		buf, err := loadBuffer(i, b, bin, baseDir)
		if err != nil {
			return nil, fmt.Errorf("buffer %d: %w", i, err)
		}
		if len(buf) < b.ByteLength {
			return nil, fmt.Errorf("buffer %d holds %d of %d bytes: %w", i, len(buf), b.ByteLength, errOutOfBounds)
		}
		a.buffers[i] = buf
	}
	return a, nil
}

func splitGLB(data []byte) (js, bin []byte, err error) {
	le := binary.LittleEndian
	if len(data) < 12 || le.Uint32(data) != glbMagic {
		return nil, nil, errGLBMagic
	}
	if le.Uint32(data[4:]) != glbVersion {
		return nil, nil, errGLBVersion
	}

	rest := data[12:]
	for len(rest) >= 8 {
		n, typ := le.Uint32(rest), le.Uint32(rest[4:])
		rest = rest[8:]
		if uint64(n) > uint64(len(rest)) {
			return nil, nil, fmt.Errorf("chunk of %d bytes with %d left: %w", n, len(rest), errOutOfBounds)
		}
		switch {
		case typ == chunkJSON && js == nil:
			js = rest[:n]
		case typ == chunkBIN && bin == nil:
			bin = rest[:n]
		}
		rest = rest[n:]
	}
	if js == nil {
		return nil, nil, errNoJSON
	}
	return js, bin, nil
}

func loadBuffer(index int, b gltfBuffer, bin []byte, baseDir string) ([]byte, error) {
	switch {
	case b.URI == "":
		if index != 0 || bin == nil {
			return nil, errors.New("no uri and no GLB binary chunk")
		}
		return bin, nil
	case strings.HasPrefix(b.URI, "data:"):
		header, payload, ok := strings.Cut(b.URI[len("data:"):], ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return nil, fmt.Errorf("data uri %.32q is not base64", b.URI)
		}
		return base64.StdEncoding.DecodeString(payload)
	case baseDir == "":
		return nil, fmt.Errorf("external buffer %q cannot be resolved from a stream", b.URI)
	}

	rel, err := url.PathUnescape(b.URI)
	if err != nil {
		rel = b.URI
	}
	return os.ReadFile(filepath.Join(baseDir, filepath.FromSlash(rel)))
}

// packed returns the elements of accessor i tightly packed, undoing any view stride.
func (a *gltfAsset) packed(i int) (*gltfAccessor, []byte, error) {
	if i < 0 || i >= len(a.doc.Accessors) {
		return nil, nil, fmt.Errorf("accessor %d out of range", i)
	}
	acc := &a.doc.Accessors[i]
	switch {
	case len(acc.Sparse) > 0:
		return nil, nil, fmt.Errorf("accessor %d is sparse", i)
	case acc.BufferView == nil:
		return nil, nil, fmt.Errorf("accessor %d has no bufferView", i)
	case *acc.BufferView < 0 || *acc.BufferView >= len(a.doc.BufferViews):
		return nil, nil, fmt.Errorf("accessor %d: bufferView %d out of range", i, *acc.BufferView)
	case acc.Count < 0:
		return nil, nil, fmt.Errorf("accessor %d: negative count", i)
	}
	view := a.doc.BufferViews[*acc.BufferView]
	if view.Buffer < 0 || view.Buffer >= len(a.buffers) {
		return nil, nil, fmt.Errorf("accessor %d: buffer %d out of range", i, view.Buffer)
	}

	width := elementWidth[acc.Type] * componentSize[acc.ComponentType]
	if width == 0 {
		return nil, nil, fmt.Errorf("accessor %d: unsupported %s of component type %d", i, acc.Type, acc.ComponentType)
	}
	stride := width
	if view.ByteStride > 0 {
		stride = view.ByteStride
	}

	if stride < width {
		return nil, nil, fmt.Errorf("accessor %d: byteStride %d is shorter than its %d-byte element", i, stride, width)
	}

	buf := a.buffers[view.Buffer]
	limit := len(buf)
	if view.ByteLength > 0 && view.ByteOffset >= 0 && view.ByteOffset+view.ByteLength < limit {
		limit = view.ByteOffset + view.ByteLength
	}
	start := view.ByteOffset + acc.ByteOffset
	if view.ByteOffset < 0 || acc.ByteOffset < 0 || start > limit {
		return nil, nil, fmt.Errorf("accessor %d starts at %d of %d bytes: %w", i, start, limit, errOutOfBounds)
	}
	// Divide rather than multiply so a huge count cannot overflow.
	if acc.Count > 0 {
		room := limit - start
		if width > room || acc.Count-1 > (room-width)/stride {
			return nil, nil, fmt.Errorf("accessor %d: %d elements of stride %d from byte %d exceed %d bytes: %w", i, acc.Count, stride, start, limit, errOutOfBounds)
		}
	}

	out := make([]byte, acc.Count*width)
	for k := range acc.Count {
		copy(out[k*width:(k+1)*width], buf[start+k*stride:])
	}
	return acc, out, nil
}

// floats decodes accessor i into float32 components. Unsigned byte and short components are read
// as normalized, which is the only integer form COLOR_0 allows.
func (a *gltfAsset) floats(i int) (*gltfAccessor, []float32, error) {
	acc, raw, err := a.packed(i)
	if err != nil {
		return nil, nil, err
	}
	le := binary.LittleEndian
	size := componentSize[acc.ComponentType]
	out := make([]float32, len(raw)/size)
	for k := range out {
		b := raw[k*size:]
		switch acc.ComponentType {
		case componentFloat:
			out[k] = math.Float32frombits(le.Uint32(b))
		case componentUnsignedByte:
			out[k] = float32(b[0]) / math.MaxUint8
		case componentUnsignedShort:
			out[k] = float32(le.Uint16(b)) / math.MaxUint16
		default:
			return nil, nil, fmt.Errorf("accessor %d: component type %d is neither float nor unsigned normalized", i, acc.ComponentType)
		}
	}
	return acc, out, nil
}

// gltfBackend decodes .gltf and .glb files.
type gltfBackend struct{}

var _ loaderBackend = gltfBackend{}

func (gltfBackend) Load(path string) ([]geometry.Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	isGLB := strings.EqualFold(filepath.Ext(path), ".glb") ||
		(len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic)
	a, err := parseGLTF(data, isGLB, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	return a.meshes()
}

func (gltfBackend) LoadReader(r io.Reader, isGLB bool) ([]geometry.Mesh, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	a, err := parseGLTF(data, isGLB, "")
	if err != nil {
		return nil, err
	}
	return a.meshes()
}
