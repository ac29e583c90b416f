package shader

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// wgslType is the host-shareable layout of a WGSL scalar, vector or matrix type.
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
type wgslType struct {
	size, align uint64

	// vertex reports whether the type may be a vertex attribute, in which case format is its
	// vertex format.
	vertex bool
	format wgpu.VertexFormat
}

var wgslTypes = map[string]wgslType{
	"f32":         {4, 4, true, wgpu.VertexFormatFloat32},
	"i32":         {4, 4, true, wgpu.VertexFormatSint32},
	"u32":         {4, 4, true, wgpu.VertexFormatUint32},
	"vec2<f32>":   {8, 8, true, wgpu.VertexFormatFloat32x2},
	"vec3<f32>":   {12, 16, true, wgpu.VertexFormatFloat32x3},
	"vec4<f32>":   {16, 16, true, wgpu.VertexFormatFloat32x4},
	"vec2<i32>":   {8, 8, true, wgpu.VertexFormatSint32x2},
	"vec3<i32>":   {12, 16, true, wgpu.VertexFormatSint32x3},
	"vec4<i32>":   {16, 16, true, wgpu.VertexFormatSint32x4},
	"vec2<u32>":   {8, 8, true, wgpu.VertexFormatUint32x2},
	"vec3<u32>":   {12, 16, true, wgpu.VertexFormatUint32x3},
	"vec4<u32>":   {16, 16, true, wgpu.VertexFormatUint32x4},
	"mat3x3<f32>": {48, 16, false, 0},
	"mat4x4<f32>": {64, 16, false, 0},
}

// wgslShorthand expands the predeclared type aliases.
var wgslShorthand = strings.NewReplacer(
	"vec2f", "vec2<f32>", "vec3f", "vec3<f32>", "vec4f", "vec4<f32>",
	"vec2i", "vec2<i32>", "vec3i", "vec3<i32>", "vec4i", "vec4<i32>",
	"vec2u", "vec2<u32>", "vec3u", "vec3<u32>", "vec4u", "vec4<u32>",
	"mat3x3f", "mat3x3<f32>", "mat4x4f", "mat4x4<f32>",
)

var textureSampleTypes = map[string]wgpu.TextureSampleType{
	"f32": wgpu.TextureSampleTypeFloat,
	"i32": wgpu.TextureSampleTypeSint,
	"u32": wgpu.TextureSampleTypeUint,
}

// storageTexelFormats lists the storage texel formats the engine binds.
var storageTexelFormats = map[string]wgpu.TextureFormat{
	"rgba32float": wgpu.TextureFormatRGBA32Float,
	"rgba16float": wgpu.TextureFormatRGBA16Float,
	"rgba8unorm":  wgpu.TextureFormatRGBA8Unorm,
	"r32float":    wgpu.TextureFormatR32Float,
}

var storageAccess = map[string]wgpu.StorageTextureAccess{
	"write":      wgpu.StorageTextureAccessWriteOnly,
	"read":       wgpu.StorageTextureAccessReadOnly,
	"read_write": wgpu.StorageTextureAccessReadWrite,
}

var (
	structRe    = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	fieldRe     = regexp.MustCompile(`^((?:@\w+(?:\([^)]*\))?\s*)*)(\w+)\s*:\s*(.+)$`)
	locationRe  = regexp.MustCompile(`@location\((\d+)\)`)
	entryRe     = regexp.MustCompile(`@(vertex|fragment|compute)\b[^{;]*?\bfn\s+(\w+)`)
	workgroupRe = regexp.MustCompile(`@workgroup_size\(([^)]*)\)`)

	// bindingRe captures group, binding, address space, name and type of a resource, e.g.
	// "@group(0) @binding(1) var<uniform> params: Params;" or "@group(1) @binding(0) var t: texture_2d<f32>;"
	bindingRe = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

// structField is one member of a WGSL struct. location is -1 when the field has no @location.
type structField struct {
	name     string
	typeName string
	location int
	builtin  bool
}

type wgslStruct struct {
	name   string
	fields []structField
}

// reflection holds the layout metadata of one pre-processed WGSL module.
type reflection struct {
	source  string // comments stripped
	structs []wgslStruct
	byName  map[string]int
	layouts map[string]wgslType

	resolving map[string]bool
}

func newReflection(source string) *reflection {
	r := &reflection{
		source:    stripComments(source),
		byName:    make(map[string]int),
		layouts:   make(map[string]wgslType),
		resolving: make(map[string]bool),
	}
	for _, m := range structRe.FindAllStringSubmatch(r.source, -1) {
		r.byName[m[1]] = len(r.structs)
		r.structs = append(r.structs, wgslStruct{name: m[1], fields: parseFields(m[2])})
	}
	return r
}

func parseFields(body string) []structField {
	var fields []structField
	for _, part := range splitTopLevel(body) {
		m := fieldRe.FindStringSubmatch(strings.TrimSpace(part))
		if m == nil {
			continue
		}
		f := structField{name: m[2], typeName: wgslShorthand.Replace(strings.TrimSpace(m[3])), location: -1}
		f.builtin = strings.Contains(m[1], "@builtin")
		if loc := locationRe.FindStringSubmatch(m[1]); loc != nil {
			f.location, _ = strconv.Atoi(loc[1])
		}
		fields = append(fields, f)
	}
	return fields
}

// entryPoint returns the name of the first function carrying the stage attribute of shaderType.
func (r *reflection) entryPoint(shaderType ShaderType) string {
	stage := map[ShaderType]string{
		ShaderTypeVertex:   "vertex",
		ShaderTypeFragment: "fragment",
		ShaderTypeCompute:  "compute",
	}[shaderType]
	for _, m := range entryRe.FindAllStringSubmatch(r.source, -1) {
		if m[1] == stage {
			return m[2]
		}
	}
	return ""
}

// workgroupSize returns the @workgroup_size dimensions; omitted dimensions are 1.
func (r *reflection) workgroupSize() [3]uint32 {
	size := [3]uint32{1, 1, 1}
	m := workgroupRe.FindStringSubmatch(r.source)
	if m == nil {
		return size
	}
	for i, dim := range strings.SplitN(m[1], ",", 3) {
		if v, err := strconv.ParseUint(strings.TrimSpace(dim), 10, 32); err == nil {
			size[i] = uint32(v)
		}
	}
	return size
}

// vertexLayouts builds one tightly packed buffer layout per vertex input struct, that is a struct
// with @location fields and no @builtin field. Structs named *Instance step per instance.
// Structs with a member that is not a vertex format are skipped.
func (r *reflection) vertexLayouts() map[int][]wgpu.VertexBufferLayout {
	out := make(map[int][]wgpu.VertexBufferLayout)
	for _, st := range r.structs {
		layout, ok := vertexLayout(st)
		if ok {
			out[len(out)] = []wgpu.VertexBufferLayout{layout}
		}
	}
	return out
}

func vertexLayout(st wgslStruct) (wgpu.VertexBufferLayout, bool) {
	layout := wgpu.VertexBufferLayout{StepMode: wgpu.VertexStepModeVertex}
	if strings.HasSuffix(st.name, "Instance") {
		layout.StepMode = wgpu.VertexStepModeInstance
	}
	for _, f := range st.fields {
		t, ok := wgslTypes[f.typeName]
		if f.builtin || f.location < 0 || !ok || !t.vertex {
			return wgpu.VertexBufferLayout{}, false
		}
		layout.Attributes = append(layout.Attributes, wgpu.VertexAttribute{
			Format:         t.format,
			Offset:         layout.ArrayStride,
			ShaderLocation: uint32(f.location),
		})
		layout.ArrayStride += t.size
	}
	return layout, len(layout.Attributes) > 0
}

// bindGroupLayouts returns one layout descriptor per @group, entries sorted by binding, all with
// the given visibility. Buffer entries carry the minimum binding size of their type.
func (r *reflection) bindGroupLayouts(visibility wgpu.ShaderStage) map[int]wgpu.BindGroupLayoutDescriptor {
	entries := make(map[int][]wgpu.BindGroupLayoutEntry)

	for _, m := range bindingRe.FindAllStringSubmatch(r.source, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		typeName := wgslShorthand.Replace(strings.TrimSpace(m[5]))

		entry := wgpu.BindGroupLayoutEntry{Binding: uint32(binding), Visibility: visibility}
		if space := strings.TrimSpace(m[3]); space != "" {
			entry.Buffer.Type = bufferBindingType(space)
			if t, ok := r.layout(typeName); ok {
				entry.Buffer.MinBindingSize = t.size
			}
		} else {
			resourceEntry(typeName, &entry)
		}
		entries[group] = append(entries[group], entry)
	}

	out := make(map[int]wgpu.BindGroupLayoutDescriptor, len(entries))
	for group, es := range entries {
		unfilterable(es)
		sort.Slice(es, func(i, j int) bool { return es[i].Binding < es[j].Binding })
		out[group] = wgpu.BindGroupLayoutDescriptor{Entries: es}
	}
	return out
}

func bufferBindingType(space string) wgpu.BufferBindingType {
	switch {
	case space == "uniform":
		return wgpu.BufferBindingTypeUniform
	case strings.Contains(space, "read_write"):
		return wgpu.BufferBindingTypeStorage
	default:
		return wgpu.BufferBindingTypeReadOnlyStorage
	}
}

// resourceEntry fills the texture, storage texture or sampler part of entry from a handle type.
func resourceEntry(typeName string, entry *wgpu.BindGroupLayoutEntry) {
	base, params, _ := strings.Cut(strings.TrimSuffix(typeName, ">"), "<")
	switch base {
	case "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case "texture_2d":
		entry.Texture.ViewDimension = wgpu.TextureViewDimension2D
		entry.Texture.SampleType = textureSampleTypes[strings.TrimSpace(params)]
	case "texture_storage_2d":
		entry.StorageTexture.ViewDimension = wgpu.TextureViewDimension2D
		format, access, _ := strings.Cut(params, ",")
		entry.StorageTexture.Format = storageTexelFormats[strings.TrimSpace(format)]
		entry.StorageTexture.Access = storageAccess[strings.TrimSpace(access)]
	}
}

// unfilterable downgrades float textures to UnfilterableFloat in groups without a filtering
// sampler. 32-bit float formats are not filterable without an optional device feature.
func unfilterable(entries []wgpu.BindGroupLayoutEntry) {
	for _, e := range entries {
		if e.Sampler.Type == wgpu.SamplerBindingTypeFiltering {
			return
		}
	}
	for i := range entries {
		if entries[i].Texture.SampleType == wgpu.TextureSampleTypeFloat {
			entries[i].Texture.SampleType = wgpu.TextureSampleTypeUnfilterableFloat
		}
	}
}

// layout resolves the size and alignment of typeName. A runtime-sized array counts as one
// element, which is the minimum binding size of a buffer ending in one.
func (r *reflection) layout(typeName string) (wgslType, bool) {
	if t, ok := wgslTypes[typeName]; ok {
		return t, true
	}
	if t, ok := r.layouts[typeName]; ok {
		return t, true
	}

	if inner, ok := strings.CutPrefix(typeName, "array<"); ok {
		elem, count, fixed := strings.Cut(strings.TrimSuffix(inner, ">"), ",")
		et, ok := r.layout(strings.TrimSpace(elem))
		if !ok {
			return wgslType{}, false
		}
		stride := alignUp(et.size, et.align)
		n := uint64(1)
		if fixed {
			v, err := strconv.ParseUint(strings.TrimSpace(count), 10, 64)
			if err != nil {
				return wgslType{}, false
			}
			n = v
		}
		return wgslType{size: n * stride, align: et.align}, true
	}

	i, ok := r.byName[typeName]
	if !ok || r.resolving[typeName] {
		return wgslType{}, false
	}
	r.resolving[typeName] = true
	defer delete(r.resolving, typeName)

	var offset, align uint64 = 0, 1
	for _, f := range r.structs[i].fields {
		if f.builtin {
			continue
		}
		ft, ok := r.layout(f.typeName)
		if !ok {
			return wgslType{}, false
		}
		offset = alignUp(offset, ft.align) + ft.size
		align = max(align, ft.align)
	}
	t := wgslType{size: alignUp(offset, align), align: align}
	r.layouts[typeName] = t
	return t, true
}

func alignUp(v, align uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) / align * align
}

// splitTopLevel splits a struct body at commas outside angle brackets, so array<T, N> stays whole.
func splitTopLevel(body string) []string {
	var parts []string
	depth, start := 0, 0
	for i, c := range body {
		switch c {
		case '<':
			depth++
		case '>':
			depth = max(depth-1, 0)
		case ',':
			if depth == 0 {
				parts = append(parts, body[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, body[start:])
}

// stripComments removes line comments and (nested) block comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))
	depth := 0
	for i := 0; i < len(source); i++ {
		switch {
		case strings.HasPrefix(source[i:], "/*"):
			depth++
			i++
		case depth > 0 && strings.HasPrefix(source[i:], "*/"):
			depth--
			i++
		case depth > 0:
		case strings.HasPrefix(source[i:], "//"):
			end := strings.IndexByte(source[i:], '\n')
			if end < 0 {
				return sb.String()
			}
			i += end - 1
		default:
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
