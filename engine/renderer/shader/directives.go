package shader

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-particles/engine/camera"
)

// Shader sources may carry single-line directives the WGSL compiler never sees:
//
//	//@oxy:include <key>                              splice a registered source in, once
//	//@oxy:group <group> <binding> <space> <var> <key>  emit a @group/@binding declaration
//	//@oxy:provider <group> <binding> <provider> [role] tag the hand-written binding below
//
// where <space> is storage_uniform, storage_read or storage_read_write and <key> may be wrapped
// in array<>. Group and provider directives are kept so the owning component can find its
// bindings by what they hold rather than by variable name.
const directivePrefix = "@oxy:"

// Key names a registered WGSL source.
type Key string

const (
	KeyCamera           Key = "camera"
	KeySimplexNoise     Key = "simplex_noise"
	KeySimulationParams Key = "simulation_params"
	KeyParticlesParams  Key = "particles_params"
	KeyParticleInstance Key = "particle_instance"
)

// Provider names the component that owns a hand-written binding.
type Provider string

const (
	ProviderCamera     Provider = "camera"
	ProviderSimulation Provider = "simulation"
	ProviderParticles  Provider = "particles"
)

// Role says which resource a provider binding receives.
type Role string

const (
	RoleBaseState     Role = "base_state"     // rest positions, never written
	RolePreviousState Role = "previous_state" // read by an integration pass
	RoleNextState     Role = "next_state"     // written by an integration pass
	RoleLiveState     Role = "live_state"     // sampled by the particle renderer
)

// DirectiveKind distinguishes the three directive forms.
type DirectiveKind int

const (
	DirectiveInclude DirectiveKind = iota
	DirectiveGroup
	DirectiveProvider
)

// Directive is one parsed //@oxy: line. Group and Binding are -1 for includes.
type Directive struct {
	Kind DirectiveKind
	Line int

	Group, Binding int

	// Include and group directives.
	Key   Key
	Array bool

	// Group directives: the var<> qualifier and variable name.
	Space string
	Var   string

	// Provider directives. Role is empty when omitted.
	Provider Provider
	Role     Role
}

var addressSpaces = map[string]string{
	"storage_uniform":    "var<uniform>",
	"storage_read":       "var<storage, read>",
	"storage_read_write": "var<storage, read_write>",
}

var providers = map[Provider]bool{ProviderCamera: true, ProviderSimulation: true, ProviderParticles: true}

var roles = map[Role]bool{RoleBaseState: true, RolePreviousState: true, RoleNextState: true, RoleLiveState: true}

// SimplexNoiseSource is the WGSL 4D simplex noise library behind KeySimplexNoise.
//
//go:embed assets/simplex_noise.wgsl
var SimplexNoiseSource string

type registered struct {
	source   string
	typeName string // empty for function libraries
}

var (
	registryMu sync.RWMutex
	registry   = map[Key]registered{
		KeyCamera:       {camera.UniformSource, "CameraUniform"},
		KeySimplexNoise: {SimplexNoiseSource, ""},
	}
)

// Register makes source available to include directives and, when typeName is set, to group
// directives. Packages that own a GPU struct register it from init. A second call for the same key
// replaces the first.
func Register(k Key, source, typeName string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[k] = registered{source, typeName}
}

func lookup(k Key) (registered, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	r, ok := registry[k]
	return r, ok
}

// parseDirective returns nil for lines without the directive prefix.
func parseDirective(line string, lineNum int) (*Directive, error) {
	_, rest, ok := strings.Cut(strings.TrimSpace(line), directivePrefix)
	if !ok {
		return nil, nil
	}
	f := strings.Fields(rest)
	if len(f) == 0 {
		return nil, fmt.Errorf("line %d: empty directive", lineNum)
	}
	fail := func(format string, args ...any) (*Directive, error) {
		return nil, fmt.Errorf("line %d: %s: %s", lineNum, f[0], fmt.Sprintf(format, args...))
	}

	d := &Directive{Line: lineNum, Group: -1, Binding: -1}
	if f[0] == "group" || f[0] == "provider" {
		if len(f) < 4 {
			return fail("want group, binding and at least one more argument")
		}
		var err error
		if d.Group, err = strconv.Atoi(f[1]); err != nil {
			return fail("group %q: %v", f[1], err)
		}
		if d.Binding, err = strconv.Atoi(f[2]); err != nil {
			return fail("binding %q: %v", f[2], err)
		}
	}

	switch f[0] {
	case "include":
		if len(f) != 2 {
			return fail("want exactly one key")
		}
		d.Kind, d.Key = DirectiveInclude, Key(f[1])
		if _, ok := lookup(d.Key); !ok {
			return fail("unknown key %q", f[1])
		}
	case "group":
		if len(f) != 6 {
			return fail("want group, binding, address space, name and key")
		}
		d.Kind, d.Var = DirectiveGroup, f[4]
		if d.Space, ok = addressSpaces[f[3]]; !ok {
			return fail("unknown address space %q", f[3])
		}
		key, isArray := strings.CutPrefix(f[5], "array<")
		if isArray {
			key = strings.TrimSuffix(key, ">")
		}
		d.Key, d.Array = Key(key), isArray
		if r, ok := lookup(d.Key); !ok {
			return fail("unknown key %q", key)
		} else if r.typeName == "" {
			return fail("%q declares no struct and cannot be bound", key)
		}
	case "provider":
		if len(f) > 5 {
			return fail("want group, binding, provider and an optional role")
		}
		d.Kind, d.Provider = DirectiveProvider, Provider(f[3])
		if !providers[d.Provider] {
			return fail("unknown provider %q", f[3])
		}
		if len(f) == 5 {
			if d.Role = Role(f[4]); !roles[d.Role] {
				return fail("unknown role %q", f[4])
			}
		}
	default:
		return nil, fmt.Errorf("line %d: unknown directive %q", lineNum, f[0])
	}
	return d, nil
}

// Preprocess expands the directives of source. Includes are spliced in at most once each; group
// directives become WGSL declarations. It returns the group and provider directives in source
// order.
func Preprocess(source string) (string, []Directive, error) {
	var (
		out      strings.Builder
		decls    []Directive
		included = make(map[Key]bool)
	)
	for i, line := range strings.Split(source, "\n") {
		d, err := parseDirective(line, i+1)
		if err != nil {
			return "", nil, err
		}
		if i > 0 {
			out.WriteByte('\n')
		}

		switch {
		case d == nil:
			out.WriteString(line)
		case d.Kind == DirectiveInclude:
			if !included[d.Key] {
				included[d.Key] = true
				r, _ := lookup(d.Key)
				out.WriteString(r.source)
			}
		case d.Kind == DirectiveGroup:
			r, _ := lookup(d.Key)
			typ := r.typeName
			if d.Array {
				typ = "array<" + typ + ">"
			}
			fmt.Fprintf(&out, "@group(%d) @binding(%d) %s %s: %s;", d.Group, d.Binding, d.Space, d.Var, typ)
			decls = append(decls, *d)
		default:
			decls = append(decls, *d)
		}
	}
	return out.String(), decls, nil
}

// BindingForType finds the group directive bound to key.
func BindingForType(decls []Directive, key Key) (group, binding int, ok bool) {
	for _, d := range decls {
		if d.Kind == DirectiveGroup && d.Key == key {
			return d.Group, d.Binding, true
		}
	}
	return -1, -1, false
}

// BindingForRole finds the provider directive tagged with p and role.
func BindingForRole(decls []Directive, p Provider, role Role) (group, binding int, ok bool) {
	for _, d := range decls {
		if d.Kind == DirectiveProvider && d.Provider == p && d.Role == role {
			return d.Group, d.Binding, true
		}
	}
	return -1, -1, false
}
