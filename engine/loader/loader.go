package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-particles/engine/geometry"
	"golang.org/x/sync/singleflight"
)

// LoaderBackendType selects the model format.
type LoaderBackendType int

const (
	BackendTypeGLTF LoaderBackendType = iota
)

var errNoBackend = errors.New("loader: no backend configured")

// Result is delivered once by LoadAsync.
type Result struct {
	Path   string
	Meshes []geometry.Mesh
	Err    error
}

// Loader decodes model files into sub-meshes and caches them by path or stream name.
// It is safe for concurrent use; concurrent loads of one path decode it once.
type Loader interface {
	// LoadMeshes returns the sub-meshes of the file at path in document order. The extension
	// (.gltf or .glb) picks the container.
	LoadMeshes(path string) ([]geometry.Mesh, error)

	// LoadReader decodes a self-contained stream and caches it under name. ext is ".gltf" or
	// ".glb". External buffer files cannot be resolved from a stream.
	LoadReader(name string, r io.Reader, ext string) ([]geometry.Mesh, error)

	// LoadAsync runs LoadMeshes on a goroutine. The channel receives exactly one Result and is
	// then closed; cancelling ctx delivers ctx.Err() without waiting for the decode. A decode that
	// panics is delivered as an error.
	LoadAsync(ctx context.Context, path string) <-chan Result

	// Get returns cached meshes, or nil.
	Get(name string) []geometry.Mesh
}

type loader struct {
	backend loaderBackend

	mu     sync.RWMutex
	cache  map[string][]geometry.Mesh
	flight singleflight.Group
}

var _ Loader = &loader{}

// Option configures NewLoader.
type Option func(*loader)

// WithMeshes seeds the cache, for geometry built in code rather than read from a file.
func WithMeshes(name string, meshes []geometry.Mesh) Option {
	return func(l *loader) {
		l.cache[name] = meshes
	}
}

func NewLoader(backendType LoaderBackendType, options ...Option) Loader {
	l := &loader{cache: make(map[string][]geometry.Mesh)}
	if backendType == BackendTypeGLTF {
		l.backend = gltfBackend{}
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

func (l *loader) LoadMeshes(path string) ([]geometry.Mesh, error) {
	return l.load(path, filepath.Ext(path), func(b loaderBackend, _ bool) ([]geometry.Mesh, error) {
		return b.Load(path)
	})
}

func (l *loader) LoadReader(name string, r io.Reader, ext string) ([]geometry.Mesh, error) {
	return l.load(name, ext, func(b loaderBackend, isGLB bool) ([]geometry.Mesh, error) {
		return b.LoadReader(r, isGLB)
	})
}

// load serves name from the cache or decodes it once, however many callers ask concurrently.
func (l *loader) load(name, ext string, decode func(loaderBackend, bool) ([]geometry.Mesh, error)) ([]geometry.Mesh, error) {
	if cached := l.Get(name); cached != nil {
		return cached, nil
	}
	if l.backend == nil {
		return nil, errNoBackend
	}
	isGLB, err := containerFor(ext)
	if err != nil {
		return nil, err
	}

	v, err, _ := l.flight.Do(name, func() (any, error) {
		// A flight that finished between the miss above and Do has already filled the cache.
		if cached := l.Get(name); cached != nil {
			return cached, nil
		}
		meshes, err := decode(l.backend, isGLB)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		l.mu.Lock()
		l.cache[name] = meshes
		l.mu.Unlock()
		return meshes, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]geometry.Mesh), nil
}

func (l *loader) LoadAsync(ctx context.Context, path string) <-chan Result {
	out := make(chan Result, 1)
	done := make(chan Result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Result{Path: path, Err: fmt.Errorf("load %s: %v", path, r)}
			}
		}()
		meshes, err := l.LoadMeshes(path)
		done <- Result{Path: path, Meshes: meshes, Err: err}
	}()
	go func() {
		defer close(out)
		select {
		case res := <-done:
			out <- res
		case <-ctx.Done():
			out <- Result{Path: path, Err: ctx.Err()}
		}
	}()
	return out
}

func (l *loader) Get(name string) []geometry.Mesh {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.cache[name]
}

// containerFor reports whether ext names the binary GLB container.
func containerFor(ext string) (isGLB bool, err error) {
	switch strings.ToLower(ext) {
	case ".gltf":
		return false, nil
	case ".glb":
		return true, nil
	}
	return false, fmt.Errorf("unsupported model format: %q", ext)
}
