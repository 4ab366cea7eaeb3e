package intent

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// ErrNoBundle is returned when the registry is read before a successful
// Load. Startup must load before serving; this error surfaces misuse rather
// than serving without artifacts.
var ErrNoBundle = errors.New("no artifact bundle loaded")

// Registry owns the current immutable artifact bundle and is the only
// mutable shared state in the engine.
//
// Reload constructs a complete new bundle in isolation and installs it with
// a single atomic pointer swap: a concurrent Current caller sees either the
// fully-old or the fully-new bundle, never a mix. Readers never wait on a
// reload in progress, and a failed reload is observably a no-op. Installs
// are serialized by an internal mutex that Current does not touch.
type Registry struct {
	current   atomic.Pointer[Bundle]
	installMu sync.Mutex
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Load performs the one-time startup load. Failure here is fatal to the
// serving process: it cannot answer chat requests without a bundle.
func (r *Registry) Load(src Source) (*Bundle, error) {
	return r.install(src)
}

// Reload builds a complete new bundle from the source and installs it
// atomically, bumping the version. On failure the previously installed
// bundle stays fully operative and the error is reported to the caller.
func (r *Registry) Reload(src Source) (*Bundle, error) {
	b, err := r.install(src)
	if err != nil {
		return nil, err
	}
	log.Printf("[Registry] installed bundle v%d (%d intents, %d features)",
		b.Version, len(b.Catalog.Intents()), b.Vectorizer.NumFeatures())
	return b, nil
}

func (r *Registry) install(src Source) (*Bundle, error) {
	r.installMu.Lock()
	defer r.installMu.Unlock()

	// Slow artifact I/O happens here, outside any path Current touches.
	arts, err := src.Load()
	if err != nil {
		return nil, fmt.Errorf("artifact load failed: %w", err)
	}
	if err := arts.Validate(); err != nil {
		return nil, err
	}

	version := int64(1)
	if prev := r.current.Load(); prev != nil {
		version = prev.Version + 1
	}

	bundle := &Bundle{
		Vectorizer: arts.Vectorizer,
		Classifier: arts.Classifier,
		Catalog:    arts.Catalog,
		Version:    version,
		LoadedAt:   time.Now(),
	}
	r.current.Store(bundle)
	return bundle, nil
}

// Current returns the installed bundle, or ErrNoBundle before the first
// successful Load. Safe to call concurrently with Reload at any time; the
// returned bundle is internally consistent and remains valid even if a
// newer bundle is installed while the caller still holds it.
func (r *Registry) Current() (*Bundle, error) {
	b := r.current.Load()
	if b == nil {
		return nil, ErrNoBundle
	}
	return b, nil
}

// Loaded reports whether a bundle is installed.
func (r *Registry) Loaded() bool {
	return r.current.Load() != nil
}
