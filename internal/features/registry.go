// Package features maps feature names to extraction functions. The
// registry is populated once at startup with the built-in set and may
// be extended by callers registering custom features.
package features

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Extractor computes one numeric feature for a symbol at an as-of
// date. The scratch cache is scoped to a single extraction call so
// that features derived from the same raw series share one fetch.
type Extractor func(ctx context.Context, symbol string, asOf time.Time, scratch *Scratch) (float64, error)

// Registry is a name → extractor table. Safe for concurrent use.
// Registration is append-only; the last registration for a name wins.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[string]Extractor),
	}
}

// Register adds or replaces the extractor for a feature name.
func (r *Registry) Register(name string, fn Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extractors[name] = fn
}

// Has reports whether a feature name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.extractors[name]
	return ok
}

// Get returns the extractor for a feature name.
func (r *Registry) Get(name string) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.extractors[name]
	return fn, ok
}

// Names returns all registered feature names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.extractors))
	for name := range r.extractors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
