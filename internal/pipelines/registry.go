package pipelines

import (
	"sort"
	"sync"

	"golang.org/x/xerrors"
)

// Registry holds named entries of one kind.
type Registry[T any] struct {
	mu      sync.RWMutex
	kind    string
	entries map[string]T
}

// NewRegistry creates a new empty registry. kind names the entries in
// error messages.
func NewRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:    kind,
		entries: make(map[string]T),
	}
}

// Register adds an entry under name.
func (r *Registry[T]) Register(name string, v T) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return xerrors.Errorf("%s name is required", r.kind)
	}
	if _, exists := r.entries[name]; exists {
		return xerrors.Errorf("%s %q already registered", r.kind, name)
	}
	r.entries[name] = v
	return nil
}

// Get returns an entry by name.
func (r *Registry[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.entries[name]
	return v, ok
}

// List returns the names of all entries, sorted.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has checks whether an entry is registered.
func (r *Registry[T]) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.entries[name]
	return ok
}
