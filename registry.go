package apicore

import (
	"fmt"
	"sort"
	"sync"
)

// Registry maps names to values of one kind. It is filled at startup and
// read during route resolution.
type Registry[T any] struct {
	kind    string
	mu      sync.RWMutex
	entries map[string]T
}

// ActionRegistry resolves the action names used in the routes file.
type ActionRegistry = Registry[Action]

// MiddlewareRegistry resolves the middleware names used in the routes file.
type MiddlewareRegistry = Registry[Middleware]

func NewActionRegistry() *ActionRegistry {
	return newRegistry[Action]("action")
}

func NewMiddlewareRegistry() *MiddlewareRegistry {
	return newRegistry[Middleware]("middleware")
}

func newRegistry[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, entries: make(map[string]T)}
}

// Kind returns the registry's entry kind ("action" or "middleware").
func (r *Registry[T]) Kind() string {
	return r.kind
}

// Register adds name. Registering the same name twice is an error.
func (r *Registry[T]) Register(name string, v T) error {
	if name == "" {
		return fmt.Errorf("register %s: empty name", r.kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[name]; exists {
		return fmt.Errorf("register %s %q: already registered", r.kind, name)
	}
	r.entries[name] = v
	return nil
}

// MustRegister is Register that panics on error, for static wiring.
func (r *Registry[T]) MustRegister(name string, v T) {
	if err := r.Register(name, v); err != nil {
		panic(err)
	}
}

// Lookup returns the value registered under name.
func (r *Registry[T]) Lookup(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.entries[name]
	return v, ok
}

// Names returns the registered names, sorted.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
