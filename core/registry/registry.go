// Package registry manages the mapping from public schema names to their
// definitions. It is populated once at startup, before the HTTP listener
// accepts connections, and is read-only during request processing.
package registry

import (
	"fmt"
	"sync"

	"github.com/formbase/formbase/core/schema"
)

// Registry maps schema names to definitions. Names are case-sensitive and
// unique; enumeration order is registration order.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*schema.Definition
	names   []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		schemas: make(map[string]*schema.Definition),
	}
}

// Register stores a name to definition binding.
// Returns an error if the name is already taken.
func (r *Registry) Register(name string, def *schema.Definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.schemas[name]; exists {
		return fmt.Errorf("schema %q already registered", name)
	}

	r.schemas[name] = def
	r.names = append(r.names, name)
	return nil
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (*schema.Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.schemas[name]
	return def, ok
}

// Has reports whether a schema is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.schemas[name]
	return ok
}

// Names returns all registered schema names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]string(nil), r.names...)
}

// Len returns the number of registered schemas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.names)
}
