// Package runtime binds registered schemas to the document store. It owns
// the per-schema handle cache and applies the schema's field rules
// (required, defaults, timestamps) to every write.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/formbase/formbase/core/registry"
	"github.com/formbase/formbase/core/schema"
	"github.com/formbase/formbase/core/storage"
	"github.com/google/uuid"
)

// FieldID is the store-assigned identifier field on every document.
const FieldID = "id"

// ErrSchemaNotFound is returned when a schema name has no registry entry.
var ErrSchemaNotFound = errors.New("schema not found")

// ValidationError reports required fields missing from a create payload.
type ValidationError struct {
	Schema string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema %s: missing required fields: %s", e.Schema, strings.Join(e.Fields, ", "))
}

// Runtime resolves schema names to document store handles. Handles are
// created lazily on first use and cached; the cache is the only mutable
// state shared between requests.
type Runtime struct {
	registry *registry.Registry
	store    storage.Store

	handles handleCache
}

// New creates a runtime over a registry and a document store.
func New(reg *registry.Registry, store storage.Store) *Runtime {
	return &Runtime{
		registry: reg,
		store:    store,
		handles:  handleCache{entries: make(map[string]*Handle)},
	}
}

// Registry returns the schema registry.
func (r *Runtime) Registry() *registry.Registry {
	return r.registry
}

// HandleFor returns the store handle for a schema name, creating and caching
// it on first use. Concurrent first access for the same name is safe: the
// losing goroutine reuses the binding the winner created. Unknown names fail
// with ErrSchemaNotFound.
func (r *Runtime) HandleFor(ctx context.Context, name string) (*Handle, error) {
	if h := r.handles.get(name); h != nil {
		return h, nil
	}

	def, ok := r.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, name)
	}

	// Collection creation is idempotent, so a racing duplicate here is
	// harmless; the cache keeps whichever handle landed first.
	if err := r.store.EnsureCollection(ctx, name); err != nil {
		return nil, fmt.Errorf("ensure collection %s: %w", name, err)
	}

	return r.handles.put(name, &Handle{
		name:  name,
		def:   def,
		store: r.store,
	}), nil
}

// handleCache is the lazily-populated name to handle map.
type handleCache struct {
	mu      sync.RWMutex
	entries map[string]*Handle
}

func (c *handleCache) get(name string) *Handle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries[name]
}

// put stores a handle unless one already exists, and returns the cached one.
func (c *handleCache) put(name string, h *Handle) *Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing := c.entries[name]; existing != nil {
		return existing
	}
	c.entries[name] = h
	return h
}

// Handle is a cached binding between a schema name and its collection in
// the document store. It holds no document state of its own.
type Handle struct {
	name  string
	def   *schema.Definition
	store storage.Store
}

// Name returns the schema name this handle is bound to.
func (h *Handle) Name() string {
	return h.name
}

// Create builds a document from the payload, honoring required and default
// field rules, persists it, and returns the materialized document including
// the assigned identifier. Fields not declared in the schema are dropped.
func (h *Handle) Create(ctx context.Context, payload map[string]any) (storage.Document, error) {
	doc := storage.Document{}
	var missing []string

	for _, f := range h.def.Fields {
		if f.Implicit {
			continue
		}

		val, ok := payload[f.Name]
		if !ok {
			if f.Default != nil {
				doc[f.Name] = f.Default
				continue
			}
			if f.Required {
				missing = append(missing, f.Name)
			}
			continue
		}
		doc[f.Name] = val
	}

	if len(missing) > 0 {
		return nil, &ValidationError{Schema: h.name, Fields: missing}
	}

	id := uuid.New().String()
	doc[FieldID] = id

	if h.def.Timestamps {
		now := time.Now().UTC().Format(time.RFC3339)
		doc[schema.FieldCreatedAt] = now
		doc[schema.FieldUpdatedAt] = now
		doc[schema.FieldVersion] = 0
	}

	if err := h.store.Insert(ctx, h.name, id, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// FindAll returns all documents for this schema. Order is store-defined.
func (h *Handle) FindAll(ctx context.Context) ([]storage.Document, error) {
	return h.store.List(ctx, h.name)
}

// FindByID returns the document with the given identifier.
func (h *Handle) FindByID(ctx context.Context, id string) (storage.Document, error) {
	return h.store.Get(ctx, h.name, id)
}

// UpdateByID shallow-merges the provided top-level fields into the existing
// document, persists, and returns the post-update state. Fields absent from
// the payload are unchanged; the identifier and creation timestamp are
// immutable. Embedded sub-documents are replaced whole, never deep-merged.
func (h *Handle) UpdateByID(ctx context.Context, id string, partial map[string]any) (storage.Document, error) {
	doc, err := h.store.Get(ctx, h.name, id)
	if err != nil {
		return nil, err
	}

	for name, val := range partial {
		if name == FieldID || schema.IsReserved(name) {
			continue
		}
		if !h.def.Has(name) {
			continue
		}
		doc[name] = val
	}

	if h.def.Timestamps {
		doc[schema.FieldUpdatedAt] = time.Now().UTC().Format(time.RFC3339)
		doc[schema.FieldVersion] = revision(doc[schema.FieldVersion]) + 1
	}

	if err := h.store.Replace(ctx, h.name, id, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// DeleteByID removes the document and returns its last state.
func (h *Handle) DeleteByID(ctx context.Context, id string) (storage.Document, error) {
	doc, err := h.store.Get(ctx, h.name, id)
	if err != nil {
		return nil, err
	}

	if err := h.store.Delete(ctx, h.name, id); err != nil {
		return nil, err
	}

	return doc, nil
}

// revision coerces a stored revision counter back to an int. JSON decoding
// hands numbers back as float64.
func revision(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
