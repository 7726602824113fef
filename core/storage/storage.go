// Package storage provides a collection-oriented document store. Documents
// are schemaless JSON objects keyed by a store-assigned identifier; one
// logical collection exists per registered schema name.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no document with the requested identifier
// exists in the collection.
var ErrNotFound = errors.New("storage: document not found")

// Document is one persisted record as a field to value mapping.
type Document map[string]any

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Store is a generic document store. All operations address a single
// collection by name; none are transactional across documents.
type Store interface {
	// EnsureCollection creates the collection if it does not exist.
	// It is idempotent.
	EnsureCollection(ctx context.Context, name string) error

	// Insert persists a new document under id.
	Insert(ctx context.Context, collection, id string, doc Document) error

	// Get returns the document with the given id, or ErrNotFound.
	Get(ctx context.Context, collection, id string) (Document, error)

	// List returns all documents in the collection. Order is store-defined.
	List(ctx context.Context, collection string) ([]Document, error)

	// Replace overwrites the document with the given id, or returns
	// ErrNotFound if it does not exist.
	Replace(ctx context.Context, collection, id string, doc Document) error

	// Delete removes the document with the given id, or returns ErrNotFound.
	Delete(ctx context.Context, collection, id string) error

	// Close releases the underlying connection.
	Close() error
}
