// Package web provides the HTTP surface: generic CRUD endpoints dispatched
// by schema name, and schema introspection endpoints that serve generated
// form descriptions.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/formbase/formbase/adapters/metrics"
	"github.com/formbase/formbase/core/registry"
	"github.com/formbase/formbase/core/runtime"
	"github.com/formbase/formbase/core/schema"
	"github.com/formbase/formbase/core/storage"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Error messages surfaced to clients. Domain errors always map to these;
// internal details never leak into responses.
const (
	msgSchemaNotFound   = "Schema not found"
	msgDocumentNotFound = "Document not found"
	msgInternal         = "Internal server error"
)

// SchemaEntry is one element of the schema listing.
type SchemaEntry struct {
	Name string `json:"name"`
}

// Handler serves the schema and document endpoints. Handlers are stateless;
// all shared state lives in the registry (read-only) and the runtime's
// handle cache.
type Handler struct {
	registry *registry.Registry
	runtime  *runtime.Runtime
	logger   zerolog.Logger
	metrics  *metrics.Collector
}

// NewHandler creates a handler over a registry and runtime.
func NewHandler(reg *registry.Registry, rt *runtime.Runtime, logger zerolog.Logger, m *metrics.Collector) *Handler {
	return &Handler{
		registry: reg,
		runtime:  rt,
		logger:   logger,
		metrics:  m,
	}
}

// Routes returns the /api router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	// Introspection. The static "schema" segment wins over the
	// {schemaName} wildcard below, so "schema" is not usable as a name.
	r.Get("/schema", h.listSchemas)
	r.Get("/schema/{schemaName}", h.describeSchema)

	// Generic CRUD keyed by schema name.
	r.Post("/{schemaName}", h.createDocument)
	r.Get("/{schemaName}", h.listDocuments)
	r.Get("/{schemaName}/{id}", h.getDocument)
	r.Put("/{schemaName}/{id}", h.updateDocument)
	r.Delete("/{schemaName}/{id}", h.deleteDocument)

	return r
}

// listSchemas handles GET /api/schema.
func (h *Handler) listSchemas(w http.ResponseWriter, r *http.Request) {
	names := h.registry.Names()

	entries := make([]SchemaEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, SchemaEntry{Name: name})
	}

	h.writeJSON(w, http.StatusOK, entries)
}

// describeSchema handles GET /api/schema/{schemaName}.
func (h *Handler) describeSchema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "schemaName")

	def, ok := h.registry.Get(name)
	if !ok {
		h.writeError(w, http.StatusNotFound, msgSchemaNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, schema.Describe(def))
}

// createDocument handles POST /api/{schemaName}.
func (h *Handler) createDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "schemaName")

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	handle, err := h.runtime.HandleFor(r.Context(), name)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	doc, err := handle.Create(r.Context(), payload)
	h.observe(name, "create", err)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, doc)
}

// listDocuments handles GET /api/{schemaName}.
func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "schemaName")

	handle, err := h.runtime.HandleFor(r.Context(), name)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	docs, err := handle.FindAll(r.Context())
	h.observe(name, "list", err)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if docs == nil {
		docs = []storage.Document{}
	}
	h.writeJSON(w, http.StatusOK, docs)
}

// getDocument handles GET /api/{schemaName}/{id}.
func (h *Handler) getDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "schemaName")
	id := chi.URLParam(r, "id")

	handle, err := h.runtime.HandleFor(r.Context(), name)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	doc, err := handle.FindByID(r.Context(), id)
	h.observe(name, "get", err)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, doc)
}

// updateDocument handles PUT /api/{schemaName}/{id}. The response reflects
// the document state after the partial merge.
func (h *Handler) updateDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "schemaName")
	id := chi.URLParam(r, "id")

	var partial map[string]any
	if err := json.NewDecoder(r.Body).Decode(&partial); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	handle, err := h.runtime.HandleFor(r.Context(), name)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	doc, err := handle.UpdateByID(r.Context(), id, partial)
	h.observe(name, "update", err)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, doc)
}

// deleteDocument handles DELETE /api/{schemaName}/{id} and returns the
// deleted document's last state.
func (h *Handler) deleteDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "schemaName")
	id := chi.URLParam(r, "id")

	handle, err := h.runtime.HandleFor(r.Context(), name)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	doc, err := handle.DeleteByID(r.Context(), id)
	h.observe(name, "delete", err)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, doc)
}

// writeDomainError is the single point translating domain errors to HTTP.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	var ve *runtime.ValidationError

	switch {
	case errors.Is(err, runtime.ErrSchemaNotFound):
		h.writeError(w, http.StatusNotFound, msgSchemaNotFound)
	case errors.Is(err, storage.ErrNotFound):
		h.writeError(w, http.StatusNotFound, msgDocumentNotFound)
	case errors.As(err, &ve):
		h.writeError(w, http.StatusBadRequest, ve.Error())
	default:
		h.logger.Error().Err(err).Msg("request failed")
		h.writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

// observe records a document operation outcome.
func (h *Handler) observe(schemaName, op string, err error) {
	if h.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	h.metrics.DocumentOps.WithLabelValues(schemaName, op, outcome).Inc()
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error().Err(err).Msg("write response")
	}
}

// writeError writes a structured error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
