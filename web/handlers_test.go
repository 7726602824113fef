package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/formbase/formbase/core/registry"
	"github.com/formbase/formbase/core/runtime"
	"github.com/formbase/formbase/core/schema"
	"github.com/formbase/formbase/core/storage"
	"github.com/rs/zerolog"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	reg := registry.New()

	user := (&schema.Definition{Fields: []schema.Field{
		{Name: "name", Kind: schema.KindString, Required: true},
		{Name: "season", Kind: schema.KindString, Required: true},
		{Name: "age", Kind: schema.KindNumber, Required: true},
		{Name: "work", Kind: schema.KindEmbedded, Elem: &schema.Definition{Fields: []schema.Field{
			{Name: "title", Kind: schema.KindString, Required: true},
			{Name: "company", Kind: schema.KindString, Required: true},
		}}},
	}}).WithTimestamps()
	if err := reg.Register("user", user); err != nil {
		t.Fatalf("register user: %v", err)
	}

	product := &schema.Definition{Fields: []schema.Field{
		{Name: "name", Kind: schema.KindString, Required: true},
		{Name: "price", Kind: schema.KindNumber, Required: true},
		{Name: "description", Kind: schema.KindString},
	}}
	if err := reg.Register("product", product); err != nil {
		t.Fatalf("register product: %v", err)
	}

	rt := runtime.New(reg, storage.NewMemoryStore())
	return NewHandler(reg, rt, zerolog.Nop(), nil)
}

func doRequest(t *testing.T, h *Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeDoc(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var doc map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return doc
}

func TestListSchemas(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/schema", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var entries []SchemaEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 2 || entries[0].Name != "user" || entries[1].Name != "product" {
		t.Errorf("entries = %v, want [user product] in registration order", entries)
	}
}

func TestDescribeSchema(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/schema/user", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	desc := decodeDoc(t, rec)

	name, ok := desc["name"].(map[string]any)
	if !ok {
		t.Fatalf("name descriptor missing: %v", desc)
	}
	if name["instance"] != "String" {
		t.Errorf("name.instance = %v, want String", name["instance"])
	}
	opts, ok := name["options"].(map[string]any)
	if !ok {
		t.Fatalf("name.options missing: %v", name)
	}
	if opts["required"] != true {
		t.Errorf("name.options.required = %v, want true", opts["required"])
	}

	work, ok := desc["work"].(map[string]any)
	if !ok {
		t.Fatalf("work descriptor missing: %v", desc)
	}
	if work["instance"] != "Embedded" {
		t.Errorf("work.instance = %v, want Embedded", work["instance"])
	}
	if _, ok := work["schema"].(map[string]any); !ok {
		t.Errorf("work.schema missing: %v", work)
	}

	for _, reserved := range []string{"createdAt", "updatedAt", "__v"} {
		if _, ok := desc[reserved]; ok {
			t.Errorf("description should not expose %s", reserved)
		}
	}
}

func TestDescribeSchema_Unknown(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/schema/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body := decodeDoc(t, rec); body["error"] != "Schema not found" {
		t.Errorf("error = %v, want Schema not found", body["error"])
	}
}

func TestCreateDocument(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/product", map[string]any{
		"name":  "Widget",
		"price": 9.99,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	doc := decodeDoc(t, rec)
	if doc["id"] == nil || doc["id"] == "" {
		t.Error("response should carry the assigned id")
	}
	if doc["name"] != "Widget" || doc["price"] != 9.99 {
		t.Errorf("doc = %v, want submitted fields echoed", doc)
	}
}

func TestCreateDocument_MissingRequired(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/product", map[string]any{"name": "Widget"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	body := decodeDoc(t, rec)
	msg, _ := body["error"].(string)
	if msg == "" {
		t.Fatalf("error body missing: %v", body)
	}
}

func TestCreateDocument_UnknownSchema(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/ghost", map[string]any{"name": "x"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body := decodeDoc(t, rec); body["error"] != "Schema not found" {
		t.Errorf("error = %v, want Schema not found", body["error"])
	}
}

func TestCreateDocument_InvalidJSON(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/product", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListDocuments(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/product", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Errorf("empty collection body = %q, want []", body)
	}

	doRequest(t, h, http.MethodPost, "/product", map[string]any{"name": "A", "price": 1})
	doRequest(t, h, http.MethodPost, "/product", map[string]any{"name": "B", "price": 2})

	rec = doRequest(t, h, http.MethodGet, "/product", nil)
	var docs []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &docs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("listed %d docs, want 2", len(docs))
	}
}

func TestGetDocument(t *testing.T) {
	h := newTestHandler(t)

	created := decodeDoc(t, doRequest(t, h, http.MethodPost, "/product", map[string]any{
		"name":  "Widget",
		"price": 9.99,
	}))
	id := created["id"].(string)

	rec := doRequest(t, h, http.MethodGet, "/product/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if doc := decodeDoc(t, rec); doc["name"] != "Widget" {
		t.Errorf("doc = %v, want the created document", doc)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/product/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body := decodeDoc(t, rec); body["error"] != "Document not found" {
		t.Errorf("error = %v, want Document not found", body["error"])
	}
}

func TestUpdateDocument(t *testing.T) {
	h := newTestHandler(t)

	created := decodeDoc(t, doRequest(t, h, http.MethodPost, "/product", map[string]any{
		"name":  "Widget",
		"price": 9.99,
	}))
	id := created["id"].(string)

	rec := doRequest(t, h, http.MethodPut, "/product/"+id, map[string]any{"price": 12.5})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	doc := decodeDoc(t, rec)
	if doc["price"] != 12.5 {
		t.Errorf("price = %v, want 12.5", doc["price"])
	}
	if doc["name"] != "Widget" {
		t.Errorf("name = %v, want Widget preserved", doc["name"])
	}
}

func TestUpdateDocument_NotFound(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(t, h, http.MethodPut, "/product/missing", map[string]any{"price": 1})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if body := decodeDoc(t, rec); body["error"] != "Document not found" {
		t.Errorf("error = %v, want Document not found", body["error"])
	}
}

func TestDeleteDocument(t *testing.T) {
	h := newTestHandler(t)

	created := decodeDoc(t, doRequest(t, h, http.MethodPost, "/product", map[string]any{
		"name":  "Widget",
		"price": 9.99,
	}))
	id := created["id"].(string)

	rec := doRequest(t, h, http.MethodDelete, "/product/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if doc := decodeDoc(t, rec); doc["name"] != "Widget" {
		t.Errorf("delete should return the last state, got %v", doc)
	}

	rec = doRequest(t, h, http.MethodGet, "/product/"+id, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", rec.Code)
	}
}

func TestDeleteDocument_NotFound(t *testing.T) {
	h := newTestHandler(t)

	rec := doRequest(t, h, http.MethodDelete, "/product/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// Lifecycle walks a user document through create, fetch, partial update
// and delete, checking the version counter along the way.
func TestDocumentLifecycle(t *testing.T) {
	h := newTestHandler(t)

	created := decodeDoc(t, doRequest(t, h, http.MethodPost, "/user", map[string]any{
		"name":   "Ada",
		"season": "summer",
		"age":    36,
		"work":   map[string]any{"title": "Engineer", "company": "Acme"},
	}))
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("create response missing id: %v", created)
	}
	if created["__v"] != float64(0) {
		t.Errorf("__v = %v, want 0", created["__v"])
	}
	if created["createdAt"] == nil || created["updatedAt"] == nil {
		t.Errorf("timestamps missing: %v", created)
	}

	updated := decodeDoc(t, doRequest(t, h, http.MethodPut, fmt.Sprintf("/user/%s", id), map[string]any{
		"season": "winter",
	}))
	if updated["season"] != "winter" {
		t.Errorf("season = %v, want winter", updated["season"])
	}
	if updated["name"] != "Ada" {
		t.Errorf("name = %v, want Ada preserved", updated["name"])
	}
	if updated["__v"] != float64(1) {
		t.Errorf("__v after update = %v, want 1", updated["__v"])
	}

	work, _ := updated["work"].(map[string]any)
	if work == nil || work["title"] != "Engineer" {
		t.Errorf("embedded work = %v, want preserved", updated["work"])
	}

	deleted := decodeDoc(t, doRequest(t, h, http.MethodDelete, "/user/"+id, nil))
	if deleted["season"] != "winter" {
		t.Errorf("deleted state = %v, want post-update state", deleted)
	}
}
