package bootstrap

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/formbase/formbase/config"
	"github.com/formbase/formbase/core/schema"
)

func TestBuiltinSchemas(t *testing.T) {
	schemas, err := BuiltinSchemas()
	if err != nil {
		t.Fatalf("BuiltinSchemas failed: %v", err)
	}

	names := make([]string, 0, len(schemas))
	for _, s := range schemas {
		names = append(names, s.Name)
	}
	want := []string{"user", "product", "inventory"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}

	byName := make(map[string]*schema.Definition, len(schemas))
	for _, s := range schemas {
		byName[s.Name] = s.Def
	}

	user := byName["user"]
	if !user.Timestamps {
		t.Error("user schema should carry timestamps")
	}
	work, ok := user.Field("work")
	if !ok || work.Kind != schema.KindEmbedded || work.Elem == nil {
		t.Errorf("user.work = %+v, want embedded sub-schema", work)
	}
	items, ok := user.Field("items")
	if !ok || items.Kind != schema.KindEmbeddedList {
		t.Errorf("user.items = %+v, want embedded list", items)
	}

	product := byName["product"]
	if product.Timestamps {
		t.Error("product schema should not carry timestamps")
	}

	inventory := byName["inventory"]
	status, ok := inventory.Field("status")
	if !ok || len(status.Enum) != 3 || status.Default != "in_stock" {
		t.Errorf("inventory.status = %+v, want enum with in_stock default", status)
	}
}

func TestBuildRegistry(t *testing.T) {
	reg, err := BuildRegistry("")
	if err != nil {
		t.Fatalf("BuildRegistry failed: %v", err)
	}

	want := []string{"user", "product", "inventory"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestBuildRegistry_ExtraDir(t *testing.T) {
	dir := t.TempDir()
	extra := `
schema: warehouse
fields:
  city:
    kind: string
    required: true
`
	if err := os.WriteFile(filepath.Join(dir, "warehouse.yaml"), []byte(extra), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}

	reg, err := BuildRegistry(dir)
	if err != nil {
		t.Fatalf("BuildRegistry failed: %v", err)
	}

	if !reg.Has("warehouse") {
		t.Error("extra schema should be registered")
	}
	if got := reg.Len(); got != 4 {
		t.Errorf("Len() = %d, want 4", got)
	}
}

func TestBuildRegistry_DuplicateExtra(t *testing.T) {
	dir := t.TempDir()
	dup := `
schema: user
fields:
  name:
    kind: string
`
	if err := os.WriteFile(filepath.Join(dir, "user.yaml"), []byte(dup), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}

	if _, err := BuildRegistry(dir); err == nil {
		t.Error("BuildRegistry should reject a duplicate of a built-in schema")
	}
}

func TestNew_MemoryDriver(t *testing.T) {
	cfg := &config.Config{}
	cfg.Database.Driver = "memory"
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0
	cfg.Logging.Level = "error"
	cfg.Logging.Format = "json"

	app, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer app.Close()

	if app.Registry.Len() != 3 {
		t.Errorf("registry has %d schemas, want 3 built-ins", app.Registry.Len())
	}
	if app.HTTPServer == nil || app.HTTPServer.Handler == nil {
		t.Error("HTTP server should be wired")
	}
	if app.Metrics != nil {
		t.Error("metrics collector should be nil when disabled")
	}
}
