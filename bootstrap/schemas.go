// Package bootstrap - schemas.go loads the schema definitions registered at
// startup: the embedded built-in set plus any configured schema directory.
package bootstrap

import (
	"embed"
	"fmt"

	"github.com/formbase/formbase/core/registry"
	"github.com/formbase/formbase/core/schema"
)

//go:embed schemas/*.yaml
var schemasFS embed.FS

// builtinOrder fixes the registration order of the embedded schemas; the
// schema listing endpoint enumerates in this order.
var builtinOrder = []string{
	"schemas/user.yaml",
	"schemas/product.yaml",
	"schemas/inventory.yaml",
}

// BuiltinSchemas parses the embedded schema definitions.
func BuiltinSchemas() ([]schema.Named, error) {
	schemas := make([]schema.Named, 0, len(builtinOrder))

	for _, path := range builtinOrder {
		data, err := schemasFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read embedded schema %s: %w", path, err)
		}

		sch, err := schema.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parse embedded schema %s: %w", path, err)
		}
		schemas = append(schemas, sch)
	}

	return schemas, nil
}

// BuildRegistry populates a registry with the built-in schemas and, when
// extraDir is set, the definitions found there. Called exactly once, before
// the HTTP listener starts.
func BuildRegistry(extraDir string) (*registry.Registry, error) {
	reg := registry.New()

	builtin, err := BuiltinSchemas()
	if err != nil {
		return nil, err
	}

	for _, sch := range builtin {
		if err := reg.Register(sch.Name, sch.Def); err != nil {
			return nil, err
		}
	}

	if extraDir != "" {
		extra, err := schema.ParseDir(extraDir)
		if err != nil {
			return nil, fmt.Errorf("load schemas from %s: %w", extraDir, err)
		}
		for _, sch := range extra {
			if err := reg.Register(sch.Name, sch.Def); err != nil {
				return nil, err
			}
		}
	}

	return reg, nil
}
