package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Named is a schema definition together with its public name, as declared
// in a YAML file:
//
//	schema: user
//	timestamps: true
//	fields:
//	  name:   { kind: string, required: true }
//	  status: { kind: string, enum: [active, retired], default: active }
//	  work:
//	    fields:
//	      title: { kind: string, required: true }
//	  items:
//	    list: true
//	    fields:
//	      price: { kind: number, required: true }
//
// Field declaration order is preserved; it defines the order of the
// generated form description.
type Named struct {
	Name string
	Def  *Definition
}

// kindNames maps the YAML kind spelling to the internal kind tag.
var kindNames = map[string]Kind{
	"string":  KindString,
	"number":  KindNumber,
	"boolean": KindBoolean,
	"date":    KindDate,
	"ref":     KindRef,
}

// ParseFile parses a schema definition from a YAML file.
func ParseFile(path string) (Named, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Named{}, fmt.Errorf("read file %s: %w", path, err)
	}

	return Parse(data)
}

// ParseDir parses all schema definitions from a directory.
func ParseDir(dir string) ([]Named, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var schemas []Named
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}

		sch, err := ParseFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, sch)
	}

	return schemas, nil
}

// Parse parses a schema definition from YAML bytes.
func Parse(data []byte) (Named, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Named{}, fmt.Errorf("parse yaml: %w", err)
	}
	if len(doc.Content) == 0 {
		return Named{}, fmt.Errorf("parse yaml: empty document")
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return Named{}, fmt.Errorf("parse yaml: document must be a mapping")
	}

	var sch Named
	var timestamps bool

	for i := 0; i < len(root.Content)-1; i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "schema":
			sch.Name = val.Value
		case "timestamps":
			if err := val.Decode(&timestamps); err != nil {
				return Named{}, fmt.Errorf("parse timestamps: %w", err)
			}
		case "fields":
			def, err := parseDefinition(val)
			if err != nil {
				return Named{}, err
			}
			sch.Def = def
		default:
			return Named{}, fmt.Errorf("unknown top-level key %q", key.Value)
		}
	}

	if sch.Def == nil {
		sch.Def = &Definition{}
	}
	if timestamps {
		sch.Def.WithTimestamps()
	}

	if err := Validate(sch); err != nil {
		return Named{}, fmt.Errorf("validate schema %q: %w", sch.Name, err)
	}

	return sch, nil
}

// parseDefinition parses an ordered field mapping into a Definition.
func parseDefinition(n *yaml.Node) (*Definition, error) {
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("fields must be a mapping (line %d)", n.Line)
	}

	def := &Definition{}
	for i := 0; i < len(n.Content)-1; i += 2 {
		key, val := n.Content[i], n.Content[i+1]

		field, err := parseField(key.Value, val)
		if err != nil {
			return nil, err
		}
		def.Fields = append(def.Fields, field)
	}

	return def, nil
}

// parseField parses one field declaration. A declaration with a "fields" key
// is a nested definition; everything else is a leaf.
func parseField(name string, n *yaml.Node) (Field, error) {
	if n.Kind != yaml.MappingNode {
		return Field{}, fmt.Errorf("field %q: declaration must be a mapping (line %d)", name, n.Line)
	}

	field := Field{Name: name}
	var list bool
	var sawKind, sawFields bool

	for i := 0; i < len(n.Content)-1; i += 2 {
		key, val := n.Content[i], n.Content[i+1]

		switch key.Value {
		case "kind":
			sawKind = true
			kind, ok := kindNames[val.Value]
			if !ok {
				return Field{}, fmt.Errorf("field %q: unknown kind %q", name, val.Value)
			}
			field.Kind = kind
		case "required":
			if err := val.Decode(&field.Required); err != nil {
				return Field{}, fmt.Errorf("field %q: required: %w", name, err)
			}
		case "default":
			if err := val.Decode(&field.Default); err != nil {
				return Field{}, fmt.Errorf("field %q: default: %w", name, err)
			}
		case "enum":
			if err := val.Decode(&field.Enum); err != nil {
				return Field{}, fmt.Errorf("field %q: enum: %w", name, err)
			}
		case "to":
			field.Ref = val.Value
		case "list":
			if err := val.Decode(&list); err != nil {
				return Field{}, fmt.Errorf("field %q: list: %w", name, err)
			}
		case "fields":
			sawFields = true
			elem, err := parseDefinition(val)
			if err != nil {
				return Field{}, fmt.Errorf("field %q: %w", name, err)
			}
			field.Elem = elem
		default:
			// Unknown keys are passthrough metadata for the form description.
			var v any
			if err := val.Decode(&v); err != nil {
				return Field{}, fmt.Errorf("field %q: option %q: %w", name, key.Value, err)
			}
			if field.Options == nil {
				field.Options = make(map[string]any)
			}
			field.Options[key.Value] = v
		}
	}

	if sawFields {
		if sawKind {
			return Field{}, fmt.Errorf("field %q: cannot declare both kind and fields", name)
		}
		field.Kind = KindEmbedded
		if list {
			field.Kind = KindEmbeddedList
		}
	} else if list {
		return Field{}, fmt.Errorf("field %q: list requires fields", name)
	}

	return field, nil
}

// Validate validates a named schema definition. Malformed definitions are
// construction-time errors; once a schema validates, traversal never fails.
func Validate(sch Named) error {
	var errs []string

	if sch.Name == "" {
		errs = append(errs, "schema name is required")
	} else if !isValidIdentifier(sch.Name) {
		errs = append(errs, fmt.Sprintf("schema name %q is not a valid identifier", sch.Name))
	}

	errs = append(errs, validateDefinition(sch.Def, "")...)

	if len(errs) > 0 {
		return fmt.Errorf("validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

func validateDefinition(def *Definition, prefix string) []string {
	var errs []string

	if def == nil || len(def.Fields) == 0 {
		return append(errs, prefix+"schema must have at least one field")
	}

	seen := make(map[string]bool)
	for _, f := range def.Fields {
		path := prefix + f.Name

		if !isValidIdentifier(f.Name) && !IsReserved(f.Name) {
			errs = append(errs, fmt.Sprintf("field name %q is not a valid identifier", path))
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Sprintf("field %q declared twice", path))
		}
		seen[f.Name] = true

		errs = append(errs, validateField(path, f)...)
	}

	return errs
}

func validateField(path string, f Field) []string {
	var errs []string

	switch f.Kind {
	case KindString, KindNumber, KindBoolean, KindDate:
	case KindRef:
		if f.Ref == "" {
			errs = append(errs, fmt.Sprintf("field %q: ref kind requires 'to' target", path))
		}
	case KindEmbedded, KindEmbeddedList:
		if len(f.Enum) > 0 {
			errs = append(errs, fmt.Sprintf("field %q: enum is only valid on scalar kinds", path))
		}
		errs = append(errs, validateDefinition(f.Elem, path+".")...)
		return errs
	default:
		errs = append(errs, fmt.Sprintf("field %q: unknown kind %q", path, f.Kind))
	}

	if f.Default != nil {
		if err := validateDefault(path, f); err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

// validateDefault checks that a default value matches the field kind.
func validateDefault(path string, f Field) error {
	if len(f.Enum) > 0 {
		for _, v := range f.Enum {
			if f.Default == v {
				return nil
			}
		}
		return fmt.Errorf("field %q: default %v is not a valid enum value", path, f.Default)
	}

	switch f.Kind {
	case KindNumber:
		switch f.Default.(type) {
		case int, int64, float64:
			return nil
		}
		return fmt.Errorf("field %q: default must be a number", path)
	case KindBoolean:
		if _, ok := f.Default.(bool); !ok {
			return fmt.Errorf("field %q: default must be a boolean", path)
		}
	case KindString, KindRef:
		if _, ok := f.Default.(string); !ok {
			return fmt.Errorf("field %q: default must be a string", path)
		}
	}
	return nil
}

// isValidIdentifier checks if a string is a valid identifier.
func isValidIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i, c := range s {
		if i == 0 {
			if !isLetter(c) && c != '_' {
				return false
			}
		} else {
			if !isLetter(c) && !isDigit(c) && c != '_' {
				return false
			}
		}
	}

	return true
}

func isLetter(c rune) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c rune) bool {
	return c >= '0' && c <= '9'
}
