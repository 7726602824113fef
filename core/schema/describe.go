package schema

import (
	"bytes"
	"encoding/json"
)

// Cardinality tags on embedded descriptors.
const (
	CardinalityOne  = "one"
	CardinalityMany = "many"
)

// Descriptor describes one field in a form description. Exactly one of
// Options (leaf) and Schema (embedded) is set.
type Descriptor struct {
	// Instance is the field type tag ("String", "Number", ..., "Embedded").
	Instance string

	// Cardinality distinguishes a single embedded sub-document ("one") from
	// a repeatable list ("many"). Empty for leaves.
	Cardinality string

	// Options carries the declared field metadata for leaves, including the
	// enum values when present.
	Options map[string]any

	// Schema is the recursively generated description of an embedded
	// definition.
	Schema *Description
}

// MarshalJSON writes an embedded descriptor as {instance, cardinality,
// schema} and a leaf as {instance, options}. Leaves always carry an options
// object, even an empty one.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	if d.Schema != nil {
		return json.Marshal(struct {
			Instance    string       `json:"instance"`
			Cardinality string       `json:"cardinality"`
			Schema      *Description `json:"schema"`
		}{d.Instance, d.Cardinality, d.Schema})
	}

	opts := d.Options
	if opts == nil {
		opts = map[string]any{}
	}
	return json.Marshal(struct {
		Instance string         `json:"instance"`
		Options  map[string]any `json:"options"`
	}{d.Instance, opts})
}

// Description is the form description of one definition: an ordered mapping
// of field name to Descriptor. It serializes as a JSON object whose keys
// appear in schema declaration order.
type Description struct {
	names  []string
	fields map[string]Descriptor
}

// Get returns the descriptor for a field name.
func (d *Description) Get(name string) (Descriptor, bool) {
	desc, ok := d.fields[name]
	return desc, ok
}

// Names returns the described field names in declaration order.
func (d *Description) Names() []string {
	return append([]string(nil), d.names...)
}

// Len returns the number of described fields.
func (d *Description) Len() int {
	return len(d.names)
}

func (d *Description) add(name string, desc Descriptor) {
	if d.fields == nil {
		d.fields = make(map[string]Descriptor)
	}
	d.names = append(d.names, name)
	d.fields[name] = desc
}

// MarshalJSON writes the description as an object in declaration order.
func (d *Description) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range d.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(d.fields[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Describe generates the form description for a definition. It is pure and
// deterministic: the input is never mutated, the output mirrors the
// definition's shape in declaration order, and reserved fields are omitted
// at each traversal level. Embedded fields are always recursed into, even
// when their name collides with a reserved one.
func Describe(def *Definition) *Description {
	out := &Description{}

	for _, f := range def.Fields {
		switch f.Kind {
		case KindEmbedded:
			out.add(f.Name, Descriptor{
				Instance:    string(KindEmbedded),
				Cardinality: CardinalityOne,
				Schema:      Describe(f.Elem),
			})

		case KindEmbeddedList:
			out.add(f.Name, Descriptor{
				Instance:    string(KindEmbedded),
				Cardinality: CardinalityMany,
				Schema:      Describe(f.Elem),
			})

		default:
			if IsReserved(f.Name) {
				continue
			}
			out.add(f.Name, Descriptor{
				Instance: string(f.Kind),
				Options:  leafOptions(f),
			})
		}
	}

	return out
}

// leafOptions merges the declared options with the descriptor-relevant
// field attributes. The field's own maps are copied, never aliased.
func leafOptions(f Field) map[string]any {
	opts := make(map[string]any, len(f.Options)+4)
	for k, v := range f.Options {
		opts[k] = v
	}
	if f.Required {
		opts["required"] = true
	}
	if f.Default != nil {
		opts["default"] = f.Default
	}
	if f.Ref != "" {
		opts["ref"] = f.Ref
	}
	if len(f.Enum) > 0 {
		opts["enum"] = append([]any(nil), f.Enum...)
	}
	return opts
}
