// Package schema defines the core types for declarative schema definitions.
// A schema describes the fields of one document collection, including nested
// sub-documents, and drives both storage and client-side form generation.
package schema

// Kind identifies the type of a field. It is a closed set; nested structure
// is expressed through KindEmbedded and KindEmbeddedList rather than by
// probing for a sub-schema at traversal time.
type Kind string

const (
	// Scalar kinds. The values double as the "instance" tags exposed in
	// the generated form description.
	KindString  Kind = "String"
	KindNumber  Kind = "Number"
	KindBoolean Kind = "Boolean"
	KindDate    Kind = "Date"

	// KindRef is a reference to a document of another schema.
	KindRef Kind = "ObjectID"

	// KindEmbedded is a single nested sub-document described by Field.Elem.
	KindEmbedded Kind = "Embedded"

	// KindEmbeddedList is a list of nested sub-documents, each described
	// by Field.Elem. Cardinality aside, it behaves like KindEmbedded.
	KindEmbeddedList Kind = "EmbeddedList"
)

// IsScalar reports whether the kind is a leaf value (including references).
func (k Kind) IsScalar() bool {
	return k != KindEmbedded && k != KindEmbeddedList
}

// Reserved field names that the service maintains itself when a schema opts
// into timestamps. They are persisted but never exposed in form descriptions.
const (
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
	FieldVersion   = "__v"
)

// IsReserved reports whether a field name is maintained internally.
func IsReserved(name string) bool {
	return name == FieldCreatedAt || name == FieldUpdatedAt || name == FieldVersion
}

// Field defines one field of a schema.
type Field struct {
	// Name of the field, unique within its definition.
	Name string

	// Kind is the field type.
	Kind Kind

	// Required indicates this field must be provided on create.
	Required bool

	// Default value used when the field is absent on create.
	Default any

	// Enum lists the allowed literal values. Only meaningful for scalar kinds.
	Enum []any

	// Ref is the target schema name for KindRef fields.
	Ref string

	// Options carries additional declared metadata (description text and the
	// like). It is passed through to the form description unchanged.
	Options map[string]any

	// Elem is the element definition for KindEmbedded and KindEmbeddedList.
	Elem *Definition

	// Implicit marks fields added by the service itself (timestamps, revision
	// counter) rather than declared by the schema author.
	Implicit bool
}

// Definition is an ordered set of fields describing one document shape.
// Definitions nest to arbitrary depth through embedded fields. A definition
// must not reference itself directly or indirectly; that is the author's
// responsibility and is not checked here.
type Definition struct {
	// Fields in declaration order.
	Fields []Field

	// Timestamps opts the schema into automatic createdAt/updatedAt stamping
	// and the __v revision counter.
	Timestamps bool
}

// Field returns the field with the given name.
func (d *Definition) Field(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Has reports whether a field with the given name is declared.
func (d *Definition) Has(name string) bool {
	_, ok := d.Field(name)
	return ok
}

// FieldNames returns all field names in declaration order.
func (d *Definition) FieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		names = append(names, f.Name)
	}
	return names
}

// WithTimestamps appends the implicit timestamp and revision fields and
// returns the definition. Parse applies this when a schema declares
// "timestamps: true"; programmatic callers can use it directly.
func (d *Definition) WithTimestamps() *Definition {
	if d.Timestamps {
		return d
	}
	d.Timestamps = true
	d.Fields = append(d.Fields,
		Field{Name: FieldCreatedAt, Kind: KindDate, Implicit: true},
		Field{Name: FieldUpdatedAt, Kind: KindDate, Implicit: true},
		Field{Name: FieldVersion, Kind: KindNumber, Implicit: true},
	)
	return d
}
