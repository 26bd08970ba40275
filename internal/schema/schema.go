// Package schema turns a config's ordered field list into an in-memory
// validation contract and applies it to submitted payloads. Compilation and
// validation are pure: no I/O, no shared state, rebuilt per request. The
// compiled schema is deliberately never cached — it is cheap to derive and
// caching it would create a second coherency problem alongside the config
// cache itself.
package schema

import "regexp"

// ValueType is the coerced primitive type a compiled field accepts.
type ValueType int

const (
	TypeString ValueType = iota
	TypeBool
)

func (t ValueType) String() string {
	if t == TypeBool {
		return "bool"
	}
	return "string"
}

// Field is the compiled validator for a single named form field.
type Field struct {
	Name     string
	Type     ValueType
	Required bool
	// Default is the value a normalized record receives when an optional
	// field is absent from the payload; nil when no literal default exists.
	Default interface{}

	// String constraints; nil/empty when not set. Only string-typed fields
	// carry them.
	MinLength  *int
	MaxLength  *int
	Pattern    *regexp.Regexp
	RawPattern string
}

// Schema is the immutable compiled contract: an ordered mapping from field
// name to its validator. Iteration order is the config's field order, which
// fixes the order of reported violations.
type Schema struct {
	names  []string
	fields map[string]*Field
}

// Names returns field names in schema iteration order.
func (s *Schema) Names() []string {
	return s.names
}

// Field returns the compiled validator for name, or nil.
func (s *Schema) Field(name string) *Field {
	return s.fields[name]
}

// Len returns the number of compiled fields.
func (s *Schema) Len() int {
	return len(s.names)
}
