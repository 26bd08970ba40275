package schema

import (
	"fmt"
	"unicode/utf8"
)

// ViolationKind classifies why a single field failed validation.
type ViolationKind string

const (
	ViolationMissingRequired ViolationKind = "missing_required"
	ViolationTypeMismatch    ViolationKind = "type_mismatch"
	ViolationMinLength       ViolationKind = "min_length"
	ViolationMaxLength       ViolationKind = "max_length"
	ViolationPattern         ViolationKind = "pattern"
)

// Violation is one field-scoped reason a submission failed.
type Violation struct {
	Field      string        `json:"field"`
	Kind       ViolationKind `json:"kind"`
	Constraint interface{}   `json:"constraint,omitempty"` // the offending constraint value
	Message    string        `json:"message"`
}

// Validate applies the compiled schema to a submitted payload.
//
// On success it returns a normalized record containing exactly the schema's
// field names, each holding its coerced value or its resolved default when
// absent and optional. On failure it returns the violations in schema
// iteration order; a field yields at most one violation per call. Keys in the
// payload that the schema does not know are ignored. Validate never has side
// effects either way.
func Validate(s *Schema, payload map[string]interface{}) (map[string]interface{}, []Violation) {
	record := make(map[string]interface{}, s.Len())
	var violations []Violation

	for _, name := range s.Names() {
		f := s.Field(name)

		value, present := payload[name]
		if !present || value == nil {
			if f.Required {
				violations = append(violations, Violation{
					Field:   name,
					Kind:    ViolationMissingRequired,
					Message: fmt.Sprintf("field %q is required", name),
				})
				continue
			}
			record[name] = f.Default
			continue
		}

		switch f.Type {
		case TypeBool:
			b, ok := value.(bool)
			if !ok {
				violations = append(violations, typeMismatch(name, f))
				continue
			}
			record[name] = b

		default: // TypeString
			str, ok := value.(string)
			if !ok {
				violations = append(violations, typeMismatch(name, f))
				continue
			}
			if v, ok := checkString(f, str); !ok {
				violations = append(violations, v)
				continue
			}
			record[name] = str
		}
	}

	if len(violations) > 0 {
		return nil, violations
	}
	return record, nil
}

// checkString applies length bounds then pattern, stopping at the first
// failed constraint.
func checkString(f *Field, value string) (Violation, bool) {
	length := utf8.RuneCountInString(value)

	if f.MinLength != nil && length < *f.MinLength {
		return Violation{
			Field:      f.Name,
			Kind:       ViolationMinLength,
			Constraint: *f.MinLength,
			Message:    fmt.Sprintf("field %q must be at least %d characters", f.Name, *f.MinLength),
		}, false
	}
	if f.MaxLength != nil && length > *f.MaxLength {
		return Violation{
			Field:      f.Name,
			Kind:       ViolationMaxLength,
			Constraint: *f.MaxLength,
			Message:    fmt.Sprintf("field %q must be at most %d characters", f.Name, *f.MaxLength),
		}, false
	}
	if f.Pattern != nil && !f.Pattern.MatchString(value) {
		return Violation{
			Field:      f.Name,
			Kind:       ViolationPattern,
			Constraint: f.RawPattern,
			Message:    fmt.Sprintf("field %q must match pattern %q", f.Name, f.RawPattern),
		}, false
	}
	return Violation{}, true
}

func typeMismatch(name string, f *Field) Violation {
	return Violation{
		Field:      name,
		Kind:       ViolationTypeMismatch,
		Constraint: f.Type.String(),
		Message:    fmt.Sprintf("field %q must be a %s", name, f.Type),
	}
}
