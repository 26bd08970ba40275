package schema

import (
	"regexp"

	"github.com/stackmed/formconfig/backend/internal/models"
)

// Compile builds a validation contract from an ordered field list.
//
// Presentation fields (header, static) and input fields without a name are
// skipped. text and select map to string, checkbox to bool; an unrecognized
// field type falls back to string so that configs written for a newer server
// still validate. A later field reusing an earlier name overwrites the
// earlier entry in place, keeping the first occurrence's position in the
// iteration order.
func Compile(fields models.FieldList) *Schema {
	s := &Schema{fields: make(map[string]*Field, len(fields))}

	for _, ff := range fields {
		if ff.Type == models.FieldTypeHeader || ff.Type == models.FieldTypeStatic {
			continue
		}
		if ff.Name == "" {
			// input field with no submission key; nothing to validate
			continue
		}

		f := &Field{
			Name:     ff.Name,
			Type:     baseType(ff.Type),
			Required: true,
			Default:  ff.Default,
		}

		if v := ff.Validation; v != nil {
			if v.Required != nil && !*v.Required {
				f.Required = false
			}
			// string constraints apply only to string-typed fields
			if f.Type == TypeString {
				f.MinLength = v.MinLength
				f.MaxLength = v.MaxLength
				if v.Pattern != "" {
					f.RawPattern = v.Pattern
					// anchor to the entire value, not a substring
					if re, err := regexp.Compile(`\A(?:` + v.Pattern + `)\z`); err == nil {
						f.Pattern = re
					}
				}
			}
		}

		if _, seen := s.fields[ff.Name]; !seen {
			s.names = append(s.names, ff.Name)
		}
		s.fields[ff.Name] = f
	}

	return s
}

func baseType(t models.FieldType) ValueType {
	switch t {
	case models.FieldTypeCheckbox:
		return TypeBool
	case models.FieldTypeText, models.FieldTypeSelect:
		return TypeString
	default:
		// forward-compatibility: unknown input kinds validate as strings
		return TypeString
	}
}
