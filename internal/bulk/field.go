package bulk

import (
	"context"
	"strings"
)

// FieldType is a semantic type a spreadsheet column may be coerced to
type FieldType string

const (
	TypeText      FieldType = "text"
	TypeBoolean   FieldType = "boolean"
	TypeInteger   FieldType = "integer"
	TypeDate      FieldType = "date"
	TypeTime      FieldType = "time"
	TypeList      FieldType = "list"
	TypeReference FieldType = "reference"
)

// ValidateFunc runs after type coercion and may reject or transform the value
type ValidateFunc func(value any) (any, error)

// ChoiceFunc returns the allowed values offered for a column in templates
type ChoiceFunc func(ctx context.Context) ([]string, error)

// Field declares one importable column
type Field struct {
	Name     string
	Types    []FieldType
	Required bool

	// Validate is the field-specific validator, invoked with the coerced value.
	Validate ValidateFunc

	// Choices feeds template list constraints for columns backed by live records.
	Choices ChoiceFunc

	Label       string
	Description string
}

// Accepts reports whether t is one of the field's accepted types
func (f Field) Accepts(t FieldType) bool {
	for _, accepted := range f.Types {
		if accepted == t {
			return true
		}
	}
	return false
}

func (f Field) typeNames() string {
	names := make([]string, len(f.Types))
	for i, t := range f.Types {
		names[i] = string(t)
	}
	return "(" + strings.Join(names, ", ") + ")"
}

// Schema is the ordered field list of an action
type Schema []Field

// Headers returns the declared column names in order
func (s Schema) Headers() []string {
	headers := make([]string, len(s))
	for i, f := range s {
		headers[i] = f.Name
	}
	return headers
}

// Field looks up a declared field by name
func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// RawRow is one data row keyed by header, as read from the sheet
type RawRow map[string]any

// Row is a validated row: coerced values plus its 0-based data row index
type Row struct {
	Index  int
	Values map[string]any
}

// Get returns the value for field, or nil when absent
func (r Row) Get(field string) any {
	return r.Values[field]
}

// String returns the text value of field, or "" when absent or not text
func (r Row) String(field string) string {
	s, _ := r.Values[field].(string)
	return s
}

// Bool returns the boolean value of field, false when absent
func (r Row) Bool(field string) bool {
	b, _ := r.Values[field].(bool)
	return b
}

// Strings returns the list value of field
func (r Row) Strings(field string) []string {
	l, _ := r.Values[field].([]string)
	return l
}
