package bulk

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	keyTrue  = "TRUE"
	keyFalse = "FALSE"
)

var (
	digitsPattern    = regexp.MustCompile(`^[0-9]+$`)
	// the id is the trailing marker, so names holding "[1998]" keep their digits
	referencePattern = regexp.MustCompile(`(?:\[id=(\d+)\]|(?:^|\|)\s*\[(\d+)\])\s*$`)
)

// TimeOfDay is a wall clock time without a date
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// MarshalText renders the time as HH:MM:SS
func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// DateLayout pairs a Go parse layout with the name shown to operators
type DateLayout struct {
	Layout string
	Name   string
}

// CoercionConfig defines the accepted textual formats
type CoercionConfig struct {
	DateLayouts []DateLayout
	TimeLayout  string
	TimeName    string
}

// DefaultCoercionConfig returns the formats operators are told about in templates
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		DateLayouts: []DateLayout{
			{Layout: "2006-1-2", Name: "YYYY-MM-DD"},
			{Layout: "2006/1/2", Name: "YYYY/MM/DD"},
			{Layout: "2-1-2006", Name: "DD-MM-YYYY"},
			{Layout: "2/1/2006", Name: "DD/MM/YYYY"},
		},
		TimeLayout: "15:04:05",
		TimeName:   "HH:MM:SS",
	}
}

// Coercer converts raw cell values into the declared field types
type Coercer struct {
	config CoercionConfig
}

// NewCoercer creates a coercer with the given config
func NewCoercer(config CoercionConfig) *Coercer {
	return &Coercer{config: config}
}

// DateFormats returns the operator-facing names of the accepted date formats
func (c *Coercer) DateFormats() []string {
	names := make([]string, len(c.config.DateLayouts))
	for i, l := range c.config.DateLayouts {
		names[i] = l.Name
	}
	return names
}

// Coerce applies the type rules of f to raw and then its custom validator.
// Errors are always *FieldError.
func (c *Coercer) Coerce(f Field, raw any) (any, error) {
	if isEmpty(raw) {
		if f.Required {
			return nil, requiredError(f.Name)
		}
		if raw == "" && f.Accepts(TypeList) {
			return []string{}, nil
		}
		return nil, nil
	}

	value := normalizeNumber(raw)
	var err error

	if f.Accepts(TypeBoolean) {
		if value, err = c.tryParseBoolean(value); err != nil {
			return nil, fieldError(f.Name, err)
		}
	}
	if f.Accepts(TypeList) {
		value = c.tryParseList(value)
	}
	if f.Accepts(TypeDate) {
		if value, err = c.tryParseDate(value); err != nil {
			return nil, fieldError(f.Name, err)
		}
	}
	if f.Accepts(TypeTime) {
		if value, err = c.tryParseTime(value, !f.Accepts(TypeDate)); err != nil {
			return nil, fieldError(f.Name, err)
		}
	}
	if f.Accepts(TypeInteger) {
		value = c.tryParseInteger(value)
	}
	if f.Accepts(TypeReference) {
		value = c.tryParseReference(value)
	}
	if f.Accepts(TypeText) && !f.Accepts(TypeInteger) && !f.Accepts(TypeReference) {
		value = c.tryParseText(value)
	}

	if !isEmpty(value) && !matchesType(f, value) {
		return nil, &FieldError{
			Field:   f.Name,
			Message: fmt.Sprintf("Wrong value type for %s field, must be %s", f.Name, f.typeNames()),
		}
	}

	if f.Validate != nil && !isEmpty(value) {
		if value, err = f.Validate(value); err != nil {
			return nil, fieldError(f.Name, err)
		}
	}

	if isEmpty(value) && f.Required {
		return nil, requiredError(f.Name)
	}
	return value, nil
}

// tryParseBoolean accepts TRUE or FALSE in any letter case
func (c *Coercer) tryParseBoolean(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	switch strings.ToUpper(s) {
	case keyTrue:
		return true, nil
	case keyFalse:
		return false, nil
	}
	return nil, fmt.Errorf(`Must be "%s" or "%s"`, keyTrue, keyFalse)
}

// tryParseList splits on commas, trimming items and dropping blanks
func (c *Coercer) tryParseList(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	items := []string{}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// tryParseDate tries every configured layout in order; the first match wins
func (c *Coercer) tryParseDate(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return value, nil
	}
	for _, l := range c.config.DateLayouts {
		if t, err := time.Parse(l.Layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("date '%s' does not match formats [%s]", s, strings.Join(c.DateFormats(), ", "))
}

// tryParseTime parses HH:MM:SS strings and strips the date from spreadsheet time cells
func (c *Coercer) tryParseTime(value any, stripDate bool) (any, error) {
	switch v := value.(type) {
	case string:
		t, err := time.Parse(c.config.TimeLayout, v)
		if err != nil {
			return nil, fmt.Errorf("time '%s' does not match format %s", v, c.config.TimeName)
		}
		return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
	case time.Time:
		if stripDate {
			return TimeOfDay{Hour: v.Hour(), Minute: v.Minute(), Second: v.Second()}, nil
		}
	}
	return value, nil
}

// tryParseInteger converts digit-only strings
func (c *Coercer) tryParseInteger(value any) any {
	s, ok := value.(string)
	if !ok || !digitsPattern.MatchString(s) {
		return value
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return value
}

// tryParseReference extracts an id from "99", "Name | [99]" or "[id=99]".
// Text without an id yields nil so required references report as missing.
func (c *Coercer) tryParseReference(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	if id, ok := ParseReference(s); ok {
		return id
	}
	return nil
}

// tryParseText keeps numeric cells typed into text columns, e.g. a code of 1024
func (c *Coercer) tryParseText(value any) any {
	switch v := value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return value
}

// ParseReference extracts the record id from a template choice label or bare number
func ParseReference(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if digitsPattern.MatchString(s) {
		id, err := strconv.ParseInt(s, 10, 64)
		return id, err == nil
	}
	m := referencePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	digits := m[1]
	if digits == "" {
		digits = m[2]
	}
	id, err := strconv.ParseInt(digits, 10, 64)
	return id, err == nil
}

func matchesType(f Field, value any) bool {
	switch value.(type) {
	case string:
		return f.Accepts(TypeText)
	case bool:
		return f.Accepts(TypeBoolean)
	case int64:
		return f.Accepts(TypeInteger) || f.Accepts(TypeReference)
	case time.Time:
		return f.Accepts(TypeDate)
	case TimeOfDay:
		return f.Accepts(TypeTime)
	case []string:
		return f.Accepts(TypeList)
	}
	return false
}

func normalizeNumber(value any) any {
	switch v := value.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < math.MaxInt64 {
			return int64(v)
		}
	}
	return value
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && s == ""
}

func requiredError(field string) *FieldError {
	return &FieldError{Field: field, Message: fmt.Sprintf("%s field is required", field)}
}

func fieldError(field string, err error) *FieldError {
	if fe, ok := err.(*FieldError); ok {
		return fe
	}
	return &FieldError{Field: field, Message: err.Error()}
}
