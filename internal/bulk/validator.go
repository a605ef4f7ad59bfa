package bulk

import (
	"context"
	"fmt"
)

// StoreValidation checks a coerced batch against persisted records and
// across rows. It may replace ids with resolved records.
type StoreValidation func(ctx context.Context, rows []Row, report ErrorReport) (ErrorReport, error)

// Validator runs field coercion over every row, then store validation over the batch
type Validator struct {
	schema  Schema
	coercer *Coercer
	store   StoreValidation
}

// NewValidator creates a validator; store may be nil
func NewValidator(schema Schema, coercer *Coercer, store StoreValidation) *Validator {
	if coercer == nil {
		coercer = NewCoercer(DefaultCoercionConfig())
	}
	return &Validator{schema: schema, coercer: coercer, store: store}
}

// Validate returns the validated rows, or a *ValidationError holding every
// problem found in the batch. Other errors come from the store.
func (v *Validator) Validate(ctx context.Context, raw []RawRow) ([]Row, error) {
	var report ErrorReport
	rows := make([]Row, 0, len(raw))

	for index, data := range raw {
		values, errs := v.validateRow(data)
		if len(errs) > 0 {
			for _, err := range errs {
				report = report.AddError(index, err)
			}
			continue
		}
		rows = append(rows, Row{Index: index, Values: values})
	}

	if v.store != nil && len(rows) > 0 {
		var err error
		report, err = v.store(ctx, rows, report)
		if err != nil {
			return nil, fmt.Errorf("store validation: %w", err)
		}
	}

	if len(report) > 0 {
		return nil, &ValidationError{Report: report}
	}
	return rows, nil
}

// validateRow coerces every declared column in declared order; undeclared
// columns are ignored and missing required columns are reported
func (v *Validator) validateRow(data RawRow) (map[string]any, []error) {
	values := make(map[string]any, len(v.schema))
	var errs []error
	for _, f := range v.schema {
		raw, present := data[f.Name]
		if !present {
			if f.Required {
				errs = append(errs, requiredError(f.Name))
			}
			continue
		}
		value, err := v.coercer.Coerce(f, raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		values[f.Name] = value
	}
	return values, errs
}
