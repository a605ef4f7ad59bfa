package bulk

import (
	"context"
	"fmt"
)

// Lookup fetches the records matching keys in a single round trip
type Lookup[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// ResolveExisting replaces each value of field with its record, reporting
// values that match nothing. Rows without a value are left untouched.
func ResolveExisting[K comparable, V any](ctx context.Context, rows []Row, field string, lookup Lookup[K, V], report ErrorReport) (ErrorReport, error) {
	found, err := fetch(ctx, rows, field, lookup)
	if err != nil {
		return report, err
	}
	for i := range rows {
		key, ok := rows[i].Values[field].(K)
		if !ok {
			continue
		}
		if record, exists := found[key]; exists {
			rows[i].Values[field] = record
			continue
		}
		report = report.Add(rows[i].Index, field, fmt.Sprintf("%v for %s field does not exist", key, field))
	}
	return report, nil
}

// RejectExisting reports values of field that already match a stored record
func RejectExisting[K comparable, V any](ctx context.Context, rows []Row, field string, lookup Lookup[K, V], report ErrorReport) (ErrorReport, error) {
	found, err := fetch(ctx, rows, field, lookup)
	if err != nil {
		return report, err
	}
	for _, row := range rows {
		key, ok := row.Values[field].(K)
		if !ok {
			continue
		}
		if _, exists := found[key]; exists {
			report = report.Add(row.Index, field, fmt.Sprintf("%v for %s field already exist", key, field))
		}
	}
	return report, nil
}

// RejectRepeated reports every occurrence of a value after its first one
func RejectRepeated[K comparable](rows []Row, field string, report ErrorReport) ErrorReport {
	seen := make(map[K]struct{}, len(rows))
	for _, row := range rows {
		key, ok := row.Values[field].(K)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			report = report.Add(row.Index, field, fmt.Sprintf("%v for %s is repeated", key, field))
			continue
		}
		seen[key] = struct{}{}
	}
	return report
}

// RelationCheck returns a message when a row's references disagree
type RelationCheck func(row Row) (message string, ok bool)

// CheckRelation reports rows whose related references are inconsistent, under field
func CheckRelation(rows []Row, field string, check RelationCheck, report ErrorReport) ErrorReport {
	for _, row := range rows {
		if message, ok := check(row); !ok {
			report = report.Add(row.Index, field, message)
		}
	}
	return report
}

func fetch[K comparable, V any](ctx context.Context, rows []Row, field string, lookup Lookup[K, V]) (map[K]V, error) {
	keys := distinct[K](rows, field)
	if len(keys) == 0 {
		return map[K]V{}, nil
	}
	found, err := lookup(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", field, err)
	}
	return found, nil
}

func distinct[K comparable](rows []Row, field string) []K {
	seen := make(map[K]struct{}, len(rows))
	keys := make([]K, 0, len(rows))
	for _, row := range rows {
		key, ok := row.Values[field].(K)
		if !ok {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}
