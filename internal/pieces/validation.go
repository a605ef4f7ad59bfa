package pieces

import (
	"context"
	"fmt"

	"killay/domain/catalog"
	"killay/internal/bulk"
	"killay/ports"
)

// storeValidation resolves references and checks codes against the batch and the store
func storeValidation(repo ports.CatalogReader) bulk.StoreValidation {
	return func(ctx context.Context, rows []bulk.Row, report bulk.ErrorReport) (bulk.ErrorReport, error) {
		var err error
		report, err = bulk.ResolveExisting(ctx, rows, FieldCollection, collectionLookup(repo), report)
		if err != nil {
			return report, err
		}
		report, err = bulk.ResolveExisting(ctx, rows, FieldCategory, categoryLookup(repo), report)
		if err != nil {
			return report, err
		}
		report = bulk.RejectRepeated[string](rows, FieldCode, report)
		report, err = bulk.RejectExisting(ctx, rows, FieldCode, pieceLookup(repo), report)
		if err != nil {
			return report, err
		}
		report = bulk.CheckRelation(rows, FieldCategory, categoryInCollection, report)
		return report, nil
	}
}

// categoryInCollection accepts only categories attached to the row's collection;
// a category without a collection never matches
func categoryInCollection(row bulk.Row) (string, bool) {
	collection, ok := row.Get(FieldCollection).(catalog.Collection)
	if !ok {
		return "", true
	}
	category, ok := row.Get(FieldCategory).(catalog.Category)
	if !ok || category.BelongsTo(collection.ID) {
		return "", true
	}
	return fmt.Sprintf("%s - %d category not belong to %s - %d collection",
		category.Name, category.ID, collection.Name, collection.ID), false
}

func collectionLookup(repo ports.CatalogReader) bulk.Lookup[int64, catalog.Collection] {
	return func(ctx context.Context, ids []int64) (map[int64]catalog.Collection, error) {
		collections, err := repo.FindCollectionsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		found := make(map[int64]catalog.Collection, len(collections))
		for _, c := range collections {
			found[c.ID] = c
		}
		return found, nil
	}
}

func categoryLookup(repo ports.CatalogReader) bulk.Lookup[int64, catalog.Category] {
	return func(ctx context.Context, ids []int64) (map[int64]catalog.Category, error) {
		categories, err := repo.FindCategoriesByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		found := make(map[int64]catalog.Category, len(categories))
		for _, c := range categories {
			found[c.ID] = c
		}
		return found, nil
	}
}

func pieceLookup(repo ports.CatalogReader) bulk.Lookup[string, catalog.Piece] {
	return func(ctx context.Context, codes []string) (map[string]catalog.Piece, error) {
		pieces, err := repo.FindPiecesByCodes(ctx, codes)
		if err != nil {
			return nil, err
		}
		found := make(map[string]catalog.Piece, len(pieces))
		for _, p := range pieces {
			found[p.Code] = p
		}
		return found, nil
	}
}
