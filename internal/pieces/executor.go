package pieces

import (
	"context"
	"fmt"
	"time"

	"killay/domain/catalog"
	"killay/internal/bulk"
	"killay/ports"
)

type executor struct {
	repo  ports.CatalogWriter
	links Links
}

// execute writes pieces first, then everything keyed to their ids
func (e *executor) execute(ctx context.Context, rows []bulk.Row) ([]bulk.Result, error) {
	pieces, err := e.createPieces(ctx, rows)
	if err != nil {
		return nil, err
	}
	if err := e.addMeta(ctx, rows, pieces); err != nil {
		return nil, err
	}
	if err := e.addCategories(ctx, rows, pieces); err != nil {
		return nil, err
	}
	if err := e.repo.AddPiecePeopleByNames(ctx, namesOf(rows, pieces, FieldPeople)); err != nil {
		return nil, fmt.Errorf("add people: %w", err)
	}
	if err := e.repo.AddPieceKeywordsByNames(ctx, namesOf(rows, pieces, FieldKeywords)); err != nil {
		return nil, fmt.Errorf("add keywords: %w", err)
	}
	if err := e.addVideoProviders(ctx, rows, pieces); err != nil {
		return nil, err
	}

	results := make([]bulk.Result, len(rows))
	for i, row := range rows {
		results[i] = e.describe(row, pieces[i])
	}
	return results, nil
}

// createPieces returns the created pieces aligned with rows
func (e *executor) createPieces(ctx context.Context, rows []bulk.Row) ([]catalog.Piece, error) {
	input := make([]catalog.NewPiece, len(rows))
	for i, row := range rows {
		collection, ok := row.Get(FieldCollection).(catalog.Collection)
		if !ok {
			return nil, fmt.Errorf("row %d: collection is not resolved", row.Index+1)
		}
		input[i] = catalog.NewPiece{
			Code:         row.String(FieldCode),
			Title:        row.String(FieldTitle),
			Kind:         catalog.Kind(row.String(FieldKind)),
			IsPublished:  row.Bool(FieldIsPublished),
			IsRestricted: row.Bool(FieldIsRestricted),
			CollectionID: collection.ID,
		}
	}
	pieces, err := e.repo.CreatePieces(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("create pieces: %w", err)
	}
	if len(pieces) != len(rows) {
		return nil, fmt.Errorf("create pieces: got %d pieces for %d rows", len(pieces), len(rows))
	}
	return pieces, nil
}

func (e *executor) addMeta(ctx context.Context, rows []bulk.Row, pieces []catalog.Piece) error {
	metas := make([]catalog.PieceMeta, len(rows))
	for i, row := range rows {
		metas[i] = catalog.PieceMeta{
			PieceID:         pieces[i].ID,
			Event:           row.String(FieldEvent),
			Description:     row.String(FieldDescription),
			DescriptionDate: dateOf(row, FieldDescriptionDate),
			Location:        row.String(FieldLocation),
			Duration:        durationOf(row),
			RegisterDate:    dateOf(row, FieldRegisterDate),
			RegisterAuthor:  row.String(FieldRegisterAuthor),
			Productor:       row.String(FieldProductor),
			Notes:           row.String(FieldNotes),
			ArchivistNotes:  row.String(FieldArchivistNotes),
			DocumentaryUnit: row.String(FieldDocumentaryUnit),
			Lang:            row.String(FieldLang),
			OriginalFormat:  row.String(FieldOriginalFormat),
		}
	}
	if err := e.repo.CreatePieceMetas(ctx, metas); err != nil {
		return fmt.Errorf("create piece metadata: %w", err)
	}
	return nil
}

func (e *executor) addCategories(ctx context.Context, rows []bulk.Row, pieces []catalog.Piece) error {
	var links []catalog.PieceCategories
	for i, row := range rows {
		if category, ok := row.Get(FieldCategory).(catalog.Category); ok {
			links = append(links, catalog.PieceCategories{PieceID: pieces[i].ID, CategoryIDs: []int64{category.ID}})
		}
	}
	if len(links) == 0 {
		return nil
	}
	if err := e.repo.AddPieceCategories(ctx, links); err != nil {
		return fmt.Errorf("add categories: %w", err)
	}
	return nil
}

// addVideoProviders registers a player for video pieces carrying a URL
func (e *executor) addVideoProviders(ctx context.Context, rows []bulk.Row, pieces []catalog.Piece) error {
	var providers []catalog.Provider
	for i, row := range rows {
		videoURL := row.String(FieldVideoURL)
		if videoURL == "" || pieces[i].Kind != catalog.KindVideo {
			continue
		}
		name, ok := DetectProvider(videoURL)
		if !ok {
			name = catalog.ProviderYoutube
		}
		providers = append(providers, catalog.Provider{
			PieceID:  pieces[i].ID,
			Active:   true,
			EmbedID:  EmbedID(name, videoURL),
			Provider: name,
		})
	}
	if len(providers) == 0 {
		return nil
	}
	if err := e.repo.CreateProviders(ctx, providers); err != nil {
		return fmt.Errorf("create video providers: %w", err)
	}
	return nil
}

func (e *executor) describe(row bulk.Row, piece catalog.Piece) bulk.Result {
	fields := []bulk.ResultField{
		{Name: FieldCode, Label: piece.Code, Link: e.links.Piece(piece.ID)},
		{Name: FieldTitle, Label: piece.Title},
		{Name: FieldKind, Label: string(piece.Kind)},
	}
	if collection, ok := row.Get(FieldCollection).(catalog.Collection); ok {
		fields = append(fields, bulk.ResultField{Name: FieldCollection, Label: collection.Name, Link: e.links.Collection(collection.ID)})
	}
	if category, ok := row.Get(FieldCategory).(catalog.Category); ok {
		fields = append(fields, bulk.ResultField{Name: FieldCategory, Label: category.Name, Link: e.links.Category(category.ID)})
	}
	return bulk.Result{Row: row.Index, Fields: fields, Instance: piece}
}

func namesOf(rows []bulk.Row, pieces []catalog.Piece, field string) []catalog.PieceNames {
	var links []catalog.PieceNames
	for i, row := range rows {
		if names := row.Strings(field); len(names) > 0 {
			links = append(links, catalog.PieceNames{PieceID: pieces[i].ID, Names: names})
		}
	}
	return links
}

func dateOf(row bulk.Row, field string) *time.Time {
	t, ok := row.Get(field).(time.Time)
	if !ok {
		return nil
	}
	return &t
}

func durationOf(row bulk.Row) string {
	if d, ok := row.Get(FieldDuration).(bulk.TimeOfDay); ok {
		return d.String()
	}
	return ""
}
