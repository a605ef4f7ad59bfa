package ports

import (
	"context"

	"killay/domain/catalog"
)

// ChoiceSource lists the records offered as template choices
type ChoiceSource interface {
	ListCollections(ctx context.Context) ([]catalog.Collection, error)
	ListCategories(ctx context.Context) ([]catalog.Category, error)
}

// CatalogReader defines the lookups used by import validation
type CatalogReader interface {
	ChoiceSource
	FindCollectionsByIDs(ctx context.Context, ids []int64) ([]catalog.Collection, error)
	FindCategoriesByIDs(ctx context.Context, ids []int64) ([]catalog.Category, error)
	FindPiecesByCodes(ctx context.Context, codes []string) ([]catalog.Piece, error)
}

// CatalogWriter defines the bulk creation operations used by import execution.
// Calls made with a context from InTx join that transaction.
type CatalogWriter interface {
	CreatePieces(ctx context.Context, pieces []catalog.NewPiece) ([]catalog.Piece, error)
	CreatePieceMetas(ctx context.Context, metas []catalog.PieceMeta) error
	AddPieceCategories(ctx context.Context, links []catalog.PieceCategories) error
	// AddPiecePeopleByNames creates missing people by name before linking them
	AddPiecePeopleByNames(ctx context.Context, links []catalog.PieceNames) error
	// AddPieceKeywordsByNames creates missing keywords by name before linking them
	AddPieceKeywordsByNames(ctx context.Context, links []catalog.PieceNames) error
	CreateProviders(ctx context.Context, providers []catalog.Provider) error
}

// CatalogRepository is the catalog store collaborator
type CatalogRepository interface {
	CatalogReader
	CatalogWriter
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
