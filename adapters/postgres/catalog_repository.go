package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"killay/domain/catalog"
	apperrors "killay/internal/errors"
	"killay/ports"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// CatalogRepositoryImpl implements CatalogRepository on top of sqlx. Queries
// are written with ? placeholders and rebound for the connected driver.
type CatalogRepositoryImpl struct {
	db *sqlx.DB
}

// NewCatalogRepository creates a new SQL catalog repository
func NewCatalogRepository(db *sqlx.DB) ports.CatalogRepository {
	return &CatalogRepositoryImpl{db: db}
}

func (r *CatalogRepositoryImpl) q(ctx context.Context) queryer {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return r.db
}

// InTx runs fn inside one database transaction
func (r *CatalogRepositoryImpl) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return inTx(ctx, r.db, fn)
}

const categoryColumns = `
	c.id, c.name, c.slug, c.collection_id, COALESCE(col.slug, '') AS collection_slug
	FROM categories c
	LEFT JOIN collections col ON col.id = c.collection_id`

// ListCollections returns every collection ordered by name
func (r *CatalogRepositoryImpl) ListCollections(ctx context.Context) ([]catalog.Collection, error) {
	var collections []catalog.Collection
	err := r.q(ctx).SelectContext(ctx, &collections, `
		SELECT id, name, slug, archive_id
		FROM collections
		ORDER BY name, id
	`)
	if err != nil {
		return nil, apperrors.DatabaseError("list collections", err)
	}
	return collections, nil
}

// ListCategories returns every category with its collection slug
func (r *CatalogRepositoryImpl) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var categories []catalog.Category
	err := r.q(ctx).SelectContext(ctx, &categories, `SELECT`+categoryColumns+` ORDER BY c.name, c.id`)
	if err != nil {
		return nil, apperrors.DatabaseError("list categories", err)
	}
	return categories, nil
}

func (r *CatalogRepositoryImpl) FindCollectionsByIDs(ctx context.Context, ids []int64) ([]catalog.Collection, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, name, slug, archive_id FROM collections WHERE id IN (?)`, ids)
	if err != nil {
		return nil, apperrors.DatabaseError("find collections", err)
	}
	q := r.q(ctx)
	var collections []catalog.Collection
	if err := q.SelectContext(ctx, &collections, q.Rebind(query), args...); err != nil {
		return nil, apperrors.DatabaseError("find collections", err)
	}
	return collections, nil
}

func (r *CatalogRepositoryImpl) FindCategoriesByIDs(ctx context.Context, ids []int64) ([]catalog.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT`+categoryColumns+` WHERE c.id IN (?)`, ids)
	if err != nil {
		return nil, apperrors.DatabaseError("find categories", err)
	}
	q := r.q(ctx)
	var categories []catalog.Category
	if err := q.SelectContext(ctx, &categories, q.Rebind(query), args...); err != nil {
		return nil, apperrors.DatabaseError("find categories", err)
	}
	return categories, nil
}

func (r *CatalogRepositoryImpl) FindPiecesByCodes(ctx context.Context, codes []string) ([]catalog.Piece, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`
		SELECT id, code, title, kind, is_published, is_restricted, collection_id
		FROM pieces
		WHERE code IN (?)`, codes)
	if err != nil {
		return nil, apperrors.DatabaseError("find pieces", err)
	}
	q := r.q(ctx)
	var pieces []catalog.Piece
	if err := q.SelectContext(ctx, &pieces, q.Rebind(query), args...); err != nil {
		return nil, apperrors.DatabaseError("find pieces", err)
	}
	return pieces, nil
}

// CreatePieces inserts pieces in order and returns them with their ids
func (r *CatalogRepositoryImpl) CreatePieces(ctx context.Context, pieces []catalog.NewPiece) ([]catalog.Piece, error) {
	q := r.q(ctx)
	insert := q.Rebind(`
		INSERT INTO pieces (code, title, kind, is_published, is_restricted, collection_id)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`)

	created := make([]catalog.Piece, 0, len(pieces))
	for _, np := range pieces {
		var id int64
		err := q.GetContext(ctx, &id, insert,
			np.Code, np.Title, string(np.Kind), np.IsPublished, np.IsRestricted, np.CollectionID)
		if err != nil {
			return nil, mapError(err, fmt.Sprintf("create piece %s", np.Code))
		}
		created = append(created, catalog.Piece{
			ID:           id,
			Code:         np.Code,
			Title:        np.Title,
			Kind:         np.Kind,
			IsPublished:  np.IsPublished,
			IsRestricted: np.IsRestricted,
			CollectionID: np.CollectionID,
		})
	}
	return created, nil
}

func (r *CatalogRepositoryImpl) CreatePieceMetas(ctx context.Context, metas []catalog.PieceMeta) error {
	q := r.q(ctx)
	insert := q.Rebind(`
		INSERT INTO piece_metas (
			piece_id, event, description, description_date, location, duration,
			register_date, register_author, productor, notes, archivist_notes,
			documentary_unit, lang, original_format
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	for _, m := range metas {
		_, err := q.ExecContext(ctx, insert,
			m.PieceID, m.Event, m.Description, m.DescriptionDate, m.Location, m.Duration,
			m.RegisterDate, m.RegisterAuthor, m.Productor, m.Notes, m.ArchivistNotes,
			m.DocumentaryUnit, m.Lang, m.OriginalFormat)
		if err != nil {
			return mapError(err, fmt.Sprintf("create metadata for piece %d", m.PieceID))
		}
	}
	return nil
}

func (r *CatalogRepositoryImpl) AddPieceCategories(ctx context.Context, links []catalog.PieceCategories) error {
	q := r.q(ctx)
	insert := q.Rebind(`
		INSERT INTO piece_categories (piece_id, category_id)
		VALUES (?, ?)
		ON CONFLICT DO NOTHING`)

	for _, l := range links {
		for _, categoryID := range l.CategoryIDs {
			if _, err := q.ExecContext(ctx, insert, l.PieceID, categoryID); err != nil {
				return mapError(err, fmt.Sprintf("link piece %d to category %d", l.PieceID, categoryID))
			}
		}
	}
	return nil
}

func (r *CatalogRepositoryImpl) AddPiecePeopleByNames(ctx context.Context, links []catalog.PieceNames) error {
	return r.addByNames(ctx, namedTable{table: "people", link: "piece_people", column: "person_id", fallback: "person"}, links)
}

func (r *CatalogRepositoryImpl) AddPieceKeywordsByNames(ctx context.Context, links []catalog.PieceNames) error {
	return r.addByNames(ctx, namedTable{table: "keywords", link: "piece_keywords", column: "keyword_id", fallback: "keyword"}, links)
}

func (r *CatalogRepositoryImpl) CreateProviders(ctx context.Context, providers []catalog.Provider) error {
	q := r.q(ctx)
	insert := q.Rebind(`
		INSERT INTO providers (piece_id, active, embed_id, provider)
		VALUES (?, ?, ?, ?)`)

	for _, p := range providers {
		if _, err := q.ExecContext(ctx, insert, p.PieceID, p.Active, p.EmbedID, string(p.Provider)); err != nil {
			return mapError(err, fmt.Sprintf("create provider for piece %d", p.PieceID))
		}
	}
	return nil
}

type namedTable struct {
	table    string
	link     string
	column   string
	fallback string
}

// addByNames links names to pieces, creating the named rows that are missing
func (r *CatalogRepositoryImpl) addByNames(ctx context.Context, t namedTable, links []catalog.PieceNames) error {
	q := r.q(ctx)
	linkInsert := q.Rebind(fmt.Sprintf(
		`INSERT INTO %s (piece_id, %s) VALUES (?, ?) ON CONFLICT DO NOTHING`, t.link, t.column))

	ids := make(map[string]int64)
	for _, l := range links {
		for _, name := range l.Names {
			id, ok := ids[name]
			if !ok {
				var err error
				if id, err = r.getOrCreateNamed(ctx, q, t, name); err != nil {
					return err
				}
				ids[name] = id
			}
			if _, err := q.ExecContext(ctx, linkInsert, l.PieceID, id); err != nil {
				return mapError(err, fmt.Sprintf("link piece %d to %s %q", l.PieceID, t.fallback, name))
			}
		}
	}
	return nil
}

func (r *CatalogRepositoryImpl) getOrCreateNamed(ctx context.Context, q queryer, t namedTable, name string) (int64, error) {
	var id int64
	err := q.GetContext(ctx, &id, q.Rebind(fmt.Sprintf(`SELECT id FROM %s WHERE name = ?`, t.table)), name)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, apperrors.DatabaseError(fmt.Sprintf("find %s %q", t.fallback, name), err)
	}

	base := catalog.Slugify(name)
	if base == "" {
		base = t.fallback
	}
	var taken []string
	err = q.SelectContext(ctx, &taken,
		q.Rebind(fmt.Sprintf(`SELECT slug FROM %s WHERE slug = ? OR slug LIKE ?`, t.table)), base, base+"-%")
	if err != nil {
		return 0, apperrors.DatabaseError(fmt.Sprintf("check %s slug", t.fallback), err)
	}
	slug := nextFreeSlug(base, taken)

	err = q.GetContext(ctx, &id,
		q.Rebind(fmt.Sprintf(`INSERT INTO %s (name, slug) VALUES (?, ?) RETURNING id`, t.table)), name, slug)
	if err != nil {
		return 0, mapError(err, fmt.Sprintf("create %s %q", t.fallback, name))
	}
	return id, nil
}

func nextFreeSlug(base string, taken []string) string {
	used := make(map[string]bool, len(taken))
	for _, s := range taken {
		used[s] = true
	}
	slug := base
	for n := 2; used[slug]; n++ {
		slug = base + "-" + strconv.Itoa(n)
	}
	return slug
}

// mapError tags unique violations so callers can tell conflicts apart
func mapError(err error, message string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
		return apperrors.WithCode(apperrors.CodeInvalidInput,
			apperrors.DatabaseError(fmt.Sprintf("%s: %s already exists", message, pqErr.Constraint), err))
	}
	return apperrors.DatabaseError(message, err)
}
