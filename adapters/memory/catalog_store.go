// Package memory provides an in-process catalog store used when no database
// is configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"killay/domain/catalog"
	"killay/ports"
)

type txKey struct{}

type state struct {
	collections map[int64]catalog.Collection
	categories  map[int64]catalog.Category
	pieces      map[int64]catalog.Piece
	metas       map[int64]catalog.PieceMeta
	people      map[int64]catalog.Person
	keywords    map[int64]catalog.Keyword
	providers   []catalog.Provider

	pieceCategories map[int64][]int64
	piecePeople     map[int64][]int64
	pieceKeywords   map[int64][]int64

	nextID int64
}

func newState() *state {
	return &state{
		collections:     make(map[int64]catalog.Collection),
		categories:      make(map[int64]catalog.Category),
		pieces:          make(map[int64]catalog.Piece),
		metas:           make(map[int64]catalog.PieceMeta),
		people:          make(map[int64]catalog.Person),
		keywords:        make(map[int64]catalog.Keyword),
		pieceCategories: make(map[int64][]int64),
		piecePeople:     make(map[int64][]int64),
		pieceKeywords:   make(map[int64][]int64),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.collections {
		c.collections[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.pieces {
		c.pieces[k] = v
	}
	for k, v := range s.metas {
		c.metas[k] = v
	}
	for k, v := range s.people {
		c.people[k] = v
	}
	for k, v := range s.keywords {
		c.keywords[k] = v
	}
	c.providers = append(c.providers, s.providers...)
	for k, v := range s.pieceCategories {
		c.pieceCategories[k] = append([]int64(nil), v...)
	}
	for k, v := range s.piecePeople {
		c.piecePeople[k] = append([]int64(nil), v...)
	}
	for k, v := range s.pieceKeywords {
		c.pieceKeywords[k] = append([]int64(nil), v...)
	}
	c.nextID = s.nextID
	return c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

// CatalogStore is a mutex guarded catalog. InTx works on a copy of the data
// and swaps it in only when fn succeeds.
type CatalogStore struct {
	mu   sync.Mutex
	data *state
}

// NewCatalogStore creates an empty store
func NewCatalogStore() *CatalogStore {
	return &CatalogStore{data: newState()}
}

var _ ports.CatalogRepository = (*CatalogStore)(nil)

// view runs fn against the transaction copy when ctx carries one, otherwise
// against the live data under the lock
func (s *CatalogStore) view(ctx context.Context, fn func(*state) error) error {
	if tx, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// InTx serializes writers; nested calls join the outer transaction
func (s *CatalogStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*state); ok {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(context.WithValue(ctx, txKey{}, work)); err != nil {
		return err
	}
	s.data = work
	return nil
}

// AddCollection seeds a collection, assigning an id when zero
func (s *CatalogStore) AddCollection(c catalog.Collection) catalog.Collection {
	_ = s.view(context.Background(), func(st *state) error {
		if c.ID == 0 {
			c.ID = st.id()
		} else if c.ID > st.nextID {
			st.nextID = c.ID
		}
		st.collections[c.ID] = c
		return nil
	})
	return c
}

// AddCategory seeds a category, filling its collection slug
func (s *CatalogStore) AddCategory(c catalog.Category) catalog.Category {
	_ = s.view(context.Background(), func(st *state) error {
		if c.ID == 0 {
			c.ID = st.id()
		} else if c.ID > st.nextID {
			st.nextID = c.ID
		}
		if c.CollectionID != nil {
			c.CollectionSlug = st.collections[*c.CollectionID].Slug
		}
		st.categories[c.ID] = c
		return nil
	})
	return c
}

func (s *CatalogStore) ListCollections(ctx context.Context) ([]catalog.Collection, error) {
	var out []catalog.Collection
	err := s.view(ctx, func(st *state) error {
		for _, c := range st.collections {
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (s *CatalogStore) ListCategories(ctx context.Context) ([]catalog.Category, error) {
	var out []catalog.Category
	err := s.view(ctx, func(st *state) error {
		for _, c := range st.categories {
			out = append(out, c)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (s *CatalogStore) FindCollectionsByIDs(ctx context.Context, ids []int64) ([]catalog.Collection, error) {
	var out []catalog.Collection
	err := s.view(ctx, func(st *state) error {
		for _, id := range ids {
			if c, ok := st.collections[id]; ok {
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}

func (s *CatalogStore) FindCategoriesByIDs(ctx context.Context, ids []int64) ([]catalog.Category, error) {
	var out []catalog.Category
	err := s.view(ctx, func(st *state) error {
		for _, id := range ids {
			if c, ok := st.categories[id]; ok {
				out = append(out, c)
			}
		}
		return nil
	})
	return out, err
}

func (s *CatalogStore) FindPiecesByCodes(ctx context.Context, codes []string) ([]catalog.Piece, error) {
	wanted := make(map[string]bool, len(codes))
	for _, c := range codes {
		wanted[c] = true
	}
	var out []catalog.Piece
	err := s.view(ctx, func(st *state) error {
		for _, p := range st.pieces {
			if wanted[p.Code] {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

func (s *CatalogStore) CreatePieces(ctx context.Context, pieces []catalog.NewPiece) ([]catalog.Piece, error) {
	out := make([]catalog.Piece, 0, len(pieces))
	err := s.view(ctx, func(st *state) error {
		codes := make(map[string]bool, len(st.pieces))
		for _, p := range st.pieces {
			codes[p.Code] = true
		}
		for _, np := range pieces {
			if codes[np.Code] {
				return fmt.Errorf("piece code %q already exists", np.Code)
			}
			if _, ok := st.collections[np.CollectionID]; !ok {
				return fmt.Errorf("collection %d does not exist", np.CollectionID)
			}
			p := catalog.Piece{
				ID:           st.id(),
				Code:         np.Code,
				Title:        np.Title,
				Kind:         np.Kind,
				IsPublished:  np.IsPublished,
				IsRestricted: np.IsRestricted,
				CollectionID: np.CollectionID,
			}
			st.pieces[p.ID] = p
			codes[p.Code] = true
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *CatalogStore) CreatePieceMetas(ctx context.Context, metas []catalog.PieceMeta) error {
	return s.view(ctx, func(st *state) error {
		for _, m := range metas {
			if _, ok := st.pieces[m.PieceID]; !ok {
				return fmt.Errorf("piece %d does not exist", m.PieceID)
			}
			st.metas[m.PieceID] = m
		}
		return nil
	})
}

func (s *CatalogStore) AddPieceCategories(ctx context.Context, links []catalog.PieceCategories) error {
	return s.view(ctx, func(st *state) error {
		for _, l := range links {
			for _, id := range l.CategoryIDs {
				if _, ok := st.categories[id]; !ok {
					return fmt.Errorf("category %d does not exist", id)
				}
				st.pieceCategories[l.PieceID] = appendUnique(st.pieceCategories[l.PieceID], id)
			}
		}
		return nil
	})
}

func (s *CatalogStore) AddPiecePeopleByNames(ctx context.Context, links []catalog.PieceNames) error {
	return s.view(ctx, func(st *state) error {
		byName := make(map[string]int64, len(st.people))
		slugs := make(map[string]bool, len(st.people))
		for _, p := range st.people {
			byName[p.Name] = p.ID
			slugs[p.Slug] = true
		}
		for _, l := range links {
			for _, name := range l.Names {
				id, ok := byName[name]
				if !ok {
					p := catalog.Person{ID: st.id(), Name: name, Slug: uniqueSlug(name, "person", slugs)}
					st.people[p.ID] = p
					byName[name] = p.ID
					id = p.ID
				}
				st.piecePeople[l.PieceID] = appendUnique(st.piecePeople[l.PieceID], id)
			}
		}
		return nil
	})
}

func (s *CatalogStore) AddPieceKeywordsByNames(ctx context.Context, links []catalog.PieceNames) error {
	return s.view(ctx, func(st *state) error {
		byName := make(map[string]int64, len(st.keywords))
		slugs := make(map[string]bool, len(st.keywords))
		for _, k := range st.keywords {
			byName[k.Name] = k.ID
			slugs[k.Slug] = true
		}
		for _, l := range links {
			for _, name := range l.Names {
				id, ok := byName[name]
				if !ok {
					k := catalog.Keyword{ID: st.id(), Name: name, Slug: uniqueSlug(name, "keyword", slugs)}
					st.keywords[k.ID] = k
					byName[name] = k.ID
					id = k.ID
				}
				st.pieceKeywords[l.PieceID] = appendUnique(st.pieceKeywords[l.PieceID], id)
			}
		}
		return nil
	})
}

func (s *CatalogStore) CreateProviders(ctx context.Context, providers []catalog.Provider) error {
	return s.view(ctx, func(st *state) error {
		for _, p := range providers {
			if _, ok := st.pieces[p.PieceID]; !ok {
				return fmt.Errorf("piece %d does not exist", p.PieceID)
			}
			p.ID = st.id()
			st.providers = append(st.providers, p)
		}
		return nil
	})
}

// Counts reports how many records of each kind the store holds
type Counts struct {
	Pieces    int
	Metas     int
	People    int
	Keywords  int
	Providers int
}

// Counts returns the committed record counts
func (s *CatalogStore) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counts{
		Pieces:    len(s.data.pieces),
		Metas:     len(s.data.metas),
		People:    len(s.data.people),
		Keywords:  len(s.data.keywords),
		Providers: len(s.data.providers),
	}
}

// Piece returns the committed piece with code
func (s *CatalogStore) Piece(code string) (catalog.Piece, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.data.pieces {
		if p.Code == code {
			return p, true
		}
	}
	return catalog.Piece{}, false
}

// Meta returns the committed metadata of a piece
func (s *CatalogStore) Meta(pieceID int64) (catalog.PieceMeta, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.data.metas[pieceID]
	return m, ok
}

// Providers returns the committed video providers
func (s *CatalogStore) Providers() []catalog.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]catalog.Provider(nil), s.data.providers...)
}

// PieceCategoryIDs returns the category ids linked to a piece
func (s *CatalogStore) PieceCategoryIDs(pieceID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.data.pieceCategories[pieceID]...)
}

// PiecePeople returns the names of people linked to a piece
func (s *CatalogStore) PiecePeople(pieceID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, id := range s.data.piecePeople[pieceID] {
		names = append(names, s.data.people[id].Name)
	}
	return names
}

// PieceKeywords returns the names of keywords linked to a piece
func (s *CatalogStore) PieceKeywords(pieceID int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for _, id := range s.data.pieceKeywords[pieceID] {
		names = append(names, s.data.keywords[id].Name)
	}
	return names
}

func appendUnique(ids []int64, id int64) []int64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

func uniqueSlug(name, fallback string, taken map[string]bool) string {
	base := catalog.Slugify(name)
	if base == "" {
		base = fallback
	}
	slug := base
	for n := 2; taken[slug]; n++ {
		slug = base + "-" + strconv.Itoa(n)
	}
	taken[slug] = true
	return slug
}
