package catalog

import (
	"fmt"
	"time"
)

// Kind is the media kind of a catalog piece
type Kind string

const (
	KindVideo    Kind = "VIDEO"
	KindImage    Kind = "IMAGE"
	KindSound    Kind = "SOUND"
	KindDocument Kind = "DOCUMENT"
)

// Kinds lists every valid piece kind in display order
var Kinds = []Kind{KindVideo, KindImage, KindSound, KindDocument}

// IsValid reports whether k is one of the known kinds
func (k Kind) IsValid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// ProviderName identifies an embedded media player backend
type ProviderName string

const (
	ProviderYoutube ProviderName = "youtube"
	ProviderVimeo   ProviderName = "vimeo"
)

// ProviderNames lists every supported media provider
var ProviderNames = []ProviderName{ProviderYoutube, ProviderVimeo}

// Collection groups pieces under an archive
type Collection struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	Slug      string `db:"slug" json:"slug"`
	ArchiveID *int64 `db:"archive_id" json:"archive_id,omitempty"`
}

// Category classifies pieces, optionally scoped to a single collection
type Category struct {
	ID             int64  `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	Slug           string `db:"slug" json:"slug"`
	CollectionID   *int64 `db:"collection_id" json:"collection_id,omitempty"`
	CollectionSlug string `db:"collection_slug" json:"collection_slug,omitempty"`
}

// BelongsTo reports whether the category is attached to the given collection
func (c *Category) BelongsTo(collectionID int64) bool {
	return c.CollectionID != nil && *c.CollectionID == collectionID
}

// Piece is the primary catalog record
type Piece struct {
	ID           int64  `db:"id" json:"id"`
	Code         string `db:"code" json:"code"`
	Title        string `db:"title" json:"title"`
	Kind         Kind   `db:"kind" json:"kind"`
	IsPublished  bool   `db:"is_published" json:"is_published"`
	IsRestricted bool   `db:"is_restricted" json:"is_restricted"`
	CollectionID int64  `db:"collection_id" json:"collection_id"`
}

// PieceMeta carries the descriptive metadata of a piece
type PieceMeta struct {
	PieceID         int64      `db:"piece_id" json:"piece_id"`
	Event           string     `db:"event" json:"event,omitempty"`
	Description     string     `db:"description" json:"description,omitempty"`
	DescriptionDate *time.Time `db:"description_date" json:"description_date,omitempty"`
	Location        string     `db:"location" json:"location,omitempty"`
	Duration        string     `db:"duration" json:"duration,omitempty"`
	RegisterDate    *time.Time `db:"register_date" json:"register_date,omitempty"`
	RegisterAuthor  string     `db:"register_author" json:"register_author,omitempty"`
	Productor       string     `db:"productor" json:"productor,omitempty"`
	Notes           string     `db:"notes" json:"notes,omitempty"`
	ArchivistNotes  string     `db:"archivist_notes" json:"archivist_notes,omitempty"`
	DocumentaryUnit string     `db:"documentary_unit" json:"documentary_unit,omitempty"`
	Lang            string     `db:"lang" json:"lang,omitempty"`
	OriginalFormat  string     `db:"original_format" json:"original_format,omitempty"`
}

// Person is someone appearing in or credited by a piece
type Person struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Slug string `db:"slug" json:"slug"`
}

// Keyword is a free-form tag attached to pieces
type Keyword struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	Slug string `db:"slug" json:"slug"`
}

// Provider links a piece to an embeddable video player
type Provider struct {
	ID       int64        `db:"id" json:"id"`
	PieceID  int64        `db:"piece_id" json:"piece_id"`
	Active   bool         `db:"active" json:"active"`
	EmbedID  string       `db:"embed_id" json:"embed_id"`
	Provider ProviderName `db:"provider" json:"provider"`
}

// NewPiece is the input for creating a piece
type NewPiece struct {
	Code         string
	Title        string
	Kind         Kind
	IsPublished  bool
	IsRestricted bool
	CollectionID int64
}

// PieceNames pairs a piece with person or keyword names to attach
type PieceNames struct {
	PieceID int64
	Names   []string
}

// PieceCategories pairs a piece with the category ids to attach
type PieceCategories struct {
	PieceID     int64
	CategoryIDs []int64
}

// ChoiceLabel renders a collection the way spreadsheet templates offer it
func (c *Collection) ChoiceLabel() string {
	return fmt.Sprintf("%s | [%d]", c.Name, c.ID)
}

// ChoiceLabel renders a category with its owning collection slug when scoped
func (c *Category) ChoiceLabel() string {
	if c.CollectionSlug != "" {
		return fmt.Sprintf("%s - (%s) | [%d]", c.Name, c.CollectionSlug, c.ID)
	}
	return fmt.Sprintf("%s | [%d]", c.Name, c.ID)
}
