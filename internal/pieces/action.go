// Package pieces declares the piece_create bulk action.
package pieces

import (
	"context"
	"fmt"
	"regexp"

	"killay/domain/catalog"
	"killay/internal/bulk"
	"killay/ports"
)

// ActionCreate is the action type key for bulk piece creation
const ActionCreate = "piece_create"

const (
	actionName        = "Bulk Create Pieces"
	actionDescription = "This tool allows you to load an excel file with a series of pieces to be created. " +
		"You can only add fields that do not involve uploading files (images, documents, sounds, files, etc.), " +
		"the remaining fields must be updated piece by piece."
)

// Column names
const (
	FieldCollection      = "collection"
	FieldCategory        = "category"
	FieldCode            = "code"
	FieldTitle           = "title"
	FieldIsPublished     = "is_published"
	FieldKind            = "kind"
	FieldPeople          = "people"
	FieldKeywords        = "keywords"
	FieldIsRestricted    = "is_restricted"
	FieldVideoURL        = "video_url"
	FieldEvent           = "event"
	FieldDescription     = "description"
	FieldDescriptionDate = "description_date"
	FieldLocation        = "location"
	FieldDuration        = "duration"
	FieldRegisterDate    = "register_date"
	FieldRegisterAuthor  = "register_author"
	FieldProductor       = "productor"
	FieldNotes           = "notes"
	FieldArchivistNotes  = "archivist_notes"
	FieldDocumentaryUnit = "documentary_unit"
	FieldLang            = "lang"
	FieldOriginalFormat  = "original_format"
)

var slugPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-_]*[a-zA-Z0-9]$`)

// NewCreateAction wires the piece_create action to the catalog store.
// choices feeds template lists and may be a cached view of repo.
func NewCreateAction(repo ports.CatalogRepository, choices ports.ChoiceSource, links Links) *bulk.Action {
	if choices == nil {
		choices = repo
	}
	exec := &executor{repo: repo, links: links}
	return &bulk.Action{
		Type:        ActionCreate,
		Name:        actionName,
		Description: actionDescription,
		Schema:      Schema(choices),
		Store:       storeValidation(repo),
		Execute:     exec.execute,
		Transactor:  repo,
		Coercer:     bulk.NewCoercer(bulk.DefaultCoercionConfig()),
	}
}

// Schema declares the piece_create columns in template order
func Schema(choices ports.ChoiceSource) bulk.Schema {
	text := []bulk.FieldType{bulk.TypeText}
	boolean := []bulk.FieldType{bulk.TypeBoolean}
	date := []bulk.FieldType{bulk.TypeDate}
	list := []bulk.FieldType{bulk.TypeList}
	reference := []bulk.FieldType{bulk.TypeReference}

	return bulk.Schema{
		{
			Name: FieldCollection, Types: reference, Required: true,
			Choices: collectionChoices(choices),
			Label:   "Collection", Description: "Collection the piece belongs to",
		},
		{
			Name: FieldCategory, Types: reference,
			Choices: categoryChoices(choices),
			Label:   "Category", Description: "Category of the piece, it must belong to the same collection",
		},
		{
			Name: FieldCode, Types: text, Required: true, Validate: validateCode,
			Label: "Code", Description: "Unique code of the piece, used in its URL",
		},
		{Name: FieldTitle, Types: text, Required: true, Label: "Title", Description: "Title of the piece"},
		{Name: FieldIsPublished, Types: boolean, Required: true, Label: "Is published", Description: "Whether the piece is visible in the public site"},
		{
			Name: FieldKind, Types: text, Required: true, Validate: validateKind,
			Choices: kindChoices,
			Label:   "Kind", Description: "Media kind of the piece",
		},
		{Name: FieldPeople, Types: list, Label: "People", Description: "People related to the piece, created when missing"},
		{Name: FieldKeywords, Types: list, Label: "Keywords", Description: "Keywords of the piece, created when missing"},
		{Name: FieldIsRestricted, Types: boolean, Label: "Is restricted", Description: "Whether the piece requires authorization to be viewed"},
		{
			Name: FieldVideoURL, Types: text, Validate: validateVideoURL,
			Label: "Video URL", Description: "Video URL from Youtube or Vimeo, like https://www.youtube.com/watch?v=CODE",
		},
		{Name: FieldEvent, Types: text, Label: "Event"},
		{Name: FieldDescription, Types: text, Label: "Description"},
		{Name: FieldDescriptionDate, Types: date, Label: "Description date", Description: "Date the description refers to"},
		{Name: FieldLocation, Types: text, Label: "Location"},
		{Name: FieldDuration, Types: []bulk.FieldType{bulk.TypeTime}, Label: "Duration"},
		{Name: FieldRegisterDate, Types: date, Label: "Register date", Description: "Date the piece was registered"},
		{Name: FieldRegisterAuthor, Types: text, Label: "Register author"},
		{Name: FieldProductor, Types: text, Label: "Productor"},
		{Name: FieldNotes, Types: text, Label: "Notes"},
		{Name: FieldArchivistNotes, Types: text, Label: "Archivist notes"},
		{Name: FieldDocumentaryUnit, Types: text, Label: "Documentary unit"},
		{Name: FieldLang, Types: text, Label: "Language"},
		{Name: FieldOriginalFormat, Types: text, Label: "Original format"},
	}
}

func validateCode(value any) (any, error) {
	code, _ := value.(string)
	if !slugPattern.MatchString(code) {
		return nil, &bulk.FieldError{
			Field:   FieldCode,
			Message: fmt.Sprintf(`%s field must be slug (only letters, numbers and "-" or "_").`, FieldCode),
		}
	}
	return code, nil
}

func validateKind(value any) (any, error) {
	kind, _ := value.(string)
	if !catalog.Kind(kind).IsValid() {
		return nil, fmt.Errorf("%s is not a valid kind, must use: %v", kind, catalog.Kinds)
	}
	return kind, nil
}

func validateVideoURL(value any) (any, error) {
	raw, _ := value.(string)
	if _, ok := parseVideoURL(raw); !ok {
		return nil, fmt.Errorf("%s is not a correct URL", raw)
	}
	if _, ok := DetectProvider(raw); !ok {
		return nil, fmt.Errorf(`url "%s" is not from a known provider, must be: %v`, raw, catalog.ProviderNames)
	}
	return raw, nil
}

func kindChoices(context.Context) ([]string, error) {
	kinds := make([]string, len(catalog.Kinds))
	for i, k := range catalog.Kinds {
		kinds[i] = string(k)
	}
	return kinds, nil
}

func collectionChoices(source ports.ChoiceSource) bulk.ChoiceFunc {
	return func(ctx context.Context) ([]string, error) {
		collections, err := source.ListCollections(ctx)
		if err != nil {
			return nil, err
		}
		labels := make([]string, len(collections))
		for i := range collections {
			labels[i] = collections[i].ChoiceLabel()
		}
		return labels, nil
	}
}

func categoryChoices(source ports.ChoiceSource) bulk.ChoiceFunc {
	return func(ctx context.Context) ([]string, error) {
		categories, err := source.ListCategories(ctx)
		if err != nil {
			return nil, err
		}
		labels := make([]string, len(categories))
		for i := range categories {
			labels[i] = categories[i].ChoiceLabel()
		}
		return labels, nil
	}
}
