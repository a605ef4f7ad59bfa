package bulk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	first := &Action{Type: "piece_create", Name: "Create Pieces"}
	second := &Action{Type: "person_create", Name: "Create People"}
	replacement := &Action{Type: "piece_create", Name: "Create Pieces v2"}

	r := NewRegistry(first, second, replacement)

	actions := r.Actions()
	require.Len(t, actions, 2)
	assert.Equal(t, "piece_create", actions[0].Type)
	assert.Equal(t, "Create Pieces v2", actions[0].Name)
	assert.Equal(t, "person_create", actions[1].Type)

	got, err := r.Get("person_create")
	require.NoError(t, err)
	assert.Same(t, second, got)

	_, err = r.Get("nope")
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Contains(t, err.Error(), `"nope"`)
}

func TestTemplateFilename(t *testing.T) {
	assert.Equal(t, "template_piece_create.xlsx", TemplateFilename("piece_create"))
}

func guideAction() *Action {
	return &Action{
		Type:        "piece_create",
		Name:        "Create Pieces",
		Description: "Creates pieces from a spreadsheet",
		Schema: Schema{
			{Name: "code", Types: []FieldType{TypeText}, Required: true, Label: "Code", Description: "Unique code"},
			{Name: "register_date", Types: []FieldType{TypeDate}, Label: "Register date"},
			{Name: "category", Types: []FieldType{TypeReference}, Label: "Category", Description: "a | b"},
			{Name: "archive", Types: []FieldType{TypeInteger, TypeText}, Label: "Archive"},
		},
	}
}

func TestColumnGuide(t *testing.T) {
	a := guideAction()
	guide := a.Columns()

	assert.Equal(t, "piece_create", guide.Action)
	assert.Equal(t, "Create Pieces", guide.Title)
	assert.Equal(t, "template_piece_create.xlsx", guide.Template)
	assert.Equal(t, []string{"code", "register_date", "category", "archive"}, a.Headers())

	require.Len(t, guide.Required, 1)
	assert.Equal(t, Column{Name: "code", Label: "Code", Description: "Unique code", Format: "Plain text", Required: true}, guide.Required[0])

	require.Len(t, guide.Optional, 3)
	assert.Equal(t, "Must be in one of these formats: YYYY-MM-DD, YYYY/MM/DD, DD-MM-YYYY, DD/MM/YYYY", guide.Optional[0].Format)
	assert.Equal(t, "It can be the text suggested in the template or directly the ID number", guide.Optional[1].Format)
	assert.Equal(t, "Only numbers or Plain text", guide.Optional[2].Format)
}

func TestColumnGuideWithoutOptionalColumns(t *testing.T) {
	a := &Action{Type: "t", Name: "T", Schema: Schema{{Name: "code", Types: []FieldType{TypeText}, Required: true}}}
	guide := a.Columns()
	assert.NotNil(t, guide.Optional)
	assert.Empty(t, guide.Optional)
	assert.NotContains(t, guide.Markdown(), "Non Required Columns")
}

func TestGuideMarkdownAndHTML(t *testing.T) {
	guide := guideAction().Columns()

	md := guide.Markdown()
	assert.Contains(t, md, "# Create Pieces")
	assert.Contains(t, md, "## Required Columns")
	assert.Contains(t, md, "## Non Required Columns")
	assert.Contains(t, md, "| `code` | Code | Unique code | Plain text |")
	assert.Contains(t, md, `a \| b`)
	assert.Contains(t, md, "`template_piece_create.xlsx`")

	html := string(guide.HTML())
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<code>code</code>")
	assert.Contains(t, html, `id="required-columns"`)
	assert.Contains(t, html, "Create Pieces</h1>")
}
