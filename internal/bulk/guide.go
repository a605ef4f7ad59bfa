package bulk

import (
	"fmt"
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

var formatDescriptions = map[FieldType]string{
	TypeText:      "Plain text",
	TypeBoolean:   "Only TRUE or FALSE",
	TypeInteger:   "Only numbers",
	TypeTime:      "Must be in this format: HH:MM:SS",
	TypeReference: "It can be the text suggested in the template or directly the ID number",
	TypeList:      `It allows a list of texts, they have to be separated by commas, like: "word,another-word"`,
}

// Column documents one spreadsheet column for operators
type Column struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Format      string `json:"format"`
	Required    bool   `json:"is_required"`
}

// ColumnGuide splits an action's columns into required and optional ones
type ColumnGuide struct {
	Action      string   `json:"action"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Template    string   `json:"template"`
	Required    []Column `json:"required_cols"`
	Optional    []Column `json:"non_required_cols"`
}

// Columns builds the guide for the action's declared fields
func (a *Action) Columns() ColumnGuide {
	coercer := a.Coercer
	if coercer == nil {
		coercer = NewCoercer(DefaultCoercionConfig())
	}
	guide := ColumnGuide{
		Action:      a.Type,
		Title:       a.Name,
		Description: a.Description,
		Template:    TemplateFilename(a.Type),
		Required:    []Column{},
		Optional:    []Column{},
	}
	for _, f := range a.Schema {
		col := Column{
			Name:        f.Name,
			Label:       f.Label,
			Description: f.Description,
			Format:      formatFor(f, coercer),
			Required:    f.Required,
		}
		if f.Required {
			guide.Required = append(guide.Required, col)
		} else {
			guide.Optional = append(guide.Optional, col)
		}
	}
	return guide
}

func formatFor(f Field, c *Coercer) string {
	parts := make([]string, 0, len(f.Types))
	for _, t := range f.Types {
		if t == TypeDate {
			parts = append(parts, "Must be in one of these formats: "+strings.Join(c.DateFormats(), ", "))
			continue
		}
		parts = append(parts, formatDescriptions[t])
	}
	return strings.Join(parts, " or ")
}

// Markdown renders the guide as a Markdown document
func (g ColumnGuide) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n\n", g.Title, g.Description)
	writeTable := func(title string, cols []Column) {
		if len(cols) == 0 {
			return
		}
		fmt.Fprintf(&b, "## %s\n\n", title)
		b.WriteString("| Column Name | Name | Description | Format |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, c := range cols {
			fmt.Fprintf(&b, "| `%s` | %s | %s | %s |\n", c.Name, escapeCell(c.Label), escapeCell(c.Description), escapeCell(c.Format))
		}
		b.WriteString("\n")
	}
	writeTable("Required Columns", g.Required)
	writeTable("Non Required Columns", g.Optional)
	fmt.Fprintf(&b, "## Download the template\n\nYou can download a template with all the fields usable by this bulk action: `%s`.\n", g.Template)
	return b.String()
}

// HTML renders the Markdown guide to an HTML fragment
func (g ColumnGuide) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(g.Markdown()))
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags | html.HrefTargetBlank})
	return markdown.Render(doc, renderer)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
