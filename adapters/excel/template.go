package excel

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	"killay/internal/bulk"
)

const (
	// DefaultTemplateRows is the last row carrying input constraints
	DefaultTemplateRows = 1000

	choicesSheet    = "choices"
	inlineListLimit = 255
	maxSheetName    = 31
	excelMaxDate    = 2958465
)

// TemplateProvider builds the downloadable workbook of an action: the header
// row plus list and date constraints generated from live catalog data
type TemplateProvider struct {
	registry *bulk.Registry
	rows     int
	logger   *logrus.Entry
}

// NewTemplateProvider creates a provider constraining rows 2..rows
func NewTemplateProvider(registry *bulk.Registry, rows int, logger *logrus.Entry) *TemplateProvider {
	if rows < 2 {
		rows = DefaultTemplateRows
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &TemplateProvider{registry: registry, rows: rows, logger: logger.WithField("component", "template_provider")}
}

// Filename returns the download name for actionType
func (p *TemplateProvider) Filename(actionType string) (string, error) {
	if _, err := p.registry.Get(actionType); err != nil {
		return "", err
	}
	return bulk.TemplateFilename(actionType), nil
}

// Write renders the template of actionType to w
func (p *TemplateProvider) Write(ctx context.Context, actionType string, w io.Writer) error {
	f, err := p.Get(ctx, actionType)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write template: %w", err)
	}
	return nil
}

// Get builds the template workbook of actionType. The caller closes it.
func (p *TemplateProvider) Get(ctx context.Context, actionType string) (*excelize.File, error) {
	action, err := p.registry.Get(actionType)
	if err != nil {
		return nil, err
	}

	choices, err := p.fetchChoices(ctx, action.Schema)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := sheetName(actionType)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, err
	}

	if err := writeHeader(f, sheet, action.Headers()); err != nil {
		f.Close()
		return nil, err
	}

	w := &constraintWriter{f: f, sheet: sheet, rows: p.rows}
	for i, field := range action.Schema {
		switch {
		case choices[i] != nil:
			err = w.list(i+1, choices[i])
		case field.Accepts(bulk.TypeDate):
			err = w.date(i+1)
		}
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("constrain column %s: %w", field.Name, err)
		}
	}

	p.logger.WithFields(logrus.Fields{
		"action":  actionType,
		"columns": len(action.Schema),
	}).Debug("template built")
	return f, nil
}

// fetchChoices loads every bounded column's allowed values concurrently.
// Columns without a choice set get nil.
func (p *TemplateProvider) fetchChoices(ctx context.Context, schema bulk.Schema) ([][]string, error) {
	choices := make([][]string, len(schema))
	g, gctx := errgroup.WithContext(ctx)
	for i, field := range schema {
		switch {
		case field.Choices != nil:
			g.Go(func() error {
				values, err := field.Choices(gctx)
				if err != nil {
					return fmt.Errorf("choices for %s: %w", field.Name, err)
				}
				if values == nil {
					values = []string{}
				}
				choices[i] = values
				return nil
			})
		case field.Accepts(bulk.TypeBoolean):
			choices[i] = []string{"TRUE", "FALSE"}
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return choices, nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 20)
}

// constraintWriter attaches data validations to whole template columns
type constraintWriter struct {
	f         *excelize.File
	sheet     string
	rows      int
	spillCols int
}

func (w *constraintWriter) sqref(col int) (string, error) {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s2:%s%d", name, name, w.rows), nil
}

func (w *constraintWriter) list(col int, choices []string) error {
	if len(choices) == 0 {
		return nil
	}
	sqref, err := w.sqref(col)
	if err != nil {
		return err
	}
	dv := excelize.NewDataValidation(true)
	dv.Sqref = sqref

	if fitsInline(choices) {
		if err := dv.SetDropList(choices); err != nil {
			return err
		}
	} else {
		ref, err := w.spill(choices)
		if err != nil {
			return err
		}
		dv.SetSqrefDropList(ref)
	}
	return w.f.AddDataValidation(w.sheet, dv)
}

func (w *constraintWriter) date(col int) error {
	sqref, err := w.sqref(col)
	if err != nil {
		return err
	}
	dv := excelize.NewDataValidation(true)
	dv.Sqref = sqref
	if err := dv.SetRange(1, excelMaxDate, excelize.DataValidationTypeDate, excelize.DataValidationOperatorBetween); err != nil {
		return err
	}
	return w.f.AddDataValidation(w.sheet, dv)
}

// spill writes choices into the next column of the hidden choices sheet and
// returns the absolute range holding them
func (w *constraintWriter) spill(choices []string) (string, error) {
	if w.spillCols == 0 {
		if _, err := w.f.NewSheet(choicesSheet); err != nil {
			return "", err
		}
		if err := w.f.SetSheetVisible(choicesSheet, false); err != nil {
			return "", err
		}
	}
	w.spillCols++

	name, err := excelize.ColumnNumberToName(w.spillCols)
	if err != nil {
		return "", err
	}
	if err := w.f.SetSheetCol(choicesSheet, name+"1", &choices); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s!$%s$1:$%s$%d", choicesSheet, name, name, len(choices)), nil
}

// fitsInline reports whether an inline list formula can hold choices
func fitsInline(choices []string) bool {
	for _, c := range choices {
		if strings.ContainsAny(c, `,"`) {
			return false
		}
	}
	return len(utf16.Encode([]rune(strings.Join(choices, ",")))) <= inlineListLimit
}

func sheetName(actionType string) string {
	if len(actionType) > maxSheetName {
		return actionType[:maxSheetName]
	}
	return actionType
}
