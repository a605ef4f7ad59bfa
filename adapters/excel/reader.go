package excel

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"killay/internal/bulk"
)

// SheetReader reads the active sheet of an uploaded workbook. Cells keep
// their spreadsheet type: numbers, booleans and date formatted cells are not
// turned into text.
type SheetReader struct {
	logger *logrus.Entry
}

// NewSheetReader creates a workbook reader
func NewSheetReader(logger *logrus.Entry) *SheetReader {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &SheetReader{logger: logger.WithField("component", "sheet_reader")}
}

// Read returns one raw row per non blank data row, keyed by the header row
func (r *SheetReader) Read(in io.Reader) ([]bulk.RawRow, error) {
	startTime := time.Now()
	f, err := excelize.OpenReader(in)
	if err != nil {
		return nil, bulk.ErrWrongFile(err)
	}
	defer f.Close()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if sheet == "" {
		return nil, bulk.ErrWrongFile(fmt.Errorf("workbook has no active sheet"))
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, bulk.ErrWrongFile(err)
	}
	if len(rows) == 0 {
		return nil, bulk.ErrNoRows()
	}

	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	cells := newCellTyper(f, sheet)
	var data []bulk.RawRow
	for i := 1; i < len(rows); i++ {
		raw := make(bulk.RawRow, len(headers))
		blank := true
		for col, header := range headers {
			if header == "" {
				continue
			}
			var value any
			if col < len(rows[i]) {
				value, err = cells.value(col+1, i+1, rows[i][col])
				if err != nil {
					return nil, fmt.Errorf("read cell %s row %d: %w", header, i+1, err)
				}
			}
			raw[header] = value
			if !isFalsy(value) {
				blank = false
			}
		}
		if blank {
			continue
		}
		data = append(data, raw)
	}

	if len(data) == 0 {
		return nil, bulk.ErrNoRows()
	}

	r.logger.WithFields(logrus.Fields{
		"sheet":   sheet,
		"columns": len(headers),
		"rows":    len(data),
		"elapsed": time.Since(startTime).String(),
	}).Debug("workbook read")
	return data, nil
}

// isFalsy matches the cells a blank trailing row is made of
func isFalsy(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case bool:
		return !v
	case int64:
		return v == 0
	case float64:
		return v == 0
	}
	return false
}

// cellTyper restores the value type of raw cell text using the cell type and
// number format stored in the workbook
type cellTyper struct {
	f         *excelize.File
	sheet     string
	dateStyle map[int]bool
}

func newCellTyper(f *excelize.File, sheet string) *cellTyper {
	return &cellTyper{f: f, sheet: sheet, dateStyle: make(map[int]bool)}
}

func (c *cellTyper) value(col, row int, raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, err
	}
	cellType, err := c.f.GetCellType(c.sheet, cell)
	if err != nil {
		return nil, err
	}

	switch cellType {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "TRUE"), nil
	case excelize.CellTypeDate:
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t, nil
		}
		return raw, nil
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return raw, nil
		}
		isDate, err := c.isDateCell(cell)
		if err != nil {
			return nil, err
		}
		if isDate {
			t, err := excelize.ExcelDateToTime(n, false)
			if err != nil {
				return nil, err
			}
			return t, nil
		}
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i, nil
		}
		return n, nil
	}
	return raw, nil
}

func (c *cellTyper) isDateCell(cell string) (bool, error) {
	styleID, err := c.f.GetCellStyle(c.sheet, cell)
	if err != nil {
		return false, err
	}
	if isDate, ok := c.dateStyle[styleID]; ok {
		return isDate, nil
	}
	style, err := c.f.GetStyle(styleID)
	if err != nil {
		return false, err
	}
	isDate := isDateFormat(style)
	c.dateStyle[styleID] = isDate
	return isDate, nil
}

// isDateFormat recognises the built in date and time number formats and
// custom formats made of date tokens
func isDateFormat(style *excelize.Style) bool {
	if style == nil {
		return false
	}
	if style.CustomNumFmt != nil {
		format := strings.ToLower(*style.CustomNumFmt)
		return strings.Contains(format, "y") || strings.Contains(format, "d") ||
			strings.Contains(format, "h:mm") || strings.Contains(format, "mm:ss")
	}
	switch id := style.NumFmt; {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return false
}
