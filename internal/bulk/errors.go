package bulk

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	apperrors "killay/internal/errors"
)

// File error messages shown to operators
const (
	MessageFileMissing = "This field is required."
	MessageFileEmpty   = "The submitted file is empty."
	MessageWrongFile   = "Wrong file extension, must be excel file"
	MessageNoRows      = "The file does not contain rows with data"
)

// ErrUnknownAction is returned for action types no registry entry declares
var ErrUnknownAction = apperrors.New(apperrors.CodeUnknownAction, "unknown bulk action")

// ErrNotValidated is returned by Form.Save when the form has not cleaned successfully
var ErrNotValidated = apperrors.New(apperrors.CodeValidationError, "bulk action form is not valid")

// FieldError is a validation failure scoped to one column
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ErrorReport maps a 0-based row index to its "field: message" entries.
// Helpers take a report and return it, allocating on first use.
type ErrorReport map[int][]string

// Add appends a field message under row
func (r ErrorReport) Add(row int, field, message string) ErrorReport {
	if r == nil {
		r = ErrorReport{}
	}
	r[row] = append(r[row], field+": "+message)
	return r
}

// AddError appends an error under row, keeping field scoping when present
func (r ErrorReport) AddError(row int, err error) ErrorReport {
	var fe *FieldError
	if errors.As(err, &fe) {
		return r.Add(row, fe.Field, fe.Message)
	}
	if r == nil {
		r = ErrorReport{}
	}
	r[row] = append(r[row], err.Error())
	return r
}

// Rows returns the failing row indexes in ascending order
func (r ErrorReport) Rows() []int {
	rows := make([]int, 0, len(r))
	for row := range r {
		rows = append(rows, row)
	}
	sort.Ints(rows)
	return rows
}

// Lines formats the report as "Row N: msg;msg" with 1-based row numbers
func (r ErrorReport) Lines() []string {
	lines := make([]string, 0, len(r))
	for _, row := range r.Rows() {
		lines = append(lines, fmt.Sprintf("Row %d: %s", row+1, strings.Join(r[row], ";")))
	}
	return lines
}

// FileError is an upload level failure, reported once rather than per row
type FileError struct {
	Code    string
	Message string
	Cause   error
}

func (e *FileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *FileError) Unwrap() error {
	return e.Cause
}

// NewFileError builds a file error with the code matching message
func NewFileError(code, message string, cause error) *FileError {
	return &FileError{Code: code, Message: message, Cause: cause}
}

// ErrFileMissing reports a form submitted without a workbook
func ErrFileMissing() *FileError {
	return NewFileError(apperrors.CodeFileMissing, MessageFileMissing, nil)
}

// ErrFileEmpty reports a zero byte upload
func ErrFileEmpty() *FileError {
	return NewFileError(apperrors.CodeFileEmpty, MessageFileEmpty, nil)
}

// ErrWrongFile reports an upload that is not a workbook
func ErrWrongFile(cause error) *FileError {
	return NewFileError(apperrors.CodeFileWrong, MessageWrongFile, cause)
}

// ErrNoRows reports a workbook without data rows
func ErrNoRows() *FileError {
	return NewFileError(apperrors.CodeFileEmpty, MessageNoRows, nil)
}

// ValidationError carries the full report of a failed batch
type ValidationError struct {
	Report ErrorReport
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d row(s): %s", len(e.Report), strings.Join(e.Report.Lines(), " | "))
}

// ExecutionKindUnknown is the kind attached to every wrapped execution failure
const ExecutionKindUnknown = "unknown"

// ExecutionError wraps any failure of the transactional write phase
type ExecutionError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Kind    string `json:"type"`
	Cause   error  `json:"-"`
}

func (e *ExecutionError) Error() string {
	return e.Message
}

func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// FormErrors splits form failures into file level and data level messages
type FormErrors struct {
	File []string `json:"file_errors,omitempty"`
	Data []string `json:"data_errors,omitempty"`

	fileCode string
}

func fileFormErrors(err *FileError) *FormErrors {
	return &FormErrors{File: []string{err.Message}, fileCode: err.Code}
}

func (e *FormErrors) Error() string {
	all := append(append([]string{}, e.File...), e.Data...)
	return strings.Join(all, "; ")
}

// Empty reports whether no error was recorded
func (e *FormErrors) Empty() bool {
	return len(e.File) == 0 && len(e.Data) == 0
}

// Code maps the failure to an application error code: the file error code
// when the upload itself was rejected
func (e *FormErrors) Code() string {
	if len(e.File) > 0 {
		if e.fileCode != "" {
			return e.fileCode
		}
		return apperrors.CodeInvalidInput
	}
	return apperrors.CodeValidationError
}
