package bulk

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	apperrors "killay/internal/errors"
)

// SheetReader turns workbook bytes into header keyed rows. It returns a
// *FileError for unreadable or empty workbooks.
type SheetReader interface {
	Read(r io.Reader) ([]RawRow, error)
}

// Upload is a submitted spreadsheet held in memory
type Upload struct {
	Filename string
	Data     []byte
}

// Form validates one upload for one action. Save is a separate step and is
// refused until Clean has succeeded.
type Form struct {
	action *Action
	reader SheetReader
	upload *Upload
	logger *logrus.Entry

	cleaned bool
	rows    []Row
	errs    *FormErrors
}

// NewForm binds an upload to the named action; upload may be nil
func NewForm(registry *Registry, actionType string, upload *Upload, reader SheetReader, logger *logrus.Entry) (*Form, error) {
	action, err := registry.Get(actionType)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Form{
		action: action,
		reader: reader,
		upload: upload,
		logger: logger.WithField("action", actionType),
	}, nil
}

// Action returns the bound action
func (f *Form) Action() *Action {
	return f.action
}

// IsValid cleans the form if needed and reports success
func (f *Form) IsValid(ctx context.Context) bool {
	_, err := f.Clean(ctx)
	return err == nil
}

// Errors returns the errors of the last Clean, or nil
func (f *Form) Errors() *FormErrors {
	return f.errs
}

// Clean reads and validates the upload once. Operator facing problems come
// back as *FormErrors; anything else is an infrastructure failure.
func (f *Form) Clean(ctx context.Context) ([]Row, error) {
	if f.cleaned {
		if f.errs != nil {
			return nil, f.errs
		}
		return f.rows, nil
	}

	rows, err := f.clean(ctx)
	var formErrs *FormErrors
	if errors.As(err, &formErrs) {
		f.cleaned = true
		f.errs = formErrs
		f.logger.WithFields(logrus.Fields{
			"file_errors": len(formErrs.File),
			"data_errors": len(formErrs.Data),
		}).Info("bulk action upload rejected")
		return nil, formErrs
	}
	if err != nil {
		return nil, err
	}

	f.cleaned = true
	f.rows = rows
	f.logger.WithField("rows", len(rows)).Info("bulk action upload validated")
	return rows, nil
}

func (f *Form) clean(ctx context.Context) ([]Row, error) {
	if f.upload == nil {
		return nil, fileFormErrors(ErrFileMissing())
	}
	if len(f.upload.Data) == 0 {
		return nil, fileFormErrors(ErrFileEmpty())
	}

	raw, err := f.reader.Read(bytes.NewReader(f.upload.Data))
	if err != nil {
		var fileErr *FileError
		if errors.As(err, &fileErr) {
			return nil, fileFormErrors(fileErr)
		}
		return nil, apperrors.Wrap(err, "read upload")
	}
	if len(raw) == 0 {
		return nil, fileFormErrors(ErrNoRows())
	}

	rows, err := f.action.Validator().Validate(ctx, raw)
	if err != nil {
		var validationErr *ValidationError
		if errors.As(err, &validationErr) {
			return nil, &FormErrors{Data: validationErr.Report.Lines()}
		}
		return nil, apperrors.WithCode(apperrors.CodeDatabaseError, err)
	}
	return rows, nil
}

// Rows returns the validated rows after a successful Clean
func (f *Form) Rows() []Row {
	return f.rows
}

// Save runs the action's executor over the validated rows
func (f *Form) Save(ctx context.Context) ([]Result, error) {
	if !f.cleaned || f.errs != nil {
		return nil, ErrNotValidated
	}
	return f.action.Executor(f.logger).Run(ctx, f.rows)
}

// Columns returns the column guide of the bound action
func (f *Form) Columns() ColumnGuide {
	return f.action.Columns()
}
