package bulk

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "killay/internal/errors"
)

type mockSheetReader struct {
	mock.Mock
}

func (m *mockSheetReader) Read(r io.Reader) ([]RawRow, error) {
	args := m.Called(r)
	rows, _ := args.Get(0).([]RawRow)
	return rows, args.Error(1)
}

func testAction(tx Transactor) *Action {
	return &Action{
		Type:       "piece_create",
		Name:       "Create Pieces",
		Schema:     testSchema(),
		Transactor: tx,
		Execute: func(ctx context.Context, rows []Row) ([]Result, error) {
			results := make([]Result, len(rows))
			for i, row := range rows {
				stage(ctx, row.String("code"))
				results[i] = Result{Row: row.Index}
			}
			return results, nil
		},
	}
}

func newTestForm(t *testing.T, upload *Upload, reader SheetReader, tx Transactor) *Form {
	t.Helper()
	form, err := NewForm(NewRegistry(testAction(tx)), "piece_create", upload, reader, quietLogger())
	require.NoError(t, err)
	return form
}

func workbook() *Upload {
	return &Upload{Filename: "pieces.xlsx", Data: []byte("xlsx bytes")}
}

func TestFormUnknownAction(t *testing.T) {
	_, err := NewForm(NewRegistry(), "piece_delete", workbook(), &mockSheetReader{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Equal(t, apperrors.CodeUnknownAction, apperrors.GetCode(err))
}

func TestFormMissingAndEmptyFile(t *testing.T) {
	reader := &mockSheetReader{}

	form := newTestForm(t, nil, reader, &fakeTx{})
	_, err := form.Clean(context.Background())
	var formErrs *FormErrors
	require.ErrorAs(t, err, &formErrs)
	assert.Equal(t, []string{MessageFileMissing}, formErrs.File)
	assert.Equal(t, apperrors.CodeFileMissing, formErrs.Code())

	form = newTestForm(t, &Upload{Filename: "empty.xlsx"}, reader, &fakeTx{})
	assert.False(t, form.IsValid(context.Background()))
	assert.Equal(t, []string{MessageFileEmpty}, form.Errors().File)
	assert.Equal(t, apperrors.CodeFileEmpty, form.Errors().Code())

	reader.AssertNotCalled(t, "Read", mock.Anything)
}

func TestFormFileErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		rows []RawRow
		want string
		code string
	}{
		{name: "wrong file", err: ErrWrongFile(errors.New("zip: not a valid zip file")), want: MessageWrongFile, code: apperrors.CodeFileWrong},
		{name: "no data rows", err: ErrNoRows(), want: MessageNoRows, code: apperrors.CodeFileEmpty},
		{name: "reader returns nothing", rows: []RawRow{}, want: MessageNoRows, code: apperrors.CodeFileEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &mockSheetReader{}
			reader.On("Read", mock.Anything).Return(tt.rows, tt.err).Once()

			form := newTestForm(t, workbook(), reader, &fakeTx{})
			_, err := form.Clean(context.Background())

			var formErrs *FormErrors
			require.ErrorAs(t, err, &formErrs)
			assert.Equal(t, []string{tt.want}, formErrs.File)
			assert.Equal(t, tt.code, formErrs.Code())
			assert.Empty(t, formErrs.Data)
			reader.AssertExpectations(t)
		})
	}
}

func TestFormReaderFailure(t *testing.T) {
	reader := &mockSheetReader{}
	reader.On("Read", mock.Anything).Return(nil, errors.New("disk full"))

	form := newTestForm(t, workbook(), reader, &fakeTx{})
	_, err := form.Clean(context.Background())
	require.Error(t, err)

	var formErrs *FormErrors
	assert.False(t, errors.As(err, &formErrs))
	assert.Contains(t, err.Error(), "disk full")
}

func TestFormDataErrorsRefuseSave(t *testing.T) {
	reader := &mockSheetReader{}
	reader.On("Read", mock.Anything).Return([]RawRow{
		{"code": "a1"},
		{"is_published": "nope"},
	}, nil).Once()
	tx := &fakeTx{}

	form := newTestForm(t, workbook(), reader, tx)
	_, err := form.Clean(context.Background())

	var formErrs *FormErrors
	require.ErrorAs(t, err, &formErrs)
	assert.Empty(t, formErrs.File)
	assert.Equal(t, []string{`Row 2: code: code field is required;is_published: Must be "TRUE" or "FALSE"`}, formErrs.Data)
	assert.Equal(t, apperrors.CodeValidationError, formErrs.Code())

	_, err = form.Clean(context.Background())
	assert.Same(t, formErrs, err, "clean runs once")

	_, err = form.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotValidated)
	assert.Empty(t, tx.committed)
	reader.AssertExpectations(t)
}

func TestFormSave(t *testing.T) {
	reader := &mockSheetReader{}
	reader.On("Read", mock.Anything).Return([]RawRow{{"code": "a1"}, {"code": "a2"}}, nil).Once()
	tx := &fakeTx{}

	form := newTestForm(t, workbook(), reader, tx)

	_, err := form.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotValidated, "save requires a clean first")

	require.True(t, form.IsValid(context.Background()))
	assert.Len(t, form.Rows(), 2)

	results, err := form.Save(context.Background())
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, []string{"a1", "a2"}, tx.committed)
}

func TestFormErrorsMessage(t *testing.T) {
	errs := &FormErrors{File: []string{"f"}, Data: []string{"Row 1: x", "Row 2: y"}}
	assert.Equal(t, "f; Row 1: x; Row 2: y", errs.Error())
	assert.False(t, errs.Empty())
	assert.True(t, (&FormErrors{}).Empty())
}
