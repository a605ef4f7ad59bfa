package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"killay/adapters/excel"
	"killay/adapters/memory"
	"killay/domain/catalog"
	"killay/domain/core"
	"killay/internal/bulk"
	apperrors "killay/internal/errors"
	"killay/internal/metrics"
	"killay/internal/pieces"
)

type stubReader struct {
	rows []bulk.RawRow
	err  error
}

func (r *stubReader) Read(io.Reader) ([]bulk.RawRow, error) {
	return r.rows, r.err
}

type mockArchive struct {
	mock.Mock
}

func (m *mockArchive) Store(ctx context.Context, key string, content []byte) (string, error) {
	args := m.Called(ctx, key, content)
	return args.String(0), args.Error(1)
}

type countingPurger struct{ purges int }

func (p *countingPurger) Purge() { p.purges++ }

type harness struct {
	store    *memory.CatalogStore
	reader   *stubReader
	purger   *countingPurger
	recorder *metrics.Recorder
	service  *ImportService
	lima     catalog.Collection
}

func newHarness(t *testing.T, opts ...ImportServiceOption) *harness {
	t.Helper()
	logger, _ := test.NewNullLogger()
	entry := logrus.NewEntry(logger)

	h := &harness{
		store:    memory.NewCatalogStore(),
		reader:   &stubReader{},
		purger:   &countingPurger{},
		recorder: metrics.NewRecorder(),
	}
	h.lima = h.store.AddCollection(catalog.Collection{Name: "Fondo Lima", Slug: "fondo-lima"})

	registry := bulk.NewRegistry(pieces.NewCreateAction(h.store, nil, pieces.NewLinks("/admin")))
	templates := excel.NewTemplateProvider(registry, 10, entry)
	opts = append([]ImportServiceOption{WithCache(h.purger), WithMetrics(h.recorder)}, opts...)
	h.service = NewImportService(registry, h.reader, templates, entry, opts...)
	return h
}

func (h *harness) validRows(codes ...string) []bulk.RawRow {
	rows := make([]bulk.RawRow, len(codes))
	for i, code := range codes {
		rows[i] = bulk.RawRow{
			pieces.FieldCollection:  h.lima.ChoiceLabel(),
			pieces.FieldCode:        code,
			pieces.FieldTitle:       "Title",
			pieces.FieldIsPublished: true,
			pieces.FieldKind:        "IMAGE",
		}
	}
	return rows
}

func upload() *bulk.Upload {
	return &bulk.Upload{Filename: "pieces.xlsx", Data: []byte("workbook")}
}

// importsTotal reads killay_bulk_imports_total for action and result
func importsTotal(t *testing.T, r *metrics.Recorder, result string) float64 {
	t.Helper()
	families, err := r.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "killay_bulk_imports_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["action"] == pieces.ActionCreate && labels["result"] == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestActionsAndColumns(t *testing.T) {
	h := newHarness(t)

	actions := h.service.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, pieces.ActionCreate, actions[0].Type)
	assert.Equal(t, "template_piece_create.xlsx", actions[0].Template)

	guide, err := h.service.Columns(pieces.ActionCreate)
	require.NoError(t, err)
	assert.Len(t, guide.Required, 5)

	_, err = h.service.Columns("piece_delete")
	assert.Equal(t, apperrors.CodeUnknownAction, apperrors.GetCode(err))
}

func TestTemplate(t *testing.T) {
	h := newHarness(t)

	var buf bytes.Buffer
	filename, err := h.service.Template(context.Background(), pieces.ActionCreate, &buf)
	require.NoError(t, err)
	assert.Equal(t, "template_piece_create.xlsx", filename)
	assert.NotZero(t, buf.Len())

	_, err = h.service.Template(context.Background(), "nope", &buf)
	assert.ErrorIs(t, err, bulk.ErrUnknownAction)
}

func TestValidateWritesNothing(t *testing.T) {
	h := newHarness(t)
	h.reader.rows = h.validRows("pz-1", "pz-2")

	outcome, err := h.service.Validate(context.Background(), pieces.ActionCreate, upload())
	require.NoError(t, err)
	assert.Equal(t, 2, outcome.Rows)
	assert.NotEmpty(t, outcome.BatchID.String())
	assert.Zero(t, h.store.Counts().Pieces)
	assert.Zero(t, h.purger.purges)
}

func TestImportCommits(t *testing.T) {
	archive := &mockArchive{}
	h := newHarness(t, WithArchive(archive))
	h.reader.rows = h.validRows("pz-1", "pz-2")
	archive.On("Store", mock.Anything, mock.AnythingOfType("string"), []byte("workbook")).
		Return("s3://killay-imports/key.xlsx", nil).Once()

	outcome, err := h.service.Import(context.Background(), pieces.ActionCreate, upload())
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.Rows)
	assert.Len(t, outcome.Results, 2)
	assert.Equal(t, "s3://killay-imports/key.xlsx", outcome.Archive)
	assert.Equal(t, 2, h.store.Counts().Pieces)
	assert.Equal(t, 1, h.purger.purges)
	assert.Equal(t, 1.0, importsTotal(t, h.recorder, metrics.ResultCommitted))

	archive.AssertExpectations(t)
	key := archive.Calls[0].Arguments.String(1)
	assert.Equal(t, ArchiveKey(pieces.ActionCreate, outcome.BatchID), key)
}

func TestImportRejectsInvalidUpload(t *testing.T) {
	archive := &mockArchive{}
	h := newHarness(t, WithArchive(archive))
	rows := h.validRows("pz-1", "pz-1")
	rows[0][pieces.FieldKind] = "BIDEO"
	h.reader.rows = rows

	_, err := h.service.Import(context.Background(), pieces.ActionCreate, upload())

	var formErrs *bulk.FormErrors
	require.ErrorAs(t, err, &formErrs)
	assert.Equal(t, []string{
		"Row 1: kind: BIDEO is not a valid kind, must use: [VIDEO IMAGE SOUND DOCUMENT]",
	}, formErrs.Data)
	assert.Zero(t, h.store.Counts().Pieces)
	assert.Equal(t, 1.0, importsTotal(t, h.recorder, metrics.ResultRejected))
	archive.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
}

func TestImportMissingFile(t *testing.T) {
	h := newHarness(t)

	_, err := h.service.Import(context.Background(), pieces.ActionCreate, nil)
	var formErrs *bulk.FormErrors
	require.ErrorAs(t, err, &formErrs)
	assert.Equal(t, []string{bulk.MessageFileMissing}, formErrs.File)
}

func TestImportArchiveFailure(t *testing.T) {
	archive := &mockArchive{}
	h := newHarness(t, WithArchive(archive))
	h.reader.rows = h.validRows("pz-1")
	archive.On("Store", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("bucket gone"))

	_, err := h.service.Import(context.Background(), pieces.ActionCreate, upload())
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeExternalService, apperrors.GetCode(err))
	assert.Zero(t, h.store.Counts().Pieces)
	assert.Zero(t, h.purger.purges)
}

func TestImportRejectsReimport(t *testing.T) {
	h := newHarness(t)
	h.reader.rows = h.validRows("pz-1")

	// the same upload imported twice: the second run is rejected at validation
	_, err := h.service.Import(context.Background(), pieces.ActionCreate, upload())
	require.NoError(t, err)
	_, err = h.service.Import(context.Background(), pieces.ActionCreate, upload())
	var formErrs *bulk.FormErrors
	require.ErrorAs(t, err, &formErrs)
	assert.Equal(t, []string{"Row 1: code: pz-1 for code field already exist"}, formErrs.Data)
}

func TestArchiveKey(t *testing.T) {
	id, err := core.ParseBatchID("0190f3c4-6a52-7cc3-9b6e-1f1f0f6f2a10")
	require.NoError(t, err)
	assert.Equal(t, "imports/piece_create/0190f3c4-6a52-7cc3-9b6e-1f1f0f6f2a10.xlsx", ArchiveKey(pieces.ActionCreate, id))
}
