package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"killay/domain/core"
	"killay/internal/bulk"
	apperrors "killay/internal/errors"
	"killay/internal/metrics"
	"killay/ports"
)

// TemplateWriter renders action templates
type TemplateWriter interface {
	Filename(actionType string) (string, error)
	Write(ctx context.Context, actionType string, w io.Writer) error
}

// Purger drops cached catalog listings after the catalog changed
type Purger interface {
	Purge()
}

// ImportService runs bulk actions end to end: read, validate, archive, execute
type ImportService struct {
	registry  *bulk.Registry
	reader    bulk.SheetReader
	templates TemplateWriter
	archive   ports.UploadArchive
	cache     Purger
	metrics   *metrics.Recorder
	logger    *logrus.Entry
}

// ImportServiceOption customises an ImportService
type ImportServiceOption func(*ImportService)

// WithArchive stores every accepted upload before it is executed
func WithArchive(archive ports.UploadArchive) ImportServiceOption {
	return func(s *ImportService) { s.archive = archive }
}

// WithCache purges cache after each committed import
func WithCache(cache Purger) ImportServiceOption {
	return func(s *ImportService) { s.cache = cache }
}

// WithMetrics records import outcomes on recorder
func WithMetrics(recorder *metrics.Recorder) ImportServiceOption {
	return func(s *ImportService) { s.metrics = recorder }
}

// NewImportService creates an import service
func NewImportService(registry *bulk.Registry, reader bulk.SheetReader, templates TemplateWriter, logger *logrus.Entry, opts ...ImportServiceOption) *ImportService {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &ImportService{
		registry:  registry,
		reader:    reader,
		templates: templates,
		logger:    logger.WithField("component", "import_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ActionInfo names a registered action
type ActionInfo struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Template    string `json:"template"`
}

// ValidationOutcome is the result of a dry run
type ValidationOutcome struct {
	BatchID core.BatchID `json:"batch_id"`
	Action  string       `json:"action"`
	Rows    int          `json:"rows"`
}

// ImportOutcome is the result of a committed import
type ImportOutcome struct {
	BatchID  core.BatchID  `json:"batch_id"`
	Action   string        `json:"action"`
	Rows     int           `json:"rows"`
	Archive  string        `json:"archive,omitempty"`
	Results  []bulk.Result `json:"results"`
	Duration time.Duration `json:"duration_ns"`
}

// Actions lists the registered actions
func (s *ImportService) Actions() []ActionInfo {
	actions := s.registry.Actions()
	infos := make([]ActionInfo, len(actions))
	for i, a := range actions {
		infos[i] = ActionInfo{
			Type:        a.Type,
			Name:        a.Name,
			Description: a.Description,
			Template:    bulk.TemplateFilename(a.Type),
		}
	}
	return infos
}

// Columns returns the column guide of actionType
func (s *ImportService) Columns(actionType string) (bulk.ColumnGuide, error) {
	action, err := s.registry.Get(actionType)
	if err != nil {
		return bulk.ColumnGuide{}, err
	}
	return action.Columns(), nil
}

// Template writes the template workbook of actionType to w and returns its filename
func (s *ImportService) Template(ctx context.Context, actionType string, w io.Writer) (string, error) {
	filename, err := s.templates.Filename(actionType)
	if err != nil {
		return "", err
	}
	if err := s.templates.Write(ctx, actionType, w); err != nil {
		return "", apperrors.Wrapf(err, "build template for %s", actionType)
	}
	s.metrics.ObserveTemplate(actionType)
	return filename, nil
}

// Validate reads and validates upload without writing anything. Operator
// mistakes are returned as *bulk.FormErrors.
func (s *ImportService) Validate(ctx context.Context, actionType string, upload *bulk.Upload) (*ValidationOutcome, error) {
	batchID := core.NewBatchID()
	logger := s.logger.WithFields(logrus.Fields{"action": actionType, "batch_id": batchID})

	form, err := bulk.NewForm(s.registry, actionType, upload, s.reader, logger)
	if err != nil {
		return nil, err
	}
	rows, err := form.Clean(ctx)
	if err != nil {
		return nil, err
	}
	return &ValidationOutcome{BatchID: batchID, Action: actionType, Rows: len(rows)}, nil
}

// Import validates upload and, when every row is valid, archives it and
// creates all records in one transaction
func (s *ImportService) Import(ctx context.Context, actionType string, upload *bulk.Upload) (*ImportOutcome, error) {
	start := time.Now()
	batchID := core.NewBatchID()
	logger := s.logger.WithFields(logrus.Fields{"action": actionType, "batch_id": batchID})

	form, err := bulk.NewForm(s.registry, actionType, upload, s.reader, logger)
	if err != nil {
		return nil, err
	}

	rows, err := form.Clean(ctx)
	if err != nil {
		var formErrs *bulk.FormErrors
		if errors.As(err, &formErrs) {
			s.metrics.ObserveImport(actionType, metrics.ResultRejected, len(formErrs.Data), time.Since(start))
		}
		return nil, err
	}

	outcome := &ImportOutcome{BatchID: batchID, Action: actionType, Rows: len(rows)}
	if s.archive != nil {
		location, err := s.archive.Store(ctx, ArchiveKey(actionType, batchID), upload.Data)
		if err != nil {
			return nil, apperrors.ExternalServiceError("upload archive", err)
		}
		outcome.Archive = location
		logger.WithField("archive", location).Debug("upload archived")
	}

	results, err := form.Save(ctx)
	if err != nil {
		s.metrics.ObserveImport(actionType, metrics.ResultAborted, len(rows), time.Since(start))
		logger.WithError(err).Error("bulk import aborted")
		return nil, err
	}

	if s.cache != nil {
		s.cache.Purge()
	}
	outcome.Results = results
	outcome.Duration = time.Since(start)
	s.metrics.ObserveImport(actionType, metrics.ResultCommitted, len(rows), outcome.Duration)
	logger.WithFields(logrus.Fields{
		"rows":    len(rows),
		"elapsed": outcome.Duration.String(),
	}).Info("bulk import committed")
	return outcome, nil
}

// ArchiveKey is the object key of an archived upload
func ArchiveKey(actionType string, batchID core.BatchID) string {
	return fmt.Sprintf("imports/%s/%s.xlsx", actionType, batchID)
}
