package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"wexport/internal/importer"
	"wexport/internal/infrastructure"
)

// ImportService parses uploaded spreadsheets
type ImportService struct {
	importer *importer.Importer
	metrics  *infrastructure.ExportMetrics
	logger   *slog.Logger
}

// NewImportService creates an import service. metrics may be nil.
func NewImportService(im *importer.Importer, metrics *infrastructure.ExportMetrics, logger *slog.Logger) *ImportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImportService{
		importer: im,
		metrics:  metrics,
		logger:   logger.With(slog.String("component", "import_service")),
	}
}

// Import parses an upload. Rejections from the importer (no file, unsupported
// type, too large) are returned as is; anything else wraps ErrImportFailed.
func (s *ImportService) Import(ctx context.Context, name string, r io.Reader, size int64) (*importer.Result, error) {
	fileType := importer.FileType(name)
	ctx, span := infrastructure.StartSpan(ctx, "import.parse",
		attribute.String("import.type", fileType),
		attribute.Int64("import.size", size))
	defer span.End()

	result, err := s.importer.Import(name, r, size)
	if err != nil {
		infrastructure.RecordError(ctx, err)
		if errors.Is(err, importer.ErrNoFile) ||
			errors.Is(err, importer.ErrUnsupportedFormat) ||
			errors.Is(err, importer.ErrFileTooLarge) {
			return nil, err
		}
		s.logger.WarnContext(ctx, "import failed",
			slog.String("name", name),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrImportFailed, err)
	}

	s.metrics.RecordImport(ctx, fileType, len(result.Rows))
	return result, nil
}
