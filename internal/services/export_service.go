package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"wexport/internal/config"
	"wexport/internal/downloads"
	"wexport/internal/exporter"
	"wexport/internal/files"
	"wexport/internal/infrastructure"
	"wexport/pkg/contracts/domain"
)

// Content types served for export downloads
const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// OrderSource is the host platform: orders plus the product catalog
type OrderSource interface {
	exporter.OrderStore
	exporter.Catalog
}

// ExportLog persists one entry per export run
type ExportLog interface {
	Record(ctx context.Context, e domain.ExportLogEntry) (int64, error)
	Recent(ctx context.Context, limit int) ([]domain.ExportLogEntry, error)
	Cleanup(ctx context.Context, cutoff time.Time) (int64, error)
	Stats(ctx context.Context) (domain.ExportStats, error)
}

// ExportResult describes a completed export run
type ExportResult struct {
	DownloadKey string              `json:"-"`
	Path        string              `json:"-"`
	FileName    string              `json:"file_name"`
	Rows        int                 `json:"rows"`
	Format      domain.ExportFormat `json:"format"`
	ExpiresAt   time.Time           `json:"expires_at,omitempty"`
}

// Download is a redeemed export file ready to be streamed
type Download struct {
	Path        string
	Name        string
	ContentType string
}

// CleanupResult reports what a maintenance pass removed
type CleanupResult struct {
	Files int   `json:"files"`
	Logs  int64 `json:"logs"`
}

// ExportService runs exports and manages their files, download keys and log
type ExportService struct {
	defaults   config.ExportDefaults
	normalizer *exporter.Normalizer
	source     OrderSource
	log        ExportLog
	files      *files.Manager
	downloads  *downloads.Registry
	metrics    *infrastructure.ExportMetrics
	logger     *slog.Logger
	now        func() time.Time
}

// NewExportService creates an export service. metrics may be nil.
func NewExportService(defaults config.ExportDefaults, source OrderSource, log ExportLog, fm *files.Manager, registry *downloads.Registry, metrics *infrastructure.ExportMetrics, logger *slog.Logger) *ExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportService{
		defaults:   defaults,
		normalizer: exporter.NewNormalizer(defaults),
		source:     source,
		log:        log,
		files:      fm,
		downloads:  registry,
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "export_service")),
		now:        time.Now,
	}
}

// Normalize turns a loosely typed request into a run configuration
func (s *ExportService) Normalize(req domain.ExportRequest) domain.ExportConfig {
	return s.normalizer.Normalize(req)
}

// Columns lists the selectable export columns with their labels
func (s *ExportService) Columns() []exporter.ColumnGroup {
	return exporter.AvailableColumns()
}

// Statuses lists the order statuses a request may filter on
func (s *ExportService) Statuses() []exporter.StatusOption {
	return exporter.OrderStatuses()
}

// Taxonomies lists the product taxonomies usable as custom code sources
func (s *ExportService) Taxonomies(ctx context.Context) ([]string, error) {
	names, err := s.source.Taxonomies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list taxonomies: %w", err)
	}
	return names, nil
}

// Preview renders the first batch of the request as CSV text
func (s *ExportService) Preview(ctx context.Context, req domain.ExportRequest) (string, error) {
	cfg := s.normalizer.NormalizePreview(req)

	ctx, span := infrastructure.StartSpan(ctx, "export.preview",
		attribute.String("export.mode", string(cfg.ExportMode)))
	defer span.End()

	s.metrics.RecordPreview(ctx)

	var buf bytes.Buffer
	if _, err := s.run(ctx, cfg, &buf, exporter.WithMaxBatches(1)); err != nil {
		infrastructure.RecordError(ctx, err)
		return "", fmt.Errorf("%w: %w", ErrPreviewFailed, err)
	}
	return buf.String(), nil
}

// Export runs the request into a new file under the exports directory and
// issues a one-shot download key for it
func (s *ExportService) Export(ctx context.Context, ownerID int64, req domain.ExportRequest) (*ExportResult, error) {
	cfg := s.normalizer.Normalize(req)
	start := s.now()

	f, path, err := s.files.Create(cfg.Format, start)
	if err != nil {
		return nil, s.fail(ctx, ownerID, cfg, start, fmt.Errorf("create export file: %w", err))
	}

	result, err := s.exportInto(ctx, ownerID, cfg, f, path, start)
	if err != nil {
		return nil, err
	}

	result.DownloadKey, result.ExpiresAt = s.downloads.Issue(path, ownerID)
	return result, nil
}

// ExportToFile runs the request into path; used by the CLI
func (s *ExportService) ExportToFile(ctx context.Context, ownerID int64, req domain.ExportRequest, path string) (*ExportResult, error) {
	cfg := s.normalizer.Normalize(req)
	start := s.now()

	f, err := os.Create(path)
	if err != nil {
		return nil, s.fail(ctx, ownerID, cfg, start, fmt.Errorf("create export file: %w", err))
	}
	return s.exportInto(ctx, ownerID, cfg, f, path, start)
}

// exportInto runs cfg into f, removing the file when the run fails
func (s *ExportService) exportInto(ctx context.Context, ownerID int64, cfg domain.ExportConfig, f *os.File, path string, start time.Time) (*ExportResult, error) {
	ctx, span := infrastructure.StartSpan(ctx, "export.run",
		attribute.String("export.format", string(cfg.Format)),
		attribute.String("export.mode", string(cfg.ExportMode)))
	defer span.End()

	rows, runErr := s.run(ctx, cfg, f)
	closeErr := f.Close()
	if runErr == nil && closeErr != nil {
		runErr = fmt.Errorf("close export file: %w", closeErr)
	}
	if runErr != nil {
		if err := s.files.DeleteFile(path); err != nil {
			s.logger.WarnContext(ctx, "failed to remove partial export file",
				slog.String("path", path),
				slog.String("error", err.Error()))
		}
		return nil, s.fail(ctx, ownerID, cfg, start, runErr)
	}

	s.record(ctx, domain.ExportLogEntry{
		ExportedAt:   start,
		Filters:      cfg.Summary(),
		FilePath:     path,
		RowsExported: rows,
		Format:       cfg.Format,
		UserID:       ownerID,
		Status:       domain.ExportStatusSuccess,
	})
	s.metrics.RecordExport(ctx, string(cfg.Format), rows, s.now().Sub(start), nil)
	span.SetAttributes(attribute.Int("export.rows", rows))

	s.logger.InfoContext(ctx, "export completed",
		slog.Int64("user_id", ownerID),
		slog.String("file", filepath.Base(path)),
		slog.Int("rows", rows),
		slog.String("format", string(cfg.Format)))

	return &ExportResult{
		Path:     path,
		FileName: filepath.Base(path),
		Rows:     rows,
		Format:   cfg.Format,
	}, nil
}

// run executes one pipeline over the configured source into w
func (s *ExportService) run(ctx context.Context, cfg domain.ExportConfig, w io.Writer, opts ...exporter.Option) (int, error) {
	serializer, err := exporter.NewSerializer(w, cfg)
	if err != nil {
		return 0, err
	}
	opts = append([]exporter.Option{exporter.WithLogger(s.logger)}, opts...)
	pipeline := exporter.NewPipeline(cfg, s.source, s.source, opts...)
	return pipeline.Run(ctx, serializer)
}

// fail records a failed run and returns the error callers see
func (s *ExportService) fail(ctx context.Context, ownerID int64, cfg domain.ExportConfig, start time.Time, err error) error {
	infrastructure.RecordError(ctx, err)
	s.metrics.RecordExport(ctx, string(cfg.Format), 0, s.now().Sub(start), err)

	s.logger.ErrorContext(ctx, "export failed",
		slog.Int64("user_id", ownerID),
		slog.Any("filters", cfg.Summary()),
		slog.Int("rows", 0),
		slog.String("error", err.Error()))

	s.record(ctx, domain.ExportLogEntry{
		ExportedAt:   start,
		Filters:      cfg.Summary(),
		Format:       cfg.Format,
		UserID:       ownerID,
		Status:       domain.ExportStatusError,
		ErrorMessage: err.Error(),
	})
	return fmt.Errorf("%w: %w", ErrExportFailed, err)
}

// record writes an export log entry; a logging failure never fails the run
func (s *ExportService) record(ctx context.Context, e domain.ExportLogEntry) {
	if s.log == nil {
		return
	}
	if _, err := s.log.Record(context.WithoutCancel(ctx), e); err != nil {
		s.logger.WarnContext(ctx, "failed to record export log",
			slog.String("status", string(e.Status)),
			slog.String("error", err.Error()))
	}
}

// Download redeems key and returns the file it stands for
func (s *ExportService) Download(ctx context.Context, key string) (*Download, error) {
	h, err := s.downloads.Redeem(key)
	if err != nil {
		s.metrics.RecordDownload(ctx, false)
		return nil, fmt.Errorf("%w: %w", ErrDownloadNotFound, err)
	}
	if !s.files.Contains(h.Path) || !s.files.FileExists(h.Path) {
		s.metrics.RecordDownload(ctx, false)
		s.logger.WarnContext(ctx, "download key points to a missing file",
			slog.String("path", h.Path))
		return nil, ErrFileNotFound
	}

	s.metrics.RecordDownload(ctx, true)
	name := filepath.Base(h.Path)
	return &Download{
		Path:        h.Path,
		Name:        name,
		ContentType: ContentType(name),
	}, nil
}

// ContentType returns the download content type for an export file name
func ContentType(name string) string {
	if filepath.Ext(name) == ".xlsx" {
		return ContentTypeXLSX
	}
	return ContentTypeCSV
}

// Logs returns the most recent export runs
func (s *ExportService) Logs(ctx context.Context, limit int) ([]domain.ExportLogEntry, error) {
	return s.log.Recent(ctx, limit)
}

// Stats aggregates the export log
func (s *ExportService) Stats(ctx context.Context) (domain.ExportStats, error) {
	return s.log.Stats(ctx)
}

// Cleanup removes export files past retention and old export log entries
func (s *ExportService) Cleanup(ctx context.Context) (CleanupResult, error) {
	var result CleanupResult

	if s.defaults.FileRetention > 0 {
		removed, err := s.files.Cleanup(s.defaults.FileRetention)
		if err != nil {
			return result, fmt.Errorf("clean up export files: %w", err)
		}
		result.Files = removed
	}

	if s.defaults.LogRetentionDays > 0 {
		cutoff := s.now().AddDate(0, 0, -s.defaults.LogRetentionDays)
		var err error
		if result.Logs, err = s.log.Cleanup(ctx, cutoff); err != nil {
			return result, fmt.Errorf("clean up export logs: %w", err)
		}
	}

	if result.Files > 0 || result.Logs > 0 {
		s.logger.InfoContext(ctx, "export cleanup completed",
			slog.Int("files", result.Files),
			slog.Int64("logs", result.Logs))
	}
	return result, nil
}

// RunMaintenance runs Cleanup every interval until ctx is done
func (s *ExportService) RunMaintenance(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.Cleanup(ctx); err != nil {
				s.logger.WarnContext(ctx, "export cleanup failed", slog.String("error", err.Error()))
			}
		}
	}
}
