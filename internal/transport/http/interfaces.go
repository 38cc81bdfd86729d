package http

import (
	"context"
	"io"

	"wexport/internal/exporter"
	"wexport/internal/importer"
	"wexport/internal/services"
	"wexport/pkg/contracts/domain"
)

// ExportServiceInterface defines the export operations used by the handlers
type ExportServiceInterface interface {
	Normalize(req domain.ExportRequest) domain.ExportConfig
	Preview(ctx context.Context, req domain.ExportRequest) (string, error)
	Export(ctx context.Context, ownerID int64, req domain.ExportRequest) (*services.ExportResult, error)
	Download(ctx context.Context, key string) (*services.Download, error)
	Logs(ctx context.Context, limit int) ([]domain.ExportLogEntry, error)
	Stats(ctx context.Context) (domain.ExportStats, error)
	Columns() []exporter.ColumnGroup
	Statuses() []exporter.StatusOption
	Taxonomies(ctx context.Context) ([]string, error)
}

// TemplateServiceInterface defines the template operations used by the handlers
type TemplateServiceInterface interface {
	List(ctx context.Context, ownerID int64) ([]domain.Template, error)
	Get(ctx context.Context, ownerID int64, id string) (domain.Template, error)
	Save(ctx context.Context, ownerID int64, name string, cfg domain.ExportConfig, id string) (domain.TemplateSummary, error)
	Delete(ctx context.Context, ownerID int64, id string) error
	Duplicate(ctx context.Context, ownerID int64, id, newName string) (domain.TemplateSummary, error)
	Rename(ctx context.Context, ownerID int64, id, name string) (domain.TemplateSummary, error)
	SetDefault(ctx context.Context, ownerID int64, id string) error
	Default(ctx context.Context, ownerID int64) (domain.Template, error)
	Export(ctx context.Context, ownerID int64, ids []string) ([]byte, error)
	Import(ctx context.Context, ownerID int64, data []byte) ([]string, error)
}

// ImportServiceInterface defines the spreadsheet import used by the handlers
type ImportServiceInterface interface {
	Import(ctx context.Context, name string, r io.Reader, size int64) (*importer.Result, error)
}
