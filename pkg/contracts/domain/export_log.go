package domain

import (
	"time"
)

// ExportStatus is the outcome recorded for an export run
type ExportStatus string

const (
	ExportStatusSuccess ExportStatus = "success"
	ExportStatusError   ExportStatus = "error"
)

// ExportLogEntry records one export run
type ExportLogEntry struct {
	ID           int64         `json:"id" db:"id"`
	ExportedAt   time.Time     `json:"export_date" db:"export_date"`
	Filters      FilterSummary `json:"filters" db:"filters"`
	FilePath     string        `json:"file_path" db:"file_path"`
	RowsExported int           `json:"rows_exported" db:"rows_exported"`
	Format       ExportFormat  `json:"export_format" db:"export_format"`
	UserID       int64         `json:"user_id" db:"user_id"`
	Status       ExportStatus  `json:"status" db:"status"`
	ErrorMessage string        `json:"error_message,omitempty" db:"error_message"`
}

// ExportStats aggregates the export log
type ExportStats struct {
	TotalExports int        `json:"total_exports"`
	TotalRows    int64      `json:"total_rows"`
	LastExport   *time.Time `json:"last_export,omitempty"`
}
