package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"wexport/pkg/contracts/domain"
)

// DefaultRecentLimit is the page size of Recent when none is given
const DefaultRecentLimit = 10

// ExportLogRepository records export runs
type ExportLogRepository struct {
	db *DB
}

// NewExportLogRepository creates an export log repository over db
func NewExportLogRepository(db *DB) *ExportLogRepository {
	return &ExportLogRepository{db: db}
}

// Record stores an entry and returns its id
func (r *ExportLogRepository) Record(ctx context.Context, e domain.ExportLogEntry) (int64, error) {
	filters, err := json.Marshal(e.Filters)
	if err != nil {
		return 0, fmt.Errorf("failed to encode filters: %w", err)
	}
	if e.ExportedAt.IsZero() {
		e.ExportedAt = time.Now()
	}
	if e.Status == "" {
		e.Status = domain.ExportStatusSuccess
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO export_logs (export_date, filters, file_path, rows_exported, export_format, user_id, status, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ExportedAt.Unix(), string(filters), e.FilePath, e.RowsExported, string(e.Format),
		e.UserID, string(e.Status), e.ErrorMessage)
	if err != nil {
		return 0, fmt.Errorf("failed to record export: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns the newest entries first
func (r *ExportLogRepository) Recent(ctx context.Context, limit int) ([]domain.ExportLogEntry, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, export_date, filters, file_path, rows_exported, export_format, user_id, status, error_message
		FROM export_logs ORDER BY export_date DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query export logs: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ExportLogEntry, 0, limit)
	for rows.Next() {
		var (
			e              domain.ExportLogEntry
			exportedAt     int64
			filters        string
			format, status string
		)
		if err := rows.Scan(&e.ID, &exportedAt, &filters, &e.FilePath, &e.RowsExported,
			&format, &e.UserID, &status, &e.ErrorMessage); err != nil {
			return nil, fmt.Errorf("failed to scan export log: %w", err)
		}
		e.ExportedAt = time.Unix(exportedAt, 0).UTC()
		e.Format = domain.ExportFormat(format)
		e.Status = domain.ExportStatus(status)
		if err := decodeJSON(filters, &e.Filters); err != nil {
			return nil, fmt.Errorf("export log %d filters: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Cleanup deletes entries older than cutoff and returns how many were removed
func (r *ExportLogRepository) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM export_logs WHERE export_date < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up export logs: %w", err)
	}
	return res.RowsAffected()
}

// Stats aggregates every recorded run
func (r *ExportLogRepository) Stats(ctx context.Context) (domain.ExportStats, error) {
	var (
		stats domain.ExportStats
		last  sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(rows_exported), 0), MAX(export_date)
		FROM export_logs`).
		Scan(&stats.TotalExports, &stats.TotalRows, &last)
	if err != nil {
		return stats, fmt.Errorf("failed to compute export stats: %w", err)
	}
	if last.Valid {
		t := time.Unix(last.Int64, 0).UTC()
		stats.LastExport = &t
	}
	return stats, nil
}
