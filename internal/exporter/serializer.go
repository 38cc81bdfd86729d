package exporter

import (
	"fmt"
	"io"

	"wexport/pkg/contracts/domain"
)

// Serializer encodes rows into an output format.
// Close must be called exactly once to finish the output.
type Serializer interface {
	WriteHeader(columns []string) error
	WriteRow(values []string) error
	Close() error
	// Buffered reports whether rows are held in memory until Close
	Buffered() bool
}

// NewSerializer returns the serializer for cfg.Format writing to w
func NewSerializer(w io.Writer, cfg domain.ExportConfig) (Serializer, error) {
	switch cfg.Format {
	case domain.ExportFormatCSV, "":
		return NewCSVSerializer(w, cfg.Delimiter, cfg.UseBOM), nil
	case domain.ExportFormatXLSX:
		return NewXLSXSerializer(w), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", cfg.Format)
	}
}
