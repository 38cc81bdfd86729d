package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVSerializer streams rows as delimited text. It does not close the
// underlying writer.
type CSVSerializer struct {
	out     io.Writer
	writer  *csv.Writer
	bom     bool
	started bool
}

// NewCSVSerializer creates a streaming CSV serializer. An invalid delimiter
// falls back to a comma.
func NewCSVSerializer(w io.Writer, delimiter string, bom bool) *CSVSerializer {
	writer := csv.NewWriter(w)
	if d, ok := validDelimiter(delimiter); ok {
		writer.Comma, _ = utf8.DecodeRuneInString(d)
	}
	return &CSVSerializer{
		out:    w,
		writer: writer,
		bom:    bom,
	}
}

// WriteHeader writes the header record
func (s *CSVSerializer) WriteHeader(columns []string) error {
	if err := s.WriteRow(columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	return nil
}

// WriteRow writes a single record to the stream
func (s *CSVSerializer) WriteRow(values []string) error {
	if err := s.start(); err != nil {
		return err
	}
	return s.writer.Write(values)
}

// Close flushes buffered records
func (s *CSVSerializer) Close() error {
	if err := s.start(); err != nil {
		return err
	}
	s.writer.Flush()
	return s.writer.Error()
}

// Buffered is false: records are written as they arrive
func (s *CSVSerializer) Buffered() bool {
	return false
}

// start writes the BOM once, before the first record
func (s *CSVSerializer) start() error {
	if s.started {
		return nil
	}
	s.started = true
	if !s.bom {
		return nil
	}
	// Helps Excel recognize UTF-8
	if _, err := s.out.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}
	return nil
}
