// Package importer reads a previously exported CSV or XLSX file back into a
// header list and keyed rows.
package importer

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DefaultMaxSize is the largest accepted file
const DefaultMaxSize = 10 * 1024 * 1024

var (
	ErrNoFile            = errors.New("no file uploaded")
	ErrUnsupportedFormat = errors.New("only CSV and XLSX files are supported")
	ErrFileTooLarge      = errors.New("file size exceeds limit")
)

// Result holds the header row and every data row keyed by header
type Result struct {
	Headers []string            `json:"headers"`
	Rows    []map[string]string `json:"rows"`
}

// Sample returns the headers and at most limit rows
func (r *Result) Sample(limit int) *Result {
	rows := r.Rows
	if limit >= 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return &Result{Headers: r.Headers, Rows: rows}
}

// Importer parses uploaded spreadsheets
type Importer struct {
	maxSize int64
	logger  *slog.Logger
}

// New creates an importer; maxSize <= 0 selects DefaultMaxSize
func New(maxSize int64, logger *slog.Logger) *Importer {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		maxSize: maxSize,
		logger:  logger.With(slog.String("component", "importer")),
	}
}

// FileType returns "csv" or "xlsx" for a supported name, otherwise ""
func FileType(name string) string {
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")); ext {
	case "csv", "xlsx":
		return ext
	}
	return ""
}

// ImportFile reads the file at path
func (im *Importer) ImportFile(path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoFile
		}
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return im.Import(filepath.Base(path), f, info.Size())
}

// Import reads an upload named name with the declared size
func (im *Importer) Import(name string, r io.Reader, size int64) (*Result, error) {
	if name == "" || r == nil {
		return nil, ErrNoFile
	}
	fileType := FileType(name)
	if fileType == "" {
		return nil, ErrUnsupportedFormat
	}
	if size > im.maxSize {
		return nil, ErrFileTooLarge
	}

	// The declared size is not trusted
	data, err := io.ReadAll(io.LimitReader(r, im.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > im.maxSize {
		return nil, ErrFileTooLarge
	}

	var result *Result
	switch fileType {
	case "csv":
		result, err = parseCSV(data)
	case "xlsx":
		result, err = parseXLSX(data)
	}
	if err != nil {
		return nil, err
	}

	im.logger.Info("Imported file",
		slog.String("name", name),
		slog.String("type", fileType),
		slog.Int("headers", len(result.Headers)),
		slog.Int("rows", len(result.Rows)))
	return result, nil
}

func parseCSV(data []byte) (*Result, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error importing CSV file: %w", err)
	}
	return build(records), nil
}

// sniffDelimiter picks the most frequent candidate separator on the first line
func sniffDelimiter(data []byte) rune {
	line, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')
	best, bestCount := ',', 0
	for _, c := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(line, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}

func parseXLSX(data []byte) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("error importing XLSX file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(f.GetActiveSheetIndex()))
	if err != nil {
		return nil, fmt.Errorf("error importing XLSX file: %w", err)
	}
	return build(rows), nil
}

// build treats the first record as headers; short rows are padded with ""
func build(records [][]string) *Result {
	result := &Result{Headers: []string{}, Rows: []map[string]string{}}
	if len(records) == 0 {
		return result
	}

	for _, h := range records[0] {
		result.Headers = append(result.Headers, strings.TrimSpace(h))
	}
	for _, record := range records[1:] {
		row := make(map[string]string, len(result.Headers))
		for i, h := range result.Headers {
			if i < len(record) {
				row[h] = strings.TrimSpace(record[i])
			} else {
				row[h] = ""
			}
		}
		result.Rows = append(result.Rows, row)
	}
	return result
}
