package exporter

import (
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

// SheetName is the single worksheet of an XLSX export
const SheetName = "Orders"

const (
	headerFill    = "E8E8E8"
	decimalFormat = "0.00"
	minColWidth   = 8
	maxColWidth   = 60
)

// XLSXSerializer buffers every row and builds the workbook on Close
type XLSXSerializer struct {
	out    io.Writer
	header []string
	rows   [][]string
}

// NewXLSXSerializer creates a buffered spreadsheet serializer writing to w
func NewXLSXSerializer(w io.Writer) *XLSXSerializer {
	return &XLSXSerializer{out: w}
}

// WriteHeader records the header row
func (s *XLSXSerializer) WriteHeader(columns []string) error {
	s.header = append([]string(nil), columns...)
	return nil
}

// WriteRow buffers a data row
func (s *XLSXSerializer) WriteRow(values []string) error {
	s.rows = append(s.rows, append([]string(nil), values...))
	return nil
}

// Buffered is true: the workbook is built from the full row set
func (s *XLSXSerializer) Buffered() bool {
	return true
}

// Close builds the workbook and writes it out
func (s *XLSXSerializer) Close() error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	decimalFmt := decimalFormat
	decimalStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &decimalFmt})
	if err != nil {
		return fmt.Errorf("failed to create decimal style: %w", err)
	}

	widths := make(map[int]int)
	track := func(col int, v string) {
		if n := utf8.RuneCountInString(v); n > widths[col] {
			widths[col] = n
		}
	}

	rowNum := 1
	if len(s.header) > 0 {
		if err := s.writeHeader(f); err != nil {
			return err
		}
		for i, h := range s.header {
			track(i+1, h)
		}
		rowNum++
	}

	for _, values := range s.rows {
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, rowNum)
			if err != nil {
				return err
			}
			track(i+1, v)
			if isDecimal(v) {
				n, _ := strconv.ParseFloat(v, 64)
				if err := f.SetCellFloat(SheetName, cell, n, 2, 64); err != nil {
					return fmt.Errorf("failed to write cell %s: %w", cell, err)
				}
				if err := f.SetCellStyle(SheetName, cell, cell, decimalStyle); err != nil {
					return fmt.Errorf("failed to style cell %s: %w", cell, err)
				}
				continue
			}
			if err := f.SetCellStr(SheetName, cell, v); err != nil {
				return fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
		rowNum++
	}

	for col, w := range widths {
		name, err := excelize.ColumnNumberToName(col)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(SheetName, name, name, columnWidth(w)); err != nil {
			return fmt.Errorf("failed to size column %s: %w", name, err)
		}
	}

	if err := f.Write(s.out); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func (s *XLSXSerializer) writeHeader(f *excelize.File) error {
	style, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, h := range s.header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStr(SheetName, cell, h); err != nil {
			return fmt.Errorf("failed to write header %s: %w", cell, err)
		}
	}

	last, err := excelize.CoordinatesToCellName(len(s.header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	return f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func columnWidth(chars int) float64 {
	w := chars + 2
	if w < minColWidth {
		w = minColWidth
	}
	if w > maxColWidth {
		w = maxColWidth
	}
	return float64(w)
}
