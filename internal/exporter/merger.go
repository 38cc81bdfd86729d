package exporter

import (
	"strings"
)

// MergeRows folds item rows into a single row. Each column of the first row
// collects the non-empty values across all rows in order, joined by separator.
// A single row is returned unchanged; no rows yield an empty row.
func MergeRows(rows []Row, separator string) Row {
	switch len(rows) {
	case 0:
		return Row{}
	case 1:
		return rows[0]
	}

	merged := make(Row, len(rows[0]))
	for column := range rows[0] {
		values := make([]string, 0, len(rows))
		for _, r := range rows {
			if v := r[column]; v != "" && v != "0" {
				values = append(values, v)
			}
		}
		merged[column] = strings.Join(values, separator)
	}
	return merged
}
