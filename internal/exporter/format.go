package exporter

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// OrderDateLayout is the rendering of order_date
const OrderDateLayout = "2006-01-02 15:04:05"

// formatFloat formats a float64 value for output with exactly 2 decimal places
func formatFloat(f float64) string {
	// 13.4 must appear as 13.40
	return fmt.Sprintf("%.2f", f)
}

// formatInt formats an int64 value for output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(OrderDateLayout)
}

var decimalPattern = regexp.MustCompile(`^-?[0-9]+\.[0-9]+$`)

// isDecimal reports whether a rendered cell holds a plain fractional number, e.g. "12.50"
func isDecimal(v string) bool {
	if !decimalPattern.MatchString(v) {
		return false
	}
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}
