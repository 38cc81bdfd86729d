package domain

// ExportFormat is the output file format of an export run
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
)

// ExportMode selects one row per line item or one merged row per order
type ExportMode string

const (
	ExportModeLineItem ExportMode = "line_item"
	ExportModeOrder    ExportMode = "order"
)

// SourceType is where a custom code column reads its value from
type SourceType string

const (
	SourceTypeMeta     SourceType = "meta"
	SourceTypeTaxonomy SourceType = "taxonomy"
)

// CustomCodeMapping projects a product meta value or taxonomy terms into a named column
type CustomCodeMapping struct {
	ColumnName string     `json:"column_name" yaml:"column_name"`
	Type       SourceType `json:"type" yaml:"type"`
	Source     string     `json:"source" yaml:"source"`
}

// ExportConfig is the normalized, immutable input of a single export run
type ExportConfig struct {
	Format                         ExportFormat        `json:"format" yaml:"format"`
	Delimiter                      string              `json:"delimiter" yaml:"delimiter"`
	ExportMode                     ExportMode          `json:"export_mode" yaml:"export_mode"`
	DateFrom                       string              `json:"date_from" yaml:"date_from"`
	DateTo                         string              `json:"date_to" yaml:"date_to"`
	OrderStatus                    []string            `json:"order_status" yaml:"order_status"`
	Columns                        []string            `json:"columns" yaml:"columns"`
	CustomCodeMappings             []CustomCodeMapping `json:"custom_code_mappings" yaml:"custom_code_mappings"`
	MultiTermSeparator             string              `json:"multi_term_separator" yaml:"multi_term_separator"`
	IncludeHeaders                 bool                `json:"include_headers" yaml:"include_headers"`
	RemoveVariationFromProductName bool                `json:"remove_variation_from_product_name" yaml:"remove_variation_from_product_name"`
	UseBOM                         bool                `json:"use_bom" yaml:"use_bom"`
	BatchSize                      int                 `json:"batch_size" yaml:"batch_size"`
}

// CustomColumnNames returns the custom code column names in configured order
func (c ExportConfig) CustomColumnNames() []string {
	names := make([]string, 0, len(c.CustomCodeMappings))
	for _, m := range c.CustomCodeMappings {
		names = append(names, m.ColumnName)
	}
	return names
}

// Request converts the config back into the request form it normalizes from
func (c ExportConfig) Request() ExportRequest {
	separator := c.MultiTermSeparator
	headers := c.IncludeHeaders
	return ExportRequest{
		ExportFormat:                   string(c.Format),
		Delimiter:                      c.Delimiter,
		ExportMode:                     string(c.ExportMode),
		DateFrom:                       c.DateFrom,
		DateTo:                         c.DateTo,
		OrderStatus:                    c.OrderStatus,
		Columns:                        c.Columns,
		CustomCodes:                    c.CustomCodeMappings,
		MultiTermSeparator:             &separator,
		IncludeHeaders:                 &headers,
		RemoveVariationFromProductName: c.RemoveVariationFromProductName,
	}
}

// Summary returns the filter summary recorded alongside each export run
func (c ExportConfig) Summary() FilterSummary {
	return FilterSummary{
		Format:      c.Format,
		ExportMode:  c.ExportMode,
		DateFrom:    c.DateFrom,
		DateTo:      c.DateTo,
		OrderStatus: c.OrderStatus,
		Columns:     len(c.Columns),
	}
}

// FilterSummary describes which filters an export run applied
type FilterSummary struct {
	Format      ExportFormat `json:"format"`
	ExportMode  ExportMode   `json:"export_mode"`
	DateFrom    string       `json:"date_from"`
	DateTo      string       `json:"date_to"`
	OrderStatus []string     `json:"order_status"`
	Columns     int          `json:"columns"`
}

// ExportRequest is the loosely typed configuration surface accepted from callers.
// Every field is optional; normalization substitutes defaults for missing or invalid values.
type ExportRequest struct {
	ExportFormat                   string              `json:"export_format" yaml:"export_format"`
	Delimiter                      string              `json:"delimiter" yaml:"delimiter"`
	ExportMode                     string              `json:"export_mode" yaml:"export_mode"`
	DateFrom                       string              `json:"date_from" yaml:"date_from"`
	DateTo                         string              `json:"date_to" yaml:"date_to"`
	OrderStatus                    []string            `json:"order_status" yaml:"order_status"`
	Columns                        []string            `json:"columns" yaml:"columns"`
	CustomCodes                    []CustomCodeMapping `json:"custom_codes" yaml:"custom_codes"`
	MultiTermSeparator             *string             `json:"multi_term_separator,omitempty" yaml:"multi_term_separator"`
	IncludeHeaders                 *bool               `json:"include_headers,omitempty" yaml:"include_headers"`
	RemoveVariationFromProductName bool                `json:"remove_variation_from_product_name" yaml:"remove_variation_from_product_name"`
}
