package exporter

import (
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"wexport/internal/config"
	"wexport/pkg/contracts/domain"
)

// DateLayout is the accepted form of date_from and date_to
const DateLayout = "2006-01-02"

// DelimiterPresets maps the named delimiter choices to their character
var DelimiterPresets = map[string]string{
	"comma":     ",",
	"semicolon": ";",
	"tab":       "\t",
	"pipe":      "|",
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Normalizer turns a loosely typed ExportRequest into a complete ExportConfig.
// Invalid or missing values fall back to the configured defaults, never to an error.
type Normalizer struct {
	defaults config.ExportDefaults
}

// NewNormalizer creates a normalizer over the configured export defaults
func NewNormalizer(defaults config.ExportDefaults) *Normalizer {
	return &Normalizer{defaults: defaults}
}

// Normalize builds the config for a full export run
func (n *Normalizer) Normalize(req domain.ExportRequest) domain.ExportConfig {
	cfg := domain.ExportConfig{
		Format:                         n.format(req.ExportFormat),
		Delimiter:                      n.delimiter(req.Delimiter),
		ExportMode:                     n.mode(req.ExportMode),
		DateFrom:                       normalizeDate(req.DateFrom),
		DateTo:                         normalizeDate(req.DateTo),
		OrderStatus:                    n.statuses(req.OrderStatus),
		Columns:                        n.columns(req.Columns),
		CustomCodeMappings:             NormalizeMappings(req.CustomCodes),
		MultiTermSeparator:             n.separator(req.MultiTermSeparator),
		IncludeHeaders:                 true,
		RemoveVariationFromProductName: req.RemoveVariationFromProductName,
		UseBOM:                         n.defaults.UseBOM,
		BatchSize:                      n.defaults.BatchSize,
	}
	if req.IncludeHeaders != nil {
		cfg.IncludeHeaders = *req.IncludeHeaders
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = config.DefaultBatchSize
	}
	return cfg
}

// NormalizeConfig re-normalizes a config that did not come from Normalize,
// such as one read from an imported template document
func (n *Normalizer) NormalizeConfig(cfg domain.ExportConfig) domain.ExportConfig {
	return n.Normalize(cfg.Request())
}

// NormalizePreview builds the config for a preview: CSV text, small batch, no BOM
func (n *Normalizer) NormalizePreview(req domain.ExportRequest) domain.ExportConfig {
	cfg := n.Normalize(req)
	cfg.Format = domain.ExportFormatCSV
	cfg.UseBOM = false
	cfg.BatchSize = n.defaults.PreviewBatchSize
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = config.PreviewBatchSize
	}
	return cfg
}

func (n *Normalizer) format(v string) domain.ExportFormat {
	switch domain.ExportFormat(strings.ToLower(strings.TrimSpace(v))) {
	case domain.ExportFormatCSV:
		return domain.ExportFormatCSV
	case domain.ExportFormatXLSX:
		return domain.ExportFormatXLSX
	}
	if f := domain.ExportFormat(n.defaults.Format); f == domain.ExportFormatXLSX {
		return f
	}
	return domain.ExportFormatCSV
}

func (n *Normalizer) mode(v string) domain.ExportMode {
	switch domain.ExportMode(strings.ToLower(strings.TrimSpace(v))) {
	case domain.ExportModeLineItem:
		return domain.ExportModeLineItem
	case domain.ExportModeOrder:
		return domain.ExportModeOrder
	}
	if m := domain.ExportMode(n.defaults.ExportMode); m == domain.ExportModeOrder {
		return m
	}
	return domain.ExportModeLineItem
}

func (n *Normalizer) delimiter(v string) string {
	if d, ok := validDelimiter(v); ok {
		return d
	}
	if d, ok := validDelimiter(n.defaults.Delimiter); ok {
		return d
	}
	return config.DefaultDelimiter
}

// validDelimiter accepts a preset name or any single character that
// encoding/csv can use as a field separator
func validDelimiter(v string) (string, bool) {
	if preset, ok := DelimiterPresets[strings.ToLower(v)]; ok {
		return preset, true
	}
	if utf8.RuneCountInString(v) != 1 {
		return "", false
	}
	r, _ := utf8.DecodeRuneInString(v)
	if r == 0 || r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return "", false
	}
	return v, true
}

func (n *Normalizer) statuses(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		s = NormalizeStatus(s)
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		if len(n.defaults.OrderStatus) > 0 {
			for _, s := range n.defaults.OrderStatus {
				out = append(out, NormalizeStatus(s))
			}
			return out
		}
		return []string{config.DefaultOrderStatus}
	}
	return out
}

// NormalizeStatus applies the status namespace prefix
func NormalizeStatus(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, config.StatusPrefix) {
		return s
	}
	return config.StatusPrefix + s
}

func (n *Normalizer) columns(in []string) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.TrimSpace(c)
		if c != "" && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	if len(out) > 0 {
		return out
	}
	if len(n.defaults.Columns) > 0 {
		return slices.Clone(n.defaults.Columns)
	}
	return DefaultColumns()
}

func (n *Normalizer) separator(v *string) string {
	if v != nil && *v != "" {
		return *v
	}
	if n.defaults.MultiTermSeparator != "" {
		return n.defaults.MultiTermSeparator
	}
	return config.DefaultMultiTermSeparator
}

// NormalizeMappings sanitizes custom code mappings, dropping entries with a
// missing field or an unknown source type. A repeated column name keeps its
// first position and takes the last mapping.
func NormalizeMappings(in []domain.CustomCodeMapping) []domain.CustomCodeMapping {
	out := make([]domain.CustomCodeMapping, 0, len(in))
	index := make(map[string]int, len(in))
	for _, m := range in {
		m = domain.CustomCodeMapping{
			ColumnName: SanitizeText(m.ColumnName),
			Type:       domain.SourceType(strings.ToLower(SanitizeText(string(m.Type)))),
			Source:     SanitizeText(m.Source),
		}
		if m.ColumnName == "" || m.Source == "" {
			continue
		}
		if m.Type != domain.SourceTypeMeta && m.Type != domain.SourceTypeTaxonomy {
			continue
		}
		if i, ok := index[m.ColumnName]; ok {
			out[i] = m
			continue
		}
		index[m.ColumnName] = len(out)
		out = append(out, m)
	}
	return out
}

// normalizeDate returns v when it is a valid calendar date, otherwise ""
func normalizeDate(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if _, err := time.Parse(DateLayout, v); err != nil {
		return ""
	}
	return v
}

// SanitizeText strips markup and control characters, collapses whitespace and trims
func SanitizeText(v string) string {
	v = tagPattern.ReplaceAllString(v, "")
	v = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, v)
	return strings.Join(strings.Fields(v), " ")
}
