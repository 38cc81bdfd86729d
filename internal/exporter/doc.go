// Package exporter turns orders into CSV or XLSX exports.
//
// An export run is driven by a Pipeline built from a normalized
// domain.ExportConfig. The pipeline pages through an OrderStore newest first,
// renders each order with the Formatter, projects product metadata and
// taxonomy terms into custom columns with the Resolver and, in order mode,
// folds item rows together with MergeRows. Rows go to a Serializer: the CSV
// serializer streams, the XLSX serializer buffers and builds the workbook on
// Close.
//
// Example usage:
//
//	cfg := exporter.NewNormalizer(defaults).Normalize(req)
//	p := exporter.NewPipeline(cfg, store, catalog, exporter.WithLogger(logger))
//	s, _ := exporter.NewSerializer(file, cfg)
//	rows, err := p.Run(ctx, s)
package exporter
