package exporter

import (
	"context"
	"fmt"
	"strings"

	"wexport/pkg/contracts/domain"
)

// Resolver projects product metadata and taxonomy terms into custom columns
type Resolver struct {
	catalog Catalog
}

// NewResolver creates a resolver reading from catalog
func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve returns one cell per mapping. An unknown product resolves every
// column to "". Only catalog failures are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, productID int64, mappings []domain.CustomCodeMapping, separator string) (Row, error) {
	row := make(Row, len(mappings))
	for _, m := range mappings {
		row[m.ColumnName] = ""
	}
	if len(mappings) == 0 {
		return row, nil
	}

	product, found, err := lookupProduct(ctx, r.catalog, productID)
	if err != nil {
		return nil, fmt.Errorf("load product %d: %w", productID, err)
	}
	if !found {
		return row, nil
	}

	for _, m := range mappings {
		var value string
		switch m.Type {
		case domain.SourceTypeMeta:
			value = metaValue(product, m.Source)
		case domain.SourceTypeTaxonomy:
			value, err = r.taxonomyValue(ctx, product, m.Source, separator)
			if err != nil {
				return nil, err
			}
		}
		row[m.ColumnName] = value
	}
	return row, nil
}

func metaValue(product domain.Product, key string) string {
	v := product.Meta[SanitizeText(key)]
	if v == "" || v == "0" {
		return ""
	}
	return v
}

func (r *Resolver) taxonomyValue(ctx context.Context, product domain.Product, taxonomy, separator string) (string, error) {
	taxonomy = SanitizeText(taxonomy)
	exists, err := r.catalog.TaxonomyExists(ctx, taxonomy)
	if err != nil {
		return "", fmt.Errorf("check taxonomy %q: %w", taxonomy, err)
	}
	if !exists {
		return "", nil
	}

	// A variation carries its selected option for attribute taxonomies
	if product.IsVariation() {
		if v := product.Attributes[taxonomy]; v != "" {
			return v, nil
		}
	}

	terms, err := r.catalog.TermNames(ctx, product.ID, taxonomy)
	if err != nil {
		return "", fmt.Errorf("load %s terms of product %d: %w", taxonomy, product.ID, err)
	}
	if len(terms) == 0 && product.IsVariation() && product.ParentID > 0 {
		terms, err = r.catalog.TermNames(ctx, product.ParentID, taxonomy)
		if err != nil {
			return "", fmt.Errorf("load %s terms of product %d: %w", taxonomy, product.ParentID, err)
		}
	}
	return strings.Join(terms, separator), nil
}
