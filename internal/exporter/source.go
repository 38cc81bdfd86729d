package exporter

import (
	"context"
	"errors"
	"time"

	"wexport/pkg/contracts/domain"
)

// ErrProductNotFound is returned by a Catalog for an id with no product
var ErrProductNotFound = errors.New("product not found")

// OrderQuery selects one page of orders, newest first
type OrderQuery struct {
	Statuses      []string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Offset        int
	Limit         int
}

// OrderStore returns pages of orders ordered by creation date descending.
// An empty page marks the end of the result set.
type OrderStore interface {
	FindOrders(ctx context.Context, q OrderQuery) ([]domain.Order, error)
}

// Catalog gives read access to products and their taxonomy terms
type Catalog interface {
	// Product returns ErrProductNotFound when the id is unknown
	Product(ctx context.Context, id int64) (domain.Product, error)
	TermNames(ctx context.Context, productID int64, taxonomy string) ([]string, error)
	TaxonomyExists(ctx context.Context, taxonomy string) (bool, error)
	// Taxonomies returns every registered taxonomy name, sorted
	Taxonomies(ctx context.Context) ([]string, error)
}

// lookupProduct maps ErrProductNotFound to ok=false so missing data never fails a run
func lookupProduct(ctx context.Context, catalog Catalog, id int64) (domain.Product, bool, error) {
	if id <= 0 {
		return domain.Product{}, false, nil
	}
	p, err := catalog.Product(ctx, id)
	if errors.Is(err, ErrProductNotFound) {
		return domain.Product{}, false, nil
	}
	if err != nil {
		return domain.Product{}, false, err
	}
	return p, true, nil
}
