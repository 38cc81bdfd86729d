package exporter

import (
	"context"
	"errors"
	"testing"

	"wexport/internal/shared/testutil"
	"wexport/pkg/contracts/domain"
)

// newFixtureSource loads the shared fixtures into a MemorySource
func newFixtureSource(t *testing.T) *MemorySource {
	t.Helper()
	src := NewMemorySource()
	for _, p := range testutil.SampleProducts() {
		src.AddProducts(p)
	}
	for id, byTax := range testutil.SampleTerms() {
		for tax, names := range byTax {
			src.SetTerms(id, tax, names...)
		}
	}
	src.AddTaxonomies(testutil.SampleTaxonomies()...)
	src.AddOrders(testutil.SampleOrders()...)
	return src
}

var errCatalogDown = errors.New("catalog unavailable")

// failingCatalog fails every lookup
type failingCatalog struct{}

func (failingCatalog) Product(context.Context, int64) (domain.Product, error) {
	return domain.Product{}, errCatalogDown
}

func (failingCatalog) TermNames(context.Context, int64, string) ([]string, error) {
	return nil, errCatalogDown
}

func (failingCatalog) TaxonomyExists(context.Context, string) (bool, error) {
	return false, errCatalogDown
}

func (failingCatalog) Taxonomies(context.Context) ([]string, error) {
	return nil, errCatalogDown
}

// recordingStore wraps an OrderStore and keeps every query it receives
type recordingStore struct {
	OrderStore
	queries []OrderQuery
}

func (r *recordingStore) FindOrders(ctx context.Context, q OrderQuery) ([]domain.Order, error) {
	r.queries = append(r.queries, q)
	return r.OrderStore.FindOrders(ctx, q)
}

// failingStore returns err from the n-th call on (zero based)
type failingStore struct {
	OrderStore
	failAt int
	calls  int
	err    error
}

func (f *failingStore) FindOrders(ctx context.Context, q OrderQuery) ([]domain.Order, error) {
	defer func() { f.calls++ }()
	if f.calls >= f.failAt {
		return nil, f.err
	}
	return f.OrderStore.FindOrders(ctx, q)
}

// captureSerializer keeps header and rows in memory
type captureSerializer struct {
	header   []string
	rows     [][]string
	closed   int
	buffered bool
	writeErr error
}

func (c *captureSerializer) WriteHeader(columns []string) error {
	c.header = append([]string(nil), columns...)
	return nil
}

func (c *captureSerializer) WriteRow(values []string) error {
	if c.writeErr != nil {
		return c.writeErr
	}
	c.rows = append(c.rows, append([]string(nil), values...))
	return nil
}

func (c *captureSerializer) Close() error {
	c.closed++
	return nil
}

func (c *captureSerializer) Buffered() bool {
	return c.buffered
}
