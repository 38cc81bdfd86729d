package exporter

import (
	"context"
	"slices"
	"sync"

	"wexport/pkg/contracts/domain"
)

// MemorySource is an in-memory OrderStore and Catalog. It is safe for
// concurrent use.
type MemorySource struct {
	mu         sync.RWMutex
	orders     []domain.Order
	products   map[int64]domain.Product
	terms      map[int64]map[string][]string
	taxonomies map[string]bool
}

// NewMemorySource creates an empty source
func NewMemorySource() *MemorySource {
	return &MemorySource{
		products:   make(map[int64]domain.Product),
		terms:      make(map[int64]map[string][]string),
		taxonomies: make(map[string]bool),
	}
}

// AddOrders appends orders to the store
func (m *MemorySource) AddOrders(orders ...domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, orders...)
}

// AddProducts registers catalog products
func (m *MemorySource) AddProducts(products ...domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range products {
		m.products[p.ID] = p
	}
}

// AddTaxonomies registers taxonomy names
func (m *MemorySource) AddTaxonomies(names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		m.taxonomies[n] = true
	}
}

// SetTerms assigns term names of a taxonomy to a product
func (m *MemorySource) SetTerms(productID int64, taxonomy string, names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.terms[productID] == nil {
		m.terms[productID] = make(map[string][]string)
	}
	m.terms[productID][taxonomy] = append([]string(nil), names...)
	m.taxonomies[taxonomy] = true
}

// FindOrders implements OrderStore. Date bounds are inclusive.
func (m *MemorySource) FindOrders(ctx context.Context, q OrderQuery) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, o.Status) {
			continue
		}
		if q.CreatedAfter != nil && o.CreatedAt.Before(*q.CreatedAfter) {
			continue
		}
		if q.CreatedBefore != nil && o.CreatedAt.After(*q.CreatedBefore) {
			continue
		}
		matched = append(matched, o)
	}

	slices.SortStableFunc(matched, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})

	if q.Offset >= len(matched) {
		return nil, nil
	}
	end := len(matched)
	if q.Limit > 0 && q.Offset+q.Limit < end {
		end = q.Offset + q.Limit
	}
	return matched[q.Offset:end], nil
}

// Product implements Catalog
func (m *MemorySource) Product(ctx context.Context, id int64) (domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return domain.Product{}, ErrProductNotFound
	}
	return p, nil
}

// TermNames implements Catalog
func (m *MemorySource) TermNames(ctx context.Context, productID int64, taxonomy string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.terms[productID][taxonomy]), nil
}

// TaxonomyExists implements Catalog
func (m *MemorySource) TaxonomyExists(ctx context.Context, taxonomy string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.taxonomies[taxonomy], nil
}

// Taxonomies implements Catalog
func (m *MemorySource) Taxonomies(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.taxonomies))
	for name := range m.taxonomies {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}
