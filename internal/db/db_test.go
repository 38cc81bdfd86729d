package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wexport/internal/config"
	"wexport/internal/exporter"
	"wexport/internal/shared/testutil"
	"wexport/internal/templates"
	"wexport/pkg/contracts/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleFixtures() *Fixtures {
	f := &Fixtures{Taxonomies: testutil.SampleTaxonomies(), Orders: testutil.SampleOrders()}
	for _, p := range testutil.SampleProducts() {
		f.Products = append(f.Products, p)
	}
	for id, byTax := range testutil.SampleTerms() {
		for tax, terms := range byTax {
			f.Terms = append(f.Terms, ProductTerms{ProductID: id, Taxonomy: tax, Terms: terms})
		}
	}
	return f
}

func seededDB(t *testing.T) *DB {
	t.Helper()
	db := openTestDB(t)
	require.NoError(t, db.Seed(context.Background(), sampleFixtures()))
	return db
}

func TestOpenFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "wexport.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)

	var walMode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&walMode))
	assert.Equal(t, "wal", walMode)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
	require.NoError(t, db.Close())

	// Reopening does not reapply migrations
	db, err = Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	applied, err := NewMigrator(db.DB).Applied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	assert.Equal(t, 1, applied[0].Version)
	assert.Equal(t, "initial_schema", applied[0].Description)
	assert.Len(t, applied[0].Checksum, 64)
}

func TestOrderSourceFindOrders(t *testing.T) {
	ctx := context.Background()
	src := NewOrderSource(seededDB(t))

	orders, err := src.FindOrders(ctx, exporter.OrderQuery{Statuses: []string{"wc-completed"}, Limit: 10})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(1003), orders[0].ID)
	assert.Equal(t, int64(1002), orders[1].ID)

	first := orders[0]
	assert.Equal(t, time.Date(2024, 3, 10, 14, 30, 0, 0, time.UTC), first.CreatedAt)
	assert.Equal(t, "Ada", first.Billing.FirstName)
	assert.Equal(t, "N1", first.Shipping.Postcode)
	assert.Equal(t, []string{"Flat rate"}, first.ShippingMethods)
	assert.Equal(t, "Leave at door", first.Meta["_customer_note"])
	require.Len(t, first.Items, 2)
	assert.Equal(t, testutil.ProductTShirtLarge, first.Items[0].VariationID)
	assert.Equal(t, "yes", first.Items[1].Meta["_gift_wrap"])
	assert.Empty(t, orders[1].Items)

	page, err := src.FindOrders(ctx, exporter.OrderQuery{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(1002), page[0].ID)

	after := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	before := time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)
	bounded, err := src.FindOrders(ctx, exporter.OrderQuery{CreatedAfter: &after, CreatedBefore: &before, Limit: 10})
	require.NoError(t, err)
	require.Len(t, bounded, 1)
	assert.Equal(t, int64(1002), bounded[0].ID)

	empty, err := src.FindOrders(ctx, exporter.OrderQuery{Offset: 10, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOrderSourceCatalog(t *testing.T) {
	ctx := context.Background()
	src := NewOrderSource(seededDB(t))

	p, err := src.Product(ctx, testutil.ProductTShirtLarge)
	require.NoError(t, err)
	assert.True(t, p.IsVariation())
	assert.Equal(t, testutil.ProductTShirt, p.ParentID)
	assert.Equal(t, "Large", p.Attributes["pa_size"])

	_, err = src.Product(ctx, testutil.ProductDeleted)
	assert.ErrorIs(t, err, exporter.ErrProductNotFound)

	terms, err := src.TermNames(ctx, testutil.ProductTShirt, domain.TaxonomyProductCategory)
	require.NoError(t, err)
	assert.Equal(t, []string{"Clothing", "Summer"}, terms)

	ok, err := src.TaxonomyExists(ctx, "product_brand")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = src.TaxonomyExists(ctx, "pa_color")
	require.NoError(t, err)
	assert.False(t, ok)

	names, err := src.Taxonomies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"pa_size", "product_brand", "product_cat", "product_tag"}, names)

	empty, err := NewOrderSource(openTestDB(t)).Taxonomies(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOrderSourceMatchesMemorySource(t *testing.T) {
	ctx := context.Background()
	sqlSrc := NewOrderSource(seededDB(t))

	mem := exporter.NewMemorySource()
	for _, p := range testutil.SampleProducts() {
		mem.AddProducts(p)
	}
	for id, byTax := range testutil.SampleTerms() {
		for tax, names := range byTax {
			mem.SetTerms(id, tax, names...)
		}
	}
	mem.AddTaxonomies(testutil.SampleTaxonomies()...)
	mem.AddOrders(testutil.SampleOrders()...)

	cfg := exporter.NewNormalizer(config.Default().Export).Normalize(domain.ExportRequest{
		ExportMode:  "order",
		OrderStatus: []string{"completed", "processing"},
		CustomCodes: []domain.CustomCodeMapping{
			{ColumnName: "Size", Type: "taxonomy", Source: "pa_size"},
			{ColumnName: "HS", Type: "meta", Source: "_hs_code"},
		},
	})
	cfg.BatchSize = 1

	run := func(store exporter.OrderStore, catalog exporter.Catalog) [][]string {
		var out collect
		_, err := exporter.NewPipeline(cfg, store, catalog).Run(ctx, &out)
		require.NoError(t, err)
		return out.rows
	}

	assert.Equal(t, run(mem, mem), run(sqlSrc, sqlSrc))
}

type collect struct{ rows [][]string }

func (c *collect) WriteHeader(columns []string) error { c.rows = append(c.rows, columns); return nil }
func (c *collect) WriteRow(values []string) error     { c.rows = append(c.rows, values); return nil }
func (c *collect) Close() error                        { return nil }
func (c *collect) Buffered() bool                      { return false }

func TestSeedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := seededDB(t)
	require.NoError(t, db.Seed(ctx, sampleFixtures()))

	var orders, items int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM orders").Scan(&orders))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM order_items").Scan(&items))
	assert.Equal(t, 3, orders)
	assert.Equal(t, 3, items)
}

func TestLoadFixtures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
taxonomies: [product_cat]
products:
  - id: 1
    type: simple
    sku: MUG
    name: Mug
terms:
  - product_id: 1
    taxonomy: product_cat
    terms: [Kitchen]
orders:
  - id: 5
    created_at: 2024-01-02T03:04:05Z
    status: wc-completed
    billing:
      first_name: Ada
    total: 12.5
    items:
      - product_id: 1
        name: Mug
        quantity: 1
        total: 12.5
`), 0644))

	f, err := LoadFixtures(path)
	require.NoError(t, err)
	require.Len(t, f.Orders, 1)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), f.Orders[0].CreatedAt.UTC())
	assert.Equal(t, "Ada", f.Orders[0].Billing.FirstName)
	require.Len(t, f.Orders[0].Items, 1)

	db := openTestDB(t)
	require.NoError(t, db.Seed(context.Background(), f))
	orders, err := NewOrderSource(db).FindOrders(context.Background(), exporter.OrderQuery{Limit: 5})
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, 12.5, orders[0].Items[0].Total)
}

func TestTemplateRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTemplateRepository(openTestDB(t))
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	a := domain.Template{ID: "a", OwnerID: 1, Name: "Monthly", Config: domain.ExportConfig{Format: domain.ExportFormatXLSX, Columns: []string{"order_id"}}, CreatedAt: now, UpdatedAt: now}
	b := domain.Template{ID: "b", OwnerID: 1, Name: "accounting", CreatedAt: now, UpdatedAt: now}
	c := domain.Template{ID: "c", OwnerID: 2, Name: "Other", CreatedAt: now, UpdatedAt: now}
	for _, tpl := range []domain.Template{a, b, c} {
		require.NoError(t, repo.Put(ctx, tpl))
	}

	list, err := repo.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "accounting", list[0].Name)
	assert.Equal(t, a.Config, list[1].Config)
	assert.Equal(t, now, list[1].CreatedAt)

	_, err = repo.Get(ctx, 1, "c")
	assert.ErrorIs(t, err, templates.ErrNotFound)

	// Another owner cannot overwrite by id
	hijack := c
	hijack.OwnerID = 1
	assert.ErrorIs(t, repo.Put(ctx, hijack), templates.ErrNotFound)

	require.NoError(t, repo.SetDefault(ctx, 1, "a"))
	require.NoError(t, repo.SetDefault(ctx, 1, "b"))
	got, err := repo.Get(ctx, 1, "a")
	require.NoError(t, err)
	assert.False(t, got.IsDefault)
	got, err = repo.Get(ctx, 1, "b")
	require.NoError(t, err)
	assert.True(t, got.IsDefault)

	assert.ErrorIs(t, repo.SetDefault(ctx, 2, "a"), templates.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, 2, "a"), templates.ErrNotFound)
	require.NoError(t, repo.Delete(ctx, 1, "a"))
	assert.ErrorIs(t, repo.Delete(ctx, 1, "a"), templates.ErrNotFound)
}

func TestTemplateRepositoryWithManager(t *testing.T) {
	ctx := context.Background()
	m := templates.NewManager(NewTemplateRepository(openTestDB(t)), nil)

	saved, err := m.Save(ctx, 7, "Weekly", domain.ExportConfig{Format: domain.ExportFormatCSV}, "")
	require.NoError(t, err)
	dup, err := m.Duplicate(ctx, 7, saved.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "Weekly (Copy)", dup.Name)

	require.NoError(t, m.SetDefault(ctx, 7, dup.ID))
	def, err := m.Default(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, dup.ID, def.ID)
}

func TestExportLogRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewExportLogRepository(openTestDB(t))

	empty, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalExports)
	assert.Nil(t, empty.LastExport)

	old := time.Now().Add(-40 * 24 * time.Hour).Truncate(time.Second)
	recent := time.Now().Truncate(time.Second)
	filters := domain.FilterSummary{Format: domain.ExportFormatCSV, ExportMode: domain.ExportModeOrder, OrderStatus: []string{"wc-completed"}, Columns: 3}

	_, err = repo.Record(ctx, domain.ExportLogEntry{ExportedAt: old, Filters: filters, FilePath: "/x/old.csv", RowsExported: 4, Format: domain.ExportFormatCSV, UserID: 1})
	require.NoError(t, err)
	id, err := repo.Record(ctx, domain.ExportLogEntry{ExportedAt: recent, Filters: filters, RowsExported: 0, Format: domain.ExportFormatXLSX, UserID: 1, Status: domain.ExportStatusError, ErrorMessage: "boom"})
	require.NoError(t, err)
	assert.Positive(t, id)

	logs, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, id, logs[0].ID)
	assert.Equal(t, domain.ExportStatusError, logs[0].Status)
	assert.Equal(t, "boom", logs[0].ErrorMessage)
	assert.Equal(t, filters, logs[1].Filters)
	assert.Equal(t, domain.ExportStatusSuccess, logs[1].Status)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalExports)
	assert.Equal(t, int64(4), stats.TotalRows)
	require.NotNil(t, stats.LastExport)
	assert.Equal(t, recent.UTC(), *stats.LastExport)

	removed, err := repo.Cleanup(ctx, time.Now().Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}
