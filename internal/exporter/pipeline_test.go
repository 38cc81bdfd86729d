package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wexport/internal/config"
	"wexport/internal/shared/testutil"
	"wexport/pkg/contracts/domain"
)

func testConfig(req domain.ExportRequest) domain.ExportConfig {
	return NewNormalizer(config.Default().Export).Normalize(req)
}

func TestPipelineLineItemMode(t *testing.T) {
	src := newFixtureSource(t)
	logger, handler := testutil.NewTestLogger(t)
	cfg := testConfig(domain.ExportRequest{})

	p := NewPipeline(cfg, src, src, WithLogger(logger))
	out := &captureSerializer{}
	rows, err := p.Run(context.Background(), out)
	require.NoError(t, err)

	assert.Equal(t, 3, rows)
	assert.Equal(t, DefaultColumns(), out.header)
	require.Len(t, out.rows, 3)
	assert.Equal(t, []string{
		"1003", "2024-03-10 14:30:00", "Ada Lovelace", "ada@example.com", "555-0100",
		"1 Analytical St, London, N1", "Credit card", "57.50",
		"10", "TS-L", "T-Shirt - Large", "2.00", "40.00", "Clothing, Summer",
	}, out.rows[0])
	assert.Equal(t, []string{"20", "MUG", "Mug", "1.00", "12.50", "Kitchen"}, out.rows[1][8:])
	assert.Equal(t, []string{
		"1002", "2024-03-05 09:00:00", "Grace Hopper", "grace@example.com", "",
		"", "Bank transfer", "0.00",
		"", "", "", "", "", "",
	}, out.rows[2])

	assert.Equal(t, 1, out.closed)
	assert.Equal(t, StateCompleted, p.State())
	assert.Equal(t, []State{
		StateIdle, StateFetching, StateFormatting, StateWriting,
		StateFormatting, StateWriting, StateFetching, StateFinalizing, StateCompleted,
	}, p.History())
	testutil.AssertLogContains(t, handler, slog.LevelInfo, "export run completed")
	testutil.AssertNoErrors(t, handler)
}

func TestPipelineOrderMode(t *testing.T) {
	src := newFixtureSource(t)
	cfg := testConfig(domain.ExportRequest{
		ExportMode:  "order",
		Columns:     []string{ColOrderID, ColSKU, ColQuantity, ColProductCategories},
		CustomCodes: []domain.CustomCodeMapping{{ColumnName: "Brand", Type: "taxonomy", Source: "product_brand"}},
	})

	out := &captureSerializer{}
	rows, err := NewPipeline(cfg, src, src).Run(context.Background(), out)
	require.NoError(t, err)

	assert.Equal(t, 2, rows)
	assert.Equal(t, []string{ColOrderID, ColSKU, ColQuantity, ColProductCategories, "Brand"}, out.header)
	assert.Equal(t, [][]string{
		{"1003", "TS-L|MUG", "2.00|1.00", "Clothing, Summer|Kitchen", "Acme|Acme|HomeCo"},
		{"1002", "", "", "", ""},
	}, out.rows)
}

func TestPipelineZeroItemOrder(t *testing.T) {
	for _, mode := range []string{"line_item", "order"} {
		t.Run(mode, func(t *testing.T) {
			src := NewMemorySource()
			src.AddOrders(domain.Order{ID: 7, Status: "wc-completed", CreatedAt: time.Now(), Total: 3})
			cfg := testConfig(domain.ExportRequest{
				ExportMode:  mode,
				CustomCodes: []domain.CustomCodeMapping{{ColumnName: "HS", Type: "meta", Source: "_hs"}},
			})

			out := &captureSerializer{}
			rows, err := NewPipeline(cfg, src, src).Run(context.Background(), out)
			require.NoError(t, err)
			assert.Equal(t, 1, rows)
			require.Len(t, out.rows, 1)
			assert.Equal(t, "7", out.rows[0][0])
			assert.Len(t, out.rows[0], len(out.header))
		})
	}
}

func TestPipelineRowsMatchHeaderWidth(t *testing.T) {
	src := newFixtureSource(t)
	for _, mode := range []string{"line_item", "order"} {
		cfg := testConfig(domain.ExportRequest{
			ExportMode:  mode,
			OrderStatus: []string{"completed", "processing"},
			Columns:     append(OrderVocabulary(), append(ItemVocabulary(), "not_a_column")...),
			CustomCodes: []domain.CustomCodeMapping{
				{ColumnName: "HS", Type: "meta", Source: "_hs_code"},
				{ColumnName: "Size", Type: "taxonomy", Source: "pa_size"},
			},
		})

		out := &captureSerializer{}
		_, err := NewPipeline(cfg, src, src).Run(context.Background(), out)
		require.NoError(t, err)

		want := len(OrderVocabulary()) + len(ItemVocabulary()) + 2
		assert.Len(t, out.header, want)
		assert.NotContains(t, out.header, "not_a_column")
		for _, row := range out.rows {
			assert.Len(t, row, want)
		}
	}
}

func TestPipelineCSVRoundTrip(t *testing.T) {
	src := NewMemorySource()
	src.AddProducts(domain.Product{ID: 1, SKU: `A"1`, Name: "Widget"})
	src.AddOrders(domain.Order{
		ID:        1,
		Status:    "wc-completed",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Billing:   domain.BillingContact{FirstName: "Semi;colon", LastName: "Name"},
		Shipping:  domain.Address{Address1: "Line 1\nLine 2", City: "Town"},
		Items:     []domain.LineItem{{ProductID: 1, Name: "Widget, large", Quantity: 1}},
	})

	for _, delim := range []string{",", ";", "\t", "|"} {
		cfg := testConfig(domain.ExportRequest{
			Delimiter: delim,
			Columns:   []string{ColCustomerName, ColShippingAddress, ColSKU, ColProductName},
		})
		cfg.UseBOM = false

		var buf bytes.Buffer
		captured := &captureSerializer{}
		_, err := NewPipeline(cfg, src, src).Run(context.Background(), captured)
		require.NoError(t, err)
		_, err = NewPipeline(cfg, src, src).Run(context.Background(), NewCSVSerializer(&buf, cfg.Delimiter, false))
		require.NoError(t, err)

		reader := csv.NewReader(&buf)
		reader.Comma = rune(delim[0])
		records, err := reader.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, append([][]string{captured.header}, captured.rows...), records)
	}
}

func TestPipelineDateRange(t *testing.T) {
	t1 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC)
	t3 := time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)
	t0 := time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)

	newStore := func() *recordingStore {
		src := NewMemorySource()
		for i, ts := range []time.Time{t0, t1, t2, t3} {
			src.AddOrders(domain.Order{ID: int64(i + 1), Status: "wc-completed", CreatedAt: ts})
		}
		return &recordingStore{OrderStore: src}
	}
	ids := func(out *captureSerializer) []string {
		var got []string
		for _, r := range out.rows {
			got = append(got, r[0])
		}
		return got
	}

	t.Run("both bounds", func(t *testing.T) {
		store := newStore()
		cfg := testConfig(domain.ExportRequest{DateFrom: "2024-03-01", DateTo: "2024-03-15", Columns: []string{ColOrderID}})
		out := &captureSerializer{}
		_, err := NewPipeline(cfg, store, NewMemorySource()).Run(context.Background(), out)
		require.NoError(t, err)

		assert.Equal(t, []string{"3", "2"}, ids(out))
		require.NotEmpty(t, store.queries)
		assert.Equal(t, t1, *store.queries[0].CreatedAfter)
		assert.Nil(t, store.queries[0].CreatedBefore)
	})

	t.Run("lower bound only", func(t *testing.T) {
		store := newStore()
		cfg := testConfig(domain.ExportRequest{DateFrom: "2024-03-01", Columns: []string{ColOrderID}})
		out := &captureSerializer{}
		_, err := NewPipeline(cfg, store, NewMemorySource()).Run(context.Background(), out)
		require.NoError(t, err)

		assert.Equal(t, []string{"4", "3", "2"}, ids(out))
		assert.Nil(t, store.queries[0].CreatedBefore)
	})

	t.Run("upper bound only", func(t *testing.T) {
		store := newStore()
		cfg := testConfig(domain.ExportRequest{DateTo: "2024-03-15", Columns: []string{ColOrderID}})
		out := &captureSerializer{}
		_, err := NewPipeline(cfg, store, NewMemorySource()).Run(context.Background(), out)
		require.NoError(t, err)

		assert.Equal(t, []string{"3", "2", "1"}, ids(out))
		assert.Nil(t, store.queries[0].CreatedAfter)
		assert.Equal(t, t2, *store.queries[0].CreatedBefore)
	})
}

func TestPipelinePaging(t *testing.T) {
	src := NewMemorySource()
	for i := 1; i <= 7; i++ {
		src.AddOrders(domain.Order{ID: int64(i), Status: "wc-completed", CreatedAt: time.Unix(int64(i)*60, 0)})
	}
	store := &recordingStore{OrderStore: src}
	cfg := testConfig(domain.ExportRequest{Columns: []string{ColOrderID}})
	cfg.BatchSize = 3

	out := &captureSerializer{}
	rows, err := NewPipeline(cfg, store, src).Run(context.Background(), out)
	require.NoError(t, err)

	assert.Equal(t, 7, rows)
	assert.Equal(t, "7", out.rows[0][0])
	assert.Equal(t, "1", out.rows[6][0])
	require.Len(t, store.queries, 4)
	for i, q := range store.queries {
		assert.Equal(t, i*3, q.Offset)
		assert.Equal(t, 3, q.Limit)
	}
}

func TestPipelinePreviewSingleBatch(t *testing.T) {
	src := NewMemorySource()
	for i := 1; i <= 12; i++ {
		src.AddOrders(domain.Order{ID: int64(i), Status: "wc-completed", CreatedAt: time.Unix(int64(i)*60, 0)})
	}
	cfg := NewNormalizer(config.Default().Export).NormalizePreview(domain.ExportRequest{Columns: []string{ColOrderID}})

	out := &captureSerializer{}
	rows, err := NewPipeline(cfg, src, src, WithMaxBatches(1)).Run(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, 5, rows)
}

func TestPipelinePreviewSkipsOrdersAfterUpperBound(t *testing.T) {
	src := NewMemorySource()
	src.AddOrders(
		domain.Order{ID: 1, Status: "wc-completed", CreatedAt: time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)},
		domain.Order{ID: 2, Status: "wc-completed", CreatedAt: time.Date(2024, 3, 14, 10, 0, 0, 0, time.UTC)},
	)
	for i := 1; i <= 6; i++ {
		src.AddOrders(domain.Order{ID: int64(10 + i), Status: "wc-completed", CreatedAt: time.Date(2024, 4, i, 10, 0, 0, 0, time.UTC)})
	}
	req := domain.ExportRequest{DateFrom: "2024-03-01", DateTo: "2024-03-15", Columns: []string{ColOrderID}}
	normalizer := NewNormalizer(config.Default().Export)

	full := &captureSerializer{}
	exported, err := NewPipeline(normalizer.Normalize(req), src, src).Run(context.Background(), full)
	require.NoError(t, err)
	assert.Equal(t, 2, exported)

	preview := &captureSerializer{}
	rows, err := NewPipeline(normalizer.NormalizePreview(req), src, src, WithMaxBatches(1)).Run(context.Background(), preview)
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.Equal(t, full.rows, preview.rows)
}

func TestPipelinePreviewStopsAtLimitWithBothBounds(t *testing.T) {
	src := NewMemorySource()
	for i := 1; i <= 9; i++ {
		src.AddOrders(domain.Order{ID: int64(i), Status: "wc-completed", CreatedAt: time.Date(2024, 3, i, 10, 0, 0, 0, time.UTC)})
	}
	req := domain.ExportRequest{DateFrom: "2024-03-01", DateTo: "2024-03-31", Columns: []string{ColOrderID}}
	cfg := NewNormalizer(config.Default().Export).NormalizePreview(req)

	out := &captureSerializer{}
	rows, err := NewPipeline(cfg, src, src, WithMaxBatches(1)).Run(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, 5, rows)
	assert.Equal(t, "9", out.rows[0][0])
	assert.Equal(t, "5", out.rows[4][0])
}

func TestPipelineEmptyResult(t *testing.T) {
	src := NewMemorySource()

	t.Run("header only", func(t *testing.T) {
		out := &captureSerializer{}
		rows, err := NewPipeline(testConfig(domain.ExportRequest{}), src, src).Run(context.Background(), out)
		require.NoError(t, err)
		assert.Zero(t, rows)
		assert.Equal(t, DefaultColumns(), out.header)
		assert.Empty(t, out.rows)
		assert.Equal(t, 1, out.closed)
	})

	t.Run("headers disabled", func(t *testing.T) {
		out := &captureSerializer{}
		cfg := testConfig(domain.ExportRequest{IncludeHeaders: ptr(false)})
		_, err := NewPipeline(cfg, src, src).Run(context.Background(), out)
		require.NoError(t, err)
		assert.Nil(t, out.header)
	})
}

func TestPipelineFailure(t *testing.T) {
	src := newFixtureSource(t)
	errStore := errors.New("connection reset")

	t.Run("store error mid run", func(t *testing.T) {
		logger, handler := testutil.NewTestLogger(t)
		store := &failingStore{OrderStore: src, failAt: 1, err: errStore}
		cfg := testConfig(domain.ExportRequest{})
		cfg.BatchSize = 1

		p := NewPipeline(cfg, store, src, WithLogger(logger))
		out := &captureSerializer{}
		rows, err := p.Run(context.Background(), out)

		assert.ErrorIs(t, err, errStore)
		assert.Zero(t, rows)
		assert.Equal(t, StateFailed, p.State())
		assert.Equal(t, 1, out.closed)
		testutil.AssertLogContains(t, handler, slog.LevelError, "export run failed")
		assert.True(t, handler.ContainsAttr("rows", int64(0)))
	})

	t.Run("catalog error", func(t *testing.T) {
		cfg := testConfig(domain.ExportRequest{})
		p := NewPipeline(cfg, src, failingCatalog{})
		rows, err := p.Run(context.Background(), &captureSerializer{})
		assert.ErrorIs(t, err, errCatalogDown)
		assert.Zero(t, rows)
		assert.Equal(t, StateFailed, p.State())
	})

	t.Run("write error", func(t *testing.T) {
		errDisk := errors.New("disk full")
		p := NewPipeline(testConfig(domain.ExportRequest{}), src, src)
		_, err := p.Run(context.Background(), &captureSerializer{writeErr: errDisk})
		assert.ErrorIs(t, err, errDisk)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		p := NewPipeline(testConfig(domain.ExportRequest{}), src, src)
		_, err := p.Run(ctx, &captureSerializer{})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("single use", func(t *testing.T) {
		p := NewPipeline(testConfig(domain.ExportRequest{}), src, src)
		_, err := p.Run(context.Background(), &captureSerializer{})
		require.NoError(t, err)
		_, err = p.Run(context.Background(), &captureSerializer{})
		assert.Error(t, err)
		assert.Equal(t, StateCompleted, p.State())
	})
}

func TestPipelineBufferedStates(t *testing.T) {
	src := newFixtureSource(t)
	p := NewPipeline(testConfig(domain.ExportRequest{}), src, src)
	_, err := p.Run(context.Background(), &captureSerializer{buffered: true})
	require.NoError(t, err)
	assert.Contains(t, p.History(), StateBuffering)
	assert.NotContains(t, p.History(), StateWriting)
}
