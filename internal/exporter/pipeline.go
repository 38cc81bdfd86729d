package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wexport/pkg/contracts/domain"
)

// State is the lifecycle stage of a pipeline run
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateFormatting State = "formatting"
	StateWriting    State = "writing"
	StateBuffering  State = "buffering"
	StateFinalizing State = "finalizing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Pipeline drives one export run: it pages through the order store, renders
// rows per the configured mode and hands them to a serializer.
// A Pipeline is single use and not safe for concurrent use.
type Pipeline struct {
	cfg        domain.ExportConfig
	store      OrderStore
	formatter  *Formatter
	resolver   *Resolver
	layout     Layout
	logger     *slog.Logger
	maxBatches int

	state   State
	history []State
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithMaxBatches stops the run once n batches worth of orders have matched
// every filter; used for previews
func WithMaxBatches(n int) Option {
	return func(p *Pipeline) {
		p.maxBatches = n
	}
}

// WithLogger sets the pipeline logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates a pipeline for a normalized config
func NewPipeline(cfg domain.ExportConfig, store OrderStore, catalog Catalog, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:       cfg,
		store:     store,
		formatter: NewFormatter(catalog, cfg.RemoveVariationFromProductName),
		resolver:  NewResolver(catalog),
		layout:    NewLayout(cfg),
		logger:    slog.Default(),
		state:     StateIdle,
		history:   []State{StateIdle},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cfg.BatchSize <= 0 {
		p.cfg.BatchSize = 100
	}
	p.logger = p.logger.With(slog.String("component", "export_pipeline"))
	return p
}

// Columns returns the output column order
func (p *Pipeline) Columns() []string {
	return p.layout.Columns()
}

// State returns the current stage
func (p *Pipeline) State() State {
	return p.state
}

// History returns every stage entered, in order
func (p *Pipeline) History() []State {
	return append([]State(nil), p.history...)
}

func (p *Pipeline) transition(s State) {
	if p.state == s {
		return
	}
	p.state = s
	p.history = append(p.history, s)
}

// Run executes the export, writing into s, and returns the number of data
// rows written. s is closed on both success and failure.
func (p *Pipeline) Run(ctx context.Context, s Serializer) (rows int, err error) {
	if p.state != StateIdle {
		return 0, fmt.Errorf("pipeline already run")
	}

	start := time.Now()
	columns := p.layout.Columns()
	closed := false

	defer func() {
		if err != nil {
			if !closed {
				s.Close()
			}
			p.transition(StateFailed)
			p.logger.ErrorContext(ctx, "export run failed",
				slog.Any("filters", p.cfg.Summary()),
				slog.Int("rows", 0),
				slog.String("error", err.Error()))
		}
	}()

	query, postFilter, err := p.query()
	if err != nil {
		return 0, err
	}

	headerWritten := !p.cfg.IncludeHeaders
	writeHeader := func() error {
		if headerWritten {
			return nil
		}
		headerWritten = true
		if err := s.WriteHeader(columns); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		return nil
	}

	// Orders rejected in memory do not count toward the preview limit
	maxOrders := p.maxBatches * query.Limit
	accepted := 0
	limitReached := func() bool {
		return p.maxBatches > 0 && accepted >= maxOrders
	}

	for !limitReached() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		p.transition(StateFetching)
		orders, err := p.store.FindOrders(ctx, query)
		if err != nil {
			return 0, fmt.Errorf("fetch orders at offset %d: %w", query.Offset, err)
		}
		if len(orders) == 0 {
			break
		}
		p.logger.DebugContext(ctx, "fetched order batch",
			slog.Int("offset", query.Offset),
			slog.Int("count", len(orders)))

		for _, order := range orders {
			if limitReached() {
				break
			}
			if postFilter != nil && !postFilter(order) {
				continue
			}
			accepted++

			p.transition(StateFormatting)
			out, err := p.orderRows(ctx, order)
			if err != nil {
				return 0, fmt.Errorf("format order %d: %w", order.ID, err)
			}

			if s.Buffered() {
				p.transition(StateBuffering)
			} else {
				p.transition(StateWriting)
			}
			if err := writeHeader(); err != nil {
				return 0, err
			}
			for _, row := range out {
				if err := s.WriteRow(row.Values(columns)); err != nil {
					return 0, fmt.Errorf("write row for order %d: %w", order.ID, err)
				}
				rows++
			}
		}

		query.Offset += query.Limit
	}

	p.transition(StateFinalizing)
	if err := writeHeader(); err != nil {
		return 0, err
	}
	closed = true
	if err := s.Close(); err != nil {
		return 0, fmt.Errorf("finalize output: %w", err)
	}
	p.transition(StateCompleted)

	p.logger.InfoContext(ctx, "export run completed",
		slog.Any("filters", p.cfg.Summary()),
		slog.Int("rows", rows),
		slog.Duration("duration", time.Since(start)))
	return rows, nil
}

// orderRows renders one order into its output rows per the export mode
func (p *Pipeline) orderRows(ctx context.Context, order domain.Order) ([]Row, error) {
	orderRow := p.formatter.FormatOrder(order, p.layout.OrderColumns)
	columns := p.layout.Columns()

	if len(order.Items) == 0 {
		return []Row{orderRow.Fill(columns)}, nil
	}

	itemRows := make([]Row, 0, len(order.Items))
	for _, item := range order.Items {
		itemRow, err := p.formatter.FormatItem(ctx, item, p.layout.ItemColumns)
		if err != nil {
			return nil, err
		}
		custom, err := p.resolver.Resolve(ctx, item.EffectiveProductID(), p.cfg.CustomCodeMappings, p.cfg.MultiTermSeparator)
		if err != nil {
			return nil, err
		}
		itemRows = append(itemRows, itemRow.merge(custom))
	}

	if p.cfg.ExportMode == domain.ExportModeOrder {
		merged := MergeRows(itemRows, p.cfg.MultiTermSeparator)
		return []Row{orderRow.merge(merged).Fill(columns)}, nil
	}

	out := make([]Row, 0, len(itemRows))
	for _, itemRow := range itemRows {
		out = append(out, orderRow.merge(itemRow).Fill(columns))
	}
	return out, nil
}

// query builds the first page query. A single date bound is pushed down to
// the store; with both bounds only the lower one is, and both are enforced
// in memory. Bounds are inclusive whole days in UTC.
func (p *Pipeline) query() (OrderQuery, func(domain.Order) bool, error) {
	q := OrderQuery{
		Statuses: p.cfg.OrderStatus,
		Limit:    p.cfg.BatchSize,
	}

	from, err := parseDayStart(p.cfg.DateFrom)
	if err != nil {
		return q, nil, err
	}
	to, err := parseDayEnd(p.cfg.DateTo)
	if err != nil {
		return q, nil, err
	}

	switch {
	case from != nil && to != nil:
		q.CreatedAfter = from
		lower, upper := *from, *to
		return q, func(o domain.Order) bool {
			created := o.CreatedAt.UTC()
			return !created.Before(lower) && !created.After(upper)
		}, nil
	case from != nil:
		q.CreatedAfter = from
	case to != nil:
		q.CreatedBefore = to
	}
	return q, nil, nil
}

func parseDayStart(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, v, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date_from %q: %w", v, err)
	}
	return &t, nil
}

func parseDayEnd(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, v, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date_to %q: %w", v, err)
	}
	end := t.Add(24*time.Hour - time.Second)
	return &end, nil
}
