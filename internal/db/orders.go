package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"wexport/internal/exporter"
	"wexport/pkg/contracts/domain"
)

// OrderSource serves orders and the product catalog from SQLite.
// It implements exporter.OrderStore and exporter.Catalog.
type OrderSource struct {
	db *DB
}

// NewOrderSource creates an order source over db
func NewOrderSource(db *DB) *OrderSource {
	return &OrderSource{db: db}
}

var (
	_ exporter.OrderStore = (*OrderSource)(nil)
	_ exporter.Catalog    = (*OrderSource)(nil)
)

const orderColumns = `id, created_at, status, billing_first_name, billing_last_name, billing_email,
	billing_phone, shipping_address_1, shipping_address_2, shipping_city, shipping_state,
	shipping_postcode, shipping_methods, payment_method_title, total, meta`

// FindOrders implements exporter.OrderStore. Date bounds are inclusive.
func (s *OrderSource) FindOrders(ctx context.Context, q exporter.OrderQuery) ([]domain.Order, error) {
	var (
		where []string
		args  []any
	)
	if len(q.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(q.Statuses))+")")
		for _, st := range q.Statuses {
			args = append(args, st)
		}
	}
	if q.CreatedAfter != nil {
		where = append(where, "created_at >= ?")
		args = append(args, q.CreatedAfter.Unix())
	}
	if q.CreatedBefore != nil {
		where = append(where, "created_at <= ?")
		args = append(args, q.CreatedBefore.Unix())
	}

	query := "SELECT " + orderColumns + " FROM orders"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if q.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, q.Limit, q.Offset)
	} else if q.Offset > 0 {
		query += " LIMIT -1 OFFSET ?"
		args = append(args, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []domain.Order
		ids    []any
	)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read orders: %w", err)
	}
	if len(orders) == 0 {
		return nil, nil
	}

	items, err := s.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func scanOrder(rows *sql.Rows) (domain.Order, error) {
	var (
		o         domain.Order
		createdAt int64
		methods   string
		meta      string
	)
	err := rows.Scan(&o.ID, &createdAt, &o.Status,
		&o.Billing.FirstName, &o.Billing.LastName, &o.Billing.Email, &o.Billing.Phone,
		&o.Shipping.Address1, &o.Shipping.Address2, &o.Shipping.City, &o.Shipping.State, &o.Shipping.Postcode,
		&methods, &o.PaymentMethodTitle, &o.Total, &meta)
	if err != nil {
		return o, fmt.Errorf("failed to scan order: %w", err)
	}
	o.CreatedAt = time.Unix(createdAt, 0).UTC()
	if err := decodeJSON(methods, &o.ShippingMethods); err != nil {
		return o, fmt.Errorf("order %d shipping methods: %w", o.ID, err)
	}
	if err := decodeJSON(meta, &o.Meta); err != nil {
		return o, fmt.Errorf("order %d meta: %w", o.ID, err)
	}
	return o, nil
}

func (s *OrderSource) itemsFor(ctx context.Context, orderIDs []any) (map[int64][]domain.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, id, product_id, variation_id, name, quantity, total, total_tax, subtotal, meta
		FROM order_items
		WHERE order_id IN (`+placeholders(len(orderIDs))+`)
		ORDER BY order_id, position, id`, orderIDs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	items := make(map[int64][]domain.LineItem, len(orderIDs))
	for rows.Next() {
		var (
			orderID int64
			li      domain.LineItem
			meta    string
		)
		if err := rows.Scan(&orderID, &li.ID, &li.ProductID, &li.VariationID, &li.Name,
			&li.Quantity, &li.Total, &li.TotalTax, &li.Subtotal, &meta); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		if err := decodeJSON(meta, &li.Meta); err != nil {
			return nil, fmt.Errorf("line item %d meta: %w", li.ID, err)
		}
		items[orderID] = append(items[orderID], li)
	}
	return items, rows.Err()
}

// Product implements exporter.Catalog
func (s *OrderSource) Product(ctx context.Context, id int64) (domain.Product, error) {
	var (
		p          domain.Product
		typ        string
		attributes string
		meta       string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, parent_id, type, sku, name, attributes, meta FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.ParentID, &typ, &p.SKU, &p.Name, &attributes, &meta)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, exporter.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("failed to get product: %w", err)
	}
	p.Type = domain.ProductType(typ)
	if err := decodeJSON(attributes, &p.Attributes); err != nil {
		return domain.Product{}, fmt.Errorf("product %d attributes: %w", id, err)
	}
	if err := decodeJSON(meta, &p.Meta); err != nil {
		return domain.Product{}, fmt.Errorf("product %d meta: %w", id, err)
	}
	return p, nil
}

// TermNames implements exporter.Catalog
func (s *OrderSource) TermNames(ctx context.Context, productID int64, taxonomy string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT term FROM product_terms WHERE product_id = ? AND taxonomy = ? ORDER BY position, term`,
		productID, taxonomy)
	if err != nil {
		return nil, fmt.Errorf("failed to query terms: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan term: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// TaxonomyExists implements exporter.Catalog
func (s *OrderSource) TaxonomyExists(ctx context.Context, taxonomy string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM taxonomies WHERE name = ?`, taxonomy).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check taxonomy: %w", err)
	}
	return n > 0, nil
}

// Taxonomies implements exporter.Catalog
func (s *OrderSource) Taxonomies(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM taxonomies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query taxonomies: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan taxonomy: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func decodeJSON(raw string, v any) error {
	if raw == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}

func encodeJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
