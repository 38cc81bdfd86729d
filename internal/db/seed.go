package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"wexport/pkg/contracts/domain"
)

// ProductTerms assigns term names of one taxonomy to a product
type ProductTerms struct {
	ProductID int64    `yaml:"product_id"`
	Taxonomy  string   `yaml:"taxonomy"`
	Terms     []string `yaml:"terms"`
}

// Fixtures is a catalog and order set loaded into the database by Seed
type Fixtures struct {
	Taxonomies []string         `yaml:"taxonomies"`
	Products   []domain.Product `yaml:"products"`
	Terms      []ProductTerms   `yaml:"terms"`
	Orders     []domain.Order   `yaml:"orders"`
}

// LoadFixtures reads a YAML fixtures file
func LoadFixtures(path string) (*Fixtures, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}
	return &f, nil
}

// Seed upserts fixtures in a single transaction
func (db *DB) Seed(ctx context.Context, f *Fixtures) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for _, name := range f.Taxonomies {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO taxonomies (name) VALUES (?)`, name); err != nil {
				return fmt.Errorf("failed to insert taxonomy %q: %w", name, err)
			}
		}
		for _, p := range f.Products {
			if err := upsertProduct(ctx, tx, p); err != nil {
				return err
			}
		}
		for _, t := range f.Terms {
			if err := replaceTerms(ctx, tx, t); err != nil {
				return err
			}
		}
		for _, o := range f.Orders {
			if err := upsertOrder(ctx, tx, o); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertProduct(ctx context.Context, tx *sql.Tx, p domain.Product) error {
	attributes, err := encodeJSON(p.Attributes)
	if err != nil {
		return err
	}
	meta, err := encodeJSON(p.Meta)
	if err != nil {
		return err
	}
	typ := p.Type
	if typ == "" {
		typ = domain.ProductTypeSimple
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, parent_id, type, sku, name, attributes, meta)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_id = excluded.parent_id, type = excluded.type, sku = excluded.sku,
			name = excluded.name, attributes = excluded.attributes, meta = excluded.meta`,
		p.ID, p.ParentID, string(typ), p.SKU, p.Name, attributes, meta)
	if err != nil {
		return fmt.Errorf("failed to upsert product %d: %w", p.ID, err)
	}
	return nil
}

func replaceTerms(ctx context.Context, tx *sql.Tx, t ProductTerms) error {
	if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO taxonomies (name) VALUES (?)`, t.Taxonomy); err != nil {
		return fmt.Errorf("failed to insert taxonomy %q: %w", t.Taxonomy, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM product_terms WHERE product_id = ? AND taxonomy = ?`, t.ProductID, t.Taxonomy); err != nil {
		return fmt.Errorf("failed to clear terms: %w", err)
	}
	for i, term := range t.Terms {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO product_terms (product_id, taxonomy, term, position) VALUES (?, ?, ?, ?)`,
			t.ProductID, t.Taxonomy, term, i); err != nil {
			return fmt.Errorf("failed to insert term %q: %w", term, err)
		}
	}
	return nil
}

func upsertOrder(ctx context.Context, tx *sql.Tx, o domain.Order) error {
	methods, err := encodeJSON(o.ShippingMethods)
	if err != nil {
		return err
	}
	meta, err := encodeJSON(o.Meta)
	if err != nil {
		return err
	}

	// Replacing the row cascades to its line items
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, o.ID); err != nil {
		return fmt.Errorf("failed to replace order %d: %w", o.ID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.CreatedAt.Unix(), o.Status,
		o.Billing.FirstName, o.Billing.LastName, o.Billing.Email, o.Billing.Phone,
		o.Shipping.Address1, o.Shipping.Address2, o.Shipping.City, o.Shipping.State, o.Shipping.Postcode,
		methods, o.PaymentMethodTitle, o.Total, meta)
	if err != nil {
		return fmt.Errorf("failed to insert order %d: %w", o.ID, err)
	}

	for i, li := range o.Items {
		itemMeta, err := encodeJSON(li.Meta)
		if err != nil {
			return err
		}
		var id any
		if li.ID > 0 {
			id = li.ID
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, position, product_id, variation_id, name,
				quantity, total, total_tax, subtotal, meta)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, o.ID, i, li.ProductID, li.VariationID, li.Name,
			li.Quantity, li.Total, li.TotalTax, li.Subtotal, itemMeta); err != nil {
			return fmt.Errorf("failed to insert item of order %d: %w", o.ID, err)
		}
	}
	return nil
}
