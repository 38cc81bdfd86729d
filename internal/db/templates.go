package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wexport/internal/templates"
	"wexport/pkg/contracts/domain"
)

// TemplateRepository stores templates in SQLite. It implements templates.Store.
type TemplateRepository struct {
	db *DB
}

// NewTemplateRepository creates a template repository over db
func NewTemplateRepository(db *DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

var _ templates.Store = (*TemplateRepository)(nil)

const templateColumns = `id, owner_id, name, config, is_default, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (domain.Template, error) {
	var (
		t                    domain.Template
		config               string
		isDefault            int
		createdAt, updatedAt int64
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Name, &config, &isDefault, &createdAt, &updatedAt); err != nil {
		return t, err
	}
	if err := json.Unmarshal([]byte(config), &t.Config); err != nil {
		return t, fmt.Errorf("template %s config: %w", t.ID, err)
	}
	t.IsDefault = isDefault == 1
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return t, nil
}

// List implements templates.Store
func (r *TemplateRepository) List(ctx context.Context, ownerID int64) ([]domain.Template, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE owner_id = ? ORDER BY name COLLATE NOCASE, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Template, 0)
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Get implements templates.Store
func (r *TemplateRepository) Get(ctx context.Context, ownerID int64, id string) (domain.Template, error) {
	t, err := scanTemplate(r.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE id = ? AND owner_id = ?`, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Template{}, templates.ErrNotFound
	}
	if err != nil {
		return domain.Template{}, fmt.Errorf("failed to get template: %w", err)
	}
	return t, nil
}

// Put implements templates.Store
func (r *TemplateRepository) Put(ctx context.Context, t domain.Template) error {
	config, err := json.Marshal(t.Config)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		var owner int64
		err := tx.QueryRowContext(ctx, `SELECT owner_id FROM templates WHERE id = ?`, t.ID).Scan(&owner)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("failed to check template: %w", err)
		case owner != t.OwnerID:
			return templates.ErrNotFound
		}

		if t.IsDefault {
			if _, err := tx.ExecContext(ctx,
				`UPDATE templates SET is_default = 0 WHERE owner_id = ? AND id <> ?`, t.OwnerID, t.ID); err != nil {
				return fmt.Errorf("failed to clear default: %w", err)
			}
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO templates (`+templateColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name, config = excluded.config,
				is_default = excluded.is_default, updated_at = excluded.updated_at`,
			t.ID, t.OwnerID, t.Name, string(config), boolInt(t.IsDefault), t.CreatedAt.Unix(), t.UpdatedAt.Unix())
		if err != nil {
			return fmt.Errorf("failed to save template: %w", err)
		}
		return nil
	})
}

// Delete implements templates.Store
func (r *TemplateRepository) Delete(ctx context.Context, ownerID int64, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return requireAffected(res)
}

// SetDefault implements templates.Store
func (r *TemplateRepository) SetDefault(ctx context.Context, ownerID int64, id string) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE templates SET is_default = 0 WHERE owner_id = ? AND id <> ?`, ownerID, id); err != nil {
			return fmt.Errorf("failed to clear default: %w", err)
		}
		res, err := tx.ExecContext(ctx,
			`UPDATE templates SET is_default = 1 WHERE id = ? AND owner_id = ?`, id, ownerID)
		if err != nil {
			return fmt.Errorf("failed to set default: %w", err)
		}
		return requireAffected(res)
	})
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return templates.ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
