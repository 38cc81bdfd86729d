package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"wexport/internal/exporter"
	"wexport/pkg/contracts/domain"
)

// CopySuffix is appended to the name of a duplicated template
const CopySuffix = " (Copy)"

// Manager implements the template operations on top of a Store
type Manager struct {
	store    Store
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time

	normalize func(domain.ExportConfig) domain.ExportConfig
}

// Option configures a Manager
type Option func(*Manager)

// WithNormalizer runs imported configs through n before they are stored
func WithNormalizer(n *exporter.Normalizer) Option {
	return func(m *Manager) {
		m.normalize = n.NormalizeConfig
	}
}

// NewManager creates a manager over store
func NewManager(store Store, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		store:    store,
		validate: validator.New(),
		logger:   logger.With(slog.String("component", "templates")),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ValidateName sanitizes a template name and checks its length
func (m *Manager) ValidateName(name string) (string, error) {
	name = exporter.SanitizeText(name)
	if err := m.validate.Var(name, "required,max=100"); err != nil {
		return "", ErrInvalidName
	}
	return name, nil
}

// List returns the owner's templates
func (m *Manager) List(ctx context.Context, ownerID int64) ([]domain.Template, error) {
	return m.store.List(ctx, ownerID)
}

// Get returns one of the owner's templates
func (m *Manager) Get(ctx context.Context, ownerID int64, id string) (domain.Template, error) {
	return m.store.Get(ctx, ownerID, id)
}

// Save creates a template, or updates name and config of an existing one when id is set
func (m *Manager) Save(ctx context.Context, ownerID int64, name string, cfg domain.ExportConfig, id string) (domain.TemplateSummary, error) {
	name, err := m.ValidateName(name)
	if err != nil {
		return domain.TemplateSummary{}, err
	}

	now := m.now()
	var t domain.Template
	if id != "" {
		t, err = m.store.Get(ctx, ownerID, id)
		if err != nil {
			return domain.TemplateSummary{}, err
		}
	} else {
		t = domain.Template{
			ID:        uuid.NewString(),
			OwnerID:   ownerID,
			CreatedAt: now,
		}
	}
	t.Name = name
	t.Config = cfg
	t.UpdatedAt = now

	if err := m.store.Put(ctx, t); err != nil {
		return domain.TemplateSummary{}, fmt.Errorf("failed to save template: %w", err)
	}

	m.logger.InfoContext(ctx, "template saved",
		slog.String("template_id", t.ID),
		slog.Int64("owner_id", ownerID),
		slog.Bool("created", id == ""))
	return domain.TemplateSummary{ID: t.ID, Name: t.Name}, nil
}

// Delete removes one of the owner's templates
func (m *Manager) Delete(ctx context.Context, ownerID int64, id string) error {
	if err := m.store.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "template deleted",
		slog.String("template_id", id),
		slog.Int64("owner_id", ownerID))
	return nil
}

// Duplicate copies a template; an empty newName yields "<name> (Copy)"
func (m *Manager) Duplicate(ctx context.Context, ownerID int64, id, newName string) (domain.TemplateSummary, error) {
	t, err := m.store.Get(ctx, ownerID, id)
	if err != nil {
		return domain.TemplateSummary{}, err
	}
	if newName == "" {
		newName = t.Name + CopySuffix
	}
	return m.Save(ctx, ownerID, newName, t.Config, "")
}

// Rename changes only the template name
func (m *Manager) Rename(ctx context.Context, ownerID int64, id, name string) (domain.TemplateSummary, error) {
	t, err := m.store.Get(ctx, ownerID, id)
	if err != nil {
		return domain.TemplateSummary{}, err
	}
	return m.Save(ctx, ownerID, name, t.Config, id)
}

// SetDefault makes id the owner's only default template
func (m *Manager) SetDefault(ctx context.Context, ownerID int64, id string) error {
	return m.store.SetDefault(ctx, ownerID, id)
}

// Default returns the owner's default template or ErrNotFound
func (m *Manager) Default(ctx context.Context, ownerID int64) (domain.Template, error) {
	all, err := m.store.List(ctx, ownerID)
	if err != nil {
		return domain.Template{}, err
	}
	for _, t := range all {
		if t.IsDefault {
			return t, nil
		}
	}
	return domain.Template{}, ErrNotFound
}

// Export encodes the owner's templates, or the subset in ids, as JSON without ownership
func (m *Manager) Export(ctx context.Context, ownerID int64, ids []string) ([]byte, error) {
	all, err := m.store.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Template, 0, len(all))
	for _, t := range all {
		if len(ids) > 0 && !slices.Contains(ids, t.ID) {
			continue
		}
		t.OwnerID = 0
		t.IsDefault = false
		out = append(out, t)
	}
	return json.Marshal(out)
}

type importedTemplate struct {
	Name   string               `json:"name"`
	Config *domain.ExportConfig `json:"config"`
}

// Import saves every entry with a valid name and a config as a new template
// of the owner and returns the new ids. Configs are normalized first when the
// manager has a normalizer.
func (m *Manager) Import(ctx context.Context, ownerID int64, data []byte) ([]string, error) {
	var entries []importedTemplate
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Name == "" || e.Config == nil {
			continue
		}
		cfg := *e.Config
		if m.normalize != nil {
			cfg = m.normalize(cfg)
		}
		summary, err := m.Save(ctx, ownerID, e.Name, cfg, "")
		if errors.Is(err, ErrInvalidName) {
			continue
		}
		if err != nil {
			return ids, err
		}
		ids = append(ids, summary.ID)
	}
	return ids, nil
}
