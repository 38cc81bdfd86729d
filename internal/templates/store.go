// Package templates manages saved export configurations. Templates are owner
// scoped: every operation takes the owner id and never sees another owner's
// templates.
package templates

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"wexport/pkg/contracts/domain"
)

var (
	ErrNotFound      = errors.New("template not found")
	ErrInvalidName   = errors.New("template name must be 1 to 100 characters")
	ErrInvalidImport = errors.New("invalid template import")
)

// Store persists templates. Implementations must be safe for concurrent use.
type Store interface {
	// List returns the owner's templates ordered by name
	List(ctx context.Context, ownerID int64) ([]domain.Template, error)
	// Get returns ErrNotFound for an unknown id or another owner's template
	Get(ctx context.Context, ownerID int64, id string) (domain.Template, error)
	// Put inserts or replaces a template by id
	Put(ctx context.Context, t domain.Template) error
	Delete(ctx context.Context, ownerID int64, id string) error
	// SetDefault flags id as the owner's only default
	SetDefault(ctx context.Context, ownerID int64, id string) error
}

// MemoryStore keeps templates in a map keyed by id
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string]domain.Template
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{templates: make(map[string]domain.Template)}
}

// List implements Store
func (s *MemoryStore) List(ctx context.Context, ownerID int64) ([]domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Template, 0)
	for _, t := range s.templates {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b domain.Template) int {
		if c := strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Get implements Store
func (s *MemoryStore) Get(ctx context.Context, ownerID int64, id string) (domain.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[id]
	if !ok || t.OwnerID != ownerID {
		return domain.Template{}, ErrNotFound
	}
	return t, nil
}

// Put implements Store
func (s *MemoryStore) Put(ctx context.Context, t domain.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.templates[t.ID]; ok && existing.OwnerID != t.OwnerID {
		return ErrNotFound
	}
	if t.IsDefault {
		s.clearDefault(t.OwnerID)
	}
	s.templates[t.ID] = t
	return nil
}

// Delete implements Store
func (s *MemoryStore) Delete(ctx context.Context, ownerID int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.templates[id]
	if !ok || t.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(s.templates, id)
	return nil
}

// SetDefault implements Store
func (s *MemoryStore) SetDefault(ctx context.Context, ownerID int64, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.templates[id]
	if !ok || t.OwnerID != ownerID {
		return ErrNotFound
	}
	s.clearDefault(ownerID)
	t.IsDefault = true
	s.templates[id] = t
	return nil
}

func (s *MemoryStore) clearDefault(ownerID int64) {
	for id, t := range s.templates {
		if t.OwnerID == ownerID && t.IsDefault {
			t.IsDefault = false
			s.templates[id] = t
		}
	}
}
