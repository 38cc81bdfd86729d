package domain

import (
	"time"
)

// Template is a saved, reusable export configuration owned by one user
type Template struct {
	ID        string       `json:"id" db:"id"`
	Name      string       `json:"name" db:"name" validate:"required,max=100"`
	Config    ExportConfig `json:"config" db:"config"`
	OwnerID   int64        `json:"user_id,omitempty" db:"owner_id"`
	IsDefault bool         `json:"is_default"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

// TemplateSummary is the identity returned after a save
type TemplateSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
