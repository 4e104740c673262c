package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Series struct {
	bun.BaseModel `bun:"table:series,alias:s"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LibraryID int       `bun:",nullzero" json:"library_id"`

	Name        string  `bun:",nullzero" json:"name"`
	Description *string `json:"description,omitempty"`
	ImagePath   *string `json:"image_path,omitempty"`

	BookCount int `bun:",scanonly" json:"book_count"`
}

// HasIdentity reports whether the series carries identity markers beyond its
// name. Orphan cleanup retains series with identity even at zero books.
func (s *Series) HasIdentity() bool {
	return (s.Description != nil && *s.Description != "") ||
		(s.ImagePath != nil && *s.ImagePath != "")
}
