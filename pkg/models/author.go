package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Author struct {
	bun.BaseModel `bun:"table:authors,alias:a"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LibraryID int       `bun:",nullzero" json:"library_id"`

	Name        string  `bun:",nullzero" json:"name"`
	SortName    string  `bun:",nullzero" json:"sort_name"`
	ASIN        *string `json:"asin,omitempty"`
	Description *string `json:"description,omitempty"`
	ImagePath   *string `json:"image_path,omitempty"`

	BookCount int `bun:",scanonly" json:"book_count"`
}

// HasIdentity reports whether the author carries identity markers beyond its
// name. Orphan cleanup retains authors with identity even at zero books.
func (a *Author) HasIdentity() bool {
	return (a.ASIN != nil && *a.ASIN != "") ||
		(a.Description != nil && *a.Description != "") ||
		(a.ImagePath != nil && *a.ImagePath != "")
}
