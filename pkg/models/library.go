package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	MediaKindBook    = "book"
	MediaKindPodcast = "podcast"
)

type Library struct {
	bun.BaseModel `bun:"table:libraries,alias:l"`

	ID             int              `bun:",pk,nullzero" json:"id"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
	Name           string           `bun:",nullzero" json:"name"`
	MediaKind      string           `bun:",nullzero" json:"media_kind"`
	AudiobooksOnly bool             `json:"audiobooks_only"`
	Folders        []*LibraryFolder `bun:"rel:has-many" json:"folders,omitempty"`
	DeletedAt      *time.Time       `json:"deleted_at,omitempty"`
}

type LibraryFolder struct {
	bun.BaseModel `bun:"table:library_folders,alias:lf"`

	ID        int       `bun:",pk,nullzero" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LibraryID int       `bun:",nullzero" json:"library_id"`
	Path      string    `bun:",nullzero" json:"path"`
}
