package models

import (
	"time"

	"github.com/uptrace/bun"
)

// LibraryItem is one catalog entry corresponding to one book/podcast folder
// (or one root-level media file, in which case IsFile is true). Items are
// created on first discovery and flagged missing rather than deleted when
// their backing files disappear.
type LibraryItem struct {
	bun.BaseModel `bun:"table:library_items,alias:li"`

	ID              string    `bun:",pk,nullzero" json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	LibraryID       int       `bun:",nullzero" json:"library_id"`
	LibraryFolderID int       `bun:",nullzero" json:"library_folder_id"`
	Library         *Library  `bun:"rel:belongs-to" json:"library,omitempty"`

	Path      string `bun:",nullzero" json:"path"`
	RelPath   string `bun:",nullzero" json:"rel_path"`
	Ino       uint64 `json:"ino"`
	DeviceID  uint64 `json:"device_id"`
	IsFile    bool   `json:"is_file"`
	MediaKind string `bun:",nullzero" json:"media_kind"`

	MTime     time.Time  `bun:"mtime" json:"mtime"`
	CTime     time.Time  `bun:"ctime" json:"ctime"`
	BirthTime time.Time  `json:"birth_time"`
	LastScan  *time.Time `json:"last_scan,omitempty"`

	IsMissing bool  `json:"is_missing"`
	IsInvalid bool  `json:"is_invalid"`
	Size      int64 `json:"size"`

	Files   []*LibraryFile `bun:"rel:has-many,join:id=library_item_id" json:"files,omitempty"`
	Book    *Book          `bun:"rel:has-one,join:id=library_item_id" json:"book,omitempty"`
	Podcast *Podcast       `bun:"rel:has-one,join:id=library_item_id" json:"podcast,omitempty"`
}

// AudioFiles returns the item's non-supplementary audio files in list order.
func (li *LibraryItem) AudioFiles() []*LibraryFile {
	files := make([]*LibraryFile, 0, len(li.Files))
	for _, f := range li.Files {
		if f.IsAudio() && !f.IsSupplementary {
			files = append(files, f)
		}
	}
	return files
}

// EbookFile returns the item's primary ebook file, or nil.
func (li *LibraryItem) EbookFile() *LibraryFile {
	for _, f := range li.Files {
		if f.IsEbook() && !f.IsSupplementary {
			return f
		}
	}
	return nil
}

// HasMediaFiles reports whether the item has at least one usable media file
// (audio or ebook).
func (li *LibraryItem) HasMediaFiles() bool {
	for _, f := range li.Files {
		if f.IsAudio() || f.IsEbook() {
			return true
		}
	}
	return false
}

// TotalSize sums the sizes of the item's current files.
func (li *LibraryItem) TotalSize() int64 {
	var total int64
	for _, f := range li.Files {
		total += f.Size
	}
	return total
}
