package models

import (
	"time"

	"github.com/hondanabooks/hondana/pkg/mediafile"
	"github.com/uptrace/bun"
)

// LibraryFile is one member file of a LibraryItem. Identity across
// renames/moves is (Ino, DeviceID); neither field alone is sufficient.
type LibraryFile struct {
	bun.BaseModel `bun:"table:library_files,alias:f"`

	ID            int       `bun:",pk,nullzero" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LibraryItemID string    `bun:",nullzero" json:"library_item_id"`

	Ino      uint64 `json:"ino"`
	DeviceID uint64 `json:"device_id"`

	Path        string `bun:",nullzero" json:"path"`
	RelPath     string `bun:",nullzero" json:"rel_path"`
	Filename    string `bun:",nullzero" json:"filename"`
	Ext         string `bun:",nullzero" json:"ext"`
	Size        int64  `json:"size"`
	MTimeMs     int64  `bun:"mtime_ms" json:"mtime_ms"`
	CTimeMs     int64  `bun:"ctime_ms" json:"ctime_ms"`
	BirthTimeMs int64  `json:"birth_time_ms"`

	// IsSupplementary marks non-primary media files, e.g. a second ebook
	// format alongside the main one.
	IsSupplementary bool `json:"is_supplementary"`
}

func (f *LibraryFile) Kind() mediafile.Kind {
	return mediafile.Classify(f.Filename)
}

func (f *LibraryFile) IsAudio() bool {
	return f.Kind() == mediafile.KindAudio
}

func (f *LibraryFile) IsEbook() bool {
	return f.Kind() == mediafile.KindEbook
}

func (f *LibraryFile) IsImage() bool {
	return f.Kind() == mediafile.KindImage
}

// IsMetadataSidecar reports whether this file is a metadata sidecar
// (opf/abs/xml or metadata.json). Sidecar mtime/size changes are ignored by
// reconciliation since the scanner itself rewrites them.
func (f *LibraryFile) IsMetadataSidecar() bool {
	return f.Kind() == mediafile.KindMetadata
}
