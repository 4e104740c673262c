package covers

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/hondanabooks/hondana/pkg/mediafile"
	"github.com/pkg/errors"
)

// Candidate is embedded cover art pulled out of a media file.
type Candidate struct {
	MIMEType string
	Data     []byte
}

// SearchFunc looks up a cover from an external provider and returns the path
// of the downloaded image, or "" when nothing was found.
type SearchFunc func(ctx context.Context, title, author string) (string, error)

// Resolver picks an item's cover image. Precedence is fixed: an image file in
// the item folder wins over embedded audio art, which wins over embedded
// ebook art, which wins over an external search.
type Resolver struct {
	// Search is consulted last, and only when SearchEnabled is set on the
	// request. Nil disables external lookup entirely.
	Search SearchFunc
}

type ResolveOptions struct {
	// Dir is the item's absolute folder path. Embedded art gets written here.
	Dir string
	// ImageFilenames are the item's image files, relative to Dir.
	ImageFilenames []string

	AudioCover *Candidate
	EbookCover *Candidate

	Title         string
	Author        string
	SearchEnabled bool
}

// Resolve returns the absolute path of the chosen cover image, or "" when no
// source produced one.
func (r *Resolver) Resolve(ctx context.Context, opts ResolveOptions) (string, error) {
	if name := pickFolderImage(opts.ImageFilenames); name != "" {
		return filepath.Join(opts.Dir, name), nil
	}

	for _, candidate := range []*Candidate{opts.AudioCover, opts.EbookCover} {
		if candidate == nil || len(candidate.Data) == 0 {
			continue
		}
		path, err := r.writeEmbedded(opts.Dir, candidate)
		if err != nil {
			return "", err
		}
		return path, nil
	}

	if opts.SearchEnabled && r.Search != nil && opts.Title != "" {
		path, err := r.Search(ctx, opts.Title, opts.Author)
		if err != nil {
			return "", errors.WithStack(err)
		}
		return path, nil
	}

	return "", nil
}

// writeEmbedded materializes embedded art as cover.<ext> inside the item
// folder so later scans pick it up as a plain folder image. The extension
// comes from content sniffing, not the tag's reported MIME type.
func (r *Resolver) writeEmbedded(dir string, candidate *Candidate) (string, error) {
	ext := mimetype.Detect(candidate.Data).Extension()
	if !mediafile.IsImage(ext) {
		return "", errors.Errorf("embedded cover is not an image: %s", ext)
	}
	path := filepath.Join(dir, "cover"+ext)
	if err := os.WriteFile(path, candidate.Data, 0o644); err != nil {
		return "", errors.WithStack(err)
	}
	return path, nil
}

// preferredStems are image basenames treated as explicit covers, best first.
var preferredStems = []string{"cover", "folder", "poster", "front"}

// pickFolderImage chooses among an item folder's image files. A file named
// like an explicit cover wins; otherwise the alphabetically first image is
// used.
func pickFolderImage(filenames []string) string {
	if len(filenames) == 0 {
		return ""
	}
	for _, stem := range preferredStems {
		for _, name := range filenames {
			base := strings.ToLower(strings.TrimSuffix(filepath.Base(name), filepath.Ext(name)))
			if base == stem {
				return name
			}
		}
	}
	sorted := make([]string, len(filenames))
	copy(sorted, filenames)
	sort.Strings(sorted)
	return sorted[0]
}
