package ebook

import (
	"strings"

	"github.com/hondanabooks/hondana/pkg/opf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pkg/errors"
)

// ParsePDF reads the document information dictionary of a PDF. Titles and
// authors map directly; keywords become genres and the subject becomes the
// description.
func ParsePDF(path string) (*Metadata, error) {
	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	meta := &opf.Metadata{
		Title:       strings.TrimSpace(ctx.Title),
		Description: strings.TrimSpace(ctx.Subject),
	}
	if author := strings.TrimSpace(ctx.Author); author != "" {
		for _, name := range strings.Split(author, ",") {
			if name = strings.TrimSpace(name); name != "" {
				meta.Authors = append(meta.Authors, name)
			}
		}
	}
	if keywords := strings.TrimSpace(ctx.Keywords); keywords != "" {
		for _, kw := range strings.Split(keywords, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				meta.Genres = append(meta.Genres, kw)
			}
		}
	}

	return &Metadata{Metadata: meta}, nil
}
