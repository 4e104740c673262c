package ebook

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/hondanabooks/hondana/pkg/opf"
	"github.com/pkg/errors"
)

// Metadata is what we could read out of an ebook file, plus the raw bytes of
// its embedded cover image when one was found.
type Metadata struct {
	*opf.Metadata

	CoverMIMEType string
	CoverData     []byte
}

// Parse reads metadata from an ebook file, dispatching on extension. Only
// EPUB and PDF carry metadata we can read; other formats return nil without
// error.
func Parse(path string) (*Metadata, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epub":
		return ParseEPUB(path)
	case ".pdf":
		return ParsePDF(path)
	}
	return nil, nil
}

// ParseEPUB locates the OPF document inside the EPUB archive, parses it, and
// extracts the referenced cover image.
func ParseEPUB(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	stats, err := f.Stat()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	zipReader, err := zip.NewReader(f, stats.Size())
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var parsed *opf.Metadata
	for _, file := range zipReader.File {
		if filepath.Ext(file.Name) != ".opf" {
			continue
		}
		r, err := file.Open()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		parsed, err = opf.Parse(r, file.Name)
		r.Close()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		break
	}
	if parsed == nil {
		return nil, errors.New("no opf document found in epub")
	}

	meta := &Metadata{Metadata: parsed}
	if parsed.CoverHref != "" {
		data, err := readZipFile(zipReader, parsed.CoverHref)
		if err != nil {
			return nil, err
		}
		if data != nil {
			meta.CoverData = data
			meta.CoverMIMEType = parsed.CoverMediaType
			if meta.CoverMIMEType == "" {
				meta.CoverMIMEType = mimetype.Detect(data).String()
			}
		}
	}
	return meta, nil
}

// readZipFile returns the contents of the named archive entry, or nil when
// the entry doesn't exist. A cover the manifest lies about is not an error.
func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, file := range zr.File {
		if file.Name != name {
			continue
		}
		r, err := file.Open()
		if err != nil {
			return nil, errors.WithStack(err)
		}
		defer r.Close()
		b, err := io.ReadAll(r)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		return b, nil
	}
	return nil, nil
}
