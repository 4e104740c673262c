package absmeta

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// jsonSidecar mirrors the metadata.json document shape.
type jsonSidecar struct {
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle"`
	Authors       []string `json:"authors"`
	Narrators     []string `json:"narrators"`
	Series        []string `json:"series"`
	Genres        []string `json:"genres"`
	Tags          []string `json:"tags"`
	Publisher     string   `json:"publisher"`
	PublishedYear string   `json:"publishedYear"`
	ISBN          string   `json:"isbn"`
	ASIN          string   `json:"asin"`
	Language      string   `json:"language"`
	Abridged      *bool    `json:"abridged"`
	Explicit      *bool    `json:"explicit"`
	Description   string   `json:"description"`

	Author   string `json:"author"`
	FeedURL  string `json:"feedUrl"`
	ITunesID string `json:"itunesId"`
}

// ParseJSONFile reads and parses a metadata.json sidecar from disk.
func ParseJSONFile(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return ParseJSON(f)
}

// ParseJSON parses a metadata.json sidecar. Array values are trimmed and
// de-duplicated; series entries support an inline " #<sequence>" suffix.
func ParseJSON(r io.Reader) (*Metadata, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	var doc jsonSidecar
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.WithStack(err)
	}

	meta := &Metadata{
		Title:         doc.Title,
		Subtitle:      doc.Subtitle,
		Authors:       normalizeList(doc.Authors),
		Narrators:     normalizeList(doc.Narrators),
		Genres:        normalizeList(doc.Genres),
		Tags:          normalizeList(doc.Tags),
		Publisher:     doc.Publisher,
		PublishedYear: doc.PublishedYear,
		ISBN:          doc.ISBN,
		ASIN:          doc.ASIN,
		Language:      doc.Language,
		Abridged:      doc.Abridged,
		Explicit:      doc.Explicit,
		Description:   doc.Description,
		Author:        doc.Author,
		FeedURL:       doc.FeedURL,
		ITunesID:      doc.ITunesID,
	}
	for _, s := range normalizeList(doc.Series) {
		meta.Series = append(meta.Series, ParseSeries(s))
	}

	return meta, nil
}
