// Package sidecar writes metadata.json files back into item folders. The
// document shape matches what pkg/absmeta parses, so a written sidecar
// round-trips through the next scan.
package sidecar

import (
	"os"
	"path/filepath"

	"github.com/hondanabooks/hondana/pkg/models"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// Filename is the sidecar filename inside an item folder.
const Filename = "metadata.json"

// document mirrors the metadata.json shape read by pkg/absmeta.
type document struct {
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	Narrators     []string `json:"narrators,omitempty"`
	Series        []string `json:"series,omitempty"`
	Genres        []string `json:"genres,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Publisher     string   `json:"publisher,omitempty"`
	PublishedYear string   `json:"publishedYear,omitempty"`
	ISBN          string   `json:"isbn,omitempty"`
	ASIN          string   `json:"asin,omitempty"`
	Language      string   `json:"language,omitempty"`
	Abridged      *bool    `json:"abridged,omitempty"`
	Description   string   `json:"description,omitempty"`

	Author   string `json:"author,omitempty"`
	FeedURL  string `json:"feedUrl,omitempty"`
	ITunesID string `json:"itunesId,omitempty"`
}

// PathFor returns the sidecar path for an item, or "" for single-file items,
// which have no folder of their own to hold one.
func PathFor(item *models.LibraryItem) string {
	if item.IsFile {
		return ""
	}
	return filepath.Join(filepath.FromSlash(item.Path), Filename)
}

// WriteBook serializes a book into the item's metadata.json.
func WriteBook(item *models.LibraryItem, book *models.Book) error {
	doc := &document{
		Title:     book.Title,
		Authors:   book.AuthorNames(),
		Narrators: book.Narrators,
		Genres:    book.Genres,
		Tags:      book.Tags,
	}
	if book.Subtitle != nil {
		doc.Subtitle = *book.Subtitle
	}
	if book.Description != nil {
		doc.Description = *book.Description
	}
	if book.Publisher != nil {
		doc.Publisher = *book.Publisher
	}
	if book.PublishedYear != nil {
		doc.PublishedYear = *book.PublishedYear
	}
	if book.ISBN != nil {
		doc.ISBN = *book.ISBN
	}
	if book.ASIN != nil {
		doc.ASIN = *book.ASIN
	}
	if book.Language != nil {
		doc.Language = *book.Language
	}
	if book.Abridged {
		abridged := true
		doc.Abridged = &abridged
	}
	for _, bs := range book.Series {
		if bs.Series == nil {
			continue
		}
		entry := bs.Series.Name
		if bs.Sequence != nil && *bs.Sequence != "" {
			// Inline sequence suffix, the same form the parser accepts.
			entry += " #" + *bs.Sequence
		}
		doc.Series = append(doc.Series, entry)
	}

	return write(item, doc)
}

// WritePodcast serializes a podcast into the item's metadata.json.
func WritePodcast(item *models.LibraryItem, podcast *models.Podcast) error {
	doc := &document{
		Title:  podcast.Title,
		Genres: podcast.Genres,
		Tags:   podcast.Tags,
	}
	if podcast.Author != nil {
		doc.Author = *podcast.Author
	}
	if podcast.Description != nil {
		doc.Description = *podcast.Description
	}
	if podcast.FeedURL != nil {
		doc.FeedURL = *podcast.FeedURL
	}
	if podcast.ITunesID != nil {
		doc.ITunesID = *podcast.ITunesID
	}
	if podcast.Language != nil {
		doc.Language = *podcast.Language
	}

	return write(item, doc)
}

func write(item *models.LibraryItem, doc *document) error {
	path := PathFor(item)
	if path == "" {
		return nil
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return errors.WithStack(err)
	}

	// Readable by other applications on purpose.
	return errors.WithStack(os.WriteFile(path, append(data, '\n'), 0644)) //nolint:gosec
}
