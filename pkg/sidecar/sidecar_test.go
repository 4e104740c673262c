package sidecar

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hondanabooks/hondana/pkg/absmeta"
	"github.com/hondanabooks/hondana/pkg/models"
)

func TestPathFor(t *testing.T) {
	t.Parallel()

	dirItem := &models.LibraryItem{Path: "/library/Some Book"}
	assert.Equal(t, filepath.FromSlash("/library/Some Book/metadata.json"), PathFor(dirItem))

	fileItem := &models.LibraryItem{Path: "/library/Standalone.m4b", IsFile: true}
	assert.Equal(t, "", PathFor(fileItem))
}

func TestWriteBookRoundTrips(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	item := &models.LibraryItem{Path: dir}
	book := &models.Book{
		Title:         "Mistborn",
		Subtitle:      pointerutil.String("The Final Empire"),
		Publisher:     pointerutil.String("Tor"),
		PublishedYear: pointerutil.String("2006"),
		Abridged:      true,
		Narrators:     models.StringList{"Michael Kramer"},
		Genres:        models.StringList{"Fantasy"},
		Authors:       []*models.Author{{Name: "Brandon Sanderson"}},
		Series: []*models.BookSeries{
			{Series: &models.Series{Name: "Mistborn"}, Sequence: pointerutil.String("1")},
		},
	}

	require.NoError(t, WriteBook(item, book))

	meta, err := absmeta.ParseJSONFile(filepath.Join(dir, Filename))
	require.NoError(t, err)
	assert.Equal(t, "Mistborn", meta.Title)
	assert.Equal(t, "The Final Empire", meta.Subtitle)
	assert.Equal(t, []string{"Brandon Sanderson"}, meta.Authors)
	assert.Equal(t, []string{"Michael Kramer"}, meta.Narrators)
	assert.Equal(t, []string{"Fantasy"}, meta.Genres)
	assert.Equal(t, "Tor", meta.Publisher)
	assert.Equal(t, "2006", meta.PublishedYear)
	require.NotNil(t, meta.Abridged)
	assert.True(t, *meta.Abridged)
	require.Len(t, meta.Series, 1)
	assert.Equal(t, absmeta.SeriesRef{Name: "Mistborn", Sequence: "1"}, meta.Series[0])
}

func TestWritePodcastRoundTrips(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	item := &models.LibraryItem{Path: dir}
	podcast := &models.Podcast{
		Title:    "Some Show",
		Author:   pointerutil.String("Some Network"),
		FeedURL:  pointerutil.String("https://example.com/feed.xml"),
		ITunesID: pointerutil.String("123456"),
		Genres:   models.StringList{"Technology"},
	}

	require.NoError(t, WritePodcast(item, podcast))

	meta, err := absmeta.ParseJSONFile(filepath.Join(dir, Filename))
	require.NoError(t, err)
	assert.Equal(t, "Some Show", meta.Title)
	assert.Equal(t, "Some Network", meta.Author)
	assert.Equal(t, "https://example.com/feed.xml", meta.FeedURL)
	assert.Equal(t, "123456", meta.ITunesID)
	assert.Equal(t, []string{"Technology"}, meta.Genres)
}

func TestWriteSkipsFileItems(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	item := &models.LibraryItem{Path: filepath.Join(dir, "Standalone.m4b"), IsFile: true}
	require.NoError(t, WriteBook(item, &models.Book{Title: "Standalone"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
