package nfo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	content := strings.Join([]string{
		"Title: The Final Empire",
		"Author: Brandon Sanderson",
		"Read by: Michael Kramer",
		"Series Name: Mistborn",
		"Position in Series: 1",
		"Genre: Fantasy, Epic",
		"Tags: favorites",
		"Publisher: Tor Books",
		"ASIN: B000UZQI0Q",
		"ISBN-13: 9780765311788",
		"Lang: English",
		"Unabridged: Yes",
		"Book Copyright: (c) 2006 Dragonsteel Entertainment",
		"",
		"Book Description",
		"=====================",
		"A thousand years ago evil came to the land.",
		"It has ruled with an iron hand ever since.",
	}, "\n")

	meta, err := Parse(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, "The Final Empire", meta.Title)
	assert.Equal(t, "Brandon Sanderson", meta.Author)
	assert.Equal(t, "Michael Kramer", meta.Narrator)
	assert.Equal(t, "Mistborn", meta.SeriesName)
	assert.Equal(t, "1", meta.SeriesSequence)
	assert.Equal(t, []string{"Fantasy", "Epic"}, meta.Genres)
	assert.Equal(t, []string{"favorites"}, meta.Tags)
	assert.Equal(t, "Tor Books", meta.Publisher)
	assert.Equal(t, "B000UZQI0Q", meta.ASIN)
	assert.Equal(t, "9780765311788", meta.ISBN)
	assert.Equal(t, "English", meta.Language)
	assert.Equal(t, "2006", meta.PublishedYear)
	require.NotNil(t, meta.Abridged)
	assert.False(t, *meta.Abridged)
	assert.Equal(t, "A thousand years ago evil came to the land.\nIt has ruled with an iron hand ever since.", meta.Description)
}

func TestParseDescriptionRunsToEOF(t *testing.T) {
	content := "Title: X\n\nbook description\nline one\nline two"
	meta, err := Parse(strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", meta.Description)
}

func TestParseDescriptionTerminatedByEqualsLine(t *testing.T) {
	content := strings.Join([]string{
		"Book Description",
		"first paragraph",
		"====",
		"Author: Ignored Inside Description? No - block ended",
	}, "\n")
	meta, err := Parse(strings.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, "first paragraph", meta.Description)
	assert.Equal(t, "Ignored Inside Description? No - block ended", meta.Author)
}

func TestParseCaseInsensitiveKeys(t *testing.T) {
	meta, err := Parse(strings.NewReader("TITLE: Dune\nnarrator: Simon Vance"))
	require.NoError(t, err)
	assert.Equal(t, "Dune", meta.Title)
	assert.Equal(t, "Simon Vance", meta.Narrator)
}

func TestParseAbridgedVariants(t *testing.T) {
	meta, err := Parse(strings.NewReader("Abridged: Yes"))
	require.NoError(t, err)
	require.NotNil(t, meta.Abridged)
	assert.True(t, *meta.Abridged)
}

func TestParseSkipsMalformedLines(t *testing.T) {
	meta, err := Parse(strings.NewReader("not a key value line\nTitle: Ok"))
	require.NoError(t, err)
	assert.Equal(t, "Ok", meta.Title)
}
