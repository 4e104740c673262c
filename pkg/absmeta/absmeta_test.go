package absmeta

import (
	"strings"
	"testing"

	"github.com/hondanabooks/hondana/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBook(t *testing.T) {
	content := strings.Join([]string{
		";ABMETADATA1",
		"title=The Final Empire",
		"subtitle=Mistborn Book One",
		"authors=Brandon Sanderson",
		"narrators=Michael Kramer, Kate Reading",
		"series=Mistborn #1, Cosmere",
		"genres=Fantasy",
		"tags=epic, epic",
		"publishedYear=2006",
		"abridged=false",
		"feedUrl=https://ignored.example/rss",
		"bogus=skipped",
		"",
		"[DESCRIPTION]",
		"A thousand years ago evil came.",
		"It stayed.",
		"",
		"[CHAPTER]",
		"start=300.5",
		"end=600",
		"title=Chapter 2",
		"",
		"[CHAPTER]",
		"start=0",
		"end=300.5",
		"title=Chapter 1",
	}, "\n")

	meta, err := Parse(strings.NewReader(content), models.MediaKindBook)
	require.NoError(t, err)

	assert.Equal(t, "The Final Empire", meta.Title)
	assert.Equal(t, "Mistborn Book One", meta.Subtitle)
	assert.Equal(t, []string{"Brandon Sanderson"}, meta.Authors)
	assert.Equal(t, []string{"Michael Kramer", "Kate Reading"}, meta.Narrators)
	require.Len(t, meta.Series, 2)
	assert.Equal(t, SeriesRef{Name: "Mistborn", Sequence: "1"}, meta.Series[0])
	assert.Equal(t, SeriesRef{Name: "Cosmere"}, meta.Series[1])
	assert.Equal(t, []string{"epic"}, meta.Tags)
	assert.Equal(t, "2006", meta.PublishedYear)
	require.NotNil(t, meta.Abridged)
	assert.False(t, *meta.Abridged)
	// feedUrl is not in the book field map.
	assert.Empty(t, meta.FeedURL)
	assert.Equal(t, "A thousand years ago evil came.\nIt stayed.", meta.Description)

	// Chapters come back sorted by start time.
	require.Len(t, meta.Chapters, 2)
	assert.Equal(t, "Chapter 1", meta.Chapters[0].Title)
	assert.Equal(t, 300.5, meta.Chapters[0].End)
	assert.Equal(t, "Chapter 2", meta.Chapters[1].Title)
}

func TestParsePodcastFieldMap(t *testing.T) {
	content := strings.Join([]string{
		";ABMETADATA1",
		"title=My Show",
		"author=Jane Host",
		"feedUrl=https://example.com/rss",
		"itunesId=123456",
		"authors=Not For Podcasts",
	}, "\n")

	meta, err := Parse(strings.NewReader(content), models.MediaKindPodcast)
	require.NoError(t, err)

	assert.Equal(t, "My Show", meta.Title)
	assert.Equal(t, "Jane Host", meta.Author)
	assert.Equal(t, "https://example.com/rss", meta.FeedURL)
	assert.Equal(t, "123456", meta.ITunesID)
	assert.Empty(t, meta.Authors)
}

func TestParseRejectsWrongVersion(t *testing.T) {
	_, err := Parse(strings.NewReader(";ABMETADATA2\ntitle=X"), models.MediaKindBook)
	require.Error(t, err)

	_, err = Parse(strings.NewReader("title=X"), models.MediaKindBook)
	require.Error(t, err)
}

func TestParseSeries(t *testing.T) {
	assert.Equal(t, SeriesRef{Name: "Mistborn", Sequence: "1.5"}, ParseSeries("Mistborn #1.5"))
	assert.Equal(t, SeriesRef{Name: "The Wandering Inn"}, ParseSeries("The Wandering Inn"))
	assert.Equal(t, SeriesRef{Name: "Foo", Sequence: "12"}, ParseSeries("  Foo #12  "))
}

func TestParseJSON(t *testing.T) {
	content := `{
		"title": "The Final Empire",
		"authors": [" Brandon Sanderson ", "Brandon Sanderson"],
		"series": ["Mistborn #1"],
		"genres": ["Fantasy", "", "Fantasy"],
		"publishedYear": "2006"
	}`

	meta, err := ParseJSON(strings.NewReader(content))
	require.NoError(t, err)

	assert.Equal(t, "The Final Empire", meta.Title)
	assert.Equal(t, []string{"Brandon Sanderson"}, meta.Authors)
	require.Len(t, meta.Series, 1)
	assert.Equal(t, SeriesRef{Name: "Mistborn", Sequence: "1"}, meta.Series[0])
	assert.Equal(t, []string{"Fantasy"}, meta.Genres)
	assert.Equal(t, "2006", meta.PublishedYear)
}

func TestParseJSONMalformed(t *testing.T) {
	_, err := ParseJSON(strings.NewReader("{not json"))
	require.Error(t, err)
}
