package opf

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOPF = `<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:opf="http://www.idpf.org/2007/opf">
    <dc:title>The Final Empire</dc:title>
    <dc:creator opf:role="aut">Brandon Sanderson</dc:creator>
    <dc:contributor opf:role="nrt">Michael Kramer</dc:contributor>
    <dc:subject>Fantasy</dc:subject>
    <dc:subject>Epic</dc:subject>
    <dc:description>A thousand years ago evil came.</dc:description>
    <dc:publisher>Tor Books</dc:publisher>
    <dc:identifier opf:scheme="ISBN">9780765311788</dc:identifier>
    <dc:identifier opf:scheme="ASIN">B000UZQI0Q</dc:identifier>
    <dc:date>2006-07-17</dc:date>
    <dc:language>en</dc:language>
    <meta name="calibre:series" content="Mistborn"/>
    <meta name="calibre:series_index" content="1"/>
    <meta name="cover" content="cover-image"/>
  </metadata>
  <manifest>
    <item id="cover-image" href="images/cover.jpg" media-type="image/jpeg"/>
  </manifest>
</package>`

func TestParse(t *testing.T) {
	meta, err := Parse(strings.NewReader(sampleOPF), "OEBPS/content.opf")
	require.NoError(t, err)

	assert.Equal(t, "The Final Empire", meta.Title)
	assert.Equal(t, []string{"Brandon Sanderson"}, meta.Authors)
	assert.Equal(t, []string{"Michael Kramer"}, meta.Narrators)
	assert.Equal(t, []string{"Fantasy", "Epic"}, meta.Genres)
	assert.Equal(t, "A thousand years ago evil came.", meta.Description)
	assert.Equal(t, "Tor Books", meta.Publisher)
	assert.Equal(t, "9780765311788", meta.ISBN)
	assert.Equal(t, "B000UZQI0Q", meta.ASIN)
	assert.Equal(t, "2006", meta.PublishedYear)
	assert.Equal(t, "en", meta.Language)
	assert.Equal(t, "Mistborn", meta.SeriesName)
	assert.Equal(t, "1", meta.SeriesSequence)
	assert.Equal(t, "OEBPS/images/cover.jpg", meta.CoverHref)
	assert.Equal(t, "image/jpeg", meta.CoverMediaType)
}

func TestParseStandaloneSidecarCoverAtRoot(t *testing.T) {
	meta, err := Parse(strings.NewReader(sampleOPF), "metadata.opf")
	require.NoError(t, err)
	assert.Equal(t, "images/cover.jpg", meta.CoverHref)
}

func TestParseMultipleTitlesPrefersMain(t *testing.T) {
	doc := `<package xmlns="http://www.idpf.org/2007/opf" version="3.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title id="t1">Subtitle Text</dc:title>
    <dc:title id="t2">Real Title</dc:title>
    <meta refines="#t1" property="title-type">subtitle</meta>
    <meta refines="#t2" property="title-type">main</meta>
  </metadata>
</package>`
	meta, err := Parse(strings.NewReader(doc), "")
	require.NoError(t, err)
	assert.Equal(t, "Real Title", meta.Title)
	assert.Equal(t, "Subtitle Text", meta.Subtitle)
}

func TestParseMalformedXML(t *testing.T) {
	_, err := Parse(strings.NewReader("<package><unclosed"), "")
	require.Error(t, err)
}
