package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBookFolder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		relPath        string
		isFile         bool
		parseSubtitles bool
		expected       folderMeta
	}{
		{
			name:     "title only",
			relPath:  "Project Hail Mary",
			expected: folderMeta{Title: "Project Hail Mary"},
		},
		{
			name:    "author and title",
			relPath: "Andy Weir/Project Hail Mary",
			expected: folderMeta{
				Title:   "Project Hail Mary",
				Authors: []string{"Andy Weir"},
			},
		},
		{
			name:    "author series and volume",
			relPath: "Brandon Sanderson/The Stormlight Archive/Vol 2 - Words of Radiance",
			expected: folderMeta{
				Title:          "Words of Radiance",
				Authors:        []string{"Brandon Sanderson"},
				SeriesName:     "The Stormlight Archive",
				SeriesSequence: "2",
			},
		},
		{
			name:    "year and narrator in title dir",
			relPath: "Andy Weir/Project Hail Mary (2021) {Ray Porter}",
			expected: folderMeta{
				Title:         "Project Hail Mary",
				Authors:       []string{"Andy Weir"},
				Narrators:     []string{"Ray Porter"},
				PublishedYear: "2021",
			},
		},
		{
			name:    "multiple authors",
			relPath: "Terry Pratchett & Neil Gaiman/Good Omens",
			expected: folderMeta{
				Title:   "Good Omens",
				Authors: []string{"Terry Pratchett", "Neil Gaiman"},
			},
		},
		{
			name:    "hash sequence without series segment is dropped",
			relPath: "Dungeon Crawler Carl #7",
			expected: folderMeta{
				Title: "Dungeon Crawler Carl",
			},
		},
		{
			name:           "subtitle split when enabled",
			relPath:        "Andy Weir/The Martian - A Novel",
			parseSubtitles: true,
			expected: folderMeta{
				Title:    "The Martian",
				Subtitle: "A Novel",
				Authors:  []string{"Andy Weir"},
			},
		},
		{
			name:     "subtitle kept when disabled",
			relPath:  "The Martian - A Novel",
			expected: folderMeta{Title: "The Martian - A Novel"},
		},
		{
			name:    "single file item strips extension",
			relPath: "Andy Weir/The Martian.m4b",
			isFile:  true,
			expected: folderMeta{
				Title:   "The Martian",
				Authors: []string{"Andy Weir"},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, test.expected, parseBookFolder(test.relPath, test.isFile, test.parseSubtitles))
		})
	}
}

func TestParsePodcastFolder(t *testing.T) {
	t.Parallel()

	meta := parsePodcastFolder("The Daily")
	assert.Equal(t, folderMeta{Title: "The Daily"}, meta)

	// Nothing is inferred from parent segments for podcasts.
	meta = parsePodcastFolder("NPR/The Daily")
	assert.Equal(t, folderMeta{Title: "The Daily"}, meta)
}
