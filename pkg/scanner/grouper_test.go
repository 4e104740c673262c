package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hondanabooks/hondana/pkg/mediafile"
)

func infos(relPaths ...string) []mediafile.FileInfo {
	files := make([]mediafile.FileInfo, 0, len(relPaths))
	for _, p := range relPaths {
		files = append(files, mediafile.NewFileInfo(p))
	}
	return files
}

func TestGroupFiles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		files    []string
		ebooks   bool
		expected map[string][]string
	}{
		{
			name:  "folder per item",
			files: []string{"Author/Book One/01.mp3", "Author/Book One/02.mp3", "Author/Book Two/book.m4b"},
			expected: map[string][]string{
				"Author/Book One": {"Author/Book One/01.mp3", "Author/Book One/02.mp3"},
				"Author/Book Two": {"Author/Book Two/book.m4b"},
			},
		},
		{
			name:  "root level media file maps to itself",
			files: []string{"standalone.m4b", "Book/01.mp3"},
			expected: map[string][]string{
				"standalone.m4b": {"standalone.m4b"},
				"Book":           {"Book/01.mp3"},
			},
		},
		{
			name:  "disc folders collapse into the parent",
			files: []string{"Book/CD 1/01.mp3", "Book/CD 2/01.mp3", "Book/Disc 03/01.mp3"},
			expected: map[string][]string{
				"Book": {"Book/CD 1/01.mp3", "Book/CD 2/01.mp3", "Book/Disc 03/01.mp3"},
			},
		},
		{
			name:  "deeper media merges into an established ancestor group",
			files: []string{"Book/01.mp3", "Book/bonus/extra.mp3"},
			expected: map[string][]string{
				"Book": {"Book/01.mp3", "Book/bonus/extra.mp3"},
			},
		},
		{
			name:  "other files attach to the nearest containing group",
			files: []string{"Book/01.mp3", "Book/cover.jpg", "Book/art/back.jpg", "orphan.jpg"},
			expected: map[string][]string{
				"Book": {"Book/01.mp3", "Book/art/back.jpg", "Book/cover.jpg"},
			},
		},
		{
			name:   "ebooks group when allowed",
			files:  []string{"Book/book.epub"},
			ebooks: true,
			expected: map[string][]string{
				"Book": {"Book/book.epub"},
			},
		},
		{
			name:     "ebooks ignored for audiobook only libraries",
			files:    []string{"Book/book.epub"},
			expected: map[string][]string{},
		},
		{
			name:     "hidden segments are excluded",
			files:    []string{".trash/Book/01.mp3", "Book/.hidden.mp3"},
			expected: map[string][]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			groups := GroupFiles(infos(tt.files...), tt.ebooks)
			assert.Equal(t, tt.expected, groups)
		})
	}
}
