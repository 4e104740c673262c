package audio

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dhowden/tag"
	"github.com/pkg/errors"
)

// Chapter is a single chapter marker read from an audio file.
type Chapter struct {
	Title string
	Start time.Duration
	End   time.Duration
}

// Metadata holds everything we can read out of a single audio file's tags.
type Metadata struct {
	Title       string
	Album       string
	Artists     []string
	Narrators   []string
	Genres      []string
	Description string
	Year        int
	Track       int
	TrackTotal  int
	Disc        int

	Series         string
	SeriesSequence *string

	CoverMIMEType string
	CoverData     []byte

	Duration time.Duration
	Chapters []Chapter
}

// Probe reads tags from an audio file. MP4-family files (m4b, m4a, mp4)
// additionally get their duration and embedded chapters read from the box
// structure, since the tag layer doesn't expose either.
func Probe(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	m := &Metadata{}

	t, err := tag.ReadFrom(f)
	if err != nil && !errors.Is(err, tag.ErrNoTagsFound) {
		return nil, errors.WithStack(err)
	}
	if t != nil {
		m.Title = t.Title()
		m.Album = t.Album()
		m.Artists = splitNames(t.Artist())
		// Audiobook convention stores the narrator in the composer tag.
		m.Narrators = splitNames(t.Composer())
		if g := strings.TrimSpace(t.Genre()); g != "" {
			m.Genres = splitNames(g)
		}
		m.Description = t.Comment()
		m.Year = t.Year()
		m.Track, m.TrackTotal = t.Track()
		m.Disc, _ = t.Disc()

		if p := t.Picture(); p != nil {
			m.CoverMIMEType = p.MIMEType
			m.CoverData = p.Data
		}

		if grouping := rawString(t, "©grp", "TIT1", "GRP1"); grouping != "" {
			m.Series, m.SeriesSequence = parseSeriesGrouping(grouping)
		}
	}

	if isMP4Family(path) {
		if _, err := f.Seek(0, 0); err != nil {
			return nil, errors.WithStack(err)
		}
		dur, chapters, err := readMP4Timing(f)
		if err != nil {
			return nil, err
		}
		m.Duration = dur
		m.Chapters = chapters
	}

	return m, nil
}

func isMP4Family(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".m4b", ".m4a", ".mp4":
		return true
	}
	return false
}

// rawString digs a string value out of the raw tag map, trying each key in
// order. MP4 and ID3 name the same logical field differently.
func rawString(t tag.Metadata, keys ...string) string {
	raw := t.Raw()
	for _, key := range keys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
		if c, ok := v.(*tag.Comm); ok && strings.TrimSpace(c.Text) != "" {
			return strings.TrimSpace(c.Text)
		}
	}
	return ""
}

// splitNames splits a multi-value tag on common delimiters and trims each
// entry. Tags store multiple people as "A, B" or "A / B" or "A; B".
func splitNames(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == '/'
	})
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

var seriesGroupingRE = regexp.MustCompile(`^(.+?)\s*#(\d+(?:\.\d+)?)$`)

// parseSeriesGrouping extracts a series name and optional sequence from a
// grouping tag like "Dungeon Crawler Carl #7".
func parseSeriesGrouping(grouping string) (string, *string) {
	matches := seriesGroupingRE.FindStringSubmatch(grouping)
	if len(matches) != 3 {
		return strings.TrimSpace(grouping), nil
	}
	name := strings.TrimSpace(matches[1])
	if _, err := strconv.ParseFloat(matches[2], 64); err == nil {
		seq := matches[2]
		return name, &seq
	}
	return name, nil
}
