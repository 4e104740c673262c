// Package absmeta parses the abmetadata text sidecar format and the
// metadata.json sidecar, normalizing both into one metadata shape.
package absmeta

import (
	"regexp"
	"strings"
)

// CurrentVersion is the only abmetadata format version this parser accepts.
const CurrentVersion = 1

// SeriesRef is one series membership with an optional position.
type SeriesRef struct {
	Name     string
	Sequence string
}

// Chapter is one chapter entry; times are seconds from the start.
type Chapter struct {
	Start float64
	End   float64
	Title string
}

// Metadata is the normalized result of either sidecar format. Book- and
// podcast-only fields coexist; the synthesizer reads the ones relevant to the
// item's media kind.
type Metadata struct {
	Title         string
	Subtitle      string
	Authors       []string
	Narrators     []string
	Series        []SeriesRef
	Genres        []string
	Tags          []string
	Publisher     string
	PublishedYear string
	ISBN          string
	ASIN          string
	Language      string
	Abridged      *bool
	Explicit      *bool
	Description   string
	Chapters      []Chapter

	// Podcast-only.
	Author   string
	FeedURL  string
	ITunesID string
}

var seriesSequenceRE = regexp.MustCompile(`\s+#([\w.\-]+)\s*$`)

// ParseSeries splits an inline "Name #sequence" series string.
func ParseSeries(value string) SeriesRef {
	value = strings.TrimSpace(value)
	if match := seriesSequenceRE.FindStringSubmatch(value); match != nil {
		return SeriesRef{
			Name:     strings.TrimSpace(strings.TrimSuffix(value, match[0])),
			Sequence: match[1],
		}
	}
	return SeriesRef{Name: value}
}

// normalizeList trims entries, drops empties, and removes duplicates while
// preserving order.
func normalizeList(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func splitList(value string) []string {
	return normalizeList(strings.Split(value, ","))
}
