// Package metadata synthesizes an item's canonical metadata from folder
// naming, embedded audio/ebook tags, and sidecar files, applied in a
// configured source order.
package metadata

import (
	"strings"
	"time"

	"github.com/hondanabooks/hondana/pkg/absmeta"
	"github.com/hondanabooks/hondana/pkg/covers"
)

// Draft is the mutable metadata record threaded through the source handlers.
// Book and podcast fields coexist; the synthesizer for the item's media kind
// reads the relevant ones.
type Draft struct {
	Title         string
	Subtitle      string
	Description   string
	Publisher     string
	PublishedYear string
	ISBN          string
	ASIN          string
	Language      string
	Abridged      *bool
	Explicit      *bool

	Authors   []string
	Narrators []string
	Genres    []string
	Tags      []string
	Series    []absmeta.SeriesRef

	Chapters []absmeta.Chapter
	Duration time.Duration

	AudioCover *covers.Candidate
	EbookCover *covers.Candidate

	// Podcast-only.
	Author   string
	FeedURL  string
	ITunesID string
}

// setScalar applies overwrite-wins semantics: a later handler's non-empty
// value replaces whatever is already there.
func setScalar(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func setBool(dst **bool, value *bool) {
	if value != nil {
		*dst = value
	}
}

// fillList applies fill-if-empty semantics: once a higher-precedence handler
// populated the list, later handlers can't replace it.
func fillList(dst *[]string, values []string) {
	if len(*dst) == 0 {
		*dst = cleanList(values)
	}
}

// replaceList applies overwrite-wins semantics to a list field.
func replaceList(dst *[]string, values []string) {
	if cleaned := cleanList(values); len(cleaned) > 0 {
		*dst = cleaned
	}
}

func fillSeries(dst *[]absmeta.SeriesRef, values []absmeta.SeriesRef) {
	if len(*dst) != 0 {
		return
	}
	for _, ref := range values {
		if strings.TrimSpace(ref.Name) != "" {
			*dst = append(*dst, ref)
		}
	}
}

// cleanList trims entries and drops empties and duplicates, preserving order.
func cleanList(values []string) []string {
	var out []string
	seen := map[string]struct{}{}
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
