package metadata

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hondanabooks/hondana/pkg/absmeta"
)

// Folder naming conventions, parsed from the item's path relative to its
// library folder. Deeper trees carry more structure:
//
//	Title
//	Author/Title
//	Author/Series/Title
//
// where the title directory itself may encode a series position, a publish
// year, and a narrator:
//
//	Vol 3 - The Title (2019) {Ray Porter}
var (
	folderNarratorRE = regexp.MustCompile(`\{([^}]+)\}`)
	folderYearRE     = regexp.MustCompile(`\((\d{4})\)`)
	folderVolumeRE   = regexp.MustCompile(`(?i)^(?:vol(?:ume)?\.?|book)\s*(\d+(?:\.\d+)?)\s*[-.]?\s*`)
	folderSeqRE      = regexp.MustCompile(`\s+#(\d+(?:\.\d+)?)\s*$`)
	multiAuthorRE    = regexp.MustCompile(`\s*(?:,|;|&|\band\b)\s*`)
)

// folderMeta is what the folder structure alone tells us about an item.
type folderMeta struct {
	Title          string
	Subtitle       string
	Authors        []string
	Narrators      []string
	SeriesName     string
	SeriesSequence string
	PublishedYear  string
}

// parseBookFolder extracts book metadata from an item's relative path. For a
// single-file item the filename (minus extension) stands in for the title
// directory.
func parseBookFolder(relPath string, isFile, parseSubtitles bool) folderMeta {
	var meta folderMeta

	segments := strings.Split(path.Clean(filepath.ToSlash(relPath)), "/")
	title := segments[len(segments)-1]
	if isFile {
		title = strings.TrimSuffix(title, path.Ext(title))
	}

	switch len(segments) {
	case 1:
	case 2:
		meta.Authors = splitAuthors(segments[0])
	default:
		meta.Authors = splitAuthors(segments[len(segments)-3])
		meta.SeriesName = strings.TrimSpace(segments[len(segments)-2])
	}

	if match := folderNarratorRE.FindStringSubmatch(title); match != nil {
		meta.Narrators = splitAuthors(match[1])
		title = strings.Replace(title, match[0], "", 1)
	}
	if match := folderYearRE.FindStringSubmatch(title); match != nil {
		meta.PublishedYear = match[1]
		title = strings.Replace(title, match[0], "", 1)
	}
	if match := folderVolumeRE.FindStringSubmatch(title); match != nil {
		meta.SeriesSequence = match[1]
		title = strings.TrimPrefix(title, match[0])
	} else if match := folderSeqRE.FindStringSubmatch(title); match != nil {
		meta.SeriesSequence = match[1]
		title = strings.TrimSuffix(title, match[0])
	}

	title = strings.TrimSpace(title)
	if parseSubtitles {
		if name, subtitle, ok := strings.Cut(title, " - "); ok {
			title = strings.TrimSpace(name)
			meta.Subtitle = strings.TrimSpace(subtitle)
		}
	}
	meta.Title = title

	// A sequence without a series segment is meaningless; a series segment
	// without a sequence is still a membership.
	if meta.SeriesName == "" {
		meta.SeriesSequence = ""
	}
	return meta
}

// parsePodcastFolder is intentionally shallow: the folder name is the show
// title, nothing else is inferred.
func parsePodcastFolder(relPath string) folderMeta {
	segments := strings.Split(path.Clean(filepath.ToSlash(relPath)), "/")
	return folderMeta{Title: strings.TrimSpace(segments[len(segments)-1])}
}

func splitAuthors(s string) []string {
	parts := multiAuthorRE.Split(s, -1)
	var out []string
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (m folderMeta) apply(d *Draft) {
	setScalar(&d.Title, m.Title)
	setScalar(&d.Subtitle, m.Subtitle)
	setScalar(&d.PublishedYear, m.PublishedYear)
	fillList(&d.Authors, m.Authors)
	fillList(&d.Narrators, m.Narrators)
	if m.SeriesName != "" {
		fillSeries(&d.Series, []absmeta.SeriesRef{{Name: m.SeriesName, Sequence: m.SeriesSequence}})
	}
}
