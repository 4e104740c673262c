// Package nfo parses plain-text NFO sidecar files of "Key: Value" lines plus
// an optional free-text description block.
package nfo

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/pointerutil"
)

// Metadata is the normalized result of parsing an NFO file. Nil/empty fields
// were absent from the file.
type Metadata struct {
	Title          string
	Author         string
	Narrator       string
	SeriesName     string
	SeriesSequence string
	Genres         []string
	Tags           []string
	Publisher      string
	ASIN           string
	ISBN           string
	Language       string
	PublishedYear  string
	Abridged       *bool
	Description    string
}

var (
	descriptionStartRE = regexp.MustCompile(`(?i)^\s*book description\s*$`)
	descriptionEndRE   = regexp.MustCompile(`^=+$`)
	yearRE             = regexp.MustCompile(`\b(\d{4})\b`)
)

// Keys that carry a date or copyright notice; only a 4-digit year is
// extracted from their values.
var yearKeys = map[string]struct{}{
	"copyright":           {},
	"book copyright":      {},
	"recording copyright": {},
	"audiobook copyright": {},
	"audible.com release": {},
	"release date":        {},
	"date":                {},
}

// ParseFile reads and parses an NFO file from disk.
func ParseFile(path string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse parses NFO content. Unrecognized keys are ignored; a malformed line
// without a colon is skipped unless it is inside the description block.
func Parse(r io.Reader) (*Metadata, error) {
	meta := &Metadata{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	inDescription := false
	var description []string

	for scanner.Scan() {
		line := scanner.Text()

		if inDescription {
			if descriptionEndRE.MatchString(strings.TrimSpace(line)) {
				// An equals row with no text collected yet is the header's
				// underline, not a terminator.
				if len(description) > 0 {
					inDescription = false
				}
				continue
			}
			description = append(description, line)
			continue
		}

		if descriptionStartRE.MatchString(line) {
			inDescription = true
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		applyField(meta, strings.ToLower(strings.TrimSpace(key)), strings.TrimSpace(value))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	meta.Description = strings.TrimSpace(strings.Join(description, "\n"))
	return meta, nil
}

func applyField(meta *Metadata, key, value string) {
	if value == "" {
		return
	}

	if _, ok := yearKeys[key]; ok {
		if meta.PublishedYear == "" {
			if match := yearRE.FindStringSubmatch(value); match != nil {
				meta.PublishedYear = match[1]
			}
		}
		return
	}

	switch key {
	case "title":
		meta.Title = value
	case "author":
		meta.Author = value
	case "narrator", "read by":
		meta.Narrator = value
	case "series name":
		meta.SeriesName = value
	case "position in series":
		meta.SeriesSequence = value
	case "genre":
		meta.Genres = splitList(value)
	case "tags":
		meta.Tags = splitList(value)
	case "publisher":
		meta.Publisher = value
	case "asin":
		meta.ASIN = value
	case "isbn", "isbn-10", "isbn-13", "isbn 10", "isbn 13":
		meta.ISBN = value
	case "language", "lang":
		meta.Language = value
	case "abridged", "unabridged":
		// "Unabridged: Yes" means not abridged and vice versa.
		yes := strings.EqualFold(value, "yes") || strings.EqualFold(value, "true")
		if key == "abridged" {
			meta.Abridged = pointerutil.Bool(yes)
		} else {
			meta.Abridged = pointerutil.Bool(!yes)
		}
	}
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
