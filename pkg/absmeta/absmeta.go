package absmeta

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/hondanabooks/hondana/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/pointerutil"
)

// Filename is the conventional name of the abmetadata text sidecar.
const Filename = "metadata.abs"

var bookDetailKeys = map[string]struct{}{
	"title": {}, "subtitle": {}, "authors": {}, "narrators": {}, "series": {},
	"genres": {}, "tags": {}, "publisher": {}, "publishedYear": {}, "isbn": {},
	"asin": {}, "language": {}, "abridged": {}, "explicit": {},
}

var podcastDetailKeys = map[string]struct{}{
	"title": {}, "author": {}, "feedUrl": {}, "itunesId": {}, "genres": {},
	"tags": {}, "language": {}, "explicit": {},
}

// ParseFile reads and parses an abmetadata text sidecar from disk.
func ParseFile(path, mediaKind string) (*Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return Parse(f, mediaKind)
}

// Parse parses the abmetadata text format: a `;ABMETADATA<version>` header,
// key=value detail lines validated against the media kind's field map, then
// optional [DESCRIPTION] and repeated [CHAPTER] sections. Chapters are sorted
// by start time.
func Parse(r io.Reader, mediaKind string) (*Metadata, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !scanner.Scan() {
		return nil, errors.New("abmetadata file is empty")
	}
	header := strings.TrimSpace(scanner.Text())
	if header != fmt.Sprintf(";ABMETADATA%d", CurrentVersion) {
		return nil, errors.Errorf("unsupported abmetadata header %q", header)
	}

	detailKeys := bookDetailKeys
	if mediaKind == models.MediaKindPodcast {
		detailKeys = podcastDetailKeys
	}

	meta := &Metadata{}
	section := ""
	var description []string
	var chapter *Chapter

	flushChapter := func() {
		if chapter != nil {
			meta.Chapters = append(meta.Chapters, *chapter)
		}
		chapter = nil
	}

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			flushChapter()
			section = strings.ToUpper(strings.Trim(trimmed, "[]"))
			if section == "CHAPTER" {
				chapter = &Chapter{}
			}
			continue
		}

		switch section {
		case "DESCRIPTION":
			description = append(description, line)
		case "CHAPTER":
			key, value, ok := strings.Cut(trimmed, "=")
			if !ok || chapter == nil {
				continue
			}
			value = strings.TrimSpace(value)
			switch strings.TrimSpace(key) {
			case "start":
				chapter.Start, _ = strconv.ParseFloat(value, 64)
			case "end":
				chapter.End, _ = strconv.ParseFloat(value, 64)
			case "title":
				chapter.Title = value
			}
		default:
			if trimmed == "" || strings.HasPrefix(trimmed, ";") {
				continue
			}
			key, value, ok := strings.Cut(trimmed, "=")
			if !ok {
				continue
			}
			key = strings.TrimSpace(key)
			if _, known := detailKeys[key]; !known {
				continue
			}
			applyDetail(meta, key, strings.TrimSpace(value))
		}
	}
	flushChapter()
	if err := scanner.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	meta.Description = strings.TrimSpace(strings.Join(description, "\n"))
	sort.SliceStable(meta.Chapters, func(i, j int) bool {
		return meta.Chapters[i].Start < meta.Chapters[j].Start
	})

	return meta, nil
}

func applyDetail(meta *Metadata, key, value string) {
	if value == "" {
		return
	}
	switch key {
	case "title":
		meta.Title = value
	case "subtitle":
		meta.Subtitle = value
	case "authors":
		meta.Authors = splitList(value)
	case "narrators":
		meta.Narrators = splitList(value)
	case "series":
		for _, s := range splitList(value) {
			meta.Series = append(meta.Series, ParseSeries(s))
		}
	case "genres":
		meta.Genres = splitList(value)
	case "tags":
		meta.Tags = splitList(value)
	case "publisher":
		meta.Publisher = value
	case "publishedYear":
		meta.PublishedYear = value
	case "isbn":
		meta.ISBN = value
	case "asin":
		meta.ASIN = value
	case "language":
		meta.Language = value
	case "abridged":
		meta.Abridged = pointerutil.Bool(parseBool(value))
	case "explicit":
		meta.Explicit = pointerutil.Bool(parseBool(value))
	case "author":
		meta.Author = value
	case "feedUrl":
		meta.FeedURL = value
	case "itunesId":
		meta.ITunesID = value
	}
}

func parseBool(value string) bool {
	return strings.EqualFold(value, "true") || strings.EqualFold(value, "yes") || value == "1"
}
