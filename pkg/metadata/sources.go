package metadata

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/hondanabooks/hondana/pkg/absmeta"
	"github.com/hondanabooks/hondana/pkg/audio"
	"github.com/hondanabooks/hondana/pkg/covers"
	"github.com/hondanabooks/hondana/pkg/models"
	"github.com/hondanabooks/hondana/pkg/nfo"
	"github.com/hondanabooks/hondana/pkg/opf"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// audioMetatags reads the embedded tags of the item's audio files. The first
// file (natural sort order) carries the item-level tags; durations accumulate
// across all of them. Chapters are only trusted from a single-file item,
// since per-track chapter lists don't compose.
func (p *Pipeline) audioMetatags(ctx context.Context, in *Input, d *Draft) error {
	if len(in.AudioPaths) == 0 {
		return nil
	}
	log := logger.FromContext(ctx)

	paths := make([]string, len(in.AudioPaths))
	copy(paths, in.AudioPaths)
	sort.Strings(paths)

	var first *audio.Metadata
	for i, path := range paths {
		m, err := p.adapters.ProbeAudio(path)
		if err != nil {
			log.Warn("audio probe failed", logger.Data{"path": path, "error": err.Error()})
			continue
		}
		d.Duration += m.Duration
		if i == 0 {
			first = m
		}
	}
	if first == nil {
		return errors.New("no audio file could be probed")
	}

	// For audiobooks the album tag is the book title; fall back to the
	// track title.
	title := first.Album
	if title == "" {
		title = first.Title
	}
	setScalar(&d.Title, title)
	setScalar(&d.Description, first.Description)
	if first.Year > 0 {
		setScalar(&d.PublishedYear, strconv.Itoa(first.Year))
	}

	preferAudio := in.Settings != nil && in.Settings.PreferAudioMetadata
	if preferAudio {
		replaceList(&d.Authors, first.Artists)
		replaceList(&d.Narrators, first.Narrators)
	} else {
		fillList(&d.Authors, first.Artists)
		fillList(&d.Narrators, first.Narrators)
	}
	fillList(&d.Genres, first.Genres)
	if first.Series != "" {
		seq := ""
		if first.SeriesSequence != nil {
			seq = *first.SeriesSequence
		}
		fillSeries(&d.Series, []absmeta.SeriesRef{{Name: first.Series, Sequence: seq}})
	}

	if len(paths) == 1 && len(first.Chapters) > 0 {
		d.Chapters = d.Chapters[:0]
		for _, ch := range first.Chapters {
			d.Chapters = append(d.Chapters, absmeta.Chapter{
				Start: ch.Start.Seconds(),
				End:   ch.End.Seconds(),
				Title: ch.Title,
			})
		}
	}

	if d.AudioCover == nil && len(first.CoverData) > 0 {
		d.AudioCover = &covers.Candidate{MIMEType: first.CoverMIMEType, Data: first.CoverData}
	}

	if in.MediaKind == models.MediaKindPodcast {
		if len(first.Artists) > 0 {
			setScalar(&d.Author, first.Artists[0])
		}
		setScalar(&d.Title, first.Album)
	}
	return nil
}

// ebookMetadata reads the embedded metadata of the item's ebook file.
func (p *Pipeline) ebookMetadata(_ context.Context, in *Input, d *Draft) error {
	if in.EbookPath == "" {
		return nil
	}
	m, err := p.adapters.ParseEbook(in.EbookPath)
	if err != nil {
		return err
	}
	if m == nil || m.Metadata == nil {
		return nil
	}

	setScalar(&d.Title, m.Title)
	setScalar(&d.Subtitle, m.Subtitle)
	setScalar(&d.Description, m.Description)
	setScalar(&d.Publisher, m.Publisher)
	setScalar(&d.ISBN, m.ISBN)
	setScalar(&d.ASIN, m.ASIN)
	setScalar(&d.Language, m.Language)
	setScalar(&d.PublishedYear, m.PublishedYear)
	fillList(&d.Authors, m.Authors)
	fillList(&d.Narrators, m.Narrators)
	fillList(&d.Genres, m.Genres)
	if m.SeriesName != "" {
		fillSeries(&d.Series, []absmeta.SeriesRef{{Name: m.SeriesName, Sequence: m.SeriesSequence}})
	}
	if d.EbookCover == nil && len(m.CoverData) > 0 {
		d.EbookCover = &covers.Candidate{MIMEType: m.CoverMIMEType, Data: m.CoverData}
	}
	return nil
}

// nfoFile reads the first .nfo file attached to the item.
func (p *Pipeline) nfoFile(_ context.Context, in *Input, d *Draft) error {
	var nfoPath string
	for _, path := range in.TextPaths {
		if strings.EqualFold(filepath.Ext(path), ".nfo") {
			nfoPath = path
			break
		}
	}
	if nfoPath == "" {
		return nil
	}
	m, err := nfo.ParseFile(nfoPath)
	if err != nil {
		return err
	}

	setScalar(&d.Title, m.Title)
	setScalar(&d.Description, m.Description)
	setScalar(&d.Publisher, m.Publisher)
	setScalar(&d.ISBN, m.ISBN)
	setScalar(&d.ASIN, m.ASIN)
	setScalar(&d.Language, m.Language)
	setScalar(&d.PublishedYear, m.PublishedYear)
	setBool(&d.Abridged, m.Abridged)
	fillList(&d.Authors, splitAuthors(m.Author))
	fillList(&d.Narrators, splitAuthors(m.Narrator))
	fillList(&d.Genres, m.Genres)
	fillList(&d.Tags, m.Tags)
	if m.SeriesName != "" {
		fillSeries(&d.Series, []absmeta.SeriesRef{{Name: m.SeriesName, Sequence: m.SeriesSequence}})
	}
	return nil
}

// txtFiles reads the conventional desc.txt and reader.txt drop-in files.
func (p *Pipeline) txtFiles(_ context.Context, in *Input, d *Draft) error {
	for _, path := range in.TextPaths {
		switch strings.ToLower(filepath.Base(path)) {
		case "desc.txt":
			text, err := readTrimmed(path)
			if err != nil {
				return err
			}
			setScalar(&d.Description, text)
		case "reader.txt":
			text, err := readTrimmed(path)
			if err != nil {
				return err
			}
			fillList(&d.Narrators, splitAuthors(text))
		}
	}
	return nil
}

// opfFile reads a standalone .opf sidecar next to the media files.
func (p *Pipeline) opfFile(_ context.Context, in *Input, d *Draft) error {
	if in.OPFPath == "" {
		return nil
	}
	f, err := os.Open(in.OPFPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer f.Close()

	m, err := opf.Parse(f, in.OPFPath)
	if err != nil {
		return err
	}

	setScalar(&d.Title, m.Title)
	setScalar(&d.Subtitle, m.Subtitle)
	setScalar(&d.Description, m.Description)
	setScalar(&d.Publisher, m.Publisher)
	setScalar(&d.ISBN, m.ISBN)
	setScalar(&d.ASIN, m.ASIN)
	setScalar(&d.Language, m.Language)
	setScalar(&d.PublishedYear, m.PublishedYear)
	fillList(&d.Authors, m.Authors)
	fillList(&d.Narrators, m.Narrators)
	fillList(&d.Genres, m.Genres)
	if m.SeriesName != "" {
		fillSeries(&d.Series, []absmeta.SeriesRef{{Name: m.SeriesName, Sequence: m.SeriesSequence}})
	}
	return nil
}

// absMetadataFile reads the abmetadata sidecar, falling back to
// metadata.json when no abmetadata file is present.
func (p *Pipeline) absMetadataFile(_ context.Context, in *Input, d *Draft) error {
	var (
		m   *absmeta.Metadata
		err error
	)
	switch {
	case in.AbsPath != "":
		m, err = absmeta.ParseFile(in.AbsPath, in.MediaKind)
	case in.JSONPath != "":
		m, err = absmeta.ParseJSONFile(in.JSONPath)
	default:
		return nil
	}
	if err != nil {
		return err
	}

	setScalar(&d.Title, m.Title)
	setScalar(&d.Subtitle, m.Subtitle)
	setScalar(&d.Description, m.Description)
	setScalar(&d.Publisher, m.Publisher)
	setScalar(&d.ISBN, m.ISBN)
	setScalar(&d.ASIN, m.ASIN)
	setScalar(&d.Language, m.Language)
	setScalar(&d.PublishedYear, m.PublishedYear)
	setBool(&d.Abridged, m.Abridged)
	setBool(&d.Explicit, m.Explicit)
	fillList(&d.Authors, m.Authors)
	fillList(&d.Narrators, m.Narrators)
	fillList(&d.Genres, m.Genres)
	fillList(&d.Tags, m.Tags)
	fillSeries(&d.Series, m.Series)
	if len(m.Chapters) > 0 && len(d.Chapters) == 0 {
		d.Chapters = m.Chapters
	}

	setScalar(&d.Author, m.Author)
	setScalar(&d.FeedURL, m.FeedURL)
	setScalar(&d.ITunesID, m.ITunesID)
	return nil
}

func readTrimmed(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", errors.WithStack(err)
	}
	return strings.TrimSpace(string(b)), nil
}
