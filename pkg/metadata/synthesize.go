package metadata

import (
	"context"
	"strings"

	"github.com/hondanabooks/hondana/pkg/absmeta"
	"github.com/hondanabooks/hondana/pkg/models"
	"github.com/hondanabooks/hondana/pkg/sortname"
	"github.com/robinjoseph08/golib/logger"
)

// ApplyBook maps a finished draft onto a book record and reports whether
// anything changed. The draft is authoritative: scalars compare by equality,
// list fields by set equality, and differences are applied in place. Authors
// and series are excluded; they need cross-item entity resolution and are the
// orchestrator's job.
func ApplyBook(ctx context.Context, book *models.Book, d *Draft) bool {
	log := logger.FromContext(ctx)
	changed := false

	title := d.Title
	if title == "" {
		title = book.Title
	}
	changed = applyString(&book.Title, title, "title", log) || changed
	changed = applyString(&book.SortTitle, sortname.ForTitle(title), "sort_title", log) || changed
	changed = applyPtr(&book.Subtitle, d.Subtitle, "subtitle", log) || changed
	changed = applyPtr(&book.Description, d.Description, "description", log) || changed
	changed = applyPtr(&book.Publisher, d.Publisher, "publisher", log) || changed
	changed = applyPtr(&book.PublishedYear, d.PublishedYear, "published_year", log) || changed
	changed = applyPtr(&book.ISBN, d.ISBN, "isbn", log) || changed
	changed = applyPtr(&book.ASIN, d.ASIN, "asin", log) || changed
	changed = applyPtr(&book.Language, d.Language, "language", log) || changed

	if d.Abridged != nil && book.Abridged != *d.Abridged {
		book.Abridged = *d.Abridged
		logChange(log, "abridged")
		changed = true
	}

	changed = applyList(&book.Narrators, d.Narrators, "narrators", log) || changed
	changed = applyList(&book.Genres, d.Genres, "genres", log) || changed
	changed = applyList(&book.Tags, d.Tags, "tags", log) || changed
	changed = applyChapters(book, d.Chapters, log) || changed

	return changed
}

// ApplyPodcast is ApplyBook's podcast counterpart.
func ApplyPodcast(ctx context.Context, podcast *models.Podcast, d *Draft) bool {
	log := logger.FromContext(ctx)
	changed := false

	title := d.Title
	if title == "" {
		title = podcast.Title
	}
	changed = applyString(&podcast.Title, title, "title", log) || changed
	changed = applyString(&podcast.SortTitle, sortname.ForTitle(title), "sort_title", log) || changed
	changed = applyPtr(&podcast.Author, d.Author, "author", log) || changed
	changed = applyPtr(&podcast.Description, d.Description, "description", log) || changed
	changed = applyPtr(&podcast.FeedURL, d.FeedURL, "feed_url", log) || changed
	changed = applyPtr(&podcast.ITunesID, d.ITunesID, "itunes_id", log) || changed
	changed = applyPtr(&podcast.Language, d.Language, "language", log) || changed

	changed = applyList(&podcast.Genres, d.Genres, "genres", log) || changed
	changed = applyList(&podcast.Tags, d.Tags, "tags", log) || changed

	return changed
}

func logChange(log logger.Logger, field string) {
	log.Info("media metadata changed", logger.Data{"field": field})
}

func applyString(dst *string, value, field string, log logger.Logger) bool {
	if *dst == value {
		return false
	}
	*dst = value
	logChange(log, field)
	return true
}

// applyPtr treats an empty draft value and a nil stored pointer as equal.
func applyPtr(dst **string, value, field string, log logger.Logger) bool {
	value = strings.TrimSpace(value)
	current := ""
	if *dst != nil {
		current = **dst
	}
	if current == value {
		return false
	}
	if value == "" {
		*dst = nil
	} else {
		*dst = &value
	}
	logChange(log, field)
	return true
}

func applyList(dst *models.StringList, values []string, field string, log logger.Logger) bool {
	if setEqual(*dst, values) {
		return false
	}
	*dst = models.StringList(cleanList(values))
	logChange(log, field)
	return true
}

func applyChapters(book *models.Book, chapters []absmeta.Chapter, log logger.Logger) bool {
	if len(chapters) == 0 {
		return false
	}
	if len(book.Chapters) == len(chapters) {
		same := true
		for i, ch := range chapters {
			existing := book.Chapters[i]
			if existing.Start != ch.Start || existing.End != ch.End || existing.Title != ch.Title {
				same = false
				break
			}
		}
		if same {
			return false
		}
	}

	book.Chapters = book.Chapters[:0]
	for i, ch := range chapters {
		book.Chapters = append(book.Chapters, &models.BookChapter{
			BookID: book.ID,
			Idx:    i,
			Start:  ch.Start,
			End:    ch.End,
			Title:  ch.Title,
		})
	}
	logChange(log, "chapters")
	return true
}

// setEqual compares two string lists order-insensitively.
func setEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, v := range a {
		counts[v]++
	}
	for _, v := range b {
		counts[v]--
		if counts[v] < 0 {
			return false
		}
	}
	return true
}
