package items

import (
	"context"
	"database/sql"
	"time"

	"github.com/hondanabooks/hondana/pkg/models"
	"github.com/hondanabooks/hondana/pkg/sortname"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// SaveBook persists a book aggregate: the book row, its author set (resolved
// by case-sensitive name within the library, created when absent), its series
// memberships, and its chapters. Authors and series no longer referenced by
// the book are detached, never deleted here; that's CleanupOrphans' job.
func (svc *Service) SaveBook(ctx context.Context, libraryID int, book *models.Book) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return svc.saveBookTx(ctx, tx, libraryID, book)
	})
}

func (svc *Service) saveBookTx(ctx context.Context, tx bun.Tx, libraryID int, book *models.Book) error {
	now := time.Now()

	if book.ID == 0 {
		book.CreatedAt = now
		book.UpdatedAt = now
		if _, err := tx.NewInsert().Model(book).Returning("*").Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
	} else {
		book.UpdatedAt = now
		if _, err := tx.NewUpdate().Model(book).WherePK().Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
	}

	// Authors: resolve each name, then rewrite the join rows so sort order
	// matches the draft's author order.
	if _, err := tx.NewDelete().
		Model((*models.BookAuthor)(nil)).
		Where("book_id = ?", book.ID).
		Exec(ctx); err != nil {
		return errors.WithStack(err)
	}
	for i, author := range book.Authors {
		resolved, err := findOrCreateAuthor(ctx, tx, libraryID, author.Name)
		if err != nil {
			return err
		}
		*author = *resolved
		join := &models.BookAuthor{BookID: book.ID, AuthorID: resolved.ID, SortOrder: i}
		if _, err := tx.NewInsert().Model(join).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
	}

	// Series memberships: same rewrite, keeping the sequence text.
	if _, err := tx.NewDelete().
		Model((*models.BookSeries)(nil)).
		Where("book_id = ?", book.ID).
		Exec(ctx); err != nil {
		return errors.WithStack(err)
	}
	for _, membership := range book.Series {
		name := membership.Series.Name
		resolved, err := findOrCreateSeries(ctx, tx, libraryID, name)
		if err != nil {
			return err
		}
		membership.ID = 0
		membership.BookID = book.ID
		membership.SeriesID = resolved.ID
		membership.Series = resolved
		if _, err := tx.NewInsert().Model(membership).Returning("*").Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
	}

	// Chapters are wholly owned by the book; rewrite them.
	if _, err := tx.NewDelete().
		Model((*models.BookChapter)(nil)).
		Where("book_id = ?", book.ID).
		Exec(ctx); err != nil {
		return errors.WithStack(err)
	}
	for _, chapter := range book.Chapters {
		chapter.ID = 0
		chapter.BookID = book.ID
		if _, err := tx.NewInsert().Model(chapter).Returning("*").Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// SavePodcast persists a podcast aggregate including its episode list.
// Episodes present in the stored set but absent from podcast.Episodes are
// deleted.
func (svc *Service) SavePodcast(ctx context.Context, podcast *models.Podcast) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		return svc.savePodcastTx(ctx, tx, podcast)
	})
}

func (svc *Service) savePodcastTx(ctx context.Context, tx bun.Tx, podcast *models.Podcast) error {
	now := time.Now()

	if podcast.ID == 0 {
		podcast.CreatedAt = now
		podcast.UpdatedAt = now
		if _, err := tx.NewInsert().Model(podcast).Returning("*").Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
	} else {
		podcast.UpdatedAt = now
		if _, err := tx.NewUpdate().Model(podcast).WherePK().Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
	}

	keep := make([]int, 0, len(podcast.Episodes))
	for _, episode := range podcast.Episodes {
		episode.PodcastID = podcast.ID
		if episode.ID == 0 {
			episode.CreatedAt = now
			episode.UpdatedAt = now
			if _, err := tx.NewInsert().Model(episode).Returning("*").Exec(ctx); err != nil {
				return errors.WithStack(err)
			}
		} else {
			episode.UpdatedAt = now
			if _, err := tx.NewUpdate().Model(episode).WherePK().Exec(ctx); err != nil {
				return errors.WithStack(err)
			}
		}
		keep = append(keep, episode.ID)
	}

	q := tx.NewDelete().
		Model((*models.PodcastEpisode)(nil)).
		Where("podcast_id = ?", podcast.ID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN (?)", bun.In(keep))
	}
	_, err := q.Exec(ctx)
	return errors.WithStack(err)
}

// findOrCreateAuthor resolves an author by exact (case-sensitive) name within
// the library.
func findOrCreateAuthor(ctx context.Context, tx bun.Tx, libraryID int, name string) (*models.Author, error) {
	author := &models.Author{}
	err := tx.NewSelect().
		Model(author).
		Where("library_id = ?", libraryID).
		Where("name = ?", name).
		Limit(1).
		Scan(ctx)
	if err == nil {
		return author, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.WithStack(err)
	}

	now := time.Now()
	author = &models.Author{
		CreatedAt: now,
		UpdatedAt: now,
		LibraryID: libraryID,
		Name:      name,
		SortName:  sortname.ForPerson(name),
	}
	if _, err := tx.NewInsert().Model(author).Returning("*").Exec(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return author, nil
}

// findOrCreateSeries resolves a series by exact (case-sensitive) name within
// the library.
func findOrCreateSeries(ctx context.Context, tx bun.Tx, libraryID int, name string) (*models.Series, error) {
	series := &models.Series{}
	err := tx.NewSelect().
		Model(series).
		Where("library_id = ?", libraryID).
		Where("name = ?", name).
		Limit(1).
		Scan(ctx)
	if err == nil {
		return series, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.WithStack(err)
	}

	now := time.Now()
	series = &models.Series{
		CreatedAt: now,
		UpdatedAt: now,
		LibraryID: libraryID,
		Name:      name,
	}
	if _, err := tx.NewInsert().Model(series).Returning("*").Exec(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return series, nil
}

// CleanupOrphans deletes authors and series in the library that have no
// referencing books and no identity markers of their own. Entities with an
// external id, description, or image survive at zero references.
func (svc *Service) CleanupOrphans(ctx context.Context, libraryID int) (int, int, error) {
	var authors []*models.Author
	err := svc.db.NewSelect().
		Model(&authors).
		Where("library_id = ?", libraryID).
		Where("NOT EXISTS (SELECT 1 FROM book_authors ba WHERE ba.author_id = a.id)").
		Scan(ctx)
	if err != nil {
		return 0, 0, errors.WithStack(err)
	}

	authorIDs := make([]int, 0, len(authors))
	for _, author := range authors {
		if !author.HasIdentity() {
			authorIDs = append(authorIDs, author.ID)
		}
	}
	if len(authorIDs) > 0 {
		if _, err := svc.db.NewDelete().
			Model((*models.Author)(nil)).
			Where("id IN (?)", bun.In(authorIDs)).
			Exec(ctx); err != nil {
			return 0, 0, errors.WithStack(err)
		}
	}

	var series []*models.Series
	err = svc.db.NewSelect().
		Model(&series).
		Where("library_id = ?", libraryID).
		Where("NOT EXISTS (SELECT 1 FROM book_series bs WHERE bs.series_id = s.id)").
		Scan(ctx)
	if err != nil {
		return 0, 0, errors.WithStack(err)
	}

	seriesIDs := make([]int, 0, len(series))
	for _, s := range series {
		if !s.HasIdentity() {
			seriesIDs = append(seriesIDs, s.ID)
		}
	}
	if len(seriesIDs) > 0 {
		if _, err := svc.db.NewDelete().
			Model((*models.Series)(nil)).
			Where("id IN (?)", bun.In(seriesIDs)).
			Exec(ctx); err != nil {
			return 0, 0, errors.WithStack(err)
		}
	}

	return len(authorIDs), len(seriesIDs), nil
}
