package items

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/hondanabooks/hondana/pkg/errcodes"
	"github.com/hondanabooks/hondana/pkg/models"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveItemOptions struct {
	ID        *string
	LibraryID *int
	Path      *string
	Ino       *uint64
	DeviceID  *uint64
}

type ListItemsOptions struct {
	LibraryID       *int
	LibraryFolderID *int
	IsMissing       *bool
	Limit           *int
	Offset          *int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateItem inserts a new library item together with its files and media
// aggregate in one transaction.
func (svc *Service) CreateItem(ctx context.Context, item *models.LibraryItem) error {
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = item.CreatedAt

	if item.ID == "" {
		id, err := uuid.NewRandom()
		if err != nil {
			return errors.WithStack(err)
		}
		item.ID = id.String()
	}

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(item).Returning("*").Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		for _, file := range item.Files {
			file.LibraryItemID = item.ID
			file.CreatedAt = item.CreatedAt
			file.UpdatedAt = item.UpdatedAt
			if _, err := tx.NewInsert().Model(file).Returning("*").Exec(ctx); err != nil {
				return errors.WithStack(err)
			}
		}

		if item.Book != nil {
			item.Book.LibraryItemID = item.ID
			if err := svc.saveBookTx(ctx, tx, item.LibraryID, item.Book); err != nil {
				return err
			}
		}
		if item.Podcast != nil {
			item.Podcast.LibraryItemID = item.ID
			if err := svc.savePodcastTx(ctx, tx, item.Podcast); err != nil {
				return err
			}
		}
		return nil
	})
}

// RetrieveItem loads a single item with its files and media aggregate. The
// lookup key is the id, the (library, path) pair, or the (ino, device) pair,
// whichever the options carry.
func (svc *Service) RetrieveItem(ctx context.Context, opts RetrieveItemOptions) (*models.LibraryItem, error) {
	item := &models.LibraryItem{}
	q := svc.db.NewSelect().
		Model(item).
		Relation("Files").
		Relation("Book").
		Relation("Book.Authors").
		Relation("Book.Series").
		Relation("Book.Series.Series").
		Relation("Book.Chapters").
		Relation("Podcast").
		Relation("Podcast.Episodes")

	if opts.ID != nil {
		q = q.Where("li.id = ?", *opts.ID)
	}
	if opts.LibraryID != nil {
		q = q.Where("li.library_id = ?", *opts.LibraryID)
	}
	if opts.Path != nil {
		q = q.Where("li.path = ?", *opts.Path)
	}
	if opts.Ino != nil && opts.DeviceID != nil {
		q = q.Where("li.ino = ?", *opts.Ino).Where("li.device_id = ?", *opts.DeviceID)
	}

	err := q.Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errcodes.NotFound("Library item")
	} else if err != nil {
		return nil, errors.WithStack(err)
	}
	return item, nil
}

// ListItems loads items with their files and media aggregates.
func (svc *Service) ListItems(ctx context.Context, opts ListItemsOptions) ([]*models.LibraryItem, error) {
	var items []*models.LibraryItem
	q := svc.db.NewSelect().
		Model(&items).
		Relation("Files").
		Relation("Book").
		Relation("Book.Authors").
		Relation("Book.Series").
		Relation("Book.Series.Series").
		Relation("Book.Chapters").
		Relation("Podcast").
		Relation("Podcast.Episodes").
		Order("li.rel_path ASC")

	if opts.LibraryID != nil {
		q = q.Where("li.library_id = ?", *opts.LibraryID)
	}
	if opts.LibraryFolderID != nil {
		q = q.Where("li.library_folder_id = ?", *opts.LibraryFolderID)
	}
	if opts.IsMissing != nil {
		q = q.Where("li.is_missing = ?", *opts.IsMissing)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return items, nil
}

// UpdateItem persists the given columns of an already-loaded item.
func (svc *Service) UpdateItem(ctx context.Context, item *models.LibraryItem, columns ...string) error {
	item.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	_, err := svc.db.NewUpdate().
		Model(item).
		Column(columns...).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// ReplaceFiles makes the stored file list match item.Files exactly: rows for
// files no longer present are deleted, the rest are upserted.
func (svc *Service) ReplaceFiles(ctx context.Context, item *models.LibraryItem) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()

		keep := make([]int, 0, len(item.Files))
		for _, file := range item.Files {
			file.LibraryItemID = item.ID
			if file.ID == 0 {
				file.CreatedAt = now
				file.UpdatedAt = now
				if _, err := tx.NewInsert().Model(file).Returning("*").Exec(ctx); err != nil {
					return errors.WithStack(err)
				}
			} else {
				file.UpdatedAt = now
				if _, err := tx.NewUpdate().Model(file).WherePK().Exec(ctx); err != nil {
					return errors.WithStack(err)
				}
			}
			keep = append(keep, file.ID)
		}

		q := tx.NewDelete().
			Model((*models.LibraryFile)(nil)).
			Where("library_item_id = ?", item.ID)
		if len(keep) > 0 {
			q = q.Where("id NOT IN (?)", bun.In(keep))
		}
		_, err := q.Exec(ctx)
		return errors.WithStack(err)
	})
}

// MarkItemsMissing flags the given items missing. Already-missing items are
// untouched so the transition only happens once.
func (svc *Service) MarkItemsMissing(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var flagged []string
	err := svc.db.NewUpdate().
		Model((*models.LibraryItem)(nil)).
		Set("is_missing = ?", true).
		Set("updated_at = ?", time.Now()).
		Where("id IN (?)", bun.In(ids)).
		Where("is_missing = ?", false).
		Returning("id").
		Scan(ctx, &flagged)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.WithStack(err)
	}
	return flagged, nil
}
