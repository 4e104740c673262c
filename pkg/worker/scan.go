package worker

import (
	"context"

	"github.com/hondanabooks/hondana/pkg/items"
	"github.com/hondanabooks/hondana/pkg/jobs"
	"github.com/hondanabooks/hondana/pkg/libraries"
	"github.com/hondanabooks/hondana/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// ProcessScanJob runs a full scan for the job's library, or for every
// library when the job has none.
func (w *Worker) ProcessScanJob(ctx context.Context, job *models.Job) error {
	log := logger.FromContext(ctx)
	jlog := w.jobLogService.NewJobLogger(ctx, job.ID, log)

	var toScan []*models.Library
	if job.LibraryID != nil {
		library, err := w.libraryService.RetrieveLibrary(ctx, libraries.RetrieveLibraryOptions{ID: job.LibraryID})
		if err != nil {
			return errors.WithStack(err)
		}
		toScan = append(toScan, library)
	} else {
		all, err := w.libraryService.ListLibraries(ctx, libraries.ListLibrariesOptions{})
		if err != nil {
			return errors.WithStack(err)
		}
		toScan = all
	}

	for i, library := range toScan {
		summary, err := w.orchestrator.Scan(ctx, library)
		if err != nil {
			return err
		}
		jlog.Info("library scan finished", logger.Data{
			"library_id":    library.ID,
			"items_added":   len(summary.ItemsAdded),
			"items_updated": len(summary.ItemsUpdated),
			"items_missing": len(summary.ItemsMissing),
		})

		job.Progress = (i + 1) * 100 / len(toScan)
		err = w.jobService.UpdateJob(ctx, job, jobs.UpdateJobOptions{Columns: []string{"progress"}})
		if err != nil {
			log.Err(err).Warn("update job progress error")
		}
	}

	return nil
}

// ProcessItemRescanJob refreshes a single item, typically on behalf of a
// filesystem watcher event.
func (w *Worker) ProcessItemRescanJob(ctx context.Context, job *models.Job) error {
	data, ok := job.DataParsed.(*models.JobItemRescanData)
	if !ok {
		return errors.New("item rescan job has no rescan data")
	}

	opts := items.RetrieveItemOptions{}
	switch {
	case data.LibraryItemID != "":
		opts.ID = &data.LibraryItemID
	case data.Path != "":
		opts.LibraryID = job.LibraryID
		opts.Path = &data.Path
	default:
		return errors.New("item rescan job targets nothing")
	}

	item, err := w.itemService.RetrieveItem(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	library, err := w.libraryService.RetrieveLibrary(ctx, libraries.RetrieveLibraryOptions{ID: &item.LibraryID})
	if err != nil {
		return errors.WithStack(err)
	}

	return w.orchestrator.RescanItem(ctx, library, item)
}
