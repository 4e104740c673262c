package libraries

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hondanabooks/hondana/pkg/errcodes"
	"github.com/hondanabooks/hondana/pkg/jobs"
	"github.com/hondanabooks/hondana/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
)

type handler struct {
	libraryService *Service
	jobService     *jobs.Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateLibraryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	library := &models.Library{
		Name:           params.Name,
		MediaKind:      params.MediaKind,
		AudiobooksOnly: params.AudiobooksOnly,
		Folders:        make([]*models.LibraryFolder, 0, len(params.Folders)),
	}
	for _, path := range params.Folders {
		library.Folders = append(library.Folders, &models.LibraryFolder{
			Path: path,
		})
	}

	err := h.libraryService.CreateLibrary(ctx, library)
	if err != nil {
		return errors.WithStack(err)
	}

	// A fresh library gets scanned right away.
	if err := h.enqueueScan(c, library.ID); err != nil {
		logger.FromContext(ctx).Err(err).Error("failed to enqueue scan after library create", logger.Data{
			"library_id": library.ID,
		})
	}

	library, err = h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &library.ID,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	library, err := h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListLibrariesQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	libraries, total, err := h.libraryService.ListLibrariesWithTotal(ctx, ListLibrariesOptions{
		Limit:          &params.Limit,
		Offset:         &params.Offset,
		IncludeDeleted: params.Deleted,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Libraries []*models.Library `json:"libraries"`
		Total     int               `json:"total"`
	}{libraries, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	// Bind params.
	params := UpdateLibraryPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Fetch the library.
	library, err := h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateLibraryOptions{Columns: []string{}}

	if params.Name != nil && *params.Name != library.Name {
		library.Name = *params.Name
		opts.Columns = append(opts.Columns, "name")
	}
	if params.AudiobooksOnly != nil && *params.AudiobooksOnly != library.AudiobooksOnly {
		library.AudiobooksOnly = *params.AudiobooksOnly
		opts.Columns = append(opts.Columns, "audiobooks_only")
	}
	if params.Folders != nil {
		library.Folders = make([]*models.LibraryFolder, 0, len(params.Folders))
		for _, path := range params.Folders {
			library.Folders = append(library.Folders, &models.LibraryFolder{
				Path: path,
			})
		}
		opts.UpdateFolders = true
	}
	if params.Deleted != nil && (*params.Deleted && library.DeletedAt == nil || !*params.Deleted && library.DeletedAt != nil) {
		if *params.Deleted {
			library.DeletedAt = pointerutil.Time(time.Now())
		} else {
			library.DeletedAt = nil
		}
		opts.Columns = append(opts.Columns, "deleted_at")
	}

	// Update the model.
	err = h.libraryService.UpdateLibrary(ctx, library, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	// A folder change warrants a fresh scan.
	if opts.UpdateFolders {
		if err := h.enqueueScan(c, library.ID); err != nil {
			logger.FromContext(ctx).Err(err).Error("failed to enqueue scan after folder update", logger.Data{
				"library_id": library.ID,
			})
		}
	}

	// Reload the model.
	library, err = h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, library))
}

// scan enqueues a full scan job for the library.
func (h *handler) scan(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Library")
	}

	// Make sure the library exists.
	if _, err := h.libraryService.RetrieveLibrary(ctx, RetrieveLibraryOptions{ID: &id}); err != nil {
		return errors.WithStack(err)
	}

	hasActive, err := h.jobService.HasActiveJob(ctx, models.JobTypeScan, &id)
	if err != nil {
		return errors.WithStack(err)
	}
	if hasActive {
		return errcodes.ScanInProgress(id)
	}

	if err := h.enqueueScan(c, id); err != nil {
		return errors.WithStack(err)
	}

	return c.NoContent(http.StatusAccepted)
}

func (h *handler) enqueueScan(c echo.Context, libraryID int) error {
	job := &models.Job{
		Type:       models.JobTypeScan,
		Status:     models.JobStatusPending,
		DataParsed: &models.JobScanData{},
		LibraryID:  &libraryID,
	}
	return h.jobService.CreateJob(c.Request().Context(), job)
}
