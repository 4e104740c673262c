package scanner

import (
	"context"
	"os"
	"path/filepath"

	"github.com/hondanabooks/hondana/pkg/errcodes"
	"github.com/hondanabooks/hondana/pkg/events"
	"github.com/hondanabooks/hondana/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// ScanItem builds fresh scan data for a single known item without walking
// the whole library folder. Unlike full-library grouping, every file under
// the item's directory belongs to it.
func ScanItem(ctx context.Context, folder *models.LibraryFolder, itemRelPath string) (*ScanData, error) {
	itemPath := filepath.Join(folder.Path, filepath.FromSlash(itemRelPath))
	info, err := os.Stat(itemPath)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if !info.IsDir() {
		return buildScanData(ctx, folder, itemRelPath, []string{itemRelPath})
	}

	files, err := collectFiles(itemPath)
	if err != nil {
		return nil, err
	}
	members := make([]string, 0, len(files))
	for _, f := range files {
		members = append(members, itemRelPath+"/"+f.RelPath())
	}
	return buildScanData(ctx, folder, itemRelPath, members)
}

// RescanItem refreshes one catalog item in place: reconcile its files, rerun
// metadata synthesis when anything media-relevant changed, or flag it
// missing when its backing files are gone. library.Folders must be loaded.
func (o *Orchestrator) RescanItem(ctx context.Context, library *models.Library, item *models.LibraryItem) error {
	log := logger.FromContext(ctx)

	var folder *models.LibraryFolder
	for _, f := range library.Folders {
		if f.ID == item.LibraryFolderID {
			folder = f
			break
		}
	}
	if folder == nil {
		return errcodes.NotFound("Library folder")
	}

	sd, err := ScanItem(ctx, folder, item.RelPath)
	if err != nil && !os.IsNotExist(errors.Cause(err)) {
		return err
	}

	missing := err != nil
	if !missing && !sd.HasMediaFiles() && item.MediaKind == models.MediaKindBook {
		// A book with zero usable media files counts as missing even while
		// its folder sticks around. Podcast folders are just empty.
		missing = true
	}
	if missing {
		flagged, err := o.items.MarkItemsMissing(ctx, []string{item.ID})
		if err != nil {
			return err
		}
		events.EmitBatched(o.sink, events.ItemsMissing, flagged)
		return nil
	}

	res, err := o.reconciler.Reconcile(ctx, item, sd)
	if err != nil {
		return err
	}
	mediaSaved := false
	if res.MediaChanged {
		mediaSaved, err = o.saveMedia(ctx, library, item)
		if err != nil {
			return err
		}
	}
	if res.HasChanges || mediaSaved {
		events.EmitBatched(o.sink, events.ItemsUpdated, []string{item.ID})
		log.Info("library item rescanned", logger.Data{
			"library_item_id": item.ID,
			"rel_path":        item.RelPath,
		})
	}
	return nil
}
