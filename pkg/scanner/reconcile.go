package scanner

import (
	"context"
	"time"

	"github.com/hondanabooks/hondana/pkg/items"
	"github.com/hondanabooks/hondana/pkg/mediafile"
	"github.com/hondanabooks/hondana/pkg/models"
	"github.com/robinjoseph08/golib/logger"
)

// Result summarizes what one reconcile pass found for an item.
type Result struct {
	HasChanges    bool
	FilesAdded    []string
	FilesRemoved  []string
	FilesModified []string

	// MediaChanged means a file that feeds metadata synthesis (audio, ebook,
	// sidecar or text) was added, removed or modified, so the item's
	// metadata needs to be rebuilt.
	MediaChanged bool
}

// Reconciler diffs existing catalog items against fresh scan data and
// persists the changes.
type Reconciler struct {
	items *items.Service
}

func NewReconciler(items *items.Service) *Reconciler {
	return &Reconciler{items: items}
}

// Reconcile updates item in place from scanned and commits when anything
// changed. File matching is path-first with an identity fallback, so a
// renamed file counts as modified rather than as a remove plus add.
func (r *Reconciler) Reconcile(ctx context.Context, item *models.LibraryItem, scanned *ScanData) (Result, error) {
	log := logger.FromContext(ctx)

	res := reconcileItem(item, scanned)
	if !res.HasChanges {
		return res, nil
	}

	err := r.items.UpdateItem(ctx, item,
		"library_folder_id", "path", "rel_path", "ino", "device_id", "is_file",
		"mtime", "ctime", "birth_time", "is_missing", "size", "last_scan")
	if err != nil {
		return res, err
	}
	if err := r.items.ReplaceFiles(ctx, item); err != nil {
		return res, err
	}

	log.Info("reconciled library item", logger.Data{
		"library_item_id": item.ID,
		"rel_path":        item.RelPath,
		"files_added":     len(res.FilesAdded),
		"files_removed":   len(res.FilesRemoved),
		"files_modified":  len(res.FilesModified),
	})
	return res, nil
}

// reconcileItem computes the diff and applies it to the in-memory item.
func reconcileItem(item *models.LibraryItem, scanned *ScanData) Result {
	var res Result

	changed := false
	if item.LibraryFolderID != scanned.LibraryFolderID {
		item.LibraryFolderID = scanned.LibraryFolderID
		changed = true
	}
	if item.Path != scanned.Path || item.RelPath != scanned.RelPath {
		item.Path = scanned.Path
		item.RelPath = scanned.RelPath
		changed = true
	}
	if item.Ino != scanned.Ino || item.DeviceID != scanned.DeviceID {
		item.Ino = scanned.Ino
		item.DeviceID = scanned.DeviceID
		changed = true
	}
	if item.IsFile != scanned.IsFile {
		item.IsFile = scanned.IsFile
		changed = true
	}
	// Millisecond granularity, matching the per-file timestamps.
	if item.MTime.UnixMilli() != scanned.MTime.UnixMilli() ||
		item.CTime.UnixMilli() != scanned.CTime.UnixMilli() ||
		item.BirthTime.UnixMilli() != scanned.BirthTime.UnixMilli() {
		item.MTime = scanned.MTime
		item.CTime = scanned.CTime
		item.BirthTime = scanned.BirthTime
		changed = true
	}
	if item.IsMissing {
		// The item is back on disk.
		item.IsMissing = false
		changed = true
	}

	pool := newFilePool(scanned.Files)
	kept := make([]*models.LibraryFile, 0, len(scanned.Files))
	for _, f := range item.Files {
		match := pool.take(f)
		if match == nil {
			res.FilesRemoved = append(res.FilesRemoved, f.RelPath)
			continue
		}

		fileChanged := false
		if f.Path != match.Path {
			fileChanged = true
		}
		if f.Ino != match.Ino || f.DeviceID != match.DeviceID {
			fileChanged = true
		}
		// The scanner rewrites sidecars itself, so their size and mtime
		// churn is expected and ignored.
		if !f.IsMetadataSidecar() && (f.Size != match.Size || f.MTimeMs != match.MTimeMs) {
			fileChanged = true
		}

		f.Path = match.Path
		f.RelPath = match.RelPath
		f.Filename = match.Filename
		f.Ext = match.Ext
		f.Ino = match.Ino
		f.DeviceID = match.DeviceID
		f.Size = match.Size
		f.MTimeMs = match.MTimeMs
		f.CTimeMs = match.CTimeMs
		f.BirthTimeMs = match.BirthTimeMs
		kept = append(kept, f)

		if fileChanged {
			res.FilesModified = append(res.FilesModified, f.RelPath)
		}
	}
	for _, fd := range pool.remaining() {
		kept = append(kept, newLibraryFile(item.ID, fd))
		res.FilesAdded = append(res.FilesAdded, fd.RelPath)
	}
	item.Files = kept

	res.HasChanges = changed ||
		len(res.FilesAdded) > 0 || len(res.FilesRemoved) > 0 || len(res.FilesModified) > 0
	if res.HasChanges {
		item.Size = item.TotalSize()
		now := time.Now()
		item.LastScan = &now
	}
	res.MediaChanged = anyMetadataRelevant(res.FilesAdded) ||
		anyMetadataRelevant(res.FilesRemoved) ||
		anyMetadataRelevant(res.FilesModified)
	return res
}

func anyMetadataRelevant(relPaths []string) bool {
	for _, p := range relPaths {
		switch mediafile.Classify(p) {
		case mediafile.KindAudio, mediafile.KindEbook, mediafile.KindMetadata, mediafile.KindText:
			return true
		}
	}
	return false
}

func newLibraryFile(itemID string, fd FileData) *models.LibraryFile {
	return &models.LibraryFile{
		LibraryItemID: itemID,
		Ino:           fd.Ino,
		DeviceID:      fd.DeviceID,
		Path:          fd.Path,
		RelPath:       fd.RelPath,
		Filename:      fd.Filename,
		Ext:           fd.Ext,
		Size:          fd.Size,
		MTimeMs:       fd.MTimeMs,
		CTimeMs:       fd.CTimeMs,
		BirthTimeMs:   fd.BirthTimeMs,
	}
}
