// Package scanner turns the files on disk under a library's folders into
// catalog items: grouping files into items, matching them against the
// existing catalog, reconciling changes, and synthesizing metadata.
package scanner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hondanabooks/hondana/pkg/absmeta"
	"github.com/hondanabooks/hondana/pkg/audio"
	"github.com/hondanabooks/hondana/pkg/config"
	"github.com/hondanabooks/hondana/pkg/covers"
	"github.com/hondanabooks/hondana/pkg/errcodes"
	"github.com/hondanabooks/hondana/pkg/events"
	"github.com/hondanabooks/hondana/pkg/items"
	"github.com/hondanabooks/hondana/pkg/mediafile"
	"github.com/hondanabooks/hondana/pkg/metadata"
	"github.com/hondanabooks/hondana/pkg/models"
	"github.com/hondanabooks/hondana/pkg/sidecar"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
)

// State names the scan phases, in the order they run.
type State string

const (
	StateStarted           State = "started"
	StateFolderScan        State = "folder_scan"
	StateReconcileExisting State = "reconcile_existing"
	StateMissingDetection  State = "missing_detection"
	StateCreateNew         State = "create_new"
	StateCleanupOrphans    State = "cleanup_orphans"
	StateCompleted         State = "completed"
	StateCanceled          State = "canceled"
)

// Summary reports what one library scan did.
type Summary struct {
	State          State    `json:"state"`
	ItemsAdded     []string `json:"items_added"`
	ItemsUpdated   []string `json:"items_updated"`
	ItemsMissing   []string `json:"items_missing"`
	AuthorsRemoved int      `json:"authors_removed"`
	SeriesRemoved  int      `json:"series_removed"`
}

// OrchestratorOptions configures an Orchestrator. Items is required; the
// rest default to working implementations.
type OrchestratorOptions struct {
	Items    *items.Service
	Pipeline *metadata.Pipeline
	Covers   *covers.Resolver
	Sink     events.Sink
	Settings *config.ScannerSettings

	// ProbeAudio reads embedded tags for podcast episode synthesis. Tests
	// swap it out.
	ProbeAudio func(path string) (*audio.Metadata, error)
}

// Orchestrator runs full library scans. At most one scan per library runs at
// a time; a concurrent request fails with a conflict instead of queueing.
type Orchestrator struct {
	items      *items.Service
	reconciler *Reconciler
	pipeline   *metadata.Pipeline
	covers     *covers.Resolver
	sink       events.Sink
	settings   *config.ScannerSettings
	probeAudio func(path string) (*audio.Metadata, error)
	locks      *scanLocks
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	if opts.Pipeline == nil {
		opts.Pipeline = metadata.NewPipeline(metadata.Adapters{})
	}
	if opts.Covers == nil {
		opts.Covers = &covers.Resolver{}
	}
	if opts.Sink == nil {
		opts.Sink = events.NopSink{}
	}
	if opts.Settings == nil {
		opts.Settings = &config.ScannerSettings{MetadataPrecedence: config.DefaultMetadataPrecedence}
	}
	if opts.ProbeAudio == nil {
		opts.ProbeAudio = audio.Probe
	}
	return &Orchestrator{
		items:      opts.Items,
		reconciler: NewReconciler(opts.Items),
		pipeline:   opts.Pipeline,
		covers:     opts.Covers,
		sink:       opts.Sink,
		settings:   opts.Settings,
		probeAudio: opts.ProbeAudio,
		locks:      newScanLocks(),
	}
}

// Scan runs the full scan for one library. library.Folders must be loaded.
// Cancellation is honored at folder and item boundaries; a canceled scan
// keeps everything committed so far and skips orphan cleanup.
func (o *Orchestrator) Scan(ctx context.Context, library *models.Library) (*Summary, error) {
	if !o.locks.tryLock(library.ID) {
		return nil, errcodes.ScanInProgress(library.ID)
	}
	defer o.locks.unlock(library.ID)

	log := logger.FromContext(ctx)
	summary := &Summary{State: StateStarted}
	o.sink.Emit(events.ScanStarted, map[string]any{"library_id": library.ID})

	summary.State = StateFolderScan
	booksAllowEbooks := library.MediaKind == models.MediaKindBook && !library.AudiobooksOnly
	var pool []*ScanData
	for _, folder := range library.Folders {
		if ctx.Err() != nil {
			return o.canceled(library, summary)
		}
		scanned, err := ScanFolder(ctx, folder, booksAllowEbooks)
		if err != nil {
			log.Err(err).Error("library folder scan failed", logger.Data{
				"library_folder_id": folder.ID,
				"path":              folder.Path,
			})
			continue
		}
		pool = append(pool, scanned...)
		o.sink.Emit(events.ScanProgress, map[string]any{
			"library_id":        library.ID,
			"library_folder_id": folder.ID,
			"candidates":        len(scanned),
		})
	}

	existing, err := o.items.ListItems(ctx, items.ListItemsOptions{LibraryID: &library.ID})
	if err != nil {
		return nil, err
	}

	summary.State = StateReconcileExisting
	claimed := map[*ScanData]bool{}
	var unmatched []*models.LibraryItem
	for _, item := range existing {
		if ctx.Err() != nil {
			return o.canceled(library, summary)
		}
		sd := MatchItem(item, unclaimed(pool, claimed))
		if sd == nil {
			unmatched = append(unmatched, item)
			continue
		}
		claimed[sd] = true

		res, err := o.reconciler.Reconcile(ctx, item, sd)
		if err != nil {
			log.Err(err).Error("library item reconcile failed", logger.Data{"library_item_id": item.ID})
			continue
		}
		mediaSaved := false
		if res.MediaChanged {
			mediaSaved, err = o.saveMedia(ctx, library, item)
			if err != nil {
				log.Err(err).Error("library item metadata synthesis failed", logger.Data{"library_item_id": item.ID})
			}
		}
		if res.HasChanges || mediaSaved {
			summary.ItemsUpdated = append(summary.ItemsUpdated, item.ID)
		}
	}

	summary.State = StateMissingDetection
	var toFlag []string
	for _, item := range unmatched {
		// A podcast folder with no episodes on disk is empty, not missing.
		// A book item with no media files, or anything whose path is gone,
		// is missing.
		if item.MediaKind == models.MediaKindPodcast && !item.IsFile {
			if _, statErr := os.Stat(filepath.FromSlash(item.Path)); statErr == nil {
				continue
			}
		}
		toFlag = append(toFlag, item.ID)
	}
	summary.ItemsMissing, err = o.items.MarkItemsMissing(ctx, toFlag)
	if err != nil {
		return nil, err
	}

	summary.State = StateCreateNew
	for _, sd := range unclaimed(pool, claimed) {
		if ctx.Err() != nil {
			return o.canceled(library, summary)
		}
		if !sd.HasMediaFiles() {
			continue
		}
		item, err := o.createItem(ctx, library, sd)
		if err != nil {
			log.Err(err).Error("library item create failed", logger.Data{"rel_path": sd.RelPath})
			continue
		}
		summary.ItemsAdded = append(summary.ItemsAdded, item.ID)
	}

	events.EmitBatched(o.sink, events.ItemsAdded, summary.ItemsAdded)
	events.EmitBatched(o.sink, events.ItemsUpdated, summary.ItemsUpdated)
	events.EmitBatched(o.sink, events.ItemsMissing, summary.ItemsMissing)

	summary.State = StateCleanupOrphans
	summary.AuthorsRemoved, summary.SeriesRemoved, err = o.items.CleanupOrphans(ctx, library.ID)
	if err != nil {
		return nil, err
	}

	summary.State = StateCompleted
	o.sink.Emit(events.ScanCompleted, summary)
	log.Info("library scan completed", logger.Data{
		"library_id":    library.ID,
		"items_added":   len(summary.ItemsAdded),
		"items_updated": len(summary.ItemsUpdated),
		"items_missing": len(summary.ItemsMissing),
	})
	return summary, nil
}

func (o *Orchestrator) canceled(library *models.Library, summary *Summary) (*Summary, error) {
	summary.State = StateCanceled
	o.sink.Emit(events.ScanCanceled, map[string]any{"library_id": library.ID})
	return summary, context.Canceled
}

func unclaimed(pool []*ScanData, claimed map[*ScanData]bool) []*ScanData {
	rest := make([]*ScanData, 0, len(pool))
	for _, sd := range pool {
		if !claimed[sd] {
			rest = append(rest, sd)
		}
	}
	return rest
}

// createItem builds a new catalog item from scan data, synthesizes its
// media, and persists the whole aggregate.
func (o *Orchestrator) createItem(ctx context.Context, library *models.Library, sd *ScanData) (*models.LibraryItem, error) {
	now := time.Now()
	item := &models.LibraryItem{
		LibraryID:       library.ID,
		LibraryFolderID: sd.LibraryFolderID,
		Path:            sd.Path,
		RelPath:         sd.RelPath,
		Ino:             sd.Ino,
		DeviceID:        sd.DeviceID,
		IsFile:          sd.IsFile,
		MediaKind:       library.MediaKind,
		MTime:           sd.MTime,
		CTime:           sd.CTime,
		BirthTime:       sd.BirthTime,
		LastScan:        &now,
	}
	for _, fd := range sd.Files {
		item.Files = append(item.Files, newLibraryFile("", fd))
	}
	item.Size = item.TotalSize()

	if err := o.buildMedia(ctx, library, item); err != nil {
		return nil, err
	}
	if err := o.items.CreateItem(ctx, item); err != nil {
		return nil, err
	}
	o.storeSidecar(ctx, library, item)
	return item, nil
}

// saveMedia rebuilds an existing item's media metadata and persists it when
// anything changed.
func (o *Orchestrator) saveMedia(ctx context.Context, library *models.Library, item *models.LibraryItem) (bool, error) {
	changed, err := o.synthesizeMedia(ctx, library, item)
	if err != nil || !changed {
		return false, err
	}
	if library.MediaKind == models.MediaKindPodcast {
		if err := o.items.SavePodcast(ctx, item.Podcast); err != nil {
			return true, err
		}
	} else {
		if err := o.items.SaveBook(ctx, library.ID, item.Book); err != nil {
			return true, err
		}
	}
	o.storeSidecar(ctx, library, item)
	return true, nil
}

// storeSidecar writes metadata back into the item folder when configured.
// Failures never fail a scan.
func (o *Orchestrator) storeSidecar(ctx context.Context, library *models.Library, item *models.LibraryItem) {
	if !o.settings.StoreMetadataWithItem {
		return
	}

	var err error
	if library.MediaKind == models.MediaKindPodcast {
		err = sidecar.WritePodcast(item, item.Podcast)
	} else {
		err = sidecar.WriteBook(item, item.Book)
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).Warn("sidecar write failed", logger.Data{
			"library_item_id": item.ID,
			"path":            item.Path,
		})
	}
}

// buildMedia synthesizes media metadata in memory for a new item; CreateItem
// persists it together with the item.
func (o *Orchestrator) buildMedia(ctx context.Context, library *models.Library, item *models.LibraryItem) error {
	_, err := o.synthesizeMedia(ctx, library, item)
	return err
}

func (o *Orchestrator) synthesizeMedia(ctx context.Context, library *models.Library, item *models.LibraryItem) (bool, error) {
	in := buildInput(library, item, o.settings)
	draft := o.pipeline.Run(ctx, in)

	if library.MediaKind == models.MediaKindPodcast {
		return o.synthesizePodcast(ctx, item, in, draft)
	}
	return o.synthesizeBook(ctx, item, in, draft)
}

func (o *Orchestrator) synthesizeBook(ctx context.Context, item *models.LibraryItem, in *metadata.Input, draft *metadata.Draft) (bool, error) {
	book := item.Book
	if book == nil {
		book = &models.Book{LibraryItemID: item.ID}
		item.Book = book
	}
	changed := metadata.ApplyBook(ctx, book, draft)

	if len(draft.Authors) > 0 && !sameNames(book.AuthorNames(), draft.Authors) {
		book.Authors = nil
		for _, name := range draft.Authors {
			book.Authors = append(book.Authors, &models.Author{Name: name})
		}
		changed = true
	}
	if len(draft.Series) > 0 && !sameSeries(book.Series, draft.Series) {
		book.Series = nil
		for _, ref := range draft.Series {
			membership := &models.BookSeries{Series: &models.Series{Name: ref.Name}}
			if ref.Sequence != "" {
				membership.Sequence = pointerutil.String(ref.Sequence)
			}
			book.Series = append(book.Series, membership)
		}
		changed = true
	}

	author := ""
	if len(draft.Authors) > 0 {
		author = draft.Authors[0]
	}
	coverPath, err := o.covers.Resolve(ctx, covers.ResolveOptions{
		Dir:            in.Dir,
		ImageFilenames: in.ImageFilenames,
		AudioCover:     draft.AudioCover,
		EbookCover:     draft.EbookCover,
		Title:          book.Title,
		Author:         author,
		SearchEnabled:  o.settings.FindCovers,
	})
	if err != nil {
		logger.FromContext(ctx).Warn("cover resolution failed", logger.Data{"error": err.Error()})
	} else if coverPath != "" && (book.CoverPath == nil || *book.CoverPath != coverPath) {
		book.CoverPath = &coverPath
		changed = true
	}
	return changed, nil
}

func (o *Orchestrator) synthesizePodcast(ctx context.Context, item *models.LibraryItem, in *metadata.Input, draft *metadata.Draft) (bool, error) {
	podcast := item.Podcast
	if podcast == nil {
		podcast = &models.Podcast{LibraryItemID: item.ID}
		item.Podcast = podcast
	}
	changed := metadata.ApplyPodcast(ctx, podcast, draft)
	if o.syncEpisodes(ctx, podcast, item) {
		changed = true
	}

	coverPath, err := o.covers.Resolve(ctx, covers.ResolveOptions{
		Dir:            in.Dir,
		ImageFilenames: in.ImageFilenames,
		AudioCover:     draft.AudioCover,
		Title:          podcast.Title,
		SearchEnabled:  o.settings.FindCovers,
	})
	if err != nil {
		logger.FromContext(ctx).Warn("cover resolution failed", logger.Data{"error": err.Error()})
	} else if coverPath != "" && (podcast.CoverPath == nil || *podcast.CoverPath != coverPath) {
		podcast.CoverPath = &coverPath
		changed = true
	}
	return changed, nil
}

// syncEpisodes aligns the podcast's episode list with the item's audio
// files. Episodes keep their identity across renames via the backing file's
// (inode, device) pair.
func (o *Orchestrator) syncEpisodes(ctx context.Context, podcast *models.Podcast, item *models.LibraryItem) bool {
	log := logger.FromContext(ctx)
	changed := false

	byRelPath := map[string]*models.PodcastEpisode{}
	byIdentity := map[[2]uint64]*models.PodcastEpisode{}
	for _, ep := range podcast.Episodes {
		byRelPath[ep.AudioRelPath] = ep
		if ep.AudioIno != 0 {
			byIdentity[[2]uint64{ep.AudioIno, ep.AudioDevice}] = ep
		}
	}

	kept := make([]*models.PodcastEpisode, 0, len(item.Files))
	for _, f := range item.AudioFiles() {
		ep := byRelPath[f.RelPath]
		if ep == nil && f.Ino != 0 {
			ep = byIdentity[[2]uint64{f.Ino, f.DeviceID}]
		}
		if ep == nil {
			ep = &models.PodcastEpisode{Title: episodeTitle(f, o.probeAudio, log)}
			changed = true
		} else if ep.AudioRelPath != f.RelPath || ep.AudioSize != f.Size {
			changed = true
		}
		ep.AudioRelPath = f.RelPath
		ep.AudioIno = f.Ino
		ep.AudioDevice = f.DeviceID
		ep.AudioSize = f.Size
		kept = append(kept, ep)
	}
	if len(kept) != len(podcast.Episodes) {
		changed = true
	}
	podcast.Episodes = kept
	return changed
}

func episodeTitle(f *models.LibraryFile, probe func(string) (*audio.Metadata, error), log logger.Logger) string {
	meta, err := probe(f.Path)
	if err != nil {
		log.Warn("episode audio probe failed", logger.Data{"path": f.Path, "error": err.Error()})
	} else if meta != nil && meta.Title != "" {
		return meta.Title
	}
	return strings.TrimSuffix(f.Filename, filepath.Ext(f.Filename))
}

// buildInput maps an item's current file list onto the metadata pipeline's
// input shape.
func buildInput(library *models.Library, item *models.LibraryItem, settings *config.ScannerSettings) *metadata.Input {
	dir := item.Path
	if item.IsFile {
		dir = filepath.ToSlash(filepath.Dir(filepath.FromSlash(item.Path)))
	}

	in := &metadata.Input{
		MediaKind: library.MediaKind,
		RelPath:   item.RelPath,
		Dir:       dir,
		IsFile:    item.IsFile,
		Settings:  settings,
	}
	for _, f := range item.Files {
		switch f.Kind() {
		case mediafile.KindAudio:
			if !f.IsSupplementary {
				in.AudioPaths = append(in.AudioPaths, f.Path)
			}
		case mediafile.KindEbook:
			if in.EbookPath == "" && !f.IsSupplementary {
				in.EbookPath = f.Path
			}
		case mediafile.KindText:
			in.TextPaths = append(in.TextPaths, f.Path)
		case mediafile.KindImage:
			// Only images directly in the item folder count as cover
			// candidates.
			if filepath.ToSlash(filepath.Dir(filepath.FromSlash(f.Path))) == dir {
				in.ImageFilenames = append(in.ImageFilenames, f.Filename)
			}
		case mediafile.KindMetadata:
			switch {
			case strings.EqualFold(f.Filename, mediafile.MetadataJSONFilename):
				in.JSONPath = f.Path
			case f.Ext == ".opf":
				in.OPFPath = f.Path
			case f.Ext == ".abs":
				in.AbsPath = f.Path
			}
		}
	}
	return in
}

func sameNames(stored, draft []string) bool {
	if len(stored) != len(draft) {
		return false
	}
	for i := range stored {
		if stored[i] != draft[i] {
			return false
		}
	}
	return true
}

func sameSeries(stored []*models.BookSeries, draft []absmeta.SeriesRef) bool {
	if len(stored) != len(draft) {
		return false
	}
	for i, membership := range stored {
		if membership.Series == nil || membership.Series.Name != draft[i].Name {
			return false
		}
		switch {
		case membership.Sequence == nil && draft[i].Sequence == "":
		case membership.Sequence != nil && *membership.Sequence == draft[i].Sequence:
		default:
			return false
		}
	}
	return true
}
