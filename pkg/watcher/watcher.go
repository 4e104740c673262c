// Package watcher feeds filesystem change notifications into targeted item
// rescan jobs, so edits show up in the catalog without a full library scan.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hondanabooks/hondana/pkg/errcodes"
	"github.com/hondanabooks/hondana/pkg/items"
	"github.com/hondanabooks/hondana/pkg/jobs"
	"github.com/hondanabooks/hondana/pkg/libraries"
	"github.com/hondanabooks/hondana/pkg/mediafile"
	"github.com/hondanabooks/hondana/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

type watchRoot struct {
	libraryID int
	folderID  int
	path      string
}

type pendingRescan struct {
	libraryID int
	itemPath  string
	lastEvent time.Time
}

// Watcher tails fsnotify events under every library folder, debounces the
// bursts a single copy or download produces, and enqueues one rescan job per
// touched item.
type Watcher struct {
	itemService    *items.Service
	jobService     *jobs.Service
	libraryService *libraries.Service

	fs  *fsnotify.Watcher
	log logger.Logger

	debounceInterval time.Duration

	mu      sync.Mutex
	roots   []watchRoot
	pending map[string]*pendingRescan

	started  bool
	shutdown chan struct{}
	done     chan struct{}
}

func New(db *bun.DB) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &Watcher{
		itemService:      items.NewService(db),
		jobService:       jobs.NewService(db),
		libraryService:   libraries.NewService(db),
		fs:               fsw,
		log:              logger.New(),
		debounceInterval: 2 * time.Second,
		pending:          map[string]*pendingRescan{},
		shutdown:         make(chan struct{}),
		done:             make(chan struct{}),
	}, nil
}

// Start registers watches for every folder of every library and begins
// processing events.
func (w *Watcher) Start(ctx context.Context) error {
	all, err := w.libraryService.ListLibraries(ctx, libraries.ListLibrariesOptions{})
	if err != nil {
		return err
	}

	for _, library := range all {
		for _, folder := range library.Folders {
			w.mu.Lock()
			w.roots = append(w.roots, watchRoot{
				libraryID: library.ID,
				folderID:  folder.ID,
				path:      filepath.Clean(folder.Path),
			})
			w.mu.Unlock()

			if err := w.watchTree(folder.Path); err != nil {
				w.log.Err(err).Warn("failed to watch library folder", logger.Data{
					"library_folder_id": folder.ID,
					"path":              folder.Path,
				})
			}
		}
	}

	w.started = true
	go w.loop()
	return nil
}

func (w *Watcher) Close() error {
	if !w.started {
		return errors.WithStack(w.fs.Close())
	}
	close(w.shutdown)
	<-w.done
	return errors.WithStack(w.fs.Close())
}

// watchTree adds watches for dir and every non-hidden subdirectory. fsnotify
// watches are not recursive.
func (w *Watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.WithStack(err)
		}
		if !d.IsDir() {
			return nil
		}
		if p != dir && strings.HasPrefix(filepath.Base(p), ".") {
			return filepath.SkipDir
		}
		return errors.WithStack(w.fs.Add(p))
	})
}

func (w *Watcher) loop() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdown:
			w.done <- struct{}{}
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				w.done <- struct{}{}
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				w.done <- struct{}{}
				return
			}
			w.log.Err(err).Warn("watch error")
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op == fsnotify.Chmod {
		return
	}

	root := w.rootFor(event.Name)
	if root == nil {
		return
	}
	rel, err := filepath.Rel(root.path, event.Name)
	if err != nil || rel == "." {
		return
	}
	rel = filepath.ToSlash(rel)
	if mediafile.HasHiddenSegment(rel) {
		return
	}

	// New directories need their own watches.
	if event.Op.Has(fsnotify.Create) {
		if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
			if err := w.watchTree(event.Name); err != nil {
				w.log.Err(err).Warn("failed to watch new directory", logger.Data{"path": event.Name})
			}
		}
	}

	// The first path segment under the folder root is the item boundary.
	itemRel := rel
	if idx := strings.Index(rel, "/"); idx >= 0 {
		itemRel = rel[:idx]
	}
	itemPath := filepath.ToSlash(filepath.Join(root.path, itemRel))

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[itemPath] = &pendingRescan{
		libraryID: root.libraryID,
		itemPath:  itemPath,
		lastEvent: time.Now(),
	}
}

func (w *Watcher) rootFor(path string) *watchRoot {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i := range w.roots {
		if path == w.roots[i].path || strings.HasPrefix(path, w.roots[i].path+string(filepath.Separator)) {
			return &w.roots[i]
		}
	}
	return nil
}

// flush enqueues a job for every pending rescan whose burst has quieted
// down.
func (w *Watcher) flush() {
	now := time.Now()

	w.mu.Lock()
	var due []*pendingRescan
	for key, p := range w.pending {
		if now.Sub(p.lastEvent) >= w.debounceInterval {
			due = append(due, p)
			delete(w.pending, key)
		}
	}
	w.mu.Unlock()

	for _, p := range due {
		w.enqueue(p)
	}
}

func (w *Watcher) enqueue(p *pendingRescan) {
	ctx := w.log.WithContext(context.Background())

	job := &models.Job{
		Status:    models.JobStatusPending,
		LibraryID: &p.libraryID,
	}

	_, err := w.itemService.RetrieveItem(ctx, items.RetrieveItemOptions{
		LibraryID: &p.libraryID,
		Path:      &p.itemPath,
	})
	switch {
	case err == nil:
		// Known item: a targeted rescan is enough.
		job.Type = models.JobTypeItemRescan
		job.DataParsed = &models.JobItemRescanData{Path: p.itemPath}
	case !errors.Is(err, errcodes.NotFound("Library item")):
		w.log.Err(err).Error("retrieve library item error", logger.Data{"path": p.itemPath})
		return
	default:
		// Unknown path, likely a brand new item. That takes a full scan,
		// but only one needs to be queued at a time.
		hasActive, aerr := w.jobService.HasActiveJob(ctx, models.JobTypeScan, &p.libraryID)
		if aerr != nil {
			w.log.Err(aerr).Error("check active scan error")
			return
		}
		if hasActive {
			return
		}
		job.Type = models.JobTypeScan
		job.DataParsed = &models.JobScanData{}
	}

	if err := w.jobService.CreateJob(ctx, job); err != nil {
		w.log.Err(err).Error("enqueue rescan job error", logger.Data{
			"library_id": p.libraryID,
			"path":       p.itemPath,
		})
		return
	}
	w.log.Info("enqueued rescan job", logger.Data{
		"job_id":     job.ID,
		"type":       job.Type,
		"library_id": p.libraryID,
		"path":       p.itemPath,
	})
}
