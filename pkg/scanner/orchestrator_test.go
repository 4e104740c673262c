package scanner

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/hondanabooks/hondana/pkg/absmeta"
	"github.com/hondanabooks/hondana/pkg/audio"
	"github.com/hondanabooks/hondana/pkg/ebook"
	"github.com/hondanabooks/hondana/pkg/events"
	"github.com/hondanabooks/hondana/pkg/items"
	"github.com/hondanabooks/hondana/pkg/metadata"
	"github.com/hondanabooks/hondana/pkg/migrations"
	"github.com/hondanabooks/hondana/pkg/models"
)

type recordingSink struct {
	events []events.Event
}

func (s *recordingSink) Emit(name string, payload any) {
	s.events = append(s.events, events.Event{Name: name, Payload: payload})
}

func (s *recordingSink) names() []string {
	names := make([]string, 0, len(s.events))
	for _, e := range s.events {
		names = append(names, e.Name)
	}
	return names
}

func setupOrchestrator(t *testing.T, mediaKind string) (*Orchestrator, *items.Service, *models.Library, *recordingSink) {
	t.Helper()
	ctx := context.Background()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	models.RegisterModels(db)
	_, err = migrations.BringUpToDate(ctx, db)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	library := &models.Library{Name: "Test", MediaKind: mediaKind}
	_, err = db.NewInsert().Model(library).Exec(ctx)
	require.NoError(t, err)
	folder := &models.LibraryFolder{LibraryID: library.ID, Path: t.TempDir()}
	_, err = db.NewInsert().Model(folder).Exec(ctx)
	require.NoError(t, err)
	library.Folders = []*models.LibraryFolder{folder}

	fakeProbe := func(path string) (*audio.Metadata, error) {
		return &audio.Metadata{Duration: 30 * time.Minute}, nil
	}
	fakeEbook := func(path string) (*ebook.Metadata, error) {
		return nil, nil
	}

	svc := items.NewService(db)
	sink := &recordingSink{}
	o := NewOrchestrator(OrchestratorOptions{
		Items:      svc,
		Pipeline:   metadata.NewPipeline(metadata.Adapters{ProbeAudio: fakeProbe, ParseEbook: fakeEbook}),
		Sink:       sink,
		ProbeAudio: fakeProbe,
	})
	return o, svc, library, sink
}

func writeLibraryFile(t *testing.T, root, relPath string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte("test data"), 0o644))
}

func TestScanCreatesBookItems(t *testing.T) {
	t.Parallel()

	o, svc, library, sink := setupOrchestrator(t, models.MediaKindBook)
	root := library.Folders[0].Path
	writeLibraryFile(t, root, "Brandon Sanderson/Mistborn/01.mp3")
	writeLibraryFile(t, root, "Brandon Sanderson/Mistborn/02.mp3")
	writeLibraryFile(t, root, "Brandon Sanderson/Mistborn/cover.jpg")
	writeLibraryFile(t, root, "Standalone.m4b")
	// No media files, so no item.
	writeLibraryFile(t, root, "Notes/notes.txt")

	summary, err := o.Scan(context.Background(), library)
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, summary.State)
	assert.Len(t, summary.ItemsAdded, 2)
	assert.Empty(t, summary.ItemsUpdated)
	assert.Empty(t, summary.ItemsMissing)

	listed, err := svc.ListItems(context.Background(), items.ListItemsOptions{LibraryID: &library.ID})
	require.NoError(t, err)
	require.Len(t, listed, 2)

	mistborn := listed[0]
	assert.Equal(t, "Brandon Sanderson/Mistborn", mistborn.RelPath)
	assert.False(t, mistborn.IsFile)
	assert.Len(t, mistborn.Files, 3)
	require.NotNil(t, mistborn.Book)
	assert.Equal(t, "Mistborn", mistborn.Book.Title)
	assert.Equal(t, []string{"Brandon Sanderson"}, mistborn.Book.AuthorNames())
	require.NotNil(t, mistborn.Book.CoverPath)
	assert.Equal(t, "cover.jpg", filepath.Base(*mistborn.Book.CoverPath))

	standalone := listed[1]
	assert.True(t, standalone.IsFile)
	require.NotNil(t, standalone.Book)
	assert.Equal(t, "Standalone", standalone.Book.Title)

	names := sink.names()
	assert.Contains(t, names, events.ScanStarted)
	assert.Contains(t, names, events.ItemsAdded)
	assert.Contains(t, names, events.ScanCompleted)
}

func TestScanIsIdempotent(t *testing.T) {
	t.Parallel()

	o, _, library, _ := setupOrchestrator(t, models.MediaKindBook)
	root := library.Folders[0].Path
	writeLibraryFile(t, root, "Author Name/Some Book/book.m4b")

	first, err := o.Scan(context.Background(), library)
	require.NoError(t, err)
	require.Len(t, first.ItemsAdded, 1)

	second, err := o.Scan(context.Background(), library)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, second.State)
	assert.Empty(t, second.ItemsAdded)
	assert.Empty(t, second.ItemsUpdated)
	assert.Empty(t, second.ItemsMissing)
}

func TestScanFlagsMissingOnceAndClearsOnReturn(t *testing.T) {
	t.Parallel()

	o, svc, library, _ := setupOrchestrator(t, models.MediaKindBook)
	root := library.Folders[0].Path
	writeLibraryFile(t, root, "Gone Soon/book.m4b")

	first, err := o.Scan(context.Background(), library)
	require.NoError(t, err)
	require.Len(t, first.ItemsAdded, 1)
	itemID := first.ItemsAdded[0]

	require.NoError(t, os.RemoveAll(filepath.Join(root, "Gone Soon")))

	second, err := o.Scan(context.Background(), library)
	require.NoError(t, err)
	assert.Equal(t, []string{itemID}, second.ItemsMissing)

	// Already flagged, so a repeat scan reports nothing new.
	third, err := o.Scan(context.Background(), library)
	require.NoError(t, err)
	assert.Empty(t, third.ItemsMissing)

	writeLibraryFile(t, root, "Gone Soon/book.m4b")

	fourth, err := o.Scan(context.Background(), library)
	require.NoError(t, err)
	assert.Empty(t, fourth.ItemsAdded)
	assert.Contains(t, fourth.ItemsUpdated, itemID)

	item, err := svc.RetrieveItem(context.Background(), items.RetrieveItemOptions{ID: &itemID})
	require.NoError(t, err)
	assert.False(t, item.IsMissing)
}

func TestScanRenamedFolderKeepsItem(t *testing.T) {
	t.Parallel()

	o, svc, library, _ := setupOrchestrator(t, models.MediaKindBook)
	root := library.Folders[0].Path
	writeLibraryFile(t, root, "Old Title/book.m4b")

	first, err := o.Scan(context.Background(), library)
	require.NoError(t, err)
	require.Len(t, first.ItemsAdded, 1)
	itemID := first.ItemsAdded[0]

	require.NoError(t, os.Rename(filepath.Join(root, "Old Title"), filepath.Join(root, "New Title")))

	second, err := o.Scan(context.Background(), library)
	require.NoError(t, err)
	assert.Empty(t, second.ItemsAdded)
	assert.Empty(t, second.ItemsMissing)
	assert.Equal(t, []string{itemID}, second.ItemsUpdated)

	item, err := svc.RetrieveItem(context.Background(), items.RetrieveItemOptions{ID: &itemID})
	require.NoError(t, err)
	assert.Equal(t, "New Title", item.RelPath)
	require.NotNil(t, item.Book)
	assert.Equal(t, "New Title", item.Book.Title)
}

func TestScanPodcastEmptyFolderNotMissing(t *testing.T) {
	t.Parallel()

	o, svc, library, _ := setupOrchestrator(t, models.MediaKindPodcast)
	root := library.Folders[0].Path
	writeLibraryFile(t, root, "My Show/episode-1.mp3")

	first, err := o.Scan(context.Background(), library)
	require.NoError(t, err)
	require.Len(t, first.ItemsAdded, 1)
	itemID := first.ItemsAdded[0]

	item, err := svc.RetrieveItem(context.Background(), items.RetrieveItemOptions{ID: &itemID})
	require.NoError(t, err)
	require.NotNil(t, item.Podcast)
	assert.Equal(t, "My Show", item.Podcast.Title)
	require.Len(t, item.Podcast.Episodes, 1)
	assert.Equal(t, "episode-1", item.Podcast.Episodes[0].Title)

	// All episodes deleted but the folder remains: the show is empty, not
	// missing.
	require.NoError(t, os.Remove(filepath.Join(root, "My Show", "episode-1.mp3")))

	second, err := o.Scan(context.Background(), library)
	require.NoError(t, err)
	assert.Empty(t, second.ItemsMissing)

	require.NoError(t, os.RemoveAll(filepath.Join(root, "My Show")))

	third, err := o.Scan(context.Background(), library)
	require.NoError(t, err)
	assert.Equal(t, []string{itemID}, third.ItemsMissing)
}

func TestScanCancellation(t *testing.T) {
	t.Parallel()

	o, _, library, sink := setupOrchestrator(t, models.MediaKindBook)
	writeLibraryFile(t, library.Folders[0].Path, "Book/book.m4b")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := o.Scan(ctx, library)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateCanceled, summary.State)
	assert.Contains(t, sink.names(), events.ScanCanceled)
	assert.NotContains(t, sink.names(), events.ScanCompleted)
}

func TestScanRejectsConcurrentScan(t *testing.T) {
	t.Parallel()

	o, _, library, _ := setupOrchestrator(t, models.MediaKindBook)
	require.True(t, o.locks.tryLock(library.ID))
	defer o.locks.unlock(library.ID)

	_, err := o.Scan(context.Background(), library)
	require.Error(t, err)
	assert.EqualError(t, err, "Library 1 is already being scanned.")
}

func TestScanStoresSidecarWhenEnabled(t *testing.T) {
	t.Parallel()

	o, _, library, _ := setupOrchestrator(t, models.MediaKindBook)
	o.settings.StoreMetadataWithItem = true
	root := library.Folders[0].Path
	writeLibraryFile(t, root, "Brandon Sanderson/Mistborn/01.mp3")
	writeLibraryFile(t, root, "Standalone.m4b")

	_, err := o.Scan(context.Background(), library)
	require.NoError(t, err)

	meta, err := absmeta.ParseJSONFile(filepath.Join(root, "Brandon Sanderson", "Mistborn", "metadata.json"))
	require.NoError(t, err)
	assert.Equal(t, "Mistborn", meta.Title)
	assert.Equal(t, []string{"Brandon Sanderson"}, meta.Authors)

	// Single-file items have no folder of their own, so no sidecar.
	_, err = os.Stat(filepath.Join(root, "Standalone.m4b.metadata.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestScanAppliesSeriesSequence(t *testing.T) {
	t.Parallel()

	o, svc, library, _ := setupOrchestrator(t, models.MediaKindBook)
	root := library.Folders[0].Path
	writeLibraryFile(t, root, "Mistborn/01.mp3")
	sidecarPath := filepath.Join(root, "Mistborn", "metadata.json")
	require.NoError(t, os.WriteFile(sidecarPath, []byte(`{"title":"Mistborn","series":["Mistborn #1"]}`), 0o644))

	_, err := o.Scan(context.Background(), library)
	require.NoError(t, err)

	listed, err := svc.ListItems(context.Background(), items.ListItemsOptions{LibraryID: &library.ID})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	book := listed[0].Book
	require.NotNil(t, book)
	require.Len(t, book.Series, 1)
	require.NotNil(t, book.Series[0].Series)
	assert.Equal(t, "Mistborn", book.Series[0].Series.Name)
	require.NotNil(t, book.Series[0].Sequence)
	assert.Equal(t, "1", *book.Series[0].Sequence)

	// A second scan sees the same sequence and leaves the item untouched.
	summary, err := o.Scan(context.Background(), library)
	require.NoError(t, err)
	assert.Empty(t, summary.ItemsUpdated)
}

func TestSameSeriesComparesSequences(t *testing.T) {
	t.Parallel()

	sequenced := []*models.BookSeries{{Series: &models.Series{Name: "Mistborn"}, Sequence: pointerutil.String("1")}}
	assert.True(t, sameSeries(sequenced, []absmeta.SeriesRef{{Name: "Mistborn", Sequence: "1"}}))
	assert.False(t, sameSeries(sequenced, []absmeta.SeriesRef{{Name: "Mistborn", Sequence: "2"}}))
	assert.False(t, sameSeries(sequenced, []absmeta.SeriesRef{{Name: "Mistborn"}}))

	unsequenced := []*models.BookSeries{{Series: &models.Series{Name: "Mistborn"}}}
	assert.True(t, sameSeries(unsequenced, []absmeta.SeriesRef{{Name: "Mistborn"}}))
	assert.False(t, sameSeries(unsequenced, []absmeta.SeriesRef{{Name: "Mistborn", Sequence: "1"}}))
}

func TestScanSkipsUnstatableMemberFile(t *testing.T) {
	t.Parallel()

	o, svc, library, _ := setupOrchestrator(t, models.MediaKindBook)
	root := library.Folders[0].Path
	writeLibraryFile(t, root, "Book One/01.mp3")

	summary, err := o.Scan(context.Background(), library)
	require.NoError(t, err)
	require.Len(t, summary.ItemsAdded, 1)

	// A dangling symlink survives the walk but fails the stat.
	require.NoError(t, os.Symlink(
		filepath.Join(root, "Book One", "gone.mp3"),
		filepath.Join(root, "Book One", "bonus.mp3"),
	))

	summary, err = o.Scan(context.Background(), library)
	require.NoError(t, err)
	assert.Empty(t, summary.ItemsMissing)

	listed, err := svc.ListItems(context.Background(), items.ListItemsOptions{LibraryID: &library.ID})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.False(t, listed[0].IsMissing)
	require.Len(t, listed[0].Files, 1)
	assert.Equal(t, "01.mp3", listed[0].Files[0].Filename)
}

func TestScanSkipsFolderWithRootIgnoreFile(t *testing.T) {
	t.Parallel()

	o, svc, library, _ := setupOrchestrator(t, models.MediaKindBook)
	root := library.Folders[0].Path
	writeLibraryFile(t, root, "Book One/01.mp3")
	writeLibraryFile(t, root, ".ignore")

	summary, err := o.Scan(context.Background(), library)
	require.NoError(t, err)
	assert.Empty(t, summary.ItemsAdded)

	listed, err := svc.ListItems(context.Background(), items.ListItemsOptions{LibraryID: &library.ID})
	require.NoError(t, err)
	assert.Empty(t, listed)
}
