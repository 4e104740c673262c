package items

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/hondanabooks/hondana/pkg/migrations"
	"github.com/hondanabooks/hondana/pkg/models"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	models.RegisterModels(db)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func setupTestLibrary(t *testing.T, db *bun.DB) *models.Library {
	t.Helper()
	ctx := context.Background()

	library := &models.Library{Name: "Audiobooks", MediaKind: models.MediaKindBook}
	_, err := db.NewInsert().Model(library).Exec(ctx)
	require.NoError(t, err)

	folder := &models.LibraryFolder{LibraryID: library.ID, Path: "/library"}
	_, err = db.NewInsert().Model(folder).Exec(ctx)
	require.NoError(t, err)

	library.Folders = []*models.LibraryFolder{folder}
	return library
}

func testItem(library *models.Library, relPath string, ino uint64) *models.LibraryItem {
	return &models.LibraryItem{
		LibraryID:       library.ID,
		LibraryFolderID: library.Folders[0].ID,
		Path:            "/library/" + relPath,
		RelPath:         relPath,
		Ino:             ino,
		DeviceID:        64769,
		MediaKind:       models.MediaKindBook,
		MTime:           time.Now(),
		Files: []*models.LibraryFile{
			{
				Ino:      ino + 1,
				DeviceID: 64769,
				Path:     "/library/" + relPath + "/book.m4b",
				RelPath:  relPath + "/book.m4b",
				Filename: "book.m4b",
				Ext:      ".m4b",
				Size:     1000,
			},
		},
	}
}

func TestCreateAndRetrieveItem(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	library := setupTestLibrary(t, db)
	item := testItem(library, "Andy Weir/The Martian", 100)
	item.Book = &models.Book{
		Title:     "The Martian",
		SortTitle: "Martian, The",
		Authors:   []*models.Author{{Name: "Andy Weir"}},
	}

	require.NoError(t, svc.CreateItem(ctx, item))
	require.NotEmpty(t, item.ID)

	got, err := svc.RetrieveItem(ctx, RetrieveItemOptions{
		LibraryID: &library.ID,
		Path:      pointerutil.String("/library/Andy Weir/The Martian"),
	})
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)
	require.Len(t, got.Files, 1)
	assert.Equal(t, "book.m4b", got.Files[0].Filename)
	require.NotNil(t, got.Book)
	assert.Equal(t, "The Martian", got.Book.Title)
	require.Len(t, got.Book.Authors, 1)
	assert.Equal(t, "Andy Weir", got.Book.Authors[0].Name)
}

func TestRetrieveItemByIdentity(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	library := setupTestLibrary(t, db)
	item := testItem(library, "Old Name", 42)
	require.NoError(t, svc.CreateItem(ctx, item))

	ino := uint64(42)
	device := uint64(64769)
	got, err := svc.RetrieveItem(ctx, RetrieveItemOptions{
		LibraryID: &library.ID,
		Ino:       &ino,
		DeviceID:  &device,
	})
	require.NoError(t, err)
	assert.Equal(t, item.ID, got.ID)

	// Same inode on a different device is a different file.
	otherDevice := uint64(7)
	_, err = svc.RetrieveItem(ctx, RetrieveItemOptions{
		LibraryID: &library.ID,
		Ino:       &ino,
		DeviceID:  &otherDevice,
	})
	assert.Error(t, err)
}

func TestReplaceFiles(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	library := setupTestLibrary(t, db)
	item := testItem(library, "Some Book", 10)
	require.NoError(t, svc.CreateItem(ctx, item))

	// Drop the original file, add a new one.
	item.Files = []*models.LibraryFile{
		{
			Ino:      99,
			DeviceID: 64769,
			Path:     "/library/Some Book/part2.mp3",
			RelPath:  "Some Book/part2.mp3",
			Filename: "part2.mp3",
			Ext:      ".mp3",
			Size:     500,
		},
	}
	require.NoError(t, svc.ReplaceFiles(ctx, item))

	got, err := svc.RetrieveItem(ctx, RetrieveItemOptions{ID: &item.ID})
	require.NoError(t, err)
	require.Len(t, got.Files, 1)
	assert.Equal(t, "part2.mp3", got.Files[0].Filename)
}

func TestMarkItemsMissingIsIdempotent(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	library := setupTestLibrary(t, db)
	item := testItem(library, "Gone Book", 20)
	require.NoError(t, svc.CreateItem(ctx, item))

	flagged, err := svc.MarkItemsMissing(ctx, []string{item.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{item.ID}, flagged)

	// Second pass flags nothing; the transition already happened.
	flagged, err = svc.MarkItemsMissing(ctx, []string{item.ID})
	require.NoError(t, err)
	assert.Empty(t, flagged)
}

func TestSaveBookResolvesAuthorsCaseSensitively(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	library := setupTestLibrary(t, db)

	first := testItem(library, "Book One", 30)
	first.Book = &models.Book{
		Title:     "Book One",
		SortTitle: "Book One",
		Authors:   []*models.Author{{Name: "Ursula K. Le Guin"}},
	}
	require.NoError(t, svc.CreateItem(ctx, first))

	second := testItem(library, "Book Two", 40)
	second.Book = &models.Book{
		Title:     "Book Two",
		SortTitle: "Book Two",
		Authors:   []*models.Author{{Name: "Ursula K. Le Guin"}},
	}
	require.NoError(t, svc.CreateItem(ctx, second))

	// Exact name matches share the entity.
	assert.Equal(t, first.Book.Authors[0].ID, second.Book.Authors[0].ID)

	// A case-differing name is a new entity, not a match.
	third := testItem(library, "Book Three", 50)
	third.Book = &models.Book{
		Title:     "Book Three",
		SortTitle: "Book Three",
		Authors:   []*models.Author{{Name: "ursula k. le guin"}},
	}
	require.NoError(t, svc.CreateItem(ctx, third))
	assert.NotEqual(t, first.Book.Authors[0].ID, third.Book.Authors[0].ID)
}

func TestSaveBookDetachesRemovedSeries(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	library := setupTestLibrary(t, db)
	item := testItem(library, "Serial Book", 60)
	item.Book = &models.Book{
		Title:     "Serial Book",
		SortTitle: "Serial Book",
		Series: []*models.BookSeries{
			{Series: &models.Series{Name: "First Series"}, Sequence: pointerutil.String("1")},
		},
	}
	require.NoError(t, svc.CreateItem(ctx, item))

	item.Book.Series = []*models.BookSeries{
		{Series: &models.Series{Name: "Second Series"}},
	}
	require.NoError(t, svc.SaveBook(ctx, library.ID, item.Book))

	got, err := svc.RetrieveItem(ctx, RetrieveItemOptions{ID: &item.ID})
	require.NoError(t, err)
	require.Len(t, got.Book.Series, 1)
	assert.Equal(t, "Second Series", got.Book.Series[0].Series.Name)

	// The detached series entity still exists; cleanup is separate.
	count, err := db.NewSelect().Model((*models.Series)(nil)).Where("name = ?", "First Series").Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestCleanupOrphans(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	library := setupTestLibrary(t, db)
	now := time.Now()

	plain := &models.Author{LibraryID: library.ID, Name: "No Books", SortName: "No Books", CreatedAt: now, UpdatedAt: now}
	withIdentity := &models.Author{
		LibraryID:   library.ID,
		Name:        "Has Description",
		SortName:    "Has Description",
		Description: pointerutil.String("wrote many things"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, a := range []*models.Author{plain, withIdentity} {
		_, err := db.NewInsert().Model(a).Exec(ctx)
		require.NoError(t, err)
	}

	orphanSeries := &models.Series{LibraryID: library.ID, Name: "Dead Series", CreatedAt: now, UpdatedAt: now}
	_, err := db.NewInsert().Model(orphanSeries).Exec(ctx)
	require.NoError(t, err)

	authorsDeleted, seriesDeleted, err := svc.CleanupOrphans(ctx, library.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, authorsDeleted)
	assert.Equal(t, 1, seriesDeleted)

	count, err := db.NewSelect().Model((*models.Author)(nil)).Where("library_id = ?", library.ID).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var remaining models.Author
	require.NoError(t, db.NewSelect().Model(&remaining).Where("library_id = ?", library.ID).Scan(ctx))
	assert.Equal(t, "Has Description", remaining.Name)
}

func TestItemTimestampsRoundTrip(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	library := setupTestLibrary(t, db)
	item := testItem(library, "Timestamped Book", 30)
	mtime := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ctime := mtime.Add(time.Minute)
	item.MTime = mtime
	item.CTime = ctime
	item.Files[0].MTimeMs = mtime.UnixMilli()
	item.Files[0].CTimeMs = ctime.UnixMilli()
	require.NoError(t, svc.CreateItem(ctx, item))

	got, err := svc.RetrieveItem(ctx, RetrieveItemOptions{ID: &item.ID})
	require.NoError(t, err)
	assert.True(t, got.MTime.Equal(mtime))
	assert.True(t, got.CTime.Equal(ctime))
	require.Len(t, got.Files, 1)
	assert.Equal(t, mtime.UnixMilli(), got.Files[0].MTimeMs)
	assert.Equal(t, ctime.UnixMilli(), got.Files[0].CTimeMs)

	// Reconciliation updates these columns by name.
	later := mtime.Add(time.Hour)
	got.MTime = later
	got.CTime = later
	require.NoError(t, svc.UpdateItem(ctx, got, "mtime", "ctime"))

	got, err = svc.RetrieveItem(ctx, RetrieveItemOptions{ID: &item.ID})
	require.NoError(t, err)
	assert.True(t, got.MTime.Equal(later))
	assert.True(t, got.CTime.Equal(later))
}

func TestSavePodcastRoundTrips(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db)

	library := setupTestLibrary(t, db)
	item := testItem(library, "Some Feed", 50)
	item.MediaKind = models.MediaKindPodcast
	require.NoError(t, svc.CreateItem(ctx, item))

	podcast := &models.Podcast{
		LibraryItemID: item.ID,
		Title:         "Some Feed",
		SortTitle:     "Some Feed",
		FeedURL:       pointerutil.String("https://example.com/feed.xml"),
		ITunesID:      pointerutil.String("id123456"),
	}
	require.NoError(t, svc.SavePodcast(ctx, podcast))

	got, err := svc.RetrieveItem(ctx, RetrieveItemOptions{ID: &item.ID})
	require.NoError(t, err)
	require.NotNil(t, got.Podcast)
	require.NotNil(t, got.Podcast.FeedURL)
	assert.Equal(t, "https://example.com/feed.xml", *got.Podcast.FeedURL)
	require.NotNil(t, got.Podcast.ITunesID)
	assert.Equal(t, "id123456", *got.Podcast.ITunesID)
}
