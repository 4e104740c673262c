package libraries

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

	"github.com/hondanabooks/hondana/pkg/errcodes"
	"github.com/hondanabooks/hondana/pkg/migrations"
	"github.com/hondanabooks/hondana/pkg/models"
)

func newTestDB(t *testing.T) *bun.DB {
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

func TestCreateAndRetrieveLibrary(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))
	ctx := context.Background()

	library := &models.Library{
		Name:      "Audiobooks",
		MediaKind: models.MediaKindBook,
		Folders: []*models.LibraryFolder{
			{Path: "/data/audiobooks"},
			{Path: "/data/more-audiobooks"},
		},
	}
	require.NoError(t, svc.CreateLibrary(ctx, library))
	require.NotZero(t, library.ID)

	found, err := svc.RetrieveLibrary(ctx, RetrieveLibraryOptions{ID: &library.ID})
	require.NoError(t, err)
	assert.Equal(t, "Audiobooks", found.Name)
	require.Len(t, found.Folders, 2)
	assert.Equal(t, "/data/audiobooks", found.Folders[0].Path)

	_, err = svc.RetrieveLibrary(ctx, RetrieveLibraryOptions{ID: pointerutil.Int(999)})
	assert.EqualError(t, err, errcodes.NotFound("Library").Error())
}

func TestUpdateLibraryReplacesFolders(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))
	ctx := context.Background()

	library := &models.Library{
		Name:      "Podcasts",
		MediaKind: models.MediaKindPodcast,
		Folders:   []*models.LibraryFolder{{Path: "/data/podcasts"}},
	}
	require.NoError(t, svc.CreateLibrary(ctx, library))

	library.Folders = []*models.LibraryFolder{
		{Path: "/mnt/podcasts"},
		{Path: "/mnt/shows"},
	}
	require.NoError(t, svc.UpdateLibrary(ctx, library, UpdateLibraryOptions{UpdateFolders: true}))

	found, err := svc.RetrieveLibrary(ctx, RetrieveLibraryOptions{ID: &library.ID})
	require.NoError(t, err)
	require.Len(t, found.Folders, 2)
	assert.Equal(t, "/mnt/podcasts", found.Folders[0].Path)
	assert.Equal(t, "/mnt/shows", found.Folders[1].Path)
}

func TestListLibrariesExcludesDeleted(t *testing.T) {
	t.Parallel()

	svc := NewService(newTestDB(t))
	ctx := context.Background()

	active := &models.Library{Name: "Active", MediaKind: models.MediaKindBook}
	require.NoError(t, svc.CreateLibrary(ctx, active))

	deleted := &models.Library{Name: "Deleted", MediaKind: models.MediaKindBook}
	require.NoError(t, svc.CreateLibrary(ctx, deleted))
	deleted.DeletedAt = pointerutil.Time(time.Now())
	require.NoError(t, svc.UpdateLibrary(ctx, deleted, UpdateLibraryOptions{Columns: []string{"deleted_at"}}))

	libraries, total, err := svc.ListLibrariesWithTotal(ctx, ListLibrariesOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, libraries, 1)
	assert.Equal(t, "Active", libraries[0].Name)

	all, err := svc.ListLibraries(ctx, ListLibrariesOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
