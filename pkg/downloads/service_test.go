package downloads

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/foliarr/foliarr/pkg/activities"
	"github.com/foliarr/foliarr/pkg/books"
	"github.com/foliarr/foliarr/pkg/config"
	"github.com/foliarr/foliarr/pkg/downloader"
	"github.com/foliarr/foliarr/pkg/importer"
	"github.com/foliarr/foliarr/pkg/indexer"
	"github.com/foliarr/foliarr/pkg/migrations"
	"github.com/foliarr/foliarr/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type stubIndexer struct {
	release *indexer.Release
	nzb     []byte
}

func (s *stubIndexer) QueryBook(_ context.Context, _ *models.Book, _ bool) (*indexer.Release, error) {
	return s.release, nil
}

func (s *stubIndexer) QueryManual(_ context.Context, _ *models.Book, _ int, _ bool) (*indexer.ManualPage, error) {
	return &indexer.ManualPage{}, nil
}

func (s *stubIndexer) Grab(_ context.Context, _ string) ([]byte, error) {
	return s.nzb, nil
}

type stubDownloader struct {
	nextID       string
	categoryDir  string
	history      map[string]downloader.Job
	queue        map[string]downloader.Job
	removedQueue []string
	removedHist  []string
	enqueued     []string
}

func (s *stubDownloader) Download(_ context.Context, _ []byte, name string) (string, error) {
	s.enqueued = append(s.enqueued, name)
	return s.nextID, nil
}

func (s *stubDownloader) Queue(_ context.Context) (map[string]downloader.Job, error) {
	return s.queue, nil
}

func (s *stubDownloader) History(_ context.Context) (map[string]downloader.Job, error) {
	return s.history, nil
}

func (s *stubDownloader) RemoveFromQueue(_ context.Context, id string) error {
	s.removedQueue = append(s.removedQueue, id)
	return nil
}

func (s *stubDownloader) RemoveFromHistory(_ context.Context, id string) error {
	s.removedHist = append(s.removedHist, id)
	return nil
}

func (s *stubDownloader) CategoryDir(_ context.Context) (string, error) {
	return s.categoryDir, nil
}

type fixture struct {
	db              *bun.DB
	userConfig      *config.UserConfig
	activityService *activities.Service
	svc             *Service
	idx             *stubIndexer
	dl              *stubDownloader
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = migrations.BringUpToDate(ctx, db)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	userConfig, err := config.DefaultUserConfig()
	require.NoError(t, err)
	userConfig.AudioPath = t.TempDir()
	userConfig.BookPath = t.TempDir()
	configService := config.NewService(&config.Config{UserConfig: userConfig})

	activityService := activities.NewService(db)
	bookService := books.NewService(db, configService)
	importService := importer.NewService(db, configService, activityService)

	idx := &stubIndexer{
		release: &indexer.Release{Name: "Derek Landy - Bar", GUID: "g1", Link: "http://indexer/get/g1"},
		nzb:     []byte("<nzb/>"),
	}
	dl := &stubDownloader{nextID: "job1", categoryDir: t.TempDir()}

	return &fixture{
		db:              db,
		userConfig:      userConfig,
		activityService: activityService,
		svc:             NewService(db, configService, activityService, bookService, importService, idx, dl),
		idx:             idx,
		dl:              dl,
	}
}

func seedBook(t *testing.T, db *bun.DB, name string) *models.Book {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	author := &models.Author{Key: models.NewKey(), CreatedAt: now, UpdatedAt: now, Name: "Derek Landy"}
	_, err := db.NewInsert().Model(author).Exec(ctx)
	require.NoError(t, err)

	book := &models.Book{Key: models.NewKey(), CreatedAt: now, UpdatedAt: now, Name: name, AuthorKey: author.Key}
	_, err = db.NewInsert().Model(book).Exec(ctx)
	require.NoError(t, err)

	book.Author = author
	return book
}

func TestDownloadBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setup(t)
	book := seedBook(t, f.db, "Bar")

	activity, err := f.svc.DownloadBook(ctx, book, true)
	require.NoError(t, err)

	assert.Equal(t, "job1", activity.ID)
	assert.Equal(t, "Derek Landy - Bar", activity.ReleaseTitle)
	assert.Equal(t, models.ActivityStatusDownload, activity.Status)
	assert.True(t, activity.Audio)
	assert.Equal(t, []string{"Derek Landy - Bar"}, f.dl.enqueued)
}

func TestDownloadBookBlocked(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setup(t)
	book := seedBook(t, f.db, "Bar")
	book.Blocked = true

	_, err := f.svc.DownloadBook(ctx, book, true)
	require.Error(t, err)
	assert.Empty(t, f.dl.enqueued)
}

func TestDownloadBookNoRelease(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setup(t)
	f.idx.release = nil
	book := seedBook(t, f.db, "Bar")

	_, err := f.svc.DownloadBook(ctx, book, true)
	require.Error(t, err)
}

func TestDownloadAuthorSkipsOwnedSlots(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setup(t)

	book := seedBook(t, f.db, "Bar")
	loc := "/media/audiobooks/done"
	owned := &models.Book{
		Key:       models.NewKey(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Name:      "Baz",
		AuthorKey: book.AuthorKey,
		AudioLoc:  &loc,
	}
	_, err := f.db.NewInsert().Model(owned).Exec(ctx)
	require.NoError(t, err)

	result, err := f.svc.DownloadAuthor(ctx, book.AuthorKey, true)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bar"}, result.Started)
	assert.Empty(t, result.NotFound)
	assert.Empty(t, result.Errors)
}

func TestCancelActivity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setup(t)
	book := seedBook(t, f.db, "Bar")

	activity, err := f.svc.DownloadBook(ctx, book, false)
	require.NoError(t, err)

	require.NoError(t, f.svc.CancelActivity(ctx, activity))
	assert.Equal(t, models.ActivityStatusCanceled, activity.Status)
	assert.Equal(t, []string{activity.ID}, f.dl.removedQueue)
}

func TestImportCompletedConsumesHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setup(t)
	book := seedBook(t, f.db, "Bar")

	activity, err := f.svc.DownloadBook(ctx, book, true)
	require.NoError(t, err)

	source := filepath.Join(f.dl.categoryDir, "Derek Landy - Bar")
	require.NoError(t, os.MkdirAll(source, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(source, "bar.m4b"), []byte("audio"), 0o644))

	f.dl.history = map[string]downloader.Job{
		activity.ID: {
			ID:          activity.ID,
			Name:        "Derek Landy - Bar",
			Status:      downloader.StatusCompleted,
			StoragePath: source,
		},
	}

	require.NoError(t, f.svc.ImportCompleted(ctx))

	_, err = os.Stat(filepath.Join(f.userConfig.AudioPath, "Derek Landy", "Bar", "bar.m4b"))
	assert.NoError(t, err)

	got, err := f.activityService.RetrieveActivity(ctx, activities.RetrieveActivityOptions{ID: &activity.ID})
	require.NoError(t, err)
	assert.Equal(t, models.ActivityStatusImported, got.Status)
	assert.Equal(t, []string{activity.ID}, f.dl.removedHist)
}

func TestImportCompletedFailedEntry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := setup(t)
	book := seedBook(t, f.db, "Bar")

	activity, err := f.svc.DownloadBook(ctx, book, true)
	require.NoError(t, err)

	f.dl.history = map[string]downloader.Job{
		activity.ID: {ID: activity.ID, Name: "Derek Landy - Bar", Status: downloader.StatusFailed},
	}

	require.NoError(t, f.svc.ImportCompleted(ctx))

	got, err := f.activityService.RetrieveActivity(ctx, activities.RetrieveActivityOptions{ID: &activity.ID})
	require.NoError(t, err)
	assert.Equal(t, models.ActivityStatusFailed, got.Status)
	assert.Equal(t, []string{activity.ID}, f.dl.removedHist)
}
