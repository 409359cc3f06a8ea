package worker

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/foliarr/foliarr/pkg/activities"
	"github.com/foliarr/foliarr/pkg/config"
	"github.com/foliarr/foliarr/pkg/migrations"
	"github.com/foliarr/foliarr/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func taskConfigService(t *testing.T) (*config.Service, *config.UserConfig) {
	t.Helper()
	userConfig, err := config.DefaultUserConfig()
	require.NoError(t, err)
	userConfig.AudioPath = t.TempDir()
	userConfig.BookPath = t.TempDir()
	return config.NewService(&config.Config{UserConfig: userConfig}), userConfig
}

func seedBook(t *testing.T, db *bun.DB, name string, audioLoc *string) *models.Book {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	author := &models.Author{Key: models.NewKey(), CreatedAt: now, UpdatedAt: now, Name: "Derek Landy"}
	_, err := db.NewInsert().Model(author).Exec(ctx)
	require.NoError(t, err)

	book := &models.Book{
		Key:       models.NewKey(),
		CreatedAt: now,
		UpdatedAt: now,
		Name:      name,
		AuthorKey: author.Key,
		AudioLoc:  audioLoc,
	}
	_, err = db.NewInsert().Model(book).Exec(ctx)
	require.NoError(t, err)

	return book
}

func TestRescanPrunesMissingLocation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	activityService := activities.NewService(db)

	gone := filepath.Join(t.TempDir(), "gone")
	book := seedBook(t, db, "Bar", &gone)

	activity := &models.Activity{
		ReleaseTitle: "Bar",
		BookKey:      book.Key,
		Audio:        true,
		Status:       models.ActivityStatusImported,
	}
	require.NoError(t, activityService.CreateActivity(ctx, activity))

	require.NoError(t, NewRescan(db, activityService).Run(ctx))

	fresh := &models.Book{}
	require.NoError(t, db.NewSelect().Model(fresh).Where("b.key = ?", book.Key).Scan(ctx))
	assert.Nil(t, fresh.AudioLoc)

	got, err := activityService.RetrieveActivity(ctx, activities.RetrieveActivityOptions{ID: &activity.ID})
	require.NoError(t, err)
	assert.Equal(t, models.ActivityStatusDeleted, got.Status)
}

func TestRescanKeepsExistingLocation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	activityService := activities.NewService(db)

	loc := t.TempDir()
	book := seedBook(t, db, "Bar", &loc)

	require.NoError(t, NewRescan(db, activityService).Run(ctx))

	fresh := &models.Book{}
	require.NoError(t, db.NewSelect().Model(fresh).Where("b.key = ?", book.Key).Scan(ctx))
	require.NotNil(t, fresh.AudioLoc)
	assert.Equal(t, loc, *fresh.AudioLoc)
}

func TestReimportClaimsCloseMatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	configService, userConfig := taskConfigService(t)
	activityService := activities.NewService(db)

	book := seedBook(t, db, "The Great Book!", nil)

	// Close enough to claim.
	candidate := filepath.Join(userConfig.AudioPath, "The Great Book")
	require.NoError(t, os.MkdirAll(candidate, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(candidate, "part1.mp3"), []byte("audio"), 0o644))

	require.NoError(t, NewReimport(db, configService, activityService).Run(ctx))

	fresh := &models.Book{}
	require.NoError(t, db.NewSelect().Model(fresh).Where("b.key = ?", book.Key).Scan(ctx))
	require.NotNil(t, fresh.AudioLoc)
	assert.Equal(t, candidate, *fresh.AudioLoc)

	got, err := activityService.RetrieveActivity(ctx, activities.RetrieveActivityOptions{
		ImportedForSlot: &activities.Slot{BookKey: book.Key, Audio: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "The Great Book", got.ReleaseTitle)
}

func TestReimportStripsOrdinalFromLeaf(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	configService, userConfig := taskConfigService(t)
	activityService := activities.NewService(db)

	book := seedBook(t, db, "Auferstehung der Toten", nil)

	// The volume token would drag the raw score below the threshold.
	candidate := filepath.Join(userConfig.AudioPath, "Band 3 Auferstehung")
	require.NoError(t, os.MkdirAll(candidate, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(candidate, "part1.mp3"), []byte("audio"), 0o644))

	require.NoError(t, NewReimport(db, configService, activityService).Run(ctx))

	fresh := &models.Book{}
	require.NoError(t, db.NewSelect().Model(fresh).Where("b.key = ?", book.Key).Scan(ctx))
	require.NotNil(t, fresh.AudioLoc)
	assert.Equal(t, candidate, *fresh.AudioLoc)

	got, err := activityService.RetrieveActivity(ctx, activities.RetrieveActivityOptions{
		ImportedForSlot: &activities.Slot{BookKey: book.Key, Audio: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "Band 3 Auferstehung", got.ReleaseTitle)
}

func TestReimportRejectsWeakMatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	configService, userConfig := taskConfigService(t)
	activityService := activities.NewService(db)

	book := seedBook(t, db, "The Great Book!", nil)

	candidate := filepath.Join(userConfig.AudioPath, "The Great Pumpkin")
	require.NoError(t, os.MkdirAll(candidate, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(candidate, "part1.mp3"), []byte("audio"), 0o644))

	require.NoError(t, NewReimport(db, configService, activityService).Run(ctx))

	fresh := &models.Book{}
	require.NoError(t, db.NewSelect().Model(fresh).Where("b.key = ?", book.Key).Scan(ctx))
	assert.Nil(t, fresh.AudioLoc)
}

func TestReimportSkipsBlockedAndRecordedPath(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	configService, userConfig := taskConfigService(t)
	activityService := activities.NewService(db)

	candidate := filepath.Join(userConfig.AudioPath, "The Great Book")
	require.NoError(t, os.MkdirAll(candidate, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(candidate, "part1.mp3"), []byte("audio"), 0o644))

	// Already recorded at exactly this path; no new synthetic activity.
	seedBook(t, db, "The Great Book!", &candidate)

	blocked := seedBook(t, db, "The Great Book", nil)
	blocked.Blocked = true
	_, err := db.NewUpdate().Model(blocked).Column("blocked").WherePK().Exec(ctx)
	require.NoError(t, err)

	require.NoError(t, NewReimport(db, configService, activityService).Run(ctx))

	count, err := db.NewSelect().Model((*models.Activity)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	fresh := &models.Book{}
	require.NoError(t, db.NewSelect().Model(fresh).Where("b.key = ?", blocked.Key).Scan(ctx))
	assert.Nil(t, fresh.AudioLoc)
}
