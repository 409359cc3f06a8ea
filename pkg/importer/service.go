// Package importer is the transactional file-placement engine. An import
// either fully replaces the destination with new content or restores the
// previous state exactly; a crash mid-move never makes the library worse
// than it was.
package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/foliarr/foliarr/pkg/activities"
	"github.com/foliarr/foliarr/pkg/config"
	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/foliarr/foliarr/pkg/fileutils"
	"github.com/foliarr/foliarr/pkg/models"
	"github.com/foliarr/foliarr/pkg/pathtmpl"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// ErrSameLocation is returned when the resolved destination equals the
// source. Retags treat it as "nothing to do"; everything else treats it as
// the degenerate self-move it is.
var ErrSameLocation = errors.New("source and destination are the same path")

// Params describes one import transaction. Activity is nil for retags.
type Params struct {
	Activity   *models.Activity
	Book       *models.Book
	Audio      bool
	SourcePath string
	// CategoryRoot is the shared completed-download directory. It is never
	// deleted, since sibling downloads may still be in flight inside it.
	CategoryRoot string
	// OverwriteAncestors updates the author/series location prefixes too.
	// Downloads request it; retags do not, since a retag moves one book's
	// files without relocating the whole series.
	OverwriteAncestors bool
}

type Service struct {
	db              *bun.DB
	configService   *config.Service
	activityService *activities.Service

	// moveFile is swappable so tests can force a failure mid-transaction.
	moveFile func(src, dst string) error
}

func NewService(db *bun.DB, configService *config.Service, activityService *activities.Service) *Service {
	return &Service{
		db:              db,
		configService:   configService,
		activityService: activityService,
		moveFile:        fileutils.MoveFile,
	}
}

// Import runs the transaction of placing downloaded content at its resolved
// destination. On any failure the previous destination content is restored
// and the driving activity is marked failed; the error is still returned so
// callers that are not job loops can surface it.
func (svc *Service) Import(ctx context.Context, p Params) error {
	log := logger.FromContext(ctx)
	cfg := svc.configService.UserConfig()

	info, err := os.Stat(p.SourcePath)
	if err != nil {
		return svc.fail(ctx, p, "", false, nil, errcodes.FileOperationFailure("source missing: "+err.Error()))
	}
	isFile := !info.IsDir()
	sourceDir := p.SourcePath
	if isFile {
		sourceDir = filepath.Dir(p.SourcePath)
	}

	if err := svc.loadRelations(ctx, p.Book); err != nil {
		return svc.fail(ctx, p, "", false, nil, err)
	}

	dest, resolved, root, err := svc.resolveDestination(&cfg, p.Book, p.Audio)
	if err != nil {
		return svc.fail(ctx, p, "", false, nil, err)
	}
	if isFile {
		dest += strings.ToLower(filepath.Ext(p.SourcePath))
	}
	if dest == filepath.Clean(p.SourcePath) {
		return ErrSameLocation
	}

	backupMade := false
	var overwritten *models.Activity

	if _, err := os.Stat(dest); err == nil {
		// Stale backups from an interrupted run would collide with ours.
		if err := fileutils.RemoveBackup(dest); err != nil {
			return svc.fail(ctx, p, dest, backupMade, overwritten, err)
		}
		backupMade, err = fileutils.BackupFile(dest)
		if err != nil {
			return svc.fail(ctx, p, dest, backupMade, overwritten, err)
		}
		overwritten, err = svc.activityService.OverwriteSlot(ctx, activities.Slot{BookKey: p.Book.Key, Audio: p.Audio})
		if err != nil {
			return svc.fail(ctx, p, dest, backupMade, overwritten, err)
		}
	}

	if err := svc.moveContent(ctx, p, isFile, sourceDir, dest, &cfg); err != nil {
		return svc.fail(ctx, p, dest, backupMade, overwritten, err)
	}

	if p.Audio && !isFile {
		svc.importDoubleRelease(ctx, p, sourceDir, &cfg)
	}

	svc.deleteSource(ctx, p, isFile, sourceDir, &cfg)

	if p.Activity != nil {
		if err := svc.activityService.Transition(ctx, p.Activity, models.ActivityStatusImported); err != nil {
			return svc.fail(ctx, p, dest, backupMade, overwritten, err)
		}
	}
	if err := svc.recordLocations(ctx, p, dest, resolved, root); err != nil {
		return svc.fail(ctx, p, dest, backupMade, overwritten, err)
	}

	if backupMade {
		if err := fileutils.RemoveBackup(dest); err != nil {
			log.Err(err).Error("remove import backup", logger.Data{"path": dest})
		}
	}

	log.Info("import complete", logger.Data{
		"book_key": p.Book.Key,
		"audio":    p.Audio,
		"path":     dest,
	})
	return nil
}

// Retag re-places a book's existing files after a metadata change. No
// activity drives it and ancestor locations stay untouched.
func (svc *Service) Retag(ctx context.Context, book *models.Book, audio bool) error {
	loc := book.Loc(audio)
	if loc == nil {
		return errcodes.NotFound("File")
	}

	err := svc.Import(ctx, Params{
		Book:       book,
		Audio:      audio,
		SourcePath: *loc,
	})
	if errors.Is(err, ErrSameLocation) {
		return nil
	}
	return err
}

// fail is the rollback path: mark the activity failed, restore the backed-up
// destination and any overwritten activity, and clean up the backup.
func (svc *Service) fail(ctx context.Context, p Params, dest string, backupMade bool, overwritten *models.Activity, cause error) error {
	log := logger.FromContext(ctx)
	log.Err(cause).Error("import failed, rolling back", logger.Data{
		"book_key": p.Book.Key,
		"audio":    p.Audio,
	})

	if p.Activity != nil {
		if err := svc.activityService.Transition(ctx, p.Activity, models.ActivityStatusFailed); err != nil {
			log.Err(err).Error("mark activity failed")
		}
	}
	if backupMade {
		if err := os.RemoveAll(dest); err != nil {
			log.Err(err).Error("remove partial destination", logger.Data{"path": dest})
		}
		if err := fileutils.RestoreBackup(dest); err != nil {
			log.Err(err).Error("restore backup", logger.Data{"path": dest})
		}
	}
	if overwritten != nil {
		if err := svc.activityService.RestoreImported(ctx, overwritten); err != nil {
			log.Err(err).Error("restore overwritten activity", logger.Data{"activity_id": overwritten.ID})
		}
	}
	if dest != "" {
		if err := fileutils.RemoveBackup(dest); err != nil {
			log.Err(err).Error("remove leftover backup", logger.Data{"path": dest})
		}
	}
	return cause
}

func (svc *Service) moveContent(ctx context.Context, p Params, isFile bool, sourceDir, dest string, cfg *config.UserConfig) error {
	if isFile {
		if err := svc.moveFile(p.SourcePath, dest); err != nil {
			return errcodes.FileOperationFailure(err.Error())
		}
		return nil
	}

	byExt, err := fileutils.ListByExtension(sourceDir)
	if err != nil {
		return errcodes.FileOperationFailure(err.Error())
	}
	var files []string
	if p.Audio {
		files = fileutils.PickDominant(byExt, cfg.AudioExtensionsRating)
	} else {
		files = fileutils.PickAll(byExt, cfg.BookExtensions)
	}
	if len(files) == 0 {
		return errcodes.FileOperationFailure("no importable files in " + sourceDir)
	}

	for _, file := range files {
		if err := svc.moveFile(file, filepath.Join(dest, filepath.Base(file))); err != nil {
			return errcodes.FileOperationFailure(err.Error())
		}
	}
	return nil
}

// importDoubleRelease handles audio releases that also ship ebook files: the
// book-extension subset gets its own synthetic activity and a second import
// into the book slot. Failures are logged, not fatal; the audio import
// already succeeded.
func (svc *Service) importDoubleRelease(ctx context.Context, p Params, sourceDir string, cfg *config.UserConfig) {
	log := logger.FromContext(ctx)

	has, err := fileutils.HasAnyExtension(sourceDir, cfg.BookExtensions)
	if err != nil || !has {
		return
	}

	synthetic := &models.Activity{
		ReleaseTitle: filepath.Base(sourceDir),
		BookKey:      p.Book.Key,
		Audio:        false,
	}
	if err := svc.activityService.CreateActivity(ctx, synthetic); err != nil {
		log.Err(err).Error("create double release activity")
		return
	}
	err = svc.Import(ctx, Params{
		Activity:           synthetic,
		Book:               p.Book,
		Audio:              false,
		SourcePath:         sourceDir,
		CategoryRoot:       p.CategoryRoot,
		OverwriteAncestors: p.OverwriteAncestors,
	})
	if err != nil {
		log.Err(err).Error("double release book import", logger.Data{"book_key": p.Book.Key})
	}
}

// deleteSource removes the drained source directory. The shared category
// root is never deleted; a bare file's parent is only deleted with the
// explicit override, since it may hold unrelated files.
func (svc *Service) deleteSource(ctx context.Context, p Params, isFile bool, sourceDir string, cfg *config.UserConfig) {
	log := logger.FromContext(ctx)

	if p.CategoryRoot != "" && filepath.Clean(sourceDir) == filepath.Clean(p.CategoryRoot) {
		return
	}
	if isFile && !cfg.IgnoreSafeDelete {
		return
	}
	if err := os.RemoveAll(sourceDir); err != nil {
		log.Err(err).Error("delete import source", logger.Data{"path": sourceDir})
	}
}

func (svc *Service) loadRelations(ctx context.Context, book *models.Book) error {
	if book.Author == nil {
		author := &models.Author{}
		err := svc.db.NewSelect().
			Model(author).
			Where("a.key = ?", book.AuthorKey).
			Scan(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		book.Author = author
	}
	if book.Series == nil && book.SeriesKey != nil {
		series := &models.Series{}
		err := svc.db.NewSelect().
			Model(series).
			Where("s.key = ?", *book.SeriesKey).
			Relation("Books").
			Scan(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		book.Series = series
	}
	return nil
}

func (svc *Service) resolveDestination(cfg *config.UserConfig, book *models.Book, audio bool) (string, *pathtmpl.Resolved, string, error) {
	templateStr := cfg.BookPathTemplate
	root := cfg.BookPath
	if audio {
		templateStr = cfg.AudioPathTemplate
		root = cfg.AudioPath
	}

	tmpl, err := pathtmpl.Parse(templateStr)
	if err != nil {
		return "", nil, "", err
	}
	resolved, err := tmpl.Resolve(pathtmpl.Input{
		Author: book.Author,
		Series: book.Series,
		Book:   book,
	})
	if err != nil {
		return "", nil, "", err
	}

	return filepath.Join(root, resolved.Path), resolved, root, nil
}

// recordLocations stores where the content now lives: always on the book,
// and on the author/series when the caller asked for ancestor updates.
func (svc *Service) recordLocations(ctx context.Context, p Params, dest string, resolved *pathtmpl.Resolved, root string) error {
	column := "book_loc"
	if p.Audio {
		column = "audio_loc"
	}

	p.Book.SetLoc(p.Audio, &dest)
	p.Book.UpdatedAt = time.Now()
	if _, err := svc.db.NewUpdate().
		Model(p.Book).
		Column(column, "updated_at").
		WherePK().
		Exec(ctx); err != nil {
		return errors.WithStack(err)
	}

	if !p.OverwriteAncestors {
		return nil
	}

	if p.Book.Author != nil && resolved.AuthorPrefix != "" {
		loc := filepath.Join(root, resolved.AuthorPrefix)
		p.Book.Author.SetLoc(p.Audio, &loc)
		p.Book.Author.UpdatedAt = time.Now()
		if _, err := svc.db.NewUpdate().
			Model(p.Book.Author).
			Column(column, "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
	}
	if p.Book.Series != nil && resolved.SeriesPrefix != "" {
		loc := filepath.Join(root, resolved.SeriesPrefix)
		p.Book.Series.SetLoc(p.Audio, &loc)
		p.Book.Series.UpdatedAt = time.Now()
		if _, err := svc.db.NewUpdate().
			Model(p.Book.Series).
			Column(column, "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
