package books

import (
	"context"
	"database/sql"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/foliarr/foliarr/pkg/config"
	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/foliarr/foliarr/pkg/fileutils"
	"github.com/foliarr/foliarr/pkg/models"
	"github.com/foliarr/foliarr/pkg/titles"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

type RetrieveBookOptions struct {
	Key *string

	LoadRelations bool
}

type DeleteBookOptions struct {
	// Block keeps the record around as a blocked marker instead of deleting
	// it, so the book is never re-acquired or reimport-matched.
	Block bool
	// DeleteFiles removes the on-disk content too.
	DeleteFiles bool
}

// BookFile is one on-disk file backing a book, with its size in bytes.
type BookFile struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Audio bool   `json:"audio"`
}

type Service struct {
	db            *bun.DB
	configService *config.Service
}

func NewService(db *bun.DB, configService *config.Service) *Service {
	return &Service{db: db, configService: configService}
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book)

	if opts.Key != nil {
		q = q.Where("b.key = ?", *opts.Key)
	}
	if opts.LoadRelations {
		q = q.
			Relation("Author").
			Relation("Series").
			Relation("Editions").
			Relation("Activities", func(sq *bun.SelectQuery) *bun.SelectQuery {
				return sq.Order("created_at DESC")
			})
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	if opts.LoadRelations {
		book.SortEditions()
	}
	return book, nil
}

func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, columns ...string) error {
	book.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(book).
		Column(columns...).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// DeleteBook removes a book and everything it owns, or blocks it when asked.
// Deleting the last book of a series deletes the series too: an empty series
// has no reason to exist.
func (svc *Service) DeleteBook(ctx context.Context, book *models.Book, opts DeleteBookOptions) error {
	if opts.DeleteFiles {
		svc.deleteBookFiles(ctx, book)
	}

	if opts.Block {
		seriesKey := book.SeriesKey
		book.Blocked = true
		book.SeriesKey = nil
		book.AudioLoc = nil
		book.BookLoc = nil
		if err := svc.UpdateBook(ctx, book, "blocked", "series_key", "audio_loc", "book_loc"); err != nil {
			return err
		}
		return svc.maybeDeleteEmptySeries(ctx, svc.db, seriesKey)
	}

	return svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.Activity)(nil)).
			Where("book_key = ?", book.Key).
			Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		if _, err := tx.NewDelete().
			Model((*models.Edition)(nil)).
			Where("book_key = ?", book.Key).
			Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		if _, err := tx.NewDelete().
			Model(book).
			WherePK().
			Exec(ctx); err != nil {
			return errors.WithStack(err)
		}

		return svc.maybeDeleteEmptySeries(ctx, tx, book.SeriesKey)
	})
}

func (svc *Service) maybeDeleteEmptySeries(ctx context.Context, db bun.IDB, seriesKey *string) error {
	if seriesKey == nil {
		return nil
	}
	remaining, err := db.NewSelect().
		Model((*models.Book)(nil)).
		Where("series_key = ?", *seriesKey).
		Count(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if remaining > 0 {
		return nil
	}
	_, err = db.NewDelete().
		Model((*models.Series)(nil)).
		Where("key = ?", *seriesKey).
		Exec(ctx)
	return errors.WithStack(err)
}

// DeleteBookFiles removes a book's on-disk content for one or both media
// slots and clears the matching location pointers.
func (svc *Service) DeleteBookFiles(ctx context.Context, book *models.Book, audio bool) error {
	cfg := svc.configService.UserConfig()
	loc := book.Loc(audio)
	if loc == nil {
		return nil
	}

	if err := os.RemoveAll(*loc); err != nil {
		return errcodes.FileOperationFailure(err.Error())
	}
	root := cfg.BookPath
	if audio {
		root = cfg.AudioPath
	}
	if err := fileutils.PruneEmptyDirs(filepath.Dir(*loc), root); err != nil {
		logger.FromContext(ctx).Err(err).Error("prune empty dirs", logger.Data{"path": *loc})
	}

	book.SetLoc(audio, nil)
	column := "book_loc"
	if audio {
		column = "audio_loc"
	}
	return svc.UpdateBook(ctx, book, column)
}

func (svc *Service) deleteBookFiles(ctx context.Context, book *models.Book) {
	log := logger.FromContext(ctx)
	for _, audio := range []bool{true, false} {
		if err := svc.DeleteBookFiles(ctx, book, audio); err != nil {
			log.Err(err).Error("delete book files", logger.Data{"book_key": book.Key, "audio": audio})
		}
	}
}

// AlternativeTitles returns the distinct normalized titles of a book's
// editions. Indexer searches fall back through these when the display name
// finds nothing.
func (svc *Service) AlternativeTitles(ctx context.Context, book *models.Book) ([]string, error) {
	if book.Editions == nil {
		loaded, err := svc.RetrieveBook(ctx, RetrieveBookOptions{Key: &book.Key, LoadRelations: true})
		if err != nil {
			return nil, err
		}
		book = loaded
	}

	seriesName := ""
	if book.Series != nil {
		seriesName = book.Series.Name
	}

	seen := map[string]bool{}
	var alts []string
	for _, ed := range book.Editions {
		alt := titles.Clean(ed.Title, seriesName, book.Position)
		if alt == "" || alt == book.Name || seen[alt] {
			continue
		}
		seen[alt] = true
		alts = append(alts, alt)
	}
	return alts, nil
}

// ListFiles walks both media locations of a book and returns every backing
// file with its size.
func (svc *Service) ListFiles(book *models.Book) ([]BookFile, error) {
	var files []BookFile
	for _, audio := range []bool{true, false} {
		loc := book.Loc(audio)
		if loc == nil {
			continue
		}
		info, err := os.Stat(*loc)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.WithStack(err)
		}
		if !info.IsDir() {
			files = append(files, BookFile{Path: *loc, Size: info.Size(), Audio: audio})
			continue
		}
		err = filepath.WalkDir(*loc, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			files = append(files, BookFile{Path: path, Size: fi.Size(), Audio: audio})
			return nil
		})
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return files, nil
}
