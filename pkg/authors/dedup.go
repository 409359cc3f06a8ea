package authors

import (
	"context"
	"math"
	"time"

	"github.com/foliarr/foliarr/pkg/fuzzy"
	"github.com/foliarr/foliarr/pkg/models"
	"github.com/foliarr/foliarr/pkg/titles"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// DedupAuthor runs the two merge passes over an author: near-identical
// series are unioned, then books sharing a position within each series are
// deduplicated. Both passes are idempotent, so completing or re-importing an
// author can run them again safely.
func (svc *Service) DedupAuthor(ctx context.Context, tx bun.IDB, authorKey string) error {
	cfg := svc.configService.UserConfig()

	if err := svc.unionSimilarSeries(ctx, tx, authorKey, cfg.SeriesMatchThreshold); err != nil {
		return err
	}

	var seriesList []*models.Series
	err := tx.NewSelect().
		Model(&seriesList).
		Where("s.author_key = ?", authorKey).
		Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	for _, series := range seriesList {
		if err := svc.dedupSeriesBooks(ctx, tx, series, cfg.BookMatchThreshold); err != nil {
			return err
		}
	}
	return nil
}

// unionSimilarSeries merges pairs of the author's series whose names score
// above the threshold, keeping the longer name. Catalog scrapes discover the
// same series twice under slightly different spellings often enough that
// this runs on every import.
func (svc *Service) unionSimilarSeries(ctx context.Context, tx bun.IDB, authorKey string, threshold int) error {
	for {
		var seriesList []*models.Series
		err := tx.NewSelect().
			Model(&seriesList).
			Where("s.author_key = ?", authorKey).
			Order("s.name ASC").
			Scan(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		merged := false
		for i := 0; i < len(seriesList) && !merged; i++ {
			for j := i + 1; j < len(seriesList); j++ {
				a, b := seriesList[i], seriesList[j]
				if fuzzy.NormalizedScore(a.Name, b.Name) <= threshold {
					continue
				}
				survivor, loser := a, b
				if len(loser.Name) > len(survivor.Name) {
					survivor, loser = loser, survivor
				}
				if err := svc.MergeSeries(ctx, tx, survivor, loser); err != nil {
					return err
				}
				merged = true
				break
			}
		}
		if !merged {
			return nil
		}
	}
}

// MergeSeries moves every book of loser into survivor, re-normalizing each
// migrated book's title against the surviving series name, then deletes the
// loser. Foreign books migrate but keep their title untouched since their
// names were normalized against their own author's context.
func (svc *Service) MergeSeries(ctx context.Context, tx bun.IDB, survivor, loser *models.Series) error {
	log := logger.FromContext(ctx)
	log.Info("merging series", logger.Data{
		"survivor": survivor.Name,
		"loser":    loser.Name,
	})

	var books []*models.Book
	err := tx.NewSelect().
		Model(&books).
		Where("b.series_key = ?", loser.Key).
		Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	for _, book := range books {
		book.SeriesKey = &survivor.Key
		// Manual unions may cross authors; the surviving series' author wins.
		book.AuthorKey = survivor.AuthorKey
		if !book.Foreign {
			book.Name = titles.Clean(book.Name, survivor.Name, book.Position)
		}
		book.UpdatedAt = time.Now()
		if _, err := tx.NewUpdate().
			Model(book).
			Column("series_key", "author_key", "name", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
	}

	_, err = tx.NewDelete().
		Model(loser).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// dedupSeriesBooks merges books that landed on the same position slot in one
// series. Two books are the same when either title normalizes away to
// nothing (the title was just "Series N") or the titles score above the
// threshold. The duplicate's editions move onto the survivor.
func (svc *Service) dedupSeriesBooks(ctx context.Context, tx bun.IDB, series *models.Series, threshold int) error {
	for {
		var books []*models.Book
		err := tx.NewSelect().
			Model(&books).
			Where("b.series_key = ?", series.Key).
			Where("b.foreign_author = ?", false).
			Order("b.created_at ASC").
			Scan(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		merged := false
		for i := 0; i < len(books) && !merged; i++ {
			for j := i + 1; j < len(books); j++ {
				a, b := books[i], books[j]
				if !samePosition(a.Position, b.Position) {
					continue
				}
				emptyA := titles.CleanAllowEmpty(a.Name, series.Name, a.Position) == ""
				emptyB := titles.CleanAllowEmpty(b.Name, series.Name, b.Position) == ""
				if !emptyA && !emptyB && fuzzy.NormalizedScore(a.Name, b.Name) <= threshold {
					continue
				}

				// Prefer the title that survived normalization; between two
				// real titles keep the shorter (more completely cleaned) one.
				survivor, loser := a, b
				switch {
				case emptyA && !emptyB:
					survivor, loser = b, a
				case !emptyA && !emptyB && len(b.Name) < len(a.Name):
					survivor, loser = b, a
				}
				if err := svc.mergeBooks(ctx, tx, survivor, loser); err != nil {
					return err
				}
				merged = true
				break
			}
		}
		if !merged {
			return nil
		}
	}
}

func (svc *Service) mergeBooks(ctx context.Context, tx bun.IDB, survivor, loser *models.Book) error {
	log := logger.FromContext(ctx)
	log.Info("merging duplicate books", logger.Data{
		"survivor": survivor.Name,
		"loser":    loser.Name,
	})

	// Carry over anything the duplicate had that the survivor lacks.
	changed := false
	if survivor.AudioLoc == nil && loser.AudioLoc != nil {
		survivor.AudioLoc = loser.AudioLoc
		changed = true
	}
	if survivor.BookLoc == nil && loser.BookLoc != nil {
		survivor.BookLoc = loser.BookLoc
		changed = true
	}
	if survivor.Image == nil && loser.Image != nil {
		survivor.Image = loser.Image
		changed = true
	}
	if changed {
		survivor.UpdatedAt = time.Now()
		if _, err := tx.NewUpdate().
			Model(survivor).
			Column("audio_loc", "book_loc", "image", "updated_at").
			WherePK().
			Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
	}

	if _, err := tx.NewUpdate().
		Model((*models.Edition)(nil)).
		Set("book_key = ?", survivor.Key).
		Set("updated_at = ?", time.Now()).
		Where("book_key = ?", loser.Key).
		Exec(ctx); err != nil {
		return errors.WithStack(err)
	}
	if _, err := tx.NewDelete().
		Model((*models.Activity)(nil)).
		Where("book_key = ?", loser.Key).
		Exec(ctx); err != nil {
		return errors.WithStack(err)
	}
	_, err := tx.NewDelete().
		Model(loser).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

func samePosition(a, b *float64) bool {
	if a == nil || b == nil {
		return false
	}
	return math.Round(*a) == math.Round(*b)
}
