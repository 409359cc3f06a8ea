package series

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/foliarr/foliarr/pkg/authors"
	"github.com/foliarr/foliarr/pkg/config"
	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/foliarr/foliarr/pkg/fuzzy"
	"github.com/foliarr/foliarr/pkg/models"
	"github.com/foliarr/foliarr/pkg/scrape"
	"github.com/foliarr/foliarr/pkg/titles"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

type RetrieveSeriesOptions struct {
	Key *string

	LoadBooks  bool
	LoadAuthor bool
}

type DeleteSeriesOptions struct {
	DeleteFiles bool
}

type Service struct {
	db            *bun.DB
	configService *config.Service
	authorService *authors.Service
	scraper       scrape.Scraper
}

func NewService(db *bun.DB, configService *config.Service, authorService *authors.Service, scraper scrape.Scraper) *Service {
	return &Service{db: db, configService: configService, authorService: authorService, scraper: scraper}
}

func (svc *Service) RetrieveSeries(ctx context.Context, opts RetrieveSeriesOptions) (*models.Series, error) {
	series := &models.Series{}

	q := svc.db.
		NewSelect().
		Model(series)

	if opts.Key != nil {
		q = q.Where("s.key = ?", *opts.Key)
	}
	if opts.LoadBooks {
		q = q.
			Relation("Books", func(sq *bun.SelectQuery) *bun.SelectQuery {
				return sq.Order("position ASC")
			}).
			Relation("Books.Editions")
	}
	if opts.LoadAuthor {
		q = q.Relation("Author")
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Series")
		}
		return nil, errors.WithStack(err)
	}

	return series, nil
}

// CompleteSeries re-fetches the owning author from the catalog and imports
// any groups that belong to this series but are not in the library yet. An
// edition key already owned by a different author is a Conflict rather than
// a silent skip: the operator asked for this series specifically.
func (svc *Service) CompleteSeries(ctx context.Context, series *models.Series) (*models.Series, error) {
	data, err := svc.scraper.FetchAuthor(ctx, series.AuthorKey)
	if err != nil {
		return nil, errcodes.ScrapeFailure(err.Error())
	}
	if err := scrape.Validate(data); err != nil {
		return nil, err
	}

	cfg := svc.configService.UserConfig()
	var matching []scrape.Group
	for _, group := range data.Groups {
		if group.SeriesTitle == nil {
			continue
		}
		name := titles.CleanSeries(*group.SeriesTitle)
		if fuzzy.NormalizedScore(name, series.Name) > cfg.SeriesMatchThreshold {
			matching = append(matching, group)
		}
	}

	if err := svc.checkForeignEditions(ctx, series, matching); err != nil {
		return nil, err
	}

	author := &models.Author{Key: series.AuthorKey}
	err = svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.authorService.ReconcileGroups(ctx, tx, author, matching); err != nil {
			return err
		}
		return svc.authorService.DedupAuthor(ctx, tx, series.AuthorKey)
	})
	if err != nil {
		return nil, err
	}

	return svc.RetrieveSeries(ctx, RetrieveSeriesOptions{Key: &series.Key, LoadBooks: true})
}

// checkForeignEditions fails with a Conflict when any edition in the groups
// is already attached to a book belonging to another author.
func (svc *Service) checkForeignEditions(ctx context.Context, series *models.Series, groups []scrape.Group) error {
	var keys []string
	for _, group := range groups {
		for _, ed := range group.Editions {
			keys = append(keys, ed.Key)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	count, err := svc.db.NewSelect().
		Model((*models.Edition)(nil)).
		Join("JOIN books AS b ON b.key = e.book_key").
		Where("e.key IN (?)", bun.In(keys)).
		Where("b.author_key != ?", series.AuthorKey).
		Count(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if count > 0 {
		return errcodes.Conflict("Series contains editions already owned by another author.")
	}
	return nil
}

// CleanupSeries recomputes every book title in the series from its editions,
// using the current series name. Useful after a manual series rename.
func (svc *Service) CleanupSeries(ctx context.Context, series *models.Series) (*models.Series, error) {
	series, err := svc.RetrieveSeries(ctx, RetrieveSeriesOptions{Key: &series.Key, LoadBooks: true})
	if err != nil {
		return nil, err
	}

	err = svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, book := range series.Books {
			if book.Foreign || len(book.Editions) == 0 {
				continue
			}
			name := bestEditionName(book, series)
			if name == book.Name {
				continue
			}
			book.Name = name
			book.UpdatedAt = time.Now()
			if _, err := tx.NewUpdate().
				Model(book).
				Column("name", "updated_at").
				WherePK().
				Exec(ctx); err != nil {
				return errors.WithStack(err)
			}
		}
		return svc.authorService.DedupAuthor(ctx, tx, series.AuthorKey)
	})
	if err != nil {
		return nil, err
	}

	return svc.RetrieveSeries(ctx, RetrieveSeriesOptions{Key: &series.Key, LoadBooks: true})
}

// bestEditionName picks the shortest non-empty normalized edition title, the
// same rule group assembly uses.
func bestEditionName(book *models.Book, series *models.Series) string {
	best := ""
	for _, ed := range book.Editions {
		cleaned := titles.CleanAllowEmpty(ed.Title, series.Name, book.Position)
		if cleaned == "" {
			continue
		}
		if best == "" || len(cleaned) < len(best) {
			best = cleaned
		}
	}
	if best == "" {
		best = titles.Clean(book.CanonicalEdition().Title, series.Name, book.Position)
	}
	return best
}

// UnionSeries merges two series by key, keeping the longer-named one, then
// re-runs book deduplication for the surviving author.
func (svc *Service) UnionSeries(ctx context.Context, keyA, keyB string) (*models.Series, error) {
	a, err := svc.RetrieveSeries(ctx, RetrieveSeriesOptions{Key: &keyA})
	if err != nil {
		return nil, err
	}
	b, err := svc.RetrieveSeries(ctx, RetrieveSeriesOptions{Key: &keyB})
	if err != nil {
		return nil, err
	}

	survivor, loser := a, b
	if len(loser.Name) > len(survivor.Name) {
		survivor, loser = loser, survivor
	}

	err = svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.authorService.MergeSeries(ctx, tx, survivor, loser); err != nil {
			return err
		}
		return svc.authorService.DedupAuthor(ctx, tx, survivor.AuthorKey)
	})
	if err != nil {
		return nil, err
	}

	return svc.RetrieveSeries(ctx, RetrieveSeriesOptions{Key: &survivor.Key, LoadBooks: true})
}

// DeleteSeries removes a series and its books, editions, and activities in
// dependency order, optionally deleting the on-disk directories too.
func (svc *Service) DeleteSeries(ctx context.Context, series *models.Series, opts DeleteSeriesOptions) error {
	log := logger.FromContext(ctx)

	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		bookKeys := tx.NewSelect().
			Model((*models.Book)(nil)).
			Column("key").
			Where("series_key = ?", series.Key)

		if _, err := tx.NewDelete().
			Model((*models.Activity)(nil)).
			Where("book_key IN (?)", bookKeys).
			Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		if _, err := tx.NewDelete().
			Model((*models.Edition)(nil)).
			Where("book_key IN (?)", bookKeys).
			Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		if _, err := tx.NewDelete().
			Model((*models.Book)(nil)).
			Where("series_key = ?", series.Key).
			Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		if _, err := tx.NewDelete().
			Model(series).
			WherePK().
			Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if opts.DeleteFiles {
		for _, loc := range []*string{series.AudioLoc, series.BookLoc} {
			if loc == nil {
				continue
			}
			if rerr := os.RemoveAll(*loc); rerr != nil {
				log.Err(rerr).Error("delete series files", logger.Data{"path": *loc})
			}
		}
	}

	return nil
}
