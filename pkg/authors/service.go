package authors

import (
	"context"
	"database/sql"
	"os"
	"time"

	"github.com/foliarr/foliarr/pkg/config"
	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/foliarr/foliarr/pkg/models"
	"github.com/foliarr/foliarr/pkg/scrape"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

type RetrieveAuthorOptions struct {
	Key  *string
	Name *string

	LoadSeries bool
	LoadBooks  bool
}

type ListAuthorsOptions struct {
	Limit  *int
	Offset *int
	Search *string

	includeTotal bool
}

type DeleteAuthorOptions struct {
	// DeleteFiles removes the author's on-disk directories too.
	DeleteFiles bool
}

type Service struct {
	db            *bun.DB
	configService *config.Service
	scraper       scrape.Scraper
}

func NewService(db *bun.DB, configService *config.Service, scraper scrape.Scraper) *Service {
	return &Service{db: db, configService: configService, scraper: scraper}
}

func (svc *Service) RetrieveAuthor(ctx context.Context, opts RetrieveAuthorOptions) (*models.Author, error) {
	author := &models.Author{}

	q := svc.db.
		NewSelect().
		Model(author)

	if opts.Key != nil {
		q = q.Where("a.key = ?", *opts.Key)
	}
	if opts.Name != nil {
		q = q.Where("LOWER(a.name) = LOWER(?)", *opts.Name)
	}
	if opts.LoadSeries {
		q = q.Relation("Series", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("name ASC")
		})
	}
	if opts.LoadBooks {
		q = q.
			Relation("Books", func(sq *bun.SelectQuery) *bun.SelectQuery {
				return sq.Order("name ASC")
			}).
			Relation("Books.Editions")
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Author")
		}
		return nil, errors.WithStack(err)
	}

	return author, nil
}

func (svc *Service) ListAuthors(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, int, error) {
	var authors []*models.Author

	q := svc.db.
		NewSelect().
		Model(&authors).
		Order("a.name ASC")

	if opts.Search != nil && *opts.Search != "" {
		q = q.Where("a.name LIKE ?", "%"+*opts.Search+"%")
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	total := 0
	var err error
	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return authors, total, nil
}

func (svc *Service) ListAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, int, error) {
	opts.includeTotal = true
	return svc.ListAuthors(ctx, opts)
}

func (svc *Service) UpdateAuthor(ctx context.Context, author *models.Author, columns ...string) error {
	author.UpdatedAt = time.Now()
	columns = append(columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(author).
		Column(columns...).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// DeleteAuthor removes an author and, in dependency order, everything it
// owns: activities, editions, books, series. There are no database cascades;
// ownership is explicit here.
func (svc *Service) DeleteAuthor(ctx context.Context, author *models.Author, opts DeleteAuthorOptions) error {
	log := logger.FromContext(ctx)

	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return deleteAuthorTx(ctx, tx, author.Key)
	})
	if err != nil {
		return err
	}

	if opts.DeleteFiles {
		for _, loc := range []*string{author.AudioLoc, author.BookLoc} {
			if loc == nil {
				continue
			}
			if rerr := os.RemoveAll(*loc); rerr != nil {
				log.Err(rerr).Error("delete author files", logger.Data{"path": *loc})
			}
		}
	}

	return nil
}

func deleteAuthorTx(ctx context.Context, tx bun.Tx, authorKey string) error {
	bookKeys := tx.NewSelect().
		Model((*models.Book)(nil)).
		Column("key").
		Where("author_key = ?", authorKey)

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
		Where("author_key = ?", authorKey).
		Exec(ctx); err != nil {
		return errors.WithStack(err)
	}
	if _, err := tx.NewDelete().
		Model((*models.Series)(nil)).
		Where("author_key = ?", authorKey).
		Exec(ctx); err != nil {
		return errors.WithStack(err)
	}
	if _, err := tx.NewDelete().
		Model((*models.Author)(nil)).
		Where("key = ?", authorKey).
		Exec(ctx); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// ListAuthorSeries returns the author's series with their books loaded in
// position order.
func (svc *Service) ListAuthorSeries(ctx context.Context, authorKey string) ([]*models.Series, error) {
	var seriesList []*models.Series
	err := svc.db.NewSelect().
		Model(&seriesList).
		Where("s.author_key = ?", authorKey).
		Order("s.name ASC").
		Relation("Books", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("position ASC")
		}).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return seriesList, nil
}

// ListAuthorBooks returns the author's books with editions. Blocked books
// are filtered out unless includeBlocked is set.
func (svc *Service) ListAuthorBooks(ctx context.Context, authorKey string, includeBlocked bool) ([]*models.Book, error) {
	var books []*models.Book
	q := svc.db.NewSelect().
		Model(&books).
		Where("b.author_key = ?", authorKey).
		Order("b.name ASC").
		Relation("Editions")
	if !includeBlocked {
		q = q.Where("b.blocked = ?", false)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	for _, book := range books {
		book.SortEditions()
	}
	return books, nil
}

// MakeAuthorFromSeries converts a series into a synthetic series-author: a
// new author named after the series, owning the series and its books. Used
// for anthology-style series that have no meaningful single author.
func (svc *Service) MakeAuthorFromSeries(ctx context.Context, series *models.Series) (*models.Author, error) {
	author := &models.Author{
		Key:       models.NewKey(),
		Name:      series.Name,
		IsSeries:  true,
		CreatedAt: time.Now(),
	}
	author.UpdatedAt = author.CreatedAt

	err := svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(author).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		if _, err := tx.NewUpdate().
			Model((*models.Book)(nil)).
			Set("author_key = ?", author.Key).
			Set("updated_at = ?", time.Now()).
			Where("series_key = ?", series.Key).
			Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		if _, err := tx.NewUpdate().
			Model((*models.Series)(nil)).
			Set("author_key = ?", author.Key).
			Set("updated_at = ?", time.Now()).
			Where("key = ?", series.Key).
			Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return author, nil
}
