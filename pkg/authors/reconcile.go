package authors

import (
	"context"
	"database/sql"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/foliarr/foliarr/pkg/models"
	"github.com/foliarr/foliarr/pkg/scrape"
	"github.com/foliarr/foliarr/pkg/titles"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// ImportAuthor fetches an author from the catalog and reconciles its edition
// groups into books, series, and editions. Importing an author that already
// exists is a Conflict unless overwrite is set, in which case the prior
// author and everything it owns is deleted first.
func (svc *Service) ImportAuthor(ctx context.Context, key string, overwrite bool) (*models.Author, error) {
	data, err := svc.scraper.FetchAuthor(ctx, key)
	if err != nil {
		return nil, errcodes.ScrapeFailure(err.Error())
	}
	if err := scrape.Validate(data); err != nil {
		return nil, err
	}

	existing, err := svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{Key: &data.Key})
	if err == nil {
		if !overwrite {
			return nil, errcodes.Conflict("Author " + data.Name + " already exists.")
		}
		if err := svc.DeleteAuthor(ctx, existing, DeleteAuthorOptions{}); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, errcodes.NotFound("Author")) {
		return nil, err
	}

	now := time.Now()
	author := &models.Author{
		Key:       data.Key,
		Name:      data.Name,
		Image:     data.Image,
		Bio:       data.Bio,
		IsSeries:  data.IsSeries,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(author).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
		if err := svc.ReconcileGroups(ctx, tx, author, data.Groups); err != nil {
			return err
		}
		return svc.DedupAuthor(ctx, tx, author.Key)
	})
	if err != nil {
		return nil, err
	}

	return svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{Key: &author.Key, LoadSeries: true, LoadBooks: true})
}

// CompleteAuthor re-fetches an existing author from the catalog and imports
// any edition groups that appeared since the original import, then re-runs
// the merge passes.
func (svc *Service) CompleteAuthor(ctx context.Context, author *models.Author) (*models.Author, error) {
	data, err := svc.scraper.FetchAuthor(ctx, author.Key)
	if err != nil {
		return nil, errcodes.ScrapeFailure(err.Error())
	}
	if err := scrape.Validate(data); err != nil {
		return nil, err
	}

	err = svc.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := svc.ReconcileGroups(ctx, tx, author, data.Groups); err != nil {
			return err
		}
		return svc.DedupAuthor(ctx, tx, author.Key)
	})
	if err != nil {
		return nil, err
	}

	return svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{Key: &author.Key, LoadSeries: true, LoadBooks: true})
}

// ReconcileGroups assembles one book per scraped group. Groups whose edition
// keys all exist already (imported under another author, or by a previous
// run) are skipped: edition keys are globally unique.
func (svc *Service) ReconcileGroups(ctx context.Context, tx bun.IDB, author *models.Author, groups []scrape.Group) error {
	log := logger.FromContext(ctx)
	cfg := svc.configService.UserConfig()
	seen := map[string]bool{}
	bySeries := map[string][]*models.Book{}

	for _, group := range groups {
		if len(group.Editions) == 0 {
			continue
		}

		existing, err := existingEditionKeys(ctx, tx, editionKeys(group.Editions))
		if err != nil {
			return err
		}

		var fresh []scrape.EditionInput
		for _, ed := range group.Editions {
			if existing[ed.Key] || seen[ed.Key] {
				continue
			}
			fresh = append(fresh, ed)
		}
		if len(fresh) == 0 {
			log.Info("skipping group, all editions already imported", logger.Data{
				"author_key": author.Key,
				"editions":   len(group.Editions),
			})
			continue
		}

		sort.SliceStable(fresh, func(i, j int) bool {
			return models.MediumPriority(fresh[i].Medium) < models.MediumPriority(fresh[j].Medium)
		})
		canonical := fresh[0]

		now := time.Now()
		book := &models.Book{
			Key:       models.NewKey(),
			AuthorKey: author.Key,
			Position:  canonical.Position,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if canonical.Image != "" {
			book.Image = &canonical.Image
		}
		if book.Position != nil && bundledTitle(cfg.KnownBundlePatterns, canonical.Title) {
			book.Position = nil
		}

		seriesTitle := ""
		if group.SeriesTitle != nil {
			seriesTitle = strings.TrimSpace(*group.SeriesTitle)
		}
		if seriesTitle != "" {
			series, err := svc.findOrCreateSeries(ctx, tx, author, seriesTitle)
			if err != nil {
				return err
			}
			book.SeriesKey = &series.Key
			book.Name = bestGroupName(fresh, seriesTitle)

			bySeries[series.Key] = append(bySeries[series.Key], book)
			if book.Position != nil {
				if err := reslotPositionClashes(ctx, tx, bySeries[series.Key], *book.Position); err != nil {
					return err
				}
			}
		} else {
			book.Name = titles.Clean(canonical.Title, "", nil)
		}

		if _, err := tx.NewInsert().Model(book).Exec(ctx); err != nil {
			return errors.WithStack(err)
		}

		for _, ed := range fresh {
			seen[ed.Key] = true
			edition := newEdition(book.Key, ed)
			if _, err := tx.NewInsert().Model(edition).Exec(ctx); err != nil {
				return errors.WithStack(err)
			}
		}
	}

	return nil
}

// bestGroupName normalizes every edition title against the series and keeps
// the shortest non-empty result: the shortest is the one the normalizer
// stripped most completely. Falls back to the never-empty normalization of
// the canonical title.
func bestGroupName(editions []scrape.EditionInput, seriesTitle string) string {
	best := ""
	for _, ed := range editions {
		cleaned := titles.CleanAllowEmpty(ed.Title, seriesTitle, ed.Position)
		if cleaned == "" {
			continue
		}
		if best == "" || len(cleaned) < len(best) {
			best = cleaned
		}
	}
	if best == "" {
		best = titles.Clean(editions[0].Title, seriesTitle, editions[0].Position)
	}
	return best
}

// bundledTitle reports whether a title matches one of the configured box-set
// patterns. Bundle releases never get a series position. Patterns that do not
// compile are skipped.
func bundledTitle(patterns []string, title string) bool {
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

// reslotPositionClashes spreads books that claim the same integer slot of one
// series across tenths: the first keeps the integer, later ones get .1, .2
// and so on. The last entry of seriesBooks is the book being assembled and is
// not persisted yet; the rest are updated in place.
func reslotPositionClashes(ctx context.Context, tx bun.IDB, seriesBooks []*models.Book, pos float64) error {
	slot := math.Trunc(pos)

	var clashing []*models.Book
	for _, b := range seriesBooks {
		if b.Position != nil && math.Trunc(*b.Position) == slot {
			clashing = append(clashing, b)
		}
	}
	if len(clashing) < 2 {
		return nil
	}

	current := seriesBooks[len(seriesBooks)-1]
	for idx, b := range clashing {
		p := math.Round((slot+0.1*float64(idx))*10) / 10
		b.Position = &p
		if b == current {
			continue
		}
		if _, err := tx.NewUpdate().Model(b).Column("position").WherePK().Exec(ctx); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (svc *Service) findOrCreateSeries(ctx context.Context, tx bun.IDB, author *models.Author, name string) (*models.Series, error) {
	name = titles.CleanSeries(name)

	series := &models.Series{}
	err := tx.NewSelect().
		Model(series).
		Where("s.author_key = ?", author.Key).
		Where("LOWER(s.name) = LOWER(?)", name).
		Scan(ctx)
	if err == nil {
		return series, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.WithStack(err)
	}

	now := time.Now()
	series = &models.Series{
		Key:       models.NewKey(),
		Name:      name,
		AuthorKey: author.Key,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := tx.NewInsert().Model(series).Exec(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return series, nil
}

func newEdition(bookKey string, in scrape.EditionInput) *models.Edition {
	now := time.Now()
	edition := &models.Edition{
		Key:       in.Key,
		BookKey:   bookKey,
		Title:     in.Title,
		Medium:    in.Medium,
		Publisher: in.Publisher,
		Language:  in.Language,
		ISBN:      in.ISBN,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Image != "" {
		edition.Image = &in.Image
	}
	return edition
}

func editionKeys(editions []scrape.EditionInput) []string {
	keys := make([]string, 0, len(editions))
	for _, ed := range editions {
		keys = append(keys, ed.Key)
	}
	return keys
}

func existingEditionKeys(ctx context.Context, tx bun.IDB, keys []string) (map[string]bool, error) {
	var found []string
	err := tx.NewSelect().
		Model((*models.Edition)(nil)).
		Column("key").
		Where("key IN (?)", bun.In(keys)).
		Scan(ctx, &found)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	set := make(map[string]bool, len(found))
	for _, k := range found {
		set[k] = true
	}
	return set, nil
}
