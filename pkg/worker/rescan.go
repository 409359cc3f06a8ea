package worker

import (
	"context"
	"os"
	"time"

	"github.com/foliarr/foliarr/pkg/activities"
	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/foliarr/foliarr/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// Rescan prunes dangling location pointers: every recorded book location is
// stat'ed, and a missing path flips the slot's imported activity to deleted
// and clears the pointer. Per-book failures are logged and skipped.
type Rescan struct {
	db              *bun.DB
	activityService *activities.Service
}

func NewRescan(db *bun.DB, activityService *activities.Service) *Rescan {
	return &Rescan{db: db, activityService: activityService}
}

func (r *Rescan) Run(ctx context.Context) error {
	log := logger.FromContext(ctx)

	var list []*models.Book
	err := r.db.
		NewSelect().
		Model(&list).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("b.audio_loc IS NOT NULL").
				WhereOr("b.book_loc IS NOT NULL")
		}).
		Scan(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	for _, book := range list {
		for _, audio := range []bool{true, false} {
			if err := r.checkSlot(ctx, book, audio); err != nil {
				log.Err(err).Error("rescan book slot", logger.Data{
					"book_key": book.Key,
					"audio":    audio,
				})
			}
		}
	}
	return nil
}

func (r *Rescan) checkSlot(ctx context.Context, book *models.Book, audio bool) error {
	log := logger.FromContext(ctx)

	loc := book.Loc(audio)
	if loc == nil {
		return nil
	}
	if _, err := os.Stat(*loc); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return errors.WithStack(err)
	}

	log.Info("recorded location missing", logger.Data{
		"book_key": book.Key,
		"audio":    audio,
		"path":     *loc,
	})

	activity, err := r.activityService.RetrieveActivity(ctx, activities.RetrieveActivityOptions{
		ImportedForSlot: &activities.Slot{BookKey: book.Key, Audio: audio},
	})
	if err == nil {
		if terr := r.activityService.Transition(ctx, activity, models.ActivityStatusDeleted); terr != nil {
			return terr
		}
	} else if !errors.Is(err, errcodes.NotFound("Activity")) {
		return err
	}

	column := "book_loc"
	if audio {
		column = "audio_loc"
	}
	book.SetLoc(audio, nil)
	book.UpdatedAt = time.Now()
	_, err = r.db.
		NewUpdate().
		Model(book).
		Column(column, "updated_at").
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}
