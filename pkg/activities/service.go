package activities

import (
	"context"
	"database/sql"
	"time"

	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/foliarr/foliarr/pkg/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type RetrieveActivityOptions struct {
	ID *string
	// ImportedForSlot finds the current imported activity for a book+media
	// slot, used when a new import overwrites a previous one.
	ImportedForSlot *Slot
}

// Slot identifies a book together with one of its two media locations.
type Slot struct {
	BookKey string
	Audio   bool
}

type ListActivitiesOptions struct {
	Limit    *int
	Offset   *int
	BookKey  *string
	Statuses []string

	includeTotal bool
}

type UpdateActivityOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// CreateActivity inserts a new activity. An empty ID gets a generated one,
// used for synthetic reimport/retag entries that never saw the downloader.
func (svc *Service) CreateActivity(ctx context.Context, activity *models.Activity) error {
	if activity.ID == "" {
		activity.ID = uuid.New().String()
	}
	if activity.Status == "" {
		activity.Status = models.ActivityStatusDownload
	}
	now := time.Now()
	if activity.CreatedAt.IsZero() {
		activity.CreatedAt = now
	}
	activity.UpdatedAt = activity.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(activity).
		Returning("*").
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) RetrieveActivity(ctx context.Context, opts RetrieveActivityOptions) (*models.Activity, error) {
	activity := &models.Activity{}

	q := svc.db.
		NewSelect().
		Model(activity)

	if opts.ID != nil {
		q = q.Where("act.id = ?", *opts.ID)
	}
	if opts.ImportedForSlot != nil {
		q = q.
			Where("act.book_key = ?", opts.ImportedForSlot.BookKey).
			Where("act.audio = ?", opts.ImportedForSlot.Audio).
			Where("act.status = ?", models.ActivityStatusImported).
			Order("act.created_at DESC").
			Limit(1)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Activity")
		}
		return nil, errors.WithStack(err)
	}

	return activity, nil
}

func (svc *Service) ListActivities(ctx context.Context, opts ListActivitiesOptions) ([]*models.Activity, int, error) {
	var activities []*models.Activity

	q := svc.db.
		NewSelect().
		Model(&activities).
		Relation("Book").
		Order("act.created_at DESC")

	if opts.BookKey != nil {
		q = q.Where("act.book_key = ?", *opts.BookKey)
	}
	if len(opts.Statuses) > 0 {
		q = q.Where("act.status IN (?)", bun.In(opts.Statuses))
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

	return activities, total, nil
}

func (svc *Service) ListActivitiesWithTotal(ctx context.Context, opts ListActivitiesOptions) ([]*models.Activity, int, error) {
	opts.includeTotal = true
	return svc.ListActivities(ctx, opts)
}

// Transition moves an activity to a new status, enforcing the transition
// table. Attempts to leave a terminal state return a Conflict.
func (svc *Service) Transition(ctx context.Context, activity *models.Activity, status string) error {
	if !models.CanTransitionActivity(activity.Status, status) {
		return errcodes.Conflict("Activity cannot transition from " + activity.Status + " to " + status)
	}

	activity.Status = status
	activity.UpdatedAt = time.Now()

	_, err := svc.db.
		NewUpdate().
		Model(activity).
		Column("status", "updated_at").
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// OverwriteSlot marks the current imported activity for a slot as
// overwritten, if one exists. It returns the activity it transitioned so a
// failed import can roll the status back.
func (svc *Service) OverwriteSlot(ctx context.Context, slot Slot) (*models.Activity, error) {
	prior, err := svc.RetrieveActivity(ctx, RetrieveActivityOptions{ImportedForSlot: &slot})
	if err != nil {
		if errors.Is(err, errcodes.NotFound("Activity")) {
			return nil, nil
		}
		return nil, err
	}
	if err := svc.Transition(ctx, prior, models.ActivityStatusOverwritten); err != nil {
		return nil, err
	}
	return prior, nil
}

// RestoreImported flips an overwritten activity back to imported. It bypasses
// the transition table because it only runs during import rollback, undoing
// an OverwriteSlot from the same transaction.
func (svc *Service) RestoreImported(ctx context.Context, activity *models.Activity) error {
	activity.Status = models.ActivityStatusImported
	activity.UpdatedAt = time.Now()

	_, err := svc.db.
		NewUpdate().
		Model(activity).
		Column("status", "updated_at").
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// DeleteForBook removes all activities owned by a book. Part of the explicit
// cascade when a book or its author is deleted.
func (svc *Service) DeleteForBook(ctx context.Context, db bun.IDB, bookKey string) error {
	if db == nil {
		db = svc.db
	}
	_, err := db.
		NewDelete().
		Model((*models.Activity)(nil)).
		Where("book_key = ?", bookKey).
		Exec(ctx)
	return errors.WithStack(err)
}
