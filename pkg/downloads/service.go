// Package downloads orchestrates acquisition: search the indexer for a
// release, hand its payload to the download client, and track the job as an
// activity until the import tick consumes it from the client's history.
package downloads

import (
	"context"

	"github.com/foliarr/foliarr/pkg/activities"
	"github.com/foliarr/foliarr/pkg/books"
	"github.com/foliarr/foliarr/pkg/config"
	"github.com/foliarr/foliarr/pkg/downloader"
	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/foliarr/foliarr/pkg/importer"
	"github.com/foliarr/foliarr/pkg/indexer"
	"github.com/foliarr/foliarr/pkg/models"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/uptrace/bun"
)

// BulkResult reports a partial-success bulk download: books that had no
// acceptable release, and books whose enqueue failed outright.
type BulkResult struct {
	Started  []string          `json:"started"`
	NotFound []string          `json:"not_found"`
	Errors   map[string]string `json:"errors"`
}

// ActivityView is an activity joined with the live downloader state for it,
// when the job is still in the client's queue or history.
type ActivityView struct {
	*models.Activity

	DownloaderStatus *string  `json:"downloader_status,omitempty"`
	Percentage       *float64 `json:"percentage,omitempty"`
}

type Service struct {
	db              *bun.DB
	configService   *config.Service
	activityService *activities.Service
	bookService     *books.Service
	importService   *importer.Service
	indexer         indexer.Indexer
	downloader      downloader.Downloader
}

func NewService(
	db *bun.DB,
	configService *config.Service,
	activityService *activities.Service,
	bookService *books.Service,
	importService *importer.Service,
	idx indexer.Indexer,
	dl downloader.Downloader,
) *Service {
	return &Service{
		db:              db,
		configService:   configService,
		activityService: activityService,
		bookService:     bookService,
		importService:   importService,
		indexer:         idx,
		downloader:      dl,
	}
}

// DownloadBook searches for the book's release and enqueues it. A blocked
// book is never re-acquired.
func (svc *Service) DownloadBook(ctx context.Context, book *models.Book, audio bool) (*models.Activity, error) {
	if book.Blocked {
		return nil, errcodes.Conflict("Book is blocked from acquisition.")
	}

	release, err := svc.indexer.QueryBook(ctx, book, audio)
	if err != nil {
		return nil, err
	}
	if release == nil {
		return nil, errcodes.NotFound("Release")
	}

	return svc.enqueue(ctx, book, audio, release)
}

// DownloadAuthor enqueues releases for every book of the author missing the
// requested media slot. One book failing never stops the rest.
func (svc *Service) DownloadAuthor(ctx context.Context, authorKey string, audio bool) (*BulkResult, error) {
	var list []*models.Book
	err := svc.db.
		NewSelect().
		Model(&list).
		Relation("Author").
		Relation("Series").
		Where("b.author_key = ?", authorKey).
		Where("b.blocked = ?", false).
		Order("b.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return svc.downloadMissing(ctx, list, audio), nil
}

// DownloadSeries does the same for one series.
func (svc *Service) DownloadSeries(ctx context.Context, seriesKey string, audio bool) (*BulkResult, error) {
	var list []*models.Book
	err := svc.db.
		NewSelect().
		Model(&list).
		Relation("Author").
		Relation("Series").
		Where("b.series_key = ?", seriesKey).
		Where("b.blocked = ?", false).
		Order("b.position ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return svc.downloadMissing(ctx, list, audio), nil
}

func (svc *Service) downloadMissing(ctx context.Context, list []*models.Book, audio bool) *BulkResult {
	result := &BulkResult{
		Started:  []string{},
		NotFound: []string{},
		Errors:   map[string]string{},
	}

	for _, book := range list {
		if book.Loc(audio) != nil {
			continue
		}

		release, err := svc.indexer.QueryBook(ctx, book, audio)
		if err != nil {
			result.Errors[book.Name] = err.Error()
			continue
		}
		if release == nil {
			result.NotFound = append(result.NotFound, book.Name)
			continue
		}
		if _, err := svc.enqueue(ctx, book, audio, release); err != nil {
			result.Errors[book.Name] = err.Error()
			continue
		}
		result.Started = append(result.Started, book.Name)
	}

	return result
}

// ManualSearch returns one page of raw indexer results for the book, for
// operator-driven grabbing when the automatic ladder picked nothing.
func (svc *Service) ManualSearch(ctx context.Context, book *models.Book, page int, audio bool) (*indexer.ManualPage, error) {
	return svc.indexer.QueryManual(ctx, book, page, audio)
}

// GrabRelease enqueues an operator-chosen release, bypassing the similarity
// threshold entirely.
func (svc *Service) GrabRelease(ctx context.Context, book *models.Book, audio bool, release *indexer.Release) (*models.Activity, error) {
	return svc.enqueue(ctx, book, audio, release)
}

func (svc *Service) enqueue(ctx context.Context, book *models.Book, audio bool, release *indexer.Release) (*models.Activity, error) {
	log := logger.FromContext(ctx)

	nzb, err := svc.indexer.Grab(ctx, release.Link)
	if err != nil {
		return nil, err
	}

	id, err := svc.downloader.Download(ctx, nzb, release.Name)
	if err != nil {
		return nil, err
	}

	activity := &models.Activity{
		ID:           id,
		ReleaseTitle: release.Name,
		BookKey:      book.Key,
		Audio:        audio,
	}
	if err := svc.activityService.CreateActivity(ctx, activity); err != nil {
		return nil, err
	}

	log.Info("release enqueued", logger.Data{
		"book_key": book.Key,
		"audio":    audio,
		"release":  release.Name,
		"job_id":   id,
	})
	return activity, nil
}

// ListActivity merges stored activities with the downloader's live queue and
// history state. A downloader outage degrades to the stored view.
func (svc *Service) ListActivity(ctx context.Context, opts activities.ListActivitiesOptions) ([]*ActivityView, int, error) {
	log := logger.FromContext(ctx)

	list, total, err := svc.activityService.ListActivitiesWithTotal(ctx, opts)
	if err != nil {
		return nil, 0, err
	}

	jobs := map[string]downloader.Job{}
	if queue, err := svc.downloader.Queue(ctx); err != nil {
		log.Err(err).Error("list downloader queue")
	} else {
		for id, job := range queue {
			jobs[id] = job
		}
	}
	if history, err := svc.downloader.History(ctx); err != nil {
		log.Err(err).Error("list downloader history")
	} else {
		for id, job := range history {
			jobs[id] = job
		}
	}

	views := make([]*ActivityView, 0, len(list))
	for _, activity := range list {
		view := &ActivityView{Activity: activity}
		if job, ok := jobs[activity.ID]; ok {
			view.DownloaderStatus = &job.Status
			view.Percentage = &job.Percentage
		}
		views = append(views, view)
	}
	return views, total, nil
}

// CancelActivity removes the job from the downloader queue and marks the
// activity canceled.
func (svc *Service) CancelActivity(ctx context.Context, activity *models.Activity) error {
	log := logger.FromContext(ctx)

	if err := svc.downloader.RemoveFromQueue(ctx, activity.ID); err != nil {
		// Already gone from the queue is fine; the transition below still
		// stops the import tick from picking the job up.
		log.Err(err).Error("remove from downloader queue", logger.Data{"activity_id": activity.ID})
	}
	return svc.activityService.Transition(ctx, activity, models.ActivityStatusCanceled)
}

// ImportCompleted is the import job's tick: every completed history entry
// with a pending activity gets imported and removed from history. Failed
// entries fail their activity. Errors are contained per entry.
func (svc *Service) ImportCompleted(ctx context.Context) error {
	log := logger.FromContext(ctx)

	history, err := svc.downloader.History(ctx)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		return nil
	}

	categoryRoot, err := svc.downloader.CategoryDir(ctx)
	if err != nil {
		return err
	}

	for id, job := range history {
		if err := svc.consumeHistoryEntry(ctx, id, job, categoryRoot); err != nil {
			log.Err(err).Error("consume history entry", logger.Data{
				"job_id": id,
				"name":   job.Name,
			})
		}
	}
	return nil
}

func (svc *Service) consumeHistoryEntry(ctx context.Context, id string, job downloader.Job, categoryRoot string) error {
	activity, err := svc.activityService.RetrieveActivity(ctx, activities.RetrieveActivityOptions{ID: &id})
	if err != nil {
		if errors.Is(err, errcodes.NotFound("Activity")) {
			// Not ours; leave foreign history entries alone.
			return nil
		}
		return err
	}
	if activity.Status != models.ActivityStatusDownload {
		return nil
	}

	switch job.Status {
	case downloader.StatusFailed:
		if err := svc.activityService.Transition(ctx, activity, models.ActivityStatusFailed); err != nil {
			return err
		}
		return svc.downloader.RemoveFromHistory(ctx, id)

	case downloader.StatusCompleted:
		book, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{
			Key:           &activity.BookKey,
			LoadRelations: true,
		})
		if err != nil {
			return err
		}
		err = svc.importService.Import(ctx, importer.Params{
			Activity:           activity,
			Book:               book,
			Audio:              activity.Audio,
			SourcePath:         job.StoragePath,
			CategoryRoot:       categoryRoot,
			OverwriteAncestors: true,
		})
		if err != nil {
			// Import already marked the activity failed and rolled back;
			// drop the entry so the tick does not retry a poisoned job.
			if rerr := svc.downloader.RemoveFromHistory(ctx, id); rerr != nil {
				return rerr
			}
			return err
		}
		return svc.downloader.RemoveFromHistory(ctx, id)
	}

	// Still downloading or post-processing.
	return nil
}
