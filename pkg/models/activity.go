package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	// ActivityStatusDownload is the initial state: the release is enqueued
	// with the external downloader.
	ActivityStatusDownload = "download"
	// ActivityStatusImported means the file was successfully placed.
	ActivityStatusImported = "imported"
	// ActivityStatusCanceled means the job was removed from the downloader
	// queue before completion.
	ActivityStatusCanceled = "canceled"
	// ActivityStatusFailed means the move or placement raised.
	ActivityStatusFailed = "failed"
	// ActivityStatusOverwritten means a newer activity replaced this one's
	// file for the same book and media slot.
	ActivityStatusOverwritten = "overwritten"
	// ActivityStatusDeleted means the rescan job found the backing file
	// missing.
	ActivityStatusDeleted = "deleted"
)

// activityTransitions is the full transition table. canceled, failed,
// overwritten, and deleted are terminal.
var activityTransitions = map[string][]string{
	ActivityStatusDownload: {ActivityStatusImported, ActivityStatusFailed, ActivityStatusCanceled},
	ActivityStatusImported: {ActivityStatusOverwritten, ActivityStatusDeleted},
}

// CanTransitionActivity reports whether an activity may move from one status
// to another.
func CanTransitionActivity(from, to string) bool {
	for _, next := range activityTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Activity tracks one download/import job tied to a book and a media slot.
// Its id is assigned by the external downloader, or generated locally for
// synthetic retag/reimport entries.
type Activity struct {
	bun.BaseModel `bun:"table:activities,alias:act"`

	ID           string    `bun:",pk" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ReleaseTitle string    `bun:",nullzero" json:"release_title"`
	BookKey      string    `bun:",nullzero" json:"book_key"`
	// Audio selects which media slot this activity targets.
	Audio  bool    `json:"audio"`
	GUID   *string `json:"guid,omitempty"`
	Status string  `bun:",nullzero" json:"status"`

	Book *Book `bun:"rel:belongs-to,join:book_key=key" json:"book,omitempty"`
}
