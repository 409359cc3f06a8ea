// Package indexer talks to a newznab search indexer. It owns the query
// fallback ladder: progressively looser queries are tried until one returns
// a release similar enough to the book being sought.
package indexer

import (
	"context"

	"github.com/foliarr/foliarr/pkg/models"
)

// Release is one search result an indexer returned.
type Release struct {
	Name string `json:"name"`
	GUID string `json:"guid"`
	// Link is the download reference handed to Grab.
	Link string `json:"link"`
}

// ManualPage is one page of raw results for the manual-search UI.
type ManualPage struct {
	Query    string    `json:"query"`
	Releases []Release `json:"releases"`
	Pages    int       `json:"pages"`
}

// Indexer searches for and fetches releases. QueryBook returns nil (and no
// error) when nothing acceptable was found.
type Indexer interface {
	QueryBook(ctx context.Context, book *models.Book, audio bool) (*Release, error)
	QueryManual(ctx context.Context, book *models.Book, page int, audio bool) (*ManualPage, error)
	Grab(ctx context.Context, link string) ([]byte, error)
}
