// Package scrape defines the boundary between the catalog scraper and the
// reconciliation engine. Scraped data is validated here, before anything
// downstream trusts it.
package scrape

import (
	"context"

	"github.com/foliarr/foliarr/pkg/errcodes"
	"github.com/go-playground/validator/v10"
)

// EditionInput is one scraped catalog edition. Key must be stable across
// repeated scrapes of the same catalog item.
type EditionInput struct {
	Key       string   `json:"key" validate:"required"`
	Title     string   `json:"title" validate:"required"`
	Image     string   `json:"image"`
	Medium    string   `json:"medium" validate:"required"`
	Position  *float64 `json:"position"`
	Publisher *string  `json:"publisher"`
	Language  *string  `json:"language"`
	ISBN      *string  `json:"isbn"`
}

// Group is the set of editions the scraper filed under one catalog entry,
// plus the series title that entry claimed, if any.
type Group struct {
	Editions    []EditionInput `json:"editions" validate:"min=1,dive"`
	SeriesTitle *string        `json:"series_title"`
}

// AuthorData is everything one author-import call receives from the scraper.
type AuthorData struct {
	Key      string  `json:"key" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Image    *string `json:"image"`
	Bio      *string `json:"bio"`
	IsSeries bool    `json:"is_series"`
	Groups   []Group `json:"groups" validate:"dive"`
}

// Scraper fetches author metadata and edition groups from the catalog.
type Scraper interface {
	FetchAuthor(ctx context.Context, key string) (*AuthorData, error)
	SearchAuthors(ctx context.Context, query string) ([]AuthorRef, error)
}

// AuthorRef is a search result: enough to show a picker and start an import.
type AuthorRef struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

var validate = validator.New()

// Validate checks scraped author data before it enters reconciliation.
func Validate(data *AuthorData) error {
	if err := validate.Struct(data); err != nil {
		return errcodes.ScrapeFailure(err.Error())
	}
	return nil
}
