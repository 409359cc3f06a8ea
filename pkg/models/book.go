package models

import (
	"sort"
	"time"

	"github.com/uptrace/bun"
)

type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	Key       string    `bun:",pk" json:"key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `bun:",nullzero" json:"name"`
	AuthorKey string    `bun:",nullzero" json:"author_key"`
	Image     *string   `json:"image,omitempty"`
	SeriesKey *string   `json:"series_key,omitempty"`
	// Position is the ordinal within the series. Fractional values are used
	// as tie-breaks when two editions claim the same integer slot.
	Position *float64 `json:"position,omitempty"`
	AudioLoc *string  `bun:"audio_loc" json:"audio_loc,omitempty"`
	BookLoc  *string  `bun:"book_loc" json:"book_loc,omitempty"`
	// Blocked suppresses re-acquisition and reimport matching.
	Blocked bool `json:"blocked"`
	// Foreign marks a book whose author has not been imported yet.
	Foreign bool `bun:"foreign_author" json:"foreign"`

	Author     *Author     `bun:"rel:belongs-to,join:author_key=key" json:"author,omitempty"`
	Series     *Series     `bun:"rel:belongs-to,join:series_key=key" json:"series,omitempty"`
	Editions   []*Edition  `bun:"rel:has-many,join:key=book_key" json:"editions,omitempty"`
	Activities []*Activity `bun:"rel:has-many,join:key=book_key" json:"activities,omitempty"`
}

// Loc returns the download location for the given media slot.
func (b *Book) Loc(audio bool) *string {
	if audio {
		return b.AudioLoc
	}
	return b.BookLoc
}

// SetLoc sets the download location for the given media slot.
func (b *Book) SetLoc(audio bool, loc *string) {
	if audio {
		b.AudioLoc = loc
	} else {
		b.BookLoc = loc
	}
}

// SortEditions orders the loaded editions by medium priority so the first
// edition is the canonical one for display data.
func (b *Book) SortEditions() {
	sort.SliceStable(b.Editions, func(i, j int) bool {
		return MediumPriority(b.Editions[i].Medium) < MediumPriority(b.Editions[j].Medium)
	})
}

// CanonicalEdition returns the highest-priority edition, or nil when none are
// loaded.
func (b *Book) CanonicalEdition() *Edition {
	if len(b.Editions) == 0 {
		return nil
	}
	b.SortEditions()
	return b.Editions[0]
}
