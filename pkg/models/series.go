package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Series struct {
	bun.BaseModel `bun:"table:series,alias:s"`

	Key       string    `bun:",pk" json:"key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `bun:",nullzero" json:"name"`
	AuthorKey string    `bun:",nullzero" json:"author_key"`
	AudioLoc  *string   `bun:"audio_loc" json:"audio_loc,omitempty"`
	BookLoc   *string   `bun:"book_loc" json:"book_loc,omitempty"`

	Author *Author `bun:"rel:belongs-to,join:author_key=key" json:"author,omitempty"`
	// Books are kept ordered by position; queries load them with an ORDER BY
	// on position so fractional tie-break slots stay in sequence.
	Books []*Book `bun:"rel:has-many,join:key=series_key" json:"books,omitempty"`
}

// Loc returns the download location prefix for the given media slot.
func (s *Series) Loc(audio bool) *string {
	if audio {
		return s.AudioLoc
	}
	return s.BookLoc
}

// SetLoc sets the download location prefix for the given media slot.
func (s *Series) SetLoc(audio bool, loc *string) {
	if audio {
		s.AudioLoc = loc
	} else {
		s.BookLoc = loc
	}
}

// MaxPosition returns the highest series position among the loaded books.
// Used to derive the zero-padding width for destination paths.
func (s *Series) MaxPosition() float64 {
	max := 0.0
	for _, b := range s.Books {
		if b.Position != nil && *b.Position > max {
			max = *b.Position
		}
	}
	return max
}
