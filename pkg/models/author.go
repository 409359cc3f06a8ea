package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Author struct {
	bun.BaseModel `bun:"table:authors,alias:a"`

	Key       string    `bun:",pk" json:"key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Name      string    `bun:",nullzero" json:"name"`
	Image     *string   `json:"image,omitempty"`
	Bio       *string   `json:"bio,omitempty"`
	// IsSeries marks a synthetic author that stands in for a standalone
	// series with no single author. Series path segments are suppressed for
	// its books since author and series would be redundant.
	IsSeries bool    `json:"is_series"`
	AudioLoc *string `bun:"audio_loc" json:"audio_loc,omitempty"`
	BookLoc  *string `bun:"book_loc" json:"book_loc,omitempty"`

	Series []*Series `bun:"rel:has-many,join:key=author_key" json:"series,omitempty"`
	Books  []*Book   `bun:"rel:has-many,join:key=author_key" json:"books,omitempty"`
}

// Loc returns the download location prefix for the given media slot.
func (a *Author) Loc(audio bool) *string {
	if audio {
		return a.AudioLoc
	}
	return a.BookLoc
}

// SetLoc sets the download location prefix for the given media slot.
func (a *Author) SetLoc(audio bool, loc *string) {
	if audio {
		a.AudioLoc = loc
	} else {
		a.BookLoc = loc
	}
}
