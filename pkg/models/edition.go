package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	MediumAudiobook = "audiobook"
	MediumHardcover = "hardcover"
	MediumPaperback = "paperback"
	MediumEbook     = "ebook"
)

// mediumPriorities ranks formats for picking a book's canonical display
// edition. Lower is better.
var mediumPriorities = map[string]int{
	MediumAudiobook: 0,
	MediumHardcover: 1,
	MediumPaperback: 2,
	MediumEbook:     3,
}

// MediumPriority returns the rank for a format code. Unknown formats sort
// last.
func MediumPriority(medium string) int {
	if p, ok := mediumPriorities[medium]; ok {
		return p
	}
	return 10
}

// Edition is one specific manifestation of a book in the catalog. Its key is
// the external catalog id and is globally unique: no two books may share an
// edition key.
type Edition struct {
	bun.BaseModel `bun:"table:editions,alias:e"`

	Key       string    `bun:",pk" json:"key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	BookKey   string    `bun:",nullzero" json:"book_key"`
	Title     string    `bun:",nullzero" json:"title"`
	Image     *string   `json:"image,omitempty"`
	Medium    string    `bun:",nullzero" json:"medium"`
	Publisher *string   `json:"publisher,omitempty"`
	Language  *string   `json:"language,omitempty"`
	ISBN      *string   `json:"isbn,omitempty"`

	Book *Book `bun:"rel:belongs-to,join:book_key=key" json:"book,omitempty"`
}
