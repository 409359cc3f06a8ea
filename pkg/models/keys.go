package models

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// NewKey generates a short uppercase hex key for locally created records
// (books, series, synthetic series-authors). Catalog-sourced records keep
// their external catalog ids as keys instead.
func NewKey() string {
	id := uuid.New()
	return strings.ToUpper(hex.EncodeToString(id[:6]))
}
