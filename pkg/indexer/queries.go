package indexer

import (
	"fmt"
	"math"
	"strings"

	"github.com/foliarr/foliarr/pkg/models"
	"github.com/foliarr/foliarr/pkg/titles"
)

// buildQueries produces the fallback ladder for a book, most specific first:
// author+title, bare title, umlaut-normalized variants of both, then
// series+position variants. Order is significant; the first query whose
// results clear the similarity threshold wins.
func buildQueries(book *models.Book) []string {
	var queries []string
	add := func(q string) {
		q = strings.Join(strings.Fields(q), " ")
		if q == "" {
			return
		}
		for _, existing := range queries {
			if existing == q {
				return
			}
		}
		queries = append(queries, q)
	}

	authorName := ""
	if book.Author != nil && !book.Author.IsSeries {
		authorName = book.Author.Name
	}

	add(authorName + " " + book.Name)
	add(book.Name)

	// German releases are inconsistent about ä/ae spellings; retry with the
	// transliterated forms when the names carry umlauts.
	if titles.HasUmlaut(authorName + book.Name) {
		add(titles.FixUmlaut(authorName) + " " + titles.FixUmlaut(book.Name))
		add(titles.FixUmlaut(book.Name))
	}

	if book.Series != nil && book.Position != nil {
		pos := formatQueryPosition(*book.Position)
		add(authorName + " " + book.Series.Name + " " + pos)
		add(book.Series.Name + " " + pos)
		if titles.HasUmlaut(book.Series.Name) {
			add(titles.FixUmlaut(book.Series.Name) + " " + pos)
		}
	}

	return queries
}

func formatQueryPosition(pos float64) string {
	if pos == math.Trunc(pos) {
		return fmt.Sprintf("%d", int64(pos))
	}
	return fmt.Sprintf("%g", pos)
}
