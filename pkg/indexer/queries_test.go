package indexer

import (
	"testing"

	"github.com/foliarr/foliarr/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestBuildQueries(t *testing.T) {
	t.Parallel()

	book := &models.Book{
		Name:     "Auferstehung",
		Position: floatPtr(3),
		Author:   &models.Author{Name: "Derek Landy"},
		Series:   &models.Series{Name: "Skulduggery Pleasant"},
	}

	queries := buildQueries(book)
	require.Equal(t, []string{
		"Derek Landy Auferstehung",
		"Auferstehung",
		"Derek Landy Skulduggery Pleasant 3",
		"Skulduggery Pleasant 3",
	}, queries)
}

func TestBuildQueriesUmlautVariants(t *testing.T) {
	t.Parallel()

	book := &models.Book{
		Name:   "Götterfunke",
		Author: &models.Author{Name: "Jennifer Benkau"},
	}

	queries := buildQueries(book)
	assert.Contains(t, queries, "Jennifer Benkau Goetterfunke")
	assert.Contains(t, queries, "Goetterfunke")
	// The literal spellings come first.
	assert.Equal(t, "Jennifer Benkau Götterfunke", queries[0])
}

func TestBuildQueriesSeriesAuthor(t *testing.T) {
	t.Parallel()

	book := &models.Book{
		Name:     "Der Superpapagei",
		Position: floatPtr(1),
		Author:   &models.Author{Name: "Die drei Fragezeichen", IsSeries: true},
		Series:   &models.Series{Name: "Die drei Fragezeichen"},
	}

	queries := buildQueries(book)
	// Synthetic series-authors are left out of the queries.
	assert.Equal(t, "Der Superpapagei", queries[0])
	assert.Contains(t, queries, "Die drei Fragezeichen 1")
}

func TestBuildQueriesFractionalPosition(t *testing.T) {
	t.Parallel()

	book := &models.Book{
		Name:     "Zwischenband",
		Position: floatPtr(7.5),
		Series:   &models.Series{Name: "Reihe"},
	}

	queries := buildQueries(book)
	assert.Contains(t, queries, "Reihe 7.5")
}
