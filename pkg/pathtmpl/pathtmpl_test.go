package pathtmpl

import (
	"testing"

	"github.com/foliarr/foliarr/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultTemplate = `{{author.name}}/{{series.name}}/{{book.position} - }{{book.name}}`

func floatPtr(f float64) *float64 { return &f }

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("rejects unbalanced braces", func(t *testing.T) {
		t.Parallel()

		_, err := Parse(`{{author.name}/{book.name}`)
		assert.Error(t, err)

		_, err = Parse(`{author.name}}`)
		assert.Error(t, err)
	})

	t.Run("rejects deep field paths", func(t *testing.T) {
		t.Parallel()

		_, err := Parse(`{book.series.author.name}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "deeper")
	})

	t.Run("accepts the default template", func(t *testing.T) {
		t.Parallel()

		_, err := Parse(defaultTemplate)
		assert.NoError(t, err)
	})
}

func TestResolve(t *testing.T) {
	t.Parallel()

	author := &models.Author{Key: "A1", Name: "Derek Landy"}
	series := &models.Series{
		Key:       "S1",
		Name:      "Skulduggery Pleasant",
		AuthorKey: "A1",
		Books: []*models.Book{
			{Key: "B1", Position: floatPtr(3)},
			{Key: "B2", Position: floatPtr(14)},
		},
	}

	tmpl, err := Parse(defaultTemplate)
	require.NoError(t, err)

	t.Run("book in a series", func(t *testing.T) {
		t.Parallel()

		res, err := tmpl.Resolve(Input{
			Author: author,
			Series: series,
			Book:   &models.Book{Key: "B1", Name: "Auferstehung", Position: floatPtr(3)},
		})
		require.NoError(t, err)
		assert.Equal(t, "Derek Landy/Skulduggery Pleasant/03 - Auferstehung", res.Path)
		assert.Equal(t, "Derek Landy", res.AuthorPrefix)
		assert.Equal(t, "Derek Landy/Skulduggery Pleasant", res.SeriesPrefix)
	})

	t.Run("standalone book drops series segments", func(t *testing.T) {
		t.Parallel()

		res, err := tmpl.Resolve(Input{
			Author: author,
			Book:   &models.Book{Key: "B3", Name: "Nebelreich"},
		})
		require.NoError(t, err)
		assert.Equal(t, "Derek Landy/Nebelreich", res.Path)
		assert.Equal(t, "Derek Landy", res.AuthorPrefix)
		assert.Empty(t, res.SeriesPrefix)
	})

	t.Run("series-as-author suppresses the series directory but keeps the ordinal", func(t *testing.T) {
		t.Parallel()

		res, err := tmpl.Resolve(Input{
			Author: &models.Author{Key: "A2", Name: "Die drei Fragezeichen", IsSeries: true},
			Series: series,
			Book:   &models.Book{Key: "B4", Name: "Der Superpapagei", Position: floatPtr(1)},
		})
		require.NoError(t, err)
		assert.Equal(t, "Die drei Fragezeichen/01 - Der Superpapagei", res.Path)
	})

	t.Run("fractional position keeps its fraction", func(t *testing.T) {
		t.Parallel()

		res, err := tmpl.Resolve(Input{
			Author: author,
			Series: series,
			Book:   &models.Book{Key: "B5", Name: "Zwischenband", Position: floatPtr(7.5)},
		})
		require.NoError(t, err)
		assert.Equal(t, "Derek Landy/Skulduggery Pleasant/07.5 - Zwischenband", res.Path)
	})

	t.Run("unsafe characters are stripped from segments", func(t *testing.T) {
		t.Parallel()

		res, err := tmpl.Resolve(Input{
			Author: &models.Author{Key: "A3", Name: `Some: Author?`},
			Book:   &models.Book{Key: "B6", Name: `What <is> "this"`},
		})
		require.NoError(t, err)
		assert.Equal(t, "Some Author/What is this", res.Path)
	})
}

func TestFormatPosition(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "3", FormatPosition(3, 1))
	assert.Equal(t, "03", FormatPosition(3, 2))
	assert.Equal(t, "14", FormatPosition(14, 2))
	assert.Equal(t, "01.5", FormatPosition(1.5, 2))
	assert.Equal(t, "103", FormatPosition(103, 2))
}
