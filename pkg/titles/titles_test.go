package titles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatPtr(f float64) *float64 {
	return &f
}

func TestClean(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		seriesTitle string
		seriesPos   *float64
		expected    string
	}{
		{
			name:     "plain title untouched",
			title:    "The Hobbit",
			expected: "The Hobbit",
		},
		{
			name:        "series name stripped",
			title:       "Skulduggery Pleasant - Auferstehung",
			seriesTitle: "Skulduggery Pleasant",
			expected:    "Auferstehung",
		},
		{
			name:        "series name with hyphen fallback",
			title:       "Skulduggery Pleasant Auferstehung",
			seriesTitle: "Skulduggery-Pleasant",
			expected:    "Auferstehung",
		},
		{
			name:        "leading position token stripped",
			title:       "Band 3 - Auferstehung",
			seriesTitle: "",
			seriesPos:   floatPtr(3),
			expected:    "Auferstehung",
		},
		{
			name:        "trailing position token stripped",
			title:       "Auferstehung, Teil 3",
			seriesTitle: "",
			seriesPos:   floatPtr(3),
			expected:    "Auferstehung",
		},
		{
			name:        "zero padded position",
			title:       "Folge 03: Auferstehung",
			seriesPos:   floatPtr(3),
			expected:    "Auferstehung",
		},
		{
			name:        "title that is only the series tag falls back",
			title:       "Skulduggery Pleasant 3",
			seriesTitle: "Skulduggery Pleasant",
			seriesPos:   floatPtr(3),
			expected:    "Skulduggery Pleasant 3",
		},
		{
			name:     "unbalanced parenthesis repaired",
			title:    "Auferstehung (Ungekürzt",
			expected: "Auferstehung (Ungekürzt)",
		},
		{
			name:     "surrounding punctuation trimmed",
			title:    " - Auferstehung: ",
			expected: "Auferstehung",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Clean(tt.title, tt.seriesTitle, tt.seriesPos)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// Normalizing an already-normalized title must return it unchanged.
func TestCleanIdempotent(t *testing.T) {
	titles := []string{
		"Auferstehung",
		"The Hobbit",
		"Krieg der Welten (Ungekürzt)",
	}
	for _, title := range titles {
		once := Clean(title, "Some Series", floatPtr(2))
		twice := Clean(once, "Some Series", floatPtr(2))
		assert.Equal(t, once, twice)
	}
}

func TestCleanAllowEmpty(t *testing.T) {
	pos := floatPtr(3)
	result := CleanAllowEmpty("Skulduggery Pleasant 3", "Skulduggery Pleasant", pos)
	assert.Empty(t, result)

	result = CleanAllowEmpty("Skulduggery Pleasant 3 - Auferstehung", "Skulduggery Pleasant", pos)
	assert.Equal(t, "Auferstehung", result)
}

func TestCleanSeries(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Weitere Bände von Skulduggery Pleasant", "Skulduggery Pleasant"},
		{"Götterfunke-Reihe", "Götterfunke"},
		{"Chroniken der Unterwelt-Serie", "Chroniken der Unterwelt"},
		{"  Nebelreich  ", "Nebelreich"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, CleanSeries(tt.input))
	}
}

func TestStripPos(t *testing.T) {
	assert.Equal(t, "auferstehung", StripPos("band 3 - auferstehung"))
	assert.Equal(t, "auferstehung", StripPos("teil 12 auferstehung"))
}

func TestUmlautHelpers(t *testing.T) {
	assert.True(t, HasUmlaut("Götterfunke"))
	assert.False(t, HasUmlaut("Resurrection"))
	assert.Equal(t, "Goetterfunke", FixUmlaut("Götterfunke"))
	assert.Equal(t, "Straße", FixDiaeresis("Straße"))
	assert.Equal(t, "Träume", FixDiaeresis("Tra¨ume"))
}
