package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
		min  int
		max  int
	}{
		{name: "identical", a: "nebelreich", b: "nebelreich", min: 100, max: 100},
		{name: "empty left", a: "", b: "nebelreich", min: 0, max: 0},
		{name: "empty right", a: "nebelreich", b: "", min: 0, max: 0},
		{name: "close", a: "auferstehung", b: "auferstehungen", min: 85, max: 99},
		{name: "unrelated", a: "nebelreich", b: "zzzzzzzz", min: 0, max: 20},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			score := Ratio(test.a, test.b)
			assert.GreaterOrEqual(t, score, test.min)
			assert.LessOrEqual(t, score, test.max)
		})
	}
}

func TestTokenSetRatio(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100, TokenSetRatio("skulduggery pleasant", "pleasant skulduggery"))
	assert.Equal(t, 100, TokenSetRatio("die chroniken der unterwelt", "chroniken der unterwelt die die"))

	// Subset on one side still scores high through the intersection.
	score := TokenSetRatio("chroniken der unterwelt", "chroniken der unterwelt city of bones")
	assert.GreaterOrEqual(t, score, 80)

	assert.Equal(t, 0, TokenSetRatio("", "nebelreich"))
}

func TestNormalizedScore(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 100, NormalizedScore("Skulduggery Pleasant!", "skulduggery-pleasant"))

	// Short names skip the token-set comparison.
	assert.Equal(t, 100, NormalizedScore("Es", "es"))
	assert.Less(t, NormalizedScore("Es", "Er"), 80)

	assert.Less(t, NormalizedScore("Nebelreich", "Krieg der Welten"), 45)
}

func TestBestMatch(t *testing.T) {
	t.Parallel()

	idx, score := BestMatch("Auferstehung", []string{"Krieg der Welten", "Auferstehung (Ungekürzt)", "Nebelreich"})
	assert.Equal(t, 1, idx)
	assert.GreaterOrEqual(t, score, 80)

	idx, score = BestMatch("Auferstehung", nil)
	assert.Equal(t, -1, idx)
	assert.Equal(t, -1, score)
}
