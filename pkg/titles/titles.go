// Package titles normalizes raw catalog titles: it strips series names,
// volume/part tokens, and known noise phrases so that editions of the same
// book filed under slightly different names reduce to one display title.
package titles

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	leadingNonWord  = regexp.MustCompile(`^[^\p{L}\p{N}]*`)
	trailingNonWord = regexp.MustCompile(`[^\p{L}\p{N}]*$`)
	abridgedNote    = regexp.MustCompile(`(?i)\(.*kürz.*\)`)

	seriesPrefixArticle = `\b(?:(?:der)|(?:die)|(?:das)|)\W*`

	leadingSeriesArticle = regexp.MustCompile(`^Die`)
	trailingReiheSuffix  = regexp.MustCompile(`-*Reihe$`)
	trailingSerieSuffix  = regexp.MustCompile(`-*Serie$`)

	positionWords = `(?:(?:b(?:(?:an)|)d)|(?:teil)|(?:folge)|(?:buch)|(?:volume)|(?:vol)|(?:part)|(?:episode)|)`

	strippablePos = regexp.MustCompile(`(?i)` + positionWords + `\W*\d+\W*-*\W*`)

	umlautReplacer = strings.NewReplacer(
		"ä", "ae", "Ä", "Ae",
		"ö", "oe", "Ö", "Oe",
		"ü", "ue", "Ü", "Ue",
		"ß", "ss",
	)
	umlautRE = regexp.MustCompile(`(?i)[äöüß]`)

	diaeresisReplacer = strings.NewReplacer(
		"a¨", "ä", "A¨", "Ä",
		"o¨", "ö", "O¨", "Ö",
		"u¨", "ü", "U¨", "Ü",
	)
)

// Clean strips the series name and a leading/trailing position token from a
// raw edition title. It never returns an empty string: when everything was
// stripped away the trimmed original is returned instead, so a title that was
// only "Series Name - Position" survives as its own tag.
func Clean(title, seriesTitle string, seriesPos *float64) string {
	return clean(title, seriesTitle, seriesPos, false)
}

// CleanAllowEmpty is Clean without the non-empty guarantee. Callers use the
// empty result as a signal that the title carried no information beyond the
// series tag.
func CleanAllowEmpty(title, seriesTitle string, seriesPos *float64) string {
	return clean(title, seriesTitle, seriesPos, true)
}

func clean(title, seriesTitle string, seriesPos *float64, canBeEmpty bool) string {
	bak := title

	title = FixDiaeresis(title)
	if seriesTitle != "" {
		stripped := stripSeriesName(title, seriesTitle)
		if stripped == title {
			// fallback: the scrape sometimes swaps hyphens for spaces
			stripped = stripSeriesName(title, strings.ReplaceAll(seriesTitle, "-", " "))
		}
		title = stripped
	}

	pos := ""
	if seriesPos != nil {
		pos = fmt.Sprintf("%d", int(*seriesPos))
	}
	title = abridgedNote.ReplaceAllString(title, "")
	title = stripNonWord(title)
	leadingPos := regexp.MustCompile(`(?i)^` + positionWords + `\W*0*` + pos)
	trailingPos := regexp.MustCompile(`(?i)` + positionWords + `\W*0*` + pos + `$`)
	title = leadingPos.ReplaceAllString(title, "")
	title = trailingPos.ReplaceAllString(title, "")
	// known noise pattern left behind by the catalog's truncated subtitles
	title = strings.ReplaceAll(title, " - , Teil", "")
	title = stripNonWord(title)
	title = reconstructParentheses(title)
	if canBeEmpty {
		return title
	}
	if title == "" {
		return strings.TrimSpace(bak)
	}
	return title
}

// CleanSeries normalizes a scraped series heading ("Weitere Bände von X",
// "X-Reihe") down to the bare series name.
func CleanSeries(title string) string {
	bak := title
	title = strings.ReplaceAll(title, "Weitere Bände von ", "")
	title = FixDiaeresis(title)
	title = stripNonWord(title)
	title = leadingSeriesArticle.ReplaceAllString(title, "")
	title = trailingReiheSuffix.ReplaceAllString(title, "")
	title = trailingSerieSuffix.ReplaceAllString(title, "")
	title = stripNonWord(title)
	title = reconstructParentheses(title)
	if title == "" {
		return strings.TrimSpace(bak)
	}
	return title
}

// StripPos removes any volume/part token regardless of its number. The
// reimport matcher uses it on directory names before fuzzy matching.
func StripPos(text string) string {
	return strippablePos.ReplaceAllString(text, "")
}

func stripSeriesName(title, seriesTitle string) string {
	re, err := regexp.Compile(`(?i)` + seriesPrefixArticle + regexp.QuoteMeta(seriesTitle) + `\W`)
	if err != nil {
		return title
	}
	return re.ReplaceAllString(title, "")
}

// reconstructParentheses appends the closers for any bracket left unbalanced
// by a truncation further up.
func reconstructParentheses(title string) string {
	pairs := map[rune]rune{'(': ')', '[': ']', '{': '}'}
	var stack []rune
	for _, ch := range title {
		if closer, ok := pairs[ch]; ok {
			stack = append(stack, closer)
		} else if len(stack) > 0 && ch == stack[len(stack)-1] {
			stack = stack[:len(stack)-1]
		}
	}
	for len(stack) > 0 {
		title += string(stack[len(stack)-1])
		stack = stack[:len(stack)-1]
	}
	return title
}

func stripNonWord(text string) string {
	text = leadingNonWord.ReplaceAllString(text, "")
	return trailingNonWord.ReplaceAllString(text, "")
}

// FixUmlaut transliterates German umlauts for indexer queries that choke on
// them.
func FixUmlaut(text string) string {
	return umlautReplacer.Replace(text)
}

// HasUmlaut reports whether the text contains German umlauts or ß.
func HasUmlaut(text string) bool {
	return umlautRE.MatchString(text)
}

// FixDiaeresis repairs combining-diaeresis sequences ("a¨") the catalog
// occasionally emits instead of precomposed umlauts.
func FixDiaeresis(title string) string {
	return diaeresisReplacer.Replace(title)
}
