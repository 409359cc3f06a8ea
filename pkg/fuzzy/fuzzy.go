// Package fuzzy scores string similarity on a 0-100 scale. Scores feed the
// series union, book dedup, reimport, and indexer acceptance thresholds.
package fuzzy

import (
	"regexp"
	"sort"
	"strings"

	"github.com/xrash/smetrics"
)

var nonAlnum = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Ratio is a plain character-level similarity: 100 means identical,
// 0 means nothing in common. Based on edit distance over the two strings.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	dist := smetrics.WagnerFischer(a, b, 1, 1, 2)
	total := len([]rune(a)) + len([]rune(b))
	score := 100 * (total - dist) / total
	if score < 0 {
		return 0
	}
	return score
}

// TokenSetRatio compares the sorted, deduplicated word sets of both strings.
// Word order and repeated words stop mattering, which is what series names
// discovered twice with shuffled subtitles need.
func TokenSetRatio(a, b string) int {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	inter := intersect(ta, tb)
	sortedInter := strings.Join(inter, " ")
	combinedA := strings.Join(ta, " ")
	combinedB := strings.Join(tb, " ")

	if sortedInter == combinedA || sortedInter == combinedB {
		return 100
	}

	best := Ratio(combinedA, combinedB)
	if len(inter) > 0 {
		if s := Ratio(sortedInter, combinedA); s > best {
			best = s
		}
		if s := Ratio(sortedInter, combinedB); s > best {
			best = s
		}
	}
	return best
}

// NormalizedScore lowercases and strips punctuation before scoring. Names of
// three or more characters get the token-set comparison; very short names
// fall back to the plain ratio since their token sets are meaningless.
func NormalizedScore(a, b string) int {
	na := Normalize(a)
	nb := Normalize(b)
	if len(na) >= 3 && len(nb) >= 3 {
		return TokenSetRatio(na, nb)
	}
	return Ratio(na, nb)
}

// Normalize lowercases and collapses punctuation runs to single spaces.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// BestMatch returns the index and score of the candidate most similar to the
// query, or -1 when candidates is empty.
func BestMatch(query string, candidates []string) (int, int) {
	bestIdx := -1
	bestScore := -1
	for i, c := range candidates {
		if score := NormalizedScore(query, c); score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}
	return bestIdx, bestScore
}

func tokenSet(s string) []string {
	seen := map[string]struct{}{}
	var tokens []string
	for _, tok := range strings.Fields(s) {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	sort.Strings(tokens)
	return tokens
}

func intersect(a, b []string) []string {
	set := map[string]struct{}{}
	for _, tok := range b {
		set[tok] = struct{}{}
	}
	var out []string
	for _, tok := range a {
		if _, ok := set[tok]; ok {
			out = append(out, tok)
		}
	}
	return out
}
