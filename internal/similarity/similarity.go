// Package similarity scores token sequences by character bigram overlap
// (the Sørensen–Dice coefficient).
package similarity

import (
	"strings"
	"unicode"
)

// Separator joins tokens before bigrams are taken, so word boundaries take
// part in the comparison.
const Separator = "|"

// Render turns a token sequence into the string that Score compares.
func Render(tokens []string) string {
	return strings.Join(tokens, Separator)
}

// Score compares two token sequences. It is symmetric, returns 1 for equal
// sequences (including two empty ones) and 0 when exactly one is empty.
func Score(a, b []string) float64 {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 1
	case len(a) == 0 || len(b) == 0:
		return 0
	}
	return Compare(Render(a), Render(b))
}

// Compare returns the Dice coefficient of the rune bigrams of a and b after
// whitespace is removed.
func Compare(a, b string) float64 {
	ra := stripSpace(a)
	rb := stripSpace(b)
	if string(ra) == string(rb) {
		return 1
	}
	if len(ra) < 2 || len(rb) < 2 {
		return 0
	}

	counts := make(map[[2]rune]int, len(ra)-1)
	for i := 0; i+1 < len(ra); i++ {
		counts[[2]rune{ra[i], ra[i+1]}]++
	}
	shared := 0
	for i := 0; i+1 < len(rb); i++ {
		k := [2]rune{rb[i], rb[i+1]}
		if counts[k] > 0 {
			counts[k]--
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ra)+len(rb)-2)
}

func stripSpace(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			out = append(out, r)
		}
	}
	return out
}
