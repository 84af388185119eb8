// Package textproc provides the pure text and vector functions the
// retrieval signals are built from: trigram similarity, token
// normalization, content fingerprints and cosine similarity.
package textproc

import "strings"

// Trigrams extracts the padded character trigram set of s.
// Each alphanumeric word is lowercased and padded with two leading and
// one trailing space before 3-grams are taken, so word boundaries weigh
// into the similarity the same way they do in trigram text indexes.
func Trigrams(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, word := range splitWords(s) {
		padded := "  " + word + " "
		for i := 0; i+3 <= len(padded); i++ {
			set[padded[i:i+3]] = struct{}{}
		}
	}
	return set
}

// TrigramSimilarity returns the Jaccard similarity of the trigram sets of
// a and b, in [0,1]. Misspellings shift only a few trigrams, so close
// spellings keep a high score.
func TrigramSimilarity(a, b string) float64 {
	ta := Trigrams(a)
	tb := Trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for g := range ta {
		if _, ok := tb[g]; ok {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// splitWords lowercases s and splits it into maximal alphanumeric runs.
func splitWords(s string) []string {
	lower := strings.ToLower(s)
	return strings.FieldsFunc(lower, func(r rune) bool {
		return !isAlnum(r)
	})
}

func isAlnum(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r >= 'A' && r <= 'Z' ||
		r >= 0x00C0 // keep accented and non-latin letters as word runes
}
