package textproc

import (
	"math"
	"strings"
)

// stopwords never make it into the derived token representation.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {},
	"on": {}, "or": {}, "the": {}, "to": {}, "with": {},
}

// Tokenize lowercases, splits and stems s into index terms, dropping
// stopwords and single-character fragments. Order of first occurrence is
// preserved and duplicates are kept (term frequency matters for ranking).
func Tokenize(s string) []string {
	words := splitWords(s)
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := stopwords[w]; stop {
			continue
		}
		t := stem(w)
		if len(t) < 2 {
			continue
		}
		tokens = append(tokens, t)
	}
	return tokens
}

// DeriveTokens builds the derived token representation of an index row:
// the deduplicated, stemmed terms of the raw text followed by those of
// the learned vocabulary, space-joined. It is a pure function of its
// inputs and is recomputed on every write, never edited in place.
func DeriveTokens(rawText, learnedKeywords string) string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range Tokenize(rawText + " " + learnedKeywords) {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return strings.Join(out, " ")
}

// TokenRelevance scores a query against a derived token representation.
// Each distinct stemmed query term found in the document contributes
// 1+ln(1+tf); the sum is scaled by query coverage so documents matching
// more of the query outrank ones matching a single term often.
// Returns 0 when nothing matches.
func TokenRelevance(queryText, docTokens string) float64 {
	queryTerms := Tokenize(queryText)
	if len(queryTerms) == 0 {
		return 0
	}

	tf := make(map[string]int)
	for _, t := range strings.Fields(docTokens) {
		tf[t]++
	}

	distinct := make(map[string]struct{}, len(queryTerms))
	for _, q := range queryTerms {
		distinct[q] = struct{}{}
	}

	var sum float64
	matched := 0
	for q := range distinct {
		if n := tf[q]; n > 0 {
			sum += 1 + math.Log(1+float64(n))
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	coverage := float64(matched) / float64(len(distinct))
	return sum * coverage
}

// stem strips common English inflection suffixes. Deliberately plain:
// the catalog vocabulary is short noun phrases, not prose.
func stem(w string) string {
	switch {
	case strings.HasSuffix(w, "ies") && len(w) > 4:
		return w[:len(w)-3] + "y"
	case strings.HasSuffix(w, "sses"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "xes") || strings.HasSuffix(w, "zes") ||
		strings.HasSuffix(w, "ches") || strings.HasSuffix(w, "shes"):
		return w[:len(w)-2]
	case strings.HasSuffix(w, "ing") && len(w) > 5:
		return w[:len(w)-3]
	case strings.HasSuffix(w, "ed") && len(w) > 4:
		return w[:len(w)-2]
	case strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") && len(w) > 3:
		return w[:len(w)-1]
	}
	return w
}
