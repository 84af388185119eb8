// Package rank holds the candidate and fused-row types the fusion
// retrieval engine works with. Everything here is per-request local state.
package rank

import "github.com/harborline/catalogsearch/internal/domain/object"

// Signal identifies one of the three independent retrieval signals.
type Signal int

// Signals, in breakdown-report order.
const (
	SignalTrigram Signal = iota // fuzzy lexical, misspelling-tolerant
	SignalTokens                // exact/stemmed lexical
	SignalVector                // embedding nearest-neighbor
)

func (s Signal) String() string {
	switch s {
	case SignalTrigram:
		return "trigram"
	case SignalTokens:
		return "tokens"
	case SignalVector:
		return "vector"
	}
	return "unknown"
}

// Candidate is one scored hit from a single signal, rank 1-based within
// that signal's descending-score list.
type Candidate struct {
	Key   object.Key
	Score float64
	Rank  int
}

// SignalHit is one signal's contribution to a merged row. Rank 0 means
// the signal did not surface the object.
type SignalHit struct {
	Score float64
	Rank  int
}

// Present reports whether the signal surfaced the object.
func (h SignalHit) Present() bool { return h.Rank > 0 }

// Row is the outer-join merge of the three signal lists for one object
// under one rewrite.
type Row struct {
	Key     object.Key
	Rewrite int // 1-based rewrite index
	Trigram SignalHit
	Tokens  SignalHit
	Vector  SignalHit
}

// Empty reports whether no signal scored the object at all. Empty rows
// are dropped before fusion.
func (r Row) Empty() bool {
	return r.Trigram.Score == 0 && r.Tokens.Score == 0 && r.Vector.Score == 0
}

// RRF computes the row's reciprocal-rank-fusion score with smoothing
// constant k: sum of 1/(k+rank) over the signals that surfaced the
// object. A missing signal contributes 0.
func (r Row) RRF(k int) float64 {
	var score float64
	for _, hit := range []SignalHit{r.Trigram, r.Tokens, r.Vector} {
		if hit.Present() {
			score += 1.0 / float64(k+hit.Rank)
		}
	}
	return score
}

// Fused is one row of the final ranked page. The breakdown reports the
// winning rewrite's per-signal ranks and scores so callers can render
// "why this result" explanations.
type Fused struct {
	Key        object.Key
	Payload    []byte
	RawText    string
	FusedScore float64
	Rewrite    int // 1-based index of the winning rewrite
	Trigram    SignalHit
	Tokens     SignalHit
	Vector     SignalHit
}
