package retrieval

import (
	"sort"

	"github.com/harborline/catalogsearch/internal/domain/object"
	"github.com/harborline/catalogsearch/internal/domain/rank"
)

// mergeRewrite outer-joins the three signal lists of one rewrite into
// per-object rows. Join order (trigram, then tokens, then vector) fixes
// each row's insertion position, which later tie-breaks carry through.
// Rows no signal scored are dropped.
func mergeRewrite(rewriteIdx int, trigram, tokens, vector []rank.Candidate) []rank.Row {
	byKey := make(map[object.Key]int, len(trigram)+len(tokens)+len(vector))
	rows := make([]rank.Row, 0, len(trigram)+len(tokens)+len(vector))

	at := func(key object.Key) *rank.Row {
		if i, ok := byKey[key]; ok {
			return &rows[i]
		}
		rows = append(rows, rank.Row{Key: key, Rewrite: rewriteIdx})
		byKey[key] = len(rows) - 1
		return &rows[len(rows)-1]
	}

	for _, c := range trigram {
		at(c.Key).Trigram = rank.SignalHit{Score: c.Score, Rank: c.Rank}
	}
	for _, c := range tokens {
		at(c.Key).Tokens = rank.SignalHit{Score: c.Score, Rank: c.Rank}
	}
	for _, c := range vector {
		at(c.Key).Vector = rank.SignalHit{Score: c.Score, Rank: c.Rank}
	}

	kept := rows[:0]
	for _, row := range rows {
		if !row.Empty() {
			kept = append(kept, row)
		}
	}
	return kept
}

// fusedEntry is one object's best row across rewrites, before hydration.
type fusedEntry struct {
	row   rank.Row
	score float64
	order int // global insertion order, final tie-break
}

// fuse scores every row with RRF and keeps, per object, the rewrite that
// fused best. Ties go to the lower rewrite index, then to whichever row
// was seen first. The result is sorted by fused score descending with
// the same tie-break, truncated to limit.
func fuse(rowsByRewrite [][]rank.Row, rrfK, limit int) []fusedEntry {
	best := make(map[object.Key]int)
	entries := make([]fusedEntry, 0)

	for _, rows := range rowsByRewrite {
		for _, row := range rows {
			score := row.RRF(rrfK)
			i, seen := best[row.Key]
			if !seen {
				best[row.Key] = len(entries)
				entries = append(entries, fusedEntry{row: row, score: score, order: len(entries)})
				continue
			}
			// Rewrites arrive in index order, so on an exact tie the
			// earlier rewrite already holds the slot.
			if score > entries[i].score {
				entries[i].row = row
				entries[i].score = score
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		if entries[i].row.Rewrite != entries[j].row.Rewrite {
			return entries[i].row.Rewrite < entries[j].row.Rewrite
		}
		return entries[i].order < entries[j].order
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}
