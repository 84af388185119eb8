package catalogsearch

import (
	"context"
	"fmt"
	"time"

	"github.com/harborline/catalogsearch/internal/domain/query"
	"github.com/harborline/catalogsearch/internal/domain/rank"
	"github.com/harborline/catalogsearch/internal/domain/scope"
)

// Rewrite is one query rewrite, optionally paired with a precomputed
// embedding. Without an embedding the vector signal is skipped for that
// rewrite and retrieval runs on the lexical signals.
type Rewrite struct {
	Text      string
	Embedding []float32
}

// SearchQuery is a fusion search request. At most three rewrites.
type SearchQuery struct {
	OrgID       string   // optional org filter within the tenant
	ObjectTypes []string // optional object-type allow-list
	Rewrites    []Rewrite
	PageSize    int // default 20, capped at 100
}

// SignalHit is one signal's contribution to a result. Nil means the
// signal did not surface the object.
type SignalHit struct {
	Rank  int
	Score float64
}

// SearchResult is a single fused hit.
type SearchResult struct {
	ObjectType string
	ObjectID   string
	Payload    []byte
	RawText    string
	FusedScore float64
	Rewrite    int // 1-based winning rewrite
	Trigram    *SignalHit
	Tokens     *SignalHit
	Vector     *SignalHit
}

// Search runs a fusion search for the tenant.
func (c *Client) Search(ctx context.Context, tenant string, q SearchQuery) (results []SearchResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err) }()

	sc, err := scope.New(tenant, q.OrgID, q.ObjectTypes)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	rewrites := make([]query.Rewrite, len(q.Rewrites))
	for i, rw := range q.Rewrites {
		rewrites[i] = query.NewRewrite(rw.Text, rw.Embedding)
	}
	req, err := query.New(rewrites, q.PageSize)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	fused, err := c.searchSvc.Search(ctx, sc, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results = make([]SearchResult, len(fused))
	for i, f := range fused {
		results[i] = SearchResult{
			ObjectType: f.Key.Type,
			ObjectID:   f.Key.ID,
			Payload:    f.Payload,
			RawText:    f.RawText,
			FusedScore: f.FusedScore,
			Rewrite:    f.Rewrite,
			Trigram:    toSignalHit(f.Trigram),
			Tokens:     toSignalHit(f.Tokens),
			Vector:     toSignalHit(f.Vector),
		}
	}
	return results, nil
}

func toSignalHit(h rank.SignalHit) *SignalHit {
	if !h.Present() {
		return nil
	}
	return &SignalHit{Rank: h.Rank, Score: h.Score}
}
