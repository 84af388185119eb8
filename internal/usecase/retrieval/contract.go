package retrieval

import (
	"context"

	"github.com/harborline/catalogsearch/internal/domain/object"
	"github.com/harborline/catalogsearch/internal/domain/rank"
	"github.com/harborline/catalogsearch/internal/domain/scope"
)

// SignalSearcher runs the three independent retrieval signals against the
// scoped index. Each returns at most limit candidates ranked 1..N by
// score descending.
type SignalSearcher interface {
	SearchTrigram(
		ctx context.Context, sc scope.Scope, queryText string, limit int, floor float64,
	) ([]rank.Candidate, error)

	SearchTokens(
		ctx context.Context, sc scope.Scope, queryText string, limit int,
	) ([]rank.Candidate, error)

	SearchVector(
		ctx context.Context, sc scope.Scope, vector []float32, limit int,
	) ([]rank.Candidate, error)
}

// ObjectReader hydrates payloads for the final page.
type ObjectReader interface {
	GetMulti(ctx context.Context, keys []object.Key) ([]object.Object, error)
}
