package learning

import (
	"context"
	"time"

	"github.com/harborline/catalogsearch/internal/domain/bridge"
	"github.com/harborline/catalogsearch/internal/domain/click"
	"github.com/harborline/catalogsearch/internal/domain/object"
)

// ClickSource reads recorded clicks for aggregation.
type ClickSource interface {
	ListSince(ctx context.Context, tenant string, cutoff time.Time) ([]click.Event, error)
}

// BridgeStore persists learned query-object bridges.
type BridgeStore interface {
	Upsert(ctx context.Context, b bridge.Bridge) (bridge.Bridge, error)
	ListUnapplied(ctx context.Context, tenant string, minClicks int) ([]bridge.Bridge, error)
	MarkApplied(ctx context.Context, b bridge.Bridge, at time.Time) (bridge.Bridge, error)
}

// IndexStore is the index surface the applier needs.
type IndexStore interface {
	Get(ctx context.Context, key object.Key) (object.Object, error)
	ApplyLearnedKeywords(
		ctx context.Context, key object.Key,
		keywords, tokens, contentFP string, now time.Time,
	) (applied, fpChanged bool, err error)
	Tenants(ctx context.Context) ([]string, error)
}

// JobEnqueuer schedules re-embedding after vocabulary changes.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, key object.Key, priority int, now time.Time) error
}
