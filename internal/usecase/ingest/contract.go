package ingest

import (
	"context"
	"time"

	"github.com/harborline/catalogsearch/internal/domain/object"
)

// IndexWriter is the index store surface ingestion needs.
type IndexWriter interface {
	Get(ctx context.Context, key object.Key) (object.Object, error)
	UpsertContent(
		ctx context.Context, obj object.Object,
		tokens, contentFP string, markPending bool, now time.Time,
	) error
	Delete(ctx context.Context, key object.Key) error
}

// JobEnqueuer schedules embedding recomputation.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, key object.Key, priority int, now time.Time) error
}
