package embedjob

import (
	"context"
	"time"

	"github.com/harborline/catalogsearch/internal/domain/job"
	"github.com/harborline/catalogsearch/internal/domain/object"
)

// Queue is the job store surface the worker needs.
type Queue interface {
	Dequeue(ctx context.Context, now time.Time) (job.Job, error)
	Complete(ctx context.Context, key object.Key, now time.Time) error
	Fail(ctx context.Context, key object.Key, jobErr error, maxAttempts int, now time.Time) (job.Status, error)
}

// IndexStore is the index surface the worker needs.
type IndexStore interface {
	Get(ctx context.Context, key object.Key) (object.Object, error)
	SetEmbedding(ctx context.Context, key object.Key, vector []float32, embeddingFP string) error
	MarkEmbeddingFailed(ctx context.Context, key object.Key) error
}
