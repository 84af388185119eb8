// Package embedjob runs the background worker that drains the embedding
// job queue: it embeds each object's searchable text and writes the
// vector back to the index.
package embedjob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/harborline/catalogsearch/internal/domain"
	"github.com/harborline/catalogsearch/internal/domain/job"
	"github.com/harborline/catalogsearch/internal/domain/object"
	"github.com/harborline/catalogsearch/internal/metrics"
)

// Tuning defaults.
const (
	DefaultPollInterval   = 2 * time.Second
	DefaultMaxJobAttempts = 3
	DefaultRetryAttempts  = 3
	DefaultRetryBaseDelay = 500 * time.Millisecond
)

// Config tunes the worker.
type Config struct {
	PollInterval   time.Duration // queue poll cadence when empty
	MaxJobAttempts int           // job retries before parking as failed
	RetryAttempts  int           // provider call retries within one attempt
	RetryBaseDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.MaxJobAttempts <= 0 {
		c.MaxJobAttempts = DefaultMaxJobAttempts
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = DefaultRetryAttempts
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = DefaultRetryBaseDelay
	}
	return c
}

// Worker drains the embedding job queue.
type Worker struct {
	queue    Queue
	index    IndexStore
	embedder domain.Embedder
	pool     *ants.Pool
	cfg      Config
	clock    func() time.Time
	log      *zap.Logger
}

// New creates a worker. The pool bounds how many jobs embed
// concurrently; nil runs jobs inline.
func New(queue Queue, index IndexStore, embedder domain.Embedder, pool *ants.Pool, cfg Config, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		queue:    queue,
		index:    index,
		embedder: embedder,
		pool:     pool,
		cfg:      cfg.withDefaults(),
		clock:    time.Now,
		log:      log,
	}
}

// Run drains the queue until ctx ends, sleeping PollInterval whenever
// the queue is empty.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("embedding worker started", zap.Duration("poll_interval", w.cfg.PollInterval))
	for {
		if ctx.Err() != nil {
			w.log.Info("embedding worker stopped")
			return
		}
		dispatched, err := w.dispatchNext(ctx)
		if err != nil && ctx.Err() == nil {
			w.log.Error("dequeue failed", zap.Error(err))
		}
		if dispatched {
			continue
		}
		select {
		case <-ctx.Done():
			w.log.Info("embedding worker stopped")
			return
		case <-time.After(w.cfg.PollInterval):
		}
	}
}

// dispatchNext pops one job and hands it to the pool. Returns whether a
// job was dispatched.
func (w *Worker) dispatchNext(ctx context.Context) (bool, error) {
	j, err := w.queue.Dequeue(ctx, w.clock())
	if errors.Is(err, domain.ErrNoQueuedJobs) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	run := func() { w.process(ctx, j) }
	if w.pool == nil {
		run()
		return true, nil
	}
	if err := w.pool.Submit(run); err != nil {
		run()
	}
	return true, nil
}

// process embeds one job's object and settles the job either way.
func (w *Worker) process(ctx context.Context, j job.Job) {
	key := j.Key()

	obj, err := w.index.Get(ctx, key)
	if errors.Is(err, domain.ErrObjectNotFound) {
		// Row deleted while queued; nothing left to embed.
		w.settleDone(ctx, key)
		return
	}
	if err != nil {
		w.settleFailed(ctx, key, fmt.Errorf("read row: %w", err))
		return
	}

	// The job is stale when a newer vector already covers the current
	// content fingerprint.
	if obj.EmbeddingStatus() == object.EmbeddingDone && obj.EmbeddingFP() == obj.ContentFP() {
		w.settleDone(ctx, key)
		return
	}

	var result domain.EmbeddingResult
	err = retryWithBackoff(ctx, func() error {
		var embErr error
		result, embErr = w.embedder.Embed(ctx, obj.SearchableText())
		return embErr
	}, w.cfg.RetryAttempts, w.cfg.RetryBaseDelay, w.log)
	if err != nil {
		w.settleFailed(ctx, key, fmt.Errorf("embed: %w", err))
		return
	}

	if err := w.index.SetEmbedding(ctx, key, result.Embedding, obj.ContentFP()); err != nil {
		w.settleFailed(ctx, key, fmt.Errorf("store vector: %w", err))
		return
	}
	w.settleDone(ctx, key)
}

func (w *Worker) settleDone(ctx context.Context, key object.Key) {
	if err := w.queue.Complete(ctx, key, w.clock()); err != nil {
		w.log.Error("complete job failed", zap.String("object", key.String()), zap.Error(err))
		return
	}
	metrics.EmbeddingJobsTotal.WithLabelValues("done").Inc()
}

// settleFailed records the attempt; the queue decides between a retry
// and parking the job. A parked job also flips the row to failed so
// operators can find it, but search keeps serving the stale vector.
func (w *Worker) settleFailed(ctx context.Context, key object.Key, jobErr error) {
	w.log.Error("embedding job failed",
		zap.String("object", key.String()),
		zap.Error(jobErr),
	)
	status, err := w.queue.Fail(ctx, key, jobErr, w.cfg.MaxJobAttempts, w.clock())
	if err != nil {
		w.log.Error("record job failure failed", zap.String("object", key.String()), zap.Error(err))
		return
	}
	if status == job.StatusFailed {
		metrics.EmbeddingJobsTotal.WithLabelValues("failed").Inc()
		if err := w.index.MarkEmbeddingFailed(ctx, key); err != nil {
			w.log.Error("mark row failed", zap.String("object", key.String()), zap.Error(err))
		}
		return
	}
	metrics.EmbeddingJobsTotal.WithLabelValues("retried").Inc()
}
