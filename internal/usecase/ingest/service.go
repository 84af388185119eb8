// Package ingest owns the write path for catalog objects: upserts
// recompute the derived representations and schedule re-embedding
// whenever the content fingerprint moves.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/harborline/catalogsearch/internal/domain"
	"github.com/harborline/catalogsearch/internal/domain/object"
	"github.com/harborline/catalogsearch/internal/textproc"
)

// UpsertPriority is the queue priority for ingestion-triggered embedding
// jobs. Learning-triggered jobs use a lower value so fresh vocabulary
// embeds first.
const UpsertPriority = 10

// Service handles object upserts and deletes.
type Service struct {
	index IndexWriter
	jobs  JobEnqueuer
	clock func() time.Time
	log   *zap.Logger
}

// New creates an ingest service.
func New(index IndexWriter, jobs JobEnqueuer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{index: index, jobs: jobs, clock: time.Now, log: log}
}

// Upsert writes an object's ingestion-owned fields. Last write wins on
// raw text and payload; the learned vocabulary already on the row is
// read only to keep the derived token representation and fingerprint
// consistent. The row flips to embedding_status=pending, and a job is
// enqueued, only when the content fingerprint actually changed, so
// re-sending identical content is a cheap no-op for the embedding
// pipeline.
func (s *Service) Upsert(ctx context.Context, tenant, objectType, objectID, orgID, rawText string, payload []byte) error {
	key, err := object.NewKey(tenant, objectType, objectID)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidObject, err)
	}
	obj, err := object.New(key, orgID, rawText, payload)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidObject, err)
	}

	learned := ""
	currentFP := ""
	current, err := s.index.Get(ctx, key)
	switch {
	case err == nil:
		learned = current.LearnedKeywords()
		currentFP = current.ContentFP()
	case errors.Is(err, domain.ErrObjectNotFound):
		// first write
	default:
		return fmt.Errorf("read current row: %w", err)
	}

	tokens := textproc.DeriveTokens(rawText, learned)
	fp := textproc.Fingerprint(rawText, learned)
	changed := fp != currentFP

	now := s.clock()
	if err := s.index.UpsertContent(ctx, obj, tokens, fp, changed, now); err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	if !changed {
		return nil
	}
	if err := s.jobs.Enqueue(ctx, key, UpsertPriority, now); err != nil {
		return fmt.Errorf("enqueue embedding job for %s: %w", key, err)
	}
	s.log.Debug("content changed, embedding job enqueued",
		zap.String("object", key.String()))
	return nil
}

// Delete retracts an object removed upstream.
func (s *Service) Delete(ctx context.Context, tenant, objectType, objectID string) error {
	key, err := object.NewKey(tenant, objectType, objectID)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidObject, err)
	}
	if err := s.index.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
