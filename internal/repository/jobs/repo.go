// Package jobs implements the embedding job queue: one hash per object
// identity plus a priority-ordered pending set.
package jobs

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/harborline/catalogsearch/internal/db"
	"github.com/harborline/catalogsearch/internal/domain"
	"github.com/harborline/catalogsearch/internal/domain/job"
	"github.com/harborline/catalogsearch/internal/domain/object"
)

// store is the consumer interface for the job queue (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	ZAdd(ctx context.Context, key string, score float64, member string) error
	ZPopMin(ctx context.Context, key string, count int) ([]db.ScoredMember, error)
	ZRem(ctx context.Context, key string, members ...string) error
}

// Repo implements the embedding job queue.
type Repo struct {
	store store
}

// New creates a job queue repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Enqueue queues an embedding job for the identity. A queued or
// in-progress job is left untouched so no duplicate work is created; a
// terminal (done/failed) or missing job is reset to queued with
// attempts=0. Priority only orders scheduling, lower pops first.
func (r *Repo) Enqueue(ctx context.Context, key object.Key, priority int, now time.Time) error {
	k := jobKey(key)
	current, err := r.store.HGetAll(ctx, k)
	if err != nil {
		return fmt.Errorf("hgetall %s: %w", k, err)
	}
	if len(current) > 0 {
		status := job.Status(current[fieldStatus])
		if status.IsValid() && !status.IsTerminal() {
			return nil
		}
	}

	fresh := job.New(key, priority, now)
	if err := r.store.HSet(ctx, k, fieldsFromJob(fresh)); err != nil {
		return fmt.Errorf("hset %s: %w", k, err)
	}
	if err := r.store.ZAdd(ctx, queueKey(), float64(priority), k); err != nil {
		return fmt.Errorf("zadd %s: %w", k, err)
	}
	return nil
}

// Dequeue pops the highest-priority queued job and marks it in progress.
// Returns domain.ErrNoQueuedJobs when the queue is empty.
func (r *Repo) Dequeue(ctx context.Context, now time.Time) (job.Job, error) {
	for {
		popped, err := r.store.ZPopMin(ctx, queueKey(), 1)
		if err != nil {
			return job.Job{}, fmt.Errorf("zpopmin: %w", err)
		}
		if len(popped) == 0 {
			return job.Job{}, domain.ErrNoQueuedJobs
		}

		k := popped[0].Member
		fields, err := r.store.HGetAll(ctx, k)
		if err != nil {
			return job.Job{}, fmt.Errorf("hgetall %s: %w", k, err)
		}
		key, ok := parseJobKey(k)
		if !ok || len(fields) == 0 {
			// Stale queue member; drop it and keep popping.
			continue
		}
		j := jobFromFields(key, fields)
		if j.Status() != job.StatusQueued {
			continue
		}

		started := job.Reconstruct(key, job.StatusInProgress, j.Priority(), j.Attempts(), j.LastError(), now)
		if err := r.store.HSet(ctx, k, fieldsFromJob(started)); err != nil {
			return job.Job{}, fmt.Errorf("hset %s: %w", k, err)
		}
		return started, nil
	}
}

// Complete marks a job done.
func (r *Repo) Complete(ctx context.Context, key object.Key, now time.Time) error {
	return r.finish(ctx, key, job.StatusDone, "", now)
}

// Fail records a failed attempt. While attempts stay under maxAttempts
// the job goes back to the queue; after that it parks as failed with the
// last error retained for operators.
func (r *Repo) Fail(
	ctx context.Context, key object.Key, jobErr error, maxAttempts int, now time.Time,
) (job.Status, error) {
	k := jobKey(key)
	fields, err := r.store.HGetAll(ctx, k)
	if err != nil {
		return "", fmt.Errorf("hgetall %s: %w", k, err)
	}
	if len(fields) == 0 {
		return "", domain.ErrJobNotFound
	}
	j := jobFromFields(key, fields)

	attempts := j.Attempts() + 1
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}

	if attempts < maxAttempts {
		retry := job.Reconstruct(key, job.StatusQueued, j.Priority(), attempts, msg, now)
		if err := r.store.HSet(ctx, k, fieldsFromJob(retry)); err != nil {
			return "", fmt.Errorf("hset %s: %w", k, err)
		}
		if err := r.store.ZAdd(ctx, queueKey(), float64(j.Priority()), k); err != nil {
			return "", fmt.Errorf("zadd %s: %w", k, err)
		}
		return job.StatusQueued, nil
	}

	failed := job.Reconstruct(key, job.StatusFailed, j.Priority(), attempts, msg, now)
	if err := r.store.HSet(ctx, k, fieldsFromJob(failed)); err != nil {
		return "", fmt.Errorf("hset %s: %w", k, err)
	}
	return job.StatusFailed, nil
}

// Get returns a job by identity.
func (r *Repo) Get(ctx context.Context, key object.Key) (job.Job, error) {
	k := jobKey(key)
	fields, err := r.store.HGetAll(ctx, k)
	if err != nil {
		return job.Job{}, fmt.Errorf("hgetall %s: %w", k, err)
	}
	if len(fields) == 0 {
		return job.Job{}, domain.ErrJobNotFound
	}
	return jobFromFields(key, fields), nil
}

func (r *Repo) finish(ctx context.Context, key object.Key, status job.Status, lastErr string, now time.Time) error {
	k := jobKey(key)
	fields, err := r.store.HGetAll(ctx, k)
	if err != nil {
		return fmt.Errorf("hgetall %s: %w", k, err)
	}
	if len(fields) == 0 {
		return domain.ErrJobNotFound
	}
	j := jobFromFields(key, fields)
	done := job.Reconstruct(key, status, j.Priority(), j.Attempts(), lastErr, now)
	if err := r.store.HSet(ctx, k, fieldsFromJob(done)); err != nil {
		return fmt.Errorf("hset %s: %w", k, err)
	}
	return nil
}

// Hash field names of a job row.
const (
	fieldStatus    = "status"
	fieldPriority  = "priority"
	fieldAttempts  = "attempts"
	fieldLastError = "last_error"
	fieldUpdatedAt = "updated_at"
)

func fieldsFromJob(j job.Job) map[string]string {
	return map[string]string{
		fieldStatus:    string(j.Status()),
		fieldPriority:  strconv.Itoa(j.Priority()),
		fieldAttempts:  strconv.Itoa(j.Attempts()),
		fieldLastError: j.LastError(),
		fieldUpdatedAt: j.UpdatedAt().UTC().Format(time.RFC3339Nano),
	}
}

func jobFromFields(key object.Key, m map[string]string) job.Job {
	priority, _ := strconv.Atoi(m[fieldPriority])
	attempts, _ := strconv.Atoi(m[fieldAttempts])
	updatedAt, _ := time.Parse(time.RFC3339Nano, m[fieldUpdatedAt])
	status := job.Status(m[fieldStatus])
	if !status.IsValid() {
		status = job.StatusQueued
	}
	return job.Reconstruct(key, status, priority, attempts, m[fieldLastError], updatedAt)
}

func jobKey(key object.Key) string {
	return fmt.Sprintf("%sembjob:%s:%s:%s", domain.KeyPrefix, key.Tenant, key.Type, key.ID)
}

func queueKey() string {
	return domain.KeyPrefix + "embjobs"
}

func parseJobKey(k string) (object.Key, bool) {
	rest, ok := strings.CutPrefix(k, domain.KeyPrefix+"embjob:")
	if !ok {
		return object.Key{}, false
	}
	parts := strings.SplitN(rest, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return object.Key{}, false
	}
	return object.Key{Tenant: parts[0], Type: parts[1], ID: parts[2]}, true
}
