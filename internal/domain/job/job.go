// Package job holds the embedding job aggregate.
package job

import (
	"time"

	"github.com/harborline/catalogsearch/internal/domain/object"
)

// Status is the embedding job lifecycle state.
type Status string

// Job statuses. Queued and InProgress are non-terminal; at most one
// non-terminal job exists per object identity.
const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the status ends the job lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// IsValid reports whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusQueued, StatusInProgress, StatusDone, StatusFailed:
		return true
	}
	return false
}

// Job tracks one pending embedding computation for an index row.
type Job struct {
	key       object.Key
	status    Status
	priority  int
	attempts  int
	lastError string
	updatedAt time.Time
}

// New creates a freshly queued Job. Lower priority values pop first.
func New(key object.Key, priority int, now time.Time) Job {
	return Job{key: key, status: StatusQueued, priority: priority, updatedAt: now}
}

// Reconstruct rebuilds a Job from storage without validation.
func Reconstruct(
	key object.Key, status Status, priority, attempts int,
	lastError string, updatedAt time.Time,
) Job {
	return Job{
		key: key, status: status, priority: priority,
		attempts: attempts, lastError: lastError, updatedAt: updatedAt,
	}
}

// Key returns the object identity the job embeds.
func (j *Job) Key() object.Key { return j.key }

// Status returns the lifecycle state.
func (j *Job) Status() Status { return j.status }

// Priority returns the scheduling priority, lower pops first.
func (j *Job) Priority() int { return j.priority }

// Attempts returns how many times the worker has tried the job.
func (j *Job) Attempts() int { return j.attempts }

// LastError returns the most recent failure message.
func (j *Job) LastError() string { return j.lastError }

// UpdatedAt returns the last state transition time.
func (j *Job) UpdatedAt() time.Time { return j.updatedAt }
