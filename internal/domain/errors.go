package domain

import "errors"

var (
	// ErrInvalidScope signals a malformed tenant/org/type scope.
	ErrInvalidScope = errors.New("invalid scope")
	// ErrInvalidQuery signals a malformed retrieval request.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrInvalidObject signals a malformed object write.
	ErrInvalidObject = errors.New("invalid object")
	// ErrInvalidClick signals a malformed click event.
	ErrInvalidClick = errors.New("invalid click event")
	// ErrObjectNotFound signals a missing index row.
	ErrObjectNotFound = errors.New("object not found")
	// ErrJobNotFound signals a missing embedding job.
	ErrJobNotFound = errors.New("embedding job not found")
	// ErrNoQueuedJobs signals an empty embedding job queue.
	ErrNoQueuedJobs = errors.New("no queued embedding jobs")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
)
