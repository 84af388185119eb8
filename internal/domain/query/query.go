// Package query holds the validated retrieval request value object.
package query

import (
	"fmt"
	"strings"

	"github.com/harborline/catalogsearch/internal/domain"
)

// Request limits.
const (
	MaxRewrites      = 3
	MaxRewriteLength = 4096
	DefaultPageSize  = 20
	MaxPageSize      = 100
)

// Rewrite is one query rewrite, optionally paired with a precomputed
// embedding from the query-understanding layer.
type Rewrite struct {
	text      string
	embedding []float32
}

// NewRewrite creates a Rewrite. Whitespace-only text yields a blank
// rewrite, which the engine skips.
func NewRewrite(text string, embedding []float32) Rewrite {
	return Rewrite{text: strings.TrimSpace(text), embedding: embedding}
}

// Text returns the rewrite text.
func (r *Rewrite) Text() string { return r.text }

// Embedding returns the precomputed embedding, nil when absent.
func (r *Rewrite) Embedding() []float32 { return r.embedding }

// IsBlank reports whether the rewrite contributes nothing.
func (r *Rewrite) IsBlank() bool { return r.text == "" }

// Request is a validated retrieval request.
type Request struct {
	rewrites []Rewrite
	pageSize int
}

// New validates and normalizes a retrieval request.
// At most MaxRewrites rewrites; blank rewrites are kept in place (their
// 1-based index stays stable for the winning-rewrite report) but at least
// one must be non-blank. Page size defaults to DefaultPageSize and is
// clamped to MaxPageSize.
func New(rewrites []Rewrite, pageSize int) (Request, error) {
	if len(rewrites) == 0 {
		return Request{}, fmt.Errorf("%w: at least one rewrite is required", domain.ErrInvalidQuery)
	}
	if len(rewrites) > MaxRewrites {
		return Request{}, fmt.Errorf("%w: too many rewrites (max %d)", domain.ErrInvalidQuery, MaxRewrites)
	}
	nonBlank := 0
	for i := range rewrites {
		if rewrites[i].IsBlank() {
			continue
		}
		if len(rewrites[i].text) > MaxRewriteLength {
			return Request{}, fmt.Errorf("%w: rewrite %d too long (max %d chars)", domain.ErrInvalidQuery, i+1, MaxRewriteLength)
		}
		nonBlank++
	}
	if nonBlank == 0 {
		return Request{}, fmt.Errorf("%w: all rewrites are blank", domain.ErrInvalidQuery)
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Request{rewrites: rewrites, pageSize: pageSize}, nil
}

// Rewrites returns the rewrites in caller order.
func (r *Request) Rewrites() []Rewrite { return r.rewrites }

// PageSize returns the maximum number of fused rows to return.
func (r *Request) PageSize() int { return r.pageSize }
