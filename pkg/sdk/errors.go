package catalogsearch

import "github.com/harborline/catalogsearch/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidScope           = domain.ErrInvalidScope
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrInvalidObject          = domain.ErrInvalidObject
	ErrInvalidClick           = domain.ErrInvalidClick
	ErrObjectNotFound         = domain.ErrObjectNotFound
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)
