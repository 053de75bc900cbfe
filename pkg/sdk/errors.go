package rfprag

import "github.com/kailas-cloud/rfprag/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidTenant       = domain.ErrInvalidTenant
	ErrInvalidRequest      = domain.ErrInvalidRequest
	ErrVectorDimMismatch   = domain.ErrVectorDimMismatch
	ErrProviderUnavailable = domain.ErrProviderUnavailable
)
