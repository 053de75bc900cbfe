package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTenant signals a missing or blank tenant identifier.
	ErrInvalidTenant = errors.New("invalid tenant")
	// ErrInvalidRequest signals a malformed retrieval request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrProviderUnavailable is the only error surfaced for vector index failures.
	// Its text carries no tenant, index, or lookup detail.
	ErrProviderUnavailable = errors.New("vector index unavailable")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)

// InvalidTenantError wraps ErrInvalidTenant with the reason the identifier was rejected.
// The rejected value itself is never part of the message.
type InvalidTenantError struct {
	Reason string
}

func (e *InvalidTenantError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidTenant.Error(), e.Reason)
}

func (e *InvalidTenantError) Unwrap() error { return ErrInvalidTenant }

// NewInvalidTenant creates an invalid tenant error.
func NewInvalidTenant(reason string) error {
	return &InvalidTenantError{Reason: reason}
}
