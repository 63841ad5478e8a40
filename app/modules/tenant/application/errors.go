package tenantservice

import (
	"errors"
	"fmt"
	"regexp"
)

var (
	// ErrTenantNotFound indicates no active directory row exists for the tenant.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrStoreUnavailable indicates the tenant exists but its store cannot be used.
	ErrStoreUnavailable = errors.New("tenant store unavailable")

	// ErrTenantRequired indicates an operation was attempted without a tenant id.
	ErrTenantRequired = errors.New("tenant id is required")

	// ErrInvalidTenantID indicates the tenant id contains characters that
	// cannot name a store directory.
	ErrInvalidTenantID = errors.New("invalid tenant id")

	// ErrOperationPanicked wraps a panic recovered inside a tenant session.
	ErrOperationPanicked = errors.New("tenant operation panicked")
)

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateTenantID reports whether id may be used as a tenant id.
func ValidateTenantID(id string) error {
	if id == "" {
		return ErrTenantRequired
	}
	if !tenantIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidTenantID, id)
	}
	return nil
}
