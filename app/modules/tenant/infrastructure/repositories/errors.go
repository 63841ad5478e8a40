package tenantdb

import "errors"

// Sentinel errors for the repository layer.
var (
	// ErrNotFound indicates the tenant has no directory row.
	ErrNotFound = errors.New("tenant not found")

	// ErrNoRowsAffected indicates an UPDATE matched no rows.
	ErrNoRowsAffected = errors.New("no rows affected")
)
