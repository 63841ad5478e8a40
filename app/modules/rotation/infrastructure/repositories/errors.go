package rotationdb

import (
	"errors"
	"strings"
)

// Sentinel errors for the repository layer.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateName indicates a participant name is already taken in this tenant.
	ErrDuplicateName = errors.New("name already exists")

	// ErrNoRowsAffected indicates an UPDATE/DELETE matched no rows.
	ErrNoRowsAffected = errors.New("no rows affected")

	// ErrRotationStateMissing indicates the lock row for a kind was never seeded.
	ErrRotationStateMissing = errors.New("rotation state row missing")
)

// isUniqueViolation matches SQLite's constraint message for UNIQUE indexes.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
