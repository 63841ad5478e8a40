package tenantdb

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Repository defines the contract for tenant directory persistence.
//
// Error semantics:
//   - ErrNotFound: no row for the tenant id (Get)
//   - ErrNoRowsAffected: UPDATE matched no rows (UpdateState)
//   - Other errors: infrastructure failures
type Repository interface {
	// Get returns the directory row regardless of state.
	Get(ctx context.Context, db bun.IDB, tenantID string) (*Tenant, error)

	// Upsert inserts the row or, when it exists, rewrites store_path, state,
	// updated_at and deleted_at. created_at is kept from the first insert.
	Upsert(ctx context.Context, db bun.IDB, tenant *Tenant) error

	// UpdateState moves a tenant to state. Entering StateDeleted stamps deleted_at.
	UpdateState(ctx context.Context, db bun.IDB, tenantID string, state State, at time.Time) error

	// ListByState returns rows in state ordered by id.
	ListByState(ctx context.Context, db bun.IDB, state State) ([]Tenant, error)
}
