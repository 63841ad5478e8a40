package tenantdb

import (
	"time"

	"github.com/uptrace/bun"
)

// State is the lifecycle state of a tenant directory row.
type State string

const (
	// StateCreated marks a row whose store has not finished provisioning.
	StateCreated State = "created"
	// StateActive marks a tenant whose store is ready.
	StateActive State = "active"
	// StateDeleted marks a tenant removed by an administrator.
	StateDeleted State = "deleted"
)

// Tenant is one row of the tenant directory: where a tenant's store lives and
// whether it may be used. The directory lives in the control database, never
// in a tenant store.
type Tenant struct {
	bun.BaseModel `bun:"table:tenants,alias:t"`
	ID            string     `bun:"id,pk,type:varchar(64)" json:"id"`
	StorePath     string     `bun:"store_path,notnull" json:"store_path"`
	State         State      `bun:"state,notnull,type:varchar(16)" json:"state"`
	CreatedAt     time.Time  `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull" json:"updated_at"`
	DeletedAt     *time.Time `bun:"deleted_at,nullzero" json:"deleted_at,omitempty"`
}
