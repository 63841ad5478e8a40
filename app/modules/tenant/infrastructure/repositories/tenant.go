package tenantdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM. The same SQL runs
// on PostgreSQL and SQLite.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new tenant directory repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

// resolveDB returns the provided db handle, falling back to the repository's
// default connection if db is nil.
func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

// Get retrieves a tenant row by id.
func (r *Impl) Get(ctx context.Context, db bun.IDB, tenantID string) (*Tenant, error) {
	db = r.resolveDB(db)
	tenant := new(Tenant)
	err := db.NewSelect().
		Model(tenant).
		Where("t.id = ?", tenantID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	return tenant, nil
}

// Upsert creates or re-activates a tenant row.
func (r *Impl) Upsert(ctx context.Context, db bun.IDB, tenant *Tenant) error {
	db = r.resolveDB(db)
	_, err := db.NewInsert().
		Model(tenant).
		On("CONFLICT (id) DO UPDATE").
		Set("store_path = EXCLUDED.store_path").
		Set("state = EXCLUDED.state").
		Set("updated_at = EXCLUDED.updated_at").
		Set("deleted_at = EXCLUDED.deleted_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert tenant: %w", err)
	}
	return nil
}

// UpdateState changes the lifecycle state of a tenant.
func (r *Impl) UpdateState(ctx context.Context, db bun.IDB, tenantID string, state State, at time.Time) error {
	db = r.resolveDB(db)
	q := db.NewUpdate().
		Model((*Tenant)(nil)).
		ModelTableExpr("tenants").
		Set("state = ?", state).
		Set("updated_at = ?", at).
		Where("id = ?", tenantID)
	if state == StateDeleted {
		q = q.Set("deleted_at = ?", at)
	} else {
		q = q.Set("deleted_at = NULL")
	}
	result, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update tenant state: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// ListByState returns every tenant in state.
func (r *Impl) ListByState(ctx context.Context, db bun.IDB, state State) ([]Tenant, error) {
	db = r.resolveDB(db)
	tenants := make([]Tenant, 0)
	err := db.NewSelect().
		Model(&tenants).
		Where("t.state = ?", state).
		OrderExpr("t.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	return tenants, nil
}
