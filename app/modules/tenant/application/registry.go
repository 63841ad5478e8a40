package tenantservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/Black-And-White-Club/award-rotation/app/observability"
	tenantdb "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/repositories"
	tenantstore "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/store"
	"github.com/Black-And-White-Club/award-rotation/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

// Store open failure reasons exported on tenant_store_open_failures_total.
const (
	reasonProvisioning = "provisioning"
	reasonPathMismatch = "path_mismatch"
	reasonMissing      = "missing"
	reasonOpen         = "open"
	reasonSchema       = "schema"
)

// Registry maps tenant ids to their stores. The directory rows live in the
// control database; each store is a separate SQLite file under baseDir.
type Registry struct {
	// mu serialises Provision and Delete. Resolve does not take it.
	mu sync.Mutex

	db          bun.IDB
	repo        tenantdb.Repository
	migrations  *migrate.Migrations
	baseDir     string
	busyTimeout time.Duration
	openTimeout time.Duration
	logger      *slog.Logger
	metrics     observability.Metrics
	now         func() time.Time
}

// NewRegistry creates a Registry. migrations is the schema every tenant store
// must carry before it can be resolved.
func NewRegistry(
	db bun.IDB,
	repo tenantdb.Repository,
	migrations *migrate.Migrations,
	cfg config.TenantsConfig,
	logger *slog.Logger,
	metrics observability.Metrics,
) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewNoop()
	}
	return &Registry{
		db:          db,
		repo:        repo,
		migrations:  migrations,
		baseDir:     cfg.BaseDir,
		busyTimeout: cfg.BusyTimeout,
		openTimeout: cfg.OpenTimeout,
		logger:      logger,
		metrics:     metrics,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Provision creates the tenant's store, applies the schema and activates the
// directory row. It is idempotent: provisioning an active tenant only
// applies pending migrations, and provisioning a deleted tenant brings it
// back with an empty store. The caller owns the returned Store.
func (r *Registry) Provision(ctx context.Context, tenantID string) (*tenantstore.Store, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	path := tenantstore.PathFor(r.baseDir, tenantID)

	existing, err := r.repo.Get(ctx, r.db, tenantID)
	switch {
	case err == nil && existing.State == tenantdb.StateActive:
		path = existing.StorePath
	case err == nil || errors.Is(err, tenantdb.ErrNotFound):
		row := &tenantdb.Tenant{
			ID:        tenantID,
			StorePath: path,
			State:     tenantdb.StateCreated,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := r.repo.Upsert(ctx, r.db, row); err != nil {
			return nil, fmt.Errorf("record tenant %s: %w", tenantID, err)
		}
	default:
		return nil, fmt.Errorf("look up tenant %s: %w", tenantID, err)
	}

	store, err := tenantstore.Open(ctx, tenantID, path, tenantstore.Options{
		BusyTimeout: r.busyTimeout,
		Create:      true,
	})
	if err != nil {
		r.metrics.RecordStoreOpenFailure(reasonOpen)
		return nil, fmt.Errorf("%w: create store for %s: %w", ErrStoreUnavailable, tenantID, err)
	}

	group, err := store.Migrate(ctx, r.migrations)
	if err != nil {
		_ = store.Close()
		r.metrics.RecordStoreOpenFailure(reasonSchema)
		return nil, fmt.Errorf("%w: migrate store for %s: %w", ErrStoreUnavailable, tenantID, err)
	}

	if existing == nil || existing.State != tenantdb.StateActive {
		if err := r.repo.UpdateState(ctx, r.db, tenantID, tenantdb.StateActive, r.now()); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("activate tenant %s: %w", tenantID, err)
		}
	}

	r.logger.InfoContext(ctx, "Tenant provisioned",
		slog.String("tenant_id", tenantID),
		slog.String("store_path", path),
		slog.String("migrations", group.String()),
	)
	return store, nil
}

// Resolve opens the active tenant's existing store. It never creates a store
// and never falls back to another tenant's file.
func (r *Registry) Resolve(ctx context.Context, tenantID string) (*tenantstore.Store, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return nil, err
	}

	if r.openTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.openTimeout)
		defer cancel()
	}

	row, err := r.repo.Get(ctx, r.db, tenantID)
	if err != nil {
		if errors.Is(err, tenantdb.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
		}
		return nil, fmt.Errorf("look up tenant %s: %w", tenantID, err)
	}

	switch row.State {
	case tenantdb.StateActive:
	case tenantdb.StateCreated:
		r.metrics.RecordStoreOpenFailure(reasonProvisioning)
		return nil, fmt.Errorf("%w: %s has not finished provisioning", ErrStoreUnavailable, tenantID)
	default:
		return nil, fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
	}

	// A directory row pointing outside the tenant's own directory would let
	// one tenant read another's file.
	if filepath.Base(filepath.Dir(filepath.Clean(row.StorePath))) != tenantID {
		r.metrics.RecordStoreOpenFailure(reasonPathMismatch)
		r.logger.ErrorContext(ctx, "Tenant store path does not belong to tenant",
			slog.String("tenant_id", tenantID),
			slog.String("store_path", row.StorePath),
		)
		return nil, fmt.Errorf("%w: store path for %s is outside its directory", ErrStoreUnavailable, tenantID)
	}

	store, err := tenantstore.Open(ctx, tenantID, row.StorePath, tenantstore.Options{BusyTimeout: r.busyTimeout})
	if err != nil {
		reason := reasonOpen
		if errors.Is(err, tenantstore.ErrStoreMissing) {
			reason = reasonMissing
		}
		r.metrics.RecordStoreOpenFailure(reason)
		return nil, fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, tenantID, err)
	}

	if err := store.CheckSchema(ctx, r.migrations); err != nil {
		_ = store.Close()
		r.metrics.RecordStoreOpenFailure(reasonSchema)
		return nil, fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, tenantID, err)
	}
	return store, nil
}

// Delete marks the tenant deleted and removes its store files. Deleting an
// already deleted tenant retries the file removal.
func (r *Registry) Delete(ctx context.Context, tenantID string) error {
	if err := ValidateTenantID(tenantID); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	row, err := r.repo.Get(ctx, r.db, tenantID)
	if err != nil {
		if errors.Is(err, tenantdb.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
		}
		return fmt.Errorf("look up tenant %s: %w", tenantID, err)
	}

	if row.State != tenantdb.StateDeleted {
		if err := r.repo.UpdateState(ctx, r.db, tenantID, tenantdb.StateDeleted, r.now()); err != nil {
			return fmt.Errorf("mark tenant %s deleted: %w", tenantID, err)
		}
	}

	if err := tenantstore.Remove(row.StorePath); err != nil {
		r.logger.ErrorContext(ctx, "Failed to remove tenant store",
			slog.String("tenant_id", tenantID),
			slog.String("store_path", row.StorePath),
			slog.Any("error", err),
		)
		return fmt.Errorf("remove store for %s: %w", tenantID, err)
	}

	r.logger.InfoContext(ctx, "Tenant deleted", slog.String("tenant_id", tenantID))
	return nil
}

// List returns the active tenants ordered by id.
func (r *Registry) List(ctx context.Context) ([]tenantdb.Tenant, error) {
	tenants, err := r.repo.ListByState(ctx, r.db, tenantdb.StateActive)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, nil
}

// MigrateAll applies pending schema migrations to every active tenant. One
// tenant failing does not stop the others; all failures are returned joined.
func (r *Registry) MigrateAll(ctx context.Context) error {
	tenants, err := r.List(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, t := range tenants {
		if err := r.migrateOne(ctx, t); err != nil {
			r.logger.ErrorContext(ctx, "Tenant migration failed",
				slog.String("tenant_id", t.ID),
				slog.Any("error", err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", t.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) migrateOne(ctx context.Context, t tenantdb.Tenant) error {
	store, err := tenantstore.Open(ctx, t.ID, t.StorePath, tenantstore.Options{BusyTimeout: r.busyTimeout})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	defer store.Close()

	group, err := store.Migrate(ctx, r.migrations)
	if err != nil {
		return err
	}
	if group.IsZero() {
		r.logger.InfoContext(ctx, "No new tenant migrations", slog.String("tenant_id", t.ID))
	} else {
		r.logger.InfoContext(ctx, "Tenant migrated",
			slog.String("tenant_id", t.ID),
			slog.String("group", group.String()),
		)
	}
	return nil
}
