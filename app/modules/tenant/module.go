package tenant

import (
	"context"
	"fmt"

	"github.com/Black-And-White-Club/award-rotation/app/observability"
	rotationmigrations "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/infrastructure/repositories/migrations"
	tenantservice "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/application"
	"github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/directory"
	tenanthandlers "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/handlers"
	tenantdb "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/repositories"
	"github.com/Black-And-White-Club/award-rotation/config"
	"github.com/uptrace/bun"
)

// Module represents the tenant module.
type Module struct {
	Registry      *tenantservice.Registry
	Sessions      *tenantservice.SessionManager
	Handlers      *tenanthandlers.TenantHandlers
	db            *bun.DB
	observability observability.Observability
}

// NewTenantModule opens and migrates the tenant directory and builds the
// registry and session manager on top of it.
func NewTenantModule(ctx context.Context, cfg *config.Config, obs observability.Observability) (*Module, error) {
	logger := obs.Logger
	logger.InfoContext(ctx, "tenant.NewTenantModule initializing")

	// 1. Open the directory database
	db, err := directory.Open(ctx, cfg.Registry.Driver, cfg.Registry.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open tenant directory: %w", err)
	}

	// 2. Bring the directory schema up to date
	if _, err := directory.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate tenant directory: %w", err)
	}

	// 3. Initialize Registry and Session Manager
	repo := tenantdb.NewRepository(db)
	registry := tenantservice.NewRegistry(db, repo, rotationmigrations.Migrations, cfg.Tenants, logger, obs.Metrics)
	sessions := tenantservice.NewSessionManager(registry, logger, obs.Metrics, obs.Tracer)

	// 4. Initialize Handlers
	handlers := tenanthandlers.NewTenantHandlers(registry, logger)

	return &Module{
		Registry:      registry,
		Sessions:      sessions,
		Handlers:      handlers,
		db:            db,
		observability: obs,
	}, nil
}

// DB returns the directory database.
func (m *Module) DB() *bun.DB {
	return m.db
}

// Close shuts down the tenant module.
func (m *Module) Close() error {
	logger := m.observability.Logger
	logger.Info("Stopping tenant module")

	if m.db != nil {
		if err := m.db.Close(); err != nil {
			logger.Error("Error closing tenant directory", "error", err)
			return fmt.Errorf("error closing tenant directory: %w", err)
		}
	}

	logger.Info("Tenant module stopped")
	return nil
}
