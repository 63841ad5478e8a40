package testutils

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/directory"
	"github.com/Black-And-White-Club/award-rotation/config"
	"github.com/Black-And-White-Club/award-rotation/integration_tests/containers"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/uptrace/bun"
)

// TestEnvironment holds the PostgreSQL tenant directory shared by a suite.
type TestEnvironment struct {
	Ctx           context.Context
	CancelContext context.CancelFunc
	PgContainer   *postgres.PostgresContainer
	DSN           string
	DB            *bun.DB
	Logger        *slog.Logger
}

// NewTestEnvironment starts Postgres, opens the directory and migrates it.
func NewTestEnvironment(t *testing.T) (*TestEnvironment, error) {
	ctx, cancel := context.WithCancel(context.Background())

	pgContainer, dsn, err := containers.SetupPostgresContainer(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to setup postgres container: %w", err)
	}

	db, err := directory.Open(ctx, config.RegistryDriverPostgres, dsn)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		cancel()
		return nil, err
	}
	if _, err := directory.Migrate(ctx, db); err != nil {
		_ = db.Close()
		_ = pgContainer.Terminate(ctx)
		cancel()
		return nil, err
	}

	return &TestEnvironment{
		Ctx:           ctx,
		CancelContext: cancel,
		PgContainer:   pgContainer,
		DSN:           dsn,
		DB:            db,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, nil
}

// TenantsConfig returns store settings rooted in a per-test directory.
func (env *TestEnvironment) TenantsConfig(t *testing.T) config.TenantsConfig {
	t.Helper()
	return config.TenantsConfig{
		BaseDir:     t.TempDir(),
		BusyTimeout: 5 * time.Second,
		OpenTimeout: 5 * time.Second,
	}
}

// ResetDirectory empties the tenants table between tests.
func (env *TestEnvironment) ResetDirectory(ctx context.Context) error {
	if _, err := env.DB.NewRaw("TRUNCATE TABLE tenants").Exec(ctx); err != nil {
		return fmt.Errorf("failed to truncate tenants: %w", err)
	}
	return nil
}

// Cleanup closes the directory and terminates the container.
func (env *TestEnvironment) Cleanup() {
	if env.DB != nil {
		_ = env.DB.Close()
	}
	if env.PgContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = env.PgContainer.Terminate(ctx)
	}
	env.CancelContext()
}
