package tenantintegrationtests

import (
	"context"
	"sync"
	"testing"

	rotationservice "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/application"
	rotationmigrations "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/infrastructure/repositories/migrations"
	tenantservice "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/application"
	tenantdb "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/repositories"
	"github.com/Black-And-White-Club/award-rotation/app/observability"
	"github.com/Black-And-White-Club/award-rotation/integration_tests/testutils"
)

var (
	testEnv     *testutils.TestEnvironment
	testEnvOnce sync.Once
	testEnvErr  error
)

// GetTestEnv starts the shared Postgres directory once per package.
func GetTestEnv(t *testing.T) *testutils.TestEnvironment {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testEnvOnce.Do(func() {
		testEnv, testEnvErr = testutils.NewTestEnvironment(t)
	})
	if testEnvErr != nil {
		t.Fatalf("Failed to set up test environment: %v", testEnvErr)
	}
	return testEnv
}

// TenantTestDeps bundles the components under test.
type TenantTestDeps struct {
	Ctx      context.Context
	Repo     tenantdb.Repository
	Registry *tenantservice.Registry
	Sessions *tenantservice.SessionManager
	Service  *rotationservice.RotationService
	Data     *testutils.TestDataGenerator
}

// SetupTestTenantDeps returns fresh components over an empty directory.
func SetupTestTenantDeps(t *testing.T) TenantTestDeps {
	t.Helper()
	env := GetTestEnv(t)
	if err := env.ResetDirectory(env.Ctx); err != nil {
		t.Fatalf("Failed to reset directory: %v", err)
	}

	repo := tenantdb.NewRepository(env.DB)
	registry := tenantservice.NewRegistry(env.DB, repo, rotationmigrations.Migrations, env.TenantsConfig(t), env.Logger, observability.NewNoop())
	sessions := tenantservice.NewSessionManager(registry, env.Logger, observability.NewNoop(), nil)
	service := rotationservice.NewRotationService(rotationservice.DefaultRepositories(), nil, env.Logger, observability.NewNoop(), nil)

	return TenantTestDeps{
		Ctx:      env.Ctx,
		Repo:     repo,
		Registry: registry,
		Sessions: sessions,
		Service:  service,
		Data:     testutils.NewTestDataGenerator(),
	}
}
