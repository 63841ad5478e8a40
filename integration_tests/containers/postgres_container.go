package containers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	// "pgx" driver for wait.ForSQL.
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	directoryImage    = "postgres:16-alpine"
	directoryDatabase = "tenant_directory"
	directoryUser     = "rotation"
	directoryPassword = "rotation"
	startupTimeout    = 45 * time.Second
)

// directoryURL builds the probe DSN for a mapped port.
func directoryURL(host string, port nat.Port) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(directoryUser, directoryPassword),
		Host:     fmt.Sprintf("%s:%s", host, port.Port()),
		Path:     "/" + directoryDatabase,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// SetupPostgresContainer starts the tenant directory database and returns
// the container and a DSN with TLS disabled.
func SetupPostgresContainer(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	container, err := postgres.Run(ctx,
		directoryImage,
		postgres.WithDatabase(directoryDatabase),
		postgres.WithUsername(directoryUser),
		postgres.WithPassword(directoryPassword),
		testcontainers.WithWaitStrategy(
			wait.ForSQL("5432/tcp", "pgx", directoryURL).WithStartupTimeout(startupTimeout),
		),
	)
	if err != nil {
		if container != nil {
			_ = container.Terminate(ctx)
		}
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	log.Printf("Tenant directory database ready at %s", dsn)
	return container, dsn, nil
}
