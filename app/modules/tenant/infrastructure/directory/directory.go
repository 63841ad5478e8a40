// Package directory opens the control database that holds the tenant
// directory. Production runs on PostgreSQL; single-node deployments and
// tests can point it at a SQLite file.
package directory

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Black-And-White-Club/award-rotation/config"
	tenantdb "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/repositories"
	tenantmigrations "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/repositories/migrations"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	_ "modernc.org/sqlite"
)

// Open connects to the directory database for driver and verifies it with a ping.
func Open(ctx context.Context, driver, dsn string) (*bun.DB, error) {
	var db *bun.DB
	switch driver {
	case config.RegistryDriverPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		db = bun.NewDB(sqldb, pgdialect.New())
	case config.RegistryDriverSQLite:
		sqldb, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite directory: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	default:
		return nil, fmt.Errorf("unsupported registry driver %q", driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping directory database: %w", err)
	}

	db.RegisterModel((*tenantdb.Tenant)(nil))
	return db, nil
}

// NewMigrator returns the migrator for the directory schema.
func NewMigrator(db *bun.DB) *migrate.Migrator {
	return migrate.NewMigrator(db, tenantmigrations.Migrations, migrate.WithMarkAppliedOnSuccess(true))
}

// Migrate brings the directory schema up to date.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := NewMigrator(db)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to init directory migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate directory: %w", err)
	}
	return group, nil
}
