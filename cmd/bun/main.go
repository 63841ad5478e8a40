package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Black-And-White-Club/award-rotation/app/observability"
	rotationmigrations "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/infrastructure/repositories/migrations"
	tenantservice "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/application"
	"github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/directory"
	tenantdb "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/repositories"
	"github.com/Black-And-White-Club/award-rotation/config"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

// env carries what the commands share once Before has run.
type env struct {
	cfg *config.Config
	db  *bun.DB
}

func main() {
	e := &env{}

	cliApp := &cli.App{
		Name:  "bun",
		Usage: "directory and tenant store migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "Path to the configuration file"},
		},
		Before: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			db, err := directory.Open(c.Context, cfg.Registry.Driver, cfg.Registry.DSN)
			if err != nil {
				return err
			}
			e.cfg, e.db = cfg, db
			return nil
		},
		After: func(c *cli.Context) error {
			if e.db != nil {
				return e.db.Close()
			}
			return nil
		},
		Commands: []*cli.Command{
			newDirectoryDBCommand(e),
			newTenantsCommand(e),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// migrators returns the migrators that run against the directory database.
// Tenant schema migrations are never applied here; see the tenants command.
func (e *env) migrators() map[string]*migrate.Migrator {
	return map[string]*migrate.Migrator{
		"directory": directory.NewMigrator(e.db),
	}
}

// templates returns a migrator per schema for generating new migration files.
func (e *env) templates() map[string]*migrate.Migrator {
	return map[string]*migrate.Migrator{
		"directory": directory.NewMigrator(e.db),
		"tenant":    migrate.NewMigrator(e.db, rotationmigrations.Migrations),
	}
}

func (e *env) registry() *tenantservice.Registry {
	obs := observability.New(e.cfg.Observability)
	return tenantservice.NewRegistry(e.db, tenantdb.NewRepository(e.db), rotationmigrations.Migrations, e.cfg.Tenants, obs.Logger, obs.Metrics)
}

func newDirectoryDBCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "directory database migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					for moduleName, migrator := range e.migrators() {
						fmt.Printf("Initializing migrations for module: %s\n", moduleName)
						if err := migrator.Init(c.Context); err != nil {
							fmt.Printf("Error initializing migrations for module %s: %v\n", moduleName, err)
							return err
						}
					}
					return nil
				},
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Action: func(c *cli.Context) error {
					for moduleName, migrator := range e.migrators() {
						fmt.Printf("Running migrations for module: %s\n", moduleName)
						group, err := migrator.Migrate(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No new migrations to run for module: %s\n", moduleName)
						} else {
							fmt.Printf("Migrated module: %s to %s\n", moduleName, group)
						}
					}
					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: func(c *cli.Context) error {
					for moduleName, migrator := range e.migrators() {
						fmt.Printf("Rolling back migrations for module: %s\n", moduleName)
						group, err := migrator.Rollback(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("No groups to roll back for module: %s\n", moduleName)
						} else {
							fmt.Printf("Rolled back module: %s to %s\n", moduleName, group)
						}
					}
					return nil
				},
			},
			{
				Name:      "create_go",
				Usage:     "create Go migration",
				ArgsUsage: "<directory|tenant> <name...>",
				Action: func(c *cli.Context) error {
					moduleName := c.Args().First()
					migrator, ok := e.templates()[moduleName]
					if !ok {
						return fmt.Errorf("invalid module name: %s", moduleName)
					}

					name := strings.Join(c.Args().Tail(), "_")
					mf, err := migrator.CreateGoMigration(c.Context, name)
					if err != nil {
						return err
					}
					fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
					return nil
				},
			},
			{
				Name:      "create_sql",
				Usage:     "create up and down SQL migrations",
				ArgsUsage: "<directory|tenant> <name...>",
				Action: func(c *cli.Context) error {
					moduleName := c.Args().First()
					migrator, ok := e.templates()[moduleName]
					if !ok {
						return fmt.Errorf("invalid module name: %s", moduleName)
					}

					name := strings.Join(c.Args().Tail(), "_")
					files, err := migrator.CreateSQLMigrations(c.Context, name)
					if err != nil {
						return err
					}
					for _, mf := range files {
						fmt.Printf("Created migration for module %s: %s (%s)\n", moduleName, mf.Name, mf.Path)
					}
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: func(c *cli.Context) error {
					for moduleName, migrator := range e.migrators() {
						ms, err := migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("Migrations for module: %s\n", moduleName)
						fmt.Printf("  %s\n", ms)
						fmt.Printf("  Applied: %s\n", ms.Applied())
						fmt.Printf("  Unapplied: %s\n", ms.Unapplied())
					}
					return nil
				},
			},
		},
	}
}

func newTenantsCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "tenants",
		Usage: "tenant store migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list active tenants",
				Action: func(c *cli.Context) error {
					tenants, err := e.registry().List(c.Context)
					if err != nil {
						return err
					}
					for _, t := range tenants {
						fmt.Printf("%s\t%s\t%s\n", t.ID, t.State, t.StorePath)
					}
					return nil
				},
			},
			{
				Name:  "migrate-all",
				Usage: "apply pending migrations to every active tenant store",
				Action: func(c *cli.Context) error {
					if err := e.registry().MigrateAll(c.Context); err != nil {
						return fmt.Errorf("tenant migrations failed: %w", err)
					}
					fmt.Println("All tenant stores are up to date")
					return nil
				},
			},
			{
				Name:      "provision",
				Usage:     "create a tenant and its store",
				ArgsUsage: "<tenant-id>",
				Action: func(c *cli.Context) error {
					return provision(c.Context, e.registry(), c.Args().First())
				},
			},
		},
	}
}

func provision(ctx context.Context, registry *tenantservice.Registry, tenantID string) error {
	store, err := registry.Provision(ctx, tenantID)
	if err != nil {
		return err
	}
	fmt.Printf("Provisioned tenant %s at %s\n", tenantID, store.Path())
	return store.Close()
}
