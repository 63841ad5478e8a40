package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	rotationservice "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/application"
	rotationmigrations "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/infrastructure/repositories/migrations"
	tenantservice "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/application"
	"github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/directory"
	tenantdb "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/repositories"
	tenantstore "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/store"
	"github.com/Black-And-White-Club/award-rotation/app/observability"
	"github.com/Black-And-White-Club/award-rotation/app/shared/eventdate"
	"github.com/Black-And-White-Club/award-rotation/config"
	"github.com/uptrace/bun"
	"github.com/urfave/cli/v2"
)

// ctl holds what every command needs once Before has run. Announcements are
// not published from the CLI.
type ctl struct {
	out      io.Writer
	db       *bun.DB
	registry *tenantservice.Registry
	sessions *tenantservice.SessionManager
	service  *rotationservice.RotationService
	dates    *eventdate.Parser
}

func main() {
	c := &ctl{out: os.Stdout, dates: eventdate.NewParser()}
	if err := newApp(c).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(c *ctl) *cli.App {
	return &cli.App{
		Name:  "rotationctl",
		Usage: "administer award rotations per tenant",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "Path to the configuration file", EnvVars: []string{"CONFIG_PATH"}},
			&cli.StringFlag{Name: "tenant", Aliases: []string{"t"}, Usage: "tenant id", EnvVars: []string{"TENANT_ID"}},
			&cli.StringFlag{Name: "tz", Value: "UTC", Usage: "timezone for event dates"},
		},
		Before: func(cc *cli.Context) error {
			cfg, err := config.LoadConfig(cc.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return c.init(cc.Context, cfg)
		},
		After: func(*cli.Context) error {
			return c.close()
		},
		Commands: commands(c),
	}
}

func (c *ctl) init(ctx context.Context, cfg *config.Config) error {
	obs := observability.New(cfg.Observability)

	db, err := directory.Open(ctx, cfg.Registry.Driver, cfg.Registry.DSN)
	if err != nil {
		return err
	}
	if _, err := directory.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	c.db = db
	c.registry = tenantservice.NewRegistry(db, tenantdb.NewRepository(db), rotationmigrations.Migrations, cfg.Tenants, obs.Logger, obs.Metrics)
	c.sessions = tenantservice.NewSessionManager(c.registry, obs.Logger, obs.Metrics, obs.Tracer)
	c.service = rotationservice.NewRotationService(rotationservice.DefaultRepositories(), nil, obs.Logger, obs.Metrics, obs.Tracer)
	return nil
}

func (c *ctl) close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// run executes fn in a session for the --tenant flag and prints its result.
func (c *ctl) run(cc *cli.Context, fn func(ctx context.Context, store rotationservice.TenantStore) (any, error)) error {
	var out any
	err := c.sessions.WithTenant(cc.Context, cc.String("tenant"), func(ctx context.Context, store *tenantstore.Store) error {
		var err error
		out, err = fn(ctx, store)
		return err
	})
	if err != nil {
		return err
	}
	return c.print(out)
}

func (c *ctl) print(v any) error {
	if v == nil {
		return nil
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
