package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Black-And-White-Club/award-rotation/app/eventbus"
	"github.com/Black-And-White-Club/award-rotation/app/modules/announce"
	"github.com/Black-And-White-Club/award-rotation/app/modules/rotation"
	rotationservice "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/application"
	"github.com/Black-And-White-Club/award-rotation/app/modules/tenant"
	"github.com/Black-And-White-Club/award-rotation/app/observability"
	"github.com/Black-And-White-Club/award-rotation/config"
)

// eventBufferSize is the per-subscriber buffer of the in-process bus.
const eventBufferSize = 256

// App holds the modules and shared infrastructure of one process.
type App struct {
	Config         *config.Config
	Observability  observability.Observability
	EventBus       *eventbus.EventBus
	TenantModule   *tenant.Module
	RotationModule *rotation.Module
	AnnounceModule *announce.Module

	server        *http.Server
	metricsServer *http.Server
}

// Initialize builds every module from cfg.
func (app *App) Initialize(ctx context.Context, cfg *config.Config) error {
	app.Config = cfg
	app.Observability = observability.New(cfg.Observability)
	logger := app.Observability.Logger

	logger.InfoContext(ctx, "Initializing application")

	app.EventBus = eventbus.NewEventBus(logger, eventBufferSize)

	tenantModule, err := tenant.NewTenantModule(ctx, cfg, app.Observability)
	if err != nil {
		return fmt.Errorf("failed to initialize tenant module: %w", err)
	}
	app.TenantModule = tenantModule

	var announcer rotationservice.Announcer
	if cfg.Announcements.Enabled {
		app.AnnounceModule = announce.NewAnnounceModule(ctx, cfg.Announcements, app.EventBus, app.Observability)
		announcer = app.AnnounceModule.Publisher
	}

	app.RotationModule = rotation.NewRotationModule(ctx, app.Observability, tenantModule.Sessions, announcer)

	logger.InfoContext(ctx, "Application initialized")
	return nil
}

// Close releases every module. It is safe after a partial Initialize.
func (app *App) Close() error {
	var errs []error
	if app.AnnounceModule != nil {
		errs = append(errs, app.AnnounceModule.Close())
	}
	if app.EventBus != nil {
		errs = append(errs, app.EventBus.Close())
	}
	if app.TenantModule != nil {
		errs = append(errs, app.TenantModule.Close())
	}
	return errors.Join(errs...)
}
