package announce

import (
	"context"
	"fmt"

	"github.com/Black-And-White-Club/award-rotation/app/eventbus"
	announceservice "github.com/Black-And-White-Club/award-rotation/app/modules/announce/application"
	"github.com/Black-And-White-Club/award-rotation/app/observability"
	"github.com/Black-And-White-Club/award-rotation/config"
)

// Module represents the announce module.
type Module struct {
	Registry      *announceservice.Registry
	Publisher     *announceservice.BusPublisher
	observability observability.Observability
}

// NewAnnounceModule wires the announcer registry to the event bus.
func NewAnnounceModule(ctx context.Context, cfg config.AnnouncementsConfig, bus *eventbus.EventBus, obs observability.Observability) *Module {
	logger := obs.Logger
	logger.InfoContext(ctx, "announce.NewAnnounceModule initializing")

	registry := announceservice.NewRegistry(bus.Subscriber(), bus.WatermillLogger(), cfg, logger, obs.Metrics)

	return &Module{
		Registry:      registry,
		Publisher:     announceservice.NewBusPublisher(bus),
		observability: obs,
	}
}

// Start begins consuming award events.
func (m *Module) Start(ctx context.Context) error {
	if err := m.Registry.Start(ctx); err != nil {
		return fmt.Errorf("failed to start announcer registry: %w", err)
	}
	return nil
}

// Close shuts down the announce module.
func (m *Module) Close() error {
	logger := m.observability.Logger
	logger.Info("Stopping announce module")

	if err := m.Registry.Stop(); err != nil {
		logger.Error("Error stopping announcer registry", "error", err)
		return fmt.Errorf("error stopping announcer registry: %w", err)
	}

	logger.Info("Announce module stopped")
	return nil
}
