package rotation

import (
	"context"

	"github.com/Black-And-White-Club/award-rotation/app/observability"
	rotationservice "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/application"
	rotationhandlers "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/infrastructure/handlers"
)

// Module represents the rotation module.
type Module struct {
	RotationService *rotationservice.RotationService
	Handlers        *rotationhandlers.RotationHandlers
}

// NewRotationModule creates the rotation service and its HTTP handlers.
// announcer may be nil when announcements are disabled.
func NewRotationModule(
	ctx context.Context,
	obs observability.Observability,
	sessions rotationhandlers.Sessions,
	announcer rotationservice.Announcer,
) *Module {
	logger := obs.Logger
	logger.InfoContext(ctx, "rotation.NewRotationModule initializing")

	// 1. Initialize Service
	service := rotationservice.NewRotationService(
		rotationservice.DefaultRepositories(),
		announcer,
		logger,
		obs.Metrics,
		obs.Tracer,
	)

	// 2. Initialize Handlers
	handlers := rotationhandlers.NewRotationHandlers(sessions, service, logger)

	return &Module{
		RotationService: service,
		Handlers:        handlers,
	}
}
