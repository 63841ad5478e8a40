package tenantservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Black-And-White-Club/award-rotation/app/observability"
	tenantstore "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/store"
	"github.com/Black-And-White-Club/award-rotation/app/shared/tenantctx"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Resolver opens an existing tenant store.
type Resolver interface {
	Resolve(ctx context.Context, tenantID string) (*tenantstore.Store, error)
}

// SessionManager hands out one store handle per logical operation. Handles
// are never cached or shared between calls.
type SessionManager struct {
	resolver Resolver
	logger   *slog.Logger
	metrics  observability.Metrics
	tracer   trace.Tracer
}

// NewSessionManager creates a SessionManager on top of resolver.
func NewSessionManager(resolver Resolver, logger *slog.Logger, metrics observability.Metrics, tracer trace.Tracer) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewNoop()
	}
	return &SessionManager{
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracer,
	}
}

// WithTenant resolves tenantID, runs fn with the open store and closes the
// store on every exit path. A panic in fn is returned as an error wrapping
// ErrOperationPanicked. A close failure is logged and never replaces the
// error returned by fn.
func (m *SessionManager) WithTenant(ctx context.Context, tenantID string, fn func(ctx context.Context, store *tenantstore.Store) error) (err error) {
	if tenantID == "" {
		return ErrTenantRequired
	}

	ctx = tenantctx.WithTenantID(ctx, tenantID)
	ctx, _ = tenantctx.EnsureCorrelationID(ctx)

	if m.tracer != nil {
		var span trace.Span
		ctx, span = m.tracer.Start(ctx, "TenantSession", trace.WithAttributes(
			attribute.String("tenant_id", tenantID),
		))
		defer func() {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}()
	}

	store, err := m.resolver.Resolve(ctx, tenantID)
	if err != nil {
		m.logger.WarnContext(ctx, "Failed to open tenant session",
			tenantctx.TenantAttr(ctx),
			tenantctx.CorrelationAttr(ctx),
			slog.Any("error", err),
		)
		return err
	}
	m.metrics.SessionOpened()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrOperationPanicked, r)
			m.logger.ErrorContext(ctx, "Panic recovered in tenant session",
				tenantctx.TenantAttr(ctx),
				tenantctx.CorrelationAttr(ctx),
				slog.Any("panic", r),
			)
		}
		if cerr := store.Close(); cerr != nil {
			m.logger.WarnContext(ctx, "Failed to close tenant store",
				tenantctx.TenantAttr(ctx),
				slog.Any("error", cerr),
			)
		}
		m.metrics.SessionClosed()
	}()

	return fn(ctx, store)
}
