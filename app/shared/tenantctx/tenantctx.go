// Package tenantctx carries the tenant id and correlation id of one logical
// operation through context.Context for logging and tracing.
package tenantctx

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

type tenantKey struct{}

type correlationKey struct{}

// WithTenantID returns a copy of ctx that carries tenantID.
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantID returns the tenant id stored in ctx, or "" when none is set.
func TenantID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(tenantKey{}).(string)
	return id
}

// WithCorrelationID returns a copy of ctx that carries id.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

// CorrelationID returns the correlation id stored in ctx, or "".
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}

// EnsureCorrelationID returns ctx unchanged when it already carries a
// correlation id, otherwise a copy with a fresh one.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := CorrelationID(ctx); id != "" {
		return ctx, id
	}
	id := uuid.NewString()
	return WithCorrelationID(ctx, id), id
}

// CorrelationAttr extracts the correlation id as a log attribute.
func CorrelationAttr(ctx context.Context) slog.Attr {
	return slog.String("correlation_id", CorrelationID(ctx))
}

// TenantAttr extracts the tenant id as a log attribute.
func TenantAttr(ctx context.Context) slog.Attr {
	return slog.String("tenant_id", TenantID(ctx))
}
