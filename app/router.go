package app

import (
	"net/http"

	"github.com/Black-And-White-Club/award-rotation/app/shared/tenantctx"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Router builds the JSON adapter:
//
//	/tenants/{tenantID}/...   rotation and event operations
//	/admin/tenants/...        tenant lifecycle
//	/metrics                  Prometheus
//	/healthz                  liveness
func (app *App) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(correlation)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", app.metricsHandler())

	r.Mount("/admin/tenants", app.TenantModule.Handlers.Routes())
	r.Mount("/tenants/{tenantID}", app.RotationModule.Handlers.Routes())

	return otelhttp.NewHandler(r, "award-rotation")
}

func (app *App) metricsHandler() http.Handler {
	return promhttp.HandlerFor(app.Observability.Registry, promhttp.HandlerOpts{})
}

// correlation carries the request id into the context as the correlation id
// so every log line and announcement of the request shares it.
func correlation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := middleware.GetReqID(ctx); id != "" {
			ctx = tenantctx.WithCorrelationID(ctx, id)
		}
		w.Header().Set("X-Correlation-ID", tenantctx.CorrelationID(ctx))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
