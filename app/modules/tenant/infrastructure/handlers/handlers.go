package tenanthandlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	tenantservice "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/application"
	tenantdb "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/repositories"
	tenantstore "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/store"
	"github.com/Black-And-White-Club/award-rotation/app/shared/httpjson"
	"github.com/go-chi/chi/v5"
)

// Admin is the tenant lifecycle the handlers drive.
type Admin interface {
	Provision(ctx context.Context, tenantID string) (*tenantstore.Store, error)
	Delete(ctx context.Context, tenantID string) error
	List(ctx context.Context) ([]tenantdb.Tenant, error)
	MigrateAll(ctx context.Context) error
}

// TenantHandlers exposes tenant administration over JSON.
type TenantHandlers struct {
	admin  Admin
	logger *slog.Logger
}

func NewTenantHandlers(admin Admin, logger *slog.Logger) *TenantHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantHandlers{admin: admin, logger: logger}
}

// Routes mounts under /admin/tenants.
func (h *TenantHandlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Provision)
	r.Post("/migrate", h.MigrateAll)
	r.Delete("/{tenantID}", h.Delete)
	return r
}

type provisionRequest struct {
	TenantID string `json:"tenant_id"`
}

type tenantResponse struct {
	TenantID  string    `json:"tenant_id"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Provision creates a tenant and its store, or confirms an existing one.
func (h *TenantHandlers) Provision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req provisionRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.WriteError(w, http.StatusBadRequest, httpjson.ErrorBody{Code: "invalid_input", Message: err.Error()})
		return
	}

	store, err := h.admin.Provision(ctx, req.TenantID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := store.Close(); err != nil {
		h.logger.WarnContext(ctx, "Failed to close provisioned store",
			slog.String("tenant_id", req.TenantID),
			slog.Any("error", err),
		)
	}

	httpjson.Write(w, http.StatusCreated, tenantResponse{TenantID: req.TenantID, State: string(tenantdb.StateActive)})
}

// List returns the active tenants.
func (h *TenantHandlers) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.admin.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out := make([]tenantResponse, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, tenantResponse{
			TenantID:  t.ID,
			State:     string(t.State),
			CreatedAt: t.CreatedAt,
			UpdatedAt: t.UpdatedAt,
		})
	}
	httpjson.Write(w, http.StatusOK, out)
}

// Delete removes a tenant and its store.
func (h *TenantHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Delete(r.Context(), chi.URLParam(r, "tenantID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MigrateAll applies pending migrations to every active tenant store.
func (h *TenantHandlers) MigrateAll(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.MigrateAll(r.Context()); err != nil {
		h.logger.ErrorContext(r.Context(), "Tenant migration failed", slog.Any("error", err))
		httpjson.WriteError(w, http.StatusInternalServerError, httpjson.ErrorBody{Code: "migration_failed", Message: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TenantHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, tenantservice.ErrTenantRequired), errors.Is(err, tenantservice.ErrInvalidTenantID):
		httpjson.WriteError(w, http.StatusBadRequest, httpjson.ErrorBody{Code: "invalid_input", Message: err.Error()})
	case errors.Is(err, tenantservice.ErrTenantNotFound):
		httpjson.WriteError(w, http.StatusNotFound, httpjson.ErrorBody{Code: "tenant_not_found", Message: err.Error()})
	case errors.Is(err, tenantservice.ErrStoreUnavailable):
		httpjson.WriteError(w, http.StatusServiceUnavailable, httpjson.ErrorBody{Code: "store_unavailable", Message: err.Error()})
	default:
		h.logger.ErrorContext(r.Context(), "Tenant admin request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpjson.WriteError(w, http.StatusInternalServerError, httpjson.ErrorBody{Code: "internal", Message: http.StatusText(http.StatusInternalServerError)})
	}
}
