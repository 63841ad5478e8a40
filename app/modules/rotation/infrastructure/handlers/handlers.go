package rotationhandlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	rotationservice "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/application"
	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	tenantstore "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/infrastructure/store"
	"github.com/Black-And-White-Club/award-rotation/app/shared/httpjson"
	"github.com/go-chi/chi/v5"
)

// Sessions opens a tenant store for the duration of fn.
type Sessions interface {
	WithTenant(ctx context.Context, tenantID string, fn func(ctx context.Context, store *tenantstore.Store) error) error
}

// RotationHandlers exposes the rotation service over JSON.
type RotationHandlers struct {
	sessions Sessions
	service  *rotationservice.RotationService
	logger   *slog.Logger
}

// NewRotationHandlers creates the rotation HTTP handlers.
func NewRotationHandlers(sessions Sessions, service *rotationservice.RotationService, logger *slog.Logger) *RotationHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &RotationHandlers{sessions: sessions, service: service, logger: logger}
}

// Routes mounts under /tenants/{tenantID}.
func (h *RotationHandlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/rotations/{kind}", func(r chi.Router) {
		r.Get("/status", h.GetStatus)
		r.Post("/assignments", h.Assign)
		r.Delete("/assignments/{assignmentID}", h.Unassign)
		r.Post("/reset", h.Reset)
		r.Get("/verify", h.Verify)
		r.Post("/rebuild", h.Rebuild)

		r.Get("/participants", h.ListParticipants)
		r.Post("/participants", h.CreateParticipant)
		r.Get("/participants/{participantID}", h.GetParticipant)
		r.Patch("/participants/{participantID}", h.RenameParticipant)
		r.Delete("/participants/{participantID}", h.DeleteParticipant)
		r.Put("/participants/{participantID}/excluded", h.SetExcluded)
		r.Get("/participants/{participantID}/history", h.History)
		r.Get("/participants/{participantID}/count", h.Count)
	})

	r.Get("/events", h.ListEvents)
	r.Post("/events", h.CreateEvent)
	r.Get("/events/{eventID}", h.GetEvent)
	r.Put("/events/{eventID}", h.UpdateEvent)
	r.Delete("/events/{eventID}", h.DeleteEvent)

	return r
}

// serve runs fn inside a session for the request's tenant and writes its
// result with status. A nil result writes 204.
func (h *RotationHandlers) serve(w http.ResponseWriter, r *http.Request, status int, fn func(ctx context.Context, store rotationservice.TenantStore) (any, error)) {
	var out any
	err := h.sessions.WithTenant(r.Context(), chi.URLParam(r, "tenantID"), func(ctx context.Context, store *tenantstore.Store) error {
		var err error
		out, err = fn(ctx, store)
		return err
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if out == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpjson.Write(w, status, out)
}

func kindParam(r *http.Request) (rotationdomain.Kind, error) {
	kind, err := rotationdomain.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		return "", fmt.Errorf("%w: %w", rotationservice.ErrInvalidInput, err)
	}
	return kind, nil
}

func idParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", rotationservice.ErrInvalidInput, name, raw)
	}
	return id, nil
}

func decode(r *http.Request, v any) error {
	if err := httpjson.Decode(r, v); err != nil {
		return fmt.Errorf("%w: %w", rotationservice.ErrInvalidInput, err)
	}
	return nil
}
