package rotationhandlers

import (
	"context"
	"net/http"

	rotationservice "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/application"
)

// ListEvents lists events newest first.
func (h *RotationHandlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		return h.service.ListEvents(ctx, store)
	})
}

// GetEvent returns one event with its award flags.
func (h *RotationHandlers) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		return h.service.GetEvent(ctx, store, id)
	})
}

// CreateEvent records an event. A missing event_date means now.
func (h *RotationHandlers) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in rotationservice.EventInput
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.serve(w, r, http.StatusCreated, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		return h.service.CreateEvent(ctx, store, in)
	})
}

// UpdateEvent rewrites an event's details.
func (h *RotationHandlers) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var in rotationservice.EventInput
	if err := decode(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		return h.service.UpdateEvent(ctx, store, id, in)
	})
}

// DeleteEvent removes an event and undoes its assignments.
func (h *RotationHandlers) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "eventID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		return h.service.DeleteEvent(ctx, store, id)
	})
}
