package rotationhandlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	rotationservice "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/application"
)

type nameRequest struct {
	Name string `json:"name"`
}

type excludedRequest struct {
	Excluded *bool `json:"excluded"`
}

// ListParticipants lists a kind's participants ordered by name. Excluded
// players are included unless include_excluded=false.
func (h *RotationHandlers) ListParticipants(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	includeExcluded := true
	if raw := r.URL.Query().Get("include_excluded"); raw != "" {
		includeExcluded, err = strconv.ParseBool(raw)
		if err != nil {
			h.writeError(w, r, fmt.Errorf("%w: include_excluded must be a boolean", rotationservice.ErrInvalidInput))
			return
		}
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		return h.service.ListParticipants(ctx, store, kind, includeExcluded)
	})
}

// GetParticipant returns one participant.
func (h *RotationHandlers) GetParticipant(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := idParam(r, "participantID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		return h.service.GetParticipant(ctx, store, kind, id)
	})
}

// CreateParticipant adds a participant.
func (h *RotationHandlers) CreateParticipant(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req nameRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.serve(w, r, http.StatusCreated, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		return h.service.CreateParticipant(ctx, store, kind, req.Name)
	})
}

// RenameParticipant changes a participant's name.
func (h *RotationHandlers) RenameParticipant(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := idParam(r, "participantID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req nameRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		return h.service.RenameParticipant(ctx, store, kind, id, req.Name)
	})
}

// DeleteParticipant removes a participant and its history.
func (h *RotationHandlers) DeleteParticipant(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := idParam(r, "participantID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.serve(w, r, http.StatusNoContent, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		return nil, h.service.DeleteParticipant(ctx, store, kind, id)
	})
}

// SetExcluded toggles a player's exclusion.
func (h *RotationHandlers) SetExcluded(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := idParam(r, "participantID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req excludedRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Excluded == nil {
		h.writeError(w, r, fmt.Errorf("%w: excluded is required", rotationservice.ErrInvalidInput))
		return
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		return h.service.SetExcluded(ctx, store, kind, id, *req.Excluded)
	})
}
