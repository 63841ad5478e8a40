package rotationhandlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	rotationservice "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/application"
)

type assignRequest struct {
	ParticipantID int64 `json:"participant_id"`
	EventID       int64 `json:"event_id"`
}

type countResponse struct {
	ParticipantID int64 `json:"participant_id"`
	AwardCount    int   `json:"award_count"`
}

type resetResponse struct {
	Removed int `json:"removed"`
}

type reportResponse struct {
	rotationservice.LedgerReport
	Consistent bool `json:"consistent"`
}

// GetStatus returns the eligible set, holder and stats for a kind.
func (h *RotationHandlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		return h.service.RotationStatus(ctx, store, kind)
	})
}

// Assign gives the award for an event to an eligible participant.
func (h *RotationHandlers) Assign(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req assignRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.serve(w, r, http.StatusCreated, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		return h.service.Assign(ctx, store, kind, req.ParticipantID, req.EventID)
	})
}

// Unassign reverts one assignment.
func (h *RotationHandlers) Unassign(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, err := idParam(r, "assignmentID")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		return h.service.Unassign(ctx, store, kind, id)
	})
}

// History lists a participant's assignments, newest first.
func (h *RotationHandlers) History(w http.ResponseWriter, r *http.Request) {
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
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.writeError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", rotationservice.ErrInvalidInput))
			return
		}
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		return h.service.History(ctx, store, kind, id, limit)
	})
}

// Count returns a participant's award count.
func (h *RotationHandlers) Count(w http.ResponseWriter, r *http.Request) {
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
		n, err := h.service.CountFor(ctx, store, kind, id)
		if err != nil {
			return nil, err
		}
		return countResponse{ParticipantID: id, AwardCount: n}, nil
	})
}

// Reset empties a kind's ledger and zeroes its counts.
func (h *RotationHandlers) Reset(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		removed, err := h.service.ResetRotation(ctx, store, kind)
		if err != nil {
			return nil, err
		}
		return resetResponse{Removed: removed}, nil
	})
}

// Verify replays the ledger and reports drift. Drift is the answer, not a
// failure, so it is returned with 200.
func (h *RotationHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		report, err := h.service.VerifyLedger(ctx, store, kind)
		if err != nil && !errors.Is(err, rotationservice.ErrInvariantViolation) {
			return nil, err
		}
		return reportResponse{LedgerReport: report, Consistent: report.Consistent()}, nil
	})
}

// Rebuild rewrites projections from the ledger.
func (h *RotationHandlers) Rebuild(w http.ResponseWriter, r *http.Request) {
	kind, err := kindParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.serve(w, r, http.StatusOK, func(ctx context.Context, store rotationservice.TenantStore) (any, error) {
		report, err := h.service.RebuildProjections(ctx, store, kind)
		if err != nil {
			return nil, err
		}
		return reportResponse{LedgerReport: report, Consistent: report.Consistent()}, nil
	})
}
