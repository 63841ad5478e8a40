package rotationhandlers

import (
	"errors"
	"log/slog"
	"net/http"

	rotationservice "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/application"
	tenantservice "github.com/Black-And-White-Club/award-rotation/app/modules/tenant/application"
	"github.com/Black-And-White-Club/award-rotation/app/shared/httpjson"
	"github.com/Black-And-White-Club/award-rotation/app/shared/tenantctx"
)

// Machine-readable error codes.
const (
	CodeTenantNotFound     = "tenant_not_found"
	CodeStoreUnavailable   = "store_unavailable"
	CodeNotEligible        = "not_eligible"
	CodeNotFound           = "not_found"
	CodeInvariantViolation = "invariant_violation"
	CodeInvalidInput       = "invalid_input"
	CodeDuplicateName      = "duplicate_name"
	CodeInternal           = "internal"
)

// Classify maps an error to its HTTP status and code.
func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, tenantservice.ErrTenantNotFound):
		return http.StatusNotFound, CodeTenantNotFound
	case errors.Is(err, tenantservice.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, CodeStoreUnavailable
	case errors.Is(err, tenantservice.ErrTenantRequired),
		errors.Is(err, tenantservice.ErrInvalidTenantID):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, rotationservice.ErrNotEligible):
		return http.StatusConflict, CodeNotEligible
	case errors.Is(err, rotationservice.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, rotationservice.ErrDuplicateName):
		return http.StatusConflict, CodeDuplicateName
	case errors.Is(err, rotationservice.ErrInvalidInput),
		errors.Is(err, rotationservice.ErrExclusionUnsupported):
		return http.StatusBadRequest, CodeInvalidInput
	case errors.Is(err, rotationservice.ErrInvariantViolation):
		return http.StatusInternalServerError, CodeInvariantViolation
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

type notEligibleDetails struct {
	Kind     string   `json:"kind"`
	Cycle    string   `json:"cycle"`
	Excluded bool     `json:"excluded"`
	Eligible []string `json:"eligible"`
}

func (h *RotationHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := Classify(err)
	body := httpjson.ErrorBody{Code: code, Message: err.Error()}

	var ne *rotationservice.NotEligibleError
	if errors.As(err, &ne) {
		names := make([]string, 0, len(ne.Eligible))
		for _, p := range ne.Eligible {
			names = append(names, p.Name)
		}
		body.Details = notEligibleDetails{
			Kind:     ne.Kind.String(),
			Cycle:    string(ne.Cycle),
			Excluded: ne.Excluded,
			Eligible: names,
		}
	}

	if code == CodeInternal {
		h.logger.ErrorContext(r.Context(), "Request failed",
			tenantctx.TenantAttr(r.Context()),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		body.Message = http.StatusText(status)
	}
	httpjson.WriteError(w, status, body)
}
