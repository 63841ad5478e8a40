package rotationservice

import (
	"errors"
	"fmt"
	"strings"

	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
)

var (
	// ErrNotEligible indicates the participant is outside the eligible set.
	ErrNotEligible = errors.New("participant is not eligible")

	// ErrNotFound indicates a participant, event or assignment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvariantViolation indicates stored projections disagree with the ledger.
	ErrInvariantViolation = errors.New("rotation invariant violated")

	// ErrDuplicateName indicates the name is already used within the kind.
	ErrDuplicateName = errors.New("name already exists")

	// ErrInvalidInput indicates a malformed request.
	ErrInvalidInput = errors.New("invalid input")

	// ErrExclusionUnsupported indicates exclusion was requested for a kind
	// whose participants cannot be excluded.
	ErrExclusionUnsupported = errors.New("exclusion is not supported for this kind")
)

// NotEligibleError carries the eligible set at the time an assignment was
// rejected so callers can present the valid choices.
type NotEligibleError struct {
	Kind          rotationdomain.Kind
	ParticipantID int64
	Name          string
	Excluded      bool
	Cycle         rotationdomain.Cycle
	Eligible      []rotationdomain.Participant
}

func (e *NotEligibleError) Error() string {
	names := make([]string, 0, len(e.Eligible))
	for _, p := range e.Eligible {
		names = append(names, p.Name)
	}
	reason := "not at the minimum award count"
	if e.Excluded {
		reason = "excluded from the rotation"
	}
	return fmt.Sprintf("%s %q is %s; eligible: [%s]", e.Kind.ParticipantNoun(), e.Name, reason, strings.Join(names, ", "))
}

// Is makes errors.Is(err, ErrNotEligible) match.
func (e *NotEligibleError) Is(target error) bool {
	return target == ErrNotEligible
}
