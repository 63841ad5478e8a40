package rotationdomain

import "time"

// Topics for award notices published after a rotation transaction commits.
const (
	AwardAssignedV1   = "award.assigned.v1"
	AwardUnassignedV1 = "award.unassigned.v1"
)

// AwardNotice is the payload announced after an assign or unassign commits.
type AwardNotice struct {
	Topic           string    `json:"-"`
	TenantID        string    `json:"tenant_id"`
	Kind            Kind      `json:"kind"`
	AssignmentID    int64     `json:"assignment_id"`
	ParticipantID   int64     `json:"participant_id"`
	ParticipantName string    `json:"participant_name"`
	EventID         int64     `json:"event_id"`
	EventName       string    `json:"event_name"`
	AwardCount      int       `json:"award_count"`
	OccurredAt      time.Time `json:"occurred_at"`
}
