package rotationdb

import (
	"time"

	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	"github.com/uptrace/bun"
)

// Participant is a row of players or alliances. Queries pick the table from
// the kind via ModelTableExpr; the default table is players.
type Participant struct {
	bun.BaseModel   `bun:"table:players,alias:p"`
	ID              int64     `bun:"id,pk,autoincrement"`
	Name            string    `bun:"name,notnull"`
	AwardCount      int       `bun:"award_count,notnull"`
	IsCurrentHolder bool      `bun:"is_current_holder,notnull"`
	IsExcluded      bool      `bun:"is_excluded,notnull"`
	CreatedAt       time.Time `bun:"created_at,notnull"`
	UpdatedAt       time.Time `bun:"updated_at,notnull"`
}

// ToDomain converts the row to the domain view.
func (p Participant) ToDomain() rotationdomain.Participant {
	return rotationdomain.Participant{
		ID:              p.ID,
		Name:            p.Name,
		AwardCount:      p.AwardCount,
		IsCurrentHolder: p.IsCurrentHolder,
		IsExcluded:      p.IsExcluded,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// ParticipantsToDomain converts a slice of rows.
func ParticipantsToDomain(rows []Participant) []rotationdomain.Participant {
	out := make([]rotationdomain.Participant, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToDomain())
	}
	return out
}

// Event is an occasion awards are given for. Events are reusable: the flags
// record whether any assignment of that kind references the event.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:e"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Name          string    `bun:"name,notnull" json:"name"`
	Description   *string   `bun:"description" json:"description,omitempty"`
	EventDate     time.Time `bun:"event_date,notnull" json:"event_date"`
	HasMVP        bool      `bun:"has_mvp,notnull" json:"has_mvp"`
	HasWinner     bool      `bun:"has_winner,notnull" json:"has_winner"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// ToDomain converts the row to the domain view.
func (e Event) ToDomain() rotationdomain.Event {
	return rotationdomain.Event{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		EventDate:   e.EventDate,
		HasMVP:      e.HasMVP,
		HasWinner:   e.HasWinner,
		CreatedAt:   e.CreatedAt,
	}
}

// Assignment is one ledger entry of mvp_assignments or winner_assignments.
type Assignment struct {
	bun.BaseModel `bun:"table:mvp_assignments,alias:a"`
	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	ParticipantID int64     `bun:"participant_id,notnull" json:"participant_id"`
	EventID       int64     `bun:"event_id,notnull" json:"event_id"`
	AssignedAt    time.Time `bun:"assigned_at,notnull" json:"assigned_at"`

	ParticipantName string `bun:"participant_name,scanonly" json:"participant_name,omitempty"`
	EventName       string `bun:"event_name,scanonly" json:"event_name,omitempty"`
}

// Entry converts the row to a ledger entry.
func (a Assignment) Entry() rotationdomain.LedgerEntry {
	return rotationdomain.LedgerEntry{
		ID:            a.ID,
		ParticipantID: a.ParticipantID,
		EventID:       a.EventID,
		AssignedAt:    a.AssignedAt,
	}
}

// ToDomain converts the row to the domain view for kind.
func (a Assignment) ToDomain(kind rotationdomain.Kind) rotationdomain.Assignment {
	return rotationdomain.Assignment{
		ID:              a.ID,
		Kind:            kind,
		ParticipantID:   a.ParticipantID,
		ParticipantName: a.ParticipantName,
		EventID:         a.EventID,
		EventName:       a.EventName,
		AssignedAt:      a.AssignedAt,
	}
}

// AssignmentsToDomain converts a slice of rows.
func AssignmentsToDomain(kind rotationdomain.Kind, rows []Assignment) []rotationdomain.Assignment {
	out := make([]rotationdomain.Assignment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToDomain(kind))
	}
	return out
}

// Entries converts a slice of rows.
func Entries(rows []Assignment) []rotationdomain.LedgerEntry {
	out := make([]rotationdomain.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Entry())
	}
	return out
}

// RotationState is the per-kind lock row and change counter.
type RotationState struct {
	bun.BaseModel `bun:"table:rotation_state,alias:rs"`
	Kind          string    `bun:"kind,pk"`
	Version       int64     `bun:"version,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}
