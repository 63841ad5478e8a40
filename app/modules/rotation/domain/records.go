package rotationdomain

import "time"

// Assignment is a ledger entry together with the names it refers to.
type Assignment struct {
	ID              int64     `json:"id"`
	Kind            Kind      `json:"kind"`
	ParticipantID   int64     `json:"participant_id"`
	ParticipantName string    `json:"participant_name,omitempty"`
	EventID         int64     `json:"event_id"`
	EventName       string    `json:"event_name,omitempty"`
	AssignedAt      time.Time `json:"assigned_at"`
}

// Event is an occasion awards are given for. Events are reusable; HasMVP and
// HasWinner only record that at least one assignment of that kind exists.
type Event struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	EventDate   time.Time `json:"event_date"`
	HasMVP      bool      `json:"has_mvp"`
	HasWinner   bool      `json:"has_winner"`
	CreatedAt   time.Time `json:"created_at"`
}
