package rotationdb

import (
	"context"
	"time"

	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	"github.com/uptrace/bun"
)

// Every repository is stateless and takes the tenant handle (or a transaction
// on it) per call, so the service decides what runs inside one transaction.

// ParticipantRepository persists players and alliances.
type ParticipantRepository interface {
	// List returns participants ordered by name. Excluded players are left
	// out unless includeExcluded is set.
	List(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, includeExcluded bool) ([]Participant, error)

	// Get returns ErrNotFound when id does not exist.
	Get(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64) (*Participant, error)

	// Create returns ErrDuplicateName when the name is taken.
	Create(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, p *Participant) error

	// Rename returns ErrNotFound or ErrDuplicateName.
	Rename(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64, name string, at time.Time) error

	// Delete removes the participant; its assignments cascade.
	Delete(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64) error

	SetExcluded(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64, excluded bool, at time.Time) error
	IncrementCount(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64, at time.Time) error
	// DecrementCount lowers award_count by one, floored at zero.
	DecrementCount(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64, at time.Time) error
	SetCount(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64, count int, at time.Time) error
	ResetCounts(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, at time.Time) error

	// ClearHolders sets is_current_holder=false on every participant of kind.
	ClearHolders(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, at time.Time) error
	SetHolder(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64, at time.Time) error
	CountHolders(ctx context.Context, db bun.IDB, kind rotationdomain.Kind) (int, error)
}

// EventRepository persists events.
type EventRepository interface {
	Create(ctx context.Context, db bun.IDB, e *Event) error
	Get(ctx context.Context, db bun.IDB, id int64) (*Event, error)
	// List returns events newest first.
	List(ctx context.Context, db bun.IDB) ([]Event, error)
	// Update rewrites name, description and event_date.
	Update(ctx context.Context, db bun.IDB, e *Event) error
	Delete(ctx context.Context, db bun.IDB, id int64) error
	SetFlag(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64, value bool) error
	ClearFlags(ctx context.Context, db bun.IDB, kind rotationdomain.Kind) error
}

// LedgerRepository is the append-only assignment ledger. Entries are removed
// only by unassign, event deletion, participant deletion and rotation reset.
type LedgerRepository interface {
	Append(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, participantID, eventID int64, at time.Time) (*Assignment, error)
	Get(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64) (*Assignment, error)
	Delete(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, id int64) error

	CountFor(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, participantID int64) (int, error)
	CountsByParticipant(ctx context.Context, db bun.IDB, kind rotationdomain.Kind) (map[int64]int, error)

	// History returns entries most recent first. participantID 0 means every
	// participant; limit <= 0 means no limit.
	History(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, participantID int64, limit int) ([]Assignment, error)
	// Latest returns the most recent entry, or ErrNotFound on an empty ledger.
	Latest(ctx context.Context, db bun.IDB, kind rotationdomain.Kind) (*Assignment, error)
	// ListAll returns every entry in append order.
	ListAll(ctx context.Context, db bun.IDB, kind rotationdomain.Kind) ([]Assignment, error)
	ListByEvent(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, eventID int64) ([]Assignment, error)
	ExistsForEvent(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, eventID int64) (bool, error)

	DeleteByEvent(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, eventID int64) (int, error)
	DeleteAll(ctx context.Context, db bun.IDB, kind rotationdomain.Kind) (int, error)
}

// StateRepository owns the rotation_state lock rows.
type StateRepository interface {
	// AcquireRotationLock bumps the kind's version. It must be the first
	// statement of every rotation write transaction.
	AcquireRotationLock(ctx context.Context, db bun.IDB, kind rotationdomain.Kind, at time.Time) (int64, error)
	Get(ctx context.Context, db bun.IDB, kind rotationdomain.Kind) (*RotationState, error)
}
