package rotationservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	rotationdomain "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/domain"
	rotationdb "github.com/Black-And-White-Club/award-rotation/app/modules/rotation/infrastructure/repositories"
	"github.com/Black-And-White-Club/award-rotation/app/shared/results"
	"github.com/uptrace/bun"
)

// EventInput holds the editable fields of an event.
type EventInput struct {
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	EventDate   time.Time `json:"event_date"`
}

// DeleteEventSummary reports what deleting an event undid, per kind.
type DeleteEventSummary struct {
	EventID int64 `json:"event_id"`
	// Removed counts the assignments deleted for each kind.
	Removed map[rotationdomain.Kind]int `json:"removed"`
	// Decremented lists the participants whose award_count went down, per
	// kind, once per removed assignment.
	Decremented map[rotationdomain.Kind][]int64 `json:"decremented"`
}

func (in EventInput) normalize(now time.Time) (EventInput, error) {
	name, err := normalizeName(in.Name)
	if err != nil {
		return in, err
	}
	in.Name = name
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		if d == "" {
			in.Description = nil
		} else {
			in.Description = &d
		}
	}
	if in.EventDate.IsZero() {
		in.EventDate = now
	}
	return in, nil
}

// noKind labels event operations, which span both kinds.
const noKind rotationdomain.Kind = ""

// CreateEvent records a new event with no assignments.
func (s *RotationService) CreateEvent(ctx context.Context, store TenantStore, in EventInput) (rotationdomain.Event, error) {
	in, err := in.normalize(s.now())
	if err != nil {
		return rotationdomain.Event{}, err
	}
	return unwrap(withTelemetry(s, ctx, store, "CreateEvent", noKind, func(ctx context.Context) (results.OperationResult[rotationdomain.Event, error], error) {
		return runInTx(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[rotationdomain.Event, error], error) {
			e := &rotationdb.Event{
				Name:        in.Name,
				Description: in.Description,
				EventDate:   in.EventDate.UTC(),
				CreatedAt:   s.now(),
			}
			if err := s.events.Create(ctx, db, e); err != nil {
				return results.OperationResult[rotationdomain.Event, error]{}, fmt.Errorf("create event: %w", err)
			}
			return succeed(e.ToDomain())
		})
	}))
}

// UpdateEvent rewrites an event's name, description and date. The award
// flags are projections and cannot be edited.
func (s *RotationService) UpdateEvent(ctx context.Context, store TenantStore, id int64, in EventInput) (rotationdomain.Event, error) {
	in, err := in.normalize(s.now())
	if err != nil {
		return rotationdomain.Event{}, err
	}
	return unwrap(withTelemetry(s, ctx, store, "UpdateEvent", noKind, func(ctx context.Context) (results.OperationResult[rotationdomain.Event, error], error) {
		return runInTx(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[rotationdomain.Event, error], error) {
			e, err := s.events.Get(ctx, db, id)
			if err != nil {
				return failOrErr[rotationdomain.Event](err, fmt.Sprintf("event %d", id))
			}
			e.Name = in.Name
			e.Description = in.Description
			e.EventDate = in.EventDate.UTC()
			if err := s.events.Update(ctx, db, e); err != nil {
				return failOrErr[rotationdomain.Event](err, fmt.Sprintf("event %d", id))
			}
			return succeed(e.ToDomain())
		})
	}))
}

// GetEvent returns one event.
func (s *RotationService) GetEvent(ctx context.Context, store TenantStore, id int64) (rotationdomain.Event, error) {
	return unwrap(withTelemetry(s, ctx, store, "GetEvent", noKind, func(ctx context.Context) (results.OperationResult[rotationdomain.Event, error], error) {
		return runRead(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[rotationdomain.Event, error], error) {
			e, err := s.events.Get(ctx, db, id)
			if err != nil {
				return failOrErr[rotationdomain.Event](err, fmt.Sprintf("event %d", id))
			}
			return succeed(e.ToDomain())
		})
	}))
}

// ListEvents returns every event, newest first.
func (s *RotationService) ListEvents(ctx context.Context, store TenantStore) ([]rotationdomain.Event, error) {
	return unwrap(withTelemetry(s, ctx, store, "ListEvents", noKind, func(ctx context.Context) (results.OperationResult[[]rotationdomain.Event, error], error) {
		return runRead(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[[]rotationdomain.Event, error], error) {
			rows, err := s.events.List(ctx, db)
			if err != nil {
				return results.OperationResult[[]rotationdomain.Event, error]{}, fmt.Errorf("list events: %w", err)
			}
			out := make([]rotationdomain.Event, 0, len(rows))
			for _, e := range rows {
				out = append(out, e.ToDomain())
			}
			return succeed(out)
		})
	}))
}

// DeleteEvent removes an event and every assignment made for it. Each
// removed assignment decrements its participant's count once and the holder
// of each kind is re-derived, all in one transaction.
func (s *RotationService) DeleteEvent(ctx context.Context, store TenantStore, id int64) (DeleteEventSummary, error) {
	return unwrap(withTelemetry(s, ctx, store, "DeleteEvent", noKind, func(ctx context.Context) (results.OperationResult[DeleteEventSummary, error], error) {
		return runInTx(ctx, store, func(ctx context.Context, db bun.IDB) (results.OperationResult[DeleteEventSummary, error], error) {
			return s.deleteEventLogic(ctx, db, id)
		})
	}))
}

func (s *RotationService) deleteEventLogic(ctx context.Context, db bun.IDB, id int64) (results.OperationResult[DeleteEventSummary, error], error) {
	now := s.now()
	// Lock rows are always taken in Kinds() order.
	for _, kind := range rotationdomain.Kinds() {
		if _, err := s.state.AcquireRotationLock(ctx, db, kind, now); err != nil {
			return results.OperationResult[DeleteEventSummary, error]{}, fmt.Errorf("acquire %s rotation lock: %w", kind, err)
		}
	}

	if _, err := s.events.Get(ctx, db, id); err != nil {
		return failOrErr[DeleteEventSummary](err, fmt.Sprintf("event %d", id))
	}

	summary := DeleteEventSummary{
		EventID:     id,
		Removed:     make(map[rotationdomain.Kind]int),
		Decremented: make(map[rotationdomain.Kind][]int64),
	}
	for _, kind := range rotationdomain.Kinds() {
		entries, err := s.ledger.ListByEvent(ctx, db, kind, id)
		if err != nil {
			return results.OperationResult[DeleteEventSummary, error]{}, fmt.Errorf("list %s assignments: %w", kind, err)
		}
		decremented := make([]int64, 0, len(entries))
		for _, a := range entries {
			if err := s.participants.DecrementCount(ctx, db, kind, a.ParticipantID, now); err != nil {
				return results.OperationResult[DeleteEventSummary, error]{}, fmt.Errorf("decrement %s count: %w", kind, err)
			}
			decremented = append(decremented, a.ParticipantID)
		}
		removed, err := s.ledger.DeleteByEvent(ctx, db, kind, id)
		if err != nil {
			return results.OperationResult[DeleteEventSummary, error]{}, fmt.Errorf("delete %s assignments: %w", kind, err)
		}
		if err := s.refreshHolder(ctx, db, kind, now); err != nil {
			return results.OperationResult[DeleteEventSummary, error]{}, err
		}
		summary.Removed[kind] = removed
		summary.Decremented[kind] = decremented
	}

	if err := s.events.Delete(ctx, db, id); err != nil {
		return failOrErr[DeleteEventSummary](err, fmt.Sprintf("event %d", id))
	}
	return succeed(summary)
}
